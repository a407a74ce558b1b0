package cmd

import (
	"fmt"
	"io"
	"strconv"

	"mediadeck/services"
	"mediadeck/types"

	"github.com/dustin/go-humanize"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
)

// scanLibrary lists the tracks under dir, showing a spinner on interactive terminals
func scanLibrary(cmd *cobra.Command, fs afero.Fs, dir string, extensions []string) []types.AudioFile {
	lib := services.NewLibrary(fs, extensions...)

	var onFile func(string)
	if errOut := cmd.ErrOrStderr(); isTerminal(errOut) {
		bar := progressbar.NewOptions(-1,
			progressbar.OptionSetWriter(errOut),
			progressbar.OptionSetDescription("scanning "+dir),
			progressbar.OptionSpinnerType(14),
			progressbar.OptionClearOnFinish(),
		)
		defer bar.Finish()
		onFile = func(string) { bar.Add(1) }
	}
	return services.LoadTracks(lib, dir, onFile)
}

func trackRows(tracks []types.AudioFile) [][]string {
	rows := make([][]string, 0, len(tracks))
	for i, t := range tracks {
		var title, artist, album string
		if t.Metadata != nil {
			title, artist, album = t.Metadata.Title, t.Metadata.Artist, t.Metadata.Album
		}
		rows = append(rows, []string{
			strconv.Itoa(i + 1),
			t.Path,
			title,
			artist,
			album,
			humanize.Bytes(uint64(t.Size)),
		})
	}
	return rows
}

func printTracks(w io.Writer, dir string, tracks []types.AudioFile) {
	if len(tracks) == 0 {
		fmt.Fprintf(w, "No tracks found in %s\n", dir)
		return
	}
	fmt.Fprintln(w, renderTable(
		[]string{"#", "File", "Title", "Artist", "Album", "Size"},
		trackRows(tracks),
		[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft, alignLeft, alignRight},
	))
}

func newTracksCommand(ctx *commandContext) *cobra.Command {
	var dir string
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "tracks",
		Short: "List the audio files in the library",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := ctx.config()
			if dir == "" {
				dir = cfg.LibraryLocation
			}
			tracks := scanLibrary(cmd, afero.NewOsFs(), dir, cfg.Extensions())
			if asJSON {
				return writeJSON(cmd, tracks)
			}
			printTracks(cmd.OutOrStdout(), dir, tracks)
			return nil
		},
	}
	cmd.Flags().StringVarP(&dir, "dir", "d", "", "Directory to list (defaults to the library location)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the result as JSON")
	return cmd
}
