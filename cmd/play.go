package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"mediadeck/services"
	"mediadeck/types"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
)

// resolveTrack maps a 1-based index or a track path to a track path
func resolveTrack(tracks []types.AudioFile, input string) (string, bool) {
	if n, err := strconv.Atoi(input); err == nil {
		if n < 1 || n > len(tracks) {
			return "", false
		}
		return tracks[n-1].Path, true
	}
	for _, t := range tracks {
		if t.Path == input || t.Filename == input {
			return t.Path, true
		}
	}
	return "", false
}

func printPlayback(w io.Writer, state types.PlaybackState) {
	for _, prev := range state.Stopped {
		fmt.Fprintf(w, "■ %s\n", prev)
	}
	switch state.Action {
	case types.PlaybackActionPlay:
		fmt.Fprintf(w, "▶ %s\n", state.Track)
	case types.PlaybackActionStop:
		fmt.Fprintf(w, "■ %s\n", state.Track)
	}
}

// readLines feeds the lines of in to the returned channel until EOF or ctx is
// done. The error channel receives the scanner error once the input ends.
func readLines(ctx context.Context, in io.Reader) (<-chan string, <-chan error) {
	lines := make(chan string)
	errc := make(chan error, 1)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
		errc <- scanner.Err()
	}()
	return lines, errc
}

// runPlayer reads taps from in until EOF, "q" or ctx is done
func runPlayer(ctx context.Context, in io.Reader, out io.Writer, tracks []types.AudioFile, controller services.PlaybackController) error {
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go controller.Run(runCtx)

	lines, errc := readLines(runCtx, in)
	fmt.Fprint(out, "> ")
	for {
		var input string
		select {
		case <-runCtx.Done():
			fmt.Fprintln(out)
			return nil
		case line, ok := <-lines:
			if !ok {
				select {
				case err := <-errc:
					return err
				default:
					return nil
				}
			}
			input = strings.TrimSpace(line)
		}

		switch input {
		case "":
		case "q", "quit":
			return nil
		case "l", "list":
			printTracks(out, "", tracks)
		default:
			name, ok := resolveTrack(tracks, input)
			if !ok {
				fmt.Fprintf(out, "no track %q\n", input)
				break
			}
			state, err := controller.Toggle(runCtx, name)
			if err != nil {
				if errors.Is(err, context.Canceled) {
					return nil
				}
				return err
			}
			printPlayback(out, state)
		}
		fmt.Fprint(out, "> ")
	}
}

func newPlayCommand(ctx *commandContext) *cobra.Command {
	var dir string

	cmd := &cobra.Command{
		Use:   "play",
		Short: "Browse the library and toggle playback interactively",
		Long: "Lists the library, then reads one tap per line: a track number or file name\n" +
			"toggles that track, \"l\" lists the tracks again and \"q\" quits.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := ctx.config()
			if dir == "" {
				dir = cfg.LibraryLocation
			}

			tracks := scanLibrary(cmd, afero.NewOsFs(), dir, cfg.Extensions())
			out := cmd.OutOrStdout()
			printTracks(out, dir, tracks)
			if len(tracks) == 0 {
				return nil
			}

			engine, release, err := newEngine(cfg, dir)
			if err != nil {
				return err
			}
			defer release()

			controller := services.NewPlaybackController(tracks, engine, nil, cfg.StopPreviousOnSwitch)
			return runPlayer(cmd.Context(), cmd.InOrStdin(), out, tracks, controller)
		},
	}
	cmd.Flags().StringVarP(&dir, "dir", "d", "", "Directory to browse (defaults to the library location)")
	return cmd
}
