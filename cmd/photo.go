package cmd

import (
	"fmt"
	"io"

	"mediadeck/services"
	"mediadeck/types"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
)

func newPhotoCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "photo <file>",
		Short: "Show the EXIF metadata and location of an image",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc := services.NewPhotoService(afero.NewOsFs(), ctx.config().PreviewSize, ctx.config().SignedGPSRefs)
			view := svc.Load(args[0])
			if asJSON {
				return writeJSON(cmd, view)
			}
			printPhoto(cmd.OutOrStdout(), view)
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the result as JSON")
	return cmd
}

// printPhoto renders the three viewer panes, with placeholders for the empty ones
func printPhoto(w io.Writer, view *types.PhotoView) {
	fmt.Fprintf(w, "Photo: %s\n", view.Name)
	if view.Image != nil {
		fmt.Fprintf(w, "Image: %dx%d %s\n", view.Image.Width, view.Image.Height, view.Image.Format)
	} else {
		fmt.Fprintln(w, "Image: (no image)")
	}
	if view.TakenAt != nil {
		fmt.Fprintf(w, "Taken: %s\n", view.TakenAt.Format("2006-01-02 15:04:05"))
	}

	fmt.Fprintln(w)
	if view.Metadata == "" {
		fmt.Fprintln(w, "Metadata: (none)")
	} else {
		fmt.Fprintln(w, "Metadata:")
		fmt.Fprintln(w, view.Metadata)
	}

	if len(view.Tags) > 0 {
		rows := make([][]string, 0, len(view.Tags))
		for _, t := range view.Tags {
			rows = append(rows, []string{t.Group, t.Name, t.Value})
		}
		fmt.Fprintln(w)
		fmt.Fprintln(w, renderTable([]string{"Group", "Tag", "Value"}, rows, nil))
	}

	fmt.Fprintln(w)
	if view.Location == nil {
		fmt.Fprintln(w, "Location: (no location)")
		return
	}
	fmt.Fprintf(w, "Location: %.6f, %.6f\n", view.Location.Latitude, view.Location.Longitude)
	fmt.Fprintf(w, "Map: %s\n", view.MapURL)
}
