// Package cmd holds the mediadeck command line: the HTTP server and the
// terminal renditions of the photo viewer and the audio browser.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"mediadeck/config"
	"mediadeck/logging"

	"github.com/spf13/cobra"
)

type commandContext struct {
	cfg *config.Config
}

func (c *commandContext) config() *config.Config {
	return c.cfg
}

// NewRootCommand builds the mediadeck command tree
func NewRootCommand() *cobra.Command {
	ctx := &commandContext{}

	rootCmd := &cobra.Command{
		Use:           "mediadeck",
		Short:         "Photo metadata viewer and audio browser",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if err := logging.Setup(cmd.ErrOrStderr(), cfg.LogLevel, cfg.LogFormat); err != nil {
				return err
			}
			ctx.cfg = cfg
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	rootCmd.AddCommand(newServeCommand(ctx))
	rootCmd.AddCommand(newPhotoCommand(ctx))
	rootCmd.AddCommand(newTracksCommand(ctx))
	rootCmd.AddCommand(newPlayCommand(ctx))

	return rootCmd
}

// Execute runs the command line until it finishes or the process is interrupted
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := NewRootCommand().ExecuteContext(ctx); err != nil {
		if !errors.Is(err, context.Canceled) {
			fmt.Fprintln(os.Stderr, err)
		}
		stop()
		os.Exit(1)
	}
}
