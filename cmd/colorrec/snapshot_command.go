package main

import (
	"fmt"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/delsi82/color-recognition/internal/camera"
	"github.com/delsi82/color-recognition/internal/snapshot"
)

func newSnapshotCommand(ctx *commandContext) *cobra.Command {
	var outputPath string
	var thumbWidth int

	cmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Capture a single frame to a file",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			opts := snapshot.Options{
				OutputPath: outputPath,
				ThumbWidth: thumbWidth,
			}
			if isatty.IsTerminal(os.Stderr.Fd()) {
				opts.Progress = os.Stderr
			}

			source := camera.NewGoCVSource(cfg.Camera.Device)
			result, err := snapshot.Capture(cmd.Context(), cfg, source, opts)
			if err != nil {
				return err
			}

			stdout := cmd.OutOrStdout()
			fmt.Fprintf(stdout, "Saved %dx%d snapshot to %s\n", result.Width, result.Height, result.Path)
			if result.ThumbPath != "" {
				fmt.Fprintf(stdout, "Thumbnail written to %s\n", result.ThumbPath)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&outputPath, "output", "o", "", "Destination file (extension selects the format)")
	cmd.Flags().IntVar(&thumbWidth, "thumb", 0, "Also write a thumbnail this many pixels wide")
	return cmd
}
