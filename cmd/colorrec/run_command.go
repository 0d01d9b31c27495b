package main

import (
	"github.com/spf13/cobra"

	"github.com/delsi82/color-recognition/internal/daemonrun"
)

func newRunCommand(ctx *commandContext) *cobra.Command {
	var synthetic bool
	var maxFrames int64
	var development bool

	cmd := &cobra.Command{
		Use:          "run",
		Short:        "Run the capture daemon in the foreground",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("max-frames") {
				cfg.Triage.MaxFrames = maxFrames
			}
			return daemonrun.Run(cmd.Context(), cfg, daemonrun.Options{
				LogLevel:    ctx.logLevel(),
				Development: development,
				Synthetic:   synthetic,
			})
		},
	}
	cmd.Flags().BoolVar(&synthetic, "synthetic", false, "Use a generated frame source instead of a camera")
	cmd.Flags().Int64Var(&maxFrames, "max-frames", 0, "Stop after this many processed frames (0 runs until a signal)")
	cmd.Flags().BoolVar(&development, "development", false, "Human-oriented console logging")
	return cmd
}
