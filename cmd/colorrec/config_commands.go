package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/delsi82/color-recognition/internal/config"
)

func newConfigCommand(ctx *commandContext) *cobra.Command {
	configCmd := &cobra.Command{
		Use:         "config",
		Short:       "Configuration utilities",
		Annotations: map[string]string{"skipConfigLoad": "true"},
	}

	configCmd.AddCommand(newConfigShowCommand(ctx))
	configCmd.AddCommand(newConfigInitCommand())

	return configCmd
}

func newConfigShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show the effective configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, path, exists, err := config.Load(ctx.configPath())
			if err != nil {
				return err
			}

			stdout := cmd.OutOrStdout()
			fmt.Fprintf(stdout, "Config path: %s\n", path)
			if !exists {
				fmt.Fprintln(stdout, "File not found; built-in defaults are in effect")
			}

			rows := [][]string{
				{"paths", "output_dir", cfg.Paths.OutputDir},
				{"paths", "log_dir", cfg.Paths.LogDir},
				{"paths", "state_dir", cfg.Paths.StateDir},
				{"camera", "device", cfg.Camera.Device},
				{"camera", "device_id", cfg.Camera.DeviceID},
				{"camera", "pixel_format", cfg.Camera.PixelFormat},
				{"camera", "warmup_frames", fmt.Sprintf("%d", cfg.Camera.WarmupFrames)},
				{"triage", "lower_bound", cfg.Triage.LowerBound},
				{"triage", "upper_bound", cfg.Triage.UpperBound},
				{"triage", "retry_delay_ms", fmt.Sprintf("%d", cfg.Triage.RetryDelayMS)},
				{"triage", "max_frames", fmt.Sprintf("%d", cfg.Triage.MaxFrames)},
				{"output", "prefix", cfg.Output.Prefix},
				{"output", "format", cfg.Output.Format},
				{"output", "save_full_frames", yesNo(cfg.Output.SaveFullFrames)},
				{"detections", "enabled", yesNo(cfg.Detections.Enabled)},
				{"detections", "database_path", cfg.Detections.DatabasePath},
				{"daemon", "hotplug", yesNo(cfg.Daemon.Hotplug)},
				{"daemon", "socket_path", cfg.Daemon.SocketPath},
				{"daemon", "pid_path", cfg.Daemon.PIDPath},
				{"daemon", "lock_path", cfg.Daemon.LockPath},
				{"notifications", "ntfy_topic", cfg.Notifications.NtfyTopic},
				{"logging", "format", cfg.Logging.Format},
				{"logging", "level", cfg.Logging.Level},
				{"logging", "retention_days", fmt.Sprintf("%d", cfg.Logging.RetentionDays)},
			}
			table := renderTable(
				[]string{"Section", "Key", "Value"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft},
			)
			fmt.Fprintln(stdout, table)
			return nil
		},
	}
}

func newConfigInitCommand() *cobra.Command {
	var targetPath string
	var overwrite bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create a sample configuration file",
		RunE: func(cmd *cobra.Command, args []string) error {
			target := strings.TrimSpace(targetPath)
			if target == "" {
				defaultPath, err := config.DefaultConfigPath()
				if err != nil {
					return fmt.Errorf("determine default config path: %w", err)
				}
				target = defaultPath
			} else {
				expanded, err := config.ExpandPath(target)
				if err != nil {
					return fmt.Errorf("resolve config path: %w", err)
				}
				target = expanded
			}

			dir := filepath.Dir(target)
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return fmt.Errorf("create config directory %q: %w", dir, err)
			}

			if !overwrite {
				if _, err := os.Stat(target); err == nil {
					return fmt.Errorf("config file already exists at %s (use --overwrite to replace it)", target)
				} else if !os.IsNotExist(err) {
					return fmt.Errorf("check config path: %w", err)
				}
			}

			if err := config.CreateSample(target); err != nil {
				return fmt.Errorf("create sample config: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Wrote sample configuration to %s\n", target)
			fmt.Fprintln(out, "Edit the file to point camera.device at your capture hardware before running colorrec.")
			return nil
		},
	}

	cmd.Flags().StringVarP(&targetPath, "path", "p", "", "Destination for the configuration file")
	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "Overwrite existing configuration if present")
	return cmd
}
