package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/delsi82/color-recognition/internal/camera"
)

func newDevicesCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "devices",
		Short: "List capture devices found on this host",
		RunE: func(cmd *cobra.Command, args []string) error {
			stdout := cmd.OutOrStdout()
			devices, err := camera.DiscoverDevices()
			if err != nil {
				return err
			}
			if len(devices) == 0 {
				fmt.Fprintln(stdout, "No capture devices found")
				return nil
			}

			rows := make([][]string, 0, len(devices))
			for _, dev := range devices {
				name := dev.Name
				if name == "" {
					name = "-"
				}
				rows = append(rows, []string{
					fmt.Sprintf("%d", dev.Index),
					dev.Node,
					name,
				})
			}
			table := renderTable(
				[]string{"Index", "Node", "Model"},
				rows,
				[]columnAlignment{alignRight, alignLeft, alignLeft},
			)
			fmt.Fprintln(stdout, table)
			return nil
		},
	}
}
