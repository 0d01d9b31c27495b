package main

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/delsi82/color-recognition/internal/detections"
	"github.com/delsi82/color-recognition/internal/fileutil"
	"github.com/delsi82/color-recognition/internal/ipc"
)

const defaultDetectionsLimit = 20

func newDetectionsCommand(ctx *commandContext) *cobra.Command {
	var limit int
	var copyTo string

	cmd := &cobra.Command{
		Use:   "detections",
		Short: "List recent detections from the index",
		RunE: func(cmd *cobra.Command, args []string) error {
			stdout := cmd.OutOrStdout()

			resp, err := fetchDetections(cmd, ctx, limit)
			if err != nil {
				return err
			}

			if len(resp.Items) == 0 {
				fmt.Fprintln(stdout, "No detections recorded")
				return nil
			}

			rows := make([][]string, 0, len(resp.Items))
			for _, item := range resp.Items {
				rows = append(rows, []string{
					fmt.Sprintf("%d", item.ID),
					formatTimestamp(item.CreatedAt),
					item.FrameName,
					fmt.Sprintf("%d", item.CellIndex),
					fmt.Sprintf("%d", item.MatchedPixels),
					filepath.Base(item.FilePath),
				})
			}
			table := renderTable(
				[]string{"ID", "When", "Frame", "Cell", "Pixels", "File"},
				rows,
				[]columnAlignment{alignRight, alignLeft, alignLeft, alignRight, alignRight, alignLeft},
			)
			fmt.Fprintln(stdout, table)
			fmt.Fprintf(stdout, "Sessions: %d  Detections: %d\n", resp.Sessions, resp.Total)

			if strings.TrimSpace(copyTo) != "" {
				return exportDetections(stdout, resp.Items, copyTo)
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", defaultDetectionsLimit, "Maximum number of detections to list")
	cmd.Flags().StringVar(&copyTo, "copy-to", "", "Copy the listed detection images into this directory")
	return cmd
}

// fetchDetections prefers the daemon's view and falls back to opening the
// index directly when no daemon is running.
func fetchDetections(cmd *cobra.Command, ctx *commandContext, limit int) (*ipc.DetectionsResponse, error) {
	client, err := ctx.dialClient()
	if err == nil {
		defer client.Close()
		return client.Detections(limit)
	}

	cfg := ctx.configValue()
	if cfg == nil || !cfg.Detections.Enabled {
		return nil, fmt.Errorf("detection index is disabled and no daemon is running")
	}
	store, err := detections.Open(cfg.Detections.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("open detection index: %w", err)
	}
	defer store.Close()

	items, err := store.Recent(cmd.Context(), limit)
	if err != nil {
		return nil, err
	}
	sessions, total, err := store.Totals(cmd.Context())
	if err != nil {
		return nil, err
	}

	resp := &ipc.DetectionsResponse{Sessions: sessions, Total: total}
	for _, d := range items {
		resp.Items = append(resp.Items, ipc.DetectionRecord{
			ID:            d.ID,
			SessionUUID:   d.SessionUUID,
			Device:        d.Device,
			FrameCounter:  d.FrameCounter,
			FrameName:     d.FrameName,
			CellIndex:     d.CellIndex,
			MatchedPixels: int64(d.MatchedPixels),
			FilePath:      d.FilePath,
			CreatedAt:     d.CreatedAt,
		})
	}
	return resp, nil
}

func exportDetections(stdout io.Writer, items []ipc.DetectionRecord, dir string) error {
	copied := 0
	for _, item := range items {
		if strings.TrimSpace(item.FilePath) == "" {
			continue
		}
		dst := filepath.Join(dir, filepath.Base(item.FilePath))
		if err := fileutil.CopyFileVerified(item.FilePath, dst); err != nil {
			fmt.Fprintf(stdout, "skip %s: %v\n", filepath.Base(item.FilePath), err)
			continue
		}
		copied++
	}
	fmt.Fprintf(stdout, "Copied %d images to %s\n", copied, dir)
	return nil
}
