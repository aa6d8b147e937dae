package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/sells-group/wa-outreach/internal/model"
	"github.com/sells-group/wa-outreach/internal/store"
)

var trackingCmd = &cobra.Command{
	Use:   "tracking",
	Short: "Inspect the processed-contact list used for pre-flight skips",
}

var trackingStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show tracking counts per status",
	RunE: func(cmd *cobra.Command, _ []string) error {
		tracker := store.NewTracker(store.OpenTracking(cfg.Store.Dir))
		formatTrackingStats(os.Stdout, tracker.Stats(cmd.Context()))
		return nil
	},
}

var trackingListCmd = &cobra.Command{
	Use:   "list",
	Short: "Print every tracked contact as JSON",
	RunE: func(cmd *cobra.Command, _ []string) error {
		tracker := store.NewTracker(store.OpenTracking(cfg.Store.Dir))
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(tracker.All(cmd.Context()))
	},
}

// formatTrackingStats writes tracking counts to w.
func formatTrackingStats(out io.Writer, s model.TrackingStats) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintf(w, "Total tracked:\t%d\n", s.Total)
	_, _ = fmt.Fprintf(w, "  processed:\t%d\n", s.Processed)
	_, _ = fmt.Fprintf(w, "  not_on_whatsapp:\t%d\n", s.NotOnWhatsApp)
	_, _ = fmt.Fprintf(w, "  failed:\t%d\n", s.Failed)
	_, _ = fmt.Fprintf(w, "  invalid_phone:\t%d\n", s.InvalidPhone)
	_ = w.Flush()
}

func init() {
	trackingCmd.AddCommand(trackingStatsCmd, trackingListCmd)
	rootCmd.AddCommand(trackingCmd)
}
