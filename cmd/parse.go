package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/wa-outreach/internal/leads"
)

var parseCSV bool

var parseCmd = &cobra.Command{
	Use:   "parse <file>",
	Short: "Parse a lead export (.csv or .xlsx) and print the leads",
	Long:  "Detects the export dialect, dedupes and filters phone numbers, then prints the resulting leads as JSON, or as a normalized CSV with --csv.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate("parse"); err != nil {
			return err
		}

		parsed, err := leads.ReadFile(args[0])
		if err != nil {
			return err
		}
		zap.L().Info("leads parsed", zap.String("file", args[0]), zap.Int("leads", len(parsed)))

		if len(parsed) == 0 {
			fmt.Fprintln(os.Stderr, "No valid leads found.")
			return nil
		}

		if parseCSV {
			return leads.WriteCSV(os.Stdout, parsed)
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(parsed)
	},
}

func init() {
	parseCmd.Flags().BoolVar(&parseCSV, "csv", false, "print normalized CSV instead of JSON")
	rootCmd.AddCommand(parseCmd)
}
