package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/wa-outreach/internal/leads"
	"github.com/sells-group/wa-outreach/internal/model"
)

var contactsCmd = &cobra.Command{
	Use:   "contacts",
	Short: "Inspect and manage the contact ledger",
	Long:  "Commands for listing, summarizing, deleting and exporting contacts recorded by earlier sends.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := rootCmd.PersistentPreRunE(cmd, args); err != nil {
			return err
		}
		return cfg.Validate("contacts")
	},
}

// -- contacts list --

var contactsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List ledger contacts",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, ledger, err := openLedger(ctx, cfg)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		status, _ := cmd.Flags().GetString("status")
		asJSON, _ := cmd.Flags().GetBool("json")

		var contacts []model.StoredContact
		if status != "" {
			s := model.ContactStatus(status)
			if !s.Valid() {
				return eris.Errorf("contacts list: unknown status %q", status)
			}
			contacts = ledger.ByStatus(ctx, s)
		} else {
			contacts = ledger.All(ctx)
		}

		if asJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(contacts)
		}

		if len(contacts) == 0 {
			fmt.Fprintln(os.Stderr, "No contacts found.")
			return nil
		}
		formatContactsList(os.Stdout, contacts)
		return nil
	},
}

// -- contacts stats --

var contactsStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show contact counts per status",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, ledger, err := openLedger(ctx, cfg)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		formatContactStats(os.Stdout, ledger.Stats(ctx))
		return nil
	},
}

// -- contacts delete --

var contactsDeleteCmd = &cobra.Command{
	Use:   "delete <phone>",
	Short: "Remove a contact so it can be messaged again",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, ledger, err := openLedger(ctx, cfg)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		if !ledger.Delete(ctx, args[0]) {
			return eris.Errorf("contacts delete: no contact with phone %s", args[0])
		}
		fmt.Fprintf(os.Stderr, "Deleted %s.\n", args[0])
		return nil
	},
}

// -- contacts export --

var contactsExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export ledger contacts as a lead CSV",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, ledger, err := openLedger(ctx, cfg)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		status, _ := cmd.Flags().GetString("status")
		out, _ := cmd.Flags().GetString("out")

		contacts := ledger.All(ctx)
		if status != "" {
			contacts = ledger.ByStatus(ctx, model.ContactStatus(status))
		}

		var w io.Writer = os.Stdout
		if out != "" {
			f, err := os.Create(out)
			if err != nil {
				return eris.Wrapf(err, "contacts export: create %s", out)
			}
			defer f.Close() //nolint:errcheck
			w = f
		}

		return leads.WriteCSV(w, contactLeads(contacts))
	},
}

// contactLeads extracts the lead snapshot of each contact.
func contactLeads(contacts []model.StoredContact) []model.Lead {
	out := make([]model.Lead, 0, len(contacts))
	for _, c := range contacts {
		out = append(out, c.Lead)
	}
	return out
}

// formatContactsList writes a tabular list of contacts to w.
func formatContactsList(out io.Writer, contacts []model.StoredContact) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "PHONE\tNAME\tSTATUS\tADDED\tMESSAGED\tERROR")
	_, _ = fmt.Fprintln(w, "-----\t----\t------\t-----\t--------\t-----")

	for _, c := range contacts {
		messaged := ""
		if c.DateMessaged != nil {
			messaged = c.DateMessaged.Format("2006-01-02 15:04")
		}

		name := c.Lead.Name
		if len(name) > 30 {
			name = name[:27] + "..."
		}
		errText := c.Error
		if len(errText) > 40 {
			errText = errText[:37] + "..."
		}

		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
			c.NormalizedPhone,
			name,
			c.Status,
			c.DateAdded.Format("2006-01-02 15:04"),
			messaged,
			errText,
		)
	}
	_ = w.Flush()
}

// formatContactStats writes per-status counts to w in status order.
func formatContactStats(out io.Writer, s model.LedgerStats) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintf(w, "Total contacts:\t%d\n", s.Total)
	for _, status := range model.ContactStatuses {
		_, _ = fmt.Fprintf(w, "  %s:\t%d\n", status, s.ByStatus[status])
	}
	_ = w.Flush()
}

func init() {
	contactsListCmd.Flags().String("status", "", "only contacts with this status")
	contactsListCmd.Flags().Bool("json", false, "print JSON instead of a table")
	contactsExportCmd.Flags().String("status", "", "only contacts with this status")
	contactsExportCmd.Flags().String("out", "", "output file (default stdout)")

	contactsCmd.AddCommand(contactsListCmd, contactsStatsCmd, contactsDeleteCmd, contactsExportCmd)
	rootCmd.AddCommand(contactsCmd)
}
