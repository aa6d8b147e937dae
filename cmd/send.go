package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/wa-outreach/internal/leads"
	"github.com/sells-group/wa-outreach/internal/model"
	"github.com/sells-group/wa-outreach/internal/outreach"
)

var (
	sendFile         string
	sendName         string
	sendPhone        string
	sendBusiness     string
	sendMessage      string
	sendTemplateName string
	sendAI           bool
	sendMax          int
	sendDryRun       bool
)

var sendCmd = &cobra.Command{
	Use:   "send",
	Short: "Send messages to a lead file or a single contact",
	Long: `Runs every lead through pre-flight validation, the WhatsApp Web session and the contact ledger.

Use --file for a bulk run or --phone for a single contact. The message comes from --message
or a named template (--template-name). With --ai the message is an instruction for the AI
opener generator instead of a template. Ctrl-C stops the run after the current contact.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		if err := cfg.Validate("send"); err != nil {
			return err
		}
		if (sendFile == "") == (sendPhone == "") {
			return eris.New("send: exactly one of --file or --phone is required")
		}

		text, err := resolveMessage(sendMessage, sendTemplateName, cfg.Outreach.TemplatesFile)
		if err != nil {
			return err
		}
		mode := model.MessageModeTemplate
		if sendAI {
			mode = model.MessageModeAI
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initOutreach(ctx, cfg, automationFor(cfg, sendDryRun))
		if err != nil {
			return err
		}
		defer env.Close()

		if sendPhone != "" {
			lead := model.Lead{Name: sendName, Phone: sendPhone, BusinessName: sendBusiness}
			out, err := env.Orchestrator.SendOne(ctx, lead, text, mode)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(out)
		}

		parsed, err := leads.ReadFile(sendFile)
		if err != nil {
			return err
		}

		// The run outlives ctx so a signal stops it between contacts instead
		// of mid-send.
		id, err := env.Orchestrator.Start(context.WithoutCancel(ctx), outreach.Request{
			Leads:         parsed,
			Message:       text,
			Mode:          mode,
			MaxSuccessful: sendMax,
		})
		if err != nil {
			return err
		}

		go func() {
			<-ctx.Done()
			if env.Orchestrator.Stop(id) {
				zap.L().Info("stop requested, finishing current contact", zap.String("run_id", id))
			}
		}()

		progress, err := env.Orchestrator.Wait(context.Background(), id)
		if err != nil {
			return err
		}
		formatProgress(os.Stdout, progress)
		if progress.Status == model.RunStatusFailed {
			return eris.Errorf("send: run %s failed", id)
		}
		return nil
	},
}

// formatProgress writes a run summary followed by its log to w.
func formatProgress(out io.Writer, p *model.BulkProgress) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintf(w, "Run:\t%s\n", p.ID)
	_, _ = fmt.Fprintf(w, "Status:\t%s\n", p.Status)
	_, _ = fmt.Fprintf(w, "Processed:\t%d/%d\n", p.ProcessedContacts, p.TotalContacts)
	_, _ = fmt.Fprintf(w, "  Successful:\t%d\n", p.SuccessfulContacts)
	_, _ = fmt.Fprintf(w, "  Not on WhatsApp:\t%d\n", p.NotOnWhatsAppContacts)
	_, _ = fmt.Fprintf(w, "  Failed:\t%d\n", p.FailedContacts)
	_, _ = fmt.Fprintf(w, "  Skipped:\t%d\n", p.SkippedContacts)
	if p.CapReached {
		_, _ = fmt.Fprintln(w, "Cap reached:\tyes")
	}
	_ = w.Flush()

	if len(p.Logs) > 0 {
		_, _ = fmt.Fprintln(out)
		_, _ = fmt.Fprintln(out, strings.Join(p.Logs, "\n"))
	}
}

func init() {
	f := sendCmd.Flags()
	f.StringVar(&sendFile, "file", "", "lead file (.csv or .xlsx) for a bulk run")
	f.StringVar(&sendPhone, "phone", "", "phone number for a single contact")
	f.StringVar(&sendName, "name", "", "contact name for --phone")
	f.StringVar(&sendBusiness, "business", "", "business name for --phone")
	f.StringVar(&sendMessage, "message", "", "message template, or AI instruction with --ai")
	f.StringVar(&sendTemplateName, "template-name", "", "named template from the template library")
	f.BoolVar(&sendAI, "ai", false, "generate each opener with the AI generator")
	f.IntVar(&sendMax, "max", 0, "stop after this many successful sends (0 = no cap)")
	f.BoolVar(&sendDryRun, "dry-run", false, "log messages instead of opening WhatsApp Web")
	rootCmd.AddCommand(sendCmd)
}
