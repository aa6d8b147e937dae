package outreach

import (
	"context"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/wa-outreach/internal/message"
	"github.com/sells-group/wa-outreach/internal/model"
	"github.com/sells-group/wa-outreach/internal/phone"
	"github.com/sells-group/wa-outreach/internal/sender"
)

var (
	// ErrNoLeads is returned when a run is requested without leads.
	ErrNoLeads = eris.New("outreach: no leads to process")
	// ErrNoMessage is returned when a run has no template or prompt.
	ErrNoMessage = eris.New("outreach: message is required")
	// ErrUnknownRun is returned for run ids this process never started.
	ErrUnknownRun = eris.New("outreach: unknown run")
)

// Outcome is what happened to a single lead.
type Outcome struct {
	Status model.ContactStatus `json:"status"`
	Detail string              `json:"detail,omitempty"`
}

type outcomeKind int

const (
	kindBlacklisted outcomeKind = iota
	kindDuplicate
	kindRejected
	kindSent
	kindNotOnNetwork
	kindInvalidNumber
	kindFailed
)

type result struct {
	kind outcomeKind
	Outcome
}

// attempted reports whether the browser was driven for this lead.
func (r result) attempted() bool { return r.kind >= kindSent }

func (r Request) validate() error {
	if len(r.Leads) == 0 {
		return ErrNoLeads
	}
	if strings.TrimSpace(r.Message) == "" {
		return ErrNoMessage
	}
	switch r.Mode {
	case "", model.MessageModeTemplate, model.MessageModeAI:
	default:
		return eris.Errorf("outreach: unknown message mode %q", r.Mode)
	}
	if r.MaxSuccessful < 0 {
		return eris.New("outreach: max successful must not be negative")
	}
	return nil
}

// Start validates req and processes it in the background. ctx bounds the
// lifetime of the run, not of the call.
func (o *Orchestrator) Start(ctx context.Context, req Request) (string, error) {
	if err := req.validate(); err != nil {
		return "", err
	}
	id := o.runs.create(len(req.Leads))
	go o.run(ctx, id, req)
	return id, nil
}

// Run processes req and returns the final progress once the run ends.
func (o *Orchestrator) Run(ctx context.Context, req Request) (*model.BulkProgress, error) {
	id, err := o.Start(ctx, req)
	if err != nil {
		return nil, err
	}
	done, _ := o.runs.Done(id)
	<-done
	p, _ := o.runs.Get(id)
	return p, nil
}

// Wait blocks until run id finishes or ctx is done.
func (o *Orchestrator) Wait(ctx context.Context, id string) (*model.BulkProgress, error) {
	done, ok := o.runs.Done(id)
	if !ok {
		return nil, ErrUnknownRun
	}
	select {
	case <-done:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	p, _ := o.runs.Get(id)
	return p, nil
}

// Stop asks run id to halt before its next lead.
func (o *Orchestrator) Stop(id string) bool {
	return o.runs.Stop(id)
}

// Progress returns a snapshot of run id.
func (o *Orchestrator) Progress(id string) (*model.BulkProgress, bool) {
	return o.runs.Get(id)
}

// SendOne runs a single lead through the same path as a bulk run.
func (o *Orchestrator) SendOne(ctx context.Context, lead model.Lead, text string, mode model.MessageMode) (Outcome, error) {
	req := Request{Leads: []model.Lead{lead}, Message: text, Mode: mode}
	if err := req.validate(); err != nil {
		return Outcome{}, err
	}
	if strings.TrimSpace(lead.Phone) == "" {
		return Outcome{}, eris.New("outreach: phone is required")
	}

	if o.session != nil {
		if err := o.session.Acquire(ctx); err != nil {
			return Outcome{}, eris.Wrap(err, "outreach: acquire session")
		}
		defer o.release(zap.L())
	}

	res, err := o.process(ctx, lead, req)
	if err != nil {
		return Outcome{}, err
	}
	zap.L().Info("outreach: single contact processed",
		zap.String("name", lead.Name),
		zap.String("phone", lead.Phone),
		zap.String("status", string(res.Status)),
	)
	return res.Outcome, nil
}

func (o *Orchestrator) release(log *zap.Logger) {
	if err := o.session.Release(); err != nil {
		log.Warn("outreach: session release failed", zap.Error(err))
	}
}

func (o *Orchestrator) run(ctx context.Context, id string, req Request) {
	defer o.runs.finish(id)

	log := zap.L().With(zap.String("run_id", id))
	log.Info("outreach: bulk run starting",
		zap.Int("leads", len(req.Leads)),
		zap.String("mode", string(req.Mode)),
		zap.Int("max_successful", req.MaxSuccessful),
	)

	if o.session != nil {
		if err := o.session.Acquire(ctx); err != nil {
			log.Error("outreach: session acquire failed", zap.Error(err))
			o.runs.update(id, func(p *model.BulkProgress) {
				p.Status = model.RunStatusFailed
				logLine(p, "Bulk processing failed: %v", err)
			})
			return
		}
		defer o.release(log)
	}

	for i, lead := range req.Leads {
		if o.halted(ctx, id, req.MaxSuccessful) {
			break
		}

		o.runs.update(id, func(p *model.BulkProgress) {
			p.CurrentContact = lead.Label()
			logLine(p, "Processing: %s", lead.Label())
		})

		res, err := o.process(ctx, lead, req)
		if err != nil {
			log.Info("outreach: lead interrupted", zap.String("name", lead.Name), zap.Error(err))
			continue
		}

		o.runs.update(id, func(p *model.BulkProgress) {
			p.ProcessedContacts++
			res.apply(p, lead)
		})
		log.Info("outreach: lead processed",
			zap.Int("index", i+1),
			zap.String("name", lead.Name),
			zap.String("phone", lead.Phone),
			zap.String("status", string(res.Status)),
			zap.String("detail", res.Detail),
		)

		// Only leads that reached the sender pause; local rejections and
		// the last lead never touch the browser. Cancellation surfaces at
		// the top of the next iteration.
		if res.attempted() && i < len(req.Leads)-1 {
			_ = o.pacer.Pause(ctx)
		}
	}

	var final *model.BulkProgress
	o.runs.update(id, func(p *model.BulkProgress) {
		if p.Status == model.RunStatusRunning {
			if ctx.Err() != nil {
				p.Status = model.RunStatusStopped
			} else {
				p.Status = model.RunStatusCompleted
			}
		}
		p.CurrentContact = ""
		logLine(p, "Bulk processing %s: %d successful, %d failed, %d not on WhatsApp, %d skipped",
			p.Status, p.SuccessfulContacts, p.FailedContacts, p.NotOnWhatsAppContacts, p.SkippedContacts)
		final = p.Clone()
	})

	log.Info("outreach: bulk run finished",
		zap.String("status", string(final.Status)),
		zap.Int("processed", final.ProcessedContacts),
		zap.Int("successful", final.SuccessfulContacts),
		zap.Int("failed", final.FailedContacts),
		zap.Int("not_on_whatsapp", final.NotOnWhatsAppContacts),
		zap.Int("skipped", final.SkippedContacts),
		zap.Bool("cap_reached", final.CapReached),
	)
}

// halted checks the loop-top conditions: an external stop, a cancelled
// context, or the successful-send cap.
func (o *Orchestrator) halted(ctx context.Context, id string, limit int) bool {
	stop := false
	o.runs.update(id, func(p *model.BulkProgress) {
		switch {
		case p.Status == model.RunStatusStopped:
			logLine(p, "Processing stopped by user")
			stop = true
		case ctx.Err() != nil:
			p.Status = model.RunStatusStopped
			logLine(p, "Processing cancelled: %v", ctx.Err())
			stop = true
		case limit > 0 && p.SuccessfulContacts >= limit:
			p.CapReached = true
			logLine(p, "Reached the limit of %d successful messages", limit)
			stop = true
		}
	})
	return stop
}

// process handles one lead. The error is non-nil only when ctx ended before
// the send was attempted.
func (o *Orchestrator) process(ctx context.Context, lead model.Lead, req Request) (result, error) {
	if o.validator != nil {
		check := o.validator.Preflight(lead.Phone, lead.Name)
		if !check.IsValid {
			if check.SkipReason == phone.SkipReasonBlacklist {
				return result{kind: kindBlacklisted, Outcome: Outcome{Status: model.ContactStatusSkipped, Detail: check.Reason}}, nil
			}
			o.record(ctx, lead, model.ContactStatusInvalidPhone, check.Reason)
			return result{kind: kindRejected, Outcome: Outcome{Status: model.ContactStatusInvalidPhone, Detail: check.Reason}}, nil
		}
	}

	if o.ledger != nil && o.ledger.IsDuplicate(ctx, lead.Phone) {
		return result{kind: kindDuplicate, Outcome: Outcome{Status: model.ContactStatusSkipped, Detail: "already in contacts"}}, nil
	}

	country, local := phone.Resolve(lead.Phone, o.country)

	if err := o.pacer.Allow(ctx); err != nil {
		return result{}, eris.Wrap(err, "outreach: wait for send slot")
	}

	text, err := o.compose(ctx, lead, req)
	if err != nil {
		return result{}, err
	}

	// An in-flight send is never aborted.
	sendCtx := context.WithoutCancel(ctx)
	res := classify(o.sender.Send(sendCtx, lead.Name, local, country, text))
	o.record(sendCtx, lead, res.Status, res.Detail)
	return res, nil
}

func (o *Orchestrator) compose(ctx context.Context, lead model.Lead, req Request) (string, error) {
	if req.Mode == model.MessageModeAI && o.generator != nil && o.generator.Available() {
		prompt := lead.PromptVariant
		if prompt == "" {
			prompt = req.Message
		}
		text, err := o.generator.GenerateOpener(ctx, lead, prompt)
		if err != nil {
			return "", eris.Wrap(err, "outreach: generate message")
		}
		return text, nil
	}
	return message.Render(req.Message, lead), nil
}

// record writes the outcome to the ledger and the tracking store.
func (o *Orchestrator) record(ctx context.Context, lead model.Lead, status model.ContactStatus, detail string) {
	if o.ledger != nil {
		o.ledger.Record(ctx, lead, status, detail)
	}
	if o.tracker != nil {
		o.tracker.MarkProcessed(ctx, lead.Name, lead.Phone, trackingStatus(status), detail)
	}
}

func trackingStatus(s model.ContactStatus) model.TrackingStatus {
	switch s {
	case model.ContactStatusMessaged:
		return model.TrackingStatusProcessed
	case model.ContactStatusNotOnWhatsApp:
		return model.TrackingStatusNotOnWhatsApp
	case model.ContactStatusInvalidPhone:
		return model.TrackingStatusInvalidPhone
	default:
		return model.TrackingStatusFailed
	}
}

func classify(err error) result {
	if err == nil {
		return result{kind: kindSent, Outcome: Outcome{Status: model.ContactStatusMessaged}}
	}
	detail := err.Error()
	switch sender.Classify(err) {
	case sender.KindNotOnNetwork:
		return result{kind: kindNotOnNetwork, Outcome: Outcome{Status: model.ContactStatusNotOnWhatsApp, Detail: detail}}
	case sender.KindInvalidNumber:
		return result{kind: kindInvalidNumber, Outcome: Outcome{Status: model.ContactStatusInvalidPhone, Detail: detail}}
	default:
		return result{kind: kindFailed, Outcome: Outcome{Status: model.ContactStatusFailed, Detail: detail}}
	}
}

func (r result) apply(p *model.BulkProgress, lead model.Lead) {
	switch r.kind {
	case kindBlacklisted:
		p.SkippedContacts++
		logLine(p, "Skipped (already processed): %s", lead.Name)
	case kindDuplicate:
		p.SkippedContacts++
		logLine(p, "Skipped (already in contacts): %s", lead.Name)
	case kindRejected, kindInvalidNumber:
		p.SkippedContacts++
		logLine(p, "Invalid phone: %s - %s", lead.Name, r.Detail)
	case kindSent:
		p.SuccessfulContacts++
		logLine(p, "Success: %s", lead.Name)
	case kindNotOnNetwork:
		p.NotOnWhatsAppContacts++
		logLine(p, "Not on WhatsApp: %s", lead.Name)
	default:
		p.FailedContacts++
		logLine(p, "Failed: %s - %s", lead.Name, r.Detail)
	}
}

func logLine(p *model.BulkProgress, format string, args ...any) {
	p.Logs = append(p.Logs, fmt.Sprintf(format, args...))
}
