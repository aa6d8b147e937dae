package main

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/wa-outreach/internal/config"
	"github.com/sells-group/wa-outreach/internal/message"
	"github.com/sells-group/wa-outreach/internal/outreach"
	"github.com/sells-group/wa-outreach/internal/phone"
	"github.com/sells-group/wa-outreach/internal/sender"
	"github.com/sells-group/wa-outreach/internal/store"
	anthropicpkg "github.com/sells-group/wa-outreach/pkg/anthropic"
)

// automation is a sender that also owns the browser session.
type automation interface {
	outreach.Sender
	outreach.Session
}

// outreachEnv holds the stores, collaborators and orchestrator needed by the
// send and serve commands.
type outreachEnv struct {
	Contacts     store.ContactStore
	Ledger       *store.Ledger
	Tracker      *store.Tracker
	Pacer        *outreach.Pacer
	Generator    *message.AIGenerator
	Orchestrator *outreach.Orchestrator
}

// Close releases resources held by the environment.
func (e *outreachEnv) Close() {
	if e.Contacts != nil {
		_ = e.Contacts.Close()
	}
}

// automationFor returns the browser sender, or a logging stand-in when
// dryRun is set.
func automationFor(c *config.Config, dryRun bool) automation {
	if dryRun {
		zap.L().Info("dry run: messages will be logged, not sent")
		return sender.DryRun{}
	}
	return sender.NewWebSender(sender.BrowserConfig{
		UserDataDir:  c.Browser.UserDataDir,
		ChromePath:   c.Browser.ChromePath,
		Headless:     c.Browser.Headless,
		LoginTimeout: time.Duration(c.Browser.LoginTimeoutSecs) * time.Second,
		SendTimeout:  time.Duration(c.Browser.SendTimeoutSecs) * time.Second,
	})
}

// openLedger opens the configured contact store. Callers close the returned
// store.
func openLedger(ctx context.Context, c *config.Config) (store.ContactStore, *store.Ledger, error) {
	contacts, err := store.OpenContacts(ctx, c.Store.Driver, c.Store.Dir, c.Store.DatabaseURL)
	if err != nil {
		return nil, nil, eris.Wrap(err, "open contact store")
	}
	return contacts, store.NewLedger(contacts), nil
}

// initOutreach wires stores, the AI generator, pacing and the given
// automation into an Orchestrator. Callers should defer env.Close().
func initOutreach(ctx context.Context, c *config.Config, auto automation) (*outreachEnv, error) {
	country, ok := phone.LookupCountry(c.Outreach.DefaultCountry)
	if !ok {
		return nil, eris.Errorf("unknown default country %q", c.Outreach.DefaultCountry)
	}

	contacts, ledger, err := openLedger(ctx, c)
	if err != nil {
		return nil, err
	}
	tracker := store.NewTracker(store.OpenTracking(c.Store.Dir))

	var aiClient anthropicpkg.Client
	if c.Anthropic.Key != "" {
		aiClient = anthropicpkg.NewClient(c.Anthropic.Key)
	} else {
		zap.L().Debug("OUTREACH_ANTHROPIC_KEY not set, AI mode will use fallback openers")
	}
	gen := message.NewAIGenerator(aiClient, message.AIConfig{
		Model:       c.Anthropic.Model,
		MaxTokens:   c.Anthropic.MaxTokens,
		Temperature: c.Anthropic.Temperature,
		AgentName:   c.AI.AgentName,
		CompanyName: c.AI.CompanyName,
	})

	pacer := outreach.NewPacer(c.Outreach.MinDelay(), c.Outreach.MaxDelay(), c.Outreach.MaxPerHour)

	orch := outreach.New(outreach.Deps{
		Sender:         auto,
		Session:        auto,
		Validator:      phone.NewValidator(tracker),
		Ledger:         ledger,
		Tracker:        tracker,
		Generator:      gen,
		Pacer:          pacer,
		DefaultCountry: country,
	})

	zap.L().Info("outreach ready",
		zap.String("store", c.Store.Driver),
		zap.String("country", country.Code),
		zap.Bool("ai", gen.Available()),
	)

	return &outreachEnv{
		Contacts:     contacts,
		Ledger:       ledger,
		Tracker:      tracker,
		Pacer:        pacer,
		Generator:    gen,
		Orchestrator: orch,
	}, nil
}
