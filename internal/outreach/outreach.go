// Package outreach drives bulk runs: each lead is pre-flight checked, sent
// through the automation session, recorded, and paced before the next one.
package outreach

import (
	"context"

	"github.com/sells-group/wa-outreach/internal/message"
	"github.com/sells-group/wa-outreach/internal/model"
	"github.com/sells-group/wa-outreach/internal/phone"
)

// Sender delivers one message to a local number in the given country.
type Sender interface {
	Send(ctx context.Context, name, localPhone string, country model.CountryInfo, message string) error
}

// Session is the long-lived automation surface a run holds while sending.
type Session interface {
	Acquire(ctx context.Context) error
	Release() error
}

// Validator pre-flight checks a phone before any automation is attempted.
type Validator interface {
	Preflight(phone, name string) phone.ValidationResult
}

// Ledger records the outcome of every attempted contact, keyed by phone.
type Ledger interface {
	IsDuplicate(ctx context.Context, phone string) bool
	Record(ctx context.Context, lead model.Lead, status model.ContactStatus, errMsg string) bool
}

// Tracker feeds the pre-flight blacklist of later runs.
type Tracker interface {
	MarkProcessed(ctx context.Context, name, phone string, status model.TrackingStatus, errMsg string)
}

// Deps are the collaborators of an Orchestrator. Session and Generator are
// optional.
type Deps struct {
	Sender         Sender
	Session        Session
	Validator      Validator
	Ledger         Ledger
	Tracker        Tracker
	Generator      message.Generator
	Pacer          *Pacer
	DefaultCountry model.CountryInfo
}

// Request describes one bulk run.
type Request struct {
	Leads   []model.Lead
	Message string
	Mode    model.MessageMode
	// MaxSuccessful stops the run once this many sends succeed. Zero means
	// no cap.
	MaxSuccessful int
}

// Orchestrator runs bulk sends and keeps their progress for pollers.
type Orchestrator struct {
	sender    Sender
	session   Session
	validator Validator
	ledger    Ledger
	tracker   Tracker
	generator message.Generator
	pacer     *Pacer
	country   model.CountryInfo
	runs      *Registry
}

// New creates an Orchestrator. A nil Pacer sends without delay and an empty
// DefaultCountry falls back to Portugal.
func New(d Deps) *Orchestrator {
	pacer := d.Pacer
	if pacer == nil {
		pacer = NewPacer(0, 0, 0)
	}
	country := d.DefaultCountry
	if country.Prefix == "" {
		country = phone.Portugal
	}
	return &Orchestrator{
		sender:    d.Sender,
		session:   d.Session,
		validator: d.Validator,
		ledger:    d.Ledger,
		tracker:   d.Tracker,
		generator: d.Generator,
		pacer:     pacer,
		country:   country,
		runs:      NewRegistry(),
	}
}

// Runs exposes the progress registry.
func (o *Orchestrator) Runs() *Registry { return o.runs }
