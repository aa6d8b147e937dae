package store

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sells-group/wa-outreach/internal/model"
	"github.com/sells-group/wa-outreach/internal/phone"
)

// Ledger is the record of every contact ever attempted, keyed by normalized
// phone. Storage failures are logged and reported as a negative result rather
// than returned: reads degrade to empty and writes to false.
type Ledger struct {
	mu    sync.Mutex
	store ContactStore
	now   func() time.Time
}

// NewLedger wraps a storage backend.
func NewLedger(s ContactStore) *Ledger {
	return &Ledger{store: s, now: func() time.Time { return time.Now().UTC() }}
}

func (l *Ledger) load(ctx context.Context) ([]model.StoredContact, bool) {
	contacts, err := l.store.Load(ctx)
	if err != nil {
		zap.L().Error("ledger: load failed", zap.Error(err))
		return nil, false
	}
	return contacts, true
}

func (l *Ledger) save(ctx context.Context, contacts []model.StoredContact) bool {
	if err := l.store.Save(ctx, contacts); err != nil {
		zap.L().Error("ledger: save failed", zap.Int("contacts", len(contacts)), zap.Error(err))
		return false
	}
	return true
}

func indexOf(contacts []model.StoredContact, normalized string) int {
	for i := range contacts {
		if contacts[i].NormalizedPhone == normalized {
			return i
		}
	}
	return -1
}

// IsDuplicate reports whether the ledger already holds phone.
func (l *Ledger) IsDuplicate(ctx context.Context, p string) bool {
	return l.Get(ctx, p) != nil
}

// Add records lead with status. It returns false without touching the ledger
// when the normalized phone is already present.
func (l *Ledger) Add(ctx context.Context, lead model.Lead, status model.ContactStatus) bool {
	return l.Record(ctx, lead, status, "")
}

// Record is Add with the error text of a failed outcome attached.
func (l *Ledger) Record(ctx context.Context, lead model.Lead, status model.ContactStatus, errMsg string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	normalized := phone.Normalize(lead.Phone)
	contacts, ok := l.load(ctx)
	if !ok {
		return false
	}
	if indexOf(contacts, normalized) >= 0 {
		zap.L().Debug("ledger: duplicate contact", zap.String("name", lead.Name), zap.String("phone", normalized))
		return false
	}

	now := l.now()
	c := model.StoredContact{
		ID:              uuid.New().String(),
		Lead:            lead,
		Status:          status,
		DateAdded:       now,
		LastUpdated:     now,
		Error:           errMsg,
		NormalizedPhone: normalized,
	}
	if status == model.ContactStatusMessaged {
		c.DateMessaged = &now
	}

	if !l.save(ctx, append(contacts, c)) {
		return false
	}
	zap.L().Info("ledger: contact added",
		zap.String("name", lead.Name),
		zap.String("phone", normalized),
		zap.String("status", string(status)),
	)
	return true
}

// Get returns the entry for phone, or nil.
func (l *Ledger) Get(ctx context.Context, p string) *model.StoredContact {
	l.mu.Lock()
	defer l.mu.Unlock()

	contacts, _ := l.load(ctx)
	i := indexOf(contacts, phone.Normalize(p))
	if i < 0 {
		return nil
	}
	c := contacts[i]
	return &c
}

// All returns every entry in insertion order.
func (l *Ledger) All(ctx context.Context) []model.StoredContact {
	l.mu.Lock()
	defer l.mu.Unlock()

	contacts, _ := l.load(ctx)
	return contacts
}

// ByStatus returns the entries currently in status.
func (l *Ledger) ByStatus(ctx context.Context, status model.ContactStatus) []model.StoredContact {
	var out []model.StoredContact
	for _, c := range l.All(ctx) {
		if c.Status == status {
			out = append(out, c)
		}
	}
	return out
}

// UpdateStatus changes the status of an existing entry. Moving to messaged
// stamps DateMessaged. A non-empty errMsg replaces the stored error.
func (l *Ledger) UpdateStatus(ctx context.Context, p string, status model.ContactStatus, errMsg string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	normalized := phone.Normalize(p)
	contacts, ok := l.load(ctx)
	if !ok {
		return false
	}
	i := indexOf(contacts, normalized)
	if i < 0 {
		zap.L().Warn("ledger: contact not found for status update", zap.String("phone", normalized))
		return false
	}

	now := l.now()
	contacts[i].Status = status
	contacts[i].LastUpdated = now
	if status == model.ContactStatusMessaged {
		contacts[i].DateMessaged = &now
	}
	if errMsg != "" {
		contacts[i].Error = errMsg
	}
	return l.save(ctx, contacts)
}

// Delete removes the entry for phone.
func (l *Ledger) Delete(ctx context.Context, p string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	normalized := phone.Normalize(p)
	contacts, ok := l.load(ctx)
	if !ok {
		return false
	}
	i := indexOf(contacts, normalized)
	if i < 0 {
		zap.L().Warn("ledger: contact not found for deletion", zap.String("phone", normalized))
		return false
	}
	if !l.save(ctx, append(contacts[:i], contacts[i+1:]...)) {
		return false
	}
	zap.L().Info("ledger: contact deleted", zap.String("phone", normalized))
	return true
}

// Stats counts entries per status. Every known status is present in the map.
func (l *Ledger) Stats(ctx context.Context) model.LedgerStats {
	stats := model.LedgerStats{ByStatus: make(map[model.ContactStatus]int, len(model.ContactStatuses))}
	for _, s := range model.ContactStatuses {
		stats.ByStatus[s] = 0
	}
	for _, c := range l.All(ctx) {
		stats.Total++
		stats.ByStatus[c.Status]++
	}
	return stats
}
