package store

import (
	"context"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"

	"github.com/sells-group/wa-outreach/internal/model"
	"github.com/sells-group/wa-outreach/internal/phone"
)

// Tracker is the tracking list consulted by the pre-flight blacklist check.
// Entries are keyed by (name, normalized phone), so the same number under a
// different name is a separate entry. Names compare after NFC normalization
// and case folding.
type Tracker struct {
	mu    sync.Mutex
	store TrackingStore
	now   func() time.Time
}

// NewTracker wraps a storage backend.
func NewTracker(s TrackingStore) *Tracker {
	return &Tracker{store: s, now: func() time.Time { return time.Now().UTC() }}
}

func foldName(name string) string {
	return cases.Fold().String(norm.NFC.String(strings.TrimSpace(name)))
}

func findTracked(entries []model.TrackedContact, name, normalized string) int {
	key := foldName(name)
	for i := range entries {
		if entries[i].Phone == normalized && foldName(entries[i].Name) == key {
			return i
		}
	}
	return -1
}

// MarkProcessed inserts or replaces the entry for (name, phone).
func (t *Tracker) MarkProcessed(ctx context.Context, name, p string, status model.TrackingStatus, errMsg string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	entries, err := t.store.Load(ctx)
	if err != nil {
		zap.L().Error("tracking: load failed", zap.Error(err))
		return
	}

	normalized := phone.Normalize(p)
	entry := model.TrackedContact{
		Name:      name,
		Phone:     normalized,
		Status:    status,
		Timestamp: t.now(),
		Error:     errMsg,
	}
	if i := findTracked(entries, name, normalized); i >= 0 {
		entries[i] = entry
	} else {
		entries = append(entries, entry)
	}

	if err := t.store.Save(ctx, entries); err != nil {
		zap.L().Error("tracking: save failed", zap.Error(err))
		return
	}
	zap.L().Debug("tracking: contact tracked",
		zap.String("name", name),
		zap.String("phone", normalized),
		zap.String("status", string(status)),
	)
}

// IsProcessed reports whether (name, phone) was recorded before.
func (t *Tracker) IsProcessed(name, p string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	entries, err := t.store.Load(context.Background())
	if err != nil {
		zap.L().Error("tracking: load failed", zap.Error(err))
		return false
	}
	return findTracked(entries, name, phone.Normalize(p)) >= 0
}

// All returns every tracked entry.
func (t *Tracker) All(ctx context.Context) []model.TrackedContact {
	t.mu.Lock()
	defer t.mu.Unlock()

	entries, err := t.store.Load(ctx)
	if err != nil {
		zap.L().Error("tracking: load failed", zap.Error(err))
		return nil
	}
	return entries
}

// Stats counts tracked entries per status.
func (t *Tracker) Stats(ctx context.Context) model.TrackingStats {
	var s model.TrackingStats
	for _, e := range t.All(ctx) {
		s.Total++
		switch e.Status {
		case model.TrackingStatusProcessed:
			s.Processed++
		case model.TrackingStatusNotOnWhatsApp:
			s.NotOnWhatsApp++
		case model.TrackingStatusFailed:
			s.Failed++
		case model.TrackingStatusInvalidPhone:
			s.InvalidPhone++
		}
	}
	return s
}
