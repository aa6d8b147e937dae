// Package store persists the contact ledger and the tracking list.
//
// Both collections follow a whole-collection load, mutate, save cycle. The
// storage port is ContactStore; Ledger and Tracker serialize their cycles
// with a mutex so a single process never interleaves writes.
package store

import (
	"context"
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"

	"github.com/sells-group/wa-outreach/internal/model"
)

// Supported ledger backends.
const (
	DriverJSON   = "json"
	DriverSQLite = "sqlite"
)

const (
	contactsFile = "contacts.json"
	trackingFile = "contact-tracking.json"
	sqliteFile   = "contacts.db"
)

// ContactStore is the storage port behind the Ledger.
type ContactStore interface {
	Load(ctx context.Context) ([]model.StoredContact, error)
	Save(ctx context.Context, contacts []model.StoredContact) error
	Close() error
}

// TrackingStore is the storage port behind the Tracker.
type TrackingStore interface {
	Load(ctx context.Context) ([]model.TrackedContact, error)
	Save(ctx context.Context, contacts []model.TrackedContact) error
}

// OpenContacts returns the ledger backend selected by driver. State files
// live under dir. For sqlite an explicit databaseURL wins over dir.
func OpenContacts(ctx context.Context, driver, dir, databaseURL string) (ContactStore, error) {
	switch driver {
	case "", DriverJSON:
		return NewJSONFile[model.StoredContact](filepath.Join(dir, contactsFile)), nil
	case DriverSQLite:
		dsn := databaseURL
		if dsn == "" {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, eris.Wrapf(err, "store: create %s", dir)
			}
			dsn = filepath.Join(dir, sqliteFile)
		}
		st, err := NewSQLite(dsn)
		if err != nil {
			return nil, err
		}
		if err := st.Migrate(ctx); err != nil {
			st.Close() //nolint:errcheck
			return nil, err
		}
		return st, nil
	default:
		return nil, eris.Errorf("store: unknown driver %q", driver)
	}
}

// OpenTracking returns the JSON tracking list under dir.
func OpenTracking(dir string) *JSONFile[model.TrackedContact] {
	return NewJSONFile[model.TrackedContact](filepath.Join(dir, trackingFile))
}
