package store

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/wa-outreach/internal/model"
)

// SQLiteStore implements ContactStore using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS contacts (
	id               TEXT PRIMARY KEY,
	position         INTEGER NOT NULL,
	normalized_phone TEXT NOT NULL UNIQUE,
	lead             TEXT NOT NULL,
	status           TEXT NOT NULL DEFAULT 'pending',
	error            TEXT,
	date_added       DATETIME NOT NULL,
	date_messaged    DATETIME,
	last_updated     DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_contacts_status ON contacts(status);
CREATE INDEX IF NOT EXISTS idx_contacts_position ON contacts(position);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Load returns every contact in insertion order.
func (s *SQLiteStore) Load(ctx context.Context) ([]model.StoredContact, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, normalized_phone, lead, status, error, date_added, date_messaged, last_updated
		 FROM contacts ORDER BY position`,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: load contacts")
	}
	defer rows.Close()

	var contacts []model.StoredContact
	for rows.Next() {
		c, err := scanContact(rows)
		if err != nil {
			return nil, err
		}
		contacts = append(contacts, *c)
	}
	return contacts, eris.Wrap(rows.Err(), "sqlite: load contacts iterate")
}

// Save replaces the table contents with contacts inside one transaction.
func (s *SQLiteStore) Save(ctx context.Context, contacts []model.StoredContact) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin")
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, `DELETE FROM contacts`); err != nil {
		return eris.Wrap(err, "sqlite: clear contacts")
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO contacts (id, position, normalized_phone, lead, status, error, date_added, date_messaged, last_updated)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
	)
	if err != nil {
		return eris.Wrap(err, "sqlite: prepare insert")
	}
	defer stmt.Close()

	for i, c := range contacts {
		leadJSON, err := json.Marshal(c.Lead)
		if err != nil {
			return eris.Wrap(err, "sqlite: marshal lead")
		}

		var errMsg sql.NullString
		if c.Error != "" {
			errMsg = sql.NullString{String: c.Error, Valid: true}
		}
		var messaged sql.NullTime
		if c.DateMessaged != nil {
			messaged = sql.NullTime{Time: c.DateMessaged.UTC(), Valid: true}
		}

		_, err = stmt.ExecContext(ctx,
			c.ID, i, c.NormalizedPhone, string(leadJSON), string(c.Status), errMsg,
			c.DateAdded.UTC(), messaged, c.LastUpdated.UTC(),
		)
		if err != nil {
			return eris.Wrapf(err, "sqlite: insert contact %s", c.NormalizedPhone)
		}
	}
	return eris.Wrap(tx.Commit(), "sqlite: commit")
}

// helpers

type scannable interface {
	Scan(dest ...any) error
}

func scanContact(row scannable) (*model.StoredContact, error) {
	var c model.StoredContact
	var leadJSON string
	var errMsg sql.NullString
	var messaged sql.NullTime

	err := row.Scan(&c.ID, &c.NormalizedPhone, &leadJSON, &c.Status, &errMsg, &c.DateAdded, &messaged, &c.LastUpdated)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: scan contact")
	}
	if err := json.Unmarshal([]byte(leadJSON), &c.Lead); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal lead")
	}
	c.Error = errMsg.String
	if messaged.Valid {
		t := messaged.Time
		c.DateMessaged = &t
	}
	return &c, nil
}
