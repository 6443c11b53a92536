package directory

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// SQLite serves both directory capabilities from a local SQLite file kept in
// sync by the provisioning side of the platform. It is the shipped default;
// tests and embedders may substitute any Resolver/ItemLister pair.
type SQLite struct {
	db *sql.DB
}

// OpenSQLite creates or opens the directory database at path and ensures the
// schema exists.
func OpenSQLite(path string) (*SQLite, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating directory database dir: %w", err)
	}

	db, err := sql.Open("sqlite", path+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("opening directory database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging directory database: %w", err)
	}

	d := &SQLite{db: db}
	if err := d.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("running directory migrations: %w", err)
	}
	return d, nil
}

// OpenSQLiteMemory opens an in-memory directory database (useful for tests).
func OpenSQLiteMemory() (*SQLite, error) {
	db, err := sql.Open("sqlite", ":memory:?_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("opening in-memory directory database: %w", err)
	}
	// Every pooled connection would otherwise see its own empty database.
	db.SetMaxOpenConns(1)
	d := &SQLite{db: db}
	if err := d.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("running directory migrations: %w", err)
	}
	return d, nil
}

func (d *SQLite) migrate() error {
	_, err := d.db.Exec(schema)
	return err
}

const schema = `
CREATE TABLE IF NOT EXISTS identities (
    id TEXT PRIMARY KEY,
    contact_handle TEXT NOT NULL UNIQUE,
    display_name TEXT NOT NULL,
    role TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS sheets (
    identity_id TEXT NOT NULL REFERENCES identities(id) ON DELETE CASCADE,
    position INTEGER NOT NULL,
    label TEXT NOT NULL,
    record_count INTEGER NOT NULL DEFAULT 0,
    updated_at DATETIME NOT NULL DEFAULT (datetime('now')),
    access_url TEXT NOT NULL,
    PRIMARY KEY (identity_id, position)
);
`

// Close releases the underlying database handle.
func (d *SQLite) Close() error {
	return d.db.Close()
}

// Ping reports whether the database is reachable. The gateway's readiness
// endpoint consults it.
func (d *SQLite) Ping(ctx context.Context) error {
	return d.db.PingContext(ctx)
}

// ResolveIdentity implements Resolver.
func (d *SQLite) ResolveIdentity(ctx context.Context, senderID string) (Identity, error) {
	row := d.db.QueryRowContext(ctx,
		`SELECT id, contact_handle, display_name, role FROM identities WHERE contact_handle = ?`,
		senderID,
	)

	var identity Identity
	err := row.Scan(&identity.ID, &identity.ContactHandle, &identity.DisplayName, &identity.Role)
	if errors.Is(err, sql.ErrNoRows) {
		return Identity{}, fmt.Errorf("%w: %s", ErrNotFound, senderID)
	}
	if err != nil {
		return Identity{}, fmt.Errorf("resolving identity: %w", err)
	}
	return identity, nil
}

// ListItemsFor implements ItemLister, returning sheets in list order.
func (d *SQLite) ListItemsFor(ctx context.Context, identity Identity) ([]Option, error) {
	rows, err := d.db.QueryContext(ctx,
		`SELECT position, label, record_count, updated_at, access_url
		 FROM sheets WHERE identity_id = ? ORDER BY position`,
		identity.ID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing sheets: %w", err)
	}
	defer rows.Close()

	var options []Option
	for rows.Next() {
		var opt Option
		var updatedAt string
		if err := rows.Scan(&opt.Position, &opt.Label, &opt.RecordCount, &updatedAt, &opt.AccessURL); err != nil {
			return nil, fmt.Errorf("scanning sheet row: %w", err)
		}
		if parsed, err := time.Parse("2006-01-02 15:04:05", updatedAt); err == nil {
			opt.UpdatedAt = parsed
		}
		options = append(options, opt)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating sheet rows: %w", err)
	}
	return options, nil
}

// UpsertIdentity inserts or replaces one identity row. The provisioning jobs
// use it; the gateway itself only reads.
func (d *SQLite) UpsertIdentity(ctx context.Context, identity Identity) error {
	_, err := d.db.ExecContext(ctx,
		`INSERT INTO identities (id, contact_handle, display_name, role)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
		   contact_handle = excluded.contact_handle,
		   display_name = excluded.display_name,
		   role = excluded.role`,
		identity.ID, identity.ContactHandle, identity.DisplayName, identity.Role,
	)
	if err != nil {
		return fmt.Errorf("upserting identity: %w", err)
	}
	return nil
}

// ReplaceSheets atomically replaces the sheet list for one identity.
func (d *SQLite) ReplaceSheets(ctx context.Context, identityID string, options []Option) error {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning sheet replace: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM sheets WHERE identity_id = ?`, identityID); err != nil {
		return fmt.Errorf("clearing sheets: %w", err)
	}
	for _, opt := range options {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO sheets (identity_id, position, label, record_count, updated_at, access_url)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			identityID, opt.Position, opt.Label, opt.RecordCount,
			opt.UpdatedAt.UTC().Format("2006-01-02 15:04:05"), opt.AccessURL,
		)
		if err != nil {
			return fmt.Errorf("inserting sheet %q: %w", opt.Label, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing sheet replace: %w", err)
	}
	return nil
}
