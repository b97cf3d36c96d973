package cache

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/mdeval/mdeval/internal/checksum"
)

//go:embed schema.sql
var schemaSQL string

// Schema version tracking:
// 0 - Initial schema (pre-migration)
// 1 - Added index on entries.label for listings
const currentSchemaVersion = 1

// Store is a Backend on a local SQLite file.
// Uses WAL mode so listings can run while a writer stores results.
type Store struct {
	db *sql.DB
}

// Open creates or opens a SQLite database at the given path.
// Applies required pragmas and migrations automatically.
//
// This function is idempotent - safe to call multiple times.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// SQLite only supports one writer at a time, so limit connections
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply pragmas: %w", err)
	}

	if err := applySchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
	}

	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}

	return nil
}

// applySchema creates tables if they don't exist and runs migrations.
func applySchema(db *sql.DB) error {
	if _, err := db.Exec(schemaSQL); err != nil {
		return fmt.Errorf("failed to execute schema: %w", err)
	}

	if err := runMigrations(db); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}

// runMigrations applies incremental schema migrations based on user_version.
func runMigrations(db *sql.DB) error {
	var version int
	if err := db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("get user_version: %w", err)
	}

	if version < 1 {
		if err := migrateToV1(db); err != nil {
			return err
		}
	}

	if _, err := db.Exec(fmt.Sprintf("PRAGMA user_version = %d", currentSchemaVersion)); err != nil {
		return fmt.Errorf("set user_version: %w", err)
	}

	return nil
}

func migrateToV1(db *sql.DB) error {
	_, err := db.Exec(`CREATE INDEX IF NOT EXISTS idx_entries_label ON entries(label)`)
	if err != nil {
		return fmt.Errorf("migrate to v1: %w", err)
	}
	return nil
}

// Load implements Backend.
func (s *Store) Load(ctx context.Context, key checksum.Fingerprint) (Record, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT label, writer, meta, payload, created_at
		FROM entries
		WHERE key = ?
	`, key.Hex())

	rec := Record{Key: key}
	var metaText string
	var created int64
	err := row.Scan(&rec.Label, &rec.Writer, &metaText, &rec.Payload, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, ErrNotFound
	}
	if err != nil {
		return Record{}, fmt.Errorf("load %s: %w", key.Hex(), err)
	}
	rec.Meta = []byte(metaText)
	rec.Created = time.UnixMilli(created).UTC()
	return rec, nil
}

// Save implements Backend. An existing entry for the key is replaced in the
// same statement, so concurrent writers never leave a partial row.
func (s *Store) Save(ctx context.Context, rec Record) error {
	created := rec.Created
	if created.IsZero() {
		created = time.Now()
	}
	payload := rec.Payload
	if payload == nil {
		payload = []byte{}
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO entries (key, label, writer, meta, payload, size, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			label = excluded.label,
			writer = excluded.writer,
			meta = excluded.meta,
			payload = excluded.payload,
			size = excluded.size,
			created_at = excluded.created_at
	`,
		rec.Key.Hex(),
		rec.Label,
		rec.Writer,
		string(rec.Meta),
		payload,
		len(payload),
		created.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("save %s: %w", rec.Key.Hex(), err)
	}
	return nil
}

// Delete implements Backend.
func (s *Store) Delete(ctx context.Context, key checksum.Fingerprint) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM entries WHERE key = ?`, key.Hex())
	if err != nil {
		return fmt.Errorf("delete %s: %w", key.Hex(), err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete %s: %w", key.Hex(), err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// List implements Backend. Entries are ordered by key.
func (s *Store) List(ctx context.Context) ([]Info, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT key, label, writer, size, created_at
		FROM entries
		ORDER BY key COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query entries: %w", err)
	}
	defer rows.Close()

	infos := []Info{}
	for rows.Next() {
		var in Info
		var hex string
		var created int64
		if err := rows.Scan(&hex, &in.Label, &in.Writer, &in.Size, &created); err != nil {
			return nil, fmt.Errorf("scan entry: %w", err)
		}
		in.Key, err = checksum.ParseHex(hex)
		if err != nil {
			return nil, fmt.Errorf("scan entry: %w", err)
		}
		in.Created = time.UnixMilli(created).UTC()
		infos = append(infos, in)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate entries: %w", err)
	}
	return infos, nil
}

// Purge implements Backend.
func (s *Store) Purge(ctx context.Context) (int, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM entries`)
	if err != nil {
		return 0, fmt.Errorf("purge: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("purge: %w", err)
	}
	return int(n), nil
}

// verifyPragma checks that a pragma is set to the expected value.
// Used for testing.
func (s *Store) verifyPragma(name, expected string) error {
	var value string
	query := fmt.Sprintf("PRAGMA %s", name)
	if err := s.db.QueryRow(query).Scan(&value); err != nil {
		return fmt.Errorf("failed to query %s: %w", name, err)
	}
	if value != expected {
		return fmt.Errorf("%s = %q, expected %q", name, value, expected)
	}
	return nil
}
