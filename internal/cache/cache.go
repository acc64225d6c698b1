// Package cache persists resolved names and search answers in a local
// SQLite file so repeat mentions skip the network entirely.
package cache

import (
	"context"
	"database/sql"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/xl-idp/reference-inn/internal/ident"
)

// Store wraps the cache database. Writes always replace: the freshest
// registry answer wins.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the cache database at dsn and configures WAL mode.
func Open(dsn string) (*Store, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "cache: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "cache: exec %s", pragma)
		}
	}
	return &Store{db: db}, nil
}

const migration = `
CREATE TABLE IF NOT EXISTS cache_taxpayer_id (
	taxpayer_id  TEXT NOT NULL,
	country      TEXT NOT NULL,
	company_name TEXT NOT NULL,
	PRIMARY KEY (taxpayer_id, country)
);

CREATE TABLE IF NOT EXISTS search_engine (
	sentence     TEXT PRIMARY KEY,
	taxpayer_id  TEXT NOT NULL,
	country      TEXT NOT NULL
);
`

// Migrate creates the cache tables if they do not exist yet.
func (s *Store) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, migration)
	return eris.Wrap(err, "cache: migrate")
}

func (s *Store) Close() error {
	return s.db.Close()
}

// PutName records the canonical name the registry returned for an
// identifier. A later write for the same (id, country) overwrites.
func (s *Store) PutName(ctx context.Context, id string, country ident.Jurisdiction, name string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO cache_taxpayer_id (taxpayer_id, country, company_name) VALUES (?, ?, ?)`,
		id, string(country), name,
	)
	return eris.Wrapf(err, "cache: put name %s", id)
}

// GetName returns the cached canonical name for (id, country). A miss is
// (found=false, nil error), never an error.
func (s *Store) GetName(ctx context.Context, id string, country ident.Jurisdiction) (string, bool, error) {
	var name string
	err := s.db.QueryRowContext(ctx,
		`SELECT company_name FROM cache_taxpayer_id WHERE taxpayer_id = ? AND country = ?`,
		id, string(country),
	).Scan(&name)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, eris.Wrapf(err, "cache: get name %s", id)
	}
	return name, true, nil
}

// PutSearch records the identifier the search fallback settled on for a
// normalized sentence.
func (s *Store) PutSearch(ctx context.Context, sentence, id string, country ident.Jurisdiction) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO search_engine (sentence, taxpayer_id, country) VALUES (?, ?, ?)`,
		sentence, id, string(country),
	)
	return eris.Wrap(err, "cache: put search")
}

// GetSearch returns the cached search answer for a normalized sentence.
func (s *Store) GetSearch(ctx context.Context, sentence string) (string, ident.Jurisdiction, bool, error) {
	var (
		id      string
		country string
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT taxpayer_id, country FROM search_engine WHERE sentence = ?`,
		sentence,
	).Scan(&id, &country)
	if err == sql.ErrNoRows {
		return "", "", false, nil
	}
	if err != nil {
		return "", "", false, eris.Wrap(err, "cache: get search")
	}
	return id, ident.Jurisdiction(country), true, nil
}
