// Package credentials resolves the Revox API credentials used for a workspace.
package credentials

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"revox-adapter/internal/revox"
)

var ErrNotFound = errors.New("credentials: not found")

// Store looks up Revox credentials for a workspace.
type Store interface {
	Lookup(ctx context.Context, workspaceID string) (revox.Credentials, error)
}

// StaticStore serves one set of credentials to every workspace.
type StaticStore struct {
	Credentials revox.Credentials
}

func (s StaticStore) Lookup(ctx context.Context, workspaceID string) (revox.Credentials, error) {
	if strings.TrimSpace(s.Credentials.APIKey) == "" {
		return revox.Credentials{}, ErrNotFound
	}
	return s.Credentials, nil
}

// PostgresStore reads per-workspace credentials from the revox_credentials table:
//
//	CREATE TABLE revox_credentials (
//	    workspace_id TEXT PRIMARY KEY,
//	    api_key      TEXT NOT NULL,
//	    base_url     TEXT NOT NULL DEFAULT ''
//	);
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore { return &PostgresStore{db: db} }

const lookupQuery = `SELECT api_key, base_url FROM revox_credentials WHERE workspace_id = $1`

func (s *PostgresStore) Lookup(ctx context.Context, workspaceID string) (revox.Credentials, error) {
	if s.db == nil {
		return revox.Credentials{}, errors.New("credentials: database not configured")
	}
	if workspaceID == "" {
		return revox.Credentials{}, errors.New("credentials: workspace_id required")
	}

	var c revox.Credentials
	err := s.db.QueryRowContext(ctx, lookupQuery, workspaceID).Scan(&c.APIKey, &c.BaseURL)
	if errors.Is(err, sql.ErrNoRows) {
		return revox.Credentials{}, ErrNotFound
	}
	if err != nil {
		return revox.Credentials{}, fmt.Errorf("credentials: lookup: %w", err)
	}
	if c.BaseURL == "" {
		c.BaseURL = revox.DefaultBaseURL
	}
	return c, nil
}
