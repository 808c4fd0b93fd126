package statestore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	_ "github.com/lib/pq"
)

// lockKey is a fixed pg_advisory_lock key: one state table per control
// plane target, one lock key is all this backend needs (no per-row
// locking — the whole document is locked as a unit, matching the
// local/blob backends' single-document-lock semantics).
const lockKey = 851017320

const postgresSchema = `
CREATE TABLE IF NOT EXISTS apimctl_state (
	id INTEGER PRIMARY KEY DEFAULT 1,
	document TEXT NOT NULL,
	CONSTRAINT single_row CHECK (id = 1)
);
`

// PostgresBackend stores the state document as a single row, locked via
// session-level advisory locks. Grounded on
// pkg/store/ledger/postgres_ledger.go's sql.DB usage and
// pkg/registry/postgres_registry.go; force-unlock runs
// pg_advisory_unlock_all on a dedicated connection. Advisory locks are held
// per session, so that call releases only locks held by the new
// connection's own session, not a lock held by another live session.
type PostgresBackend struct {
	db       *sql.DB
	lockConn *sql.Conn
}

// NewPostgresBackend wraps an already-opened *sql.DB (lib/pq driver).
func NewPostgresBackend(db *sql.DB) *PostgresBackend {
	return &PostgresBackend{db: db}
}

func (b *PostgresBackend) ensureSchema(ctx context.Context) error {
	_, err := b.db.ExecContext(ctx, postgresSchema)
	return err
}

func (b *PostgresBackend) Init(ctx context.Context, subscriptionID, resourceGroup, serviceName string) (*State, error) {
	if err := b.ensureSchema(ctx); err != nil {
		return nil, fmt.Errorf("statestore: ensure schema: %w", err)
	}
	state := Empty(subscriptionID, resourceGroup, serviceName)
	if err := b.Write(ctx, state); err != nil {
		return nil, err
	}
	return state, nil
}

func (b *PostgresBackend) Read(ctx context.Context) (*State, error) {
	if err := b.ensureSchema(ctx); err != nil {
		return nil, fmt.Errorf("statestore: ensure schema: %w", err)
	}
	var document string
	err := b.db.QueryRowContext(ctx, `SELECT document FROM apimctl_state WHERE id = 1`).Scan(&document)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("statestore: read state row: %w", err)
	}
	var state State
	if err := json.Unmarshal([]byte(document), &state); err != nil {
		return nil, fmt.Errorf("statestore: decode state document: %w", err)
	}
	if err := CheckVersion(state.Version); err != nil {
		return nil, err
	}
	return &state, nil
}

func (b *PostgresBackend) Write(ctx context.Context, state *State) error {
	if err := b.ensureSchema(ctx); err != nil {
		return fmt.Errorf("statestore: ensure schema: %w", err)
	}
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("statestore: encode state: %w", err)
	}
	_, err = b.db.ExecContext(ctx, `
		INSERT INTO apimctl_state (id, document) VALUES (1, $1)
		ON CONFLICT (id) DO UPDATE SET document = EXCLUDED.document
	`, string(data))
	if err != nil {
		return fmt.Errorf("statestore: write state row: %w", err)
	}
	return nil
}

// Lock takes a session-level pg_advisory_lock on a dedicated connection —
// the lock must outlive individual queries, so it is pinned to one
// *sql.Conn for the duration of the plan/apply cycle rather than let the
// pool hand the session back.
func (b *PostgresBackend) Lock(ctx context.Context) error {
	conn, err := b.db.Conn(ctx)
	if err != nil {
		return fmt.Errorf("statestore: acquire connection: %w", err)
	}
	var acquired bool
	if err := conn.QueryRowContext(ctx, `SELECT pg_try_advisory_lock($1)`, lockKey).Scan(&acquired); err != nil {
		conn.Close()
		return fmt.Errorf("statestore: pg_try_advisory_lock: %w", err)
	}
	if !acquired {
		conn.Close()
		return ErrLocked
	}
	b.lockConn = conn
	return nil
}

func (b *PostgresBackend) Unlock(ctx context.Context) error {
	if b.lockConn == nil {
		return nil
	}
	_, err := b.lockConn.ExecContext(ctx, `SELECT pg_advisory_unlock($1)`, lockKey)
	closeErr := b.lockConn.Close()
	b.lockConn = nil
	if err != nil {
		return fmt.Errorf("statestore: pg_advisory_unlock: %w", err)
	}
	return closeErr
}

// ForceUnlock opens a fresh connection and runs pg_advisory_unlock_all on
// it, which releases every advisory lock held by *that* session. It does
// not release a lock held by another session.
func (b *PostgresBackend) ForceUnlock(ctx context.Context) error {
	conn, err := b.db.Conn(ctx)
	if err != nil {
		return fmt.Errorf("statestore: acquire connection: %w", err)
	}
	defer conn.Close()
	if _, err := conn.ExecContext(ctx, `SELECT pg_advisory_unlock_all()`); err != nil {
		return fmt.Errorf("statestore: pg_advisory_unlock_all: %w", err)
	}
	b.lockConn = nil
	return nil
}

var _ Backend = (*PostgresBackend)(nil)
