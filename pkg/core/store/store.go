// Package store implements the C4 component: relational persistence for
// FinancialRecord, Account, and AccountValue over Postgres via pgx, plus
// the read operations the rest of the system depends on.
//
// Unlike the teacher's package-level pool singleton, the Store here is an
// owned value constructed once at startup and threaded through every
// handler and worker — the redesign flag in the design notes calls for
// concentrating lifetime in an injected value rather than module state.
package store

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"finagent/pkg/apperr"
)

// Store owns the connection pool and exposes the operations contract from
// the store design: upsert_record, find_records, aggregate_period,
// find_accounts, account_hierarchy.
type Store struct {
	pool *pgxpool.Pool
}

// New opens a bounded connection pool against dbURL. poolSize is the
// documented db_pool_size option (default 20).
func New(ctx context.Context, dbURL string, poolSize int) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(dbURL)
	if err != nil {
		return nil, apperr.ConfigurationError("invalid db_url: %v", err)
	}
	if poolSize > 0 {
		cfg.MaxConns = int32(poolSize)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, apperr.ConfigurationError("failed to create connection pool: %v", err)
	}

	return &Store{pool: pool}, nil
}

// Close releases the pool. Called once at process shutdown.
func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// Pool exposes the underlying pool for components (e.g. repositories in
// other packages) that need direct query access beyond this contract.
func (s *Store) Pool() *pgxpool.Pool {
	return s.pool
}

// EnsureSchema creates the three tables plus the ingestion_audit table and
// their required indexes, additively (CREATE TABLE/INDEX IF NOT EXISTS) —
// there is no separate migration tool, matching the teacher's lack of one.
func (s *Store) EnsureSchema(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, schemaDDL)
	if err != nil {
		return apperr.ConfigurationError("failed to ensure schema: %v", err)
	}
	return nil
}

const schemaDDL = `
CREATE TABLE IF NOT EXISTS financial_records (
	id TEXT PRIMARY KEY,
	source TEXT NOT NULL,
	period_start DATE NOT NULL,
	period_end DATE NOT NULL,
	currency TEXT NOT NULL,
	revenue NUMERIC(20,2) NOT NULL,
	expenses NUMERIC(20,2) NOT NULL,
	net_profit NUMERIC(20,2) NOT NULL,
	raw_data JSONB NOT NULL DEFAULT '{}',
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL,
	UNIQUE (source, period_start, period_end, currency)
);
CREATE INDEX IF NOT EXISTS idx_financial_records_period ON financial_records (period_start, period_end);
CREATE INDEX IF NOT EXISTS idx_financial_records_source ON financial_records (source);

CREATE TABLE IF NOT EXISTS accounts (
	account_id TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	account_type TEXT NOT NULL,
	parent_account_id TEXT REFERENCES accounts(account_id),
	source TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	is_active BOOLEAN NOT NULL DEFAULT TRUE
);
CREATE INDEX IF NOT EXISTS idx_accounts_type ON accounts (account_type);
CREATE INDEX IF NOT EXISTS idx_accounts_parent ON accounts (parent_account_id);

CREATE TABLE IF NOT EXISTS account_values (
	financial_record_id TEXT NOT NULL REFERENCES financial_records(id),
	account_id TEXT NOT NULL REFERENCES accounts(account_id),
	value NUMERIC(20,2) NOT NULL,
	PRIMARY KEY (financial_record_id, account_id)
);
CREATE INDEX IF NOT EXISTS idx_account_values_record ON account_values (financial_record_id);
CREATE INDEX IF NOT EXISTS idx_account_values_account ON account_values (account_id);

CREATE TABLE IF NOT EXISTS ingestion_audit (
	batch_id TEXT NOT NULL,
	file TEXT NOT NULL,
	phase TEXT NOT NULL,
	started_at TIMESTAMPTZ NOT NULL,
	ended_at TIMESTAMPTZ,
	outcome TEXT NOT NULL,
	issues_json JSONB NOT NULL DEFAULT '[]'
);
CREATE INDEX IF NOT EXISTS idx_ingestion_audit_batch ON ingestion_audit (batch_id);
`

// withTimeout bounds a single DB query at the documented default (5s).
func withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, 5*time.Second)
}

func wrapTransient(err error, format string, args ...interface{}) error {
	return apperr.StoreTransient(err, format, args...)
}
