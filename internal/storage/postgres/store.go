package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"deltaLens/internal/model"
	"deltaLens/internal/storage"
)

const schemaSQL = `
CREATE SEQUENCE IF NOT EXISTS pool_snapshot_seq;

CREATE TABLE IF NOT EXISTS session_state (
	key        TEXT PRIMARY KEY,
	value      TEXT NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS pool_snapshots (
	slot           TEXT PRIMARY KEY,
	seq            BIGINT NOT NULL,
	account        TEXT NOT NULL,
	chain_id       BIGINT NOT NULL,
	schema_version INT NOT NULL,
	payload        JSONB NOT NULL,
	updated_at     TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS pool_snapshot_history (
	seq        BIGINT NOT NULL,
	account    TEXT NOT NULL,
	chain_id   BIGINT NOT NULL,
	payload    JSONB NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
`

// currentSlot is the single row holding the latest snapshot.
const currentSlot = "pools"

// Store provides Postgres persistence for session and pool snapshots.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(ctx context.Context, dsn string) (*Store, error) {
	if dsn == "" {
		return nil, fmt.Errorf("pg dsn is required")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}
	return &Store{pool: pool}, nil
}

// EnsureSchema creates the tables and sequence if they are missing.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

func (s *Store) Close() error {
	if s.pool != nil {
		s.pool.Close()
	}
	return nil
}

func (s *Store) NextSequence(ctx context.Context) (uint64, error) {
	var seq int64
	if err := s.pool.QueryRow(ctx, `SELECT nextval('pool_snapshot_seq')`).Scan(&seq); err != nil {
		return 0, fmt.Errorf("next sequence: %w", err)
	}
	return uint64(seq), nil
}

// SavePools upserts the current snapshot only when its seq is not older
// than the stored one, and records it in the history table.
func (s *Store) SavePools(ctx context.Context, snapshot model.PoolSnapshot) error {
	if snapshot.Pools == nil {
		snapshot.Pools = []model.Pool{}
	}
	payload, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("marshal pools: %w", err)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, `
		INSERT INTO pool_snapshots (slot, seq, account, chain_id, schema_version, payload, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (slot) DO UPDATE SET
			seq = EXCLUDED.seq,
			account = EXCLUDED.account,
			chain_id = EXCLUDED.chain_id,
			schema_version = EXCLUDED.schema_version,
			payload = EXCLUDED.payload,
			updated_at = EXCLUDED.updated_at
		WHERE pool_snapshots.seq <= EXCLUDED.seq
	`,
		currentSlot,
		int64(snapshot.Seq),
		snapshot.Account,
		int64(snapshot.ChainID),
		snapshot.SchemaVersion,
		payload,
		snapshot.UpdatedAt,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: seq %d", storage.ErrStaleSnapshot, snapshot.Seq)
	}

	if _, err := tx.Exec(ctx, `
		INSERT INTO pool_snapshot_history (seq, account, chain_id, payload)
		VALUES ($1, $2, $3, $4)
	`, int64(snapshot.Seq), snapshot.Account, int64(snapshot.ChainID), payload); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

func (s *Store) LoadPools(ctx context.Context) (model.PoolSnapshot, error) {
	var payload []byte
	row := s.pool.QueryRow(ctx, `SELECT payload FROM pool_snapshots WHERE slot=$1`, currentSlot)
	if err := row.Scan(&payload); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.PoolSnapshot{}, storage.ErrNotFound
		}
		return model.PoolSnapshot{}, err
	}

	var snapshot model.PoolSnapshot
	if err := json.Unmarshal(payload, &snapshot); err != nil {
		return model.PoolSnapshot{}, fmt.Errorf("%w: %v", storage.ErrSchemaMismatch, err)
	}
	if err := storage.CheckSchema(snapshot); err != nil {
		return model.PoolSnapshot{}, err
	}
	return snapshot, nil
}

func (s *Store) LoadSession(ctx context.Context) (model.Session, error) {
	rows, err := s.pool.Query(ctx, `SELECT key, value FROM session_state WHERE key = ANY($1)`,
		[]string{model.KeyWalletAddress, model.KeySelectedPool, model.KeySelectedToken})
	if err != nil {
		return model.Session{}, err
	}
	defer rows.Close()

	var session model.Session
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return model.Session{}, err
		}
		switch key {
		case model.KeyWalletAddress:
			session.WalletAddress = value
		case model.KeySelectedPool:
			session.SelectedPool = value
		case model.KeySelectedToken:
			session.SelectedToken = value
		}
	}
	return session, rows.Err()
}

func (s *Store) SaveSession(ctx context.Context, session model.Session) error {
	values := [][2]string{
		{model.KeyWalletAddress, session.WalletAddress},
		{model.KeySelectedPool, session.SelectedPool},
		{model.KeySelectedToken, session.SelectedToken},
	}

	batch := &pgx.Batch{}
	for _, kv := range values {
		batch.Queue(`
			INSERT INTO session_state (key, value, updated_at)
			VALUES ($1, $2, now())
			ON CONFLICT (key) DO UPDATE
			SET value = EXCLUDED.value, updated_at = now()
		`, kv[0], kv[1])
	}

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()

	for range values {
		if _, err := br.Exec(); err != nil {
			return err
		}
	}
	return nil
}
