package storage

import (
	"context"
	"fmt"

	"github.com/diwise/county-lookup/pkg/counties"
	"github.com/diwise/service-chassis/pkg/infrastructure/env"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Config struct {
	host     string
	user     string
	password string
	port     string
	dbname   string
	sslmode  string
}

func LoadConfiguration(ctx context.Context) Config {
	return Config{
		host:     env.GetVariableOrDefault(ctx, "POSTGRES_HOST", ""),
		user:     env.GetVariableOrDefault(ctx, "POSTGRES_USER", ""),
		password: env.GetVariableOrDefault(ctx, "POSTGRES_PASSWORD", ""),
		port:     env.GetVariableOrDefault(ctx, "POSTGRES_PORT", "5432"),
		dbname:   env.GetVariableOrDefault(ctx, "POSTGRES_DBNAME", "diwise"),
		sslmode:  env.GetVariableOrDefault(ctx, "POSTGRES_SSLMODE", "disable"),
	}
}

func (c Config) ConnStr() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s", c.user, c.password, c.host, c.port, c.dbname, c.sslmode)
}

func (c Config) Enabled() bool {
	return c.host != ""
}

// Storage keeps an audit trail of resolved batches in postgres. It
// implements the lookup.ResultSink interface.
type Storage struct {
	pool *pgxpool.Pool
}

func Connect(ctx context.Context, cfg Config) (*Storage, error) {
	pool, err := pgxpool.New(ctx, cfg.ConnStr())
	if err != nil {
		return nil, err
	}

	err = pool.Ping(ctx)
	if err != nil {
		return nil, err
	}

	s := &Storage{pool: pool}

	err = s.createTables(ctx)
	if err != nil {
		return nil, err
	}

	return s, nil
}

func (s *Storage) createTables(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS county_lookups (
			batch_id	TEXT NOT NULL,
			seq			INTEGER NOT NULL,
			testid		BIGINT NULL,
			county		TEXT NULL,
			found		BOOLEAN NOT NULL,
			created_at	TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			PRIMARY KEY (batch_id, seq)
		);`)

	return err
}

func (s *Storage) StoreBatch(ctx context.Context, batchID string, results []counties.Result) error {
	batch := &pgx.Batch{}

	for seq, r := range results {
		batch.Queue(
			`INSERT INTO county_lookups (batch_id, seq, county, found) VALUES ($1, $2, NULLIF($3, ''), $4)`,
			batchID, seq, r.Name, r.Found,
		)
	}

	return s.pool.SendBatch(ctx, batch).Close()
}

func (s *Storage) StoreRecordBatch(ctx context.Context, batchID string, results []counties.RecordResult) error {
	batch := &pgx.Batch{}

	for seq, r := range results {
		batch.Queue(
			`INSERT INTO county_lookups (batch_id, seq, testid, county, found) VALUES ($1, $2, $3, NULLIF($4, ''), $5)`,
			batchID, seq, r.TestID, r.Name, r.Found,
		)
	}

	return s.pool.SendBatch(ctx, batch).Close()
}

func (s *Storage) Close() {
	s.pool.Close()
}
