package durable

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"github.com/dmitrymomot/larder"
)

// OpenPostgres opens a connection pool for a postgres:// URL, verifies
// it with a ping, and retries with growing backoff while the context
// allows. It is a convenience for wiring NewPostgres; injecting an
// existing pool works just as well.
func OpenPostgres(ctx context.Context, connString string) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("durable: parse postgres url: %w", err)
	}

	const attempts = 3
	var lastErr error
	for i := range attempts {
		pool, err := pgxpool.NewWithConfig(ctx, cfg)
		if err == nil {
			if err = pool.Ping(ctx); err == nil {
				return pool, nil
			}
			pool.Close()
		}
		lastErr = err

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(time.Duration(i+1) * time.Second):
		}
	}
	return nil, fmt.Errorf("durable: connect to postgres: %w", lastErr)
}

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Postgres is a Durable implementation backed by a Postgres table. The
// pool is injected and its lifecycle stays with the caller. Run
// [Migrate] once at startup to create the table.
type Postgres struct {
	pool *pgxpool.Pool
}

var _ larder.Durable = (*Postgres)(nil)

// NewPostgres creates a Postgres-backed durable tier over the given pool.
func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

// goose configuration is package-global.
var migrateMu sync.Mutex

// Migrate applies the embedded schema migrations for the records table.
// Versions are tracked in larder_goose_version, separate from any goose
// table the host application uses. A nil log discards migration output.
// Safe to call concurrently.
func Migrate(ctx context.Context, pool *pgxpool.Pool, log *slog.Logger) error {
	migrateMu.Lock()
	defer migrateMu.Unlock()

	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	db := stdlib.OpenDBFromPool(pool)

	goose.SetBaseFS(migrationsFS)
	goose.SetLogger(&gooseLoggerAdapter{log: log})
	goose.SetTableName("larder_goose_version")
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("durable: set goose dialect: %w", err)
	}
	if err := goose.UpContext(ctx, db, "migrations"); err != nil {
		return fmt.Errorf("durable: apply migrations: %w", err)
	}
	return nil
}

// Get returns the record stored under key, or larder.ErrNotFound.
func (p *Postgres) Get(ctx context.Context, key string) ([]byte, error) {
	var data []byte
	err := p.pool.QueryRow(ctx, `SELECT data FROM larder_records WHERE key = $1`, key).Scan(&data)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, larder.ErrNotFound
		}
		return nil, err
	}
	return data, nil
}

// Set stores data under key, replacing any previous record.
func (p *Postgres) Set(ctx context.Context, key string, data []byte) error {
	_, err := p.pool.Exec(ctx, `
		INSERT INTO larder_records (key, data, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (key) DO UPDATE SET data = EXCLUDED.data, updated_at = now()`,
		key, data)
	return err
}

// Delete removes the record under key. Deleting a missing key is not an
// error.
func (p *Postgres) Delete(ctx context.Context, key string) error {
	_, err := p.pool.Exec(ctx, `DELETE FROM larder_records WHERE key = $1`, key)
	return err
}

// Keys returns all stored keys that start with prefix, sorted.
// starts_with avoids LIKE escaping, since the default cache prefix
// contains an underscore.
func (p *Postgres) Keys(ctx context.Context, prefix string) ([]string, error) {
	rows, err := p.pool.Query(ctx,
		`SELECT key FROM larder_records WHERE starts_with(key, $1) ORDER BY key`, prefix)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, err
		}
		keys = append(keys, key)
	}
	return keys, rows.Err()
}

// gooseLoggerAdapter routes goose output to slog. Goose calls Fatalf
// only on programmer error; mapping it to Error keeps migrations from
// killing the process.
type gooseLoggerAdapter struct {
	log *slog.Logger
}

func (a *gooseLoggerAdapter) Printf(format string, v ...any) {
	a.log.Info(fmt.Sprintf(format, v...))
}

func (a *gooseLoggerAdapter) Fatalf(format string, v ...any) {
	a.log.Error(fmt.Sprintf(format, v...))
}
