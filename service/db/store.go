package db

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"sort"
	"strings"
	"time"

	"github.com/brojonat/solquiz/service/metrics"
	"github.com/brojonat/solquiz/service/tokens"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Store keeps the token metadata cache in Postgres. It implements
// tokens.Store.
type Store struct {
	pool    *pgxpool.Pool
	metrics *metrics.Metrics
}

var _ tokens.Store = (*Store)(nil)

// NewStore creates a new Store with the given database connection pool.
// If metrics is nil, no metrics will be recorded.
func NewStore(pool *pgxpool.Pool, m *metrics.Metrics) *Store {
	return &Store{
		pool:    pool,
		metrics: m,
	}
}

// Connect opens a pool for databaseURL and verifies it with a ping.
func Connect(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return pool, nil
}

// Migrate applies the embedded SQL migrations in lexical order. Migrations
// are idempotent.
func (s *Store) Migrate(ctx context.Context) error {
	entries, err := fs.ReadDir(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("failed to read embedded migrations: %w", err)
	}

	var files []string
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), ".sql") {
			files = append(files, entry.Name())
		}
	}
	sort.Strings(files)

	for _, file := range files {
		data, err := fs.ReadFile(migrationsFS, "migrations/"+file)
		if err != nil {
			return fmt.Errorf("failed to read migration %s: %w", file, err)
		}
		if strings.TrimSpace(string(data)) == "" {
			continue
		}
		if _, err := s.pool.Exec(ctx, string(data)); err != nil {
			return fmt.Errorf("failed to apply migration %s: %w", file, err)
		}
	}
	return nil
}

// Load returns every cached token ordered by address.
func (s *Store) Load(ctx context.Context) (out []tokens.Token, err error) {
	defer s.observe("load", time.Now(), &err)

	rows, err := s.pool.Query(ctx, `
		SELECT address, name, symbol, decimals, logo_uri
		FROM tokens
		ORDER BY address
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query tokens: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		t, err := scanToken(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate tokens: %w", err)
	}
	return out, nil
}

// Save upserts tokens in a single transaction.
func (s *Store) Save(ctx context.Context, toSave []tokens.Token) (err error) {
	defer s.observe("save", time.Now(), &err)

	if len(toSave) == 0 {
		return nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	batch := &pgx.Batch{}
	for _, t := range toSave {
		batch.Queue(`
			INSERT INTO tokens (address, name, symbol, decimals, logo_uri, updated_at)
			VALUES ($1, $2, $3, $4, $5, NOW())
			ON CONFLICT (address) DO UPDATE SET
				name = EXCLUDED.name,
				symbol = EXCLUDED.symbol,
				decimals = EXCLUDED.decimals,
				logo_uri = EXCLUDED.logo_uri,
				updated_at = NOW()
		`, t.Address, t.Name, t.Symbol, int16(t.Decimals), t.LogoURI)
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("failed to upsert tokens: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit tokens: %w", err)
	}
	return nil
}

// GetToken returns one cached token, or tokens.ErrNotFound.
func (s *Store) GetToken(ctx context.Context, address string) (t tokens.Token, err error) {
	defer s.observe("get", time.Now(), &err)

	row := s.pool.QueryRow(ctx, `
		SELECT address, name, symbol, decimals, logo_uri
		FROM tokens
		WHERE address = $1
	`, address)
	t, err = scanToken(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return tokens.Token{}, tokens.ErrNotFound
	}
	return t, err
}

// DeleteToken removes a cached token so the next lookup refetches it.
func (s *Store) DeleteToken(ctx context.Context, address string) (err error) {
	defer s.observe("delete", time.Now(), &err)

	tag, err := s.pool.Exec(ctx, `DELETE FROM tokens WHERE address = $1`, address)
	if err != nil {
		return fmt.Errorf("failed to delete token: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return tokens.ErrNotFound
	}
	return nil
}

func scanToken(row pgx.Row) (tokens.Token, error) {
	var (
		t        tokens.Token
		decimals int16
	)
	if err := row.Scan(&t.Address, &t.Name, &t.Symbol, &decimals, &t.LogoURI); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return tokens.Token{}, err
		}
		return tokens.Token{}, fmt.Errorf("failed to scan token: %w", err)
	}
	t.Decimals = uint8(decimals)
	return t, nil
}

func (s *Store) observe(operation string, start time.Time, err *error) {
	if s.metrics == nil {
		return
	}
	s.metrics.RecordDBQuery(operation, "tokens", time.Since(start).Seconds(), *err)
}
