// internal/storage/postgres.go
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/lib/pq"
)

// Postgres stores each collection in its own table (id, seq, body jsonb).
type Postgres struct {
	pool *pgxpool.Pool
	db   *sql.DB // For migrations
}

func NewPostgres(ctx context.Context, dsn string) (*Postgres, error) {
	const op = "storage.NewPostgres"

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	db := stdlib.OpenDBFromPool(pool)
	if err := runMigrations(ctx, db); err != nil {
		db.Close()
		pool.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &Postgres{pool: pool, db: db}, nil
}

func (p *Postgres) Close() error {
	err := p.db.Close()
	p.pool.Close()
	return err
}

func tableName(c Collection) string {
	return pq.QuoteIdentifier(string(c))
}

func (p *Postgres) Get(ctx context.Context, c Collection, id string) ([]byte, error) {
	const op = "storage.Postgres.Get"

	var body []byte
	err := p.pool.QueryRow(ctx,
		fmt.Sprintf(`SELECT body FROM %s WHERE id = $1`, tableName(c)), id).Scan(&body)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return body, nil
}

func (p *Postgres) List(ctx context.Context, c Collection) ([][]byte, error) {
	const op = "storage.Postgres.List"

	rows, err := p.pool.Query(ctx, fmt.Sprintf(`SELECT body FROM %s ORDER BY seq`, tableName(c)))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	var out [][]byte
	for rows.Next() {
		var body []byte
		if err := rows.Scan(&body); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		out = append(out, body)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return out, nil
}

// Put upserts by id. The seq column is only assigned on insert, so an
// update keeps the record's original position in List.
func (p *Postgres) Put(ctx context.Context, c Collection, id string, body []byte) error {
	const op = "storage.Postgres.Put"

	_, err := p.pool.Exec(ctx,
		fmt.Sprintf(`INSERT INTO %s (id, body) VALUES ($1, $2::jsonb)
		 ON CONFLICT (id) DO UPDATE SET body = EXCLUDED.body`, tableName(c)),
		id, string(body))
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func (p *Postgres) Delete(ctx context.Context, c Collection, id string) error {
	const op = "storage.Postgres.Delete"

	_, err := p.pool.Exec(ctx, fmt.Sprintf(`DELETE FROM %s WHERE id = $1`, tableName(c)), id)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}
