package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

const defaultPollInterval = 2 * time.Second

// Postgres keeps every collection in a single records table ordered by
// creation time. Subscriptions poll for fresh snapshots; the agents only need
// at-least-once delivery, not low-latency change feeds.
type Postgres struct {
	pool         *pgxpool.Pool
	logger       *zap.Logger
	pollInterval time.Duration
}

// ConnectPostgres establishes a connection pool and verifies it.
func ConnectPostgres(ctx context.Context, databaseURL string, logger *zap.Logger, pollInterval time.Duration) (*Postgres, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if logger == nil {
		logger = zap.NewNop()
	}

	if pollInterval <= 0 {
		pollInterval = defaultPollInterval
	}

	return &Postgres{pool: pool, logger: logger, pollInterval: pollInterval}, nil
}

// Close closes the connection pool.
func (p *Postgres) Close() {
	if p.pool != nil {
		p.pool.Close()
	}
}

// EnsureSchema creates the records table when it does not exist yet.
func (p *Postgres) EnsureSchema(ctx context.Context) error {
	_, err := p.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS records (
			id         uuid PRIMARY KEY DEFAULT gen_random_uuid(),
			collection text NOT NULL,
			created_at timestamptz NOT NULL DEFAULT now(),
			created_by text NOT NULL DEFAULT '',
			fields     jsonb NOT NULL DEFAULT '{}'::jsonb
		)`)
	if err != nil {
		return fmt.Errorf("ensure records table: %w", err)
	}

	_, err = p.pool.Exec(ctx,
		`CREATE INDEX IF NOT EXISTS records_collection_created_at_idx
		 ON records (collection, created_at)`)
	if err != nil {
		return fmt.Errorf("ensure records index: %w", err)
	}

	return nil
}

// Append inserts the record and returns the server-assigned id.
func (p *Postgres) Append(ctx context.Context, collection string, rec Record) (string, error) {
	fields, err := json.Marshal(rec.Fields)
	if err != nil {
		return "", fmt.Errorf("marshal record fields: %w", err)
	}

	var id string
	err = p.pool.QueryRow(ctx,
		`INSERT INTO records (collection, created_by, fields)
		 VALUES ($1, $2, $3)
		 RETURNING id::text`,
		collection, rec.CreatedBy, fields,
	).Scan(&id)
	if err != nil {
		return "", fmt.Errorf("append record: %w", err)
	}

	return id, nil
}

// Subscribe starts a poller that delivers the full ordered collection
// whenever its contents change. Close stops the poller.
func (p *Postgres) Subscribe(ctx context.Context, collection string) (*Subscription, error) {
	pollCtx, cancel := context.WithCancel(ctx)
	sub := newSubscription(cancel)

	go func() {
		defer close(sub.updates)

		ticker := time.NewTicker(p.pollInterval)
		defer ticker.Stop()

		lastLen := -1
		for {
			snapshot, err := p.snapshot(pollCtx, collection)
			if err != nil {
				if pollCtx.Err() != nil {
					return
				}
				p.logger.Warn("collection snapshot failed",
					zap.String("collection", collection),
					zap.Error(err),
				)
			} else if len(snapshot) != lastLen {
				lastLen = len(snapshot)
				sub.push(snapshot)
			}

			select {
			case <-pollCtx.Done():
				return
			case <-ticker.C:
			}
		}
	}()

	return sub, nil
}

func (p *Postgres) snapshot(ctx context.Context, collection string) ([]Record, error) {
	rows, err := p.pool.Query(ctx,
		`SELECT id::text, created_at, created_by, fields
		 FROM records
		 WHERE collection = $1
		 ORDER BY created_at ASC`,
		collection,
	)
	if err != nil {
		return nil, fmt.Errorf("query records: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var rec Record
		var fields []byte
		if err := rows.Scan(&rec.ID, &rec.CreatedAt, &rec.CreatedBy, &fields); err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		if len(fields) > 0 {
			if err := json.Unmarshal(fields, &rec.Fields); err != nil {
				return nil, fmt.Errorf("unmarshal record fields: %w", err)
			}
		}
		records = append(records, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate records: %w", err)
	}

	return records, nil
}
