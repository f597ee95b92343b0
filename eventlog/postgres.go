package eventlog

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"

	"github.com/rony4d/go-relay-accord/inter"
)

const (
	// DefaultWriteTimeout bounds a single indexer insert.
	DefaultWriteTimeout = 2 * time.Second
	// DefaultQueueSize is the number of notifications buffered ahead of the
	// indexer. Publishing into a full queue drops the notification.
	DefaultQueueSize = 4096
)

// ErrIndexerClosed is returned by Flush after Close.
var ErrIndexerClosed = errors.New("event indexer closed")

const schema = `
CREATE TABLE IF NOT EXISTS ledger_events (
	id         BIGSERIAL PRIMARY KEY,
	name       TEXT        NOT NULL,
	payload    JSONB       NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS ledger_events_name_idx ON ledger_events (name, id);
`

// Postgres indexes notifications into the ledger_events table so dashboards
// and off-chain tooling can query them. Publish only enqueues; inserts run
// on a background goroutine so a slow database never blocks a ledger call.
type Postgres struct {
	Db      *pgxpool.Pool
	timeout time.Duration
	log     logrus.FieldLogger

	insert func(context.Context, inter.Event) error
	queue  chan queued
	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

// queued is a notification, or a flush barrier when done is set.
type queued struct {
	ev   inter.Event
	done chan struct{}
}

// NewPostgres connects to the database at connString and verifies it is
// reachable.
func NewPostgres(ctx context.Context, connString string, log logrus.FieldLogger) (*Postgres, error) {
	config, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("unable to parse database config: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("unable to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("unable to ping database: %w", err)
	}

	return newPostgres(pool, DefaultQueueSize, log), nil
}

func newPostgres(pool *pgxpool.Pool, queueSize int, log logrus.FieldLogger) *Postgres {
	p := &Postgres{
		Db:      pool,
		timeout: DefaultWriteTimeout,
		log:     log.WithField("module", "indexer"),
		queue:   make(chan queued, queueSize),
	}
	p.insert = p.Insert
	p.wg.Add(1)
	go p.drain()
	return p
}

func (p *Postgres) drain() {
	defer p.wg.Done()
	for item := range p.queue {
		if item.done != nil {
			close(item.done)
			continue
		}
		if err := p.insert(context.Background(), item.ev); err != nil {
			p.log.WithError(err).WithField("event", item.ev.EventName()).Warn("Failed to index ledger event")
		}
	}
}

// EnsureSchema creates the events table when it does not exist.
func (p *Postgres) EnsureSchema(ctx context.Context) error {
	if _, err := p.Db.Exec(ctx, schema); err != nil {
		return fmt.Errorf("create ledger_events: %w", err)
	}
	return nil
}

// Publish implements ledger.Sink. It never blocks: when the queue is full
// or the indexer is closed the notification is logged and dropped.
func (p *Postgres) Publish(ev inter.Event) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		return
	}
	select {
	case p.queue <- queued{ev: ev}:
	default:
		p.log.WithField("event", ev.EventName()).Warn("Indexer queue full, dropping ledger event")
	}
}

// Flush waits until every notification published before it was inserted
// or dropped.
func (p *Postgres) Flush(ctx context.Context) error {
	done := make(chan struct{})

	p.mu.RLock()
	if p.closed {
		p.mu.RUnlock()
		return ErrIndexerClosed
	}
	select {
	case p.queue <- queued{done: done}:
		p.mu.RUnlock()
	case <-ctx.Done():
		p.mu.RUnlock()
		return ctx.Err()
	}

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Insert stores one notification.
func (p *Postgres) Insert(ctx context.Context, ev inter.Event) error {
	payload, err := encode(ev)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	_, err = p.Db.Exec(ctx,
		"INSERT INTO ledger_events (name, payload) VALUES ($1, $2)",
		ev.EventName(), string(payload))
	return err
}

// Recent implements History.
func (p *Postgres) Recent(ctx context.Context, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := p.Db.Query(ctx,
		"SELECT id, name, payload, created_at FROM ledger_events ORDER BY id DESC LIMIT $1", limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var (
			r       Record
			payload []byte
		)
		if err := rows.Scan(&r.ID, &r.Name, &payload, &r.CreatedAt); err != nil {
			return nil, err
		}
		r.Payload = payload
		out = append(out, r)
	}
	return out, rows.Err()
}

// Close drains the queue and releases the pool. It is safe to call twice.
func (p *Postgres) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	close(p.queue)
	p.mu.Unlock()

	p.wg.Wait()
	if p.Db != nil {
		p.Db.Close()
	}
}
