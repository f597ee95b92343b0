// Package eventlog provides the notification sinks a relay node attaches to
// its ledger: an in-memory journal, a structured log, Prometheus counters
// and a Postgres indexer. Sinks are combined with Multi.
package eventlog

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rony4d/go-relay-accord/inter"
)

// Record is a published notification as kept by a journal.
type Record struct {
	ID        int64           `json:"id"`
	Name      string          `json:"name"`
	Payload   json.RawMessage `json:"payload"`
	CreatedAt time.Time       `json:"created_at"`
}

// History is a journal that can list what it recorded, most recent first.
type History interface {
	Recent(ctx context.Context, limit int) ([]Record, error)
}

// encode renders the notification payload the way every journal stores it.
func encode(ev inter.Event) (json.RawMessage, error) {
	payload, err := json.Marshal(ev)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", ev.EventName(), err)
	}
	return payload, nil
}
