package ledger

import (
	"github.com/rony4d/go-relay-accord/inter"
)

// Sink receives notifications after the transition that produced them has
// committed. Publish is called with the ledger lock held and must not call
// back into the ledger.
type Sink interface {
	Publish(ev inter.Event)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(ev inter.Event)

// Publish implements Sink.
func (f SinkFunc) Publish(ev inter.Event) { f(ev) }

type nopSink struct{}

func (nopSink) Publish(inter.Event) {}
