package eventlog

import (
	"github.com/rony4d/go-relay-accord/inter"
	"github.com/rony4d/go-relay-accord/ledger"
)

// Multi delivers every notification to each sink in order.
type Multi []ledger.Sink

// NewMulti drops nil sinks.
func NewMulti(sinks ...ledger.Sink) Multi {
	out := make(Multi, 0, len(sinks))
	for _, s := range sinks {
		if s != nil {
			out = append(out, s)
		}
	}
	return out
}

// Publish implements ledger.Sink.
func (m Multi) Publish(ev inter.Event) {
	for _, s := range m {
		s.Publish(ev)
	}
}
