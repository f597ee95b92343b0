package eventlog

import (
	"math/big"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/rony4d/go-relay-accord/inter"
)

// Metrics counts notifications and the value they move.
type Metrics struct {
	events    *prometheus.CounterVec
	penalties prometheus.Counter
	settled   prometheus.Counter
	staked    prometheus.Counter
}

// NewMetrics registers the ledger collectors with reg. A nil reg uses the
// default registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)
	return &Metrics{
		events: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "relayd_ledger_events_total",
			Help: "Ledger notifications published, labeled by event name",
		}, []string{"event"}),
		penalties: factory.NewCounter(prometheus.CounterOpts{
			Name: "relayd_ledger_penalty_amount_total",
			Help: "Total amount deducted from relayer stake as penalties",
		}),
		settled: factory.NewCounter(prometheus.CounterOpts{
			Name: "relayd_ledger_settled_amount_total",
			Help: "Total amount paid to relayers by settlement",
		}),
		staked: factory.NewCounter(prometheus.CounterOpts{
			Name: "relayd_ledger_staked_amount_total",
			Help: "Total amount staked on relayers",
		}),
	}
}

// Publish implements ledger.Sink.
func (m *Metrics) Publish(ev inter.Event) {
	m.events.WithLabelValues(ev.EventName()).Inc()

	switch e := ev.(type) {
	case inter.PenaltyApplied:
		m.penalties.Add(toFloat(e.Amount))
	case inter.SubscriptionSettled:
		m.settled.Add(toFloat(e.Amount))
	case inter.Staked:
		m.staked.Add(toFloat(e.Amount))
	}
}

func toFloat(amount *big.Int) float64 {
	if amount == nil {
		return 0
	}
	f, _ := new(big.Float).SetInt(amount).Float64()
	return f
}
