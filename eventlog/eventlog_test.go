package eventlog

import (
	"context"
	"encoding/json"
	"math/big"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"

	"github.com/rony4d/go-relay-accord/evmcore"
	"github.com/rony4d/go-relay-accord/inter"
	"github.com/rony4d/go-relay-accord/ledger"
)

var (
	relayer  = evmcore.FakeAccount(3)
	reporter = evmcore.FakeAccount(5)
)

func sample() []inter.Event {
	return []inter.Event{
		inter.Staked{Staker: relayer, Relayer: relayer, Amount: big.NewInt(100)},
		inter.Reported{ReportID: 1, Reporter: reporter, Relayer: relayer},
		inter.Challenged{ReportID: 1, Reporter: reporter, Valid: false},
		inter.PenaltyApplied{ReportID: 1, Relayer: relayer, Amount: big.NewInt(50)},
	}
}

func TestMemory(t *testing.T) {
	m := NewMemory(3)
	for _, ev := range sample() {
		m.Publish(ev)
	}

	// the oldest notification fell out of the ring
	require.Equal(t, 3, m.Len())
	require.Equal(t, sample()[1:], m.Events())

	recent, err := m.Recent(context.Background(), 2)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	require.Equal(t, inter.EventPenaltyApplied, recent[0].Name)
	require.EqualValues(t, 4, recent[0].ID)
	require.Equal(t, inter.EventChallenged, recent[1].Name)

	var penalty inter.PenaltyApplied
	require.NoError(t, json.Unmarshal(recent[0].Payload, &penalty))
	require.Equal(t, "50", penalty.Amount.String())

	all, err := m.Recent(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, all, 3)
}

func TestMulti(t *testing.T) {
	a, b := NewMemory(0), NewMemory(0)
	var names []string
	sink := NewMulti(a, nil, ledger.SinkFunc(func(ev inter.Event) {
		names = append(names, ev.EventName())
	}), b)
	require.Len(t, sink, 3)

	for _, ev := range sample() {
		sink.Publish(ev)
	}
	require.Equal(t, sample(), a.Events())
	require.Equal(t, sample(), b.Events())
	require.Equal(t, []string{
		inter.EventStaked, inter.EventReported, inter.EventChallenged, inter.EventPenaltyApplied,
	}, names)
}

func TestLogger(t *testing.T) {
	log, hook := logtest.NewNullLogger()
	log.SetLevel(logrus.DebugLevel)

	NewLogger(log).Publish(inter.PenaltyApplied{ReportID: 7, Relayer: relayer, Amount: big.NewInt(50)})
	require.Len(t, hook.Entries, 1)
	entry := hook.LastEntry()
	require.Equal(t, logrus.InfoLevel, entry.Level)
	require.Equal(t, "Ledger event PenaltyApplied", entry.Message)
	require.Equal(t, inter.EventPenaltyApplied, entry.Data["event"])
	require.Equal(t, "events", entry.Data["module"])
	require.Equal(t, json.Number("7"), entry.Data["report_id"])
	require.Equal(t, json.Number("50"), entry.Data["amount"])
	require.Equal(t, strings.ToLower(relayer.Hex()), entry.Data["relayer"])

	NewLogger(log).WithLevel(logrus.DebugLevel).Publish(inter.ReportExpired{ReportID: 1, Relayer: relayer})
	require.Equal(t, logrus.DebugLevel, hook.LastEntry().Level)
}

func TestMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	for _, ev := range sample() {
		m.Publish(ev)
	}
	m.Publish(inter.PenaltyApplied{ReportID: 2, Relayer: relayer, Amount: big.NewInt(25)})
	m.Publish(inter.SubscriptionSettled{Relayer: relayer, Subscriptions: []uint64{1}, Amount: big.NewInt(70)})

	require.Equal(t, 2.0, testutil.ToFloat64(m.events.WithLabelValues(inter.EventPenaltyApplied)))
	require.Equal(t, 1.0, testutil.ToFloat64(m.events.WithLabelValues(inter.EventStaked)))
	require.Equal(t, 75.0, testutil.ToFloat64(m.penalties))
	require.Equal(t, 70.0, testutil.ToFloat64(m.settled))
	require.Equal(t, 100.0, testutil.ToFloat64(m.staked))

	// a second registration on the same registry is a programming error
	require.Panics(t, func() { NewMetrics(reg) })
}
