package ledger

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"

	"github.com/rony4d/go-relay-accord/accord"
	"github.com/rony4d/go-relay-accord/accord/genesis"
	"github.com/rony4d/go-relay-accord/evmcore"
	"github.com/rony4d/go-relay-accord/inter"
)

var (
	owner      = evmcore.FakeAccount(1)
	challenger = evmcore.FakeAccount(2)
	relayer    = evmcore.FakeAccount(3)
	subscriber = evmcore.FakeAccount(4)
	reporter   = evmcore.FakeAccount(5)
	stranger   = evmcore.FakeAccount(6)

	t0 = evmcore.FakeGenesisTime
)

// fakeHost is a minimal Env provider: a settable clock and a transfer log
// with injectable failures.
type fakeHost struct {
	now       inter.Timestamp
	paid      map[common.Address]*big.Int
	transfers int
	failing   map[common.Address]error
}

func newFakeHost() *fakeHost {
	return &fakeHost{
		now:     t0,
		paid:    make(map[common.Address]*big.Int),
		failing: make(map[common.Address]error),
	}
}

func (h *fakeHost) as(caller common.Address) Env {
	return h.with(caller, nil)
}

func (h *fakeHost) with(caller common.Address, value *big.Int) Env {
	return &fakeEnv{host: h, caller: caller, value: value}
}

func (h *fakeHost) paidTo(acc common.Address) string {
	return inter.CopyAmount(h.paid[acc]).String()
}

type fakeEnv struct {
	host   *fakeHost
	caller common.Address
	value  *big.Int
}

func (e *fakeEnv) Caller() common.Address { return e.caller }
func (e *fakeEnv) Now() inter.Timestamp   { return e.host.now }
func (e *fakeEnv) Value() *big.Int        { return inter.CopyAmount(e.value) }

func (e *fakeEnv) Transfer(to common.Address, amount *big.Int) error {
	if err := e.host.failing[to]; err != nil {
		return err
	}
	e.host.transfers++
	e.host.paid[to] = new(big.Int).Add(inter.CopyAmount(e.host.paid[to]), amount)
	return nil
}

// recorder is a Sink keeping every published notification.
type recorder struct {
	events []inter.Event
}

func (r *recorder) Publish(ev inter.Event) {
	r.events = append(r.events, ev)
}

func (r *recorder) names() []string {
	names := make([]string, 0, len(r.events))
	for _, ev := range r.events {
		names = append(names, ev.EventName())
	}
	return names
}

func (r *recorder) reset() {
	r.events = nil
}

func newTestLedger(t *testing.T, rules accord.Rules, opts ...Option) (*Ledger, *fakeHost, *recorder) {
	t.Helper()

	rec := &recorder{}
	l, err := NewMemory(rules, append([]Option{WithSink(rec)}, opts...)...)
	require.NoError(t, err)

	g := genesis.FakeGenesis(2, new(big.Int))
	g.Rules = rules
	require.NoError(t, l.ApplyGenesis(g))
	rec.reset()
	return l, newFakeHost(), rec
}

func mustCreatePlan(t *testing.T, l *Ledger, h *fakeHost, relayer common.Address, d inter.Duration) uint64 {
	t.Helper()
	id, err := l.CreatePlan(h.as(relayer), relayer, d)
	require.NoError(t, err)
	return id
}

func mustSubscribe(t *testing.T, l *Ledger, h *fakeHost, subscriber common.Address, planID uint64) *inter.Subscription {
	t.Helper()
	plan, err := l.Plan(planID)
	require.NoError(t, err)
	sub, err := l.Subscribe(h.with(subscriber, plan.Duration.Amount()), planID)
	require.NoError(t, err)
	return sub
}

func mustStake(t *testing.T, l *Ledger, h *fakeHost, relayer common.Address, amount int64) {
	t.Helper()
	require.NoError(t, l.Stake(h.with(stranger, big.NewInt(amount)), relayer, big.NewInt(amount)))
}

func requireStake(t *testing.T, l *Ledger, relayer common.Address, want int64) {
	t.Helper()
	got, err := l.StakeOf(relayer)
	require.NoError(t, err)
	require.Equal(t, big.NewInt(want).String(), got.String())
}

// dump returns the whole committed store, for before/after comparisons.
func dump(t *testing.T, l *Ledger) map[string]string {
	t.Helper()
	out := make(map[string]string)
	it := l.db.NewIterator(nil, nil)
	defer it.Release()
	for it.Next() {
		out[string(it.Key())] = string(it.Value())
	}
	require.NoError(t, it.Error())
	return out
}
