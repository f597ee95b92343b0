package sweeper

import (
	"context"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"

	"github.com/rony4d/go-relay-accord/accord"
	"github.com/rony4d/go-relay-accord/accord/genesis"
	"github.com/rony4d/go-relay-accord/evmcore"
	"github.com/rony4d/go-relay-accord/inter"
	"github.com/rony4d/go-relay-accord/ledger"
)

var (
	relayer    = evmcore.FakeAccount(3)
	subscriber = evmcore.FakeAccount(4)
	reporter   = evmcore.FakeAccount(5)
	keeper     = evmcore.FakeAccount(6)
)

type fixture struct {
	mu     sync.Mutex
	now    time.Time
	ledger *ledger.Ledger
	host   *evmcore.Host
}

func (f *fixture) clock() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fixture) advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = f.now.Add(d)
}

// newFixture prepares a month subscription priced 100 and one open report
// against a relayer staking 100.
func newFixture(t *testing.T) *fixture {
	t.Helper()

	g := genesis.FakeGenesis(6, big.NewInt(1000))
	host := evmcore.NewMemoryHost(accord.ContractAddress, nil)
	require.NoError(t, host.Genesis(g.Balances, g.Time))
	l, err := ledger.New(host.LedgerDB(), g.Rules)
	require.NoError(t, err)
	require.NoError(t, l.ApplyGenesis(g))

	call := func(caller common.Address, value int64, fn func(env ledger.Env) error) {
		_, err := host.Transact(caller, big.NewInt(value), func(ctx *evmcore.CallContext) error { return fn(ctx) })
		require.NoError(t, err)
	}
	call(relayer, 0, func(env ledger.Env) error {
		_, err := l.CreatePlan(env, relayer, inter.MonthOf(big.NewInt(100)))
		return err
	})
	call(subscriber, 100, func(env ledger.Env) error {
		_, err := l.Subscribe(env, 1)
		return err
	})
	call(relayer, 100, func(env ledger.Env) error {
		return l.Stake(env, relayer, big.NewInt(100))
	})
	call(reporter, 0, func(env ledger.Env) error {
		_, err := l.FileReport(env, relayer, []byte("dropped packets"))
		return err
	})

	return &fixture{now: g.Time.Time(), ledger: l, host: host}
}

func TestSweepNothingDue(t *testing.T) {
	f := newFixture(t)
	s := New(DefaultConfig(keeper), f.ledger, f.host, f.clock, nil)

	res, err := s.Sweep()
	require.NoError(t, err)
	require.Empty(t, res.Settlement.Settlements)
	require.Empty(t, res.Expiry.Expired)
	require.EqualValues(t, 6, res.Head.Number)
}

func TestSweepSettlesAndExpires(t *testing.T) {
	f := newFixture(t)
	s := New(DefaultConfig(keeper), f.ledger, f.host, f.clock, nil)

	f.advance(time.Duration(inter.MonthSeconds) * time.Second)
	res, err := s.Sweep()
	require.NoError(t, err)

	require.Len(t, res.Settlement.Settlements, 1)
	require.Equal(t, "70", res.Settlement.Paid().String())
	require.Equal(t, "970", f.host.Balance(relayer).String())

	require.Len(t, res.Expiry.Expired, 1)
	require.Equal(t, "50", res.Expiry.Expired[0].Penalty.String())
	require.Equal(t, "50", f.host.Balance(accord.DefaultTreasury).String())

	// a second pass finds nothing left to do
	res, err = s.Sweep()
	require.NoError(t, err)
	require.Empty(t, res.Settlement.Settlements)
	require.Empty(t, res.Expiry.Expired)
	require.Equal(t, "970", f.host.Balance(relayer).String())
}

func TestSweepSelectsOperations(t *testing.T) {
	f := newFixture(t)
	cfg := DefaultConfig(keeper)
	cfg.Settle = false
	s := New(cfg, f.ledger, f.host, f.clock, nil)

	f.advance(time.Duration(inter.MonthSeconds) * time.Second)
	res, err := s.Sweep()
	require.NoError(t, err)
	require.Nil(t, res.Settlement)
	require.Len(t, res.Expiry.Expired, 1)
	require.Equal(t, "900", f.host.Balance(relayer).String())
}

func TestRunUntilCancelled(t *testing.T) {
	f := newFixture(t)
	cfg := DefaultConfig(keeper)
	cfg.Interval = 5 * time.Millisecond
	s := New(cfg, f.ledger, f.host, f.clock, nil)
	f.advance(time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool {
		rep, err := f.ledger.Report(1)
		return err == nil && rep.Status == inter.ReportStatusExpired
	}, 2*time.Second, 5*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("sweeper did not stop")
	}
}
