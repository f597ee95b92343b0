package ledger

import (
	"errors"
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/rony4d/go-relay-accord/accord"
	"github.com/rony4d/go-relay-accord/inter"
)

func TestSettleExpiredPaysOnce(t *testing.T) {
	l, h, rec := newTestLedger(t, accord.FakeNetRules())
	id := mustCreatePlan(t, l, h, relayer, inter.MonthOf(big.NewInt(100)))
	sub := mustSubscribe(t, l, h, subscriber, id)
	rec.reset()

	// still running
	h.now = sub.Expiry - 1
	report, err := l.SettleExpired(h.as(stranger))
	require.NoError(t, err)
	require.Empty(t, report.Settlements)
	require.Zero(t, h.transfers)

	// expiry is inclusive
	h.now = sub.Expiry
	report, err = l.SettleExpired(h.as(stranger))
	require.NoError(t, err)
	require.Len(t, report.Settlements, 1)
	require.Equal(t, "70", report.Paid().String())
	require.Equal(t, "70", h.paidTo(relayer))
	require.Equal(t, []string{inter.EventSubscriptionSettled}, rec.names())

	settled, err := l.SubscriptionByID(sub.ID)
	require.NoError(t, err)
	require.True(t, settled.Settled)
	require.Equal(t, sub.Expiry, settled.SettledAt)

	// a second pass never re-pays
	h.now += inter.YearSeconds
	report, err = l.SettleExpired(h.as(stranger))
	require.NoError(t, err)
	require.Empty(t, report.Settlements)
	require.Equal(t, "70", h.paidTo(relayer))
	require.Equal(t, 1, h.transfers)
}

func TestSettleExpiredOneTransferPerRelayer(t *testing.T) {
	l, h, _ := newTestLedger(t, accord.FakeNetRules())
	planA := mustCreatePlan(t, l, h, relayer, inter.WeekOf(big.NewInt(10)))
	planB := mustCreatePlan(t, l, h, stranger, inter.WeekOf(big.NewInt(20)))

	mustSubscribe(t, l, h, subscriber, planB)
	mustSubscribe(t, l, h, subscriber, planA)
	mustSubscribe(t, l, h, reporter, planA)

	h.now += inter.WeekSeconds
	report, err := l.SettleExpired(h.as(owner))
	require.NoError(t, err)

	// relayers in first-seen order, amounts aggregated
	require.Len(t, report.Settlements, 2)
	require.Equal(t, stranger, report.Settlements[0].Relayer)
	require.Equal(t, []uint64{1}, report.Settlements[0].Subscriptions)
	require.Equal(t, "14", report.Settlements[0].Amount.String())
	require.Equal(t, relayer, report.Settlements[1].Relayer)
	require.Equal(t, []uint64{2, 3}, report.Settlements[1].Subscriptions)
	require.Equal(t, "14", report.Settlements[1].Amount.String())
	require.Equal(t, 2, h.transfers)
}

func TestSettleExpiredIsolatesFailures(t *testing.T) {
	l, h, rec := newTestLedger(t, accord.FakeNetRules())
	planA := mustCreatePlan(t, l, h, relayer, inter.WeekOf(big.NewInt(100)))
	planB := mustCreatePlan(t, l, h, stranger, inter.WeekOf(big.NewInt(100)))
	subA := mustSubscribe(t, l, h, subscriber, planA)
	mustSubscribe(t, l, h, subscriber, planB)
	rec.reset()

	frozen := errors.New("account frozen")
	h.failing[relayer] = frozen
	h.now += inter.WeekSeconds

	report, err := l.SettleExpired(h.as(owner))
	require.NoError(t, err)
	require.Len(t, report.Settlements, 2)

	failed := report.Failed()
	require.Len(t, failed, 1)
	require.Equal(t, relayer, failed[0].Relayer)
	require.ErrorIs(t, failed[0].Err, ErrTransferFailed)
	require.ErrorIs(t, failed[0].Err, frozen)
	require.Equal(t, ErrTransferFailed, KindOf(failed[0].Err))

	require.Equal(t, "0", h.paidTo(relayer))
	require.Equal(t, "70", h.paidTo(stranger))
	require.Equal(t, []string{inter.EventSettlementFailed, inter.EventSubscriptionSettled}, rec.names())

	stillOpen, err := l.SubscriptionByID(subA.ID)
	require.NoError(t, err)
	require.False(t, stillOpen.Settled)

	// retried on the next pass
	delete(h.failing, relayer)
	report, err = l.SettleExpired(h.as(owner))
	require.NoError(t, err)
	require.Len(t, report.Settlements, 1)
	require.Equal(t, "70", h.paidTo(relayer))
	require.Equal(t, "70", h.paidTo(stranger))
}

func TestSettleExpiredTruncatesShare(t *testing.T) {
	tests := []struct {
		price int64
		want  string
	}{
		{0, "0"},
		{1, "0"},
		{15, "10"},
		{99, "69"},
		{1000, "700"},
	}

	for _, tt := range tests {
		l, h, _ := newTestLedger(t, accord.FakeNetRules())
		id := mustCreatePlan(t, l, h, relayer, inter.WeekOf(big.NewInt(tt.price)))
		sub := mustSubscribe(t, l, h, subscriber, id)
		h.now = sub.Expiry

		report, err := l.SettleExpired(h.as(owner))
		require.NoError(t, err)
		require.Len(t, report.Settlements, 1)
		require.Equal(t, tt.want, report.Settlements[0].Amount.String(), "price %d", tt.price)
		require.Equal(t, tt.want, h.paidTo(relayer))

		// zero earnings settle without a transfer
		if tt.want == "0" {
			require.Zero(t, h.transfers)
		}
		settled, err := l.SubscriptionByID(sub.ID)
		require.NoError(t, err)
		require.True(t, settled.Settled)
	}
}

func TestSettleExpiredRelayerShare(t *testing.T) {
	rules := accord.FakeNetRules()
	rules.Billing.RelayerShare = 100
	l, h, _ := newTestLedger(t, rules)
	id := mustCreatePlan(t, l, h, relayer, inter.WeekOf(big.NewInt(33)))
	sub := mustSubscribe(t, l, h, subscriber, id)
	h.now = sub.Expiry

	_, err := l.SettleExpired(h.as(owner))
	require.NoError(t, err)
	require.Equal(t, "33", h.paidTo(relayer))
}

func TestSettleExpiredRejectsValue(t *testing.T) {
	l, h, _ := newTestLedger(t, accord.FakeNetRules())
	_, err := l.SettleExpired(h.with(owner, big.NewInt(1)))
	require.ErrorIs(t, err, ErrUnexpectedValue)
}
