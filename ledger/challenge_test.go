package ledger

import (
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"

	"github.com/rony4d/go-relay-accord/accord"
	"github.com/rony4d/go-relay-accord/inter"
)

func TestChallengeValidReport(t *testing.T) {
	l, h, rec := newTestLedger(t, accord.FakeNetRules())
	mustStake(t, l, h, relayer, 100)
	id, err := l.FileReport(h.as(reporter), relayer, []byte("evidence"))
	require.NoError(t, err)
	rec.reset()

	out, err := l.Challenge(h.as(challenger), id)
	require.NoError(t, err)
	require.True(t, out.Valid)
	require.Equal(t, "0", out.Penalty.String())
	require.NoError(t, out.TransferErr)
	require.True(t, out.Report.Challenged)
	require.Equal(t, inter.ReportStatusResolved, out.Report.Status)
	require.Equal(t, inter.VerdictValid, out.Report.Verdict)

	require.Equal(t, []inter.Event{inter.Challenged{ReportID: id, Reporter: reporter, Valid: true}}, rec.events)
	requireStake(t, l, relayer, 100)

	open, err := l.OpenReports()
	require.NoError(t, err)
	require.Empty(t, open)
}

func TestChallengeTwice(t *testing.T) {
	l, h, rec := newTestLedger(t, accord.FakeNetRules())
	mustStake(t, l, h, relayer, 100)
	id, err := l.FileReport(h.as(reporter), relayer, nil)
	require.NoError(t, err)

	_, err = l.Challenge(h.as(challenger), id)
	require.NoError(t, err)
	after := dump(t, l)
	rec.reset()

	_, err = l.Challenge(h.as(challenger), id)
	require.ErrorIs(t, err, ErrAlreadyResolved)
	require.ErrorIs(t, err, ErrReportClosed)
	require.Equal(t, after, dump(t, l))
	require.Empty(t, rec.events)
	requireStake(t, l, relayer, 50)
}

func TestChallengeUnauthorized(t *testing.T) {
	l, h, rec := newTestLedger(t, accord.FakeNetRules())
	id, err := l.FileReport(h.as(reporter), relayer, []byte("x"))
	require.NoError(t, err)
	before := dump(t, l)
	rec.reset()

	for _, caller := range []common.Address{stranger, reporter, relayer, owner} {
		_, err := l.Challenge(h.as(caller), id)
		require.ErrorIs(t, err, ErrUnauthorized, caller.Hex())
		require.ErrorIs(t, err, ErrNotChallenger)
	}

	// authorization is checked before the report is looked up
	_, err = l.Challenge(h.as(stranger), 999)
	require.ErrorIs(t, err, ErrUnauthorized)

	rep, err := l.Report(id)
	require.NoError(t, err)
	require.True(t, rep.Open())
	require.False(t, rep.Challenged)
	require.Equal(t, before, dump(t, l))
	require.Empty(t, rec.events)
}

func TestChallengeUnknownReport(t *testing.T) {
	l, h, _ := newTestLedger(t, accord.FakeNetRules())
	_, err := l.Challenge(h.as(challenger), 1)
	require.ErrorIs(t, err, ErrNotFound)
	require.ErrorIs(t, err, ErrReportNotFound)
}

func TestChallengeWithoutChallenger(t *testing.T) {
	l, h, _ := newTestLedger(t, accord.FakeNetRules())
	id, err := l.FileReport(h.as(reporter), relayer, []byte("x"))
	require.NoError(t, err)

	require.NoError(t, l.SetRole(h.as(owner), inter.RoleChallenger, common.Address{}))
	_, err = l.Challenge(h.as(challenger), id)
	require.ErrorIs(t, err, ErrUnauthorized)
	_, err = l.Challenge(h.as(common.Address{}), id)
	require.ErrorIs(t, err, ErrUnauthorized)
}

func TestChallengeRequiresReporterMatch(t *testing.T) {
	rules := accord.FakeNetRules()
	rules.Disputes.RequireReporterMatch = true
	l, h, _ := newTestLedger(t, rules)

	other, err := l.FileReport(h.as(reporter), relayer, []byte("x"))
	require.NoError(t, err)
	own, err := l.FileReport(h.as(challenger), relayer, []byte("y"))
	require.NoError(t, err)

	_, err = l.Challenge(h.as(challenger), other)
	require.ErrorIs(t, err, ErrNotReporter)

	out, err := l.Challenge(h.as(challenger), own)
	require.NoError(t, err)
	require.True(t, out.Valid)
}

func TestChallengeCustomPolicy(t *testing.T) {
	var rewarded []uint64
	l, h, _ := newTestLedger(t, accord.FakeNetRules(),
		WithValidator(ValidatorFunc(func(rep *inter.Report) bool {
			return string(rep.Evidence) == "proof"
		})),
		WithRewarder(RewarderFunc(func(env Env, rep *inter.Report) error {
			rewarded = append(rewarded, rep.ID)
			return nil
		})),
	)
	mustStake(t, l, h, relayer, 10)

	valid, err := l.FileReport(h.as(reporter), relayer, []byte("proof"))
	require.NoError(t, err)
	invalid, err := l.FileReport(h.as(reporter), relayer, []byte("rumour"))
	require.NoError(t, err)

	out, err := l.Challenge(h.as(challenger), valid)
	require.NoError(t, err)
	require.True(t, out.Valid)

	out, err = l.Challenge(h.as(challenger), invalid)
	require.NoError(t, err)
	require.False(t, out.Valid)
	require.Equal(t, "5", out.Penalty.String())

	require.Equal(t, []uint64{valid}, rewarded)
}

func TestChallengeRewarderFailureRejects(t *testing.T) {
	boom := errors.New("reward pool empty")
	l, h, rec := newTestLedger(t, accord.FakeNetRules(),
		WithRewarder(RewarderFunc(func(Env, *inter.Report) error { return boom })),
	)
	id, err := l.FileReport(h.as(reporter), relayer, []byte("x"))
	require.NoError(t, err)
	before := dump(t, l)
	rec.reset()

	_, err = l.Challenge(h.as(challenger), id)
	require.ErrorIs(t, err, boom)
	require.Nil(t, KindOf(err))
	require.Equal(t, before, dump(t, l))
	require.Empty(t, rec.events)
}

func TestChallengeRejectsValue(t *testing.T) {
	l, h, _ := newTestLedger(t, accord.FakeNetRules())
	id, err := l.FileReport(h.as(reporter), relayer, []byte("x"))
	require.NoError(t, err)

	_, err = l.Challenge(h.with(challenger, big.NewInt(1)), id)
	require.ErrorIs(t, err, ErrUnexpectedValue)
}
