package ledger

import (
	"bytes"
	"math/big"
	"testing"

	"github.com/Fantom-foundation/lachesis-base/hash"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"

	"github.com/rony4d/go-relay-accord/accord"
	"github.com/rony4d/go-relay-accord/inter"
)

func TestFileReport(t *testing.T) {
	l, h, rec := newTestLedger(t, accord.FakeNetRules())
	evidence := []byte("dropped 12 messages between 10:00 and 10:05")

	for want := uint64(1); want <= 3; want++ {
		id, err := l.FileReport(h.as(reporter), relayer, evidence)
		require.NoError(t, err)
		require.Equal(t, want, id)
	}

	rep, err := l.Report(1)
	require.NoError(t, err)
	require.Equal(t, reporter, rep.Reporter)
	require.Equal(t, relayer, rep.Relayer)
	require.Equal(t, evidence, rep.Evidence)
	require.Equal(t, common.Hash(hash.Of(evidence)), rep.EvidenceHash)
	require.Equal(t, t0, rep.FiledAt)
	require.True(t, rep.Open())
	require.False(t, rep.Challenged)
	require.Equal(t, inter.VerdictNone, rep.Verdict)

	open, err := l.OpenReports()
	require.NoError(t, err)
	require.Len(t, open, 3)

	require.Len(t, rec.events, 3)
	require.Equal(t, inter.Reported{
		ReportID:     1,
		Reporter:     reporter,
		Relayer:      relayer,
		EvidenceHash: rep.EvidenceHash,
	}, rec.events[0])
}

func TestFileReportRejected(t *testing.T) {
	rules := accord.FakeNetRules()
	rules.Disputes.MaxEvidenceSize = 16
	l, h, rec := newTestLedger(t, rules)
	before := dump(t, l)

	_, err := l.FileReport(h.as(reporter), relayer, bytes.Repeat([]byte{1}, 17))
	require.ErrorIs(t, err, ErrEvidenceTooLarge)
	require.ErrorIs(t, err, ErrInvalidInput)

	_, err = l.FileReport(h.as(reporter), common.Address{}, nil)
	require.ErrorIs(t, err, ErrZeroAccount)

	_, err = l.FileReport(h.with(reporter, big.NewInt(1)), relayer, nil)
	require.ErrorIs(t, err, ErrUnexpectedValue)

	require.Equal(t, before, dump(t, l))
	require.Empty(t, rec.events)

	// ids are not consumed by rejected calls
	id, err := l.FileReport(h.as(reporter), relayer, bytes.Repeat([]byte{1}, 16))
	require.NoError(t, err)
	require.EqualValues(t, 1, id)
}

func TestReportNotFound(t *testing.T) {
	l, _, _ := newTestLedger(t, accord.FakeNetRules())
	_, err := l.Report(1)
	require.ErrorIs(t, err, ErrNotFound)
	require.ErrorIs(t, err, ErrReportNotFound)
}
