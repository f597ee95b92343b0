package ledger

import (
	"fmt"

	"github.com/Fantom-foundation/lachesis-base/hash"
	"github.com/ethereum/go-ethereum/common"

	"github.com/rony4d/go-relay-accord/inter"
)

// FileReport records a misconduct report by the caller against relayer and
// returns its id. The evidence is stored as given; only its size is checked.
func (l *Ledger) FileReport(env Env, relayer common.Address, evidence []byte) (uint64, error) {
	var id uint64
	err := l.exec(env, "file_report", env.Caller(), func(tx *stateTx) error {
		if err := noValue(env); err != nil {
			return err
		}
		if inter.IsZeroAccount(relayer) {
			return ErrZeroAccount
		}
		if limit := l.rules.Disputes.MaxEvidenceSize; limit != 0 && uint64(len(evidence)) > limit {
			return fmt.Errorf("%w: %d > %d bytes", ErrEvidenceTooLarge, len(evidence), limit)
		}

		var err error
		if id, err = tx.nextID(reportCounter); err != nil {
			return err
		}
		rep := &inter.Report{
			ID:           id,
			Reporter:     env.Caller(),
			Relayer:      relayer,
			Evidence:     common.CopyBytes(evidence),
			EvidenceHash: common.Hash(hash.Of(evidence)),
			FiledAt:      env.Now(),
			Status:       inter.ReportStatusOpen,
		}
		if err := tx.putReport(rep); err != nil {
			return err
		}
		if err := tx.appendID(openReportsKey, id); err != nil {
			return err
		}

		tx.emit(inter.Reported{ReportID: id, Reporter: rep.Reporter, Relayer: relayer, EvidenceHash: rep.EvidenceHash})
		return nil
	})
	if err != nil {
		return 0, err
	}
	return id, nil
}

// Report returns the report with the given id.
func (l *Ledger) Report(id uint64) (*inter.Report, error) {
	var rep *inter.Report
	err := l.view(func(tx *stateTx) error {
		var err error
		rep, err = tx.mustReport(id)
		return err
	})
	return rep, err
}

// OpenReports lists the reports still awaiting the challenger, oldest first.
func (l *Ledger) OpenReports() ([]*inter.Report, error) {
	var out []*inter.Report
	err := l.view(func(tx *stateTx) error {
		ids, err := tx.ids(openReportsKey)
		if err != nil {
			return err
		}
		out = make([]*inter.Report, 0, len(ids))
		for _, id := range ids {
			rep, err := tx.mustReport(id)
			if err != nil {
				return err
			}
			out = append(out, rep)
		}
		return nil
	})
	return out, err
}

func (tx *stateTx) mustReport(id uint64) (*inter.Report, error) {
	rep, err := tx.report(id)
	if err != nil {
		return nil, err
	}
	if rep == nil {
		return nil, fmt.Errorf("%w: %d", ErrReportNotFound, id)
	}
	return rep, nil
}

// closeReport drops id from the open report list.
func (tx *stateTx) closeReport(id uint64) error {
	ids, err := tx.ids(openReportsKey)
	if err != nil {
		return err
	}
	kept := ids[:0]
	for _, open := range ids {
		if open != id {
			kept = append(kept, open)
		}
	}
	return tx.putIDs(openReportsKey, kept)
}
