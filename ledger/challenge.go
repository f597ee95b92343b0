package ledger

import (
	"fmt"
	"math/big"

	"github.com/rony4d/go-relay-accord/inter"
)

// Validator decides whether a challenged report is valid.
type Validator interface {
	Validate(rep *inter.Report) bool
}

// ValidatorFunc adapts a function to Validator.
type ValidatorFunc func(rep *inter.Report) bool

// Validate implements Validator.
func (f ValidatorFunc) Validate(rep *inter.Report) bool { return f(rep) }

// EvidencePresent is the default verdict policy: a report is valid when it
// carries any evidence at all.
var EvidencePresent = ValidatorFunc(func(rep *inter.Report) bool {
	return len(rep.Evidence) > 0
})

// ChallengeOutcome describes an adjudicated report.
type ChallengeOutcome struct {
	Report *inter.Report
	Valid  bool
	// Penalty is the amount deducted from the relayer's stake; zero for
	// valid reports.
	Penalty *big.Int
	// TransferErr is set when the penalty was deducted but could not be paid
	// to the treasury. The adjudication stands regardless.
	TransferErr error
}

// Challenge adjudicates an open report. Only the designated challenger may
// call it. The verdict is applied in the same call: an invalid report costs
// the relayer part of its stake, a valid one triggers the rewarder.
func (l *Ledger) Challenge(env Env, reportID uint64) (*ChallengeOutcome, error) {
	var out *ChallengeOutcome
	caller := env.Caller()

	err := l.exec(env, "challenge", caller, func(tx *stateTx) error {
		// 1. Authorize before looking at the report
		challenger, err := tx.account(nameKey(rolePrefix, inter.RoleChallenger))
		if err != nil {
			return err
		}
		if inter.IsZeroAccount(challenger) || caller != challenger {
			return ErrNotChallenger
		}
		if err := noValue(env); err != nil {
			return err
		}

		// 2. The report must still be open
		rep, err := tx.mustReport(reportID)
		if err != nil {
			return err
		}
		if !rep.Open() {
			return fmt.Errorf("%w: report %d is %s", ErrReportClosed, reportID, rep.Status)
		}
		if l.rules.Disputes.RequireReporterMatch && rep.Reporter != caller {
			return ErrNotReporter
		}

		// 3. Resolve
		valid := l.validator.Validate(rep.Copy())
		rep.Challenged = true
		rep.Status = inter.ReportStatusResolved
		rep.Verdict = inter.VerdictInvalid
		if valid {
			rep.Verdict = inter.VerdictValid
		}
		if err := tx.putReport(rep); err != nil {
			return err
		}
		if err := tx.closeReport(rep.ID); err != nil {
			return err
		}
		tx.emit(inter.Challenged{ReportID: rep.ID, Reporter: rep.Reporter, Valid: valid})

		// 4. Apply the verdict
		out = &ChallengeOutcome{Report: rep.Copy(), Valid: valid, Penalty: new(big.Int)}
		if valid {
			return l.rewarder.Reward(env, rep.Copy())
		}
		out.Penalty, out.TransferErr, err = l.applyPenalty(env, tx, rep)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
