package ledger

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/sirupsen/logrus"

	"github.com/rony4d/go-relay-accord/accord"
	"github.com/rony4d/go-relay-accord/inter"
)

// Rewarder acts on a valid verdict. It runs inside the challenge call, so an
// error rejects the whole challenge.
type Rewarder interface {
	Reward(env Env, rep *inter.Report) error
}

// RewarderFunc adapts a function to Rewarder.
type RewarderFunc func(env Env, rep *inter.Report) error

// Reward implements Rewarder.
func (f RewarderFunc) Reward(env Env, rep *inter.Report) error { return f(env, rep) }

type nopRewarder struct{}

func (nopRewarder) Reward(Env, *inter.Report) error { return nil }

// applyPenalty deducts the penalty for rep from the relayer's stake and pays
// it to the treasury. The deduction stands even if the payment fails; the
// failure is returned as transferErr, separate from err.
func (l *Ledger) applyPenalty(env Env, tx *stateTx, rep *inter.Report) (penalty *big.Int, transferErr error, err error) {
	stake, err := tx.stake(rep.Relayer)
	if err != nil {
		return nil, nil, err
	}

	// 1. Size the penalty, never beyond the stake
	base := stake
	if l.rules.Disputes.PenaltyBase == accord.PenaltyFromPlanPrice {
		plan, err := tx.latestPlan(rep.Relayer)
		if err != nil {
			return nil, nil, err
		}
		base = new(big.Int)
		if plan != nil {
			base = plan.Duration.Amount()
		}
	}
	penalty = new(big.Int).Quo(base, new(big.Int).SetUint64(l.rules.Disputes.PenaltyDivisor))
	penalty = inter.MinAmount(penalty, stake)

	// 2. Deduct it
	remaining, err := inter.SubAmount(stake, penalty)
	if err != nil {
		return nil, nil, err
	}
	if err := tx.putStake(rep.Relayer, remaining); err != nil {
		return nil, nil, err
	}
	tx.emit(inter.PenaltyApplied{ReportID: rep.ID, Relayer: rep.Relayer, Amount: inter.CopyAmount(penalty)})

	// 3. Pay the treasury, best effort
	if inter.IsZeroAmount(penalty) {
		return penalty, nil, nil
	}
	treasury, err := tx.treasury()
	if err != nil {
		return nil, nil, err
	}
	if terr := env.Transfer(treasury, penalty); terr != nil {
		transferErr = transferError(fmt.Sprintf("penalty of report %d", rep.ID), terr)
		l.log.WithFields(logrus.Fields{
			"report":  rep.ID,
			"relayer": rep.Relayer.Hex(),
			"amount":  penalty,
		}).WithError(terr).Warn("Penalty transfer failed, stake already deducted")
	}
	return penalty, transferErr, nil
}

func (tx *stateTx) treasury() (common.Address, error) {
	treasury, err := tx.account(treasuryKey)
	if err != nil {
		return common.Address{}, err
	}
	if inter.IsZeroAccount(treasury) {
		return accord.DefaultTreasury, nil
	}
	return treasury, nil
}

// ExpiredReport is one report swept by ExpireUnchallenged.
type ExpiredReport struct {
	ReportID    uint64
	Relayer     common.Address
	Penalty     *big.Int
	TransferErr error
}

// ExpiryReport summarizes an expiry sweep.
type ExpiryReport struct {
	Expired []ExpiredReport
}

// ExpireUnchallenged closes every open report that outlived the challenge
// window and penalizes its relayer once. Expired reports are terminal, so
// repeated sweeps never penalize the same report again.
func (l *Ledger) ExpireUnchallenged(env Env) (*ExpiryReport, error) {
	report := &ExpiryReport{}
	err := l.exec(env, "expire_unchallenged", env.Caller(), func(tx *stateTx) error {
		if err := noValue(env); err != nil {
			return err
		}
		now := env.Now()
		window := l.rules.Disputes.ChallengeWindow

		ids, err := tx.ids(openReportsKey)
		if err != nil {
			return err
		}
		open := make([]uint64, 0, len(ids))
		for _, id := range ids {
			rep, err := tx.mustReport(id)
			if err != nil {
				return err
			}
			deadline, ok := rep.FiledAt.Add(window)
			if !ok || deadline > now {
				open = append(open, id)
				continue
			}

			rep.Status = inter.ReportStatusExpired
			rep.Verdict = inter.VerdictInvalid
			if err := tx.putReport(rep); err != nil {
				return err
			}
			tx.emit(inter.ReportExpired{ReportID: rep.ID, Relayer: rep.Relayer})

			penalty, transferErr, err := l.applyPenalty(env, tx, rep)
			if err != nil {
				return err
			}
			report.Expired = append(report.Expired, ExpiredReport{
				ReportID:    rep.ID,
				Relayer:     rep.Relayer,
				Penalty:     penalty,
				TransferErr: transferErr,
			})
		}
		return tx.putIDs(openReportsKey, open)
	})
	if err != nil {
		return nil, err
	}
	return report, nil
}
