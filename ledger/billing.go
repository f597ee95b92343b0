package ledger

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/sirupsen/logrus"

	"github.com/rony4d/go-relay-accord/inter"
)

// Settlement is the outcome of paying one relayer in a settlement pass.
type Settlement struct {
	Relayer       common.Address
	Subscriptions []uint64
	Amount        *big.Int
	// Err is set when the payout failed; the subscriptions then stay
	// unsettled for the next pass.
	Err error
}

// SettlementReport summarizes a settlement pass, one entry per relayer in
// the order relayers were first met.
type SettlementReport struct {
	Settlements []Settlement
}

// Paid returns the total amount paid out in the pass.
func (r *SettlementReport) Paid() *big.Int {
	total := new(big.Int)
	for _, s := range r.Settlements {
		if s.Err == nil {
			total.Add(total, s.Amount)
		}
	}
	return total
}

// Failed returns the settlements whose payout failed.
func (r *SettlementReport) Failed() []Settlement {
	var failed []Settlement
	for _, s := range r.Settlements {
		if s.Err != nil {
			failed = append(failed, s)
		}
	}
	return failed
}

// SettleExpired pays relayers their share of every expired, unsettled
// subscription. Each relayer gets one transfer per pass. A failed transfer
// only holds back that relayer's subscriptions; the pass itself succeeds.
// Settled subscriptions are never paid again.
func (l *Ledger) SettleExpired(env Env) (*SettlementReport, error) {
	report := &SettlementReport{}
	err := l.exec(env, "settle_expired", env.Caller(), func(tx *stateTx) error {
		if err := noValue(env); err != nil {
			return err
		}
		now := env.Now()
		share := l.rules.Billing.RelayerShare

		ids, err := tx.ids(unsettledKey)
		if err != nil {
			return err
		}
		subs, err := tx.subscriptions(ids)
		if err != nil {
			return err
		}

		// 1. Group expired subscriptions per relayer
		var (
			pending = make([]uint64, 0, len(ids))
			groups  = make(map[common.Address]int)
			batches [][]*inter.Subscription
		)
		for _, sub := range subs {
			if !sub.Expired(now) {
				pending = append(pending, sub.ID)
				continue
			}
			i, ok := groups[sub.Relayer]
			if !ok {
				i = len(report.Settlements)
				groups[sub.Relayer] = i
				report.Settlements = append(report.Settlements, Settlement{Relayer: sub.Relayer, Amount: new(big.Int)})
				batches = append(batches, nil)
			}
			amount, err := inter.AddAmount(report.Settlements[i].Amount, inter.ShareOf(sub.Duration.Price, share))
			if err != nil {
				// does not fit one transfer, leave it for the next pass
				pending = append(pending, sub.ID)
				continue
			}
			report.Settlements[i].Amount = amount
			report.Settlements[i].Subscriptions = append(report.Settlements[i].Subscriptions, sub.ID)
			batches[i] = append(batches[i], sub)
		}

		// 2. Pay each relayer
		for i := range report.Settlements {
			s := &report.Settlements[i]
			if len(s.Subscriptions) == 0 {
				continue
			}
			if !inter.IsZeroAmount(s.Amount) {
				if err := env.Transfer(s.Relayer, s.Amount); err != nil {
					s.Err = transferError("settle "+s.Relayer.Hex(), err)
					pending = append(pending, s.Subscriptions...)

					l.log.WithFields(logrus.Fields{
						"relayer": s.Relayer.Hex(),
						"amount":  s.Amount,
					}).WithError(err).Warn("Settlement transfer failed")
					tx.emit(inter.SettlementFailed{Relayer: s.Relayer, Amount: inter.CopyAmount(s.Amount), Reason: err.Error()})
					continue
				}
			}
			for _, sub := range batches[i] {
				sub.Settled = true
				sub.SettledAt = now
				if err := tx.putSubscription(sub); err != nil {
					return err
				}
			}
			tx.emit(inter.SubscriptionSettled{
				Relayer:       s.Relayer,
				Subscriptions: append([]uint64(nil), s.Subscriptions...),
				Amount:        inter.CopyAmount(s.Amount),
			})
		}

		sortIDs(pending)
		return tx.putIDs(unsettledKey, pending)
	})
	if err != nil {
		return nil, err
	}
	return report, nil
}
