package ledger

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"github.com/rony4d/go-relay-accord/inter"
)

// Subscribe buys one term of plan planID for the caller. The attached value
// must equal the plan price; it stays escrowed in the contract account until
// the term is settled.
//
// Subscribing to an unknown plan fails with ErrPlanNotFound and leaves no
// state behind, but still publishes a SubscriptionPlanNotFound notice.
// A subscriber holds at most one running, unsettled term per plan.
func (l *Ledger) Subscribe(env Env, planID uint64) (*inter.Subscription, error) {
	var sub *inter.Subscription
	subscriber := env.Caller()

	err := l.exec(env, "subscribe", subscriber, func(tx *stateTx) error {
		plan, err := tx.plan(planID)
		if err != nil {
			return err
		}
		if plan == nil {
			tx.notify(inter.SubscriptionPlanNotFound{Subscriber: subscriber, PlanID: planID})
			return fmt.Errorf("%w: %d", ErrPlanNotFound, planID)
		}
		if subscriber == plan.Relayer {
			return ErrSelfSubscription
		}

		price := plan.Duration.Amount()
		if inter.CopyAmount(env.Value()).Cmp(price) != 0 {
			return fmt.Errorf("%w: want %s", ErrIncorrectPayment, price)
		}

		// 1. One running term per (subscriber, plan)
		now := env.Now()
		pairKey := accountKey(pairIndexPrefix, plan.Relayer, subscriber)
		ids, err := tx.ids(pairKey)
		if err != nil {
			return err
		}
		existing, err := tx.subscriptions(ids)
		if err != nil {
			return err
		}
		for _, prev := range existing {
			if prev.PlanID == planID && !prev.Settled && prev.Active(now) {
				return fmt.Errorf("%w: subscription %d runs until %d", ErrAlreadySubscribed, prev.ID, prev.Expiry)
			}
		}

		// 2. Compute the term
		expiry, ok := now.Add(plan.Duration.Length())
		if !ok {
			return ErrTimestampOverflow
		}

		// 3. Write the subscription and its indexes
		id, err := tx.nextID(subscriptionCounter)
		if err != nil {
			return err
		}
		sub = &inter.Subscription{
			ID:         id,
			PlanID:     planID,
			Subscriber: subscriber,
			Relayer:    plan.Relayer,
			Duration:   plan.Duration.Copy(),
			Start:      now,
			Expiry:     expiry,
		}
		if err := tx.putSubscription(sub); err != nil {
			return err
		}
		for _, key := range [][]byte{
			pairKey,
			accountKey(relayerIndexPrefix, plan.Relayer),
			idKey(planIndexPrefix, planID),
			unsettledKey,
		} {
			if err := tx.appendID(key, id); err != nil {
				return err
			}
		}
		if plan.AddSubscriber(subscriber) {
			if err := tx.putPlan(plan); err != nil {
				return err
			}
		}

		tx.emit(inter.Subscribed{
			SubscriptionID: id,
			PlanID:         planID,
			Subscriber:     subscriber,
			Relayer:        plan.Relayer,
			Price:          price,
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return sub.Copy(), nil
}

// Subscription returns the most recent subscription of subscriber to any
// plan of relayer: the latest start date wins, ties go to the higher id.
func (l *Ledger) Subscription(relayer, subscriber common.Address) (*inter.Subscription, error) {
	var latest *inter.Subscription
	err := l.view(func(tx *stateTx) error {
		ids, err := tx.ids(accountKey(pairIndexPrefix, relayer, subscriber))
		if err != nil {
			return err
		}
		subs, err := tx.subscriptions(ids)
		if err != nil {
			return err
		}
		for _, sub := range subs {
			if latest == nil || sub.Start > latest.Start || (sub.Start == latest.Start && sub.ID > latest.ID) {
				latest = sub
			}
		}
		if latest == nil {
			return fmt.Errorf("%w: relayer %s, subscriber %s", ErrSubscriptionNotFound, relayer.Hex(), subscriber.Hex())
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return latest, nil
}

// SubscriptionByID returns a subscription by id.
func (l *Ledger) SubscriptionByID(id uint64) (*inter.Subscription, error) {
	var sub *inter.Subscription
	err := l.view(func(tx *stateTx) error {
		last, err := tx.counter(subscriptionCounter)
		if err != nil {
			return err
		}
		if id == 0 || id > last {
			return fmt.Errorf("%w: %d", ErrSubscriptionNotFound, id)
		}
		sub, err = tx.subscription(id)
		return err
	})
	return sub, err
}

// SubscribersOfPlan lists the subscriptions of a plan in subscription order.
func (l *Ledger) SubscribersOfPlan(planID uint64) ([]inter.SubscriberEntry, error) {
	var out []inter.SubscriberEntry
	err := l.view(func(tx *stateTx) error {
		if _, err := tx.mustPlan(planID); err != nil {
			return err
		}
		var err error
		out, err = tx.entries(idKey(planIndexPrefix, planID))
		return err
	})
	return out, err
}

// SubscribersOfRelayer lists the subscriptions to every plan of relayer in
// subscription order.
func (l *Ledger) SubscribersOfRelayer(relayer common.Address) ([]inter.SubscriberEntry, error) {
	var out []inter.SubscriberEntry
	err := l.view(func(tx *stateTx) error {
		var err error
		out, err = tx.entries(accountKey(relayerIndexPrefix, relayer))
		return err
	})
	return out, err
}

func (tx *stateTx) entries(indexKey []byte) ([]inter.SubscriberEntry, error) {
	ids, err := tx.ids(indexKey)
	if err != nil {
		return nil, err
	}
	subs, err := tx.subscriptions(ids)
	if err != nil {
		return nil, err
	}
	out := make([]inter.SubscriberEntry, 0, len(subs))
	for _, sub := range subs {
		out = append(out, sub.Entry())
	}
	return out, nil
}
