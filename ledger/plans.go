package ledger

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"github.com/rony4d/go-relay-accord/inter"
)

// CreatePlan publishes a new subscription plan for relayer and returns its
// id. Only the relayer itself may publish its plans. A zero price is a free
// tier; an Unknown duration is rejected.
func (l *Ledger) CreatePlan(env Env, relayer common.Address, duration inter.Duration) (uint64, error) {
	var id uint64
	err := l.exec(env, "create_plan", env.Caller(), func(tx *stateTx) error {
		if err := noValue(env); err != nil {
			return err
		}
		if env.Caller() != relayer {
			return ErrNotRelayer
		}
		if !duration.Kind.Billable() {
			return fmt.Errorf("%w: %s", ErrInvalidDuration, duration.Kind)
		}
		if err := inter.CheckAmount(duration.Price); err != nil {
			return fmt.Errorf("%w: price: %v", ErrAmountOutOfRange, err)
		}

		var err error
		if id, err = tx.nextID(planCounter); err != nil {
			return err
		}
		plan := &inter.Plan{
			ID:          id,
			Relayer:     relayer,
			Duration:    duration.Copy(),
			Subscribers: []common.Address{},
			CreatedAt:   env.Now(),
		}
		if err := tx.putPlan(plan); err != nil {
			return err
		}
		tx.putUint64(accountKey(latestPlanPrefix, relayer), id)

		tx.emit(inter.PlanCreated{PlanID: id, Relayer: relayer, Duration: plan.Duration.Copy()})
		return nil
	})
	if err != nil {
		return 0, err
	}
	return id, nil
}

// Plans lists every plan in creation order.
func (l *Ledger) Plans() ([]inter.PlanSummary, error) {
	var out []inter.PlanSummary
	err := l.view(func(tx *stateTx) error {
		last, err := tx.counter(planCounter)
		if err != nil {
			return err
		}
		out = make([]inter.PlanSummary, 0, last)
		for id := uint64(1); id <= last; id++ {
			plan, err := tx.plan(id)
			if err != nil {
				return err
			}
			if plan == nil {
				return fmt.Errorf("plan %d was issued but is missing", id)
			}
			out = append(out, plan.Summary())
		}
		return nil
	})
	return out, err
}

// Plan returns the plan with the given id.
func (l *Ledger) Plan(id uint64) (*inter.Plan, error) {
	var plan *inter.Plan
	err := l.view(func(tx *stateTx) error {
		var err error
		plan, err = tx.mustPlan(id)
		return err
	})
	return plan, err
}

func (tx *stateTx) mustPlan(id uint64) (*inter.Plan, error) {
	plan, err := tx.plan(id)
	if err != nil {
		return nil, err
	}
	if plan == nil {
		return nil, fmt.Errorf("%w: %d", ErrPlanNotFound, id)
	}
	return plan, nil
}

// latestPlan returns the most recently created plan of relayer, or nil.
func (tx *stateTx) latestPlan(relayer common.Address) (*inter.Plan, error) {
	id, err := tx.uint64At(accountKey(latestPlanPrefix, relayer))
	if err != nil || id == 0 {
		return nil, err
	}
	return tx.plan(id)
}
