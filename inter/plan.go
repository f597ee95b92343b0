package inter

import (
	"github.com/ethereum/go-ethereum/common"
)

// Plan is a subscription offering published by a relayer.
//
// Plans are append-only: once created a plan is never deleted and only its
// subscriber set changes, and only through a successful subscribe.
type Plan struct {
	ID          uint64           `json:"plan_id"`
	Relayer     common.Address   `json:"relayer"`
	Duration    Duration         `json:"duration"`
	Subscribers []common.Address `json:"subscribers"`
	CreatedAt   Timestamp        `json:"created_at"`
}

// PlanSummary is the read-only projection returned when listing plans.
type PlanSummary struct {
	PlanID   uint64         `json:"plan_id"`
	Relayer  common.Address `json:"relayer"`
	Duration Duration       `json:"duration"`
}

// Summary projects the plan onto its listing form.
func (p *Plan) Summary() PlanSummary {
	return PlanSummary{PlanID: p.ID, Relayer: p.Relayer, Duration: p.Duration.Copy()}
}

// HasSubscriber reports whether addr is already in the subscriber set.
func (p *Plan) HasSubscriber(addr common.Address) bool {
	for _, s := range p.Subscribers {
		if s == addr {
			return true
		}
	}
	return false
}

// AddSubscriber inserts addr into the subscriber set. It reports whether the
// set changed.
func (p *Plan) AddSubscriber(addr common.Address) bool {
	if p.HasSubscriber(addr) {
		return false
	}
	p.Subscribers = append(p.Subscribers, addr)
	return true
}

// Copy returns a deep copy of the plan.
func (p *Plan) Copy() *Plan {
	cp := *p
	cp.Duration = p.Duration.Copy()
	cp.Subscribers = make([]common.Address, len(p.Subscribers))
	copy(cp.Subscribers, p.Subscribers)
	return &cp
}
