package inter

import (
	"github.com/ethereum/go-ethereum/common"
)

// Subscription binds a subscriber to one term of a relayer's plan.
//
// A subscription is never mutated after creation except for the Settled
// marker, which the billing engine sets once the relayer has been paid for
// the term. Settled subscriptions are never paid again.
type Subscription struct {
	ID         uint64         `json:"subscription_id"`
	PlanID     uint64         `json:"plan_id"`
	Subscriber common.Address `json:"subscriber"`
	Relayer    common.Address `json:"relayer"`
	Duration   Duration       `json:"duration"`
	Start      Timestamp      `json:"start_date"`
	Expiry     Timestamp      `json:"expiry_date"`
	Settled    bool           `json:"settled"`
	SettledAt  Timestamp      `json:"settled_at,omitempty"`
}

// Expired reports whether the term is over at now. Expiry is inclusive.
func (s *Subscription) Expired(now Timestamp) bool {
	return s.Expiry <= now
}

// Active reports whether the term is still running at now.
func (s *Subscription) Active(now Timestamp) bool {
	return !s.Expired(now)
}

// Copy returns a deep copy of the subscription.
func (s *Subscription) Copy() *Subscription {
	cp := *s
	cp.Duration = s.Duration.Copy()
	return &cp
}

// SubscriberEntry is one row of a subscriber listing.
type SubscriberEntry struct {
	Subscriber common.Address `json:"subscriber"`
	PlanID     uint64         `json:"plan_id"`
	Start      Timestamp      `json:"start_date"`
	Expiry     Timestamp      `json:"expiry_date"`
}

// Entry projects the subscription onto a listing row.
func (s *Subscription) Entry() SubscriberEntry {
	return SubscriberEntry{Subscriber: s.Subscriber, PlanID: s.PlanID, Start: s.Start, Expiry: s.Expiry}
}
