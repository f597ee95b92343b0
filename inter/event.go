package inter

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// Event is a notification published after a state transition commits.
// Consumers (indexers, dashboards) rely on exactly one notification per
// successful transition.
type Event interface {
	EventName() string
}

// Notification names.
const (
	EventPlanCreated              = "PlanCreated"
	EventSubscribed               = "Subscribed"
	EventSubscriptionPlanNotFound = "SubscriptionPlanNotFound"
	EventStaked                   = "Staked"
	EventReported                 = "Reported"
	EventChallenged               = "Challenged"
	EventPenaltyApplied           = "PenaltyApplied"
	EventSubscriptionSettled      = "SubscriptionSettled"
	EventSettlementFailed         = "SettlementFailed"
	EventReportExpired            = "ReportExpired"
	EventRoleChanged              = "RoleChanged"
)

// PlanCreated is published when a relayer registers a plan.
type PlanCreated struct {
	PlanID   uint64         `json:"plan_id"`
	Relayer  common.Address `json:"relayer"`
	Duration Duration       `json:"duration"`
}

// Subscribed is published when a subscriber pays for a plan. Price is the
// amount escrowed for the subscription.
type Subscribed struct {
	SubscriptionID uint64         `json:"subscription_id"`
	PlanID         uint64         `json:"plan_id"`
	Subscriber     common.Address `json:"subscriber"`
	Relayer        common.Address `json:"relayer"`
	Price          *big.Int       `json:"price"`
}

// SubscriptionPlanNotFound is published even though the failed subscribe
// leaves no state behind, so off-chain tooling can tell "retry later" apart.
type SubscriptionPlanNotFound struct {
	Subscriber common.Address `json:"subscriber"`
	PlanID     uint64         `json:"plan_id"`
}

// Staked is published when collateral is added for a relayer. The staker
// may differ from the relayer.
type Staked struct {
	Staker  common.Address `json:"staker"`
	Relayer common.Address `json:"relayer"`
	Amount  *big.Int       `json:"amount"`
}

// Reported is published when a report is filed against a relayer.
type Reported struct {
	ReportID     uint64         `json:"report_id"`
	Reporter     common.Address `json:"reporter"`
	Relayer      common.Address `json:"relayer"`
	EvidenceHash common.Hash    `json:"evidence_hash"`
}

// Challenged is published when the challenger adjudicates a report.
type Challenged struct {
	ReportID uint64         `json:"report_id"`
	Reporter common.Address `json:"reporter"`
	Valid    bool           `json:"valid"`
}

// PenaltyApplied is published when stake is deducted for an invalid
// report, either by verdict or by expiry.
type PenaltyApplied struct {
	ReportID uint64         `json:"report_id"`
	Relayer  common.Address `json:"relayer"`
	Amount   *big.Int       `json:"amount"`
}

// SubscriptionSettled is published once per relayer and settlement pass,
// listing the subscriptions paid out and their total.
type SubscriptionSettled struct {
	Relayer       common.Address `json:"relayer"`
	Subscriptions []uint64       `json:"subscriptions"`
	Amount        *big.Int       `json:"amount"`
}

// SettlementFailed is published when paying a relayer fails. Its
// subscriptions stay unsettled for a later pass.
type SettlementFailed struct {
	Relayer common.Address `json:"relayer"`
	Amount  *big.Int       `json:"amount"`
	Reason  string         `json:"reason"`
}

// ReportExpired is published when an open report outlives the challenge
// window and is swept.
type ReportExpired struct {
	ReportID uint64         `json:"report_id"`
	Relayer  common.Address `json:"relayer"`
}

// RoleChanged is published when the owner reassigns a role.
type RoleChanged struct {
	Role      string         `json:"role"`
	Previous  common.Address `json:"previous"`
	Next      common.Address `json:"next"`
	ChangedBy common.Address `json:"changed_by"`
}

func (PlanCreated) EventName() string              { return EventPlanCreated }
func (Subscribed) EventName() string               { return EventSubscribed }
func (SubscriptionPlanNotFound) EventName() string { return EventSubscriptionPlanNotFound }
func (Staked) EventName() string                   { return EventStaked }
func (Reported) EventName() string                 { return EventReported }
func (Challenged) EventName() string               { return EventChallenged }
func (PenaltyApplied) EventName() string           { return EventPenaltyApplied }
func (SubscriptionSettled) EventName() string      { return EventSubscriptionSettled }
func (SettlementFailed) EventName() string         { return EventSettlementFailed }
func (ReportExpired) EventName() string            { return EventReportExpired }
func (RoleChanged) EventName() string              { return EventRoleChanged }
