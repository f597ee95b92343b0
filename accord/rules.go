// Package accord defines the protocol rules of a relayer accountability network.
//
// This package provides:
//   - Network identification constants (MainNet, TestNet, FakeNet)
//   - Billing rules (the relayer's share of each settled term)
//   - Dispute rules (challenge window, penalty sizing, evidence limits)
//   - The well-known contract account that escrows payments and stake
//
// The Rules type is the central configuration structure; every ledger
// instance is constructed with exactly one Rules value and never changes it.

package accord

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/rony4d/go-relay-accord/inter"
)

// Network identification constants
const (
	// MainNetworkID is the network id of the production relay network
	MainNetworkID uint64 = 0xacc0

	// TestNetworkID is the network id of the public test network
	TestNetworkID uint64 = 0xacc1

	// FakeNetworkID is the network id used by local and test deployments
	FakeNetworkID uint64 = 0xacc2

	// DefaultRelayerShare is the percentage of a term's price paid to the
	// relayer at settlement. The remainder is retained by the protocol treasury.
	DefaultRelayerShare uint64 = 70

	// DefaultPenaltyDivisor divides the penalty base (half of it by default)
	DefaultPenaltyDivisor uint64 = 2

	// DefaultMaxEvidenceSize caps the opaque evidence payload of a report
	DefaultMaxEvidenceSize uint64 = 64 * 1024
)

var (
	// ContractAddress is the account that holds escrowed subscription payments
	// and relayer stake. Settlements and penalties are paid out of it.
	ContractAddress = common.HexToAddress("0xacc0000000000000000000000000000000000000")

	// DefaultTreasury receives penalties when genesis does not name a treasury.
	DefaultTreasury = common.HexToAddress("0xacc0000000000000000000000000000000007e5")
)

// PenaltyBase selects the amount a penalty is computed from.
type PenaltyBase uint8

const (
	// PenaltyFromStake sizes the penalty from the relayer's stake
	PenaltyFromStake PenaltyBase = iota
	// PenaltyFromPlanPrice sizes the penalty from the relayer's latest plan price
	PenaltyFromPlanPrice
)

// String returns the configuration name of the base.
func (b PenaltyBase) String() string {
	if b == PenaltyFromPlanPrice {
		return "plan_price"
	}
	return "stake"
}

// ParsePenaltyBase maps a configuration name onto a PenaltyBase.
func ParsePenaltyBase(s string) (PenaltyBase, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "stake":
		return PenaltyFromStake, nil
	case "plan_price", "plan-price", "price":
		return PenaltyFromPlanPrice, nil
	default:
		return PenaltyFromStake, fmt.Errorf("unknown penalty base %q (valid: stake, plan_price)", s)
	}
}

// MarshalText implements encoding.TextMarshaler.
func (b PenaltyBase) MarshalText() ([]byte, error) {
	return []byte(b.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (b *PenaltyBase) UnmarshalText(text []byte) error {
	parsed, err := ParsePenaltyBase(string(text))
	if err != nil {
		return err
	}
	*b = parsed
	return nil
}

// Rules describes the complete protocol configuration of a relay network.
type Rules struct {
	Name      string `json:"name" yaml:"name"`             // Network name identifier (e.g., "main", "test", "fake")
	NetworkID uint64 `json:"network_id" yaml:"networkID"` // Network id, recorded for indexers

	// Billing options - relayer earnings split
	Billing BillingRules `json:"billing" yaml:"billing"`

	// Disputes options - challenge window and penalties
	Disputes DisputeRules `json:"disputes" yaml:"disputes"`
}

// BillingRules contains rules for settling expired subscriptions.
type BillingRules struct {
	// RelayerShare is the percentage (0..100) of the price paid to the relayer
	RelayerShare uint64 `json:"relayer_share" yaml:"relayerShare"`
}

// DisputeRules contains rules for reports, challenges and penalties.
type DisputeRules struct {
	// ChallengeWindow is how long a report may stay open before the expiry
	// sweep penalizes its relayer
	ChallengeWindow inter.Timestamp `json:"challenge_window" yaml:"challengeWindow"`

	// PenaltyDivisor divides the penalty base; must be non-zero
	PenaltyDivisor uint64 `json:"penalty_divisor" yaml:"penaltyDivisor"`

	// PenaltyBase selects what the penalty is computed from
	PenaltyBase PenaltyBase `json:"penalty_base" yaml:"penaltyBase"`

	// RequireReporterMatch additionally requires the challenger to be the
	// reporter of the challenged report
	RequireReporterMatch bool `json:"require_reporter_match" yaml:"requireReporterMatch"`

	// MaxEvidenceSize caps the evidence payload in bytes; 0 disables the cap
	MaxEvidenceSize uint64 `json:"max_evidence_size" yaml:"maxEvidenceSize"`
}

// MainNetRules returns the configuration rules for the production network.
func MainNetRules() Rules {
	return Rules{
		Name:      "main",
		NetworkID: MainNetworkID,
		Billing:   DefaultBillingRules(),
		Disputes:  DefaultDisputeRules(),
	}
}

// TestNetRules returns the configuration rules for the test network.
// Testnet uses the same parameters as mainnet for realistic testing.
func TestNetRules() Rules {
	return Rules{
		Name:      "test",
		NetworkID: TestNetworkID,
		Billing:   DefaultBillingRules(),
		Disputes:  DefaultDisputeRules(),
	}
}

// FakeNetRules returns the configuration rules for local networks.
// The challenge window is shortened to one minute so expiry sweeps can be
// observed without waiting an hour.
func FakeNetRules() Rules {
	return Rules{
		Name:      "fake",
		NetworkID: FakeNetworkID,
		Billing:   DefaultBillingRules(),
		Disputes:  FakeDisputeRules(),
	}
}

// RulesByName resolves a network name to its rules.
func RulesByName(name string) (Rules, error) {
	switch name {
	case "main", "mainnet":
		return MainNetRules(), nil
	case "test", "testnet":
		return TestNetRules(), nil
	case "fake", "fakenet":
		return FakeNetRules(), nil
	default:
		return Rules{}, fmt.Errorf("unknown network: %q (valid: main, test, fake)", name)
	}
}

// DefaultBillingRules returns the mainnet billing configuration.
func DefaultBillingRules() BillingRules {
	return BillingRules{
		RelayerShare: DefaultRelayerShare, // 70% to the relayer, 30% retained
	}
}

// DefaultDisputeRules returns the mainnet dispute configuration.
func DefaultDisputeRules() DisputeRules {
	return DisputeRules{
		ChallengeWindow: inter.Seconds(time.Hour), // reports expire after one hour
		PenaltyDivisor:  DefaultPenaltyDivisor,    // half of the base
		PenaltyBase:     PenaltyFromStake,
		MaxEvidenceSize: DefaultMaxEvidenceSize,
	}
}

// FakeDisputeRules returns accelerated dispute rules for local networks.
func FakeDisputeRules() DisputeRules {
	cfg := DefaultDisputeRules()
	cfg.ChallengeWindow = inter.Seconds(time.Minute)
	return cfg
}

// Validate checks that the rules can drive a ledger.
func (r Rules) Validate() error {
	if r.Billing.RelayerShare > 100 {
		return fmt.Errorf("relayer share %d exceeds 100%%", r.Billing.RelayerShare)
	}
	if r.Disputes.PenaltyDivisor == 0 {
		return errors.New("penalty divisor must be non-zero")
	}
	if r.Disputes.ChallengeWindow == 0 {
		return errors.New("challenge window must be non-zero")
	}
	return nil
}

// Copy creates a copy of Rules. Rules holds no pointer fields, so the value
// copy is deep.
func (r Rules) Copy() Rules {
	cp := r
	return cp
}

// String returns a JSON representation of Rules for debugging and logging.
func (r Rules) String() string {
	b, _ := json.Marshal(&r)
	return string(b)
}
