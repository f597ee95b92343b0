// Package inter defines the records shared by every component of the relayer
// accountability ledger: accounts, amounts, timestamps, subscription plans,
// subscriptions, stake entries, misconduct reports and the notifications
// emitted when any of them change.
//
// Every stored record is RLP-encodable so the ledger can persist it in a
// key-value store without a separate schema layer.

package inter

import (
	"fmt"
	"math/big"
	"strings"
)

// DurationKind identifies how long a subscription term lasts.
type DurationKind uint8

const (
	// Unknown is the "no match found" sentinel. It is never billable and is
	// rejected by the plan registry.
	Unknown DurationKind = iota
	Week
	Month
	Year
)

// Fixed calendar approximations in seconds. They are not calendar-aware:
// a month is always 30 days and a year is always 365 days.
const (
	WeekSeconds  Timestamp = 7 * 24 * 60 * 60
	MonthSeconds Timestamp = 30 * 24 * 60 * 60
	YearSeconds  Timestamp = 365 * 24 * 60 * 60
)

// Length returns the term length of the kind in seconds, and 0 for Unknown.
// This is the only place durations are mapped to lengths; the registry,
// the subscription ledger and billing all go through it.
func (k DurationKind) Length() Timestamp {
	switch k {
	case Week:
		return WeekSeconds
	case Month:
		return MonthSeconds
	case Year:
		return YearSeconds
	default:
		return 0
	}
}

// Billable reports whether the kind may be attached to a plan.
func (k DurationKind) Billable() bool {
	return k.Length() != 0
}

// String returns the lower-case name of the kind.
func (k DurationKind) String() string {
	switch k {
	case Week:
		return "week"
	case Month:
		return "month"
	case Year:
		return "year"
	default:
		return "unknown"
	}
}

// ParseDurationKind maps a textual kind onto a DurationKind. Unrecognised
// input yields Unknown rather than an error so callers decide how to reject it.
func ParseDurationKind(s string) DurationKind {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "week", "weekly":
		return Week
	case "month", "monthly":
		return Month
	case "year", "yearly", "annual":
		return Year
	default:
		return Unknown
	}
}

// MarshalText implements encoding.TextMarshaler.
func (k DurationKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler. Unknown names decode to
// Unknown so validation stays in the plan registry.
func (k *DurationKind) UnmarshalText(text []byte) error {
	*k = ParseDurationKind(string(text))
	return nil
}

// Duration is the tagged variant {Week(price), Month(price), Year(price), Unknown}:
// a term kind together with the price charged for one term.
type Duration struct {
	Kind  DurationKind `json:"kind"`
	Price *big.Int     `json:"price"`
}

// WeekOf, MonthOf and YearOf build priced durations.
func WeekOf(price *big.Int) Duration  { return Duration{Kind: Week, Price: CopyAmount(price)} }
func MonthOf(price *big.Int) Duration { return Duration{Kind: Month, Price: CopyAmount(price)} }
func YearOf(price *big.Int) Duration  { return Duration{Kind: Year, Price: CopyAmount(price)} }

// Length returns the term length in seconds.
func (d Duration) Length() Timestamp {
	return d.Kind.Length()
}

// Amount returns a copy of the price of one term (zero for a free tier).
func (d Duration) Amount() *big.Int {
	return CopyAmount(d.Price)
}

// Copy returns a deep copy of d.
func (d Duration) Copy() Duration {
	return Duration{Kind: d.Kind, Price: CopyAmount(d.Price)}
}

// String returns a compact "month(100)" form for logs.
func (d Duration) String() string {
	return fmt.Sprintf("%s(%s)", d.Kind, d.Amount())
}
