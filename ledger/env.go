package ledger

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethdb"

	"github.com/rony4d/go-relay-accord/inter"
)

// Env is the host context of a single ledger call.
//
// The host serializes calls and applies each one atomically: if a ledger
// operation returns an error, every transfer performed through Env during
// the call is undone together with the attached value.
type Env interface {
	// Caller returns the account that issued the call.
	Caller() common.Address
	// Now returns the host time. It never decreases across calls in commit order.
	Now() inter.Timestamp
	// Value returns the value attached to the call. The host has already
	// moved it into the contract account.
	Value() *big.Int
	// Transfer pays amount from the contract account to to. It is applied
	// fully or not at all.
	Transfer(to common.Address, amount *big.Int) error
}

// Committer is implemented by an Env whose host database also holds the
// ledger store. The ledger then hands its writes to the host, which persists
// them in the same database write as the host state of the call.
type Committer interface {
	// Holds reports whether db is the ledger store inside the host database.
	Holds(db ethdb.KeyValueReader) bool
	// Commit persists the writes of stage together with the host state.
	// Nothing is persisted when it fails.
	Commit(stage func(ethdb.KeyValueWriter) error) error
}

// noValue rejects value attached to an operation that does not take any.
func noValue(env Env) error {
	if !inter.IsZeroAmount(env.Value()) {
		return ErrUnexpectedValue
	}
	return nil
}
