// Package genesis defines the initial state of a relay accountability ledger.
//
// A Genesis combines the protocol rules with the accounts the ledger starts
// from: the owner that administers roles, the first designated challenger,
// the treasury that receives penalties, and the host balances funded at
// block 0.
//
// Usage:
//
//	g := genesis.FakeGenesis(3, big.NewInt(1e18))
//	err := g.Validate()
package genesis

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/rony4d/go-relay-accord/accord"
	"github.com/rony4d/go-relay-accord/evmcore"
	"github.com/rony4d/go-relay-accord/inter"
)

// Genesis is the complete initial configuration of a ledger.
type Genesis struct {
	Rules accord.Rules

	// Owner is the only account allowed to change roles
	Owner common.Address
	// Challenger is the initial holder of the challenger role; zero leaves it unset
	Challenger common.Address
	// Treasury receives penalty transfers
	Treasury common.Address

	// Time is the host clock at block 0
	Time inter.Timestamp
	// Balances are the host balances funded at block 0
	Balances map[common.Address]*big.Int
}

// Validate checks that the genesis can seed a ledger.
func (g Genesis) Validate() error {
	if err := g.Rules.Validate(); err != nil {
		return fmt.Errorf("rules: %w", err)
	}
	if inter.IsZeroAccount(g.Owner) {
		return errors.New("genesis owner is not set")
	}
	if inter.IsZeroAccount(g.Treasury) {
		return errors.New("genesis treasury is not set")
	}
	if g.Treasury == accord.ContractAddress {
		return errors.New("treasury cannot be the contract account")
	}
	for acc, balance := range g.Balances {
		if err := inter.CheckAmount(balance); err != nil {
			return fmt.Errorf("balance of %s: %w", acc.Hex(), err)
		}
	}
	return nil
}

// FakeGenesis builds a local-network genesis with n funded fake accounts.
// Account 1 is the owner and account 2 (when n >= 2) the challenger.
func FakeGenesis(n int, balance *big.Int) Genesis {
	g := Genesis{
		Rules:    accord.FakeNetRules(),
		Owner:    evmcore.FakeAccount(1),
		Treasury: accord.DefaultTreasury,
		Time:     evmcore.FakeGenesisTime,
		Balances: make(map[common.Address]*big.Int, n),
	}
	if n >= 2 {
		g.Challenger = evmcore.FakeAccount(2)
	}
	for i := 1; i <= n; i++ {
		g.Balances[evmcore.FakeAccount(i)] = inter.CopyAmount(balance)
	}
	return g
}
