// Package evmcore is the reference host ledger for the relayer accountability
// protocol. It keeps account balances in a go-ethereum state database and
// provides the three host primitives the ledger depends on: the identity of
// the caller, a monotonic clock and an atomic value transfer.
//
// This file handles genesis funding and deterministic fake accounts for
// testing and development.

package evmcore

import (
	"crypto/ecdsa"
	"math/big"

	"github.com/Fantom-foundation/lachesis-base/common/bigendian"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/state"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/rony4d/go-relay-accord/inter"
)

// FakeGenesisTime is the default timestamp used for fake networks.
// Timestamp: 1608600000 seconds since Unix epoch (December 22, 2020)
var FakeGenesisTime = inter.Timestamp(1608600000)

// ApplyGenesis credits the initial balances and commits them.
//
// Process:
//  1. Sets initial balances for all specified accounts
//  2. Commits the state to the database and computes the state root
//
// Returns the committed state root.
func ApplyGenesis(statedb *state.StateDB, balances map[common.Address]*big.Int) (common.Hash, error) {
	for acc, balance := range balances {
		statedb.SetBalance(acc, inter.CopyAmount(balance))
	}
	return flush(statedb, true)
}

// flush commits state changes to the database and returns the state root hash.
//
// This function performs a two-phase commit:
//  1. Commits pending state changes to the state trie
//  2. Commits the trie to the underlying database
func flush(statedb *state.StateDB, clean bool) (root common.Hash, err error) {
	// Phase 1: compute the Merkle root of all account states
	root, err = statedb.Commit(clean)
	if err != nil {
		return
	}

	// Phase 2: persist the trie nodes to the backing key-value store
	err = statedb.Database().TrieDB().Commit(root, false, nil)
	if err != nil {
		return
	}

	if !clean {
		err = statedb.Database().TrieDB().Cap(0)
	}
	return
}

// FakeKey derives a deterministic fake private key for testing purposes.
// The key is the keccak256 of n, so it never depends on a random source.
func FakeKey(n int) *ecdsa.PrivateKey {
	key, err := crypto.ToECDSA(crypto.Keccak256(bigendian.Uint64ToBytes(uint64(n))))
	if err != nil {
		panic(err)
	}
	return key
}

// FakeAccount returns the account id of FakeKey(n).
func FakeAccount(n int) common.Address {
	return crypto.PubkeyToAddress(FakeKey(n).PublicKey)
}
