package inter

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// StakeEntry is the collateral held for one relayer. It only grows through
// staking and only shrinks through penalties, and never drops below zero.
type StakeEntry struct {
	Relayer common.Address `json:"relayer"`
	Amount  *big.Int       `json:"amount"`
}
