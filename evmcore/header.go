package evmcore

import (
	"github.com/Fantom-foundation/lachesis-base/inter/idx"
	"github.com/ethereum/go-ethereum/common"
	"github.com/rony4d/go-relay-accord/inter"
)

// Header describes the last sealed host block: the point at which the host
// balances were last committed to the backing database.
type Header struct {
	Number     idx.Block       // Block number (height of the host chain)
	ParentRoot common.Hash     // State root of the previous block
	Root       common.Hash     // State root after the block's calls
	Time       inter.Timestamp // Block timestamp; the clock seen by calls in the block
	Calls      uint64          // Number of successful calls sealed into the block
}

// next derives the header of the block that follows h.
func (h Header) next(root common.Hash, time inter.Timestamp, calls uint64) Header {
	return Header{
		Number:     h.Number + 1,
		ParentRoot: h.Root,
		Root:       root,
		Time:       time,
		Calls:      calls,
	}
}
