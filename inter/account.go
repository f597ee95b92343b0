package inter

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// ErrMalformedAccount is returned when a textual account id cannot be decoded.
var ErrMalformedAccount = errors.New("malformed account")

// AccountFromBytes builds an account id from its fixed-width encoding.
//
// A slice of the wrong length can only come from a caller bypassing the wire
// decoding boundary, so it panics instead of returning an error.
func AccountFromBytes(b []byte) common.Address {
	if len(b) != common.AddressLength {
		panic(fmt.Sprintf("account id must be %d bytes, got %d", common.AddressLength, len(b)))
	}
	return common.BytesToAddress(b)
}

// ParseAccount decodes a 0x-prefixed (or bare) hex account id.
func ParseAccount(s string) (common.Address, error) {
	s = strings.TrimSpace(s)
	if !common.IsHexAddress(s) {
		return common.Address{}, fmt.Errorf("%w: %q", ErrMalformedAccount, s)
	}
	return common.HexToAddress(s), nil
}

// IsZeroAccount reports whether addr is the all-zero account, which never
// identifies a real participant.
func IsZeroAccount(addr common.Address) bool {
	return addr == (common.Address{})
}
