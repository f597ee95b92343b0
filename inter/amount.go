package inter

import (
	"errors"
	"math/big"
)

var (
	// MaxAmount is the largest representable amount: 2^128-1, the width of a
	// host balance.
	MaxAmount = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 128), big.NewInt(1))

	ErrAmountOverflow  = errors.New("amount overflow")
	ErrAmountUnderflow = errors.New("amount underflow")
	ErrNegativeAmount  = errors.New("negative amount")
)

// CheckAmount verifies that a is within [0, MaxAmount]. A nil amount counts as zero.
func CheckAmount(a *big.Int) error {
	if a == nil {
		return nil
	}
	if a.Sign() < 0 {
		return ErrNegativeAmount
	}
	if a.Cmp(MaxAmount) > 0 {
		return ErrAmountOverflow
	}
	return nil
}

// AddAmount returns a+b, failing instead of exceeding MaxAmount.
func AddAmount(a, b *big.Int) (*big.Int, error) {
	sum := new(big.Int).Add(orZero(a), orZero(b))
	if err := CheckAmount(sum); err != nil {
		return nil, err
	}
	return sum, nil
}

// SubAmount returns a-b, failing instead of going below zero.
func SubAmount(a, b *big.Int) (*big.Int, error) {
	diff := new(big.Int).Sub(orZero(a), orZero(b))
	if diff.Sign() < 0 {
		return nil, ErrAmountUnderflow
	}
	return diff, nil
}

// ShareOf returns amount*percent/100 with truncating division.
func ShareOf(amount *big.Int, percent uint64) *big.Int {
	share := new(big.Int).Mul(orZero(amount), new(big.Int).SetUint64(percent))
	return share.Quo(share, big.NewInt(100))
}

// MinAmount returns a copy of the smaller of a and b.
func MinAmount(a, b *big.Int) *big.Int {
	if orZero(a).Cmp(orZero(b)) <= 0 {
		return CopyAmount(a)
	}
	return CopyAmount(b)
}

// CopyAmount returns a deep copy of a; nil becomes zero.
func CopyAmount(a *big.Int) *big.Int {
	return new(big.Int).Set(orZero(a))
}

// IsZeroAmount reports whether a is nil or zero.
func IsZeroAmount(a *big.Int) bool {
	return a == nil || a.Sign() == 0
}

func orZero(a *big.Int) *big.Int {
	if a == nil {
		return new(big.Int)
	}
	return a
}
