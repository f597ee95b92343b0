package ledger

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/rony4d/go-relay-accord/inter"
)

// Stake adds amount to the collateral of relayer. The caller attaches
// exactly amount, which stays in the contract account. Stake can only be
// drawn down by penalties.
func (l *Ledger) Stake(env Env, relayer common.Address, amount *big.Int) error {
	return l.exec(env, "stake", env.Caller(), func(tx *stateTx) error {
		if inter.IsZeroAccount(relayer) {
			return ErrZeroAccount
		}
		if amount == nil || amount.Sign() <= 0 {
			return ErrZeroStake
		}
		if err := inter.CheckAmount(amount); err != nil {
			return fmt.Errorf("%w: %v", ErrAmountOutOfRange, err)
		}
		if inter.CopyAmount(env.Value()).Cmp(amount) != 0 {
			return fmt.Errorf("%w: want %s", ErrIncorrectPayment, amount)
		}

		current, err := tx.stake(relayer)
		if err != nil {
			return err
		}
		total, err := inter.AddAmount(current, amount)
		if err != nil {
			return fmt.Errorf("%w: stake of %s: %v", ErrAmountOutOfRange, relayer.Hex(), err)
		}
		if err := tx.putStake(relayer, total); err != nil {
			return err
		}

		tx.emit(inter.Staked{Staker: env.Caller(), Relayer: relayer, Amount: inter.CopyAmount(amount)})
		return nil
	})
}

// StakeOf returns the collateral currently held for relayer.
func (l *Ledger) StakeOf(relayer common.Address) (*big.Int, error) {
	var amount *big.Int
	err := l.view(func(tx *stateTx) error {
		var err error
		amount, err = tx.stake(relayer)
		return err
	})
	return amount, err
}

// StakeEntry returns the stake entry of relayer.
func (l *Ledger) StakeEntry(relayer common.Address) (inter.StakeEntry, error) {
	amount, err := l.StakeOf(relayer)
	if err != nil {
		return inter.StakeEntry{}, err
	}
	return inter.StakeEntry{Relayer: relayer, Amount: amount}, nil
}
