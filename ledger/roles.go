package ledger

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"github.com/rony4d/go-relay-accord/inter"
)

const maxRoleName = 32

// SetRole designates account as the holder of role. Only the owner may
// change roles; the zero account revokes the role. Every change is appended
// to the role audit log.
func (l *Ledger) SetRole(env Env, role string, account common.Address) error {
	return l.exec(env, "set_role", env.Caller(), func(tx *stateTx) error {
		owner, err := tx.account(ownerKey)
		if err != nil {
			return err
		}
		if inter.IsZeroAccount(owner) || env.Caller() != owner {
			return ErrNotOwner
		}
		if err := noValue(env); err != nil {
			return err
		}
		if role == "" || len(role) > maxRoleName {
			return fmt.Errorf("%w: %q", ErrInvalidRole, role)
		}
		return tx.assignRole(role, account, env.Caller(), env.Now())
	})
}

// Role returns the holder of role, the zero account when unset.
func (l *Ledger) Role(role string) (common.Address, error) {
	var holder common.Address
	err := l.view(func(tx *stateTx) error {
		var err error
		holder, err = tx.account(nameKey(rolePrefix, role))
		return err
	})
	return holder, err
}

// RoleHistory returns the audit log of role, oldest change first.
func (l *Ledger) RoleHistory(role string) ([]inter.RoleChange, error) {
	var out []inter.RoleChange
	err := l.view(func(tx *stateTx) error {
		last, err := tx.counter(roleChangeCounter)
		if err != nil {
			return err
		}
		for seq := uint64(1); seq <= last; seq++ {
			var change inter.RoleChange
			ok, err := tx.getRLP(idKey(roleLogPrefix, seq), &change)
			if err != nil {
				return err
			}
			if ok && change.Role == role {
				out = append(out, change)
			}
		}
		return nil
	})
	return out, err
}

// Owner returns the account allowed to change roles.
func (l *Ledger) Owner() (common.Address, error) {
	var owner common.Address
	err := l.view(func(tx *stateTx) error {
		var err error
		owner, err = tx.account(ownerKey)
		return err
	})
	return owner, err
}

// Treasury returns the account penalties are paid to.
func (l *Ledger) Treasury() (common.Address, error) {
	var treasury common.Address
	err := l.view(func(tx *stateTx) error {
		var err error
		treasury, err = tx.treasury()
		return err
	})
	return treasury, err
}

func (tx *stateTx) assignRole(role string, account, by common.Address, at inter.Timestamp) error {
	key := nameKey(rolePrefix, role)
	previous, err := tx.account(key)
	if err != nil {
		return err
	}
	seq, err := tx.nextID(roleChangeCounter)
	if err != nil {
		return err
	}
	change := inter.RoleChange{Seq: seq, Role: role, Previous: previous, Next: account, ChangedBy: by, At: at}
	if err := tx.putRLP(idKey(roleLogPrefix, seq), &change); err != nil {
		return err
	}
	tx.putAccount(key, account)

	tx.emit(inter.RoleChanged{Role: role, Previous: previous, Next: account, ChangedBy: by})
	return nil
}
