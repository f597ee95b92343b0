// Package ledger implements the relayer accountability and billing ledger:
// the plan registry, the subscription ledger and its billing engine, the
// stake ledger, the report registry, the challenge resolver and the
// penalty engine, all sharing one versioned key-value state.
//
// Every mutating operation takes the host Env of the call. Operations are
// serialized, run against a copy-on-write overlay of the store, and commit
// in a single batch only when they succeed. Notifications are published
// after the commit, once per successful transition.
package ledger

import (
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethdb"
	"github.com/ethereum/go-ethereum/ethdb/memorydb"
	"github.com/sirupsen/logrus"

	"github.com/rony4d/go-relay-accord/accord"
	"github.com/rony4d/go-relay-accord/accord/genesis"
	"github.com/rony4d/go-relay-accord/inter"
)

// Ledger is the accountability ledger. It is safe for concurrent use; calls
// are applied one at a time.
type Ledger struct {
	mu sync.Mutex

	db    ethdb.KeyValueStore
	rules accord.Rules

	validator Validator
	rewarder  Rewarder
	sink      Sink

	log logrus.FieldLogger
}

// Option configures a Ledger.
type Option func(*Ledger)

// WithValidator replaces the default verdict policy.
func WithValidator(v Validator) Option {
	return func(l *Ledger) { l.validator = v }
}

// WithRewarder installs a reward action for valid verdicts.
func WithRewarder(r Rewarder) Option {
	return func(l *Ledger) { l.rewarder = r }
}

// WithSink sets the notification sink.
func WithSink(s Sink) Option {
	return func(l *Ledger) { l.sink = s }
}

// WithLogger sets the logger.
func WithLogger(log logrus.FieldLogger) Option {
	return func(l *Ledger) { l.log = log }
}

// New opens a ledger over db governed by rules.
func New(db ethdb.KeyValueStore, rules accord.Rules, opts ...Option) (*Ledger, error) {
	if err := rules.Validate(); err != nil {
		return nil, fmt.Errorf("invalid rules: %w", err)
	}
	l := &Ledger{
		db:        db,
		rules:     rules.Copy(),
		validator: EvidencePresent,
		rewarder:  nopRewarder{},
		sink:      nopSink{},
		log:       logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(l)
	}
	l.log = l.log.WithField("module", "ledger")
	return l, nil
}

// NewMemory opens a ledger over a fresh in-memory store.
func NewMemory(rules accord.Rules, opts ...Option) (*Ledger, error) {
	return New(memorydb.New(), rules, opts...)
}

// Rules returns the rules the ledger was opened with.
func (l *Ledger) Rules() accord.Rules {
	return l.rules.Copy()
}

// ApplyGenesis records the owner, the treasury and the initial challenger.
// Applying the same genesis again is a no-op; a genesis with a different
// owner is rejected.
func (l *Ledger) ApplyGenesis(g genesis.Genesis) error {
	if err := g.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	return l.exec(nil, "genesis", g.Owner, func(tx *stateTx) error {
		owner, err := tx.account(ownerKey)
		if err != nil {
			return err
		}
		if !inter.IsZeroAccount(owner) {
			if owner != g.Owner {
				return fmt.Errorf("%w: owner %s", ErrAlreadyInitialized, owner.Hex())
			}
			return nil
		}

		tx.putAccount(ownerKey, g.Owner)
		tx.putAccount(treasuryKey, g.Treasury)
		if !inter.IsZeroAccount(g.Challenger) {
			return tx.assignRole(inter.RoleChallenger, g.Challenger, g.Owner, g.Time)
		}
		return nil
	})
}

// exec runs fn as one atomic ledger call. When env is a Committer holding
// the ledger store, the writes are persisted with the host state of the
// call in one database write.
func (l *Ledger) exec(env Env, op string, caller common.Address, fn func(tx *stateTx) error) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	tx := newStateTx(l.db)
	err := fn(tx)
	if err == nil {
		if cerr := l.commit(env, tx); cerr != nil {
			err = fmt.Errorf("commit %s: %w", op, cerr)
			tx.events = nil
		}
	} else {
		tx.events = nil
	}

	log := l.log.WithFields(logrus.Fields{"op": op, "caller": caller.Hex()})
	if err != nil {
		if KindOf(err) == nil {
			log.WithError(err).Error("Ledger call failed")
		} else {
			log.WithError(err).Debug("Ledger call rejected")
		}
	} else {
		log.WithField("events", len(tx.events)).Debug("Ledger call applied")
	}

	l.publish(tx.notices)
	l.publish(tx.events)
	return err
}

func (l *Ledger) commit(env Env, tx *stateTx) error {
	if c, ok := env.(Committer); ok && c.Holds(l.db) {
		return c.Commit(tx.stage)
	}
	return tx.commit(l.db)
}

// view runs a read-only fn against the committed state.
func (l *Ledger) view(fn func(tx *stateTx) error) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return fn(newStateTx(l.db))
}

func (l *Ledger) publish(events []inter.Event) {
	for _, ev := range events {
		l.sink.Publish(ev)
	}
}
