package evmcore

import (
	"errors"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/rawdb"
	"github.com/ethereum/go-ethereum/core/state"
	"github.com/ethereum/go-ethereum/ethdb"
	"github.com/ethereum/go-ethereum/rlp"
	"github.com/rony4d/go-relay-accord/inter"
	"github.com/sirupsen/logrus"
)

var (
	// ErrInsufficientBalance is returned when an account cannot cover a value
	// movement. Nothing is moved in that case.
	ErrInsufficientBalance = errors.New("insufficient balance")

	// ErrTimeReversal is returned when the host clock would move backwards.
	ErrTimeReversal = errors.New("host clock cannot move backwards")
)

// ErrCallCommitted is returned when a call body moves value after its
// writes were already persisted.
var ErrCallCommitted = errors.New("call already committed")

// Table prefixes inside the host database.
const (
	StateTable  = "host/"
	LedgerTable = "accord/"
)

var (
	headKey = []byte("evmcore-head")
	rootKey = []byte("evmcore-root")
)

// Host is an in-process host ledger.
//
// Balances live in a go-ethereum StateDB under StateTable. Every call runs
// inside a StateDB snapshot: the attached value is moved from the caller to
// the contract account before the call body runs, and everything the body
// transferred is reverted together with the attached value if the body
// fails. A successful call persists its balances, and the ledger writes
// staged through CallContext.Commit, in one database write. Sealing records
// a new host block over the calls persisted since the previous one.
//
// Calls are serialized; a call body must not call back into the Host.
type Host struct {
	mu sync.Mutex

	db       ethdb.Database
	table    ethdb.Database
	ledger   ethdb.Database
	sdb      state.Database
	statedb  *state.StateDB
	contract common.Address

	head    Header
	root    common.Hash
	now     inter.Timestamp
	pending uint64

	log logrus.FieldLogger
}

// NewHost opens the host ledger stored in db, resuming from the last
// persisted call.
func NewHost(db ethdb.Database, contract common.Address, log logrus.FieldLogger) (*Host, error) {
	if log == nil {
		log = logrus.StandardLogger()
	}
	h := &Host{
		db:       db,
		table:    rawdb.NewTable(db, StateTable),
		ledger:   rawdb.NewTable(db, LedgerTable),
		contract: contract,
		log:      log.WithField("module", "host"),
	}
	h.sdb = state.NewDatabase(h.table)

	if enc, err := h.read(headKey); err != nil {
		return nil, err
	} else if enc != nil {
		if err := rlp.DecodeBytes(enc, &h.head); err != nil {
			return nil, fmt.Errorf("decode host head: %w", err)
		}
	}
	h.now = h.head.Time

	// calls persisted after the last seal are ahead of the head
	h.root = h.head.Root
	if enc, err := h.read(rootKey); err != nil {
		return nil, err
	} else if enc != nil {
		h.root = common.BytesToHash(enc)
	}

	var err error
	h.statedb, err = state.New(h.root, h.sdb, nil)
	if err != nil {
		return nil, fmt.Errorf("open host state at %s: %w", h.root.Hex(), err)
	}
	return h, nil
}

// LedgerDB returns the store the accountability ledger keeps inside the host
// database. Ledger writes of calls on this host are persisted atomically
// with the host state.
func (h *Host) LedgerDB() ethdb.Database {
	return h.ledger
}

func (h *Host) read(key []byte) ([]byte, error) {
	ok, err := h.table.Has(key)
	if err != nil || !ok {
		return nil, err
	}
	enc, err := h.table.Get(key)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", key, err)
	}
	return enc, nil
}

// NewMemoryHost creates a host backed by an in-memory database.
func NewMemoryHost(contract common.Address, log logrus.FieldLogger) *Host {
	h, err := NewHost(rawdb.NewMemoryDatabase(), contract, log)
	if err != nil {
		// an empty memory database always opens
		panic(err)
	}
	return h
}

// Genesis funds the initial balances and seals block 0 at time t. It is a
// no-op on a host that already has committed state.
func (h *Host) Genesis(balances map[common.Address]*big.Int, t inter.Timestamp) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.root != (common.Hash{}) {
		return nil
	}
	root, err := ApplyGenesis(h.statedb, balances)
	if err != nil {
		return fmt.Errorf("apply genesis: %w", err)
	}
	if err := h.reopen(root); err != nil {
		return err
	}
	h.head = Header{Root: root, Time: t}
	h.root = root
	h.now = t
	return h.writeHead()
}

// Contract returns the account that receives attached values and pays transfers.
func (h *Host) Contract() common.Address {
	return h.contract
}

// Now returns the current host time.
func (h *Host) Now() inter.Timestamp {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.now
}

// SetTime moves the host clock to t. The clock never moves backwards.
func (h *Host) SetTime(t inter.Timestamp) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if t < h.now {
		return fmt.Errorf("%w: %d < %d", ErrTimeReversal, t, h.now)
	}
	h.now = t
	return nil
}

// Advance moves the host clock forward by d.
func (h *Host) Advance(d inter.Timestamp) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if next, ok := h.now.Add(d); ok {
		h.now = next
	}
}

// Tick moves the host clock forward to t, typically from a wall clock.
// Times earlier than the current one are ignored.
func (h *Host) Tick(t inter.Timestamp) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if t > h.now {
		h.now = t
	}
}

// Balance returns a copy of the current balance of addr.
func (h *Host) Balance(addr common.Address) *big.Int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return inter.CopyAmount(h.statedb.GetBalance(addr))
}

// Head returns the last sealed header.
func (h *Host) Head() Header {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.head
}

// Call runs fn as one atomic host transaction on behalf of caller, with
// value attached. If fn returns an error every balance change made during
// the call, including the attached value, is reverted. A successful call is
// persisted before Call returns.
func (h *Host) Call(caller common.Address, value *big.Int, fn func(*CallContext) error) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if err := inter.CheckAmount(value); err != nil {
		return err
	}

	statedb, snap := h.statedb, h.statedb.Snapshot()

	// 1. Escrow the attached value in the contract account
	if !inter.IsZeroAmount(value) {
		if err := h.move(caller, h.contract, value); err != nil {
			return err
		}
	}

	// 2. Run the call body against the snapshot
	ctx := &CallContext{host: h, caller: caller, value: inter.CopyAmount(value), now: h.now}
	if err := fn(ctx); err != nil {
		if ctx.committed {
			// persisted by the body; nothing left to revert
			h.pending++
			return err
		}
		// a failed commit already dropped the call's changes
		if h.statedb == statedb {
			h.statedb.RevertToSnapshot(snap)
		}
		return err
	}

	// 3. Persist the balances if the body did not
	if !ctx.committed {
		if err := h.commit(nil); err != nil {
			return err
		}
	}
	h.pending++
	return nil
}

// Transact runs fn like Call and seals it into its own host block when it
// succeeds. The call is persisted even if sealing fails; the failure is
// logged and the previous head returned.
func (h *Host) Transact(caller common.Address, value *big.Int, fn func(*CallContext) error) (Header, error) {
	if err := h.Call(caller, value, fn); err != nil {
		return h.Head(), err
	}
	head, err := h.Seal()
	if err != nil {
		h.log.WithError(err).Error("Failed to seal host block")
	}
	return head, nil
}

// Seal records a new host block over the calls persisted since the last
// seal, at the current time.
func (h *Host) Seal() (Header, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	next := h.head.next(h.root, h.now, h.pending)
	enc, err := rlp.EncodeToBytes(&next)
	if err != nil {
		return h.head, fmt.Errorf("encode host head: %w", err)
	}
	if err := h.table.Put(headKey, enc); err != nil {
		return h.head, fmt.Errorf("write host head: %w", err)
	}
	h.head = next
	h.pending = 0

	h.log.WithFields(logrus.Fields{
		"number": h.head.Number,
		"root":   h.root.Hex(),
		"calls":  h.head.Calls,
	}).Debug("Sealed host block")
	return h.head, nil
}

// commit persists the current balances and the writes of stage, staged into
// LedgerTable, in one database write. On failure the balances fall back to
// the last persisted state.
func (h *Host) commit(stage func(ethdb.KeyValueWriter) error) error {
	prev := h.root

	// trie nodes land before the batch; without rootKey they are unreachable
	root, err := flush(h.statedb, true)
	if err != nil {
		return h.discard(prev, fmt.Errorf("commit host state: %w", err))
	}

	batch := h.db.NewBatch()
	if stage != nil {
		if err := stage(tableWriter{batch, LedgerTable}); err != nil {
			return h.discard(prev, fmt.Errorf("stage ledger writes: %w", err))
		}
	}
	if err := (tableWriter{batch, StateTable}).Put(rootKey, root.Bytes()); err != nil {
		return h.discard(prev, err)
	}
	if err := batch.Write(); err != nil {
		return h.discard(prev, fmt.Errorf("write call: %w", err))
	}

	if err := h.reopen(root); err != nil {
		return err
	}
	h.root = root
	return nil
}

// discard drops the uncommitted balances and returns err.
func (h *Host) discard(root common.Hash, err error) error {
	if rerr := h.reopen(root); rerr != nil {
		h.log.WithError(rerr).Error("Failed to restore host state")
	}
	return err
}

func (h *Host) move(from, to common.Address, amount *big.Int) error {
	if h.statedb.GetBalance(from).Cmp(amount) < 0 {
		return fmt.Errorf("%w: %s cannot cover %s", ErrInsufficientBalance, from.Hex(), amount)
	}
	h.statedb.SubBalance(from, amount)
	h.statedb.AddBalance(to, amount)
	return nil
}

func (h *Host) reopen(root common.Hash) error {
	statedb, err := state.New(root, h.sdb, nil)
	if err != nil {
		return fmt.Errorf("reopen host state at %s: %w", root.Hex(), err)
	}
	h.statedb = statedb
	return nil
}

func (h *Host) writeHead() error {
	enc, err := rlp.EncodeToBytes(&h.head)
	if err != nil {
		return fmt.Errorf("encode host head: %w", err)
	}
	batch := h.table.NewBatch()
	if err := batch.Put(headKey, enc); err != nil {
		return err
	}
	if err := batch.Put(rootKey, h.root.Bytes()); err != nil {
		return err
	}
	if err := batch.Write(); err != nil {
		return fmt.Errorf("write host head: %w", err)
	}
	return nil
}

// tableWriter writes into a batch of the whole database under a table prefix.
type tableWriter struct {
	batch  ethdb.Batch
	prefix string
}

func (w tableWriter) Put(key, value []byte) error {
	return w.batch.Put(append([]byte(w.prefix), key...), value)
}

func (w tableWriter) Delete(key []byte) error {
	return w.batch.Delete(append([]byte(w.prefix), key...))
}

// CallContext is the view of the host a single call body gets: who is
// calling, when, with how much value, and a way to pay out of the contract.
type CallContext struct {
	host      *Host
	caller    common.Address
	value     *big.Int
	now       inter.Timestamp
	committed bool
}

// Caller returns the account that issued the call.
func (c *CallContext) Caller() common.Address { return c.caller }

// Now returns the host time of the call.
func (c *CallContext) Now() inter.Timestamp { return c.now }

// Value returns the value attached to the call, already held by the contract.
func (c *CallContext) Value() *big.Int { return inter.CopyAmount(c.value) }

// Transfer pays amount from the contract account to to. It either applies
// fully or not at all.
func (c *CallContext) Transfer(to common.Address, amount *big.Int) error {
	if err := inter.CheckAmount(amount); err != nil {
		return err
	}
	if inter.IsZeroAmount(amount) {
		return nil
	}
	if c.committed {
		return ErrCallCommitted
	}
	return c.host.move(c.host.contract, to, amount)
}

// Holds reports whether db is the ledger store of the host database.
func (c *CallContext) Holds(db ethdb.KeyValueReader) bool {
	return db == ethdb.KeyValueReader(c.host.ledger)
}

// Commit persists the balances of the call so far together with the ledger
// writes of stage. A call commits at most once.
func (c *CallContext) Commit(stage func(ethdb.KeyValueWriter) error) error {
	if c.committed {
		return ErrCallCommitted
	}
	if err := c.host.commit(stage); err != nil {
		return err
	}
	c.committed = true
	return nil
}
