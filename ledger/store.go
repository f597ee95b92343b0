package ledger

import (
	"fmt"
	"math/big"
	"sort"

	"github.com/Fantom-foundation/lachesis-base/common/bigendian"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethdb"
	"github.com/ethereum/go-ethereum/rlp"

	"github.com/rony4d/go-relay-accord/inter"
)

// Storage layout. Entities are RLP records under a one-byte table prefix
// followed by a big-endian id or an account, so iteration order is id order.
var (
	planPrefix         = []byte("p") // plan id -> inter.Plan
	subscriptionPrefix = []byte("s") // subscription id -> inter.Subscription
	reportPrefix       = []byte("r") // report id -> inter.Report
	stakePrefix        = []byte("k") // relayer -> amount
	counterPrefix      = []byte("n") // counter name -> last issued id
	pairIndexPrefix    = []byte("x") // relayer ++ subscriber -> []subscription id
	relayerIndexPrefix = []byte("y") // relayer -> []subscription id
	planIndexPrefix    = []byte("z") // plan id -> []subscription id
	latestPlanPrefix   = []byte("l") // relayer -> latest plan id
	rolePrefix         = []byte("o") // role name -> account
	roleLogPrefix      = []byte("a") // seq -> inter.RoleChange

	unsettledKey   = []byte("U") // []subscription id awaiting settlement
	openReportsKey = []byte("O") // []report id still open
	ownerKey       = []byte("W")
	treasuryKey    = []byte("T")
)

const (
	planCounter         = "plan"
	subscriptionCounter = "subscription"
	reportCounter       = "report"
	roleChangeCounter   = "role-change"
)

func idKey(prefix []byte, id uint64) []byte {
	key := make([]byte, 0, len(prefix)+8)
	key = append(key, prefix...)
	return append(key, bigendian.Uint64ToBytes(id)...)
}

func accountKey(prefix []byte, accs ...common.Address) []byte {
	key := make([]byte, 0, len(prefix)+len(accs)*common.AddressLength)
	key = append(key, prefix...)
	for _, acc := range accs {
		key = append(key, acc.Bytes()...)
	}
	return key
}

func nameKey(prefix []byte, name string) []byte {
	return append(append([]byte{}, prefix...), name...)
}

// stateTx is a copy-on-write overlay over the ledger store. Reads fall
// through to the store, writes stay in memory until commit, so a call that
// fails halfway leaves nothing behind.
type stateTx struct {
	db    ethdb.KeyValueReader
	dirty map[string][]byte

	// events are published only if the call commits
	events []inter.Event
	// notices are published whatever the outcome
	notices []inter.Event
}

func newStateTx(db ethdb.KeyValueReader) *stateTx {
	return &stateTx{db: db, dirty: make(map[string][]byte)}
}

func (tx *stateTx) emit(ev inter.Event) {
	tx.events = append(tx.events, ev)
}

func (tx *stateTx) notify(ev inter.Event) {
	tx.notices = append(tx.notices, ev)
}

func (tx *stateTx) get(key []byte) ([]byte, error) {
	if enc, ok := tx.dirty[string(key)]; ok {
		return enc, nil
	}
	ok, err := tx.db.Has(key)
	if err != nil || !ok {
		return nil, err
	}
	return tx.db.Get(key)
}

func (tx *stateTx) put(key, value []byte) {
	tx.dirty[string(key)] = value
}

func (tx *stateTx) getRLP(key []byte, out interface{}) (bool, error) {
	enc, err := tx.get(key)
	if err != nil {
		return false, fmt.Errorf("read %x: %w", key, err)
	}
	if enc == nil {
		return false, nil
	}
	if err := rlp.DecodeBytes(enc, out); err != nil {
		return false, fmt.Errorf("decode %x: %w", key, err)
	}
	return true, nil
}

func (tx *stateTx) putRLP(key []byte, v interface{}) error {
	enc, err := rlp.EncodeToBytes(v)
	if err != nil {
		return fmt.Errorf("encode %x: %w", key, err)
	}
	tx.put(key, enc)
	return nil
}

// commit writes the overlay into db as one batch.
func (tx *stateTx) commit(db ethdb.KeyValueStore) error {
	if len(tx.dirty) == 0 {
		return nil
	}
	batch := db.NewBatch()
	if err := tx.stage(batch); err != nil {
		return err
	}
	return batch.Write()
}

// stage copies the pending writes into w.
func (tx *stateTx) stage(w ethdb.KeyValueWriter) error {
	for key, value := range tx.dirty {
		if err := w.Put([]byte(key), value); err != nil {
			return err
		}
	}
	return nil
}

func (tx *stateTx) uint64At(key []byte) (uint64, error) {
	enc, err := tx.get(key)
	if err != nil {
		return 0, fmt.Errorf("read %x: %w", key, err)
	}
	if enc == nil {
		return 0, nil
	}
	return bigendian.BytesToUint64(enc), nil
}

func (tx *stateTx) putUint64(key []byte, v uint64) {
	tx.put(key, bigendian.Uint64ToBytes(v))
}

// counter returns the last id issued under name, 0 if none was.
func (tx *stateTx) counter(name string) (uint64, error) {
	return tx.uint64At(nameKey(counterPrefix, name))
}

// nextID issues the next id under name. Ids start at 1.
func (tx *stateTx) nextID(name string) (uint64, error) {
	last, err := tx.counter(name)
	if err != nil {
		return 0, err
	}
	next := last + 1
	tx.putUint64(nameKey(counterPrefix, name), next)
	return next, nil
}

func (tx *stateTx) ids(key []byte) ([]uint64, error) {
	var ids []uint64
	if _, err := tx.getRLP(key, &ids); err != nil {
		return nil, err
	}
	return ids, nil
}

func (tx *stateTx) putIDs(key []byte, ids []uint64) error {
	if ids == nil {
		ids = []uint64{}
	}
	return tx.putRLP(key, ids)
}

func (tx *stateTx) appendID(key []byte, id uint64) error {
	ids, err := tx.ids(key)
	if err != nil {
		return err
	}
	return tx.putIDs(key, append(ids, id))
}

func sortIDs(ids []uint64) {
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
}

func (tx *stateTx) account(key []byte) (common.Address, error) {
	enc, err := tx.get(key)
	if err != nil {
		return common.Address{}, fmt.Errorf("read %x: %w", key, err)
	}
	if enc == nil {
		return common.Address{}, nil
	}
	return inter.AccountFromBytes(enc), nil
}

func (tx *stateTx) putAccount(key []byte, acc common.Address) {
	tx.put(key, acc.Bytes())
}

func (tx *stateTx) plan(id uint64) (*inter.Plan, error) {
	plan := new(inter.Plan)
	ok, err := tx.getRLP(idKey(planPrefix, id), plan)
	if err != nil || !ok {
		return nil, err
	}
	return plan, nil
}

func (tx *stateTx) putPlan(plan *inter.Plan) error {
	return tx.putRLP(idKey(planPrefix, plan.ID), plan)
}

func (tx *stateTx) subscription(id uint64) (*inter.Subscription, error) {
	sub := new(inter.Subscription)
	ok, err := tx.getRLP(idKey(subscriptionPrefix, id), sub)
	if err != nil {
		return nil, err
	}
	if !ok {
		// indexes only ever reference stored subscriptions
		return nil, fmt.Errorf("subscription %d is indexed but missing", id)
	}
	return sub, nil
}

func (tx *stateTx) putSubscription(sub *inter.Subscription) error {
	return tx.putRLP(idKey(subscriptionPrefix, sub.ID), sub)
}

func (tx *stateTx) subscriptions(ids []uint64) ([]*inter.Subscription, error) {
	subs := make([]*inter.Subscription, 0, len(ids))
	for _, id := range ids {
		sub, err := tx.subscription(id)
		if err != nil {
			return nil, err
		}
		subs = append(subs, sub)
	}
	return subs, nil
}

func (tx *stateTx) report(id uint64) (*inter.Report, error) {
	rep := new(inter.Report)
	ok, err := tx.getRLP(idKey(reportPrefix, id), rep)
	if err != nil || !ok {
		return nil, err
	}
	return rep, nil
}

func (tx *stateTx) putReport(rep *inter.Report) error {
	return tx.putRLP(idKey(reportPrefix, rep.ID), rep)
}

// stake returns the stake of relayer, zero when it never staked.
func (tx *stateTx) stake(relayer common.Address) (*big.Int, error) {
	amount := new(big.Int)
	if _, err := tx.getRLP(accountKey(stakePrefix, relayer), amount); err != nil {
		return nil, err
	}
	return amount, nil
}

func (tx *stateTx) putStake(relayer common.Address, amount *big.Int) error {
	return tx.putRLP(accountKey(stakePrefix, relayer), amount)
}
