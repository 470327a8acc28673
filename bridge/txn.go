package bridge

import (
	"math/big"
	"time"

	"gomosbridge/types"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
)

// Txn buffers the writes of a single request on top of the committed state.
// Reads fall through to the base state; nothing reaches it until the store
// accepted the whole buffer.
type Txn struct {
	base *State

	settings      Settings
	settingsDirty bool

	chainTypes map[uint64]types.ChainType
	tokens     map[string]*types.TokenRecord
	registered map[string]bool
	usedEvents map[common.Hash]struct{}
	usedOrder  []common.Hash
	amountOut  map[string]*big.Int
	lostFound  map[LostFoundKey]*big.Int

	events     []types.Event
	dispatches []*types.Dispatch
}

func newTxn(base *State) *Txn {
	return &Txn{
		base:       base,
		settings:   base.Settings,
		chainTypes: make(map[uint64]types.ChainType),
		tokens:     make(map[string]*types.TokenRecord),
		registered: make(map[string]bool),
		usedEvents: make(map[common.Hash]struct{}),
		amountOut:  make(map[string]*big.Int),
		lostFound:  make(map[LostFoundKey]*big.Int),
	}
}

func (t *Txn) updateSettings(fn func(s *Settings)) {
	fn(&t.settings)
	t.settingsDirty = true
}

func (t *Txn) chainType(id uint64) (types.ChainType, bool) {
	if ct, ok := t.chainTypes[id]; ok {
		return ct, true
	}
	ct, ok := t.base.ChainTypes[id]
	return ct, ok
}

func (t *Txn) setChainType(id uint64, ct types.ChainType) {
	t.chainTypes[id] = ct
}

func (t *Txn) token(id string) (*types.TokenRecord, bool) {
	if rec, ok := t.tokens[id]; ok {
		return rec, true
	}
	rec, ok := t.base.Tokens[id]
	return rec, ok
}

// tokenForUpdate returns a private copy of the record that is written back on commit.
func (t *Txn) tokenForUpdate(id string) (*types.TokenRecord, bool) {
	if rec, ok := t.tokens[id]; ok {
		return rec, true
	}
	rec, ok := t.base.Tokens[id]
	if !ok {
		return nil, false
	}
	c := rec.Clone()
	t.tokens[id] = c
	return c, true
}

func (t *Txn) putToken(id string, rec *types.TokenRecord) {
	t.tokens[id] = rec
}

func (t *Txn) isRegistered(id string) bool {
	if ok, found := t.registered[id]; found {
		return ok
	}
	return t.base.Registered[id]
}

func (t *Txn) setRegistered(id string, ok bool) {
	t.registered[id] = ok
}

func (t *Txn) isUsed(fp common.Hash) bool {
	if _, ok := t.usedEvents[fp]; ok {
		return true
	}
	_, ok := t.base.UsedEvents[fp]
	return ok
}

func (t *Txn) markUsed(fp common.Hash) {
	t.usedEvents[fp] = struct{}{}
	t.usedOrder = append(t.usedOrder, fp)
}

func (t *Txn) amountOutOf(account string) *big.Int {
	if v, ok := t.amountOut[account]; ok {
		return new(big.Int).Set(v)
	}
	if v, ok := t.base.AmountOut[account]; ok {
		return new(big.Int).Set(v)
	}
	return new(big.Int)
}

func (t *Txn) setAmountOut(account string, v *big.Int) {
	t.amountOut[account] = v
}

func (t *Txn) lostFoundOf(k LostFoundKey) *big.Int {
	if v, ok := t.lostFound[k]; ok {
		return new(big.Int).Set(v)
	}
	if v, ok := t.base.LostFound[k]; ok {
		return new(big.Int).Set(v)
	}
	return new(big.Int)
}

func (t *Txn) setLostFound(k LostFoundKey, v *big.Int) {
	t.lostFound[k] = v
}

func (t *Txn) emit(ev types.Event) {
	t.events = append(t.events, ev)
}

func (t *Txn) dispatch(d *types.Dispatch) *types.Dispatch {
	d.ID = uuid.New().String()
	d.Status = types.DispatchPending
	t.dispatches = append(t.dispatches, d)
	return d
}

func (t *Txn) changes(now time.Time) *Changes {
	c := &Changes{}
	if t.settingsDirty {
		s := t.settings
		c.Settings = &s
	}
	if len(t.chainTypes) > 0 {
		c.ChainTypes = t.chainTypes
	}
	if len(t.tokens) > 0 {
		c.Tokens = t.tokens
	}
	if len(t.registered) > 0 {
		c.Registered = t.registered
	}
	c.UsedEvents = t.usedOrder
	if len(t.amountOut) > 0 {
		c.AmountOut = t.amountOut
	}
	if len(t.lostFound) > 0 {
		c.LostFound = t.lostFound
	}
	for _, ev := range t.events {
		c.Events = append(c.Events, types.Envelope{
			ID:        uuid.New().String(),
			Kind:      ev.Kind(),
			EmittedAt: now.Unix(),
			Data:      ev,
		})
	}
	for _, d := range t.dispatches {
		d.TsCreated = now.Unix()
	}
	c.Dispatches = t.dispatches
	return c
}
