package bridge

import (
	"math/big"

	"gomosbridge/types"

	"github.com/ethereum/go-ethereum/common"
)

// Settings are the scalar fields of the bridge state.
type Settings struct {
	Owner        string         `json:"owner"`
	LightClient  string         `json:"light_client"`
	RelayAddress common.Address `json:"relay_address"`
	LocalChainID uint64         `json:"local_chain_id,string"`
	RelayChainID uint64         `json:"relay_chain_id,string"`
	Nonce        uint64         `json:"nonce,string"`
	Paused       PauseMask      `json:"paused"`
	CodeHash     common.Hash    `json:"code_hash"`
}

type LostFoundKey struct {
	Account string
	Token   string
}

// State is the committed bridge state. It is only mutated by apply, after
// the store accepted the matching Changes.
type State struct {
	Settings   Settings
	ChainTypes map[uint64]types.ChainType
	Tokens     map[string]*types.TokenRecord
	Registered map[string]bool
	UsedEvents map[common.Hash]struct{}
	AmountOut  map[string]*big.Int
	LostFound  map[LostFoundKey]*big.Int
}

func NewState() *State {
	return &State{
		ChainTypes: make(map[uint64]types.ChainType),
		Tokens:     make(map[string]*types.TokenRecord),
		Registered: make(map[string]bool),
		UsedEvents: make(map[common.Hash]struct{}),
		AmountOut:  make(map[string]*big.Int),
		LostFound:  make(map[LostFoundKey]*big.Int),
	}
}

func (s *State) Clone() *State {
	c := NewState()
	c.Settings = s.Settings
	for id, ct := range s.ChainTypes {
		c.ChainTypes[id] = ct
	}
	for id, rec := range s.Tokens {
		c.Tokens[id] = rec.Clone()
	}
	for id, ok := range s.Registered {
		c.Registered[id] = ok
	}
	for fp := range s.UsedEvents {
		c.UsedEvents[fp] = struct{}{}
	}
	for acc, v := range s.AmountOut {
		c.AmountOut[acc] = new(big.Int).Set(v)
	}
	for k, v := range s.LostFound {
		c.LostFound[k] = new(big.Int).Set(v)
	}
	return c
}

// Changes is everything one request writes. Stores persist it as one unit.
type Changes struct {
	Settings   *Settings
	ChainTypes map[uint64]types.ChainType
	Tokens     map[string]*types.TokenRecord
	Registered map[string]bool
	UsedEvents []common.Hash
	AmountOut  map[string]*big.Int // absolute values, zero means consumed
	LostFound  map[LostFoundKey]*big.Int // zero means released
	Events     []types.Envelope
	Dispatches []*types.Dispatch
}

func (c *Changes) Empty() bool {
	return c.Settings == nil && len(c.ChainTypes) == 0 && len(c.Tokens) == 0 &&
		len(c.Registered) == 0 && len(c.UsedEvents) == 0 && len(c.AmountOut) == 0 &&
		len(c.LostFound) == 0 && len(c.Events) == 0 && len(c.Dispatches) == 0
}

func (s *State) apply(c *Changes) {
	if c.Settings != nil {
		s.Settings = *c.Settings
	}
	for id, ct := range c.ChainTypes {
		s.ChainTypes[id] = ct
	}
	for id, rec := range c.Tokens {
		s.Tokens[id] = rec
	}
	for id, ok := range c.Registered {
		s.Registered[id] = ok
	}
	for _, fp := range c.UsedEvents {
		s.UsedEvents[fp] = struct{}{}
	}
	for acc, v := range c.AmountOut {
		if v.Sign() == 0 {
			delete(s.AmountOut, acc)
			continue
		}
		s.AmountOut[acc] = v
	}
	for k, v := range c.LostFound {
		if v.Sign() == 0 {
			delete(s.LostFound, k)
			continue
		}
		s.LostFound[k] = v
	}
}

// Apply is used by stores that rebuild state from committed changes.
func (s *State) Apply(c *Changes) {
	s.apply(c)
}
