package bridge

import (
	"context"
	"encoding/json"
	"math/big"
	"sync"
	"time"

	"gomosbridge/types"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// Store is the persistent substrate. Commit must write all of Changes or
// nothing.
type Store interface {
	Load(ctx context.Context) (*State, error)
	Commit(ctx context.Context, c *Changes) error
}

// Emitter publishes committed events to relayers and indexers.
type Emitter interface {
	Emit(ctx context.Context, events []types.Envelope) error
}

// LogEmitter writes every event as an EVENT_JSON log line.
type LogEmitter struct {
	Logger *logrus.Logger
}

func (e *LogEmitter) Emit(_ context.Context, events []types.Envelope) error {
	for _, ev := range events {
		data, err := json.Marshal(ev)
		if err != nil {
			return errors.Wrapf(err, "marshal event %s", ev.ID)
		}
		e.Logger.WithField("kind", ev.Kind).Info("EVENT_JSON:" + string(data))
	}
	return nil
}

type MultiEmitter []Emitter

func (m MultiEmitter) Emit(ctx context.Context, events []types.Envelope) error {
	var firstErr error
	for _, e := range m {
		if err := e.Emit(ctx, events); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// Result is what a committed request produced.
type Result struct {
	OrderID    common.Hash       `json:"order_id,omitempty"`
	Unused     *big.Int          `json:"unused,omitempty"`
	Events     []types.Envelope  `json:"events"`
	Dispatches []*types.Dispatch `json:"dispatches,omitempty"`
}

// Service runs every request to completion, one at a time. A request works
// on a Txn; its Changes reach the store in one Commit and only then the
// in-memory state and the emitter.
type Service struct {
	mu      sync.Mutex
	state   *State
	store   Store
	fees    FeePolicy
	emitter Emitter
	logger  *logrus.Logger
	now     func() time.Time
}

func New(ctx context.Context, store Store, fees FeePolicy, emitter Emitter, logger *logrus.Logger) (*Service, error) {
	st, err := store.Load(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "load bridge state")
	}
	if fees == nil {
		fees = NoFee{}
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	if emitter == nil {
		emitter = &LogEmitter{Logger: logger}
	}
	return &Service{
		state:   st,
		store:   store,
		fees:    fees,
		emitter: emitter,
		logger:  logger,
		now:     time.Now,
	}, nil
}

func (s *Service) execute(ctx context.Context, op string, fn func(t *Txn) error) (*Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t := newTxn(s.state)
	if err := fn(t); err != nil {
		s.logger.WithFields(logrus.Fields{"op": op, "error": err.Error()}).Warn("request rejected")
		return nil, err
	}
	c := t.changes(s.now())
	res := &Result{Events: c.Events, Dispatches: c.Dispatches}
	if c.Empty() {
		return res, nil
	}
	if err := s.store.Commit(ctx, c); err != nil {
		s.logger.WithFields(logrus.Fields{"op": op, "error": err.Error()}).Error("commit failed")
		return nil, errors.Wrapf(err, "%s: commit", op)
	}
	s.state.apply(c)

	if len(c.Events) > 0 {
		if err := s.emitter.Emit(ctx, c.Events); err != nil {
			// events are already stored with the commit
			s.logger.WithFields(logrus.Fields{"op": op, "error": err.Error()}).Warn("emit failed")
		}
	}
	return res, nil
}

func (s *Service) view(fn func(t *Txn)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(newTxn(s.state))
}

// Snapshot returns a deep copy of the committed state.
func (s *Service) Snapshot() *State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Clone()
}

type GenesisToken struct {
	ID         string
	Kind       types.TokenKind
	ToChains   []uint64
	MinBalance *big.Int
	Decimals   uint8
	Registered bool
}

type Genesis struct {
	Owner        string
	LightClient  string
	RelayAddress common.Address
	LocalChainID uint64
	RelayChainID uint64
	Paused       PauseMask
	ChainTypes   map[uint64]types.ChainType
	Tokens       []GenesisToken
}

// Init writes the initial settings and registry. It runs once: a state with
// an owner is already initialized.
func (s *Service) Init(ctx context.Context, g Genesis) error {
	_, err := s.execute(ctx, "init", func(t *Txn) error {
		if t.settings.Owner != "" {
			return ErrAlreadyInitialized
		}
		if g.Owner == "" {
			return errors.Wrap(ErrInvalidArgument, "genesis owner is required")
		}
		if !g.Paused.Valid() {
			return errors.Wrapf(ErrInvalidArgument, "invalid pause mask %d", g.Paused)
		}
		t.updateSettings(func(st *Settings) {
			st.Owner = g.Owner
			st.LightClient = g.LightClient
			st.RelayAddress = g.RelayAddress
			st.LocalChainID = g.LocalChainID
			st.RelayChainID = g.RelayChainID
			st.Paused = g.Paused
		})
		for id, ct := range g.ChainTypes {
			t.setChainType(id, ct)
		}
		for _, gt := range g.Tokens {
			if err := t.registerToken(gt.ID, gt.Kind, gt.Decimals, gt.MinBalance); err != nil {
				return err
			}
			rec, _ := t.tokenForUpdate(gt.ID)
			for _, c := range gt.ToChains {
				rec.ToChains[c] = true
			}
			if gt.Registered {
				t.setRegistered(gt.ID, true)
			}
		}
		return nil
	})
	return err
}

func (s *Service) Initialized() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Settings.Owner != ""
}
