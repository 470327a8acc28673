package bridge

import (
	"context"
	"sync"

	"gomosbridge/types"

	"github.com/pkg/errors"
)

// MemoryStore keeps committed state, events and dispatches in process. It
// backs tests and single-node runs without Redis.
type MemoryStore struct {
	mu         sync.Mutex
	state      *State
	events     []types.Envelope
	dispatches []*types.Dispatch
	byID       map[string]*types.Dispatch

	// FailCommit, when set, is returned by the next Commit without writing.
	FailCommit error
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{state: NewState(), byID: make(map[string]*types.Dispatch)}
}

func (m *MemoryStore) Load(context.Context) (*State, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.Clone(), nil
}

func (m *MemoryStore) Commit(_ context.Context, c *Changes) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.FailCommit; err != nil {
		m.FailCommit = nil
		return err
	}
	// the store keeps its own copy, the service applies c to its state too
	cp := m.state.Clone()
	cp.apply(c)
	m.state = cp.Clone()
	m.events = append(m.events, c.Events...)
	for _, d := range c.Dispatches {
		dc := *d
		m.dispatches = append(m.dispatches, &dc)
		m.byID[d.ID] = &dc
	}
	return nil
}

// Events returns up to limit events starting at offset, oldest first.
func (m *MemoryStore) Events(_ context.Context, offset, limit int) ([]types.Envelope, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if offset >= len(m.events) {
		return nil, nil
	}
	end := len(m.events)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	out := make([]types.Envelope, end-offset)
	copy(out, m.events[offset:end])
	return out, nil
}

func (m *MemoryStore) PendingDispatches(_ context.Context, limit int) ([]*types.Dispatch, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*types.Dispatch
	for _, d := range m.dispatches {
		if d.Status != types.DispatchPending {
			continue
		}
		dc := *d
		out = append(out, &dc)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func (m *MemoryStore) GetDispatch(_ context.Context, id string) (*types.Dispatch, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.byID[id]
	if !ok {
		return nil, errors.Errorf("dispatch %s not found", id)
	}
	dc := *d
	return &dc, nil
}

func (m *MemoryStore) UpdateDispatch(_ context.Context, d *types.Dispatch) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.byID[d.ID]
	if !ok {
		return errors.Errorf("dispatch %s not found", d.ID)
	}
	*cur = *d
	return nil
}

func (m *MemoryStore) DispatchCounts(context.Context) (map[string]int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	counts := map[string]int{
		types.DispatchPending:   0,
		types.DispatchExecuting: 0,
		types.DispatchSuccess:   0,
		types.DispatchFailed:    0,
	}
	for _, d := range m.dispatches {
		counts[d.Status]++
	}
	return counts, nil
}
