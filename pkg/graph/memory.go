package graph

import (
	"context"
	"fmt"
	"sync"
)

// MemoryStore is an in-process Store used for local development and tests.
// It follows the same semantics as the Neo4j store.
type MemoryStore struct {
	mu          sync.RWMutex
	nodes       map[int64]InsuredNode
	phones      map[string]map[int64]struct{}
	addresses   map[string]map[int64]struct{}
	unavailable bool
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates an empty in-memory graph.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		nodes:     make(map[int64]InsuredNode),
		phones:    make(map[string]map[int64]struct{}),
		addresses: make(map[string]map[int64]struct{}),
	}
}

// SetUnavailable simulates an outage: every call fails with ErrUnavailable.
func (m *MemoryStore) SetUnavailable(down bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.unavailable = down
}

// UpsertInsured implements Store.
func (m *MemoryStore) UpsertInsured(ctx context.Context, n InsuredNode) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	n = n.normalized()

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.unavailable {
		return fmt.Errorf("upsert insured %d: %w", n.ID, ErrUnavailable)
	}

	m.detach(n.ID)
	m.nodes[n.ID] = n
	if n.Phone != "" {
		link(m.phones, n.Phone, n.ID)
	}
	if n.Address != "" {
		link(m.addresses, n.Address, n.ID)
	}
	return nil
}

// DeleteInsured implements Store.
func (m *MemoryStore) DeleteInsured(ctx context.Context, id int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.unavailable {
		return fmt.Errorf("delete insured %d: %w", id, ErrUnavailable)
	}
	m.detach(id)
	return nil
}

// ComputeOverlapScore implements Store.
func (m *MemoryStore) ComputeOverlapScore(ctx context.Context, id int64) (Overlap, error) {
	if err := ctx.Err(); err != nil {
		return Overlap{}, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.unavailable {
		return Overlap{}, fmt.Errorf("overlap for insured %d: %w", id, ErrUnavailable)
	}

	n, ok := m.nodes[id]
	if !ok {
		return Overlap{}, nil
	}

	var o Overlap
	if n.Phone != "" {
		o.PhoneOverlaps = len(m.phones[n.Phone]) - 1
	}
	if n.Address != "" {
		o.AddressOverlaps = len(m.addresses[n.Address]) - 1
	}
	return o, nil
}

// PruneOrphanAttributes implements Store. Attribute entries are dropped as soon
// as their last owner detaches, so there is never anything to prune.
func (m *MemoryStore) PruneOrphanAttributes(ctx context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.unavailable {
		return 0, fmt.Errorf("prune attributes: %w", ErrUnavailable)
	}
	return 0, nil
}

// Ping implements Store.
func (m *MemoryStore) Ping(ctx context.Context) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.unavailable {
		return ErrUnavailable
	}
	return nil
}

// Close implements Store.
func (m *MemoryStore) Close(ctx context.Context) error {
	return nil
}

// Len returns the number of insured nodes.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.nodes)
}

// Has reports whether a node exists for id.
func (m *MemoryStore) Has(id int64) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.nodes[id]
	return ok
}

// detach removes id and its attribute links. Callers hold m.mu.
func (m *MemoryStore) detach(id int64) {
	old, ok := m.nodes[id]
	if !ok {
		return
	}
	unlink(m.phones, old.Phone, id)
	unlink(m.addresses, old.Address, id)
	delete(m.nodes, id)
}

func link(index map[string]map[int64]struct{}, key string, id int64) {
	owners, ok := index[key]
	if !ok {
		owners = make(map[int64]struct{})
		index[key] = owners
	}
	owners[id] = struct{}{}
}

func unlink(index map[string]map[int64]struct{}, key string, id int64) {
	owners, ok := index[key]
	if !ok {
		return
	}
	delete(owners, id)
	if len(owners) == 0 {
		delete(index, key)
	}
}
