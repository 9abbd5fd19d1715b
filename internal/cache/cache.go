// Package cache holds the Manager's releasable snapshot of the full song
// collection.
package cache

import (
	"runtime"
	"sync"
)

// Policy decides whether a published snapshot may still be served.
type Policy interface {
	// Evict reports whether the snapshot should be dropped before a read.
	Evict() bool
	Name() string
}

// ExplicitPolicy never evicts; snapshots live until Invalidate.
type ExplicitPolicy struct{}

func (ExplicitPolicy) Evict() bool  { return false }
func (ExplicitPolicy) Name() string { return "explicit" }

// MemoryPressurePolicy evicts when the live heap exceeds LimitBytes.
type MemoryPressurePolicy struct {
	LimitBytes uint64

	// ReadHeap returns the current heap size. Nil reads runtime.MemStats.
	ReadHeap func() uint64
}

// NewMemoryPressurePolicy returns a policy with a limit in megabytes.
func NewMemoryPressurePolicy(limitMB int) *MemoryPressurePolicy {
	return &MemoryPressurePolicy{LimitBytes: uint64(limitMB) << 20}
}

func (p *MemoryPressurePolicy) Evict() bool {
	read := p.ReadHeap
	if read == nil {
		read = heapAlloc
	}
	return read() > p.LimitBytes
}

func (p *MemoryPressurePolicy) Name() string { return "memory" }

func heapAlloc() uint64 {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	return ms.HeapAlloc
}

// PolicyByName maps a configured policy name to a Policy. Unknown names
// fall back to ExplicitPolicy.
func PolicyByName(name string, memoryLimitMB int) Policy {
	if name == "memory" {
		return NewMemoryPressurePolicy(memoryLimitMB)
	}
	return ExplicitPolicy{}
}

// Snapshot holds at most one published slice. Published slices are never
// mutated; Put replaces the whole value.
type Snapshot[T any] struct {
	mu        sync.Mutex
	items     []T
	present   bool
	policy    Policy
	evictions int
}

// NewSnapshot returns an empty snapshot governed by policy.
// A nil policy means ExplicitPolicy.
func NewSnapshot[T any](policy Policy) *Snapshot[T] {
	if policy == nil {
		policy = ExplicitPolicy{}
	}
	return &Snapshot[T]{policy: policy}
}

// Get returns the published slice, or false when absent or evicted.
func (s *Snapshot[T]) Get() ([]T, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.present {
		return nil, false
	}
	if s.policy.Evict() {
		s.items, s.present = nil, false
		s.evictions++
		return nil, false
	}
	return s.items, true
}

// Put publishes items. The caller must not modify items afterwards.
func (s *Snapshot[T]) Put(items []T) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items, s.present = items, true
}

// Invalidate drops the published slice. Slices already handed out by Get
// are unaffected.
func (s *Snapshot[T]) Invalidate() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items, s.present = nil, false
}

// Peek returns the published slice without consulting the policy.
func (s *Snapshot[T]) Peek() ([]T, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.items, s.present
}

// Present reports whether a slice is published, without consulting the policy.
func (s *Snapshot[T]) Present() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.present
}

// Evictions returns how many times the policy dropped the snapshot.
func (s *Snapshot[T]) Evictions() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.evictions
}

// PolicyName returns the name of the governing policy.
func (s *Snapshot[T]) PolicyName() string {
	return s.policy.Name()
}
