// Package mining signals reputation-mining cycle boundaries to the external miner.
// Cycle computation itself happens elsewhere; the network only says when a cycle
// starts and when it advances.
package mining

import (
	"context"
	"sync"
	"time"
)

type EventKind string

const (
	EventInitialised EventKind = "INITIALISED"
	EventAdvanced    EventKind = "ADVANCED"
)

// Event is one cycle boundary.
type Event struct {
	Kind  EventKind `json:"kind"`
	Cycle uint64    `json:"cycle"`
	At    time.Time `json:"at"`
}

// Scheduler receives cycle boundaries. Implementations must not call back into the network.
type Scheduler interface {
	InitialiseCycle(ctx context.Context, cycle uint64) error
	AdvanceCycle(ctx context.Context, cycle uint64) error
}

// MemoryScheduler records events in process.
type MemoryScheduler struct {
	mu     sync.Mutex
	events []Event
	clock  func() time.Time
}

func NewMemoryScheduler() *MemoryScheduler {
	return &MemoryScheduler{clock: time.Now}
}

// WithClock overrides clock for testing.
func (s *MemoryScheduler) WithClock(clock func() time.Time) *MemoryScheduler {
	s.clock = clock
	return s
}

func (s *MemoryScheduler) InitialiseCycle(ctx context.Context, cycle uint64) error {
	return s.record(EventInitialised, cycle)
}

func (s *MemoryScheduler) AdvanceCycle(ctx context.Context, cycle uint64) error {
	return s.record(EventAdvanced, cycle)
}

func (s *MemoryScheduler) record(kind EventKind, cycle uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, Event{Kind: kind, Cycle: cycle, At: s.clock()})
	return nil
}

// Events returns a copy of everything recorded.
func (s *MemoryScheduler) Events() []Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Event(nil), s.events...)
}
