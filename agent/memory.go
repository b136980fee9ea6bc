// Bounded conversation memory.
//
// Information Hiding:
// - Trimming policy hidden
// - Locking discipline hidden; runs only contend here, never on the loop

package agent

import (
	"sync"

	"github.com/richinex/apiagent/model"
)

// DefaultMaxHistoryPairs is used when a non-positive cap is configured.
const DefaultMaxHistoryPairs = 10

// Memory is an ordered message log capped at 2 × maxPairs entries.
// The oldest messages are discarded first.
type Memory struct {
	mu       sync.Mutex
	messages []model.Message
	maxPairs int
}

// NewMemory creates an empty memory keeping at most maxPairs exchanges.
func NewMemory(maxPairs int) *Memory {
	if maxPairs <= 0 {
		maxPairs = DefaultMaxHistoryPairs
	}
	return &Memory{maxPairs: maxPairs}
}

// Capacity returns the maximum number of retained messages.
func (m *Memory) Capacity() int {
	return 2 * m.maxPairs
}

// AddMessage appends msg and trims from the front past capacity.
func (m *Memory) AddMessage(msg model.Message) {
	m.Commit(msg)
}

// Commit appends msgs as one atomic update.
func (m *Memory) Commit(msgs ...model.Message) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.messages = append(m.messages, msgs...)
	if limit := m.Capacity(); len(m.messages) > limit {
		kept := make([]model.Message, limit)
		copy(kept, m.messages[len(m.messages)-limit:])
		m.messages = kept
	}
}

// History returns a copy of the retained messages, oldest first.
func (m *Memory) History() []model.Message {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]model.Message, len(m.messages))
	copy(out, m.messages)
	return out
}

// Len returns the number of retained messages.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.messages)
}

// Clear empties the memory.
func (m *Memory) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages = nil
}
