package provider

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Attempt is one recorded provider call attempt. The log is observability
// only; task state never reads from it.
type Attempt struct {
	ID       string        `json:"id"`
	Provider string        `json:"provider"`
	Method   string        `json:"method"`
	Outcome  string        `json:"outcome"`
	Latency  time.Duration `json:"latency_ns"`
	At       time.Time     `json:"at"`
}

// CallLog is an append-only record of every call attempt across all
// providers. Safe for concurrent use.
type CallLog struct {
	mu       sync.Mutex
	attempts []Attempt
}

func NewCallLog() *CallLog {
	return &CallLog{}
}

// Append records one attempt, assigning it an id.
func (l *CallLog) Append(provider, method, outcome string, latency time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.attempts = append(l.attempts, Attempt{
		ID:       uuid.New().String(),
		Provider: provider,
		Method:   method,
		Outcome:  outcome,
		Latency:  latency,
		At:       time.Now(),
	})
}

// Snapshot returns a copy of all recorded attempts in append order.
func (l *CallLog) Snapshot() []Attempt {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Attempt, len(l.attempts))
	copy(out, l.attempts)
	return out
}

// Len returns the number of recorded attempts.
func (l *CallLog) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.attempts)
}
