package models

import "time"

// TaskStatus is the lifecycle state of a task. Transitions are
// pending -> running -> completed|failed; terminal states are final.
type TaskStatus string

const (
	StatusPending   TaskStatus = "pending"
	StatusRunning   TaskStatus = "running"
	StatusCompleted TaskStatus = "completed"
	StatusFailed    TaskStatus = "failed"
)

// Terminal reports whether the status is final.
func (s TaskStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// OperationResult is the settled outcome of one provider operation. Exactly
// one of Value and Err is set.
type OperationResult struct {
	Provider string         `json:"provider"`
	Method   string         `json:"method"`
	Value    any            `json:"value,omitempty"`
	Err      *ProviderError `json:"error,omitempty"`
	Latency  time.Duration  `json:"latency_ns"`
}

// OK reports whether the operation succeeded.
func (r OperationResult) OK() bool {
	return r.Err == nil
}

// Summary is the synthesized overall result of a settled task, produced by
// the in-process post-step.
type Summary struct {
	Text       string    `json:"text"`
	Operations []string  `json:"operations"`
	Succeeded  int       `json:"succeeded"`
	Failed     int       `json:"failed"`
	Timestamp  time.Time `json:"timestamp"`
}

// Task is the unit of work spanning one or more operations. It is created
// when an instruction is accepted, mutated only while running, and becomes
// immutable once it reaches a terminal status.
type Task struct {
	ID          int64                      `json:"id"`
	Description string                     `json:"description"`
	Operations  []Operation                `json:"operations"`
	Status      TaskStatus                 `json:"status"`
	Results     map[string]OperationResult `json:"results"`
	Result      *Summary                   `json:"result,omitempty"`
	CreatedAt   time.Time                  `json:"created_at"`
	CompletedAt *time.Time                 `json:"completed_at,omitempty"`
}

// NewTask creates a pending task with an empty result set.
func NewTask(id int64, description string) *Task {
	return &Task{
		ID:          id,
		Description: description,
		Status:      StatusPending,
		Results:     make(map[string]OperationResult),
		CreatedAt:   time.Now(),
	}
}

// ProviderOperations returns the operations that target a provider, in plan
// order, excluding the in-process post-step.
func (t *Task) ProviderOperations() []Operation {
	ops := make([]Operation, 0, len(t.Operations))
	for _, op := range t.Operations {
		if op.Kind != OpProcess {
			ops = append(ops, op)
		}
	}
	return ops
}
