package models

import "time"

// Goal is a standing objective owned by the orchestrator. Goals are advisory:
// they bias planning but are never themselves executed. Insertion order is the
// tie-break when several goals are equally relevant.
type Goal struct {
	Description string    `json:"description"`
	Priority    int       `json:"priority"`
	AddedAt     time.Time `json:"added_at"`
}

// MemoryEntry summarizes one settled task for the bounded memory store.
// Entries are never mutated after insertion.
type MemoryEntry struct {
	TaskID    int64     `json:"task_id"`
	Summary   string    `json:"summary"`
	Timestamp time.Time `json:"timestamp"`
}
