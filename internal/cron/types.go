// Package cron implements the persistent time-based job scheduler.
//
// Jobs live in a single JSON store loaded whole at startup. The
// scheduler knows nothing about the agent: firing a job invokes a
// callback supplied at construction.
package cron

// Schedule kinds.
const (
	KindAt    = "at"    // run once at a fixed timestamp
	KindEvery = "every" // fixed interval
	KindCron  = "cron"  // cron expression
)

// Payload kinds.
const (
	PayloadAgentTurn   = "agent_turn"
	PayloadSystemEvent = "system_event"
	PayloadFlowTrigger = "flow_trigger"
)

// Job statuses.
const (
	StatusPending = "pending"
	StatusRunning = "running"
	StatusOK      = "ok"
	StatusError   = "error"
	StatusSkipped = "skipped"
)

// Schedule defines when a job fires. Exactly one of the kind-specific
// field groups is meaningful.
type Schedule struct {
	Kind string `json:"kind"`

	// kind=at
	AtMs int64 `json:"at_ms,omitempty"`

	// kind=every
	EveryMs int64 `json:"every_ms,omitempty"`

	// kind=cron
	Expr string `json:"expr,omitempty"`
	Tz   string `json:"tz,omitempty"`
}

// Payload defines what happens when a job fires.
type Payload struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`

	// Delivery routing for the agent's reply.
	Deliver bool   `json:"deliver,omitempty"`
	Channel string `json:"channel,omitempty"`
	To      string `json:"to,omitempty"`
}

// JobState is the runtime lifecycle of a job.
type JobState struct {
	NextRunAtMs int64  `json:"next_run_at_ms,omitempty"`
	LastRunAtMs int64  `json:"last_run_at_ms,omitempty"`
	LastStatus  string `json:"last_status,omitempty"`
	LastError   string `json:"last_error,omitempty"`
	RunCount    int    `json:"run_count"`
}

// Job is the atomic scheduling unit.
type Job struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Enabled bool   `json:"enabled"`

	Schedule Schedule `json:"schedule"`
	Payload  Payload  `json:"payload"`
	State    JobState `json:"state"`

	CreatedAtMs int64 `json:"created_at_ms"`
	UpdatedAtMs int64 `json:"updated_at_ms"`

	// One-shot jobs are removed after firing when set; disabled otherwise.
	DeleteAfterRun bool `json:"delete_after_run,omitempty"`
}

// Store is the serialized job collection. Job order is insertion order
// and determines due-set execution order.
type Store struct {
	Version int    `json:"version"`
	Jobs    []*Job `json:"jobs"`
}
