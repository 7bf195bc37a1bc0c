package models

import (
	"fmt"
	"time"
)

// Task actions understood by the scheduler.
const (
	TaskActionBackup  = "backup"
	TaskActionCommand = "command"
	TaskActionPower   = "power"
)

// TaskMaxTimeOffset caps the delay between sequential tasks, in seconds.
const TaskMaxTimeOffset = 900

// ValidationError describes a rejected input value.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed on %s: %s", e.Field, e.Message)
}

// Schedule is an ordered sequence of tasks attached to a server. Cron
// holds a standard five-field cron expression; NextRun is recomputed on
// every save.
type Schedule struct {
	ID        string     `json:"id"`
	ServerID  string     `json:"server_id"`
	Name      string     `json:"name"`
	Cron      string     `json:"cron"`
	IsActive  bool       `json:"is_active"`
	NextRun   *time.Time `json:"next_run,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// Task is one step of a schedule. Tasks do not reference their server
// directly; the server is reached through the owning schedule.
type Task struct {
	ID         int64     `json:"id"`
	ScheduleID string    `json:"schedule_id"`
	SequenceID int       `json:"sequence_id"`
	Action     string    `json:"action"`
	Payload    string    `json:"payload"`
	TimeOffset int       `json:"time_offset"`
	IsQueued   bool      `json:"is_queued"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Validate enforces the task invariants. Backups are the only action
// that runs without a payload.
func (t *Task) Validate() error {
	if t.ScheduleID == "" {
		return &ValidationError{Field: "schedule_id", Message: "is required"}
	}

	if t.SequenceID < 1 {
		return &ValidationError{Field: "sequence_id", Message: "must be 1 or greater"}
	}

	switch t.Action {
	case TaskActionBackup, TaskActionCommand, TaskActionPower:
	case "":
		return &ValidationError{Field: "action", Message: "is required"}
	default:
		return &ValidationError{Field: "action", Message: fmt.Sprintf("unknown action %q", t.Action)}
	}

	if t.Payload == "" && t.Action != TaskActionBackup {
		return &ValidationError{Field: "payload", Message: "is required unless action is backup"}
	}

	if t.TimeOffset < 0 || t.TimeOffset > TaskMaxTimeOffset {
		return &ValidationError{Field: "time_offset", Message: fmt.Sprintf("must be between 0 and %d", TaskMaxTimeOffset)}
	}

	return nil
}
