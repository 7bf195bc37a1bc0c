package models

import (
	"errors"
	"testing"
)

func TestTaskValidate(t *testing.T) {
	cases := []struct {
		name    string
		task    Task
		wantErr bool
	}{
		{"backup with empty payload", Task{ScheduleID: "sch", SequenceID: 1, Action: TaskActionBackup}, false},
		{"command with payload", Task{ScheduleID: "sch", SequenceID: 1, Action: TaskActionCommand, Payload: "say hi"}, false},
		{"command with empty payload", Task{ScheduleID: "sch", SequenceID: 1, Action: TaskActionCommand}, true},
		{"power with empty payload", Task{ScheduleID: "sch", SequenceID: 1, Action: TaskActionPower}, true},
		{"unknown action", Task{ScheduleID: "sch", SequenceID: 1, Action: "reboot", Payload: "x"}, true},
		{"missing action", Task{ScheduleID: "sch", SequenceID: 1}, true},
		{"sequence zero", Task{ScheduleID: "sch", SequenceID: 0, Action: TaskActionBackup}, true},
		{"missing schedule", Task{SequenceID: 1, Action: TaskActionBackup}, true},
		{"offset negative", Task{ScheduleID: "sch", SequenceID: 1, Action: TaskActionBackup, TimeOffset: -1}, true},
		{"offset at cap", Task{ScheduleID: "sch", SequenceID: 1, Action: TaskActionBackup, TimeOffset: 900}, false},
		{"offset over cap", Task{ScheduleID: "sch", SequenceID: 1, Action: TaskActionBackup, TimeOffset: 901}, true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.task.Validate()
			if tc.wantErr && err == nil {
				t.Fatal("expected validation error")
			}
			if !tc.wantErr && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if err != nil {
				var verr *ValidationError
				if !errors.As(err, &verr) {
					t.Fatalf("expected *ValidationError, got %T", err)
				}
			}
		})
	}
}

func TestBackupStateHelpers(t *testing.T) {
	pending := Backup{}
	if !pending.IsPending() {
		t.Fatal("backup without completed_at must be pending")
	}
	if pending.Restorable() {
		t.Fatal("pending backup must not be restorable")
	}

	done := pending
	now := pending.CreatedAt
	done.CompletedAt = &now
	if done.IsPending() {
		t.Fatal("completed backup must not be pending")
	}
	if !done.Restorable() {
		t.Fatal("completed backup must be restorable even if unsuccessful")
	}
}

func TestServerIsIdle(t *testing.T) {
	srv := Server{}
	if !srv.IsIdle() {
		t.Fatal("nil status means idle")
	}

	status := ServerStatusInstalling
	srv.Status = &status
	if srv.IsIdle() {
		t.Fatal("non-nil status means busy")
	}
}
