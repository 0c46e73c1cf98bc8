package scheduler

import (
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestReminderDueSkipsMovedOrClosedMeetings(t *testing.T) {
	meetingAt := time.Date(2026, 10, 21, 9, 0, 0, 0, time.UTC)
	moved := meetingAt.Add(2 * time.Hour)
	payload := MeetingReminderPayload{AssignmentID: uuid.NewString(), MeetingAt: meetingAt}

	cases := []struct {
		name   string
		target ReminderTarget
		want   bool
	}{
		{name: "scheduled", target: ReminderTarget{Status: "scheduled", MeetingAt: &meetingAt}, want: true},
		{name: "confirmed", target: ReminderTarget{Status: "confirmed", MeetingAt: &meetingAt}, want: true},
		{name: "cancelled", target: ReminderTarget{Status: "cancelled", MeetingAt: &meetingAt}, want: false},
		{name: "completed", target: ReminderTarget{Status: "completed", MeetingAt: &meetingAt}, want: false},
		{name: "rescheduled", target: ReminderTarget{Status: "scheduled", MeetingAt: &moved}, want: false},
		{name: "no date", target: ReminderTarget{Status: "scheduled"}, want: false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, ok := reminderDue(tc.target, payload)
			if ok != tc.want {
				t.Fatalf("reminderDue() = %v, want %v", ok, tc.want)
			}
		})
	}
}

func TestMeetingReminderTaskRoundTrip(t *testing.T) {
	payload := MeetingReminderPayload{
		AssignmentID: uuid.NewString(),
		MeetingAt:    time.Date(2026, 10, 21, 9, 0, 0, 0, time.UTC),
	}

	task, err := NewMeetingReminderTask(payload)
	if err != nil {
		t.Fatalf("new task: %v", err)
	}
	if task.Type() != TaskMeetingReminder {
		t.Fatalf("unexpected task type %q", task.Type())
	}

	parsed, err := ParseMeetingReminderPayload(task)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if parsed.AssignmentID != payload.AssignmentID || !parsed.MeetingAt.Equal(payload.MeetingAt) {
		t.Fatalf("unexpected payload %+v", parsed)
	}
	if MeetingReminderTaskID(parsed) != MeetingReminderTaskID(payload) {
		t.Fatalf("task id must be stable across encoding")
	}
}

func TestRedisClientOptParsesURL(t *testing.T) {
	opt, err := redisClientOpt("rediss://:secret@cache.internal:6380/2", true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if opt.Addr != "cache.internal:6380" || opt.Password != "secret" || opt.DB != 2 {
		t.Fatalf("unexpected opts %+v", opt)
	}
	if opt.TLSConfig == nil || !opt.TLSConfig.InsecureSkipVerify {
		t.Fatalf("expected insecure TLS config")
	}
}
