package scheduler

import (
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"
)

const TaskMeetingReminder = "meetings.reminder"

type MeetingReminderPayload struct {
	AssignmentID string    `json:"assignmentId"`
	MeetingAt    time.Time `json:"meetingAt"`
}

// MeetingReminderTaskID identifies one reminder per assignment and meeting time.
func MeetingReminderTaskID(payload MeetingReminderPayload) string {
	return TaskMeetingReminder + ":" + payload.AssignmentID + ":" + payload.MeetingAt.UTC().Format(time.RFC3339)
}

func NewMeetingReminderTask(payload MeetingReminderPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskMeetingReminder, data), nil
}

func ParseMeetingReminderPayload(task *asynq.Task) (MeetingReminderPayload, error) {
	var payload MeetingReminderPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return MeetingReminderPayload{}, err
	}
	return payload, nil
}
