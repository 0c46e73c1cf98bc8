package scheduler

import (
	"context"
	"fmt"
	"time"

	"jury_portal_backend/internal/events"
	"jury_portal_backend/platform/config"
	"jury_portal_backend/platform/logger"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

// ReminderTarget is the current state of the meeting a reminder was scheduled for.
type ReminderTarget struct {
	AssignmentID uuid.UUID
	StartupID    uuid.UUID
	JurorID      uuid.UUID
	Status       string
	MeetingAt    *time.Time
	MeetingLink  string
	Location     string
}

// ReminderSource loads the meeting behind a reminder task.
type ReminderSource interface {
	GetReminderTarget(ctx context.Context, assignmentID uuid.UUID) (ReminderTarget, error)
}

type Worker struct {
	server *asynq.Server
	mux    *asynq.ServeMux
	source ReminderSource
	bus    events.Bus
	log    *logger.Logger
}

func NewWorker(cfg config.SchedulerConfig, source ReminderSource, bus events.Bus, log *logger.Logger) (*Worker, error) {
	redisURL := cfg.GetRedisURL()
	if redisURL == "" {
		return nil, fmt.Errorf("redis url not configured")
	}

	opt, err := redisClientOpt(redisURL, cfg.GetRedisTLSInsecure())
	if err != nil {
		return nil, err
	}

	queue := cfg.GetAsynqQueueName()
	if queue == "" {
		queue = "default"
	}

	concurrency := cfg.GetAsynqConcurrency()
	if concurrency < 1 {
		concurrency = 10
	}

	server := asynq.NewServer(opt, asynq.Config{
		Concurrency: concurrency,
		Queues: map[string]int{
			queue: 1,
		},
	})

	w := &Worker{
		server: server,
		mux:    asynq.NewServeMux(),
		source: source,
		bus:    bus,
		log:    log,
	}
	w.mux.HandleFunc(TaskMeetingReminder, w.handleMeetingReminder)

	return w, nil
}

func (w *Worker) Run(ctx context.Context) {
	if w == nil || w.server == nil {
		return
	}

	go func() {
		<-ctx.Done()
		w.server.Shutdown()
	}()

	if err := w.server.Run(w.mux); err != nil {
		w.log.Error("scheduler worker stopped", "error", err)
	}
}

func (w *Worker) handleMeetingReminder(ctx context.Context, task *asynq.Task) error {
	payload, err := ParseMeetingReminderPayload(task)
	if err != nil {
		return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
	}

	assignmentID, err := uuid.Parse(payload.AssignmentID)
	if err != nil {
		return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
	}

	target, err := w.source.GetReminderTarget(ctx, assignmentID)
	if err != nil {
		return err
	}

	due, ok := reminderDue(target, payload)
	if !ok || w.bus == nil {
		return nil
	}
	return w.bus.PublishSync(ctx, due)
}

// reminderDue drops reminders for meetings that were cancelled, completed or
// moved since the task was enqueued.
func reminderDue(target ReminderTarget, payload MeetingReminderPayload) (events.MeetingReminderDue, bool) {
	if target.Status != "scheduled" && target.Status != "confirmed" {
		return events.MeetingReminderDue{}, false
	}
	if target.MeetingAt == nil || !target.MeetingAt.Equal(payload.MeetingAt) {
		return events.MeetingReminderDue{}, false
	}
	return events.MeetingReminderDue{
		BaseEvent:    events.NewBaseEvent(),
		AssignmentID: target.AssignmentID,
		JurorID:      target.JurorID,
		StartupID:    target.StartupID,
		MeetingAt:    *target.MeetingAt,
		MeetingLink:  target.MeetingLink,
		Location:     target.Location,
	}, true
}
