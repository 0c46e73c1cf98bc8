package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"jury_portal_backend/internal/assignments/domain"
	"jury_portal_backend/internal/assignments/repository"
	"jury_portal_backend/internal/events"
	invdomain "jury_portal_backend/internal/invitations/domain"
	invrepo "jury_portal_backend/internal/invitations/repository"
	"jury_portal_backend/internal/scheduler"
	"jury_portal_backend/platform/apperr"
	"jury_portal_backend/platform/logger"

	"github.com/google/uuid"
)

type fakeStore struct {
	txMu sync.Mutex
	mu   sync.Mutex

	assignments map[uuid.UUID]*domain.Assignment
	invitations map[uuid.UUID]*invdomain.CalendarInvitation

	// beforeInsert runs inside InsertIfAbsent before the conflict check.
	beforeInsert func(s *fakeStore)
	inserts      int
	invUpdates   int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		assignments: make(map[uuid.UUID]*domain.Assignment),
		invitations: make(map[uuid.UUID]*invdomain.CalendarInvitation),
	}
}

func (s *fakeStore) Assignments() repository.Assignments { return fakeAssignments{s} }
func (s *fakeStore) Invitations() repository.Invitations { return fakeInvitations{s} }

func (s *fakeStore) InTx(_ context.Context, fn func(repository.Repos) error) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()
	return fn(s)
}

func (s *fakeStore) activeCount(startupID, jurorID uuid.UUID) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, a := range s.assignments {
		if a.StartupID == startupID && a.JurorID == jurorID && a.IsActive() {
			n++
		}
	}
	return n
}

func (s *fakeStore) putAssignment(a domain.Assignment) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.assignments[a.ID] = &a
}

type fakeAssignments struct{ s *fakeStore }

func (f fakeAssignments) GetByID(_ context.Context, id uuid.UUID) (domain.Assignment, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	a, ok := f.s.assignments[id]
	if !ok {
		return domain.Assignment{}, apperr.NotFound("assignment not found")
	}
	return *a, nil
}

func (f fakeAssignments) FindActive(_ context.Context, startupID, jurorID uuid.UUID, round string) (*domain.Assignment, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	return f.s.findActiveLocked(startupID, jurorID, round), nil
}

func (s *fakeStore) findActiveLocked(startupID, jurorID uuid.UUID, round string) *domain.Assignment {
	for _, a := range s.assignments {
		if a.StartupID == startupID && a.JurorID == jurorID && a.RoundName == round && a.IsActive() {
			cp := *a
			return &cp
		}
	}
	return nil
}

func (f fakeAssignments) InsertIfAbsent(_ context.Context, a *domain.Assignment) (bool, error) {
	if f.s.beforeInsert != nil {
		f.s.beforeInsert(f.s)
	}
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	if f.s.findActiveLocked(a.StartupID, a.JurorID, a.RoundName) != nil {
		return false, nil
	}
	a.ID = uuid.New()
	a.Version = 1
	cp := *a
	f.s.assignments[a.ID] = &cp
	f.s.inserts++
	return true, nil
}

func (f fakeAssignments) Update(_ context.Context, a *domain.Assignment, expectedVersion int) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	existing, ok := f.s.assignments[a.ID]
	if !ok {
		return apperr.NotFound("assignment not found")
	}
	if expectedVersion > 0 && existing.Version != expectedVersion {
		return apperr.Conflict("stale")
	}
	a.Version = existing.Version + 1
	cp := *a
	f.s.assignments[a.ID] = &cp
	return nil
}

func (f fakeAssignments) List(_ context.Context, filter repository.ListFilter) ([]domain.Assignment, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	var out []domain.Assignment
	for _, a := range f.s.assignments {
		if !filter.IncludeCancelled && !a.IsActive() {
			continue
		}
		out = append(out, *a)
	}
	return out, nil
}

type fakeInvitations struct{ s *fakeStore }

func (f fakeInvitations) GetByIDForUpdate(_ context.Context, id uuid.UUID) (invdomain.CalendarInvitation, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	inv, ok := f.s.invitations[id]
	if !ok {
		return invdomain.CalendarInvitation{}, apperr.NotFound("invitation not found")
	}
	cp := *inv
	cp.LifecycleHistory = append([]invdomain.LifecycleEntry(nil), inv.LifecycleHistory...)
	return cp, nil
}

func (f fakeInvitations) Update(_ context.Context, inv *invdomain.CalendarInvitation, _ int) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	inv.Version++
	cp := *inv
	f.s.invitations[inv.ID] = &cp
	f.s.invUpdates++
	return nil
}

func (f fakeInvitations) List(_ context.Context, _ invrepo.ListFilter) ([]invdomain.CalendarInvitation, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	var out []invdomain.CalendarInvitation
	for _, inv := range f.s.invitations {
		out = append(out, *inv)
	}
	return out, nil
}

type fakeReminders struct {
	mu    sync.Mutex
	calls []time.Time
}

func (f *fakeReminders) ScheduleMeetingReminder(_ context.Context, _ scheduler.MeetingReminderPayload, runAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, runAt)
	return nil
}

var fixedNow = time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC)

func newTestService(store *fakeStore, bus events.Bus, reminders scheduler.ReminderScheduler) *Service {
	svc := New(store, bus, reminders, 24*time.Hour, logger.New("test"))
	svc.now = func() time.Time { return fixedNow }
	return svc
}

func seedInvitation(store *fakeStore, start time.Time) invdomain.CalendarInvitation {
	inv := invdomain.CalendarInvitation{
		ID:                     uuid.New(),
		CalendarUID:            uuid.NewString(),
		RoundName:              "screening",
		Summary:                "Screening call",
		MeetingLink:            "https://meet.google.com/abc-defg-hij",
		StartTime:              &start,
		Status:                 invdomain.StatusScheduled,
		MatchingStatus:         invdomain.MatchingUnmatched,
		ManualAssignmentNeeded: true,
		Version:                1,
	}
	cp := inv
	store.invitations[inv.ID] = &cp
	return inv
}

func TestApplyMatchIsIdempotent(t *testing.T) {
	store := newFakeStore()
	bus := events.NewInMemoryBus(logger.New("test"))
	var mu sync.Mutex
	matched := 0
	bus.Subscribe(events.InvitationMatched{}.EventName(), events.HandlerFunc(func(context.Context, events.Event) error {
		mu.Lock()
		matched++
		mu.Unlock()
		return nil
	}))
	svc := newTestService(store, bus, nil)

	inv := seedInvitation(store, fixedNow.Add(72*time.Hour))
	startupID, jurorID := uuid.New(), uuid.New()

	first, err := svc.ApplyMatch(context.Background(), inv.ID, startupID, jurorID, uuid.New())
	if err != nil {
		t.Fatalf("first apply: %v", err)
	}
	afterFirst := *store.invitations[inv.ID]

	second, err := svc.ApplyMatch(context.Background(), inv.ID, startupID, jurorID, uuid.New())
	if err != nil {
		t.Fatalf("second apply: %v", err)
	}
	bus.Wait()

	if first.ID != second.ID {
		t.Fatalf("expected the same assignment, got %s and %s", first.ID, second.ID)
	}
	if store.inserts != 1 || store.activeCount(startupID, jurorID) != 1 {
		t.Fatalf("expected one active assignment, inserts=%d", store.inserts)
	}
	final := store.invitations[inv.ID]
	if len(final.LifecycleHistory) != len(afterFirst.LifecycleHistory) || store.invUpdates != 1 {
		t.Fatalf("second apply must not change the invitation: history %d -> %d, updates %d",
			len(afterFirst.LifecycleHistory), len(final.LifecycleHistory), store.invUpdates)
	}
	if final.AssignmentID == nil || *final.AssignmentID != first.ID {
		t.Fatal("invitation must reference the assignment")
	}
	if final.ManualAssignmentNeeded || final.MatchingStatus != invdomain.MatchingManualMatched {
		t.Fatalf("unexpected matching state %+v", final)
	}
	mu.Lock()
	defer mu.Unlock()
	if matched != 1 {
		t.Fatalf("expected one InvitationMatched event, got %d", matched)
	}
}

func TestApplyMatchSeedsAssignmentFromInvitation(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store, events.NewInMemoryBus(logger.New("test")), nil)
	start := fixedNow.Add(48 * time.Hour)
	inv := seedInvitation(store, start)

	a, err := svc.ApplyMatch(context.Background(), inv.ID, uuid.New(), uuid.New(), uuid.New())
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if a.Status != domain.StatusScheduled || a.RoundName != "screening" {
		t.Fatalf("unexpected assignment %+v", a)
	}
	if a.MeetingScheduledDate == nil || !a.MeetingScheduledDate.Equal(start) {
		t.Fatalf("expected meeting date %v, got %v", start, a.MeetingScheduledDate)
	}
	if a.MeetingLink == nil || *a.MeetingLink != inv.MeetingLink {
		t.Fatalf("expected meeting link to be copied, got %v", a.MeetingLink)
	}
}

func TestApplyMatchReusesExistingAssignmentAndFillsGaps(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store, events.NewInMemoryBus(logger.New("test")), nil)
	startupID, jurorID := uuid.New(), uuid.New()
	existing := domain.Assignment{
		ID: uuid.New(), StartupID: startupID, JurorID: jurorID, RoundName: "screening",
		Status: domain.StatusAssigned, Version: 3,
	}
	store.putAssignment(existing)
	start := fixedNow.Add(48 * time.Hour)
	inv := seedInvitation(store, start)

	a, err := svc.ApplyMatch(context.Background(), inv.ID, startupID, jurorID, uuid.New())
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if a.ID != existing.ID || store.inserts != 0 {
		t.Fatalf("expected reuse of %s, got %s (inserts=%d)", existing.ID, a.ID, store.inserts)
	}
	if a.MeetingScheduledDate == nil || a.Status != domain.StatusScheduled {
		t.Fatalf("expected the missing date to be filled, got %+v", a)
	}
}

func TestApplyMatchLostInsertRaceReusesWinner(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store, events.NewInMemoryBus(logger.New("test")), nil)
	startupID, jurorID := uuid.New(), uuid.New()
	winnerID := uuid.New()
	store.beforeInsert = func(s *fakeStore) {
		s.putAssignment(domain.Assignment{
			ID: winnerID, StartupID: startupID, JurorID: jurorID, RoundName: "screening",
			Status: domain.StatusScheduled, Version: 1,
		})
		s.beforeInsert = nil
	}
	inv := seedInvitation(store, fixedNow.Add(48*time.Hour))

	a, err := svc.ApplyMatch(context.Background(), inv.ID, startupID, jurorID, uuid.New())
	if err != nil {
		t.Fatalf("a lost race must not surface as an error: %v", err)
	}
	if a.ID != winnerID {
		t.Fatalf("expected winner %s, got %s", winnerID, a.ID)
	}
	if store.activeCount(startupID, jurorID) != 1 {
		t.Fatal("expected exactly one active assignment")
	}
}

func TestApplyMatchConcurrentInvitationsShareOneAssignment(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store, events.NewInMemoryBus(logger.New("test")), nil)
	startupID, jurorID := uuid.New(), uuid.New()

	var invs []invdomain.CalendarInvitation
	for i := 0; i < 8; i++ {
		invs = append(invs, seedInvitation(store, fixedNow.Add(48*time.Hour)))
	}

	var wg sync.WaitGroup
	ids := make([]uuid.UUID, len(invs))
	errs := make([]error, len(invs))
	for i, inv := range invs {
		wg.Add(1)
		go func(i int, id uuid.UUID) {
			defer wg.Done()
			a, err := svc.ApplyMatch(context.Background(), id, startupID, jurorID, uuid.New())
			ids[i], errs[i] = a.ID, err
		}(i, inv.ID)
	}
	wg.Wait()

	for i := range invs {
		if errs[i] != nil {
			t.Fatalf("apply %d: %v", i, errs[i])
		}
		if ids[i] != ids[0] {
			t.Fatalf("invitation %d got assignment %s, expected %s", i, ids[i], ids[0])
		}
	}
	if store.activeCount(startupID, jurorID) != 1 {
		t.Fatal("expected exactly one active assignment")
	}
}

func TestApplyMatchRejectsCancelledInvitation(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store, events.NewInMemoryBus(logger.New("test")), nil)
	inv := seedInvitation(store, fixedNow.Add(time.Hour))
	store.invitations[inv.ID].Status = invdomain.StatusCancelled

	_, err := svc.ApplyMatch(context.Background(), inv.ID, uuid.New(), uuid.New(), uuid.New())
	if !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if store.inserts != 0 {
		t.Fatal("no assignment may be created for a cancelled invitation")
	}
}

func TestApplyMatchSchedulesReminderBeforeMeeting(t *testing.T) {
	cases := []struct {
		name    string
		start   time.Time
		wantRun *time.Time
	}{
		{name: "far future", start: fixedNow.Add(72 * time.Hour), wantRun: ptrTime(fixedNow.Add(48 * time.Hour))},
		{name: "inside lead window", start: fixedNow.Add(2 * time.Hour), wantRun: ptrTime(fixedNow)},
		{name: "already held", start: fixedNow.Add(-time.Hour)},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			store := newFakeStore()
			reminders := &fakeReminders{}
			svc := newTestService(store, events.NewInMemoryBus(logger.New("test")), reminders)
			inv := seedInvitation(store, tc.start)

			if _, err := svc.ApplyMatch(context.Background(), inv.ID, uuid.New(), uuid.New(), uuid.New()); err != nil {
				t.Fatalf("apply: %v", err)
			}
			if tc.wantRun == nil {
				if len(reminders.calls) != 0 {
					t.Fatalf("expected no reminder, got %v", reminders.calls)
				}
				return
			}
			if len(reminders.calls) != 1 || !reminders.calls[0].Equal(*tc.wantRun) {
				t.Fatalf("expected reminder at %v, got %v", *tc.wantRun, reminders.calls)
			}
		})
	}
}

func TestMatchedInvitationLandsInScheduledBucket(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store, events.NewInMemoryBus(logger.New("test")), nil)
	startupID, jurorID := uuid.New(), uuid.New()
	inv := seedInvitation(store, fixedNow.Add(24*time.Hour))
	// Auto-matched on ingest; the assignment still needs the explicit apply.
	stored := store.invitations[inv.ID]
	stored.StartupID, stored.JurorID = &startupID, &jurorID
	stored.MatchingStatus = invdomain.MatchingAutoMatched
	stored.Normalize()

	if _, err := svc.ApplyMatch(context.Background(), inv.ID, startupID, jurorID, uuid.New()); err != nil {
		t.Fatalf("apply: %v", err)
	}
	final := store.invitations[inv.ID]
	if invdomain.Classify(*final) != invdomain.BucketScheduled {
		t.Fatalf("expected scheduled bucket, got %s", invdomain.Classify(*final))
	}

	view, err := svc.Meetings(context.Background(), MeetingsFilter{})
	if err != nil {
		t.Fatalf("meetings: %v", err)
	}
	if view.UniqueMeetings != 1 || view.Meetings[0].Source != domain.SourceAssignment {
		t.Fatalf("unexpected meetings view %+v", view)
	}
}

func TestCompleteAndUpdateStatus(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store, events.NewInMemoryBus(logger.New("test")), nil)
	a := domain.Assignment{ID: uuid.New(), StartupID: uuid.New(), JurorID: uuid.New(), RoundName: "pitching", Status: domain.StatusScheduled, Version: 2}
	store.putAssignment(a)

	if _, err := svc.UpdateStatus(context.Background(), a.ID, domain.StatusConfirmed, 1); !apperr.Is(err, apperr.KindConflict) {
		t.Fatalf("expected conflict on stale version, got %v", err)
	}
	if _, err := svc.UpdateStatus(context.Background(), a.ID, domain.StatusCompleted, 0); !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected validation error for completed, got %v", err)
	}

	done, err := svc.Complete(context.Background(), a.ID, "  strong team  ", 2)
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if done.Status != domain.StatusCompleted || done.MeetingCompletedDate == nil || !done.MeetingCompletedDate.Equal(fixedNow) {
		t.Fatalf("unexpected completed assignment %+v", done)
	}
	if done.MeetingNotes == nil || *done.MeetingNotes != "strong team" {
		t.Fatalf("unexpected notes %v", done.MeetingNotes)
	}
	if _, err := svc.UpdateStatus(context.Background(), a.ID, domain.StatusCancelled, 0); !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("completed assignments cannot change status, got %v", err)
	}
}

func ptrTime(t time.Time) *time.Time { return &t }
