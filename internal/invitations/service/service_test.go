package service

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"jury_portal_backend/internal/events"
	"jury_portal_backend/internal/invitations/domain"
	"jury_portal_backend/internal/invitations/repository"
	"jury_portal_backend/platform/apperr"
	"jury_portal_backend/platform/logger"

	"github.com/google/uuid"
)

type fakeRepo struct {
	byUID map[string]*domain.CalendarInvitation
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{byUID: make(map[string]*domain.CalendarInvitation)}
}

func (r *fakeRepo) GetByID(_ context.Context, id uuid.UUID) (domain.CalendarInvitation, error) {
	for _, inv := range r.byUID {
		if inv.ID == id {
			return *inv, nil
		}
	}
	return domain.CalendarInvitation{}, apperr.NotFound("invitation not found")
}

func (r *fakeRepo) GetByCalendarUID(_ context.Context, uid string) (*domain.CalendarInvitation, error) {
	inv, ok := r.byUID[uid]
	if !ok {
		return nil, nil
	}
	cp := *inv
	return &cp, nil
}

func (r *fakeRepo) Upsert(_ context.Context, inv *domain.CalendarInvitation) error {
	if existing, ok := r.byUID[inv.CalendarUID]; ok {
		inv.ID = existing.ID
		inv.Version = existing.Version + 1
	} else {
		inv.ID = uuid.New()
		inv.Version = 1
	}
	cp := *inv
	r.byUID[inv.CalendarUID] = &cp
	return nil
}

func (r *fakeRepo) Update(_ context.Context, inv *domain.CalendarInvitation, expectedVersion int) error {
	existing, ok := r.byUID[inv.CalendarUID]
	if !ok {
		return apperr.NotFound("invitation not found")
	}
	if expectedVersion > 0 && existing.Version != expectedVersion {
		return apperr.Conflict("stale")
	}
	inv.Version = existing.Version + 1
	cp := *inv
	r.byUID[inv.CalendarUID] = &cp
	return nil
}

func (r *fakeRepo) List(_ context.Context, _ repository.ListFilter) ([]domain.CalendarInvitation, error) {
	out := make([]domain.CalendarInvitation, 0, len(r.byUID))
	for _, inv := range r.byUID {
		out = append(out, *inv)
	}
	return out, nil
}

func (r *fakeRepo) CountByBucket(_ context.Context, _ string) (map[domain.Bucket]int, error) {
	counts := make(map[domain.Bucket]int)
	for _, inv := range r.byUID {
		counts[domain.Classify(*inv)]++
	}
	return counts, nil
}

type fakeMatcher struct {
	startups map[string]uuid.UUID
	jurors   map[string]uuid.UUID
}

func (m fakeMatcher) ExactMatch(_ context.Context, attendees []string) (*uuid.UUID, *uuid.UUID, error) {
	var startupID, jurorID *uuid.UUID
	for _, a := range attendees {
		if id, ok := m.startups[a]; ok {
			id := id
			startupID = &id
		}
		if id, ok := m.jurors[a]; ok {
			id := id
			jurorID = &id
		}
	}
	return startupID, jurorID, nil
}

type icsEvent struct {
	uid       string
	summary   string
	start     time.Time
	sequence  int
	status    string
	attendees []string
}

func buildICS(evs ...icsEvent) string {
	lines := []string{"BEGIN:VCALENDAR", "VERSION:2.0", "PRODID:-//jury//test//EN"}
	for _, ev := range evs {
		lines = append(lines,
			"BEGIN:VEVENT",
			"UID:"+ev.uid,
			"DTSTAMP:20261001T080000Z",
			"SUMMARY:"+ev.summary,
			"DTSTART:"+ev.start.UTC().Format("20060102T150405Z"),
			"DTEND:"+ev.start.Add(30*time.Minute).UTC().Format("20060102T150405Z"),
			fmt.Sprintf("SEQUENCE:%d", ev.sequence),
			"DESCRIPTION:Join at https://meet.google.com/abc-defg-hij",
		)
		if ev.status != "" {
			lines = append(lines, "STATUS:"+ev.status)
		}
		for _, a := range ev.attendees {
			lines = append(lines, "ATTENDEE;CN=Guest:mailto:"+a)
		}
		lines = append(lines, "END:VEVENT")
	}
	lines = append(lines, "END:VCALENDAR")
	return strings.Join(lines, "\r\n") + "\r\n"
}

func newTestService(repo *fakeRepo, matcher ExactMatcher, now time.Time) *Service {
	log := logger.New("test")
	svc := New(repo, matcher, events.NewInMemoryBus(log), log, "screening")
	svc.now = func() time.Time { return now }
	return svc
}

func TestParseICSCollectsAttendeesAndLink(t *testing.T) {
	start := time.Date(2026, 10, 20, 9, 0, 0, 0, time.UTC)
	payload := buildICS(icsEvent{
		uid:       "evt-1",
		summary:   "Screening call",
		start:     start,
		attendees: []string{"Founder@Acme.io", "juror@vc.com", "founder@acme.io"},
	})

	evs, skipped, err := ParseICS(strings.NewReader(payload))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(skipped) != 0 || len(evs) != 1 {
		t.Fatalf("expected one event, got %d (skipped %v)", len(evs), skipped)
	}
	ev := evs[0]
	if got := strings.Join(ev.Attendees, ","); got != "founder@acme.io,juror@vc.com" {
		t.Fatalf("unexpected attendees %q", got)
	}
	if ev.MeetingLink != "https://meet.google.com/abc-defg-hij" {
		t.Fatalf("unexpected meeting link %q", ev.MeetingLink)
	}
	if ev.Start == nil || !ev.Start.Equal(start) {
		t.Fatalf("unexpected start %v", ev.Start)
	}
}

func TestIsCancelledTitle(t *testing.T) {
	cases := map[string]bool{
		"Cancelled: Screening call": true,
		"[Canceled] Pitch":          true,
		"Screening call":            false,
		"Call about cancellation":   false,
	}
	for title, want := range cases {
		if got := isCancelledTitle(title); got != want {
			t.Fatalf("isCancelledTitle(%q) = %v, want %v", title, got, want)
		}
	}
}

func TestIngestAutoMatchesExactAttendees(t *testing.T) {
	startupID, jurorID := uuid.New(), uuid.New()
	matcher := fakeMatcher{
		startups: map[string]uuid.UUID{"founder@acme.io": startupID},
		jurors:   map[string]uuid.UUID{"juror@vc.com": jurorID},
	}
	repo := newFakeRepo()
	now := time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC)
	svc := newTestService(repo, matcher, now)

	payload := buildICS(icsEvent{
		uid:       "evt-1",
		summary:   "Pitch session Acme",
		start:     now.Add(48 * time.Hour),
		attendees: []string{"founder@acme.io", "juror@vc.com"},
	})
	result, err := svc.Ingest(context.Background(), strings.NewReader(payload))
	if err != nil {
		t.Fatalf("ingest: %v", err)
	}
	if result.Created != 1 {
		t.Fatalf("expected one created invitation, got %+v", result)
	}

	inv := repo.byUID["evt-1"]
	if inv.MatchingStatus != domain.MatchingAutoMatched {
		t.Fatalf("expected auto_matched, got %s", inv.MatchingStatus)
	}
	if inv.ManualAssignmentNeeded {
		t.Fatal("matched invitation must not need manual assignment")
	}
	if inv.AssignmentID != nil {
		t.Fatal("ingest must never create an assignment")
	}
	if inv.RoundName != "pitching" {
		t.Fatalf("expected pitching round, got %s", inv.RoundName)
	}
	if domain.Classify(*inv) != domain.BucketScheduled {
		t.Fatalf("expected scheduled bucket, got %s", domain.Classify(*inv))
	}
}

func TestIngestPartialMatchRecordsError(t *testing.T) {
	jurorID := uuid.New()
	matcher := fakeMatcher{jurors: map[string]uuid.UUID{"juror@vc.com": jurorID}}
	repo := newFakeRepo()
	svc := newTestService(repo, matcher, time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC))

	payload := buildICS(icsEvent{
		uid:       "evt-2",
		summary:   "Screening call",
		start:     time.Date(2026, 10, 22, 9, 0, 0, 0, time.UTC),
		attendees: []string{"someone@unknown.org", "juror@vc.com"},
	})
	if _, err := svc.Ingest(context.Background(), strings.NewReader(payload)); err != nil {
		t.Fatalf("ingest: %v", err)
	}

	inv := repo.byUID["evt-2"]
	if inv.JurorID == nil || *inv.JurorID != jurorID {
		t.Fatal("expected juror to be resolved")
	}
	if inv.StartupID != nil {
		t.Fatal("startup must stay unresolved")
	}
	if inv.MatchingStatus != domain.MatchingUnmatched {
		t.Fatalf("partial match must stay unmatched, got %s", inv.MatchingStatus)
	}
	if inv.ManualAssignmentNeeded {
		t.Fatal("manual assignment is only needed when neither party resolves")
	}
	if len(inv.MatchingErrors) != 1 || inv.MatchingErrors[0] != "no attendee matches a startup" {
		t.Fatalf("unexpected matching errors %v", inv.MatchingErrors)
	}
}

func TestIngestDetectsRescheduleAndCancel(t *testing.T) {
	repo := newFakeRepo()
	now := time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC)
	svc := newTestService(repo, nil, now)
	original := time.Date(2026, 10, 22, 9, 0, 0, 0, time.UTC)
	moved := original.Add(24 * time.Hour)

	steps := []struct {
		name       string
		event      icsEvent
		wantStatus domain.Status
		wantPrev   *time.Time
	}{
		{name: "initial", event: icsEvent{uid: "evt-3", summary: "Screening", start: original, sequence: 0}, wantStatus: domain.StatusScheduled},
		{name: "moved", event: icsEvent{uid: "evt-3", summary: "Screening", start: moved, sequence: 1}, wantStatus: domain.StatusRescheduled, wantPrev: &original},
		{name: "stale revision ignored", event: icsEvent{uid: "evt-3", summary: "Screening", start: original, sequence: 0}, wantStatus: domain.StatusRescheduled, wantPrev: &original},
		{name: "cancelled", event: icsEvent{uid: "evt-3", summary: "Screening", start: moved, sequence: 2, status: "CANCELLED"}, wantStatus: domain.StatusCancelled, wantPrev: &original},
	}

	for _, step := range steps {
		if _, err := svc.Ingest(context.Background(), strings.NewReader(buildICS(step.event))); err != nil {
			t.Fatalf("%s: ingest: %v", step.name, err)
		}
		inv := repo.byUID["evt-3"]
		if inv.Status != step.wantStatus {
			t.Fatalf("%s: status = %s, want %s", step.name, inv.Status, step.wantStatus)
		}
		if step.wantPrev != nil && (inv.PreviousEventDate == nil || !inv.PreviousEventDate.Equal(*step.wantPrev)) {
			t.Fatalf("%s: previous event date = %v", step.name, inv.PreviousEventDate)
		}
	}

	history := repo.byUID["evt-3"].LifecycleHistory
	var actions []string
	for _, h := range history {
		actions = append(actions, h.Action)
	}
	if got := strings.Join(actions, ","); got != "ingested,rescheduled,cancelled" {
		t.Fatalf("unexpected history %q", got)
	}
}

func TestTransitionRejectsStaleVersionAndDisallowedAction(t *testing.T) {
	repo := newFakeRepo()
	now := time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC)
	svc := newTestService(repo, nil, now)
	payload := buildICS(icsEvent{uid: "evt-4", summary: "Screening", start: now.Add(time.Hour)})
	if _, err := svc.Ingest(context.Background(), strings.NewReader(payload)); err != nil {
		t.Fatalf("ingest: %v", err)
	}
	inv := repo.byUID["evt-4"]

	if _, err := svc.Transition(context.Background(), inv.ID, domain.TransitionCancel, "", inv.Version+5); !apperr.Is(err, apperr.KindConflict) {
		t.Fatalf("expected conflict for stale version, got %v", err)
	}
	if _, err := svc.Transition(context.Background(), inv.ID, domain.TransitionConfirmReschedule, "", 0); !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}

	updated, err := svc.Transition(context.Background(), inv.ID, domain.TransitionCancel, "<b>no show</b>", inv.Version)
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if updated.Status != domain.StatusCancelled {
		t.Fatalf("expected cancelled, got %s", updated.Status)
	}
	last := updated.LifecycleHistory[len(updated.LifecycleHistory)-1]
	if last.Action != domain.ActionCancelled || last.Note != "no show" {
		t.Fatalf("unexpected history entry %+v", last)
	}
}

func TestGroupByBucketKeepsEveryBucket(t *testing.T) {
	start := time.Date(2026, 10, 22, 9, 0, 0, 0, time.UTC)
	sid, jid := uuid.New(), uuid.New()
	items := []domain.CalendarInvitation{
		{ID: uuid.New(), ManualAssignmentNeeded: true, Status: domain.StatusScheduled},
		{ID: uuid.New(), StartupID: &sid, JurorID: &jid, Status: domain.StatusScheduled, StartTime: &start},
		{ID: uuid.New(), StartupID: &sid, JurorID: &jid, Status: domain.StatusScheduled, StartTime: &start},
	}

	groups := GroupByBucket(items)
	if len(groups) != len(domain.AllBuckets) {
		t.Fatalf("expected %d groups, got %d", len(domain.AllBuckets), len(groups))
	}
	counts := make(map[domain.Bucket]int)
	total := 0
	for _, g := range groups {
		counts[g.Bucket] = g.Count
		total += g.Count
	}
	if total != len(items) {
		t.Fatalf("every invitation must land in exactly one bucket, got %d", total)
	}
	if counts[domain.BucketNeedsAssignment] != 1 || counts[domain.BucketScheduled] != 2 {
		t.Fatalf("unexpected counts %v", counts)
	}
}
