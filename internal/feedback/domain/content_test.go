package domain

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
)

func emailRecord(subject, body string) *FeedbackContent {
	return &FeedbackContent{
		Key:     Key{StartupID: uuid.New(), RoundName: "screening", Kind: KindCustomEmail},
		Content: EmailContent{Subject: subject, Body: body},
	}
}

func TestApproveRequiresContent(t *testing.T) {
	tests := []struct {
		name    string
		content *FeedbackContent
	}{
		{name: "empty subject", content: emailRecord("", "Thanks for pitching.")},
		{name: "blank body", content: emailRecord("Your feedback", "   ")},
		{name: "placeholder", content: emailRecord("Your feedback", PlaceholderBody)},
		{name: "plain text empty", content: &FeedbackContent{
			Key:     Key{Kind: KindVCFeedback},
			Content: PlainTextContent{},
		}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			changed, err := tc.content.Approve(uuid.New(), time.Now())
			if !errors.Is(err, ErrEmptyContent) || changed {
				t.Fatalf("expected ErrEmptyContent, got changed=%v err=%v", changed, err)
			}
			if tc.content.IsApproved || tc.content.ApprovedBy != nil {
				t.Fatal("state must be untouched on rejection")
			}
		})
	}
}

func TestLifecycleTransitions(t *testing.T) {
	c := emailRecord("Your feedback", "Strong traction.")
	if c.State() != StateDraft {
		t.Fatalf("expected draft, got %s", c.State())
	}

	approver := uuid.New()
	if _, err := c.Approve(approver, time.Now()); err != nil {
		t.Fatalf("approve: %v", err)
	}
	if c.State() != StateApproved || *c.ApprovedBy != approver {
		t.Fatalf("expected approved by %s, got %+v", approver, c)
	}

	if err := c.SaveDraft(EmailContent{Subject: "x", Body: "y"}); !errors.Is(err, ErrNotEditable) {
		t.Fatalf("saving over approved content must fail, got %v", err)
	}

	if err := c.BeginEdit(); err != nil {
		t.Fatalf("begin edit: %v", err)
	}
	if c.State() != StateEditing || c.IsApproved {
		t.Fatalf("expected editing without approval, got %s", c.State())
	}
	if BodyOf(c.Content) != "Strong traction." {
		t.Fatal("begin edit must keep the content")
	}

	if err := c.SaveDraft(EmailContent{Subject: "Your feedback", Body: "Edited."}); err != nil {
		t.Fatalf("save draft: %v", err)
	}
	if c.State() != StateDraft {
		t.Fatalf("expected draft after save, got %s", c.State())
	}
}

func TestEnhanceKeepsApproval(t *testing.T) {
	c := emailRecord("Your feedback", "Good.")
	if _, err := c.Approve(uuid.New(), time.Now()); err != nil {
		t.Fatal(err)
	}
	if err := c.Enhance(EmailContent{Subject: "Your feedback", Body: "Very good."}); err != nil {
		t.Fatalf("enhance: %v", err)
	}
	if !c.IsApproved {
		t.Fatal("enhance must not change approval")
	}
	if err := c.Enhance(PlainTextContent{Body: "x"}); !errors.Is(err, ErrVariantMismatch) {
		t.Fatalf("expected variant mismatch, got %v", err)
	}
}

func TestStateOfMissingRecord(t *testing.T) {
	var c *FeedbackContent
	if c.State() != StateNotGenerated || !c.Empty() {
		t.Fatal("a missing record is not generated and empty")
	}
}

func TestComputeStale(t *testing.T) {
	updated := time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC)
	later := updated.Add(time.Minute)
	earlier := updated.Add(-time.Minute)

	approved := emailRecord("s", "b")
	approved.IsApproved = true
	approved.UpdatedAt = updated
	draft := emailRecord("s", "b")
	draft.UpdatedAt = updated

	if !ComputeStale(approved, &later) {
		t.Fatal("approved content older than its dependency is stale")
	}
	if ComputeStale(approved, &earlier) || ComputeStale(approved, &updated) {
		t.Fatal("content newer than or equal to its dependency is not stale")
	}
	if ComputeStale(draft, &later) {
		t.Fatal("unapproved content is never stale")
	}
	if ComputeStale(approved, nil) {
		t.Fatal("no dependency means not stale")
	}
}

func TestKeyDependency(t *testing.T) {
	k := Key{StartupID: uuid.New(), RoundName: "pitching", Kind: KindCustomEmail}
	dep, ok := k.Dependency()
	if !ok || dep.Kind != KindVCFeedback || dep.StartupID != k.StartupID || dep.RoundName != k.RoundName {
		t.Fatalf("unexpected dependency %+v", dep)
	}
	if _, ok := dep.Dependency(); ok {
		t.Fatal("vc feedback has no record dependency")
	}
}
