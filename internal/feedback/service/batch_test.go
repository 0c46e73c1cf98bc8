package service

import (
	"context"
	"testing"

	"jury_portal_backend/internal/feedback/domain"
	"jury_portal_backend/platform/apperr"

	"github.com/google/uuid"
)

func newIDs(n int) []uuid.UUID {
	ids := make([]uuid.UUID, n)
	for i := range ids {
		ids[i] = uuid.New()
	}
	return ids
}

func TestBatchGeneratePartialFailure(t *testing.T) {
	for _, concurrency := range []int{1, 3} {
		h := newHarness(Options{BatchConcurrency: concurrency})
		ids := newIDs(5)
		h.gen.fail[ids[2]] = true

		res, err := h.svc.BatchGenerate(context.Background(), BatchRequest{Kind: domain.KindVCFeedback, RoundName: "screening", StartupIDs: ids})
		if err != nil {
			t.Fatalf("concurrency %d: batch: %v", concurrency, err)
		}
		if res.SuccessCount != 4 || res.Total != 5 || len(res.Items) != 5 {
			t.Fatalf("concurrency %d: expected 4/5, got %d/%d (%d items)", concurrency, res.SuccessCount, res.Total, len(res.Items))
		}
		for i, item := range res.Items {
			if item.StartupID != ids[i] {
				t.Fatalf("items must keep input order")
			}
			if i == 2 {
				if item.Success || item.Error == "" {
					t.Fatalf("expected failure for item 3, got %+v", item)
				}
				continue
			}
			if !item.Success {
				t.Fatalf("item %d failed: %s", i, item.Error)
			}
			c, _ := h.repo.Get(context.Background(), domain.Key{StartupID: ids[i], RoundName: "screening", Kind: domain.KindVCFeedback})
			if c.State() != domain.StateDraft || c.EvaluationCount != 1 {
				t.Fatalf("item %d not generated: %+v", i, c)
			}
		}
	}
}

func TestBatchGenerateSkipsExistingContent(t *testing.T) {
	h := newHarness(Options{})
	ids := newIDs(3)
	h.repo.put(domain.FeedbackContent{
		Key:     domain.Key{StartupID: ids[1], RoundName: "screening", Kind: domain.KindVCFeedback},
		Content: domain.PlainTextContent{Body: "Hand written"},
	})

	res, err := h.svc.BatchGenerate(context.Background(), BatchRequest{
		Kind:       domain.KindVCFeedback,
		RoundName:  "screening",
		StartupIDs: []uuid.UUID{ids[0], ids[1], ids[2], ids[0]},
	})
	if err != nil {
		t.Fatalf("batch: %v", err)
	}
	if res.Total != 2 || res.SuccessCount != 2 || len(res.Items) != 3 {
		t.Fatalf("unexpected result %+v", res)
	}
	if !res.Items[1].Skipped {
		t.Fatal("existing content must be skipped")
	}
	c, _ := h.repo.Get(context.Background(), domain.Key{StartupID: ids[1], RoundName: "screening", Kind: domain.KindVCFeedback})
	if domain.BodyOf(c.Content) != "Hand written" {
		t.Fatal("batch generate must not overwrite existing content")
	}
}

func TestBatchEnhanceBypassesDebounce(t *testing.T) {
	h := newHarness(Options{})
	ids := newIDs(2)
	for _, id := range ids {
		h.repo.put(domain.FeedbackContent{Key: emailKey(id), Content: domain.EmailContent{Subject: "Hi", Body: "Body"}})
	}
	if _, err := h.svc.Enhance(context.Background(), emailKey(ids[0])); err != nil {
		t.Fatalf("enhance: %v", err)
	}

	res, err := h.svc.BatchEnhance(context.Background(), BatchRequest{Kind: domain.KindCustomEmail, RoundName: "screening", StartupIDs: ids})
	if err != nil {
		t.Fatalf("batch enhance: %v", err)
	}
	if res.SuccessCount != 2 {
		t.Fatalf("expected both enhanced, got %+v", res.Items)
	}
}

func TestBatchApproveRequiresMatchingPreview(t *testing.T) {
	h := newHarness(Options{})
	ids := newIDs(4)
	h.repo.put(domain.FeedbackContent{Key: emailKey(ids[0]), Content: domain.EmailContent{Subject: "A", Body: "Ready"}})
	h.repo.put(domain.FeedbackContent{Key: emailKey(ids[1]), Content: domain.EmailContent{Subject: "B", Body: domain.PlaceholderBody}})
	h.repo.put(approvedEmail(ids[2]))
	h.repo.put(domain.FeedbackContent{Key: emailKey(ids[3]), Content: domain.EmailContent{Subject: "D", Body: "Also ready"}})
	req := BatchRequest{Kind: domain.KindCustomEmail, RoundName: "screening", StartupIDs: ids}

	preview, err := h.svc.PreviewBatchApprove(context.Background(), req)
	if err != nil {
		t.Fatalf("preview: %v", err)
	}
	if preview.Count != 2 || len(preview.StartupIDs) != 2 || preview.StartupIDs[0] != ids[0] || preview.StartupIDs[1] != ids[3] {
		t.Fatalf("unexpected preview %+v", preview)
	}

	_, err = h.svc.BatchApprove(context.Background(), req, uuid.New(), ApproveConfirmation{Count: 3, Token: preview.Token})
	if !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("count mismatch must be rejected, got %v", err)
	}
	if c, _ := h.repo.Get(context.Background(), emailKey(ids[0])); c.IsApproved {
		t.Fatal("rejected batch must not approve anything")
	}

	// a record changing after the preview invalidates the token
	h.repo.put(domain.FeedbackContent{Key: emailKey(ids[1]), Content: domain.EmailContent{Subject: "B", Body: "Now ready"}})
	if _, err := h.svc.BatchApprove(context.Background(), req, uuid.New(), ApproveConfirmation{Count: preview.Count, Token: preview.Token}); !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("stale token must be rejected, got %v", err)
	}

	fresh, err := h.svc.PreviewBatchApprove(context.Background(), req)
	if err != nil {
		t.Fatalf("preview: %v", err)
	}
	res, err := h.svc.BatchApprove(context.Background(), req, uuid.New(), ApproveConfirmation{Count: fresh.Count, Token: fresh.Token})
	if err != nil {
		t.Fatalf("approve: %v", err)
	}
	if res.SuccessCount != 3 || res.Total != 3 {
		t.Fatalf("expected 3 approvals, got %+v", res)
	}
	for _, id := range ids {
		if c, _ := h.repo.Get(context.Background(), emailKey(id)); !c.IsApproved {
			t.Fatalf("%s not approved", id)
		}
	}
}

func TestApproveTokenDependsOnScope(t *testing.T) {
	ids := newIDs(2)
	a := approveToken(BatchRequest{Kind: domain.KindCustomEmail, RoundName: "screening"}, ids)
	b := approveToken(BatchRequest{Kind: domain.KindCustomEmail, RoundName: "pitching"}, ids)
	c := approveToken(BatchRequest{Kind: domain.KindCustomEmail, RoundName: "screening"}, []uuid.UUID{ids[1], ids[0]})
	if a == b || a == c || len(a) != 32 {
		t.Fatalf("tokens must differ by round and order: %s %s %s", a, b, c)
	}
}
