package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strconv"

	"jury_portal_backend/internal/feedback/domain"
	"jury_portal_backend/platform/apperr"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

const msgConfirmationMismatch = "the selection changed since the preview; preview again before approving"

// BatchRequest selects the records of one kind and round.
type BatchRequest struct {
	Kind       domain.Kind
	RoundName  string
	StartupIDs []uuid.UUID
}

// BatchItem is the outcome for one startup, in input order.
type BatchItem struct {
	StartupID uuid.UUID
	// Skipped items did not pass the filter and were not attempted.
	Skipped bool
	Success bool
	Error   string
}

// BatchResult counts attempted items only; Total excludes skipped ones.
type BatchResult struct {
	SuccessCount int
	Total        int
	Items        []BatchItem
}

// ApprovePreview is the dry run that must precede BatchApprove.
type ApprovePreview struct {
	Count      int
	Token      string
	StartupIDs []uuid.UUID
}

// ApproveConfirmation echoes a preview back.
type ApproveConfirmation struct {
	Count int
	Token string
}

// BatchGenerate generates records that were never generated.
func (s *Service) BatchGenerate(ctx context.Context, req BatchRequest) (BatchResult, error) {
	return s.runBatch(ctx, "batch_generate", req, notGenerated, func(ctx context.Context, key domain.Key) error {
		_, err := s.Generate(ctx, key)
		return err
	})
}

// BatchEnhance enhances non-empty, unapproved records. The per-key debounce
// does not apply; each record is enhanced once per batch.
func (s *Service) BatchEnhance(ctx context.Context, req BatchRequest) (BatchResult, error) {
	return s.runBatch(ctx, "batch_enhance", req, approvable, func(ctx context.Context, key domain.Key) error {
		_, err := s.enhance(ctx, key)
		return err
	})
}

// PreviewBatchApprove reports what BatchApprove would approve without changing anything.
func (s *Service) PreviewBatchApprove(ctx context.Context, req BatchRequest) (ApprovePreview, error) {
	targets, _, err := s.filter(ctx, req, approvable)
	if err != nil {
		return ApprovePreview{}, err
	}
	return ApprovePreview{
		Count:      len(targets),
		Token:      approveToken(req, targets),
		StartupIDs: targets,
	}, nil
}

// BatchApprove approves the previewed records. The confirmation must match
// a fresh preview or nothing is changed.
func (s *Service) BatchApprove(ctx context.Context, req BatchRequest, approverID uuid.UUID, confirm ApproveConfirmation) (BatchResult, error) {
	preview, err := s.PreviewBatchApprove(ctx, req)
	if err != nil {
		return BatchResult{}, err
	}
	if confirm.Count != preview.Count || confirm.Token != preview.Token {
		return BatchResult{}, apperr.Validation(msgConfirmationMismatch).WithDetails(map[string]any{
			"count": preview.Count,
			"token": preview.Token,
		})
	}
	return s.runBatch(ctx, "batch_approve", req, approvable, func(ctx context.Context, key domain.Key) error {
		_, err := s.Approve(ctx, key, approverID, 0)
		return err
	})
}

type batchFilter func(c *domain.FeedbackContent) bool

func notGenerated(c *domain.FeedbackContent) bool {
	return c.State() == domain.StateNotGenerated
}

func approvable(c *domain.FeedbackContent) bool {
	return !c.Empty() && !c.IsApproved
}

// filter returns the targeted ids in input order and which inputs were kept.
func (s *Service) filter(ctx context.Context, req BatchRequest, keep batchFilter) ([]uuid.UUID, map[uuid.UUID]bool, error) {
	ids := uniqueIDs(req.StartupIDs)
	existing, err := s.repo.GetMany(ctx, req.Kind, req.RoundName, ids)
	if err != nil {
		return nil, nil, err
	}
	targets := make([]uuid.UUID, 0, len(ids))
	selected := make(map[uuid.UUID]bool, len(ids))
	for _, id := range ids {
		if keep(existing[id]) {
			targets = append(targets, id)
			selected[id] = true
		}
	}
	return targets, selected, nil
}

func (s *Service) runBatch(ctx context.Context, op string, req BatchRequest, keep batchFilter, fn func(context.Context, domain.Key) error) (BatchResult, error) {
	targets, selected, err := s.filter(ctx, req, keep)
	if err != nil {
		return BatchResult{}, err
	}

	errs := make([]error, len(targets))
	keyFor := func(id uuid.UUID) domain.Key {
		return domain.Key{StartupID: id, RoundName: req.RoundName, Kind: req.Kind}
	}

	if s.opts.BatchConcurrency <= 1 {
		for i, id := range targets {
			if err := ctx.Err(); err != nil {
				errs[i] = err
				continue
			}
			errs[i] = fn(ctx, keyFor(id))
		}
	} else {
		var g errgroup.Group
		g.SetLimit(s.opts.BatchConcurrency)
		for i, id := range targets {
			g.Go(func() error {
				if err := ctx.Err(); err != nil {
					errs[i] = err
					return nil
				}
				errs[i] = fn(ctx, keyFor(id))
				return nil
			})
		}
		_ = g.Wait()
	}

	result := BatchResult{Total: len(targets), Items: make([]BatchItem, 0, len(req.StartupIDs))}
	outcome := make(map[uuid.UUID]error, len(targets))
	for i, id := range targets {
		outcome[id] = errs[i]
	}
	seen := make(map[uuid.UUID]bool, len(req.StartupIDs))
	for _, id := range req.StartupIDs {
		if seen[id] {
			continue
		}
		seen[id] = true
		item := BatchItem{StartupID: id}
		switch {
		case !selected[id]:
			item.Skipped = true
		case outcome[id] != nil:
			item.Error = errorMessage(outcome[id])
			s.log.BatchItemFailed(op, id.String(), outcome[id])
		default:
			item.Success = true
			result.SuccessCount++
		}
		result.Items = append(result.Items, item)
	}
	return result, nil
}

// approveToken hashes the request scope and the filtered ids in order.
func approveToken(req BatchRequest, targets []uuid.UUID) string {
	h := sha256.New()
	h.Write([]byte(string(req.Kind) + "|" + req.RoundName + "|" + strconv.Itoa(len(targets))))
	for _, id := range targets {
		h.Write([]byte{'|'})
		h.Write(id[:])
	}
	return hex.EncodeToString(h.Sum(nil))[:32]
}

func uniqueIDs(ids []uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]bool, len(ids))
	out := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if id == uuid.Nil || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
