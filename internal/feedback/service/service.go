// Package service implements the feedback content lifecycle: generation,
// drafts, enhancement, approval, staleness invalidation and sending.
package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"jury_portal_backend/internal/directory"
	"jury_portal_backend/internal/email"
	"jury_portal_backend/internal/events"
	"jury_portal_backend/internal/feedback/domain"
	"jury_portal_backend/internal/storage"
	"jury_portal_backend/platform/apperr"
	"jury_portal_backend/platform/logger"
	"jury_portal_backend/platform/sanitize"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"
)

const (
	msgGenerationFailed   = "content generation failed; try again"
	msgGenerationDisabled = "content generation is not configured"
	msgPleaseWait         = "please wait a moment before enhancing again"
	msgSendOnlyEmail      = "only custom emails can be sent"
	msgNoContactAddress   = "startup has no contact email address"
	msgAlreadySent        = "feedback email was already sent to this startup"
	msgEmptyContent       = "content is empty; generate or edit it first"
	msgVersionConflict    = "feedback was modified by someone else; reload and try again"
	msgRegenerated        = "VC feedback changed after approval; review the regenerated email before sending"
)

// Repository is the feedback persistence.
type Repository interface {
	Get(ctx context.Context, key domain.Key) (*domain.FeedbackContent, error)
	GetMany(ctx context.Context, kind domain.Kind, roundName string, startupIDs []uuid.UUID) (map[uuid.UUID]*domain.FeedbackContent, error)
	Save(ctx context.Context, c *domain.FeedbackContent, expectedVersion int) error
	RecordSend(ctx context.Context, e *domain.DeliveryEvent) error
	HasSent(ctx context.Context, startupID uuid.UUID, roundName string) (bool, error)
	ListSends(ctx context.Context, startupID uuid.UUID, roundName string) ([]domain.DeliveryEvent, error)
}

// Directory provides startup details and evaluation inputs.
type Directory interface {
	GetStartup(ctx context.Context, id uuid.UUID) (directory.Startup, error)
	ListEvaluations(ctx context.Context, startupID uuid.UUID, roundName string) ([]directory.Evaluation, error)
	LatestEvaluationUpdate(ctx context.Context, startupID uuid.UUID, roundName string) (*time.Time, error)
}

// GenerateInput is everything the generator needs for a fresh record.
type GenerateInput struct {
	Key         domain.Key
	StartupName string
	Evaluations []directory.Evaluation
	// VCFeedback is the current VC feedback body; used for custom emails.
	VCFeedback string
}

// EnhanceInput asks for an improved version of current.
type EnhanceInput struct {
	Key         domain.Key
	StartupName string
	Current     domain.Variant
}

// Generator is the text generation capability.
type Generator interface {
	Generate(ctx context.Context, in GenerateInput) (domain.Variant, error)
	Enhance(ctx context.Context, in EnhanceInput) (domain.Variant, error)
}

// Options carries the optional collaborators.
type Options struct {
	Debouncer          Debouncer
	Archive            storage.Archive
	AllowDuplicateSend bool
	BatchConcurrency   int
}

// Service is the content lifecycle manager.
type Service struct {
	repo      Repository
	dir       Directory
	generator Generator
	sender    email.Sender
	eventBus  events.Bus
	log       *logger.Logger
	opts      Options
	loads     singleflight.Group
	now       func() time.Time
}

// New creates the service. generator may be nil when AI is disabled.
func New(repo Repository, dir Directory, generator Generator, sender email.Sender, eventBus events.Bus, log *logger.Logger, opts Options) *Service {
	if opts.Debouncer == nil {
		opts.Debouncer = NewMemoryDebouncer(2 * time.Second)
	}
	if opts.BatchConcurrency < 1 {
		opts.BatchConcurrency = 1
	}
	return &Service{
		repo:      repo,
		dir:       dir,
		generator: generator,
		sender:    sender,
		eventBus:  eventBus,
		log:       log,
		opts:      opts,
		now:       time.Now,
	}
}

// LoadResult is a record as shown to the user.
type LoadResult struct {
	Key     domain.Key
	Content *domain.FeedbackContent
	State   domain.State
	Stale   bool
	// SentLocked means the record is stale but an email already went out, so
	// it was left untouched.
	SentLocked  bool
	Regenerated bool
	Warning     string
}

// Load returns the record, regenerating approved content whose dependency
// changed unless the email was already sent. Concurrent loads of one key share
// a single pass, which outlives the cancellation of whichever caller started it.
func (s *Service) Load(ctx context.Context, key domain.Key) (LoadResult, error) {
	v, err, _ := s.loads.Do(key.String(), func() (any, error) {
		return s.load(context.WithoutCancel(ctx), key)
	})
	if err != nil {
		return LoadResult{}, err
	}
	res := v.(LoadResult)
	if res.Content != nil {
		cp := *res.Content
		res.Content = &cp
	}
	return res, nil
}

func (s *Service) load(ctx context.Context, key domain.Key) (LoadResult, error) {
	content, err := s.repo.Get(ctx, key)
	if err != nil {
		return LoadResult{}, err
	}
	res := LoadResult{Key: key, Content: content, State: content.State()}
	if content == nil {
		return res, nil
	}

	stale, err := s.isStale(ctx, key, content)
	if err != nil {
		return LoadResult{}, err
	}
	if !stale {
		return res, nil
	}

	sent := false
	if key.Kind == domain.KindCustomEmail {
		if sent, err = s.repo.HasSent(ctx, key.StartupID, key.RoundName); err != nil {
			return LoadResult{}, err
		}
	}
	if sent {
		res.Stale = true
		res.SentLocked = true
		return res, nil
	}

	regenerated, err := s.invalidate(ctx, key, content)
	if err != nil {
		// Keep showing the stale record; the user can regenerate manually.
		res.Stale = true
		res.Warning = errorMessage(err)
		return res, nil
	}
	return LoadResult{Key: key, Content: regenerated, State: regenerated.State(), Regenerated: true}, nil
}

func (s *Service) isStale(ctx context.Context, key domain.Key, content *domain.FeedbackContent) (bool, error) {
	depUpdated, err := s.dependencyUpdatedAt(ctx, key)
	if err != nil {
		return false, err
	}
	return domain.ComputeStale(content, depUpdated), nil
}

// invalidate replaces stale approved content with a fresh draft.
func (s *Service) invalidate(ctx context.Context, key domain.Key, content *domain.FeedbackContent) (*domain.FeedbackContent, error) {
	regenerated, err := s.generate(ctx, key, content, content.Version)
	if err != nil {
		return nil, err
	}
	s.eventBus.Publish(ctx, events.FeedbackInvalidated{
		BaseEvent: events.NewBaseEvent(),
		StartupID: key.StartupID,
		RoundName: key.RoundName,
		Kind:      string(key.Kind),
	})
	return regenerated, nil
}

// dependencyUpdatedAt is the VC feedback record for emails and the latest
// evaluation for VC feedback.
func (s *Service) dependencyUpdatedAt(ctx context.Context, key domain.Key) (*time.Time, error) {
	if dep, ok := key.Dependency(); ok {
		c, err := s.repo.Get(ctx, dep)
		if err != nil || c == nil {
			return nil, err
		}
		t := c.UpdatedAt
		return &t, nil
	}
	return s.dir.LatestEvaluationUpdate(ctx, key.StartupID, key.RoundName)
}

// Generate replaces any content for key with freshly generated, unapproved content.
func (s *Service) Generate(ctx context.Context, key domain.Key) (*domain.FeedbackContent, error) {
	existing, err := s.repo.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	return s.generate(ctx, key, existing, 0)
}

func (s *Service) generate(ctx context.Context, key domain.Key, existing *domain.FeedbackContent, expectedVersion int) (*domain.FeedbackContent, error) {
	if s.generator == nil {
		return nil, apperr.Upstream(msgGenerationDisabled, nil)
	}
	startup, err := s.dir.GetStartup(ctx, key.StartupID)
	if err != nil {
		return nil, err
	}
	evaluations, err := s.dir.ListEvaluations(ctx, key.StartupID, key.RoundName)
	if err != nil {
		return nil, err
	}

	in := GenerateInput{Key: key, StartupName: startup.Name, Evaluations: evaluations}
	if dep, ok := key.Dependency(); ok {
		vc, err := s.repo.Get(ctx, dep)
		if err != nil {
			return nil, err
		}
		if !vc.Empty() {
			in.VCFeedback = domain.BodyOf(vc.Content)
		}
	}

	v, err := s.generator.Generate(ctx, in)
	if err != nil {
		s.log.UpstreamFailure("feedback_generation", "generate", err)
		return nil, apperr.Upstream(msgGenerationFailed, err)
	}

	content := &domain.FeedbackContent{Key: key}
	if existing != nil {
		cp := *existing
		content = &cp
	}
	if err := content.Replace(cleanVariant(v)); err != nil {
		return nil, apperr.Upstream(msgGenerationFailed, err)
	}
	if key.Kind == domain.KindVCFeedback {
		content.EvaluationCount = len(evaluations)
	}
	if err := s.repo.Save(ctx, content, expectedVersion); err != nil {
		return nil, err
	}
	return content, nil
}

// SaveDraft stores user edits from Draft or Editing.
func (s *Service) SaveDraft(ctx context.Context, key domain.Key, edit domain.Variant, expectedVersion int) (*domain.FeedbackContent, error) {
	content, err := s.getForUpdate(ctx, key, expectedVersion)
	if err != nil {
		return nil, err
	}
	if err := content.SaveDraft(cleanVariant(edit)); err != nil {
		return nil, lifecycleError(err)
	}
	if err := s.repo.Save(ctx, content, expectedVersion); err != nil {
		return nil, err
	}
	return content, nil
}

// BeginEdit reopens approved content for editing.
func (s *Service) BeginEdit(ctx context.Context, key domain.Key, expectedVersion int) (*domain.FeedbackContent, error) {
	content, err := s.getForUpdate(ctx, key, expectedVersion)
	if err != nil {
		return nil, err
	}
	if content.State() == domain.StateEditing {
		return content, nil
	}
	if err := content.BeginEdit(); err != nil {
		return nil, lifecycleError(err)
	}
	if err := s.repo.Save(ctx, content, expectedVersion); err != nil {
		return nil, err
	}
	return content, nil
}

// Enhance rewrites the current content. Calls for the same key inside the
// debounce window are rejected; the window starts on every call, including
// ones that then fail validation or generation.
func (s *Service) Enhance(ctx context.Context, key domain.Key) (*domain.FeedbackContent, error) {
	allowed, err := s.opts.Debouncer.Allow(ctx, key.String())
	if err != nil {
		// A broken debounce store must not block the action.
		s.log.UpstreamFailure("redis", "enhance_debounce", err)
		allowed = true
	}
	if !allowed {
		return nil, apperr.TooManyRequests(msgPleaseWait)
	}
	return s.enhance(ctx, key)
}

func (s *Service) enhance(ctx context.Context, key domain.Key) (*domain.FeedbackContent, error) {
	content, err := s.repo.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	if content.Empty() {
		return nil, apperr.Validation(msgEmptyContent)
	}
	if s.generator == nil {
		return nil, apperr.Upstream(msgGenerationDisabled, nil)
	}
	startup, err := s.dir.GetStartup(ctx, key.StartupID)
	if err != nil {
		return nil, err
	}

	v, err := s.generator.Enhance(ctx, EnhanceInput{Key: key, StartupName: startup.Name, Current: content.Content})
	if err != nil {
		s.log.UpstreamFailure("feedback_generation", "enhance", err)
		return nil, apperr.Upstream(msgGenerationFailed, err)
	}
	if err := content.Enhance(cleanVariant(v)); err != nil {
		return nil, apperr.Upstream(msgGenerationFailed, err)
	}
	if err := s.repo.Save(ctx, content, content.Version); err != nil {
		return nil, err
	}
	return content, nil
}

// Approve marks the content approved by approverID.
func (s *Service) Approve(ctx context.Context, key domain.Key, approverID uuid.UUID, expectedVersion int) (*domain.FeedbackContent, error) {
	content, err := s.repo.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	if content == nil {
		return nil, apperr.Validation(domain.ErrEmptyContent.Error())
	}
	if expectedVersion > 0 && content.Version != expectedVersion {
		return nil, apperr.Conflict(msgVersionConflict)
	}
	return s.approve(ctx, content, approverID)
}

func (s *Service) approve(ctx context.Context, content *domain.FeedbackContent, approverID uuid.UUID) (*domain.FeedbackContent, error) {
	changed, err := content.Approve(approverID, s.now().UTC())
	if err != nil {
		return nil, lifecycleError(err)
	}
	if !changed {
		return content, nil
	}
	if err := s.repo.Save(ctx, content, content.Version); err != nil {
		return nil, err
	}
	s.eventBus.Publish(ctx, events.FeedbackApproved{
		BaseEvent:  events.NewBaseEvent(),
		StartupID:  content.Key.StartupID,
		RoundName:  content.Key.RoundName,
		Kind:       string(content.Key.Kind),
		ApproverID: approverID,
	})
	return content, nil
}

// SendResult reports a delivered feedback email.
type SendResult struct {
	Content   *domain.FeedbackContent
	Delivery  domain.DeliveryEvent
	Duplicate bool
}

// Send approves the custom email if needed and delivers it to the startup.
func (s *Service) Send(ctx context.Context, key domain.Key, actorID uuid.UUID) (SendResult, error) {
	if key.Kind != domain.KindCustomEmail {
		return SendResult{}, apperr.Validation(msgSendOnlyEmail)
	}

	alreadySent, err := s.repo.HasSent(ctx, key.StartupID, key.RoundName)
	if err != nil {
		return SendResult{}, err
	}
	if alreadySent && !s.opts.AllowDuplicateSend {
		return SendResult{}, apperr.Conflict(msgAlreadySent)
	}

	content, err := s.repo.Get(ctx, key)
	if err != nil {
		return SendResult{}, err
	}
	if content.Empty() {
		return SendResult{}, apperr.Validation(domain.ErrEmptyContent.Error())
	}
	if !alreadySent {
		stale, err := s.isStale(ctx, key, content)
		if err != nil {
			return SendResult{}, err
		}
		if stale {
			if _, err := s.invalidate(ctx, key, content); err != nil {
				return SendResult{}, err
			}
			return SendResult{}, apperr.Validation(msgRegenerated)
		}
	}
	if !content.IsApproved {
		if content, err = s.approve(ctx, content, actorID); err != nil {
			return SendResult{}, err
		}
	}

	startup, err := s.dir.GetStartup(ctx, key.StartupID)
	if err != nil {
		return SendResult{}, err
	}
	to := sanitize.Email(startup.ContactEmail)
	if to == "" {
		return SendResult{}, apperr.Validation(msgNoContactAddress)
	}

	mail := content.Content.(domain.EmailContent)
	html, err := email.RenderStartupFeedback(email.StartupFeedback{
		StartupName: startup.Name,
		RoundLabel:  roundLabel(key.RoundName),
		Body:        mail.Body,
	})
	if err != nil {
		return SendResult{}, apperr.Internal("failed to render feedback email").WithOp("feedback.Send")
	}

	event := domain.DeliveryEvent{
		StartupID: key.StartupID,
		RoundName: key.RoundName,
		ToAddress: to,
		Subject:   mail.Subject,
	}
	delivery, err := s.sender.Send(ctx, email.Message{
		To:      to,
		Subject: mail.Subject,
		HTML:    html,
		Tags:    []string{"feedback", key.RoundName},
	})
	if err != nil {
		providerMsg := err.Error()
		event.Status = domain.DeliveryFailed
		event.Error = &providerMsg
		if recErr := s.repo.RecordSend(ctx, &event); recErr != nil {
			s.log.DatabaseError("record_failed_send", recErr)
		}
		return SendResult{}, apperr.Delivery(providerMsg, err)
	}

	event.Status = domain.DeliverySent
	if delivery.MessageID != "" {
		id := delivery.MessageID
		event.MessageID = &id
	}
	if archiveKey := s.archive(ctx, key, delivery.SentAt, html); archiveKey != "" {
		event.ArchiveKey = &archiveKey
	}
	if err := s.repo.RecordSend(ctx, &event); err != nil {
		return SendResult{}, err
	}

	s.eventBus.Publish(ctx, events.FeedbackSent{
		BaseEvent:  events.NewBaseEvent(),
		StartupID:  key.StartupID,
		RoundName:  key.RoundName,
		ToAddress:  to,
		MessageID:  delivery.MessageID,
		ArchiveKey: deref(event.ArchiveKey),
		Duplicate:  alreadySent,
	})
	return SendResult{Content: content, Delivery: event, Duplicate: alreadySent}, nil
}

func (s *Service) archive(ctx context.Context, key domain.Key, sentAt time.Time, html string) string {
	if s.opts.Archive == nil {
		return ""
	}
	if sentAt.IsZero() {
		sentAt = s.now()
	}
	stored, err := s.opts.Archive.PutHTML(ctx, storage.FeedbackEmailKey(key.RoundName, key.StartupID, sentAt), html)
	if err != nil {
		s.log.UpstreamFailure("minio", "archive_feedback_email", err)
		return ""
	}
	return stored
}

// Sends lists delivery events for the startup's round.
func (s *Service) Sends(ctx context.Context, key domain.Key) ([]domain.DeliveryEvent, error) {
	return s.repo.ListSends(ctx, key.StartupID, key.RoundName)
}

// ArchiveURL returns a download link for an archived email.
func (s *Service) ArchiveURL(ctx context.Context, archiveKey string) (string, error) {
	if s.opts.Archive == nil {
		return "", apperr.NotFound("email archive is not configured")
	}
	url, err := s.opts.Archive.DownloadURL(ctx, archiveKey)
	if err != nil {
		return "", apperr.Upstream("failed to create download link", err)
	}
	return url, nil
}

func (s *Service) getForUpdate(ctx context.Context, key domain.Key, expectedVersion int) (*domain.FeedbackContent, error) {
	content, err := s.repo.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	if content == nil {
		return nil, apperr.NotFound("feedback not found")
	}
	if expectedVersion > 0 && content.Version != expectedVersion {
		return nil, apperr.Conflict(msgVersionConflict)
	}
	return content, nil
}

func cleanVariant(v domain.Variant) domain.Variant {
	switch c := v.(type) {
	case domain.EmailContent:
		return domain.EmailContent{Subject: strings.TrimSpace(sanitize.Text(c.Subject)), Body: sanitize.Body(c.Body)}
	case domain.PlainTextContent:
		return domain.PlainTextContent{Body: sanitize.Body(c.Body)}
	}
	return v
}

func lifecycleError(err error) error {
	switch {
	case errors.Is(err, domain.ErrEmptyContent),
		errors.Is(err, domain.ErrNotEditable),
		errors.Is(err, domain.ErrNotGenerated),
		errors.Is(err, domain.ErrVariantMismatch):
		return apperr.Validation(err.Error())
	}
	return err
}

func errorMessage(err error) string {
	if appErr, ok := apperr.As(err); ok {
		return appErr.Message
	}
	return err.Error()
}

func roundLabel(round string) string {
	if round == "" {
		return ""
	}
	return strings.ToUpper(round[:1]) + round[1:] + " round"
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
