// Package domain models per-startup feedback content and its approval
// lifecycle: NotGenerated, Draft, Approved and Editing, plus the derived
// stale flag.
package domain

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Kind selects which feedback record a key refers to.
type Kind string

const (
	KindCustomEmail Kind = "custom_email"
	KindVCFeedback  Kind = "vc_feedback"
)

// PlaceholderBody marks a record that exists but was never generated.
const PlaceholderBody = "Feedback has not been generated yet."

// State is the lifecycle state of a content record.
type State string

const (
	StateNotGenerated State = "not_generated"
	StateDraft        State = "draft"
	StateEditing      State = "editing"
	StateApproved     State = "approved"
)

var (
	ErrEmptyContent    = errors.New("content is empty; generate or edit it before approving")
	ErrNotEditable     = errors.New("approved content must be opened for editing first")
	ErrNotGenerated    = errors.New("content has not been generated yet")
	ErrVariantMismatch = errors.New("content does not match the feedback kind")
)

// Variant is the content payload. It is implemented only by EmailContent and
// PlainTextContent.
type Variant interface {
	Kind() Kind
	// Empty reports whether the content fails the approve precondition.
	Empty() bool
	variant()
}

// EmailContent is the per-startup custom email.
type EmailContent struct {
	Subject string
	Body    string
}

func (EmailContent) Kind() Kind { return KindCustomEmail }

func (c EmailContent) Empty() bool {
	return strings.TrimSpace(c.Subject) == "" || isBlankBody(c.Body)
}

func (EmailContent) variant() {}

// PlainTextContent is the VC feedback detail.
type PlainTextContent struct {
	Body string
}

func (PlainTextContent) Kind() Kind { return KindVCFeedback }

func (c PlainTextContent) Empty() bool { return isBlankBody(c.Body) }

func (PlainTextContent) variant() {}

func isBlankBody(body string) bool {
	body = strings.TrimSpace(body)
	return body == "" || body == PlaceholderBody
}

// BodyOf returns the body of any variant.
func BodyOf(v Variant) string {
	switch c := v.(type) {
	case EmailContent:
		return c.Body
	case PlainTextContent:
		return c.Body
	}
	return ""
}

// Key identifies one content record.
type Key struct {
	StartupID uuid.UUID
	RoundName string
	Kind      Kind
}

func (k Key) String() string {
	return string(k.Kind) + ":" + k.RoundName + ":" + k.StartupID.String()
}

// Dependency returns the key of the record this one is derived from. The VC
// feedback record depends on evaluations instead and reports false.
func (k Key) Dependency() (Key, bool) {
	if k.Kind == KindCustomEmail {
		return Key{StartupID: k.StartupID, RoundName: k.RoundName, Kind: KindVCFeedback}, true
	}
	return Key{}, false
}

// FeedbackContent is one stored content record.
type FeedbackContent struct {
	ID              uuid.UUID
	Key             Key
	Content         Variant
	IsApproved      bool
	ApprovedBy      *uuid.UUID
	ApprovedAt      *time.Time
	Editing         bool
	EvaluationCount int
	Version         int
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Empty reports whether the record has no approvable content.
func (c *FeedbackContent) Empty() bool {
	return c == nil || c.Content == nil || c.Content.Empty()
}

// State derives the lifecycle state. A nil record is NotGenerated.
func (c *FeedbackContent) State() State {
	switch {
	case c == nil || c.Content == nil || isBlankBody(BodyOf(c.Content)):
		return StateNotGenerated
	case c.IsApproved:
		return StateApproved
	case c.Editing:
		return StateEditing
	default:
		return StateDraft
	}
}

// Replace installs freshly generated content and clears any approval.
func (c *FeedbackContent) Replace(v Variant) error {
	if v.Kind() != c.Key.Kind {
		return ErrVariantMismatch
	}
	c.Content = v
	c.clearApproval()
	c.Editing = false
	return nil
}

// SaveDraft stores user edits. Allowed from Draft or Editing.
func (c *FeedbackContent) SaveDraft(v Variant) error {
	if v.Kind() != c.Key.Kind {
		return ErrVariantMismatch
	}
	if c.State() == StateApproved {
		return ErrNotEditable
	}
	c.Content = v
	c.clearApproval()
	c.Editing = false
	return nil
}

// BeginEdit moves approved content back to an editable draft, keeping it.
func (c *FeedbackContent) BeginEdit() error {
	if c.State() == StateNotGenerated {
		return ErrNotGenerated
	}
	c.clearApproval()
	c.Editing = true
	return nil
}

// Enhance swaps in improved content without touching approval.
func (c *FeedbackContent) Enhance(v Variant) error {
	if v.Kind() != c.Key.Kind {
		return ErrVariantMismatch
	}
	if c.Empty() {
		return ErrEmptyContent
	}
	c.Content = v
	return nil
}

// Approve marks non-empty content approved. It reports whether anything changed.
func (c *FeedbackContent) Approve(approverID uuid.UUID, at time.Time) (bool, error) {
	if c.Empty() {
		return false, ErrEmptyContent
	}
	if c.IsApproved {
		return false, nil
	}
	c.IsApproved = true
	c.ApprovedBy = &approverID
	c.ApprovedAt = &at
	c.Editing = false
	return true, nil
}

func (c *FeedbackContent) clearApproval() {
	c.IsApproved = false
	c.ApprovedBy = nil
	c.ApprovedAt = nil
}

// ComputeStale reports whether approved content predates the record it was
// derived from. Both timestamps come from the database clock.
func ComputeStale(c *FeedbackContent, dependentUpdatedAt *time.Time) bool {
	if c == nil || !c.IsApproved || dependentUpdatedAt == nil {
		return false
	}
	return dependentUpdatedAt.After(c.UpdatedAt)
}
