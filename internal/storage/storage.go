// Package storage archives rendered outbound emails in S3-compatible object storage.
package storage

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// PresignedURLTTL is the lifetime of archive download links.
const PresignedURLTTL = 15 * time.Minute

// Archive stores and retrieves sent email bodies.
type Archive interface {
	// PutHTML stores html under key and returns the key.
	PutHTML(ctx context.Context, key, html string) (string, error)
	// DownloadURL returns a presigned URL for an archived object.
	DownloadURL(ctx context.Context, key string) (string, error)
}

// FeedbackEmailKey builds the object key for a sent feedback email.
func FeedbackEmailKey(roundName string, startupID uuid.UUID, sentAt time.Time) string {
	round := strings.ToLower(strings.TrimSpace(roundName))
	if round == "" {
		round = "unknown"
	}
	return fmt.Sprintf("feedback/%s/%s/%s.html", round, startupID, sentAt.UTC().Format("20060102T150405Z"))
}
