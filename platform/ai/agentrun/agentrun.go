// Package agentrun runs single-shot ADK agents: one prompt, one throwaway
// session, tool calls captured by the caller's tool handlers.
package agentrun

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"unicode"

	"github.com/google/uuid"
	"google.golang.org/adk/agent"
	"google.golang.org/adk/runner"
	"google.golang.org/adk/session"
	"google.golang.org/genai"
)

const (
	userDataBegin = "<<<BEGIN_USER_DATA>>>"
	userDataEnd   = "<<<END_USER_DATA>>>"
)

// Runner serialises runs of one agent. Tool handlers keep per-run state on
// their own struct, so two runs must never overlap.
type Runner struct {
	appName  string
	runner   *runner.Runner
	sessions session.Service
	mu       sync.Mutex
}

// New wraps an agent in a runner with an in-memory session store.
func New(appName string, a agent.Agent) (*Runner, error) {
	sessions := session.InMemoryService()
	r, err := runner.New(runner.Config{
		AppName:        appName,
		Agent:          a,
		SessionService: sessions,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create %s runner: %w", appName, err)
	}
	return &Runner{appName: appName, runner: r, sessions: sessions}, nil
}

// Run executes prompt in a fresh session. before is called under the run
// lock and is where callers reset tool state; after reads it back.
func (r *Runner) Run(ctx context.Context, userID, prompt string, before, after func()) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if before != nil {
		before()
	}

	sessionID := uuid.NewString()
	if _, err := r.sessions.Create(ctx, &session.CreateRequest{
		AppName:   r.appName,
		UserID:    userID,
		SessionID: sessionID,
	}); err != nil {
		return fmt.Errorf("failed to create %s session: %w", r.appName, err)
	}
	defer func() {
		_ = r.sessions.Delete(context.WithoutCancel(ctx), &session.DeleteRequest{
			AppName:   r.appName,
			UserID:    userID,
			SessionID: sessionID,
		})
	}()

	msg := &genai.Content{Role: genai.RoleUser, Parts: []*genai.Part{{Text: prompt}}}
	cfg := agent.RunConfig{StreamingMode: agent.StreamingModeNone}
	for _, err := range r.runner.Run(ctx, userID, sessionID, msg, cfg) {
		if err != nil {
			return err
		}
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	if after != nil {
		after()
	}
	return nil
}

// UserInput removes control characters and truncates s to maxLen bytes.
func UserInput(s string, maxLen int) string {
	var sb strings.Builder
	for _, r := range s {
		if unicode.IsControl(r) && r != '\n' && r != '\t' {
			continue
		}
		sb.WriteRune(r)
	}
	out := sb.String()
	if len(out) > maxLen {
		out = strings.ToValidUTF8(out[:maxLen], "") + "... [truncated]"
	}
	return out
}

// WrapUserData fences untrusted content so instructions inside it are not
// followed.
func WrapUserData(content string) string {
	return userDataBegin + "\n" + content + "\n" + userDataEnd
}
