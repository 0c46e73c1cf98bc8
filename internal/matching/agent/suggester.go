// Package agent implements the AI match suggester on an ADK agent that must
// answer through the SubmitMatchSuggestions tool.
package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"jury_portal_backend/internal/matching/domain"
	"jury_portal_backend/internal/matching/service"
	"jury_portal_backend/platform/ai/agentrun"
	"jury_portal_backend/platform/ai/moonshot"
	"jury_portal_backend/platform/config"

	"github.com/google/uuid"
	"google.golang.org/adk/agent/llmagent"
	"google.golang.org/adk/tool"
	"google.golang.org/adk/tool/functiontool"
)

const (
	submitToolName = "SubmitMatchSuggestions"
	maxTextLength  = 4000
)

// ErrNoSubmission is returned when the model ended without calling the tool.
var ErrNoSubmission = errors.New("model did not submit match suggestions")

// SuggestionInput is one suggestion as the model submits it.
type SuggestionInput struct {
	StartupID         string `json:"startupId"`
	JurorID           string `json:"jurorId"`
	StartupConfidence int    `json:"startupConfidence"`
	JurorConfidence   int    `json:"jurorConfidence"`
	Reasoning         string `json:"reasoning"`
}

// SubmitMatchSuggestionsInput is the tool argument.
type SubmitMatchSuggestionsInput struct {
	Suggestions []SuggestionInput `json:"suggestions"`
}

// SubmitMatchSuggestionsOutput acknowledges the submission to the model.
type SubmitMatchSuggestionsOutput struct {
	Status   string `json:"status"`
	Accepted int    `json:"accepted"`
}

// Suggester implements service.Suggester.
type Suggester struct {
	run *agentrun.Runner

	// per-run state, guarded by the runner lock
	submitted   bool
	suggestions []domain.MatchSuggestion
}

// NewSuggester builds the matcher agent from the AI configuration.
func NewSuggester(cfg config.AIConfig) (*Suggester, error) {
	model := moonshot.NewModel(moonshot.Config{
		APIKey:          cfg.GetMoonshotAPIKey(),
		BaseURL:         cfg.GetMoonshotBaseURL(),
		Model:           cfg.GetAIModel(),
		DisableThinking: true,
		ForcedTool:      submitToolName,
		Timeout:         cfg.GetAIRequestTimeout(),
	})

	s := &Suggester{}
	submitTool, err := functiontool.New(functiontool.Config{
		Name:        submitToolName,
		Description: "Submit up to three (startup, juror) pairs for the calendar invitation, each with a 0-100 confidence per side and one sentence of reasoning.",
	}, s.handleSubmit)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s tool: %w", submitToolName, err)
	}

	a, err := llmagent.New(llmagent.Config{
		Name:        "MatchAgent",
		Model:       model,
		Description: "Links calendar invitations to the startup being evaluated and the juror evaluating it.",
		Instruction: matchInstruction,
		Tools:       []tool.Tool{submitTool},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create match agent: %w", err)
	}

	run, err := agentrun.New("matcher", a)
	if err != nil {
		return nil, err
	}
	s.run = run
	return s, nil
}

func (s *Suggester) handleSubmit(_ tool.Context, input SubmitMatchSuggestionsInput) (SubmitMatchSuggestionsOutput, error) {
	s.submitted = true
	s.suggestions = s.suggestions[:0]
	for _, in := range input.Suggestions {
		startupID, err := uuid.Parse(strings.TrimSpace(in.StartupID))
		if err != nil {
			continue
		}
		jurorID, err := uuid.Parse(strings.TrimSpace(in.JurorID))
		if err != nil {
			continue
		}
		s.suggestions = append(s.suggestions, domain.MatchSuggestion{
			StartupID:         startupID,
			JurorID:           jurorID,
			StartupConfidence: in.StartupConfidence,
			JurorConfidence:   in.JurorConfidence,
			Reasoning:         strings.TrimSpace(in.Reasoning),
			Method:            domain.MethodAI,
		})
	}
	return SubmitMatchSuggestionsOutput{Status: "ok", Accepted: len(s.suggestions)}, nil
}

// Suggest asks the model for pairs drawn from the candidates in req. Every
// well-formed pair is returned; ranking and the cap happen in domain.Merge.
func (s *Suggester) Suggest(ctx context.Context, req service.SuggestRequest) ([]domain.MatchSuggestion, error) {
	var out []domain.MatchSuggestion
	var submitted bool
	err := s.run.Run(ctx, "matcher", buildPrompt(req),
		func() {
			s.submitted = false
			s.suggestions = nil
		},
		func() {
			submitted = s.submitted
			out = append(out, s.suggestions...)
		},
	)
	if err != nil {
		return nil, err
	}
	if !submitted {
		return nil, ErrNoSubmission
	}
	return out, nil
}

const matchInstruction = `You match calendar invitations for a startup evaluation programme.
Each meeting is between exactly one startup and exactly one juror.
Only use ids from the candidate lists. Never invent ids.
Only propose complete pairs. Leave out pairs where either side is below 60.
Call SubmitMatchSuggestions exactly once, with an empty list if nothing fits.`

func buildPrompt(req service.SuggestRequest) string {
	var sb strings.Builder
	sb.WriteString("INVITATION:\n")
	var inv strings.Builder
	inv.WriteString("Title: " + agentrun.UserInput(req.Summary, 300) + "\n")
	if req.StartTime != nil {
		inv.WriteString("Starts: " + req.StartTime.UTC().Format("2006-01-02 15:04 MST") + "\n")
	}
	if req.Location != "" {
		inv.WriteString("Location: " + agentrun.UserInput(req.Location, 300) + "\n")
	}
	if len(req.Attendees) > 0 {
		inv.WriteString("Attendees: " + strings.Join(req.Attendees, ", ") + "\n")
	}
	if req.Description != "" {
		inv.WriteString("Description:\n" + agentrun.UserInput(req.Description, maxTextLength) + "\n")
	}
	sb.WriteString(agentrun.WrapUserData(inv.String()))
	sb.WriteString("\n\nSTARTUP CANDIDATES (id | name | contact | website):\n")
	for _, c := range req.Startups {
		fmt.Fprintf(&sb, "- %s | %s | %s | %s\n", c.ID, agentrun.UserInput(c.Name, 120), c.ContactEmail, c.Website)
	}
	sb.WriteString("\nJUROR CANDIDATES (id | name | email | company):\n")
	for _, c := range req.Jurors {
		fmt.Fprintf(&sb, "- %s | %s | %s | %s\n", c.ID, agentrun.UserInput(c.Name, 120), c.Email, agentrun.UserInput(c.Company, 120))
	}
	fmt.Fprintf(&sb, "\nSubmit at most %d suggestions with %s.\n", req.Max, submitToolName)
	return sb.String()
}

var _ service.Suggester = (*Suggester)(nil)
