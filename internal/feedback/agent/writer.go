// Package agent implements feedback generation on an ADK agent that answers
// through the SubmitFeedbackContent tool. Prompts live in prompts.yaml.
package agent

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"strings"

	"jury_portal_backend/internal/feedback/domain"
	"jury_portal_backend/internal/feedback/service"
	"jury_portal_backend/platform/ai/agentrun"
	"jury_portal_backend/platform/ai/moonshot"
	"jury_portal_backend/platform/config"

	"google.golang.org/adk/agent/llmagent"
	"google.golang.org/adk/tool"
	"google.golang.org/adk/tool/functiontool"
	"gopkg.in/yaml.v3"
)

const (
	submitToolName  = "SubmitFeedbackContent"
	maxCommentChars = 2000
	maxBodyChars    = 12000
)

// ErrNoSubmission is returned when the model ended without calling the tool.
var ErrNoSubmission = errors.New("model did not submit feedback content")

//go:embed prompts.yaml
var promptsYAML []byte

// Prompts is the prompt catalog.
type Prompts struct {
	Instruction string                     `yaml:"instruction"`
	Tasks       map[string]TaskPromptGroup `yaml:"tasks"`
}

// TaskPromptGroup holds the per-kind task texts.
type TaskPromptGroup struct {
	Generate string `yaml:"generate"`
	Enhance  string `yaml:"enhance"`
}

// LoadPrompts parses a prompt catalog and checks that every kind is covered.
func LoadPrompts(data []byte) (Prompts, error) {
	var p Prompts
	if err := yaml.Unmarshal(data, &p); err != nil {
		return Prompts{}, fmt.Errorf("feedback prompts: %w", err)
	}
	if strings.TrimSpace(p.Instruction) == "" {
		return Prompts{}, errors.New("feedback prompts: instruction is empty")
	}
	for _, kind := range []domain.Kind{domain.KindCustomEmail, domain.KindVCFeedback} {
		group, ok := p.Tasks[string(kind)]
		if !ok || strings.TrimSpace(group.Generate) == "" || strings.TrimSpace(group.Enhance) == "" {
			return Prompts{}, fmt.Errorf("feedback prompts: tasks for %s are incomplete", kind)
		}
	}
	return p, nil
}

// SubmitFeedbackContentInput is the tool argument.
type SubmitFeedbackContentInput struct {
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// SubmitFeedbackContentOutput acknowledges the submission.
type SubmitFeedbackContentOutput struct {
	Status string `json:"status"`
}

// Writer implements service.Generator.
type Writer struct {
	run     *agentrun.Runner
	prompts Prompts

	// per-run state, guarded by the runner lock
	submitted bool
	result    SubmitFeedbackContentInput
}

// NewWriter builds the writer agent from the AI configuration.
func NewWriter(cfg config.AIConfig) (*Writer, error) {
	prompts, err := LoadPrompts(promptsYAML)
	if err != nil {
		return nil, err
	}

	model := moonshot.NewModel(moonshot.Config{
		APIKey:          cfg.GetMoonshotAPIKey(),
		BaseURL:         cfg.GetMoonshotBaseURL(),
		Model:           cfg.GetAIModel(),
		DisableThinking: true,
		ForcedTool:      submitToolName,
		Timeout:         cfg.GetAIRequestTimeout(),
	})

	w := &Writer{prompts: prompts}
	submitTool, err := functiontool.New(functiontool.Config{
		Name:        submitToolName,
		Description: "Submit the finished feedback. subject is required for emails and empty otherwise; body is plain text with blank lines between paragraphs.",
	}, w.handleSubmit)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s tool: %w", submitToolName, err)
	}

	a, err := llmagent.New(llmagent.Config{
		Name:        "FeedbackWriter",
		Model:       model,
		Description: "Writes and improves startup feedback from jury evaluations.",
		Instruction: prompts.Instruction,
		Tools:       []tool.Tool{submitTool},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create feedback agent: %w", err)
	}

	run, err := agentrun.New("feedback", a)
	if err != nil {
		return nil, err
	}
	w.run = run
	return w, nil
}

func (w *Writer) handleSubmit(_ tool.Context, input SubmitFeedbackContentInput) (SubmitFeedbackContentOutput, error) {
	w.submitted = true
	w.result = SubmitFeedbackContentInput{
		Subject: strings.TrimSpace(input.Subject),
		Body:    strings.TrimSpace(input.Body),
	}
	return SubmitFeedbackContentOutput{Status: "ok"}, nil
}

// Generate writes a fresh record.
func (w *Writer) Generate(ctx context.Context, in service.GenerateInput) (domain.Variant, error) {
	task := w.prompts.Tasks[string(in.Key.Kind)].Generate
	return w.submit(ctx, in.Key.Kind, buildGeneratePrompt(task, in))
}

// Enhance improves the current record.
func (w *Writer) Enhance(ctx context.Context, in service.EnhanceInput) (domain.Variant, error) {
	task := w.prompts.Tasks[string(in.Key.Kind)].Enhance
	return w.submit(ctx, in.Key.Kind, buildEnhancePrompt(task, in))
}

func (w *Writer) submit(ctx context.Context, kind domain.Kind, prompt string) (domain.Variant, error) {
	var (
		out       SubmitFeedbackContentInput
		submitted bool
	)
	err := w.run.Run(ctx, "feedback", prompt,
		func() {
			w.submitted = false
			w.result = SubmitFeedbackContentInput{}
		},
		func() {
			submitted = w.submitted
			out = w.result
		},
	)
	if err != nil {
		return nil, err
	}
	if !submitted || out.Body == "" {
		return nil, ErrNoSubmission
	}
	return toVariant(kind, out), nil
}

func toVariant(kind domain.Kind, in SubmitFeedbackContentInput) domain.Variant {
	if kind == domain.KindCustomEmail {
		return domain.EmailContent{Subject: in.Subject, Body: in.Body}
	}
	return domain.PlainTextContent{Body: in.Body}
}

func buildGeneratePrompt(task string, in service.GenerateInput) string {
	var data strings.Builder
	fmt.Fprintf(&data, "Startup: %s\nRound: %s\n", agentrun.UserInput(in.StartupName, 200), in.Key.RoundName)
	if in.VCFeedback != "" {
		data.WriteString("\nConsolidated VC feedback:\n")
		data.WriteString(agentrun.UserInput(in.VCFeedback, maxBodyChars))
		data.WriteString("\n")
	}
	if len(in.Evaluations) > 0 {
		data.WriteString("\nJuror evaluations:\n")
		for i, e := range in.Evaluations {
			score := "n/a"
			if e.Score != nil {
				score = fmt.Sprintf("%.1f", *e.Score)
			}
			fmt.Fprintf(&data, "%d. score %s: %s\n", i+1, score, agentrun.UserInput(e.Comments, maxCommentChars))
		}
	}
	return strings.TrimSpace(task) + "\n\n" + agentrun.WrapUserData(data.String())
}

func buildEnhancePrompt(task string, in service.EnhanceInput) string {
	var data strings.Builder
	fmt.Fprintf(&data, "Startup: %s\n", agentrun.UserInput(in.StartupName, 200))
	if email, ok := in.Current.(domain.EmailContent); ok {
		fmt.Fprintf(&data, "Subject: %s\n", agentrun.UserInput(email.Subject, 200))
	}
	data.WriteString("Current text:\n")
	data.WriteString(agentrun.UserInput(domain.BodyOf(in.Current), maxBodyChars))
	return strings.TrimSpace(task) + "\n\n" + agentrun.WrapUserData(data.String())
}

var _ service.Generator = (*Writer)(nil)
