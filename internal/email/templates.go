package email

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"strings"
	"time"
)

//go:embed templates/*.html
var templateFS embed.FS

type baseEmailData struct {
	Title      string
	Heading    string
	Subheading string
	CTALabel   string
	CTAURL     string
}

type startupFeedbackEmailData struct {
	baseEmailData
	StartupName string
	Paragraphs  []string
}

type meetingReminderEmailData struct {
	baseEmailData
	JurorName   string
	StartupName string
	MeetingAt   string
	Location    string
}

// StartupFeedback is the input for the feedback email wrapper.
type StartupFeedback struct {
	StartupName string
	RoundLabel  string
	Body        string
}

// MeetingReminder is the input for the juror meeting reminder.
type MeetingReminder struct {
	JurorName   string
	StartupName string
	MeetingAt   time.Time
	MeetingLink string
	Location    string
}

// RenderStartupFeedback wraps an approved plain-text email body in the HTML layout.
func RenderStartupFeedback(data StartupFeedback) (string, error) {
	return renderEmailTemplate("startup_feedback.html", startupFeedbackEmailData{
		baseEmailData: baseEmailData{
			Title:      "Feedback for " + data.StartupName,
			Heading:    "Your evaluation feedback",
			Subheading: data.RoundLabel,
		},
		StartupName: data.StartupName,
		Paragraphs:  splitParagraphs(data.Body),
	})
}

// RenderMeetingReminder renders the juror reminder and returns subject and HTML.
func RenderMeetingReminder(data MeetingReminder) (string, string, error) {
	content, err := renderEmailTemplate("meeting_reminder.html", meetingReminderEmailData{
		baseEmailData: baseEmailData{
			Title:    "Meeting reminder",
			Heading:  "Your meeting is coming up",
			CTALabel: "Join meeting",
			CTAURL:   data.MeetingLink,
		},
		JurorName:   data.JurorName,
		StartupName: data.StartupName,
		MeetingAt:   data.MeetingAt.UTC().Format("Monday 2 January 2006, 15:04 MST"),
		Location:    data.Location,
	})
	if err != nil {
		return "", "", err
	}
	return fmt.Sprintf(subjectMeetingReminderFmt, data.StartupName), content, nil
}

func renderEmailTemplate(name string, data any) (string, error) {
	templates := []string{"templates/base.html", "templates/" + name}
	tmpl, err := template.New("base.html").ParseFS(templateFS, templates...)
	if err != nil {
		return "", fmt.Errorf("parse email template %s: %w", name, err)
	}

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "email", data); err != nil {
		return "", fmt.Errorf("execute email template %s: %w", name, err)
	}
	return buf.String(), nil
}

func splitParagraphs(body string) []string {
	normalized := strings.ReplaceAll(body, "\r\n", "\n")
	var out []string
	for _, block := range strings.Split(normalized, "\n\n") {
		if trimmed := strings.TrimSpace(block); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
