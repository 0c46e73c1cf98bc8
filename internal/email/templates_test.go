package email

import (
	"strings"
	"testing"
	"time"
)

func TestRenderStartupFeedbackSplitsParagraphsAndEscapes(t *testing.T) {
	html, err := RenderStartupFeedback(StartupFeedback{
		StartupName: "Acme <Labs>",
		RoundLabel:  "Screening round",
		Body:        "First paragraph.\r\n\r\nSecond paragraph.\n\n\n",
	})
	if err != nil {
		t.Fatalf("render: %v", err)
	}

	if strings.Count(html, "white-space:pre-line") != 2 {
		t.Fatalf("expected two paragraphs, got:\n%s", html)
	}
	if !strings.Contains(html, "Acme &lt;Labs&gt;") {
		t.Fatalf("expected escaped startup name, got:\n%s", html)
	}
}

func TestRenderMeetingReminder(t *testing.T) {
	subject, html, err := RenderMeetingReminder(MeetingReminder{
		JurorName:   "Dana",
		StartupName: "Acme",
		MeetingAt:   time.Date(2026, 10, 20, 14, 0, 0, 0, time.UTC),
		MeetingLink: "https://meet.test/abc",
	})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if subject != "Reminder: your meeting with Acme" {
		t.Fatalf("unexpected subject %q", subject)
	}
	if !strings.Contains(html, "https://meet.test/abc") || !strings.Contains(html, "Tuesday 20 October 2026") {
		t.Fatalf("unexpected html:\n%s", html)
	}
}
