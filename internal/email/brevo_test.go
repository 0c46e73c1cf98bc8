package email

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func newTestBrevo(url string) *BrevoSender {
	b := NewBrevoSender("test-key", "Jury Portal", "noreply@jury.test", time.Second)
	b.endpoint = url
	return b
}

func TestBrevoSendReturnsMessageID(t *testing.T) {
	var received brevoEmailRequest
	var gotKey string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.Header.Get("api-key")
		if err := json.NewDecoder(r.Body).Decode(&received); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"messageId":"<202610181200.abc@smtp-relay.mailin.fr>"}`))
	}))
	defer server.Close()

	delivery, err := newTestBrevo(server.URL).Send(context.Background(), Message{
		To:      "founders@acme.test",
		Subject: "Your feedback",
		HTML:    "<p>hi</p>",
		Tags:    []string{"feedback"},
	})
	if err != nil {
		t.Fatalf("send: %v", err)
	}

	if gotKey != "test-key" {
		t.Errorf("api-key = %q, want %q", gotKey, "test-key")
	}
	if len(received.To) != 1 || received.To[0].Email != "founders@acme.test" {
		t.Errorf("To = %#v, want founders@acme.test", received.To)
	}
	if received.Sender.Email != "noreply@jury.test" {
		t.Errorf("Sender = %q, want noreply@jury.test", received.Sender.Email)
	}
	if delivery.MessageID != "<202610181200.abc@smtp-relay.mailin.fr>" {
		t.Errorf("MessageID = %q", delivery.MessageID)
	}
	if delivery.Provider != "brevo" {
		t.Errorf("Provider = %q, want brevo", delivery.Provider)
	}
}

func TestBrevoSendKeepsProviderMessageOnFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"code":"invalid_parameter","message":"email is not valid in to"}`))
	}))
	defer server.Close()

	_, err := newTestBrevo(server.URL).Send(context.Background(), Message{To: "not-an-email", Subject: "s", HTML: "h"})
	if err == nil {
		t.Fatal("expected error for rejected send")
	}
	if !strings.Contains(err.Error(), "email is not valid in to") {
		t.Fatalf("expected provider message in error, got %v", err)
	}
}

func TestNoopSenderAlwaysDelivers(t *testing.T) {
	delivery, err := NoopSender{}.Send(context.Background(), Message{To: "a@b.test"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.HasPrefix(delivery.MessageID, "noop-") {
		t.Fatalf("unexpected message id %q", delivery.MessageID)
	}
}
