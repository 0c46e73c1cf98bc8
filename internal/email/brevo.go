package email

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const defaultBrevoURL = "https://api.brevo.com/v3/smtp/email"

// BrevoSender delivers through the Brevo transactional email API.
type BrevoSender struct {
	apiKey    string
	fromName  string
	fromEmail string
	endpoint  string
	client    *http.Client
}

type brevoAddress struct {
	Name  string `json:"name,omitempty"`
	Email string `json:"email"`
}

type brevoEmailRequest struct {
	Sender      brevoAddress   `json:"sender"`
	To          []brevoAddress `json:"to"`
	Subject     string         `json:"subject"`
	HTMLContent string         `json:"htmlContent"`
	Tags        []string       `json:"tags,omitempty"`
}

type brevoEmailResponse struct {
	MessageID string `json:"messageId"`
}

// NewBrevoSender creates a Brevo sender. A zero timeout falls back to 10s.
func NewBrevoSender(apiKey, fromName, fromEmail string, timeout time.Duration) *BrevoSender {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &BrevoSender{
		apiKey:    apiKey,
		fromName:  fromName,
		fromEmail: fromEmail,
		endpoint:  defaultBrevoURL,
		client:    &http.Client{Timeout: timeout},
	}
}

func (b *BrevoSender) Send(ctx context.Context, msg Message) (Delivery, error) {
	payload := brevoEmailRequest{
		Sender:      brevoAddress{Name: b.fromName, Email: b.fromEmail},
		To:          []brevoAddress{{Email: msg.To}},
		Subject:     msg.Subject,
		HTMLContent: msg.HTML,
		Tags:        msg.Tags,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return Delivery{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.endpoint, bytes.NewReader(body))
	if err != nil {
		return Delivery{}, err
	}
	req.Header.Set("api-key", b.apiKey)
	req.Header.Set("content-type", "application/json")
	req.Header.Set("accept", "application/json")

	resp, err := b.client.Do(req)
	if err != nil {
		return Delivery{}, fmt.Errorf("brevo send failed: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	data, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return Delivery{}, fmt.Errorf("brevo send failed: status %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
	}

	var decoded brevoEmailResponse
	_ = json.Unmarshal(data, &decoded)

	return Delivery{Provider: "brevo", MessageID: decoded.MessageID, SentAt: time.Now()}, nil
}
