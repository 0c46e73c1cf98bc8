package email

import (
	"context"
	"fmt"
	"net"
	"time"

	gomail "github.com/wneessen/go-mail"
)

// SMTPOptions configures an SMTPSender.
type SMTPOptions struct {
	Host      string
	Port      int
	Username  string
	Password  string
	FromEmail string
	FromName  string
	Timeout   time.Duration
}

// SMTPSender delivers over a direct SMTP connection via go-mail.
type SMTPSender struct {
	opts SMTPOptions
}

// NewSMTPSender creates a new SMTPSender. A zero timeout falls back to 15s.
func NewSMTPSender(opts SMTPOptions) *SMTPSender {
	if opts.Timeout <= 0 {
		opts.Timeout = 15 * time.Second
	}
	return &SMTPSender{opts: opts}
}

func (s *SMTPSender) Send(ctx context.Context, msg Message) (Delivery, error) {
	m, err := s.buildMsg(msg)
	if err != nil {
		return Delivery{}, err
	}

	clientOpts := []gomail.Option{
		gomail.WithPort(s.opts.Port),
		gomail.WithTLSPortPolicy(gomail.TLSOpportunistic),
		gomail.WithTimeout(s.opts.Timeout),
		gomail.WithDialContextFunc(func(dctx context.Context, _ string, addr string) (net.Conn, error) {
			return (&net.Dialer{}).DialContext(dctx, "tcp4", addr)
		}),
	}
	if s.opts.Username != "" {
		clientOpts = append(clientOpts,
			gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
			gomail.WithUsername(s.opts.Username),
			gomail.WithPassword(s.opts.Password),
		)
	}

	client, err := gomail.NewClient(s.opts.Host, clientOpts...)
	if err != nil {
		return Delivery{}, fmt.Errorf("smtp client: %w", err)
	}

	if err := client.DialAndSendWithContext(ctx, m); err != nil {
		return Delivery{}, fmt.Errorf("smtp send: %w", err)
	}

	return Delivery{Provider: "smtp", MessageID: m.GetMessageID(), SentAt: time.Now()}, nil
}

func (s *SMTPSender) buildMsg(msg Message) (*gomail.Msg, error) {
	m := gomail.NewMsg()
	if err := m.FromFormat(s.opts.FromName, s.opts.FromEmail); err != nil {
		return nil, fmt.Errorf("smtp from: %w", err)
	}
	if err := m.To(msg.To); err != nil {
		return nil, fmt.Errorf("smtp to: %w", err)
	}
	m.Subject(msg.Subject)
	m.SetMessageID()
	m.SetBodyString(gomail.TypeTextHTML, msg.HTML)
	return m, nil
}
