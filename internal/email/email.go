package email

import (
	"context"
	"fmt"
	"html"
	"net/url"
	"strings"
	"time"

	"github.com/mcsmartbytes/job-sense/internal/config"
	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
	"go.uber.org/zap"
)

// Message is one transactional email
type Message struct {
	To        string
	ToName    string
	Subject   string
	PlainText string
	HTML      string
}

// Sender delivers transactional email
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// NewSender returns the sender selected by email.provider
func NewSender(cfg *config.EmailConfig, logger *zap.Logger) Sender {
	if strings.EqualFold(cfg.Provider, "sendgrid") && cfg.SendGridAPIKey != "" {
		return NewSendGridSender(cfg, logger)
	}
	return NewLogSender(logger)
}

// SendGridSender delivers mail through the SendGrid v3 API
type SendGridSender struct {
	client  *sendgrid.Client
	from    *mail.Email
	sandbox bool
	logger  *zap.Logger
}

func NewSendGridSender(cfg *config.EmailConfig, logger *zap.Logger) *SendGridSender {
	return &SendGridSender{
		client:  sendgrid.NewSendClient(cfg.SendGridAPIKey),
		from:    mail.NewEmail(cfg.FromName, cfg.FromAddress),
		sandbox: cfg.Sandbox,
		logger:  logger,
	}
}

func (s *SendGridSender) Send(ctx context.Context, msg Message) error {
	to := mail.NewEmail(msg.ToName, msg.To)
	message := mail.NewSingleEmail(s.from, msg.Subject, to, msg.PlainText, msg.HTML)

	if s.sandbox {
		ms := mail.NewMailSettings()
		ms.SetSandboxMode(mail.NewSetting(true))
		message.MailSettings = ms
	}

	resp, err := s.client.SendWithContext(ctx, message)
	if err != nil {
		s.logger.Error("Failed to send email via SendGrid", zap.String("subject", msg.Subject), zap.Error(err))
		return fmt.Errorf("failed to send email via sendgrid: %w", err)
	}
	if resp.StatusCode >= 400 {
		s.logger.Error("SendGrid rejected email",
			zap.String("subject", msg.Subject),
			zap.Int("status", resp.StatusCode),
		)
		return fmt.Errorf("sendgrid returned status %d", resp.StatusCode)
	}
	return nil
}

// LogSender writes messages to the log instead of delivering them
type LogSender struct {
	logger *zap.Logger
}

func NewLogSender(logger *zap.Logger) *LogSender {
	return &LogSender{logger: logger}
}

func (s *LogSender) Send(_ context.Context, msg Message) error {
	s.logger.Info("email not delivered (log provider)",
		zap.String("to", msg.To),
		zap.String("subject", msg.Subject),
		zap.String("body", msg.PlainText),
	)
	return nil
}

const layoutHTML = `<!DOCTYPE html>
<html><body style="font-family:Arial,sans-serif;color:#1f2937">
<h2>%s</h2>
<p>%s</p>
<p><a href="%s" style="background:#2563eb;color:#fff;padding:10px 16px;border-radius:6px;text-decoration:none">%s</a></p>
<p style="font-size:12px;color:#6b7280">If the button does not work, paste this link into your browser:<br>%s</p>
<p style="font-size:12px;color:#6b7280">&copy; %d Job Sense</p>
</body></html>`

// VerificationEmail builds the message that links to <baseURL>/verify?token=<raw>
func VerificationEmail(to, baseURL, rawToken string, ttl time.Duration) Message {
	link := tokenLink(baseURL, "/verify", rawToken)
	intro := fmt.Sprintf("Confirm your email address to finish setting up your account. This link expires in %s.", humanize(ttl))
	return Message{
		To:        to,
		Subject:   "Verify your Job Sense account",
		PlainText: fmt.Sprintf("%s\n\n%s\n", intro, link),
		HTML:      render("Verify your email", intro, link, "Verify email"),
	}
}

// PasswordResetEmail builds the message that links to <baseURL>/reset-password?token=<raw>
func PasswordResetEmail(to, baseURL, rawToken string, ttl time.Duration) Message {
	link := tokenLink(baseURL, "/reset-password", rawToken)
	intro := fmt.Sprintf("Someone asked to reset the password for this account. The link expires in %s. Ignore this email if it was not you.", humanize(ttl))
	return Message{
		To:        to,
		Subject:   "Reset your Job Sense password",
		PlainText: fmt.Sprintf("%s\n\n%s\n", intro, link),
		HTML:      render("Reset your password", intro, link, "Choose a new password"),
	}
}

func tokenLink(baseURL, path, rawToken string) string {
	return strings.TrimRight(baseURL, "/") + path + "?token=" + url.QueryEscape(rawToken)
}

func render(title, intro, link, button string) string {
	escaped := html.EscapeString(link)
	return fmt.Sprintf(layoutHTML,
		html.EscapeString(title),
		html.EscapeString(intro),
		escaped,
		html.EscapeString(button),
		escaped,
		time.Now().Year(),
	)
}

func humanize(d time.Duration) string {
	switch {
	case d >= time.Hour && d%time.Hour == 0:
		h := int(d / time.Hour)
		if h == 1 {
			return "1 hour"
		}
		return fmt.Sprintf("%d hours", h)
	case d >= time.Minute:
		return fmt.Sprintf("%d minutes", int(d/time.Minute))
	default:
		return d.String()
	}
}
