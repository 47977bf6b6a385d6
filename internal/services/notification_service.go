// internal/services/notification_service.go
package services

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"net/url"
	"time"

	"github.com/mailgun/mailgun-go/v4"
	"github.com/sirupsen/logrus"

	"github.com/needus/ecommerce-backend/internal/config"
	"github.com/needus/ecommerce-backend/internal/models"
)

// Mailer delivers one rendered email.
type Mailer interface {
	Send(ctx context.Context, to, subject, htmlBody, textBody string) error
}

type MailgunMailer struct {
	mg   *mailgun.MailgunImpl
	from string
}

func NewMailgunMailer(cfg config.MailConfig) *MailgunMailer {
	mg := mailgun.NewMailgun(cfg.MailgunDomain, cfg.MailgunAPIKey)
	if cfg.MailgunAPIBase != "" {
		mg.SetAPIBase(cfg.MailgunAPIBase)
	}
	return &MailgunMailer{
		mg:   mg,
		from: fmt.Sprintf("%s <%s>", cfg.FromName, cfg.FromEmail),
	}
}

func (m *MailgunMailer) Send(ctx context.Context, to, subject, htmlBody, textBody string) error {
	message := m.mg.NewMessage(m.from, subject, textBody, to)
	message.SetHtml(htmlBody)

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	_, id, err := m.mg.Send(ctx, message)
	if err != nil {
		return fmt.Errorf("failed to send email through mailgun: %w", err)
	}

	logrus.WithFields(logrus.Fields{"to": to, "message_id": id}).Info("Email sent")
	return nil
}

// LogMailer is used when Mailgun is not configured.
type LogMailer struct{}

func (LogMailer) Send(ctx context.Context, to, subject, htmlBody, textBody string) error {
	logrus.WithFields(logrus.Fields{
		"to":      to,
		"subject": subject,
	}).Info(textBody)
	return nil
}

type NotificationService struct {
	mailer  Mailer
	baseURL string
	appName string
}

type EmailTemplate struct {
	Subject string
	HTML    *template.Template
	Text    string
}

var verificationTemplate = EmailTemplate{
	Subject: "Verify your account",
	HTML: template.Must(template.New("verification").Parse(`
<!DOCTYPE html>
<html>
<body>
	<h2>Welcome {{.Username}}!</h2>
	<p>Thank you for joining {{.AppName}}. Please verify your email address by clicking the link below:</p>
	<a href="{{.ActivationURL}}">Verify Email</a>
	<p>The link expires on {{.ExpiresAt}}.</p>
	<p>Best regards,<br>{{.AppName}} Team</p>
</body>
</html>`)),
	Text: "Welcome %s! Verify your account at %s",
}

func NewNotificationService(cfg *config.Config) *NotificationService {
	var mailer Mailer = LogMailer{}
	if cfg.Mail.MailgunEnabled() {
		mailer = NewMailgunMailer(cfg.Mail)
	}
	return NewNotificationServiceWithMailer(cfg, mailer)
}

func NewNotificationServiceWithMailer(cfg *config.Config, mailer Mailer) *NotificationService {
	return &NotificationService{
		mailer:  mailer,
		baseURL: cfg.App.BaseURL,
		appName: cfg.Mail.FromName,
	}
}

func (s *NotificationService) ActivationURL(token string) string {
	return fmt.Sprintf("%s/activation?token=%s", s.baseURL, url.QueryEscape(token))
}

func (s *NotificationService) SendVerificationEmail(ctx context.Context, user *models.User, token *models.ConfirmationToken) error {
	activationURL := s.ActivationURL(token.Token)

	var body bytes.Buffer
	err := verificationTemplate.HTML.Execute(&body, map[string]interface{}{
		"Username":      user.Username,
		"AppName":       s.appName,
		"ActivationURL": activationURL,
		"ExpiresAt":     token.ExpiresAt.Format(time.RFC1123),
	})
	if err != nil {
		return fmt.Errorf("failed to render email template: %w", err)
	}

	text := fmt.Sprintf(verificationTemplate.Text, user.Username, activationURL)
	return s.mailer.Send(ctx, user.Email, verificationTemplate.Subject, body.String(), text)
}
