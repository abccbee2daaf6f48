package email

import (
	"context"
	"fmt"

	"gopkg.in/gomail.v2"

	"eva-meds/internal/apperr"
	"eva-meds/internal/config"
)

// dialer o subconjunto do gomail.Dialer usado aqui
type dialer interface {
	DialAndSend(m ...*gomail.Message) error
}

type EmailService struct {
	fromName  string
	fromEmail string
	dialer    dialer
}

// NewEmailService cria uma nova instância do serviço de email
func NewEmailService(cfg *config.Config) (*EmailService, error) {
	if !cfg.EmailConfigured() {
		return nil, fmt.Errorf("SMTP credentials: %w", apperr.ErrConfigurationMissing)
	}

	d := gomail.NewDialer(
		cfg.SMTPHost,
		cfg.SMTPPort,
		cfg.SMTPUsername,
		cfg.SMTPPassword,
	)

	fromEmail := cfg.SMTPFromEmail
	if fromEmail == "" {
		fromEmail = cfg.SMTPUsername
	}

	return &EmailService{
		fromName:  cfg.SMTPFromName,
		fromEmail: fromEmail,
		dialer:    d,
	}, nil
}

// SendEmail envia um email com HTML
func (s *EmailService) SendEmail(to, subject, htmlBody string) error {
	m := gomail.NewMessage()
	m.SetHeader("From", m.FormatAddress(s.fromEmail, s.fromName))
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/html", htmlBody)

	if err := s.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}

	return nil
}

// SendEmailContext envia respeitando o prazo do contexto.
// O gomail não aceita contexto; se o prazo vence, o envio segue em background e o erro é devolvido.
func (s *EmailService) SendEmailContext(ctx context.Context, to, subject, htmlBody string) error {
	if to == "" {
		return fmt.Errorf("empty recipient address")
	}

	done := make(chan error, 1)
	go func() {
		done <- s.SendEmail(to, subject, htmlBody)
	}()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return fmt.Errorf("email to %s: %w", to, ctx.Err())
	}
}
