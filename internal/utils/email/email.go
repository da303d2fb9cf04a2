package email

import (
	"fmt"
	"net/smtp"

	"github.com/Dan9191/adboard/internal/config"
	"github.com/jordan-wright/email"
	"github.com/sirupsen/logrus"
)

// Sender handles sending emails via SMTP
type Sender struct {
	cfg    *config.Config
	logger *logrus.Logger
	send   func(e *email.Email) error
}

// NewSender creates a new email sender. Without an SMTP host messages are
// only logged.
func NewSender(cfg *config.Config, logger *logrus.Logger) *Sender {
	s := &Sender{
		cfg:    cfg,
		logger: logger,
	}
	if cfg.SMTPHost == "" {
		s.send = s.logOnly
	} else {
		s.send = s.smtpSend
	}
	return s
}

// SendOTP sends an email verification code
func (s *Sender) SendOTP(to, code string) error {
	e := otpMessage(s.cfg.SenderEmail, to, code)

	if err := s.send(e); err != nil {
		s.logger.Errorf("Failed to send OTP email to %s: %v", to, err)
		return fmt.Errorf("failed to send email: %w", err)
	}

	s.logger.Infof("Email sent to %s: %s", to, e.Subject)
	return nil
}

func otpMessage(from, to, code string) *email.Email {
	e := email.NewEmail()
	e.From = from
	e.To = []string{to}
	e.Subject = "Email Verification OTP"
	e.HTML = []byte(fmt.Sprintf("<h1>Your OTP: %s</h1><p>Please use this code to verify your account.</p>", code))
	e.Text = []byte(fmt.Sprintf("Your OTP: %s\n\nPlease use this code to verify your account.\n", code))
	return e
}

func (s *Sender) smtpSend(e *email.Email) error {
	addr := fmt.Sprintf("%s:%s", s.cfg.SMTPHost, s.cfg.SMTPPort)
	var auth smtp.Auth
	if s.cfg.SMTPUsername != "" {
		auth = smtp.PlainAuth("", s.cfg.SMTPUsername, s.cfg.SMTPPassword, s.cfg.SMTPHost)
	}
	return e.Send(addr, auth)
}

func (s *Sender) logOnly(e *email.Email) error {
	s.logger.WithField("to", e.To).Debugf("SMTP disabled, not sending %q", e.Subject)
	return nil
}
