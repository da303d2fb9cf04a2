package email

import (
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/Dan9191/adboard/internal/config"
	"github.com/jordan-wright/email"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

func newTestSender(host string) *Sender {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return NewSender(&config.Config{SMTPHost: host, SMTPPort: "25", SenderEmail: "noreply@adboard.test"}, logger)
}

func TestOTPMessage(t *testing.T) {
	e := otpMessage("noreply@adboard.test", "bob@example.com", "0427")

	require.Equal(t, "noreply@adboard.test", e.From)
	require.Equal(t, []string{"bob@example.com"}, e.To)
	require.Equal(t, "Email Verification OTP", e.Subject)
	require.True(t, strings.Contains(string(e.HTML), "Your OTP: 0427"))
}

func TestSendOTP_LogOnlyWithoutHost(t *testing.T) {
	s := newTestSender("")
	require.NoError(t, s.SendOTP("bob@example.com", "1111"))
}

func TestSendOTP_WrapsTransportError(t *testing.T) {
	s := newTestSender("smtp.example.com")
	var sent *email.Email
	s.send = func(e *email.Email) error {
		sent = e
		return errors.New("connection refused")
	}

	err := s.SendOTP("bob@example.com", "2222")
	require.Error(t, err)
	require.Contains(t, err.Error(), "failed to send email")
	require.NotNil(t, sent)
}
