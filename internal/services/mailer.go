package services

import (
	"fmt"

	"github.com/minimart/apiserver/config"
	"github.com/sirupsen/logrus"
	"gopkg.in/gomail.v2"
)

// Mailer delivers password reset emails over SMTP. When no SMTP
// credentials are configured it runs disabled and only logs the token,
// which keeps local development working without a mail account.
type Mailer struct {
	dialer     *gomail.Dialer
	from       string
	ttlMinutes int
	log        *logrus.Logger
}

func NewMailer(cfg config.SMTPConfig, resetTTLMinutes int, log *logrus.Logger) *Mailer {
	if cfg.Username == "" || cfg.Password == "" {
		log.Warn("SMTP credentials not configured, email delivery disabled")
		return &Mailer{ttlMinutes: resetTTLMinutes, log: log}
	}

	return &Mailer{
		dialer:     gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
		from:       cfg.Username,
		ttlMinutes: resetTTLMinutes,
		log:        log,
	}
}

// SendResetEmail delivers the reset token to the recipient.
func (m *Mailer) SendResetEmail(to, token string) error {
	if m.dialer == nil {
		m.log.WithField("email", to).Infof("email delivery disabled, reset token: %s", token)
		return nil
	}

	body := fmt.Sprintf(`Hello,

You have requested to reset your password. Please use this token to reset your password:

Token = %q

This token will expire in %d minutes.

If you did not request this password reset, please ignore this email.
`, token, m.ttlMinutes)

	msg := gomail.NewMessage()
	msg.SetHeader("From", m.from)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", "Password Reset Request")
	msg.SetBody("text/plain", body)

	if err := m.dialer.DialAndSend(msg); err != nil {
		m.log.WithField("email", to).WithError(err).Error("failed to send reset email")
		return err
	}

	m.log.WithField("email", to).Info("reset email sent")
	return nil
}
