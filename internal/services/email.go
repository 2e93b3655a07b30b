package services

import (
	"fmt"
	"html"
	"net/smtp"

	"github.com/dimitrije/teamboard/internal/config"
)

type EmailService struct {
	cfg      config.SMTPConfig
	sendMail func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

func NewEmailService(cfg config.SMTPConfig) *EmailService {
	return &EmailService{cfg: cfg, sendMail: smtp.SendMail}
}

func (s *EmailService) IsConfigured() bool {
	return s.cfg.Host != "" && s.cfg.Username != "" && s.cfg.Password != "" && s.cfg.From != ""
}

// Send is a no-op when SMTP is not configured.
func (s *EmailService) Send(to, subject, body string) error {
	if !s.IsConfigured() {
		return nil
	}

	addr := fmt.Sprintf("%s:%s", s.cfg.Host, s.cfg.Port)
	auth := smtp.PlainAuth("", s.cfg.Username, s.cfg.Password, s.cfg.Host)

	msg := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\nMIME-Version: 1.0\r\nContent-Type: text/html; charset=\"UTF-8\"\r\n\r\n%s",
		s.cfg.From, to, subject, body)

	return s.sendMail(addr, auth, s.cfg.From, []string{to}, []byte(msg))
}

func (s *EmailService) SendProjectInvite(to, projectTitle, inviterName, inviteCode, joinURL string) error {
	subject := fmt.Sprintf("You've been added to %s", projectTitle)
	body := fmt.Sprintf(`
		<html>
		<body>
			<h2>Project Invitation</h2>
			<p>Hi,</p>
			<p><strong>%s</strong> has added you to the project <strong>%s</strong>.</p>
			<p>Share this invite code with teammates: <code>%s</code></p>
			<p><a href="%s">Open the project</a></p>
		</body>
		</html>
	`, html.EscapeString(inviterName), html.EscapeString(projectTitle), html.EscapeString(inviteCode), html.EscapeString(joinURL))

	return s.Send(to, subject, body)
}
