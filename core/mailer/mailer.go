package mailer

import (
	"context"
	"errors"
	"fmt"
	"html"
	"strings"

	"props-bible/config"
	"props-bible/core/utils"

	"github.com/wneessen/go-mail"
)

var ErrNoRecipient = errors.New("mailer: no recipient")

type Sender interface {
	Send(ctx context.Context, to, subject, textBody, htmlBody string) error
}

// New returns an SMTP sender when SMTP is configured, otherwise a sender that only logs.
func New(cfg config.SMTPConfig, logger *utils.Logger) Sender {
	if !cfg.Enabled() {
		return &LogSender{logger: logger}
	}
	return &SMTPSender{cfg: cfg, logger: logger}
}

type SMTPSender struct {
	cfg    config.SMTPConfig
	logger *utils.Logger
}

func (s *SMTPSender) Send(ctx context.Context, to, subject, textBody, htmlBody string) error {
	to = strings.TrimSpace(to)
	if to == "" {
		return ErrNoRecipient
	}
	subject = strings.NewReplacer("\r", "", "\n", "").Replace(subject)

	m := mail.NewMsg()
	if err := m.FromFormat(s.cfg.FromName, s.cfg.From); err != nil {
		return fmt.Errorf("mailer: set from: %w", err)
	}
	if err := m.To(to); err != nil {
		return fmt.Errorf("mailer: set to: %w", err)
	}
	m.Subject(subject)
	m.SetBodyString(mail.TypeTextPlain, textBody)
	if htmlBody != "" {
		m.AddAlternativeString(mail.TypeTextHTML, htmlBody)
	}

	opts := []mail.Option{mail.WithPort(s.cfg.Port)}
	if s.cfg.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(s.cfg.Username),
			mail.WithPassword(s.cfg.Password),
		)
	}
	switch s.cfg.TLS {
	case "ssl":
		opts = append(opts, mail.WithSSLPort(false))
	case "none":
		opts = append(opts, mail.WithTLSPortPolicy(mail.NoTLS))
	default:
		opts = append(opts, mail.WithTLSPortPolicy(mail.TLSMandatory))
	}
	c, err := mail.NewClient(s.cfg.Host, opts...)
	if err != nil {
		return fmt.Errorf("mailer: client: %w", err)
	}
	if err := c.DialAndSendWithContext(ctx, m); err != nil {
		return fmt.Errorf("mailer: send: %w", err)
	}
	return nil
}

// LogSender records messages in the log; used in dev and when SMTP is off.
type LogSender struct {
	logger *utils.Logger
}

func (s *LogSender) Send(ctx context.Context, to, subject, textBody, htmlBody string) error {
	if strings.TrimSpace(to) == "" {
		return ErrNoRecipient
	}
	s.logger.Printf("MAIL to=%s subject=%q\n%s", to, subject, textBody)
	return nil
}

type Invitation struct {
	ShowName string
	Inviter  string
	RoleName string
	Link     string
}

func InvitationMessage(inv Invitation) (subject, textBody, htmlBody string) {
	subject = fmt.Sprintf("%s invited you to %s", inv.Inviter, inv.ShowName)
	textBody = fmt.Sprintf("%s invited you to join %q as %s.\n\nOpen this link to accept:\n%s\n",
		inv.Inviter, inv.ShowName, inv.RoleName, inv.Link)
	htmlBody = fmt.Sprintf(`<p>%s invited you to join <strong>%s</strong> as %s.</p><p><a href="%s">Accept the invitation</a></p>`,
		html.EscapeString(inv.Inviter), html.EscapeString(inv.ShowName), html.EscapeString(inv.RoleName), html.EscapeString(inv.Link))
	return subject, textBody, htmlBody
}
