package notify

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/Nephrolytics-ai/ehr-audio-probe/pkg/utils"
	"github.com/wneessen/go-mail"
)

const (
	DefaultSMTPPort    = 587
	defaultSMTPTimeout = 30 * time.Second
)

type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	Timeout  time.Duration
}

// SMTPMailer submits over STARTTLS (mandatory) with LOGIN authentication, the
// combination Office 365 style relays expect on port 587.
type SMTPMailer struct {
	cfg SMTPConfig
}

func NewSMTPMailer(cfg SMTPConfig) (*SMTPMailer, error) {
	cfg.Host = strings.TrimSpace(cfg.Host)
	if cfg.Host == "" {
		return nil, utils.WrapIfNotNil(errors.New("smtp host is required"))
	}
	if cfg.Port <= 0 {
		cfg.Port = DefaultSMTPPort
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultSMTPTimeout
	}
	return &SMTPMailer{cfg: cfg}, nil
}

func (m *SMTPMailer) Send(ctx context.Context, msg Message) error {
	mailMsg, err := buildMailMessage(msg)
	if err != nil {
		return err
	}

	client, err := mail.NewClient(m.cfg.Host, m.clientOptions()...)
	if err != nil {
		return utils.WrapIfNotNil(err)
	}

	if err := client.DialAndSendWithContext(ctx, mailMsg); err != nil {
		return utils.WrapIfNotNil(err, "smtp "+m.cfg.Host)
	}
	return nil
}

func (m *SMTPMailer) clientOptions() []mail.Option {
	opts := []mail.Option{
		mail.WithPort(m.cfg.Port),
		mail.WithTLSPolicy(mail.TLSMandatory),
		mail.WithTimeout(m.cfg.Timeout),
	}
	if m.cfg.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthLogin),
			mail.WithUsername(m.cfg.Username),
			mail.WithPassword(m.cfg.Password),
		)
	}
	return opts
}

func buildMailMessage(msg Message) (*mail.Msg, error) {
	if len(msg.To) == 0 {
		return nil, utils.WrapIfNotNil(errors.New("at least one recipient is required"))
	}

	mailMsg := mail.NewMsg()
	if err := mailMsg.From(msg.From); err != nil {
		return nil, utils.WrapIfNotNil(err, "from")
	}
	if err := mailMsg.To(msg.To...); err != nil {
		return nil, utils.WrapIfNotNil(err, "to")
	}
	mailMsg.Subject(msg.Subject)
	mailMsg.SetDate()
	mailMsg.SetBodyString(mail.TypeTextPlain, msg.Body)
	return mailMsg, nil
}
