// Package mailer delivers rendered reports by email.
package mailer

import (
	"context"
	"fmt"

	"github.com/creasty/defaults"
	"github.com/wneessen/go-mail"

	"github.com/storagesnap/s3-storage-report/internal/report"
)

type Config struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port" default:"25"`
	// StartTLS upgrades the connection unless set to "no".
	StartTLS string `yaml:"startTLS" default:"yes"`
	From     string `yaml:"from"`
	To       string `yaml:"to"`
	Subject  string `yaml:"subject" default:"S3 storage report"`
}

type unmarshalledConfig Config

func (c *Config) UnmarshalYAML(unmarshal func(any) error) error {
	tmp := new(unmarshalledConfig)
	if err := defaults.Set(tmp); err != nil {
		return err
	}
	if err := unmarshal(tmp); err != nil {
		return err
	}
	*c = Config(*tmp)
	return nil
}

type Mailer struct {
	config Config
}

func New(config Config) *Mailer {
	return &Mailer{config: config}
}

// Send mails the report as a multipart-alternative HTML message. The subject
// is the configured subject with the report's summary appended.
func (m *Mailer) Send(ctx context.Context, doc *report.Document) error {
	msg := mail.NewMsg()
	if err := msg.From(m.config.From); err != nil {
		return fmt.Errorf("invalid sender address: %w", err)
	}
	if err := msg.To(m.config.To); err != nil {
		return fmt.Errorf("invalid recipient address: %w", err)
	}
	msg.Subject(fmt.Sprintf("%s (%s)", m.config.Subject, doc.Summary))
	msg.SetBodyString(mail.TypeTextHTML, doc.HTML)

	tlsPolicy := mail.TLSMandatory
	if m.config.StartTLS == "no" {
		tlsPolicy = mail.NoTLS
	}
	client, err := mail.NewClient(m.config.Host,
		mail.WithPort(m.config.Port),
		mail.WithTLSPolicy(tlsPolicy),
	)
	if err != nil {
		return fmt.Errorf("creating smtp client: %w", err)
	}
	return client.DialAndSendWithContext(ctx, msg)
}
