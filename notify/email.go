package notify

import (
	"bytes"
	"context"
	"fmt"
	htmltemplate "html/template"
	"strings"
	texttemplate "text/template"

	"github.com/wneessen/go-mail"
)

const timestampLayout = "2006-01-02 15:04:05"

// SMTPConfig holds the mail relay settings.
type SMTPConfig struct {
	Server         string
	Port           int
	SenderEmail    string
	SenderPassword string
	RecipientEmail string
}

// Complete reports whether every credential needed to send is present.
func (c SMTPConfig) Complete() bool {
	return c.Server != "" && c.SenderEmail != "" && c.SenderPassword != "" && c.RecipientEmail != ""
}

type mailSender interface {
	DialAndSendWithContext(ctx context.Context, messages ...*mail.Msg) error
}

// EmailNotifier sends a multipart plain-text and HTML alert over SMTP with
// mandatory STARTTLS.
type EmailNotifier struct {
	cfg    SMTPConfig
	sender mailSender
}

// NewEmailNotifier builds the SMTP client. It does not dial until an alert
// is sent.
func NewEmailNotifier(cfg SMTPConfig) (*EmailNotifier, error) {
	client, err := mail.NewClient(cfg.Server,
		mail.WithPort(cfg.Port),
		mail.WithTLSPolicy(mail.TLSMandatory),
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
		mail.WithUsername(cfg.SenderEmail),
		mail.WithPassword(cfg.SenderPassword),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create SMTP client: %w", err)
	}
	return &EmailNotifier{cfg: cfg, sender: client}, nil
}

func (e *EmailNotifier) Name() string { return "email" }

func (e *EmailNotifier) Notify(ctx context.Context, alert Alert) error {
	msg, err := e.buildMessage(alert)
	if err != nil {
		return err
	}
	if err := e.sender.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	return nil
}

func (e *EmailNotifier) buildMessage(alert Alert) (*mail.Msg, error) {
	msg := mail.NewMsg()
	if err := msg.From(e.cfg.SenderEmail); err != nil {
		return nil, fmt.Errorf("invalid sender address: %w", err)
	}
	if err := msg.To(e.cfg.RecipientEmail); err != nil {
		return nil, fmt.Errorf("invalid recipient address: %w", err)
	}
	msg.Subject(Subject(alert.Target))
	msg.SetDate()

	plain, err := renderPlain(alert)
	if err != nil {
		return nil, err
	}
	html, err := renderHTML(alert)
	if err != nil {
		return nil, err
	}
	msg.SetBodyString(mail.TypeTextPlain, plain)
	msg.AddAlternativeString(mail.TypeTextHTML, html)
	return msg, nil
}

// Subject is the alert email subject line.
func Subject(target string) string {
	return "⚠️ New WARN Notice Alert: " + target
}

type noticeView struct {
	Number int
	Fields [][2]string
}

type alertView struct {
	Target  string
	Date    string
	Count   int
	Rule    string
	Subject string
	Notices []noticeView
}

func viewOf(alert Alert) alertView {
	v := alertView{
		Target:  alert.Target,
		Date:    alert.DetectedAt.Format(timestampLayout),
		Count:   len(alert.Notices),
		Rule:    strings.Repeat("=", 60),
		Subject: Subject(alert.Target),
	}
	for i, n := range alert.Notices {
		v.Notices = append(v.Notices, noticeView{Number: i + 1, Fields: n.Fields()})
	}
	return v
}

var plainTemplate = texttemplate.Must(texttemplate.New("plain").Parse(
	`New WARN notice(s) detected for {{.Target}}
Date: {{.Date}}
Count: {{.Count}} new notice(s)

{{.Rule}}
{{range .Notices}}
Notice #{{.Number}}:
{{range .Fields}}  {{index . 0}}: {{index . 1}}
{{end}}{{end}}`))

var htmlTemplate = htmltemplate.Must(htmltemplate.New("html").Parse(
	`<html><body>
<h2>{{.Subject}}</h2>
<p><strong>Date:</strong> {{.Date}}</p>
<p><strong>Count:</strong> {{.Count}} new notice(s)</p>
<hr>
{{range .Notices}}<h3>Notice #{{.Number}}</h3>
<table border="1" cellpadding="5">
{{range .Fields}}<tr><td><strong>{{index . 0}}</strong></td><td>{{index . 1}}</td></tr>
{{end}}</table><br>
{{end}}</body></html>`))

func renderPlain(alert Alert) (string, error) {
	var buf bytes.Buffer
	if err := plainTemplate.Execute(&buf, viewOf(alert)); err != nil {
		return "", fmt.Errorf("failed to render plain-text alert: %w", err)
	}
	return buf.String(), nil
}

func renderHTML(alert Alert) (string, error) {
	var buf bytes.Buffer
	if err := htmlTemplate.Execute(&buf, viewOf(alert)); err != nil {
		return "", fmt.Errorf("failed to render HTML alert: %w", err)
	}
	return buf.String(), nil
}
