package mail

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/renderer/html"
	"gopkg.in/gomail.v2"
)

const followupLayout = `<!DOCTYPE html>
<html>
<head><title>{{.Subject}}</title></head>
<body style="font-family: Arial, sans-serif; font-size: 14px; color: #222;">
{{.Content}}</body>
</html>`

var followupTemplate = template.Must(template.New("followup").Parse(followupLayout))

// Hard wraps keep the line-per-line greeting and signature of a follow-up.
var markdown = goldmark.New(goldmark.WithRendererOptions(html.WithHardWraps()))

func NewEmailSender(host string, port int, user, password, from, fromName string) *EmailSender {
	return &EmailSender{
		Host:     host,
		Port:     port,
		User:     user,
		Password: password,
		From:     from,
		FromName: fromName,
	}
}

func (s *EmailSender) Provider() string {
	return "smtp"
}

// SendEmail delivers one message. gomail has no context support, so ctx is
// only checked before dialing; the caller owns cancellation.
func (s *EmailSender) SendEmail(ctx context.Context, to, subject, body string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m, err := s.buildMessage(to, subject, body)
	if err != nil {
		return err
	}

	d := gomail.NewDialer(s.Host, s.Port, s.User, s.Password)
	if err := d.DialAndSend(m); err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}
	return nil
}

func (s *EmailSender) buildMessage(to, subject, body string) (*gomail.Message, error) {
	htmlBody, err := renderHTML(subject, body)
	if err != nil {
		return nil, err
	}

	m := gomail.NewMessage()
	if s.FromName != "" {
		m.SetAddressHeader("From", s.From, s.FromName)
	} else {
		m.SetHeader("From", s.From)
	}
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/plain", body)
	m.AddAlternative("text/html", htmlBody)
	return m, nil
}

// renderHTML treats the body as Markdown. Raw HTML in the body is not passed
// through.
func renderHTML(subject, body string) (string, error) {
	var md bytes.Buffer
	if err := markdown.Convert([]byte(strings.ReplaceAll(body, "\r\n", "\n")), &md); err != nil {
		return "", fmt.Errorf("render email body: %w", err)
	}

	data := followupEmailData{
		Subject: subject,
		Content: template.HTML(md.String()),
	}

	var buf bytes.Buffer
	if err := followupTemplate.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render email template: %w", err)
	}
	return buf.String(), nil
}
