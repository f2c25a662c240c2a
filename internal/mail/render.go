package mail

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"
	"time"
)

type Envelope struct {
	From    string
	To      string
	Subject string
	Body    string
}

var templates = template.Must(template.New("mail").Parse(`
{{define "welcome"}}Hi {{.FirstName}},

Welcome to Natours, we're glad to have you!

Upload a photo and complete your profile here: {{.URL}}

- The Natours team
{{end}}
{{define "password_reset"}}Hi {{.FirstName}},

Forgot your password? Submit a PATCH request with your new password and
passwordConfirm to: {{.URL}}

This link is valid for {{.Validity}}. If you didn't forget your password,
please ignore this email.
{{end}}`))

// Render produces the plain text envelope for msg.
func Render(msg Message, from string, resetValidity time.Duration) (Envelope, error) {
	var subject string
	switch msg.Kind {
	case KindWelcome:
		subject = "Welcome to the Natours Family!"
	case KindPasswordReset:
		subject = fmt.Sprintf("Your password reset token (valid for only %s)", humanDuration(resetValidity))
	default:
		return Envelope{}, fmt.Errorf("render: unknown kind %q", msg.Kind)
	}

	data := struct {
		FirstName string
		URL       string
		Validity  string
	}{
		FirstName: firstName(msg.Name),
		URL:       msg.URL,
		Validity:  humanDuration(resetValidity),
	}

	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, string(msg.Kind), data); err != nil {
		return Envelope{}, fmt.Errorf("render %s: %w", msg.Kind, err)
	}

	return Envelope{
		From:    from,
		To:      msg.To,
		Subject: subject,
		Body:    strings.TrimLeft(buf.String(), "\n"),
	}, nil
}

func firstName(name string) string {
	fields := strings.Fields(name)
	if len(fields) == 0 {
		return "there"
	}
	return fields[0]
}

func humanDuration(d time.Duration) string {
	if d <= 0 {
		d = 10 * time.Minute
	}
	n, unit := int(d/time.Minute), "minute"
	if d%time.Hour == 0 {
		n, unit = int(d/time.Hour), "hour"
	}
	if n != 1 {
		unit += "s"
	}
	return fmt.Sprintf("%d %s", n, unit)
}

// RFC822 formats the envelope as a minimal plain text message.
func (e Envelope) RFC822(date time.Time) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", e.From)
	fmt.Fprintf(&b, "To: %s\r\n", e.To)
	fmt.Fprintf(&b, "Subject: %s\r\n", e.Subject)
	fmt.Fprintf(&b, "Date: %s\r\n", date.UTC().Format(time.RFC1123Z))
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=UTF-8\r\n\r\n")
	b.WriteString(strings.ReplaceAll(e.Body, "\n", "\r\n"))
	return []byte(b.String())
}
