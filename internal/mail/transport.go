package mail

import (
	"context"
	"fmt"
	"net"
	netmail "net/mail"
	"net/smtp"
	"strconv"
	"time"

	"github.com/samber/oops"

	"natours/api/internal/ids"
)

// Transport delivers a rendered envelope.
type Transport interface {
	Deliver(ctx context.Context, env Envelope) error
}

type sendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

type SMTPTransport struct {
	addr string
	auth smtp.Auth
	send sendFunc
	now  func() time.Time
}

func NewSMTPTransport(host string, port int, username, password string) *SMTPTransport {
	var auth smtp.Auth
	if username != "" {
		auth = smtp.PlainAuth("", username, password, host)
	}
	return &SMTPTransport{
		addr: net.JoinHostPort(host, strconv.Itoa(port)),
		auth: auth,
		send: smtp.SendMail,
		now:  time.Now,
	}
}

func (t *SMTPTransport) Deliver(ctx context.Context, env Envelope) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	from, err := netmail.ParseAddress(env.From)
	if err != nil {
		return fmt.Errorf("parse sender: %w", err)
	}
	to, err := netmail.ParseAddress(env.To)
	if err != nil {
		return fmt.Errorf("parse recipient: %w", err)
	}
	if err := t.send(t.addr, t.auth, from.Address, []string{to.Address}, env.RFC822(t.now())); err != nil {
		return oops.Code("SMTP_SEND_FAILED").With("addr", t.addr).Wrap(err)
	}
	return nil
}

// ObjectPutter is the part of the object store the maildrop needs.
type ObjectPutter interface {
	Put(ctx context.Context, key string, body []byte, contentType string) error
}

// MaildropTransport archives each message as an .eml object instead of
// sending it. The objects hold live reset links, so config refuses it in
// production.
type MaildropTransport struct {
	store ObjectPutter
	now   func() time.Time
}

func NewMaildropTransport(store ObjectPutter) *MaildropTransport {
	return &MaildropTransport{store: store, now: time.Now}
}

func (t *MaildropTransport) Deliver(ctx context.Context, env Envelope) error {
	now := t.now().UTC()
	key := fmt.Sprintf("%s/%s.eml", now.Format("2006/01/02"), ids.New())
	return t.store.Put(ctx, key, env.RFC822(now), "message/rfc822")
}
