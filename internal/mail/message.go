package mail

import (
	"fmt"
	"time"
)

type Kind string

const (
	KindWelcome       Kind = "welcome"
	KindPasswordReset Kind = "password_reset"
)

// Message is one outbound notification as it travels through the stream.
// URL may carry a reset token and must never be logged.
type Message struct {
	ID       string
	Kind     Kind
	UserID   string
	To       string
	Name     string
	URL      string
	QueuedAt time.Time
}

func (m Message) Values() map[string]any {
	return map[string]any{
		"kind":      string(m.Kind),
		"user_id":   m.UserID,
		"to":        m.To,
		"name":      m.Name,
		"url":       m.URL,
		"queued_at": m.QueuedAt.UTC().Format(time.RFC3339),
	}
}

// DecodeMessage rebuilds a Message from stream entry values.
func DecodeMessage(id string, values map[string]any) (Message, error) {
	field := func(key string) string {
		v, ok := values[key]
		if !ok {
			return ""
		}
		s, _ := v.(string)
		return s
	}

	msg := Message{
		ID:     id,
		Kind:   Kind(field("kind")),
		UserID: field("user_id"),
		To:     field("to"),
		Name:   field("name"),
		URL:    field("url"),
	}
	if msg.To == "" {
		return Message{}, fmt.Errorf("message %s: missing recipient", id)
	}
	switch msg.Kind {
	case KindWelcome, KindPasswordReset:
	default:
		return Message{}, fmt.Errorf("message %s: unknown kind %q", id, msg.Kind)
	}
	if raw := field("queued_at"); raw != "" {
		if t, err := time.Parse(time.RFC3339, raw); err == nil {
			msg.QueuedAt = t
		}
	}
	return msg, nil
}
