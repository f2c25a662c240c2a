package tasks

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"natours/api/internal/mail"
	"natours/api/internal/metrics"
)

// Processor turns mail stream entries into delivered messages.
type Processor struct {
	transport     mail.Transport
	from          string
	resetValidity time.Duration
	metrics       *metrics.Metrics
	logger        zerolog.Logger
}

func NewProcessor(transport mail.Transport, from string, resetValidity time.Duration, m *metrics.Metrics, logger zerolog.Logger) *Processor {
	return &Processor{
		transport:     transport,
		from:          from,
		resetValidity: resetValidity,
		metrics:       m,
		logger:        logger,
	}
}

// Handle returns an error only for failures worth retrying. Entries that can
// never be delivered are logged and dropped so they do not block the group.
func (p *Processor) Handle(ctx context.Context, entry redis.XMessage) error {
	msg, err := mail.DecodeMessage(entry.ID, entry.Values)
	if err != nil {
		p.logger.Warn().Err(err).Str("message_id", entry.ID).Msg("dropping undecodable mail entry")
		p.metrics.MailDelivery("unknown", "dropped")
		return nil
	}

	env, err := mail.Render(msg, p.from, p.resetValidity)
	if err != nil {
		p.logger.Warn().Err(err).Str("message_id", entry.ID).Msg("dropping unrenderable mail entry")
		p.metrics.MailDelivery(string(msg.Kind), "dropped")
		return nil
	}

	if err := p.transport.Deliver(ctx, env); err != nil {
		p.metrics.MailDelivery(string(msg.Kind), "failed")
		return fmt.Errorf("deliver %s: %w", msg.Kind, err)
	}

	p.metrics.MailDelivery(string(msg.Kind), "delivered")
	p.logger.Info().
		Str("message_id", msg.ID).
		Str("kind", string(msg.Kind)).
		Str("user_id", msg.UserID).
		Msg("mail delivered")
	return nil
}
