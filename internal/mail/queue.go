package mail

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/samber/oops"

	"natours/api/internal/models"
)

const defaultStreamMaxLen = 10000

// Queue hands notifications to the delivery worker through a redis stream.
// A failed XADD is reported to the caller as a dispatch failure.
type Queue struct {
	client redis.Cmdable
	stream string
	maxLen int64
	now    func() time.Time
}

func NewQueue(client redis.Cmdable, stream string) *Queue {
	return &Queue{
		client: client,
		stream: stream,
		maxLen: defaultStreamMaxLen,
		now:    time.Now,
	}
}

func (q *Queue) Enqueue(ctx context.Context, msg Message) (string, error) {
	if msg.QueuedAt.IsZero() {
		msg.QueuedAt = q.now()
	}
	id, err := q.client.XAdd(ctx, &redis.XAddArgs{
		Stream: q.stream,
		MaxLen: q.maxLen,
		Approx: true,
		Values: msg.Values(),
	}).Result()
	if err != nil {
		return "", oops.Code("MAIL_ENQUEUE_FAILED").
			With("stream", q.stream).
			With("kind", string(msg.Kind)).
			With("user_id", msg.UserID).
			Wrap(err)
	}
	return id, nil
}

func (q *Queue) SendWelcome(ctx context.Context, user models.User, url string) error {
	_, err := q.Enqueue(ctx, messageFor(KindWelcome, user, url))
	return err
}

func (q *Queue) SendPasswordReset(ctx context.Context, user models.User, url string) error {
	_, err := q.Enqueue(ctx, messageFor(KindPasswordReset, user, url))
	return err
}

func messageFor(kind Kind, user models.User, url string) Message {
	return Message{
		Kind:   kind,
		UserID: user.ID,
		To:     user.Email,
		Name:   user.Name,
		URL:    url,
	}
}
