package notify

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"

	"queuesmart/backend/internal/domain"
)

// RedisEmitter appends events to a Redis stream for out-of-process
// delivery workers (mail, SMS).
type RedisEmitter struct {
	client redis.Cmdable
	stream string
	maxLen int64
}

func NewRedisEmitter(client redis.Cmdable, stream string, maxLen int64) *RedisEmitter {
	if stream == "" {
		stream = "queuesmart:notifications"
	}
	return &RedisEmitter{client: client, stream: stream, maxLen: maxLen}
}

func (e *RedisEmitter) Emit(ctx context.Context, ev domain.NotificationEvent) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	args := &redis.XAddArgs{
		Stream: e.stream,
		Values: map[string]any{
			"event_id":     ev.ID.String(),
			"kind":         string(ev.Kind),
			"recipient_id": ev.RecipientID,
			"subject":      Subject(ev),
			"message":      Render(ev),
			"payload":      string(payload),
		},
	}
	if e.maxLen > 0 {
		args.MaxLen = e.maxLen
		args.Approx = true
	}
	return e.client.XAdd(ctx, args).Err()
}
