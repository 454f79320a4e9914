package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"traderwatch/internal/domain/session"
	"traderwatch/pkg/errors"
)

// Compile-time check
var _ session.Repository = (*EditSessionRepository)(nil)

// EditSessionRepository implements session.Repository using Redis
type EditSessionRepository struct {
	client *redis.Client
}

// NewEditSessionRepository creates a new edit session repository
func NewEditSessionRepository(client *redis.Client) *EditSessionRepository {
	return &EditSessionRepository{
		client: client,
	}
}

// Get retrieves a session by chat ID
func (r *EditSessionRepository) Get(ctx context.Context, chatID int64) (*session.Session, error) {
	key := r.getKey(chatID)

	data, err := r.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return nil, errors.Wrapf(errors.ErrNotFound, "edit session not found for chat_id=%d", chatID)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "failed to get edit session from redis: chat_id=%d", chatID)
	}

	var sess session.Session
	if err := json.Unmarshal([]byte(data), &sess); err != nil {
		return nil, errors.Wrapf(err, "failed to unmarshal edit session: chat_id=%d", chatID)
	}

	return &sess, nil
}

// Save stores a session with TTL
func (r *EditSessionRepository) Save(ctx context.Context, sess *session.Session, ttl time.Duration) error {
	key := r.getKey(sess.ChatID)

	data, err := json.Marshal(sess)
	if err != nil {
		return errors.Wrapf(err, "failed to marshal edit session: chat_id=%d", sess.ChatID)
	}

	if err := r.client.Set(ctx, key, data, ttl).Err(); err != nil {
		return errors.Wrapf(err, "failed to save edit session to redis: chat_id=%d", sess.ChatID)
	}

	return nil
}

// Delete removes a session
func (r *EditSessionRepository) Delete(ctx context.Context, chatID int64) error {
	key := r.getKey(chatID)

	if err := r.client.Del(ctx, key).Err(); err != nil {
		return errors.Wrapf(err, "failed to delete edit session from redis: chat_id=%d", chatID)
	}

	return nil
}

func (r *EditSessionRepository) getKey(chatID int64) string {
	return fmt.Sprintf("edit_session:%d", chatID)
}
