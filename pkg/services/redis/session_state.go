package redisservice

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const sessionStateKey = Prefix + "sessionState:%s"

const (
	SessionStatusCreated = "created"
	SessionStatusActive  = "active"
	SessionStatusEnded   = "ended"
)

// CreateSessionState seeds the state hash for a freshly created session.
func (s *RedisService) CreateSessionState(ctx context.Context, sessionId, sid, serviceName, provider, lang string) error {
	key := fmt.Sprintf(sessionStateKey, sessionId)

	pipe := s.rc.TxPipeline()
	pipe.HSet(ctx, key, map[string]interface{}{
		"status":     SessionStatusCreated,
		"sid":        sid,
		"service":    serviceName,
		"provider":   provider,
		"lang":       lang,
		"created_at": time.Now().Unix(),
	})
	pipe.Persist(ctx, key)
	_, err := pipe.Exec(ctx)
	return err
}

// UpdateSessionStatus moves the session through created -> active -> ended.
func (s *RedisService) UpdateSessionStatus(ctx context.Context, sessionId, status string) error {
	key := fmt.Sprintf(sessionStateKey, sessionId)
	return s.rc.HSet(ctx, key, "status", status).Err()
}

// GetSessionStatus returns an empty string when the session has no state.
func (s *RedisService) GetSessionStatus(ctx context.Context, sessionId string) (string, error) {
	key := fmt.Sprintf(sessionStateKey, sessionId)
	status, err := s.rc.HGet(ctx, key, "status").Result()
	switch {
	case errors.Is(err, redis.Nil):
		return "", nil
	case err != nil:
		return "", err
	}

	return status, nil
}

func (s *RedisService) GetSessionState(ctx context.Context, sessionId string) (map[string]string, error) {
	key := fmt.Sprintf(sessionStateKey, sessionId)
	state, err := s.rc.HGetAll(ctx, key).Result()
	if err != nil {
		return nil, err
	}
	if len(state) == 0 {
		return nil, nil
	}

	return state, nil
}

// ScheduleSessionCleanup lets the state hash expire on its own instead of
// deleting it right away, so late readers still see the ended status.
func (s *RedisService) ScheduleSessionCleanup(ctx context.Context, sessionId string, after time.Duration) error {
	key := fmt.Sprintf(sessionStateKey, sessionId)
	return s.rc.Expire(ctx, key, after).Err()
}

func (s *RedisService) DeleteSessionState(ctx context.Context, sessionId string) error {
	key := fmt.Sprintf(sessionStateKey, sessionId)
	return s.rc.Del(ctx, key).Err()
}
