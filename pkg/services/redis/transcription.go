package redisservice

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	lastTranscriptionKey        = Prefix + "lastTranscription:%s"
	transcriptionConnectionsKey = Prefix + "transcriptionConnections:%s"
	transcriptionUsageKey       = Prefix + "transcriptionUsage:%s"

	totalUsageField = "total_usage"
)

// SetLastTranscription keeps the most recent final text around so the
// ingest layer can check it for the stop keyword without replaying the
// stream. The TTL guards against sessions that never end cleanly.
func (s *RedisService) SetLastTranscription(ctx context.Context, sessionId, text string) error {
	key := fmt.Sprintf(lastTranscriptionKey, sessionId)
	return s.rc.Set(ctx, key, text, time.Hour).Err()
}

// GetDelLastTranscription pops the stored text atomically. Returns an
// empty string when nothing new arrived since the last call.
func (s *RedisService) GetDelLastTranscription(ctx context.Context, sessionId string) (string, error) {
	key := fmt.Sprintf(lastTranscriptionKey, sessionId)
	text, err := s.rc.GetDel(ctx, key).Result()
	switch {
	case errors.Is(err, redis.Nil):
		return "", nil
	case err != nil:
		return "", err
	}

	return text, nil
}

func (s *RedisService) IncrementTranscriptionConnections(ctx context.Context, sessionId string) (int64, error) {
	key := fmt.Sprintf(transcriptionConnectionsKey, sessionId)
	return s.rc.Incr(ctx, key).Result()
}

func (s *RedisService) DecrementTranscriptionConnections(ctx context.Context, sessionId string) (int64, error) {
	key := fmt.Sprintf(transcriptionConnectionsKey, sessionId)
	return s.rc.Decr(ctx, key).Result()
}

func (s *RedisService) DeleteTranscriptionConnections(ctx context.Context, sessionId string) error {
	key := fmt.Sprintf(transcriptionConnectionsKey, sessionId)
	return s.rc.Del(ctx, key).Err()
}

// TranscriptionUserJoined opens a usage window for the speaker by storing
// the join time in the session's usage hash.
func (s *RedisService) TranscriptionUserJoined(ctx context.Context, sessionId, userId string) error {
	key := fmt.Sprintf(transcriptionUsageKey, sessionId)
	return s.rc.HSet(ctx, key, userId, time.Now().Unix()).Err()
}

// TranscriptionUserLeft closes the speaker's usage window and folds the
// elapsed seconds into the session total. The Watch guards against two
// leave events racing on the same field. Returns the usage in seconds.
func (s *RedisService) TranscriptionUserLeft(ctx context.Context, sessionId, userId string) (int64, error) {
	key := fmt.Sprintf(transcriptionUsageKey, sessionId)
	var usage int64

	err := s.rc.Watch(ctx, func(tx *redis.Tx) error {
		start, err := tx.HGet(ctx, key, userId).Result()
		switch {
		case errors.Is(err, redis.Nil):
			// no open window, nothing to fold
			return nil
		case err != nil:
			return err
		}

		joined, err := strconv.ParseInt(start, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid join time %q for user %s: %w", start, userId, err)
		}
		usage = time.Now().Unix() - joined

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HIncrBy(ctx, key, totalUsageField, usage)
			pipe.HDel(ctx, key, userId)
			return nil
		})
		return err
	}, key)

	return usage, err
}

// GetTranscriptionUsage sums the recorded usage of a session in seconds.
// Windows that were never closed, because a speaker dropped without a
// leave event, are counted up to now. With cleanup the hash is removed
// in the same transaction, so the caller gets the final figure exactly
// once.
func (s *RedisService) GetTranscriptionUsage(ctx context.Context, sessionId string, cleanup bool) (int64, error) {
	key := fmt.Sprintf(transcriptionUsageKey, sessionId)

	var getAll *redis.MapStringStringCmd
	_, err := s.rc.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		getAll = pipe.HGetAll(ctx, key)
		if cleanup {
			pipe.Del(ctx, key)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	var total int64
	for field, val := range getAll.Val() {
		n, err := strconv.ParseInt(val, 10, 64)
		if err != nil {
			s.logger.WithError(err).Warnf("invalid usage value %q in %s", val, key)
			continue
		}
		if field == totalUsageField {
			total += n
		} else {
			total += time.Now().Unix() - n
		}
	}

	return total, nil
}
