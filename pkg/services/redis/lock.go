package redisservice

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	janitorLockKey       = Prefix + "janitorLock-%s"
	janitorLeaderLockKey = Prefix + "janitorLeaderLock"
)

// unlockScript is a Lua script for atomic check-and-delete.
var unlockScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
    return redis.call("DEL", KEYS[1])
else
    return 0
end
`)

// refreshScript extends the TTL only while we still hold the lock.
var refreshScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
    return redis.call("PEXPIRE", KEYS[1], ARGV[2])
else
    return 0
end
`)

// Lock is a single-holder distributed lock. Its value is unique per holder
// so only the owner can release or refresh it.
type Lock struct {
	rc  *redis.Client
	key string
	ttl time.Duration
	val string
}

// NewLock prepares a lock instance for the given key. Nothing is written
// to Redis until TryLock is called.
func (s *RedisService) NewLock(key string, ttl time.Duration) *Lock {
	return &Lock{
		rc:  s.rc,
		key: Prefix + key,
		ttl: ttl,
		val: uuid.NewString(),
	}
}

// TryLock attempts to acquire the lock.
// Returns:
// - acquired (bool): true if the lock was acquired.
// - err (error): For Redis communication errors.
func (l *Lock) TryLock(ctx context.Context) (bool, error) {
	// Atomically SET the key if it Not eXists (NX), with a TTL.
	ok, err := l.rc.SetNX(ctx, l.key, l.val, l.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("redis SetNX error for key %s: %w", l.key, err)
	}

	return ok, nil
}

// Refresh extends the lock's TTL. It fails when the lock expired or was
// taken over by another holder, which is the signal to step down.
func (l *Lock) Refresh(ctx context.Context) error {
	res, err := refreshScript.Run(ctx, l.rc, []string{l.key}, l.val, l.ttl.Milliseconds()).Int64()
	if err != nil {
		return fmt.Errorf("redis Eval error for refresh script on key %s: %w", l.key, err)
	}
	if res == 0 {
		return fmt.Errorf("lock on key %s is no longer held", l.key)
	}

	return nil
}

// Unlock safely releases the lock using its unique value.
func (l *Lock) Unlock(ctx context.Context) error {
	deleted, err := unlockScript.Run(ctx, l.rc, []string{l.key}, l.val).Int64()
	if errors.Is(err, redis.Nil) {
		// Key didn't exist, which is fine (lock expired or already released).
		return nil
	}
	if err != nil {
		return fmt.Errorf("redis Eval error for unlock script on key %s: %w", l.key, err)
	}

	if deleted == 0 {
		return fmt.Errorf("could not release lock on key %s (it may have expired or been taken by another process)", l.key)
	}
	return nil
}

// AcquireJanitorLeaderLock tries to become the janitor leader. It returns
// whether the lock was acquired and the unique value identifying this
// holder, which must be presented to renew or release the lock.
func (s *RedisService) AcquireJanitorLeaderLock(ctx context.Context, ttl time.Duration) (bool, string, error) {
	val := uuid.NewString()
	acquired, err := s.rc.SetNX(ctx, janitorLeaderLockKey, val, ttl).Result()
	if err != nil {
		return false, "", err
	}

	return acquired, val, nil
}

// RenewJanitorLeadershipLock extends the leader lock TTL. A false return
// without error means the lock is no longer ours.
func (s *RedisService) RenewJanitorLeadershipLock(ctx context.Context, lockVal string, ttl time.Duration) (bool, error) {
	res, err := refreshScript.Run(ctx, s.rc, []string{janitorLeaderLockKey}, lockVal, ttl.Milliseconds()).Int64()
	if err != nil {
		return false, err
	}

	return res == 1, nil
}

// ReleaseJanitorLeadershipLock gives up leadership. Failures are logged
// only; the lock expires on its own anyway.
func (s *RedisService) ReleaseJanitorLeadershipLock(ctx context.Context, lockVal string) {
	if lockVal == "" {
		return
	}
	_, err := unlockScript.Run(ctx, s.rc, []string{janitorLeaderLockKey}, lockVal).Int64()
	if err != nil && !errors.Is(err, redis.Nil) {
		s.logger.WithError(err).Errorln("failed to release janitor leader lock")
	}
}

func (s *RedisService) IsJanitorTaskLock(task string) bool {
	val, _ := s.rc.Get(s.ctx, fmt.Sprintf(janitorLockKey, task)).Result()
	return val != ""
}

func (s *RedisService) LockJanitorTask(task string, duration time.Duration) {
	err := s.rc.Set(s.ctx, fmt.Sprintf(janitorLockKey, task), "locked", duration).Err()
	if err != nil {
		s.logger.WithError(err).Errorln("LockJanitorTask failed")
	}
}

func (s *RedisService) UnlockJanitorTask(task string) {
	_, _ = s.rc.Del(s.ctx, fmt.Sprintf(janitorLockKey, task)).Result()
}
