package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrRedisUnavailable wraps every transport-level Redis failure so callers
// can match it with errors.Is and treat session reads as deny.
var ErrRedisUnavailable = errors.New("redis unavailable")

// ErrSessionCorrupt is returned when a stored session blob fails to decode.
var ErrSessionCorrupt = errors.New("session blob corrupt")

// Status is the outcome of validating a presented token identifier against
// the registry.
type Status int

const (
	// StatusAbsent means no live session exists for the (user, device) pair.
	StatusAbsent Status = iota
	// StatusStale means a session exists but with a different token
	// identifier: the presented token was rotated or superseded. Callers
	// must treat stale as invalid and not retry with the old token.
	StatusStale
	// StatusValid means the presented token identifier is the current one.
	StatusValid
)

func (s Status) String() string {
	switch s {
	case StatusValid:
		return "valid"
	case StatusStale:
		return "stale"
	default:
		return "absent"
	}
}

// RotateStatus is the outcome of a compare-and-rotate attempt.
type RotateStatus int

const (
	// RotateAbsent means the session no longer exists (revoked or expired).
	RotateAbsent RotateStatus = iota
	// RotateMismatch means the session's current token identifier differs
	// from the expected one: a concurrent rotation or login won the race.
	RotateMismatch
	// Rotated means the session now carries the new token identifier.
	Rotated
)

// Sessions are stored as hashes with two fields so that Lua scripts can
// compare the token identifier without decoding the metadata blob.
const (
	fieldTokenID = "tid"
	fieldData    = "data"
)

const revokeScript = `
redis.call("DEL", KEYS[1])
redis.call("SREM", KEYS[2], ARGV[1])
return 1
`

var revokeLua = redis.NewScript(revokeScript)

const rotateScript = `
local cur = redis.call("HGET", KEYS[1], "tid")
if not cur then
  return 0
end
if cur ~= ARGV[1] then
  return 1
end
redis.call("HSET", KEYS[1], "tid", ARGV[2], "data", ARGV[3])
redis.call("PEXPIRE", KEYS[1], ARGV[4])
redis.call("SADD", KEYS[2], ARGV[5])
return 2
`

var rotateLua = redis.NewScript(rotateScript)

const touchScript = `
if redis.call("EXISTS", KEYS[1]) == 0 then
  return 0
end
redis.call("HSET", KEYS[1], "data", ARGV[1])
return 1
`

var touchLua = redis.NewScript(touchScript)

// Store is the Redis-backed session registry. It is safe for concurrent use.
type Store struct {
	redis  redis.UniversalClient
	prefix string
}

// NewStore returns a Store keyed under prefix (for example "session").
func NewStore(client redis.UniversalClient, prefix string) *Store {
	if prefix == "" {
		prefix = "session"
	}
	return &Store{redis: client, prefix: prefix}
}

func (s *Store) key(userID, deviceID string) string {
	return s.prefix + ":" + userID + ":" + deviceID
}

func (s *Store) indexKey(userID string) string {
	return s.prefix + ":idx:" + userID
}

// Register persists sess with the given TTL, unconditionally overwriting any
// existing session for the same (user, device). The previous token for that
// device is implicitly superseded.
func (s *Store) Register(ctx context.Context, sess *Session, ttl time.Duration) error {
	if ttl <= 0 {
		return errors.New("non-positive session ttl")
	}
	data, err := encode(sess)
	if err != nil {
		return err
	}

	key := s.key(sess.UserID, sess.DeviceID)
	idx := s.indexKey(sess.UserID)

	_, err = s.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, key, fieldTokenID, sess.TokenID, fieldData, data)
		pipe.PExpire(ctx, key, ttl)
		pipe.SAdd(ctx, idx, sess.DeviceID)
		pipe.PExpire(ctx, idx, indexTTL(ttl))
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

// The device index outlives individual sessions a little so that RevokeAll
// can still find what to delete right after the last session expired.
func indexTTL(ttl time.Duration) time.Duration {
	return ttl + time.Hour
}

// Validate compares tokenID against the current session for (user, device).
func (s *Store) Validate(ctx context.Context, userID, deviceID, tokenID string) (Status, error) {
	vals, err := s.redis.HMGet(ctx, s.key(userID, deviceID), fieldTokenID, fieldData).Result()
	if err != nil {
		return StatusAbsent, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	current, ok := vals[0].(string)
	if !ok || current == "" {
		return StatusAbsent, nil
	}

	if blob, ok := vals[1].(string); ok {
		sess, decErr := decode([]byte(blob))
		if decErr != nil {
			// Unreadable blob: drop it rather than honor it.
			_ = s.Revoke(ctx, userID, deviceID)
			return StatusAbsent, nil
		}
		if sess.Expired(time.Now()) {
			_ = s.Revoke(ctx, userID, deviceID)
			return StatusAbsent, nil
		}
	}

	if current != tokenID {
		return StatusStale, nil
	}
	return StatusValid, nil
}

// Revoke deletes the session for (user, device). Revoking an absent session
// is not an error.
func (s *Store) Revoke(ctx context.Context, userID, deviceID string) error {
	err := revokeLua.Run(ctx, s.redis,
		[]string{s.key(userID, deviceID), s.indexKey(userID)},
		deviceID,
	).Err()
	if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

// RevokeAll deletes every session for a user.
//
// ATOMICITY NOTE: this reads the device index first and deletes second. A
// login racing between the two phases survives; it is caught by the next
// RevokeAll or expires naturally. The window only affects logout-all
// semantics, never token validation.
func (s *Store) RevokeAll(ctx context.Context, userID string) error {
	idx := s.indexKey(userID)

	deviceIDs, err := s.redis.SMembers(ctx, idx).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil
		}
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	keys := make([]string, 0, len(deviceIDs)+1)
	for _, deviceID := range deviceIDs {
		keys = append(keys, s.key(userID, deviceID))
	}
	keys = append(keys, idx)

	_, err = s.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, keys...)
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

// List returns all live sessions for a user, pruning index entries whose
// sessions have expired or vanished.
func (s *Store) List(ctx context.Context, userID string) ([]Session, error) {
	idx := s.indexKey(userID)

	deviceIDs, err := s.redis.SMembers(ctx, idx).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	if len(deviceIDs) == 0 {
		return nil, nil
	}

	pipe := s.redis.Pipeline()
	cmds := make([]*redis.StringCmd, len(deviceIDs))
	for i, deviceID := range deviceIDs {
		cmds[i] = pipe.HGet(ctx, s.key(userID, deviceID), fieldData)
	}
	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	now := time.Now()
	sessions := make([]Session, 0, len(deviceIDs))
	var stale []interface{}

	for i, cmd := range cmds {
		blob, cmdErr := cmd.Bytes()
		if cmdErr != nil {
			if errors.Is(cmdErr, redis.Nil) {
				stale = append(stale, deviceIDs[i])
				continue
			}
			return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, cmdErr)
		}
		sess, decErr := decode(blob)
		if decErr != nil || sess.Expired(now) {
			stale = append(stale, deviceIDs[i])
			continue
		}
		sessions = append(sessions, *sess)
	}

	if len(stale) > 0 {
		_ = s.redis.SRem(ctx, idx, stale...).Err()
	}
	return sessions, nil
}

// Count returns the number of live sessions for a user.
func (s *Store) Count(ctx context.Context, userID string) (int, error) {
	sessions, err := s.List(ctx, userID)
	if err != nil {
		return 0, err
	}
	return len(sessions), nil
}

// Rotate atomically swaps the session's token identifier from oldTokenID to
// the identifier carried by next, refreshing the TTL. The swap only happens
// while the current identifier still equals oldTokenID; a concurrent
// rotation or login makes it report RotateMismatch instead.
func (s *Store) Rotate(ctx context.Context, oldTokenID string, next *Session, ttl time.Duration) (RotateStatus, error) {
	if ttl <= 0 {
		return RotateAbsent, errors.New("non-positive session ttl")
	}
	data, err := encode(next)
	if err != nil {
		return RotateAbsent, err
	}

	res, err := rotateLua.Run(ctx, s.redis,
		[]string{s.key(next.UserID, next.DeviceID), s.indexKey(next.UserID)},
		oldTokenID,
		next.TokenID,
		data,
		ttl.Milliseconds(),
		next.DeviceID,
	).Int64()
	if err != nil {
		return RotateAbsent, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	switch res {
	case 1:
		return RotateMismatch, nil
	case 2:
		return Rotated, nil
	default:
		return RotateAbsent, nil
	}
}

// Touch updates the session's last-active timestamp. Best effort: the
// session's TTL and token binding are untouched, failures are returned but
// safe to ignore, and an absent session is a no-op.
func (s *Store) Touch(ctx context.Context, userID, deviceID string, at time.Time) error {
	key := s.key(userID, deviceID)

	blob, err := s.redis.HGet(ctx, key, fieldData).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil
		}
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	sess, err := decode(blob)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrSessionCorrupt, err)
	}
	sess.LastActiveAt = at.Unix()

	data, err := encode(sess)
	if err != nil {
		return err
	}

	// The EXISTS guard in the script keeps a racing Revoke from being
	// resurrected by this write.
	if err := touchLua.Run(ctx, s.redis, []string{key}, data).Err(); err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}
