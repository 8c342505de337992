package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"quiz-attempt-service/internal/domain"
)

// maxTxRetries bounds optimistic WATCH/EXEC retries per update.
const maxTxRetries = 32

var (
	errTooManyConflicts = errors.New("too many concurrent updates")
	errAttemptExists    = errors.New("attempt already exists")
)

// AttemptStore persists attempts in Redis.
//
//	attempt:{id}          JSON document
//	attempts:user:{user}  ZSET of attempt ids scored by start time (ms)
//	attempts:active       SET of non-terminal attempt ids
//
// Updates use WATCH on the attempt key, so two writers racing on the same
// attempt cannot both commit against the same prior state.
type AttemptStore struct {
	client *redis.Client
}

func NewAttemptStore(client *redis.Client) *AttemptStore {
	return &AttemptStore{client: client}
}

// Create writes the attempt and its index entries in one MULTI, guarded by a
// WATCH on the attempt key. An existing id is rejected before any index is touched.
func (s *AttemptStore) Create(ctx context.Context, attempt domain.Attempt) error {
	data, err := json.Marshal(attempt)
	if err != nil {
		return fmt.Errorf("marshal attempt: %w", err)
	}
	key := attemptKey(attempt.ID)

	txf := func(tx *redis.Tx) error {
		n, err := tx.Exists(ctx, key).Result()
		if err != nil {
			return err
		}
		if n > 0 {
			return fmt.Errorf("attempt %s: %w", attempt.ID, errAttemptExists)
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, data, 0)
			pipe.ZAdd(ctx, userKey(attempt.UserID), redis.Z{
				Score:  float64(attempt.StartTime.UnixMilli()),
				Member: attempt.ID,
			})
			if !attempt.Status.Terminal() {
				pipe.SAdd(ctx, activeKey, attempt.ID)
			}
			return nil
		})
		return err
	}

	for i := 0; i < maxTxRetries; i++ {
		err := s.client.Watch(ctx, txf, key)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if err != nil {
			return fmt.Errorf("create attempt: %w", err)
		}
		return nil
	}
	return fmt.Errorf("create attempt %s: %w", attempt.ID, errTooManyConflicts)
}

func (s *AttemptStore) Get(ctx context.Context, attemptID string) (domain.Attempt, error) {
	data, err := s.client.Get(ctx, attemptKey(attemptID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.Attempt{}, domain.ErrAttemptNotFound
	}
	if err != nil {
		return domain.Attempt{}, fmt.Errorf("get attempt: %w", err)
	}
	return decodeAttempt(data)
}

func (s *AttemptStore) Update(ctx context.Context, attemptID string, fn func(*domain.Attempt) error) (domain.Attempt, error) {
	key := attemptKey(attemptID)
	var updated domain.Attempt

	txf := func(tx *redis.Tx) error {
		data, err := tx.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			return domain.ErrAttemptNotFound
		}
		if err != nil {
			return err
		}
		current, err := decodeAttempt(data)
		if err != nil {
			return err
		}
		next := current.Clone()
		if err := fn(&next); err != nil {
			return err
		}
		encoded, err := json.Marshal(next)
		if err != nil {
			return fmt.Errorf("marshal attempt: %w", err)
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, encoded, 0)
			if next.Status.Terminal() {
				pipe.SRem(ctx, activeKey, attemptID)
			}
			return nil
		})
		if err == nil {
			updated = next
		}
		return err
	}

	for i := 0; i < maxTxRetries; i++ {
		err := s.client.Watch(ctx, txf, key)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if err != nil {
			return domain.Attempt{}, err
		}
		return updated, nil
	}
	return domain.Attempt{}, fmt.Errorf("update attempt %s: %w", attemptID, errTooManyConflicts)
}

func (s *AttemptStore) ListByUser(ctx context.Context, userID string) ([]domain.Attempt, error) {
	ids, err := s.client.ZRevRange(ctx, userKey(userID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("list user attempts: %w", err)
	}
	return s.load(ctx, ids)
}

func (s *AttemptStore) ListActive(ctx context.Context) ([]domain.Attempt, error) {
	ids, err := s.client.SMembers(ctx, activeKey).Result()
	if err != nil {
		return nil, fmt.Errorf("list active attempts: %w", err)
	}
	return s.load(ctx, ids)
}

func (s *AttemptStore) load(ctx context.Context, ids []string) ([]domain.Attempt, error) {
	out := make([]domain.Attempt, 0, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = attemptKey(id)
	}
	values, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("load attempts: %w", err)
	}
	for _, v := range values {
		raw, ok := v.(string)
		if !ok {
			continue
		}
		attempt, err := decodeAttempt([]byte(raw))
		if err != nil {
			return nil, err
		}
		out = append(out, attempt)
	}
	return out, nil
}

func decodeAttempt(data []byte) (domain.Attempt, error) {
	var attempt domain.Attempt
	if err := json.Unmarshal(data, &attempt); err != nil {
		return domain.Attempt{}, fmt.Errorf("unmarshal attempt: %w", err)
	}
	return attempt, nil
}

const activeKey = "attempts:active"

func attemptKey(attemptID string) string {
	return "attempt:" + attemptID
}

func userKey(userID string) string {
	return "attempts:user:" + userID
}
