package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// commands is the slice of the go-redis API this store uses. *redis.Client
// satisfies it; tests substitute a fake built from redis.NewXxxCmd values.
type commands interface {
	LPush(ctx context.Context, key string, values ...interface{}) *redis.IntCmd
	LRange(ctx context.Context, key string, start, stop int64) *redis.StringSliceCmd
	LLen(ctx context.Context, key string) *redis.IntCmd
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Expire(ctx context.Context, key string, expiration time.Duration) *redis.BoolCmd
	TTL(ctx context.Context, key string) *redis.DurationCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
	Ping(ctx context.Context) *redis.StatusCmd
}

// RedisStore implements Store on Redis.
//
// Key layout per session:
//
//	session:{id}:messages  list of JSON messages, newest first (LPUSH)
//	session:{id}:created   RFC 3339 creation timestamp
//
// Both keys carry the 24h TTL and every write refreshes it.
type RedisStore struct {
	rdb    commands
	logger *slog.Logger
}

// RedisConfig configures the Redis connection.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// NewRedisStore connects to Redis and verifies the connection.
func NewRedisStore(ctx context.Context, cfg RedisConfig, logger *slog.Logger) (*RedisStore, error) {
	if logger == nil {
		logger = slog.Default()
	}
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connecting to redis at %s: %w", cfg.Addr, err)
	}
	return &RedisStore{rdb: rdb, logger: logger}, nil
}

// newRedisStoreWith wires an existing command client, for tests.
func newRedisStoreWith(rdb commands, logger *slog.Logger) *RedisStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &RedisStore{rdb: rdb, logger: logger}
}

// Close releases the underlying connection pool. Stores built from a test
// fake have nothing to close.
func (s *RedisStore) Close() error {
	if closer, ok := s.rdb.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}

func messagesKey(sessionID string) string { return "session:" + sessionID + ":messages" }
func createdKey(sessionID string) string  { return "session:" + sessionID + ":created" }

// Create registers a session, generating an ID when none is supplied.
func (s *RedisStore) Create(ctx context.Context, sessionID string) (string, error) {
	if sessionID == "" {
		sessionID = GenerateID()
	} else if err := ValidateID(sessionID); err != nil {
		return "", err
	}

	if err := s.rdb.Set(ctx, createdKey(sessionID), time.Now().UTC().Format(time.RFC3339), TTL).Err(); err != nil {
		return "", fmt.Errorf("creating session %s: %w", sessionID, err)
	}
	s.logger.Debug("created session", "sessionId", sessionID)
	return sessionID, nil
}

// Append pushes a message onto the session log and refreshes both TTLs.
func (s *RedisStore) Append(ctx context.Context, sessionID string, msg Message) error {
	if err := ValidateID(sessionID); err != nil {
		return err
	}
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now().UTC()
	}

	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encoding message: %w", err)
	}

	key := messagesKey(sessionID)
	if err := s.rdb.LPush(ctx, key, data).Err(); err != nil {
		return fmt.Errorf("appending message to %s: %w", sessionID, err)
	}
	if err := s.rdb.Expire(ctx, key, TTL).Err(); err != nil {
		return fmt.Errorf("refreshing TTL for %s: %w", sessionID, err)
	}
	// Keep the created marker alive for as long as the log.
	if err := s.rdb.Expire(ctx, createdKey(sessionID), TTL).Err(); err != nil {
		s.logger.Warn("failed to refresh created marker TTL", "sessionId", sessionID, "error", err)
	}
	return nil
}

// Messages returns the full log, oldest first.
func (s *RedisStore) Messages(ctx context.Context, sessionID string) ([]Message, error) {
	if err := ValidateID(sessionID); err != nil {
		return nil, err
	}

	raw, err := s.rdb.LRange(ctx, messagesKey(sessionID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("reading messages for %s: %w", sessionID, err)
	}

	// LPUSH stores newest first; reverse into chronological order.
	// Entries that fail to parse are skipped, not fatal.
	messages := make([]Message, 0, len(raw))
	for i := len(raw) - 1; i >= 0; i-- {
		var msg Message
		if err := json.Unmarshal([]byte(raw[i]), &msg); err != nil {
			s.logger.Warn("skipping unparseable message", "sessionId", sessionID, "error", err)
			continue
		}
		messages = append(messages, msg)
	}
	return messages, nil
}

// Context builds the retrieval context from recent assistant messages.
// Any failure degrades to an empty string.
func (s *RedisStore) Context(ctx context.Context, sessionID string, maxMessages int) string {
	messages, err := s.Messages(ctx, sessionID)
	if err != nil {
		s.logger.Warn("context read failed, degrading to empty", "sessionId", sessionID, "error", err)
		return ""
	}

	var assistant []string
	for _, msg := range messages {
		if msg.Role == RoleAssistant {
			assistant = append(assistant, msg.Content)
		}
	}
	return BuildContext(assistant, maxMessages)
}

// Info returns session metadata, or ErrNotFound for unknown sessions.
func (s *RedisStore) Info(ctx context.Context, sessionID string) (Info, error) {
	if err := ValidateID(sessionID); err != nil {
		return Info{}, err
	}

	created, err := s.rdb.Get(ctx, createdKey(sessionID)).Result()
	if errors.Is(err, redis.Nil) {
		return Info{}, fmt.Errorf("%w: %s", ErrNotFound, sessionID)
	}
	if err != nil {
		return Info{}, fmt.Errorf("reading session %s: %w", sessionID, err)
	}

	createdAt, err := time.Parse(time.RFC3339, created)
	if err != nil {
		return Info{}, fmt.Errorf("parsing created timestamp for %s: %w", sessionID, err)
	}

	count, err := s.rdb.LLen(ctx, messagesKey(sessionID)).Result()
	if err != nil {
		return Info{}, fmt.Errorf("counting messages for %s: %w", sessionID, err)
	}

	ttl, err := s.rdb.TTL(ctx, createdKey(sessionID)).Result()
	if err != nil {
		return Info{}, fmt.Errorf("reading TTL for %s: %w", sessionID, err)
	}

	return Info{
		SessionID:    sessionID,
		CreatedAt:    createdAt,
		MessageCount: int(count),
		TTL:          ttl,
	}, nil
}

// Delete removes the session keys.
func (s *RedisStore) Delete(ctx context.Context, sessionID string) error {
	if err := ValidateID(sessionID); err != nil {
		return err
	}

	deleted, err := s.rdb.Del(ctx, messagesKey(sessionID), createdKey(sessionID)).Result()
	if err != nil {
		return fmt.Errorf("deleting session %s: %w", sessionID, err)
	}
	if deleted == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, sessionID)
	}
	return nil
}

// Ping verifies the Redis connection.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.rdb.Ping(ctx).Err()
}
