package presence

import (
	"context"
	"fmt"
	"sort"

	"github.com/redis/go-redis/v9"

	"taskchat/internal/app/chatsync"
)

// RedisStore keeps the online set in a Redis set so several local agents can
// share it.
type RedisStore struct {
	rdb *redis.Client
	key string
}

// NewRedisStore connects using a redis:// URL.
func NewRedisStore(url, userID string) (*RedisStore, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("presence: parse redis url: %w", err)
	}
	return NewRedisStoreFrom(redis.NewClient(opts), userID), nil
}

func NewRedisStoreFrom(rdb *redis.Client, userID string) *RedisStore {
	return &RedisStore{rdb: rdb, key: Key(userID)}
}

// Key is the Redis set holding the online ids seen by userID.
func Key(userID string) string {
	return "taskchat:presence:" + userID
}

// Replace swaps the set atomically.
func (s *RedisStore) Replace(ctx context.Context, ids []string) error {
	members := make([]any, 0, len(ids))
	for _, id := range ids {
		if id != "" {
			members = append(members, id)
		}
	}
	_, err := s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, s.key)
		if len(members) > 0 {
			pipe.SAdd(ctx, s.key, members...)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("presence: replace: %w", err)
	}
	return nil
}

func (s *RedisStore) Online(ctx context.Context) ([]string, error) {
	ids, err := s.rdb.SMembers(ctx, s.key).Result()
	if err != nil {
		return nil, fmt.Errorf("presence: members: %w", err)
	}
	sort.Strings(ids)
	return ids, nil
}

func (s *RedisStore) Ping(ctx context.Context) error {
	return s.rdb.Ping(ctx).Err()
}

func (s *RedisStore) Close() error {
	return s.rdb.Close()
}

var _ chatsync.PresenceStore = (*RedisStore)(nil)
