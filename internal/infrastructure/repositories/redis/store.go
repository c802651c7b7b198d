package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"callroom/internal/core/ports"

	"github.com/redis/go-redis/v9"
)

// hashUpdateScript sets fields on an existing hash and refreshes its TTL
// along with the TTL of each linked key. ARGV[1] is the TTL in
// milliseconds, ARGV[2] the number of linked keys, followed by that many
// prefix/field/suffix triples and then the field/value pairs to set.
var hashUpdateScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 0 then
	return 0
end
local ttl = tonumber(ARGV[1])
local links = tonumber(ARGV[2])
local first = 3 + links * 3
if #ARGV >= first then
	redis.call('HSET', KEYS[1], unpack(ARGV, first))
end
if ttl > 0 then
	redis.call('PEXPIRE', KEYS[1], ttl)
	for i = 0, links - 1 do
		local base = 3 + i * 3
		local value = redis.call('HGET', KEYS[1], ARGV[base + 1])
		if value and value ~= '' then
			redis.call('PEXPIRE', ARGV[base] .. value .. ARGV[base + 2], ttl)
		end
	end
end
return 1
`)

type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func flattenFields(fields map[string]string) []interface{} {
	args := make([]interface{}, 0, len(fields)*2)
	for k, v := range fields {
		args = append(args, k, v)
	}
	return args
}

func (s *RedisStore) Get(ctx context.Context, key string) (string, error) {
	val, err := s.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", ports.ErrKeyNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to get %s: %w", key, err)
	}
	return val, nil
}

func (s *RedisStore) HashGetAll(ctx context.Context, key string) (map[string]string, error) {
	fields, err := s.client.HGetAll(ctx, key).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read hash %s: %w", key, err)
	}
	if len(fields) == 0 {
		return nil, ports.ErrKeyNotFound
	}
	return fields, nil
}

func (s *RedisStore) HashUpdate(ctx context.Context, key string, fields map[string]string, ttl time.Duration, linked ...ports.LinkedKey) (bool, error) {
	if len(fields) == 0 && len(linked) == 0 {
		n, err := s.client.Exists(ctx, key).Result()
		if err != nil {
			return false, fmt.Errorf("failed to check %s: %w", key, err)
		}
		return n == 1, nil
	}

	args := make([]interface{}, 0, 2+len(linked)*3+len(fields)*2)
	args = append(args, ttl.Milliseconds(), len(linked))
	for _, l := range linked {
		args = append(args, l.Prefix, l.Field, l.Suffix)
	}
	args = append(args, flattenFields(fields)...)
	updated, err := hashUpdateScript.Run(ctx, s.client, []string{key}, args...).Int()
	if err != nil {
		return false, fmt.Errorf("failed to update hash %s: %w", key, err)
	}
	return updated == 1, nil
}

func (s *RedisStore) ListPush(ctx context.Context, key, value string, ttl time.Duration) error {
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.RPush(ctx, key, value)
		if ttl > 0 {
			pipe.PExpire(ctx, key, ttl)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to push to %s: %w", key, err)
	}
	return nil
}

func (s *RedisStore) ListRange(ctx context.Context, key string) ([]string, error) {
	vals, err := s.client.LRange(ctx, key, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read list %s: %w", key, err)
	}
	return vals, nil
}

func (s *RedisStore) ListIndex(ctx context.Context, key string, index int64) (string, error) {
	val, err := s.client.LIndex(ctx, key, index).Result()
	if errors.Is(err, redis.Nil) {
		return "", ports.ErrKeyNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to index list %s: %w", key, err)
	}
	return val, nil
}

func (s *RedisStore) ListRemove(ctx context.Context, key, value string, ttl time.Duration) (int64, error) {
	var removed *redis.IntCmd
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		removed = pipe.LRem(ctx, key, 1, value)
		if ttl > 0 {
			pipe.PExpire(ctx, key, ttl)
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("failed to remove from %s: %w", key, err)
	}
	return removed.Val(), nil
}

// Exec runs the batch inside MULTI/EXEC.
func (s *RedisStore) Exec(ctx context.Context, ops ...ports.StoreOp) error {
	if len(ops) == 0 {
		return nil
	}

	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, op := range ops {
			switch op.Kind {
			case ports.StoreOpSet:
				pipe.Set(ctx, op.Key, op.Value, op.TTL)
			case ports.StoreOpHashReplace:
				pipe.Del(ctx, op.Key)
				if len(op.Fields) > 0 {
					pipe.HSet(ctx, op.Key, flattenFields(op.Fields)...)
					if op.TTL > 0 {
						pipe.PExpire(ctx, op.Key, op.TTL)
					}
				}
			case ports.StoreOpDel:
				pipe.Del(ctx, op.Key)
			default:
				return fmt.Errorf("unknown store operation: %s", op.Kind)
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to exec batch of %d ops: %w", len(ops), err)
	}
	return nil
}

func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *RedisStore) Close() error {
	return CloseRedisClient(s.client)
}
