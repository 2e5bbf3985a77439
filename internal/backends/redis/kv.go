package redis

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"swelter/internal/types"
)

const keyNameTemplate = "_swelter_%s"

// KV is a Redis-backed ports.KeyValue. Every key gets a fixed namespace stub so
// ClearAll and prefix listing cannot touch foreign keys in a shared instance.
type KV struct {
	cli *redis.Client
}

func NewKV(cli *redis.Client) *KV {
	return &KV{cli: cli}
}

func (s *KV) Put(ctx context.Context, key, value string) error {
	return s.cli.Set(ctx, storeKey(key), value, 0).Err()
}

func (s *KV) Get(ctx context.Context, key string) (string, error) {
	out := s.cli.Get(ctx, storeKey(key))
	if err := out.Err(); err != nil {
		if errors.Is(err, redis.Nil) {
			return "", types.ErrNotFound
		}
		return "", err
	}
	return out.Val(), nil
}

func (s *KV) List(ctx context.Context, prefix string) ([]string, error) {
	out := s.cli.Keys(ctx, storeKey(prefix)+"*")
	if out.Err() != nil {
		return nil, out.Err()
	}
	stubLen := len(storeKey(""))
	keys := make([]string, 0, len(out.Val()))
	for _, k := range out.Val() {
		if len(k) > stubLen {
			keys = append(keys, k[stubLen:])
		}
	}
	return keys, nil
}

func (s *KV) Delete(ctx context.Context, key string) error {
	return s.cli.Del(ctx, storeKey(key)).Err()
}

func (s *KV) ClearAll(ctx context.Context) error {
	out := s.cli.Keys(ctx, storeKey("*"))
	if out.Err() != nil {
		return out.Err()
	}
	keys := out.Val()
	if len(keys) == 0 {
		return nil
	}
	return s.cli.Del(ctx, keys...).Err()
}

func storeKey(k string) string {
	return fmt.Sprintf(keyNameTemplate, k)
}
