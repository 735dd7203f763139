package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// Redis keeps record bodies in one hash per collection and insertion order
// in a sorted set scored by a per-collection counter.
type Redis struct {
	rdb    *goredis.Client
	prefix string
}

func NewRedis(ctx context.Context, addr, prefix string) (*Redis, error) {
	const op = "storage.NewRedis"

	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		DialTimeout: 5 * time.Second,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("%s: redis ping: %w", op, err)
	}
	if prefix == "" {
		prefix = "photocurate"
	}
	return &Redis{rdb: rdb, prefix: prefix}, nil
}

func (r *Redis) dataKey(c Collection) string  { return r.prefix + ":" + string(c) + ":data" }
func (r *Redis) orderKey(c Collection) string { return r.prefix + ":" + string(c) + ":order" }
func (r *Redis) seqKey(c Collection) string   { return r.prefix + ":" + string(c) + ":seq" }

func (r *Redis) Get(ctx context.Context, c Collection, id string) ([]byte, error) {
	const op = "storage.Redis.Get"

	body, err := r.rdb.HGet(ctx, r.dataKey(c), id).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return body, nil
}

func (r *Redis) List(ctx context.Context, c Collection) ([][]byte, error) {
	const op = "storage.Redis.List"

	ids, err := r.rdb.ZRange(ctx, r.orderKey(c), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if len(ids) == 0 {
		return nil, nil
	}
	vals, err := r.rdb.HMGet(ctx, r.dataKey(c), ids...).Result()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	out := make([][]byte, 0, len(vals))
	for _, v := range vals {
		s, ok := v.(string)
		if !ok {
			// deleted between ZRANGE and HMGET
			continue
		}
		out = append(out, []byte(s))
	}
	return out, nil
}

func (r *Redis) Put(ctx context.Context, c Collection, id string, body []byte) error {
	const op = "storage.Redis.Put"

	_, err := r.rdb.ZScore(ctx, r.orderKey(c), id).Result()
	switch {
	case errors.Is(err, goredis.Nil):
		seq, err := r.rdb.Incr(ctx, r.seqKey(c)).Result()
		if err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
		_, err = r.rdb.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
			pipe.HSet(ctx, r.dataKey(c), id, body)
			pipe.ZAddNX(ctx, r.orderKey(c), goredis.Z{Score: float64(seq), Member: id})
			return nil
		})
		if err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
		return nil
	case err != nil:
		return fmt.Errorf("%s: %w", op, err)
	}

	if err := r.rdb.HSet(ctx, r.dataKey(c), id, body).Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func (r *Redis) Delete(ctx context.Context, c Collection, id string) error {
	const op = "storage.Redis.Delete"

	_, err := r.rdb.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		pipe.HDel(ctx, r.dataKey(c), id)
		pipe.ZRem(ctx, r.orderKey(c), id)
		return nil
	})
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func (r *Redis) Close() error {
	return r.rdb.Close()
}
