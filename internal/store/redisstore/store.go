// Package redisstore keeps the cell index in Redis: one set of entity ids
// per (engine, precision, cell), entity payloads as JSON values. Covering
// lookups batch set reads through a pipeline.
package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/geodesio/cellcover/internal/core/model"
	"github.com/geodesio/cellcover/internal/core/observability"
)

type Option func(*redis.Options)

func WithPoolSize(n int) Option {
	return func(o *redis.Options) { o.PoolSize = n }
}

func WithDialTimeout(d time.Duration) Option {
	return func(o *redis.Options) { o.DialTimeout = d }
}

func WithReadTimeout(d time.Duration) Option {
	return func(o *redis.Options) { o.ReadTimeout = d }
}

func WithWriteTimeout(d time.Duration) Option {
	return func(o *redis.Options) { o.WriteTimeout = d }
}

type Store struct {
	rdb *redis.Client
}

func New(ctx context.Context, addr string, opts ...Option) (*Store, error) {
	if addr == "" {
		return nil, errors.New("redis address is required")
	}

	ro := &redis.Options{
		Addr:         addr,
		PoolSize:     64,
		MinIdleConns: 4,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  1 * time.Second,
		WriteTimeout: 1 * time.Second,
	}
	for _, f := range opts {
		f(ro)
	}

	rdb := redis.NewClient(ro)

	start := time.Now()
	err := rdb.Ping(ctx).Err()
	observability.ObserveStoreOp("ping", err, time.Since(start).Seconds())
	if err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return &Store{rdb: rdb}, nil
}

// NewWithClient wraps an existing client; tests hand in miniredis here.
func NewWithClient(rdb *redis.Client) *Store {
	return &Store{rdb: rdb}
}

func (s *Store) Close() error {
	if err := s.rdb.Close(); err != nil {
		return fmt.Errorf("redis close: %w", err)
	}
	return nil
}

func idxKey(engine string, precision int, cell string) string {
	return fmt.Sprintf("idx:%s:%d:%s", engine, precision, cell)
}

func entKey(id string) string {
	return "ent:" + id
}

// UpsertEntity writes the payload and adds the entity to its cell set.
func (s *Store) UpsertEntity(ctx context.Context, engine string, precision int, cell string, e model.Entity) error {
	start := time.Now()
	payload, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal entity %q: %w", e.ID, err)
	}

	_, err = s.rdb.Pipelined(ctx, func(p redis.Pipeliner) error {
		p.Set(ctx, entKey(e.ID), payload, 0)
		p.SAdd(ctx, idxKey(engine, precision, cell), e.ID)
		return nil
	})
	observability.ObserveStoreOp("upsert", err, time.Since(start).Seconds())
	if err != nil {
		return fmt.Errorf("redis upsert %q into %s: %w", e.ID, cell, err)
	}
	return nil
}

// DeleteEntity removes the entity from its cell set and drops the payload.
func (s *Store) DeleteEntity(ctx context.Context, engine string, precision int, cell, id string) error {
	start := time.Now()
	_, err := s.rdb.Pipelined(ctx, func(p redis.Pipeliner) error {
		p.SRem(ctx, idxKey(engine, precision, cell), id)
		p.Del(ctx, entKey(id))
		return nil
	})
	observability.ObserveStoreOp("delete", err, time.Since(start).Seconds())
	if err != nil {
		return fmt.Errorf("redis delete %q from %s: %w", id, cell, err)
	}
	return nil
}

// EntitiesInCells returns every entity indexed under the given cells: one
// pipelined SMEMBERS per cell, then one MGET for the payloads. Output is
// ordered by entity id.
func (s *Store) EntitiesInCells(ctx context.Context, engine string, precision int, cells []string) ([]model.Entity, error) {
	if len(cells) == 0 {
		return nil, nil
	}

	start := time.Now()
	cmds := make([]*redis.StringSliceCmd, len(cells))
	_, err := s.rdb.Pipelined(ctx, func(p redis.Pipeliner) error {
		for i, cell := range cells {
			cmds[i] = p.SMembers(ctx, idxKey(engine, precision, cell))
		}
		return nil
	})
	observability.ObserveStoreOp("smembers", err, time.Since(start).Seconds())
	if err != nil {
		return nil, fmt.Errorf("redis SMEMBERS over %d cells: %w", len(cells), err)
	}

	idSet := map[string]struct{}{}
	for _, cmd := range cmds {
		for _, id := range cmd.Val() {
			idSet[id] = struct{}{}
		}
	}
	if len(idSet) == 0 {
		return nil, nil
	}
	ids := make([]string, 0, len(idSet))
	for id := range idSet {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	entKeys := make([]string, len(ids))
	for i, id := range ids {
		entKeys[i] = entKey(id)
	}

	start = time.Now()
	vals, err := s.rdb.MGet(ctx, entKeys...).Result()
	observability.ObserveStoreOp("mget", err, time.Since(start).Seconds())
	if err != nil {
		return nil, fmt.Errorf("redis MGET %d entities: %w", len(entKeys), err)
	}

	out := make([]model.Entity, 0, len(vals))
	for i, v := range vals {
		if v == nil {
			// Indexed id without a payload: a delete raced an upsert.
			continue
		}
		raw, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("redis MGET %q: unexpected value type %T", entKeys[i], v)
		}
		var e model.Entity
		if err := json.Unmarshal([]byte(raw), &e); err != nil {
			return nil, fmt.Errorf("unmarshal entity %q: %w", ids[i], err)
		}
		out = append(out, e)
	}
	return out, nil
}
