// Package redis stores run records in redis.
//
// Keys are laid out as:
//
//	<prefix>run:<id>          => JSON-encoded run
//	<prefix>idx:all           => ZSET of run IDs scored by start time
//	<prefix>idx:wf:<workflow> => ZSET of run IDs of one workflow
//
// Index entries whose run has expired are dropped lazily by List. An
// unfiltered List prunes every workflow index.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/Ingenimax/agent-graph-go/pkg/config"
	"github.com/Ingenimax/agent-graph-go/pkg/runstore"
)

// DefaultPrefix namespaces every key written by the store
const DefaultPrefix = "agent_graph:"

func init() {
	runstore.NewRedisStore = func(ctx context.Context, cfg config.RedisConfig) (runstore.Store, error) {
		return New(ctx, cfg)
	}
}

// Store implements runstore.Store on a redis client
type Store struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// Option configures a Store
type Option func(*Store)

// WithPrefix sets the key prefix
func WithPrefix(prefix string) Option {
	return func(s *Store) {
		if prefix != "" {
			s.prefix = prefix
		}
	}
}

// WithTTL expires run records after ttl. Zero keeps them forever.
func WithTTL(ttl time.Duration) Option {
	return func(s *Store) {
		s.ttl = ttl
	}
}

// New connects to the redis server described by cfg
func New(ctx context.Context, cfg config.RedisConfig) (*Store, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", cfg.Addr, err)
	}
	return NewFromClient(client, WithPrefix(cfg.Prefix), WithTTL(cfg.TTL)), nil
}

// NewFromClient wraps an existing client
func NewFromClient(client *redis.Client, options ...Option) *Store {
	s := &Store{
		client: client,
		prefix: DefaultPrefix,
	}
	for _, option := range options {
		option(s)
	}
	return s
}

func (s *Store) keyRun(id string) string {
	return s.prefix + "run:" + id
}

func (s *Store) keyAll() string {
	return s.prefix + "idx:all"
}

func (s *Store) keyWorkflow(name string) string {
	return s.prefix + "idx:wf:" + name
}

// Save implements runstore.Store
func (s *Store) Save(ctx context.Context, run *runstore.Run) error {
	data, err := json.Marshal(run)
	if err != nil {
		return fmt.Errorf("failed to encode run %s: %w", run.ID, err)
	}

	member := &redis.Z{
		Score:  float64(run.StartedAt.UnixMilli()),
		Member: run.ID,
	}

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, s.keyRun(run.ID), data, s.ttl)
	pipe.ZAdd(ctx, s.keyAll(), member)
	pipe.ZAdd(ctx, s.keyWorkflow(run.Workflow), member)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to save run %s: %w", run.ID, err)
	}
	return nil
}

// Get implements runstore.Store
func (s *Store) Get(ctx context.Context, id string) (*runstore.Run, error) {
	data, err := s.client.Get(ctx, s.keyRun(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, runstore.ErrRunNotFound
		}
		return nil, fmt.Errorf("failed to get run %s: %w", id, err)
	}
	return decode(data)
}

// List implements runstore.Store
func (s *Store) List(ctx context.Context, workflowName string, limit int) ([]*runstore.Run, error) {
	index := s.keyAll()
	if workflowName != "" {
		index = s.keyWorkflow(workflowName)
	}

	ids, err := s.client.ZRevRange(ctx, index, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	if len(ids) == 0 {
		return []*runstore.Run{}, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = s.keyRun(id)
	}
	values, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to load runs: %w", err)
	}

	runs := make([]*runstore.Run, 0, len(values))
	var expired []interface{}
	for i, value := range values {
		raw, ok := value.(string)
		if !ok {
			expired = append(expired, ids[i])
			continue
		}
		run, err := decode([]byte(raw))
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
		if limit > 0 && len(runs) == limit {
			break
		}
	}

	if len(expired) > 0 {
		s.prune(ctx, workflowName, expired)
	}
	return runs, nil
}

// prune removes expired run IDs from the indexes. The workflow of an expired
// run is no longer known, so an unfiltered list scans every workflow index.
func (s *Store) prune(ctx context.Context, workflowName string, expired []interface{}) {
	indexes := []string{s.keyAll()}
	if workflowName != "" {
		indexes = append(indexes, s.keyWorkflow(workflowName))
	} else {
		iter := s.client.Scan(ctx, 0, s.keyWorkflow("*"), 100).Iterator()
		for iter.Next(ctx) {
			indexes = append(indexes, iter.Val())
		}
		if iter.Err() != nil {
			return
		}
	}

	pipe := s.client.Pipeline()
	for _, index := range indexes {
		pipe.ZRem(ctx, index, expired...)
	}
	_, _ = pipe.Exec(ctx)
}

// Close implements runstore.Store
func (s *Store) Close() error {
	return s.client.Close()
}

func decode(data []byte) (*runstore.Run, error) {
	var run runstore.Run
	if err := json.Unmarshal(data, &run); err != nil {
		return nil, fmt.Errorf("failed to decode run: %w", err)
	}
	return &run, nil
}

var _ runstore.Store = (*Store)(nil)
