package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/aretw0/questline/pkg/domain"
	backend "github.com/redis/go-redis/v9"
)

// DefaultPrefix namespaces every key the adapters write.
const DefaultPrefix = "questline:"

// neverExpires is the index score for records without a TTL (2100-01-01).
const neverExpires = 4102444800

type config struct {
	prefix string
	ttl    time.Duration
	now    func() time.Time
}

// Option configures a Redis store.
type Option func(*config)

// WithTTL sets the expiration for stored records. Zero means no expiration.
func WithTTL(ttl time.Duration) Option {
	return func(c *config) {
		c.ttl = ttl
	}
}

// WithPrefix sets the key prefix.
func WithPrefix(prefix string) Option {
	return func(c *config) {
		c.prefix = prefix
	}
}

// WithClock overrides the clock used to score the expiry index.
func WithClock(now func() time.Time) Option {
	return func(c *config) {
		c.now = now
	}
}

func newConfig(opts []Option) config {
	cfg := config{prefix: DefaultPrefix, now: time.Now}
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}

// NewClient opens a go-redis client.
func NewClient(address, password string, db int) *backend.Client {
	return backend.NewClient(&backend.Options{
		Addr:     address,
		Password: password,
		DB:       db,
	})
}

// keyspace keeps JSON records under <prefix><kind>:<id>, a sorted-set index
// scored by expiry, and an INCR counter for id allocation.
type keyspace[T any] struct {
	client   *backend.Client
	cfg      config
	kind     string
	notFound error
}

func (k keyspace[T]) key(id int) string {
	return k.cfg.prefix + k.kind + ":" + strconv.Itoa(id)
}

func (k keyspace[T]) indexKey() string {
	return k.cfg.prefix + k.kind + ":index"
}

func (k keyspace[T]) seqKey() string {
	return k.cfg.prefix + k.kind + ":seq"
}

func (k keyspace[T]) save(ctx context.Context, id int, v *T) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal %s %d: %w", k.kind, id, err)
	}

	// Score = expiry time. Records without a TTL never leave the index on their own.
	score := float64(neverExpires)
	if k.cfg.ttl > 0 {
		score = float64(k.cfg.now().Add(k.cfg.ttl).Unix())
	}

	pipe := k.client.TxPipeline()
	pipe.Set(ctx, k.key(id), data, k.cfg.ttl)
	pipe.ZAdd(ctx, k.indexKey(), backend.Z{Score: score, Member: id})
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to save %s to redis: %w", k.kind, err)
	}
	return nil
}

func (k keyspace[T]) load(ctx context.Context, id int) (*T, error) {
	val, err := k.client.Get(ctx, k.key(id)).Result()
	if err != nil {
		if errors.Is(err, backend.Nil) {
			return nil, k.notFound
		}
		return nil, fmt.Errorf("failed to load %s from redis: %w", k.kind, err)
	}

	var v T
	if err := json.Unmarshal([]byte(val), &v); err != nil {
		return nil, fmt.Errorf("failed to unmarshal %s: %w", k.kind, err)
	}
	return &v, nil
}

func (k keyspace[T]) delete(ctx context.Context, id int) error {
	pipe := k.client.TxPipeline()
	pipe.Del(ctx, k.key(id))
	pipe.ZRem(ctx, k.indexKey(), id)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to delete %s from redis: %w", k.kind, err)
	}
	return nil
}

// list prunes expired index entries before reading. Keys expire on their own;
// the index only catches up here.
func (k keyspace[T]) list(ctx context.Context) ([]int, error) {
	now := strconv.FormatInt(k.cfg.now().Unix(), 10)
	if err := k.client.ZRemRangeByScore(ctx, k.indexKey(), "-inf", "("+now).Err(); err != nil {
		return nil, fmt.Errorf("failed to prune %s index: %w", k.kind, err)
	}

	members, err := k.client.ZRange(ctx, k.indexKey(), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", k.kind, err)
	}

	ids := make([]int, 0, len(members))
	for _, m := range members {
		id, err := strconv.Atoi(m)
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids, nil
}

func (k keyspace[T]) nextID(ctx context.Context) (int, error) {
	n, err := k.client.Incr(ctx, k.seqKey()).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to allocate %s id: %w", k.kind, err)
	}
	return int(n), nil
}

// SessionStore implements ports.SessionStore using Redis.
type SessionStore struct {
	ks keyspace[domain.GameSession]
}

// NewSessionStore creates a session store on an existing client.
func NewSessionStore(client *backend.Client, opts ...Option) *SessionStore {
	return &SessionStore{ks: keyspace[domain.GameSession]{
		client:   client,
		cfg:      newConfig(opts),
		kind:     "session",
		notFound: domain.ErrSessionNotFound,
	}}
}

// Save persists the session to Redis.
func (s *SessionStore) Save(ctx context.Context, sess *domain.GameSession) error {
	return s.ks.save(ctx, sess.ID, sess)
}

// Load retrieves the session from Redis.
func (s *SessionStore) Load(ctx context.Context, id int) (*domain.GameSession, error) {
	return s.ks.load(ctx, id)
}

// Delete removes the session from Redis.
func (s *SessionStore) Delete(ctx context.Context, id int) error {
	return s.ks.delete(ctx, id)
}

// List returns the live session IDs.
func (s *SessionStore) List(ctx context.Context) ([]int, error) {
	return s.ks.list(ctx)
}

// NextID reserves a session ID with INCR.
func (s *SessionStore) NextID(ctx context.Context) (int, error) {
	return s.ks.nextID(ctx)
}

// TemplateStore implements ports.TemplateStore using Redis.
type TemplateStore struct {
	ks keyspace[domain.Template]
}

// NewTemplateStore creates a template store on an existing client.
func NewTemplateStore(client *backend.Client, opts ...Option) *TemplateStore {
	return &TemplateStore{ks: keyspace[domain.Template]{
		client:   client,
		cfg:      newConfig(opts),
		kind:     "template",
		notFound: domain.ErrTemplateNotFound,
	}}
}

// Save persists the template to Redis.
func (s *TemplateStore) Save(ctx context.Context, tpl *domain.Template) error {
	return s.ks.save(ctx, tpl.ID, tpl)
}

// Load retrieves the template from Redis.
func (s *TemplateStore) Load(ctx context.Context, id int) (*domain.Template, error) {
	return s.ks.load(ctx, id)
}

// Delete removes the template from Redis.
func (s *TemplateStore) Delete(ctx context.Context, id int) error {
	return s.ks.delete(ctx, id)
}

// List returns the stored template IDs.
func (s *TemplateStore) List(ctx context.Context) ([]int, error) {
	return s.ks.list(ctx)
}

// NextID reserves a template ID with INCR.
func (s *TemplateStore) NextID(ctx context.Context) (int, error) {
	return s.ks.nextID(ctx)
}
