package record

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	backend "github.com/redis/go-redis/v9"
)

// RedisStore implements Store on Redis. Each tenant table is a hash keyed
// by record ID; filtering, ordering, and pagination are applied after
// loading the table, which matches the scale of per-tenant dynamic tables.
type RedisStore struct {
	client *backend.Client
	prefix string
	now    func() time.Time
}

type RedisOption func(*RedisStore)

var _ Store = (*RedisStore)(nil)

// WithPrefix sets the key prefix for record hashes
func WithPrefix(prefix string) RedisOption {
	return func(s *RedisStore) {
		s.prefix = prefix
	}
}

// NewRedisStore creates a record store backed by an existing Redis client
func NewRedisStore(client *backend.Client, opts ...RedisOption) *RedisStore {
	store := &RedisStore{
		client: client,
		prefix: "hexaflow",
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(store)
	}
	return store
}

func (s *RedisStore) key(tenantID, table string) string {
	return fmt.Sprintf("%s:records:%s:%s", s.prefix, tenantID, table)
}

func (s *RedisStore) Create(
	ctx context.Context, tenantID, table string, values Record,
) (Record, error) {
	if err := validateScope(tenantID, table); err != nil {
		return nil, err
	}

	rec := values.Clone()
	rec[FieldID] = uuid.NewString()
	now := s.now().UTC().Format(time.RFC3339Nano)
	rec[FieldCreatedAt] = now
	rec[FieldUpdatedAt] = now

	if err := s.put(ctx, tenantID, table, rec); err != nil {
		return nil, err
	}
	return rec, nil
}

func (s *RedisStore) Find(
	ctx context.Context, tenantID, table string, q Query,
) ([]Record, error) {
	if err := validateScope(tenantID, table); err != nil {
		return nil, err
	}

	recs, err := s.loadTable(ctx, tenantID, table)
	if err != nil {
		return nil, err
	}
	return q.Apply(recs)
}

func (s *RedisStore) Update(
	ctx context.Context, tenantID, table string, q Query, values Record,
) ([]Record, error) {
	if err := validateScope(tenantID, table); err != nil {
		return nil, err
	}

	recs, err := s.loadTable(ctx, tenantID, table)
	if err != nil {
		return nil, err
	}

	var updated []Record
	now := s.now().UTC().Format(time.RFC3339Nano)
	for _, rec := range recs {
		ok, err := q.Matches(rec)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		for k, v := range values {
			rec[k] = v
		}
		rec[FieldUpdatedAt] = now
		if err := s.put(ctx, tenantID, table, rec); err != nil {
			return nil, err
		}
		updated = append(updated, rec)
	}
	return updated, nil
}

func (s *RedisStore) Upsert(
	ctx context.Context, tenantID, table string, q Query, values Record,
) (Record, bool, error) {
	updated, err := s.Update(ctx, tenantID, table, q, values)
	if err != nil {
		return nil, false, err
	}
	if len(updated) > 0 {
		return updated[0], false, nil
	}

	rec, err := s.Create(ctx, tenantID, table, values)
	if err != nil {
		return nil, false, err
	}
	return rec, true, nil
}

func (s *RedisStore) put(
	ctx context.Context, tenantID, table string, rec Record,
) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal record: %w", err)
	}
	return s.client.HSet(
		ctx, s.key(tenantID, table), rec.ID(), data,
	).Err()
}

func (s *RedisStore) loadTable(
	ctx context.Context, tenantID, table string,
) ([]Record, error) {
	raw, err := s.client.HGetAll(ctx, s.key(tenantID, table)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to load table %s: %w", table, err)
	}

	recs := make([]Record, 0, len(raw))
	for id, data := range raw {
		var rec Record
		if err := json.Unmarshal([]byte(data), &rec); err != nil {
			return nil, fmt.Errorf(
				"failed to unmarshal record %s: %w", id, err)
		}
		recs = append(recs, rec)
	}
	return recs, nil
}
