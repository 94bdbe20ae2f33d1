package record

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore is an in-process Store used by tests and single-node
// development setups
type MemoryStore struct {
	tables map[string]map[string][]Record
	now    func() time.Time
	mu     sync.RWMutex
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates an empty in-memory record store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		tables: map[string]map[string][]Record{},
		now:    time.Now,
	}
}

func (s *MemoryStore) Create(
	_ context.Context, tenantID, table string, values Record,
) (Record, error) {
	if err := validateScope(tenantID, table); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rec := values.Clone()
	rec[FieldID] = uuid.NewString()
	now := s.now().UTC().Format(time.RFC3339Nano)
	rec[FieldCreatedAt] = now
	rec[FieldUpdatedAt] = now

	tenant, ok := s.tables[tenantID]
	if !ok {
		tenant = map[string][]Record{}
		s.tables[tenantID] = tenant
	}
	tenant[table] = append(tenant[table], rec)
	return rec.Clone(), nil
}

func (s *MemoryStore) Find(
	_ context.Context, tenantID, table string, q Query,
) ([]Record, error) {
	if err := validateScope(tenantID, table); err != nil {
		return nil, err
	}

	s.mu.RLock()
	recs := s.snapshot(tenantID, table)
	s.mu.RUnlock()

	return q.Apply(recs)
}

func (s *MemoryStore) Update(
	_ context.Context, tenantID, table string, q Query, values Record,
) ([]Record, error) {
	if err := validateScope(tenantID, table); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var updated []Record
	now := s.now().UTC().Format(time.RFC3339Nano)
	for _, rec := range s.tables[tenantID][table] {
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
		updated = append(updated, rec.Clone())
	}
	return updated, nil
}

func (s *MemoryStore) Upsert(
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

func (s *MemoryStore) snapshot(tenantID, table string) []Record {
	src := s.tables[tenantID][table]
	recs := make([]Record, len(src))
	for i, rec := range src {
		recs[i] = rec.Clone()
	}
	return recs
}
