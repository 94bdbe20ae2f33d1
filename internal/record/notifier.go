package record

import (
	"context"
	"log/slog"
	"sort"

	"github.com/hexaflow/engine/pkg/log"
)

type (
	// ChangeListener receives synchronous notifications after successful
	// record writes. The engine's record-change trigger adapters implement
	// it to start runs from writes.
	ChangeListener interface {
		RecordCreated(
			ctx context.Context, tenantID, table string, rec Record,
		)
		RecordUpdated(
			ctx context.Context, tenantID, table string, rec Record,
			changed []string,
		)
	}

	// NotifyingStore wraps a Store and invokes listeners after each
	// successful write. Listener faults never fail the write.
	NotifyingStore struct {
		Store
		listeners []ChangeListener
	}
)

var _ Store = (*NotifyingStore)(nil)

// NewNotifyingStore wraps the given store with write notifications
func NewNotifyingStore(s Store, listeners ...ChangeListener) *NotifyingStore {
	return &NotifyingStore{
		Store:     s,
		listeners: listeners,
	}
}

// Subscribe registers an additional change listener
func (s *NotifyingStore) Subscribe(l ChangeListener) {
	s.listeners = append(s.listeners, l)
}

func (s *NotifyingStore) Create(
	ctx context.Context, tenantID, table string, values Record,
) (Record, error) {
	rec, err := s.Store.Create(ctx, tenantID, table, values)
	if err != nil {
		return nil, err
	}

	for _, l := range s.listeners {
		s.notifyCreated(ctx, l, tenantID, table, rec)
	}
	return rec, nil
}

func (s *NotifyingStore) Update(
	ctx context.Context, tenantID, table string, q Query, values Record,
) ([]Record, error) {
	updated, err := s.Store.Update(ctx, tenantID, table, q, values)
	if err != nil {
		return nil, err
	}

	changed := changedColumns(values)
	for _, rec := range updated {
		for _, l := range s.listeners {
			s.notifyUpdated(ctx, l, tenantID, table, rec, changed)
		}
	}
	return updated, nil
}

func (s *NotifyingStore) Upsert(
	ctx context.Context, tenantID, table string, q Query, values Record,
) (Record, bool, error) {
	rec, created, err := s.Store.Upsert(ctx, tenantID, table, q, values)
	if err != nil {
		return nil, false, err
	}

	for _, l := range s.listeners {
		if created {
			s.notifyCreated(ctx, l, tenantID, table, rec)
		} else {
			s.notifyUpdated(
				ctx, l, tenantID, table, rec, changedColumns(values),
			)
		}
	}
	return rec, created, nil
}

func (s *NotifyingStore) notifyCreated(
	ctx context.Context, l ChangeListener, tenantID, table string,
	rec Record,
) {
	defer s.recoverListener(tenantID, table)
	l.RecordCreated(ctx, tenantID, table, rec)
}

func (s *NotifyingStore) notifyUpdated(
	ctx context.Context, l ChangeListener, tenantID, table string,
	rec Record, changed []string,
) {
	defer s.recoverListener(tenantID, table)
	l.RecordUpdated(ctx, tenantID, table, rec, changed)
}

func (s *NotifyingStore) recoverListener(tenantID, table string) {
	if r := recover(); r != nil {
		slog.Error("Record change listener panicked",
			log.TenantID(tenantID),
			log.Table(table),
			slog.Any("panic", r))
	}
}

func changedColumns(values Record) []string {
	cols := make([]string, 0, len(values))
	for k := range values {
		cols = append(cols, k)
	}
	sort.Strings(cols)
	return cols
}
