package observability

import (
	"context"
	"time"

	"github.com/yungbote/fleet-backend/internal/data/docstore"
)

// InstrumentStore wraps s so every operation is counted and timed. Transactor and
// Pinger are preserved when s implements them. A nil m returns s unchanged.
func InstrumentStore(s docstore.Store, m *Metrics) docstore.Store {
	if m == nil || s == nil {
		return s
	}
	base := &instrumentedStore{inner: s, m: m}
	if tx, ok := s.(docstore.Transactor); ok {
		return &instrumentedTxStore{instrumentedStore: base, tx: tx}
	}
	return base
}

type instrumentedStore struct {
	inner docstore.Store
	m     *Metrics
}

func (s *instrumentedStore) Save(ctx context.Context, kind string, data []byte) (docstore.Key, error) {
	start := time.Now()
	key, err := s.inner.Save(ctx, kind, data)
	s.m.ObserveStoreOp("save", kind, err, time.Since(start))
	return key, err
}

func (s *instrumentedStore) Get(ctx context.Context, key docstore.Key) ([]byte, error) {
	start := time.Now()
	data, err := s.inner.Get(ctx, key)
	s.m.ObserveStoreOp("get", key.Kind, err, time.Since(start))
	return data, err
}

func (s *instrumentedStore) Update(ctx context.Context, key docstore.Key, data []byte) error {
	start := time.Now()
	err := s.inner.Update(ctx, key, data)
	s.m.ObserveStoreOp("update", key.Kind, err, time.Since(start))
	return err
}

func (s *instrumentedStore) Delete(ctx context.Context, key docstore.Key) error {
	start := time.Now()
	err := s.inner.Delete(ctx, key)
	s.m.ObserveStoreOp("delete", key.Kind, err, time.Since(start))
	return err
}

func (s *instrumentedStore) Query(ctx context.Context, kind string, limit int, cursor string) (docstore.Page, error) {
	start := time.Now()
	page, err := s.inner.Query(ctx, kind, limit, cursor)
	s.m.ObserveStoreOp("query", kind, err, time.Since(start))
	return page, err
}

func (s *instrumentedStore) Ping(ctx context.Context) error {
	p, ok := s.inner.(docstore.Pinger)
	if !ok {
		return nil
	}
	return p.Ping(ctx)
}

type instrumentedTxStore struct {
	*instrumentedStore
	tx docstore.Transactor
}

func (s *instrumentedTxStore) RunInTransaction(ctx context.Context, fn func(tx docstore.Store) error) error {
	start := time.Now()
	err := s.tx.RunInTransaction(ctx, func(tx docstore.Store) error {
		return fn(&instrumentedStore{inner: tx, m: s.m})
	})
	s.m.ObserveStoreOp("transaction", "", err, time.Since(start))
	return err
}
