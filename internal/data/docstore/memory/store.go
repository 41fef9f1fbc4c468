// Package memory is an in-process docstore backend. It is the default for local runs
// and the backend used by service and handler tests.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/yungbote/fleet-backend/internal/data/docstore"
)

type state struct {
	seq  map[string]int64
	docs map[string]map[int64][]byte
}

func newState() *state {
	return &state{seq: map[string]int64{}, docs: map[string]map[int64][]byte{}}
}

func (s *state) clone() *state {
	out := newState()
	for k, v := range s.seq {
		out.seq[k] = v
	}
	for kind, docs := range s.docs {
		m := make(map[int64][]byte, len(docs))
		for id, data := range docs {
			m[id] = data
		}
		out.docs[kind] = m
	}
	return out
}

// Store guards a single state with a RWMutex. Transactions hold the write lock for
// their whole duration and restore a snapshot when fn fails.
type Store struct {
	mu sync.RWMutex
	st *state
}

var (
	_ docstore.Store      = (*Store)(nil)
	_ docstore.Transactor = (*Store)(nil)
	_ docstore.Pinger     = (*Store)(nil)
)

func New() *Store {
	return &Store{st: newState()}
}

func (s *Store) Save(ctx context.Context, kind string, data []byte) (docstore.Key, error) {
	if err := ctx.Err(); err != nil {
		return docstore.Key{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st.save(kind, data), nil
}

func (s *Store) Get(ctx context.Context, key docstore.Key) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.st.get(key)
}

func (s *Store) Update(ctx context.Context, key docstore.Key, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st.update(key, data)
}

func (s *Store) Delete(ctx context.Context, key docstore.Key) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.st.delete(key)
	return nil
}

func (s *Store) Query(ctx context.Context, kind string, limit int, cursor string) (docstore.Page, error) {
	if err := ctx.Err(); err != nil {
		return docstore.Page{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.st.query(kind, limit, cursor)
}

func (s *Store) RunInTransaction(ctx context.Context, fn func(tx docstore.Store) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	snapshot := s.st.clone()
	if err := fn(&txStore{st: s.st}); err != nil {
		s.st = snapshot
		return err
	}
	return nil
}

func (s *Store) Ping(ctx context.Context) error { return ctx.Err() }

// Len reports how many documents of kind are stored.
func (s *Store) Len(kind string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.st.docs[kind])
}

func (st *state) save(kind string, data []byte) docstore.Key {
	st.seq[kind]++
	id := st.seq[kind]
	if st.docs[kind] == nil {
		st.docs[kind] = map[int64][]byte{}
	}
	st.docs[kind][id] = copyBytes(data)
	return docstore.Key{Kind: kind, ID: id}
}

func (st *state) get(key docstore.Key) ([]byte, error) {
	data, ok := st.docs[key.Kind][key.ID]
	if !ok {
		return nil, docstore.ErrNoSuchEntity
	}
	return copyBytes(data), nil
}

func (st *state) update(key docstore.Key, data []byte) error {
	if _, ok := st.docs[key.Kind][key.ID]; !ok {
		return docstore.ErrNoSuchEntity
	}
	st.docs[key.Kind][key.ID] = copyBytes(data)
	return nil
}

func (st *state) delete(key docstore.Key) {
	delete(st.docs[key.Kind], key.ID)
}

func (st *state) query(kind string, limit int, cursor string) (docstore.Page, error) {
	after, err := docstore.DecodeCursor(cursor)
	if err != nil {
		return docstore.Page{}, err
	}
	ids := make([]int64, 0, len(st.docs[kind]))
	for id := range st.docs[kind] {
		if id > after {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	var page docstore.Page
	if limit > 0 && len(ids) > limit {
		ids = ids[:limit]
		page.More = true
	}
	for _, id := range ids {
		page.Entities = append(page.Entities, docstore.Entity{
			Key:  docstore.Key{Kind: kind, ID: id},
			Data: copyBytes(st.docs[kind][id]),
		})
	}
	if page.More {
		page.NextCursor = docstore.EncodeCursor(ids[len(ids)-1])
	}
	return page, nil
}

// txStore runs against the state while the owning Store holds its write lock.
type txStore struct {
	st *state
}

func (t *txStore) Save(ctx context.Context, kind string, data []byte) (docstore.Key, error) {
	if err := ctx.Err(); err != nil {
		return docstore.Key{}, err
	}
	return t.st.save(kind, data), nil
}

func (t *txStore) Get(ctx context.Context, key docstore.Key) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return t.st.get(key)
}

func (t *txStore) Update(ctx context.Context, key docstore.Key, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return t.st.update(key, data)
}

func (t *txStore) Delete(ctx context.Context, key docstore.Key) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	t.st.delete(key)
	return nil
}

func (t *txStore) Query(ctx context.Context, kind string, limit int, cursor string) (docstore.Page, error) {
	if err := ctx.Err(); err != nil {
		return docstore.Page{}, err
	}
	return t.st.query(kind, limit, cursor)
}

func copyBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
