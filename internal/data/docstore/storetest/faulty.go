package storetest

import (
	"context"
	"errors"
	"sync"

	"github.com/yungbote/fleet-backend/internal/data/docstore"
)

// ErrInjected is the failure returned by Faulty once its budget is spent.
var ErrInjected = errors.New("storetest: injected failure")

// Faulty wraps a store, hides any Transactor it implements, and fails every write
// after the first failAfter writes succeed. failAfter < 0 disables injection.
type Faulty struct {
	inner docstore.Store

	mu        sync.Mutex
	failAfter int
	writes    int
}

func NewFaulty(inner docstore.Store, failAfter int) *Faulty {
	return &Faulty{inner: inner, failAfter: failAfter}
}

// Arm resets the write counter and sets a new budget.
func (f *Faulty) Arm(failAfter int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failAfter = failAfter
	f.writes = 0
}

// Writes reports how many writes were attempted since the last Arm.
func (f *Faulty) Writes() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.writes
}

func (f *Faulty) allowWrite() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.writes++
	if f.failAfter >= 0 && f.writes > f.failAfter {
		return ErrInjected
	}
	return nil
}

func (f *Faulty) Save(ctx context.Context, kind string, data []byte) (docstore.Key, error) {
	if err := f.allowWrite(); err != nil {
		return docstore.Key{}, err
	}
	return f.inner.Save(ctx, kind, data)
}

func (f *Faulty) Get(ctx context.Context, key docstore.Key) ([]byte, error) {
	return f.inner.Get(ctx, key)
}

func (f *Faulty) Update(ctx context.Context, key docstore.Key, data []byte) error {
	if err := f.allowWrite(); err != nil {
		return err
	}
	return f.inner.Update(ctx, key, data)
}

func (f *Faulty) Delete(ctx context.Context, key docstore.Key) error {
	if err := f.allowWrite(); err != nil {
		return err
	}
	return f.inner.Delete(ctx, key)
}

func (f *Faulty) Query(ctx context.Context, kind string, limit int, cursor string) (docstore.Page, error) {
	return f.inner.Query(ctx, kind, limit, cursor)
}
