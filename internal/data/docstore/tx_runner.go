package docstore

import "context"

// TxRunner provides the write boundary used by multi-document operations.
type TxRunner interface {
	InTx(ctx context.Context, fn func(tx Store) error) error
	// Atomic reports whether InTx actually groups writes.
	Atomic() bool
}

type txRunner struct {
	store Store
	tx    Transactor
}

// NewTxRunner returns a runner that uses the store's own transactions when it has
// them. Otherwise fn runs directly against the store and each write commits on its own.
func NewTxRunner(s Store) TxRunner {
	r := &txRunner{store: s}
	if tx, ok := s.(Transactor); ok {
		r.tx = tx
	}
	return r
}

func (r *txRunner) InTx(ctx context.Context, fn func(tx Store) error) error {
	if fn == nil {
		return nil
	}
	if r.tx != nil {
		return r.tx.RunInTransaction(ctx, fn)
	}
	return fn(r.store)
}

func (r *txRunner) Atomic() bool { return r.tx != nil }
