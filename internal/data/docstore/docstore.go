// Package docstore is the key/value document persistence used by the fleet
// repositories. A document is an opaque JSON payload filed under a kind and a
// store-assigned numeric id; kinds can be listed in id order with cursor pagination.
//
// Backends live in sub-packages (memory, sqlstore, redisstore, boltstore, dsstore).
// Backends that can group writes atomically also implement Transactor.
package docstore

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrNoSuchEntity is returned by Get and Update when the key is absent.
	ErrNoSuchEntity = errors.New("docstore: no such entity")
	// ErrInvalidCursor is returned by Query for cursors it did not issue.
	ErrInvalidCursor = errors.New("docstore: invalid cursor")
	// ErrUnsupported is returned for operations a backend cannot run in its current mode,
	// e.g. id allocation inside a Cloud Datastore transaction.
	ErrUnsupported = errors.New("docstore: operation not supported")
	// ErrTxConflict is returned when the backend aborted a transaction because of a
	// concurrent writer.
	ErrTxConflict = errors.New("docstore: transaction conflict")
)

type Key struct {
	Kind string
	ID   int64
}

func (k Key) String() string { return fmt.Sprintf("%s:%d", k.Kind, k.ID) }

type Entity struct {
	Key  Key
	Data []byte
}

// Page is one slice of a kind listing. NextCursor is set only when More is true.
type Page struct {
	Entities   []Entity
	More       bool
	NextCursor string
}

type Store interface {
	// Save allocates a new id under kind and stores data.
	Save(ctx context.Context, kind string, data []byte) (Key, error)
	Get(ctx context.Context, key Key) ([]byte, error)
	// Update replaces the payload of an existing document.
	Update(ctx context.Context, key Key, data []byte) error
	// Delete removes the document. Deleting an absent key is not an error.
	Delete(ctx context.Context, key Key) error
	// Query returns up to limit documents of kind after cursor, in ascending id order.
	Query(ctx context.Context, kind string, limit int, cursor string) (Page, error)
}

// Transactor is implemented by stores that can run several operations atomically.
// fn may be invoked more than once by backends that retry on contention.
type Transactor interface {
	RunInTransaction(ctx context.Context, fn func(tx Store) error) error
}

type Pinger interface {
	Ping(ctx context.Context) error
}
