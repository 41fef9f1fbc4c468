// Package dsstore keeps documents in Google Cloud Datastore (Firestore in Datastore
// mode). Each document is one entity of its kind with the payload in an unindexed
// "data" property; ids and cursors are Datastore's own.
package dsstore

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"cloud.google.com/go/datastore"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"

	"github.com/yungbote/fleet-backend/internal/data/docstore"
	"github.com/yungbote/fleet-backend/internal/platform/logger"
)

const pingKind = "__fleet_ping__"

type entity struct {
	Data []byte `datastore:"data,noindex"`
}

type Config struct {
	ProjectID string `yaml:"project_id"`
}

type Store struct {
	client *datastore.Client
	log    *logger.Logger
}

var (
	_ docstore.Store      = (*Store)(nil)
	_ docstore.Transactor = (*Store)(nil)
	_ docstore.Pinger     = (*Store)(nil)
)

// ClientOptionsFromEnv reads credentials the same way as the other GCP clients: inline
// JSON or a file path in GOOGLE_APPLICATION_CREDENTIALS(_JSON).
func ClientOptionsFromEnv() []option.ClientOption {
	creds := strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS_JSON"))
	if creds == "" {
		creds = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}
	if creds == "" {
		return nil
	}
	if strings.HasPrefix(creds, "{") {
		return []option.ClientOption{option.WithCredentialsJSON([]byte(creds))}
	}
	return []option.ClientOption{option.WithCredentialsFile(creds)}
}

// Open creates a Datastore client. DATASTORE_EMULATOR_HOST is honoured by the client
// library itself.
func Open(ctx context.Context, cfg Config, log *logger.Logger, opts ...option.ClientOption) (*Store, error) {
	projectID := strings.TrimSpace(cfg.ProjectID)
	if projectID == "" {
		projectID = datastore.DetectProjectID
	}
	if len(opts) == 0 {
		opts = ClientOptionsFromEnv()
	}
	client, err := datastore.NewClient(ctx, projectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("datastore client: %w", err)
	}
	log.Info("Connected to Cloud Datastore", "project_id", projectID, "emulator", os.Getenv("DATASTORE_EMULATOR_HOST"))
	return &Store{client: client, log: log.With("store", "dsstore")}, nil
}

func (s *Store) Close() error { return s.client.Close() }

func (s *Store) Save(ctx context.Context, kind string, data []byte) (docstore.Key, error) {
	k, err := s.client.Put(ctx, datastore.IncompleteKey(kind, nil), &entity{Data: data})
	if err != nil {
		return docstore.Key{}, fmt.Errorf("dsstore save: %w", err)
	}
	return docstore.Key{Kind: kind, ID: k.ID}, nil
}

func (s *Store) Get(ctx context.Context, key docstore.Key) ([]byte, error) {
	var e entity
	if err := s.client.Get(ctx, datastore.IDKey(key.Kind, key.ID, nil), &e); err != nil {
		return nil, mapError("get", err)
	}
	return e.Data, nil
}

// Update checks existence and writes inside one transaction, matching Datastore's
// update semantics.
func (s *Store) Update(ctx context.Context, key docstore.Key, data []byte) error {
	return s.RunInTransaction(ctx, func(tx docstore.Store) error {
		return tx.Update(ctx, key, data)
	})
}

func (s *Store) Delete(ctx context.Context, key docstore.Key) error {
	if err := s.client.Delete(ctx, datastore.IDKey(key.Kind, key.ID, nil)); err != nil {
		return fmt.Errorf("dsstore delete: %w", err)
	}
	return nil
}

func (s *Store) Query(ctx context.Context, kind string, limit int, cursor string) (docstore.Page, error) {
	q := datastore.NewQuery(kind).Order("__key__")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if cursor = strings.TrimSpace(cursor); cursor != "" {
		c, err := datastore.DecodeCursor(cursor)
		if err != nil {
			return docstore.Page{}, docstore.ErrInvalidCursor
		}
		q = q.Start(c)
	}

	var page docstore.Page
	it := s.client.Run(ctx, q)
	for {
		var e entity
		k, err := it.Next(&e)
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return docstore.Page{}, fmt.Errorf("dsstore query: %w", err)
		}
		page.Entities = append(page.Entities, docstore.Entity{
			Key:  docstore.Key{Kind: kind, ID: k.ID},
			Data: e.Data,
		})
	}
	if limit <= 0 || len(page.Entities) < limit {
		return page, nil
	}

	end, err := it.Cursor()
	if err != nil {
		return docstore.Page{}, fmt.Errorf("dsstore query: cursor: %w", err)
	}
	// Datastore's client does not expose moreResults, so peek one entity past the end.
	peek := datastore.NewQuery(kind).Order("__key__").KeysOnly().Limit(1).Start(end)
	if _, err := s.client.Run(ctx, peek).Next(nil); err == nil {
		page.More = true
		page.NextCursor = end.String()
	} else if !errors.Is(err, iterator.Done) {
		return docstore.Page{}, fmt.Errorf("dsstore query: peek: %w", err)
	}
	return page, nil
}

func (s *Store) RunInTransaction(ctx context.Context, fn func(tx docstore.Store) error) error {
	_, err := s.client.RunInTransaction(ctx, func(tx *datastore.Transaction) error {
		return fn(&txStore{tx: tx})
	})
	if errors.Is(err, datastore.ErrConcurrentTransaction) {
		return fmt.Errorf("dsstore: %w: %w", docstore.ErrTxConflict, err)
	}
	return err
}

func (s *Store) Ping(ctx context.Context) error {
	_, err := s.client.Run(ctx, datastore.NewQuery(pingKind).KeysOnly().Limit(1)).Next(nil)
	if err == nil || errors.Is(err, iterator.Done) {
		return nil
	}
	return err
}

// txStore is the transaction-scoped view. Datastore transactions cannot allocate ids
// synchronously or run kind queries, so Save and Query are unsupported here.
type txStore struct {
	tx *datastore.Transaction
}

func (t *txStore) Save(context.Context, string, []byte) (docstore.Key, error) {
	return docstore.Key{}, fmt.Errorf("dsstore tx save: %w", docstore.ErrUnsupported)
}

func (t *txStore) Get(_ context.Context, key docstore.Key) ([]byte, error) {
	var e entity
	if err := t.tx.Get(datastore.IDKey(key.Kind, key.ID, nil), &e); err != nil {
		return nil, mapError("tx get", err)
	}
	return e.Data, nil
}

func (t *txStore) Update(_ context.Context, key docstore.Key, data []byte) error {
	dk := datastore.IDKey(key.Kind, key.ID, nil)
	var existing entity
	if err := t.tx.Get(dk, &existing); err != nil {
		return mapError("tx update", err)
	}
	if _, err := t.tx.Put(dk, &entity{Data: data}); err != nil {
		return fmt.Errorf("dsstore tx update: %w", err)
	}
	return nil
}

func (t *txStore) Delete(_ context.Context, key docstore.Key) error {
	if err := t.tx.Delete(datastore.IDKey(key.Kind, key.ID, nil)); err != nil {
		return fmt.Errorf("dsstore tx delete: %w", err)
	}
	return nil
}

func (t *txStore) Query(context.Context, string, int, string) (docstore.Page, error) {
	return docstore.Page{}, fmt.Errorf("dsstore tx query: %w", docstore.ErrUnsupported)
}

func mapError(op string, err error) error {
	if errors.Is(err, datastore.ErrNoSuchEntity) {
		return docstore.ErrNoSuchEntity
	}
	return fmt.Errorf("dsstore %s: %w", op, err)
}
