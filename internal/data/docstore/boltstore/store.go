// Package boltstore keeps documents in an embedded bbolt file: one bucket per kind,
// big-endian id keys (so bucket order is id order) and msgpack-encoded records.
package boltstore

import (
	"context"
	"encoding/binary"
	"fmt"
	"time"

	"github.com/vmihailenco/msgpack/v5"
	"go.etcd.io/bbolt"

	"github.com/yungbote/fleet-backend/internal/data/docstore"
	"github.com/yungbote/fleet-backend/internal/platform/logger"
)

type record struct {
	Data      []byte    `msgpack:"d"`
	CreatedAt time.Time `msgpack:"c"`
	UpdatedAt time.Time `msgpack:"u"`
}

type Options struct {
	Path string `yaml:"path"`
	// Testing trades durability for speed.
	Testing bool `yaml:"-"`
}

type Store struct {
	db  *bbolt.DB
	log *logger.Logger
}

var (
	_ docstore.Store      = (*Store)(nil)
	_ docstore.Transactor = (*Store)(nil)
	_ docstore.Pinger     = (*Store)(nil)
)

func Open(opt Options, baseLog *logger.Logger) (*Store, error) {
	path := opt.Path
	if path == "" {
		path = "fleet.bolt"
	}
	bopt := &bbolt.Options{}
	*bopt = *bbolt.DefaultOptions
	bopt.Timeout = 10 * time.Second
	if opt.Testing {
		bopt.NoSync = true
		bopt.NoFreelistSync = true
	} else {
		bopt.FreelistType = bbolt.FreelistMapType
	}
	bdb, err := bbolt.Open(path, 0o600, bopt)
	if err != nil {
		return nil, fmt.Errorf("boltstore: %w", err)
	}
	baseLog.Info("Opened bolt store", "path", path)
	return &Store{db: bdb, log: baseLog.With("store", "boltstore")}, nil
}

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) Save(ctx context.Context, kind string, data []byte) (docstore.Key, error) {
	if err := ctx.Err(); err != nil {
		return docstore.Key{}, err
	}
	var key docstore.Key
	err := s.db.Update(func(tx *bbolt.Tx) error {
		var err error
		key, err = save(tx, kind, data)
		return err
	})
	return key, err
}

func (s *Store) Get(ctx context.Context, key docstore.Key) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var out []byte
	err := s.db.View(func(tx *bbolt.Tx) error {
		var err error
		out, err = get(tx, key)
		return err
	})
	return out, err
}

func (s *Store) Update(ctx context.Context, key docstore.Key, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.db.Update(func(tx *bbolt.Tx) error { return update(tx, key, data) })
}

func (s *Store) Delete(ctx context.Context, key docstore.Key) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.db.Update(func(tx *bbolt.Tx) error { return del(tx, key) })
}

func (s *Store) Query(ctx context.Context, kind string, limit int, cursor string) (docstore.Page, error) {
	if err := ctx.Err(); err != nil {
		return docstore.Page{}, err
	}
	var page docstore.Page
	err := s.db.View(func(tx *bbolt.Tx) error {
		var err error
		page, err = query(tx, kind, limit, cursor)
		return err
	})
	return page, err
}

// RunInTransaction runs fn inside one bbolt read-write transaction.
func (s *Store) RunInTransaction(ctx context.Context, fn func(tx docstore.Store) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.db.Update(func(btx *bbolt.Tx) error {
		return fn(&txStore{tx: btx})
	})
}

func (s *Store) Ping(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.db.View(func(*bbolt.Tx) error { return nil })
}

type txStore struct {
	tx *bbolt.Tx
}

func (t *txStore) Save(ctx context.Context, kind string, data []byte) (docstore.Key, error) {
	if err := ctx.Err(); err != nil {
		return docstore.Key{}, err
	}
	return save(t.tx, kind, data)
}

func (t *txStore) Get(ctx context.Context, key docstore.Key) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return get(t.tx, key)
}

func (t *txStore) Update(ctx context.Context, key docstore.Key, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return update(t.tx, key, data)
}

func (t *txStore) Delete(ctx context.Context, key docstore.Key) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return del(t.tx, key)
}

func (t *txStore) Query(ctx context.Context, kind string, limit int, cursor string) (docstore.Page, error) {
	if err := ctx.Err(); err != nil {
		return docstore.Page{}, err
	}
	return query(t.tx, kind, limit, cursor)
}

func itob(id int64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, uint64(id))
	return b
}

func btoi(b []byte) int64 {
	return int64(binary.BigEndian.Uint64(b))
}

func save(tx *bbolt.Tx, kind string, data []byte) (docstore.Key, error) {
	b, err := tx.CreateBucketIfNotExists([]byte(kind))
	if err != nil {
		return docstore.Key{}, fmt.Errorf("boltstore save: %w", err)
	}
	seq, err := b.NextSequence()
	if err != nil {
		return docstore.Key{}, fmt.Errorf("boltstore save: %w", err)
	}
	id := int64(seq)
	now := time.Now().UTC()
	raw, err := msgpack.Marshal(&record{Data: data, CreatedAt: now, UpdatedAt: now})
	if err != nil {
		return docstore.Key{}, fmt.Errorf("boltstore save: encode: %w", err)
	}
	if err := b.Put(itob(id), raw); err != nil {
		return docstore.Key{}, fmt.Errorf("boltstore save: %w", err)
	}
	return docstore.Key{Kind: kind, ID: id}, nil
}

func load(b *bbolt.Bucket, id int64) (*record, error) {
	if b == nil {
		return nil, docstore.ErrNoSuchEntity
	}
	raw := b.Get(itob(id))
	if raw == nil {
		return nil, docstore.ErrNoSuchEntity
	}
	var rec record
	if err := msgpack.Unmarshal(raw, &rec); err != nil {
		return nil, fmt.Errorf("boltstore: decode %d: %w", id, err)
	}
	return &rec, nil
}

func get(tx *bbolt.Tx, key docstore.Key) ([]byte, error) {
	rec, err := load(tx.Bucket([]byte(key.Kind)), key.ID)
	if err != nil {
		return nil, err
	}
	return append([]byte(nil), rec.Data...), nil
}

func update(tx *bbolt.Tx, key docstore.Key, data []byte) error {
	b := tx.Bucket([]byte(key.Kind))
	rec, err := load(b, key.ID)
	if err != nil {
		return err
	}
	rec.Data = data
	rec.UpdatedAt = time.Now().UTC()
	raw, err := msgpack.Marshal(rec)
	if err != nil {
		return fmt.Errorf("boltstore update: encode: %w", err)
	}
	return b.Put(itob(key.ID), raw)
}

func del(tx *bbolt.Tx, key docstore.Key) error {
	b := tx.Bucket([]byte(key.Kind))
	if b == nil {
		return nil
	}
	if err := b.Delete(itob(key.ID)); err != nil {
		return fmt.Errorf("boltstore delete: %w", err)
	}
	return nil
}

func query(tx *bbolt.Tx, kind string, limit int, cursor string) (docstore.Page, error) {
	after, err := docstore.DecodeCursor(cursor)
	if err != nil {
		return docstore.Page{}, err
	}
	var page docstore.Page
	b := tx.Bucket([]byte(kind))
	if b == nil {
		return page, nil
	}
	c := b.Cursor()
	var lastID int64
	for k, v := c.Seek(itob(after + 1)); k != nil; k, v = c.Next() {
		if limit > 0 && len(page.Entities) == limit {
			page.More = true
			break
		}
		var rec record
		if err := msgpack.Unmarshal(v, &rec); err != nil {
			return docstore.Page{}, fmt.Errorf("boltstore query: decode: %w", err)
		}
		lastID = btoi(k)
		page.Entities = append(page.Entities, docstore.Entity{
			Key:  docstore.Key{Kind: kind, ID: lastID},
			Data: append([]byte(nil), rec.Data...),
		})
	}
	if page.More {
		page.NextCursor = docstore.EncodeCursor(lastID)
	}
	return page, nil
}
