// Package sqlstore keeps documents in one SQL table through gorm. It backs both the
// postgres and sqlite drivers.
package sqlstore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/yungbote/fleet-backend/internal/data/docstore"
	"github.com/yungbote/fleet-backend/internal/platform/logger"
)

type Store struct {
	db  *gorm.DB
	log *logger.Logger
}

var (
	_ docstore.Store      = (*Store)(nil)
	_ docstore.Transactor = (*Store)(nil)
	_ docstore.Pinger     = (*Store)(nil)
)

func New(db *gorm.DB, baseLog *logger.Logger) *Store {
	return &Store{db: db, log: baseLog.With("store", "sqlstore")}
}

func (s *Store) DB() *gorm.DB { return s.db }

// AutoMigrate creates or updates the documents table.
func (s *Store) AutoMigrate() error {
	return s.db.AutoMigrate(&Document{})
}

func (s *Store) Save(ctx context.Context, kind string, data []byte) (docstore.Key, error) {
	now := time.Now().UTC()
	doc := &Document{Kind: kind, Data: datatypes.JSON(data), CreatedAt: now, UpdatedAt: now}
	if err := s.db.WithContext(ctx).Create(doc).Error; err != nil {
		return docstore.Key{}, mapError("save", err)
	}
	return docstore.Key{Kind: kind, ID: doc.ID}, nil
}

func (s *Store) Get(ctx context.Context, key docstore.Key) ([]byte, error) {
	var doc Document
	err := s.db.WithContext(ctx).
		Where("id = ? AND kind = ?", key.ID, key.Kind).
		First(&doc).Error
	if err != nil {
		return nil, mapError("get", err)
	}
	return []byte(doc.Data), nil
}

func (s *Store) Update(ctx context.Context, key docstore.Key, data []byte) error {
	res := s.db.WithContext(ctx).
		Model(&Document{}).
		Where("id = ? AND kind = ?", key.ID, key.Kind).
		Updates(map[string]interface{}{
			"data":       datatypes.JSON(data),
			"updated_at": time.Now().UTC(),
		})
	if res.Error != nil {
		return mapError("update", res.Error)
	}
	if res.RowsAffected == 0 {
		return docstore.ErrNoSuchEntity
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, key docstore.Key) error {
	err := s.db.WithContext(ctx).
		Where("id = ? AND kind = ?", key.ID, key.Kind).
		Delete(&Document{}).Error
	return mapError("delete", err)
}

func (s *Store) Query(ctx context.Context, kind string, limit int, cursor string) (docstore.Page, error) {
	after, err := docstore.DecodeCursor(cursor)
	if err != nil {
		return docstore.Page{}, err
	}
	q := s.db.WithContext(ctx).
		Where("kind = ? AND id > ?", kind, after).
		Order("id ASC")
	if limit > 0 {
		q = q.Limit(limit + 1)
	}
	var docs []Document
	if err := q.Find(&docs).Error; err != nil {
		return docstore.Page{}, mapError("query", err)
	}

	var page docstore.Page
	if limit > 0 && len(docs) > limit {
		docs = docs[:limit]
		page.More = true
	}
	for _, d := range docs {
		page.Entities = append(page.Entities, docstore.Entity{
			Key:  docstore.Key{Kind: kind, ID: d.ID},
			Data: []byte(d.Data),
		})
	}
	if page.More {
		page.NextCursor = docstore.EncodeCursor(docs[len(docs)-1].ID)
	}
	return page, nil
}

func (s *Store) RunInTransaction(ctx context.Context, fn func(tx docstore.Store) error) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&Store{db: tx, log: s.log})
	})
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			return mapError("transaction", err)
		}
	}
	return err
}

func (s *Store) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func mapError(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return docstore.ErrNoSuchEntity
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch strings.TrimSpace(pgErr.Code) {
		case "40001", "40P01", "55P03": // serialization/deadlock/lock_not_available
			return fmt.Errorf("sqlstore %s: %w: %w", op, docstore.ErrTxConflict, err)
		}
	}
	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "database is locked") {
		return fmt.Errorf("sqlstore %s: %w: %w", op, docstore.ErrTxConflict, err)
	}
	return fmt.Errorf("sqlstore %s: %w", op, err)
}
