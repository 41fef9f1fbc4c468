package repos

import (
	"context"
	"encoding/json"

	"github.com/yungbote/fleet-backend/internal/data/docstore"
	"github.com/yungbote/fleet-backend/internal/domain"
	"github.com/yungbote/fleet-backend/internal/platform/logger"
)

type LoadRepo interface {
	Create(ctx context.Context, tx docstore.Store, l *domain.Load) (*domain.Load, error)
	GetByID(ctx context.Context, tx docstore.Store, id int64) (*domain.Load, error)
	Update(ctx context.Context, tx docstore.Store, l *domain.Load) error
	Delete(ctx context.Context, tx docstore.Store, id int64) error
	ListPage(ctx context.Context, tx docstore.Store, limit int, cursor string) ([]*domain.Load, string, error)
}

type loadDocument struct {
	Volume       float64         `json:"volume"`
	Item         string          `json:"item"`
	CreationDate string          `json:"creation_date"`
	Carrier      *domain.Carrier `json:"carrier"`
	Self         string          `json:"self"`
}

func toLoadDocument(l *domain.Load) loadDocument {
	return loadDocument{
		Volume:       l.Volume,
		Item:         l.Item,
		CreationDate: l.CreationDate,
		Carrier:      l.Carrier,
		Self:         l.Self,
	}
}

func (d loadDocument) toLoad(id int64) *domain.Load {
	return &domain.Load{
		ID:           id,
		Volume:       d.Volume,
		Item:         d.Item,
		CreationDate: d.CreationDate,
		Carrier:      d.Carrier,
		Self:         d.Self,
	}
}

type loadRepo struct {
	store docstore.Store
	log   *logger.Logger
}

func NewLoadRepo(store docstore.Store, baseLog *logger.Logger) LoadRepo {
	return &loadRepo{store: store, log: baseLog.With("repo", "LoadRepo")}
}

func loadKey(id int64) docstore.Key { return docstore.Key{Kind: domain.KindLoad, ID: id} }

func (r *loadRepo) Create(ctx context.Context, tx docstore.Store, l *domain.Load) (*domain.Load, error) {
	key, err := saveDoc(ctx, pick(r.store, tx), domain.KindLoad, toLoadDocument(l))
	if err != nil {
		return nil, err
	}
	l.ID = key.ID
	return l, nil
}

func (r *loadRepo) GetByID(ctx context.Context, tx docstore.Store, id int64) (*domain.Load, error) {
	var doc loadDocument
	if err := getDoc(ctx, pick(r.store, tx), loadKey(id), &doc); err != nil {
		return nil, err
	}
	return doc.toLoad(id), nil
}

func (r *loadRepo) Update(ctx context.Context, tx docstore.Store, l *domain.Load) error {
	return updateDoc(ctx, pick(r.store, tx), loadKey(l.ID), toLoadDocument(l))
}

func (r *loadRepo) Delete(ctx context.Context, tx docstore.Store, id int64) error {
	return deleteDoc(ctx, pick(r.store, tx), loadKey(id))
}

func (r *loadRepo) ListPage(ctx context.Context, tx docstore.Store, limit int, cursor string) ([]*domain.Load, string, error) {
	page, err := queryDocs(ctx, pick(r.store, tx), domain.KindLoad, limit, cursor)
	if err != nil {
		return nil, "", err
	}
	out := make([]*domain.Load, 0, len(page.Entities))
	for _, e := range page.Entities {
		var doc loadDocument
		if err := json.Unmarshal(e.Data, &doc); err != nil {
			r.log.Warn("skipping undecodable load", "load_id", e.Key.ID, "error", err)
			continue
		}
		out = append(out, doc.toLoad(e.Key.ID))
	}
	return out, page.NextCursor, nil
}
