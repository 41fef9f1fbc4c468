package repos

import (
	"context"
	"encoding/json"

	"github.com/yungbote/fleet-backend/internal/data/docstore"
	"github.com/yungbote/fleet-backend/internal/domain"
	"github.com/yungbote/fleet-backend/internal/platform/logger"
)

type BoatRepo interface {
	// Create persists b and sets b.ID to the assigned id.
	Create(ctx context.Context, tx docstore.Store, b *domain.Boat) (*domain.Boat, error)
	GetByID(ctx context.Context, tx docstore.Store, id int64) (*domain.Boat, error)
	Update(ctx context.Context, tx docstore.Store, b *domain.Boat) error
	Delete(ctx context.Context, tx docstore.Store, id int64) error
	ListPage(ctx context.Context, tx docstore.Store, limit int, cursor string) ([]*domain.Boat, string, error)
}

// boatDocument is the stored shape; the id lives in the key.
type boatDocument struct {
	Name   string           `json:"name"`
	Type   string           `json:"type"`
	Length float64          `json:"length"`
	Loads  []domain.LoadRef `json:"loads"`
	Self   string           `json:"self"`
}

func toBoatDocument(b *domain.Boat) boatDocument {
	loads := b.Loads
	if loads == nil {
		loads = []domain.LoadRef{}
	}
	return boatDocument{Name: b.Name, Type: b.Type, Length: b.Length, Loads: loads, Self: b.Self}
}

func (d boatDocument) toBoat(id int64) *domain.Boat {
	loads := d.Loads
	if loads == nil {
		loads = []domain.LoadRef{}
	}
	return &domain.Boat{ID: id, Name: d.Name, Type: d.Type, Length: d.Length, Loads: loads, Self: d.Self}
}

type boatRepo struct {
	store docstore.Store
	log   *logger.Logger
}

func NewBoatRepo(store docstore.Store, baseLog *logger.Logger) BoatRepo {
	repoLog := baseLog.With("repo", "BoatRepo")
	return &boatRepo{store: store, log: repoLog}
}

func boatKey(id int64) docstore.Key { return docstore.Key{Kind: domain.KindBoat, ID: id} }

func (r *boatRepo) Create(ctx context.Context, tx docstore.Store, b *domain.Boat) (*domain.Boat, error) {
	key, err := saveDoc(ctx, pick(r.store, tx), domain.KindBoat, toBoatDocument(b))
	if err != nil {
		return nil, err
	}
	b.ID = key.ID
	if b.Loads == nil {
		b.Loads = []domain.LoadRef{}
	}
	return b, nil
}

func (r *boatRepo) GetByID(ctx context.Context, tx docstore.Store, id int64) (*domain.Boat, error) {
	var doc boatDocument
	if err := getDoc(ctx, pick(r.store, tx), boatKey(id), &doc); err != nil {
		return nil, err
	}
	return doc.toBoat(id), nil
}

func (r *boatRepo) Update(ctx context.Context, tx docstore.Store, b *domain.Boat) error {
	return updateDoc(ctx, pick(r.store, tx), boatKey(b.ID), toBoatDocument(b))
}

func (r *boatRepo) Delete(ctx context.Context, tx docstore.Store, id int64) error {
	return deleteDoc(ctx, pick(r.store, tx), boatKey(id))
}

func (r *boatRepo) ListPage(ctx context.Context, tx docstore.Store, limit int, cursor string) ([]*domain.Boat, string, error) {
	page, err := queryDocs(ctx, pick(r.store, tx), domain.KindBoat, limit, cursor)
	if err != nil {
		return nil, "", err
	}
	out := make([]*domain.Boat, 0, len(page.Entities))
	for _, e := range page.Entities {
		var doc boatDocument
		if err := json.Unmarshal(e.Data, &doc); err != nil {
			r.log.Warn("skipping undecodable boat", "boat_id", e.Key.ID, "error", err)
			continue
		}
		out = append(out, doc.toBoat(e.Key.ID))
	}
	return out, page.NextCursor, nil
}
