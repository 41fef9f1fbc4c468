package services

import (
	"context"
	"strconv"
	"strings"

	"go.opentelemetry.io/otel/attribute"

	"github.com/yungbote/fleet-backend/internal/data/docstore"
	"github.com/yungbote/fleet-backend/internal/data/repos"
	"github.com/yungbote/fleet-backend/internal/domain"
	"github.com/yungbote/fleet-backend/internal/platform/keylock"
	"github.com/yungbote/fleet-backend/internal/platform/logger"
)

type LoadInput struct {
	Volume       *float64
	Item         *string
	CreationDate *string
}

func (in LoadInput) validate() error {
	if in.Volume == nil ||
		in.Item == nil || strings.TrimSpace(*in.Item) == "" ||
		in.CreationDate == nil || strings.TrimSpace(*in.CreationDate) == "" {
		return domain.ValidationError(MissingAttributes)
	}
	return nil
}

type LoadService interface {
	Create(ctx context.Context, in LoadInput, baseURL string) (*domain.Load, error)
	GetByID(ctx context.Context, rawID string) (*domain.Load, error)
	ListPage(ctx context.Context, cursor string) (*Page[*domain.Load], error)
	// Delete detaches the load from its carrier, if any, before deleting it.
	Delete(ctx context.Context, rawID string) error
}

type loadService struct {
	txr      docstore.TxRunner
	log      *logger.Logger
	locks    *keylock.Locker
	cascades CascadeRecorder
	loadRepo repos.LoadRepo
	boats    LoadDetacher
}

func NewLoadService(
	store docstore.Store,
	baseLog *logger.Logger,
	locks *keylock.Locker,
	cascades CascadeRecorder,
	loadRepo repos.LoadRepo,
	boats LoadDetacher,
) LoadService {
	return &loadService{
		txr:      docstore.NewTxRunner(store),
		log:      baseLog.With("service", "LoadService"),
		locks:    locks,
		cascades: recorderOrNop(cascades),
		loadRepo: loadRepo,
		boats:    boats,
	}
}

func (s *loadService) Create(ctx context.Context, in LoadInput, baseURL string) (_ *domain.Load, err error) {
	ctx, span := startSpan(ctx, "LoadService.Create")
	defer func() { err = endSpan(span, err) }()

	if err := in.validate(); err != nil {
		return nil, err
	}
	l := &domain.Load{
		Volume:       *in.Volume,
		Item:         *in.Item,
		CreationDate: *in.CreationDate,
	}
	if _, err := s.loadRepo.Create(ctx, nil, l); err != nil {
		s.log.Error("Create: save load failed", "error", err)
		return nil, err
	}
	l.Self = baseURL + strconv.FormatInt(l.ID, 10)
	if err := s.loadRepo.Update(ctx, nil, l); err != nil {
		s.log.Error("Create: set self link failed", "error", err, "load_id", l.ID)
		if derr := s.loadRepo.Delete(ctx, nil, l.ID); derr != nil {
			s.log.Warn("Create: could not remove load without self link", "error", derr, "load_id", l.ID)
		}
		return nil, err
	}
	span.SetAttributes(attribute.Int64("load.id", l.ID))
	return l, nil
}

func (s *loadService) GetByID(ctx context.Context, rawID string) (_ *domain.Load, err error) {
	ctx, span := startSpan(ctx, "LoadService.GetByID", attribute.String("load.id", rawID))
	defer func() { err = endSpan(span, err) }()

	id, err := repos.ParseID(rawID)
	if err != nil {
		return nil, err
	}
	return s.loadRepo.GetByID(ctx, nil, id)
}

func (s *loadService) ListPage(ctx context.Context, cursor string) (_ *Page[*domain.Load], err error) {
	ctx, span := startSpan(ctx, "LoadService.ListPage")
	defer func() { err = endSpan(span, err) }()

	items, next, err := s.loadRepo.ListPage(ctx, nil, PageSize, cursor)
	if err != nil {
		return nil, err
	}
	return &Page[*domain.Load]{Items: items, NextCursor: next}, nil
}

func (s *loadService) Delete(ctx context.Context, rawID string) (err error) {
	ctx, span := startSpan(ctx, "LoadService.Delete", attribute.String("load.id", rawID))
	defer func() { err = endSpan(span, err) }()

	id, err := repos.ParseID(rawID)
	if err != nil {
		return err
	}

	unlock, err := lockStable(ctx, s.locks, func(ctx context.Context) ([]string, error) {
		l, err := s.loadRepo.GetByID(ctx, nil, id)
		if err != nil {
			return nil, err
		}
		keys := []string{loadLockKey(id)}
		if l.Assigned() {
			keys = append(keys, boatLockKey(l.Carrier.ID))
		}
		return keys, nil
	})
	if err != nil {
		return err
	}
	defer unlock()

	detached := 0
	err = s.txr.InTx(ctx, func(tx docstore.Store) error {
		detached = 0
		l, err := s.loadRepo.GetByID(ctx, tx, id)
		if err != nil {
			return err
		}
		if l.Assigned() {
			if err := s.boats.DetachLoad(ctx, tx, l.Carrier.ID, id); err != nil {
				s.log.Error("Delete: detach from carrier failed", "error", err, "load_id", id, "boat_id", l.Carrier.ID)
				return err
			}
			detached = 1
		}
		return s.loadRepo.Delete(ctx, tx, id)
	})
	if err != nil {
		return err
	}
	s.cascades.RecordCascade("load_delete", detached)
	return nil
}
