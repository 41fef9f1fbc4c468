package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"go.opentelemetry.io/otel/attribute"

	"github.com/yungbote/fleet-backend/internal/data/docstore"
	"github.com/yungbote/fleet-backend/internal/data/repos"
	"github.com/yungbote/fleet-backend/internal/domain"
	"github.com/yungbote/fleet-backend/internal/platform/keylock"
	"github.com/yungbote/fleet-backend/internal/platform/logger"
)

// BoatInput carries the create attributes; nil means the attribute was absent.
type BoatInput struct {
	Name   *string
	Type   *string
	Length *float64
}

func (in BoatInput) validate() error {
	if in.Name == nil || strings.TrimSpace(*in.Name) == "" ||
		in.Type == nil || strings.TrimSpace(*in.Type) == "" ||
		in.Length == nil {
		return domain.ValidationError(MissingAttributes)
	}
	return nil
}

// LoadDetacher is the slice of the boat service the load service depends on.
type LoadDetacher interface {
	// DetachLoad removes loadID from the boat's loads list, inside tx when non-nil.
	DetachLoad(ctx context.Context, tx docstore.Store, boatID, loadID int64) error
}

type BoatService interface {
	LoadDetacher

	// Create stores the boat and sets its self link to baseURL followed by the new id.
	Create(ctx context.Context, in BoatInput, baseURL string) (*domain.Boat, error)
	GetByID(ctx context.Context, rawID string) (*domain.Boat, error)
	ListPage(ctx context.Context, cursor string) (*Page[*domain.Boat], error)
	// Delete clears the carrier of every load on the boat, then deletes the boat.
	Delete(ctx context.Context, rawID string) error
	AssignLoad(ctx context.Context, rawBoatID, rawLoadID string) error
	UnassignLoad(ctx context.Context, rawBoatID, rawLoadID string) error
	// ListLoads resolves the boat's load references in list order.
	ListLoads(ctx context.Context, rawBoatID string) ([]*domain.Load, error)
}

type boatService struct {
	txr      docstore.TxRunner
	log      *logger.Logger
	locks    *keylock.Locker
	cascades CascadeRecorder
	boatRepo repos.BoatRepo
	loadRepo repos.LoadRepo
}

// NewBoatService wires the boat manager. locks may be nil to disable in-process
// serialization; cascades may be nil.
func NewBoatService(
	store docstore.Store,
	baseLog *logger.Logger,
	locks *keylock.Locker,
	cascades CascadeRecorder,
	boatRepo repos.BoatRepo,
	loadRepo repos.LoadRepo,
) BoatService {
	return &boatService{
		txr:      docstore.NewTxRunner(store),
		log:      baseLog.With("service", "BoatService"),
		locks:    locks,
		cascades: recorderOrNop(cascades),
		boatRepo: boatRepo,
		loadRepo: loadRepo,
	}
}

func (s *boatService) Create(ctx context.Context, in BoatInput, baseURL string) (_ *domain.Boat, err error) {
	ctx, span := startSpan(ctx, "BoatService.Create")
	defer func() { err = endSpan(span, err) }()

	if err := in.validate(); err != nil {
		return nil, err
	}
	b := &domain.Boat{
		Name:   *in.Name,
		Type:   *in.Type,
		Length: *in.Length,
		Loads:  []domain.LoadRef{},
	}
	if _, err := s.boatRepo.Create(ctx, nil, b); err != nil {
		s.log.Error("Create: save boat failed", "error", err)
		return nil, err
	}
	b.Self = baseURL + strconv.FormatInt(b.ID, 10)
	if err := s.boatRepo.Update(ctx, nil, b); err != nil {
		s.log.Error("Create: set self link failed", "error", err, "boat_id", b.ID)
		if derr := s.boatRepo.Delete(ctx, nil, b.ID); derr != nil {
			s.log.Warn("Create: could not remove boat without self link", "error", derr, "boat_id", b.ID)
		}
		return nil, err
	}
	span.SetAttributes(attribute.Int64("boat.id", b.ID))
	return b, nil
}

func (s *boatService) GetByID(ctx context.Context, rawID string) (_ *domain.Boat, err error) {
	ctx, span := startSpan(ctx, "BoatService.GetByID", attribute.String("boat.id", rawID))
	defer func() { err = endSpan(span, err) }()

	id, err := repos.ParseID(rawID)
	if err != nil {
		return nil, err
	}
	return s.boatRepo.GetByID(ctx, nil, id)
}

func (s *boatService) ListPage(ctx context.Context, cursor string) (_ *Page[*domain.Boat], err error) {
	ctx, span := startSpan(ctx, "BoatService.ListPage")
	defer func() { err = endSpan(span, err) }()

	items, next, err := s.boatRepo.ListPage(ctx, nil, PageSize, cursor)
	if err != nil {
		return nil, err
	}
	return &Page[*domain.Boat]{Items: items, NextCursor: next}, nil
}

func (s *boatService) Delete(ctx context.Context, rawID string) (err error) {
	ctx, span := startSpan(ctx, "BoatService.Delete", attribute.String("boat.id", rawID))
	defer func() { err = endSpan(span, err) }()

	id, err := repos.ParseID(rawID)
	if err != nil {
		return err
	}

	unlock, err := lockStable(ctx, s.locks, func(ctx context.Context) ([]string, error) {
		b, err := s.boatRepo.GetByID(ctx, nil, id)
		if err != nil {
			return nil, err
		}
		keys := []string{boatLockKey(id)}
		for _, ref := range b.Loads {
			keys = append(keys, loadLockKey(ref.ID))
		}
		return keys, nil
	})
	if err != nil {
		return err
	}
	defer unlock()

	cleared := 0
	err = s.txr.InTx(ctx, func(tx docstore.Store) error {
		cleared = 0
		b, err := s.boatRepo.GetByID(ctx, tx, id)
		if err != nil {
			return err
		}
		for _, ref := range b.Loads {
			l, err := s.loadRepo.GetByID(ctx, tx, ref.ID)
			if errors.Is(err, domain.ErrNotFound) {
				s.log.Warn("Delete: boat lists a missing load", "boat_id", id, "load_id", ref.ID)
				continue
			}
			if err != nil {
				return err
			}
			if l.Assigned() && !l.CarriedBy(id) {
				s.log.Warn("Delete: listed load is carried by another boat",
					"boat_id", id, "load_id", l.ID, "carrier_id", l.Carrier.ID)
				continue
			}
			l.Carrier = nil
			if err := s.loadRepo.Update(ctx, tx, l); err != nil {
				s.log.Error("Delete: clear carrier failed", "error", err, "boat_id", id, "load_id", l.ID)
				return err
			}
			cleared++
		}
		return s.boatRepo.Delete(ctx, tx, id)
	})
	if err != nil {
		return err
	}
	s.cascades.RecordCascade("boat_delete", cleared)
	span.SetAttributes(attribute.Int("loads.cleared", cleared))
	return nil
}

func (s *boatService) AssignLoad(ctx context.Context, rawBoatID, rawLoadID string) (err error) {
	ctx, span := startSpan(ctx, "BoatService.AssignLoad",
		attribute.String("boat.id", rawBoatID), attribute.String("load.id", rawLoadID))
	defer func() { err = endSpan(span, err) }()

	boatID, loadID, err := parsePair(rawBoatID, rawLoadID)
	if err != nil {
		return err
	}
	unlock, err := s.locks.Lock(ctx, boatLockKey(boatID), loadLockKey(loadID))
	if err != nil {
		return domain.StoreError("lock", err)
	}
	defer unlock()

	err = s.txr.InTx(ctx, func(tx docstore.Store) error {
		b, err := s.boatRepo.GetByID(ctx, tx, boatID)
		if err != nil {
			return err
		}
		l, err := s.loadRepo.GetByID(ctx, tx, loadID)
		if err != nil {
			return err
		}
		if l.Assigned() {
			return fmt.Errorf("load %d is carried by boat %d: %w", loadID, l.Carrier.ID, domain.ErrConflict)
		}
		if !b.HasLoad(loadID) {
			b.AddLoad(l)
		}
		l.Carrier = b.AsCarrier()
		if err := s.boatRepo.Update(ctx, tx, b); err != nil {
			return err
		}
		return s.loadRepo.Update(ctx, tx, l)
	})
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) && !errors.Is(err, domain.ErrConflict) {
			s.log.Error("AssignLoad failed", "error", err, "boat_id", boatID, "load_id", loadID)
		}
		return err
	}
	s.cascades.RecordCascade("assign", 2)
	return nil
}

func (s *boatService) UnassignLoad(ctx context.Context, rawBoatID, rawLoadID string) (err error) {
	ctx, span := startSpan(ctx, "BoatService.UnassignLoad",
		attribute.String("boat.id", rawBoatID), attribute.String("load.id", rawLoadID))
	defer func() { err = endSpan(span, err) }()

	boatID, loadID, err := parsePair(rawBoatID, rawLoadID)
	if err != nil {
		return err
	}
	unlock, err := s.locks.Lock(ctx, boatLockKey(boatID), loadLockKey(loadID))
	if err != nil {
		return domain.StoreError("lock", err)
	}
	defer unlock()

	err = s.txr.InTx(ctx, func(tx docstore.Store) error {
		b, err := s.boatRepo.GetByID(ctx, tx, boatID)
		if err != nil {
			return err
		}
		l, err := s.loadRepo.GetByID(ctx, tx, loadID)
		if err != nil {
			return err
		}
		if !l.CarriedBy(boatID) {
			return fmt.Errorf("load %d on boat %d: %w", loadID, boatID, domain.ErrNotAssigned)
		}
		l.Carrier = nil
		b.RemoveLoad(loadID)
		if err := s.boatRepo.Update(ctx, tx, b); err != nil {
			return err
		}
		return s.loadRepo.Update(ctx, tx, l)
	})
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			s.log.Error("UnassignLoad failed", "error", err, "boat_id", boatID, "load_id", loadID)
		}
		return err
	}
	s.cascades.RecordCascade("unassign", 2)
	return nil
}

func (s *boatService) ListLoads(ctx context.Context, rawBoatID string) (_ []*domain.Load, err error) {
	ctx, span := startSpan(ctx, "BoatService.ListLoads", attribute.String("boat.id", rawBoatID))
	defer func() { err = endSpan(span, err) }()

	id, err := repos.ParseID(rawBoatID)
	if err != nil {
		return nil, err
	}
	b, err := s.boatRepo.GetByID(ctx, nil, id)
	if err != nil {
		return nil, err
	}
	if len(b.Loads) == 0 {
		return nil, fmt.Errorf("boat %d: %w", id, domain.ErrNoLoads)
	}
	out := make([]*domain.Load, 0, len(b.Loads))
	for _, ref := range b.Loads {
		l, err := s.loadRepo.GetByID(ctx, nil, ref.ID)
		if errors.Is(err, domain.ErrNotFound) {
			s.log.Warn("ListLoads: skipping missing load", "boat_id", id, "load_id", ref.ID)
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, nil
}

func (s *boatService) DetachLoad(ctx context.Context, tx docstore.Store, boatID, loadID int64) error {
	b, err := s.boatRepo.GetByID(ctx, tx, boatID)
	if errors.Is(err, domain.ErrNotFound) {
		s.log.Warn("DetachLoad: carrier boat is missing", "boat_id", boatID, "load_id", loadID)
		return nil
	}
	if err != nil {
		return err
	}
	if !b.RemoveLoad(loadID) {
		return nil
	}
	return s.boatRepo.Update(ctx, tx, b)
}

func parsePair(rawBoatID, rawLoadID string) (int64, int64, error) {
	boatID, err := repos.ParseID(rawBoatID)
	if err != nil {
		return 0, 0, err
	}
	loadID, err := repos.ParseID(rawLoadID)
	if err != nil {
		return 0, 0, err
	}
	return boatID, loadID, nil
}
