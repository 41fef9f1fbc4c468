package testutil

import (
	"context"
	"testing"

	"github.com/yungbote/fleet-backend/internal/data/docstore"
	"github.com/yungbote/fleet-backend/internal/data/docstore/memory"
	"github.com/yungbote/fleet-backend/internal/data/repos"
	"github.com/yungbote/fleet-backend/internal/domain"
	"github.com/yungbote/fleet-backend/internal/platform/logger"
)

// Env bundles an in-memory store with the repositories built on it.
type Env struct {
	Store *memory.Store
	Boats repos.BoatRepo
	Loads repos.LoadRepo
	Log   *logger.Logger
}

func NewEnv(tb testing.TB) *Env {
	tb.Helper()
	return NewEnvWithStore(tb, memory.New())
}

func NewEnvWithStore(tb testing.TB, s *memory.Store) *Env {
	tb.Helper()
	log := logger.NewNop()
	return &Env{
		Store: s,
		Boats: repos.NewBoatRepo(s, log),
		Loads: repos.NewLoadRepo(s, log),
		Log:   log,
	}
}

func SeedBoat(tb testing.TB, ctx context.Context, tx docstore.Store, r repos.BoatRepo, name string) *domain.Boat {
	tb.Helper()
	b := &domain.Boat{Name: name, Type: "Catamaran", Length: 28, Loads: []domain.LoadRef{}}
	if _, err := r.Create(ctx, tx, b); err != nil {
		tb.Fatalf("seed boat: %v", err)
	}
	b.Self = "http://fleet.test/boats/" + itoa(b.ID)
	if err := r.Update(ctx, tx, b); err != nil {
		tb.Fatalf("seed boat self: %v", err)
	}
	return b
}

func SeedLoad(tb testing.TB, ctx context.Context, tx docstore.Store, r repos.LoadRepo, item string) *domain.Load {
	tb.Helper()
	l := &domain.Load{Volume: 5, Item: item, CreationDate: "10/18/2021"}
	if _, err := r.Create(ctx, tx, l); err != nil {
		tb.Fatalf("seed load: %v", err)
	}
	l.Self = "http://fleet.test/loads/" + itoa(l.ID)
	if err := r.Update(ctx, tx, l); err != nil {
		tb.Fatalf("seed load self: %v", err)
	}
	return l
}
