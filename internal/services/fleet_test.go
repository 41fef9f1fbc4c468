package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/yungbote/fleet-backend/internal/data/docstore"
	"github.com/yungbote/fleet-backend/internal/data/docstore/memory"
	"github.com/yungbote/fleet-backend/internal/data/docstore/storetest"
	"github.com/yungbote/fleet-backend/internal/data/repos"
	"github.com/yungbote/fleet-backend/internal/domain"
	"github.com/yungbote/fleet-backend/internal/platform/keylock"
	"github.com/yungbote/fleet-backend/internal/platform/logger"
)

const (
	boatsURL = "http://fleet.test/boats/"
	loadsURL = "http://fleet.test/loads/"
)

type fixture struct {
	boats    BoatService
	loads    LoadService
	boatRepo repos.BoatRepo
	loadRepo repos.LoadRepo
	cascades *countingRecorder
}

type countingRecorder struct {
	mu     sync.Mutex
	writes map[string]int
}

func (r *countingRecorder) RecordCascade(op string, writes int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.writes[op] += writes
}

func (r *countingRecorder) get(op string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.writes[op]
}

func newFixture(t *testing.T, store docstore.Store) *fixture {
	t.Helper()
	log := logger.NewNop()
	locks := keylock.New()
	rec := &countingRecorder{writes: map[string]int{}}
	boatRepo := repos.NewBoatRepo(store, log)
	loadRepo := repos.NewLoadRepo(store, log)
	boats := NewBoatService(store, log, locks, rec, boatRepo, loadRepo)
	loads := NewLoadService(store, log, locks, rec, loadRepo, boats)
	return &fixture{boats: boats, loads: loads, boatRepo: boatRepo, loadRepo: loadRepo, cascades: rec}
}

func strp(s string) *string { return &s }
func fp(f float64) *float64 { return &f }
func idStr(id int64) string { return strconv.FormatInt(id, 10) }

func (f *fixture) boat(t *testing.T, name string) *domain.Boat {
	t.Helper()
	b, err := f.boats.Create(context.Background(), BoatInput{Name: strp(name), Type: strp("Catamaran"), Length: fp(28)}, boatsURL)
	require.NoError(t, err)
	return b
}

func (f *fixture) load(t *testing.T, item string) *domain.Load {
	t.Helper()
	l, err := f.loads.Create(context.Background(), LoadInput{Volume: fp(5), Item: strp(item), CreationDate: strp("10/18/2021")}, loadsURL)
	require.NoError(t, err)
	return l
}

func (f *fixture) assign(t *testing.T, b *domain.Boat, l *domain.Load) {
	t.Helper()
	require.NoError(t, f.boats.AssignLoad(context.Background(), idStr(b.ID), idStr(l.ID)))
}

func TestCreateSetsSelfLink(t *testing.T) {
	f := newFixture(t, memory.New())
	ctx := context.Background()

	b := f.boat(t, "Sea Witch")
	require.Equal(t, boatsURL+idStr(b.ID), b.Self)
	require.NotNil(t, b.Loads)
	require.Empty(t, b.Loads)

	stored, err := f.boats.GetByID(ctx, idStr(b.ID))
	require.NoError(t, err)
	require.True(t, strings.HasSuffix(stored.Self, "/"+idStr(b.ID)))

	l := f.load(t, "LEGO Blocks")
	require.Equal(t, loadsURL+idStr(l.ID), l.Self)
	require.Nil(t, l.Carrier)
}

func TestCreateRequiresEveryAttribute(t *testing.T) {
	f := newFixture(t, memory.New())
	ctx := context.Background()

	_, err := f.boats.Create(ctx, BoatInput{Name: strp("x"), Type: strp("y")}, boatsURL)
	require.ErrorIs(t, err, domain.ErrValidation)
	_, err = f.boats.Create(ctx, BoatInput{Name: strp(""), Type: strp("y"), Length: fp(1)}, boatsURL)
	require.ErrorIs(t, err, domain.ErrValidation)
	_, err = f.loads.Create(ctx, LoadInput{Volume: fp(1), Item: strp("crate")}, loadsURL)
	require.ErrorIs(t, err, domain.ErrValidation)
}

func TestMalformedIDIsNotFound(t *testing.T) {
	f := newFixture(t, memory.New())
	ctx := context.Background()

	for _, raw := range []string{"abc", "", "-1", "12x"} {
		_, err := f.boats.GetByID(ctx, raw)
		require.ErrorIs(t, err, domain.ErrNotFound, raw)
		_, err = f.loads.GetByID(ctx, raw)
		require.ErrorIs(t, err, domain.ErrNotFound, raw)
		require.ErrorIs(t, f.boats.Delete(ctx, raw), domain.ErrNotFound, raw)
		require.ErrorIs(t, f.loads.Delete(ctx, raw), domain.ErrNotFound, raw)
	}
}

func TestAssignThenUnassign(t *testing.T) {
	f := newFixture(t, memory.New())
	ctx := context.Background()
	b := f.boat(t, "Odyssey")
	l := f.load(t, "LEGO Blocks")

	f.assign(t, b, l)

	gotBoat, err := f.boats.GetByID(ctx, idStr(b.ID))
	require.NoError(t, err)
	require.Equal(t, []domain.LoadRef{{ID: l.ID, Self: l.Self}}, gotBoat.Loads)
	gotLoad, err := f.loads.GetByID(ctx, idStr(l.ID))
	require.NoError(t, err)
	require.Equal(t, &domain.Carrier{ID: b.ID, Name: "Odyssey", Self: b.Self}, gotLoad.Carrier)

	require.NoError(t, f.boats.UnassignLoad(ctx, idStr(b.ID), idStr(l.ID)))

	gotBoat, err = f.boats.GetByID(ctx, idStr(b.ID))
	require.NoError(t, err)
	require.Empty(t, gotBoat.Loads)
	gotLoad, err = f.loads.GetByID(ctx, idStr(l.ID))
	require.NoError(t, err)
	require.Nil(t, gotLoad.Carrier)
}

func TestAssignMissingEntityIsNotFound(t *testing.T) {
	f := newFixture(t, memory.New())
	ctx := context.Background()
	b := f.boat(t, "Odyssey")
	l := f.load(t, "crate")

	require.ErrorIs(t, f.boats.AssignLoad(ctx, idStr(b.ID), "999"), domain.ErrNotFound)
	require.ErrorIs(t, f.boats.AssignLoad(ctx, "999", idStr(l.ID)), domain.ErrNotFound)
	require.ErrorIs(t, f.boats.AssignLoad(ctx, "nope", idStr(l.ID)), domain.ErrNotFound)
}

func TestAssignConflictLeavesDocumentsUnchanged(t *testing.T) {
	f := newFixture(t, memory.New())
	ctx := context.Background()
	first := f.boat(t, "First")
	second := f.boat(t, "Second")
	l := f.load(t, "crate")
	f.assign(t, first, l)

	err := f.boats.AssignLoad(ctx, idStr(second.ID), idStr(l.ID))
	require.ErrorIs(t, err, domain.ErrConflict)

	gotSecond, err := f.boats.GetByID(ctx, idStr(second.ID))
	require.NoError(t, err)
	require.Empty(t, gotSecond.Loads)
	gotLoad, err := f.loads.GetByID(ctx, idStr(l.ID))
	require.NoError(t, err)
	require.True(t, gotLoad.CarriedBy(first.ID))

	// Assigning again to the same boat is also a conflict.
	require.ErrorIs(t, f.boats.AssignLoad(ctx, idStr(first.ID), idStr(l.ID)), domain.ErrConflict)
	gotFirst, err := f.boats.GetByID(ctx, idStr(first.ID))
	require.NoError(t, err)
	require.Len(t, gotFirst.Loads, 1)
}

func TestUnassignWithoutRelationshipIsNotAssigned(t *testing.T) {
	f := newFixture(t, memory.New())
	ctx := context.Background()
	b := f.boat(t, "Odyssey")
	other := f.boat(t, "Other")
	l := f.load(t, "crate")

	err := f.boats.UnassignLoad(ctx, idStr(b.ID), idStr(l.ID))
	require.ErrorIs(t, err, domain.ErrNotAssigned)
	require.ErrorIs(t, err, domain.ErrNotFound)

	f.assign(t, other, l)
	require.ErrorIs(t, f.boats.UnassignLoad(ctx, idStr(b.ID), idStr(l.ID)), domain.ErrNotAssigned)
	gotLoad, err := f.loads.GetByID(ctx, idStr(l.ID))
	require.NoError(t, err)
	require.True(t, gotLoad.CarriedBy(other.ID))

	require.ErrorIs(t, f.boats.UnassignLoad(ctx, "999", idStr(l.ID)), domain.ErrNotFound)
}

func TestDeleteBoatClearsEveryCarrier(t *testing.T) {
	f := newFixture(t, memory.New())
	ctx := context.Background()
	b := f.boat(t, "Odyssey")
	var loads []*domain.Load
	for i := 0; i < 3; i++ {
		l := f.load(t, fmt.Sprintf("crate-%d", i))
		f.assign(t, b, l)
		loads = append(loads, l)
	}

	require.NoError(t, f.boats.Delete(ctx, idStr(b.ID)))

	_, err := f.boats.GetByID(ctx, idStr(b.ID))
	require.ErrorIs(t, err, domain.ErrNotFound)
	for _, l := range loads {
		got, err := f.loads.GetByID(ctx, idStr(l.ID))
		require.NoError(t, err)
		require.Nil(t, got.Carrier)
	}
	require.Equal(t, 3, f.cascades.get("boat_delete"))

	require.ErrorIs(t, f.boats.Delete(ctx, idStr(b.ID)), domain.ErrNotFound)
}

func TestDeleteBoatSkipsDanglingLoads(t *testing.T) {
	store := memory.New()
	f := newFixture(t, store)
	ctx := context.Background()
	b := f.boat(t, "Odyssey")
	kept := f.load(t, "kept")
	gone := f.load(t, "gone")
	f.assign(t, b, gone)
	f.assign(t, b, kept)
	require.NoError(t, store.Delete(ctx, docstore.Key{Kind: domain.KindLoad, ID: gone.ID}))

	loads, err := f.boats.ListLoads(ctx, idStr(b.ID))
	require.NoError(t, err)
	require.Len(t, loads, 1)
	require.Equal(t, kept.ID, loads[0].ID)

	require.NoError(t, f.boats.Delete(ctx, idStr(b.ID)))
	got, err := f.loads.GetByID(ctx, idStr(kept.ID))
	require.NoError(t, err)
	require.Nil(t, got.Carrier)
}

func TestDeleteLoadDetachesFromCarrier(t *testing.T) {
	f := newFixture(t, memory.New())
	ctx := context.Background()
	b := f.boat(t, "Odyssey")
	keep := f.load(t, "keep")
	drop := f.load(t, "drop")
	f.assign(t, b, keep)
	f.assign(t, b, drop)

	require.NoError(t, f.loads.Delete(ctx, idStr(drop.ID)))

	_, err := f.loads.GetByID(ctx, idStr(drop.ID))
	require.ErrorIs(t, err, domain.ErrNotFound)
	got, err := f.boats.GetByID(ctx, idStr(b.ID))
	require.NoError(t, err)
	require.Equal(t, []domain.LoadRef{{ID: keep.ID, Self: keep.Self}}, got.Loads)
	require.Equal(t, 1, f.cascades.get("load_delete"))

	require.ErrorIs(t, f.loads.Delete(ctx, idStr(drop.ID)), domain.ErrNotFound)
}

func TestDeleteUnassignedLoad(t *testing.T) {
	f := newFixture(t, memory.New())
	l := f.load(t, "crate")
	require.NoError(t, f.loads.Delete(context.Background(), idStr(l.ID)))
	require.Equal(t, 0, f.cascades.get("load_delete"))
}

func TestListLoadsOfEmptyBoat(t *testing.T) {
	f := newFixture(t, memory.New())
	ctx := context.Background()
	b := f.boat(t, "Empty")

	_, err := f.boats.ListLoads(ctx, idStr(b.ID))
	require.ErrorIs(t, err, domain.ErrNoLoads)
	require.ErrorIs(t, err, domain.ErrNotFound)

	_, err = f.boats.ListLoads(ctx, "999")
	require.ErrorIs(t, err, domain.ErrNotFound)
	require.False(t, errors.Is(err, domain.ErrNoLoads))
}

func TestListLoadsKeepsListOrder(t *testing.T) {
	f := newFixture(t, memory.New())
	b := f.boat(t, "Odyssey")
	l1 := f.load(t, "one")
	l2 := f.load(t, "two")
	f.assign(t, b, l2)
	f.assign(t, b, l1)

	loads, err := f.boats.ListLoads(context.Background(), idStr(b.ID))
	require.NoError(t, err)
	require.Len(t, loads, 2)
	require.Equal(t, l2.ID, loads[0].ID)
	require.Equal(t, l1.ID, loads[1].ID)
}

func TestListPageOfSeven(t *testing.T) {
	f := newFixture(t, memory.New())
	ctx := context.Background()
	for i := 0; i < 7; i++ {
		f.boat(t, fmt.Sprintf("boat-%d", i))
	}

	var sizes []int
	seen := map[int64]bool{}
	cursor := ""
	for {
		page, err := f.boats.ListPage(ctx, cursor)
		require.NoError(t, err)
		sizes = append(sizes, len(page.Items))
		for _, b := range page.Items {
			require.False(t, seen[b.ID], "boat %d listed twice", b.ID)
			seen[b.ID] = true
		}
		if page.NextCursor == "" {
			break
		}
		cursor = page.NextCursor
	}
	require.Equal(t, []int{3, 3, 1}, sizes)
	require.Len(t, seen, 7)
}

func TestListPageRejectsBadCursor(t *testing.T) {
	f := newFixture(t, memory.New())
	_, err := f.loads.ListPage(context.Background(), "%%%")
	require.ErrorIs(t, err, domain.ErrValidation)
}

func TestDeleteBoatPartialFailureIsNotRolledBack(t *testing.T) {
	faulty := storetest.NewFaulty(memory.New(), -1)
	f := newFixture(t, faulty)
	ctx := context.Background()
	b := f.boat(t, "Odyssey")
	first := f.load(t, "first")
	second := f.load(t, "second")
	f.assign(t, b, first)
	f.assign(t, b, second)

	faulty.Arm(1)
	err := f.boats.Delete(ctx, idStr(b.ID))
	require.ErrorIs(t, err, domain.ErrStore)
	require.ErrorIs(t, err, storetest.ErrInjected)

	faulty.Arm(-1)
	gotFirst, err := f.loads.GetByID(ctx, idStr(first.ID))
	require.NoError(t, err)
	require.Nil(t, gotFirst.Carrier)
	gotSecond, err := f.loads.GetByID(ctx, idStr(second.ID))
	require.NoError(t, err)
	require.True(t, gotSecond.CarriedBy(b.ID))
	_, err = f.boats.GetByID(ctx, idStr(b.ID))
	require.NoError(t, err)
}

func TestDeleteLoadUpdatesBoatBeforeDelete(t *testing.T) {
	faulty := storetest.NewFaulty(memory.New(), -1)
	f := newFixture(t, faulty)
	ctx := context.Background()
	b := f.boat(t, "Odyssey")
	l := f.load(t, "LEGO Blocks")
	f.assign(t, b, l)

	faulty.Arm(1)
	err := f.loads.Delete(ctx, idStr(l.ID))
	require.ErrorIs(t, err, domain.ErrStore)
	require.ErrorIs(t, err, storetest.ErrInjected)
	require.Equal(t, 2, faulty.Writes())

	faulty.Arm(-1)
	gotBoat, err := f.boats.GetByID(ctx, idStr(b.ID))
	require.NoError(t, err)
	require.Empty(t, gotBoat.Loads)
	gotLoad, err := f.loads.GetByID(ctx, idStr(l.ID))
	require.NoError(t, err)
	require.True(t, gotLoad.CarriedBy(b.ID))
}

func TestCreateSelfLinkFailureIsStoreError(t *testing.T) {
	faulty := storetest.NewFaulty(memory.New(), -1)
	f := newFixture(t, faulty)
	ctx := context.Background()

	faulty.Arm(1)
	_, err := f.boats.Create(ctx, BoatInput{Name: strp("Odyssey"), Type: strp("Yacht"), Length: fp(99)}, boatsURL)
	require.ErrorIs(t, err, domain.ErrStore)
	require.ErrorIs(t, err, storetest.ErrInjected)

	faulty.Arm(1)
	_, err = f.loads.Create(ctx, LoadInput{Volume: fp(5), Item: strp("LEGO Blocks"), CreationDate: strp("10/18/2021")}, loadsURL)
	require.ErrorIs(t, err, domain.ErrStore)
	require.ErrorIs(t, err, storetest.ErrInjected)

	faulty.Arm(0)
	_, err = f.boats.Create(ctx, BoatInput{Name: strp("Odyssey"), Type: strp("Yacht"), Length: fp(99)}, boatsURL)
	require.ErrorIs(t, err, domain.ErrStore)
}

// failingUpdates saves and deletes normally but rejects every update.
type failingUpdates struct {
	docstore.Store
}

func (failingUpdates) Update(context.Context, docstore.Key, []byte) error {
	return storetest.ErrInjected
}

func TestCreateRemovesDocumentWithoutSelfLink(t *testing.T) {
	mem := memory.New()
	f := newFixture(t, failingUpdates{Store: mem})
	ctx := context.Background()

	_, err := f.boats.Create(ctx, BoatInput{Name: strp("Odyssey"), Type: strp("Yacht"), Length: fp(99)}, boatsURL)
	require.ErrorIs(t, err, domain.ErrStore)
	_, err = f.loads.Create(ctx, LoadInput{Volume: fp(5), Item: strp("LEGO Blocks"), CreationDate: strp("10/18/2021")}, loadsURL)
	require.ErrorIs(t, err, domain.ErrStore)

	require.Zero(t, mem.Len(domain.KindBoat))
	require.Zero(t, mem.Len(domain.KindLoad))
}

// txFaulty injects write failures inside the memory store's transactions.
type txFaulty struct {
	*memory.Store
	failAfter int
}

func (s *txFaulty) RunInTransaction(ctx context.Context, fn func(tx docstore.Store) error) error {
	return s.Store.RunInTransaction(ctx, func(tx docstore.Store) error {
		return fn(storetest.NewFaulty(tx, s.failAfter))
	})
}

func TestDeleteBoatRollsBackOnTransactionalStore(t *testing.T) {
	store := &txFaulty{Store: memory.New(), failAfter: -1}
	f := newFixture(t, store)
	ctx := context.Background()
	b := f.boat(t, "Odyssey")
	first := f.load(t, "first")
	second := f.load(t, "second")
	f.assign(t, b, first)
	f.assign(t, b, second)

	store.failAfter = 1
	require.ErrorIs(t, f.boats.Delete(ctx, idStr(b.ID)), storetest.ErrInjected)

	for _, l := range []*domain.Load{first, second} {
		got, err := f.loads.GetByID(ctx, idStr(l.ID))
		require.NoError(t, err)
		require.True(t, got.CarriedBy(b.ID))
	}
	got, err := f.boats.GetByID(ctx, idStr(b.ID))
	require.NoError(t, err)
	require.Len(t, got.Loads, 2)
}

func TestAssignRollsBackOnTransactionalStore(t *testing.T) {
	store := &txFaulty{Store: memory.New(), failAfter: -1}
	f := newFixture(t, store)
	ctx := context.Background()
	b := f.boat(t, "Odyssey")
	l := f.load(t, "crate")

	store.failAfter = 1
	require.ErrorIs(t, f.boats.AssignLoad(ctx, idStr(b.ID), idStr(l.ID)), storetest.ErrInjected)

	got, err := f.boats.GetByID(ctx, idStr(b.ID))
	require.NoError(t, err)
	require.Empty(t, got.Loads)
}

func TestConcurrentAssignsHaveOneWinner(t *testing.T) {
	f := newFixture(t, storetest.NewFaulty(memory.New(), -1))
	ctx := context.Background()
	l := f.load(t, "crate")
	var boats []*domain.Boat
	for i := 0; i < 8; i++ {
		boats = append(boats, f.boat(t, fmt.Sprintf("boat-%d", i)))
	}

	var wg sync.WaitGroup
	errs := make([]error, len(boats))
	for i, b := range boats {
		wg.Add(1)
		go func(i int, b *domain.Boat) {
			defer wg.Done()
			errs[i] = f.boats.AssignLoad(ctx, idStr(b.ID), idStr(l.ID))
		}(i, b)
	}
	wg.Wait()

	winners := 0
	for _, err := range errs {
		if err == nil {
			winners++
			continue
		}
		require.ErrorIs(t, err, domain.ErrConflict)
	}
	require.Equal(t, 1, winners)

	listed := 0
	for _, b := range boats {
		got, err := f.boats.GetByID(ctx, idStr(b.ID))
		require.NoError(t, err)
		listed += len(got.Loads)
	}
	require.Equal(t, 1, listed)
}

func TestSkiffScenario(t *testing.T) {
	f := newFixture(t, memory.New())
	ctx := context.Background()

	b, err := f.boats.Create(ctx, BoatInput{Name: strp("Skiff"), Type: strp("Row"), Length: fp(10)}, boatsURL)
	require.NoError(t, err)
	l, err := f.loads.Create(ctx, LoadInput{Volume: fp(5), Item: strp("Crate"), CreationDate: strp("2021-01-01")}, loadsURL)
	require.NoError(t, err)

	f.assign(t, b, l)
	loads, err := f.boats.ListLoads(ctx, idStr(b.ID))
	require.NoError(t, err)
	require.Len(t, loads, 1)
	require.Equal(t, "Skiff", loads[0].Carrier.Name)

	require.NoError(t, f.boats.Delete(ctx, idStr(b.ID)))
	got, err := f.loads.GetByID(ctx, idStr(l.ID))
	require.NoError(t, err)
	require.Nil(t, got.Carrier)
}
