// Package storetest holds the behaviour every docstore backend must share, plus a
// fault-injecting wrapper used by service tests.
package storetest

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yungbote/fleet-backend/internal/data/docstore"
)

// Factory returns a fresh, empty store. Cleanup is registered on t by the factory.
type Factory func(t *testing.T) docstore.Store

// Run exercises the docstore contract against stores built by newStore.
func Run(t *testing.T, newStore Factory) {
	t.Run("save assigns distinct ids", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		k1, err := s.Save(ctx, "Boats", []byte(`{"name":"a"}`))
		require.NoError(t, err)
		k2, err := s.Save(ctx, "Boats", []byte(`{"name":"b"}`))
		require.NoError(t, err)
		assert.Equal(t, "Boats", k1.Kind)
		assert.NotZero(t, k1.ID)
		assert.NotEqual(t, k1.ID, k2.ID)
	})

	t.Run("get returns saved payload", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		k, err := s.Save(ctx, "Loads", []byte(`{"item":"crates"}`))
		require.NoError(t, err)
		got, err := s.Get(ctx, k)
		require.NoError(t, err)
		assert.JSONEq(t, `{"item":"crates"}`, string(got))
	})

	t.Run("get missing", func(t *testing.T) {
		s := newStore(t)
		_, err := s.Get(context.Background(), docstore.Key{Kind: "Boats", ID: 999})
		assert.ErrorIs(t, err, docstore.ErrNoSuchEntity)
	})

	t.Run("update replaces payload", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		k, err := s.Save(ctx, "Boats", []byte(`{"self":""}`))
		require.NoError(t, err)
		require.NoError(t, s.Update(ctx, k, []byte(`{"self":"http://x/boats/1"}`)))
		got, err := s.Get(ctx, k)
		require.NoError(t, err)
		assert.JSONEq(t, `{"self":"http://x/boats/1"}`, string(got))
	})

	t.Run("update missing", func(t *testing.T) {
		s := newStore(t)
		err := s.Update(context.Background(), docstore.Key{Kind: "Boats", ID: 12345}, []byte(`{}`))
		assert.ErrorIs(t, err, docstore.ErrNoSuchEntity)
	})

	t.Run("delete is idempotent", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		k, err := s.Save(ctx, "Loads", []byte(`{}`))
		require.NoError(t, err)
		require.NoError(t, s.Delete(ctx, k))
		_, err = s.Get(ctx, k)
		assert.ErrorIs(t, err, docstore.ErrNoSuchEntity)
		assert.NoError(t, s.Delete(ctx, k))
	})

	t.Run("query pages in id order", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		var want []int64
		for i := 0; i < 7; i++ {
			k, err := s.Save(ctx, "Boats", []byte(fmt.Sprintf(`{"n":%d}`, i)))
			require.NoError(t, err)
			want = append(want, k.ID)
		}
		_, err := s.Save(ctx, "Loads", []byte(`{}`))
		require.NoError(t, err)

		var got []int64
		var sizes []int
		cursor := ""
		for pages := 0; pages < 10; pages++ {
			page, err := s.Query(ctx, "Boats", 3, cursor)
			require.NoError(t, err)
			sizes = append(sizes, len(page.Entities))
			for _, e := range page.Entities {
				assert.Equal(t, "Boats", e.Key.Kind)
				got = append(got, e.Key.ID)
			}
			if !page.More {
				assert.Empty(t, page.NextCursor)
				break
			}
			require.NotEmpty(t, page.NextCursor)
			cursor = page.NextCursor
		}
		assert.Equal(t, []int{3, 3, 1}, sizes)
		assert.ElementsMatch(t, want, got)
		for i := 1; i < len(got); i++ {
			assert.Less(t, got[i-1], got[i])
		}
	})

	t.Run("query exact page has no cursor", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		for i := 0; i < 3; i++ {
			_, err := s.Save(ctx, "Loads", []byte(`{}`))
			require.NoError(t, err)
		}
		page, err := s.Query(ctx, "Loads", 3, "")
		require.NoError(t, err)
		assert.Len(t, page.Entities, 3)
		assert.False(t, page.More)
		assert.Empty(t, page.NextCursor)
	})

	t.Run("query empty kind", func(t *testing.T) {
		s := newStore(t)
		page, err := s.Query(context.Background(), "Nothing", 3, "")
		require.NoError(t, err)
		assert.Empty(t, page.Entities)
		assert.False(t, page.More)
	})

	t.Run("transaction rolls back on error", func(t *testing.T) {
		s := newStore(t)
		txr, ok := s.(docstore.Transactor)
		if !ok {
			t.Skip("backend has no transactions")
		}
		ctx := context.Background()
		k, err := s.Save(ctx, "Boats", []byte(`{"v":1}`))
		require.NoError(t, err)

		boom := errors.New("boom")
		err = txr.RunInTransaction(ctx, func(tx docstore.Store) error {
			if err := tx.Update(ctx, k, []byte(`{"v":2}`)); err != nil {
				return err
			}
			return boom
		})
		assert.ErrorIs(t, err, boom)
		got, err := s.Get(ctx, k)
		require.NoError(t, err)
		assert.JSONEq(t, `{"v":1}`, string(got))

		require.NoError(t, txr.RunInTransaction(ctx, func(tx docstore.Store) error {
			return tx.Update(ctx, k, []byte(`{"v":3}`))
		}))
		got, err = s.Get(ctx, k)
		require.NoError(t, err)
		assert.JSONEq(t, `{"v":3}`, string(got))
	})
}
