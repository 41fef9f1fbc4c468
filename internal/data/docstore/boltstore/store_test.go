package boltstore

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yungbote/fleet-backend/internal/data/docstore"
	"github.com/yungbote/fleet-backend/internal/data/docstore/storetest"
	"github.com/yungbote/fleet-backend/internal/platform/logger"
)

func openTestStore(t *testing.T, path string) *Store {
	t.Helper()
	s, err := Open(Options{Path: path, Testing: true}, logger.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestBoltStoreContract(t *testing.T) {
	storetest.Run(t, func(t *testing.T) docstore.Store {
		return openTestStore(t, filepath.Join(t.TempDir(), "fleet.bolt"))
	})
}

func TestBoltStoreSurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fleet.bolt")
	ctx := context.Background()

	s, err := Open(Options{Path: path, Testing: true}, logger.NewNop())
	require.NoError(t, err)
	k, err := s.Save(ctx, "Loads", []byte(`{"item":"crates"}`))
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s2 := openTestStore(t, path)
	got, err := s2.Get(ctx, k)
	require.NoError(t, err)
	assert.JSONEq(t, `{"item":"crates"}`, string(got))

	k2, err := s2.Save(ctx, "Loads", []byte(`{}`))
	require.NoError(t, err)
	assert.Greater(t, k2.ID, k.ID)
}

func TestItobOrdersNumerically(t *testing.T) {
	assert.Less(t, string(itob(9)), string(itob(10)))
	assert.Equal(t, int64(258), btoi(itob(258)))
}
