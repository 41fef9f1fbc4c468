// Package repos maps fleet entities onto docstore documents. Every method takes an
// optional tx store; nil means the repository's own store, mirroring how callers pass
// a transaction through when one is open.
package repos

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/yungbote/fleet-backend/internal/data/docstore"
	"github.com/yungbote/fleet-backend/internal/domain"
)

// ParseID converts a path parameter into a store id. Anything that is not a positive
// base-10 integer is reported as NotFound, never as a format error.
func ParseID(raw string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("id %q: %w", raw, domain.ErrNotFound)
	}
	return id, nil
}

func pick(def, tx docstore.Store) docstore.Store {
	if tx != nil {
		return tx
	}
	return def
}

func getDoc(ctx context.Context, s docstore.Store, key docstore.Key, dst interface{}) error {
	raw, err := s.Get(ctx, key)
	if errors.Is(err, docstore.ErrNoSuchEntity) {
		return fmt.Errorf("%s: %w", key, domain.ErrNotFound)
	}
	if err != nil {
		return domain.StoreError("get "+key.String(), err)
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return domain.StoreError("decode "+key.String(), err)
	}
	return nil
}

func updateDoc(ctx context.Context, s docstore.Store, key docstore.Key, src interface{}) error {
	raw, err := json.Marshal(src)
	if err != nil {
		return domain.StoreError("encode "+key.String(), err)
	}
	err = s.Update(ctx, key, raw)
	if errors.Is(err, docstore.ErrNoSuchEntity) {
		return fmt.Errorf("%s: %w", key, domain.ErrNotFound)
	}
	if err != nil {
		return domain.StoreError("update "+key.String(), err)
	}
	return nil
}

func saveDoc(ctx context.Context, s docstore.Store, kind string, src interface{}) (docstore.Key, error) {
	raw, err := json.Marshal(src)
	if err != nil {
		return docstore.Key{}, domain.StoreError("encode "+kind, err)
	}
	key, err := s.Save(ctx, kind, raw)
	if err != nil {
		return docstore.Key{}, domain.StoreError("save "+kind, err)
	}
	return key, nil
}

func deleteDoc(ctx context.Context, s docstore.Store, key docstore.Key) error {
	if err := s.Delete(ctx, key); err != nil {
		return domain.StoreError("delete "+key.String(), err)
	}
	return nil
}

func queryDocs(ctx context.Context, s docstore.Store, kind string, limit int, cursor string) (docstore.Page, error) {
	page, err := s.Query(ctx, kind, limit, cursor)
	if errors.Is(err, docstore.ErrInvalidCursor) {
		return docstore.Page{}, domain.ValidationError("invalid cursor")
	}
	if err != nil {
		return docstore.Page{}, domain.StoreError("query "+kind, err)
	}
	return page, nil
}
