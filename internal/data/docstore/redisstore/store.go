// Package redisstore keeps documents in Redis. Each kind owns an id counter, a sorted
// set of live ids (score = id) used for ordered paging, and one string key per
// document:
//
//	{prefix}:{kind}:seq
//	{prefix}:{kind}:ids
//	{prefix}:{kind}:doc:{id}
//
// Redis offers no read-your-writes transactions across keys, so this backend does not
// implement docstore.Transactor.
package redisstore

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/yungbote/fleet-backend/internal/data/docstore"
	"github.com/yungbote/fleet-backend/internal/platform/logger"
)

type Config struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	Prefix   string `yaml:"prefix"`
}

type Store struct {
	log    *logger.Logger
	rdb    *goredis.Client
	prefix string
}

var (
	_ docstore.Store  = (*Store)(nil)
	_ docstore.Pinger = (*Store)(nil)
)

// Open dials Redis and verifies connectivity before returning.
func Open(ctx context.Context, cfg Config, log *logger.Logger) (*Store, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	addr := strings.TrimSpace(cfg.Addr)
	if addr == "" {
		return nil, fmt.Errorf("missing REDIS_ADDR")
	}
	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		Password:    cfg.Password,
		DB:          cfg.DB,
		DialTimeout: 5 * time.Second,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	log.Info("Connected to Redis", "redis_addr", addr, "prefix", cfg.Prefix)
	return New(rdb, cfg.Prefix, log), nil
}

func New(rdb *goredis.Client, prefix string, log *logger.Logger) *Store {
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		prefix = "fleet"
	}
	return &Store{
		log:    log.With("store", "redisstore"),
		rdb:    rdb,
		prefix: prefix,
	}
}

func (s *Store) seqKey(kind string) string { return s.prefix + ":" + kind + ":seq" }
func (s *Store) idsKey(kind string) string { return s.prefix + ":" + kind + ":ids" }
func (s *Store) docKey(k docstore.Key) string {
	return s.prefix + ":" + k.Kind + ":doc:" + strconv.FormatInt(k.ID, 10)
}

func (s *Store) Save(ctx context.Context, kind string, data []byte) (docstore.Key, error) {
	id, err := s.rdb.Incr(ctx, s.seqKey(kind)).Result()
	if err != nil {
		return docstore.Key{}, fmt.Errorf("redisstore save: allocate id: %w", err)
	}
	key := docstore.Key{Kind: kind, ID: id}
	_, err = s.rdb.TxPipelined(ctx, func(p goredis.Pipeliner) error {
		p.Set(ctx, s.docKey(key), data, 0)
		p.ZAdd(ctx, s.idsKey(kind), goredis.Z{Score: float64(id), Member: id})
		return nil
	})
	if err != nil {
		return docstore.Key{}, fmt.Errorf("redisstore save: %w", err)
	}
	return key, nil
}

func (s *Store) Get(ctx context.Context, key docstore.Key) ([]byte, error) {
	data, err := s.rdb.Get(ctx, s.docKey(key)).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, docstore.ErrNoSuchEntity
	}
	if err != nil {
		return nil, fmt.Errorf("redisstore get: %w", err)
	}
	return data, nil
}

func (s *Store) Update(ctx context.Context, key docstore.Key, data []byte) error {
	ok, err := s.rdb.SetXX(ctx, s.docKey(key), data, 0).Result()
	if err != nil && !errors.Is(err, goredis.Nil) {
		return fmt.Errorf("redisstore update: %w", err)
	}
	if !ok {
		return docstore.ErrNoSuchEntity
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, key docstore.Key) error {
	_, err := s.rdb.TxPipelined(ctx, func(p goredis.Pipeliner) error {
		p.Del(ctx, s.docKey(key))
		p.ZRem(ctx, s.idsKey(key.Kind), key.ID)
		return nil
	})
	if err != nil {
		return fmt.Errorf("redisstore delete: %w", err)
	}
	return nil
}

func (s *Store) Query(ctx context.Context, kind string, limit int, cursor string) (docstore.Page, error) {
	after, err := docstore.DecodeCursor(cursor)
	if err != nil {
		return docstore.Page{}, err
	}
	rangeBy := &goredis.ZRangeBy{
		Min: "(" + strconv.FormatInt(after, 10),
		Max: "+inf",
	}
	if limit > 0 {
		rangeBy.Count = int64(limit + 1)
	}
	members, err := s.rdb.ZRangeByScore(ctx, s.idsKey(kind), rangeBy).Result()
	if err != nil {
		return docstore.Page{}, fmt.Errorf("redisstore query: %w", err)
	}

	var page docstore.Page
	if limit > 0 && len(members) > limit {
		members = members[:limit]
		page.More = true
	}
	if len(members) == 0 {
		return page, nil
	}

	ids := make([]int64, 0, len(members))
	keys := make([]string, 0, len(members))
	for _, m := range members {
		id, err := strconv.ParseInt(m, 10, 64)
		if err != nil {
			s.log.Warn("skipping malformed id in index", "kind", kind, "member", m)
			continue
		}
		ids = append(ids, id)
		keys = append(keys, s.docKey(docstore.Key{Kind: kind, ID: id}))
	}
	vals, err := s.rdb.MGet(ctx, keys...).Result()
	if err != nil {
		return docstore.Page{}, fmt.Errorf("redisstore query: %w", err)
	}
	for i, v := range vals {
		str, ok := v.(string)
		if !ok {
			// deleted between ZRANGEBYSCORE and MGET
			continue
		}
		page.Entities = append(page.Entities, docstore.Entity{
			Key:  docstore.Key{Kind: kind, ID: ids[i]},
			Data: []byte(str),
		})
	}
	if page.More {
		page.NextCursor = docstore.EncodeCursor(ids[len(ids)-1])
	}
	return page, nil
}

func (s *Store) Ping(ctx context.Context) error {
	return s.rdb.Ping(ctx).Err()
}

func (s *Store) Close() error {
	if s == nil || s.rdb == nil {
		return nil
	}
	return s.rdb.Close()
}
