package oracle

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	"gorm.io/datatypes"

	taxrepos "github.com/yungbote/pathatlas-backend/internal/data/repos/taxonomy"
	types "github.com/yungbote/pathatlas-backend/internal/domain"
	"github.com/yungbote/pathatlas-backend/internal/modules/taxonomy/graph"
	"github.com/yungbote/pathatlas-backend/internal/pkg/dbctx"
	pkgerr "github.com/yungbote/pathatlas-backend/internal/pkg/errors"
	"github.com/yungbote/pathatlas-backend/internal/platform/logger"
)

const (
	KindParent   = "parent"
	KindSiblings = "siblings"
)

func ParentKey(child string) string    { return KindParent + ":" + graph.NormalizeName(child) }
func SiblingsKey(parent string) string { return KindSiblings + ":" + graph.NormalizeName(parent) }

// Cache memoizes oracle answers under normalized keys: an in-process map in
// front of the oracle_cache_entry table. Entries never expire; Invalidate is
// the only way out.
type Cache struct {
	repo taxrepos.OracleCacheRepo
	log  *logger.Logger

	mu  sync.RWMutex
	mem map[string]json.RawMessage
}

func NewCache(repo taxrepos.OracleCacheRepo, baseLog *logger.Logger) *Cache {
	return &Cache{
		repo: repo,
		log:  baseLog.With("service", "OracleCache"),
		mem:  map[string]json.RawMessage{},
	}
}

// Get decodes the cached value for key into out and reports whether it hit.
func (c *Cache) Get(ctx context.Context, key string, out any) bool {
	c.mu.RLock()
	raw, ok := c.mem[key]
	c.mu.RUnlock()
	if ok {
		return json.Unmarshal(raw, out) == nil
	}

	if c.repo == nil {
		return false
	}
	row, err := c.repo.Get(dbctx.Context{Ctx: ctx}, key)
	if err != nil {
		if !errors.Is(err, pkgerr.ErrNotFound) {
			c.log.Warn("cache read failed", "key", key, "error", err)
		}
		return false
	}
	c.mu.Lock()
	c.mem[key] = json.RawMessage(row.Value)
	c.mu.Unlock()
	return json.Unmarshal(row.Value, out) == nil
}

// Put stores the value in memory and durably. A storage failure is logged
// and the in-memory entry kept; the next run will recompute.
func (c *Cache) Put(ctx context.Context, key, kind string, value any) {
	raw, err := json.Marshal(value)
	if err != nil {
		c.log.Warn("cache encode failed", "key", key, "error", err)
		return
	}
	c.mu.Lock()
	c.mem[key] = raw
	c.mu.Unlock()

	if c.repo == nil {
		return
	}
	err = c.repo.Upsert(dbctx.Context{Ctx: ctx}, &types.OracleCacheEntry{
		Key:   key,
		Kind:  kind,
		Value: datatypes.JSON(raw),
	})
	if err != nil {
		c.log.Warn("cache write failed", "key", key, "error", err)
	}
}

// Invalidate clears every entry whose key starts with prefix; an empty
// prefix clears the whole cache.
func (c *Cache) Invalidate(ctx context.Context, prefix string) (int, error) {
	c.mu.Lock()
	if prefix == "" {
		c.mem = map[string]json.RawMessage{}
	} else {
		for k := range c.mem {
			if len(k) >= len(prefix) && k[:len(prefix)] == prefix {
				delete(c.mem, k)
			}
		}
	}
	c.mu.Unlock()

	if c.repo == nil {
		return 0, nil
	}
	if prefix == "" {
		return c.repo.DeleteAll(dbctx.Context{Ctx: ctx})
	}
	return c.repo.DeleteByPrefix(dbctx.Context{Ctx: ctx}, prefix)
}
