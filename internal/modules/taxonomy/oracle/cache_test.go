package oracle

import (
	"context"
	"testing"

	taxrepos "github.com/yungbote/pathatlas-backend/internal/data/repos/taxonomy"
	"github.com/yungbote/pathatlas-backend/internal/data/repos/testutil"
)

func newTestCache(t *testing.T) (*Cache, taxrepos.OracleCacheRepo) {
	t.Helper()
	gdb := testutil.SQLiteDB(t)
	log := testutil.Logger(t)
	repo := taxrepos.NewOracleCacheRepo(gdb, log)
	return NewCache(repo, log), repo
}

func TestCacheKeysAreNormalized(t *testing.T) {
	if got := ParentKey("  DNA   Repair "); got != "parent:dna repair" {
		t.Fatalf("ParentKey = %q", got)
	}
	if got := SiblingsKey("Autophagy"); got != "siblings:autophagy" {
		t.Fatalf("SiblingsKey = %q", got)
	}
}

func TestCacheRoundTrip(t *testing.T) {
	c, _ := newTestCache(t)
	ctx := context.Background()

	key := ParentKey("Mitophagy")
	var miss ParentAnswer
	if c.Get(ctx, key, &miss) {
		t.Fatalf("unexpected hit on empty cache")
	}

	want := ParentAnswer{Parent: "Autophagy", Reasoning: "selective pathway"}
	c.Put(ctx, key, KindParent, want)

	var got ParentAnswer
	if !c.Get(ctx, key, &got) {
		t.Fatalf("miss after put")
	}
	if got != want {
		t.Fatalf("got %+v, want %+v", got, want)
	}
}

func TestCacheSurvivesMemoryLoss(t *testing.T) {
	c, repo := newTestCache(t)
	ctx := context.Background()

	key := ParentKey("Aggrephagy")
	c.Put(ctx, key, KindParent, ParentAnswer{Parent: "Autophagy"})

	// A fresh cache over the same store starts with an empty map and falls
	// through to the durable layer.
	fresh := NewCache(repo, testutil.Logger(t))
	var got ParentAnswer
	if !fresh.Get(ctx, key, &got) {
		t.Fatalf("durable layer miss")
	}
	if got.Parent != "Autophagy" {
		t.Fatalf("got %+v", got)
	}
}

func TestCachePutOverwrites(t *testing.T) {
	c, _ := newTestCache(t)
	ctx := context.Background()

	key := ParentKey("Lipophagy")
	c.Put(ctx, key, KindParent, ParentAnswer{Parent: "Wrong"})
	c.Put(ctx, key, KindParent, ParentAnswer{Parent: "Autophagy"})

	var got ParentAnswer
	if !c.Get(ctx, key, &got) || got.Parent != "Autophagy" {
		t.Fatalf("got %+v", got)
	}
}

func TestCacheInvalidateByPrefix(t *testing.T) {
	c, _ := newTestCache(t)
	ctx := context.Background()

	c.Put(ctx, ParentKey("Mitophagy"), KindParent, ParentAnswer{Parent: "Autophagy"})
	c.Put(ctx, ParentKey("Xenophagy"), KindParent, ParentAnswer{Parent: "Autophagy"})
	c.Put(ctx, SiblingsKey("Autophagy"), KindSiblings, []Sibling{{Name: "Mitophagy"}})

	n, err := c.Invalidate(ctx, KindParent+":")
	if err != nil {
		t.Fatalf("invalidate: %v", err)
	}
	if n != 2 {
		t.Fatalf("invalidated %d rows, want 2", n)
	}

	var p ParentAnswer
	if c.Get(ctx, ParentKey("Mitophagy"), &p) {
		t.Fatalf("parent entry survived invalidation")
	}
	var sibs []Sibling
	if !c.Get(ctx, SiblingsKey("Autophagy"), &sibs) || len(sibs) != 1 {
		t.Fatalf("sibling entry lost: %+v", sibs)
	}
}

func TestCacheInvalidateAll(t *testing.T) {
	c, _ := newTestCache(t)
	ctx := context.Background()

	c.Put(ctx, ParentKey("Mitophagy"), KindParent, ParentAnswer{Parent: "Autophagy"})
	c.Put(ctx, SiblingsKey("Autophagy"), KindSiblings, []Sibling{{Name: "Mitophagy"}})

	n, err := c.Invalidate(ctx, "")
	if err != nil {
		t.Fatalf("invalidate: %v", err)
	}
	if n != 2 {
		t.Fatalf("invalidated %d rows, want 2", n)
	}
	var p ParentAnswer
	if c.Get(ctx, ParentKey("Mitophagy"), &p) {
		t.Fatalf("entry survived full invalidation")
	}
}
