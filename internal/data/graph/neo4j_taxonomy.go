package graph

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	types "github.com/yungbote/pathatlas-backend/internal/domain"
	"github.com/yungbote/pathatlas-backend/internal/platform/logger"
	"github.com/yungbote/pathatlas-backend/internal/platform/neo4jdb"
)

// UpsertTaxonomyGraph mirrors the verified category forest and its item
// assignments into neo4j. The relational store stays authoritative; the
// mirror is best-effort and a nil client is a no-op.
func UpsertTaxonomyGraph(
	ctx context.Context,
	client *neo4jdb.Client,
	log *logger.Logger,
	cats []*types.Category,
	edges []*types.CategoryEdge,
	items []*types.Item,
	assignments []*types.Assignment,
) error {
	if client == nil || client.Driver == nil {
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}

	now := time.Now().UTC().Format(time.RFC3339Nano)

	catNodes := make([]map[string]any, 0, len(cats))
	for _, c := range cats {
		if c == nil || c.ID == uuid.Nil {
			continue
		}
		catNodes = append(catNodes, map[string]any{
			"id":          c.ID.String(),
			"name":        c.Name,
			"external_id": c.ExternalID,
			"depth":       int64(c.Depth),
			"is_leaf":     c.IsLeaf,
			"origin":      c.Origin,
			"usage_count": int64(c.UsageCount),
			"updated_at":  c.UpdatedAt.UTC().Format(time.RFC3339Nano),
			"synced_at":   now,
		})
	}

	parentRels := make([]map[string]any, 0, len(edges))
	for _, e := range edges {
		if e == nil || e.ID == uuid.Nil || e.ChildID == uuid.Nil || e.ParentID == uuid.Nil {
			continue
		}
		parentRels = append(parentRels, map[string]any{
			"id":         e.ID.String(),
			"child_id":   e.ChildID.String(),
			"parent_id":  e.ParentID.String(),
			"kind":       e.Kind,
			"confidence": e.Confidence,
			"synced_at":  now,
		})
	}

	itemNodes := make([]map[string]any, 0, len(items))
	for _, it := range items {
		if it == nil || it.ID == uuid.Nil {
			continue
		}
		itemNodes = append(itemNodes, map[string]any{
			"id":        it.ID.String(),
			"name":      it.Name,
			"synced_at": now,
		})
	}

	assignRels := make([]map[string]any, 0, len(assignments))
	for _, a := range assignments {
		if a == nil || a.ID == uuid.Nil || a.ItemID == uuid.Nil || a.CategoryID == uuid.Nil {
			continue
		}
		assignRels = append(assignRels, map[string]any{
			"id":          a.ID.String(),
			"item_id":     a.ItemID.String(),
			"category_id": a.CategoryID.String(),
			"facet":       a.Facet,
			"method":      a.Method,
			"confidence":  a.Confidence,
			"synced_at":   now,
		})
	}

	session := client.Driver.NewSession(ctx, neo4j.SessionConfig{
		AccessMode:   neo4j.AccessModeWrite,
		DatabaseName: client.Database,
	})
	defer session.Close(ctx)

	// Best-effort schema init.
	{
		stmts := []string{
			`CREATE CONSTRAINT category_id_unique IF NOT EXISTS FOR (c:Category) REQUIRE c.id IS UNIQUE`,
			`CREATE CONSTRAINT item_id_unique IF NOT EXISTS FOR (i:Item) REQUIRE i.id IS UNIQUE`,
		}
		for _, q := range stmts {
			if res, err := session.Run(ctx, q, nil); err != nil {
				if log != nil {
					log.Warn("neo4j schema init failed (continuing)", "error", err)
				}
			} else {
				_, _ = res.Consume(ctx)
			}
		}
	}

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		if len(catNodes) > 0 {
			res, err := tx.Run(ctx, `
UNWIND $nodes AS n
MERGE (c:Category {id: n.id})
SET c += n
`, map[string]any{"nodes": catNodes})
			if err != nil {
				return nil, err
			}
			if _, err := res.Consume(ctx); err != nil {
				return nil, err
			}
		}

		if len(parentRels) > 0 {
			res, err := tx.Run(ctx, `
UNWIND $rels AS r
MATCH (child:Category {id: r.child_id})
MATCH (parent:Category {id: r.parent_id})
MERGE (child)-[e:CHILD_OF]->(parent)
SET e.id = r.id,
    e.kind = r.kind,
    e.confidence = r.confidence,
    e.synced_at = r.synced_at
`, map[string]any{"rels": parentRels})
			if err != nil {
				return nil, err
			}
			if _, err := res.Consume(ctx); err != nil {
				return nil, err
			}
		}

		if len(itemNodes) > 0 {
			res, err := tx.Run(ctx, `
UNWIND $nodes AS n
MERGE (i:Item {id: n.id})
SET i += n
`, map[string]any{"nodes": itemNodes})
			if err != nil {
				return nil, err
			}
			if _, err := res.Consume(ctx); err != nil {
				return nil, err
			}
		}

		if len(assignRels) > 0 {
			res, err := tx.Run(ctx, `
UNWIND $rels AS r
MATCH (i:Item {id: r.item_id})
MATCH (c:Category {id: r.category_id})
MERGE (i)-[e:ASSIGNED_TO]->(c)
SET e.id = r.id,
    e.facet = r.facet,
    e.method = r.method,
    e.confidence = r.confidence,
    e.synced_at = r.synced_at
`, map[string]any{"rels": assignRels})
			if err != nil {
				return nil, err
			}
			if _, err := res.Consume(ctx); err != nil {
				return nil, err
			}
		}

		return nil, nil
	})

	return err
}
