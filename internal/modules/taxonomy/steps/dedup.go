package steps

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/pathatlas-backend/internal/domain"
	"github.com/yungbote/pathatlas-backend/internal/modules/taxonomy/graph"
	"github.com/yungbote/pathatlas-backend/internal/modules/taxonomy/oracle"
	"github.com/yungbote/pathatlas-backend/internal/pkg/dbctx"
)

type DedupInput struct {
	RunID uuid.UUID

	// SimilarityThreshold gates candidate pairs; <=0 uses 0.86.
	SimilarityThreshold float64
	// BatchSize is the starting oracle batch size; <=0 uses 5.
	BatchSize int
}

type DedupOutput struct {
	PairsConsidered  int
	OracleBatches    int
	TruncatedRetries int
	Merged           int
	Kept             int
	Skipped          int
}

// StepDeduplicate finds near-duplicate category names, asks the oracle to
// confirm which name the same concept, and folds confirmed duplicates into
// their canonical survivor via a validated migration plan. Fixed roots can
// absorb a duplicate but are never dropped themselves.
func StepDeduplicate(ctx context.Context, deps StepDeps, in DedupInput) (DedupOutput, error) {
	var out DedupOutput
	if err := deps.validate("dedup"); err != nil {
		return out, err
	}
	threshold := in.SimilarityThreshold
	if threshold <= 0 {
		threshold = 0.86
	}
	startBatch := in.BatchSize
	if startBatch <= 0 {
		startBatch = 5
	}

	snap, cats, _, err := deps.loadSnapshot(ctx)
	if err != nil {
		return out, fmt.Errorf("dedup: %w", err)
	}

	pairs := duplicateCandidates(deps, cats, threshold)
	out.PairsConsidered = len(pairs)
	if len(pairs) == 0 {
		return out, nil
	}
	deps.Log.Info("dedup candidates", "pairs", len(pairs))

	decisions, stats, err := confirmInBatches(ctx, deps, pairs, startBatch)
	out.OracleBatches = stats.batches
	out.TruncatedRetries = stats.truncated
	if err != nil {
		return out, fmt.Errorf("dedup: %w", err)
	}

	// Apply merges one at a time against a fresh view, so a merge whose
	// participants were consumed by an earlier merge is skipped rather than
	// corrupting the forest.
	dropped := map[string]bool{}
	for _, d := range decisions {
		if d.Action != "merge" {
			out.Kept++
			continue
		}
		if dropped[graph.NormalizeName(d.NameA)] || dropped[graph.NormalizeName(d.NameB)] {
			out.Skipped++
			continue
		}

		snap, _, _, err = deps.loadSnapshot(ctx)
		if err != nil {
			return out, fmt.Errorf("dedup: %w", err)
		}
		keep, drop := resolveMergeDirection(deps, snap, d)
		if keep == nil || drop == nil {
			out.Skipped++
			continue
		}
		assignments, err := deps.Assignments.GetAll(dbctx.Context{Ctx: ctx})
		if err != nil {
			return out, fmt.Errorf("dedup: load assignments: %w", err)
		}

		plan := buildMergePlan(snap, assignments, keep, drop)
		if err := plan.validate(deps, snap); err != nil {
			deps.Log.Warn("merge plan rejected", "keep", keep.Name, "drop", drop.Name, "error", err)
			out.Skipped++
			continue
		}
		err = deps.DB.Transaction(func(tx *gorm.DB) error {
			return plan.execute(ctx, deps, tx)
		})
		if err != nil {
			return out, fmt.Errorf("dedup: %w", err)
		}
		dropped[graph.NormalizeName(drop.Name)] = true
		out.Merged++
		deps.Log.Info("merged duplicate", "keep", keep.Name, "drop", drop.Name)
	}

	err = deps.DB.Transaction(func(tx *gorm.DB) error {
		if _, err := RecomputeDerived(ctx, deps, tx); err != nil {
			return err
		}
		_, err := RecomputeUsageCounts(ctx, deps, tx)
		return err
	})
	if err != nil {
		return out, fmt.Errorf("dedup: %w", err)
	}

	deps.publish(ctx, in.RunID, types.RunKindReorganize, "dedup", "done", map[string]any{
		"pairs": out.PairsConsidered, "merged": out.Merged,
	})
	return out, nil
}

// duplicateCandidates pairs categories whose canonical names are either
// within edit distance of the threshold or contain one another. Root-root
// pairs are never candidates.
func duplicateCandidates(deps StepDeps, cats []*types.Category, threshold float64) []oracle.MergePair {
	sorted := make([]*types.Category, len(cats))
	copy(sorted, cats)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Name < sorted[j].Name })

	var pairs []oracle.MergePair
	for i := 0; i < len(sorted); i++ {
		for j := i + 1; j < len(sorted); j++ {
			a, b := sorted[i], sorted[j]
			if deps.Roots.IsRoot(a.Name) && deps.Roots.IsRoot(b.Name) {
				continue
			}
			if nameSimilarity(a.Name, b.Name) >= threshold || namesContained(a.Name, b.Name) {
				pairs = append(pairs, oracle.MergePair{NameA: a.Name, NameB: b.Name})
			}
		}
	}
	return pairs
}

type batchStats struct {
	batches   int
	truncated int
}

// confirmInBatches streams candidate pairs through the oracle with adaptive
// batch sizing: truncated responses shrink the window and retry the same
// pairs, successes grow it back.
func confirmInBatches(ctx context.Context, deps StepDeps, pairs []oracle.MergePair, startBatch int) ([]oracle.MergeDecision, batchStats, error) {
	batcher := NewAdaptiveBatcher(startBatch)
	var decisions []oracle.MergeDecision
	var stats batchStats

	i := 0
	for i < len(pairs) {
		end := i + batcher.Size()
		if end > len(pairs) {
			end = len(pairs)
		}
		window := pairs[i:end]

		var got []oracle.MergeDecision
		var err error
		for attempt := 0; attempt < batcher.MaxAttempts; attempt++ {
			stats.batches++
			got, err = deps.Oracle.ConfirmMerges(ctx, window)
			if err == nil {
				break
			}
			if !errors.Is(err, oracle.ErrTruncated) {
				break
			}
			stats.truncated++
			size := batcher.Shrink()
			if len(window) > size {
				window = window[:size]
			}
			deps.Log.Warn("merge confirmation truncated; shrinking batch",
				"batch", len(window), "next_size", size)
		}
		if err != nil {
			deps.Log.Warn("merge confirmation failed; skipping window",
				"from", i, "size", len(window), "error", err)
			i += len(window)
			continue
		}

		decisions = append(decisions, got...)
		i += len(window)
		batcher.Restore()
	}
	return decisions, stats, nil
}

// resolveMergeDirection maps a confirmed merge onto live categories and
// decides survivor vs dropped. The canonical name wins when it matches one
// side; otherwise the more used category survives. A fixed root always
// survives.
func resolveMergeDirection(deps StepDeps, snap *graph.Snapshot, d oracle.MergeDecision) (keep, drop *types.Category) {
	a := snap.ByName(d.NameA)
	b := snap.ByName(d.NameB)
	if a == nil || b == nil || a.ID == b.ID {
		return nil, nil
	}

	canon := graph.NormalizeName(d.CanonicalName)
	switch {
	case canon != "" && canon == graph.NormalizeName(a.Name):
		keep, drop = a, b
	case canon != "" && canon == graph.NormalizeName(b.Name):
		keep, drop = b, a
	case a.UsageCount >= b.UsageCount:
		keep, drop = a, b
	default:
		keep, drop = b, a
	}

	if deps.Roots.IsRoot(drop.Name) {
		if deps.Roots.IsRoot(keep.Name) {
			return nil, nil
		}
		keep, drop = drop, keep
	}
	return keep, drop
}
