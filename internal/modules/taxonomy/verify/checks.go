package verify

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	types "github.com/yungbote/pathatlas-backend/internal/domain"
	"github.com/yungbote/pathatlas-backend/internal/modules/taxonomy/graph"
	"github.com/yungbote/pathatlas-backend/internal/pkg/dbctx"
)

// state is one consistent read of everything the checks look at.
type state struct {
	snap        *graph.Snapshot
	cats        []*types.Category
	edges       []*types.CategoryEdge
	items       []*types.Item
	assignments []*types.Assignment
	counts      map[uuid.UUID]int
	levels      map[uuid.UUID]int
}

func (v *Verifier) loadState(ctx context.Context) (*state, error) {
	dbc := dbctx.Context{Ctx: ctx}
	cats, err := v.deps.Categories.GetAll(dbc)
	if err != nil {
		return nil, fmt.Errorf("load categories: %w", err)
	}
	edges, err := v.deps.Edges.GetAll(dbc)
	if err != nil {
		return nil, fmt.Errorf("load edges: %w", err)
	}
	items, err := v.deps.Items.GetAll(dbc)
	if err != nil {
		return nil, fmt.Errorf("load items: %w", err)
	}
	assignments, err := v.deps.Assignments.GetAll(dbc)
	if err != nil {
		return nil, fmt.Errorf("load assignments: %w", err)
	}
	counts, err := v.deps.Assignments.CountByCategory(dbc)
	if err != nil {
		return nil, fmt.Errorf("count assignments: %w", err)
	}

	snap := graph.Build(cats, edges)
	var rootIDs []uuid.UUID
	for _, name := range v.deps.Roots.Roots {
		if c := snap.ByName(name); c != nil {
			rootIDs = append(rootIDs, c.ID)
		}
	}
	return &state{
		snap:        snap,
		cats:        cats,
		edges:       edges,
		items:       items,
		assignments: assignments,
		counts:      counts,
		levels:      snap.Levels(rootIDs),
	}, nil
}

func (v *Verifier) collect(ctx context.Context) ([]Finding, error) {
	st, err := v.loadState(ctx)
	if err != nil {
		return nil, err
	}
	var findings []Finding
	findings = append(findings, v.categoryChecks(st)...)
	findings = append(findings, v.graphChecks(st)...)
	findings = append(findings, v.itemLinkChecks(st)...)
	return findings, nil
}

// categoryChecks covers the fixed frame: every root present and parentless,
// the default category present, names unique and non-empty.
func (v *Verifier) categoryChecks(st *state) []Finding {
	var out []Finding

	for _, name := range v.deps.Roots.Roots {
		root := st.snap.ByName(name)
		if root == nil {
			out = append(out, Finding{
				Check:    "root_present",
				Severity: SeverityCritical,
				Subject:  name,
				Detail:   "fixed root is missing",
			})
			continue
		}
		if st.snap.HasParent(root.ID) {
			out = append(out, Finding{
				Check:    "root_parentless",
				Severity: SeverityHigh,
				Subject:  root.ID.String(),
				Detail:   fmt.Sprintf("root %q has a parent edge", name),
			})
		}
	}

	if st.snap.ByName(v.deps.Roots.DefaultCategory) == nil {
		out = append(out, Finding{
			Check:    "default_category_present",
			Severity: SeverityMedium,
			Subject:  v.deps.Roots.DefaultCategory,
			Detail:   "default category is missing",
		})
	}

	seen := map[string]string{}
	for _, c := range st.cats {
		if strings.TrimSpace(c.Name) == "" {
			out = append(out, Finding{
				Check:    "nonempty_names",
				Severity: SeverityHigh,
				Subject:  c.ID.String(),
				Detail:   "category has an empty name",
			})
			continue
		}
		key := graph.NormalizeName(c.Name)
		if prev, ok := seen[key]; ok {
			out = append(out, Finding{
				Check:    "unique_names",
				Severity: SeverityHigh,
				Subject:  c.ID.String(),
				Detail:   fmt.Sprintf("%q duplicates %q", c.Name, prev),
			})
			continue
		}
		seen[key] = c.Name
	}
	return out
}

// graphChecks covers edge structure: acyclicity, single parentage, edge
// referential integrity, reachability, and the derived depth and ancestor
// path columns.
func (v *Verifier) graphChecks(st *state) []Finding {
	var out []Finding

	if st.snap.HasCycle() {
		out = append(out, Finding{
			Check:    "acyclic",
			Severity: SeverityHigh,
			Detail:   "edge set contains a cycle",
		})
	}
	for childID, parents := range st.snap.MultiParents() {
		subject := childID.String()
		if c := st.snap.Category(childID); c != nil {
			subject = c.Name
		}
		out = append(out, Finding{
			Check:    "single_parent",
			Severity: SeverityHigh,
			Subject:  subject,
			Detail:   fmt.Sprintf("%d parent edges", len(parents)),
		})
	}
	for _, e := range st.edges {
		if st.snap.Category(e.ParentID) == nil || st.snap.Category(e.ChildID) == nil {
			out = append(out, Finding{
				Check:    "edge_refs",
				Severity: SeverityMedium,
				Subject:  e.ID.String(),
				Detail:   "edge references a missing category",
			})
		}
	}
	for _, c := range st.cats {
		if v.deps.Roots.IsRoot(c.Name) {
			continue
		}
		if st.levels[c.ID] == -1 {
			out = append(out, Finding{
				Check:    "reachability",
				Severity: SeverityMedium,
				Subject:  c.ID.String(),
				Detail:   fmt.Sprintf("%q is unreachable from any root", c.Name),
			})
		}
	}
	for _, c := range st.cats {
		if c.Depth != st.levels[c.ID] {
			out = append(out, Finding{
				Check:    "depth",
				Severity: SeverityLow,
				Subject:  c.ID.String(),
				Detail:   fmt.Sprintf("%q stores depth %d, derived %d", c.Name, c.Depth, st.levels[c.ID]),
			})
		}
	}
	for _, c := range st.cats {
		if !ancestorPathMatches(c.AncestorPath, st.snap.Ancestors(c.ID)) {
			out = append(out, Finding{
				Check:    "ancestor_path",
				Severity: SeverityLow,
				Subject:  c.ID.String(),
				Detail:   fmt.Sprintf("%q stores an ancestor path that differs from the walked chain", c.Name),
			})
		}
	}
	return out
}

// ancestorPathMatches compares the stored materialized path against the
// chain walked from the live edges. An empty column equals an empty chain.
func ancestorPathMatches(raw datatypes.JSON, chain []uuid.UUID) bool {
	var stored []string
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &stored); err != nil {
			return false
		}
	}
	if len(stored) != len(chain) {
		return false
	}
	for i, id := range chain {
		if stored[i] != id.String() {
			return false
		}
	}
	return true
}

// itemLinkChecks covers coverage and assignment integrity plus the derived
// usage counters.
func (v *Verifier) itemLinkChecks(st *state) []Finding {
	var out []Finding

	itemsByID := make(map[uuid.UUID]*types.Item, len(st.items))
	for _, it := range st.items {
		itemsByID[it.ID] = it
	}

	covered := map[uuid.UUID]bool{}
	for _, a := range st.assignments {
		if st.snap.Category(a.CategoryID) == nil || itemsByID[a.ItemID] == nil {
			out = append(out, Finding{
				Check:    "assignment_refs",
				Severity: SeverityMedium,
				Subject:  a.ID.String(),
				Detail:   "assignment references a missing item or category",
			})
			continue
		}
		covered[a.ItemID] = true
	}
	for _, it := range st.items {
		if !covered[it.ID] {
			out = append(out, Finding{
				Check:    "item_coverage",
				Severity: SeverityMedium,
				Subject:  it.ID.String(),
				Detail:   fmt.Sprintf("item %q has no assignments", it.Name),
			})
		}
	}
	for _, c := range st.cats {
		if c.UsageCount != st.counts[c.ID] {
			out = append(out, Finding{
				Check:    "usage_count",
				Severity: SeverityLow,
				Subject:  c.ID.String(),
				Detail:   fmt.Sprintf("%q stores %d, counted %d", c.Name, c.UsageCount, st.counts[c.ID]),
			})
		}
	}
	return out
}
