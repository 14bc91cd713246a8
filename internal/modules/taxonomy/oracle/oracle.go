package oracle

import (
	"context"
	"fmt"
	"strings"

	"github.com/yungbote/pathatlas-backend/internal/platform/logger"
	"github.com/yungbote/pathatlas-backend/internal/platform/openai"
)

// ParentAnswer is the climb response: the proposed immediate parent and the
// model's one-line justification, kept for edge provenance.
type ParentAnswer struct {
	Parent    string `json:"parent"`
	Reasoning string `json:"reasoning"`
}

type Sibling struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

type MergePair struct {
	NameA string `json:"name_a"`
	NameB string `json:"name_b"`
}

type MergeDecision struct {
	Action        string `json:"action"` // "merge" | "keep"
	CanonicalName string `json:"canonical_name"`
	NameA         string `json:"name_a"`
	NameB         string `json:"name_b"`
}

// Oracle is the semantic judgment surface. Implementations must never panic
// on malformed model output; they return ErrTruncated for cut-off responses
// so callers can shrink their batches.
type Oracle interface {
	FindParent(ctx context.Context, child string, roots []string, known []string) (ParentAnswer, error)
	DiscoverSiblings(ctx context.Context, parent string, known []string) ([]Sibling, error)
	ConfirmMerges(ctx context.Context, pairs []MergePair) ([]MergeDecision, error)

	// SelectParent returns one of candidates verbatim, or "" when the model
	// answered outside the candidate set.
	SelectParent(ctx context.Context, child string, candidates []string) (string, error)

	// SuggestIntermediate returns a category to insert between child and
	// root, or "" when none should be.
	SuggestIntermediate(ctx context.Context, child string, root string, allowed []string) (string, error)

	// SmartRoot returns one of roots verbatim, or "" when out of set.
	SmartRoot(ctx context.Context, name string, roots []string) (string, error)
}

type llmOracle struct {
	ai    openai.Client
	cache *Cache
	log   *logger.Logger
}

// New wires the model transport behind the cache. cache may be nil.
func New(ai openai.Client, cache *Cache, baseLog *logger.Logger) Oracle {
	return &llmOracle{
		ai:    ai,
		cache: cache,
		log:   baseLog.With("service", "TaxonomyOracle"),
	}
}

func (o *llmOracle) FindParent(ctx context.Context, child string, roots []string, known []string) (ParentAnswer, error) {
	key := ParentKey(child)
	if o.cache != nil {
		var cached ParentAnswer
		if o.cache.Get(ctx, key, &cached) && cached.Parent != "" {
			return cached, nil
		}
	}

	raw, err := o.ai.GenerateRaw(ctx, systemClassifier, findParentPrompt(child, roots, known), "find_parent", findParentSchema)
	if err != nil {
		return ParentAnswer{}, fmt.Errorf("find_parent: %w", err)
	}
	obj, err := decodeObject(raw)
	if err != nil {
		return ParentAnswer{}, fmt.Errorf("find_parent: %w", err)
	}

	ans := ParentAnswer{
		Parent:    getString(obj, "parent"),
		Reasoning: getString(obj, "reasoning"),
	}
	if ans.Parent == "" {
		return ParentAnswer{}, fmt.Errorf("find_parent: empty parent for %q", child)
	}
	if o.cache != nil {
		o.cache.Put(ctx, key, KindParent, ans)
	}
	return ans, nil
}

func (o *llmOracle) DiscoverSiblings(ctx context.Context, parent string, known []string) ([]Sibling, error) {
	key := SiblingsKey(parent)
	if o.cache != nil {
		var cached []Sibling
		if o.cache.Get(ctx, key, &cached) {
			return cached, nil
		}
	}

	raw, err := o.ai.GenerateRaw(ctx, systemClassifier, discoverSiblingsPrompt(parent, known), "discover_siblings", discoverSiblingsSchema)
	if err != nil {
		return nil, fmt.Errorf("discover_siblings: %w", err)
	}
	obj, err := decodeObject(raw)
	if err != nil {
		return nil, fmt.Errorf("discover_siblings: %w", err)
	}

	var out []Sibling
	for _, item := range getArray(obj, "siblings") {
		m, ok := item.(map[string]any)
		if !ok {
			continue
		}
		name := getString(m, "name")
		if name == "" {
			continue
		}
		out = append(out, Sibling{Name: name, Description: getString(m, "description")})
	}
	if o.cache != nil {
		o.cache.Put(ctx, key, KindSiblings, out)
	}
	return out, nil
}

func (o *llmOracle) ConfirmMerges(ctx context.Context, pairs []MergePair) ([]MergeDecision, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	raw, err := o.ai.GenerateRaw(ctx, systemClassifier, confirmMergesPrompt(pairs), "confirm_merges", confirmMergesSchema)
	if err != nil {
		return nil, fmt.Errorf("confirm_merges: %w", err)
	}
	obj, err := decodeObject(raw)
	if err != nil {
		return nil, fmt.Errorf("confirm_merges: %w", err)
	}

	var out []MergeDecision
	for _, item := range getArray(obj, "merges") {
		m, ok := item.(map[string]any)
		if !ok {
			continue
		}
		d := MergeDecision{
			Action:        strings.ToLower(getString(m, "action")),
			CanonicalName: getString(m, "canonical_name"),
			NameA:         getString(m, "name_a"),
			NameB:         getString(m, "name_b"),
		}
		if d.NameA == "" || d.NameB == "" {
			continue
		}
		out = append(out, d)
	}
	return out, nil
}

func (o *llmOracle) SelectParent(ctx context.Context, child string, candidates []string) (string, error) {
	if len(candidates) == 0 {
		return "", nil
	}
	obj, err := o.ai.GenerateJSON(ctx, systemClassifier, selectParentPrompt(child, candidates), "select_parent", selectParentSchema)
	if err != nil {
		return "", fmt.Errorf("select_parent: %w", err)
	}
	return matchCandidate(getString(obj, "selected_parent"), candidates), nil
}

func (o *llmOracle) SuggestIntermediate(ctx context.Context, child string, root string, allowed []string) (string, error) {
	obj, err := o.ai.GenerateJSON(ctx, systemClassifier, suggestIntermediatePrompt(child, root, allowed), "suggest_intermediate", suggestIntermediateSchema)
	if err != nil {
		return "", fmt.Errorf("suggest_intermediate: %w", err)
	}
	return getString(obj, "intermediate"), nil
}

func (o *llmOracle) SmartRoot(ctx context.Context, name string, roots []string) (string, error) {
	obj, err := o.ai.GenerateJSON(ctx, systemClassifier, smartRootPrompt(name, roots), "smart_root", smartRootSchema)
	if err != nil {
		return "", fmt.Errorf("smart_root: %w", err)
	}
	return matchCandidate(getString(obj, "root"), roots), nil
}

// matchCandidate maps a model answer back onto the offered set, tolerating
// case and whitespace drift; out-of-set answers map to "".
func matchCandidate(answer string, candidates []string) string {
	norm := strings.Join(strings.Fields(strings.ToLower(strings.TrimSpace(answer))), " ")
	if norm == "" {
		return ""
	}
	for _, c := range candidates {
		cn := strings.Join(strings.Fields(strings.ToLower(strings.TrimSpace(c))), " ")
		if cn == norm {
			return c
		}
	}
	return ""
}
