package oracle

import (
	"context"
	"strings"
	"sync"
)

// Scripted is a canned Oracle for tests and offline runs. Unscripted
// subjects get zero-value answers, never errors, unless a failure is
// explicitly installed.
type Scripted struct {
	mu sync.Mutex

	Parents       map[string]ParentAnswer  // keyed by normalized child name
	Siblings      map[string][]Sibling     // keyed by normalized parent name
	Merges        []MergeDecision          // returned for every ConfirmMerges call
	BestParents   map[string]string        // child -> chosen candidate
	Intermediates map[string]string        // child -> intermediate name
	Roots         map[string]string        // name -> root
	Fail          map[string]error         // normalized subject -> error to return

	// TruncateMergeCallsAbove makes ConfirmMerges return ErrTruncated for
	// batches larger than the threshold; 0 disables.
	TruncateMergeCallsAbove int

	CallCount map[string]int
}

func NewScripted() *Scripted {
	return &Scripted{
		Parents:       map[string]ParentAnswer{},
		Siblings:      map[string][]Sibling{},
		BestParents:   map[string]string{},
		Intermediates: map[string]string{},
		Roots:         map[string]string{},
		Fail:          map[string]error{},
		CallCount:     map[string]int{},
	}
}

func (s *Scripted) norm(name string) string {
	return strings.Join(strings.Fields(strings.ToLower(strings.TrimSpace(name))), " ")
}

func (s *Scripted) count(op string) {
	s.mu.Lock()
	s.CallCount[op]++
	s.mu.Unlock()
}

func (s *Scripted) FindParent(_ context.Context, child string, _ []string, _ []string) (ParentAnswer, error) {
	s.count("find_parent")
	key := s.norm(child)
	if err := s.Fail[key]; err != nil {
		return ParentAnswer{}, err
	}
	return s.Parents[key], nil
}

func (s *Scripted) DiscoverSiblings(_ context.Context, parent string, _ []string) ([]Sibling, error) {
	s.count("discover_siblings")
	key := s.norm(parent)
	if err := s.Fail[key]; err != nil {
		return nil, err
	}
	return s.Siblings[key], nil
}

func (s *Scripted) ConfirmMerges(_ context.Context, pairs []MergePair) ([]MergeDecision, error) {
	s.count("confirm_merges")
	if s.TruncateMergeCallsAbove > 0 && len(pairs) > s.TruncateMergeCallsAbove {
		return nil, ErrTruncated
	}
	var out []MergeDecision
	for _, p := range pairs {
		for _, d := range s.Merges {
			if s.norm(d.NameA) == s.norm(p.NameA) && s.norm(d.NameB) == s.norm(p.NameB) {
				out = append(out, d)
			}
		}
	}
	return out, nil
}

func (s *Scripted) SelectParent(_ context.Context, child string, candidates []string) (string, error) {
	s.count("select_parent")
	key := s.norm(child)
	if err := s.Fail[key]; err != nil {
		return "", err
	}
	return matchCandidate(s.BestParents[key], candidates), nil
}

func (s *Scripted) SuggestIntermediate(_ context.Context, child string, _ string, _ []string) (string, error) {
	s.count("suggest_intermediate")
	return s.Intermediates[s.norm(child)], nil
}

func (s *Scripted) SmartRoot(_ context.Context, name string, roots []string) (string, error) {
	s.count("smart_root")
	return matchCandidate(s.Roots[s.norm(name)], roots), nil
}
