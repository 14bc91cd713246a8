package steps

import (
	"strings"

	"github.com/yungbote/pathatlas-backend/internal/modules/taxonomy/graph"
)

// nameSimilarity is a normalized Levenshtein ratio in [0,1] over the
// canonical name forms.
func nameSimilarity(a, b string) float64 {
	na := graph.NormalizeName(a)
	nb := graph.NormalizeName(b)
	if na == nb {
		return 1
	}
	if na == "" || nb == "" {
		return 0
	}
	dist := levenshtein(na, nb)
	max := len(na)
	if len(nb) > max {
		max = len(nb)
	}
	return 1 - float64(dist)/float64(max)
}

// namesContained reports a substring/containment relation between the
// canonical forms, the other duplicate signal besides edit distance.
func namesContained(a, b string) bool {
	na := graph.NormalizeName(a)
	nb := graph.NormalizeName(b)
	if na == "" || nb == "" || na == nb {
		return false
	}
	return strings.Contains(na, nb) || strings.Contains(nb, na)
}

func levenshtein(a, b string) int {
	ra := []rune(a)
	rb := []rune(b)
	if len(ra) == 0 {
		return len(rb)
	}
	if len(rb) == 0 {
		return len(ra)
	}

	prev := make([]int, len(rb)+1)
	cur := make([]int, len(rb)+1)
	for j := 0; j <= len(rb); j++ {
		prev[j] = j
	}
	for i := 1; i <= len(ra); i++ {
		cur[0] = i
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			m := prev[j] + 1
			if cur[j-1]+1 < m {
				m = cur[j-1] + 1
			}
			if prev[j-1]+cost < m {
				m = prev[j-1] + cost
			}
			cur[j] = m
		}
		prev, cur = cur, prev
	}
	return prev[len(rb)]
}
