package oracle

import (
	"fmt"
	"strings"
)

const systemClassifier = `You are a biology curator maintaining a hierarchical taxonomy of cellular pathways. Answer only from established pathway biology. Be precise; never invent pathway names when a well-known name exists.`

func findParentPrompt(child string, roots []string, known []string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "What is the IMMEDIATE parent pathway of %q?\n\n", child)
	b.WriteString("Rules:\n")
	b.WriteString("- Give the single most specific parent, one level up. Do NOT jump straight to a top-level branch.\n")
	fmt.Fprintf(&b, "- The taxonomy ultimately climbs to these fixed branches: %s.\n", strings.Join(roots, "; "))
	b.WriteString("- Example chain: Aggrephagy -> Macroautophagy -> Autophagy -> Proteostasis.\n")
	if len(known) > 0 {
		fmt.Fprintf(&b, "- Prefer an existing category when one fits: %s.\n", strings.Join(known, "; "))
	}
	return b.String()
}

var findParentSchema = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"parent":    map[string]any{"type": "string"},
		"reasoning": map[string]any{"type": "string"},
	},
	"required":             []string{"parent", "reasoning"},
	"additionalProperties": false,
}

func discoverSiblingsPrompt(parent string, known []string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "List well-established child pathways of %q.\n\n", parent)
	b.WriteString("Rules:\n")
	b.WriteString("- Only canonical, literature-established pathway names.\n")
	b.WriteString("- Short one-sentence description each.\n")
	if len(known) > 0 {
		fmt.Fprintf(&b, "- Already known (do not repeat): %s.\n", strings.Join(known, "; "))
	}
	return b.String()
}

var discoverSiblingsSchema = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"siblings": map[string]any{
			"type": "array",
			"items": map[string]any{
				"type": "object",
				"properties": map[string]any{
					"name":        map[string]any{"type": "string"},
					"description": map[string]any{"type": "string"},
				},
				"required":             []string{"name", "description"},
				"additionalProperties": false,
			},
		},
	},
	"required":             []string{"siblings"},
	"additionalProperties": false,
}

func confirmMergesPrompt(pairs []MergePair) string {
	var b strings.Builder
	b.WriteString("For each candidate pair below, decide whether the two names denote the SAME pathway (synonyms/formatting variants) or genuinely different pathways.\n\n")
	b.WriteString("For true synonyms answer action \"merge\" and pick the canonical community name; otherwise answer action \"keep\".\n\nPairs:\n")
	for i, p := range pairs {
		fmt.Fprintf(&b, "%d. %q vs %q\n", i+1, p.NameA, p.NameB)
	}
	return b.String()
}

var confirmMergesSchema = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"merges": map[string]any{
			"type": "array",
			"items": map[string]any{
				"type": "object",
				"properties": map[string]any{
					"action":         map[string]any{"type": "string", "enum": []string{"merge", "keep"}},
					"canonical_name": map[string]any{"type": "string"},
					"name_a":         map[string]any{"type": "string"},
					"name_b":         map[string]any{"type": "string"},
				},
				"required":             []string{"action", "canonical_name", "name_a", "name_b"},
				"additionalProperties": false,
			},
		},
	},
	"required":             []string{"merges"},
	"additionalProperties": false,
}

func selectParentPrompt(child string, candidates []string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "The pathway %q currently has multiple parent links. Pick the single BEST parent from these candidates:\n\n", child)
	for i, c := range candidates {
		fmt.Fprintf(&b, "%d. %s\n", i+1, c)
	}
	b.WriteString("\nAnswer with exactly one candidate name, verbatim.\n")
	return b.String()
}

var selectParentSchema = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"selected_parent": map[string]any{"type": "string"},
	},
	"required":             []string{"selected_parent"},
	"additionalProperties": false,
}

func suggestIntermediatePrompt(child, root string, allowed []string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "The pathway %q sits directly under the top-level branch %q, which is too shallow.\n\n", child, root)
	b.WriteString("Suggest ONE established intermediate pathway category that belongs between them, or an empty string if none exists.\n")
	if len(allowed) > 0 {
		fmt.Fprintf(&b, "Prefer one of the recognized level-1 categories when it fits: %s.\n", strings.Join(allowed, "; "))
	}
	return b.String()
}

var suggestIntermediateSchema = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"intermediate": map[string]any{"type": "string"},
		"reasoning":    map[string]any{"type": "string"},
	},
	"required":             []string{"intermediate", "reasoning"},
	"additionalProperties": false,
}

func smartRootPrompt(name string, roots []string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Which of these top-level branches does the pathway %q belong under?\n\n", name)
	for i, r := range roots {
		fmt.Fprintf(&b, "%d. %s\n", i+1, r)
	}
	b.WriteString("\nAnswer with exactly one branch name, verbatim.\n")
	return b.String()
}

var smartRootSchema = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"root": map[string]any{"type": "string"},
	},
	"required":             []string{"root"},
	"additionalProperties": false,
}
