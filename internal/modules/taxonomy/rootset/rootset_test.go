package rootset

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultIsSelfConsistent(t *testing.T) {
	cfg := Default()
	if len(cfg.Roots) != 7 {
		t.Fatalf("expected 7 roots, got %d", len(cfg.Roots))
	}
	if !cfg.IsRoot(cfg.FallbackRoot) {
		t.Fatalf("fallback root %q missing from root set", cfg.FallbackRoot)
	}
	if cfg.DefaultCategory == "" {
		t.Fatalf("default category unset")
	}
	if !cfg.IsAllowedLevel1(cfg.DefaultCategory) {
		t.Fatalf("default category %q should be a legitimate level-1 name", cfg.DefaultCategory)
	}
	for _, root := range cfg.Roots {
		if len(cfg.RootKeywords[root]) == 0 {
			t.Fatalf("root %q has no keywords", root)
		}
	}
}

func TestIsRootIgnoresCaseAndSpace(t *testing.T) {
	cfg := Default()
	if !cfg.IsRoot("  proteostasis ") {
		t.Fatalf("case/space-insensitive root match failed")
	}
	if cfg.IsRoot("Autophagy") {
		t.Fatalf("non-root accepted")
	}
}

func TestKeywordRoot(t *testing.T) {
	cfg := Default()
	cases := []struct {
		name string
		want string
	}{
		{"Ubiquitin-Proteasome System", "Proteostasis"},
		{"Mitochondrial ATP Synthesis", "Metabolism & Bioenergetics"},
		{"Clathrin-Mediated Endocytosis", "Membrane & Transport"},
		{"Nucleotide Excision DNA Repair", "Genome Maintenance"},
		{"mRNA Splicing Regulation", "Gene Expression"},
		{"MAPK Kinase Cascade", "Signal Transduction"},
		{"Actin Filament Nucleation", "Cytoskeletal Dynamics"},
		// No keyword hit falls back.
		{"Completely Unrelated Topic", cfg.FallbackRoot},
	}
	for _, tc := range cases {
		if got := cfg.KeywordRoot(tc.name); got != tc.want {
			t.Fatalf("KeywordRoot(%q) = %q, want %q", tc.name, got, tc.want)
		}
	}
}

func TestKeywordRootIsDeterministicOnTies(t *testing.T) {
	cfg := Default()
	// "chaperone" (Proteostasis) and "kinase" (Signal Transduction) both
	// match; root order decides.
	name := "Chaperone Kinase Complex"
	first := cfg.KeywordRoot(name)
	if first != "Proteostasis" {
		t.Fatalf("tie should resolve in root order, got %q", first)
	}
	for i := 0; i < 20; i++ {
		if got := cfg.KeywordRoot(name); got != first {
			t.Fatalf("nondeterministic result: %q vs %q", got, first)
		}
	}
}

func TestLoadEmptyPathReturnsDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.FallbackRoot != Default().FallbackRoot {
		t.Fatalf("defaults not preserved")
	}
}

func TestLoadOverrideReplacesLists(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "rootset.yaml")
	body := "roots:\n  - Proteostasis\n  - Custom Root\nfallback_root: Custom Root\nlevel1_allow:\n  - Only This\n"
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write override: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(cfg.Roots) != 2 || cfg.FallbackRoot != "Custom Root" {
		t.Fatalf("override not applied: %+v", cfg)
	}
	if !cfg.IsAllowedLevel1("only this") || cfg.IsAllowedLevel1("Autophagy") {
		t.Fatalf("level1 list should replace wholesale")
	}
	// Keys omitted from the override keep their defaults.
	if cfg.DefaultCategory != Default().DefaultCategory {
		t.Fatalf("omitted key lost its default")
	}
}

func TestLoadRejectsFallbackOutsideRoots(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "rootset.yaml")
	if err := os.WriteFile(path, []byte("fallback_root: Nowhere\n"), 0o644); err != nil {
		t.Fatalf("write override: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Fatalf("expected validation error for out-of-set fallback root")
	}
}
