package rootset

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config fixes the invariant frame of the taxonomy: the permanent depth-0
// roots, the fallback root for force-attachment and rescue, the default
// category guaranteeing item coverage, the legitimate level-1 names, and the
// keyword map used to pick a smarter root before falling back blindly.
type Config struct {
	Roots           []string            `yaml:"roots"`
	FallbackRoot    string              `yaml:"fallback_root"`
	DefaultCategory string              `yaml:"default_category"`
	Level1Allow     []string            `yaml:"level1_allow"`
	RootKeywords    map[string][]string `yaml:"root_keywords"`
}

// Default is the curated pathway root set.
func Default() Config {
	return Config{
		Roots: []string{
			"Proteostasis",
			"Metabolism & Bioenergetics",
			"Membrane & Transport",
			"Genome Maintenance",
			"Gene Expression",
			"Signal Transduction",
			"Cytoskeletal Dynamics",
		},
		FallbackRoot:    "Proteostasis",
		DefaultCategory: "Protein Quality Control",
		Level1Allow: []string{
			"Protein Quality Control",
			"Protein Folding",
			"Protein Degradation",
			"Autophagy",
			"Central Carbon Metabolism",
			"Oxidative Phosphorylation",
			"Lipid Metabolism",
			"Amino Acid Metabolism",
			"Vesicular Trafficking",
			"Ion Transport",
			"Endocytosis",
			"DNA Repair",
			"DNA Replication",
			"Chromatin Organization",
			"Transcription",
			"RNA Processing",
			"Translation",
			"Kinase Signaling",
			"GPCR Signaling",
			"Stress Response Signaling",
			"Actin Dynamics",
			"Microtubule Dynamics",
			"Cell Adhesion",
		},
		RootKeywords: map[string][]string{
			"Proteostasis":               {"ubiquitin", "proteasome", "chaperone", "folding", "autophag", "aggrega", "degradation"},
			"Metabolism & Bioenergetics": {"metabol", "mitochond", "glycolysis", "oxidative", "lipid", "fatty acid", "tca", "atp"},
			"Membrane & Transport":       {"membrane", "transport", "traffick", "vesic", "endocyt", "exocyt", "channel", "golgi"},
			"Genome Maintenance":         {"dna repair", "replication", "telomere", "genome", "chromosome", "damage"},
			"Gene Expression":            {"transcription", "rna", "splicing", "translation", "ribosom", "chromatin", "histone"},
			"Signal Transduction":        {"signal", "kinase", "receptor", "gpcr", "phosphorylation", "cascade"},
			"Cytoskeletal Dynamics":      {"actin", "microtubule", "cytoskelet", "motor", "myosin", "kinesin", "adhesion"},
		},
	}
}

// Load reads a YAML override file on top of the defaults. Lists replace
// wholesale; an empty file leaves the defaults untouched.
func Load(path string) (Config, error) {
	cfg := Default()
	if strings.TrimSpace(path) == "" {
		return cfg, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("rootset: read %s: %w", path, err)
	}
	var override Config
	if err := yaml.Unmarshal(raw, &override); err != nil {
		return cfg, fmt.Errorf("rootset: parse %s: %w", path, err)
	}
	if len(override.Roots) > 0 {
		cfg.Roots = override.Roots
	}
	if strings.TrimSpace(override.FallbackRoot) != "" {
		cfg.FallbackRoot = override.FallbackRoot
	}
	if strings.TrimSpace(override.DefaultCategory) != "" {
		cfg.DefaultCategory = override.DefaultCategory
	}
	if len(override.Level1Allow) > 0 {
		cfg.Level1Allow = override.Level1Allow
	}
	if len(override.RootKeywords) > 0 {
		cfg.RootKeywords = override.RootKeywords
	}
	if err := cfg.validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	if len(c.Roots) == 0 {
		return fmt.Errorf("rootset: no roots configured")
	}
	if !c.IsRoot(c.FallbackRoot) {
		return fmt.Errorf("rootset: fallback root %q is not in the root set", c.FallbackRoot)
	}
	return nil
}

func (c Config) IsRoot(name string) bool {
	for _, r := range c.Roots {
		if strings.EqualFold(strings.TrimSpace(r), strings.TrimSpace(name)) {
			return true
		}
	}
	return false
}

func (c Config) IsAllowedLevel1(name string) bool {
	for _, n := range c.Level1Allow {
		if strings.EqualFold(strings.TrimSpace(n), strings.TrimSpace(name)) {
			return true
		}
	}
	return false
}

// KeywordRoot scans the category name against the keyword map, in root
// order so ties resolve deterministically, and returns the matching root or
// the fallback root when nothing matches.
func (c Config) KeywordRoot(name string) string {
	low := strings.ToLower(name)
	for _, root := range c.Roots {
		for _, w := range c.RootKeywords[root] {
			if w != "" && strings.Contains(low, w) {
				return root
			}
		}
	}
	return c.FallbackRoot
}
