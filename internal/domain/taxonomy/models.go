package taxonomy

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Category is a node in the pathway taxonomy. The forest is rooted at a
// small fixed set of seed categories (Origin "seed", Depth 0) that are never
// deleted, merged away, or given a parent.
type Category struct {
	ID   uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Name string    `gorm:"column:name;not null;uniqueIndex:idx_category_name" json:"name"`

	// ExternalID is an optional ontology reference (e.g. a GO term id).
	ExternalID string `gorm:"column:external_id;index" json:"external_id,omitempty"`

	// Depth is 0 for roots, parent.Depth+1 otherwise, -1 while orphaned.
	Depth  int  `gorm:"column:depth;not null;default:-1;index" json:"depth"`
	IsLeaf bool `gorm:"column:is_leaf;not null;default:true" json:"is_leaf"`

	// AncestorPath is the materialized ordered list of ancestor ids from this
	// node up to its root, as a JSON array of uuid strings.
	AncestorPath datatypes.JSON `gorm:"column:ancestor_path;type:jsonb" json:"ancestor_path,omitempty"`

	// Origin is "seed" for fixed roots and curated defaults, "oracle" otherwise.
	Origin string `gorm:"column:origin;not null;default:'oracle';index" json:"origin"`

	// UsageCount is the derived count of live assignments; the verifier keeps
	// it honest.
	UsageCount int `gorm:"column:usage_count;not null;default:0" json:"usage_count"`

	CreatedAt time.Time      `gorm:"not null;index" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null;index" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (Category) TableName() string { return "category" }

// CategoryEdge is a directed child -> parent link. The reorganizer enforces
// exactly one live edge per non-root child and an acyclic edge set.
type CategoryEdge struct {
	ID       uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	ChildID  uuid.UUID `gorm:"type:uuid;not null;index:idx_category_edge_child;index:idx_category_edge_pair,unique,priority:1" json:"child_id"`
	ParentID uuid.UUID `gorm:"type:uuid;not null;index:idx_category_edge_parent;index:idx_category_edge_pair,unique,priority:2" json:"parent_id"`

	// Kind: "is_a" | "part_of" | "regulates".
	Kind       string  `gorm:"column:kind;not null;default:'is_a'" json:"kind"`
	Confidence float64 `gorm:"column:confidence;not null;default:1" json:"confidence"`

	// Provenance records which component created the edge and any oracle
	// reasoning that came with it.
	Provenance datatypes.JSON `gorm:"column:provenance;type:jsonb" json:"provenance,omitempty"`

	CreatedAt time.Time      `gorm:"not null;index" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (CategoryEdge) TableName() string { return "category_edge" }

// Item is an opaque external subject (a protein). ProposedCategories holds
// the upstream classifier's proposals ordered most-refined first; the sync
// phase falls back through them when an item loses all live assignments.
type Item struct {
	ID   uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Name string    `gorm:"column:name;not null;uniqueIndex:idx_item_name" json:"name"`

	// ProposedCategories is a JSON array of {name, stage, confidence} objects,
	// stage in {"refined", "initial"}.
	ProposedCategories datatypes.JSON `gorm:"column:proposed_categories;type:jsonb" json:"proposed_categories,omitempty"`

	CreatedAt time.Time      `gorm:"not null;index" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (Item) TableName() string { return "item" }

// Assignment links an item to a category. Facet is empty in single-category
// mode; distinct facets let independently classified aspects of one item
// coexist.
type Assignment struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	ItemID     uuid.UUID `gorm:"type:uuid;not null;index:idx_assignment_item;index:idx_assignment_unique,unique,priority:1" json:"item_id"`
	CategoryID uuid.UUID `gorm:"type:uuid;not null;index:idx_assignment_category;index:idx_assignment_unique,unique,priority:2" json:"category_id"`
	Facet      string    `gorm:"column:facet;not null;default:'';index:idx_assignment_unique,unique,priority:3" json:"facet,omitempty"`

	// Method: "oracle_initial" | "oracle_refined" | "fallback_default" | "repair_reassigned".
	Method     string  `gorm:"column:method;not null;index" json:"method"`
	Confidence float64 `gorm:"column:confidence;not null;default:1" json:"confidence"`

	CreatedAt time.Time      `gorm:"not null;index" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (Assignment) TableName() string { return "assignment" }

// OracleCacheEntry memoizes oracle answers across runs. Key is normalized
// (trimmed, lowercased, inner whitespace collapsed) and prefixed with the
// kind, e.g. "parent:dna repair". No expiry; invalidation is explicit.
type OracleCacheEntry struct {
	ID   uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Key  string    `gorm:"column:key;not null;uniqueIndex:idx_oracle_cache_key" json:"key"`
	Kind string    `gorm:"column:kind;not null;index" json:"kind"`

	Value datatypes.JSON `gorm:"column:value;type:jsonb" json:"value"`

	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

func (OracleCacheEntry) TableName() string { return "oracle_cache_entry" }

// CurationRun tracks one climb/reorganize/verify pipeline execution.
type CurationRun struct {
	ID uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`

	// Kind: "curation" | "verify" | "sync_links".
	Kind string `gorm:"column:kind;not null;index" json:"kind"`

	// Status: "running" | "done" | "degraded" | "failed".
	Status string `gorm:"column:status;not null;index" json:"status"`

	// Phase is the most recently started phase name.
	Phase string `gorm:"column:phase;not null;default:''" json:"phase"`

	// Summary accumulates per-phase counters (merged, reparented, pruned, ...).
	Summary datatypes.JSON `gorm:"column:summary;type:jsonb" json:"summary,omitempty"`

	StartedAt  time.Time  `gorm:"not null;index" json:"started_at"`
	FinishedAt *time.Time `gorm:"column:finished_at" json:"finished_at,omitempty"`

	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

func (CurationRun) TableName() string { return "curation_run" }

// VerificationReport is the verifier's persisted verdict for a run.
type VerificationReport struct {
	ID    uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	RunID uuid.UUID `gorm:"type:uuid;not null;index" json:"run_id"`

	// Verdict: "pass" | "fail".
	Verdict string `gorm:"column:verdict;not null;index" json:"verdict"`

	// Findings is a JSON array of {check, severity, subject, detail}.
	Findings datatypes.JSON `gorm:"column:findings;type:jsonb" json:"findings,omitempty"`

	// AutoRepairs lists the low/medium findings fixed before the re-check.
	AutoRepairs datatypes.JSON `gorm:"column:auto_repairs;type:jsonb" json:"auto_repairs,omitempty"`

	CreatedAt time.Time `gorm:"not null;index" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

func (VerificationReport) TableName() string { return "verification_report" }
