package domain

import (
	"github.com/yungbote/pathatlas-backend/internal/domain/taxonomy"
)

type Category = taxonomy.Category
type CategoryEdge = taxonomy.CategoryEdge
type Item = taxonomy.Item
type Assignment = taxonomy.Assignment
type OracleCacheEntry = taxonomy.OracleCacheEntry
type CurationRun = taxonomy.CurationRun
type VerificationReport = taxonomy.VerificationReport

// Category origins.
const (
	OriginSeed   = "seed"
	OriginOracle = "oracle"
)

// Edge kinds.
const (
	EdgeIsA       = "is_a"
	EdgePartOf    = "part_of"
	EdgeRegulates = "regulates"
)

// Assignment methods.
const (
	MethodOracleInitial    = "oracle_initial"
	MethodOracleRefined    = "oracle_refined"
	MethodFallbackDefault  = "fallback_default"
	MethodRepairReassigned = "repair_reassigned"
)

// Proposal stages, ordered most refined first.
const (
	StageRefined = "refined"
	StageInitial = "initial"
)

// Run kinds and statuses.
const (
	RunKindCuration   = "curation"
	RunKindReorganize = "reorganize"
	RunKindVerify     = "verify"
	RunKindSyncLinks  = "sync_links"

	RunStatusRunning  = "running"
	RunStatusDone     = "done"
	RunStatusDegraded = "degraded"
	RunStatusFailed   = "failed"
)

// Verifier verdicts.
const (
	VerdictPass = "pass"
	VerdictFail = "fail"
)

// CategoryProposal is one upstream classifier proposal, stored on
// Item.ProposedCategories as a JSON array ordered most refined first.
type CategoryProposal struct {
	Name       string  `json:"name"`
	Stage      string  `json:"stage"`
	Confidence float64 `json:"confidence,omitempty"`
}
