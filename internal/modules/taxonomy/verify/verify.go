package verify

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	taxrepos "github.com/yungbote/pathatlas-backend/internal/data/repos/taxonomy"
	types "github.com/yungbote/pathatlas-backend/internal/domain"
	"github.com/yungbote/pathatlas-backend/internal/modules/taxonomy/steps"
	"github.com/yungbote/pathatlas-backend/internal/pkg/dbctx"
)

type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// Finding is one detected invariant violation.
type Finding struct {
	Check    string   `json:"check"`
	Severity Severity `json:"severity"`
	Subject  string   `json:"subject"`
	Detail   string   `json:"detail"`
}

// Repairable reports whether the verifier may fix this finding itself.
// High and critical findings are evidence of a pipeline bug; silently
// papering over them would hide it.
func (f Finding) Repairable() bool {
	return f.Severity == SeverityLow || f.Severity == SeverityMedium
}

// Verifier audits the full invariant set after a pipeline run, repairs
// what is safe to repair, and persists a verdict report.
type Verifier struct {
	deps    steps.StepDeps
	reports taxrepos.VerificationReportRepo
}

func New(deps steps.StepDeps, reports taxrepos.VerificationReportRepo) *Verifier {
	return &Verifier{deps: deps, reports: reports}
}

// Run executes every check, auto-repairs low and medium findings inside one
// transaction, re-checks exactly once, and persists the report. The verdict
// fails when any high or critical finding survives.
func (v *Verifier) Run(ctx context.Context, runID uuid.UUID) (*types.VerificationReport, error) {
	findings, err := v.collect(ctx)
	if err != nil {
		return nil, fmt.Errorf("verify: %w", err)
	}

	var repaired []Finding
	if hasRepairable(findings) {
		err = v.deps.DB.Transaction(func(tx *gorm.DB) error {
			var err error
			repaired, err = v.autoRepair(ctx, tx, findings)
			return err
		})
		if err != nil {
			return nil, fmt.Errorf("verify: auto repair: %w", err)
		}
		findings, err = v.collect(ctx)
		if err != nil {
			return nil, fmt.Errorf("verify: re-check: %w", err)
		}
	}

	verdict := types.VerdictPass
	for _, f := range findings {
		if f.Severity == SeverityHigh || f.Severity == SeverityCritical {
			verdict = types.VerdictFail
			break
		}
	}

	report := &types.VerificationReport{
		RunID:       runID,
		Verdict:     verdict,
		Findings:    marshalFindings(findings),
		AutoRepairs: marshalFindings(repaired),
	}
	saved, err := v.reports.Create(dbctx.Context{Ctx: ctx}, report)
	if err != nil {
		return nil, fmt.Errorf("verify: persist report: %w", err)
	}

	v.deps.Log.Info("verification finished",
		"verdict", verdict, "findings", len(findings), "repaired", len(repaired))
	return saved, nil
}

func hasRepairable(findings []Finding) bool {
	for _, f := range findings {
		if f.Repairable() {
			return true
		}
	}
	return false
}

func verifyProvenance(detail string) datatypes.JSON {
	raw, _ := json.Marshal(map[string]string{
		"source":    "verifier",
		"reasoning": detail,
	})
	return datatypes.JSON(raw)
}

func marshalFindings(fs []Finding) datatypes.JSON {
	if len(fs) == 0 {
		return datatypes.JSON([]byte("[]"))
	}
	raw, _ := json.Marshal(fs)
	return datatypes.JSON(raw)
}
