package vetting

import (
	"context"
	"fmt"
	"time"

	"github.com/joelkehle/proposal-vetting/internal/extract"
	"github.com/joelkehle/proposal-vetting/internal/insights"
	"github.com/joelkehle/proposal-vetting/internal/proposal"
	"github.com/joelkehle/proposal-vetting/internal/report"
	"github.com/joelkehle/proposal-vetting/internal/scoring"
	"github.com/joelkehle/proposal-vetting/internal/webfetch"
)

type Stage string

const (
	StageFiles      Stage = "files"
	StageValidate   Stage = "validate"
	StageCredential Stage = "credential"
	StageEnrich     Stage = "enrich"
	StageScore      Stage = "score"
	StageRecommend  Stage = "recommend"
	StageInsights   Stage = "insights"
	StageRender     Stage = "render"
)

type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string { return fmt.Sprintf("%s: %v", e.Stage, e.Err) }
func (e *StageError) Unwrap() error { return e.Err }

// ValidationError lists the required fields a submission left empty.
type ValidationError = proposal.ValidationError

// CredentialError rejects a Pro submission before any AI call is made.
type CredentialError struct {
	Err error
}

func (e *CredentialError) Error() string { return e.Err.Error() }
func (e *CredentialError) Unwrap() error { return e.Err }

type StageProgressFn func(stage Stage, message string)

// Upload is one file destined for a document slot.
type Upload struct {
	Slot proposal.DocSlot
	File extract.File
}

type Submission struct {
	Proposal proposal.Proposal
	Session  proposal.Session
	Files    []Upload
}

type Metadata struct {
	Mode               proposal.Mode `json:"mode"`
	StagesExecuted     []Stage       `json:"stages_executed"`
	StagesSkipped      []Stage       `json:"stages_skipped,omitempty"`
	StartedAt          time.Time     `json:"started_at"`
	CompletedAt        time.Time     `json:"completed_at"`
	URLsFetched        int           `json:"urls_fetched"`
	InsightsDeviations []string      `json:"insights_deviations,omitempty"`
	ScoringFault       string        `json:"scoring_fault,omitempty"`
}

// Result is everything derived for one submission. Proposal is the value
// that was scored: extracted documents and URL enrichment included.
type Result struct {
	SubmissionID     string                   `json:"submission_id"`
	Proposal         proposal.Proposal        `json:"-"`
	Scorecard        scoring.Scorecard        `json:"scorecard"`
	Recommendations  []scoring.Recommendation `json:"recommendations"`
	Insights         *insights.Insights       `json:"insights,omitempty"`
	InsightsError    string                   `json:"insights_error,omitempty"`
	InsightsDegraded bool                     `json:"insights_degraded,omitempty"`
	Report           report.Document          `json:"-"`
	Metadata         Metadata                 `json:"metadata"`
}

type Extractor interface {
	ExtractText(ctx context.Context, f extract.File) string
}

type Enricher interface {
	NewBudget() *webfetch.Budget
	Enrich(ctx context.Context, text string, budget *webfetch.Budget) string
}

type Analyst interface {
	Analyze(ctx context.Context, p proposal.Proposal, credential string) (insights.Result, error)
}

type ReportGenerator interface {
	Generate(ctx context.Context, in report.Input) report.Document
}
