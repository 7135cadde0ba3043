package vetting

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joelkehle/proposal-vetting/internal/extract"
	"github.com/joelkehle/proposal-vetting/internal/insights"
	"github.com/joelkehle/proposal-vetting/internal/logger"
	"github.com/joelkehle/proposal-vetting/internal/metrics"
	"github.com/joelkehle/proposal-vetting/internal/proposal"
	"github.com/joelkehle/proposal-vetting/internal/report"
	"github.com/joelkehle/proposal-vetting/internal/webfetch"
)

func validProposal() proposal.Proposal {
	return proposal.Proposal{
		CompanyName:          "Acme Analytics",
		Industry:             proposal.IndustrySaaS,
		Stage:                proposal.StageEarlyRevenue,
		ProblemSolution:      "Manual reporting wastes analyst time. Demo: https://acme.example/demo",
		MarketInfo:           "Mid-market finance teams.",
		BusinessModelDesc:    "Per-seat SaaS subscription.",
		Uniqueness:           "Native ERP connectors.",
		TeamExperience:       "Two prior exits.",
		TeamStructure:        "CEO, CTO, 4 engineers.",
		FundingSeeking:       1_500_000,
		UseOfFunds:           "Hiring and go-to-market.",
		CAC:                  100,
		LTV:                  400,
		BurnRate:             50_000,
		RunwayMonths:         12,
		CurrentMRR:           20_000,
		ARR:                  240_000,
		MonthlyGrowthRate:    12,
		Competitors:          "Incumbent BI suites.",
		CompetitiveAdvantage: "Time to value under a day.",
		CustomerAcquisition:  "Outbound plus partner channel.",
		OtherRisks:           "Key person dependency.",
	}
}

type fakeExtractor struct{ calls []extract.File }

func (f *fakeExtractor) ExtractText(_ context.Context, file extract.File) string {
	f.calls = append(f.calls, file)
	return "text of " + file.Name
}

type fakeEnricher struct {
	seen []string
}

func (f *fakeEnricher) NewBudget() *webfetch.Budget { return webfetch.NewBudget(3) }

func (f *fakeEnricher) Enrich(_ context.Context, text string, _ *webfetch.Budget) string {
	f.seen = append(f.seen, text)
	if strings.Contains(text, "https://") {
		return text + "\n\n--- Additional Content from URLs ---\n\nContent from https://acme.example/demo:\nDemo page...\n"
	}
	return text
}

type fakeAnalyst struct {
	result insights.Result
	err    error
	calls  int
	got    proposal.Proposal
}

func (f *fakeAnalyst) Analyze(_ context.Context, p proposal.Proposal, _ string) (insights.Result, error) {
	f.calls++
	f.got = p
	return f.result, f.err
}

type fakeReports struct {
	calls int
	input report.Input
}

func (f *fakeReports) Generate(_ context.Context, in report.Input) report.Document {
	f.calls++
	f.input = in
	return report.Document{ContentType: report.ContentTypePDF, Data: []byte("%PDF-stub")}
}

type harness struct {
	extractor *fakeExtractor
	enricher  *fakeEnricher
	analyst   *fakeAnalyst
	reports   *fakeReports
	pipeline  *Pipeline
}

func newHarness() *harness {
	h := &harness{
		extractor: &fakeExtractor{},
		enricher:  &fakeEnricher{},
		analyst: &fakeAnalyst{result: insights.Result{Insights: insights.Insights{
			InvestmentThesis:         "Strong retention.",
			InvestmentRecommendation: insights.VerdictBuy,
			InvestmentScore:          80,
		}}},
		reports: &fakeReports{},
	}
	h.pipeline = NewPipeline(h.extractor, h.reports,
		WithEnricher(h.enricher),
		WithAnalyst(h.analyst),
		WithLogger(logger.Discard()),
		WithMetrics(metrics.New()),
		WithIDGenerator(func() string { return "sub-123" }),
	)
	return h
}

func TestRunLightModeSkipsAIAndEnrichment(t *testing.T) {
	h := newHarness()
	var stages []Stage
	res, err := h.pipeline.RunWithProgress(context.Background(), Submission{Proposal: validProposal()},
		func(stage Stage, _ string) { stages = append(stages, stage) })
	require.NoError(t, err)

	assert.Equal(t, "sub-123", res.SubmissionID)
	assert.Equal(t, proposal.ModeLight, res.Metadata.Mode)
	assert.Equal(t, []Stage{StageValidate, StageScore, StageRecommend, StageRender}, stages)
	assert.Equal(t, stages, res.Metadata.StagesExecuted)
	assert.Equal(t, []Stage{StageEnrich, StageInsights}, res.Metadata.StagesSkipped)
	assert.Zero(t, h.analyst.calls)
	assert.Empty(t, h.enricher.seen)
	assert.Nil(t, res.Insights)
	assert.Greater(t, res.Scorecard.Overall, 0.0)
	assert.Equal(t, report.ContentTypePDF, res.Report.ContentType)
	assert.Equal(t, 1, h.reports.calls)
	assert.Equal(t, "sub-123", h.reports.input.SubmissionID)
}

func TestRunRejectsMissingFieldsBeforeScoring(t *testing.T) {
	h := newHarness()
	_, err := h.pipeline.Run(context.Background(), Submission{
		Session: proposal.Session{Mode: proposal.ModePro, Credential: "sk-test"},
	})

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, proposal.RequiredFields, verr.Missing)

	var serr *StageError
	require.ErrorAs(t, err, &serr)
	assert.Equal(t, StageValidate, serr.Stage)

	assert.Zero(t, h.analyst.calls)
	assert.Zero(t, h.reports.calls)
	assert.Empty(t, h.enricher.seen)
}

func TestRunProRejectsBadCredentialWithoutCallingCollaborators(t *testing.T) {
	for _, cred := range []string{"", "pk-123"} {
		h := newHarness()
		_, err := h.pipeline.Run(context.Background(), Submission{
			Proposal: validProposal(),
			Session:  proposal.Session{Mode: proposal.ModePro, Credential: cred},
		})
		var cerr *CredentialError
		require.ErrorAs(t, err, &cerr, "credential %q", cred)
		assert.Zero(t, h.analyst.calls)
		assert.Empty(t, h.enricher.seen)
		assert.Zero(t, h.reports.calls)
	}
	h := newHarness()
	_, err := h.pipeline.Run(context.Background(), Submission{
		Proposal: validProposal(),
		Session:  proposal.Session{Mode: proposal.ModePro},
	})
	assert.ErrorIs(t, err, insights.ErrMissingCredential)
}

func TestRunProEnrichesCopyAndAttachesInsights(t *testing.T) {
	h := newHarness()
	in := validProposal()
	before := in.ProblemSolution

	res, err := h.pipeline.Run(context.Background(), Submission{
		Proposal: in,
		Session:  proposal.Session{Mode: proposal.ModePro, Credential: "sk-test"},
	})
	require.NoError(t, err)

	assert.Equal(t, before, in.ProblemSolution)
	assert.Len(t, h.enricher.seen, 9)
	assert.Contains(t, res.Proposal.ProblemSolution, "--- Additional Content from URLs ---")
	assert.Contains(t, h.analyst.got.ProblemSolution, "Content from https://acme.example/demo")

	require.NotNil(t, res.Insights)
	assert.Equal(t, insights.VerdictBuy, res.Insights.InvestmentRecommendation)
	assert.False(t, res.InsightsDegraded)
	assert.Empty(t, res.InsightsError)
	assert.Same(t, res.Insights, h.reports.input.Insights)
	assert.Contains(t, res.Metadata.StagesExecuted, StageEnrich)
	assert.Contains(t, res.Metadata.StagesExecuted, StageInsights)
}

func TestRunProCollaboratorFailureStillRenders(t *testing.T) {
	h := newHarness()
	h.analyst.err = &insights.CallError{Message: "API rate limit reached. Please wait a moment and try again.", Err: errors.New("429")}

	res, err := h.pipeline.Run(context.Background(), Submission{
		Proposal: validProposal(),
		Session:  proposal.Session{Mode: proposal.ModePro, Credential: "sk-test"},
	})
	require.NoError(t, err)
	assert.Equal(t, "API rate limit reached. Please wait a moment and try again.", res.InsightsError)
	assert.Nil(t, res.Insights)
	assert.Equal(t, 1, h.reports.calls)
}

func TestRunProFallbackInsightsAreFlagged(t *testing.T) {
	h := newHarness()
	h.analyst.result = insights.Result{Insights: insights.Fallback(), Fallback: true}

	res, err := h.pipeline.Run(context.Background(), Submission{
		Proposal: validProposal(),
		Session:  proposal.Session{Mode: proposal.ModePro, Credential: "sk-test"},
	})
	require.NoError(t, err)
	assert.True(t, res.InsightsDegraded)
	require.NotNil(t, res.Insights)
	assert.True(t, res.Insights.IsFallback())
}

func TestRunProWithoutAnalystReportsUnavailable(t *testing.T) {
	h := newHarness()
	p := NewPipeline(h.extractor, h.reports, WithLogger(logger.Discard()))
	res, err := p.Run(context.Background(), Submission{
		Proposal: validProposal(),
		Session:  proposal.Session{Mode: proposal.ModePro, Credential: "sk-test"},
	})
	require.NoError(t, err)
	assert.Equal(t, AnalystUnavailable, res.InsightsError)
	assert.Contains(t, res.Metadata.StagesSkipped, StageEnrich)
}

func TestRunExtractsUploadsIntoSlots(t *testing.T) {
	h := newHarness()
	res, err := h.pipeline.Run(context.Background(), Submission{
		Proposal: validProposal(),
		Files: []Upload{
			{Slot: proposal.DocFinancial, File: extract.File{Name: "model.pdf"}},
			{Slot: proposal.DocTeam, File: extract.File{Name: "team.docx"}},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "text of model.pdf", res.Proposal.UploadedDocs[proposal.DocFinancial])
	assert.Equal(t, "text of team.docx", res.Proposal.UploadedDocs[proposal.DocTeam])
	assert.Equal(t, StageFiles, res.Metadata.StagesExecuted[0])
}

func TestRunRejectsUnknownSlot(t *testing.T) {
	h := newHarness()
	_, err := h.pipeline.Run(context.Background(), Submission{
		Proposal: validProposal(),
		Files:    []Upload{{Slot: "pitch_deck", File: extract.File{Name: "deck.pdf"}}},
	})
	var serr *StageError
	require.ErrorAs(t, err, &serr)
	assert.Equal(t, StageFiles, serr.Stage)
	assert.Empty(t, h.extractor.calls)
}

func TestRunDegradedScoringStillProducesReport(t *testing.T) {
	h := newHarness()
	p := validProposal()
	p.TAM = nan()

	res, err := h.pipeline.Run(context.Background(), Submission{Proposal: p})
	require.NoError(t, err)
	assert.True(t, res.Scorecard.Degraded)
	assert.NotEmpty(t, res.Metadata.ScoringFault)
	assert.Equal(t, 1, h.reports.calls)
}

func nan() float64 {
	var zero float64
	return zero / zero
}
