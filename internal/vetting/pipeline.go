package vetting

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/joelkehle/proposal-vetting/internal/insights"
	"github.com/joelkehle/proposal-vetting/internal/metrics"
	"github.com/joelkehle/proposal-vetting/internal/proposal"
	"github.com/joelkehle/proposal-vetting/internal/report"
	"github.com/joelkehle/proposal-vetting/internal/scoring"
	"github.com/joelkehle/proposal-vetting/internal/telemetry"
)

// AnalystUnavailable is reported in place of insights when Pro mode runs
// without an AI collaborator configured.
const AnalystUnavailable = "AI analysis is not configured on this server."

type Pipeline struct {
	extractor Extractor
	enricher  Enricher
	analyst   Analyst
	reports   ReportGenerator
	log       logrus.FieldLogger
	metrics   *metrics.Recorder
	tracer    trace.Tracer
	newID     func() string
	now       func() time.Time
}

type Option func(*Pipeline)

func WithEnricher(e Enricher) Option { return func(p *Pipeline) { p.enricher = e } }
func WithAnalyst(a Analyst) Option   { return func(p *Pipeline) { p.analyst = a } }

func WithLogger(log logrus.FieldLogger) Option { return func(p *Pipeline) { p.log = log } }

func WithMetrics(m *metrics.Recorder) Option { return func(p *Pipeline) { p.metrics = m } }

func WithTracer(t trace.Tracer) Option { return func(p *Pipeline) { p.tracer = t } }

// WithIDGenerator replaces the random submission IDs, mostly for tests.
func WithIDGenerator(fn func() string) Option { return func(p *Pipeline) { p.newID = fn } }

func WithClock(now func() time.Time) Option { return func(p *Pipeline) { p.now = now } }

func NewPipeline(extractor Extractor, reports ReportGenerator, opts ...Option) *Pipeline {
	p := &Pipeline{
		extractor: extractor,
		reports:   reports,
		log:       logrus.StandardLogger(),
		tracer:    telemetry.Tracer(),
		newID:     func() string { return uuid.NewString() },
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *Pipeline) Run(ctx context.Context, sub Submission) (Result, error) {
	return p.runWithProgress(ctx, sub, nil)
}

func (p *Pipeline) RunWithProgress(ctx context.Context, sub Submission, progress StageProgressFn) (Result, error) {
	return p.runWithProgress(ctx, sub, progress)
}

func (p *Pipeline) runWithProgress(ctx context.Context, sub Submission, progress StageProgressFn) (Result, error) {
	mode := sub.Session.Mode
	if mode == "" {
		mode = proposal.ModeLight
	}
	id := p.newID()
	res := Result{
		SubmissionID: id,
		Proposal:     sub.Proposal.Clone(),
		Metadata:     Metadata{Mode: mode, StartedAt: p.now()},
	}
	log := p.log.WithFields(logrus.Fields{"submission_id": id, "mode": mode})

	ctx, span := p.tracer.Start(ctx, "vetting.submission", trace.WithAttributes(
		attribute.String("submission.id", id),
		attribute.String("submission.mode", string(mode)),
	))
	defer span.End()

	err := p.runStages(ctx, &res, sub, log, progress)
	res.Metadata.CompletedAt = p.now()

	outcome := "ok"
	switch {
	case err == nil:
		if res.Report.Fallback {
			outcome = "text_report"
		}
		log.WithFields(logrus.Fields{
			"overall_score":   res.Scorecard.Overall,
			"recommendations": len(res.Recommendations),
			"content_type":    res.Report.ContentType,
		}).Info("submission vetted")
	case errors.As(err, new(*ValidationError)):
		outcome = "invalid"
	case errors.As(err, new(*CredentialError)):
		outcome = "credential_error"
	default:
		outcome = "error"
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		log.WithError(err).Warn("submission rejected")
	}
	p.metrics.Submission(string(mode), outcome)
	return res, err
}

func (p *Pipeline) runStages(ctx context.Context, res *Result, sub Submission, log logrus.FieldLogger, progress StageProgressFn) error {
	pro := res.Metadata.Mode == proposal.ModePro

	if len(sub.Files) > 0 {
		if err := p.stage(ctx, res, StageFiles, progress, "Extracting uploaded documents...", func(ctx context.Context) error {
			return p.extractFiles(ctx, res, sub.Files)
		}); err != nil {
			return err
		}
	}

	if err := p.stage(ctx, res, StageValidate, progress, "Checking required fields...", func(context.Context) error {
		if missing := proposal.Validate(res.Proposal); len(missing) > 0 {
			return &ValidationError{Missing: missing}
		}
		return nil
	}); err != nil {
		return err
	}

	if pro {
		if err := p.stage(ctx, res, StageCredential, progress, "Checking API key...", func(context.Context) error {
			if err := insights.CheckCredential(sub.Session.Credential); err != nil {
				return &CredentialError{Err: err}
			}
			return nil
		}); err != nil {
			return err
		}
	}

	if pro && p.enricher != nil {
		_ = p.stage(ctx, res, StageEnrich, progress, "Fetching content from URLs...", func(ctx context.Context) error {
			p.enrich(ctx, res)
			return nil
		})
	} else {
		res.Metadata.StagesSkipped = append(res.Metadata.StagesSkipped, StageEnrich)
	}

	_ = p.stage(ctx, res, StageScore, progress, "Calculating metrics and scores...", func(context.Context) error {
		res.Scorecard = scoring.Score(res.Proposal)
		if res.Scorecard.Degraded {
			res.Metadata.ScoringFault = res.Scorecard.Fault
			log.WithField("fault", res.Scorecard.Fault).Error("scoring degraded; continuing with zeroed scores")
		}
		return nil
	})

	_ = p.stage(ctx, res, StageRecommend, progress, "Generating recommendations...", func(context.Context) error {
		res.Recommendations = scoring.Recommend(res.Proposal, res.Scorecard.Metrics)
		return nil
	})

	if pro {
		_ = p.stage(ctx, res, StageInsights, progress, "Generating AI insights...", func(ctx context.Context) error {
			p.analyze(ctx, res, sub.Session.Credential, log)
			return nil
		})
	} else {
		res.Metadata.StagesSkipped = append(res.Metadata.StagesSkipped, StageInsights)
	}

	return p.stage(ctx, res, StageRender, progress, "Rendering report...", func(ctx context.Context) error {
		if p.reports == nil {
			return errors.New("no report generator configured")
		}
		res.Report = p.reports.Generate(ctx, report.Input{
			SubmissionID:    res.SubmissionID,
			Proposal:        res.Proposal,
			Scorecard:       res.Scorecard,
			Recommendations: res.Recommendations,
			Insights:        res.Insights,
			GeneratedAt:     p.now(),
		})
		return nil
	})
}

// stage runs fn inside its own span and duration sample. A failure is
// wrapped in StageError.
func (p *Pipeline) stage(ctx context.Context, res *Result, name Stage, progress StageProgressFn, message string, fn func(context.Context) error) error {
	emit(progress, name, message)
	ctx, span := p.tracer.Start(ctx, "vetting."+string(name))
	defer span.End()

	start := time.Now()
	err := fn(ctx)
	p.metrics.StageDuration(string(name), time.Since(start))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return &StageError{Stage: name, Err: err}
	}
	res.Metadata.StagesExecuted = append(res.Metadata.StagesExecuted, name)
	return nil
}

func (p *Pipeline) extractFiles(ctx context.Context, res *Result, files []Upload) error {
	if p.extractor == nil {
		return errors.New("no document extractor configured")
	}
	for _, up := range files {
		if _, ok := proposal.ParseDocSlot(string(up.Slot)); !ok {
			return fmt.Errorf("unknown document slot %q", up.Slot)
		}
	}
	if res.Proposal.UploadedDocs == nil {
		res.Proposal.UploadedDocs = make(map[proposal.DocSlot]string, len(files))
	}
	for _, up := range files {
		res.Proposal.UploadedDocs[up.Slot] = p.extractor.ExtractText(ctx, up.File)
	}
	return nil
}

func (p *Pipeline) enrich(ctx context.Context, res *Result) {
	budget := p.enricher.NewBudget()
	before := budget.Remaining()
	for _, field := range enrichableFields(&res.Proposal) {
		*field = p.enricher.Enrich(ctx, *field, budget)
	}
	res.Metadata.URLsFetched = before - budget.Remaining()
}

// enrichableFields are the free-text fields whose embedded URLs are
// fetched in Pro mode, in form order.
func enrichableFields(pr *proposal.Proposal) []*string {
	return []*string{
		&pr.ProblemSolution,
		&pr.MarketInfo,
		&pr.BusinessModelDesc,
		&pr.Uniqueness,
		&pr.Progress,
		&pr.TeamExperience,
		&pr.Competitors,
		&pr.CompetitiveAdvantage,
		&pr.CustomerAcquisition,
	}
}

func (p *Pipeline) analyze(ctx context.Context, res *Result, credential string, log logrus.FieldLogger) {
	if p.analyst == nil {
		res.InsightsError = AnalystUnavailable
		return
	}
	out, err := p.analyst.Analyze(ctx, res.Proposal, credential)
	if err != nil {
		var ce *insights.CallError
		if errors.As(err, &ce) {
			res.InsightsError = ce.Message
		} else {
			res.InsightsError = err.Error()
		}
		log.WithError(err).Warn("ai insights unavailable; continuing without them")
		return
	}
	ai := out.Insights
	res.Insights = &ai
	res.InsightsDegraded = out.Fallback
	res.Metadata.InsightsDeviations = out.Deviations
}

func emit(progress StageProgressFn, stage Stage, message string) {
	if progress != nil {
		progress(stage, message)
	}
}
