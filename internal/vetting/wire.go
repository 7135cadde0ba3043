package vetting

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/joelkehle/proposal-vetting/internal/config"
	"github.com/joelkehle/proposal-vetting/internal/extract"
	"github.com/joelkehle/proposal-vetting/internal/insights"
	"github.com/joelkehle/proposal-vetting/internal/metrics"
	"github.com/joelkehle/proposal-vetting/internal/report"
	"github.com/joelkehle/proposal-vetting/internal/webfetch"
)

// NewFromConfig assembles the production collaborators: document
// extraction, URL enrichment, the AI analyst for the configured provider
// and the configured report renderer.
func NewFromConfig(cfg *config.Config, log logrus.FieldLogger, rec *metrics.Recorder) (*Pipeline, error) {
	factory, err := insights.NewCallerFactory(insights.ProviderConfig{
		Provider:    cfg.AIProvider,
		Model:       cfg.AIModel,
		BaseURL:     cfg.AIBaseURL,
		Temperature: cfg.AITemperature,
		MaxTokens:   cfg.AIMaxTokens,
	})
	if err != nil {
		return nil, err
	}
	renderer, err := report.NewRenderer(cfg.Renderer, cfg.ChromePath)
	if err != nil {
		return nil, fmt.Errorf("report renderer: %w", err)
	}

	extractor := extract.NewExtractor(log)
	fetcher := webfetch.NewFetcher(extractor,
		webfetch.WithTimeout(cfg.FetchTimeout()),
		webfetch.WithMaxChars(cfg.FetchMaxChars),
		webfetch.WithLogger(log),
		webfetch.WithMetrics(rec),
	)
	analyst := insights.NewAnalyst(factory,
		insights.WithLogger(log),
		insights.WithMetrics(rec),
		insights.WithRequestsPerMinute(cfg.AIRequestsPerMinute),
	)
	generator := report.NewGenerator(renderer, report.WithLogger(log), report.WithMetrics(rec))

	return NewPipeline(extractor, generator,
		WithEnricher(webfetch.NewEnricher(fetcher, cfg.FetchMaxURLs, cfg.FetchRequestsPerSecond)),
		WithAnalyst(analyst),
		WithLogger(log),
		WithMetrics(rec),
	), nil
}
