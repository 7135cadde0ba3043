package webfetch

import (
	"context"
	"strings"

	"golang.org/x/time/rate"
)

// DefaultMaxURLs bounds how many URLs a single submission may fetch.
const DefaultMaxURLs = 3

const enrichmentHeader = "\n\n--- Additional Content from URLs ---\n"

// Budget counts the fetches left for one submission. It is shared across
// every field of that submission and is not safe for concurrent use.
type Budget struct {
	remaining int
}

func NewBudget(n int) *Budget {
	if n < 0 {
		n = 0
	}
	return &Budget{remaining: n}
}

func (b *Budget) Remaining() int { return b.remaining }

func (b *Budget) take() bool {
	if b.remaining <= 0 {
		return false
	}
	b.remaining--
	return true
}

type Enricher struct {
	fetcher *Fetcher
	limiter *rate.Limiter
	maxURLs int
}

// NewEnricher fetches sequentially, at most perSecond requests per second.
// A non-positive rate disables pacing.
func NewEnricher(f *Fetcher, maxURLs int, perSecond float64) *Enricher {
	if maxURLs <= 0 {
		maxURLs = DefaultMaxURLs
	}
	limit := rate.Inf
	if perSecond > 0 {
		limit = rate.Limit(perSecond)
	}
	return &Enricher{fetcher: f, limiter: rate.NewLimiter(limit, 1), maxURLs: maxURLs}
}

func (e *Enricher) NewBudget() *Budget { return NewBudget(e.maxURLs) }

// Enrich appends the content of each URL found in text, spending from
// budget. A nil budget allows the per-submission maximum for this call
// alone. Text without URLs, or with an exhausted budget, is returned as is.
func (e *Enricher) Enrich(ctx context.Context, text string, budget *Budget) string {
	if strings.TrimSpace(text) == "" {
		return text
	}
	urls := ExtractURLs(text)
	if len(urls) == 0 {
		return text
	}
	if budget == nil {
		budget = e.NewBudget()
	}
	if budget.Remaining() == 0 {
		return text
	}

	var b strings.Builder
	b.WriteString(text)
	b.WriteString(enrichmentHeader)
	for _, u := range urls {
		if !budget.take() {
			break
		}
		if err := e.limiter.Wait(ctx); err != nil {
			b.WriteString("\nError accessing " + u + ": " + err.Error() + "\n")
			continue
		}
		b.WriteString("\n")
		b.WriteString(e.fetcher.Fetch(ctx, u))
		b.WriteString("\n")
	}
	return b.String()
}
