package insights

import (
	"context"
	"errors"
	"strings"
	"unicode/utf8"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/joelkehle/proposal-vetting/internal/metrics"
	"github.com/joelkehle/proposal-vetting/internal/proposal"
)

// CredentialPrefix is the literal every accepted API key starts with.
const CredentialPrefix = "sk-"

var (
	ErrMissingCredential = errors.New("Please provide an API key for Pro mode analysis.")
	ErrCredentialFormat  = errors.New("Invalid API key format. API keys should start with 'sk-'")
)

// CheckCredential validates the key before any network call is made. The
// key is checked exactly as given.
func CheckCredential(key string) error {
	if key == "" {
		return ErrMissingCredential
	}
	if !strings.HasPrefix(key, CredentialPrefix) {
		return ErrCredentialFormat
	}
	return nil
}

// CallError is a collaborator failure rendered as a message fit to show
// the submitter. The underlying error is kept for logs.
type CallError struct {
	Message string
	Err     error
}

func (e *CallError) Error() string { return e.Message }
func (e *CallError) Unwrap() error { return e.Err }

func classifyCallError(err error) *CallError {
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "api_key"), strings.Contains(msg, "api key"),
		strings.Contains(msg, "401"), strings.Contains(msg, "authentication"):
		return &CallError{Message: "Invalid API key. Please check your API key and try again.", Err: err}
	case strings.Contains(msg, "rate limit"), strings.Contains(msg, "rate_limit"),
		strings.Contains(msg, "429"), strings.Contains(msg, "too many requests"):
		return &CallError{Message: "API rate limit reached. Please wait a moment and try again.", Err: err}
	default:
		return &CallError{Message: "AI analysis failed: " + err.Error(), Err: err}
	}
}

type Analyst struct {
	newCaller CallerFactory
	limiter   *rate.Limiter
	log       logrus.FieldLogger
	metrics   *metrics.Recorder
}

type AnalystOption func(*Analyst)

func WithLogger(log logrus.FieldLogger) AnalystOption {
	return func(a *Analyst) { a.log = log }
}

func WithMetrics(m *metrics.Recorder) AnalystOption {
	return func(a *Analyst) { a.metrics = m }
}

// WithRequestsPerMinute paces outbound model calls across submissions.
func WithRequestsPerMinute(rpm int) AnalystOption {
	return func(a *Analyst) {
		if rpm > 0 {
			a.limiter = rate.NewLimiter(rate.Limit(float64(rpm)/60.0), 1)
		}
	}
}

func NewAnalyst(factory CallerFactory, opts ...AnalystOption) *Analyst {
	a := &Analyst{
		newCaller: factory,
		limiter:   rate.NewLimiter(rate.Inf, 1),
		log:       logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Analyze asks the model for an assessment of p. Credential problems and
// collaborator failures come back as errors; an unreadable reply does not,
// it yields a Result with Fallback set.
func (a *Analyst) Analyze(ctx context.Context, p proposal.Proposal, credential string) (Result, error) {
	if err := CheckCredential(credential); err != nil {
		return Result{}, err
	}
	caller, err := a.newCaller(ctx, credential)
	if err != nil {
		return Result{}, classifyCallError(err)
	}
	if err := a.limiter.Wait(ctx); err != nil {
		return Result{}, &CallError{Message: "AI analysis failed: " + err.Error(), Err: err}
	}

	raw, err := caller.Complete(ctx, systemPrompt, BuildPrompt(p))
	if err != nil {
		ce := classifyCallError(err)
		a.log.WithError(err).Warn("ai collaborator call failed")
		a.metrics.AIFallback("transport")
		return Result{}, ce
	}

	res := Inspect(raw)
	switch {
	case res.Fallback:
		a.log.WithField("response_prefix", prefix(raw, 500)).Warn("ai response was not parseable json; using fallback insights")
		a.metrics.AIFallback("parse")
	case len(res.Deviations) > 0:
		a.log.WithField("deviations", res.Deviations).Info("ai response deviates from expected schema")
		a.metrics.AIFallback("schema")
	}
	return res, nil
}

// prefix cuts s to at most n bytes without splitting a rune.
func prefix(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n] + "..."
}
