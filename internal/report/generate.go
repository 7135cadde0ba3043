package report

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/joelkehle/proposal-vetting/internal/metrics"
)

const (
	ContentTypePDF  = "application/pdf"
	ContentTypeText = "text/plain; charset=utf-8"

	RendererFPDF     = "fpdf"
	RendererChromium = "chromium"
)

// Renderer turns report markdown into a PDF.
type Renderer interface {
	Render(ctx context.Context, markdown string) ([]byte, error)
}

// NewRenderer picks the PDF backend by name.
func NewRenderer(name, chromePath string) (Renderer, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", RendererFPDF:
		return NewPDFRenderer(), nil
	case RendererChromium:
		return NewChromiumRenderer(chromePath), nil
	default:
		return nil, fmt.Errorf("unknown report renderer %q", name)
	}
}

// Document is a finished report. Fallback is set when the PDF step failed
// and Data holds the plain-text summary instead.
type Document struct {
	ContentType string
	Data        []byte
	Fallback    bool
}

func (d Document) Extension() string {
	if d.ContentType == ContentTypePDF {
		return ".pdf"
	}
	return ".txt"
}

type Generator struct {
	renderer Renderer
	log      logrus.FieldLogger
	metrics  *metrics.Recorder
	now      func() time.Time
}

type GeneratorOption func(*Generator)

func WithLogger(log logrus.FieldLogger) GeneratorOption {
	return func(g *Generator) { g.log = log }
}

func WithMetrics(m *metrics.Recorder) GeneratorOption {
	return func(g *Generator) { g.metrics = m }
}

func WithClock(now func() time.Time) GeneratorOption {
	return func(g *Generator) { g.now = now }
}

func NewGenerator(r Renderer, opts ...GeneratorOption) *Generator {
	g := &Generator{
		renderer: r,
		log:      logrus.StandardLogger(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Generate always returns a document. Any renderer failure, panics
// included, is logged and answered with PlainText.
func (g *Generator) Generate(ctx context.Context, in Input) Document {
	if in.GeneratedAt.IsZero() {
		in.GeneratedAt = g.now()
	}
	data, err := g.render(ctx, in)
	if err == nil && len(data) > 0 {
		return Document{ContentType: ContentTypePDF, Data: data}
	}
	if err == nil {
		err = errors.New("renderer returned an empty document")
	}
	g.log.WithError(err).WithField("submission_id", in.SubmissionID).Warn("pdf rendering failed; serving plain-text report")
	g.metrics.RenderFallback()
	return Document{ContentType: ContentTypeText, Data: []byte(PlainText(in)), Fallback: true}
}

func (g *Generator) render(ctx context.Context, in Input) (data []byte, err error) {
	defer func() {
		if r := recover(); r != nil {
			data, err = nil, fmt.Errorf("renderer panic: %v", r)
		}
	}()
	if g.renderer == nil {
		return nil, errors.New("no renderer configured")
	}
	return g.renderer.Render(ctx, BuildMarkdown(in))
}
