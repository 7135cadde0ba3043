package report

import (
	"context"
	"encoding/base64"
	"fmt"
	"html"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

const reportCSS = `
html,body,*{-webkit-print-color-adjust:exact !important;print-color-adjust:exact !important;}
body{font-family:"Helvetica Neue",Arial,sans-serif;font-size:11pt;color:#1c1917;margin:0;padding:0.6rem;}
.pdf-wrap{max-width:1000px;margin:0 auto;}
h1{color:#1f4788;text-align:center;font-size:24pt;margin-top:2.5in;}
h1 + h2{color:#1f4788;text-align:center;font-size:20pt;}
h2{color:#1f4788;border-bottom:2px solid #1f4788;padding-bottom:0.2rem;}
h3{color:#2c5282;}
table{width:100%;border-collapse:collapse;border:1px solid #a8a29e;font-size:0.85rem;margin:0.5rem 0 1rem;}
th,td{border:1px solid #a8a29e;padding:0.35rem 0.45rem;text-align:left;vertical-align:top;}
thead th{background:#1f4788;color:#fff;font-weight:700;}
.verdict{font-size:14pt;text-align:center;}
.verdict-buy{color:#15803d;} .verdict-hold{color:#c2410c;} .verdict-pass{color:#b91c1c;}
h2[data-page-break-before="true"]{break-before:page;page-break-before:always;}
@media print{ body{padding:0;} .pdf-wrap{max-width:none;} }
`

// ChromiumRenderer prints the HTML form of the report through a headless
// Chrome or Chromium, on the same page geometry as PDFRenderer.
type ChromiumRenderer struct {
	chromePath string
	timeout    time.Duration
	layout     pageLayout
}

// NewChromiumRenderer uses chromePath when set and otherwise looks in the
// usual install locations, falling back to chromedp's own lookup.
func NewChromiumRenderer(chromePath string) *ChromiumRenderer {
	if strings.TrimSpace(chromePath) == "" {
		chromePath = detectChromePath()
	}
	return &ChromiumRenderer{chromePath: chromePath, timeout: 30 * time.Second, layout: a4Layout}
}

func (r *ChromiumRenderer) Render(ctx context.Context, markdown string) ([]byte, error) {
	htmlDoc, err := buildHTML(markdown)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()
	browserCtx, closeBrowser := r.browser(ctx)
	defer closeBrowser()

	var pdf []byte
	params := r.printParams()
	if err := chromedp.Run(browserCtx,
		chromedp.Navigate("data:text/html;base64,"+base64.StdEncoding.EncodeToString([]byte(htmlDoc))),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.ActionFunc(func(ctx context.Context) error {
			out, _, err := params.Do(ctx)
			pdf = out
			return err
		}),
	); err != nil {
		return nil, fmt.Errorf("print report: %w", err)
	}
	if len(pdf) == 0 {
		return nil, fmt.Errorf("print report: browser returned no pdf")
	}
	return pdf, nil
}

// browser starts a headless instance that is torn down by the returned func.
func (r *ChromiumRenderer) browser(ctx context.Context) (context.Context, context.CancelFunc) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.NoSandbox,
		chromedp.DisableGPU,
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-extensions", true),
		chromedp.WindowSize(r.layout.widthPx(), r.layout.heightPx()),
	)
	if r.chromePath != "" {
		opts = append(opts, chromedp.ExecPath(r.chromePath))
	}
	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, opts...)
	taskCtx, cancelTask := chromedp.NewContext(allocCtx)
	return taskCtx, func() {
		cancelTask()
		cancelAlloc()
	}
}

// printParams mirrors the fpdf layout: A4, the same margins and a centered
// "Page N of M" footer in the bottom margin.
func (r *ChromiumRenderer) printParams() *page.PrintToPDFParams {
	l := r.layout
	footer := `<div style="width:100%;text-align:center;font-size:8px;font-style:italic;color:#666;">` +
		`Page <span class="pageNumber"></span> of <span class="totalPages"></span></div>`
	return page.PrintToPDF().
		WithPrintBackground(true).
		WithPreferCSSPageSize(false).
		WithDisplayHeaderFooter(true).
		WithHeaderTemplate(`<div></div>`).
		WithFooterTemplate(footer).
		WithPaperWidth(inches(l.width)).
		WithPaperHeight(inches(l.height)).
		WithMarginTop(inches(l.top)).
		WithMarginBottom(inches(l.bottom)).
		WithMarginLeft(inches(l.left)).
		WithMarginRight(inches(l.right))
}

func buildHTML(markdown string) (string, error) {
	var content strings.Builder
	md := goldmark.New(goldmark.WithExtensions(extension.GFM))
	if err := md.Convert([]byte(markdown), &content); err != nil {
		return "", fmt.Errorf("markdown convert: %w", err)
	}
	return "<!doctype html><html><head><meta charset='utf-8'><title>" +
		html.EscapeString(documentTitle(markdown)) + "</title>" +
		"<style>" + reportCSS + "</style></head><body><div class='pdf-wrap'>" +
		applyPrintLayoutHooks(content.String()) +
		"</div></body></html>", nil
}

func documentTitle(markdown string) string {
	for _, line := range strings.Split(markdown, "\n") {
		if name, ok := strings.CutPrefix(line, "## "); ok {
			return "Investment Analysis: " + strings.TrimSpace(name)
		}
	}
	return "Investment Analysis Report"
}

var (
	sectionBreakHeading = regexp.MustCompile(`<h2([^>]*)>\s*(Executive Summary|Key Financial Metrics|Business Overview|Team Analysis|AI Investment Analysis|Recommendations &amp; Action Items)\s*</h2>`)
	verdictLine         = regexp.MustCompile(`<p><strong>Recommendation: ([A-Z ]+)</strong></p>`)
)

// applyPrintLayoutHooks starts each major section on a new page and
// colors the AI verdict.
func applyPrintLayoutHooks(contentHTML string) string {
	out := sectionBreakHeading.ReplaceAllString(contentHTML, `<h2$1 data-page-break-before="true">$2</h2>`)
	return verdictLine.ReplaceAllStringFunc(out, func(m string) string {
		verdict := verdictLine.FindStringSubmatch(m)[1]
		class := "verdict-pass"
		switch {
		case strings.Contains(verdict, "BUY"):
			class = "verdict-buy"
		case strings.Contains(verdict, "HOLD"):
			class = "verdict-hold"
		}
		return `<p class="verdict ` + class + `"><strong>Recommendation: ` + verdict + `</strong></p>`
	})
}

func detectChromePath() string {
	candidates := []string{
		"/usr/bin/chromium-browser",
		"/usr/bin/chromium",
		"/usr/bin/google-chrome",
		"/Applications/Google Chrome.app/Contents/MacOS/Google Chrome",
	}
	for _, p := range candidates {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}
