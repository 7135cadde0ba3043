package report

import (
	"math"
	"strings"
	"testing"
)

func TestApplyPrintLayoutHooksBreaksBeforeMajorSections(t *testing.T) {
	in := "<h1>INVESTMENT ANALYSIS REPORT</h1><h2>Acme</h2><h2>Executive Summary</h2><p>x</p><h2>Recommendations &amp; Action Items</h2>"
	out := applyPrintLayoutHooks(in)
	if !strings.Contains(out, `<h2 data-page-break-before="true">Executive Summary</h2>`) {
		t.Fatalf("expected page break before executive summary, got: %s", out)
	}
	if !strings.Contains(out, `<h2 data-page-break-before="true">Recommendations &amp; Action Items</h2>`) {
		t.Fatalf("expected page break before recommendations, got: %s", out)
	}
	if !strings.Contains(out, `<h2>Acme</h2>`) {
		t.Fatalf("company heading must stay on the cover, got: %s", out)
	}
}

func TestApplyPrintLayoutHooksNoopWhenHeadingMissing(t *testing.T) {
	in := "<h2>Market Opportunity</h2><p>x</p>"
	out := applyPrintLayoutHooks(in)
	if out != in {
		t.Fatalf("expected no change when heading absent, got: %s", out)
	}
}

func TestApplyPrintLayoutHooksColorsVerdict(t *testing.T) {
	cases := map[string]string{
		"STRONG BUY": "verdict-buy",
		"HOLD":       "verdict-hold",
		"PASS":       "verdict-pass",
	}
	for verdict, class := range cases {
		out := applyPrintLayoutHooks("<p><strong>Recommendation: " + verdict + "</strong></p>")
		if !strings.Contains(out, `class="verdict `+class+`"`) {
			t.Fatalf("verdict %s: expected class %s, got: %s", verdict, class, out)
		}
	}
}

func TestChromiumPrintParamsMatchFPDFLayout(t *testing.T) {
	p := NewChromiumRenderer("/opt/chrome").printParams()
	near := func(got, want float64) bool { return math.Abs(got-want) < 0.001 }
	if !near(p.PaperWidth, 8.268) || !near(p.PaperHeight, 11.693) {
		t.Fatalf("expected A4 paper, got %.3fx%.3f in", p.PaperWidth, p.PaperHeight)
	}
	if !near(p.MarginLeft, 10/25.4) || !near(p.MarginTop, 12/25.4) || !near(p.MarginBottom, 15/25.4) {
		t.Fatalf("margins differ from the fpdf layout: %+v", p)
	}
	if !p.DisplayHeaderFooter || !strings.Contains(p.FooterTemplate, `class="totalPages"`) {
		t.Fatalf("expected a page-count footer, got %q", p.FooterTemplate)
	}
}

func TestPageLayoutPixelSize(t *testing.T) {
	if w, h := a4Layout.widthPx(), a4Layout.heightPx(); w != 793 || h != 1122 {
		t.Fatalf("unexpected A4 pixel size %dx%d", w, h)
	}
	if got := a4Layout.contentWidth(); got != 190 {
		t.Fatalf("expected 190mm content width, got %v", got)
	}
}
