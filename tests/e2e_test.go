//go:build integration

package tests

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/joelkehle/proposal-vetting/internal/config"
	"github.com/joelkehle/proposal-vetting/internal/httpapi"
	"github.com/joelkehle/proposal-vetting/internal/logger"
	"github.com/joelkehle/proposal-vetting/internal/metrics"
	"github.com/joelkehle/proposal-vetting/internal/vetting"
)

// minimalPDF returns a valid PDF whose single page carries a few lines of
// financial text.
func minimalPDF() []byte {
	content := `%PDF-1.0
1 0 obj
<< /Type /Catalog /Pages 2 0 R >>
endobj
2 0 obj
<< /Type /Pages /Kids [3 0 R] /Count 1 >>
endobj
3 0 obj
<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792]
   /Contents 4 0 R /Resources << /Font << /F1 5 0 R >> >> >>
endobj
4 0 obj
<< /Length 200 >>
stream
BT
/F1 12 Tf
72 720 Td
(Acme Analytics Financial Model FY2025) Tj
0 -20 Td
(Annual recurring revenue grew from 80k to 240k.) Tj
0 -20 Td
(Gross margin held at 78 percent.) Tj
ET
endstream
endobj
5 0 obj
<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica >>
endobj
xref
0 6
0000000000 65535 f
0000000009 00000 n
0000000058 00000 n
0000000115 00000 n
0000000266 00000 n
0000000518 00000 n
trailer
<< /Size 6 /Root 1 0 R >>
startxref
595
%%EOF`
	return []byte(content)
}

const cannedInsights = `Here is my analysis:
` + "```json" + `
{
  "investment_thesis": "Workflow product with strong unit economics.",
  "investment_recommendation": "BUY",
  "valuation_assessment": "Fair for the stage",
  "key_strengths": ["Retention", "Founders", "Margins"],
  "key_concerns": ["Runway", "Concentration"],
  "due_diligence_priorities": ["Cohort data", "Pipeline"],
  "growth_potential": "HIGH",
  "team_assessment": "Experienced",
  "market_timing": "Good",
  "competitive_position": "Differentiated",
  "financial_health": "Adequate",
  "risk_assessment": "MEDIUM - execution risk",
  "recommended_terms": "Standard seed terms",
  "post_investment_support": ["Hiring"],
  "comparable_exits": "Mid-market BI acquisitions",
  "investment_score": 76
}
` + "```"

// fakeChatServer mimics the OpenAI chat completions endpoint.
func fakeChatServer(t *testing.T, calls *atomic.Int32) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/chat/completions") {
			w.WriteHeader(404)
			return
		}
		if got := r.Header.Get("Authorization"); got != "Bearer sk-e2e-test" {
			w.WriteHeader(401)
			return
		}
		calls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"id":      "chatcmpl-e2e",
			"object":  "chat.completion",
			"created": time.Now().Unix(),
			"model":   "gpt-4",
			"choices": []map[string]any{{
				"index":         0,
				"message":       map[string]any{"role": "assistant", "content": cannedInsights},
				"finish_reason": "stop",
			}},
			"usage": map[string]any{"prompt_tokens": 10, "completion_tokens": 10, "total_tokens": 20},
		})
	}))
}

func fakeWebsite(t *testing.T) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprint(w, `<html><body><nav>menu</nav><main><h1>Acme Demo</h1><p>Live dashboards for finance teams.</p></main></body></html>`)
	}))
}

func proposalJSON(demoURL string) string {
	p := map[string]any{
		"company_name":          "Acme Analytics",
		"industry":              "SaaS",
		"stage":                 "Early Revenue",
		"problem_solution":      "Finance teams lose days to manual reporting. Demo: " + demoURL,
		"market_info":           "Mid-market finance teams.",
		"business_model_desc":   "Per-seat subscription.",
		"uniqueness":            "Native ERP connectors.",
		"team_experience":       "Two prior exits.",
		"team_structure":        "CEO, CTO, 4 engineers.",
		"funding_seeking":       1500000,
		"use_of_funds":          "Hiring and go-to-market.",
		"cac":                   100,
		"ltv":                   400,
		"burn_rate":             50000,
		"runway_months":         12,
		"current_mrr":           20000,
		"arr":                   240000,
		"competitors":           "Incumbent BI suites.",
		"competitive_advantage": "Time to value under a day.",
		"customer_acquisition":  "Outbound plus partner channel.",
		"other_risks":           "Key person dependency.",
	}
	b, _ := json.Marshal(p)
	return string(b)
}

func TestE2EProSubmission(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// --- 1. Collaborators: a chat endpoint and a website to enrich from ---
	var chatCalls atomic.Int32
	chat := fakeChatServer(t, &chatCalls)
	defer chat.Close()
	site := fakeWebsite(t)
	defer site.Close()

	// --- 2. Start the service in-process with production wiring ---
	cfg := config.New()
	cfg.AIBaseURL = chat.URL
	cfg.FetchRequestsPerSecond = 0
	rec := metrics.New()
	pipeline, err := vetting.NewFromConfig(cfg, logger.Discard(), rec)
	if err != nil {
		t.Fatalf("build pipeline: %v", err)
	}
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	srv := &http.Server{Handler: httpapi.NewServer(pipeline, httpapi.WithLogger(logger.Discard()), httpapi.WithMetricsHandler(rec.Handler()))}
	go srv.Serve(ln)
	defer srv.Close()
	baseURL := "http://" + ln.Addr().String()

	// --- 3. Multipart submission with a financial PDF ---
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	_ = writer.WriteField("proposal", proposalJSON(site.URL+"/demo"))
	_ = writer.WriteField("mode", "pro")
	_ = writer.WriteField("api_key", "sk-e2e-test")
	part, err := writer.CreateFormFile("financial_doc", "model.pdf")
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	if _, err := part.Write(minimalPDF()); err != nil {
		t.Fatalf("write pdf to form: %v", err)
	}
	writer.Close()

	req, _ := http.NewRequestWithContext(ctx, http.MethodPost, baseURL+"/v1/vet", &body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("POST /v1/vet: %v", err)
	}
	respBody, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if resp.StatusCode != 200 {
		t.Fatalf("POST /v1/vet returned %d: %s", resp.StatusCode, string(respBody))
	}

	// --- 4. Check the envelope ---
	var out struct {
		SubmissionID      string `json:"submission_id"`
		ReportContentType string `json:"report_content_type"`
		Report            []byte `json:"report"`
		InsightsError     string `json:"insights_error"`
		Insights          *struct {
			Recommendation string `json:"investment_recommendation"`
			Score          int    `json:"investment_score"`
		} `json:"insights"`
		Metadata vetting.Metadata `json:"metadata"`
	}
	if err := json.Unmarshal(respBody, &out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if out.SubmissionID == "" {
		t.Fatal("response missing submission id")
	}
	if out.InsightsError != "" {
		t.Fatalf("unexpected insights error: %s", out.InsightsError)
	}
	if out.Insights == nil || out.Insights.Recommendation != "BUY" || out.Insights.Score != 76 {
		t.Fatalf("unexpected insights: %+v", out.Insights)
	}
	if chatCalls.Load() != 1 {
		t.Fatalf("expected one chat call, got %d", chatCalls.Load())
	}
	if out.Metadata.URLsFetched != 1 {
		t.Fatalf("expected one enriched url, got %d", out.Metadata.URLsFetched)
	}
	if out.ReportContentType != "application/pdf" || !bytes.HasPrefix(out.Report, []byte("%PDF-")) {
		t.Fatalf("expected a pdf report, got %s (%d bytes)", out.ReportContentType, len(out.Report))
	}

	// --- 5. Metrics reflect the run ---
	resp, err = http.Get(baseURL + "/metrics")
	if err != nil {
		t.Fatalf("GET /metrics: %v", err)
	}
	metricsBody, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	for _, want := range []string{
		`proposal_vetting_submissions_total{mode="pro",outcome="ok"} 1`,
		`proposal_vetting_url_fetches_total{result="ok"} 1`,
	} {
		if !bytes.Contains(metricsBody, []byte(want)) {
			t.Errorf("metrics missing %q", want)
		}
	}

	t.Logf("E2E passed: submission %s vetted with AI insights", out.SubmissionID)
}
