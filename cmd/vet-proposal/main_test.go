package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const proposalYAML = `company_name: Acme Analytics
industry: SaaS
stage: Early Revenue
problem_solution: Finance teams lose days to manual reporting.
market_info: Mid-market finance.
business_model_desc: Per-seat subscription.
uniqueness: ERP connectors.
team_experience: Two exits.
team_structure: CEO, CTO, 4 engineers.
funding_seeking: 1500000
use_of_funds: Hiring.
cac: 100
ltv: 400
burn_rate: 50000
runway_months: 12
competitors: BI suites.
competitive_advantage: Time to value.
customer_acquisition: Outbound.
other_risks: Key person.
`

func noEnv(string) string { return "" }

func setup(t *testing.T, input string) (dir, inputPath string) {
	t.Helper()
	t.Setenv("PROPOSAL_VETTING_CONFIG", "")
	t.Setenv("PROPOSAL_VETTING_RENDERER", "fpdf")
	t.Setenv("PROPOSAL_VETTING_LOG_LEVEL", "error")
	dir = t.TempDir()
	inputPath = filepath.Join(dir, "proposal.yaml")
	require.NoError(t, os.WriteFile(inputPath, []byte(input), 0o644))
	return dir, inputPath
}

func TestRunWritesReportAndJSON(t *testing.T) {
	dir, in := setup(t, proposalYAML)
	notes := filepath.Join(dir, "notes.txt")
	require.NoError(t, os.WriteFile(notes, []byte("Q3 revenue up 40%"), 0o644))
	out := filepath.Join(dir, "report.pdf")
	jsonOut := filepath.Join(dir, "result.json")

	var stdout, stderr bytes.Buffer
	code := run(context.Background(), []string{
		"-input", in,
		"-doc", "financial_doc=" + notes,
		"-output", out,
		"-json-output", jsonOut,
	}, &stdout, &stderr, noEnv)
	require.Equal(t, exitOK, code, stderr.String())

	pdf, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(pdf, []byte("%PDF-")))
	assert.Contains(t, stdout.String(), "Report written to "+out)
	assert.Contains(t, stderr.String(), "Calculating metrics and scores...")

	blob, err := os.ReadFile(jsonOut)
	require.NoError(t, err)
	var env map[string]any
	require.NoError(t, json.Unmarshal(blob, &env))
	assert.NotEmpty(t, env["submission_id"])
	assert.Contains(t, env, "scorecard")
}

func TestRunMissingFieldsExitsTwo(t *testing.T) {
	_, in := setup(t, "company_name: Acme\n")
	var stdout, stderr bytes.Buffer
	code := run(context.Background(), []string{"-input", in}, &stdout, &stderr, noEnv)
	assert.Equal(t, exitInvalid, code)
	assert.Contains(t, stderr.String(), "missing required fields: problem_solution, market_info")
}

func TestRunProWithoutKeyFails(t *testing.T) {
	dir, in := setup(t, proposalYAML)
	var stdout, stderr bytes.Buffer
	code := run(context.Background(), []string{"-input", in, "-mode", "pro", "-output", filepath.Join(dir, "r.pdf")}, &stdout, &stderr, noEnv)
	assert.Equal(t, exitFailure, code)
	assert.Contains(t, stderr.String(), "Please provide an API key for Pro mode analysis.")
}

func TestRunRejectsBadDocFlag(t *testing.T) {
	_, in := setup(t, proposalYAML)
	var stdout, stderr bytes.Buffer
	for _, doc := range []string{"financial_doc", "pitch_deck=/tmp/x.pdf"} {
		stderr.Reset()
		code := run(context.Background(), []string{"-input", in, "-doc", doc}, &stdout, &stderr, noEnv)
		assert.Equal(t, exitFailure, code, doc)
	}
	assert.Contains(t, stderr.String(), `unknown document slot "pitch_deck"`)
}

func TestDefaultOutputPathUsesCompanySlug(t *testing.T) {
	dir, in := setup(t, proposalYAML)
	t.Chdir(dir)
	var stdout, stderr bytes.Buffer
	code := run(context.Background(), []string{"-input", in}, &stdout, &stderr, noEnv)
	require.Equal(t, exitOK, code, stderr.String())
	_, err := os.Stat(filepath.Join(dir, "acme-analytics-report.pdf"))
	assert.NoError(t, err)
}
