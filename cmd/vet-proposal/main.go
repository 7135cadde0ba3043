package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/joelkehle/proposal-vetting/internal/config"
	"github.com/joelkehle/proposal-vetting/internal/extract"
	"github.com/joelkehle/proposal-vetting/internal/logger"
	"github.com/joelkehle/proposal-vetting/internal/metrics"
	"github.com/joelkehle/proposal-vetting/internal/proposal"
	"github.com/joelkehle/proposal-vetting/internal/vetting"
)

const apiKeyEnv = "PROPOSAL_VETTING_API_KEY"

const (
	exitOK      = 0
	exitFailure = 1
	exitInvalid = 2
)

// docFlags collects repeated -doc slot=path values.
type docFlags []string

func (d *docFlags) String() string { return strings.Join(*d, ",") }

func (d *docFlags) Set(v string) error {
	*d = append(*d, v)
	return nil
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr, os.Getenv)
	cancel()
	os.Exit(code)
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer, getenv func(string) string) int {
	fs := flag.NewFlagSet("vet-proposal", flag.ContinueOnError)
	fs.SetOutput(stderr)
	inputPath := fs.String("input", "", "Path to the proposal (.yaml, .yml or .json)")
	modeFlag := fs.String("mode", "light", "Analysis mode: light or pro")
	outputPath := fs.String("output", "", "Report path (defaults to <company>-report.pdf, or .txt when PDF rendering fails)")
	jsonOutputPath := fs.String("json-output", "", "Optional path to write the result envelope JSON")
	apiKey := fs.String("api-key", "", "AI provider key for pro mode (defaults to $"+apiKeyEnv+")")
	var docs docFlags
	fs.Var(&docs, "doc", "Supporting document as slot=path (repeatable)")
	if err := fs.Parse(args); err != nil {
		return exitFailure
	}

	if *inputPath == "" {
		fmt.Fprintln(stderr, "missing required -input")
		return exitFailure
	}
	mode, err := proposal.ParseMode(*modeFlag)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return exitFailure
	}
	key := *apiKey
	if key == "" {
		key = getenv(apiKeyEnv)
	}

	p, err := proposal.LoadFile(*inputPath)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return exitFailure
	}
	uploads, err := readDocs(docs)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return exitFailure
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(stderr, "load config: %v\n", err)
		return exitFailure
	}
	log, closeLog, err := logger.New(cfg.LogLevel, cfg.LogFile)
	if err != nil {
		fmt.Fprintf(stderr, "init logger: %v\n", err)
		return exitFailure
	}
	defer closeLog()
	if cfg.LogFile == "" {
		log.SetOutput(stderr)
	}

	pipeline, err := vetting.NewFromConfig(cfg, log, metrics.New())
	if err != nil {
		fmt.Fprintf(stderr, "build pipeline: %v\n", err)
		return exitFailure
	}

	res, err := pipeline.RunWithProgress(ctx, vetting.Submission{
		Proposal: p,
		Session:  proposal.Session{Mode: mode, Credential: key},
		Files:    uploads,
	}, func(_ vetting.Stage, message string) {
		fmt.Fprintln(stderr, message)
	})
	if err != nil {
		var verr *vetting.ValidationError
		if errors.As(err, &verr) {
			fmt.Fprintf(stderr, "missing required fields: %s\n", strings.Join(verr.Missing, ", "))
			return exitInvalid
		}
		fmt.Fprintln(stderr, err)
		return exitFailure
	}

	out := *outputPath
	if out == "" {
		out = defaultOutputPath(res)
	}
	if err := os.WriteFile(out, res.Report.Data, 0o644); err != nil {
		fmt.Fprintf(stderr, "write report: %v\n", err)
		return exitFailure
	}
	if *jsonOutputPath != "" {
		if err := writeResultJSON(*jsonOutputPath, res); err != nil {
			fmt.Fprintf(stderr, "write json output: %v\n", err)
			return exitFailure
		}
	}

	fmt.Fprintf(stdout, "Overall score: %.1f/100\n", res.Scorecard.Overall)
	if res.InsightsError != "" {
		fmt.Fprintf(stdout, "AI insights unavailable: %s\n", res.InsightsError)
	}
	fmt.Fprintf(stdout, "Report written to %s\n", out)
	return exitOK
}

func readDocs(docs docFlags) ([]vetting.Upload, error) {
	uploads := make([]vetting.Upload, 0, len(docs))
	for _, d := range docs {
		slotName, path, ok := strings.Cut(d, "=")
		if !ok || path == "" {
			return nil, fmt.Errorf("invalid -doc %q (want slot=path)", d)
		}
		slot, known := proposal.ParseDocSlot(slotName)
		if !known {
			return nil, fmt.Errorf("unknown document slot %q", slotName)
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
		uploads = append(uploads, vetting.Upload{
			Slot: slot,
			File: extract.File{Name: filepath.Base(path), Data: data},
		})
	}
	return uploads, nil
}

func defaultOutputPath(res vetting.Result) string {
	name := strings.ToLower(strings.TrimSpace(res.Proposal.CompanyName))
	name = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-':
			return r
		case r == ' ', r == '_':
			return '-'
		}
		return -1
	}, name)
	if name == "" {
		name = res.SubmissionID
	}
	return name + "-report" + res.Report.Extension()
}

func writeResultJSON(path string, res vetting.Result) error {
	b, err := json.MarshalIndent(res, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, b, 0o644)
}
