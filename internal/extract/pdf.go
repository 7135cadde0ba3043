package extract

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"unicode"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

var contentPagePattern = regexp.MustCompile(`page_(\d+)`)

// pdfText tries pdftotext when installed, then printable runs from the
// page streams pdfcpu decodes, then printable runs from the file bytes.
func (e *Extractor) pdfText(ctx context.Context, data []byte) (string, string, error) {
	dir, err := os.MkdirTemp("", "proposal-pdf-*")
	if err != nil {
		return "", "", err
	}
	defer os.RemoveAll(dir)

	in := filepath.Join(dir, "upload.pdf")
	if err := os.WriteFile(in, data, 0o600); err != nil {
		return "", "", err
	}

	if text, err := runPdfToText(ctx, in); err == nil && strings.TrimSpace(text) != "" {
		return text, "pdftotext", nil
	}

	if text, err := pdfcpuText(in, filepath.Join(dir, "content")); err == nil && text != "" {
		return text, "pdfcpu", nil
	} else if err != nil {
		e.log.WithError(err).Debug("pdfcpu content extraction failed")
	}

	if text := extractPrintableText(data); text != "" {
		return text, "byte-fallback", nil
	}
	return "", "", errors.New("no extractable text found")
}

// pdfcpuText decodes each page's content stream, which may be compressed
// in the file, and keeps its printable runs in page order.
func pdfcpuText(in, outDir string) (string, error) {
	if err := os.MkdirAll(outDir, 0o700); err != nil {
		return "", err
	}
	if err := api.ExtractContentFile(in, outDir, nil, model.NewDefaultConfiguration()); err != nil {
		return "", err
	}
	entries, err := os.ReadDir(outDir)
	if err != nil {
		return "", err
	}

	type page struct {
		num  int
		text string
	}
	var pages []page
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		raw, err := os.ReadFile(filepath.Join(outDir, entry.Name()))
		if err != nil {
			continue
		}
		num := 0
		if m := contentPagePattern.FindStringSubmatch(entry.Name()); len(m) == 2 {
			num, _ = strconv.Atoi(m[1])
		}
		if text := extractPrintableText(raw); text != "" {
			pages = append(pages, page{num: num, text: text})
		}
	}
	sort.SliceStable(pages, func(i, j int) bool { return pages[i].num < pages[j].num })

	texts := make([]string, 0, len(pages))
	for _, p := range pages {
		texts = append(texts, p.text)
	}
	return strings.Join(texts, "\n"), nil
}

func runPdfToText(ctx context.Context, path string) (string, error) {
	cmd := exec.CommandContext(ctx, "pdftotext", "-layout", path, "-")
	out, err := cmd.Output()
	if err != nil {
		return "", err
	}
	return string(out), nil
}

func extractPrintableText(blob []byte) string {
	var runs []string
	var b strings.Builder
	flush := func() {
		s := strings.TrimSpace(b.String())
		if len(s) >= 24 {
			runs = append(runs, s)
		}
		b.Reset()
	}
	for _, c := range blob {
		r := rune(c)
		if unicode.IsPrint(r) || r == '\n' || r == '\t' || r == '\r' {
			b.WriteRune(r)
			continue
		}
		flush()
	}
	flush()
	return strings.TrimSpace(strings.Join(runs, "\n"))
}
