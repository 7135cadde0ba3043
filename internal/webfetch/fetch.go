// Package webfetch pulls readable text from URLs embedded in free-text
// proposal fields. Fetch failures never escape: each one becomes a short
// message that stands in for the page content.
package webfetch

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	readability "github.com/go-shiori/go-readability"
	"github.com/sirupsen/logrus"

	"github.com/joelkehle/proposal-vetting/internal/extract"
	"github.com/joelkehle/proposal-vetting/internal/metrics"
)

const (
	DefaultTimeout  = 10 * time.Second
	DefaultMaxChars = 3000
	UserAgent       = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36"

	maxBodyBytes = 10 * 1024 * 1024
)

var urlPattern = regexp.MustCompile(`http[s]?://(?:[a-zA-Z]|[0-9]|[$-_@.&+]|[!*\\(\\),]|(?:%[0-9a-fA-F][0-9a-fA-F]))+`)

// ExtractURLs returns every URL in text, in order of appearance.
func ExtractURLs(text string) []string {
	return urlPattern.FindAllString(text, -1)
}

type Fetcher struct {
	client    *http.Client
	extractor *extract.Extractor
	maxChars  int
	log       logrus.FieldLogger
	metrics   *metrics.Recorder
}

type FetcherOption func(*Fetcher)

func WithHTTPClient(c *http.Client) FetcherOption {
	return func(f *Fetcher) { f.client = c }
}

func WithTimeout(d time.Duration) FetcherOption {
	return func(f *Fetcher) {
		if d > 0 {
			f.client.Timeout = d
		}
	}
}

func WithMaxChars(n int) FetcherOption {
	return func(f *Fetcher) {
		if n > 0 {
			f.maxChars = n
		}
	}
}

func WithLogger(log logrus.FieldLogger) FetcherOption {
	return func(f *Fetcher) { f.log = log }
}

func WithMetrics(m *metrics.Recorder) FetcherOption {
	return func(f *Fetcher) { f.metrics = m }
}

func NewFetcher(ex *extract.Extractor, opts ...FetcherOption) *Fetcher {
	f := &Fetcher{
		client:    &http.Client{Timeout: DefaultTimeout},
		extractor: ex,
		maxChars:  DefaultMaxChars,
		log:       logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(f)
	}
	if f.extractor == nil {
		f.extractor = extract.NewExtractor(f.log)
	}
	return f
}

// Fetch returns the readable content at rawURL prefixed with its source,
// or a message describing why it could not be read.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) string {
	log := f.log.WithField("url", rawURL)
	out, result := f.fetch(ctx, rawURL)
	f.metrics.URLFetch(result)
	if result != "ok" {
		log.WithField("result", result).Debug("url fetch degraded")
	}
	return out
}

func (f *Fetcher) fetch(ctx context.Context, rawURL string) (string, string) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return fmt.Sprintf("Error accessing %s: %v", rawURL, err), "error"
	}
	req.Header.Set("User-Agent", UserAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		if isTimeout(err) {
			return fmt.Sprintf("Timeout accessing %s", rawURL), "timeout"
		}
		return fmt.Sprintf("Error accessing %s: %v", rawURL, err), "error"
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Sprintf("Error accessing %s: %s", rawURL, statusError(resp, rawURL)), "error"
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		if isTimeout(err) {
			return fmt.Sprintf("Timeout accessing %s", rawURL), "timeout"
		}
		return fmt.Sprintf("Error accessing %s: %v", rawURL, err), "error"
	}

	contentType := strings.ToLower(resp.Header.Get("Content-Type"))
	switch {
	case strings.Contains(contentType, "application/pdf"):
		text := f.extractor.ExtractText(ctx, extract.File{Name: "remote.pdf", MIMEType: extract.MIMEPDF, Data: body})
		return fmt.Sprintf("Content from PDF at %s:\n%s...", rawURL, f.clip(text)), "ok"
	case strings.Contains(contentType, "text/html"):
		text, err := pageText(body, resp.Request.URL)
		if err != nil {
			return fmt.Sprintf("Error processing content from %s: %v", rawURL, err), "error"
		}
		return fmt.Sprintf("Content from %s:\n%s...", rawURL, f.clip(text)), "ok"
	case strings.Contains(contentType, "text/plain"):
		return fmt.Sprintf("Content from %s:\n%s...", rawURL, f.clip(string(body))), "ok"
	default:
		return fmt.Sprintf("Unsupported content type at %s: %s", rawURL, contentType), "unsupported"
	}
}

func (f *Fetcher) clip(s string) string {
	r := []rune(s)
	if len(r) <= f.maxChars {
		return s
	}
	return string(r[:f.maxChars])
}

func statusError(resp *http.Response, rawURL string) string {
	kind := "Server Error"
	if resp.StatusCode < 500 {
		kind = "Client Error"
	}
	return fmt.Sprintf("%d %s: %s for url: %s", resp.StatusCode, kind, http.StatusText(resp.StatusCode), rawURL)
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// pageText prefers a main content container, then the whole body, then a
// readability pass over the raw document.
func pageText(body []byte, pageURL *url.URL) (string, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	doc.Find("script, style, noscript, nav, header, footer").Remove()

	var text string
	if content := doc.Find("main, article, div.content, div.main-content, div.post-content").First(); content.Length() > 0 {
		text = collapse(content.Text())
	}
	if text == "" {
		text = collapse(doc.Find("body").Text())
	}
	if text != "" {
		return text, nil
	}

	article, err := readability.FromReader(bytes.NewReader(body), pageURL)
	if err != nil {
		return "", nil
	}
	return collapse(article.TextContent), nil
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
