package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/joelkehle/proposal-vetting/internal/extract"
	"github.com/joelkehle/proposal-vetting/internal/insights"
	"github.com/joelkehle/proposal-vetting/internal/proposal"
	"github.com/joelkehle/proposal-vetting/internal/report"
	"github.com/joelkehle/proposal-vetting/internal/scoring"
	"github.com/joelkehle/proposal-vetting/internal/vetting"
)

const (
	maxMultipartBytes = 32 << 20
	maxJSONBytes      = 4 << 20
)

// Vetter runs one submission end to end.
type Vetter interface {
	Run(ctx context.Context, sub vetting.Submission) (vetting.Result, error)
}

type Server struct {
	vetter  Vetter
	metrics http.Handler
	log     logrus.FieldLogger
}

type Option func(*Server)

// WithMetricsHandler mounts h at /metrics.
func WithMetricsHandler(h http.Handler) Option { return func(s *Server) { s.metrics = h } }

func WithLogger(log logrus.FieldLogger) Option { return func(s *Server) { s.log = log } }

func NewServer(v Vetter, opts ...Option) http.Handler {
	s := &Server{vetter: v, log: logrus.StandardLogger()}
	for _, opt := range opts {
		opt(s)
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/v1/vet", s.handleVet)
	mux.HandleFunc("/v1/score", s.handleScore)
	if s.metrics != nil {
		mux.Handle("/metrics", s.metrics)
	}
	return mux
}

// writeJSON encodes payload before writing anything. An encoding failure
// is answered with 500.
func writeJSON(w http.ResponseWriter, status int, payload any) error {
	body, err := json.Marshal(payload)
	w.Header().Set("Content-Type", "application/json")
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"failed to encode response"}` + "\n"))
		return err
	}
	w.WriteHeader(status)
	_, _ = w.Write(append(body, '\n'))
	return nil
}

func (s *Server) respond(w http.ResponseWriter, status int, payload any) {
	if err := writeJSON(w, status, payload); err != nil {
		s.log.WithError(err).Error("encode response")
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]any{"error": msg})
}

func writeMissing(w http.ResponseWriter, missing []string) {
	writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
		"error":   "missing required fields",
		"missing": missing,
	})
}

func methodOnly(w http.ResponseWriter, r *http.Request, method string) bool {
	if r.Method != method {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return false
	}
	return true
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if !methodOnly(w, r, http.MethodGet) {
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

type vetRequest struct {
	Proposal json.RawMessage `json:"proposal"`
	Mode     string          `json:"mode"`
	APIKey   string          `json:"api_key"`
}

type vetResponse struct {
	SubmissionID      string                   `json:"submission_id"`
	Scorecard         scoring.Scorecard        `json:"scorecard"`
	Recommendations   []scoring.Recommendation `json:"recommendations"`
	Insights          *insights.Insights       `json:"insights,omitempty"`
	InsightsError     string                   `json:"insights_error,omitempty"`
	InsightsDegraded  bool                     `json:"insights_degraded,omitempty"`
	ReportContentType string                   `json:"report_content_type"`
	Report            []byte                   `json:"report"`
	Metadata          vetting.Metadata         `json:"metadata"`
}

func (s *Server) handleVet(w http.ResponseWriter, r *http.Request) {
	if !methodOnly(w, r, http.MethodPost) {
		return
	}
	sub, err := readSubmission(w, r)
	if err != nil {
		writeError(w, readErrorStatus(err), err.Error())
		return
	}

	res, err := s.vetter.Run(r.Context(), sub)
	if err != nil {
		s.writeRunError(w, err)
		return
	}

	if strings.EqualFold(r.URL.Query().Get("format"), "pdf") {
		w.Header().Set("Content-Type", res.Report.ContentType)
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", reportFilename(res)))
		w.Header().Set("X-Submission-ID", res.SubmissionID)
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(res.Report.Data)
		return
	}

	s.respond(w, http.StatusOK, vetResponse{
		SubmissionID:      res.SubmissionID,
		Scorecard:         res.Scorecard,
		Recommendations:   nonNil(res.Recommendations),
		Insights:          res.Insights,
		InsightsError:     res.InsightsError,
		InsightsDegraded:  res.InsightsDegraded,
		ReportContentType: res.Report.ContentType,
		Report:            res.Report.Data,
		Metadata:          res.Metadata,
	})
}

func (s *Server) writeRunError(w http.ResponseWriter, err error) {
	var verr *vetting.ValidationError
	var cerr *vetting.CredentialError
	var serr *vetting.StageError
	switch {
	case errors.As(err, &verr):
		writeMissing(w, verr.Missing)
	case errors.As(err, &cerr):
		writeError(w, http.StatusBadRequest, cerr.Error())
	case errors.As(err, &serr) && serr.Stage == vetting.StageFiles:
		writeError(w, http.StatusBadRequest, serr.Err.Error())
	default:
		s.log.WithError(err).Error("vetting failed")
		writeError(w, http.StatusInternalServerError, "vetting failed")
	}
}

type scoreResponse struct {
	Scorecard       scoring.Scorecard        `json:"scorecard"`
	Band            string                   `json:"band"`
	Recommendations []scoring.Recommendation `json:"recommendations"`
}

func (s *Server) handleScore(w http.ResponseWriter, r *http.Request) {
	if !methodOnly(w, r, http.MethodPost) {
		return
	}
	blob, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxJSONBytes))
	if err != nil {
		writeError(w, readErrorStatus(err), "failed to read body")
		return
	}
	p, err := proposal.DecodeJSON(blob)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if missing := proposal.Validate(p); len(missing) > 0 {
		writeMissing(w, missing)
		return
	}
	card := scoring.Score(p)
	s.respond(w, http.StatusOK, scoreResponse{
		Scorecard:       card,
		Band:            report.Band(card.Overall),
		Recommendations: nonNil(scoring.Recommend(p, card.Metrics)),
	})
}

// readErrorStatus maps a body read failure to 413 when the body was over
// the limit and 400 otherwise.
func readErrorStatus(err error) int {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) || errors.Is(err, multipart.ErrMessageTooLarge) {
		return http.StatusRequestEntityTooLarge
	}
	return http.StatusBadRequest
}

// readSubmission accepts either a JSON envelope or a multipart form whose
// file parts are named after document slots.
func readSubmission(w http.ResponseWriter, r *http.Request) (vetting.Submission, error) {
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		r.Body = http.MaxBytesReader(w, r.Body, maxMultipartBytes)
		return readMultipart(r)
	}
	blob, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxJSONBytes))
	if err != nil {
		return vetting.Submission{}, fmt.Errorf("failed to read body: %w", err)
	}
	var req vetRequest
	if err := json.Unmarshal(blob, &req); err != nil {
		return vetting.Submission{}, fmt.Errorf("invalid json body: %v", err)
	}
	return buildSubmission(req.Proposal, req.Mode, req.APIKey)
}

func readMultipart(r *http.Request) (vetting.Submission, error) {
	if err := r.ParseMultipartForm(maxMultipartBytes); err != nil {
		return vetting.Submission{}, fmt.Errorf("invalid multipart form: %w", err)
	}
	sub, err := buildSubmission(json.RawMessage(r.FormValue("proposal")), r.FormValue("mode"), r.FormValue("api_key"))
	if err != nil {
		return sub, err
	}
	for field, headers := range r.MultipartForm.File {
		for _, fh := range headers {
			f, err := fh.Open()
			if err != nil {
				return sub, fmt.Errorf("open upload %s: %v", fh.Filename, err)
			}
			data, err := io.ReadAll(f)
			f.Close()
			if err != nil {
				return sub, fmt.Errorf("read upload %s: %v", fh.Filename, err)
			}
			sub.Files = append(sub.Files, vetting.Upload{
				Slot: proposal.DocSlot(field),
				File: extract.File{
					Name:     fh.Filename,
					MIMEType: fh.Header.Get("Content-Type"),
					Data:     data,
				},
			})
		}
	}
	return sub, nil
}

func buildSubmission(raw json.RawMessage, mode, apiKey string) (vetting.Submission, error) {
	var sub vetting.Submission
	m, err := proposal.ParseMode(mode)
	if err != nil {
		return sub, err
	}
	sub.Session = proposal.Session{Mode: m, Credential: apiKey}
	if len(raw) == 0 {
		return sub, nil
	}
	p, err := proposal.DecodeJSON(raw)
	if err != nil {
		return sub, err
	}
	sub.Proposal = p
	return sub, nil
}

func reportFilename(res vetting.Result) string {
	name := strings.TrimSpace(res.Proposal.CompanyName)
	if name == "" {
		name = res.SubmissionID
	}
	name = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		case r == ' ':
			return '_'
		}
		return -1
	}, name)
	return name + "_investment_report" + res.Report.Extension()
}

func nonNil(recs []scoring.Recommendation) []scoring.Recommendation {
	if recs == nil {
		return []scoring.Recommendation{}
	}
	return recs
}
