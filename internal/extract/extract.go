package extract

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/gabriel-vasile/mimetype"
	"github.com/sirupsen/logrus"
)

const (
	MIMEPDF  = "application/pdf"
	MIMEDOCX = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	MIMEText = "text/plain"

	maxUploadBytes = 20 * 1024 * 1024
	maxTextRunes   = 100000
)

// UnsupportedMessage is returned in place of text for unknown file types.
const UnsupportedMessage = "Unsupported file type. Please upload PDF, DOCX, or TXT files."

type Kind string

const (
	KindPDF     Kind = "PDF"
	KindDOCX    Kind = "DOCX"
	KindText    Kind = "TXT"
	KindUnknown Kind = ""
)

type File struct {
	Name     string
	MIMEType string
	Data     []byte
}

type Result struct {
	Text      string
	Kind      Kind
	Method    string
	Truncated bool
}

var ErrUnsupported = errors.New("unsupported file type")

// Error is a failed read of a supported file type.
type Error struct {
	Kind Kind
	Err  error
}

func (e *Error) Error() string { return fmt.Sprintf("Error reading %s: %v", e.Kind, e.Err) }
func (e *Error) Unwrap() error { return e.Err }

type Extractor struct {
	log logrus.FieldLogger
}

func NewExtractor(log logrus.FieldLogger) *Extractor {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Extractor{log: log}
}

// ExtractText never fails: read errors and unsupported types come back as
// the descriptive message that takes the document's place.
func (e *Extractor) ExtractText(ctx context.Context, f File) string {
	res, err := e.Extract(ctx, f)
	switch {
	case errors.Is(err, ErrUnsupported):
		return UnsupportedMessage
	case err != nil:
		e.log.WithError(err).WithField("file", f.Name).Warn("document extraction failed")
		return err.Error()
	}
	return res.Text
}

func (e *Extractor) Extract(ctx context.Context, f File) (Result, error) {
	kind := DetectKind(f)
	if kind == KindUnknown {
		return Result{}, ErrUnsupported
	}
	if len(f.Data) > maxUploadBytes {
		return Result{}, &Error{Kind: kind, Err: fmt.Errorf("file too large: %d bytes", len(f.Data))}
	}

	var (
		text   string
		method string
		err    error
	)
	switch kind {
	case KindPDF:
		text, method, err = e.pdfText(ctx, f.Data)
	case KindDOCX:
		text, err = docxText(f.Data)
		method = "docx-xml"
	case KindText:
		text, err = plainText(f.Data)
		method = "utf8"
	}
	if err != nil {
		return Result{}, &Error{Kind: kind, Err: err}
	}
	res := truncate(text)
	res.Kind = kind
	res.Method = method
	return res, nil
}

// DetectKind trusts a declared MIME type first, then the file extension,
// then content sniffing.
func DetectKind(f File) Kind {
	if k := kindFromMIME(f.MIMEType); k != KindUnknown {
		return k
	}
	declared := strings.TrimSpace(f.MIMEType)
	if declared != "" && declared != "application/octet-stream" {
		return KindUnknown
	}
	switch strings.ToLower(filepath.Ext(f.Name)) {
	case ".pdf":
		return KindPDF
	case ".docx":
		return KindDOCX
	case ".txt":
		return KindText
	}
	if len(f.Data) == 0 {
		return KindUnknown
	}
	return kindFromMIME(mimetype.Detect(f.Data).String())
}

func kindFromMIME(m string) Kind {
	base, _, _ := strings.Cut(strings.ToLower(strings.TrimSpace(m)), ";")
	switch strings.TrimSpace(base) {
	case MIMEPDF:
		return KindPDF
	case MIMEDOCX:
		return KindDOCX
	case MIMEText:
		return KindText
	}
	return KindUnknown
}

func plainText(b []byte) (string, error) {
	b = bytes.TrimPrefix(b, []byte("\xef\xbb\xbf"))
	if !utf8.Valid(b) {
		return "", errors.New("'utf-8' codec can't decode file contents")
	}
	return string(b), nil
}

func truncate(text string) Result {
	trimmed := strings.TrimSpace(text)
	if utf8.RuneCountInString(trimmed) <= maxTextRunes {
		return Result{Text: trimmed}
	}
	r := []rune(trimmed)
	return Result{Text: string(r[:maxTextRunes]) + "\n\n[TRUNCATED]", Truncated: true}
}
