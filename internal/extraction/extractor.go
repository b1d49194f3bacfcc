// Package extraction turns resume documents (PDF, DOCX, plain text) into text,
// falling back to OCR for scanned PDFs.
package extraction

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/jonathan/resume-analyzer/internal/logger"
)

// Extraction methods reported on a Document.
const (
	MethodPDFText = "pdf_text"
	MethodOCR     = "ocr"
	MethodDOCX    = "docx"
	MethodPlain   = "plain_text"
)

// Defaults for the OCR fallback.
const (
	DefaultMinTextLength = 100
	DefaultRenderDPI     = 144 // 2x the 72 DPI PDF user space
	DefaultOCRTimeout    = 2 * time.Minute
)

// Document is the text recovered from a file.
type Document struct {
	Text     string   `json:"text"`
	Method   string   `json:"method"`
	Pages    int      `json:"pages,omitempty"`
	Warnings []string `json:"warnings,omitempty"`
	// OCRErr is set when the OCR fallback ran and failed; Text then holds a placeholder.
	OCRErr error `json:"-"`
}

// OCRUnavailable reports whether the OCR fallback failed because its tooling is missing.
func (d *Document) OCRUnavailable() bool {
	return d != nil && errors.Is(d.OCRErr, ErrOCRUnavailable)
}

// Options configures an Extractor.
type Options struct {
	MinTextLength int
	RenderDPI     int
	OCRTimeout    time.Duration
	TempDir       string
}

// Extractor reads resume files. A nil renderer or OCR engine disables the OCR fallback.
type Extractor struct {
	renderer PageRenderer
	ocr      OCREngine
	opts     Options
	log      *logger.Logger
}

// New creates an Extractor.
func New(renderer PageRenderer, ocr OCREngine, opts Options, log *logger.Logger) *Extractor {
	if opts.MinTextLength <= 0 {
		opts.MinTextLength = DefaultMinTextLength
	}
	if opts.RenderDPI <= 0 {
		opts.RenderDPI = DefaultRenderDPI
	}
	if opts.OCRTimeout <= 0 {
		opts.OCRTimeout = DefaultOCRTimeout
	}
	return &Extractor{
		renderer: renderer,
		ocr:      ocr,
		opts:     opts,
		log:      logger.OrNop(log).With("component", "extraction"),
	}
}

// SupportedExtensions lists the file extensions Extract accepts.
func SupportedExtensions() []string {
	return []string{".pdf", ".docx", ".txt", ".md"}
}

// IsSupported reports whether filename has a supported extension.
func IsSupported(filename string) bool {
	ext := strings.ToLower(filepath.Ext(filename))
	for _, s := range SupportedExtensions() {
		if ext == s {
			return true
		}
	}
	return false
}

// Extract returns the text of the file at path.
func (e *Extractor) Extract(ctx context.Context, path string) (*Document, error) {
	ext := strings.ToLower(filepath.Ext(path))
	if !IsSupported(path) {
		return nil, &UnsupportedFormatError{Extension: ext}
	}
	if _, err := os.Stat(path); err != nil {
		return nil, &ExtractionError{Path: path, Message: "file not readable", Cause: err}
	}

	switch ext {
	case ".pdf":
		return e.extractPDF(ctx, path)
	case ".docx":
		text, err := extractDOCX(path)
		if err != nil {
			return nil, &ExtractionError{Path: path, Message: "failed to read docx", Cause: err}
		}
		return &Document{Text: text, Method: MethodDOCX}, nil
	default:
		text, err := readPlainText(path)
		if err != nil {
			return nil, &ExtractionError{Path: path, Message: "failed to read text file", Cause: err}
		}
		return &Document{Text: text, Method: MethodPlain}, nil
	}
}

// ExtractBytes extracts text from an uploaded file held in memory.
func (e *Extractor) ExtractBytes(ctx context.Context, filename string, data []byte) (*Document, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	if !IsSupported(filename) {
		return nil, &UnsupportedFormatError{Extension: ext}
	}
	f, err := os.CreateTemp(e.opts.TempDir, "resume-*"+ext)
	if err != nil {
		return nil, fmt.Errorf("failed to create temp file: %w", err)
	}
	defer func() { _ = os.Remove(f.Name()) }()
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := f.Close(); err != nil {
		return nil, fmt.Errorf("failed to close temp file: %w", err)
	}
	return e.Extract(ctx, f.Name())
}

func (e *Extractor) extractPDF(ctx context.Context, path string) (*Document, error) {
	text, pages, parseErr := extractPDFText(path)
	if parseErr == nil && textLength(text) >= e.opts.MinTextLength {
		return &Document{Text: text, Method: MethodPDFText, Pages: pages}, nil
	}

	doc := &Document{Method: MethodOCR, Pages: pages}
	if parseErr != nil {
		e.log.Warn("pdf text extraction failed, trying OCR", "path", filepath.Base(path), "error", parseErr)
		doc.Warnings = append(doc.Warnings, "embedded text could not be read: "+parseErr.Error())
	} else {
		e.log.Info("pdf text too short, trying OCR", "path", filepath.Base(path), "chars", textLength(text))
	}

	ocrText, ocrErr := e.ocrPDF(ctx, path)
	if ocrErr != nil {
		if parseErr != nil && !errors.Is(ocrErr, ErrOCRUnavailable) {
			return nil, &ExtractionError{Path: path, Message: "failed to read pdf", Cause: errors.Join(parseErr, ocrErr)}
		}
		e.log.Warn("OCR failed", "path", filepath.Base(path), "error", ocrErr)
		doc.OCRErr = ocrErr
		if errors.Is(ocrErr, ErrOCRUnavailable) {
			doc.Text = PlaceholderOCRMissing
		} else {
			doc.Text = PlaceholderOCRFailed
		}
		return doc, nil
	}

	// Keep whichever of the embedded text and OCR output is longer.
	if textLength(ocrText) >= textLength(text) {
		doc.Text = ocrText
	} else {
		doc.Text = text
		doc.Method = MethodPDFText
		doc.Warnings = append(doc.Warnings, "OCR produced less text than the embedded text layer")
	}
	return doc, nil
}

func (e *Extractor) ocrPDF(ctx context.Context, path string) (string, error) {
	if e.renderer == nil || e.ocr == nil {
		return "", fmt.Errorf("%w: OCR fallback is not configured", ErrOCRUnavailable)
	}
	ctx, cancel := context.WithTimeout(ctx, e.opts.OCRTimeout)
	defer cancel()

	images, err := e.renderer.Render(ctx, path, e.opts.RenderDPI)
	if err != nil {
		return "", &OCRError{Cause: err}
	}

	var b strings.Builder
	for i, img := range images {
		pageText, err := e.ocr.Recognize(ctx, PrepareForOCR(img))
		if err != nil {
			return "", &OCRError{Page: i + 1, Cause: err}
		}
		b.WriteString(pageText)
		b.WriteString("\n")
	}
	e.log.Info("OCR complete", "engine", e.ocr.Name(), "pages", len(images), "chars", b.Len())
	return b.String(), nil
}

func textLength(s string) int {
	return utf8.RuneCountInString(strings.TrimSpace(s))
}
