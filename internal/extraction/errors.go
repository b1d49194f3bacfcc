package extraction

import (
	"errors"
	"fmt"
)

var (
	// ErrUnsupportedFormat is matched by UnsupportedFormatError.
	ErrUnsupportedFormat = errors.New("unsupported file format")
	// ErrOCRUnavailable means a required OCR binary (engine or page renderer) is missing.
	ErrOCRUnavailable = errors.New("OCR engine not available")
)

// Placeholder texts returned in place of OCR output when OCR fails.
const (
	PlaceholderOCRMissing = "OCR extraction failed: ensure Tesseract OCR and poppler-utils are installed"
	PlaceholderOCRFailed  = "OCR extraction failed: unable to recognize text, check the file format"
)

// UnsupportedFormatError is returned for file extensions the extractor cannot read.
type UnsupportedFormatError struct {
	Extension string
}

func (e *UnsupportedFormatError) Error() string {
	if e.Extension == "" {
		return "unsupported file format: file has no extension"
	}
	return fmt.Sprintf("unsupported file format: %s", e.Extension)
}

// Is makes errors.Is(err, ErrUnsupportedFormat) hold.
func (e *UnsupportedFormatError) Is(target error) bool {
	return target == ErrUnsupportedFormat
}

// ExtractionError reports a document that could not be read at all.
type ExtractionError struct {
	Path    string
	Message string
	Cause   error
}

func (e *ExtractionError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("extraction failed for %s: %s: %v", e.Path, e.Message, e.Cause)
	}
	return fmt.Sprintf("extraction failed for %s: %s", e.Path, e.Message)
}

func (e *ExtractionError) Unwrap() error {
	return e.Cause
}

// OCRError wraps a failure of the OCR stage.
type OCRError struct {
	Page  int
	Cause error
}

func (e *OCRError) Error() string {
	if e.Page > 0 {
		return fmt.Sprintf("OCR failed on page %d: %v", e.Page, e.Cause)
	}
	return fmt.Sprintf("OCR failed: %v", e.Cause)
}

func (e *OCRError) Unwrap() error {
	return e.Cause
}
