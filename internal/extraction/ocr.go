package extraction

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/png"
	"os/exec"
	"strings"
)

// DefaultOCRLanguages is the combined English + Simplified Chinese model.
const DefaultOCRLanguages = "eng+chi_sim"

// OCREngine recognizes text in a page image.
type OCREngine interface {
	Recognize(ctx context.Context, img image.Image) (string, error)
	Name() string
}

// TesseractEngine runs the tesseract binary, streaming the image over stdin.
type TesseractEngine struct {
	Binary    string
	Languages string
}

// NewTesseractEngine returns an engine using tesseract from PATH.
func NewTesseractEngine(languages string) *TesseractEngine {
	if languages == "" {
		languages = DefaultOCRLanguages
	}
	return &TesseractEngine{Binary: "tesseract", Languages: languages}
}

func (t *TesseractEngine) Name() string { return "tesseract" }

// Recognize returns the recognized text. A missing binary yields ErrOCRUnavailable.
func (t *TesseractEngine) Recognize(ctx context.Context, img image.Image) (string, error) {
	bin := t.Binary
	if bin == "" {
		bin = "tesseract"
	}
	if _, err := exec.LookPath(bin); err != nil {
		return "", fmt.Errorf("%w: %s not found in PATH", ErrOCRUnavailable, bin)
	}

	var in bytes.Buffer
	if err := png.Encode(&in, img); err != nil {
		return "", fmt.Errorf("failed to encode page image: %w", err)
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, bin, "stdin", "stdout", "-l", t.Languages)
	cmd.Stdin = &in
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if errors.Is(err, exec.ErrNotFound) {
			return "", fmt.Errorf("%w: %v", ErrOCRUnavailable, err)
		}
		return "", fmt.Errorf("tesseract failed: %w; stderr=%s", err, strings.TrimSpace(stderr.String()))
	}
	return stdout.String(), nil
}
