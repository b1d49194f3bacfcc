package extraction

import (
	"context"
	"errors"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRenderer struct {
	pages int
	err   error
}

func (f *fakeRenderer) Render(_ context.Context, _ string, dpi int) ([]image.Image, error) {
	if f.err != nil {
		return nil, f.err
	}
	imgs := make([]image.Image, f.pages)
	for i := range imgs {
		imgs[i] = image.NewGray(image.Rect(0, 0, 20, 20))
	}
	return imgs, nil
}

type fakeOCR struct {
	text  string
	err   error
	calls int
}

func (f *fakeOCR) Name() string { return "fake" }

func (f *fakeOCR) Recognize(_ context.Context, _ image.Image) (string, error) {
	f.calls++
	return f.text, f.err
}

func writeFile(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func TestExtract_UnsupportedFormat(t *testing.T) {
	e := New(nil, nil, Options{}, nil)

	for _, name := range []string{"resume.exe", "resume.doc", "resume"} {
		_, err := e.Extract(context.Background(), name)
		require.Error(t, err, name)
		assert.True(t, errors.Is(err, ErrUnsupportedFormat), name)

		var ufe *UnsupportedFormatError
		assert.True(t, errors.As(err, &ufe))
	}
}

func TestExtract_MissingFile(t *testing.T) {
	e := New(nil, nil, Options{}, nil)

	_, err := e.Extract(context.Background(), filepath.Join(t.TempDir(), "missing.txt"))

	var ee *ExtractionError
	require.True(t, errors.As(err, &ee))
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestExtract_PlainTextDropsInvalidBytes(t *testing.T) {
	path := writeFile(t, "resume.txt", []byte("Jane Doe\xff\xfe Engineer"))
	e := New(nil, nil, Options{}, nil)

	doc, err := e.Extract(context.Background(), path)

	require.NoError(t, err)
	assert.Equal(t, "Jane Doe Engineer", doc.Text)
	assert.Equal(t, MethodPlain, doc.Method)
	assert.Nil(t, doc.OCRErr)
}

func TestExtractBytes_Markdown(t *testing.T) {
	e := New(nil, nil, Options{TempDir: t.TempDir()}, nil)

	doc, err := e.ExtractBytes(context.Background(), "cv.md", []byte("# Jane\nGo developer"))

	require.NoError(t, err)
	assert.Equal(t, "# Jane\nGo developer", doc.Text)
}

func TestExtractPDF_UnreadableFallsBackToOCR(t *testing.T) {
	path := writeFile(t, "scan.pdf", []byte("not really a pdf"))
	ocrText := strings.Repeat("Recognized resume text. ", 10)
	ocr := &fakeOCR{text: ocrText}
	e := New(&fakeRenderer{pages: 2}, ocr, Options{}, nil)

	doc, err := e.Extract(context.Background(), path)

	require.NoError(t, err)
	assert.Equal(t, MethodOCR, doc.Method)
	assert.Equal(t, ocrText+"\n"+ocrText+"\n", doc.Text)
	assert.Equal(t, 2, ocr.calls)
	assert.NotEmpty(t, doc.Warnings)
}

func TestExtractPDF_OCRUnavailableYieldsPlaceholder(t *testing.T) {
	path := writeFile(t, "scan.pdf", []byte("not really a pdf"))
	e := New(&fakeRenderer{pages: 1}, &fakeOCR{err: ErrOCRUnavailable}, Options{}, nil)

	doc, err := e.Extract(context.Background(), path)

	require.NoError(t, err)
	assert.Equal(t, PlaceholderOCRMissing, doc.Text)
	assert.True(t, doc.OCRUnavailable())
}

func TestExtractPDF_NoOCRConfigured(t *testing.T) {
	path := writeFile(t, "scan.pdf", []byte("%PDF-garbage"))
	e := New(nil, nil, Options{}, nil)

	doc, err := e.Extract(context.Background(), path)

	require.NoError(t, err)
	assert.True(t, doc.OCRUnavailable())
	assert.Equal(t, PlaceholderOCRMissing, doc.Text)
}

func TestExtractPDF_UnreadableAndOCRFails(t *testing.T) {
	path := writeFile(t, "broken.pdf", []byte("garbage"))
	e := New(&fakeRenderer{err: errors.New("pdftoppm failed: syntax error")}, &fakeOCR{}, Options{}, nil)

	_, err := e.Extract(context.Background(), path)

	var ee *ExtractionError
	require.True(t, errors.As(err, &ee))
}

func TestDocument_OCRUnavailable(t *testing.T) {
	var nilDoc *Document
	assert.False(t, nilDoc.OCRUnavailable())
	assert.False(t, (&Document{OCRErr: errors.New("x")}).OCRUnavailable())
	assert.True(t, (&Document{OCRErr: &OCRError{Page: 1, Cause: ErrOCRUnavailable}}).OCRUnavailable())
}

func TestTesseractEngine_MissingBinary(t *testing.T) {
	eng := &TesseractEngine{Binary: "tesseract-binary-that-does-not-exist", Languages: DefaultOCRLanguages}

	_, err := eng.Recognize(context.Background(), image.NewGray(image.Rect(0, 0, 2, 2)))

	assert.ErrorIs(t, err, ErrOCRUnavailable)
}

func TestPopplerRenderer_MissingBinary(t *testing.T) {
	r := &PopplerRenderer{Binary: "pdftoppm-binary-that-does-not-exist"}

	_, err := r.Render(context.Background(), "x.pdf", DefaultRenderDPI)

	assert.ErrorIs(t, err, ErrOCRUnavailable)
}

func TestSortedPages_NumericOrder(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"page-10.png", "page-2.png", "page-1.png", "other.txt"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), nil, 0o644))
	}

	paths, err := sortedPages(dir)

	require.NoError(t, err)
	require.Len(t, paths, 3)
	assert.Equal(t, "page-1.png", filepath.Base(paths[0]))
	assert.Equal(t, "page-2.png", filepath.Base(paths[1]))
	assert.Equal(t, "page-10.png", filepath.Base(paths[2]))
}

func TestPrepareForOCR_Binarizes(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 30, 30))
	for y := 0; y < 30; y++ {
		for x := 0; x < 30; x++ {
			c := color.RGBA{R: 230, G: 230, B: 230, A: 255}
			if x >= 10 && x < 20 {
				c = color.RGBA{R: 20, G: 20, B: 20, A: 255}
			}
			img.Set(x, y, c)
		}
	}

	out, ok := PrepareForOCR(img).(*image.Gray)
	require.True(t, ok)

	assert.Equal(t, minOCRWidth, out.Bounds().Dx())
	assert.Equal(t, uint8(255), out.GrayAt(0, 0).Y)
	assert.Equal(t, uint8(0), out.GrayAt(minOCRWidth/2, minOCRWidth/2).Y)
}

func TestOtsuThreshold_Bimodal(t *testing.T) {
	img := image.NewGray(image.Rect(0, 0, 10, 1))
	copy(img.Pix, []uint8{10, 10, 10, 10, 10, 200, 200, 200, 200, 200})

	th := otsuThreshold(img)

	assert.GreaterOrEqual(t, th, uint8(10))
	assert.Less(t, th, uint8(200))
}

func TestMedianFilter3_RemovesIsolatedPixel(t *testing.T) {
	img := image.NewGray(image.Rect(0, 0, 5, 5))
	img.SetGray(2, 2, color.Gray{Y: 255})

	out := medianFilter3(img)

	assert.Equal(t, uint8(0), out.GrayAt(2, 2).Y)
}
