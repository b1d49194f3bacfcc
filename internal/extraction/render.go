package extraction

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/png"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// PageRenderer rasterizes the pages of a PDF.
type PageRenderer interface {
	Render(ctx context.Context, pdfPath string, dpi int) ([]image.Image, error)
}

// PopplerRenderer renders pages with the pdftoppm binary from poppler-utils.
type PopplerRenderer struct {
	Binary  string
	WorkDir string
}

// NewPopplerRenderer returns a renderer using pdftoppm from PATH.
func NewPopplerRenderer(workDir string) *PopplerRenderer {
	return &PopplerRenderer{Binary: "pdftoppm", WorkDir: workDir}
}

var pageFile = regexp.MustCompile(`^page-(\d+)\.png$`)

// Render writes one PNG per page into a scratch directory and decodes them in page order.
func (r *PopplerRenderer) Render(ctx context.Context, pdfPath string, dpi int) ([]image.Image, error) {
	bin := r.Binary
	if bin == "" {
		bin = "pdftoppm"
	}
	if _, err := exec.LookPath(bin); err != nil {
		return nil, fmt.Errorf("%w: %s not found in PATH", ErrOCRUnavailable, bin)
	}

	outDir, err := os.MkdirTemp(r.WorkDir, "pages-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create render dir: %w", err)
	}
	defer func() { _ = os.RemoveAll(outDir) }()

	args := []string{"-r", strconv.Itoa(dpi), "-png", pdfPath, filepath.Join(outDir, "page")}
	out, err := exec.CommandContext(ctx, bin, args...).CombinedOutput()
	if err != nil {
		if errors.Is(err, exec.ErrNotFound) {
			return nil, fmt.Errorf("%w: %v", ErrOCRUnavailable, err)
		}
		return nil, fmt.Errorf("pdftoppm failed: %w; out=%s", err, strings.TrimSpace(string(out)))
	}

	paths, err := sortedPages(outDir)
	if err != nil {
		return nil, err
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("no images produced by pdftoppm")
	}

	images := make([]image.Image, 0, len(paths))
	for _, p := range paths {
		img, err := decodePNG(p)
		if err != nil {
			return nil, err
		}
		images = append(images, img)
	}
	return images, nil
}

func sortedPages(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to list rendered pages: %w", err)
	}
	type page struct {
		num  int
		path string
	}
	var pages []page
	for _, e := range entries {
		m := pageFile.FindStringSubmatch(e.Name())
		if m == nil {
			continue
		}
		n, _ := strconv.Atoi(m[1])
		pages = append(pages, page{num: n, path: filepath.Join(dir, e.Name())})
	}
	sort.Slice(pages, func(i, j int) bool { return pages[i].num < pages[j].num })

	paths := make([]string, len(pages))
	for i, p := range pages {
		paths[i] = p.path
	}
	return paths, nil
}

func decodePNG(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open page image: %w", err)
	}
	defer func() { _ = f.Close() }()
	img, err := png.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("failed to decode page image %s: %w", filepath.Base(path), err)
	}
	return img, nil
}
