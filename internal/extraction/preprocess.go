package extraction

import (
	"image"
	"image/color"
	"sort"

	xdraw "golang.org/x/image/draw"
)

// minOCRWidth is the width below which page images are upscaled before OCR.
const minOCRWidth = 1000

// PrepareForOCR converts a page image to a binarized grayscale image:
// grayscale, 3x3 median filter, then Otsu thresholding.
func PrepareForOCR(img image.Image) image.Image {
	gray := toGray(upscale(img))
	return binarize(medianFilter3(gray))
}

func upscale(img image.Image) image.Image {
	b := img.Bounds()
	if b.Dx() == 0 || b.Dx() >= minOCRWidth {
		return img
	}
	scale := float64(minOCRWidth) / float64(b.Dx())
	dst := image.NewRGBA(image.Rect(0, 0, minOCRWidth, int(float64(b.Dy())*scale)))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), img, b, xdraw.Src, nil)
	return dst
}

func toGray(img image.Image) *image.Gray {
	b := img.Bounds()
	if g, ok := img.(*image.Gray); ok && b.Min == (image.Point{}) {
		return g
	}
	gray := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	for y := 0; y < b.Dy(); y++ {
		for x := 0; x < b.Dx(); x++ {
			gray.Set(x, y, color.GrayModel.Convert(img.At(b.Min.X+x, b.Min.Y+y)))
		}
	}
	return gray
}

// medianFilter3 applies a 3x3 median filter, replicating edge pixels.
func medianFilter3(src *image.Gray) *image.Gray {
	w, h := src.Rect.Dx(), src.Rect.Dy()
	dst := image.NewGray(image.Rect(0, 0, w, h))
	window := make([]uint8, 0, 9)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			window = window[:0]
			for dy := -1; dy <= 1; dy++ {
				for dx := -1; dx <= 1; dx++ {
					window = append(window, src.GrayAt(clamp(x+dx, 0, w-1), clamp(y+dy, 0, h-1)).Y)
				}
			}
			sort.Slice(window, func(i, j int) bool { return window[i] < window[j] })
			dst.SetGray(x, y, color.Gray{Y: window[4]})
		}
	}
	return dst
}

// otsuThreshold picks the threshold maximizing between-class variance.
func otsuThreshold(img *image.Gray) uint8 {
	var hist [256]int
	for _, p := range img.Pix {
		hist[p]++
	}
	total := len(img.Pix)
	if total == 0 {
		return 127
	}

	var sum float64
	for i, c := range hist {
		sum += float64(i * c)
	}

	var sumB, best float64
	var wB int
	threshold := 0
	for t := 0; t < 256; t++ {
		wB += hist[t]
		if wB == 0 {
			continue
		}
		wF := total - wB
		if wF == 0 {
			break
		}
		sumB += float64(t * hist[t])
		mB := sumB / float64(wB)
		mF := (sum - sumB) / float64(wF)
		between := float64(wB) * float64(wF) * (mB - mF) * (mB - mF)
		if between > best {
			best = between
			threshold = t
		}
	}
	return uint8(threshold)
}

func binarize(img *image.Gray) *image.Gray {
	t := otsuThreshold(img)
	out := image.NewGray(img.Rect)
	for i, p := range img.Pix {
		if p > t {
			out.Pix[i] = 255
		}
	}
	return out
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
