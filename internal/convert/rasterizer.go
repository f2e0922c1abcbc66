package convert

import (
	"fmt"
	"image"

	"github.com/gen2brain/go-fitz"
)

const baseDPI = 72

// Rasterizer renders a PDF into one image per page, in page order.
type Rasterizer interface {
	Rasterize(path string, scale float64) ([]image.Image, error)
}

// fitzRasterizer renders through MuPDF.
type fitzRasterizer struct{}

// NewRasterizer returns the default PDF rasterizer.
func NewRasterizer() Rasterizer {
	return fitzRasterizer{}
}

func (fitzRasterizer) Rasterize(path string, scale float64) ([]image.Image, error) {
	doc, err := fitz.New(path)
	if err != nil {
		return nil, fmt.Errorf("open pdf: %w", err)
	}
	defer doc.Close()

	pages := make([]image.Image, 0, doc.NumPage())
	for n := 0; n < doc.NumPage(); n++ {
		img, err := doc.ImageDPI(n, baseDPI*scale)
		if err != nil {
			return nil, fmt.Errorf("render page %d: %w", n, err)
		}
		pages = append(pages, img)
	}
	return pages, nil
}
