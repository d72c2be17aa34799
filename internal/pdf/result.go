package pdf

import (
	"fmt"

	"github.com/MeKo-Tech/barscan/internal/reader"
)

// PageResult holds the barcodes read from the images of one page.
type PageResult struct {
	PageNumber int            `json:"page_number" yaml:"page_number"`
	Images     []ImageResult  `json:"images" yaml:"images"`
	Processing ProcessingInfo `json:"processing" yaml:"processing"`
}

// ImageResult is the reader output for one image extracted from a page.
type ImageResult struct {
	ImageIndex         int `json:"image_index" yaml:"image_index"`
	reader.ImageResult `yaml:",inline"`
}

// DocumentResult holds the barcodes read from a PDF document.
type DocumentResult struct {
	Filename   string         `json:"filename" yaml:"filename"`
	TotalPages int            `json:"total_pages" yaml:"total_pages"`
	Pages      []PageResult   `json:"pages" yaml:"pages"`
	Processing ProcessingInfo `json:"processing" yaml:"processing"`
}

// ProcessingInfo contains timing information.
type ProcessingInfo struct {
	ExtractionTimeMs int64 `json:"extraction_time_ms" yaml:"extraction_time_ms"`
	DecodeTimeMs     int64 `json:"decode_time_ms" yaml:"decode_time_ms"`
	TotalTimeMs      int64 `json:"total_time_ms" yaml:"total_time_ms"`
}

// SymbolCount returns the number of symbols over all pages.
func (d *DocumentResult) SymbolCount() int {
	n := 0
	for _, p := range d.Pages {
		for _, img := range p.Images {
			n += len(img.Symbols)
		}
	}
	return n
}

// ImageResults flattens the document into reader results, one per
// extracted image, named <file>#page=<n>&image=<i> for the output
// formatters.
func (d *DocumentResult) ImageResults() []*reader.ImageResult {
	var out []*reader.ImageResult
	for _, p := range d.Pages {
		for _, img := range p.Images {
			r := img.ImageResult
			r.File = fmt.Sprintf("%s#page=%d&image=%d", d.Filename, p.PageNumber, img.ImageIndex)
			out = append(out, &r)
		}
	}
	return out
}
