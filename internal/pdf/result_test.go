package pdf

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MeKo-Tech/barscan/internal/barcode"
	"github.com/MeKo-Tech/barscan/internal/reader"
)

func sampleDocument() *DocumentResult {
	pts := barcode.Polygon{{X: 1, Y: 1}, {X: 9, Y: 1}, {X: 9, Y: 9}, {X: 1, Y: 9}}
	sym := reader.Symbol{
		Result: barcode.Result{Type: barcode.FormatQR, Value: "p2", Points: pts, BBox: pts.Bounds()},
		Region: reader.FullImage,
	}
	return &DocumentResult{
		Filename:   "doc.pdf",
		TotalPages: 2,
		Pages: []PageResult{
			{PageNumber: 1, Images: []ImageResult{{ImageIndex: 0, ImageResult: reader.ImageResult{Width: 10, Height: 10}}}},
			{PageNumber: 2, Images: []ImageResult{
				{ImageIndex: 0, ImageResult: reader.ImageResult{Width: 10, Height: 10}},
				{ImageIndex: 1, ImageResult: reader.ImageResult{Width: 10, Height: 10, Symbols: []reader.Symbol{sym}}},
			}},
		},
		Processing: ProcessingInfo{ExtractionTimeMs: 5, DecodeTimeMs: 7, TotalTimeMs: 12},
	}
}

func TestDocumentResult_JSON(t *testing.T) {
	data, err := json.Marshal(sampleDocument())
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))
	assert.Equal(t, "doc.pdf", raw["filename"])
	assert.InDelta(t, 2, raw["total_pages"], 0)

	pages := raw["pages"].([]any)
	img := pages[1].(map[string]any)["images"].([]any)[1].(map[string]any)
	assert.InDelta(t, 1, img["image_index"], 0, "index sits next to the promoted reader fields")
	assert.InDelta(t, 10, img["width"], 0)
	sym := img["symbols"].([]any)[0].(map[string]any)
	assert.Equal(t, "QRCODE", sym["type"])
	assert.Equal(t, "p2", sym["value"])

	proc := raw["processing"].(map[string]any)
	for _, key := range []string{"extraction_time_ms", "decode_time_ms", "total_time_ms"} {
		assert.Contains(t, proc, key)
	}
}

func TestDocumentResult_SymbolCountAndImages(t *testing.T) {
	doc := sampleDocument()
	assert.Equal(t, 1, doc.SymbolCount())

	flat := doc.ImageResults()
	require.Len(t, flat, 3)
	assert.Equal(t, "doc.pdf#page=1&image=0", flat[0].File)
	assert.Equal(t, "doc.pdf#page=2&image=1", flat[2].File)
	assert.Equal(t, []string{"p2"}, flat[2].Values())
	assert.Empty(t, doc.Pages[1].Images[1].File, "flattening copies")

	assert.Equal(t, 0, (&DocumentResult{}).SymbolCount())
	assert.Empty(t, (&DocumentResult{}).ImageResults())
}
