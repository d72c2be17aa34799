package pdf

import (
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MeKo-Tech/barscan/internal/testutil"
)

func TestParsePageRange(t *testing.T) {
	tests := []struct {
		name        string
		pageRange   string
		want        []int
		expectError bool
	}{
		{name: "empty range returns nil", pageRange: "", want: nil},
		{name: "blank range returns nil", pageRange: "  ", want: nil},
		{name: "single page", pageRange: "1", want: []int{1}},
		{name: "multiple single pages", pageRange: "1,3,5", want: []int{1, 3, 5}},
		{name: "simple range", pageRange: "1-5", want: []int{1, 2, 3, 4, 5}},
		{name: "mixed pages and ranges", pageRange: "1,3-5,7", want: []int{1, 3, 4, 5, 7}},
		{name: "range with spaces", pageRange: " 1 - 3 , 5 ", want: []int{1, 2, 3, 5}},
		{name: "invalid page number", pageRange: "abc", expectError: true},
		{name: "page zero", pageRange: "0", expectError: true},
		{name: "range from zero", pageRange: "0-2", expectError: true},
		{name: "invalid range format", pageRange: "1-2-3", expectError: true},
		{name: "start greater than end", pageRange: "5-1", expectError: true},
		{name: "invalid start page", pageRange: "abc-5", expectError: true},
		{name: "invalid end page", pageRange: "1-xyz", expectError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parsePageRange(tt.pageRange)
			if tt.expectError {
				require.Error(t, err)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestParsePageFromFilename(t *testing.T) {
	stems := extractionStems("/tmp/in/scan_batch.pdf")
	tests := []struct {
		name        string
		filename    string
		want        int
		expectError bool
	}{
		{name: "single image on page", filename: "scan_batch_1.jpg", want: 1},
		{name: "zero padded page", filename: "scan_batch_007.png", want: 7},
		{name: "named image", filename: "scan_batch_12_Im3.png", want: 12},
		{name: "named image with underscores", filename: "scan_batch_2_Im_0.tif", want: 2},
		{name: "thumbnail", filename: "scan_batch_1_thumb.jpg", expectError: true},
		{name: "other stem", filename: "other_1.png", expectError: true},
		{name: "no page", filename: "scan_batch_.png", expectError: true},
		{name: "page zero", filename: "scan_batch_0.png", expectError: true},
		{name: "non numeric page", filename: "scan_batch_Im1.png", expectError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parsePageFromFilename(tt.filename, stems...)
			if tt.expectError {
				require.Error(t, err)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestExtractionStems(t *testing.T) {
	assert.Equal(t, []string{"doc"}, extractionStems("dir/doc.pdf"))
	assert.Equal(t, []string{"DOC.PDF", "DOC"}, extractionStems("DOC.PDF"))
}

func TestExtractImages_ErrorCases(t *testing.T) {
	t.Run("non-existent file", func(t *testing.T) {
		_, err := ExtractImages("/non/existent/file.pdf", "")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to extract images from PDF")
	})

	t.Run("invalid page range", func(t *testing.T) {
		_, err := ExtractImages("dummy.pdf", "invalid-range")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid page range")
	})

	t.Run("directory instead of file", func(t *testing.T) {
		_, err := ExtractImages(t.TempDir(), "")
		require.Error(t, err)
	})
}

func TestExtractImages_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}
	pdfPath := filepath.Join(t.TempDir(), "pages.pdf")
	require.NoError(t, testutil.WriteImagePDF(pdfPath, testutil.Canvas(120, 80), testutil.Canvas(60, 40)))

	images, err := ExtractImages(pdfPath, "")
	require.NoError(t, err)
	require.Len(t, images, 2)
	require.Len(t, images[1], 1)
	require.Len(t, images[2], 1)
	assert.Equal(t, image.Rect(0, 0, 120, 80), images[1][0].Bounds())
	assert.Equal(t, image.Rect(0, 0, 60, 40), images[2][0].Bounds())

	images, err = ExtractImages(pdfPath, "2")
	require.NoError(t, err)
	require.Len(t, images, 1)
	assert.Contains(t, images, 2)
}

func writeTestImage(t *testing.T, path, enc string) {
	t.Helper()
	f, err := os.Create(path) //nolint:gosec // controlled test path
	require.NoError(t, err)
	defer func() { _ = f.Close() }()

	img := image.NewRGBA(image.Rect(0, 0, 8, 6))
	for y := range 6 {
		for x := range 8 {
			img.Set(x, y, color.RGBA{uint8(10 * x), uint8(10 * y), 0, 255})
		}
	}
	switch enc {
	case "png":
		require.NoError(t, png.Encode(f, img))
	case "jpeg":
		require.NoError(t, jpeg.Encode(f, img, &jpeg.Options{Quality: 80}))
	default:
		t.Fatalf("unknown encoder: %s", enc)
	}
}

func TestCollectExtractedImages_MixedFormatsAndPages(t *testing.T) {
	tempDir := t.TempDir()

	writeTestImage(t, filepath.Join(tempDir, "doc_1_Im1.png"), "png")
	writeTestImage(t, filepath.Join(tempDir, "doc_1_Im2.jpg"), "jpeg")
	writeTestImage(t, filepath.Join(tempDir, "doc_2.png"), "png")

	require.NoError(t, os.WriteFile(filepath.Join(tempDir, "notes.txt"), []byte("ignore"), 0o600))
	writeTestImage(t, filepath.Join(tempDir, "not_a_match.png"), "png")
	writeTestImage(t, filepath.Join(tempDir, "doc_2_thumb.png"), "png")

	result, err := collectExtractedImages(tempDir, "/somewhere/doc.pdf")
	require.NoError(t, err)

	require.Len(t, result, 2)
	require.Len(t, result[1], 2)
	require.Len(t, result[2], 1)
	for _, imgs := range result {
		for _, img := range imgs {
			assert.Equal(t, 8, img.Bounds().Dx())
			assert.Equal(t, 6, img.Bounds().Dy())
		}
	}
}

func TestCollectExtractedImages_SkipsUnreadable(t *testing.T) {
	tempDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(tempDir, "doc_3.png"), []byte("corrupt"), 0o600))
	writeTestImage(t, filepath.Join(tempDir, "doc_4.jpg"), "jpeg")

	result, err := collectExtractedImages(tempDir, "doc.pdf")
	require.NoError(t, err)
	require.Len(t, result, 1)
	require.Len(t, result[4], 1)
}

func BenchmarkParsePageRange(b *testing.B) {
	for range b.N {
		_, _ = parsePageRange("1-10,12,15-20")
	}
}
