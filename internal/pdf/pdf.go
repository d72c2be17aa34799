// Package pdf reads barcodes from the images embedded in PDF documents.
// Pages are not rasterized: pdfcpu extracts the image XObjects of each page
// and every image goes through the reader on its own.
package pdf

import (
	"errors"
	"fmt"
	"image"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"

	"github.com/MeKo-Tech/barscan/internal/utils"
)

var errNotExtracted = errors.New("not an extracted page image")

// ExtractImages extracts the images of the selected pages, keyed by page
// number. An empty pageRange selects every page.
func ExtractImages(filename string, pageRange string) (map[int][]image.Image, error) {
	pageNumbers, err := parsePageRange(pageRange)
	if err != nil {
		return nil, fmt.Errorf("invalid page range %q: %w", pageRange, err)
	}

	tempDir, err := os.MkdirTemp("", "barscan-extract-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp directory: %w", err)
	}
	defer func() { _ = os.RemoveAll(tempDir) }()

	var pageStrings []string
	if len(pageNumbers) > 0 {
		pageStrings = make([]string, len(pageNumbers))
		for i, pageNum := range pageNumbers {
			pageStrings[i] = strconv.Itoa(pageNum)
		}
	}

	if err := api.ExtractImagesFile(filename, tempDir, pageStrings, nil); err != nil {
		return nil, fmt.Errorf("failed to extract images from PDF: %w", err)
	}

	result, err := collectExtractedImages(tempDir, filename)
	if err != nil {
		return nil, fmt.Errorf("failed to process extracted images: %w", err)
	}
	return result, nil
}

// collectExtractedImages loads the images pdfcpu wrote for source into dir
// and groups them by page. Files are visited in name order, so images keep
// their order within a page.
func collectExtractedImages(dir, source string) (map[int][]image.Image, error) {
	result := make(map[int][]image.Image)
	stems := extractionStems(source)

	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !utils.IsSupportedImage(path) {
			return nil
		}

		pageNum, err := parsePageFromFilename(d.Name(), stems...)
		if err != nil {
			slog.Debug("Skipping extracted file", "file", d.Name(), "error", err)
			return nil
		}

		img, _, err := utils.LoadImage(path)
		if err != nil {
			slog.Debug("Skipping unreadable image", "file", d.Name(), "error", err)
			return nil
		}
		result[pageNum] = append(result[pageNum], img)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// extractionStems returns the file name prefixes pdfcpu may use for images
// extracted from source.
func extractionStems(source string) []string {
	base := filepath.Base(source)
	stems := []string{strings.TrimSuffix(base, ".pdf")}
	if alt := strings.TrimSuffix(base, filepath.Ext(base)); alt != stems[0] {
		stems = append(stems, alt)
	}
	return stems
}

// parsePageFromFilename extracts the page number from an extracted image
// name. pdfcpu writes <stem>_<page>.<ext> for a single image on a page and
// <stem>_<page>_<name>.<ext> otherwise, with the page zero padded.
// Thumbnails are rejected.
func parsePageFromFilename(filename string, stems ...string) (int, error) {
	base := strings.TrimSuffix(filename, filepath.Ext(filename))
	if strings.HasSuffix(base, "_thumb") {
		return 0, fmt.Errorf("%s: thumbnail", filename)
	}
	for _, stem := range stems {
		rest, ok := strings.CutPrefix(base, stem+"_")
		if !ok {
			continue
		}
		token, _, _ := strings.Cut(rest, "_")
		page, err := strconv.Atoi(token)
		if err != nil || page < 1 {
			return 0, fmt.Errorf("%s: invalid page number %q", filename, token)
		}
		return page, nil
	}
	return 0, fmt.Errorf("%s: %w", filename, errNotExtracted)
}

// parsePageRange parses a page range string like "1-5" or "1,3,5".
func parsePageRange(pageRange string) ([]int, error) {
	if strings.TrimSpace(pageRange) == "" {
		return nil, nil
	}

	var pages []int
	for _, part := range strings.Split(pageRange, ",") {
		tokenPages, err := parseRangeToken(strings.TrimSpace(part))
		if err != nil {
			return nil, err
		}
		pages = append(pages, tokenPages...)
	}
	return pages, nil
}

// parseRangeToken parses either a single page token (e.g., "3") or a range
// token (e.g., "1-5"). Pages start at 1.
func parseRangeToken(part string) ([]int, error) {
	if strings.Contains(part, "-") {
		rangeParts := strings.Split(part, "-")
		if len(rangeParts) != 2 {
			return nil, fmt.Errorf("invalid range format: %s", part)
		}
		start, err := strconv.Atoi(strings.TrimSpace(rangeParts[0]))
		if err != nil || start < 1 {
			return nil, fmt.Errorf("invalid start page: %s", rangeParts[0])
		}
		end, err := strconv.Atoi(strings.TrimSpace(rangeParts[1]))
		if err != nil {
			return nil, fmt.Errorf("invalid end page: %s", rangeParts[1])
		}
		if start > end {
			return nil, fmt.Errorf("start page %d greater than end page %d", start, end)
		}
		out := make([]int, 0, end-start+1)
		for i := start; i <= end; i++ {
			out = append(out, i)
		}
		return out, nil
	}
	page, err := strconv.Atoi(part)
	if err != nil || page < 1 {
		return nil, fmt.Errorf("invalid page number: %s", part)
	}
	return []int{page}, nil
}
