package pdf

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"runtime"
	"sort"
	"sync"
	"time"

	"github.com/MeKo-Tech/barscan/internal/reader"
)

// ProcessorConfig contains configuration for PDF processing.
type ProcessorConfig struct {
	// AllowPasswords enables decryption of password-protected files.
	AllowPasswords bool
	// AllowPasswordPrompt asks on stdin when the credentials fail.
	AllowPasswordPrompt bool
	// MaxWorkers bounds the pages processed concurrently. Zero means
	// runtime.NumCPU().
	MaxWorkers int
}

// DefaultProcessorConfig returns the default processor configuration.
func DefaultProcessorConfig() *ProcessorConfig {
	return &ProcessorConfig{
		AllowPasswords: true,
	}
}

// Processor reads barcodes from PDF files.
type Processor struct {
	reader          *reader.Reader
	config          *ProcessorConfig
	passwordHandler *PasswordHandler
}

// NewProcessor creates a PDF processor that reads images with r.
func NewProcessor(r *reader.Reader) *Processor {
	return NewProcessorWithConfig(r, DefaultProcessorConfig())
}

// NewProcessorWithConfig creates a PDF processor with custom configuration.
func NewProcessorWithConfig(r *reader.Reader, config *ProcessorConfig) *Processor {
	if config == nil {
		config = DefaultProcessorConfig()
	}
	return &Processor{
		reader:          r,
		config:          config,
		passwordHandler: NewPasswordHandler(config.AllowPasswordPrompt),
	}
}

// PasswordHandler returns the handler used for encrypted files.
func (p *Processor) PasswordHandler() *PasswordHandler { return p.passwordHandler }

// ProcessFile reads the barcodes on the selected pages of filename.
func (p *Processor) ProcessFile(ctx context.Context, filename string, pageRange string) (*DocumentResult, error) {
	return p.ProcessFileWithCredentials(ctx, filename, pageRange, nil)
}

// ProcessFileWithCredentials reads a PDF file with optional password
// credentials.
func (p *Processor) ProcessFileWithCredentials(ctx context.Context, filename string, pageRange string,
	creds *PasswordCredentials,
) (*DocumentResult, error) {
	if p.reader == nil {
		return nil, errors.New("pdf processor has no reader")
	}
	startTime := time.Now()

	workingFilename, err := p.handlePasswordProtection(filename, creds)
	if err != nil {
		return nil, err
	}
	if workingFilename != filename {
		defer func() { _ = p.passwordHandler.CleanupTempFile(workingFilename) }()
	}

	extractStart := time.Now()
	pageImages, err := ExtractImages(workingFilename, pageRange)
	if err != nil {
		return nil, err
	}
	extractTime := time.Since(extractStart)

	pages, decodeTime, err := p.processAllPages(ctx, pageImages)
	if err != nil {
		return nil, err
	}

	doc := &DocumentResult{
		Filename:   filename,
		TotalPages: len(pages),
		Pages:      pages,
		Processing: ProcessingInfo{
			ExtractionTimeMs: extractTime.Milliseconds(),
			DecodeTimeMs:     decodeTime.Milliseconds(),
			TotalTimeMs:      time.Since(startTime).Milliseconds(),
		},
	}
	slog.Debug("Processed PDF", "file", filename, "pages", doc.TotalPages, "symbols", doc.SymbolCount())
	return doc, nil
}

func (p *Processor) handlePasswordProtection(filename string, creds *PasswordCredentials) (string, error) {
	if !p.config.AllowPasswords {
		return filename, nil
	}
	return p.passwordHandler.DecryptPDF(filename, creds)
}

// processAllPages reads every page on a worker pool and returns the pages
// in ascending order.
func (p *Processor) processAllPages(ctx context.Context, pageImages map[int][]image.Image) ([]PageResult, time.Duration, error) {
	pageList := make([]int, 0, len(pageImages))
	for n := range pageImages {
		pageList = append(pageList, n)
	}
	sort.Ints(pageList)
	if len(pageList) == 0 {
		return []PageResult{}, 0, nil
	}

	type out struct {
		page int
		res  PageResult
		dur  time.Duration
		err  error
	}

	workers := p.config.MaxWorkers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	workers = max(1, min(workers, len(pageList)))

	jobs := make(chan int, len(pageList))
	results := make(chan out, len(pageList))

	var wg sync.WaitGroup
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for pageNum := range jobs {
				pr, dur, err := p.processPage(ctx, pageNum, pageImages[pageNum])
				results <- out{page: pageNum, res: pr, dur: dur, err: err}
			}
		}()
	}
	for _, n := range pageList {
		jobs <- n
	}
	close(jobs)

	go func() { wg.Wait(); close(results) }()

	var total time.Duration
	var firstErr error
	m := make(map[int]PageResult, len(pageList))
	for r := range results {
		if r.err != nil {
			if firstErr == nil {
				firstErr = fmt.Errorf("failed to process page %d: %w", r.page, r.err)
			}
			continue
		}
		m[r.page] = r.res
		total += r.dur
	}
	if firstErr != nil {
		return nil, 0, firstErr
	}

	pages := make([]PageResult, 0, len(pageList))
	for _, n := range pageList {
		pages = append(pages, m[n])
	}
	return pages, total, nil
}

func (p *Processor) processPage(ctx context.Context, pageNum int, images []image.Image) (PageResult, time.Duration, error) {
	start := time.Now()
	pr := PageResult{PageNumber: pageNum, Images: make([]ImageResult, 0, len(images))}
	for i, img := range images {
		res, err := p.reader.Read(ctx, img)
		if err != nil {
			return PageResult{}, 0, fmt.Errorf("image %d: %w", i, err)
		}
		pr.Images = append(pr.Images, ImageResult{ImageIndex: i, ImageResult: *res})
	}
	dur := time.Since(start)
	pr.Processing = ProcessingInfo{DecodeTimeMs: dur.Milliseconds(), TotalTimeMs: dur.Milliseconds()}
	return pr, dur, nil
}

// ProcessFiles reads several PDF files.
func (p *Processor) ProcessFiles(ctx context.Context, filenames []string, pageRange string) ([]*DocumentResult, error) {
	return p.ProcessFilesWithCredentials(ctx, filenames, pageRange, nil)
}

// ProcessFilesWithCredentials reads several PDF files with optional
// password credentials. It stops at the first failing file.
func (p *Processor) ProcessFilesWithCredentials(ctx context.Context, filenames []string, pageRange string,
	creds *PasswordCredentials,
) ([]*DocumentResult, error) {
	results := make([]*DocumentResult, 0, len(filenames))
	for _, filename := range filenames {
		result, err := p.ProcessFileWithCredentials(ctx, filename, pageRange, creds)
		if err != nil {
			return nil, fmt.Errorf("failed to process %s: %w", filename, err)
		}
		results = append(results, result)
	}
	return results, nil
}
