// Package batch runs a per-file operation over many files on a bounded
// worker pool.
package batch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"
)

// Func processes one file.
type Func[T any] func(ctx context.Context, path string) (T, error)

// Item is the outcome for one file.
type Item[T any] struct {
	Path     string
	Value    T
	Err      error
	Duration time.Duration
}

// Result holds the items of a run in input order.
type Result[T any] struct {
	Items    []Item[T]
	Duration time.Duration
	Workers  int
}

// Values returns the values of the successful items in input order.
func (r *Result[T]) Values() []T {
	out := make([]T, 0, len(r.Items))
	for _, it := range r.Items {
		if it.Err == nil {
			out = append(out, it.Value)
		}
	}
	return out
}

// Failed returns the failed items in input order.
func (r *Result[T]) Failed() []Item[T] {
	var out []Item[T]
	for _, it := range r.Items {
		if it.Err != nil {
			out = append(out, it)
		}
	}
	return out
}

// Stats summarizes a run.
type Stats struct {
	Total      int
	Processed  int
	Failed     int
	Workers    int
	Duration   time.Duration
	AvgPerItem time.Duration
	Throughput float64 // items per second
}

// Stats computes the run statistics.
func (r *Result[T]) Stats() Stats {
	s := Stats{Total: len(r.Items), Workers: r.Workers, Duration: r.Duration}
	for _, it := range r.Items {
		if it.Err != nil {
			s.Failed++
		} else {
			s.Processed++
		}
	}
	if s.Total > 0 {
		s.AvgPerItem = r.Duration / time.Duration(s.Total)
	}
	if r.Duration > 0 {
		s.Throughput = float64(s.Total) / r.Duration.Seconds()
	}
	return s
}

// PrintStats writes the run statistics to w.
func (r *Result[T]) PrintStats(w io.Writer) {
	stats := r.Stats()
	_, _ = fmt.Fprintf(w, "\nProcessing Statistics:\n")
	_, _ = fmt.Fprintf(w, "  Total files: %d\n", stats.Total)
	_, _ = fmt.Fprintf(w, "  Processed: %d\n", stats.Processed)
	_, _ = fmt.Fprintf(w, "  Failed: %d\n", stats.Failed)
	_, _ = fmt.Fprintf(w, "  Workers: %d\n", stats.Workers)
	_, _ = fmt.Fprintf(w, "  Duration: %v\n", stats.Duration.Round(time.Millisecond))
	_, _ = fmt.Fprintf(w, "  Avg per file: %v\n", stats.AvgPerItem.Round(time.Millisecond))
	_, _ = fmt.Fprintf(w, "  Throughput: %.1f files/sec\n", stats.Throughput)
}

type job struct {
	index int
	path  string
}

// Run applies fn to every path. Items keep the order of paths. Unless
// cfg.ContinueOnError is set, the first failure in input order is returned
// together with the partial result. A cancelled context returns its error.
func Run[T any](ctx context.Context, paths []string, cfg Config, fn Func[T]) (*Result[T], error) {
	if len(paths) == 0 {
		return nil, errors.New("no files to process")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	workers := cfg.workers(len(paths))
	progress := cfg.Progress
	if progress == nil {
		progress = NoOpProgress{}
	}
	progress.OnStart(len(paths))
	defer progress.OnComplete()

	start := time.Now()
	items := make([]Item[T], len(paths))
	jobs := make(chan job)

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		done int
	)
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range jobs {
				t0 := time.Now()
				v, err := fn(ctx, j.path)
				items[j.index] = Item[T]{Path: j.path, Value: v, Err: err, Duration: time.Since(t0)}

				mu.Lock()
				done++
				current := done
				mu.Unlock()
				if err != nil {
					progress.OnError(current, fmt.Errorf("%s: %w", j.path, err))
				}
				progress.OnProgress(current, len(paths))
			}
		}()
	}

feed:
	for i, p := range paths {
		select {
		case jobs <- job{index: i, path: p}:
		case <-ctx.Done():
			break feed
		}
	}
	close(jobs)
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	res := &Result[T]{Items: items, Duration: time.Since(start), Workers: workers}
	if !cfg.ContinueOnError {
		if failed := res.Failed(); len(failed) > 0 {
			return res, fmt.Errorf("%s: %w", failed[0].Path, failed[0].Err)
		}
	}
	return res, nil
}
