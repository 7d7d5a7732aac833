// Package batch runs the extraction flow over a directory of documents.
package batch

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/joseph-ayodele/invoice-extractor/constants"
	"github.com/joseph-ayodele/invoice-extractor/internal/entity"
	"github.com/joseph-ayodele/invoice-extractor/internal/extract"
)

// Extractor runs one upload through the extraction flow.
type Extractor interface {
	Extract(ctx context.Context, up extract.Upload) (*entity.InvoiceData, error)
}

type Result struct {
	Path    string
	Invoice *entity.InvoiceData
	Err     string
}

type Stats struct {
	Scanned   uint32
	Matched   uint32
	Succeeded uint32
	Failed    uint32
}

type Runner struct {
	extractor Extractor
	workers   int
	logger    *slog.Logger
}

func NewRunner(extractor Extractor, workers int, logger *slog.Logger) *Runner {
	if workers <= 0 {
		workers = 2
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{extractor: extractor, workers: workers, logger: logger}
}

// Run walks root, skips hidden entries if requested, and extracts every
// supported file. Per-file failures land in the results, not the error.
// Results come back sorted by path.
func (r *Runner) Run(ctx context.Context, root string, skipHidden bool) ([]Result, Stats, error) {
	if strings.TrimSpace(root) == "" {
		return nil, Stats{}, errors.New("root path is required")
	}

	var (
		stats   Stats
		paths   []string
		results []Result
	)

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		stats.Scanned++
		if walkErr != nil {
			results = append(results, Result{Path: path, Err: walkErr.Error()})
			stats.Failed++
			return nil // continue walking
		}
		if skipHidden && isHidden(path) && path != root {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}
		ext := constants.NormalizeExt(filepath.Ext(path))
		if _, ok := constants.AllowedExtensions[ext]; !ok {
			return nil
		}
		stats.Matched++
		paths = append(paths, path)
		return nil
	})
	if err != nil {
		return results, stats, err
	}

	jobs := make(chan string)
	out := make(chan Result)

	var wg sync.WaitGroup
	for i := 0; i < r.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for path := range jobs {
				out <- r.one(ctx, path)
			}
		}()
	}
	go func() {
		defer close(jobs)
		for _, p := range paths {
			select {
			case jobs <- p:
			case <-ctx.Done():
				return
			}
		}
	}()
	go func() {
		wg.Wait()
		close(out)
	}()

	for res := range out {
		if res.Err == "" {
			stats.Succeeded++
		} else {
			stats.Failed++
		}
		results = append(results, res)
	}
	sort.Slice(results, func(i, j int) bool { return results[i].Path < results[j].Path })
	return results, stats, nil
}

func (r *Runner) one(ctx context.Context, path string) Result {
	data, err := os.ReadFile(path)
	if err != nil {
		return Result{Path: path, Err: err.Error()}
	}
	inv, err := r.extractor.Extract(ctx, extract.Upload{
		Filename:    filepath.Base(path),
		ContentType: constants.ContentTypeForExt(filepath.Ext(path)),
		Data:        data,
	})
	if err != nil {
		r.logger.Error("batch.file_failed", "path", path, "error", err)
		return Result{Path: path, Err: err.Error()}
	}
	return Result{Path: path, Invoice: inv}
}

func isHidden(path string) bool {
	return strings.HasPrefix(filepath.Base(path), ".")
}
