package tasks

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/sourcegraph/conc/pool"

	"github.com/desertthunder/marquee/internal/formatter"
	"github.com/desertthunder/marquee/internal/models"
	"github.com/desertthunder/marquee/internal/shared"
	"github.com/desertthunder/marquee/internal/store"
)

// ExportOpts contains configuration for collection exports.
type ExportOpts struct {
	Format     string              // Export format: json, csv, markdown, txt
	OutputDir  string              // Base output directory (default: marquee_export_{epoch})
	NumWorkers int                 // Concurrent writers (default: 3)
	PosterBase string              // Poster base URL for markdown image links
	Hydrate    bool                // Fill thin records from the catalog before writing
	Now        func() time.Time    // Clock for export timestamps
	Only       []models.Collection // Collections to export (default: all)
}

// CollectionExportResult is the outcome of exporting one collection.
type CollectionExportResult struct {
	Collection models.Collection
	Items      int
	Files      []string
	Error      error
}

// ExportResult summarizes a multi-collection export.
type ExportResult struct {
	OutputDirectory string
	ManifestPath    string
	Successful      int
	Failed          int
	Results         []CollectionExportResult
}

// Exporter writes stored collections to disk.
type Exporter struct {
	store    *store.Store
	hydrator *Hydrator
	logger   *log.Logger
}

// NewExporter creates an exporter. hydrator may be nil when thin records should be written as-is.
func NewExporter(st *store.Store, hydrator *Hydrator, logger *log.Logger) *Exporter {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &Exporter{store: st, hydrator: hydrator, logger: shared.WithLogger(logger, "component", "export")}
}

// ExportCollections writes each collection in opts.Format with a bounded worker pool and a manifest.
// A failed collection does not stop the others.
func (e *Exporter) ExportCollections(ctx context.Context, prog chan<- ProgressUpdate, opts ExportOpts) (*ExportResult, error) {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Format == "" {
		opts.Format = formatter.FormatJSON
	}
	if opts.OutputDir == "" {
		opts.OutputDir = fmt.Sprintf("marquee_export_%d", opts.Now().Unix())
	}
	if opts.NumWorkers <= 0 {
		opts.NumWorkers = 3
	}
	collections := opts.Only
	if len(collections) == 0 {
		collections = models.Collections()
	}

	if err := os.MkdirAll(opts.OutputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	result := &ExportResult{
		OutputDirectory: opts.OutputDir,
		Results:         make([]CollectionExportResult, len(collections)),
	}

	var (
		mu        sync.Mutex
		completed int
	)
	total := len(collections)
	exportedAt := opts.Now()

	p := pool.New().WithMaxGoroutines(opts.NumWorkers)
	for i, c := range collections {
		p.Go(func() {
			sendProgress(prog, exportingUpdate(i+1, total, c))
			res := e.exportOne(ctx, prog, c, exportedAt, opts)
			result.Results[i] = res

			mu.Lock()
			defer mu.Unlock()
			completed++
			if res.Error != nil {
				result.Failed++
				e.logger.Warn("collection export failed", "collection", c, "error", res.Error)
				sendProgress(prog, exportFailedUpdate(completed, total, c, res.Error))
				return
			}
			result.Successful++
			sendProgress(prog, exportCompletedUpdate(completed, total, c, len(res.Files)))
		})
	}
	p.Wait()

	manifest := &formatter.Manifest{
		ExportedAt:      exportedAt,
		Format:          opts.Format,
		UserID:          e.store.UserID(),
		OutputDirectory: opts.OutputDir,
		Successful:      result.Successful,
		Failed:          result.Failed,
		Entries:         make([]formatter.ManifestEntry, 0, len(result.Results)),
	}
	for _, res := range result.Results {
		entry := formatter.ManifestEntry{
			Collection: res.Collection,
			Items:      res.Items,
			Files:      res.Files,
			Success:    res.Error == nil,
		}
		if res.Error != nil {
			entry.Error = res.Error.Error()
		}
		manifest.Entries = append(manifest.Entries, entry)
	}

	manifestPath := filepath.Join(opts.OutputDir, "export_manifest.json")
	if err := formatter.WriteManifest(manifest, manifestPath); err != nil {
		return result, fmt.Errorf("export completed but failed to write manifest: %w", err)
	}
	result.ManifestPath = manifestPath
	return result, nil
}

func (e *Exporter) exportOne(ctx context.Context, prog chan<- ProgressUpdate, c models.Collection, at time.Time, opts ExportOpts) CollectionExportResult {
	res := CollectionExportResult{Collection: c, Files: []string{}}

	if err := ctx.Err(); err != nil {
		res.Error = err
		return res
	}

	items := e.store.Get(c)
	if opts.Hydrate && e.hydrator != nil {
		items = e.hydrator.HydrateStoredProgress(ctx, c, prog)
	}
	res.Items = len(items)

	export := formatter.NewCollectionExport(e.store.UserID(), c, items, at)
	files, err := formatter.WriteExport(export, opts.Format, opts.OutputDir, opts.PosterBase)
	if err != nil {
		res.Error = err
		return res
	}
	res.Files = files
	return res
}
