package main

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/marquee/internal/formatter"
	"github.com/desertthunder/marquee/internal/models"
	"github.com/desertthunder/marquee/internal/shared"
	"github.com/desertthunder/marquee/internal/tasks"
)

// Export writes the user's collections to disk in the requested format.
func (r *Runner) Export(ctx context.Context, cmd *cli.Command) error {
	format := strings.ToLower(cmd.String("format"))
	if !slices.Contains(formatter.Formats(), format) {
		return fmt.Errorf("%w: format must be one of %s", shared.ErrInvalidFlag, strings.Join(formatter.Formats(), ", "))
	}

	var only []models.Collection
	for _, raw := range cmd.StringSlice("only") {
		c, err := models.ParseCollection(raw)
		if err != nil {
			return fmt.Errorf("%w: %v", shared.ErrInvalidFlag, err)
		}
		only = append(only, c)
	}

	s, err := r.session()
	if err != nil {
		return err
	}

	progress, done := r.printProgress()
	if cmd.Bool("sync") {
		s.synchronizer.LoadAllProgress(ctx, progress)
	}

	result, err := s.exporter.ExportCollections(ctx, progress, tasks.ExportOpts{
		Format:     format,
		OutputDir:  cmd.String("output"),
		NumWorkers: int(cmd.Int("workers")),
		PosterBase: r.config.Catalog.PosterBaseURL,
		Hydrate:    cmd.Bool("hydrate"),
		Only:       only,
	})
	close(progress)
	<-done

	if result == nil {
		return err
	}

	r.writePlainln("Export complete: %d succeeded, %d failed", result.Successful, result.Failed)
	r.writePlain("Output: %s\n", result.OutputDirectory)
	if result.ManifestPath != "" {
		r.writePlain("Manifest: %s\n", result.ManifestPath)
	}
	for _, res := range result.Results {
		if res.Error != nil {
			r.writePlain("  ✗ %s: %v\n", res.Collection.Label(), res.Error)
			continue
		}
		r.writePlain("  ✓ %s: %d titles, %d files\n", res.Collection.Label(), res.Items, len(res.Files))
	}
	return err
}
