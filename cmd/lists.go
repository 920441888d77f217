package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/marquee/internal/models"
	"github.com/desertthunder/marquee/internal/shared"
	"github.com/desertthunder/marquee/internal/tasks"
)

// collectionsArg parses an optional collection argument; empty selects every collection.
func collectionsArg(raw string) ([]models.Collection, error) {
	if raw == "" {
		return models.Collections(), nil
	}
	c, err := models.ParseCollection(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrInvalidArgument, err)
	}
	return []models.Collection{c}, nil
}

// itemArgs reads the --id and --type flags.
func itemArgs(cmd *cli.Command) (string, models.MediaType, error) {
	id := cmd.String("id")
	if id == "" {
		return "", "", fmt.Errorf("%w: --id is required", shared.ErrMissingArgument)
	}
	mediaType, err := models.ParseMediaType(cmd.String("type"))
	if err != nil {
		return "", "", fmt.Errorf("%w: %v", shared.ErrInvalidFlag, err)
	}
	return id, mediaType, nil
}

// ListsShow prints the cached collections without contacting the backend.
func (r *Runner) ListsShow(ctx context.Context, cmd *cli.Command) error {
	collections, err := collectionsArg(cmd.StringArg("collection"))
	if err != nil {
		return err
	}

	s, err := r.session()
	if err != nil {
		return err
	}

	snapshot := make(map[models.Collection][]models.MediaItem, len(collections))
	for _, c := range collections {
		snapshot[c] = s.store.Get(c)
	}

	if cmd.Bool("json") {
		return r.writeJSON(snapshot, cmd.Bool("pretty"))
	}

	for _, c := range collections {
		r.printItems(c.Label(), snapshot[c])
	}
	return nil
}

// ListsSync fetches every collection from the backend, keeping the cached copy of any that fail.
func (r *Runner) ListsSync(ctx context.Context, cmd *cli.Command) error {
	s, err := r.session()
	if err != nil {
		return err
	}

	useJSON := cmd.Bool("json")
	var collections tasks.Collections
	if useJSON {
		collections = s.synchronizer.LoadAll(ctx)
		return r.writeJSON(collections, cmd.Bool("pretty"))
	}

	progress, done := r.printProgress()
	collections = s.synchronizer.LoadAllProgress(ctx, progress)
	close(progress)
	<-done

	r.writePlainln("✓ %d titles across %d collections", collections.Count(), len(collections))
	return nil
}

// ListsToggle adds a title to a collection, or removes it when it is already there.
func (r *Runner) ListsToggle(ctx context.Context, cmd *cli.Command) error {
	raw := cmd.StringArg("collection")
	if raw == "" {
		return fmt.Errorf("%w: collection", shared.ErrMissingArgument)
	}
	c, err := models.ParseCollection(raw)
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrInvalidArgument, err)
	}

	id, mediaType, err := itemArgs(cmd)
	if err != nil {
		return err
	}

	s, err := r.session()
	if err != nil {
		return err
	}

	title := models.ItemKey(mediaType, id)
	if item, ok := s.store.FindAcrossCollections(mediaType, id); ok {
		title = item.DisplayTitle()
	}

	outcome, err := s.synchronizer.Toggle(ctx, c, id, mediaType, tasks.LookupFetcher(s.store, r.catalog))
	if err != nil {
		return fmt.Errorf("failed to toggle %s: %w", models.ItemKey(mediaType, id), err)
	}
	if item, ok := s.store.FindAcrossCollections(mediaType, id); ok {
		title = item.DisplayTitle()
	}

	switch outcome {
	case tasks.OutcomeAdded:
		r.writePlain("✓ Added %s to %s\n", title, c.Label())
	case tasks.OutcomeRemoved:
		r.writePlain("✓ Removed %s from %s\n", title, c.Label())
	}
	if failures := s.remote.Failures(); failures > 0 {
		r.writePlain("⚠ The backend did not accept the change; it is kept locally\n")
	}
	return nil
}

// ListsHydrate fills thin records of the selected collections from the catalog.
func (r *Runner) ListsHydrate(ctx context.Context, cmd *cli.Command) error {
	collections, err := collectionsArg(cmd.StringArg("collection"))
	if err != nil {
		return err
	}

	s, err := r.session()
	if err != nil {
		return err
	}

	progress, done := r.printProgress()
	filled := 0
	for _, c := range collections {
		before := 0
		for _, item := range s.store.Get(c) {
			if item.Thin() {
				before++
			}
		}

		after := 0
		for _, item := range s.hydrator.HydrateStoredProgress(ctx, c, progress) {
			if item.Thin() {
				after++
			}
		}
		filled += before - after
	}
	close(progress)
	<-done

	r.writePlainln("✓ Filled %d titles", filled)
	return nil
}

// printItems writes a collection as a numbered plain list.
func (r *Runner) printItems(title string, items []models.MediaItem) {
	r.writePlainHeader(fmt.Sprintf("%s (%d)", title, len(items)))
	if len(items) == 0 {
		r.writePlain("  (empty)\n")
		return
	}
	for i, item := range items {
		r.writePlain("%3d. %s", i+1, item.DisplayTitle())
		if year := item.Year(); year != "" {
			r.writePlain(" (%s)", year)
		}
		r.writePlain("  [%s]\n", item.Key())
	}
}
