package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/marquee/internal/models"
	"github.com/desertthunder/marquee/internal/shared"
	"github.com/desertthunder/marquee/internal/tasks"
	"github.com/desertthunder/marquee/internal/ui"
)

// BrowseRows composes and prints the landing rows.
func (r *Runner) BrowseRows(ctx context.Context, cmd *cli.Command) error {
	region := cmd.String("region")
	if region == "" {
		region = r.config.Catalog.Region
	}
	categories := int(cmd.Int("categories"))
	if categories < 0 {
		categories = r.config.Rows.Categories
	}

	composer := tasks.NewRowComposer(r.catalog, r.config.Rows.Concurrency, nil, r.logger)
	defs := tasks.DefaultRows(region, categories, time.Now().Year())

	if cmd.Bool("json") {
		rows := composer.ComposeRows(ctx, defs)
		if len(rows) == 0 {
			return shared.ErrNoRows
		}
		return r.writeJSON(rows, cmd.Bool("pretty"))
	}

	progress, done := r.printProgress()
	rows := composer.ComposeRowsProgress(ctx, defs, progress)
	close(progress)
	<-done

	if len(rows) == 0 {
		return shared.ErrNoRows
	}

	for _, row := range rows {
		r.writePlainln("%s", row.Title)
		for i, item := range row.Items {
			if row.Ranked {
				r.writePlain("%3d. %s\n", i+1, item.DisplayTitle())
			} else {
				r.writePlain("  • %s\n", item.DisplayTitle())
			}
		}
	}
	return nil
}

// BrowseHero picks and prints the featured title.
func (r *Runner) BrowseHero(ctx context.Context, cmd *cli.Command) error {
	mediaType := models.MediaType(strings.ToLower(cmd.String("type")))
	if mediaType != models.MediaTypeAll && !mediaType.Valid() {
		return fmt.Errorf("%w: unknown media type %q", shared.ErrInvalidFlag, mediaType)
	}

	composer := tasks.NewRowComposer(r.catalog, r.config.Rows.Concurrency, nil, r.logger)
	hero, err := composer.Hero(ctx, mediaType)
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(hero, cmd.Bool("pretty"))
	}

	r.writePlainHeader(hero.DisplayTitle())
	r.writePlain("%s • %s\n", hero.MediaType.Label(), hero.Year())
	if hero.Overview != "" {
		r.writePlain("\n%s\n", hero.Overview)
	}
	r.writePlain("\n%s\n", models.ImageURL(r.config.Catalog.BackdropBaseURL, hero.BackdropPath))
	return nil
}

// BrowseUpcoming lists titles that have not been released yet, and sets a reminder for one with --remind.
func (r *Runner) BrowseUpcoming(ctx context.Context, cmd *cli.Command) error {
	region := cmd.String("region")
	if region == "" {
		region = r.config.Catalog.Region
	}

	s, err := r.session()
	if err != nil {
		return err
	}

	upcoming, err := s.presenter.ComingSoon(ctx, region, time.Now(), int(cmd.Int("limit")))
	if err != nil {
		return err
	}

	remind := int(cmd.Int("remind"))
	if remind < 0 || remind > len(upcoming) {
		return fmt.Errorf("%w: --remind must be between 1 and %d", shared.ErrInvalidFlag, len(upcoming))
	}

	if cmd.Bool("json") {
		if err := r.writeJSON(upcoming, cmd.Bool("pretty")); err != nil {
			return err
		}
	} else {
		r.writePlainHeader(fmt.Sprintf("Coming soon in %s (%d)", tasks.CountryName(region), len(upcoming)))
		for i, u := range upcoming {
			r.writePlain("%3d. %s  %s  [%s]\n", i+1, u.Item.ReleaseDate, u.Item.DisplayTitle(), u.Item.Key())
			if u.Trailer != "" {
				r.writePlain("     Trailer: %s%s\n", ui.TrailerBaseURL, u.Trailer)
			}
		}
	}

	if remind == 0 {
		return nil
	}
	item := upcoming[remind-1].Item
	if err := r.backend.Remind(ctx, item); err != nil {
		return err
	}
	if !cmd.Bool("json") {
		r.writePlain("✓ Reminder set for %s (%s)\n", item.DisplayTitle(), item.ReleaseDate)
	}
	return nil
}

// BrowsePerson lists the titles a cast member appeared in, most popular first.
func (r *Runner) BrowsePerson(ctx context.Context, cmd *cli.Command) error {
	personID := cmd.StringArg("id")
	if personID == "" {
		return fmt.Errorf("%w: person id", shared.ErrMissingArgument)
	}

	s, err := r.session()
	if err != nil {
		return err
	}

	works, err := s.presenter.Filmography(ctx, personID)
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(works, cmd.Bool("pretty"))
	}
	r.printItems(fmt.Sprintf("Titles with person %s", personID), works)
	return nil
}

// Search runs one catalog search and prints the movie and tv results that have posters.
func (r *Runner) Search(ctx context.Context, cmd *cli.Command) error {
	query := cmd.StringArg("query")
	if strings.TrimSpace(query) == "" {
		return fmt.Errorf("%w: query", shared.ErrMissingArgument)
	}

	searcher := tasks.NewSearcher(r.catalog, r.config.Search.Debounce, nil, r.logger)
	items, err := searcher.Search(ctx, query)
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(items, cmd.Bool("pretty"))
	}

	r.printItems(fmt.Sprintf("Results for %q", query), items)
	return nil
}

// Detail prints the full view of a title, or its hover preview with --preview.
func (r *Runner) Detail(ctx context.Context, cmd *cli.Command) error {
	id, mediaType, err := itemArgs(cmd)
	if err != nil {
		return err
	}
	season := int(cmd.Int("season"))
	if season < 0 || (season > 0 && mediaType != models.MediaTypeTV) {
		return fmt.Errorf("%w: --season needs a tv show and a season number", shared.ErrInvalidFlag)
	}

	s, err := r.session()
	if err != nil {
		return err
	}

	if cmd.Bool("preview") {
		card := tasks.NewCard(mediaType, id)
		if err := s.presenter.Present(ctx, card); err != nil {
			r.writePlain("%s\n", tasks.PreviewUnavailable)
			return err
		}
		preview, _ := card.Preview()
		if cmd.Bool("json") {
			return r.writeJSON(preview, true)
		}
		r.printPreview(preview)
		return nil
	}

	details, err := s.presenter.Open(ctx, mediaType, id)
	if err != nil {
		return err
	}

	var episodes []models.Episode
	if season > 0 {
		if episodes, err = s.presenter.Episodes(ctx, id, season); err != nil {
			return err
		}
	}

	if cmd.Bool("json") {
		if season > 0 {
			return r.writeJSON(map[string]any{"details": details, "season": season, "episodes": episodes}, true)
		}
		return r.writeJSON(details, true)
	}

	item := details.Item
	r.writePlainHeader(item.DisplayTitle())
	r.writePlain("%s\n", strings.Join(nonEmpty(item.MediaType.Label(), item.Year(), item.Runtime(), item.Rating()), " • "))
	if details.Seasons > 0 {
		r.writePlain("%d seasons\n", details.Seasons)
	}
	if len(item.Genres) > 0 {
		r.writePlain("%s\n", strings.Join(item.Genres, ", "))
	}
	if item.Overview != "" {
		r.writePlain("\n%s\n", item.Overview)
	}
	if len(details.Cast) > 0 {
		r.writePlain("\nStarring: %s\n", strings.Join(details.Cast, ", "))
	}
	if cmd.Bool("cast") {
		for _, c := range details.Credits {
			r.writePlain("  %s", c.Name)
			if c.Character != "" {
				r.writePlain(" as %s", c.Character)
			}
			r.writePlain("  [person %s]\n", c.ID)
		}
	}
	if details.Trailer != "" {
		r.writePlain("Trailer: %s%s\n", ui.TrailerBaseURL, details.Trailer)
	}

	if season > 0 {
		r.writePlain("\nSeason %d\n", season)
		for _, e := range episodes {
			r.writePlain("  %s\n", e.Label())
		}
	}

	var flags []string
	if s.store.Contains(models.CollectionMyList, mediaType, id) {
		flags = append(flags, "✓ My List")
	}
	if s.store.Contains(models.CollectionLiked, mediaType, id) {
		flags = append(flags, "♥ Liked")
	}
	if len(flags) > 0 {
		r.writePlain("\n%s\n", strings.Join(flags, "  "))
	}
	return nil
}

func (r *Runner) printPreview(p tasks.Preview) {
	r.writePlainHeader(p.Title)
	r.writePlain("%s\n", strings.Join(nonEmpty(p.Year, p.Runtime, p.Rating), " • "))
	if len(p.Genres) > 0 {
		r.writePlain("%s\n", strings.Join(p.Genres, ", "))
	}
	if p.Overview != "" {
		r.writePlain("\n%s\n", p.Overview)
	}
}

// Play opens the player for a title, or prints its URL with --print.
func (r *Runner) Play(ctx context.Context, cmd *cli.Command) error {
	id, mediaType, err := itemArgs(cmd)
	if err != nil {
		return err
	}

	url := shared.PlayerURL(r.config.Catalog.PlayerURL, string(mediaType), id, int(cmd.Int("season")), int(cmd.Int("episode")))
	if cmd.Bool("print") {
		return r.writePlain("%s\n", url)
	}

	r.logger.Info("opening player", "url", url)
	if err := r.openURL(url); err != nil {
		return fmt.Errorf("failed to open player: %w", err)
	}
	return r.writePlain("▶ %s\n", url)
}

func nonEmpty(parts ...string) []string {
	kept := make([]string, 0, len(parts))
	for _, p := range parts {
		if p != "" {
			kept = append(kept, p)
		}
	}
	return kept
}
