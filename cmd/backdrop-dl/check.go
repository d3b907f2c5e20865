package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/spf13/cobra"

	"backdrop-gallery/internal/analytics"
	"backdrop-gallery/internal/loader"
)

// gridLayout places images row by row in fixed-size tiles.
type gridLayout struct {
	Columns    int
	TileWidth  float64
	TileHeight float64
	Gap        float64
}

// Rect returns the layout box of the i-th tile.
func (g gridLayout) Rect(i int) loader.Rect {
	col, row := i%g.Columns, i/g.Columns
	return loader.Rect{
		X:      float64(col) * (g.TileWidth + g.Gap),
		Y:      float64(row) * (g.TileHeight + g.Gap),
		Width:  g.TileWidth,
		Height: g.TileHeight,
	}
}

// Width is the width of a full row.
func (g gridLayout) Width() float64 {
	return float64(g.Columns)*(g.TileWidth+g.Gap) - g.Gap
}

// Height is the height of n tiles.
func (g gridLayout) Height(n int) float64 {
	rows := (n + g.Columns - 1) / g.Columns
	if rows == 0 {
		return 0
	}
	return float64(rows)*(g.TileHeight+g.Gap) - g.Gap
}

// checkResult summarizes a check run.
type checkResult struct {
	Loaded  int
	Errored []*loader.Loader
	Pending int
}

// checker lazy-loads a category the way the gallery page does: every image
// is mounted behind the viewport and fetched once it scrolls into view.
type checker struct {
	layout         gridLayout
	viewportHeight float64
	retries        int
	fetcher        loader.Fetcher
	sink           analytics.Sink
	baseURL        string
}

func (c *checker) run(ctx context.Context, images []listedImage) (checkResult, error) {
	vp := loader.NewViewport(c.layout.Width(), c.viewportHeight)

	loaders := make([]*loader.Loader, 0, len(images))
	defer func() {
		for _, l := range loaders {
			l.Unmount()
		}
	}()

	for i, img := range images {
		opts := loader.DefaultOptions()
		opts.Bounds = c.layout.Rect(i)
		l := loader.New(img.ImageRecord, opts, loader.Deps{
			Observer: vp,
			Fetcher:  c.fetcher,
			Sink:     c.sink,
			BaseURL:  c.baseURL,
		})
		if err := l.Mount(ctx); err != nil {
			return checkResult{}, fmt.Errorf("mount %s: %w", img.Key, err)
		}
		loaders = append(loaders, l)
	}

	c.scroll(ctx, vp, c.layout.Height(len(images)))
	waitAll(loaders)

	for attempt := 0; attempt < c.retries; attempt++ {
		retried := 0
		for _, l := range loaders {
			if l.State() == loader.StateErrored {
				if err := l.Retry(ctx); err == nil {
					retried++
				}
			}
		}
		if retried == 0 {
			break
		}
		waitAll(loaders)
	}

	var res checkResult
	for _, l := range loaders {
		switch l.State() {
		case loader.StateLoaded:
			res.Loaded++
		case loader.StateErrored:
			res.Errored = append(res.Errored, l)
		default:
			res.Pending++
		}
	}
	return res, ctx.Err()
}

// scroll moves the viewport from top to bottom in half-screen steps.
func (c *checker) scroll(ctx context.Context, vp *loader.Viewport, contentHeight float64) {
	step := math.Max(c.viewportHeight/2, 1)
	for y := 0.0; ctx.Err() == nil; y += step {
		vp.ScrollTo(y)
		if y+c.viewportHeight >= contentHeight {
			return
		}
	}
}

func waitAll(loaders []*loader.Loader) {
	for _, l := range loaders {
		l.Wait()
	}
}

func printCheck(w io.Writer, slug string, res checkResult) {
	for _, l := range res.Errored {
		fmt.Fprintf(w, "FAIL %s (%s): %v\n", l.Record().Filename, l.Alt(), l.Err())
	}
	fmt.Fprintf(w, "%s: %d loaded, %d errored, %d pending\n", slug, res.Loaded, len(res.Errored), res.Pending)
}

func newCheckCmd(opts *globalOptions) *cobra.Command {
	var (
		retries  int
		columns  int
		viewport float64
		report   bool
	)

	cmd := &cobra.Command{
		Use:   "check <category>",
		Short: "Lazy-load every image of a category and report failures",
		Long: `Lays the category out as a grid, scrolls a simulated viewport over it
and loads each image as it comes into view, retrying failures with a
cache-busting parameter. Exits non-zero when any image stays errored.`,
		Example: `  # Check a category, retrying failures twice
  backdrop-dl check conference-rooms --retries 2`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := opts.client()
			listing, err := client.category(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			var sink analytics.Sink = analytics.LogSink{}
			if report {
				sink = analytics.Multi{sink, eventReporter{client: client}}
			}

			c := &checker{
				layout:         gridLayout{Columns: columns, TileWidth: 400, TileHeight: 225, Gap: 16},
				viewportHeight: viewport,
				retries:        retries,
				fetcher:        loader.NewHTTPFetcher(opts.timeout),
				sink:           sink,
				baseURL:        client.base,
			}
			res, err := c.run(cmd.Context(), listing.Images)
			if err != nil {
				return err
			}

			printCheck(cmd.OutOrStdout(), args[0], res)
			if len(res.Errored) > 0 {
				return fmt.Errorf("%d of %d images failed to load", len(res.Errored), len(listing.Images))
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&retries, "retries", 1, "Retries per failed image")
	cmd.Flags().IntVar(&columns, "columns", 3, "Grid columns")
	cmd.Flags().Float64Var(&viewport, "viewport-height", 800, "Viewport height in pixels")
	cmd.Flags().BoolVar(&report, "report", false, "Send load events to the server's analytics endpoint")

	cmd.PreRunE = func(cmd *cobra.Command, args []string) error {
		if columns < 1 {
			return errors.New("--columns must be at least 1")
		}
		if retries < 0 {
			return errors.New("--retries must not be negative")
		}
		if viewport <= 0 {
			return errors.New("--viewport-height must be positive")
		}
		return nil
	}

	return cmd
}
