package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/spf13/cobra"

	"backdrop-gallery/internal/analytics"
	"backdrop-gallery/internal/download"
	"backdrop-gallery/internal/transcode"
)

type getOptions struct {
	out         string
	format      string
	engine      string
	marketplace string
}

func newGetCmd(opts *globalOptions) *cobra.Command {
	g := &getOptions{}

	cmd := &cobra.Command{
		Use:   "get <key>",
		Short: "Download an image in a lossless format",
		Long: `Downloads one image by its metadata key and re-encodes it locally.

If the image cannot be converted, the original file is saved unchanged.
Premium images are not downloaded; their purchase link is printed instead.`,
		Example: `  # Save as PNG in the current directory
  backdrop-dl get loft

  # Save as TIFF into ./backgrounds using libvips
  backdrop-dl get loft --format tiff --out backgrounds --engine vips`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGet(cmd.Context(), cmd.OutOrStdout(), opts, g, args[0])
		},
	}

	cmd.Flags().StringVarP(&g.out, "out", "o", ".", "Output directory")
	cmd.Flags().StringVarP(&g.format, "format", "f", string(transcode.DefaultFormat), "Output format: png, tiff or bmp")
	cmd.Flags().StringVar(&g.engine, "engine", transcode.EngineImaging, "Transcoder: imaging or vips")
	cmd.Flags().StringVar(&g.marketplace, "marketplace", download.DefaultMarketplaceURL, "Storefront for premium purchase links")

	return cmd
}

func runGet(ctx context.Context, w io.Writer, opts *globalOptions, g *getOptions, key string) error {
	format, err := transcode.ParseFormat(g.format)
	if err != nil {
		return err
	}

	trans, err := transcode.New(g.engine)
	if err != nil {
		return err
	}
	if g.engine == transcode.EngineVips {
		defer transcode.ShutdownVips()
	}

	client := opts.client()
	meta, err := client.metadata(ctx)
	if err != nil {
		return fmt.Errorf("load metadata: %w", err)
	}
	rec, ok := meta.Get(key)
	if !ok {
		return fmt.Errorf("no image with key %q", key)
	}

	fetcher := &download.HTTPFetcher{Client: &http.Client{Timeout: opts.timeout}}
	saver := &download.FileSaver{Dir: g.out, Fetcher: fetcher}
	flow := download.NewFlow(download.Config{
		BaseURL:        client.base,
		MarketplaceURL: g.marketplace,
		Format:         format,
	}, download.Deps{
		Fetcher:    fetcher,
		Transcoder: trans,
		Saver:      saver,
		Opener:     download.WriterOpener{W: w},
		Sink:       analytics.LogSink{},
	})

	out := flow.Run(ctx, rec)
	switch out.Kind {
	case download.OutcomeConverted:
		fmt.Fprintf(w, "Saved %s (%d bytes, %s)\n", saver.Target(out.Filename), out.Bytes, format)
	case download.OutcomeFallback:
		if _, err := os.Stat(saver.Target(out.Filename)); err != nil {
			return fmt.Errorf("download failed: %w", out.Reason)
		}
		fmt.Fprintf(w, "Conversion failed (%v); saved original as %s\n", out.Reason, saver.Target(out.Filename))
	case download.OutcomePurchase:
		if out.Reason != nil {
			return out.Reason
		}
	}
	return nil
}
