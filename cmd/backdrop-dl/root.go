package main

import (
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"backdrop-gallery/internal/logging"
	"backdrop-gallery/internal/startup"
)

const defaultServer = "http://localhost:8080"

// globalOptions are the persistent flags shared by every subcommand.
type globalOptions struct {
	server  string
	timeout time.Duration
	debug   bool
}

func (o *globalOptions) client() *apiClient {
	return newAPIClient(o.server, o.timeout)
}

func newRootCmd() *cobra.Command {
	opts := &globalOptions{}

	cmd := &cobra.Command{
		Use:   "backdrop-dl",
		Short: "Browse, check and download images from a backdrop gallery server",
		Long: `backdrop-dl talks to a running gallery server.

It lists categories, verifies that every image of a category loads the way
a browser would lazy-load it, and downloads images in a lossless format.`,
		Version:      startup.Version,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			// Load .env file if present (ignore errors)
			_ = godotenv.Load()
			if !cmd.Flags().Changed("server") {
				if env := os.Getenv("BACKDROP_SERVER"); env != "" {
					opts.server = env
				}
			}
			if opts.debug {
				logging.SetLevel(logging.LevelDebug)
			}
		},
	}

	cmd.PersistentFlags().StringVarP(&opts.server, "server", "s", defaultServer, "Gallery server base URL")
	cmd.PersistentFlags().DurationVar(&opts.timeout, "timeout", 30*time.Second, "Per-request timeout")
	cmd.PersistentFlags().BoolVar(&opts.debug, "debug", false, "Enable debug logging")

	cmd.AddCommand(newListCmd(opts))
	cmd.AddCommand(newCheckCmd(opts))
	cmd.AddCommand(newGetCmd(opts))

	return cmd
}
