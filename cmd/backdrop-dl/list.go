package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func newListCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list <category>",
		Short: "List the images of a category",
		Example: `  # List home office backgrounds
  backdrop-dl list home-offices`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			listing, err := opts.client().category(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printListing(cmd.OutOrStdout(), listing)
		},
	}
}

func printListing(w io.Writer, listing *categoryListing) error {
	fmt.Fprintf(w, "%s (%d images)\n", listing.Category.Name, len(listing.Images))
	if len(listing.Images) == 0 {
		return nil
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "KEY\tTITLE\tFILE\tPREMIUM")
	for _, img := range listing.Images {
		premium := ""
		if img.IsPremium {
			premium = "yes"
			if img.Price != "" {
				premium += " ($" + string(img.Price) + ")"
			}
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", img.Key, img.DisplayTitle(), img.Filename, premium)
	}
	return tw.Flush()
}
