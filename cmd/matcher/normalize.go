package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/leed-ll97/internal/normalize"
	"github.com/leed-ll97/internal/similarity"
)

func createNormalizeCmd() *cobra.Command {
	var parserName, compare string
	var debug, ids bool

	cmd := &cobra.Command{
		Use:   "normalize [address...]",
		Short: "Show the canonical form of addresses",
		Long:  `Prints the normalized address, optionally the BBL, BIN and ZIP readings, and, with --compare, the token sort ratio, Jaro-Winkler similarity and edit distance against another address`,
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			addr, err := newAddressNormalizer(parserName, debug)
			if err != nil {
				return err
			}
			var other string
			if compare != "" {
				other = addr.Normalize(compare)
			}
			w := cmd.OutOrStdout()
			for _, raw := range args {
				norm := addr.Normalize(raw)
				fmt.Fprintf(w, "%s\t%s\n", raw, norm)
				if ids {
					fmt.Fprintf(w, "  %s\n", formatIDs(raw))
				}
				if compare != "" {
					fmt.Fprintf(w, "  vs %s\ttoken_sort=%d jaro_winkler=%d edits=%d\n", other,
						similarity.TokenSortRatio(norm, other), similarity.JaroWinkler(norm, other),
						similarity.EditDistance(norm, other))
				}
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&parserName, "parser", "builtin", "Address parser: builtin or libpostal")
	cmd.Flags().StringVar(&compare, "compare", "", "Address to score the inputs against")
	cmd.Flags().BoolVar(&ids, "ids", false, "Also show the value read as BBL, BIN and ZIP")
	cmd.Flags().BoolVar(&debug, "debug", false, "Trace parser fallbacks")
	return cmd
}

// formatIDs renders the identifier normalizations of one raw value.
func formatIDs(raw string) string {
	return strings.Join([]string{
		"bbl=" + normalize.ParcelID(raw),
		"bin=" + normalize.BuildingID(raw),
		"zip=" + normalize.ZIP(raw),
	}, " ")
}
