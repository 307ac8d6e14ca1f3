package commands

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func chainsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "chains",
		Short: "List configured chains",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			def := appCtx.Engine.DefaultChain()
			for _, c := range appCtx.Engine.Chains() {
				marker := ""
				if c == def {
					marker = " (default)"
				}
				fmt.Printf("%s%s\n", c, marker)
			}
			return nil
		},
	}
}

// tokens [query]: search the merged token lists.
func tokensCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "tokens [query]",
		Short: "Search tokens by symbol or name",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			appCtx.LoadCatalog(cmd.Context())
			items, err := appCtx.Catalog.Search(cmd.Context(), strings.Join(args, " "))
			if err != nil {
				return err
			}
			if limit > 0 && len(items) > limit {
				items = items[:limit]
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "SYMBOL\tNAME\tDECIMALS\tSOURCE\tADDRESS")
			for _, t := range items {
				fmt.Fprintf(w, "%s\t%s\t%d\t%s\t%s\n", t.Symbol, t.Name, t.Decimals, t.Provenance, t.Address)
			}
			return w.Flush()
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 25, "max rows (0 for all)")
	return cmd
}
