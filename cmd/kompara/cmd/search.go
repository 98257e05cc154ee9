package cmd

import (
	"github.com/spf13/cobra"
)

func searchCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "search <term>",
		Short: "Search offers through a running server",
		Long:  "Sends the term to the server's search endpoint and prints the offers in provider order.",
		Example: `  kompara search fralda
  kompara search "fralda pampers" --limit 5 --output json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c := newClient()
			out := cmd.OutOrStdout()

			if limit > 0 {
				res, err := c.SearchOffers(cmd.Context(), args[0], limit)
				if err != nil {
					return err
				}
				if jsonOutput() {
					return outputJSON(out, res.Offers)
				}
				return printOffersTable(out, res.Offers)
			}

			offers, err := c.Search(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if jsonOutput() {
				return outputJSON(out, offers)
			}
			return printOffersTable(out, offers)
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 0, "maximum number of offers (provider default when 0)")

	return cmd
}
