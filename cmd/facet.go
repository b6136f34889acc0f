// cmd/facet.go
package cmd

import (
	"fmt"
	"os"

	"ipLensGo/internal/modules/reconnaissance"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var facetCmd = &cobra.Command{
	Use:     "facet-url [domain]",
	Short:   "Prints the Shodan facet search URL listing IPs seen for a hostname.",
	Example: `  iplens facet-url https://www.example.com/path`,
	Args:    cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		u := reconnaissance.FacetURL(args[0])
		if u == "" {
			color.Red("Please enter a domain name.")
			os.Exit(1)
		}
		fmt.Println(u)
	},
}

func init() {
	rootCmd.AddCommand(facetCmd)
}
