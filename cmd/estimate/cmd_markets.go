package main

import (
	"fmt"
	"math"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/ignite/audience-estimator/internal/estimation"
)

var marketsJSON bool

// marketsCmd lists supported markets
var marketsCmd = &cobra.Command{
	Use:   "markets",
	Short: "List supported markets and their reach constants",
	RunE:  runMarkets,
}

func init() {
	marketsCmd.Flags().BoolVar(&marketsJSON, "json", false, "print JSON instead of a table")
}

func runMarkets(cmd *cobra.Command, args []string) error {
	codes := estimation.SupportedMarkets()
	if marketsJSON {
		out := make(map[string]estimation.MarketProfile, len(codes))
		for _, code := range codes {
			out[code] = estimation.ResolveMarket(code)
		}
		return printJSON(cmd.OutOrStdout(), out)
	}

	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "MARKET\tPOPULATION (M)\tINTERNET\tSURVEY REACH\tREACHABLE")
	for _, code := range codes {
		p := estimation.ResolveMarket(code)
		fmt.Fprintf(tw, "%s\t%.0f\t%.2f\t%.2f\t%d\n",
			code, p.Population, p.InternetPenetration, p.SurveyReach, int64(math.Round(p.ReachablePopulation())))
	}
	return tw.Flush()
}
