package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ignite/audience-estimator/internal/config"
	"github.com/ignite/audience-estimator/internal/queryparser"
)

var (
	parseMarkets  string
	parseProvider string
	parseFixed    float64
)

// parseCmd parses a natural-language audience description
var parseCmd = &cobra.Command{
	Use:   "parse [description]",
	Short: "Parse a natural-language audience and size it",
	Long: `Parse an audience description into targeting criteria and estimate it.

The parser provider comes from the config file and environment unless
--provider is given.

Example:
  estimate parse "urban millennials into gaming in the US"`,
	Args: cobra.MinimumNArgs(1),
	RunE: runParse,
}

func init() {
	parseCmd.Flags().StringVar(&parseMarkets, "markets", "", "comma separated market codes overriding those in the text")
	parseCmd.Flags().StringVar(&parseProvider, "provider", "", "parser provider (rules, bedrock, gemini, openai)")
	parseCmd.Flags().Float64Var(&parseFixed, "fixed", -1, "fixed variance draw in [0,1) for reproducible output")
}

func runParse(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadFromEnv(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if parseProvider != "" {
		cfg.Parser.Provider = strings.ToLower(parseProvider)
		cfg.Parser.Model = cfg.Parser.DefaultModel()
	}

	parser, err := queryparser.New(cmd.Context(), cfg.Parser)
	if err != nil {
		return err
	}
	defer queryparser.Close(parser)

	var markets []string
	if parseMarkets != "" {
		markets = strings.Split(parseMarkets, ",")
	}

	builder := queryparser.NewBuilder(parser, newEngine(parseFixed))
	result, err := builder.Build(cmd.Context(), strings.Join(args, " "), markets)
	if err != nil {
		return err
	}
	return printJSON(cmd.OutOrStdout(), result)
}
