// Package main provides the nornicrt CLI: it compiles planner expressions
// and runs them as predicates over a fixture graph.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	version   = "0.1.0"
	commit    = "dev"
	buildTime = "unknown" // Set via ldflags: -X main.buildTime=$(date +%Y%m%d-%H%M%S)
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "nornicrt",
		Short: "nornicrt - expression and predicate runtime for graph queries",
		Long: `nornicrt compiles planner expression trees against a graph snapshot
and evaluates them as vertex, edge and path predicates.

Expressions are read as YAML or as planner wire bytes.`,
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().String("config", "", "Config file (default: search standard locations)")

	// Version command
	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "nornicrt v%s (%s) built %s\n", version, commit, buildTime)
		},
	})

	evalCmd := &cobra.Command{
		Use:   "eval",
		Short: "Filter the vertices or edges of a fixture graph with an expression",
		Args:  cobra.NoArgs,
		RunE:  runEval,
	}
	addExprFlags(evalCmd)
	evalCmd.Flags().String("fixture", "", "Fixture graph YAML (default: graph.fixture from config)")
	evalCmd.Flags().String("badger-dir", "", "Load the fixture into BadgerDB at this directory and read through a snapshot")
	evalCmd.Flags().Bool("badger-in-memory", false, "Load the fixture into an in-memory BadgerDB")
	evalCmd.Flags().StringSlice("label", nil, "Vertex labels to scan (default: all)")
	evalCmd.Flags().StringSlice("edge", nil, "Edge types to scan as src:label:dst; switches to edge predicates")
	evalCmd.Flags().StringArray("param", nil, "Query parameter name=value (value parsed as YAML)")
	evalCmd.Flags().Bool("stats", false, "Print filter statistics")
	rootCmd.AddCommand(evalCmd)

	encodeCmd := &cobra.Command{
		Use:   "encode",
		Short: "Encode a YAML expression into planner wire bytes",
		Args:  cobra.NoArgs,
		RunE:  runEncode,
	}
	addExprFlags(encodeCmd)
	encodeCmd.Flags().StringP("output", "o", "", "Output file (default: stdout)")
	rootCmd.AddCommand(encodeCmd)

	inspectCmd := &cobra.Command{
		Use:   "inspect",
		Short: "Compile an expression against a fixture schema and print its form and type",
		Args:  cobra.NoArgs,
		RunE:  runInspect,
	}
	addExprFlags(inspectCmd)
	inspectCmd.Flags().String("fixture", "", "Fixture graph YAML (default: graph.fixture from config)")
	inspectCmd.Flags().String("as", "vertex", "Entry point: vertex, edge or path")
	rootCmd.AddCommand(inspectCmd)

	return rootCmd
}

func addExprFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("expr", "e", "", "Inline YAML expression")
	cmd.Flags().StringP("file", "f", "", "Expression file: .yaml/.yml is YAML, anything else is wire bytes")
}
