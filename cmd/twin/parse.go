package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Veraticus/digital-twin/internal/cli"
)

func parseCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "parse DESCRIPTION...",
		Short: "Turn a campaign description into a filter",
		Long: `Send a free-text campaign description to the configured language model and
print the resulting campaign filter as JSON. Values the model invented are
dropped and reported.

Example:
  twin parse "Variable rate mortgage for corporate clients, sold in branch"`,
		Args: cobra.MinimumNArgs(1),
		RunE: runParse,
	}
}

func runParse(cmd *cobra.Command, args []string) error {
	parser, err := newParser()
	if err != nil {
		return err
	}
	defer parser.Close()

	parsed, err := parser.Parse(cmd.Context(), strings.Join(args, " "))
	if err != nil {
		return fmt.Errorf("failed to parse campaign description: %w", err)
	}

	out, err := json.MarshalIndent(parsed.Filter, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode filter: %w", err)
	}

	printParseNotes(parsed)
	fmt.Println(cli.RenderBox(cli.RobotIcon+" Campaign filter", string(out))) //nolint:forbidigo // User-facing output
	return nil
}
