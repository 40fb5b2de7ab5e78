package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Veraticus/digital-twin/internal/campaign"
	"github.com/Veraticus/digital-twin/internal/cli"
	"github.com/Veraticus/digital-twin/internal/common"
	"github.com/Veraticus/digital-twin/internal/config"
	"github.com/Veraticus/digital-twin/internal/llm"
	"github.com/Veraticus/digital-twin/internal/population"
	"github.com/Veraticus/digital-twin/internal/report"
	"github.com/Veraticus/digital-twin/internal/simulation"
)

func simulateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Simulate twin responses to a campaign",
		Long: `Generate the synthetic population, estimate base propensities and score every
twin against a campaign. The campaign comes from --describe (parsed by the
configured language model), from the field flags, or both: flags override
whatever the description produced.

Examples:
  twin simulate --product-type Loan --segment SME,Corporate
  twin simulate --describe "Cashback credit card for young digital savers"
  twin simulate --model xgboost --top 25 --inspect SME_42
  twin simulate --export twins.csv
  twin simulate --export runs.db --format sqlite`,
		RunE: runSimulate,
	}

	cmd.Flags().Int("individuals", simulation.DefaultIndividuals, "number of individual customers")
	cmd.Flags().Int("smes", simulation.DefaultSMEs, "number of SME customers")
	cmd.Flags().Int("corporates", simulation.DefaultCorporates, "number of corporate customers")
	cmd.Flags().Uint64("seed", simulation.DefaultSeed, "random seed")
	cmd.Flags().Int("months", simulation.DefaultMonths, fmt.Sprintf("months of transaction history (at most %d)", population.MaxMonths))
	cmd.Flags().Int("max-sample", simulation.DefaultMaxSample, "maximum customers that get generated transactions; the rest are zero-filled (0 disables sampling)")
	cmd.Flags().String("model", simulation.DefaultParams().Model, "propensity model")
	cmd.Flags().String("label", simulation.DefaultParams().Label, "training label (affinity, past_interest)")

	_ = viper.BindPFlag("simulation.individuals", cmd.Flags().Lookup("individuals"))
	_ = viper.BindPFlag("simulation.smes", cmd.Flags().Lookup("smes"))
	_ = viper.BindPFlag("simulation.corporates", cmd.Flags().Lookup("corporates"))
	_ = viper.BindPFlag("simulation.seed", cmd.Flags().Lookup("seed"))
	_ = viper.BindPFlag("simulation.months", cmd.Flags().Lookup("months"))
	_ = viper.BindPFlag("simulation.max_sample", cmd.Flags().Lookup("max-sample"))
	_ = viper.BindPFlag("simulation.model", cmd.Flags().Lookup("model"))
	_ = viper.BindPFlag("simulation.label", cmd.Flags().Lookup("label"))

	addFilterFlags(cmd)
	cmd.Flags().StringP("describe", "d", "", "free-text campaign description")
	cmd.Flags().IntP("top", "n", report.DefaultTopN, "number of twins listed in the report")
	cmd.Flags().String("inspect", "", "customer ID to show in detail")
	cmd.Flags().StringP("export", "o", "", "export path (- for stdout)")
	cmd.Flags().String("format", "", "export format: csv, json or sqlite (default: from the export path)")

	return cmd
}

func runSimulate(cmd *cobra.Command, _ []string) error {
	handler := cli.NewInterruptHandler(os.Stderr)
	ctx := handler.HandleInterrupts(cmd.Context(), "Nothing was exported.")
	defer handler.Stop()

	describe, _ := cmd.Flags().GetString("describe")
	top, _ := cmd.Flags().GetInt("top")
	inspect, _ := cmd.Flags().GetString("inspect")
	exportPath, _ := cmd.Flags().GetString("export")
	format, _ := cmd.Flags().GetString("format")

	filter, err := campaignFilter(ctx, cmd, describe)
	if err != nil {
		return err
	}

	progress := cli.NewProgress(os.Stderr, "Generating transactions")
	engine, cleanup, err := newEngine(
		simulation.WithLogger(slog.Default()),
		simulation.WithProgress(progress.Report),
	)
	if err != nil {
		return err
	}
	defer cleanup()

	params := config.LoadSimulation(viper.GetViper())
	result, err := engine.Run(ctx, params, filter)
	progress.Finish()
	if err != nil {
		if handler.WasInterrupted() {
			return nil
		}
		return fmt.Errorf("simulation failed: %w", err)
	}

	fmt.Println(report.NewFormatter().Format(result, top)) //nolint:forbidigo // User-facing output

	if inspect != "" {
		rec, ok := result.Find(inspect)
		if !ok {
			fmt.Println(cli.FormatWarning(fmt.Sprintf("No twin %s in this run", inspect))) //nolint:forbidigo // User-facing output
		} else {
			fmt.Println(report.NewFormatter().FormatRecord(rec)) //nolint:forbidigo // User-facing output
		}
	}

	if exportPath == "" && format == report.FormatSQLite {
		exportPath = viper.GetString("database.path")
	}
	if exportPath != "" {
		if err := exportResult(ctx, result, resolveFormat(format, exportPath), exportPath); err != nil {
			return err
		}
	}

	return nil
}

// campaignFilter builds the filter from the description, if any, and the
// field flags.
func campaignFilter(ctx context.Context, cmd *cobra.Command, describe string) (campaign.Filter, error) {
	base := campaign.Empty()

	if strings.TrimSpace(describe) != "" {
		parser, err := newParser()
		if err != nil {
			return base, err
		}
		defer parser.Close()

		parsed, err := parser.Parse(ctx, describe)
		if err != nil {
			return base, fmt.Errorf("failed to parse campaign description: %w", err)
		}
		printParseNotes(parsed)
		base = parsed.Filter
	}

	return filterFromFlags(cmd, base)
}

func printParseNotes(parsed llm.ParseResult) {
	if parsed.Fallback {
		fmt.Println(cli.FormatWarning("The description could not be understood; using the empty campaign")) //nolint:forbidigo // User-facing output
	}
	for _, issue := range parsed.Issues {
		fmt.Println(cli.FormatWarning(issue.String())) //nolint:forbidigo // User-facing output
	}
}

func resolveFormat(format, path string) string {
	if format != "" {
		return strings.ToLower(format)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return report.FormatJSON
	case ".db", ".sqlite", ".sqlite3":
		return report.FormatSQLite
	default:
		return report.FormatCSV
	}
}

func exportResult(ctx context.Context, result *simulation.Result, format, path string) error {
	switch format {
	case report.FormatSQLite:
		if path == "-" {
			return common.NewUserError("The sqlite format needs a file path", common.ErrInvalidInput)
		}
		db, err := openStore(ctx, path)
		if err != nil {
			return err
		}
		defer closeStore(db)

		if err := db.SaveRun(ctx, result); err != nil {
			return fmt.Errorf("failed to save run: %w", err)
		}
	case report.FormatCSV, report.FormatJSON:
		if err := writeExport(result, format, path); err != nil {
			return err
		}
	default:
		return common.NewUserError(fmt.Sprintf("Unknown export format %q", format), common.ErrInvalidInput)
	}

	if path != "-" {
		fmt.Println(cli.FormatSuccess(fmt.Sprintf("Exported %d twins to %s", len(result.Records), path))) //nolint:forbidigo // User-facing output
	}
	return nil
}

func writeExport(result *simulation.Result, format, path string) (err error) {
	var w io.Writer = os.Stdout
	if path != "-" {
		f, createErr := os.Create(config.ExpandPath(path))
		if createErr != nil {
			return fmt.Errorf("failed to create export file: %w", createErr)
		}
		defer func() {
			if closeErr := f.Close(); closeErr != nil && err == nil {
				err = fmt.Errorf("failed to close export file: %w", closeErr)
			}
		}()
		w = f
	}

	if format == report.FormatJSON {
		return report.WriteJSON(w, result)
	}
	return report.WriteCSV(w, result.Records)
}
