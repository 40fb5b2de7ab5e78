package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/Veraticus/digital-twin/internal/cli"
	"github.com/Veraticus/digital-twin/internal/report"
	"github.com/Veraticus/digital-twin/internal/storage"
)

func runsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "runs [RUN_ID]",
		Short: "List runs exported to SQLite",
		Long: `Without arguments, list every run in the export database. With a run ID,
show that run's parameters and response distribution.`,
		Args: cobra.MaximumNArgs(1),
		RunE: runRuns,
	}

	cmd.Flags().String("db", "", "export database (default: database.path)")

	return cmd
}

func runRuns(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	path, _ := cmd.Flags().GetString("db")

	db, err := openStore(ctx, path)
	if err != nil {
		return err
	}
	defer closeStore(db)

	if len(args) == 1 {
		return showRun(cmd, db, args[0])
	}

	runs, err := db.ListRuns(ctx)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println(cli.FormatInfo("No runs exported to " + db.Path())) //nolint:forbidigo // User-facing output
		return nil
	}

	var b strings.Builder
	b.WriteString(cli.TableHeaderStyle.Render(fmt.Sprintf("%-36s  %-19s  %-13s  %9s", "RUN", "CREATED", "MODEL", "CUSTOMERS")))
	b.WriteString("\n")
	for _, r := range runs {
		b.WriteString(cli.TableCellStyle.Render(fmt.Sprintf("%-36s  %-19s  %-13s  %9d",
			r.ID, r.CreatedAt.Local().Format(time.DateTime), r.Model, r.Customers)))
		b.WriteString("\n")
	}
	fmt.Print(b.String()) //nolint:forbidigo // User-facing output
	return nil
}

func showRun(cmd *cobra.Command, db *storage.SQLiteStorage, runID string) error {
	ctx := cmd.Context()

	info, err := db.GetRun(ctx, runID)
	if err != nil {
		return err
	}
	counts, err := db.ResponseCounts(ctx, runID)
	if err != nil {
		return err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Created:   %s\n", info.CreatedAt.Local().Format(time.DateTime))
	fmt.Fprintf(&b, "Model:     %s (%s label)\n", info.Model, info.Label)
	fmt.Fprintf(&b, "Seed:      %d\n", info.Seed)
	fmt.Fprintf(&b, "Customers: %d\n", info.Customers)
	fmt.Fprintf(&b, "Duration:  %s\n\n", info.Duration)
	for _, c := range counts {
		fmt.Fprintf(&b, "%-24s %s %5.1f%% (%d)\n", c.Response, report.RenderBar(c.Percent/100, 30), c.Percent, c.Count)
	}
	for _, w := range info.Warnings {
		b.WriteString("\n" + cli.FormatWarning(w))
	}

	fmt.Println(cli.RenderBox(cli.ChartIcon+" Run "+info.ID, strings.TrimRight(b.String(), "\n"))) //nolint:forbidigo // User-facing output
	return nil
}
