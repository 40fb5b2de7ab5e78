// Package report renders simulation results for the terminal and exports them
// as CSV or JSON.
package report

import (
	"fmt"
	"strings"
	"time"

	"github.com/Veraticus/digital-twin/internal/campaign"
	"github.com/Veraticus/digital-twin/internal/cli"
	"github.com/Veraticus/digital-twin/internal/model"
	"github.com/Veraticus/digital-twin/internal/simulation"
)

// DefaultTopN is the number of twins listed when no limit is given.
const DefaultTopN = 10

const barWidth = 30

// Formatter renders results as styled terminal text.
type Formatter struct {
	styles *Styles
}

// NewFormatter creates a formatter with default styles.
func NewFormatter() *Formatter {
	return &Formatter{styles: NewStyles()}
}

// Format renders the full report of a run: header, top twins, response
// distribution, heatmaps, digital openness bins and warnings.
func (f *Formatter) Format(result *simulation.Result, topN int) string {
	if result == nil {
		return cli.FormatError("No result available")
	}
	if topN <= 0 {
		topN = DefaultTopN
	}

	sections := []string{
		f.formatHeader(result),
		f.formatTop(result.Top(topN)),
		f.formatDistribution(result.Summary),
		f.formatMatrix(cli.ChartIcon+" Responses by segment", result.Summary.BySegment, "%6.0f"),
		f.formatMatrix(cli.ChartIcon+" Responses by sector", result.Summary.BySector, "%6.0f"),
		f.formatMatrix(cli.ChartIcon+" Mean interest by segment", result.Summary.MeanInterest, "%6.3f"),
		f.formatBins(result.Summary.DigitalBins),
	}

	if len(result.Warnings) > 0 {
		sections = append(sections, f.formatWarnings(result.Warnings))
	}

	return strings.Join(sections, "\n\n")
}

// FormatRecord renders the individual analysis panel of one twin.
func (f *Formatter) FormatRecord(rec model.ScoredRecord) string {
	rows := [][2]string{
		{"Segment", string(rec.Segment)},
		{"Sector", rec.Sector},
		{"Category", rec.Category},
		{"Financial performance", fmt.Sprintf("%d / 10", rec.FinancialPerformance)},
		{"Digital openness", fmt.Sprintf("%.2f", rec.DigitalOpenness)},
		{"Promotion sensitivity", fmt.Sprintf("%.2f", rec.PromotionSensitivity)},
		{"Innovation openness", fmt.Sprintf("%.2f", rec.InnovationOpenness)},
		{"Transactions", fmt.Sprintf("%d (%d categories)", rec.TxCount, rec.TxCategoryCount)},
		{"Average amount", fmt.Sprintf("%.2f", rec.AvgAmount)},
		{"Total amount", fmt.Sprintf("%.2f", rec.TotalAmount)},
		{"Max amount", fmt.Sprintf("%.2f", rec.MaxAmount)},
		{"Amount std dev", fmt.Sprintf("%.2f", rec.StdAmount)},
		{"Top category", rec.TopCategory},
		{"Top channel", rec.TopChannel},
		{"Main spending", rec.MainSpending},
		{"Weekday ratio", fmt.Sprintf("%.2f", rec.WeekdayRatio)},
		{"Past product interest", fmt.Sprintf("%d", rec.PastProductInterest)},
		{"Product score", fmt.Sprintf("%.3f", rec.ProductScore)},
		{"Base probability", fmt.Sprintf("%.3f", rec.BaseProbability)},
		{"Interest probability", fmt.Sprintf("%.3f", rec.ProductInterestProbability)},
	}

	var b strings.Builder
	b.WriteString(f.styles.Title.UnsetMargins().Render(cli.TwinIcon + " Twin " + rec.ID))
	b.WriteString("\n")
	for _, row := range rows {
		fmt.Fprintf(&b, "%-22s %s\n", row[0]+":", row[1])
	}
	style := f.styles.ForResponse(rec.TwinResponse)
	fmt.Fprintf(&b, "%-22s %s", "Response:", style.Render(string(rec.TwinResponse)))

	return f.styles.Panel.Render(b.String())
}

func (f *Formatter) formatHeader(result *simulation.Result) string {
	p := result.Params
	lines := []string{
		fmt.Sprintf("Run:        %s", result.RunID),
		fmt.Sprintf("Customers:  %d (%d individual, %d SME, %d corporate)",
			result.Summary.Total, p.Individuals, p.SMEs, p.Corporates),
		fmt.Sprintf("Model:      %s (label %s, seed %d)", p.Model, p.Label, p.Seed),
		fmt.Sprintf("Campaign:   %s", describeFilter(result.Filter)),
		fmt.Sprintf("Mean score: %.3f   base p: %.3f   adjusted p: %.3f",
			result.Summary.MeanScore, result.Summary.MeanBase, result.Summary.MeanProbability),
		f.styles.Subtle.Render(fmt.Sprintf("Completed in %s", result.Duration.Round(time.Millisecond))),
	}
	return cli.RenderBox(cli.TwinIcon+" Digital Twin Simulation", strings.Join(lines, "\n"))
}

func (f *Formatter) formatTop(records []model.ScoredRecord) string {
	var b strings.Builder
	b.WriteString(f.styles.Title.Render(fmt.Sprintf("%s Top %d twins", cli.TargetIcon, len(records))))
	b.WriteString("\n")

	header := fmt.Sprintf("%-12s %-11s %-24s %-12s %7s %7s %7s  %s",
		"Customer", "Segment", "Sector", "Category", "Score", "Base", "Prob", "Response")
	b.WriteString(f.styles.Header.Render(header))
	b.WriteString("\n")
	b.WriteString(f.styles.Subtle.Render(strings.Repeat("─", len(header))))

	for _, rec := range records {
		style := f.styles.ForResponse(rec.TwinResponse)
		fmt.Fprintf(&b, "\n%-12s %-11s %-24s %-12s %7.3f %7.3f %7.3f  %s",
			rec.ID, rec.Segment, truncate(rec.Sector, 24), truncate(rec.Category, 12),
			rec.ProductScore, rec.BaseProbability, rec.ProductInterestProbability,
			style.Render(string(rec.TwinResponse)))
	}
	if len(records) == 0 {
		b.WriteString("\n")
		b.WriteString(f.styles.Subtle.Render("No twins"))
	}
	return b.String()
}

func (f *Formatter) formatDistribution(s simulation.Summary) string {
	var b strings.Builder
	b.WriteString(f.styles.Title.Render(cli.ChartIcon + " Response distribution"))

	for _, c := range s.Distribution {
		style := f.styles.ForResponse(c.Response)
		fmt.Fprintf(&b, "\n%-18s %s %6d  %5.1f%%",
			c.Response, style.Render(RenderBar(c.Percent/100, barWidth)), c.Count, c.Percent)
	}
	return b.String()
}

func (f *Formatter) formatMatrix(title string, m simulation.Matrix, cellFormat string) string {
	var b strings.Builder
	b.WriteString(f.styles.Title.Render(title))

	if len(m.Rows) == 0 {
		b.WriteString("\n")
		b.WriteString(f.styles.Subtle.Render("No data"))
		return b.String()
	}

	var maxValue float64
	for _, row := range m.Values {
		for _, v := range row {
			maxValue = max(maxValue, v)
		}
	}

	var header strings.Builder
	fmt.Fprintf(&header, "%-24s", "")
	for _, col := range m.Columns {
		fmt.Fprintf(&header, " %8s", abbreviate(col))
	}
	b.WriteString("\n")
	b.WriteString(f.styles.Header.Render(header.String()))

	for i, row := range m.Rows {
		fmt.Fprintf(&b, "\n%-24s", truncate(row, 24))
		for _, v := range m.Values[i] {
			fmt.Fprintf(&b, " %s"+cellFormat, shade(v, maxValue), v)
		}
	}
	return b.String()
}

func (f *Formatter) formatBins(bins []simulation.Bin) string {
	var b strings.Builder
	b.WriteString(f.styles.Title.Render(cli.ChartIcon + " Digital openness vs interest"))

	for _, bin := range bins {
		fmt.Fprintf(&b, "\n%.1f-%.1f %s %5.3f  (%d twins)",
			bin.Lower, bin.Upper, RenderBar(bin.MeanProbability, barWidth), bin.MeanProbability, bin.Count)
	}
	return b.String()
}

func (f *Formatter) formatWarnings(warnings []string) string {
	lines := make([]string, 0, len(warnings)+1)
	lines = append(lines, f.styles.Warning.Bold(true).Render("Warnings"))
	for _, w := range warnings {
		lines = append(lines, cli.FormatWarning(w))
	}
	return strings.Join(lines, "\n")
}

// describeFilter summarises the non-empty filter fields on one line.
func describeFilter(filter campaign.Filter) string {
	var parts []string
	for _, field := range campaign.Fields() {
		v, err := filter.Get(field)
		if err != nil {
			continue
		}
		switch val := v.(type) {
		case []string:
			if len(val) > 0 {
				parts = append(parts, field+"="+strings.Join(val, "|"))
			}
		case string:
			if val != "" {
				parts = append(parts, field+"="+val)
			}
		case int:
			parts = append(parts, fmt.Sprintf("%s=%d", field, val))
		}
	}
	if len(parts) == 0 {
		return "(empty)"
	}
	return strings.Join(parts, " ")
}

func abbreviate(r model.Response) string {
	switch r {
	case model.ResponseApply:
		return "apply"
	case model.ResponseHigh:
		return "high"
	case model.ResponseMedium:
		return "medium"
	case model.ResponseNeutral:
		return "neutral"
	case model.ResponseNegative:
		return "negative"
	default:
		return truncate(string(r), 8)
	}
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	if n <= 1 {
		return string(r[:n])
	}
	return string(r[:n-1]) + "…"
}
