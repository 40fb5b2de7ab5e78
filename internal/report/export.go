package report

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"slices"
	"strconv"

	"github.com/Veraticus/digital-twin/internal/model"
	"github.com/Veraticus/digital-twin/internal/simulation"
)

// Export formats.
const (
	FormatCSV    = "csv"
	FormatJSON   = "json"
	FormatSQLite = "sqlite"
)

var csvHeader = []string{
	"customer_id", "segment", "sector", "category", "financial_performance",
	"digital_openness", "promotion_sensitivity", "innovation_openness",
	"avg_amount", "total_amount", "tx_count", "max_amount", "std_amount",
	"top_category", "top_channel", "weekday_ratio", "tx_category_count", "main_spending",
	"past_product_interest", "product_score", "base_probability",
	"product_interest_probability", "twin_response",
}

// CSVHeader returns the column names written by WriteCSV.
func CSVHeader() []string {
	return slices.Clone(csvHeader)
}

// WriteCSV writes one row per scored record under a fixed header.
func WriteCSV(w io.Writer, records []model.ScoredRecord) error {
	cw := csv.NewWriter(w)

	if err := cw.Write(csvHeader); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}

	for _, r := range records {
		row := []string{
			r.ID,
			string(r.Segment),
			r.Sector,
			r.Category,
			strconv.Itoa(r.FinancialPerformance),
			formatFloat(r.DigitalOpenness),
			formatFloat(r.PromotionSensitivity),
			formatFloat(r.InnovationOpenness),
			formatFloat(r.AvgAmount),
			formatFloat(r.TotalAmount),
			strconv.Itoa(r.TxCount),
			formatFloat(r.MaxAmount),
			formatFloat(r.StdAmount),
			r.TopCategory,
			r.TopChannel,
			formatFloat(r.WeekdayRatio),
			strconv.Itoa(r.TxCategoryCount),
			r.MainSpending,
			strconv.Itoa(r.PastProductInterest),
			formatFloat(r.ProductScore),
			formatFloat(r.BaseProbability),
			formatFloat(r.ProductInterestProbability),
			string(r.TwinResponse),
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("failed to write CSV row for %s: %w", r.ID, err)
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("failed to flush CSV: %w", err)
	}
	return nil
}

// WriteJSON writes the whole result as indented JSON.
func WriteJSON(w io.Writer, result *simulation.Result) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(result); err != nil {
		return fmt.Errorf("failed to encode result: %w", err)
	}
	return nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
