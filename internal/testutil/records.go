// Package testutil builds scored records and simulation results for tests.
//
// Example usage:
//
//	rec := testutil.NewRecord("SME_1").
//		WithSegment(model.SegmentSME).
//		WithSector("Retail").
//		WithProbability(0.6, model.ResponseHigh).
//		Build()
//
//	result := testutil.NewResult("run-1", rec)
package testutil

import (
	"strings"
	"time"

	"github.com/Veraticus/digital-twin/internal/campaign"
	"github.com/Veraticus/digital-twin/internal/model"
	"github.com/Veraticus/digital-twin/internal/simulation"
)

// RecordBuilder assembles a scored record with plausible defaults.
type RecordBuilder struct {
	rec model.ScoredRecord
}

// NewRecord starts a record for customerID. The segment is taken from the ID
// prefix (IND_, SME_, COR_).
func NewRecord(customerID string) *RecordBuilder {
	segment := model.SegmentIndividual
	sector := model.None
	category := "Saver"
	switch {
	case strings.HasPrefix(customerID, "SME_"):
		segment, sector, category = model.SegmentSME, "Retail", model.CorporateCategory
	case strings.HasPrefix(customerID, "COR_"):
		segment, sector, category = model.SegmentCorporate, "Information Technology", model.CorporateCategory
	}

	return &RecordBuilder{rec: model.ScoredRecord{
		AggregatedRecord: model.AggregatedRecord{
			Customer: model.Customer{
				ID:                   customerID,
				Segment:              segment,
				Sector:               sector,
				Category:             category,
				FinancialPerformance: 7,
				DigitalOpenness:      0.42,
				PromotionSensitivity: 0.3,
				InnovationOpenness:   0.8,
			},
			AvgAmount:    120,
			TotalAmount:  1440,
			TxCount:      12,
			MaxAmount:    400,
			StdAmount:    85.5,
			TopCategory:  "Online",
			TopChannel:   model.ChannelDigital,
			WeekdayRatio: 0.75,
			MainSpending: "Online",
		},
		ProductScore:               1.12,
		BaseProbability:            0.5,
		ProductInterestProbability: 0.5,
		TwinResponse:               model.ResponseNeutral,
	}}
}

// WithSegment sets the segment.
func (b *RecordBuilder) WithSegment(s model.Segment) *RecordBuilder {
	b.rec.Segment = s
	return b
}

// WithSector sets the sector.
func (b *RecordBuilder) WithSector(sector string) *RecordBuilder {
	b.rec.Sector = sector
	return b
}

// WithDigitalOpenness sets the digital openness.
func (b *RecordBuilder) WithDigitalOpenness(v float64) *RecordBuilder {
	b.rec.DigitalOpenness = v
	return b
}

// WithProbability sets the adjusted probability and the response it produced.
func (b *RecordBuilder) WithProbability(p float64, r model.Response) *RecordBuilder {
	b.rec.ProductInterestProbability = p
	b.rec.TwinResponse = r
	return b
}

// WithoutTransactions zero-fills the aggregates the way the aggregator does
// for customers with no history.
func (b *RecordBuilder) WithoutTransactions() *RecordBuilder {
	customer := b.rec.Customer
	b.rec.AggregatedRecord = model.AggregatedRecord{
		Customer:     customer,
		TopCategory:  model.None,
		TopChannel:   model.None,
		MainSpending: model.None,
	}
	return b
}

// Build returns the record.
func (b *RecordBuilder) Build() model.ScoredRecord {
	return b.rec
}

// NewResult wraps records in a result with the default parameters, the empty
// campaign and a computed summary.
func NewResult(runID string, records ...model.ScoredRecord) *simulation.Result {
	return &simulation.Result{
		RunID:     runID,
		CreatedAt: time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC),
		Params:    simulation.DefaultParams(),
		Filter:    campaign.Empty(),
		Records:   records,
		Summary:   simulation.Summarize(records),
		Duration:  1234 * time.Millisecond,
	}
}
