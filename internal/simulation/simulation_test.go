package simulation

import (
	"context"
	"io"
	"log/slog"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/Veraticus/digital-twin/internal/cache"
	"github.com/Veraticus/digital-twin/internal/campaign"
	"github.com/Veraticus/digital-twin/internal/common"
	"github.com/Veraticus/digital-twin/internal/model"
	"github.com/Veraticus/digital-twin/internal/population"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func smallParams() Params {
	p := DefaultParams()
	p.Individuals, p.SMEs, p.Corporates = 60, 25, 15
	p.Months = 1
	p.Model = "logistic"
	return p
}

func quietEngine(opts ...Option) *Engine {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewEngine(append([]Option{WithLogger(logger)}, opts...)...)
}

func TestDefaultParams(t *testing.T) {
	p := DefaultParams()
	assert.Equal(t, 650, p.Individuals)
	assert.Equal(t, 220, p.SMEs)
	assert.Equal(t, 130, p.Corporates)
	assert.Equal(t, uint64(42), p.Seed)
	assert.Equal(t, uint64(42), p.SampleSeed)
	assert.Equal(t, 6, p.Months)
	assert.Equal(t, 15000, p.MaxSample)
	assert.Equal(t, "random_forest", p.Model)
	assert.Equal(t, "affinity", p.Label)
	assert.Equal(t, 1000, p.Customers())
}

func TestParams_Normalize(t *testing.T) {
	p := Params{Individuals: -1, SMEs: 3, Corporates: -2, Months: -4, MaxSample: -1, Model: "XGBoost"}
	got, notes := p.Normalize()

	assert.Equal(t, 0, got.Individuals)
	assert.Equal(t, 3, got.SMEs)
	assert.Equal(t, 0, got.Corporates)
	assert.Equal(t, DefaultMonths, got.Months)
	assert.Equal(t, 0, got.MaxSample)
	assert.Equal(t, "boosted", got.Model)
	assert.Equal(t, "affinity", got.Label)
	assert.Len(t, notes, 4)

	clean, notes := DefaultParams().Normalize()
	assert.Equal(t, DefaultParams(), clean)
	assert.Empty(t, notes)
}

func TestParams_NormalizeUpperBounds(t *testing.T) {
	p := Params{Individuals: 2_000_000_000, SMEs: MaxSegmentCustomers, Corporates: math.MaxInt, Months: 10_000}
	got, notes := p.Normalize()

	assert.Equal(t, MaxSegmentCustomers, got.Individuals)
	assert.Equal(t, MaxSegmentCustomers, got.SMEs)
	assert.Equal(t, MaxSegmentCustomers, got.Corporates)
	assert.Equal(t, population.MaxMonths, got.Months)
	assert.Equal(t, 3*MaxSegmentCustomers, got.Customers())
	require.Len(t, notes, 3)
	assert.Contains(t, notes[0], "individual count 2000000000 exceeds")
	assert.Contains(t, notes[2], "months 10000 exceeds")
}

func TestEngine_Run(t *testing.T) {
	ctx := context.Background()
	e := quietEngine()

	result, err := e.Run(ctx, smallParams(), campaign.Default())
	require.NoError(t, err)

	assert.NotEmpty(t, result.RunID)
	assert.Len(t, result.Records, 100)
	assert.Equal(t, 100, result.Summary.Total)
	assert.Equal(t, "logistic", result.Params.Model)

	var sum int
	for _, c := range result.Summary.Distribution {
		sum += c.Count
	}
	assert.Equal(t, result.Summary.Total, sum)

	for _, rec := range result.Records {
		assert.Greater(t, rec.ProductScore, 0.0)
		assert.GreaterOrEqual(t, rec.BaseProbability, 0.0)
		assert.LessOrEqual(t, rec.BaseProbability, 1.0)
		assert.InDelta(t, rec.BaseProbability*rec.ProductScore, rec.ProductInterestProbability, 1e-12)
		assert.True(t, rec.TwinResponse.Valid())
	}

	again, err := e.Run(ctx, smallParams(), campaign.Default())
	require.NoError(t, err)
	assert.Equal(t, result.Records, again.Records, "runs with the same seed must match")
	assert.NotEqual(t, result.RunID, again.RunID)
}

func TestEngine_RunUnknownModel(t *testing.T) {
	p := smallParams()
	p.Model = "crystal-ball"

	_, err := quietEngine().Run(context.Background(), p, campaign.Empty())
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrUnknownModel)
}

func TestEngine_RunCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := quietEngine().Run(ctx, smallParams(), campaign.Empty())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestEngine_SamplingWarningSurfaces(t *testing.T) {
	p := smallParams()
	p.MaxSample = 40

	result, err := quietEngine().Run(context.Background(), p, campaign.Empty())
	require.NoError(t, err)

	require.NotEmpty(t, result.Warnings)
	assert.True(t, strings.Contains(strings.Join(result.Warnings, "\n"), "40"), result.Warnings)
	assert.Len(t, result.Records, 100)
}

func TestEngine_InvalidFilterIsReported(t *testing.T) {
	f := campaign.Empty()
	f.Term = 99

	result, err := quietEngine().Run(context.Background(), smallParams(), f)
	require.NoError(t, err)
	assert.Contains(t, strings.Join(result.Warnings, "\n"), "term")
}

func TestEngine_PopulationCache(t *testing.T) {
	ctx := context.Background()
	mem := cache.NewMemory(time.Minute)
	t.Cleanup(func() { _ = mem.Close() })

	var progressCalls int
	e := quietEngine(WithCache(mem), WithProgress(func(done, total int) { progressCalls++ }))

	first, err := e.Population(ctx, smallParams())
	require.NoError(t, err)
	assert.False(t, first.Cached)
	assert.Positive(t, progressCalls)

	calls := progressCalls
	second, err := e.Population(ctx, smallParams())
	require.NoError(t, err)
	assert.True(t, second.Cached)
	assert.Equal(t, first.Records, second.Records)
	assert.Equal(t, calls, progressCalls, "cached populations are not regenerated")

	// The model choice does not shape the population.
	p := smallParams()
	p.Model = "mlp"
	third, err := e.Population(ctx, p)
	require.NoError(t, err)
	assert.True(t, third.Cached)

	p.Seed = 7
	fourth, err := e.Population(ctx, p)
	require.NoError(t, err)
	assert.False(t, fourth.Cached)
}

func TestResult_FindAndTop(t *testing.T) {
	r := &Result{Records: []model.ScoredRecord{
		{AggregatedRecord: model.AggregatedRecord{Customer: model.Customer{ID: "A"}}, ProductInterestProbability: 0.2},
		{AggregatedRecord: model.AggregatedRecord{Customer: model.Customer{ID: "B"}}, ProductInterestProbability: 0.9},
		{AggregatedRecord: model.AggregatedRecord{Customer: model.Customer{ID: "C"}}, ProductInterestProbability: 0.9},
	}}

	rec, ok := r.Find("A")
	require.True(t, ok)
	assert.InDelta(t, 0.2, rec.ProductInterestProbability, 0)
	_, ok = r.Find("Z")
	assert.False(t, ok)

	top := r.Top(2)
	require.Len(t, top, 2)
	assert.Equal(t, "B", top[0].ID)
	assert.Equal(t, "C", top[1].ID)
	assert.Len(t, r.Top(0), 3)
	assert.Equal(t, "A", r.Records[0].ID, "Top must not reorder the result")
}

func scored(id string, seg model.Segment, sector string, digital, p float64, resp model.Response) model.ScoredRecord {
	return model.ScoredRecord{
		AggregatedRecord: model.AggregatedRecord{Customer: model.Customer{
			ID: id, Segment: seg, Sector: sector, DigitalOpenness: digital,
		}},
		ProductScore:               1,
		BaseProbability:            p,
		ProductInterestProbability: p,
		TwinResponse:               resp,
	}
}

func TestSummarize(t *testing.T) {
	records := []model.ScoredRecord{
		scored("I1", model.SegmentIndividual, model.None, 0.05, 0.9, model.ResponseApply),
		scored("I2", model.SegmentIndividual, model.None, 0.95, 0.7, model.ResponseApply),
		scored("S1", model.SegmentSME, "Retail", 1.0, 0.1, model.ResponseNegative),
		scored("C1", model.SegmentCorporate, "Food", 0.5, 0.4, model.ResponseMedium),
	}

	s := Summarize(records)

	assert.Equal(t, 4, s.Total)
	assert.Equal(t, model.Responses(), []model.Response{
		s.Distribution[0].Response, s.Distribution[1].Response, s.Distribution[2].Response,
		s.Distribution[3].Response, s.Distribution[4].Response,
	})
	assert.Equal(t, 2, s.Count(model.ResponseApply))
	assert.InDelta(t, 50.0, s.Distribution[0].Percent, 1e-9)
	assert.Zero(t, s.Count(model.ResponseHigh))

	assert.Equal(t, []string{"Individual", "SME", "Corporate"}, s.BySegment.Rows)
	assert.InDelta(t, 2.0, s.BySegment.Value("Individual", model.ResponseApply), 0)
	assert.InDelta(t, 1.0, s.BySegment.Value("SME", model.ResponseNegative), 0)

	assert.Equal(t, []string{"Food", model.None, "Retail"}, s.BySector.Rows)
	assert.InDelta(t, 2.0, s.BySector.Value(model.None, model.ResponseApply), 0)

	assert.InDelta(t, 0.8, s.MeanInterest.Value("Individual", model.ResponseApply), 1e-12)
	assert.Zero(t, s.MeanInterest.Value("Individual", model.ResponseHigh))

	require.Len(t, s.DigitalBins, 5)
	assert.Equal(t, 1, s.DigitalBins[0].Count)
	assert.Equal(t, 1, s.DigitalBins[2].Count)
	assert.Equal(t, 2, s.DigitalBins[4].Count, "openness of 1.0 lands in the last bin")
	assert.InDelta(t, 0.4, s.DigitalBins[4].MeanProbability, 1e-12)

	assert.InDelta(t, 0.525, s.MeanProbability, 1e-12)
	assert.InDelta(t, 1.0, s.MeanScore, 1e-12)
}

func TestSummarize_Empty(t *testing.T) {
	s := Summarize(nil)
	assert.Zero(t, s.Total)
	assert.Len(t, s.Distribution, 5)
	assert.Empty(t, s.BySegment.Rows)
	assert.NotNil(t, s.BySegment.Rows)
}
