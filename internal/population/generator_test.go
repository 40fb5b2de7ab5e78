package population

import (
	"fmt"
	"math"
	"slices"
	"testing"

	"github.com/Veraticus/digital-twin/internal/common"
	"github.com/Veraticus/digital-twin/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func generate(t *testing.T, seed uint64, nInd, nSME, nCorp, months, maxSample int) ([]model.Customer, TransactionSet) {
	t.Helper()
	g := NewGenerator(seed)
	customers, err := g.Customers(nInd, nSME, nCorp)
	require.NoError(t, err)
	set, err := g.Transactions(customers, months, maxSample)
	require.NoError(t, err)
	return customers, set
}

func TestGenerator_Deterministic(t *testing.T) {
	c1, t1 := generate(t, 42, 20, 8, 5, 3, 0)
	c2, t2 := generate(t, 42, 20, 8, 5, 3, 0)

	assert.Equal(t, c1, c2)
	assert.Equal(t, t1, t2)

	c3, _ := generate(t, 7, 20, 8, 5, 3, 0)
	assert.NotEqual(t, c1, c3, "different seeds should produce different populations")
}

func TestGenerator_Customers(t *testing.T) {
	g := NewGenerator(42)
	customers, err := g.Customers(6, 3, 2)
	require.NoError(t, err)
	require.Len(t, customers, 11)

	ids := make([]string, len(customers))
	for i, c := range customers {
		ids[i] = c.ID
	}
	assert.Equal(t, []string{
		"INDIVIDUAL_1", "INDIVIDUAL_2", "INDIVIDUAL_3", "INDIVIDUAL_4", "INDIVIDUAL_5", "INDIVIDUAL_6",
		"SME_1", "SME_2", "SME_3",
		"CORPORATE_1", "CORPORATE_2",
	}, ids)

	for _, c := range customers {
		assert.GreaterOrEqual(t, c.FinancialPerformance, 1, c.ID)
		assert.LessOrEqual(t, c.FinancialPerformance, 10, c.ID)
		for _, trait := range []float64{c.DigitalOpenness, c.PromotionSensitivity, c.InnovationOpenness} {
			assert.GreaterOrEqual(t, trait, 0.0, c.ID)
			assert.Less(t, trait, 1.0, c.ID)
		}

		switch c.Segment {
		case model.SegmentIndividual:
			assert.Equal(t, model.None, c.Sector, c.ID)
			assert.Contains(t, model.IndividualCategories, c.Category, c.ID)
			assert.True(t, c.HasDeclaredCategory(), c.ID)
		default:
			assert.Contains(t, model.Sectors, c.Sector, c.ID)
			assert.Equal(t, model.CorporateCategory, c.Category, c.ID)
			assert.False(t, c.HasDeclaredCategory(), c.ID)
		}
	}
}

func TestGenerator_BlockOrderIsStable(t *testing.T) {
	// Growing the corporate block must not disturb the draws of earlier blocks.
	small, err := NewGenerator(42).Customers(10, 5, 1)
	require.NoError(t, err)
	large, err := NewGenerator(42).Customers(10, 5, 50)
	require.NoError(t, err)

	assert.Equal(t, small[:15], large[:15])
}

func TestGenerator_InvalidCounts(t *testing.T) {
	g := NewGenerator(1)

	_, err := g.Customers(-1, 0, 0)
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrInvalidInput)

	_, err = g.Transactions(nil, -2, 0)
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrInvalidInput)

	_, err = g.Transactions(nil, MaxMonths+1, 0)
	assert.ErrorIs(t, err, common.ErrInvalidInput)
}

func TestGenerator_CountOverflow(t *testing.T) {
	tests := []struct {
		name           string
		ind, sme, corp int
	}{
		{name: "individual and sme", ind: math.MaxInt, sme: 1},
		{name: "all three", ind: math.MaxInt / 2, sme: math.MaxInt / 2, corp: 2},
		{name: "corporate", corp: math.MaxInt, ind: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewGenerator(42).Customers(tt.ind, tt.sme, tt.corp)
			require.ErrorIs(t, err, common.ErrInvalidInput)
			assert.Contains(t, err.Error(), "overflow")
		})
	}
}

func TestGenerator_EmptyPopulation(t *testing.T) {
	customers, set := generate(t, 42, 0, 0, 0, 6, 100)
	assert.Empty(t, customers)
	assert.Empty(t, set.Transactions)
	assert.Nil(t, set.Warning)
}

func TestGenerator_Transactions(t *testing.T) {
	customers, set := generate(t, 42, 10, 4, 3, 4, 0)
	require.Nil(t, set.Warning)

	perMonth := make(map[string]int)
	for _, txn := range set.Transactions {
		perMonth[fmt.Sprintf("%s/%d", txn.CustomerID, txn.Month)]++

		assert.GreaterOrEqual(t, txn.Month, 1)
		assert.LessOrEqual(t, txn.Month, 4)
		assert.GreaterOrEqual(t, txn.Amount, 100.0)
		assert.LessOrEqual(t, txn.Amount, 20000.0)
		assert.InDelta(t, txn.Amount, math.Round(txn.Amount*100)/100, 1e-9, "amount must have two decimals")
		assert.Contains(t, model.TransactionCategories, txn.Category)
		assert.Contains(t, model.TransactionChannels, txn.Channel)
		assert.Contains(t, []int{0, 1}, txn.Weekday)
	}

	assert.Len(t, perMonth, len(customers)*4, "every customer gets transactions every month")
	for key, n := range perMonth {
		assert.GreaterOrEqual(t, n, 12, key)
		assert.Less(t, n, 36, key)
	}
}

func TestGenerator_ChannelMix(t *testing.T) {
	_, set := generate(t, 42, 60, 0, 0, 6, 0)

	counts := make(map[string]int)
	weekdays := 0
	for _, txn := range set.Transactions {
		counts[txn.Channel]++
		weekdays += txn.Weekday
	}
	total := float64(len(set.Transactions))
	require.Greater(t, total, 1000.0)

	assert.InDelta(t, 0.70, float64(counts[model.ChannelDigital])/total, 0.03)
	assert.InDelta(t, 0.18, float64(counts[model.ChannelBranch])/total, 0.03)
	assert.InDelta(t, 0.12, float64(counts[model.ChannelATM])/total, 0.03)
	assert.InDelta(t, 0.78, float64(weekdays)/total, 0.03)
}

func TestGenerator_Sampling(t *testing.T) {
	customers, err := NewGenerator(42).Customers(30, 10, 10)
	require.NoError(t, err)

	set, err := NewGenerator(42).Transactions(customers, 2, 20)
	require.NoError(t, err)
	require.NotNil(t, set.Warning, "sampling must be reported to the caller")
	assert.Equal(t, 50, set.Warning.Total)
	assert.Equal(t, 20, set.Warning.Kept)
	assert.Contains(t, set.Warning.String(), "20 of 50")

	seen := make(map[string]bool)
	var order []string
	for _, txn := range set.Transactions {
		if !seen[txn.CustomerID] {
			seen[txn.CustomerID] = true
			order = append(order, txn.CustomerID)
		}
	}
	assert.Len(t, order, 20)

	// Sampled customers keep population order.
	position := make(map[string]int, len(customers))
	for i, c := range customers {
		position[c.ID] = i
	}
	assert.True(t, slices.IsSortedFunc(order, func(a, b string) int { return position[a] - position[b] }))

	again, err := NewGenerator(42).Transactions(customers, 2, 20)
	require.NoError(t, err)
	assert.Equal(t, set, again)
}

func TestGenerator_Progress(t *testing.T) {
	customers, err := NewGenerator(3).Customers(3, 1, 1)
	require.NoError(t, err)

	var calls []int
	g := NewGenerator(3, WithProgress(func(done, total int) {
		assert.Equal(t, 5, total)
		calls = append(calls, done)
	}))
	_, err = g.Transactions(customers, 1, 0)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 3, 4, 5}, calls)
}

func TestBiasedWeights(t *testing.T) {
	t.Run("known category gets a quarter of the mass", func(t *testing.T) {
		w := biasedWeights("Travel")
		idx := slices.Index(model.TransactionCategories, "Travel")
		assert.InDelta(t, 0.25, w[idx], 1e-12)
		assert.InDelta(t, 0.75/15, w[0], 1e-12)
	})

	t.Run("unmatched category normalises to uniform", func(t *testing.T) {
		w := biasedWeights("Saver")
		for _, v := range w {
			assert.InDelta(t, 1.0/16, v, 1e-12)
		}
	})
}
