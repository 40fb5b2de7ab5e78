// Package features reduces raw transactions to per-customer behavioural features.
package features

import (
	"fmt"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/Veraticus/digital-twin/internal/common"
	"github.com/Veraticus/digital-twin/internal/model"
)

const (
	pastInterestMinTotal      = 50000.0
	pastInterestMinCategories = 8
)

// Stats describes data the aggregator had to default or drop.
type Stats struct {
	// WithoutTransactions counts customers that received zero-filled aggregates.
	WithoutTransactions int
	// Orphans counts transactions whose customer is not in the customer table.
	Orphans int
}

// Err reports dropped orphan transactions as a data integrity error.
func (s Stats) Err() error {
	if s.Orphans == 0 {
		return nil
	}
	return fmt.Errorf("%w: %d transactions reference unknown customers and were dropped",
		common.ErrDataIntegrity, s.Orphans)
}

// Aggregate merges transaction statistics onto every customer. The result has one
// record per customer, in customer order.
func Aggregate(customers []model.Customer, transactions []model.Transaction) []model.AggregatedRecord {
	records, _ := AggregateWithStats(customers, transactions)
	return records
}

// AggregateWithStats is Aggregate that also reports defaulted data.
func AggregateWithStats(customers []model.Customer, transactions []model.Transaction) ([]model.AggregatedRecord, Stats) {
	var stats Stats

	accs := make(map[string]*accumulator, len(customers))
	for _, c := range customers {
		accs[c.ID] = newAccumulator()
	}

	for _, txn := range transactions {
		acc, ok := accs[txn.CustomerID]
		if !ok {
			stats.Orphans++
			continue
		}
		acc.add(txn)
	}

	records := make([]model.AggregatedRecord, len(customers))
	for i, c := range customers {
		acc := accs[c.ID]
		if acc.count() == 0 {
			stats.WithoutTransactions++
		}
		records[i] = acc.record(c)
	}

	return records, stats
}

// accumulator keeps running statistics for one customer.
type accumulator struct {
	categories *counter
	channels   *counter
	amounts    []float64
	weekdays   int
}

func newAccumulator() *accumulator {
	return &accumulator{
		categories: newCounter(),
		channels:   newCounter(),
	}
}

func (a *accumulator) add(txn model.Transaction) {
	a.amounts = append(a.amounts, txn.Amount)
	a.weekdays += txn.Weekday
	a.categories.add(txn.Category)
	a.channels.add(txn.Channel)
}

func (a *accumulator) count() int {
	return len(a.amounts)
}

func (a *accumulator) record(c model.Customer) model.AggregatedRecord {
	rec := model.AggregatedRecord{
		Customer:    c,
		TopCategory: model.None,
		TopChannel:  model.None,
	}

	if n := a.count(); n > 0 {
		rec.AvgAmount, rec.StdAmount = stat.MeanStdDev(a.amounts, nil)
		if n < 2 {
			rec.StdAmount = 0
		}
		rec.TotalAmount = floats.Sum(a.amounts)
		rec.TxCount = n
		rec.MaxAmount = floats.Max(a.amounts)
		rec.TopCategory = a.categories.mode()
		rec.TopChannel = a.channels.mode()
		rec.WeekdayRatio = float64(a.weekdays) / float64(n)
		rec.TxCategoryCount = a.categories.distinct()
	}

	rec.MainSpending = rec.TopCategory
	if c.HasDeclaredCategory() {
		rec.MainSpending = c.Category
	}

	if rec.TotalAmount > pastInterestMinTotal && rec.TxCategoryCount > pastInterestMinCategories {
		rec.PastProductInterest = 1
	}

	return rec
}

// counter counts values and remembers first-seen order for tie-breaking.
type counter struct {
	counts map[string]int
	order  []string
}

func newCounter() *counter {
	return &counter{counts: make(map[string]int)}
}

func (c *counter) add(value string) {
	if _, seen := c.counts[value]; !seen {
		c.order = append(c.order, value)
	}
	c.counts[value]++
}

// mode returns the most frequent value; ties go to the value seen first.
func (c *counter) mode() string {
	best, bestCount := model.None, 0
	for _, value := range c.order {
		if n := c.counts[value]; n > bestCount {
			best, bestCount = value, n
		}
	}
	return best
}

func (c *counter) distinct() int {
	return len(c.order)
}
