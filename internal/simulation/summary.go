package simulation

import (
	"slices"

	"github.com/Veraticus/digital-twin/internal/model"
)

// digitalBins is the number of equal-width digital openness bins.
const digitalBins = 5

// ResponseCount is one slice of the response distribution.
type ResponseCount struct {
	Response model.Response `json:"response"`
	Count    int            `json:"count"`
	Percent  float64        `json:"percent"`
}

// Matrix is a row label × response table.
type Matrix struct {
	Rows    []string         `json:"rows"`
	Columns []model.Response `json:"columns"`
	Values  [][]float64      `json:"values"`
}

// Value returns the cell for row and response, or 0 when either is absent.
func (m Matrix) Value(row string, r model.Response) float64 {
	i := slices.Index(m.Rows, row)
	j := slices.Index(m.Columns, r)
	if i < 0 || j < 0 {
		return 0
	}
	return m.Values[i][j]
}

// Bin groups customers by digital openness.
type Bin struct {
	Lower           float64 `json:"lower"`
	Upper           float64 `json:"upper"`
	Count           int     `json:"count"`
	MeanProbability float64 `json:"mean_probability"`
}

// Summary is the aggregate view of a run used by reports and the API.
type Summary struct {
	Total           int             `json:"total"`
	Distribution    []ResponseCount `json:"distribution"`
	BySegment       Matrix          `json:"by_segment"`
	BySector        Matrix          `json:"by_sector"`
	MeanInterest    Matrix          `json:"mean_interest"`
	DigitalBins     []Bin           `json:"digital_bins"`
	MeanScore       float64         `json:"mean_score"`
	MeanBase        float64         `json:"mean_base_probability"`
	MeanProbability float64         `json:"mean_probability"`
}

// Summarize computes the distribution, the segment and sector heatmaps, the
// mean interest per segment and response, and the digital openness bins.
func Summarize(records []model.ScoredRecord) Summary {
	responses := model.Responses()
	s := Summary{
		Total:        len(records),
		Distribution: make([]ResponseCount, len(responses)),
		DigitalBins:  make([]Bin, digitalBins),
	}

	for i, r := range responses {
		s.Distribution[i].Response = r
	}
	for i := range s.DigitalBins {
		s.DigitalBins[i].Lower = float64(i) / digitalBins
		s.DigitalBins[i].Upper = float64(i+1) / digitalBins
	}

	segments := newTally(segmentRows(records))
	sectors := newTally(sectorRows(records))

	for _, rec := range records {
		col := slices.Index(responses, rec.TwinResponse)
		if col >= 0 {
			s.Distribution[col].Count++
		}
		segments.add(string(rec.Segment), col, rec.ProductInterestProbability)
		sectors.add(rec.Sector, col, rec.ProductInterestProbability)

		bin := min(int(rec.DigitalOpenness*digitalBins), digitalBins-1)
		bin = max(bin, 0)
		s.DigitalBins[bin].Count++
		s.DigitalBins[bin].MeanProbability += rec.ProductInterestProbability

		s.MeanScore += rec.ProductScore
		s.MeanBase += rec.BaseProbability
		s.MeanProbability += rec.ProductInterestProbability
	}

	if s.Total > 0 {
		n := float64(s.Total)
		for i := range s.Distribution {
			s.Distribution[i].Percent = 100 * float64(s.Distribution[i].Count) / n
		}
		s.MeanScore /= n
		s.MeanBase /= n
		s.MeanProbability /= n
	}
	for i := range s.DigitalBins {
		if c := s.DigitalBins[i].Count; c > 0 {
			s.DigitalBins[i].MeanProbability /= float64(c)
		}
	}

	s.BySegment = segments.counts()
	s.BySector = sectors.counts()
	s.MeanInterest = segments.means()
	return s
}

// Count returns the number of records with response r.
func (s Summary) Count(r model.Response) int {
	for _, c := range s.Distribution {
		if c.Response == r {
			return c.Count
		}
	}
	return 0
}

func segmentRows(records []model.ScoredRecord) []string {
	var rows []string
	for _, seg := range model.SegmentNames() {
		if slices.ContainsFunc(records, func(r model.ScoredRecord) bool { return string(r.Segment) == seg }) {
			rows = append(rows, seg)
		}
	}
	return rows
}

func sectorRows(records []model.ScoredRecord) []string {
	var rows []string
	for _, rec := range records {
		if !slices.Contains(rows, rec.Sector) {
			rows = append(rows, rec.Sector)
		}
	}
	slices.Sort(rows)
	return rows
}

// tally accumulates counts and probability sums per row and response.
type tally struct {
	rows  []string
	count [][]int
	sum   [][]float64
}

func newTally(rows []string) *tally {
	cols := len(model.Responses())
	t := &tally{rows: rows, count: make([][]int, len(rows)), sum: make([][]float64, len(rows))}
	for i := range rows {
		t.count[i] = make([]int, cols)
		t.sum[i] = make([]float64, cols)
	}
	return t
}

func (t *tally) add(row string, col int, p float64) {
	i := slices.Index(t.rows, row)
	if i < 0 || col < 0 {
		return
	}
	t.count[i][col]++
	t.sum[i][col] += p
}

func (t *tally) counts() Matrix {
	return t.matrix(func(i, j int) float64 { return float64(t.count[i][j]) })
}

// means fills empty cells with 0.
func (t *tally) means() Matrix {
	return t.matrix(func(i, j int) float64 {
		if t.count[i][j] == 0 {
			return 0
		}
		return t.sum[i][j] / float64(t.count[i][j])
	})
}

func (t *tally) matrix(cell func(i, j int) float64) Matrix {
	m := Matrix{Rows: slices.Clone(t.rows), Columns: model.Responses(), Values: make([][]float64, len(t.rows))}
	if m.Rows == nil {
		m.Rows = []string{}
	}
	for i := range t.rows {
		m.Values[i] = make([]float64, len(m.Columns))
		for j := range m.Columns {
			m.Values[i][j] = cell(i, j)
		}
	}
	return m
}
