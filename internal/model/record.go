package model

// AggregatedRecord is a customer merged with behavioural statistics over its transactions.
// Customers without transactions carry zero aggregates and None for the modes.
type AggregatedRecord struct {
	Customer
	AvgAmount           float64 `json:"avg_amount"`
	TotalAmount         float64 `json:"total_amount"`
	TxCount             int     `json:"tx_count"`
	MaxAmount           float64 `json:"max_amount"`
	StdAmount           float64 `json:"std_amount"`
	TopCategory         string  `json:"top_category"`
	TopChannel          string  `json:"top_channel"`
	WeekdayRatio        float64 `json:"weekday_ratio"`
	TxCategoryCount     int     `json:"tx_category_count"`
	MainSpending        string  `json:"main_spending"`
	PastProductInterest int     `json:"past_product_interest"`
}

// Channels returns the channels the customer is reachable through.
// A record without a usable top channel is treated as Digital.
func (r AggregatedRecord) Channels() []string {
	switch r.TopChannel {
	case ChannelDigital, ChannelBranch, ChannelATM:
		return []string{r.TopChannel}
	default:
		return []string{ChannelDigital}
	}
}

// ScoredRecord is an aggregated record after campaign scoring and classification.
type ScoredRecord struct {
	AggregatedRecord
	ProductScore               float64  `json:"product_score"`
	BaseProbability            float64  `json:"base_probability"`
	ProductInterestProbability float64  `json:"product_interest_probability"`
	TwinResponse               Response `json:"twin_response"`
}
