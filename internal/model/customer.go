package model

// Customer is a synthetic twin standing in for a real customer.
type Customer struct {
	ID                   string  `json:"customer_id"`
	Segment              Segment `json:"segment"`
	Sector               string  `json:"sector"`
	Category             string  `json:"category"`
	FinancialPerformance int     `json:"financial_performance"`
	DigitalOpenness      float64 `json:"digital_openness"`
	PromotionSensitivity float64 `json:"promotion_sensitivity"`
	InnovationOpenness   float64 `json:"innovation_openness"`
}

// HasDeclaredCategory reports whether Category is meaningful for the customer.
// Only Individuals declare a category; SME and Corporate carry a filler.
func (c Customer) HasDeclaredCategory() bool {
	return c.Segment == SegmentIndividual && c.Category != "" && c.Category != CorporateCategory
}

// IsBusiness reports whether the customer is an SME or Corporate.
func (c Customer) IsBusiness() bool {
	return c.Segment == SegmentSME || c.Segment == SegmentCorporate
}

// Transaction is a single synthetic transaction of a customer.
type Transaction struct {
	CustomerID string  `json:"customer_id"`
	Category   string  `json:"category"`
	Channel    string  `json:"channel"`
	Amount     float64 `json:"amount"`
	Month      int     `json:"month"`
	Weekday    int     `json:"weekday"`
}
