// Package model defines the core domain models used throughout the application.
package model

// Segment is the top-level customer classification.
type Segment string

// Customer segments.
const (
	SegmentIndividual Segment = "Individual"
	SegmentSME        Segment = "SME"
	SegmentCorporate  Segment = "Corporate"
)

// Filler values for fields that carry no meaning for a segment.
const (
	// None is the sector of an Individual and the top category/channel of a
	// customer without transactions.
	None = "None"
	// CorporateCategory is the category filler of SME and Corporate customers.
	CorporateCategory = "Corporate"
)

// Transaction channels.
const (
	ChannelDigital = "Digital"
	ChannelBranch  = "Branch"
	ChannelATM     = "ATM"
	// ChannelBoth is accepted by campaign filters and expands to Digital and Branch.
	ChannelBoth = "Both"
)

// Product levels used for risk and innovation.
const (
	LevelHigh   = "High"
	LevelMedium = "Medium"
	LevelLow    = "Low"
)

// Interest types.
const (
	InterestFixed    = "Fixed"
	InterestVariable = "Variable"
	InterestNone     = "None"
)

// Promotions with scoring rules attached.
const (
	PromotionCashback           = "Cashback"
	PromotionDigitalConvenience = "Digital Convenience"
)

// Segments lists every segment in generation order.
var Segments = []Segment{SegmentIndividual, SegmentSME, SegmentCorporate}

// Sectors lists the business sectors of SME and Corporate customers.
var Sectors = []string{
	"Construction", "Textile", "Food", "Automotive", "Electricity", "Tourism",
	"E-Commerce", "Healthcare", "Agriculture", "Information Technology", "Energy", "Logistics", "Finance", "Retail",
}

// IndividualCategories lists the behavioural sub-categories of Individual customers.
var IndividualCategories = []string{
	"Saver", "Investor", "Borrower", "Card Holder", "Shopper", "Traveller",
}

// TransactionCategories lists the categories a transaction can fall into.
var TransactionCategories = []string{
	"POS", "Online", "Wire Transfer", "Check", "Credit Card", "Cash Withdrawal", "Bill Payment", "Foreign Exchange",
	"Investment", "Campaign", "Entertainment", "Grocery", "Clothing", "Transport", "Travel", "Technology",
}

// ProductTypes lists the product types a campaign can offer.
var ProductTypes = []string{
	"Loan", "Deposit", "Insurance", "Investment", "POS", "Campaign", "Digital Account", "Card", "Check/Promissory Note",
	"Payment Solution", "Other",
}

// ProductCategories lists the product categories a campaign can belong to.
var ProductCategories = []string{
	"Consumer", "Business", "Vehicle", "Housing", "Savings", "Payment", "Insurance", "Investment", "POS", "Digital", "Other",
}

// Promotions lists the promotions a campaign can carry.
var Promotions = []string{
	"Cashback", "Low Interest", "Free EFT", "Loyalty Points", "High Limit", "Digital Convenience",
	"Early Payment", "Extra Campaign", "Fast Approval", "Low Commission", "Extra Bonus", "Free Insurance",
}

// TransactionChannels lists the channels a transaction can go through.
var TransactionChannels = []string{ChannelDigital, ChannelBranch, ChannelATM}

// CampaignChannels lists the channels a campaign can target.
var CampaignChannels = []string{ChannelDigital, ChannelBranch}

// Levels lists risk and innovation levels.
var Levels = []string{LevelHigh, LevelMedium, LevelLow}

// InterestTypes lists the supported interest types.
var InterestTypes = []string{InterestFixed, InterestVariable, InterestNone}

// LaunchYears lists the supported product launch years.
var LaunchYears = []int{2020, 2021, 2022, 2023, 2024}

// SegmentNames returns the segments as plain strings.
func SegmentNames() []string {
	names := make([]string, len(Segments))
	for i, s := range Segments {
		names[i] = string(s)
	}
	return names
}
