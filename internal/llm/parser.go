package llm

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/Veraticus/digital-twin/internal/campaign"
	"github.com/Veraticus/digital-twin/internal/common"
	"github.com/Veraticus/digital-twin/internal/metrics"
	"github.com/Veraticus/digital-twin/internal/service"
)

const systemPrompt = "You extract structured campaign filters from banking product descriptions. " +
	"Answer with a single JSON object and nothing else."

// ParseResult is the outcome of parsing a campaign description.
type ParseResult struct {
	Issues   []campaign.Issue `json:"issues,omitempty"`
	Filter   campaign.Filter  `json:"filter"`
	Fallback bool             `json:"fallback"`
}

// CampaignParser turns free-text campaign descriptions into filters with the
// help of a language model.
type CampaignParser struct {
	client  Client
	limiter *rateLimiter
	logger  *slog.Logger
	retry   service.RetryOptions
}

// ParserOption configures a CampaignParser.
type ParserOption func(*CampaignParser)

// WithParserLogger sets the parser's logger.
func WithParserLogger(logger *slog.Logger) ParserOption {
	return func(p *CampaignParser) { p.logger = logger }
}

// WithRetryOptions overrides the retry policy for model calls.
func WithRetryOptions(opts service.RetryOptions) ParserOption {
	return func(p *CampaignParser) { p.retry = opts }
}

// WithRateLimit limits model calls to requestsPerMinute.
func WithRateLimit(requestsPerMinute int) ParserOption {
	return func(p *CampaignParser) {
		if p.limiter != nil {
			p.limiter.Close()
		}
		p.limiter = newRateLimiter(requestsPerMinute)
	}
}

// NewCampaignParser creates a parser over client.
func NewCampaignParser(client Client, opts ...ParserOption) *CampaignParser {
	p := &CampaignParser{
		client: client,
		retry: service.RetryOptions{
			MaxAttempts:  3,
			InitialDelay: time.Second,
			MaxDelay:     30 * time.Second,
			Multiplier:   2.0,
		},
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.limiter == nil {
		p.limiter = newRateLimiter(60)
	}
	p.logger = common.LoggerOrDefault(p.logger)
	return p
}

// ParserFromConfig builds a parser whose retry and rate limit settings come
// from cfg.
func ParserFromConfig(client Client, cfg Config, logger *slog.Logger) *CampaignParser {
	opts := []ParserOption{WithParserLogger(logger)}
	if cfg.MaxRetries > 0 || cfg.RetryDelay > 0 {
		opts = append(opts, WithRetryOptions(service.RetryOptions{
			MaxAttempts:  cfg.MaxRetries,
			InitialDelay: cfg.RetryDelay,
			MaxDelay:     30 * time.Second,
			Multiplier:   2.0,
		}))
	}
	if cfg.RateLimit > 0 {
		opts = append(opts, WithRateLimit(cfg.RateLimit))
	}
	return NewCampaignParser(client, opts...)
}

// Parse extracts a filter from text. A blank description or an answer that
// cannot be decoded yields campaign.Empty() with Fallback set and no error.
// A failed model call yields campaign.Empty() and an error wrapping
// common.ErrUpstreamParse.
func (p *CampaignParser) Parse(ctx context.Context, text string) (ParseResult, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		metrics.ParserOutcomes.WithLabelValues(metrics.OutcomeFallback).Inc()
		return ParseResult{Filter: campaign.Empty(), Fallback: true}, nil
	}

	var content string
	err := common.WithRetry(ctx, func() error {
		if err := p.limiter.wait(ctx); err != nil {
			return &common.RetryableError{Err: err, Retryable: false}
		}
		var callErr error
		content, callErr = p.client.Complete(ctx, systemPrompt, BuildPrompt(text))
		return callErr
	}, p.retry)
	if err != nil {
		metrics.ParserOutcomes.WithLabelValues(metrics.OutcomeFailed).Inc()
		p.logger.Error("campaign description parse failed", "error", err)
		return ParseResult{Filter: campaign.Empty()}, fmt.Errorf("%w: %w", common.ErrUpstreamParse, err)
	}

	raw, err := decodeObject(content)
	if err != nil {
		metrics.ParserOutcomes.WithLabelValues(metrics.OutcomeFallback).Inc()
		p.logger.Warn("model answer was not a usable object, using empty filter",
			"error", err,
			"content_length", len(content))
		return ParseResult{Filter: campaign.Empty(), Fallback: true}, nil
	}

	issues, err := validateShape(raw)
	if err != nil {
		p.logger.Warn("schema validation skipped", "error", err)
	}

	filter, normIssues := campaign.Normalize(raw)
	issues = append(issues, normIssues...)

	metrics.ParserOutcomes.WithLabelValues(metrics.OutcomeParsed).Inc()
	if len(issues) > 0 {
		p.logger.Debug("campaign description parsed with issues", "issues", len(issues))
	}

	return ParseResult{Filter: filter, Issues: issues}, nil
}

// Close stops the parser's rate limiter.
func (p *CampaignParser) Close() {
	p.limiter.Close()
}

// BuildPrompt renders the extraction prompt for a description.
func BuildPrompt(text string) string {
	var b strings.Builder

	b.WriteString("Given the following product/campaign description, extract ALL of the filters below.\n")
	b.WriteString("Output ONLY a JSON object with exactly these keys, even when a field is unknown.\n")
	b.WriteString("Use [] for unknown lists, \"\" for unknown strings and null for unknown numbers.\n\n")

	for _, field := range campaign.Fields() {
		b.WriteString("- ")
		b.WriteString(field)
		switch field {
		case campaign.FieldTerm:
			fmt.Fprintf(&b, " (integer, months, %d-%d)", campaign.MinTerm, campaign.MaxTerm)
		case campaign.FieldLaunchYear:
			b.WriteString(" (integer, year)")
		default:
			kind := "string"
			if campaign.IsList(field) {
				kind = "list"
			}
			fmt.Fprintf(&b, " (%s, select from: %s)", kind, strings.Join(campaign.Domain(field), ", "))
		}
		b.WriteByte('\n')
	}

	b.WriteString("\nExample output:\n")
	b.WriteString(`{"segment": ["Individual"], "sector": [], "category": [], "product_type": "Loan", ` +
		`"product_category": "Consumer", "promotion": ["Cashback", "Loyalty Points"], "channel": ["Digital"], ` +
		`"term": 12, "interest_type": "Fixed", "risk_level": "Medium", "innovation_level": "High", "launch_year": 2023}`)
	b.WriteString("\n\nText:\n")
	b.WriteString(text)
	b.WriteString("\nOutput:\n")

	return b.String()
}
