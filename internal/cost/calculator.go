package cost

// Rates holds per-provider pricing configuration.
type Rates struct {
	Anthropic map[string]ModelRate `yaml:"anthropic" mapstructure:"anthropic"`
	Scrape    ScrapeRate           `yaml:"scrape" mapstructure:"scrape"`
	AISearch  AISearchRate         `yaml:"ai_search" mapstructure:"ai_search"`

	// ClaudeFlat is the per-call estimate used when a model has no
	// entry in the Anthropic table.
	ClaudeFlat float64 `yaml:"claude_flat" mapstructure:"claude_flat"`
}

// ModelRate holds per-model token pricing (USD per million tokens).
type ModelRate struct {
	Input         float64 `yaml:"input" mapstructure:"input"`
	Output        float64 `yaml:"output" mapstructure:"output"`
	CacheWriteMul float64 `yaml:"cache_write_mul" mapstructure:"cache_write_mul"`
	CacheReadMul  float64 `yaml:"cache_read_mul" mapstructure:"cache_read_mul"`
}

// ScrapeRate holds scrape-service pricing: a single-page fallback scrape
// and a multi-URL bulk pre-fetch run are billed differently.
type ScrapeRate struct {
	PerPage    float64 `yaml:"per_page" mapstructure:"per_page"`
	PerBulkRun float64 `yaml:"per_bulk_run" mapstructure:"per_bulk_run"`
}

// AISearchRate holds AI web-search pricing.
type AISearchRate struct {
	PerQuery float64 `yaml:"per_query" mapstructure:"per_query"`
}

// Override replaces unit prices with any positive values given; zeros keep
// the existing rate. Lets config tune spend accounting without a full table.
func (r *Rates) Override(scrapePage, bulkRun, aiQuery, claudeFlat float64) {
	if scrapePage > 0 {
		r.Scrape.PerPage = scrapePage
	}
	if bulkRun > 0 {
		r.Scrape.PerBulkRun = bulkRun
	}
	if aiQuery > 0 {
		r.AISearch.PerQuery = aiQuery
	}
	if claudeFlat > 0 {
		r.ClaudeFlat = claudeFlat
	}
}

// Calculator computes estimated costs for paid calls.
type Calculator struct {
	rates Rates
}

// NewCalculator creates a Calculator with the given rates.
func NewCalculator(rates Rates) *Calculator {
	return &Calculator{rates: rates}
}

// Claude computes the cost of one structuring call from token counts.
// Unknown models fall back to the flat per-call estimate.
func (c *Calculator) Claude(model string, input, output, cacheWrite, cacheRead int64) float64 {
	rate, ok := c.rates.Anthropic[model]
	if !ok {
		return c.rates.ClaudeFlat
	}

	inCost := (float64(input) / 1e6) * rate.Input
	outCost := (float64(output) / 1e6) * rate.Output
	cwCost := (float64(cacheWrite) / 1e6) * rate.Input * rate.CacheWriteMul
	crCost := (float64(cacheRead) / 1e6) * rate.Input * rate.CacheReadMul

	return inCost + outCost + cwCost + crCost
}

// Scrape returns the cost of one single-page fallback scrape.
func (c *Calculator) Scrape() float64 {
	return c.rates.Scrape.PerPage
}

// BulkRun returns the cost of one multi-URL pre-fetch run.
func (c *Calculator) BulkRun() float64 {
	return c.rates.Scrape.PerBulkRun
}

// AISearchQuery returns the flat cost of one AI web-search query.
func (c *Calculator) AISearchQuery() float64 {
	return c.rates.AISearch.PerQuery
}

// DefaultRates returns the default pricing rates.
func DefaultRates() Rates {
	return Rates{
		Anthropic: map[string]ModelRate{
			"claude-3-5-haiku-latest": {
				Input: 0.80, Output: 4.00,
				CacheWriteMul: 1.25, CacheReadMul: 0.1,
			},
			"claude-haiku-4-5-20251001": {
				Input: 0.80, Output: 4.00,
				CacheWriteMul: 1.25, CacheReadMul: 0.1,
			},
			"claude-sonnet-4-5-20250929": {
				Input: 3.00, Output: 15.00,
				CacheWriteMul: 1.25, CacheReadMul: 0.1,
			},
		},
		Scrape:     ScrapeRate{PerPage: 0.002, PerBulkRun: 0.01},
		AISearch:   AISearchRate{PerQuery: 0.005},
		ClaudeFlat: 0.001,
	}
}
