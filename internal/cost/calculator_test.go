package cost

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func testRates() Rates {
	return Rates{
		Anthropic: map[string]ModelRate{
			"haiku": {
				Input: 0.80, Output: 4.00,
				CacheWriteMul: 1.25, CacheReadMul: 0.1,
			},
			"sonnet": {
				Input: 3.00, Output: 15.00,
				CacheWriteMul: 1.25, CacheReadMul: 0.1,
			},
		},
		Scrape:     ScrapeRate{PerPage: 0.002, PerBulkRun: 0.01},
		AISearch:   AISearchRate{PerQuery: 0.005},
		ClaudeFlat: 0.001,
	}
}

func TestClaude(t *testing.T) {
	t.Parallel()
	calc := NewCalculator(testRates())

	tests := []struct {
		name       string
		model      string
		input      int64
		output     int64
		cacheWrite int64
		cacheRead  int64
		want       float64
	}{
		{
			name:  "haiku simple",
			model: "haiku",
			input: 1000000, output: 100000,
			want: 0.80 + 0.40, // 0.80 input + 0.40 output
		},
		{
			name:  "haiku with cache",
			model: "haiku",
			input: 500000, output: 50000,
			cacheWrite: 200000, cacheRead: 300000,
			// in: 0.5M/1M * 0.80 = 0.40
			// out: 0.05M/1M * 4.00 = 0.20
			// cw: 0.2M/1M * 0.80 * 1.25 = 0.20
			// cr: 0.3M/1M * 0.80 * 0.1 = 0.024
			want: 0.40 + 0.20 + 0.20 + 0.024,
		},
		{
			name:  "sonnet",
			model: "sonnet",
			input: 1000000, output: 100000,
			want: 3.00 + 1.50, // 3.00 input + 1.50 output
		},
		{
			name:  "unknown model uses flat per-call estimate",
			model: "unknown",
			input: 1000000, output: 1000000,
			want: 0.001,
		},
		{
			name:  "zero tokens returns 0",
			model: "haiku",
			want:  0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := calc.Claude(tt.model, tt.input, tt.output, tt.cacheWrite, tt.cacheRead)
			assert.InDelta(t, tt.want, got, 0.001)
		})
	}
}

func TestScrapeRates(t *testing.T) {
	t.Parallel()
	calc := NewCalculator(testRates())

	assert.InDelta(t, 0.002, calc.Scrape(), 0.0001)
	assert.InDelta(t, 0.01, calc.BulkRun(), 0.0001)
}

func TestAISearchQuery(t *testing.T) {
	t.Parallel()
	calc := NewCalculator(testRates())
	assert.InDelta(t, 0.005, calc.AISearchQuery(), 0.0001)
}

func TestOverride(t *testing.T) {
	t.Parallel()
	rates := testRates()

	rates.Override(0.004, 0, 0.01, 0)

	assert.InDelta(t, 0.004, rates.Scrape.PerPage, 1e-9)
	assert.InDelta(t, 0.01, rates.Scrape.PerBulkRun, 1e-9) // zero keeps existing
	assert.InDelta(t, 0.01, rates.AISearch.PerQuery, 1e-9)
	assert.InDelta(t, 0.001, rates.ClaudeFlat, 1e-9)
}

func TestDefaultRates(t *testing.T) {
	t.Parallel()
	rates := DefaultRates()

	assert.Contains(t, rates.Anthropic, "claude-3-5-haiku-latest")
	assert.Contains(t, rates.Anthropic, "claude-haiku-4-5-20251001")
	assert.InDelta(t, 0.002, rates.Scrape.PerPage, 0.0001)
	assert.InDelta(t, 0.01, rates.Scrape.PerBulkRun, 0.0001)
	assert.InDelta(t, 0.005, rates.AISearch.PerQuery, 0.0001)
	assert.InDelta(t, 0.001, rates.ClaudeFlat, 0.0001)
}
