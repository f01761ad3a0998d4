// Package enrich runs the per-artist contact-enrichment pipeline: a fixed
// sequence of platform steps over a shared fetch waterfall, a quality
// filter on every extracted address, and a final aggregation that picks
// the single best business contact.
package enrich

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/cratehq/enrich-cli/internal/config"
	"github.com/cratehq/enrich-cli/internal/cost"
	"github.com/cratehq/enrich-cli/internal/email"
	"github.com/cratehq/enrich-cli/internal/fetch"
	"github.com/cratehq/enrich-cli/internal/model"
	"github.com/cratehq/enrich-cli/internal/platform"
	"github.com/cratehq/enrich-cli/internal/resilience"
	"github.com/cratehq/enrich-cli/pkg/anthropic"
	"github.com/cratehq/enrich-cli/pkg/apify"
	"github.com/cratehq/enrich-cli/pkg/perplexity"
)

// Breakers guarding the two paid services.
const (
	breakerScrape   = "scrape"
	breakerAISearch = "ai_search"
)

// Cache is the paid-call cache surface the pipeline consumes; the store
// satisfies it. Nil disables caching and every paid call hits the network.
type Cache interface {
	fetch.ScrapeCache
	GetCachedAnswer(ctx context.Context, promptHash string) ([]byte, error)
	SetCachedAnswer(ctx context.Context, promptHash string, data []byte, ttl time.Duration) error
}

// Pipeline runs the enrichment steps for one artist at a time. It is safe
// to reuse across artists; each Run builds its own waterfall and state.
type Pipeline struct {
	cfg      *config.Config
	filter   *email.Filter
	direct   *fetch.Direct
	scrape   apify.Client
	prefetch *fetch.Prefetcher
	pplx     perplexity.Client
	ai       anthropic.Client
	cache    Cache
	breakers *resilience.ServiceBreakers
	costs    *cost.Calculator
}

// New wires a Pipeline. scrape may be nil (paid fetch tiers disabled),
// cache may be nil (no paid-call caching), pplx may be nil (AI steps fail
// with a configuration error), ai may be nil (regex fallback only).
func New(cfg *config.Config, pol email.Policy, scrape apify.Client, cache Cache, pplx perplexity.Client, ai anthropic.Client) *Pipeline {
	rates := cost.DefaultRates()
	rates.Override(cfg.Cost.ScrapeUSD, cfg.Cost.BulkRunUSD, cfg.Cost.AISearchUSD, cfg.Cost.ClaudeUSD)

	p := &Pipeline{
		cfg:    cfg,
		filter: email.NewFilter(pol),
		direct: fetch.NewDirect(fetch.DirectOptions{
			UserAgent:        cfg.Fetch.UserAgent,
			Timeout:          cfg.Fetch.Timeout,
			MinContentLength: cfg.Fetch.MinContentLength,
			MaxBodyBytes:     cfg.Fetch.MaxBodyBytes,
			HostRPS:          cfg.Fetch.HostRPS,
			HostBurst:        cfg.Fetch.HostBurst,
		}),
		pplx:     pplx,
		ai:       ai,
		cache:    cache,
		breakers: resilience.NewServiceBreakers(resilience.BreakerConfig{}),
		costs:    cost.NewCalculator(rates),
	}

	if scrape != nil {
		p.scrape = scrape
		p.prefetch = fetch.NewPrefetcher(scrape, cfg.Fetch.MinContentLength)
	}

	return p
}

// runScraper builds the scrape tier for one run: the cache wrapped around
// the paid client, with every call that reaches the service billed to the
// run. A cached scrape costs nothing.
func (p *Pipeline) runScraper(rs *runState) fetch.Scraper {
	if p.scrape == nil {
		return nil
	}

	var sc fetch.ScrapeCache
	if p.cache != nil {
		sc = p.cache
	}
	cs := fetch.NewCachedScraper(p.scrape, sc, p.cfg.Cache.TTL)
	cs.OnPaid = func() { rs.spendUSD += p.costs.Scrape() }
	return cs
}

// runState carries the shared mutable state of one artist's run.
type runState struct {
	artist *model.Artist
	urls   map[platform.Platform]string
	wf     *fetch.Waterfall
	result *model.EnrichmentResult

	candidates []stepCandidate
	spendUSD   float64
}

// stepCandidate tags an accepted candidate with the step that produced
// it; the aggregator uses the step position as its final tie-break.
type stepCandidate struct {
	model.CandidateEmail
	step model.StepMethod
}

func (rs *runState) hasAccepted() bool {
	return len(rs.candidates) > 0
}

type stepFn func(ctx context.Context, rs *runState, step *model.EnrichmentStep) error

// Run enriches one artist. The returned result always carries the full
// step trail, whatever happened; the error is non-nil only for run-level
// failures such as a cancelled context.
func (p *Pipeline) Run(ctx context.Context, artist *model.Artist) (*model.EnrichmentResult, error) {
	if artist == nil {
		return nil, eris.New("enrich: nil artist")
	}
	log := zap.L().With(zap.String("artist_id", artist.ID), zap.String("artist", artist.Name))

	started := time.Now()
	result := &model.EnrichmentResult{
		ArtistID:  artist.ID,
		CreatedAt: started.UTC(),
	}

	rs := &runState{
		artist: artist,
		urls:   platform.Collect(artist),
		result: result,
	}

	log.Info("enrich: starting", zap.Int("urls", len(rs.urls)))

	rs.wf = fetch.NewWaterfall(fetch.WaterfallConfig{
		Direct:           p.direct,
		Scraper:          p.runScraper(rs),
		Prefetched:       p.prefetchPages(ctx, rs, log),
		Breaker:          p.breakers.Get(breakerScrape),
		RateLimitBackoff: p.cfg.Pipeline.RateLimitBackoff,
		MinContentLength: p.cfg.Fetch.MinContentLength,
	})

	trackStep := func(method model.StepMethod, label string, fn stepFn) {
		step := model.EnrichmentStep{Method: method, Label: label, Status: model.StepStatusRunning}

		// One accepted address ends the hunt: every later step skips.
		if rs.hasAccepted() {
			step.Status = model.StepStatusSkipped
			step.SkipReason = model.SkipEmailAlreadyFound
			result.Steps = append(result.Steps, step)
			return
		}
		if err := ctx.Err(); err != nil {
			step.Status = model.StepStatusFailed
			step.Error = err.Error()
			result.Steps = append(result.Steps, step)
			return
		}

		stepStart := time.Now()
		err := fn(ctx, rs, &step)
		step.DurationMS = time.Since(stepStart).Milliseconds()

		switch {
		case err != nil:
			step.Status = model.StepStatusFailed
			step.Error = err.Error()
			log.Warn("enrich: step failed",
				zap.String("step", string(method)),
				zap.Int64("duration_ms", step.DurationMS),
				zap.Error(err),
			)
		case step.Status == model.StepStatusRunning:
			step.Status = model.StepStatusSuccess
		}

		if step.Status != model.StepStatusFailed {
			log.Info("enrich: step done",
				zap.String("step", string(method)),
				zap.String("status", string(step.Status)),
				zap.Int("emails", len(step.EmailsFound)),
				zap.Int64("duration_ms", step.DurationMS),
			)
		}

		result.Steps = append(result.Steps, step)
	}

	trackStep(model.StepYouTube, "YouTube channel About page", p.stepYouTube)
	trackStep(model.StepInstagram, "Instagram profile bio", p.stepInstagram)
	trackStep(model.StepLinkInBio, "Link-in-bio page", p.stepLinkInBio)
	trackStep(model.StepWebsite, "Official website", p.stepWebsite)
	trackStep(model.StepFacebook, "Facebook About page", p.stepFacebook)
	trackStep(model.StepSocials, "Twitter, TikTok and Spotify bios", p.stepSocials)
	trackStep(model.StepAIYouTube, "AI deep dive: YouTube", p.stepAIYouTube)
	trackStep(model.StepAIInstagram, "AI deep dive: Instagram", p.stepAIInstagram)
	trackStep(model.StepAIGeneric, "AI search: artist name", p.stepAIGeneric)

	p.aggregate(rs)

	result.TotalDurationMS = time.Since(started).Milliseconds()
	result.CostUSD = rs.spendUSD

	if err := ctx.Err(); err != nil {
		result.ErrorDetails = err.Error()
		log.Warn("enrich: run interrupted", zap.Error(err))
		return result, eris.Wrap(err, "enrich: run")
	}

	log.Info("enrich: complete",
		zap.Bool("contactable", result.IsContactable),
		zap.String("email", result.EmailFound),
		zap.String("source", result.EmailSource),
		zap.Float64("cost_usd", result.CostUSD),
		zap.Int64("duration_ms", result.TotalDurationMS),
	)

	return result, nil
}

// prefetchPages runs the single bulk scrape over every page the steps
// will visit. Failures degrade the run to direct fetches; they never
// fail it.
func (p *Pipeline) prefetchPages(ctx context.Context, rs *runState, log *zap.Logger) *fetch.Prefetched {
	if p.prefetch == nil || len(rs.urls) == 0 {
		return nil
	}

	pre, err := p.prefetch.Run(ctx, prefetchList(rs.urls))
	rs.spendUSD += p.costs.BulkRun()
	if err != nil {
		log.Warn("enrich: bulk pre-fetch failed", zap.Error(err))
		return nil
	}
	return pre
}

// prefetchList converts the platform map into the concrete page URLs the
// steps fetch: About pages for YouTube and Facebook, profile pages for
// the rest, in step order.
func prefetchList(urls map[platform.Platform]string) []string {
	var list []string
	add := func(u string) {
		if u != "" {
			list = append(list, u)
		}
	}
	add(platform.YouTubeAboutURL(urls[platform.YouTube]))
	add(urls[platform.Instagram])
	add(urls[platform.Linktree])
	add(urls[platform.Website])
	add(platform.FacebookAboutURL(urls[platform.Facebook]))
	add(urls[platform.Twitter])
	add(urls[platform.TikTok])
	add(urls[platform.Spotify])
	return list
}

// markSkipped closes a step without running it.
func markSkipped(step *model.EnrichmentStep, reason model.SkipReason) {
	step.Status = model.StepStatusSkipped
	step.SkipReason = reason
}

// noteFetch records waterfall outcome fields on the step. Scrape spend is
// not accounted here; the cached scraper bills calls as they reach the
// service. The first URL fetched by a step wins the URLFetched slot;
// content lengths accumulate across a step's fetches.
func noteFetch(step *model.EnrichmentStep, pageURL string, res *fetch.Result) {
	if step.URLFetched == "" {
		step.URLFetched = pageURL
	}
	if res == nil {
		return
	}
	if res.WasBlocked {
		step.WasBlocked = true
	}
	if res.UsedFallbackScrape {
		step.UsedFallbackScrape = true
	}
	if res.Page != nil {
		step.ContentLength += len(res.Page.Content)
	}
}

// harvest extracts and filters addresses from fetched content, recording
// accepted and rejected candidates on the step. Two passes: the HTML-aware
// extractor gets mailto links with their anchor context, then a raw pass
// over the unescaped body catches addresses that SPA pages bury in
// script-embedded JSON, which the HTML pass strips.
func (p *Pipeline) harvest(rs *runState, step *model.EnrichmentStep, content, source string) {
	found := email.ExtractContent(content)

	seen := make(map[string]bool, len(found))
	for _, f := range found {
		seen[email.Normalize(f.Email)] = true
	}
	for _, f := range email.Extract(unescapeJSON(content)) {
		if seen[email.Normalize(f.Email)] {
			continue
		}
		found = append(found, f)
	}

	p.filterInto(rs, step, found, source)
}

func (p *Pipeline) filterInto(rs *runState, step *model.EnrichmentStep, found []email.Found, source string) {
	if len(found) == 0 {
		return
	}

	res := p.filter.Filter(found, source)
	step.RejectedEmails = append(step.RejectedEmails, res.Rejected...)
	for _, cand := range res.Accepted {
		step.EmailsFound = append(step.EmailsFound, cand.Email)
		if cand.Confidence > step.Confidence {
			step.Confidence = cand.Confidence
		}
		rs.candidates = append(rs.candidates, stepCandidate{CandidateEmail: cand, step: step.Method})
	}
}
