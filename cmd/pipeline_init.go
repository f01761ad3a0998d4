package main

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/cratehq/enrich-cli/internal/email"
	"github.com/cratehq/enrich-cli/internal/enrich"
	"github.com/cratehq/enrich-cli/internal/store"
	"github.com/cratehq/enrich-cli/internal/telemetry"
	"github.com/cratehq/enrich-cli/pkg/anthropic"
	"github.com/cratehq/enrich-cli/pkg/apify"
	"github.com/cratehq/enrich-cli/pkg/perplexity"
)

// pipelineEnv holds the initialized store, pipeline, and webhook sink
// shared by the enrich/bulk/batch/serve commands.
type pipelineEnv struct {
	Store    store.Store
	Pipeline *enrich.Pipeline
	Webhook  *telemetry.Webhook
}

// Close drains pending webhook posts and releases the store.
func (pe *pipelineEnv) Close() {
	if pe.Webhook != nil {
		pe.Webhook.Close()
	}
	if pe.Store != nil {
		_ = pe.Store.Close()
	}
}

// initPipeline sets up the store, the optional paid-service clients, the
// email policy, and the pipeline. Callers should defer env.Close().
func initPipeline(ctx context.Context, mode string) (*pipelineEnv, error) {
	if err := cfg.Validate(mode); err != nil {
		return nil, err
	}

	st, err := initStore(ctx)
	if err != nil {
		return nil, err
	}

	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, eris.Wrap(err, "migrate store")
	}

	// Paid services are optional: without a scrape key the waterfall runs
	// direct-only, without an AI-search key steps 7-9 fail as unconfigured.
	var scrapeClient apify.Client
	if cfg.Apify.APIKey != "" {
		scrapeClient = apify.NewClient(cfg.Apify.APIKey,
			apify.WithBaseURL(cfg.Apify.BaseURL),
			apify.WithActor(cfg.Apify.Actor),
		)
	} else {
		zap.L().Warn("CRATE_APIFY_API_KEY not set, bulk pre-fetch and fallback scrape disabled")
	}

	var pplxClient perplexity.Client
	if cfg.Perplexity.APIKey != "" {
		pplxClient = perplexity.NewClient(cfg.Perplexity.APIKey,
			perplexity.WithBaseURL(cfg.Perplexity.BaseURL),
			perplexity.WithModel(cfg.Perplexity.Model),
		)
	} else {
		zap.L().Warn("CRATE_PERPLEXITY_API_KEY not set, AI search steps disabled")
	}

	var aiClient anthropic.Client
	if cfg.Anthropic.APIKey != "" {
		aiClient = anthropic.NewClient(cfg.Anthropic.APIKey)
	} else {
		zap.L().Debug("CRATE_ANTHROPIC_API_KEY not set, AI answers fall back to regex extraction")
	}

	pol := email.DefaultPolicy()
	if cfg.Policy.Path != "" {
		pol, err = email.LoadPolicy(cfg.Policy.Path)
		if err != nil {
			_ = st.Close()
			return nil, eris.Wrap(err, "load email policy")
		}
		zap.L().Info("email policy loaded", zap.String("path", cfg.Policy.Path))
	}

	p := enrich.New(cfg, pol, scrapeClient, st, pplxClient, aiClient)

	return &pipelineEnv{
		Store:    st,
		Pipeline: p,
		Webhook:  telemetry.NewWebhook(cfg.Telemetry.WebhookURL),
	}, nil
}
