package enrich

import (
	"context"

	"github.com/cratehq/enrich-cli/internal/email"
	"github.com/cratehq/enrich-cli/internal/model"
	"github.com/cratehq/enrich-cli/internal/platform"
)

// stepSocials sweeps the remaining profile bios: Twitter, TikTok and
// Spotify. All three are low-yield and hostile to anonymous clients, so
// the sweep never escalates past the free tiers. Blocks skip the step;
// only plain fetch failures fail it.
func (p *Pipeline) stepSocials(ctx context.Context, rs *runState, step *model.EnrichmentStep) error {
	targets := []struct {
		plat   platform.Platform
		source string
	}{
		{platform.Twitter, email.SourceTwitterBio},
		{platform.TikTok, email.SourceTikTokBio},
		{platform.Spotify, email.SourceSpotifyBio},
	}

	var attempted, fetched, blocked int
	var lastErr error

	for _, tg := range targets {
		pageURL := rs.urls[tg.plat]
		if pageURL == "" {
			continue
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		attempted++

		res, err := rs.wf.FetchFree(ctx, pageURL)
		noteFetch(step, pageURL, res)
		if err != nil {
			if res != nil && res.WasBlocked {
				blocked++
			} else {
				lastErr = err
			}
			continue
		}

		fetched++
		p.harvest(rs, step, res.Page.Content, tg.source)
		if rs.hasAccepted() {
			break
		}
	}

	switch {
	case attempted == 0:
		markSkipped(step, model.SkipNoURL)
	case fetched == 0 && blocked > 0:
		markSkipped(step, model.SkipUnsupportedPlatform)
	case fetched == 0:
		return lastErr
	}
	return nil
}
