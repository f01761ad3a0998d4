package enrich

import (
	"context"

	"github.com/cratehq/enrich-cli/internal/email"
	"github.com/cratehq/enrich-cli/internal/model"
	"github.com/cratehq/enrich-cli/internal/platform"
)

// stepYouTube fetches the channel's About page, the single highest-yield
// source for business inquiry addresses. The page embeds its data as
// escaped JSON, so the raw-body pass in harvest does the heavy lifting.
func (p *Pipeline) stepYouTube(ctx context.Context, rs *runState, step *model.EnrichmentStep) error {
	channelURL := rs.urls[platform.YouTube]
	if channelURL == "" {
		markSkipped(step, model.SkipNoURL)
		return nil
	}

	aboutURL := platform.YouTubeAboutURL(channelURL)
	res, err := rs.wf.Fetch(ctx, aboutURL)
	noteFetch(step, aboutURL, res)
	if err != nil {
		return err
	}

	p.harvest(rs, step, res.Page.Content, email.SourceYouTubeAbout)
	p.adoptLinks(rs, res.Page.Content)
	return nil
}
