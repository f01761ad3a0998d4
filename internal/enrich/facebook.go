package enrich

import (
	"context"
	"errors"

	"github.com/cratehq/enrich-cli/internal/email"
	"github.com/cratehq/enrich-cli/internal/fetch"
	"github.com/cratehq/enrich-cli/internal/model"
	"github.com/cratehq/enrich-cli/internal/platform"
)

// stepFacebook fetches the page's About tab. Facebook serves a login wall
// to anonymous clients almost without exception and the yield does not
// justify a paid scrape, so this step uses only the free tiers and a
// login wall skips it rather than failing it.
func (p *Pipeline) stepFacebook(ctx context.Context, rs *runState, step *model.EnrichmentStep) error {
	pageURL := rs.urls[platform.Facebook]
	if pageURL == "" {
		markSkipped(step, model.SkipNoURL)
		return nil
	}

	aboutURL := platform.FacebookAboutURL(pageURL)
	res, err := rs.wf.FetchFree(ctx, aboutURL)
	noteFetch(step, aboutURL, res)
	if err != nil {
		var blocked *fetch.BlockedError
		if errors.As(err, &blocked) && blocked.Type == fetch.BlockLoginWall {
			markSkipped(step, model.SkipUnsupportedPlatform)
			return nil
		}
		return err
	}

	p.harvest(rs, step, res.Page.Content, email.SourceFacebookAbout)
	return nil
}
