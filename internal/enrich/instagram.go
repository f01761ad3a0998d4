package enrich

import (
	"context"

	"github.com/cratehq/enrich-cli/internal/email"
	"github.com/cratehq/enrich-cli/internal/model"
	"github.com/cratehq/enrich-cli/internal/platform"
)

// stepInstagram fetches the profile page for the bio text. Anonymous
// clients usually hit a login wall here, so this step leans on the bulk
// pre-fetch and the paid fallback more than the others. The bio's external
// link is adopted for the link-in-bio and website steps.
func (p *Pipeline) stepInstagram(ctx context.Context, rs *runState, step *model.EnrichmentStep) error {
	profileURL := rs.urls[platform.Instagram]
	if profileURL == "" {
		markSkipped(step, model.SkipNoURL)
		return nil
	}

	res, err := rs.wf.Fetch(ctx, profileURL)
	noteFetch(step, profileURL, res)
	if err != nil {
		return err
	}

	p.harvest(rs, step, res.Page.Content, email.SourceInstagramBio)
	p.adoptLinks(rs, res.Page.Content)
	return nil
}
