package enrich

import (
	"context"

	"github.com/cratehq/enrich-cli/internal/email"
	"github.com/cratehq/enrich-cli/internal/model"
	"github.com/cratehq/enrich-cli/internal/platform"
)

// stepLinkInBio fetches the artist's aggregator page (Linktree, Beacons
// and friends). These render fine without JavaScript more often than not,
// so escalation to the paid tier happens only on a real block, not on
// thin content.
func (p *Pipeline) stepLinkInBio(ctx context.Context, rs *runState, step *model.EnrichmentStep) error {
	bioURL := rs.urls[platform.Linktree]
	if bioURL == "" {
		markSkipped(step, model.SkipNoURL)
		return nil
	}

	res, err := rs.wf.FetchSmart(ctx, bioURL)
	noteFetch(step, bioURL, res)
	if err != nil {
		return err
	}

	p.harvest(rs, step, res.Page.Content, email.SourceLinkInBio)
	p.adoptLinks(rs, res.Page.Content)
	return nil
}
