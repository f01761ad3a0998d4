package main

import (
	"context"
	"encoding/json"
	"os"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/cratehq/enrich-cli/internal/model"
)

var (
	enrichID      string
	enrichName    string
	enrichWebsite string
	enrichSpotify string
	enrichSocials []string
)

var enrichCmd = &cobra.Command{
	Use:   "enrich",
	Short: "Enrich a single artist",
	Long:  "Runs the enrichment pipeline for one artist, either a stored record (--id) or an ad-hoc one built from flags. Ad-hoc artists are saved before the run.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		if enrichID == "" && enrichName == "" {
			return eris.New("either --id or --name is required")
		}
		if enrichID != "" && enrichName != "" {
			return eris.New("--id and --name are mutually exclusive")
		}

		env, err := initPipeline(ctx, "enrich")
		if err != nil {
			return err
		}
		defer env.Close()

		var artist *model.Artist
		if enrichID != "" {
			artist, err = env.Store.GetArtist(ctx, enrichID)
			if err != nil {
				return eris.Wrap(err, "load artist")
			}
		} else {
			socials, err := parseSocials(enrichSocials)
			if err != nil {
				return err
			}
			artist = &model.Artist{
				Name:        enrichName,
				Website:     enrichWebsite,
				SpotifyURL:  enrichSpotify,
				SocialLinks: socials,
			}
			if err := env.Store.UpsertArtist(ctx, artist); err != nil {
				return eris.Wrap(err, "save artist")
			}
		}

		runCtx, cancel := context.WithTimeout(ctx, artistTimeout())
		defer cancel()

		result, err := env.Pipeline.Run(runCtx, artist)
		if err != nil {
			return eris.Wrap(err, "pipeline run")
		}

		artist.ApplyResult(result, time.Now().UTC())
		if err := env.Store.SaveEnrichment(ctx, artist, result); err != nil {
			return eris.Wrap(err, "save enrichment")
		}
		env.Webhook.RunCompleted(result)

		zap.L().Info("enrichment complete",
			zap.String("artist_id", artist.ID),
			zap.String("artist", artist.Name),
			zap.String("email", result.EmailFound),
			zap.Float64("confidence", result.EmailConfidence),
			zap.String("source", result.EmailSource),
			zap.Float64("cost_usd", result.CostUSD),
		)

		// Print result JSON to stdout
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	},
}

// parseSocials turns repeated platform=url flags into the raw social-link
// map the collector normalizes.
func parseSocials(pairs []string) (map[string]string, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	links := make(map[string]string, len(pairs))
	for _, pair := range pairs {
		key, url, ok := strings.Cut(pair, "=")
		if !ok || key == "" || url == "" {
			return nil, eris.Errorf("invalid --social %q, want platform=url", pair)
		}
		links[strings.ToLower(strings.TrimSpace(key))] = strings.TrimSpace(url)
	}
	return links, nil
}

func artistTimeout() time.Duration {
	if cfg.Pipeline.ArtistTimeout > 0 {
		return cfg.Pipeline.ArtistTimeout
	}
	return 3 * time.Minute
}

func init() {
	enrichCmd.Flags().StringVar(&enrichID, "id", "", "stored artist ID")
	enrichCmd.Flags().StringVar(&enrichName, "name", "", "artist name for an ad-hoc record")
	enrichCmd.Flags().StringVar(&enrichWebsite, "website", "", "artist website URL")
	enrichCmd.Flags().StringVar(&enrichSpotify, "spotify", "", "Spotify artist URL")
	enrichCmd.Flags().StringArrayVar(&enrichSocials, "social", nil, "social link as platform=url (repeatable)")
	rootCmd.AddCommand(enrichCmd)
}
