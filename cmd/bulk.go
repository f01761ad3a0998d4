package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/cratehq/enrich-cli/internal/batch"
	"github.com/cratehq/enrich-cli/internal/store"
)

var (
	bulkLimit          int
	bulkOnlyUnenriched bool
)

var bulkCmd = &cobra.Command{
	Use:   "bulk",
	Short: "Sequentially enrich stored artists",
	Long:  "Enriches stored artists one at a time with the same jittered inter-artist delay the batch worker uses. Artists that already have an email are not selected. Ctrl-C stops between artists.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initPipeline(ctx, "enrich")
		if err != nil {
			return err
		}
		defer env.Close()

		notContactable := false
		filter := store.ArtistFilter{
			Contactable: &notContactable,
			Limit:       bulkLimit,
		}
		if bulkOnlyUnenriched {
			notEnriched := false
			filter.Enriched = &notEnriched
		}

		artists, err := env.Store.ListArtists(ctx, filter)
		if err != nil {
			return eris.Wrap(err, "list artists")
		}
		if len(artists) == 0 {
			zap.L().Info("no artists to enrich")
			return nil
		}

		zap.L().Info("bulk enrich starting", zap.Int("artists", len(artists)))

		var enriched, failed, emailsFound int
		for i := range artists {
			if ctx.Err() != nil {
				zap.L().Info("bulk enrich stopped", zap.Int("remaining", len(artists)-i))
				break
			}

			artist := &artists[i]
			log := zap.L().With(zap.String("artist_id", artist.ID), zap.String("artist", artist.Name))

			runCtx, cancel := context.WithTimeout(ctx, artistTimeout())
			result, err := env.Pipeline.Run(runCtx, artist)
			cancel()
			if err != nil {
				failed++
				log.Error("enrichment failed", zap.Error(err))
			} else {
				artist.ApplyResult(result, time.Now().UTC())
				if err := env.Store.SaveEnrichment(ctx, artist, result); err != nil {
					failed++
					log.Error("save enrichment failed", zap.Error(err))
				} else {
					enriched++
					if result.EmailFound != "" {
						emailsFound++
					}
					env.Webhook.RunCompleted(result)
					log.Info("enrichment complete",
						zap.String("email", result.EmailFound),
						zap.Float64("cost_usd", result.CostUSD),
					)
				}
			}

			if i < len(artists)-1 {
				if err := batch.Pace(ctx, cfg.Batch.ArtistDelayMin, cfg.Batch.ArtistDelayMax); err != nil {
					zap.L().Info("bulk enrich stopped", zap.Int("remaining", len(artists)-i-1))
					break
				}
			}
		}

		zap.L().Info("bulk enrich complete",
			zap.Int("enriched", enriched),
			zap.Int("failed", failed),
			zap.Int("emails_found", emailsFound),
		)
		return nil
	},
}

func init() {
	bulkCmd.Flags().IntVar(&bulkLimit, "limit", 100, "max number of artists to process")
	bulkCmd.Flags().BoolVar(&bulkOnlyUnenriched, "only-unenriched", false, "select only artists never enriched before")
	rootCmd.AddCommand(bulkCmd)
}
