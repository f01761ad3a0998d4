package main

import (
	"context"
	"encoding/json"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/cratehq/enrich-cli/internal/batch"
	"github.com/cratehq/enrich-cli/internal/model"
	"github.com/cratehq/enrich-cli/internal/store"
)

var (
	batchName       string
	batchFile       string
	batchListStatus string
	batchListLimit  int
)

var batchCmd = &cobra.Command{
	Use:   "batch",
	Short: "Manage batch enrichment jobs",
}

// openControl builds the store-only orchestrator the control verbs use.
// Callers must close the returned store.
func openControl(ctx context.Context) (store.Store, *batch.Orchestrator, error) {
	if err := cfg.Validate("batch"); err != nil {
		return nil, nil, err
	}
	st, err := initStore(ctx)
	if err != nil {
		return nil, nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, nil, eris.Wrap(err, "migrate store")
	}
	return st, batch.New(st, nil, cfg, nil), nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

var batchCreateCmd = &cobra.Command{
	Use:   "create [artist-id ...]",
	Short: "Create a batch job over the given artist IDs",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		artistIDs := args
		if batchFile != "" {
			data, err := os.ReadFile(batchFile)
			if err != nil {
				return eris.Wrap(err, "read artist ID file")
			}
			artistIDs = append(artistIDs, strings.Fields(string(data))...)
		}

		st, orch, err := openControl(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		b, err := orch.Create(ctx, batchName, artistIDs)
		if err != nil {
			return eris.Wrap(err, "create batch")
		}

		zap.L().Info("batch created",
			zap.String("batch_id", b.ID),
			zap.String("name", b.Name),
			zap.Int("artists", b.TotalArtists),
		)
		return printJSON(b)
	},
}

var batchStartCmd = &cobra.Command{
	Use:   "start <batch-id>",
	Short: "Start a queued batch",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return controlVerb(cmd.Context(), args[0], "started", func(ctx context.Context, orch *batch.Orchestrator, id string) error {
			return orch.Start(ctx, id)
		})
	},
}

var batchPauseCmd = &cobra.Command{
	Use:   "pause <batch-id>",
	Short: "Pause a processing batch",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return controlVerb(cmd.Context(), args[0], "paused", func(ctx context.Context, orch *batch.Orchestrator, id string) error {
			return orch.Pause(ctx, id)
		})
	},
}

var batchResumeCmd = &cobra.Command{
	Use:   "resume <batch-id>",
	Short: "Resume a paused batch",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return controlVerb(cmd.Context(), args[0], "resumed", func(ctx context.Context, orch *batch.Orchestrator, id string) error {
			return orch.Resume(ctx, id)
		})
	},
}

var batchCancelCmd = &cobra.Command{
	Use:   "cancel <batch-id>",
	Short: "Cancel a batch",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return controlVerb(cmd.Context(), args[0], "cancelled", func(ctx context.Context, orch *batch.Orchestrator, id string) error {
			return orch.Cancel(ctx, id)
		})
	},
}

// controlVerb runs one state transition and logs the outcome.
func controlVerb(ctx context.Context, batchID, verb string, fn func(context.Context, *batch.Orchestrator, string) error) error {
	st, orch, err := openControl(ctx)
	if err != nil {
		return err
	}
	defer st.Close()

	if err := fn(ctx, orch, batchID); err != nil {
		return err
	}
	zap.L().Info("batch "+verb, zap.String("batch_id", batchID))
	return nil
}

var batchRetryFailedCmd = &cobra.Command{
	Use:   "retry-failed <batch-id>",
	Short: "Reset failed members to pending and reopen the batch",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, orch, err := openControl(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		reopened, err := orch.RetryFailed(ctx, args[0])
		if err != nil {
			return err
		}
		zap.L().Info("batch reopened",
			zap.String("batch_id", args[0]),
			zap.Int("members_reset", reopened),
		)
		return nil
	},
}

var batchStatusCmd = &cobra.Command{
	Use:   "status <batch-id>",
	Short: "Show a batch and its members",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, _, err := openControl(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		b, err := st.GetBatch(ctx, args[0])
		if err != nil {
			return err
		}
		members, err := st.ListMembers(ctx, args[0])
		if err != nil {
			return eris.Wrap(err, "list members")
		}

		return printJSON(struct {
			Batch   *model.BatchJob     `json:"batch"`
			Members []model.BatchMember `json:"members"`
		}{b, members})
	},
}

var batchListCmd = &cobra.Command{
	Use:   "list",
	Short: "List batch jobs",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, _, err := openControl(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		batches, err := st.ListBatches(ctx, store.BatchFilter{
			Status: model.BatchStatus(batchListStatus),
			Limit:  batchListLimit,
		})
		if err != nil {
			return eris.Wrap(err, "list batches")
		}
		return printJSON(batches)
	},
}

var batchWorkCmd = &cobra.Command{
	Use:   "work",
	Short: "Run the batch worker loop",
	Long:  "Claims processing batches on a fixed tick and advances their members through the enrichment pipeline until interrupted.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initPipeline(ctx, "batch")
		if err != nil {
			return err
		}
		defer env.Close()

		orch := batch.New(env.Store, env.Pipeline.Run, cfg, env.Webhook)

		zap.L().Info("batch worker starting",
			zap.Duration("tick_interval", cfg.Batch.TickInterval),
			zap.Int("members_per_tick", cfg.Batch.MembersPerTick),
			zap.Int("max_concurrent_jobs", cfg.Batch.MaxConcurrentJobs),
		)
		return orch.Work(ctx)
	},
}

func init() {
	batchCreateCmd.Flags().StringVar(&batchName, "name", "", "batch name (required)")
	batchCreateCmd.Flags().StringVar(&batchFile, "file", "", "file with whitespace-separated artist IDs")
	_ = batchCreateCmd.MarkFlagRequired("name")

	batchListCmd.Flags().StringVar(&batchListStatus, "status", "", "filter by status (queued|processing|paused|cancelled|completed)")
	batchListCmd.Flags().IntVar(&batchListLimit, "limit", 20, "max batches to list")

	batchCmd.AddCommand(batchCreateCmd)
	batchCmd.AddCommand(batchStartCmd)
	batchCmd.AddCommand(batchPauseCmd)
	batchCmd.AddCommand(batchResumeCmd)
	batchCmd.AddCommand(batchCancelCmd)
	batchCmd.AddCommand(batchRetryFailedCmd)
	batchCmd.AddCommand(batchStatusCmd)
	batchCmd.AddCommand(batchListCmd)
	batchCmd.AddCommand(batchWorkCmd)
	rootCmd.AddCommand(batchCmd)
}
