// Package batch schedules enrichment jobs over fixed artist lists. The
// Orchestrator owns the batch state machine and the worker loop that
// advances members at a paced rate, one artist at a time.
package batch

import (
	"context"
	"errors"
	"math/rand/v2"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/cratehq/enrich-cli/internal/config"
	"github.com/cratehq/enrich-cli/internal/model"
	"github.com/cratehq/enrich-cli/internal/resilience"
	"github.com/cratehq/enrich-cli/internal/store"
)

// ErrConflict marks a control action the batch state machine rejects,
// such as resuming a batch that is not paused. The HTTP layer maps it to
// 409 Conflict.
var ErrConflict = eris.New("batch: conflicting state")

// Runner executes the per-artist enrichment flow and returns the result
// to persist. The pipeline's Run method satisfies it.
type Runner func(ctx context.Context, artist *model.Artist) (*model.EnrichmentResult, error)

// Sink receives telemetry events from the worker: one result per
// completed run, one snapshot per advanced batch per tick.
// Implementations must not block.
type Sink interface {
	RunCompleted(result *model.EnrichmentResult)
	BatchSnapshot(snap model.BatchSnapshot)
}

// Orchestrator drives batch jobs. Control actions validate transitions
// against the current batch state; Work claims processing batches and
// advances their members with jittered inter-artist pacing.
type Orchestrator struct {
	store         store.Store
	run           Runner
	cfg           config.BatchConfig
	artistTimeout time.Duration
	sink          Sink
}

// New builds an orchestrator. sink may be nil to disable telemetry.
func New(st store.Store, run Runner, cfg *config.Config, sink Sink) *Orchestrator {
	timeout := cfg.Pipeline.ArtistTimeout
	if timeout <= 0 {
		timeout = 3 * time.Minute
	}
	return &Orchestrator{
		store:         st,
		run:           run,
		cfg:           cfg.Batch,
		artistTimeout: timeout,
		sink:          sink,
	}
}

// Create persists a new queued batch over the given artist IDs.
func (o *Orchestrator) Create(ctx context.Context, name string, artistIDs []string) (*model.BatchJob, error) {
	if len(artistIDs) == 0 {
		return nil, eris.New("batch: no artists given")
	}
	return o.store.CreateBatch(ctx, name, artistIDs)
}

// Start moves a queued batch into processing.
func (o *Orchestrator) Start(ctx context.Context, batchID string) error {
	return o.transition(ctx, batchID, model.BatchQueued, model.BatchProcessing)
}

// Pause stops a processing batch at the next member boundary.
func (o *Orchestrator) Pause(ctx context.Context, batchID string) error {
	return o.transition(ctx, batchID, model.BatchProcessing, model.BatchPaused)
}

// Resume continues a paused batch.
func (o *Orchestrator) Resume(ctx context.Context, batchID string) error {
	return o.transition(ctx, batchID, model.BatchPaused, model.BatchProcessing)
}

// Cancel terminates a batch from any non-terminal state. Members already
// processed keep their outcomes; pending members are never claimed again.
func (o *Orchestrator) Cancel(ctx context.Context, batchID string) error {
	b, err := o.store.GetBatch(ctx, batchID)
	if err != nil {
		return err
	}
	if !b.Status.CanTransition(model.BatchCancelled) {
		return eris.Wrapf(ErrConflict, "batch %s is %s, cannot cancel", b.ID, b.Status)
	}
	return o.store.UpdateBatchStatus(ctx, batchID, model.BatchCancelled)
}

// RetryFailed returns the failed members of a paused or finished batch to
// the pending pool and reopens the batch. It reports how many members
// were reset; zero means there was nothing to retry and the batch is
// left untouched.
func (o *Orchestrator) RetryFailed(ctx context.Context, batchID string) (int, error) {
	b, err := o.store.GetBatch(ctx, batchID)
	if err != nil {
		return 0, err
	}
	if b.Status == model.BatchQueued || b.Status == model.BatchProcessing {
		return 0, eris.Wrapf(ErrConflict, "batch %s is %s, retry applies to paused or finished batches", b.ID, b.Status)
	}
	return o.store.ResetFailedMembers(ctx, batchID)
}

// transition moves a batch from want to next, rejecting any other
// current state.
func (o *Orchestrator) transition(ctx context.Context, batchID string, want, next model.BatchStatus) error {
	b, err := o.store.GetBatch(ctx, batchID)
	if err != nil {
		return err
	}
	if b.Status != want {
		return eris.Wrapf(ErrConflict, "batch %s is %s, cannot move to %s", b.ID, b.Status, next)
	}
	return o.store.UpdateBatchStatus(ctx, batchID, next)
}

// Work runs the claim loop until ctx is cancelled. Ticks are serial per
// worker: a long tick delays the next one rather than overlapping claims
// on the same batch.
func (o *Orchestrator) Work(ctx context.Context) error {
	log := zap.L().With(zap.String("component", "batch_worker"))
	log.Info("worker started",
		zap.Duration("tick_interval", o.tickInterval()),
		zap.Int("members_per_tick", o.membersPerTick()),
		zap.Int("max_concurrent_jobs", o.maxJobs()),
	)

	ticker := time.NewTicker(o.tickInterval())
	defer ticker.Stop()

	for {
		if err := o.tick(ctx); err != nil && ctx.Err() == nil {
			log.Error("tick failed", zap.Error(err))
		}
		select {
		case <-ctx.Done():
			log.Info("worker stopped")
			return nil
		case <-ticker.C:
		}
	}
}

// tick advances every processing batch. Batches run concurrently only
// when MaxConcurrentJobs allows it; the default of 1 keeps one artist in
// flight globally so the pacing contract holds across batches.
func (o *Orchestrator) tick(ctx context.Context) error {
	batches, err := o.store.ListBatches(ctx, store.BatchFilter{Status: model.BatchProcessing})
	if err != nil {
		return eris.Wrap(err, "batch: list processing batches")
	}
	if len(batches) == 0 {
		return nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.maxJobs())
	for _, b := range batches {
		g.Go(func() error {
			o.advance(gctx, b.ID)
			return nil // a stalled batch must not block the others
		})
	}
	return g.Wait()
}

// advance pushes one batch forward by up to MembersPerTick members. The
// batch is re-read before every claim so pause and cancel take effect at
// member boundaries, and each member outcome is persisted before the
// next claim.
func (o *Orchestrator) advance(ctx context.Context, batchID string) {
	log := zap.L().With(zap.String("batch_id", batchID))
	defer o.heartbeat(ctx, batchID)

	for n := 0; n < o.membersPerTick(); n++ {
		if ctx.Err() != nil {
			return
		}

		b, err := o.store.GetBatch(ctx, batchID)
		if err != nil {
			log.Error("re-read batch", zap.Error(err))
			return
		}
		if b.Status != model.BatchProcessing {
			log.Info("batch left processing state", zap.String("status", string(b.Status)))
			return
		}

		member, err := o.store.NextPendingMember(ctx, batchID)
		if err != nil {
			log.Error("claim member", zap.Error(err))
			return
		}
		if member == nil {
			// CompleteMember flips the batch to completed when the last
			// member lands; an empty claim means there is nothing left.
			return
		}

		if o.processMember(ctx, log, member) {
			if err := o.pace(ctx); err != nil {
				return
			}
		}
	}
}

// memberOutcome is what processMember persists for one claimed member.
// ran reports whether the pipeline actually executed, which is what the
// inter-artist pacing applies to; skipped members cost nothing.
type memberOutcome struct {
	status     model.MemberStatus
	errText    string
	class      string
	foundEmail bool
	ran        bool
}

func failedOutcome(err error, ran bool) memberOutcome {
	return memberOutcome{
		status:  model.MemberFailed,
		errText: truncateErr(err),
		class:   resilience.ClassifyError(err),
		ran:     ran,
	}
}

// processMember runs one artist through the pipeline and persists the
// outcome. A failure is recorded on the member and never aborts the
// batch. Returns whether the pipeline ran.
func (o *Orchestrator) processMember(ctx context.Context, log *zap.Logger, member *model.BatchMember) bool {
	log = log.With(
		zap.String("artist_id", member.ArtistID),
		zap.Int("position", member.Position),
	)

	start := time.Now()
	outcome := o.runMember(ctx, log, member)

	member.Status = outcome.status
	member.Error = outcome.errText
	member.FailureClass = outcome.class

	if err := o.store.CompleteMember(ctx, member, outcome.foundEmail); err != nil {
		log.Error("persist member outcome", zap.Error(err))
		return outcome.ran
	}

	switch outcome.status {
	case model.MemberDone:
		log.Info("member done",
			zap.Bool("email_found", outcome.foundEmail),
			zap.Duration("duration", time.Since(start)),
		)
	case model.MemberFailed:
		log.Warn("member failed",
			zap.String("class", outcome.class),
			zap.String("error", outcome.errText),
			zap.Duration("duration", time.Since(start)),
		)
	}
	return outcome.ran
}

// runMember loads the artist, runs the pipeline under the per-artist
// timeout and persists the result. Artists that vanished since batch
// creation or already carry a verified email are skipped, not re-run.
func (o *Orchestrator) runMember(ctx context.Context, log *zap.Logger, member *model.BatchMember) memberOutcome {
	artist, err := o.store.GetArtist(ctx, member.ArtistID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			log.Warn("artist record missing, skipping member")
			return memberOutcome{status: model.MemberSkipped}
		}
		return failedOutcome(eris.Wrap(err, "batch: load artist"), false)
	}
	if artist.IsContactable && artist.Email != "" {
		log.Info("artist already contactable, skipping member")
		return memberOutcome{status: model.MemberSkipped}
	}

	runCtx, cancel := context.WithTimeout(ctx, o.artistTimeout)
	defer cancel()

	result, err := o.safeRun(runCtx, artist)
	if err != nil {
		return failedOutcome(err, true)
	}

	artist.ApplyResult(result, time.Now().UTC())
	if err := o.persist(ctx, artist, result); err != nil {
		return failedOutcome(err, true)
	}

	if o.sink != nil {
		o.sink.RunCompleted(result)
	}
	return memberOutcome{
		status:     model.MemberDone,
		foundEmail: result.EmailFound != "",
		ran:        true,
	}
}

// safeRun converts a pipeline panic into a failed member instead of
// taking down the worker.
func (o *Orchestrator) safeRun(ctx context.Context, artist *model.Artist) (result *model.EnrichmentResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = eris.Errorf("batch: pipeline panic: %v", r)
		}
	}()
	return o.run(ctx, artist)
}

// persist writes the run outcome, retrying the write once. Enrichment is
// never re-run for a persistence failure.
func (o *Orchestrator) persist(ctx context.Context, artist *model.Artist, result *model.EnrichmentResult) error {
	err := o.store.SaveEnrichment(ctx, artist, result)
	if err == nil {
		return nil
	}
	zap.L().Error("save enrichment failed, retrying write",
		zap.String("artist_id", artist.ID),
		zap.Error(err),
	)
	if err := o.store.SaveEnrichment(ctx, artist, result); err != nil {
		return eris.Wrap(err, "batch: save enrichment")
	}
	return nil
}

// heartbeat reports fresh batch counters to the telemetry sink.
func (o *Orchestrator) heartbeat(ctx context.Context, batchID string) {
	if o.sink == nil {
		return
	}
	b, err := o.store.GetBatch(ctx, batchID)
	if err != nil {
		return
	}
	o.sink.BatchSnapshot(model.BatchSnapshot{
		Batch:     *b,
		Pending:   b.TotalArtists - b.Processed(),
		Timestamp: time.Now().UTC(),
	})
}

// pace sleeps the jittered inter-artist delay, returning early when ctx
// is cancelled.
func (o *Orchestrator) pace(ctx context.Context) error {
	return Pace(ctx, o.cfg.ArtistDelayMin, o.cfg.ArtistDelayMax)
}

// Pace sleeps a duration drawn uniformly from [min, max], returning early
// when ctx is cancelled. The bulk command shares it so manual runs keep
// the same inter-artist rhythm as batch workers.
func Pace(ctx context.Context, min, max time.Duration) error {
	d := min
	if span := max - min; span > 0 {
		d += rand.N(span)
	}
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// truncateErr keeps persisted error text short; full detail is in logs.
func truncateErr(err error) string {
	msg := err.Error()
	if len(msg) > 200 {
		msg = msg[:200]
	}
	return msg
}

func (o *Orchestrator) membersPerTick() int {
	if o.cfg.MembersPerTick > 0 {
		return o.cfg.MembersPerTick
	}
	return 1
}

func (o *Orchestrator) maxJobs() int {
	if o.cfg.MaxConcurrentJobs > 0 {
		return o.cfg.MaxConcurrentJobs
	}
	return 1
}

func (o *Orchestrator) tickInterval() time.Duration {
	if o.cfg.TickInterval > 0 {
		return o.cfg.TickInterval
	}
	return 5 * time.Second
}
