// Package processor orchestrates one video job end to end: load the record,
// verify assets, submit the render, poll until it settles, publish the
// artifact, and persist every transition.
package processor

import (
	"context"
	"fmt"
	"time"

	"reelforge/internal/assetcheck"
	v1 "reelforge/internal/contracts/renderer/v1"
	"reelforge/internal/pkg/errors"
	"reelforge/internal/pkg/logger"
	"reelforge/internal/repositories"
	"reelforge/internal/video"
	"reelforge/internal/worker/publisher"
	"reelforge/internal/worker/queue"
	"reelforge/internal/worker/renderer"
)

// JobStore is the slice of the repository the processor needs.
type JobStore interface {
	Get(ctx context.Context, id string) (*video.Video, error)
	UpdateStatus(ctx context.Context, id string, patch video.StatusUpdate) error
}

// ArtifactPublisher moves a finished render into durable storage.
type ArtifactPublisher interface {
	Publish(ctx context.Context, videoID, renderURL string) (*publisher.Result, error)
}

// AssetChecker re-verifies asset reachability before the render is paid for.
type AssetChecker interface {
	Validate(ctx context.Context, refs []assetcheck.Ref) error
}

type Deps struct {
	Store     JobStore
	Gateway   renderer.Client
	Publisher ArtifactPublisher
	// Checker is optional; nil skips the pre-render asset pass.
	Checker AssetChecker

	// PollInterval and MaxPollAttempts bound the render wait. Defaults:
	// 5s and 60, i.e. five minutes per render.
	PollInterval    time.Duration
	MaxPollAttempts int

	Log *logger.Logger
}

type Processor struct {
	store     JobStore
	gateway   renderer.Client
	publisher ArtifactPublisher
	checker   AssetChecker

	pollInterval time.Duration
	maxPoll      int

	log *logger.Logger
}

const (
	defaultPollInterval = 5 * time.Second
	defaultMaxPoll      = 60
)

func New(d Deps) *Processor {
	log := d.Log
	if log == nil {
		log = logger.NewDefault()
	}
	if d.PollInterval <= 0 {
		d.PollInterval = defaultPollInterval
	}
	if d.MaxPollAttempts <= 0 {
		d.MaxPollAttempts = defaultMaxPoll
	}
	return &Processor{
		store:        d.Store,
		gateway:      d.Gateway,
		publisher:    d.Publisher,
		checker:      d.Checker,
		pollInterval: d.PollInterval,
		maxPoll:      d.MaxPollAttempts,
		log:          log.WithComponent("processor"),
	}
}

// Process handles one delivery. A nil return means the message is settled
// and must be acked, including jobs that ended failed: the failure is
// persisted on the record, not on the queue. A non-nil return means the job
// state could not be advanced and the message should be redelivered; that
// covers store and decode trouble, and in particular a terminal status the
// store would not accept, since acking there would strand the record in
// processing.
func (p *Processor) Process(ctx context.Context, msg queue.Message) (err error) {
	videoID := msg.VideoID
	log := p.log.FromContext(ctx).WithVideoID(videoID)

	defer func() {
		if r := recover(); r != nil {
			log.Error("processor panic", "panic", fmt.Sprint(r))
			err = p.failJob(ctx, videoID, fmt.Sprintf("internal error: %v", r))
		}
	}()

	rec, err := p.store.Get(ctx, videoID)
	if err != nil {
		if errors.Is(err, repositories.ErrVideoNotFound) {
			// Orphan message: the record was deleted while queued.
			log.Warn("dropping message for deleted video")
			return nil
		}
		return fmt.Errorf("load video: %w", err)
	}

	// Redelivery of an already finished job is a no-op. This is what makes
	// at-least-once delivery safe: the second pass sees the terminal status
	// and never re-renders.
	if rec.Status.Terminal() {
		log.Info("skipping redelivery of settled job", "status", string(rec.Status))
		return nil
	}

	in, err := resolveInput(msg, rec)
	if err != nil {
		return p.failJob(ctx, videoID, "invalid job payload: "+err.Error())
	}
	in.ApplyDefaults()

	if err := p.store.UpdateStatus(ctx, videoID, video.StatusUpdate{
		Status:   video.Ptr(video.StatusProcessing),
		Progress: video.Ptr(0),
		Log:      video.Ptr("processing video"),
	}); err != nil {
		if errors.Is(err, repositories.ErrVideoNotFound) {
			return nil
		}
		return fmt.Errorf("mark processing: %w", err)
	}

	if p.checker != nil {
		if err := p.checker.Validate(ctx, assetcheck.CollectRefs(in)); err != nil {
			log.Warn("asset became unreachable after submission", "error", err.Error())
			return p.failJob(ctx, videoID, err.Error())
		}
	}

	spec := renderer.BuildTimeline(in)
	renderID, err := p.gateway.Submit(ctx, spec)
	if err != nil {
		log.Error("render submission failed", "error", err.Error())
		return p.failJob(ctx, videoID, err.Error())
	}
	log.Info("render submitted", "render_id", renderID)

	p.update(ctx, videoID, video.StatusUpdate{
		RenderID: video.Ptr(renderID),
		Log:      video.Ptr("render submitted"),
	})

	state, err := p.poll(ctx, videoID, renderID)
	if err != nil {
		return p.failJob(ctx, videoID, err.Error())
	}

	if state.Status == v1.StateFailed {
		reason := state.Error
		if reason == "" {
			reason = "render failed"
		}
		log.Error("render failed", "render_id", renderID, "error", reason)
		return p.failJob(ctx, videoID, reason)
	}

	p.update(ctx, videoID, video.StatusUpdate{
		OriginURL: video.Ptr(state.URL),
		Log:       video.Ptr("publishing video"),
	})

	res, err := p.publisher.Publish(ctx, videoID, state.URL)
	if err != nil {
		log.Error("publish failed", "error", err.Error())
		return p.failJob(ctx, videoID, err.Error())
	}

	if err := p.settle(ctx, videoID, video.StatusUpdate{
		Status:       video.Ptr(video.StatusDone),
		Progress:     video.Ptr(100),
		Log:          video.Ptr("completed"),
		OutputURL:    video.Ptr(res.PublicURL),
		ThumbnailURL: video.Ptr(res.ThumbnailURL),
		PublicID:     video.Ptr(res.PublicID),
		Duration:     video.Ptr(in.TotalDuration()),
	}); err != nil {
		return fmt.Errorf("finalize video: %w", err)
	}

	log.Info("video completed",
		"render_id", renderID,
		"duration_s", in.TotalDuration(),
		"output_url", res.PublicURL,
	)
	return nil
}

// poll waits for the render to settle, writing monotonic progress along the
// way. Transient status errors consume attempts instead of failing the job.
func (p *Processor) poll(ctx context.Context, videoID, renderID string) (v1.RenderState, error) {
	log := p.log.FromContext(ctx).WithVideoID(videoID)
	lastProgress := 0

	for attempt := 1; attempt <= p.maxPoll; attempt++ {
		select {
		case <-ctx.Done():
			return v1.RenderState{}, errors.WrapWithCode(ctx.Err(), errors.CodeRenderFailed, "processor.poll", "canceled while waiting for render")
		case <-time.After(p.pollInterval):
		}

		state, err := p.gateway.Status(ctx, renderID)
		if err != nil {
			log.Warn("render status check failed",
				"render_id", renderID,
				"attempt", attempt,
				"error", err.Error(),
			)
			continue
		}

		if state.Status == v1.StateDone || state.Status == v1.StateFailed {
			return state, nil
		}

		// Progress only moves forward even if the gateway reports a dip.
		if pr := int(state.Progress); pr > lastProgress && pr < 100 {
			lastProgress = pr
			p.update(ctx, videoID, video.StatusUpdate{
				Progress: video.Ptr(pr),
				Log:      video.Ptr("rendering: " + state.Status),
			})
		}
	}

	return v1.RenderState{}, errors.Newf(errors.CodeTimeout,
		"render did not settle after %d checks", p.maxPoll).
		WithField("render_id", renderID)
}

// update persists an intermediate patch, best effort: progress and log
// writes are worth a warning, never a redelivery.
func (p *Processor) update(ctx context.Context, videoID string, patch video.StatusUpdate) {
	err := p.store.UpdateStatus(ctx, videoID, patch)
	if err != nil && !errors.Is(err, repositories.ErrVideoNotFound) {
		p.log.Warn("status update failed",
			"video_id", videoID,
			"error", err.Error(),
		)
	}
}

// settle persists a terminal patch. Unlike update, a store failure here is
// surfaced so the message is nacked instead of acked with the record stuck
// in processing. A record deleted mid-flight still settles as a no-op.
func (p *Processor) settle(ctx context.Context, videoID string, patch video.StatusUpdate) error {
	err := p.store.UpdateStatus(ctx, videoID, patch)
	if err != nil && !errors.Is(err, repositories.ErrVideoNotFound) {
		return err
	}
	return nil
}

func (p *Processor) failJob(ctx context.Context, videoID, msg string) error {
	if len(msg) > 2000 {
		msg = msg[:2000]
	}
	if err := p.settle(ctx, videoID, video.StatusUpdate{
		Status: video.Ptr(video.StatusFailed),
		Log:    video.Ptr(msg),
	}); err != nil {
		return fmt.Errorf("persist failed status: %w", err)
	}
	return nil
}
