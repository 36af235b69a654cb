package worker

import (
	"context"
	"time"

	"reelforge/internal/assetcheck"
	"reelforge/internal/pkg/logger"
	"reelforge/internal/repositories"
	"reelforge/internal/worker/processor"
	"reelforge/internal/worker/publisher"
	"reelforge/internal/worker/queue"
	"reelforge/internal/worker/renderer"
)

// Run is the consumer loop: recover stranded messages, then pop, process,
// settle, forever. One job is in flight at a time; back-pressure comes from
// the queue itself.
func Run(ctx context.Context, d Deps) error {
	log := d.Log
	if log == nil {
		log = logger.NewDefault()
	}
	log = log.WithComponent("worker")

	q := queue.NewRedisQueue(d.RDB, d.QueueName)
	repo := repositories.NewVideoRepository(d.Pool)

	p := processor.New(processor.Deps{
		Store: repo,
		Gateway: renderer.NewHTTPClient(renderer.Config{
			BaseURL: d.RendererBaseURL,
			APIKey:  d.RendererAPIKey,
			Log:     log,
		}),
		Publisher:       publisher.New(publisher.Config{SP: d.SP, Log: log}),
		Checker:         assetcheck.New(assetcheck.Config{Log: log}),
		PollInterval:    d.PollInterval,
		MaxPollAttempts: d.MaxPollAttempts,
		Log:             log,
	})

	// A previous crash leaves its in-flight message in the processing list.
	if moved, err := q.Recover(ctx); err != nil {
		log.Warn("queue recovery failed", "error", err.Error())
	} else if moved > 0 {
		log.Info("requeued stranded messages", "count", moved)
	}

	for {
		select {
		case <-ctx.Done():
			log.Info("worker context canceled, stopping")
			return ctx.Err()
		default:
		}

		dlv, err := q.Pop(ctx, 30*time.Second)
		if err != nil {
			if ctx.Err() != nil {
				log.Info("worker stopping due to context cancellation")
				return ctx.Err()
			}
			log.Warn("queue pop error, retrying",
				"error", err.Error(),
			)
			time.Sleep(1 * time.Second)
			continue
		}
		if dlv == nil {
			continue
		}

		videoID := dlv.Msg.VideoID
		jobCtx := logger.ContextWithVideoID(ctx, videoID)
		jobLog := log.WithVideoID(videoID)

		jobLog.Info("processing job")
		startTime := time.Now()

		if err := p.Process(jobCtx, dlv.Msg); err != nil {
			jobLog.Error("job could not be advanced, requeueing",
				"error", err.Error(),
				"duration_ms", time.Since(startTime).Milliseconds(),
			)
			if nackErr := q.Nack(ctx, dlv); nackErr != nil {
				jobLog.Error("nack failed", "error", nackErr.Error())
			}
			// Brief pause so a down dependency is not hammered.
			time.Sleep(1 * time.Second)
			continue
		}

		if ackErr := q.Ack(ctx, dlv); ackErr != nil {
			jobLog.Error("ack failed", "error", ackErr.Error())
		}
		jobLog.Info("job settled",
			"duration_ms", time.Since(startTime).Milliseconds(),
		)
	}
}
