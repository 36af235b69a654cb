package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"reelforge/internal/assetcheck"
	v1 "reelforge/internal/contracts/renderer/v1"
	"reelforge/internal/httpkit"
	"reelforge/internal/pkg/errors"
	"reelforge/internal/repositories"
	"reelforge/internal/video"
	"reelforge/internal/worker/util"
)

// Generate accepts a composition request, verifies it end to end, persists
// the pending record and enqueues it. Nothing unverifiable is ever queued:
// a bad payload or a dead asset URL fails here, synchronously.
func (h *Handler) Generate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := h.log.FromContext(ctx)

	var in video.Input
	if err := httpkit.DecodeJSON(r, &in); err != nil {
		httpkit.WriteErr(w, 400, "VALIDATION_ERROR", "invalid json body", nil)
		return
	}

	if err := video.ValidateInput(&in); err != nil {
		httpkit.WriteErr(w, 400, string(errors.GetCode(err)), errMessage(err), errors.GetFields(err))
		return
	}
	in.ApplyDefaults()

	if err := h.validator.Validate(ctx, assetcheck.CollectRefs(&in)); err != nil {
		log.Warn("submission rejected, asset unreachable", "error", err.Error())
		httpkit.WriteErr(w, errors.GetHTTPStatus(err), string(errors.GetCode(err)), errMessage(err), errors.GetFields(err))
		return
	}

	videoID := util.NewID("vid")
	if in.JobID == "" {
		in.JobID = util.NewID("job")
	}

	rec := &video.Video{
		ID:              videoID,
		JobID:           in.JobID,
		ScriptID:        in.ScriptID,
		UserID:          in.UserID,
		Segments:        in.Segments,
		BackgroundMusic: in.BackgroundMusic,
		Subtitle:        in.Subtitle,
		Settings:        in.Settings,
		Status:          video.StatusPending,
		Progress:        0,
		Log:             "queued",
		CreatedAt:       time.Now().UTC(),
	}

	if err := h.repo.Create(ctx, rec); err != nil {
		log.LogError(ctx, "video insert failed", err)
		switch {
		case httpkit.IsUniqueViolation(err):
			httpkit.WriteErr(w, 409, "CONFLICT", "video id already exists", map[string]any{"video_id": videoID})
		case httpkit.IsUndefinedTable(err):
			httpkit.WriteErr(w, 500, "INTERNAL_ERROR", "database schema missing, run migrations", nil)
		default:
			httpkit.WriteErr(w, 500, "INTERNAL_ERROR", "failed to persist video", nil)
		}
		return
	}

	if err := h.queue.Publish(ctx, videoID, &in); err != nil {
		log.LogError(ctx, "queue publish failed", err, "video_id", videoID)
		// The record exists but will never be consumed; mark it so the
		// client sees a settled state instead of pending forever.
		_ = h.repo.UpdateStatus(ctx, videoID, video.StatusUpdate{
			Status: video.Ptr(video.StatusFailed),
			Log:    video.Ptr("queue publish failed"),
		})
		httpkit.WriteErr(w, 503, "UNAVAILABLE", "queue unavailable, try again", nil)
		return
	}

	log.Info("video queued",
		"video_id", videoID,
		"script_id", in.ScriptID,
		"segments", len(in.Segments),
	)

	httpkit.WriteJSON(w, 202, map[string]any{
		"message": "video queued for processing",
		"videoId": videoID,
	})
}

// Status reports the job's lifecycle state. For in-flight renders it
// reconciles against the gateway so a stalled worker does not freeze the
// progress a client sees.
func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	videoID := chi.URLParam(r, "videoId")

	rec, err := h.repo.Get(ctx, videoID)
	if err != nil {
		h.writeGetErr(w, videoID, err)
		return
	}

	if h.renderer != nil && rec.Status == video.StatusProcessing && rec.RenderID != "" {
		h.reconcile(ctx, rec)
	}

	httpkit.WriteJSON(w, 200, map[string]any{
		"videoId":  rec.ID,
		"status":   string(rec.Status),
		"progress": rec.Progress,
		"log":      rec.Log,
	})
}

// reconcile refreshes a processing record from the gateway. Best effort:
// gateway trouble leaves the stored state untouched.
func (h *Handler) reconcile(ctx context.Context, rec *video.Video) {
	state, err := h.renderer.Status(ctx, rec.RenderID)
	if err != nil {
		return
	}

	switch state.Status {
	case v1.StateFailed:
		reason := state.Error
		if reason == "" {
			reason = "render failed"
		}
		patch := video.StatusUpdate{
			Status: video.Ptr(video.StatusFailed),
			Log:    video.Ptr(reason),
		}
		if h.repo.UpdateStatus(ctx, rec.ID, patch) == nil {
			rec.Status = video.StatusFailed
			rec.Log = reason
		}
	case v1.StateDone:
		// The worker still owns publication; only progress moves.
		if rec.Progress < 99 {
			if h.repo.UpdateStatus(ctx, rec.ID, video.StatusUpdate{Progress: video.Ptr(99)}) == nil {
				rec.Progress = 99
			}
		}
	default:
		if pr := int(state.Progress); pr > rec.Progress && pr < 100 {
			if h.repo.UpdateStatus(ctx, rec.ID, video.StatusUpdate{Progress: video.Ptr(pr)}) == nil {
				rec.Progress = pr
			}
		}
	}
}

// Get returns the full record.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	videoID := chi.URLParam(r, "videoId")

	rec, err := h.repo.Get(ctx, videoID)
	if err != nil {
		h.writeGetErr(w, videoID, err)
		return
	}

	httpkit.WriteJSON(w, 200, videoResponse(rec))
}

// Preview returns playable URLs for a finished video.
func (h *Handler) Preview(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	videoID := chi.URLParam(r, "videoId")

	rec, err := h.repo.Get(ctx, videoID)
	if err != nil {
		h.writeGetErr(w, videoID, err)
		return
	}

	if rec.Status != video.StatusDone {
		httpkit.WriteErr(w, 409, "CONFLICT", "video is not ready", map[string]any{
			"video_id": videoID,
			"status":   string(rec.Status),
		})
		return
	}

	streamURL := rec.OutputURL
	if rec.PublicID != "" {
		if signed, err := h.sp.GetSignedURL(ctx, rec.PublicID, 1*time.Hour); err == nil && signed.URL != "" {
			streamURL = signed.URL
		}
	}

	httpkit.WriteJSON(w, 200, map[string]any{
		"videoId":   rec.ID,
		"url":       rec.OutputURL,
		"streamUrl": streamURL,
	})
}

// Delete removes the record and, best effort, the published artifact.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := h.log.FromContext(ctx)
	videoID := chi.URLParam(r, "videoId")

	rec, err := h.repo.Get(ctx, videoID)
	if err != nil {
		h.writeGetErr(w, videoID, err)
		return
	}

	deleted, err := h.repo.Delete(ctx, videoID)
	if err != nil {
		log.LogError(ctx, "video delete failed", err, "video_id", videoID)
		httpkit.WriteErr(w, 500, "INTERNAL_ERROR", "delete failed", nil)
		return
	}
	if !deleted {
		httpkit.WriteErr(w, 404, "NOT_FOUND", "video not found", map[string]any{"video_id": videoID})
		return
	}

	if rec.PublicID != "" {
		if err := h.sp.DeleteObject(ctx, rec.PublicID); err != nil {
			log.Warn("published artifact not removed",
				"video_id", videoID,
				"public_id", rec.PublicID,
				"error", err.Error(),
			)
		}
	}

	httpkit.WriteJSON(w, 200, map[string]any{"deleted": true, "videoId": videoID})
}

func (h *Handler) writeGetErr(w http.ResponseWriter, videoID string, err error) {
	if errors.Is(err, repositories.ErrVideoNotFound) {
		httpkit.WriteErr(w, 404, "NOT_FOUND", "video not found", map[string]any{"video_id": videoID})
		return
	}
	httpkit.WriteErr(w, 500, "INTERNAL_ERROR", "db query failed", nil)
}

func videoResponse(rec *video.Video) map[string]any {
	return map[string]any{
		"videoId":         rec.ID,
		"jobId":           rec.JobID,
		"scriptId":        rec.ScriptID,
		"userId":          rec.UserID,
		"segments":        rec.Segments,
		"backgroundMusic": rec.BackgroundMusic,
		"subtitle":        rec.Subtitle,
		"settings":        rec.Settings,
		"status":          string(rec.Status),
		"progress":        rec.Progress,
		"log":             rec.Log,
		"renderId":        rec.RenderID,
		"originUrl":       rec.OriginURL,
		"outputUrl":       rec.OutputURL,
		"thumbnailUrl":    rec.ThumbnailURL,
		"publicId":        rec.PublicID,
		"duration":        rec.Duration,
		"createdAt":       rec.CreatedAt,
	}
}

func errMessage(err error) string {
	var e *errors.Error
	if errors.As(err, &e) {
		return e.Message
	}
	return err.Error()
}
