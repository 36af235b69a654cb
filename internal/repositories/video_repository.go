package repositories

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"reelforge/internal/video"
)

// ErrVideoNotFound marks a lookup or update against an id that does not
// exist (anymore). Callers must distinguish it from transient store errors:
// a job may legitimately be deleted while its message is still queued.
var ErrVideoNotFound = errors.New("video not found")

// VideoRepository persists video job records in Postgres. It is the single
// source of truth for job state; every write is a self-contained statement
// keyed by id.
type VideoRepository struct {
	db *pgxpool.Pool
}

func NewVideoRepository(db *pgxpool.Pool) *VideoRepository {
	return &VideoRepository{db: db}
}

// Create inserts a new record and returns its generated id.
func (r *VideoRepository) Create(ctx context.Context, v *video.Video) error {
	segments, err := json.Marshal(v.Segments)
	if err != nil {
		return fmt.Errorf("marshal segments: %w", err)
	}
	subtitle, err := json.Marshal(v.Subtitle)
	if err != nil {
		return fmt.Errorf("marshal subtitle: %w", err)
	}
	settings, err := json.Marshal(v.Settings)
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}

	if v.CreatedAt.IsZero() {
		v.CreatedAt = time.Now().UTC()
	}

	_, err = r.db.Exec(ctx, `
		INSERT INTO videos
			(id, job_id, script_id, user_id, segments_json, background_music,
			 subtitle_json, settings_json, status, progress, log, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
	`,
		v.ID, v.JobID, v.ScriptID, nullIfEmpty(v.UserID), segments,
		nullIfEmpty(v.BackgroundMusic), subtitle, settings,
		string(v.Status), v.Progress, v.Log, v.CreatedAt,
	)
	return err
}

// Get fetches one record by id.
func (r *VideoRepository) Get(ctx context.Context, id string) (*video.Video, error) {
	var (
		v                  video.Video
		userID, music      *string
		renderID, origin   *string
		output, thumbnail  *string
		publicID           *string
		duration           *int
		segments, subtitle []byte
		settings           []byte
		status             string
	)

	err := r.db.QueryRow(ctx, `
		SELECT id, job_id, script_id, user_id, segments_json, background_music,
		       subtitle_json, settings_json, status, progress, log,
		       render_id, origin_url, output_url, thumbnail_url, public_id,
		       duration, created_at
		FROM videos
		WHERE id=$1
	`, id).Scan(
		&v.ID, &v.JobID, &v.ScriptID, &userID, &segments, &music,
		&subtitle, &settings, &status, &v.Progress, &v.Log,
		&renderID, &origin, &output, &thumbnail, &publicID,
		&duration, &v.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrVideoNotFound
		}
		return nil, err
	}

	if err := json.Unmarshal(segments, &v.Segments); err != nil {
		return nil, fmt.Errorf("unmarshal segments: %w", err)
	}
	if err := json.Unmarshal(subtitle, &v.Subtitle); err != nil {
		return nil, fmt.Errorf("unmarshal subtitle: %w", err)
	}
	if err := json.Unmarshal(settings, &v.Settings); err != nil {
		return nil, fmt.Errorf("unmarshal settings: %w", err)
	}

	v.Status = video.Status(status)
	v.UserID = deref(userID)
	v.BackgroundMusic = deref(music)
	v.RenderID = deref(renderID)
	v.OriginURL = deref(origin)
	v.OutputURL = deref(output)
	v.ThumbnailURL = deref(thumbnail)
	v.PublicID = deref(publicID)
	if duration != nil {
		v.Duration = *duration
	}

	return &v, nil
}

// UpdateStatus applies a partial update in a single statement. Unset patch
// fields are left untouched. Updating a deleted id returns ErrVideoNotFound
// so pipeline stages can no-op instead of crashing.
func (r *VideoRepository) UpdateStatus(ctx context.Context, id string, patch video.StatusUpdate) error {
	query, args := buildStatusUpdate(id, patch)
	if query == "" {
		return nil
	}

	cmd, err := r.db.Exec(ctx, query, args...)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrVideoNotFound
	}
	return nil
}

// Delete removes a record. It reports whether anything was deleted.
func (r *VideoRepository) Delete(ctx context.Context, id string) (bool, error) {
	cmd, err := r.db.Exec(ctx, `DELETE FROM videos WHERE id=$1`, id)
	if err != nil {
		return false, err
	}
	return cmd.RowsAffected() > 0, nil
}

// buildStatusUpdate renders the patch as one UPDATE statement. An empty
// query means the patch carried no fields.
func buildStatusUpdate(id string, patch video.StatusUpdate) (string, []any) {
	sets := make([]string, 0, 9)
	args := make([]any, 0, 10)
	args = append(args, id)

	add := func(column string, value any) {
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s=$%d", column, len(args)))
	}

	if patch.Status != nil {
		add("status", string(*patch.Status))
	}
	if patch.Progress != nil {
		add("progress", *patch.Progress)
	}
	if patch.Log != nil {
		add("log", *patch.Log)
	}
	if patch.RenderID != nil {
		add("render_id", *patch.RenderID)
	}
	if patch.OriginURL != nil {
		add("origin_url", *patch.OriginURL)
	}
	if patch.OutputURL != nil {
		add("output_url", *patch.OutputURL)
	}
	if patch.ThumbnailURL != nil {
		add("thumbnail_url", *patch.ThumbnailURL)
	}
	if patch.PublicID != nil {
		add("public_id", *patch.PublicID)
	}
	if patch.Duration != nil {
		add("duration", *patch.Duration)
	}

	if len(sets) == 0 {
		return "", nil
	}
	return fmt.Sprintf(`UPDATE videos SET %s WHERE id=$1`, strings.Join(sets, ", ")), args
}

func nullIfEmpty(s string) any {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
