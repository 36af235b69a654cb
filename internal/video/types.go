// Package video defines the composition job model shared by the API and the
// worker: the typed submission input, the persisted record, and its status
// lifecycle.
package video

import "time"

// Status is the lifecycle state of a video job.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusDone       Status = "done"
	StatusFailed     Status = "failed"
)

// Terminal reports whether no further automatic transitions occur.
func (s Status) Terminal() bool {
	return s == StatusDone || s == StatusFailed
}

// Valid reports whether s is a known status value.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusProcessing, StatusDone, StatusFailed:
		return true
	}
	return false
}

// Transition describes the visual transition into a segment.
type Transition struct {
	Type     string  `json:"type"`
	Duration float64 `json:"duration"`
}

// Segment is one script/image/audio/duration unit of the final timeline.
// Indices order segments but need not be contiguous.
type Segment struct {
	Index      int         `json:"index"`
	Script     string      `json:"script"`
	Image      string      `json:"image"`
	Audio      string      `json:"audio"`
	Duration   float64     `json:"duration"`
	Transition *Transition `json:"transition,omitempty"`
}

// Subtitle configures the optional subtitle overlay track.
type Subtitle struct {
	Enabled bool   `json:"enabled"`
	Style   string `json:"style,omitempty"`
}

// Settings holds output parameters for the render.
type Settings struct {
	Resolution    string  `json:"resolution,omitempty"`
	AspectRatio   string  `json:"aspectRatio,omitempty"`
	FPS           int     `json:"fps,omitempty"`
	Bitrate       string  `json:"bitrate,omitempty"`
	MaxAudioSpeed float64 `json:"maxAudioSpeed,omitempty"`
	AudioMismatch string  `json:"audioMismatch,omitempty"`
}

const (
	DefaultResolution  = "1080"
	DefaultAspectRatio = "16:9"
)

// AudioMismatch strategies when a segment's audio is longer than its duration.
const (
	MismatchTrim    = "trim"
	MismatchStretch = "stretch"
	MismatchSilence = "silence"
)

// Input is the canonical, typed submission payload. It is validated once at
// the boundary; the queue carries it verbatim inside the message envelope.
type Input struct {
	JobID           string    `json:"job_id"`
	ScriptID        string    `json:"script_id"`
	UserID          string    `json:"user_id,omitempty"`
	Segments        []Segment `json:"segments"`
	BackgroundMusic string    `json:"backgroundMusic,omitempty"`
	Subtitle        Subtitle  `json:"subtitle"`
	Settings        Settings  `json:"settings"`
}

// TotalDuration sums the whole segment durations in seconds.
func (in *Input) TotalDuration() int {
	total := 0
	for _, s := range in.Segments {
		total += int(s.Duration)
	}
	return total
}

// ApplyDefaults fills unset output settings.
func (in *Input) ApplyDefaults() {
	if in.Settings.Resolution == "" {
		in.Settings.Resolution = DefaultResolution
	}
	if in.Settings.AspectRatio == "" {
		in.Settings.AspectRatio = DefaultAspectRatio
	}
}

// Video is the persisted job record, the single source of truth for job
// state. Derived fields stay empty until the pipeline stage that produces
// them has run.
type Video struct {
	ID              string
	JobID           string
	ScriptID        string
	UserID          string
	Segments        []Segment
	BackgroundMusic string
	Subtitle        Subtitle
	Settings        Settings

	Status   Status
	Progress int
	Log      string

	RenderID     string
	OriginURL    string
	OutputURL    string
	ThumbnailURL string
	PublicID     string
	Duration     int

	CreatedAt time.Time
}

// StatusUpdate is a partial update to a persisted record. Only non-nil
// fields are written; the store applies the whole patch in one atomic
// statement so concurrent pipeline stages never read-modify-write race.
type StatusUpdate struct {
	Status       *Status
	Progress     *int
	Log          *string
	RenderID     *string
	OriginURL    *string
	OutputURL    *string
	ThumbnailURL *string
	PublicID     *string
	Duration     *int
}

// Ptr returns a pointer to v, for building StatusUpdate patches.
func Ptr[T any](v T) *T {
	return &v
}

// Input reconstructs the submission payload from the persisted record.
func (v *Video) Input() *Input {
	return &Input{
		JobID:           v.JobID,
		ScriptID:        v.ScriptID,
		UserID:          v.UserID,
		Segments:        v.Segments,
		BackgroundMusic: v.BackgroundMusic,
		Subtitle:        v.Subtitle,
		Settings:        v.Settings,
	}
}
