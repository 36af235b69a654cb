// Package v1 defines the wire contract for the render gateway. The shape
// follows the edit-envelope convention common to hosted video editors: a
// timeline of tracks with absolutely positioned clips, plus an output block.
package v1

// RenderSpec is the submission payload for one render.
type RenderSpec struct {
	Timeline Timeline `json:"timeline"`
	Output   Output   `json:"output"`
}

type Timeline struct {
	Background string  `json:"background,omitempty"`
	Tracks     []Track `json:"tracks"`
}

type Track struct {
	Clips []Clip `json:"clips"`
}

// Clip places one asset on the timeline. Start and Length are seconds.
type Clip struct {
	Asset      Asset       `json:"asset"`
	Start      float64     `json:"start"`
	Length     float64     `json:"length"`
	Transition *Transition `json:"transition,omitempty"`
	Fit        string      `json:"fit,omitempty"`
}

type Transition struct {
	In  string `json:"in,omitempty"`
	Out string `json:"out,omitempty"`
}

// Asset is the media carried by a clip. Type selects which fields apply:
// "image" and "audio" use Src, "title" uses the text styling fields.
type Asset struct {
	Type       string  `json:"type"`
	Src        string  `json:"src,omitempty"`
	Text       string  `json:"text,omitempty"`
	Style      string  `json:"style,omitempty"`
	Color      string  `json:"color,omitempty"`
	Background string  `json:"background,omitempty"`
	Position   string  `json:"position,omitempty"`
	Volume     float64 `json:"volume,omitempty"`
}

type Output struct {
	Format      string `json:"format"`
	Resolution  string `json:"resolution"`
	AspectRatio string `json:"aspectRatio,omitempty"`
	FPS         int    `json:"fps,omitempty"`
	Bitrate     string `json:"bitrate,omitempty"`
}

// SubmitResponse is the gateway's envelope for both submission and status
// queries.
type SubmitResponse struct {
	Response RenderState `json:"response"`
}

// RenderState is the gateway-side view of one render.
type RenderState struct {
	ID       string  `json:"id"`
	Status   string  `json:"status"`
	URL      string  `json:"url,omitempty"`
	Error    string  `json:"error,omitempty"`
	Progress float64 `json:"progress,omitempty"`
}

// Gateway status values.
const (
	StateQueued    = "queued"
	StateFetching  = "fetching"
	StateRendering = "rendering"
	StateSaving    = "saving"
	StateDone      = "done"
	StateFailed    = "failed"
)
