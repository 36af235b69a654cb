package renderer

import (
	"sort"

	v1 "reelforge/internal/contracts/renderer/v1"
	"reelforge/internal/video"
)

// Subtitle overlay styling applied to every caption clip.
const (
	subtitleStyle      = "minimal"
	subtitleColor      = "#FFFFFF"
	subtitleBackground = "#000000"
	subtitlePosition   = "bottom"
)

const musicVolume = 0.2

// BuildTimeline turns a validated submission into a render spec. Segments
// are laid out back to back in index order: each clip starts where the
// previous one ended.
func BuildTimeline(in *video.Input) *v1.RenderSpec {
	segments := make([]video.Segment, len(in.Segments))
	copy(segments, in.Segments)
	sort.SliceStable(segments, func(i, j int) bool {
		return segments[i].Index < segments[j].Index
	})

	images := make([]v1.Clip, 0, len(segments))
	audios := make([]v1.Clip, 0, len(segments))
	titles := make([]v1.Clip, 0, len(segments))

	start := 0.0
	for i, seg := range segments {
		images = append(images, v1.Clip{
			Asset:      v1.Asset{Type: "image", Src: seg.Image},
			Start:      start,
			Length:     seg.Duration,
			Fit:        "cover",
			Transition: imageTransition(i, seg.Transition),
		})

		audios = append(audios, v1.Clip{
			Asset:  v1.Asset{Type: "audio", Src: seg.Audio},
			Start:  start,
			Length: seg.Duration,
		})

		if in.Subtitle.Enabled {
			titles = append(titles, v1.Clip{
				Asset: v1.Asset{
					Type:       "title",
					Text:       seg.Script,
					Style:      subtitleStyleFor(in.Subtitle),
					Color:      subtitleColor,
					Background: subtitleBackground,
					Position:   subtitlePosition,
				},
				Start:  start,
				Length: seg.Duration,
			})
		}

		start += seg.Duration
	}

	// Background music rides the audio track as one low-volume clip
	// spanning the whole timeline.
	if in.BackgroundMusic != "" {
		audios = append(audios, v1.Clip{
			Asset:  v1.Asset{Type: "audio", Src: in.BackgroundMusic, Volume: musicVolume},
			Start:  0,
			Length: start,
		})
	}

	// Track order is z-order: later tracks render underneath earlier ones,
	// so titles go first to stay on top of the images.
	tracks := make([]v1.Track, 0, 3)
	if len(titles) > 0 {
		tracks = append(tracks, v1.Track{Clips: titles})
	}
	tracks = append(tracks, v1.Track{Clips: images}, v1.Track{Clips: audios})

	return &v1.RenderSpec{
		Timeline: v1.Timeline{
			Background: "#000000",
			Tracks:     tracks,
		},
		Output: v1.Output{
			Format:      "mp4",
			Resolution:  in.Settings.Resolution,
			AspectRatio: in.Settings.AspectRatio,
			FPS:         in.Settings.FPS,
			Bitrate:     in.Settings.Bitrate,
		},
	}
}

// imageTransition resolves the transition into clip i. The first clip never
// fades in; from the second clip on, an explicit per-segment transition wins
// over the default fade.
func imageTransition(i int, t *video.Transition) *v1.Transition {
	if i == 0 {
		return nil
	}
	if t != nil && t.Type != "" {
		return &v1.Transition{In: t.Type, Out: t.Type}
	}
	return &v1.Transition{In: "fade", Out: "fade"}
}

func subtitleStyleFor(s video.Subtitle) string {
	if s.Style != "" {
		return s.Style
	}
	return subtitleStyle
}
