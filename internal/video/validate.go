package video

import (
	"fmt"
	"net/url"
	"strings"

	"reelforge/internal/pkg/errors"
)

var validResolutions = map[string]bool{
	"sd": true, "hd": true, "1080": true, "4k": true,
}

var validAspectRatios = map[string]bool{
	"16:9": true, "9:16": true, "1:1": true, "4:5": true,
}

var validMismatch = map[string]bool{
	MismatchTrim: true, MismatchStretch: true, MismatchSilence: true,
}

// ValidateInput checks the structural validity of a submission payload.
// It runs before any network or queue activity; every failure carries the
// offending field path. Reachability of the referenced URLs is a separate
// concern handled by assetcheck.
func ValidateInput(in *Input) error {
	if in == nil {
		return errors.Validation("payload is required")
	}
	if strings.TrimSpace(in.ScriptID) == "" {
		return errors.ValidationField("script_id", "script_id is required")
	}
	if len(in.Segments) == 0 {
		return errors.ValidationField("segments", "segments must be a non-empty array")
	}

	for i, seg := range in.Segments {
		path := func(f string) string { return fmt.Sprintf("segments[%d].%s", i, f) }

		if seg.Index < 0 {
			return errors.ValidationField(path("index"), "index must not be negative")
		}
		if strings.TrimSpace(seg.Script) == "" {
			return errors.ValidationField(path("script"), "script is required")
		}
		if err := checkURL(seg.Image); err != nil {
			return errors.ValidationField(path("image"), err.Error())
		}
		if err := checkURL(seg.Audio); err != nil {
			return errors.ValidationField(path("audio"), err.Error())
		}
		if seg.Duration <= 0 {
			return errors.ValidationField(path("duration"), "duration must be positive")
		}
		if seg.Transition != nil {
			if strings.TrimSpace(seg.Transition.Type) == "" {
				return errors.ValidationField(path("transition.type"), "transition type is required")
			}
			if seg.Transition.Duration < 0 {
				return errors.ValidationField(path("transition.duration"), "transition duration must not be negative")
			}
		}
	}

	if in.BackgroundMusic != "" {
		if err := checkURL(in.BackgroundMusic); err != nil {
			return errors.ValidationField("backgroundMusic", err.Error())
		}
	}

	return validateSettings(&in.Settings)
}

func validateSettings(s *Settings) error {
	if s.Resolution != "" && !validResolutions[s.Resolution] {
		return errors.ValidationField("settings.resolution",
			fmt.Sprintf("unknown resolution %q", s.Resolution))
	}
	if s.AspectRatio != "" && !validAspectRatios[s.AspectRatio] {
		return errors.ValidationField("settings.aspectRatio",
			fmt.Sprintf("unknown aspect ratio %q", s.AspectRatio))
	}
	if s.FPS < 0 || s.FPS > 60 {
		return errors.ValidationField("settings.fps", "fps must be between 0 and 60")
	}
	if s.MaxAudioSpeed < 0 {
		return errors.ValidationField("settings.maxAudioSpeed", "maxAudioSpeed must not be negative")
	}
	if s.AudioMismatch != "" && !validMismatch[s.AudioMismatch] {
		return errors.ValidationField("settings.audioMismatch",
			fmt.Sprintf("unknown audio mismatch strategy %q", s.AudioMismatch))
	}
	return nil
}

func checkURL(raw string) error {
	if strings.TrimSpace(raw) == "" {
		return fmt.Errorf("url is required")
	}
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("malformed url: %v", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("url must use http or https")
	}
	if u.Host == "" {
		return fmt.Errorf("url host is required")
	}
	return nil
}
