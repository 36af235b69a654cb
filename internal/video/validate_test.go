package video

import (
	"strings"
	"testing"

	"reelforge/internal/pkg/errors"
)

func validInput() *Input {
	return &Input{
		JobID:    "job_1",
		ScriptID: "scr_1",
		UserID:   "usr_1",
		Segments: []Segment{
			{
				Index:    0,
				Script:   "Opening line",
				Image:    "https://cdn.example.com/img0.png",
				Audio:    "https://cdn.example.com/aud0.mp3",
				Duration: 5,
			},
			{
				Index:      1,
				Script:     "Second line",
				Image:      "https://cdn.example.com/img1.png",
				Audio:      "https://cdn.example.com/aud1.mp3",
				Duration:   4,
				Transition: &Transition{Type: "fade", Duration: 0.5},
			},
		},
		Subtitle: Subtitle{Enabled: true, Style: "minimal"},
		Settings: Settings{Resolution: "1080", AspectRatio: "16:9"},
	}
}

func TestValidateInputOK(t *testing.T) {
	if err := ValidateInput(validInput()); err != nil {
		t.Fatalf("expected valid input, got: %v", err)
	}
}

func TestValidateInputFieldErrors(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(in *Input)
		wantField string
	}{
		{
			name:      "missing script id",
			mutate:    func(in *Input) { in.ScriptID = " " },
			wantField: "script_id",
		},
		{
			name:      "empty segments",
			mutate:    func(in *Input) { in.Segments = nil },
			wantField: "segments",
		},
		{
			name:      "negative index",
			mutate:    func(in *Input) { in.Segments[0].Index = -1 },
			wantField: "segments[0].index",
		},
		{
			name:      "empty script",
			mutate:    func(in *Input) { in.Segments[1].Script = "" },
			wantField: "segments[1].script",
		},
		{
			name:      "missing image url",
			mutate:    func(in *Input) { in.Segments[0].Image = "" },
			wantField: "segments[0].image",
		},
		{
			name:      "non-http audio url",
			mutate:    func(in *Input) { in.Segments[1].Audio = "ftp://cdn.example.com/a.mp3" },
			wantField: "segments[1].audio",
		},
		{
			name:      "zero duration",
			mutate:    func(in *Input) { in.Segments[0].Duration = 0 },
			wantField: "segments[0].duration",
		},
		{
			name:      "negative duration",
			mutate:    func(in *Input) { in.Segments[0].Duration = -3 },
			wantField: "segments[0].duration",
		},
		{
			name:      "transition without type",
			mutate:    func(in *Input) { in.Segments[1].Transition = &Transition{Duration: 1} },
			wantField: "segments[1].transition.type",
		},
		{
			name:      "bad background music url",
			mutate:    func(in *Input) { in.BackgroundMusic = "not a url" },
			wantField: "backgroundMusic",
		},
		{
			name:      "unknown resolution",
			mutate:    func(in *Input) { in.Settings.Resolution = "720p" },
			wantField: "settings.resolution",
		},
		{
			name:      "unknown aspect ratio",
			mutate:    func(in *Input) { in.Settings.AspectRatio = "2:1" },
			wantField: "settings.aspectRatio",
		},
		{
			name:      "unknown mismatch strategy",
			mutate:    func(in *Input) { in.Settings.AudioMismatch = "loop" },
			wantField: "settings.audioMismatch",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := validInput()
			tt.mutate(in)

			err := ValidateInput(in)
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !errors.IsValidation(err) {
				t.Fatalf("expected VALIDATION_ERROR, got: %v", err)
			}
			fields := errors.GetFields(err)
			if fields["field"] != tt.wantField {
				t.Errorf("expected field=%q, got %v (err: %v)", tt.wantField, fields["field"], err)
			}
		})
	}
}

func TestValidateInputNil(t *testing.T) {
	if err := ValidateInput(nil); err == nil {
		t.Fatal("expected error for nil payload")
	}
}

func TestTotalDuration(t *testing.T) {
	in := validInput()
	in.Segments = append(in.Segments, Segment{
		Index: 2, Script: "x",
		Image: "https://cdn.example.com/i.png", Audio: "https://cdn.example.com/a.mp3",
		Duration: 6,
	})

	if got := in.TotalDuration(); got != 15 {
		t.Errorf("TotalDuration() = %d, want 15", got)
	}
}

func TestApplyDefaults(t *testing.T) {
	in := &Input{}
	in.ApplyDefaults()

	if in.Settings.Resolution != DefaultResolution {
		t.Errorf("expected default resolution %s, got %s", DefaultResolution, in.Settings.Resolution)
	}
	if in.Settings.AspectRatio != DefaultAspectRatio {
		t.Errorf("expected default aspect ratio %s, got %s", DefaultAspectRatio, in.Settings.AspectRatio)
	}
}

func TestStatusTerminal(t *testing.T) {
	for _, s := range []Status{StatusDone, StatusFailed} {
		if !s.Terminal() {
			t.Errorf("expected %s to be terminal", s)
		}
	}
	for _, s := range []Status{StatusPending, StatusProcessing} {
		if s.Terminal() {
			t.Errorf("expected %s to be non-terminal", s)
		}
	}
}

func TestValidationMessageNamesSegment(t *testing.T) {
	in := validInput()
	in.Segments[1].Audio = ""

	err := ValidateInput(in)
	if err == nil {
		t.Fatal("expected error")
	}
	fields := errors.GetFields(err)
	field, _ := fields["field"].(string)
	if !strings.Contains(field, "segments[1]") {
		t.Errorf("expected error to name segment 1, got field %q", field)
	}
}
