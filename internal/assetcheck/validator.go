// Package assetcheck verifies that every asset URL referenced by a
// submission is actually retrievable before the job is accepted.
package assetcheck

import (
	"context"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	"reelforge/internal/pkg/errors"
	"reelforge/internal/pkg/logger"
	"reelforge/internal/video"
)

// Role identifies what a URL is used for, so failures can name it.
type Role string

const (
	RoleImage Role = "image"
	RoleAudio Role = "audio"
	RoleMusic Role = "music"
)

// Ref is one URL to verify together with where it came from.
// SegmentIndex is -1 for job-level assets (background music).
type Ref struct {
	URL          string
	Role         Role
	SegmentIndex int
}

// CollectRefs lists every asset URL referenced by the input.
func CollectRefs(in *video.Input) []Ref {
	refs := make([]Ref, 0, len(in.Segments)*2+1)
	for _, seg := range in.Segments {
		refs = append(refs,
			Ref{URL: seg.Image, Role: RoleImage, SegmentIndex: seg.Index},
			Ref{URL: seg.Audio, Role: RoleAudio, SegmentIndex: seg.Index},
		)
	}
	if in.BackgroundMusic != "" {
		refs = append(refs, Ref{URL: in.BackgroundMusic, Role: RoleMusic, SegmentIndex: -1})
	}
	return refs
}

// Validator performs concurrent reachability checks with a bounded pool.
type Validator struct {
	client  *http.Client
	limit   int
	timeout time.Duration
	log     *logger.Logger
}

// Config tunes the validator. Zero values fall back to defaults.
type Config struct {
	// Client is the HTTP client used for checks.
	Client *http.Client
	// Limit bounds how many checks run concurrently.
	Limit int
	// Timeout applies per URL check.
	Timeout time.Duration
	Log     *logger.Logger
}

const (
	defaultLimit   = 8
	defaultTimeout = 10 * time.Second
)

func New(cfg Config) *Validator {
	if cfg.Client == nil {
		cfg.Client = &http.Client{}
	}
	if cfg.Limit <= 0 {
		cfg.Limit = defaultLimit
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	log := cfg.Log
	if log == nil {
		log = logger.NewDefault()
	}
	return &Validator{
		client:  cfg.Client,
		limit:   cfg.Limit,
		timeout: cfg.Timeout,
		log:     log.WithComponent("assetcheck"),
	}
}

// Validate checks every ref concurrently and fails fast on the first
// unreachable URL. The same URL appearing in multiple segments is checked
// once per pass; the error names the first occurrence.
func (v *Validator) Validate(ctx context.Context, refs []Ref) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(v.limit)

	seen := make(map[string]bool, len(refs))
	for _, ref := range refs {
		if seen[ref.URL] {
			continue
		}
		seen[ref.URL] = true

		g.Go(func() error {
			return v.check(gctx, ref)
		})
	}

	return g.Wait()
}

func (v *Validator) check(ctx context.Context, ref Ref) error {
	checkCtx, cancel := context.WithTimeout(ctx, v.timeout)
	defer cancel()

	status, err := v.probe(checkCtx, http.MethodHead, ref.URL)
	if err == nil && (status == http.StatusMethodNotAllowed || status == http.StatusNotImplemented) {
		// Some CDNs reject HEAD; fall back to GET and discard the body.
		status, err = v.probe(checkCtx, http.MethodGet, ref.URL)
	}

	if err != nil {
		v.log.Warn("asset check failed",
			"url", ref.URL,
			"role", string(ref.Role),
			"error", err.Error(),
		)
		return errors.Unreachable(ref.URL, string(ref.Role), ref.SegmentIndex)
	}
	if status < 200 || status >= 400 {
		v.log.Warn("asset check rejected",
			"url", ref.URL,
			"role", string(ref.Role),
			"status", status,
		)
		return errors.Unreachable(ref.URL, string(ref.Role), ref.SegmentIndex).
			WithField("http_status", status)
	}
	return nil
}

func (v *Validator) probe(ctx context.Context, method, url string) (int, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, nil)
	if err != nil {
		return 0, err
	}
	res, err := v.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer res.Body.Close()
	return res.StatusCode, nil
}