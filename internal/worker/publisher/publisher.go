// Package publisher moves finished renders from the gateway's ephemeral URL
// into durable storage.
package publisher

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"reelforge/internal/pkg/errors"
	"reelforge/internal/pkg/logger"
	"reelforge/internal/ports"
)

// Result is the durable location of a published render.
type Result struct {
	PublicURL    string
	ThumbnailURL string
	PublicID     string
	Size         int64
}

type Publisher struct {
	sp     ports.StorageProvider
	client *http.Client
	log    *logger.Logger
}

type Config struct {
	SP ports.StorageProvider
	// HTTPClient overrides the download client, mainly for tests.
	HTTPClient *http.Client
	Log        *logger.Logger
}

func New(cfg Config) *Publisher {
	hc := cfg.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: 10 * time.Minute}
	}
	log := cfg.Log
	if log == nil {
		log = logger.NewDefault()
	}
	return &Publisher{
		sp:     cfg.SP,
		client: hc,
		log:    log.WithComponent("publisher"),
	}
}

// Publish downloads the render to a temp file, uploads it to the storage
// provider, and returns the durable URLs. The temp file is removed on every
// exit path; removal failures are logged but never fail the job.
func (p *Publisher) Publish(ctx context.Context, videoID, renderURL string) (*Result, error) {
	path, size, err := p.download(ctx, renderURL)
	if err != nil {
		return nil, err
	}
	defer p.removeTemp(path)

	f, err := os.Open(path)
	if err != nil {
		return nil, errors.WrapWithCode(err, errors.CodePublishFailed, "publisher.open", "failed to reopen downloaded render")
	}
	defer f.Close()

	out, err := p.sp.PutObject(ctx, ports.PutObjectInput{
		ObjectKey:   fmt.Sprintf("videos/%s/output.mp4", videoID),
		ContentType: "video/mp4",
		Reader:      f,
		Size:        size,
	})
	if err != nil {
		return nil, errors.WrapWithCode(err, errors.CodePublishFailed, "publisher.upload",
			fmt.Sprintf("upload to %s failed", p.sp.Provider()))
	}

	p.log.Info("render published",
		"video_id", videoID,
		"provider", p.sp.Provider(),
		"public_id", out.ObjectKey,
		"size", size,
	)

	return &Result{
		PublicURL:    out.PublicURL,
		ThumbnailURL: out.ThumbnailURL,
		PublicID:     out.ObjectKey,
		Size:         size,
	}, nil
}

func (p *Publisher) download(ctx context.Context, renderURL string) (path string, size int64, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, renderURL, nil)
	if err != nil {
		return "", 0, errors.WrapWithCode(err, errors.CodePublishFailed, "publisher.download", "invalid render url")
	}

	res, err := p.client.Do(req)
	if err != nil {
		return "", 0, errors.WrapWithCode(err, errors.CodePublishFailed, "publisher.download", "render download failed")
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return "", 0, errors.Newf(errors.CodePublishFailed, "render download returned http %d", res.StatusCode)
	}

	tmp, err := os.CreateTemp("", "reelforge-render-*.mp4")
	if err != nil {
		return "", 0, errors.WrapWithCode(err, errors.CodePublishFailed, "publisher.download", "failed to create temp file")
	}

	n, err := io.Copy(tmp, res.Body)
	closeErr := tmp.Close()
	if err != nil {
		p.removeTemp(tmp.Name())
		return "", 0, errors.WrapWithCode(err, errors.CodePublishFailed, "publisher.download", "render download interrupted")
	}
	if closeErr != nil {
		p.removeTemp(tmp.Name())
		return "", 0, errors.WrapWithCode(closeErr, errors.CodePublishFailed, "publisher.download", "failed to flush temp file")
	}

	return tmp.Name(), n, nil
}

// removeTemp deletes the temp file with a few retries. On some filesystems
// the file can still be locked briefly after close.
func (p *Publisher) removeTemp(path string) {
	var err error
	for attempt := 0; attempt < 3; attempt++ {
		if attempt > 0 {
			time.Sleep(100 * time.Millisecond)
		}
		err = os.Remove(path)
		if err == nil || os.IsNotExist(err) {
			return
		}
	}
	p.log.Warn("temp file not removed",
		"path", path,
		"error", err.Error(),
	)
}
