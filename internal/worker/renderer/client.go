// Package renderer talks to the external render gateway: it submits
// timeline specs and polls render state.
package renderer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	v1 "reelforge/internal/contracts/renderer/v1"
	"reelforge/internal/pkg/errors"
	"reelforge/internal/pkg/logger"
)

// Client is the render gateway contract used by the processor.
type Client interface {
	// Submit sends a spec and returns the gateway's render id.
	Submit(ctx context.Context, spec *v1.RenderSpec) (string, error)
	// Status fetches the current state of a submitted render.
	Status(ctx context.Context, renderID string) (v1.RenderState, error)
}

type HTTPClient struct {
	baseURL string
	apiKey  string
	client  *http.Client
	log     *logger.Logger

	maxAttempts int
	backoffBase time.Duration
}

type Config struct {
	BaseURL string
	APIKey  string
	// HTTPClient overrides the default client, mainly for tests.
	HTTPClient *http.Client
	Log        *logger.Logger
}

const (
	defaultMaxAttempts = 3
	defaultBackoffBase = 1 * time.Second
)

func NewHTTPClient(cfg Config) *HTTPClient {
	hc := cfg.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: 30 * time.Second}
	}
	log := cfg.Log
	if log == nil {
		log = logger.NewDefault()
	}
	return &HTTPClient{
		baseURL:     cfg.BaseURL,
		apiKey:      cfg.APIKey,
		client:      hc,
		log:         log.WithComponent("renderer"),
		maxAttempts: defaultMaxAttempts,
		backoffBase: defaultBackoffBase,
	}
}

func (c *HTTPClient) Submit(ctx context.Context, spec *v1.RenderSpec) (string, error) {
	body, err := json.Marshal(spec)
	if err != nil {
		return "", errors.Wrap(err, "renderer.submit", "failed to encode spec")
	}

	var out v1.SubmitResponse
	if err := c.do(ctx, http.MethodPost, "/render", body, &out); err != nil {
		return "", err
	}

	if out.Response.ID == "" {
		return "", errors.New(errors.CodeRenderFailed, "gateway accepted render but returned no id")
	}
	return out.Response.ID, nil
}

func (c *HTTPClient) Status(ctx context.Context, renderID string) (v1.RenderState, error) {
	var out v1.SubmitResponse
	if err := c.do(ctx, http.MethodGet, "/render/"+renderID, nil, &out); err != nil {
		return v1.RenderState{}, err
	}
	return out.Response, nil
}

// do performs one gateway call with bounded retries. Connection failures and
// 5xx responses are retried with exponential backoff; 4xx responses fail
// immediately since resending the same request cannot succeed.
func (c *HTTPClient) do(ctx context.Context, method, path string, body []byte, out any) error {
	var lastErr error

	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		if attempt > 1 {
			delay := c.backoffBase << (attempt - 2)
			c.log.Warn("gateway call retrying",
				"path", path,
				"attempt", attempt,
				"delay_ms", delay.Milliseconds(),
			)
			select {
			case <-ctx.Done():
				return errors.WrapWithCode(ctx.Err(), errors.CodeRenderFailed, "renderer.do", "canceled while retrying gateway call")
			case <-time.After(delay):
			}
		}

		retryable, err := c.doOnce(ctx, method, path, body, out)
		if err == nil {
			return nil
		}
		lastErr = err
		if !retryable {
			return err
		}
	}

	return errors.WrapWithCode(lastErr, errors.CodeRenderFailed, "renderer.do",
		fmt.Sprintf("gateway unreachable after %d attempts", c.maxAttempts))
}

func (c *HTTPClient) doOnce(ctx context.Context, method, path string, body []byte, out any) (retryable bool, err error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return false, errors.Wrap(err, "renderer.request", "failed to build gateway request")
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("x-api-key", c.apiKey)
	}

	res, err := c.client.Do(req)
	if err != nil {
		return true, errors.WrapWithCode(err, errors.CodeRenderFailed, "renderer.request", "gateway connection failed")
	}
	defer res.Body.Close()

	if res.StatusCode >= 500 {
		return true, errors.Newf(errors.CodeRenderFailed, "gateway returned http %d", res.StatusCode)
	}
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		payload, _ := io.ReadAll(io.LimitReader(res.Body, 2048))
		return false, errors.Newf(errors.CodeRenderFailed, "gateway rejected request: http %d", res.StatusCode).
			WithField("body", string(payload))
	}

	if out != nil {
		if err := json.NewDecoder(res.Body).Decode(out); err != nil {
			return false, errors.WrapWithCode(err, errors.CodeRenderFailed, "renderer.decode", "invalid gateway response")
		}
	}
	return false, nil
}
