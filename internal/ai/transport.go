package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"strconv"
	"time"

	"golang.org/x/time/rate"

	"ambitious/internal/metrics"
	"ambitious/internal/util"
)

// Transport posts JSON to one provider API with pacing and retries.
// One Transport is shared by every NPC using the provider so the limiter bounds the whole process.
type Transport struct {
	name        string
	httpClient  *http.Client
	limiter     *rate.Limiter
	maxAttempts int
	baseBackoff time.Duration
}

// NewTransport builds a transport. Non-positive values fall back to conservative defaults.
func NewTransport(name string, timeout time.Duration, rps float64, burst, maxAttempts int, baseBackoff time.Duration) *Transport {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	if rps <= 0 {
		rps = 2
	}
	if burst <= 0 {
		burst = 5
	}
	if maxAttempts <= 0 {
		maxAttempts = 3
	}
	if baseBackoff <= 0 {
		baseBackoff = 500 * time.Millisecond
	}
	return &Transport{
		name:        name,
		httpClient:  &http.Client{Timeout: timeout},
		limiter:     rate.NewLimiter(rate.Limit(rps), burst),
		maxAttempts: maxAttempts,
		baseBackoff: baseBackoff,
	}
}

// StatusError is a non-retryable (or retries exhausted) HTTP error from a provider.
type StatusError struct {
	Provider string
	Code     int
	Body     string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s api error %d: %s", e.Provider, e.Code, e.Body)
}

// PostJSON marshals payload, sends it with headers and decodes a 2xx response into out.
func (t *Transport) PostJSON(ctx context.Context, url string, headers map[string]string, payload, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}
	resp, err := t.doWithRetry(ctx, func() (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		for k, v := range headers {
			req.Header.Set(k, v)
		}
		return req, nil
	})
	if err != nil {
		metrics.IncProviderRequest(t.name, "error")
		return err
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		metrics.IncProviderRequest(t.name, "error")
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode >= 300 {
		metrics.IncProviderRequest(t.name, "error")
		return &StatusError{Provider: t.name, Code: resp.StatusCode, Body: truncateBody(raw)}
	}
	if err := json.Unmarshal(raw, out); err != nil {
		metrics.IncProviderRequest(t.name, "error")
		return fmt.Errorf("unmarshal response: %w", err)
	}
	metrics.IncProviderRequest(t.name, "ok")
	return nil
}

// doWithRetry retries 429 and 5xx responses honoring Retry-After, and transport errors with exponential backoff.
// Every attempt takes a limiter token. The last throttled response is returned as is once attempts run out.
func (t *Transport) doWithRetry(ctx context.Context, build func() (*http.Request, error)) (*http.Response, error) {
	backoff := t.baseBackoff
	var lastErr error
	for attempt := 1; attempt <= t.maxAttempts; attempt++ {
		if err := t.limiter.Wait(ctx); err != nil {
			return nil, err
		}
		req, err := build()
		if err != nil {
			return nil, err
		}
		resp, err := t.httpClient.Do(req)
		if err == nil {
			retryable := resp.StatusCode == http.StatusTooManyRequests || (resp.StatusCode >= 500 && resp.StatusCode <= 599)
			if !retryable || attempt == t.maxAttempts {
				return resp, nil
			}
			wait := retryAfter(resp.Header.Get("Retry-After"), backoff)
			_ = resp.Body.Close()
			metrics.IncProviderRetry(t.name)
			if err := util.Sleep(ctx, jitter(wait)); err != nil {
				return nil, err
			}
			backoff *= 2
			continue
		}
		lastErr = err
		if attempt == t.maxAttempts {
			break
		}
		metrics.IncProviderRetry(t.name)
		if err := util.Sleep(ctx, backoff); err != nil {
			return nil, err
		}
		backoff *= 2
	}
	return nil, fmt.Errorf("%s request failed after %d attempts: %w", t.name, t.maxAttempts, lastErr)
}

func retryAfter(h string, def time.Duration) time.Duration {
	if h == "" {
		return def
	}
	if secs, err := strconv.Atoi(h); err == nil {
		return time.Duration(secs) * time.Second
	}
	if at, err := http.ParseTime(h); err == nil {
		if d := time.Until(at); d > 0 {
			return d
		}
	}
	return def
}

// jitter spreads wait by +/-20%.
func jitter(wait time.Duration) time.Duration {
	j := time.Duration(float64(wait) * 0.2)
	if j <= 0 {
		return wait
	}
	return wait - j + time.Duration(rand.Int63n(int64(2*j)))
}

func truncateBody(b []byte) string {
	const max = 512
	if len(b) > max {
		return string(b[:max]) + "..."
	}
	return string(b)
}
