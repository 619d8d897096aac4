package validate

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"keyhunter/pkg/httpclient"
)

const maxRetryAfter = 60 * time.Second

// getWithRetry issues a GET and, if the response is rate-limited
// (429), waits out its Retry-After (capped at maxRetryAfter, defaulting
// to 5s when absent) and retries exactly once before giving the
// caller whatever it gets back. None of the issuing APIs are retried
// more than once: a validator run should fail fast rather than stall
// the Rate Limiter gate behind a single stubborn key.
func getWithRetry(ctx context.Context, client *httpclient.Client, url string, headers map[string]string) (*httpclient.Response, error) {
	resp, err := client.Get(ctx, url, headers)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusTooManyRequests {
		return resp, nil
	}

	wait := retryAfterDuration(resp.Headers.Get("Retry-After"))
	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case <-timer.C:
	case <-ctx.Done():
		return resp, ctx.Err()
	}

	return client.Get(ctx, url, headers)
}

func retryAfterDuration(header string) time.Duration {
	if header == "" {
		return 5 * time.Second
	}
	seconds, err := strconv.Atoi(header)
	if err != nil || seconds < 0 {
		return 5 * time.Second
	}
	d := time.Duration(seconds) * time.Second
	if d > maxRetryAfter {
		return maxRetryAfter
	}
	return d
}
