// Package search implements the Search Provider (C6): GitHub Code
// Search query execution, pagination, and mapping of matched files
// into models.SearchResult values for the Discovery Pipeline to fan
// out over.
package search

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/go-github/v45/github"

	"keyhunter/pkg/errors"
	"keyhunter/pkg/models"
)

const (
	perPage           = 100
	maxPages          = 10
	maxResultsHardCap = perPage * maxPages
	maxContentBytes   = 1 << 20 // 1 MiB
)

// Query is one expanded search query ready to execute.
type Query struct {
	Text         string
	DetectorName string
	MaxResults   int
}

type tokenContextKey struct{}

// WithToken attaches a search token to ctx, overriding the Provider's
// default token for just that request. The Discovery Pipeline uses
// this to rotate through the Token Pool's several tokens on a single
// shared Provider rather than building one Provider per token.
func WithToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, tokenContextKey{}, token)
}

// bearerTransport sets "Authorization: Bearer <token>" on every
// request, the auth scheme this system's spec mandates regardless of
// GitHub's own historical "token <pat>" convention.
type bearerTransport struct {
	token string
	base  http.RoundTripper
}

func (t *bearerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	cloned := req.Clone(req.Context())
	token := t.token
	if ctxToken, ok := req.Context().Value(tokenContextKey{}).(string); ok && ctxToken != "" {
		token = ctxToken
	}
	if token != "" {
		cloned.Header.Set("Authorization", "Bearer "+token)
	}
	base := t.base
	if base == nil {
		base = http.DefaultTransport
	}
	return base.RoundTrip(cloned)
}

// Provider executes code search queries against GitHub.
type Provider struct {
	client *github.Client
}

// NewProvider builds a Provider for token, optionally pointed at a
// GitHub Enterprise baseURL.
func NewProvider(token, baseURL string) (*Provider, error) {
	httpClient := &http.Client{
		Transport: &bearerTransport{token: token},
		Timeout:   30 * time.Second,
	}

	client := github.NewClient(httpClient)
	if baseURL != "" && baseURL != "https://api.github.com" {
		var err error
		client, err = github.NewEnterpriseClient(baseURL, baseURL, httpClient)
		if err != nil {
			return nil, errors.ConfigErr("building GitHub Enterprise client for %s: %v", baseURL, err)
		}
	}
	return &Provider{client: client}, nil
}

// Search runs q, paginating up to the spec's hard cap of 1000 results
// across 10 pages of 100, using the text-match fast path so matched
// snippets come back without a second download per file. A 422
// ("search query has too many qualifiers" or similarly invalid) is
// reported as a Validation error so callers can skip the query rather
// than aborting the whole run. A 401 is reported as an Unauthorized
// error distinct from a 403/429 rate limit, so a caller holding a
// leased token can tell "this token is dead" from "this token is
// cooling down" and react accordingly (spec §4.4's token removal vs.
// cooldown policy). The returned RateStatus reflects the last response
// GitHub actually sent, win or lose, so the Token Pool can pace the
// slot off real X-RateLimit-*/Retry-After headers instead of a flat
// default interval.
func (p *Provider) Search(ctx context.Context, q Query) ([]models.SearchResult, models.RateStatus, error) {
	maxResults := q.MaxResults
	if maxResults <= 0 || maxResults > maxResultsHardCap {
		maxResults = maxResultsHardCap
	}

	var all []*github.CodeResult
	var rate models.RateStatus
	opts := &github.SearchOptions{
		TextMatch:   true,
		ListOptions: github.ListOptions{PerPage: perPage, Page: 1},
	}

	for page := 1; page <= maxPages; page++ {
		opts.Page = page
		result, resp, err := p.client.Search.Code(ctx, q.Text, opts)
		if resp != nil {
			rate = rateStatusFromResponse(resp)
		}
		if err != nil {
			if resp != nil && resp.StatusCode == http.StatusUnauthorized {
				return nil, rate, errors.UnauthorizedErr("GitHub rejected search token (401) on %q: %v", q.Text, err)
			}
			if resp != nil && resp.StatusCode == http.StatusUnprocessableEntity {
				return nil, rate, errors.ValidationErr("query %q rejected by GitHub (422): %v", q.Text, err)
			}
			if resp != nil && (resp.StatusCode == http.StatusForbidden || resp.StatusCode == http.StatusTooManyRequests) {
				return nil, rate, errors.RateLimitedErr("GitHub search rate limited on %q: %v", q.Text, err)
			}
			return nil, rate, errors.NetworkErr(err, "searching GitHub for %q", q.Text)
		}

		all = append(all, result.CodeResults...)
		if len(all) >= maxResults || len(result.CodeResults) < perPage {
			break
		}
	}

	if len(all) > maxResults {
		all = all[:maxResults]
	}

	out := make([]models.SearchResult, 0, len(all))
	for _, item := range all {
		out = append(out, toSearchResult(item))
	}
	return out, rate, nil
}

// rateStatusFromResponse reads the rate-limit signal go-github already
// parsed onto resp.Rate, plus the raw Retry-After header go-github
// doesn't surface as a typed field.
func rateStatusFromResponse(resp *github.Response) models.RateStatus {
	status := models.RateStatus{
		StatusCode: resp.StatusCode,
		Remaining:  resp.Rate.Remaining,
		Reset:      resp.Rate.Reset.Time,
	}
	if ra := resp.Header.Get("Retry-After"); ra != "" {
		if secs, err := strconv.Atoi(ra); err == nil {
			status.RetryAfter = time.Duration(secs) * time.Second
		}
	}
	return status
}

func toSearchResult(item *github.CodeResult) models.SearchResult {
	repoFullName := ""
	defaultBranch := "main"
	if item.Repository != nil {
		repoFullName = item.Repository.GetFullName()
		if item.Repository.GetDefaultBranch() != "" {
			defaultBranch = item.Repository.GetDefaultBranch()
		}
	}

	rawURL := fmt.Sprintf("https://raw.githubusercontent.com/%s/%s/%s", repoFullName, defaultBranch, item.GetPath())

	var textMatches []string
	for _, m := range item.TextMatches {
		if m.Fragment != nil {
			textMatches = append(textMatches, *m.Fragment)
		}
	}

	return models.SearchResult{
		Repository:    repoFullName,
		FilePath:      item.GetPath(),
		FileURL:       item.GetHTMLURL(),
		RawURL:        rawURL,
		SHA:           item.GetSHA(),
		DefaultBranch: defaultBranch,
		TextMatches:   textMatches,
	}
}

// FetchContent downloads a matched file's raw content over client,
// enforcing the spec's §4.5 size cap: reading stops at maxContentBytes
// plus one byte, and a file whose body turns out to exceed the cap is
// skipped entirely (ok is false) rather than scanned as a truncated
// prefix, per §8's "1 MiB + 1 byte is skipped" boundary.
func (p *Provider) FetchContent(ctx context.Context, client *http.Client, rawURL string) (content string, ok bool, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", false, errors.NetworkErr(err, "building request for %s", rawURL)
	}
	resp, err := client.Do(req)
	if err != nil {
		return "", false, errors.NetworkErr(err, "fetching %s", rawURL)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", false, errors.NetworkErr(nil, "fetching %s: HTTP %d", rawURL, resp.StatusCode)
	}

	body, err := readAllLimited(resp.Body, maxContentBytes+1)
	if err != nil {
		return "", false, errors.NetworkErr(err, "reading %s", rawURL)
	}
	if len(body) > maxContentBytes {
		return "", false, nil
	}
	return string(body), true, nil
}

// readAllLimited reads at most limit bytes from r, letting the caller
// detect "exceeds the cap" (len(body) == limit, since limit is the cap
// plus one probe byte) without ever buffering more than limit bytes of
// an oversized file.
func readAllLimited(r io.Reader, limit int64) ([]byte, error) {
	return io.ReadAll(io.LimitReader(r, limit))
}

// HasTextMatches reports whether a result already carries inline
// snippets from the text-match fast path, letting the pipeline skip a
// content download entirely when the matched fragment is enough for
// detection.
func HasTextMatches(r models.SearchResult) bool {
	return len(r.TextMatches) > 0
}

// JoinTextMatches concatenates a result's text-match fragments into one
// content blob suitable for feeding straight into a Detector.
func JoinTextMatches(r models.SearchResult) string {
	return strings.Join(r.TextMatches, "\n")
}
