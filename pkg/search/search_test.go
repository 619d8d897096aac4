package search

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/go-github/v45/github"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"keyhunter/pkg/models"
)

func TestExpandQueriesIsCartesianProduct(t *testing.T) {
	queries := ExpandQueries([]string{"OPENAI_API_KEY", "OPENAI_KEY"}, "openai", 100)
	assert.Len(t, queries, 2*len(fileTypeQualifiers))
	for _, q := range queries {
		assert.Equal(t, "openai", q.DetectorName)
		assert.Equal(t, 100, q.MaxResults)
	}
}

func TestFileTypeQualifiersHasSeventySeven(t *testing.T) {
	assert.Len(t, fileTypeQualifiers, 77)
}

func TestToSearchResultBuildsRawURLFromDefaultBranch(t *testing.T) {
	item := &github.CodeResult{
		Path:    github.String("configs/.env"),
		HTMLURL: github.String("https://github.com/octo/cat/blob/main/configs/.env"),
		SHA:     github.String("abc123"),
		Repository: &github.Repository{
			FullName:      github.String("octo/cat"),
			DefaultBranch: github.String("main"),
		},
		TextMatches: []*github.TextMatch{
			{Fragment: github.String("OPENAI_API_KEY=sk-test")},
		},
	}

	result := toSearchResult(item)
	require.Equal(t, "octo/cat", result.Repository)
	assert.Equal(t, "https://raw.githubusercontent.com/octo/cat/main/configs/.env", result.RawURL)
	assert.Equal(t, "abc123", result.SHA)
	assert.True(t, HasTextMatches(result))
	assert.Equal(t, "OPENAI_API_KEY=sk-test", JoinTextMatches(result))
}

func TestToSearchResultDefaultsBranchWhenMissing(t *testing.T) {
	item := &github.CodeResult{
		Path:    github.String("x.env"),
		HTMLURL: github.String("https://github.com/octo/cat/blob/main/x.env"),
		Repository: &github.Repository{
			FullName: github.String("octo/cat"),
		},
	}
	result := toSearchResult(item)
	assert.Equal(t, "main", result.DefaultBranch)
}

func TestHasTextMatchesFalseWhenEmpty(t *testing.T) {
	assert.False(t, HasTextMatches(models.SearchResult{}))
}

func TestRateStatusFromResponseReadsRetryAfterHeader(t *testing.T) {
	resp := &github.Response{
		Response: &http.Response{
			StatusCode: 403,
			Header:     http.Header{"Retry-After": []string{"30"}},
		},
	}
	resp.Rate.Remaining = 0
	status := rateStatusFromResponse(resp)
	assert.Equal(t, 403, status.StatusCode)
	assert.Equal(t, 30*time.Second, status.RetryAfter)
	assert.Equal(t, 0, status.Remaining)
}

func TestRateStatusFromResponseWithoutRetryAfterHeader(t *testing.T) {
	resp := &github.Response{Response: &http.Response{StatusCode: 200, Header: http.Header{}}}
	resp.Rate.Remaining = 42
	status := rateStatusFromResponse(resp)
	assert.Equal(t, 200, status.StatusCode)
	assert.Zero(t, status.RetryAfter)
	assert.Equal(t, 42, status.Remaining)
}

func TestFetchContentReturnsBodyUnderCap(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("OPENAI_API_KEY=sk-test"))
	}))
	defer srv.Close()

	p := &Provider{}
	content, ok, err := p.FetchContent(context.Background(), srv.Client(), srv.URL)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "OPENAI_API_KEY=sk-test", content)
}

func TestFetchContentSkipsEntirelyWhenOverCap(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(strings.Repeat("a", maxContentBytes+1)))
	}))
	defer srv.Close()

	p := &Provider{}
	content, ok, err := p.FetchContent(context.Background(), srv.Client(), srv.URL)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Empty(t, content)
}

func TestFetchContentReturnsBodyExactlyAtCap(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(strings.Repeat("a", maxContentBytes)))
	}))
	defer srv.Close()

	p := &Provider{}
	content, ok, err := p.FetchContent(context.Background(), srv.Client(), srv.URL)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Len(t, content, maxContentBytes)
}

func TestFetchContentErrorsOnNonOKStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	p := &Provider{}
	_, ok, err := p.FetchContent(context.Background(), srv.Client(), srv.URL)
	assert.Error(t, err)
	assert.False(t, ok)
}
