package search

import (
	"net/http"
	"strings"
	"time"

	"github.com/bradleyfalzon/ghinstallation/v2"
	"github.com/google/go-github/v45/github"

	"keyhunter/pkg/errors"
)

// NewProviderFromApp builds a Provider authenticated as a GitHub App
// installation rather than a personal access token, for operators who
// would rather grant this system scoped, revocable installation access
// than hand it a long-lived PAT. Search's per-request token override
// (WithToken) is meaningless under this transport since ghinstallation
// manages its own token refresh; a request-scoped override is simply
// ignored.
func NewProviderFromApp(appID, installationID int64, privateKeyPEM []byte, baseURL string) (*Provider, error) {
	itr, err := ghinstallation.New(http.DefaultTransport, appID, installationID, privateKeyPEM)
	if err != nil {
		return nil, errors.ConfigErr("building GitHub App installation transport: %v", err)
	}

	if baseURL != "" && baseURL != "https://api.github.com" {
		itr.BaseURL = strings.TrimSuffix(baseURL, "/")
	}

	httpClient := &http.Client{Transport: itr, Timeout: 30 * time.Second}

	var client *github.Client
	if baseURL != "" && baseURL != "https://api.github.com" {
		client, err = github.NewEnterpriseClient(baseURL, baseURL, httpClient)
		if err != nil {
			return nil, errors.ConfigErr("building GitHub Enterprise App client for %s: %v", baseURL, err)
		}
	} else {
		client = github.NewClient(httpClient)
	}

	return &Provider{client: client}, nil
}
