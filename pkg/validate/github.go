package validate

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"keyhunter/pkg/errors"
	"keyhunter/pkg/httpclient"
	"keyhunter/pkg/models"
)

type githubUser struct {
	Login string `json:"login"`
	ID    int64  `json:"id"`
	Type  string `json:"type"`
}

// GitHubValidator confirms a GitHub token via GET /user. A 403 is
// disambiguated by inspecting the response body for GitHub's rate-limit
// wording, since GitHub overloads 403 for both "rate limited" and
// "token valid but lacks scope".
type GitHubValidator struct {
	rateLimit time.Duration
}

func (v *GitHubValidator) KeyType() string                { return "github" }
func (v *GitHubValidator) DefaultRateLimit() time.Duration { return v.rateLimit }

func (v *GitHubValidator) Validate(ctx context.Context, client *httpclient.Client, key string) (models.ValidationResult, error) {
	headers := map[string]string{
		"Authorization": "Bearer " + key,
		"User-Agent":    "keyhunter",
		"Accept":        "application/vnd.github+json",
	}
	resp, err := getWithRetry(ctx, client, "https://api.github.com/user", headers)
	if err != nil {
		return models.ValidationResult{}, err
	}

	switch {
	case resp.StatusCode == http.StatusOK:
		var user githubUser
		if err := json.Unmarshal(resp.Body, &user); err != nil {
			return models.ValidationResult{Valid: true, KeyType: "github", Message: "valid (200 OK)"}, nil
		}
		metadata := map[string]string{
			"login":   user.Login,
			"user_id": fmt.Sprint(user.ID),
		}
		if user.Type != "" {
			metadata["type"] = user.Type
		}
		return models.ValidationResult{Valid: true, KeyType: "github", Message: "valid", Metadata: metadata}, nil

	case resp.StatusCode == http.StatusUnauthorized:
		return models.ValidationResult{Valid: false, KeyType: "github", Message: "unauthorized - token is invalid or revoked"}, nil

	case resp.StatusCode == http.StatusForbidden:
		body := strings.ToLower(string(resp.Body))
		if strings.Contains(body, "rate limit") {
			return models.ValidationResult{}, errors.RateLimitedErr("GitHub API rate limit exceeded")
		}
		return models.ValidationResult{}, errors.ValidationErr("token valid but lacks required permissions")

	case resp.IsRateLimited():
		return models.ValidationResult{}, errors.RateLimitedErr("GitHub API rate limit exceeded")

	case resp.IsServerError():
		return models.ValidationResult{}, errors.NetworkErr(nil, "GitHub API server error: HTTP %d", resp.StatusCode)

	default:
		return models.ValidationResult{}, errors.ValidationErr("GitHub API returned HTTP %d", resp.StatusCode)
	}
}
