package validate

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"keyhunter/pkg/errors"
	"keyhunter/pkg/httpclient"
	"keyhunter/pkg/models"
)

type shodanAPIInfo struct {
	Plan         string `json:"plan"`
	QueryCredits int    `json:"query_credits"`
	ScanCredits  int    `json:"scan_credits"`
	HTTPS        bool   `json:"https"`
}

// ShodanValidator confirms a Shodan API key via the api-info endpoint.
type ShodanValidator struct {
	rateLimit time.Duration
}

func (v *ShodanValidator) KeyType() string               { return "shodan" }
func (v *ShodanValidator) DefaultRateLimit() time.Duration { return v.rateLimit }

func (v *ShodanValidator) Validate(ctx context.Context, client *httpclient.Client, key string) (models.ValidationResult, error) {
	url := fmt.Sprintf("https://api.shodan.io/api-info?key=%s", key)
	resp, err := getWithRetry(ctx, client, url, map[string]string{"Accept": "application/json"})
	if err != nil {
		return models.ValidationResult{}, err
	}

	switch {
	case resp.StatusCode == http.StatusOK:
		var info shodanAPIInfo
		if err := json.Unmarshal(resp.Body, &info); err != nil {
			return models.ValidationResult{}, errors.ValidationErr("parsing Shodan response (possible rate limit page): %v", err)
		}
		metadata := map[string]string{}
		if info.Plan != "" {
			metadata["plan"] = info.Plan
		}
		metadata["query_credits"] = fmt.Sprint(info.QueryCredits)
		metadata["scan_credits"] = fmt.Sprint(info.ScanCredits)
		metadata["https"] = fmt.Sprint(info.HTTPS)
		return models.ValidationResult{Valid: true, KeyType: "shodan", Message: "valid", Metadata: metadata}, nil

	case resp.StatusCode == http.StatusUnauthorized:
		return models.ValidationResult{Valid: false, KeyType: "shodan", Message: "unauthorized - key is invalid or revoked"}, nil

	case resp.StatusCode == http.StatusForbidden:
		return models.ValidationResult{Valid: false, KeyType: "shodan", Message: "unauthorized - key lacks required permissions"}, nil

	case resp.IsRateLimited():
		return models.ValidationResult{}, errors.RateLimitedErr("Shodan API rate limit exceeded")

	case resp.IsServerError():
		return models.ValidationResult{}, errors.NetworkErr(nil, "Shodan API server error: HTTP %d", resp.StatusCode)

	default:
		return models.ValidationResult{}, errors.ValidationErr("Shodan API returned HTTP %d", resp.StatusCode)
	}
}
