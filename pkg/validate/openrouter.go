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

type openRouterCreditsResponse struct {
	Data struct {
		TotalCredits float64 `json:"total_credits"`
		TotalUsage   float64 `json:"total_usage"`
	} `json:"data"`
}

// OpenRouterValidator confirms an OpenRouter key via GET
// /api/v1/credits.
type OpenRouterValidator struct {
	rateLimit time.Duration
}

func (v *OpenRouterValidator) KeyType() string                { return "openrouter" }
func (v *OpenRouterValidator) DefaultRateLimit() time.Duration { return v.rateLimit }

func (v *OpenRouterValidator) Validate(ctx context.Context, client *httpclient.Client, key string) (models.ValidationResult, error) {
	headers := map[string]string{"Authorization": "Bearer " + key}
	resp, err := getWithRetry(ctx, client, "https://openrouter.ai/api/v1/credits", headers)
	if err != nil {
		return models.ValidationResult{}, err
	}

	switch {
	case resp.StatusCode == http.StatusOK:
		var parsed openRouterCreditsResponse
		if err := json.Unmarshal(resp.Body, &parsed); err != nil {
			return models.ValidationResult{Valid: true, KeyType: "openrouter", Message: "valid (200 OK)"}, nil
		}
		remaining := parsed.Data.TotalCredits - parsed.Data.TotalUsage
		metadata := map[string]string{
			"total_credits":     fmt.Sprintf("%.4f", parsed.Data.TotalCredits),
			"total_usage":       fmt.Sprintf("%.4f", parsed.Data.TotalUsage),
			"remaining_credits": fmt.Sprintf("%.4f", remaining),
		}
		return models.ValidationResult{Valid: true, KeyType: "openrouter", Message: "valid", Metadata: metadata}, nil

	case resp.StatusCode == http.StatusUnauthorized:
		return models.ValidationResult{Valid: false, KeyType: "openrouter", Message: "unauthorized - key is invalid or revoked"}, nil

	case resp.StatusCode == http.StatusForbidden:
		return models.ValidationResult{Valid: false, KeyType: "openrouter", Message: "forbidden - key lacks required permissions"}, nil

	case resp.IsRateLimited():
		return models.ValidationResult{}, errors.RateLimitedErr("OpenRouter API rate limit exceeded")

	case resp.IsServerError():
		return models.ValidationResult{}, errors.NetworkErr(nil, "OpenRouter API server error: HTTP %d", resp.StatusCode)

	default:
		return models.ValidationResult{}, errors.ValidationErr("OpenRouter API returned HTTP %d", resp.StatusCode)
	}
}
