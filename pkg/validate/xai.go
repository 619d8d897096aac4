package validate

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"keyhunter/pkg/errors"
	"keyhunter/pkg/httpclient"
	"keyhunter/pkg/models"
)

type xaiKeyResponse struct {
	UserID string `json:"user_id"`
	TeamID string `json:"team_id"`
	Name   string `json:"name"`
}

type xaiErrorResponse struct {
	Error string `json:"error"`
}

// XAIValidator confirms an xAI key via GET /v1/api-key.
type XAIValidator struct {
	rateLimit time.Duration
}

func (v *XAIValidator) KeyType() string                { return "xai" }
func (v *XAIValidator) DefaultRateLimit() time.Duration { return v.rateLimit }

func (v *XAIValidator) Validate(ctx context.Context, client *httpclient.Client, key string) (models.ValidationResult, error) {
	headers := map[string]string{
		"Authorization": "Bearer " + key,
		"Accept":        "application/json",
	}
	resp, err := getWithRetry(ctx, client, "https://api.x.ai/v1/api-key", headers)
	if err != nil {
		return models.ValidationResult{}, err
	}

	switch {
	case resp.StatusCode == http.StatusOK:
		var parsed xaiKeyResponse
		if err := json.Unmarshal(resp.Body, &parsed); err != nil {
			return models.ValidationResult{Valid: true, KeyType: "xai", Message: "valid (200 OK)"}, nil
		}
		metadata := map[string]string{}
		if parsed.UserID != "" {
			metadata["user_id"] = parsed.UserID
		}
		if parsed.TeamID != "" {
			metadata["team_id"] = parsed.TeamID
		}
		if parsed.Name != "" {
			metadata["key_name"] = parsed.Name
		}
		return models.ValidationResult{Valid: true, KeyType: "xai", Message: "valid", Metadata: metadata}, nil

	case resp.StatusCode == http.StatusBadRequest || resp.StatusCode == http.StatusUnauthorized:
		msg := "invalid API key"
		var errResp xaiErrorResponse
		if err := json.Unmarshal(resp.Body, &errResp); err == nil && errResp.Error != "" {
			msg = errResp.Error
		}
		return models.ValidationResult{Valid: false, KeyType: "xai", Message: msg}, nil

	case resp.StatusCode == http.StatusForbidden:
		return models.ValidationResult{Valid: false, KeyType: "xai", Message: "forbidden - key may be invalid or API not enabled"}, nil

	case resp.IsRateLimited():
		return models.ValidationResult{}, errors.RateLimitedErr("xAI API rate limit exceeded")

	case resp.IsServerError():
		return models.ValidationResult{}, errors.NetworkErr(nil, "xAI API server error: HTTP %d", resp.StatusCode)

	default:
		return models.ValidationResult{}, errors.ValidationErr("xAI API returned HTTP %d", resp.StatusCode)
	}
}
