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

type claudeModelsResponse struct {
	Data []struct {
		ID          string `json:"id"`
		DisplayName string `json:"display_name"`
	} `json:"data"`
}

type claudeErrorResponse struct {
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// ClaudeValidator confirms an Anthropic API key via GET /v1/models, the
// free endpoint that doesn't consume tokens.
type ClaudeValidator struct {
	rateLimit time.Duration
}

func (v *ClaudeValidator) KeyType() string                { return "claude" }
func (v *ClaudeValidator) DefaultRateLimit() time.Duration { return v.rateLimit }

func (v *ClaudeValidator) Validate(ctx context.Context, client *httpclient.Client, key string) (models.ValidationResult, error) {
	headers := map[string]string{
		"x-api-key":         key,
		"anthropic-version": "2023-06-01",
	}
	resp, err := getWithRetry(ctx, client, "https://api.anthropic.com/v1/models", headers)
	if err != nil {
		return models.ValidationResult{}, err
	}

	switch {
	case resp.StatusCode == http.StatusOK:
		var parsed claudeModelsResponse
		if err := json.Unmarshal(resp.Body, &parsed); err != nil {
			return models.ValidationResult{Valid: true, KeyType: "claude", Message: "valid (200 OK)"}, nil
		}
		names := make([]string, 0, 3)
		for i, m := range parsed.Data {
			if i >= 3 {
				break
			}
			if m.DisplayName != "" {
				names = append(names, m.DisplayName)
			} else {
				names = append(names, m.ID)
			}
		}
		metadata := map[string]string{"model_count": fmt.Sprint(len(parsed.Data))}
		if len(names) > 0 {
			metadata["sample_models"] = strings.Join(names, ", ")
		}
		return models.ValidationResult{Valid: true, KeyType: "claude", Message: "valid", Metadata: metadata}, nil

	case resp.StatusCode == http.StatusUnauthorized:
		msg := "unauthorized - invalid API key"
		var errResp claudeErrorResponse
		if err := json.Unmarshal(resp.Body, &errResp); err == nil && errResp.Error != nil && errResp.Error.Message != "" {
			msg = errResp.Error.Message
		}
		return models.ValidationResult{Valid: false, KeyType: "claude", Message: msg}, nil

	case resp.StatusCode == http.StatusForbidden:
		return models.ValidationResult{Valid: false, KeyType: "claude", Message: "unauthorized - key lacks required permissions"}, nil

	case resp.IsRateLimited():
		return models.ValidationResult{}, errors.RateLimitedErr("Claude API rate limit exceeded")

	case resp.IsServerError():
		return models.ValidationResult{}, errors.NetworkErr(nil, "Claude API server error: HTTP %d", resp.StatusCode)

	default:
		return models.ValidationResult{}, errors.ValidationErr("Claude API returned HTTP %d", resp.StatusCode)
	}
}
