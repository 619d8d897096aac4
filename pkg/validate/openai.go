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

type openAIModelsResponse struct {
	Data []struct {
		ID string `json:"id"`
	} `json:"data"`
}

// OpenAIValidator confirms an OpenAI API key via GET /v1/models.
type OpenAIValidator struct {
	rateLimit time.Duration
}

func (v *OpenAIValidator) KeyType() string                { return "openai" }
func (v *OpenAIValidator) DefaultRateLimit() time.Duration { return v.rateLimit }

func (v *OpenAIValidator) Validate(ctx context.Context, client *httpclient.Client, key string) (models.ValidationResult, error) {
	headers := map[string]string{
		"Authorization": "Bearer " + key,
		"Content-Type":  "application/json",
	}
	resp, err := getWithRetry(ctx, client, "https://api.openai.com/v1/models", headers)
	if err != nil {
		return models.ValidationResult{}, err
	}

	switch {
	case resp.StatusCode == http.StatusOK:
		var models_ openAIModelsResponse
		if err := json.Unmarshal(resp.Body, &models_); err != nil {
			return models.ValidationResult{Valid: true, KeyType: "openai", Message: "valid (200 OK)"}, nil
		}
		names := make([]string, 0, 3)
		for i, m := range models_.Data {
			if i >= 3 {
				break
			}
			names = append(names, m.ID)
		}
		metadata := map[string]string{"model_count": fmt.Sprint(len(models_.Data))}
		if len(names) > 0 {
			metadata["sample_models"] = strings.Join(names, ", ")
		}
		return models.ValidationResult{Valid: true, KeyType: "openai", Message: "valid", Metadata: metadata}, nil

	case resp.StatusCode == http.StatusUnauthorized:
		return models.ValidationResult{Valid: false, KeyType: "openai", Message: "unauthorized - key is invalid or revoked"}, nil

	case resp.StatusCode == http.StatusForbidden:
		return models.ValidationResult{Valid: false, KeyType: "openai", Message: "unauthorized - key lacks required permissions"}, nil

	case resp.IsRateLimited():
		return models.ValidationResult{}, errors.RateLimitedErr("OpenAI API rate limit exceeded")

	case resp.IsServerError():
		return models.ValidationResult{}, errors.NetworkErr(nil, "OpenAI API server error: HTTP %d", resp.StatusCode)

	default:
		return models.ValidationResult{}, errors.ValidationErr("OpenAI API returned HTTP %d", resp.StatusCode)
	}
}
