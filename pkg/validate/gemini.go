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

type geminiModelsResponse struct {
	Models []struct {
		Name string `json:"name"`
	} `json:"models"`
}

// GeminiValidator confirms a Google AI Studio key via GET
// /v1beta/models?key=...
type GeminiValidator struct {
	rateLimit time.Duration
}

func (v *GeminiValidator) KeyType() string                { return "gemini" }
func (v *GeminiValidator) DefaultRateLimit() time.Duration { return v.rateLimit }

func (v *GeminiValidator) Validate(ctx context.Context, client *httpclient.Client, key string) (models.ValidationResult, error) {
	url := fmt.Sprintf("https://generativelanguage.googleapis.com/v1beta/models?key=%s", key)
	resp, err := getWithRetry(ctx, client, url, map[string]string{"Accept": "application/json"})
	if err != nil {
		return models.ValidationResult{}, err
	}

	switch {
	case resp.StatusCode == http.StatusOK:
		var parsed geminiModelsResponse
		if err := json.Unmarshal(resp.Body, &parsed); err != nil {
			return models.ValidationResult{Valid: true, KeyType: "gemini", Message: "valid (200 OK)"}, nil
		}
		names := make([]string, 0, 3)
		for i, m := range parsed.Models {
			if i >= 3 {
				break
			}
			names = append(names, m.Name)
		}
		metadata := map[string]string{"model_count": fmt.Sprint(len(parsed.Models))}
		if len(names) > 0 {
			metadata["sample_models"] = strings.Join(names, ", ")
		}
		return models.ValidationResult{Valid: true, KeyType: "gemini", Message: "valid", Metadata: metadata}, nil

	case resp.StatusCode == http.StatusBadRequest:
		return models.ValidationResult{Valid: false, KeyType: "gemini", Message: "invalid API key"}, nil

	case resp.StatusCode == http.StatusForbidden:
		return models.ValidationResult{Valid: false, KeyType: "gemini", Message: "forbidden - key may be invalid or API not enabled"}, nil

	case resp.IsRateLimited():
		return models.ValidationResult{}, errors.RateLimitedErr("Gemini API rate limit exceeded")

	case resp.IsServerError():
		return models.ValidationResult{}, errors.NetworkErr(nil, "Gemini API server error: HTTP %d", resp.StatusCode)

	default:
		return models.ValidationResult{}, errors.ValidationErr("Gemini API returned HTTP %d", resp.StatusCode)
	}
}
