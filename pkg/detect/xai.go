package detect

import (
	"regexp"

	"keyhunter/pkg/models"
)

var xaiPattern = regexp.MustCompile(`xai-[0-9A-Za-z]{70,85}`)

// XAIDetector finds xAI (Grok) API keys.
type XAIDetector struct{}

func NewXAIDetector() *XAIDetector { return &XAIDetector{} }

func (d *XAIDetector) Name() string { return "xai" }

func (d *XAIDetector) Detect(content, filePath string) []models.DetectedKey {
	var out []models.DetectedKey
	for _, loc := range xaiPattern.FindAllStringIndex(content, -1) {
		key := content[loc[0]:loc[1]]
		line, _ := lineContext(content, loc[0], 2)
		out = append(out, models.DetectedKey{
			Key: key, KeyType: "xai", FilePath: filePath, LineNumber: line,
		})
	}
	return out
}

func (d *XAIDetector) SearchQueries() []string {
	return []string{"XAI_API_KEY", "GROK_API_KEY"}
}

func (d *XAIDetector) FileExtensions() []string {
	return []string{".env", ".py", ".js", ".json", ".yaml", ".yml", ".txt", ".config", ".toml"}
}
