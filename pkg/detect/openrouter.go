package detect

import (
	"regexp"

	"keyhunter/pkg/models"
)

var openRouterPattern = regexp.MustCompile(`sk-or-v1-[a-f0-9]{64}`)

// OpenRouterDetector finds OpenRouter API keys.
type OpenRouterDetector struct{}

func NewOpenRouterDetector() *OpenRouterDetector { return &OpenRouterDetector{} }

func (d *OpenRouterDetector) Name() string { return "openrouter" }

func (d *OpenRouterDetector) Detect(content, filePath string) []models.DetectedKey {
	var out []models.DetectedKey
	for _, loc := range openRouterPattern.FindAllStringIndex(content, -1) {
		key := content[loc[0]:loc[1]]
		line, _ := lineContext(content, loc[0], 2)
		out = append(out, models.DetectedKey{
			Key: key, KeyType: "openrouter", FilePath: filePath, LineNumber: line,
		})
	}
	return out
}

func (d *OpenRouterDetector) SearchQueries() []string { return []string{"OPENROUTER_API_KEY"} }

func (d *OpenRouterDetector) FileExtensions() []string {
	return []string{".env", ".py", ".js", ".json", ".yml", ".yaml", ".sh", ".go", ".rs", ".ts", ".txt"}
}
