package detect

import (
	"regexp"

	"keyhunter/pkg/models"
)

var openAIPattern = regexp.MustCompile(`sk-[a-zA-Z0-9]{48}`)

// OpenAIDetector finds legacy-format OpenAI API keys: "sk-" followed by
// 48 alphanumeric characters.
type OpenAIDetector struct{}

func NewOpenAIDetector() *OpenAIDetector { return &OpenAIDetector{} }

func (d *OpenAIDetector) Name() string { return "openai" }

func (d *OpenAIDetector) Detect(content, filePath string) []models.DetectedKey {
	var out []models.DetectedKey
	for _, loc := range openAIPattern.FindAllStringIndex(content, -1) {
		key := content[loc[0]:loc[1]]
		line, _ := lineContext(content, loc[0], 2)
		out = append(out, models.DetectedKey{
			Key: key, KeyType: "openai", FilePath: filePath, LineNumber: line,
		})
	}
	return out
}

func (d *OpenAIDetector) SearchQueries() []string {
	return []string{
		"OPENAI_API_KEY",
		"sk- AND openai",
		"openai AND api_key extension:env",
		"openai AND api_key extension:py",
		"openai AND api_key extension:json",
		"openai AND api_key extension:js",
		"openai AND api_key extension:ts",
		`"sk-" extension:env`,
		"OPENAI_KEY",
	}
}

func (d *OpenAIDetector) FileExtensions() []string {
	return []string{".env", ".py", ".js", ".json", ".yml", ".yaml", ".sh", ".go", ".rs", ".ts", ".txt"}
}
