package detect

import (
	"regexp"

	"keyhunter/pkg/models"
)

var geminiPattern = regexp.MustCompile(`AIza[0-9A-Za-z\-_]{35}`)

// GeminiDetector finds Google AI Studio / Gemini API keys (AIza...).
type GeminiDetector struct{}

func NewGeminiDetector() *GeminiDetector { return &GeminiDetector{} }

func (d *GeminiDetector) Name() string { return "gemini" }

func (d *GeminiDetector) Detect(content, filePath string) []models.DetectedKey {
	var out []models.DetectedKey
	for _, loc := range geminiPattern.FindAllStringIndex(content, -1) {
		key := content[loc[0]:loc[1]]
		line, _ := lineContext(content, loc[0], 2)
		out = append(out, models.DetectedKey{
			Key: key, KeyType: "gemini", FilePath: filePath, LineNumber: line,
		})
	}
	return out
}

func (d *GeminiDetector) SearchQueries() []string {
	return []string{
		"GEMINI_API_KEY",
		"generativelanguage.googleapis.com",
		"AIza extension:env",
		"AIza extension:py",
		"AIza extension:js",
		"gemini-pro",
		"gemini-flash",
		"GenerativeModel",
	}
}

func (d *GeminiDetector) FileExtensions() []string {
	return []string{".env", ".py", ".js", ".json", ".yaml", ".yml", ".txt", ".config", ".toml"}
}
