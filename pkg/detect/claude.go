package detect

import (
	"regexp"

	"keyhunter/pkg/models"
)

var claudePattern = regexp.MustCompile(`sk-ant-api03-[A-Za-z0-9_-]{95,110}`)

// ClaudeDetector finds Anthropic API keys in the sk-ant-api03- format.
type ClaudeDetector struct{}

func NewClaudeDetector() *ClaudeDetector { return &ClaudeDetector{} }

func (d *ClaudeDetector) Name() string { return "claude" }

func (d *ClaudeDetector) Detect(content, filePath string) []models.DetectedKey {
	var out []models.DetectedKey
	for _, loc := range claudePattern.FindAllStringIndex(content, -1) {
		key := content[loc[0]:loc[1]]
		line, _ := lineContext(content, loc[0], 2)
		out = append(out, models.DetectedKey{
			Key: key, KeyType: "claude", FilePath: filePath, LineNumber: line,
		})
	}
	return out
}

func (d *ClaudeDetector) SearchQueries() []string {
	return []string{"ANTHROPIC_API_KEY", "CLAUDE_API_KEY"}
}

func (d *ClaudeDetector) FileExtensions() []string {
	return []string{".env", ".py", ".js", ".json", ".yaml", ".yml", ".txt", ".config"}
}
