package detect

import (
	"regexp"

	"keyhunter/pkg/models"
)

var githubPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)github.*['"][0-9a-zA-Z]{35,40}['"]`),
	regexp.MustCompile(`ghp_[0-9a-zA-Z]{36}`),
	regexp.MustCompile(`gho_[0-9a-zA-Z]{36}`),
	regexp.MustCompile(`(ghu|ghs)_[0-9a-zA-Z]{36}`),
	regexp.MustCompile(`ghr_[0-9a-zA-Z]{36}`),
}

// GitHubDetector finds GitHub personal access, OAuth, App, and refresh
// tokens, plus a quoted-token fallback pattern for older formats.
type GitHubDetector struct{}

func NewGitHubDetector() *GitHubDetector { return &GitHubDetector{} }

func (d *GitHubDetector) Name() string { return "github" }

func (d *GitHubDetector) Detect(content, filePath string) []models.DetectedKey {
	var out []models.DetectedKey
	for _, pattern := range githubPatterns {
		for _, loc := range pattern.FindAllStringIndex(content, -1) {
			key := content[loc[0]:loc[1]]
			line, _ := lineContext(content, loc[0], 2)
			out = append(out, models.DetectedKey{
				Key: key, KeyType: "github", FilePath: filePath, LineNumber: line,
			})
		}
	}
	return out
}

func (d *GitHubDetector) SearchQueries() []string { return []string{"GITHUB_TOKEN"} }

func (d *GitHubDetector) FileExtensions() []string {
	return []string{".env", ".py", ".js", ".json", ".yaml", ".yml", ".txt", ".config", ".sh"}
}
