package detect

import (
	"regexp"

	"keyhunter/pkg/models"
)

var shodanPattern = regexp.MustCompile(`\b[A-Za-z0-9]{32}\b`)

// ShodanDetector finds 32-character alphanumeric Shodan API keys,
// filtering out MD5 hashes and low-entropy strings that happen to
// share the length.
type ShodanDetector struct{}

func NewShodanDetector() *ShodanDetector { return &ShodanDetector{} }

func (d *ShodanDetector) Name() string { return "shodan" }

func (d *ShodanDetector) Detect(content, filePath string) []models.DetectedKey {
	var out []models.DetectedKey
	for _, loc := range shodanPattern.FindAllStringIndex(content, -1) {
		key := content[loc[0]:loc[1]]
		if !d.filterKey(key) {
			continue
		}
		line, _ := lineContext(content, loc[0], 2)
		out = append(out, models.DetectedKey{
			Key: key, KeyType: "shodan", FilePath: filePath, LineNumber: line,
		})
	}
	return out
}

func (d *ShodanDetector) filterKey(key string) bool {
	if len(key) != 32 {
		return false
	}
	if !hasMixedCase(key) || !hasDigit(key) {
		return false
	}
	if looksLikeHash(key) {
		return false
	}
	return hasMinEntropy(key, 4.0)
}

func (d *ShodanDetector) SearchQueries() []string { return []string{"SHODAN_API_KEY"} }

func (d *ShodanDetector) FileExtensions() []string {
	return []string{".env", ".py", ".js", ".json", ".yml", ".yaml", ".sh", ".go", ".rs"}
}
