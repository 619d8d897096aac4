package detect

import (
	"regexp"
	"strings"

	"keyhunter/pkg/models"
)

var (
	genericAPIKeyPattern = regexp.MustCompile(`(?i)api_?key.*['"][0-9a-zA-Z]{32,45}['"]`)
	genericSecretPattern = regexp.MustCompile(`(?i)secret.*['"][0-9a-zA-Z]{32,45}['"]`)
	quotedValuePattern   = regexp.MustCompile(`['"]([0-9a-zA-Z]{32,45})['"]`)
)

// GenericDetector flags api_key/secret-labelled strings that don't
// match any specific credential family's format. It has no validator:
// findings land straight in the Results Sink unvalidated, the one
// exception to "only validated findings are written" for this single
// family, exactly as the reporting side keeps generic findings
// separate from validated ones.
type GenericDetector struct{}

func NewGenericDetector() *GenericDetector { return &GenericDetector{} }

func (d *GenericDetector) Name() string { return "generic" }

func (d *GenericDetector) Detect(content, filePath string) []models.DetectedKey {
	var out []models.DetectedKey
	for _, m := range []struct {
		pattern *regexp.Regexp
		keyType string
	}{
		{genericAPIKeyPattern, "generic_api_key"},
		{genericSecretPattern, "generic_secret"},
	} {
		for _, loc := range m.pattern.FindAllStringIndex(content, -1) {
			matched := content[loc[0]:loc[1]]
			value := extractQuotedValue(matched)
			if value == "" || !hasMinEntropy(value, 3.0) {
				continue
			}
			line, _ := lineContext(content, loc[0], 2)
			out = append(out, models.DetectedKey{
				Key: value, KeyType: m.keyType, FilePath: filePath, LineNumber: line,
			})
		}
	}
	return out
}

func extractQuotedValue(matched string) string {
	sub := quotedValuePattern.FindStringSubmatch(matched)
	if len(sub) < 2 {
		return ""
	}
	return strings.TrimSpace(sub[1])
}

func (d *GenericDetector) SearchQueries() []string {
	return []string{"API_KEY extension:env", "SECRET extension:env"}
}

func (d *GenericDetector) FileExtensions() []string {
	return []string{".env", ".py", ".js", ".json", ".yaml", ".yml", ".txt", ".config", ".sh"}
}
