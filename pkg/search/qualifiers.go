package search

// fileTypeQualifiers is the file-type/path qualifier list used to
// expand each detector's base search queries into per-file-type
// GitHub Code Search queries. GitHub Code Search has no date filter,
// so breadth comes from varying file type instead.
var fileTypeQualifiers = []string{
	// Common configuration files
	"extension:env",
	"extension:txt",
	"extension:cfg",
	"extension:conf",
	"extension:config",
	"extension:ini",
	"extension:toml",
	"extension:yaml",
	"extension:yml",
	"extension:json",
	"extension:xml",

	// Environment/config file variations (no extension)
	"filename:.env",
	"filename:env.txt",
	"filename:.env.local",
	"filename:.env.development",
	"filename:.env.production",
	"filename:config",

	// Programming language files
	"extension:py",
	"extension:js",
	"extension:ts",
	"extension:jsx",
	"extension:tsx",
	"extension:rb",
	"extension:go",
	"extension:java",
	"extension:kt",
	"extension:swift",
	"extension:rs",
	"extension:php",
	"extension:cs",
	"extension:cpp",
	"extension:c",
	"extension:h",
	"extension:m",
	"extension:sh",
	"extension:bash",
	"extension:zsh",
	"extension:pl",
	"extension:r",
	"extension:scala",
	"extension:clj",
	"extension:ex",
	"extension:exs",
	"extension:erl",
	"extension:dart",
	"extension:lua",
	"extension:vim",

	// Web/markup files
	"extension:html",
	"extension:htm",
	"extension:vue",
	"extension:svelte",

	// Documentation files
	"extension:md",
	"extension:rst",
	"extension:adoc",

	// Infrastructure/DevOps files
	"extension:dockerfile",
	"filename:Dockerfile",
	"filename:docker-compose.yml",
	"filename:docker-compose.yaml",
	"extension:tf",
	"extension:tfvars",
	"extension:hcl",

	// CI/CD files
	"filename:.gitlab-ci.yml",
	"filename:.travis.yml",
	"filename:circle.yml",
	"filename:azure-pipelines.yml",
	"path:.github/workflows",

	// Package/build files
	"filename:package.json",
	"filename:composer.json",
	"filename:Gemfile",
	"filename:Cargo.toml",
	"filename:go.mod",
	"filename:pom.xml",
	"filename:build.gradle",
	"filename:requirements.txt",

	// Notebook files
	"extension:ipynb",

	// Other common files
	"extension:log",
	"extension:properties",
}

// ExpandQueries builds the Cartesian product of a detector's base
// search_queries() with the file-type qualifier list, so a single
// logical query ("OPENAI_API_KEY") becomes one query per plausible
// file type the key could appear in.
func ExpandQueries(baseQueries []string, detectorName string, maxResultsPerQuery int) []Query {
	out := make([]Query, 0, len(baseQueries)*len(fileTypeQualifiers))
	for _, base := range baseQueries {
		for _, qualifier := range fileTypeQualifiers {
			out = append(out, Query{
				Text:          base + " " + qualifier,
				DetectorName:  detectorName,
				MaxResults:    maxResultsPerQuery,
			})
		}
	}
	return out
}
