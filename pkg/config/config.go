// Package config loads key-hunter's configuration: an optional TOML file
// layered under environment variables, following the same "defaults,
// then let the environment win" approach the teacher's cmd/scanner uses
// for its flags, generalized to a file-based primary source.
package config

import (
	"fmt"
	"log"
	"os"
	"strconv"

	"github.com/BurntSushi/toml"

	"keyhunter/pkg/errors"
)

// GitHubConfig holds the settings for the search provider's upstream API.
type GitHubConfig struct {
	BaseURL            string `toml:"base_url"`
	RateLimitDelayMs   int    `toml:"rate_limit_delay_ms"`
}

// OutputConfig holds Results Sink settings.
type OutputConfig struct {
	Directory string `toml:"directory"`
	Format    string `toml:"format"`
}

// ValidatorRateLimits maps "<service>_rate_limit_ms" TOML keys onto the
// per-validator Rate Limiter gates built at startup.
type ValidatorRateLimits map[string]int

// Config is the fully resolved, env-overridden configuration.
type Config struct {
	GitHub     GitHubConfig
	Output     OutputConfig
	Validators ValidatorRateLimits

	// SearchTokens are the populated GITHUB_TOKEN1..5 values, in order.
	SearchTokens []string
	// IssuesToken backs the out-of-scope reporter; carried here because
	// it shares the same environment-variable loading step.
	IssuesToken string

	// App holds GitHub App installation credentials, populated from
	// GITHUB_APP_ID / GITHUB_APP_INSTALLATION_ID / GITHUB_APP_PRIVATE_KEY
	// (or GITHUB_APP_PRIVATE_KEY_PATH). When AppID is non-zero, callers
	// prefer this over SearchTokens: an installation token is scoped and
	// revocable in a way a long-lived personal access token isn't.
	App AppConfig
}

// AppConfig holds GitHub App installation auth, the alternative to a
// personal-access-token search token.
type AppConfig struct {
	AppID          int64
	InstallationID int64
	PrivateKeyPEM  []byte
}

func defaults() Config {
	return Config{
		GitHub: GitHubConfig{
			BaseURL:          "https://api.github.com",
			RateLimitDelayMs: 1000,
		},
		Output: OutputConfig{
			Directory: "./results",
			Format:    "json",
		},
		Validators: ValidatorRateLimits{
			"openai_rate_limit_ms":     1000,
			"claude_rate_limit_ms":     2000,
			"gemini_rate_limit_ms":     2000,
			"shodan_rate_limit_ms":     1000,
			"xai_rate_limit_ms":        1000,
			"openrouter_rate_limit_ms": 3000,
			"github_rate_limit_ms":     2000,
		},
	}
}

var knownTOMLKeys = map[string]bool{
	"github.base_url":              true,
	"github.rate_limit_delay_ms":   true,
	"output.directory":             true,
	"output.format":                true,
	"validators.openai_rate_limit_ms":     true,
	"validators.claude_rate_limit_ms":     true,
	"validators.gemini_rate_limit_ms":     true,
	"validators.shodan_rate_limit_ms":     true,
	"validators.xai_rate_limit_ms":        true,
	"validators.openrouter_rate_limit_ms": true,
	"validators.github_rate_limit_ms":     true,
}

// fileShape mirrors the TOML document shape so unmarshalling stays
// declarative; unknown keys are detected separately via rawDoc.
type fileShape struct {
	GitHub struct {
		BaseURL          string `toml:"base_url"`
		RateLimitDelayMs int    `toml:"rate_limit_delay_ms"`
	} `toml:"github"`
	Output struct {
		Directory string `toml:"directory"`
		Format    string `toml:"format"`
	} `toml:"output"`
	Validators map[string]int `toml:"validators"`
}

// Load reads path (if non-empty and present), applies defaults for
// anything unset, then lets GITHUB_TOKEN1..5, ISSUES_GITHUB_TOKEN, and
// KEYHUNTER_* environment variables override file values.
func Load(path string, logger *log.Logger) (*Config, error) {
	cfg := defaults()

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			var doc fileShape
			meta, err := toml.DecodeFile(path, &doc)
			if err != nil {
				return nil, errors.ConfigErr("parsing %s: %v", path, err)
			}
			warnUnknownKeys(meta, logger)

			if doc.GitHub.BaseURL != "" {
				cfg.GitHub.BaseURL = doc.GitHub.BaseURL
			}
			if doc.GitHub.RateLimitDelayMs != 0 {
				cfg.GitHub.RateLimitDelayMs = doc.GitHub.RateLimitDelayMs
			}
			if doc.Output.Directory != "" {
				cfg.Output.Directory = doc.Output.Directory
			}
			if doc.Output.Format != "" {
				if doc.Output.Format != "json" {
					return nil, errors.ConfigErr("output.format %q unsupported, only \"json\" is", doc.Output.Format)
				}
				cfg.Output.Format = doc.Output.Format
			}
			for k, v := range doc.Validators {
				cfg.Validators[k] = v
			}
		} else if logger != nil {
			logger.Printf("config: %s not found, using defaults and environment", path)
		}
	}

	applyEnvOverrides(&cfg)

	for i := 1; i <= 5; i++ {
		if tok := os.Getenv(fmt.Sprintf("GITHUB_TOKEN%d", i)); tok != "" {
			cfg.SearchTokens = append(cfg.SearchTokens, tok)
		}
	}
	cfg.IssuesToken = os.Getenv("ISSUES_GITHUB_TOKEN")

	if err := loadAppConfig(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func loadAppConfig(cfg *Config) error {
	appID := os.Getenv("GITHUB_APP_ID")
	if appID == "" {
		return nil
	}
	id, err := strconv.ParseInt(appID, 10, 64)
	if err != nil {
		return errors.ConfigErr("GITHUB_APP_ID %q is not a valid integer: %v", appID, err)
	}
	cfg.App.AppID = id

	if installID := os.Getenv("GITHUB_APP_INSTALLATION_ID"); installID != "" {
		n, err := strconv.ParseInt(installID, 10, 64)
		if err != nil {
			return errors.ConfigErr("GITHUB_APP_INSTALLATION_ID %q is not a valid integer: %v", installID, err)
		}
		cfg.App.InstallationID = n
	}

	if path := os.Getenv("GITHUB_APP_PRIVATE_KEY_PATH"); path != "" {
		pem, err := os.ReadFile(path)
		if err != nil {
			return errors.ConfigErr("reading GITHUB_APP_PRIVATE_KEY_PATH %s: %v", path, err)
		}
		cfg.App.PrivateKeyPEM = pem
	} else if pem := os.Getenv("GITHUB_APP_PRIVATE_KEY"); pem != "" {
		cfg.App.PrivateKeyPEM = []byte(pem)
	}
	return nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("KEYHUNTER_GITHUB_BASE_URL"); v != "" {
		cfg.GitHub.BaseURL = v
	}
	if v := os.Getenv("KEYHUNTER_GITHUB_RATE_LIMIT_MS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.GitHub.RateLimitDelayMs = n
		}
	}
	if v := os.Getenv("KEYHUNTER_OUTPUT_DIR"); v != "" {
		cfg.Output.Directory = v
	}
}

func warnUnknownKeys(meta toml.MetaData, logger *log.Logger) {
	if logger == nil {
		return
	}
	for _, key := range meta.Keys() {
		joined := key.String()
		if knownTOMLKeys[joined] {
			continue
		}
		// A key one level up from a known leaf (e.g. "github", "output",
		// "validators" themselves, or a validators.<service> leaf) is
		// expected; only warn once we're past those.
		if joined == "github" || joined == "output" || joined == "validators" {
			continue
		}
		if len(key) == 2 && key[0] == "validators" {
			continue
		}
		logger.Printf("config: ignoring unknown key %q", joined)
	}
}
