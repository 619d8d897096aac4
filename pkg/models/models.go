// Package models defines the data types that flow through the discovery
// pipeline: detected credentials, validation outcomes, persisted findings,
// and the search plumbing types that connect them.
package models

import "time"

// DetectedKey is one candidate credential observation produced by a
// Detector. KeyType always equals the name of the detector that produced
// it; Repository is "owner/name".
type DetectedKey struct {
	Key        string `json:"key"`
	KeyType    string `json:"key_type"`
	FilePath   string `json:"file_path"`
	LineNumber int    `json:"line_number"`
	Repository string `json:"repository"`
	FileURL    string `json:"file_url"`
}

// ValidationResult is the outcome of a single Validator run against one
// DetectedKey. Valid is true only when the issuing service returned a
// positive 2xx (or service-specific positive) response; metadata must
// never contain the full key.
type ValidationResult struct {
	Valid bool `json:"valid"`
	// KeyType is carried for in-process branching (e.g. picking a
	// Rate Limiter gate) but is not part of the §6 output schema's
	// validation object, so it's excluded from the persisted shape.
	KeyType  string            `json:"-"`
	Message  string            `json:"message"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// Finding is a persisted unit: a DetectedKey paired with the
// ValidationResult that confirmed it. Only Findings with
// Validation.Valid == true are ever written to the Sink.
type Finding struct {
	Detected    DetectedKey      `json:"detected"`
	Validation  ValidationResult `json:"validation"`
	ValidatedAt time.Time        `json:"validated_at"`
}

// SearchQuery is a query string plus the provider-side limits that bound
// its execution.
type SearchQuery struct {
	Query        string
	DetectorName string
	MaxResults   int
}

// SearchResult identifies one file a search hit against, independent of
// its content.
type SearchResult struct {
	Repository    string
	FilePath      string
	FileURL       string
	RawURL        string
	SHA           string
	DefaultBranch string
	// TextMatches carries GitHub's text-match snippets when the search
	// request asked for them, letting the caller skip a full file fetch.
	TextMatches []string
}

// TokenSlot is one bearer token plus its pacing state inside the Token
// Pool. At most one task holds a slot at a time: Leased marks a slot
// reserved between Lease and Release so a second concurrent Lease
// can't pick the same slot before the first holder's request
// completes.
type TokenSlot struct {
	Token           string
	EarliestNextUse time.Time
	CooldownUntil   time.Time
	Invalid         bool
	Leased          bool
}

// RateStatus carries the rate-limit signal from one search request back
// to the Token Pool, so a leased slot's pacing reflects what GitHub
// actually said rather than a flat default interval. StatusCode is the
// HTTP status of the request the signal came from (0 if the request
// never got a response).
type RateStatus struct {
	StatusCode int
	RetryAfter time.Duration
	Remaining  int
	Reset      time.Time
}

// OutputDocument is the exact shape written by the Results Sink and
// consumed by Reporting View / downstream disclosure tooling.
type OutputDocument struct {
	Timestamp        time.Time `json:"timestamp"`
	KeyType          string    `json:"key_type"`
	TotalValidKeys   int       `json:"total_valid_keys"`
	TotalKeysScanned int       `json:"total_keys_scanned"`
	ValidKeys        []Finding `json:"valid_keys"`
}

// RepositoryAggregate is the per-repository view produced by the
// Reporting View: every deduplicated Finding discovered for one
// repository, plus the count downstream disclosure tooling derives once
// the aggregate map is built.
type RepositoryAggregate struct {
	Repository string    `json:"repository"`
	Findings   []Finding `json:"findings"`
	Count      int       `json:"count"`
}

// SecretFinding, ValidationRequest and ValidationResponse back the local
// pre-commit scan path (cmd/validator): a lightweight report shape for a
// single regex/detector match that never leaves the process, distinct
// from the pipeline's DetectedKey/Finding which carry full provenance.
type SecretFinding struct {
	Type     string `json:"type"`
	Value    string `json:"value"`
	StartPos int    `json:"start_pos"`
	EndPos   int    `json:"end_pos"`
	FilePath string `json:"file_path"`
}

type ValidationRequest struct {
	Secret SecretFinding `json:"secret"`
}

type ValidationResponse struct {
	IsValid bool   `json:"is_valid"`
	Message string `json:"message"`
}
