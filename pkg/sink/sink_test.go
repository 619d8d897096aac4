package sink

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"keyhunter/pkg/models"
)

func TestFlushWritesOneFilePerKeyType(t *testing.T) {
	dir := t.TempDir()
	s := New(dir, nil)
	s.Submit(models.Finding{Detected: models.DetectedKey{Key: "sk-aaa", KeyType: "openai"}, Validation: models.ValidationResult{Valid: true, KeyType: "openai"}})
	s.Submit(models.Finding{Detected: models.DetectedKey{Key: "ghp_bbb", KeyType: "github"}, Validation: models.ValidationResult{Valid: true, KeyType: "github"}})

	written, err := s.Flush(time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC))
	require.NoError(t, err)
	assert.Len(t, written, 2)

	openaiPath := filepath.Join(dir, "openai", "valid_keys_20260102_030405.json")
	data, err := os.ReadFile(openaiPath)
	require.NoError(t, err)

	var doc models.OutputDocument
	require.NoError(t, json.Unmarshal(data, &doc))
	assert.Equal(t, "openai", doc.KeyType)
	assert.Equal(t, 1, doc.TotalValidKeys)
	require.Len(t, doc.ValidKeys, 1)
	assert.Equal(t, "sk-aaa", doc.ValidKeys[0].Detected.Key)
}

func TestFlushNeverOverwritesExistingFile(t *testing.T) {
	dir := t.TempDir()
	ts := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	first := New(dir, nil)
	first.Submit(models.Finding{Detected: models.DetectedKey{Key: "key-one", KeyType: "shodan"}, Validation: models.ValidationResult{Valid: true}})
	firstPaths, err := first.Flush(ts)
	require.NoError(t, err)
	require.Len(t, firstPaths, 1)

	second := New(dir, nil)
	second.Submit(models.Finding{Detected: models.DetectedKey{Key: "key-two", KeyType: "shodan"}, Validation: models.ValidationResult{Valid: true}})
	secondPaths, err := second.Flush(ts)
	require.NoError(t, err)
	require.Len(t, secondPaths, 1)

	assert.NotEqual(t, firstPaths[0], secondPaths[0])

	for _, p := range []string{firstPaths[0], secondPaths[0]} {
		_, err := os.Stat(p)
		assert.NoError(t, err)
	}
}

func TestFlushUsesScannedCounterWhenSet(t *testing.T) {
	dir := t.TempDir()
	s := New(dir, nil)
	s.SetScannedCounter(func(keyType string) int { return 42 })
	s.Submit(models.Finding{Detected: models.DetectedKey{Key: "k", KeyType: "xai"}, Validation: models.ValidationResult{Valid: true}})

	paths, err := s.Flush(time.Now())
	require.NoError(t, err)
	require.Len(t, paths, 1)

	data, err := os.ReadFile(paths[0])
	require.NoError(t, err)
	var doc models.OutputDocument
	require.NoError(t, json.Unmarshal(data, &doc))
	assert.Equal(t, 42, doc.TotalKeysScanned)
}

func TestFlushCandidatesWritesUnvalidatedCandidates(t *testing.T) {
	dir := t.TempDir()
	s := New(dir, nil)
	s.SubmitCandidate(models.DetectedKey{Key: "sk-candidate", KeyType: "openai", FilePath: "a.env"})

	written, err := s.FlushCandidates(time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC))
	require.NoError(t, err)
	require.Len(t, written, 1)
	assert.Contains(t, written[0], "candidates_20260102_030405.json")

	data, err := os.ReadFile(written[0])
	require.NoError(t, err)
	var doc struct {
		KeyType    string               `json:"key_type"`
		Candidates []models.DetectedKey `json:"candidates"`
	}
	require.NoError(t, json.Unmarshal(data, &doc))
	assert.Equal(t, "openai", doc.KeyType)
	require.Len(t, doc.Candidates, 1)
	assert.Equal(t, "sk-candidate", doc.Candidates[0].Key)
}

func TestFlushAndFlushCandidatesDoNotCollide(t *testing.T) {
	dir := t.TempDir()
	s := New(dir, nil)
	s.Submit(models.Finding{Detected: models.DetectedKey{Key: "validated", KeyType: "openai"}, Validation: models.ValidationResult{Valid: true}})
	s.SubmitCandidate(models.DetectedKey{Key: "unvalidated", KeyType: "openai"})

	now := time.Now()
	validPaths, err := s.Flush(now)
	require.NoError(t, err)
	candidatePaths, err := s.FlushCandidates(now)
	require.NoError(t, err)

	require.Len(t, validPaths, 1)
	require.Len(t, candidatePaths, 1)
	assert.NotEqual(t, validPaths[0], candidatePaths[0])
}

func TestNoTempFilesLeftBehindAfterFlush(t *testing.T) {
	dir := t.TempDir()
	s := New(dir, nil)
	s.Submit(models.Finding{Detected: models.DetectedKey{Key: "k", KeyType: "claude"}, Validation: models.ValidationResult{Valid: true}})
	_, err := s.Flush(time.Now())
	require.NoError(t, err)

	entries, err := os.ReadDir(filepath.Join(dir, "claude"))
	require.NoError(t, err)
	for _, e := range entries {
		assert.NotContains(t, e.Name(), ".tmp")
	}
}
