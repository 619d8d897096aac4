package pipeline

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"keyhunter/pkg/detect"
	"keyhunter/pkg/httpclient"
	"keyhunter/pkg/models"
	"keyhunter/pkg/sink"
	"keyhunter/pkg/tokenpool"
	"keyhunter/pkg/validate"
)

// fakeDetector always returns the same single DetectedKey, letting
// tests exercise dedup without depending on a real regex family.
type fakeDetector struct {
	name string
	key  string
}

func (d *fakeDetector) Name() string { return d.name }
func (d *fakeDetector) Detect(content, filePath string) []models.DetectedKey {
	return []models.DetectedKey{{Key: d.key, KeyType: d.name, FilePath: filePath}}
}
func (d *fakeDetector) SearchQueries() []string  { return []string{d.name} }
func (d *fakeDetector) FileExtensions() []string { return nil }

// fakeValidator returns a fixed ValidationResult so tests can check
// the validate stage's branching without a live issuer API.
type fakeValidator struct {
	keyType string
	result  models.ValidationResult
	err     error
}

func (v *fakeValidator) KeyType() string { return v.keyType }
func (v *fakeValidator) Validate(ctx context.Context, client *httpclient.Client, key string) (models.ValidationResult, error) {
	return v.result, v.err
}
func (v *fakeValidator) DefaultRateLimit() time.Duration { return 0 }

func newTestPipeline(t *testing.T) (*Pipeline, *sink.Sink) {
	s := sink.New(t.TempDir(), nil)
	detectors := detect.NewRegistry()
	validators := validate.NewRegistry()
	p := New(nil, detectors, validators, nil, tokenpool.NewRegistry(), httpclient.New(time.Second), s, nil, DefaultConcurrency(), true)
	return p, s
}

func TestIsDuplicateFirstWriterWins(t *testing.T) {
	p, _ := newTestPipeline(t)
	assert.False(t, p.isDuplicate("sk-same"))
	assert.True(t, p.isDuplicate("sk-same"))
	assert.False(t, p.isDuplicate("sk-other"))
}

func TestValidateOneSubmitsFiatValidFindingWhenNoValidatorRegistered(t *testing.T) {
	p, s := newTestPipeline(t)
	p.validateOne(context.Background(), detectTask{
		key:          models.DetectedKey{Key: "generic-value", KeyType: "generic"},
		detectorName: "generic",
	})

	written, err := s.Flush(time.Now())
	require.NoError(t, err)
	require.Len(t, written, 1)
}

func TestValidateOneSkipsInvalidResult(t *testing.T) {
	p, s := newTestPipeline(t)
	p.validators.Register(&fakeValidator{keyType: "openai", result: models.ValidationResult{Valid: false}})
	p.gates = tokenpool.NewRegistry()

	p.validateOne(context.Background(), detectTask{
		key:          models.DetectedKey{Key: "sk-bad", KeyType: "openai"},
		detectorName: "openai",
	})

	written, err := s.Flush(time.Now())
	require.NoError(t, err)
	assert.Empty(t, written)
}

func TestValidateOneSubmitsOnValidResult(t *testing.T) {
	p, s := newTestPipeline(t)
	p.validators.Register(&fakeValidator{keyType: "openai", result: models.ValidationResult{Valid: true, KeyType: "openai"}})

	p.validateOne(context.Background(), detectTask{
		key:          models.DetectedKey{Key: "sk-good", KeyType: "openai"},
		detectorName: "openai",
	})

	written, err := s.Flush(time.Now())
	require.NoError(t, err)
	require.Len(t, written, 1)
}

func TestDetectOneDedupsRepeatedKeyAcrossCalls(t *testing.T) {
	p, _ := newTestPipeline(t)
	p.detectors.Register(&fakeDetector{name: "openai", key: "sk-repeated"}, true)

	result := models.SearchResult{
		Repository:  "octo/cat",
		FilePath:    "config/.env",
		TextMatches: []string{"OPENAI_API_KEY=sk-repeated"},
	}
	task := searchTask{result: result, detectorName: "openai"}

	out := make(chan detectTask, 4)
	p.detectOne(context.Background(), nil, task, out)
	p.detectOne(context.Background(), nil, task, out)
	close(out)

	var seen []detectTask
	for dt := range out {
		seen = append(seen, dt)
	}
	require.Len(t, seen, 1)
	assert.Equal(t, "sk-repeated", seen[0].key.Key)
	assert.Equal(t, 2, p.TotalScanned())
}

func TestScannedForTypeTracksEachDetectorIndependently(t *testing.T) {
	p, _ := newTestPipeline(t)
	p.detectors.Register(&fakeDetector{name: "openai", key: "sk-a"}, true)
	p.detectors.Register(&fakeDetector{name: "shodan", key: "sh-a"}, true)

	openaiResult := models.SearchResult{Repository: "octo/cat", FilePath: "a.env", TextMatches: []string{"x"}}
	shodanResult := models.SearchResult{Repository: "octo/cat", FilePath: "b.env", TextMatches: []string{"y"}}

	out := make(chan detectTask, 8)
	p.detectOne(context.Background(), nil, searchTask{result: openaiResult, detectorName: "openai"}, out)
	p.detectOne(context.Background(), nil, searchTask{result: shodanResult, detectorName: "shodan"}, out)
	p.detectOne(context.Background(), nil, searchTask{result: shodanResult, detectorName: "shodan"}, out)
	close(out)
	for range out {
	}

	assert.Equal(t, 1, p.ScannedForType("openai"))
	assert.Equal(t, 2, p.ScannedForType("shodan"))
	assert.Equal(t, 3, p.TotalScanned())
}

func TestDetectOneSubmitsCandidateDirectlyWhenInlineValidationDisabled(t *testing.T) {
	s := sink.New(t.TempDir(), nil)
	detectors := detect.NewRegistry()
	detectors.Register(&fakeDetector{name: "openai", key: "sk-unvalidated"}, true)
	validators := validate.NewRegistry()
	p := New(nil, detectors, validators, nil, tokenpool.NewRegistry(), httpclient.New(time.Second), s, nil, DefaultConcurrency(), false)

	result := models.SearchResult{
		Repository:  "octo/cat",
		FilePath:    "config/.env",
		TextMatches: []string{"OPENAI_API_KEY=sk-unvalidated"},
	}
	out := make(chan detectTask, 4)
	p.detectOne(context.Background(), nil, searchTask{result: result, detectorName: "openai"}, out)
	close(out)

	var sent int
	for range out {
		sent++
	}
	assert.Equal(t, 0, sent, "no task should reach the validate channel when inline validation is disabled")

	candidatePaths, err := s.FlushCandidates(time.Now())
	require.NoError(t, err)
	require.Len(t, candidatePaths, 1)
}
