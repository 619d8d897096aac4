package main

import (
	"context"
	"log"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"

	"keyhunter/pkg/config"
)

func TestRunOneScanStopsOnAlreadyCancelledContext(t *testing.T) {
	cfg := &config.Config{
		GitHub: config.GitHubConfig{BaseURL: "https://api.github.com"},
		Output: config.OutputConfig{Directory: t.TempDir()},
	}
	logger := log.New(os.Stderr, "", 0)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := runOneScan(ctx, cfg, "shodan", false, logger)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRunOneScanRejectsNothingForUnknownDetectorName(t *testing.T) {
	// An unknown -k value simply selects zero detectors and expands to
	// zero queries rather than erroring, since scanner's recurring loop
	// should never crash the process over an operator typo — it just
	// scans nothing that round.
	cfg := &config.Config{
		GitHub: config.GitHubConfig{BaseURL: "https://api.github.com"},
		Output: config.OutputConfig{Directory: t.TempDir()},
	}
	logger := log.New(os.Stderr, "", 0)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := runOneScan(ctx, cfg, "not-a-real-detector", false, logger)
	assert.ErrorIs(t, err, context.Canceled)
}
