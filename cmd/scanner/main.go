// Command scanner runs the Discovery Pipeline on a repeating interval,
// for deployments that want a long-lived background process instead of
// invoking "keyhunter search" from cron. It keeps the teacher's
// cmd/scanner flag-parsing and env-override layering and its
// SIGINT/SIGTERM-to-context.cancel shutdown idiom, generalized from a
// single GitHub-repository-walking run to repeated Discovery Pipeline
// scans separated by an interval, stopping cleanly between scans (never
// mid-scan) when a termination signal arrives.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"keyhunter/pkg/config"
	"keyhunter/pkg/detect"
	"keyhunter/pkg/httpclient"
	"keyhunter/pkg/pipeline"
	"keyhunter/pkg/search"
	"keyhunter/pkg/sink"
	"keyhunter/pkg/tokenpool"
	"keyhunter/pkg/validate"
)

func main() {
	var (
		keyType        string
		configPath     string
		intervalMin    int
		inlineValidate bool
	)

	flag.StringVar(&keyType, "k", "all", `detector name, or "all"`)
	flag.StringVar(&configPath, "config", "keyhunter.toml", "path to the TOML config file")
	flag.IntVar(&intervalMin, "interval-minutes", 60, "minutes to wait between scans")
	flag.BoolVar(&inlineValidate, "validate", false, "validate candidates inline as they're detected")
	flag.Parse()

	if envVal := os.Getenv("SCANNER_KEY_TYPE"); envVal != "" {
		keyType = envVal
	}
	if envVal := os.Getenv("SCANNER_CONFIG"); envVal != "" {
		configPath = envVal
	}
	if envVal := os.Getenv("SCANNER_INTERVAL_MINUTES"); envVal != "" {
		if v, err := strconv.Atoi(envVal); err == nil {
			intervalMin = v
		}
	}
	if envVal := os.Getenv("SCANNER_VALIDATE"); envVal != "" {
		inlineValidate = envVal == "true"
	}

	logger := log.New(os.Stdout, "[keyhunter-scanner] ", log.LstdFlags)

	cfg, err := config.Load(configPath, logger)
	if err != nil {
		logger.Fatalf("loading config: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		if _, ok := <-signals; ok {
			logger.Println("received termination signal, will stop after the in-flight scan completes")
			cancel()
		}
	}()

	interval := time.Duration(intervalMin) * time.Minute
	logger.Printf("starting recurring scan of %q every %s", keyType, interval)

	for {
		if ctx.Err() != nil {
			break
		}
		if err := runOneScan(ctx, cfg, keyType, inlineValidate, logger); err != nil && ctx.Err() == nil {
			logger.Printf("scan failed: %v", err)
		}
		if ctx.Err() != nil {
			break
		}

		timer := time.NewTimer(interval)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
		}
	}

	logger.Println("scanner stopped")
}

func runOneScan(ctx context.Context, cfg *config.Config, keyType string, inlineValidate bool, logger *log.Logger) error {
	detectors := detect.NewDefaultRegistry()
	validators := validate.NewDefaultRegistry(cfg.Validators)

	var selected []detect.Detector
	if keyType == "" || keyType == "all" {
		selected = detectors.Active()
	} else if d := detectors.Get(keyType); d != nil {
		selected = []detect.Detector{d}
	}

	var queries []search.Query
	for _, d := range selected {
		queries = append(queries, search.ExpandQueries(d.SearchQueries(), d.Name(), 0)...)
	}

	provider, err := buildProvider(cfg)
	if err != nil {
		return err
	}

	var pool *tokenpool.Pool
	if len(cfg.SearchTokens) > 0 {
		pool = tokenpool.New(cfg.SearchTokens, time.Duration(cfg.GitHub.RateLimitDelayMs)*time.Millisecond, logger)
	}

	s := sink.New(cfg.Output.Directory, logger)
	p := pipeline.New(provider, detectors, validators, pool, tokenpool.NewRegistry(),
		httpclient.New(30*time.Second), s, logger, pipeline.DefaultConcurrency(), inlineValidate)
	s.SetScannedCounter(p.ScannedForType)

	runErr := p.Run(ctx, queries)

	now := time.Now().UTC()
	if _, err := s.Flush(now); err != nil {
		return err
	}
	if _, err := s.FlushCandidates(now); err != nil {
		return err
	}
	logger.Printf("scan complete: %d candidate(s) scanned", p.TotalScanned())
	return runErr
}

// buildProvider prefers GitHub App installation auth over a personal
// access token when both are configured, since an installation token
// is scoped and revocable in a way a long-lived PAT isn't.
func buildProvider(cfg *config.Config) (*search.Provider, error) {
	if cfg.App.AppID != 0 {
		return search.NewProviderFromApp(cfg.App.AppID, cfg.App.InstallationID, cfg.App.PrivateKeyPEM, cfg.GitHub.BaseURL)
	}
	token := ""
	if len(cfg.SearchTokens) > 0 {
		token = cfg.SearchTokens[0]
	}
	return search.NewProvider(token, cfg.GitHub.BaseURL)
}
