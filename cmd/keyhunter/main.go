// Command keyhunter is the core CLI surface described in spec §6:
// search runs the Discovery Pipeline end to end, validate re-checks a
// previously persisted candidate file, test runs a single Validator
// call, and list introspects the Detector/Validator registries. Flag
// parsing and environment-variable overrides follow the same layering
// the teacher's cmd/scanner uses for its own flags; signal handling
// reuses the teacher's SIGINT/SIGTERM-to-context.cancel idiom so the
// Discovery Pipeline's cooperative cancellation (spec §4.6) has
// somewhere to hook in.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"keyhunter/pkg/config"
	"keyhunter/pkg/detect"
	"keyhunter/pkg/errors"
	"keyhunter/pkg/httpclient"
	"keyhunter/pkg/models"
	"keyhunter/pkg/pipeline"
	"keyhunter/pkg/search"
	"keyhunter/pkg/sink"
	"keyhunter/pkg/tokenpool"
	"keyhunter/pkg/validate"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	logger := log.New(os.Stdout, "[keyhunter] ", log.LstdFlags)

	var err error
	switch os.Args[1] {
	case "search":
		err = runSearch(logger, os.Args[2:])
	case "validate":
		err = runValidate(logger, os.Args[2:])
	case "test":
		err = runTest(logger, os.Args[2:])
	case "list":
		err = runList(logger, os.Args[2:])
	default:
		usage()
		os.Exit(2)
	}

	if err != nil {
		if errors.Of(err) == errors.Cancelled {
			os.Exit(0)
		}
		logger.Printf("error: %v", err)
		if code, ok := err.(exitCoder); ok {
			os.Exit(code.ExitCode())
		}
		os.Exit(2)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, `usage: keyhunter <command> [flags]

commands:
  search -k <type|all> [-q QUERY] [-o PATH] [--validate] [-v]
  validate -i FILE -o FILE [-k TYPE]
  test KEY -k TYPE
  list [detectors|validators|all]`)
}

// exitCoder lets a subcommand pick a specific process exit code (the
// "test" command distinguishes "ran fine, key invalid" from "error").
type exitCoder interface {
	ExitCode() int
}

type exitError struct {
	error
	code int
}

func (e exitError) ExitCode() int { return e.code }

func contextWithSignals(logger *log.Logger) (context.Context, func()) {
	ctx, cancel := context.WithCancel(context.Background())
	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		if _, ok := <-signals; ok {
			logger.Println("received termination signal, shutting down gracefully...")
			cancel()
		}
	}()
	return ctx, func() {
		signal.Stop(signals)
		cancel()
	}
}

func loadConfigAndSecrets(logger *log.Logger) (*config.Config, error) {
	cfgPath := os.Getenv("KEYHUNTER_CONFIG")
	if cfgPath == "" {
		cfgPath = "keyhunter.toml"
	}
	cfg, err := config.Load(cfgPath, logger)
	if err != nil {
		return nil, err
	}
	return cfg, nil
}

// runSearch implements "search -k <type|all> [-q QUERY] [-o PATH]
// [--validate] [-v]": it builds the full C2-C8 stack and runs one
// Discovery Pipeline scan to completion or cancellation.
func runSearch(logger *log.Logger, args []string) error {
	fs := flag.NewFlagSet("search", flag.ExitOnError)
	keyType := fs.String("k", "all", `detector name, or "all"`)
	customQuery := fs.String("q", "", "custom query bypassing per-detector query expansion")
	outputDir := fs.String("o", "", "output directory override (default from config, ./results)")
	inlineValidate := fs.Bool("validate", false, "validate candidates inline as they're detected")
	verbose := fs.Bool("v", false, "verbose logging")
	searchConc := fs.Int("search-workers", 0, "override search stage concurrency")
	detectConc := fs.Int("detect-workers", 0, "override detect stage concurrency")
	validateConc := fs.Int("validate-workers", 0, "override validate stage concurrency")
	if err := fs.Parse(args); err != nil {
		return exitError{err, 2}
	}

	cfg, err := loadConfigAndSecrets(logger)
	if err != nil {
		return exitError{err, 2}
	}
	if *outputDir != "" {
		cfg.Output.Directory = *outputDir
	}

	detectors := detect.NewDefaultRegistry()
	validators := validate.NewDefaultRegistry(cfg.Validators)

	var selected []detect.Detector
	if *keyType == "" || *keyType == "all" {
		selected = detectors.Active()
	} else {
		d := detectors.Get(*keyType)
		if d == nil {
			return exitError{errors.ConfigErr("unknown detector %q (see \"keyhunter list detectors\")", *keyType), 2}
		}
		selected = []detect.Detector{d}
	}
	if len(selected) == 0 {
		return exitError{errors.ConfigErr("no detectors selected"), 2}
	}
	if *verbose {
		for _, d := range selected {
			logger.Printf("search: detector %s queries=%v", d.Name(), d.SearchQueries())
		}
	}

	var queries []search.Query
	for _, d := range selected {
		if *customQuery != "" {
			queries = append(queries, search.Query{Text: *customQuery, DetectorName: d.Name()})
			continue
		}
		queries = append(queries, search.ExpandQueries(d.SearchQueries(), d.Name(), 0)...)
	}
	logger.Printf("search: %d detector(s) selected, %d expanded query(ies)", len(selected), len(queries))

	provider, err := buildProvider(cfg)
	if err != nil {
		return exitError{err, 2}
	}

	var pool *tokenpool.Pool
	if len(cfg.SearchTokens) > 0 {
		pool = tokenpool.New(cfg.SearchTokens, time.Duration(cfg.GitHub.RateLimitDelayMs)*time.Millisecond, logger)
	}
	gates := tokenpool.NewRegistry()

	httpClient := httpclient.New(30 * time.Second)
	s := sink.New(cfg.Output.Directory, logger)

	conc := pipeline.DefaultConcurrency()
	if *searchConc > 0 {
		conc.Search = *searchConc
	}
	if *detectConc > 0 {
		conc.Detect = *detectConc
	}
	if *validateConc > 0 {
		conc.Validate = *validateConc
	}

	p := pipeline.New(provider, detectors, validators, pool, gates, httpClient, s, logger, conc, *inlineValidate)
	s.SetScannedCounter(p.ScannedForType)

	ctx, stop := contextWithSignals(logger)
	defer stop()

	runErr := p.Run(ctx, queries)

	now := time.Now().UTC()
	written, flushErr := s.Flush(now)
	if flushErr != nil {
		return exitError{errors.IoErr(flushErr, "flushing results sink"), 2}
	}
	candidateFiles, flushErr := s.FlushCandidates(now)
	if flushErr != nil {
		return exitError{errors.IoErr(flushErr, "flushing candidate sink"), 2}
	}

	logger.Printf("search: done — %d query(ies) executed, %d candidate(s) detected, %d output file(s), %d candidate file(s)",
		len(queries), p.TotalScanned(), len(written), len(candidateFiles))

	if runErr != nil && errors.Of(runErr) != errors.Cancelled {
		return exitError{runErr, 2}
	}
	return nil
}

// runValidate implements "validate -i FILE -o FILE [-k TYPE]": it runs
// C5 over a previously persisted candidates_*.json file and writes only
// the newly-confirmed-valid findings, never the rejected ones (spec
// §4.7's sink-purity invariant binds on every write path, including
// this command's).
func runValidate(logger *log.Logger, args []string) error {
	fs := flag.NewFlagSet("validate", flag.ExitOnError)
	input := fs.String("i", "", "candidates_*.json file produced by a prior unvalidated search run")
	output := fs.String("o", "", "output directory for the validated findings document")
	keyType := fs.String("k", "", "override the candidate file's key_type (defaults to the file's own)")
	if err := fs.Parse(args); err != nil {
		return exitError{err, 2}
	}
	if *input == "" || *output == "" {
		return exitError{errors.ConfigErr("validate requires -i and -o"), 2}
	}

	fileKeyType, candidates, err := sink.LoadCandidates(*input)
	if err != nil {
		return exitError{err, 2}
	}
	if *keyType != "" {
		fileKeyType = *keyType
	}

	cfg, err := loadConfigAndSecrets(logger)
	if err != nil {
		return exitError{err, 2}
	}
	validators := validate.NewDefaultRegistry(cfg.Validators)
	validator, ok := validators.Get(fileKeyType)
	if !ok {
		return exitError{errors.ConfigErr("no validator registered for key_type %q", fileKeyType), 2}
	}

	httpClient := httpclient.New(30 * time.Second)
	gate := tokenpool.NewGate(validator.DefaultRateLimit())

	s := sink.New(*output, logger)
	s.SetScannedCounter(func(string) int { return len(candidates) })

	ctx, stop := contextWithSignals(logger)
	defer stop()

	for _, cand := range candidates {
		if err := gate.Acquire(ctx); err != nil {
			break
		}
		result, err := validator.Validate(ctx, httpClient, cand.Key)
		if err != nil {
			logger.Printf("validate: %s: %v", cand.Key, err)
			continue
		}
		if !result.Valid {
			continue
		}
		s.Submit(models.Finding{Detected: cand, Validation: result, ValidatedAt: time.Now().UTC()})
	}

	written, err := s.Flush(time.Now().UTC())
	if err != nil {
		return exitError{errors.IoErr(err, "flushing validated findings"), 2}
	}
	logger.Printf("validate: %d candidate(s) checked, %d output file(s) written", len(candidates), len(written))
	return nil
}

// runTest implements "test KEY -k TYPE": a one-shot C5 invocation,
// exiting 0 if the key is valid, 1 if invalid, 2 on error.
func runTest(logger *log.Logger, args []string) error {
	fs := flag.NewFlagSet("test", flag.ExitOnError)
	keyType := fs.String("k", "", "validator key_type")
	if err := fs.Parse(args); err != nil {
		return exitError{err, 2}
	}
	if fs.NArg() < 1 {
		return exitError{errors.ConfigErr("test requires a KEY argument"), 2}
	}
	key := fs.Arg(0)
	if *keyType == "" {
		return exitError{errors.ConfigErr("test requires -k TYPE"), 2}
	}

	cfg, err := loadConfigAndSecrets(logger)
	if err != nil {
		return exitError{err, 2}
	}
	validators := validate.NewDefaultRegistry(cfg.Validators)
	validator, ok := validators.Get(*keyType)
	if !ok {
		return exitError{errors.ConfigErr("no validator registered for key_type %q (see \"keyhunter list validators\")", *keyType), 2}
	}

	httpClient := httpclient.New(30 * time.Second)
	ctx, stop := contextWithSignals(logger)
	defer stop()

	result, err := validator.Validate(ctx, httpClient, key)
	if err != nil {
		return exitError{err, 2}
	}

	encoded, _ := json.MarshalIndent(result, "", "  ")
	fmt.Println(string(encoded))

	if !result.Valid {
		return exitError{fmt.Errorf("key is invalid: %s", result.Message), 1}
	}
	return nil
}

// runList implements "list [detectors|validators|all]".
func runList(logger *log.Logger, args []string) error {
	mode := "all"
	if len(args) > 0 {
		mode = args[0]
	}

	cfg, err := loadConfigAndSecrets(logger)
	if err != nil {
		return exitError{err, 2}
	}
	detectors := detect.NewDefaultRegistry()
	validators := validate.NewDefaultRegistry(cfg.Validators)

	if mode == "detectors" || mode == "all" {
		fmt.Println("detectors:")
		for _, name := range detectors.Names() {
			d := detectors.Get(name)
			active := "inactive"
			for _, a := range detectors.Active() {
				if a.Name() == name {
					active = "active"
				}
			}
			fmt.Printf("  %-14s %-10s queries=%v\n", name, active, d.SearchQueries())
		}
	}
	if mode == "validators" || mode == "all" {
		fmt.Println("validators:")
		for _, name := range validators.Names() {
			v, _ := validators.Get(name)
			fmt.Printf("  %-14s rate_limit=%v\n", name, v.DefaultRateLimit())
		}
	}
	return nil
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
