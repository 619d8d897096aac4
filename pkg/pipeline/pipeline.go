// Package pipeline implements the Discovery Pipeline (C7): a
// four-stage bounded-channel pipeline (query -> search -> detect ->
// validate -> sink), generalizing the teacher's semaphore-gated
// worker-pool idiom (pkg/scanner/scanner.go's processRepositories /
// processCommitBatch) from one stage fanning out over repositories to
// several independently-sized stages fanning out over search queries.
package pipeline

import (
	"context"
	"log"
	"net/http"
	"sync"
	"time"

	"keyhunter/pkg/detect"
	"keyhunter/pkg/errors"
	"keyhunter/pkg/httpclient"
	"keyhunter/pkg/models"
	"keyhunter/pkg/search"
	"keyhunter/pkg/sink"
	"keyhunter/pkg/tokenpool"
	"keyhunter/pkg/validate"
)

// Concurrency bounds the worker count of each stage.
type Concurrency struct {
	Search   int
	Detect   int
	Validate int
}

// DefaultConcurrency matches the spec's suggested defaults: 8 search
// workers, 8 detect workers, 4 validate workers (validators are paced
// by their own Rate Limiter gate regardless of pool size).
func DefaultConcurrency() Concurrency {
	return Concurrency{Search: 8, Detect: 8, Validate: 4}
}

// Pipeline wires the Search Provider, Detector Registry, Validator
// Registry, Token Pool, per-validator Rate Limiter gates, and Results
// Sink into one running scan.
type Pipeline struct {
	provider       *search.Provider
	detectors      *detect.Registry
	validators     *validate.Registry
	tokens         *tokenpool.Pool
	gates          *tokenpool.Registry
	httpClient     *httpclient.Client
	sink           *sink.Sink
	logger         *log.Logger
	conc           Concurrency
	validateInline bool

	seenMu sync.Mutex
	seen   map[string]bool

	scannedMu sync.Mutex
	scanned   map[string]int
}

// New builds a Pipeline. tokens may be nil (unauthenticated search,
// heavily rate limited by GitHub); gates is required for Validate to
// pace validator calls. When validateInline is false, the validate
// stage (C5) is skipped entirely — deduplicated DetectedKeys go
// straight to the Sink as unvalidated candidates, per spec's "when
// inline validation is disabled" path, and a later "validate" command
// run is expected to confirm them.
func New(provider *search.Provider, detectors *detect.Registry, validators *validate.Registry, tokens *tokenpool.Pool, gates *tokenpool.Registry, httpClient *httpclient.Client, s *sink.Sink, logger *log.Logger, conc Concurrency, validateInline bool) *Pipeline {
	return &Pipeline{
		provider: provider, detectors: detectors, validators: validators,
		tokens: tokens, gates: gates, httpClient: httpClient, sink: s, logger: logger,
		conc: conc, validateInline: validateInline, seen: make(map[string]bool),
		scanned: make(map[string]int),
	}
}

// queryTask pairs a query with its validator rate-limit key so later
// stages don't need the Detector Registry back-reference.
type queryTask struct {
	query search.Query
}

type searchTask struct {
	result       models.SearchResult
	detectorName string
}

type detectTask struct {
	key          models.DetectedKey
	detectorName string
}

// Run executes one full scan over queries, returning once every stage
// has drained or ctx is cancelled. It never returns a partial-progress
// error for a single failed query or validation call — those are
// logged and skipped so one bad query can't abort the whole run.
func (p *Pipeline) Run(ctx context.Context, queries []search.Query) error {
	queryCh := make(chan queryTask, len(queries))
	for _, q := range queries {
		queryCh <- queryTask{query: q}
	}
	close(queryCh)

	searchCh := make(chan searchTask, p.conc.Search*4)
	detectCh := make(chan detectTask, p.conc.Detect*4)

	var wg sync.WaitGroup

	wg.Add(p.conc.Search)
	for i := 0; i < p.conc.Search; i++ {
		go func() {
			defer wg.Done()
			p.runSearchStage(ctx, queryCh, searchCh)
		}()
	}

	var detectWG sync.WaitGroup
	detectWG.Add(p.conc.Detect)
	for i := 0; i < p.conc.Detect; i++ {
		go func() {
			defer detectWG.Done()
			p.runDetectStage(ctx, searchCh, detectCh)
		}()
	}

	var validateWG sync.WaitGroup
	if p.validateInline {
		validateWG.Add(p.conc.Validate)
		for i := 0; i < p.conc.Validate; i++ {
			go func() {
				defer validateWG.Done()
				p.runValidateStage(ctx, detectCh)
			}()
		}
	} else {
		// No validate stage: the detect stage already wrote every
		// DetectedKey straight to the Sink as an unvalidated
		// candidate, so detectCh only needs draining (it's never
		// actually sent to — see detectOne).
		validateWG.Add(1)
		go func() {
			defer validateWG.Done()
			for range detectCh {
			}
		}()
	}

	wg.Wait()
	close(searchCh)
	detectWG.Wait()
	close(detectCh)
	validateWG.Wait()

	return ctx.Err()
}

func (p *Pipeline) runSearchStage(ctx context.Context, in <-chan queryTask, out chan<- searchTask) {
	for {
		select {
		case <-ctx.Done():
			return
		case task, ok := <-in:
			if !ok {
				return
			}
			p.executeQuery(ctx, task, out)
		}
	}
}

func (p *Pipeline) executeQuery(ctx context.Context, task queryTask, out chan<- searchTask) {
	searchCtx := ctx
	var slot *models.TokenSlot
	if p.tokens != nil && p.tokens.Len() > 0 {
		leased, err := p.tokens.Lease(ctx)
		if err != nil {
			return
		}
		slot = leased
		searchCtx = search.WithToken(ctx, slot.Token)
	}

	results, rate, err := p.provider.Search(searchCtx, task.query)

	if slot != nil {
		p.tokens.Release(slot, rate.StatusCode, rate.RetryAfter, rate.Remaining, rate.Reset)
		if errors.Of(err) == errors.Unauthoriz {
			p.tokens.Invalidate(slot)
		}
	}

	if err != nil {
		if p.logger != nil {
			p.logger.Printf("pipeline: query %q failed: %v", task.query.Text, err)
		}
		return
	}

	for _, r := range results {
		select {
		case <-ctx.Done():
			return
		case out <- searchTask{result: r, detectorName: task.query.DetectorName}:
		}
	}
}

func (p *Pipeline) runDetectStage(ctx context.Context, in <-chan searchTask, out chan<- detectTask) {
	client := &http.Client{Timeout: 30 * time.Second}
	for {
		select {
		case <-ctx.Done():
			return
		case task, ok := <-in:
			if !ok {
				return
			}
			p.detectOne(ctx, client, task, out)
		}
	}
}

func (p *Pipeline) detectOne(ctx context.Context, client *http.Client, task searchTask, out chan<- detectTask) {
	detector := p.detectors.Get(task.detectorName)
	if detector == nil {
		return
	}

	content := search.JoinTextMatches(task.result)
	if content == "" {
		fetched, ok, err := p.provider.FetchContent(ctx, client, task.result.RawURL)
		if err != nil || !ok {
			return
		}
		content = fetched
	}

	for _, key := range detector.Detect(content, task.result.FilePath) {
		key.Repository = task.result.Repository
		key.FileURL = task.result.FileURL

		p.incrementScanned(task.detectorName)
		if p.isDuplicate(key.Key) {
			continue
		}

		if !p.validateInline {
			p.sink.SubmitCandidate(key)
			continue
		}

		select {
		case <-ctx.Done():
			return
		case out <- detectTask{key: key, detectorName: task.detectorName}:
		}
	}
}

func (p *Pipeline) runValidateStage(ctx context.Context, in <-chan detectTask) {
	for {
		select {
		case <-ctx.Done():
			return
		case task, ok := <-in:
			if !ok {
				return
			}
			p.validateOne(ctx, task)
		}
	}
}

func (p *Pipeline) validateOne(ctx context.Context, task detectTask) {
	validator, ok := p.validators.Get(task.detectorName)
	if !ok {
		// No validator registered (e.g. the generic family): the
		// finding is sink-only and considered "valid" by fiat, since
		// there is no issuing service to confirm it against.
		p.sink.Submit(models.Finding{
			Detected:    task.key,
			Validation:  models.ValidationResult{Valid: true, KeyType: task.detectorName, Message: "unvalidated (no issuer API)"},
			ValidatedAt: time.Now().UTC(),
		})
		return
	}

	gate := p.gates.Get(task.detectorName, validator.DefaultRateLimit())
	if err := gate.Acquire(ctx); err != nil {
		return
	}

	result, err := validator.Validate(ctx, p.httpClient, task.key.Key)
	if err != nil {
		if p.logger != nil {
			p.logger.Printf("pipeline: validating %s key: %v", task.detectorName, err)
		}
		return
	}

	if !result.Valid {
		return
	}

	p.sink.Submit(models.Finding{
		Detected:    task.key,
		Validation:  result,
		ValidatedAt: time.Now().UTC(),
	})
}

func (p *Pipeline) isDuplicate(key string) bool {
	p.seenMu.Lock()
	defer p.seenMu.Unlock()
	if p.seen[key] {
		return true
	}
	p.seen[key] = true
	return false
}

func (p *Pipeline) incrementScanned(keyType string) {
	p.scannedMu.Lock()
	p.scanned[keyType]++
	p.scannedMu.Unlock()
}

// TotalScanned returns the number of (pre-dedup) candidate keys every
// Detector combined proposed during the run, used for logging.
func (p *Pipeline) TotalScanned() int {
	p.scannedMu.Lock()
	defer p.scannedMu.Unlock()
	total := 0
	for _, n := range p.scanned {
		total += n
	}
	return total
}

// ScannedForType returns the number of (pre-dedup) candidate keys
// proposed during the run for one detector/key_type, which the Results
// Sink wires per output file so "-k all" runs don't report every
// key_type's file against the cross-type total (spec §6's
// total_keys_scanned is per key_type, not global).
func (p *Pipeline) ScannedForType(keyType string) int {
	p.scannedMu.Lock()
	defer p.scannedMu.Unlock()
	return p.scanned[keyType]
}
