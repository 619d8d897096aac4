// Package sink implements the Results Sink (C8): a single dedicated
// writer goroutine that receives validated Findings over a channel and
// persists them as one JSON document per key type, atomically and
// without ever overwriting a prior run's output. The single-writer
// design generalizes the teacher's Scanner, which likewise confines
// all outbound I/O (its Postgres upserts) to calls made from inside
// the worker pool rather than letting every goroutine write directly.
package sink

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"keyhunter/pkg/errors"
	"keyhunter/pkg/models"
)

// Sink accumulates Findings in memory, grouped by key type, and
// flushes each group to its own output file on Close. Submit is safe
// to call concurrently from every Validate-stage worker; the
// accumulation itself is protected by a mutex rather than funneled
// through a channel, since a flush only happens once at the end of a
// run rather than continuously.
type Sink struct {
	mu         sync.Mutex
	outputDir  string
	logger     *log.Logger
	byKeyType  map[string][]models.Finding
	candidates map[string][]models.DetectedKey
	scanned    func(keyType string) int
}

// New builds a Sink writing under outputDir/<key_type>/. scanned, if
// non-nil, is called once per flushed file with that file's key_type to
// populate total_keys_scanned; a pipeline run wires this to its own
// per-key_type counter so a "-k all" run's per-type files each report
// their own type's scanned count, not the run's cross-type total.
func New(outputDir string, logger *log.Logger) *Sink {
	return &Sink{
		outputDir:  outputDir,
		logger:     logger,
		byKeyType:  make(map[string][]models.Finding),
		candidates: make(map[string][]models.DetectedKey),
	}
}

// SetScannedCounter wires the pre-dedup candidate counter used for
// total_keys_scanned; left unset, that field is reported as the
// post-dedup valid count.
func (s *Sink) SetScannedCounter(f func(keyType string) int) {
	s.scanned = f
}

// Submit records one validated Finding. Only the pipeline calls this,
// and only after Validation.Valid is true (or, for the sink-only
// generic detector, the fiat-valid substitute) — the Sink itself does
// not re-check validity, trusting its caller's sink-purity invariant.
func (s *Sink) Submit(f models.Finding) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byKeyType[f.Detected.KeyType] = append(s.byKeyType[f.Detected.KeyType], f)
}

// SubmitCandidate records a deduplicated but unvalidated DetectedKey,
// used when the Discovery Pipeline runs with inline validation
// disabled (spec's "detected keys flow directly to the Sink as
// unvalidated candidates" path). Candidates are written to their own
// file, separate from valid_keys_*.json, so the Sink's
// validation.valid-only purity invariant for that file is never
// compromised by an unvalidated entry.
func (s *Sink) SubmitCandidate(k models.DetectedKey) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.candidates[k.KeyType] = append(s.candidates[k.KeyType], k)
}

// candidateDocument is the shape written to candidates_*.json and read
// back by the "validate" command's -i flag.
type candidateDocument struct {
	Timestamp  time.Time            `json:"timestamp"`
	KeyType    string               `json:"key_type"`
	Candidates []models.DetectedKey `json:"candidates"`
}

// Flush writes one output file per key type accumulated so far,
// returning the paths written. Each file is written atomically: built
// in full as a temp file in the destination directory, then renamed
// into place, so a crash mid-write never leaves a truncated JSON
// document where a reader expects a complete one. An existing file at
// the target path is never overwritten — Flush appends "_1", "_2", ...
// until it finds a name that doesn't exist.
func (s *Sink) Flush(now time.Time) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var written []string
	for keyType, findings := range s.byKeyType {
		path, err := s.flushOne(keyType, findings, now)
		if err != nil {
			return written, err
		}
		written = append(written, path)
	}
	return written, nil
}

func (s *Sink) flushOne(keyType string, findings []models.Finding, now time.Time) (string, error) {
	totalScanned := len(findings)
	if s.scanned != nil {
		totalScanned = s.scanned(keyType)
	}

	doc := models.OutputDocument{
		Timestamp:        now,
		KeyType:          keyType,
		TotalValidKeys:   len(findings),
		TotalKeysScanned: totalScanned,
		ValidKeys:        findings,
	}

	namePrefix := fmt.Sprintf("valid_keys_%s", now.UTC().Format("20060102_150405"))
	path, err := atomicWriteJSON(filepath.Join(s.outputDir, keyType), namePrefix, doc)
	if err != nil {
		return "", err
	}

	if s.logger != nil {
		s.logger.Printf("sink: wrote %d valid %s key(s) to %s", len(findings), keyType, path)
	}
	return path, nil
}

// FlushCandidates writes one candidates_*.json file per key type with
// unvalidated candidates accumulated via SubmitCandidate, using the
// same atomic temp-file-then-rename, never-overwrite discipline as
// Flush.
func (s *Sink) FlushCandidates(now time.Time) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var written []string
	for keyType, candidates := range s.candidates {
		doc := candidateDocument{Timestamp: now, KeyType: keyType, Candidates: candidates}
		namePrefix := fmt.Sprintf("candidates_%s", now.UTC().Format("20060102_150405"))
		path, err := atomicWriteJSON(filepath.Join(s.outputDir, keyType), namePrefix, doc)
		if err != nil {
			return written, err
		}
		if s.logger != nil {
			s.logger.Printf("sink: wrote %d unvalidated %s candidate(s) to %s", len(candidates), keyType, path)
		}
		written = append(written, path)
	}
	return written, nil
}

// LoadCandidates reads a candidates_*.json file written by
// FlushCandidates, returning its key type and candidate list. It backs
// the "validate" command's -i flag.
func LoadCandidates(path string) (string, []models.DetectedKey, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", nil, errors.IoErr(err, "reading candidates file %s", path)
	}
	var doc candidateDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return "", nil, errors.ParseErr(err, "parsing candidates file %s", path)
	}
	return doc.KeyType, doc.Candidates, nil
}

// atomicWriteJSON marshals doc, writes it to a temp file inside dir,
// then renames it into the first available "<namePrefix>[_n].json"
// path, never overwriting an existing file.
func atomicWriteJSON(dir, namePrefix string, doc any) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", errors.IoErr(err, "creating output directory %s", dir)
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return "", errors.IoErr(err, "encoding output document in %s", dir)
	}

	path := nextAvailablePath(filepath.Join(dir, namePrefix+".json"))

	tmp, err := os.CreateTemp(dir, "."+namePrefix+"_*.tmp")
	if err != nil {
		return "", errors.IoErr(err, "creating temp file in %s", dir)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return "", errors.IoErr(err, "writing %s", tmpPath)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return "", errors.IoErr(err, "closing %s", tmpPath)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return "", errors.IoErr(err, "renaming %s to %s", tmpPath, path)
	}
	return path, nil
}

// nextAvailablePath appends "_1", "_2", ... before the extension until
// it finds a path that doesn't already exist, so a second run in the
// same second never clobbers the first.
func nextAvailablePath(path string) string {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return path
	}
	ext := filepath.Ext(path)
	base := path[:len(path)-len(ext)]
	for i := 1; ; i++ {
		candidate := fmt.Sprintf("%s_%d%s", base, i, ext)
		if _, err := os.Stat(candidate); os.IsNotExist(err) {
			return candidate
		}
	}
}
