// Package report implements the Reporting View (C9): it reads every
// Results Sink output file under a results directory and builds a
// deduplicated, per-repository aggregate for disclosure tooling,
// generalizing the teacher's pkg/db.GetRepositoryRiskMetrics aggregate
// query into an in-memory pass over JSON files rather than SQL rows,
// since no database is mandated for this view.
package report

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"

	"keyhunter/pkg/errors"
	"keyhunter/pkg/models"
)

// Load walks dir (as produced by the Results Sink: dir/<key_type>/valid_keys_*.json)
// and returns every OutputDocument found, skipping files that fail to
// parse rather than aborting the whole report — a single corrupted
// output file from a prior crashed run shouldn't hide every other
// finding.
func Load(dir string) ([]models.OutputDocument, error) {
	var docs []models.OutputDocument

	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			if os.IsNotExist(err) {
				return nil
			}
			return err
		}
		if d.IsDir() || filepath.Ext(path) != ".json" {
			return nil
		}

		data, readErr := os.ReadFile(path)
		if readErr != nil {
			return nil
		}

		var doc models.OutputDocument
		if err := json.Unmarshal(data, &doc); err != nil {
			return nil
		}
		docs = append(docs, doc)
		return nil
	})
	if err != nil {
		return nil, errors.IoErr(err, "walking results directory %s", dir)
	}
	return docs, nil
}

// Aggregate builds one RepositoryAggregate per repository found across
// docs, deduplicating Findings by (key, file_path) so the same
// credential discovered by two overlapping queries in the same run (or
// re-discovered across two separate runs) is reported once.
func Aggregate(docs []models.OutputDocument) []models.RepositoryAggregate {
	type dedupKey struct {
		repo, key, filePath string
	}

	seen := make(map[dedupKey]bool)
	byRepo := make(map[string]*models.RepositoryAggregate)
	var order []string

	for _, doc := range docs {
		for _, f := range doc.ValidKeys {
			dk := dedupKey{repo: f.Detected.Repository, key: f.Detected.Key, filePath: f.Detected.FilePath}
			if seen[dk] {
				continue
			}
			seen[dk] = true

			agg, ok := byRepo[f.Detected.Repository]
			if !ok {
				agg = &models.RepositoryAggregate{Repository: f.Detected.Repository}
				byRepo[f.Detected.Repository] = agg
				order = append(order, f.Detected.Repository)
			}
			agg.Findings = append(agg.Findings, f)
			agg.Count++
		}
	}

	sort.Strings(order)
	out := make([]models.RepositoryAggregate, 0, len(order))
	for _, repo := range order {
		out = append(out, *byRepo[repo])
	}
	return out
}

// LoadAndAggregate is the common case: read every result file under
// dir and fold them into the deduplicated per-repository view.
func LoadAndAggregate(dir string) ([]models.RepositoryAggregate, error) {
	docs, err := Load(dir)
	if err != nil {
		return nil, err
	}
	return Aggregate(docs), nil
}
