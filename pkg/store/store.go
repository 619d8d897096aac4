// Package store implements the optional durable aggregate store: a
// thin Postgres persistence layer for validated Findings, adapted from
// the teacher's pkg/db/db.go (connection string shape, transactional
// upsert idiom) from secret-detection rows to this domain's
// Finding/RepositoryAggregate shape. No component in this spec
// requires Postgres — it exists so operators can query findings across
// runs with SQL instead of re-scanning JSON files.
package store

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"

	"keyhunter/pkg/errors"
	"keyhunter/pkg/models"
)

// Store wraps a Postgres connection holding discovered Findings.
type Store struct {
	*sql.DB
}

// New opens a connection, pinging it once to fail fast on
// misconfiguration rather than at the first real query.
func New(host, port, user, password, dbname string) (*Store, error) {
	connStr := fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		host, port, user, password, dbname,
	)

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, errors.ConfigErr("opening database connection: %v", err)
	}
	if err := db.Ping(); err != nil {
		return nil, errors.NetworkErr(err, "connecting to database")
	}
	return &Store{db}, nil
}

// Schema is the DDL this package expects to already exist. It is
// exposed as a constant rather than applied automatically: migrations
// are an operator decision, not something the Store should perform
// implicitly against a production database.
const Schema = `
CREATE TABLE IF NOT EXISTS repositories (
	id SERIAL PRIMARY KEY,
	full_name TEXT NOT NULL UNIQUE
);

CREATE TABLE IF NOT EXISTS findings (
	id SERIAL PRIMARY KEY,
	repository_id INTEGER NOT NULL REFERENCES repositories(id),
	key_type TEXT NOT NULL,
	key_value TEXT NOT NULL,
	file_path TEXT NOT NULL,
	line_number INTEGER NOT NULL,
	file_url TEXT NOT NULL,
	valid BOOLEAN NOT NULL,
	message TEXT,
	validated_at TIMESTAMPTZ NOT NULL,
	UNIQUE (key_type, key_value, file_path)
);
`

// RecordFinding upserts a Finding's repository then inserts the
// finding itself, skipping silently on a (key_type, key_value,
// file_path) conflict so re-running the pipeline over an unchanged
// repository doesn't duplicate rows.
func (s *Store) RecordFinding(ctx context.Context, f models.Finding) error {
	tx, err := s.BeginTx(ctx, nil)
	if err != nil {
		return errors.IoErr(err, "starting transaction")
	}
	defer tx.Rollback()

	var repoID int
	err = tx.QueryRowContext(ctx,
		`INSERT INTO repositories (full_name) VALUES ($1)
         ON CONFLICT (full_name) DO UPDATE SET full_name = EXCLUDED.full_name
         RETURNING id`,
		f.Detected.Repository,
	).Scan(&repoID)
	if err != nil {
		return errors.IoErr(err, "upserting repository %s", f.Detected.Repository)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO findings
         (repository_id, key_type, key_value, file_path, line_number, file_url, valid, message, validated_at)
         VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
         ON CONFLICT (key_type, key_value, file_path) DO NOTHING`,
		repoID, f.Detected.KeyType, f.Detected.Key, f.Detected.FilePath,
		f.Detected.LineNumber, f.Detected.FileURL, f.Validation.Valid, f.Validation.Message, f.ValidatedAt,
	)
	if err != nil {
		return errors.IoErr(err, "inserting finding for %s", f.Detected.Repository)
	}

	return tx.Commit()
}

// RepositoryAggregates returns every repository with at least one
// valid finding, most-findings-first, mirroring the Reporting View's
// in-memory aggregate shape for callers that would rather query
// Postgres than replay JSON result files.
func (s *Store) RepositoryAggregates(ctx context.Context) ([]models.RepositoryAggregate, error) {
	rows, err := s.QueryContext(ctx,
		`SELECT r.full_name, f.key_type, f.key_value, f.file_path, f.line_number,
                f.file_url, f.valid, f.message, f.validated_at
         FROM findings f
         JOIN repositories r ON r.id = f.repository_id
         WHERE f.valid = true
         ORDER BY r.full_name`,
	)
	if err != nil {
		return nil, errors.IoErr(err, "querying repository aggregates")
	}
	defer rows.Close()

	byRepo := make(map[string]*models.RepositoryAggregate)
	var order []string

	for rows.Next() {
		var repoName string
		var f models.Finding
		if err := rows.Scan(
			&repoName, &f.Detected.KeyType, &f.Detected.Key, &f.Detected.FilePath, &f.Detected.LineNumber,
			&f.Detected.FileURL, &f.Validation.Valid, &f.Validation.Message, &f.ValidatedAt,
		); err != nil {
			return nil, errors.IoErr(err, "scanning repository aggregate row")
		}
		f.Detected.Repository = repoName
		f.Validation.KeyType = f.Detected.KeyType

		agg, ok := byRepo[repoName]
		if !ok {
			agg = &models.RepositoryAggregate{Repository: repoName}
			byRepo[repoName] = agg
			order = append(order, repoName)
		}
		agg.Findings = append(agg.Findings, f)
		agg.Count++
	}
	if err := rows.Err(); err != nil {
		return nil, errors.IoErr(err, "iterating repository aggregate rows")
	}

	out := make([]models.RepositoryAggregate, 0, len(order))
	for _, name := range order {
		out = append(out, *byRepo[name])
	}
	return out, nil
}
