package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"basic-cleaning/models"
	"basic-cleaning/utils"
)

// PostgresRegistry persists runs, artifact versions and lineage in PostgreSQL.
type PostgresRegistry struct {
	db *sql.DB
}

// NewPostgresRegistry opens a connection, retrying the ping, runs schema
// migrations and returns a ready-to-use registry.
func NewPostgresRegistry(ctx context.Context, dsn string, retry *utils.RetryConfig) (*PostgresRegistry, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: open: %w", err)
	}

	if err := retry.Do(ctx, "postgres ping", db.PingContext); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("postgres: %w", err)
	}

	pr := &PostgresRegistry{db: db}
	if err := pr.migrate(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("postgres: migrate: %w", err)
	}
	return pr, nil
}

// newPostgresRegistryFromDB wraps an already open handle without migrating.
func newPostgresRegistryFromDB(db *sql.DB) *PostgresRegistry {
	return &PostgresRegistry{db: db}
}

func (pr *PostgresRegistry) migrate(ctx context.Context) error {
	_, err := pr.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS runs (
			id              UUID         PRIMARY KEY,
			project         TEXT         NOT NULL,
			job_type        TEXT         NOT NULL,
			status          VARCHAR(16)  NOT NULL,
			config          JSONB        NOT NULL DEFAULT '{}',
			summary         JSONB        NOT NULL DEFAULT '{}',
			input_artifacts TEXT[]       NOT NULL DEFAULT '{}',
			started_at      TIMESTAMPTZ  NOT NULL,
			finished_at     TIMESTAMPTZ
		);

		CREATE TABLE IF NOT EXISTS artifact_versions (
			id          UUID         PRIMARY KEY,
			name        TEXT         NOT NULL,
			version     INTEGER      NOT NULL,
			type        TEXT         NOT NULL,
			description TEXT         NOT NULL DEFAULT '',
			file_name   TEXT         NOT NULL,
			digest      CHAR(64)     NOT NULL,
			size        BIGINT       NOT NULL,
			object_key  TEXT         NOT NULL,
			run_id      UUID         REFERENCES runs(id),
			created_at  TIMESTAMPTZ  NOT NULL DEFAULT NOW(),
			UNIQUE (name, version)
		);

		CREATE TABLE IF NOT EXISTS artifact_usages (
			run_id      UUID         NOT NULL REFERENCES runs(id),
			artifact_id UUID         NOT NULL REFERENCES artifact_versions(id),
			used_at     TIMESTAMPTZ  NOT NULL DEFAULT NOW(),
			PRIMARY KEY (run_id, artifact_id)
		);

		CREATE INDEX IF NOT EXISTS idx_artifact_versions_name ON artifact_versions(name);
		CREATE INDEX IF NOT EXISTS idx_runs_job_type          ON runs(job_type);
	`)
	return err
}

const artifactColumns = `id, name, version, type, description, file_name, digest, size, object_key, run_id, created_at`

func scanArtifact(row rowScanner) (*models.ArtifactVersion, error) {
	v := &models.ArtifactVersion{}
	var runID sql.NullString
	if err := row.Scan(&v.ID, &v.Name, &v.Version, &v.Type, &v.Description,
		&v.FileName, &v.Digest, &v.Size, &v.ObjectKey, &runID, &v.CreatedAt); err != nil {
		return nil, err
	}
	v.RunID = runID.String
	return v, nil
}

func (pr *PostgresRegistry) LatestVersion(ctx context.Context, name string) (*models.ArtifactVersion, error) {
	row := pr.db.QueryRowContext(ctx, `SELECT `+artifactColumns+`
		FROM artifact_versions WHERE name = $1
		ORDER BY version DESC LIMIT 1`, name)
	v, err := scanArtifact(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("postgres: artifact %q: %w", name, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("postgres: latest version of %q: %w", name, err)
	}
	return v, nil
}

func (pr *PostgresRegistry) GetVersion(ctx context.Context, name string, version int) (*models.ArtifactVersion, error) {
	row := pr.db.QueryRowContext(ctx, `SELECT `+artifactColumns+`
		FROM artifact_versions WHERE name = $1 AND version = $2`, name, version)
	v, err := scanArtifact(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("postgres: artifact %s:v%d: %w", name, version, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("postgres: get %s:v%d: %w", name, version, err)
	}
	return v, nil
}

// RegisterVersion allocates the next version number under an advisory lock
// scoped to the artifact name and inserts the row in the same transaction.
func (pr *PostgresRegistry) RegisterVersion(ctx context.Context, v *models.ArtifactVersion) error {
	tx, err := pr.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("postgres: begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, v.Name); err != nil {
		return fmt.Errorf("postgres: lock %q: %w", v.Name, err)
	}

	var next int
	if err := tx.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(version) + 1, 0) FROM artifact_versions WHERE name = $1`, v.Name,
	).Scan(&next); err != nil {
		return fmt.Errorf("postgres: next version of %q: %w", v.Name, err)
	}

	var runID any
	if v.RunID != "" {
		runID = v.RunID
	}
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO artifact_versions (`+artifactColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)`,
		v.ID, v.Name, next, v.Type, v.Description, v.FileName, v.Digest, v.Size, v.ObjectKey, runID, v.CreatedAt,
	); err != nil {
		return fmt.Errorf("postgres: insert %s:v%d: %w", v.Name, next, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("postgres: commit: %w", err)
	}
	v.Version = next
	return nil
}

func (pr *PostgresRegistry) RecordUsage(ctx context.Context, u models.ArtifactUsage) error {
	_, err := pr.db.ExecContext(ctx, `
		INSERT INTO artifact_usages (run_id, artifact_id, used_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (run_id, artifact_id) DO NOTHING`,
		u.RunID, u.ArtifactID, u.UsedAt)
	if err != nil {
		return fmt.Errorf("postgres: record usage: %w", err)
	}
	return nil
}

func (pr *PostgresRegistry) RunInputs(ctx context.Context, runID string) ([]*models.ArtifactVersion, error) {
	rows, err := pr.db.QueryContext(ctx, `
		SELECT v.id, v.name, v.version, v.type, v.description, v.file_name,
		       v.digest, v.size, v.object_key, v.run_id, v.created_at
		FROM artifact_versions v
		JOIN artifact_usages u ON u.artifact_id = v.id
		WHERE u.run_id = $1
		ORDER BY u.used_at`, runID)
	if err != nil {
		return nil, fmt.Errorf("postgres: inputs of run %s: %w", runID, err)
	}
	defer rows.Close()

	var inputs []*models.ArtifactVersion
	for rows.Next() {
		v, err := scanArtifact(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan artifact: %w", err)
		}
		inputs = append(inputs, v)
	}
	return inputs, rows.Err()
}

func (pr *PostgresRegistry) CreateRun(ctx context.Context, r *models.RunRecord) error {
	cfg, summary, err := encodeRunMaps(r)
	if err != nil {
		return err
	}
	_, err = pr.db.ExecContext(ctx, `
		INSERT INTO runs (id, project, job_type, status, config, summary, input_artifacts, started_at, finished_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
		r.ID, r.Project, r.JobType, string(r.Status), cfg, summary,
		inputArtifacts(r), r.StartedAt, r.FinishedAt)
	if err != nil {
		return fmt.Errorf("postgres: create run: %w", err)
	}
	return nil
}

func (pr *PostgresRegistry) UpdateRun(ctx context.Context, r *models.RunRecord) error {
	cfg, summary, err := encodeRunMaps(r)
	if err != nil {
		return err
	}
	res, err := pr.db.ExecContext(ctx, `
		UPDATE runs
		SET status = $2, config = $3, summary = $4, input_artifacts = $5, finished_at = $6
		WHERE id = $1`,
		r.ID, string(r.Status), cfg, summary, inputArtifacts(r), r.FinishedAt)
	if err != nil {
		return fmt.Errorf("postgres: update run: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("postgres: run %s: %w", r.ID, ErrNotFound)
	}
	return nil
}

const runColumns = `id, project, job_type, status, config, summary, input_artifacts, started_at, finished_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (*models.RunRecord, error) {
	r := &models.RunRecord{}
	var status string
	var cfg, summary []byte
	if err := row.Scan(&r.ID, &r.Project, &r.JobType, &status, &cfg, &summary,
		pq.Array(&r.InputArtifacts), &r.StartedAt, &r.FinishedAt); err != nil {
		return nil, err
	}
	r.Status = models.RunStatus(status)
	if err := json.Unmarshal(cfg, &r.Config); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := json.Unmarshal(summary, &r.Summary); err != nil {
		return nil, fmt.Errorf("decode summary: %w", err)
	}
	return r, nil
}

func (pr *PostgresRegistry) GetRun(ctx context.Context, id string) (*models.RunRecord, error) {
	r, err := scanRun(pr.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("postgres: run %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("postgres: get run: %w", err)
	}
	return r, nil
}

func (pr *PostgresRegistry) ListRuns(ctx context.Context, jobType string) ([]*models.RunRecord, error) {
	rows, err := pr.db.QueryContext(ctx, `SELECT `+runColumns+`
		FROM runs
		WHERE $1 = '' OR job_type = $1
		ORDER BY started_at, id`, jobType)
	if err != nil {
		return nil, fmt.Errorf("postgres: list runs: %w", err)
	}
	defer rows.Close()

	var runs []*models.RunRecord
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan run: %w", err)
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

func encodeRunMaps(r *models.RunRecord) ([]byte, []byte, error) {
	cfg, err := json.Marshal(nonNil(r.Config))
	if err != nil {
		return nil, nil, fmt.Errorf("postgres: encode config: %w", err)
	}
	summary, err := json.Marshal(nonNil(r.Summary))
	if err != nil {
		return nil, nil, fmt.Errorf("postgres: encode summary: %w", err)
	}
	return cfg, summary, nil
}

// inputArtifacts encodes the input list as a text array. A nil slice would be
// sent as NULL, which the NOT NULL column rejects.
func inputArtifacts(r *models.RunRecord) any {
	if r.InputArtifacts == nil {
		return pq.Array([]string{})
	}
	return pq.Array(r.InputArtifacts)
}

func nonNil(m map[string]any) map[string]any {
	if m == nil {
		return map[string]any{}
	}
	return m
}

func (pr *PostgresRegistry) Close() error {
	return pr.db.Close()
}
