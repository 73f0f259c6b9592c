package repo

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"shaggydog/internal/domain"
)

// JobRepositoryPG implements domain.JobRepository.
type JobRepositoryPG struct {
	pool *pgxpool.Pool
}

// NewJobRepository creates a new job repository backed by PostgreSQL.
func NewJobRepository(pool *pgxpool.Pool) *JobRepositoryPG {
	return &JobRepositoryPG{pool: pool}
}

// slotColumns maps payload slots to their bytea columns. Column names never
// come from request input without passing through this map.
var slotColumns = map[domain.Slot]string{
	domain.SlotOriginal: "original",
	domain.SlotStage1:   "stage1",
	domain.SlotStage2:   "stage2",
	domain.SlotFinal:    "final",
}

// Create inserts a new job record with its original upload payload.
func (r *JobRepositoryPG) Create(ctx context.Context, job *domain.Job) error {
	query := `
INSERT INTO jobs (id, user_id, batch_id, pipeline, breed, status, error_message, original)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8);
`
	_, err := r.pool.Exec(ctx, query,
		job.ID,
		job.UserID,
		nullableText(job.BatchID),
		job.Pipeline,
		job.Breed,
		job.Status,
		job.ErrorMessage,
		job.Original,
	)
	return err
}

// GetByID fetches a job with all of its image payloads.
func (r *JobRepositoryPG) GetByID(ctx context.Context, jobID string) (*domain.Job, error) {
	query := `
SELECT id, user_id, COALESCE(batch_id::text, ''), pipeline, breed, status, error_message,
       original, stage1, stage2, final, created_at, updated_at
FROM jobs
WHERE id = $1;
`
	row := r.pool.QueryRow(ctx, query, jobID)
	var job domain.Job
	if err := row.Scan(
		&job.ID,
		&job.UserID,
		&job.BatchID,
		&job.Pipeline,
		&job.Breed,
		&job.Status,
		&job.ErrorMessage,
		&job.Original,
		&job.Stage1,
		&job.Stage2,
		&job.Final,
		&job.CreatedAt,
		&job.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &job, nil
}

// ListForUser returns listing projections for all of the user's jobs,
// newest first. The display index ranks the user's jobs by creation order
// and stays stable as new jobs arrive on top. Batch siblings share a
// creation instant, so the pipeline tiebreak keeps them adjacent.
func (r *JobRepositoryPG) ListForUser(ctx context.Context, userID string) ([]domain.JobListing, error) {
	query := `
SELECT id, COALESCE(batch_id::text, ''), pipeline, breed, status, error_message, created_at,
       ROW_NUMBER() OVER (ORDER BY created_at ASC, id ASC) AS display_index,
       original IS NOT NULL, stage1 IS NOT NULL, stage2 IS NOT NULL, final IS NOT NULL
FROM jobs
WHERE user_id = $1
ORDER BY created_at DESC, pipeline ASC;
`
	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var listings []domain.JobListing
	for rows.Next() {
		var l domain.JobListing
		if err := rows.Scan(
			&l.ID,
			&l.BatchID,
			&l.Pipeline,
			&l.Breed,
			&l.Status,
			&l.ErrorMessage,
			&l.CreatedAt,
			&l.DisplayIndex,
			&l.HasOriginal,
			&l.HasStage1,
			&l.HasStage2,
			&l.HasFinal,
		); err != nil {
			return nil, err
		}
		listings = append(listings, l)
	}
	return listings, rows.Err()
}

// SlotData returns one slot's payload for a job owned by userID. A missing
// job, a job owned by someone else, and an empty slot are indistinguishable
// to the caller: all return ErrNotFound.
func (r *JobRepositoryPG) SlotData(ctx context.Context, jobID, userID string, slot domain.Slot) ([]byte, error) {
	column, ok := slotColumns[slot]
	if !ok {
		return nil, domain.ErrNotFound
	}
	query := fmt.Sprintf(`SELECT %s FROM jobs WHERE id = $1 AND user_id = $2`, column)
	var data []byte
	if err := r.pool.QueryRow(ctx, query, jobID, userID).Scan(&data); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	if len(data) == 0 {
		return nil, domain.ErrNotFound
	}
	return data, nil
}

// SetStatus advances a non-terminal job to the given status.
func (r *JobRepositoryPG) SetStatus(ctx context.Context, jobID string, status domain.JobStatus) error {
	query := `
UPDATE jobs
SET status = $2,
    updated_at = NOW()
WHERE id = $1
  AND status NOT IN ('completed', 'error');
`
	tag, err := r.pool.Exec(ctx, query, jobID, status)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return r.finishedOrMissing(ctx, jobID)
	}
	return nil
}

// SetBreed records the detected breed on a non-terminal job.
func (r *JobRepositoryPG) SetBreed(ctx context.Context, jobID, breed string) error {
	query := `
UPDATE jobs
SET breed = $2,
    updated_at = NOW()
WHERE id = $1
  AND status NOT IN ('completed', 'error');
`
	tag, err := r.pool.Exec(ctx, query, jobID, breed)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return r.finishedOrMissing(ctx, jobID)
	}
	return nil
}

// SetStageResult stores a stage's output image and the follow-on status in
// one statement, so no reader can ever see the status without its image.
func (r *JobRepositoryPG) SetStageResult(ctx context.Context, jobID string, slot domain.Slot, data []byte, next domain.JobStatus) error {
	column, ok := slotColumns[slot]
	if !ok {
		return fmt.Errorf("repo: unknown slot %q", slot)
	}
	query := fmt.Sprintf(`
UPDATE jobs
SET %s = $2,
    status = $3,
    updated_at = NOW()
WHERE id = $1
  AND status NOT IN ('completed', 'error');
`, column)
	tag, err := r.pool.Exec(ctx, query, jobID, data, next)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return r.finishedOrMissing(ctx, jobID)
	}
	return nil
}

// SetError moves a job to the terminal error status with a user-visible
// message. Jobs already terminal are left untouched.
func (r *JobRepositoryPG) SetError(ctx context.Context, jobID, message string) error {
	query := `
UPDATE jobs
SET status = 'error',
    error_message = $2,
    updated_at = NOW()
WHERE id = $1
  AND status NOT IN ('completed', 'error');
`
	_, err := r.pool.Exec(ctx, query, jobID, message)
	return err
}

// finishedOrMissing disambiguates a zero-row update: the job either does not
// exist or has already reached a terminal status.
func (r *JobRepositoryPG) finishedOrMissing(ctx context.Context, jobID string) error {
	var status domain.JobStatus
	err := r.pool.QueryRow(ctx, `SELECT status FROM jobs WHERE id = $1`, jobID).Scan(&status)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.ErrNotFound
	}
	if err != nil {
		return err
	}
	return domain.ErrJobFinished
}

func nullableText(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
