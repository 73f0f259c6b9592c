package domain

import "context"

// UserRepository defines access methods for accounts.
type UserRepository interface {
	Create(ctx context.Context, user *User) error
	GetByID(ctx context.Context, id string) (*User, error)
	GetByUsername(ctx context.Context, username string) (*User, error)
}

// JobRepository defines persistence for transformation jobs. Every mutator
// persists immediately so concurrent pollers observe each transition; the
// stored record is the only feedback channel to the user.
type JobRepository interface {
	Create(ctx context.Context, job *Job) error
	// GetByID loads the full job including image payloads.
	GetByID(ctx context.Context, jobID string) (*Job, error)
	// ListForUser returns the user's jobs newest-first, each annotated with
	// its per-user display index. Batch siblings sort adjacently.
	ListForUser(ctx context.Context, userID string) ([]JobListing, error)
	// SlotData returns the named slot's bytes for a job owned by userID.
	// Missing job, foreign owner, and unpopulated slot all yield ErrNotFound.
	SlotData(ctx context.Context, jobID, userID string, slot Slot) ([]byte, error)

	// SetStatus advances the status. Returns ErrJobFinished when the job is
	// already terminal.
	SetStatus(ctx context.Context, jobID string, status JobStatus) error
	// SetBreed records the detected breed label.
	SetBreed(ctx context.Context, jobID, breed string) error
	// SetStageResult writes one stage's output and the follow-on status in a
	// single atomic update, so a poller never observes a status ahead of its
	// slot. Returns ErrJobFinished when the job is already terminal.
	SetStageResult(ctx context.Context, jobID string, slot Slot, data []byte, next JobStatus) error
	// SetError forces the terminal error status with a message. It never
	// overwrites an existing terminal state.
	SetError(ctx context.Context, jobID, message string) error
}
