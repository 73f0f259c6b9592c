package storage

import "context"

// ObjectStore mirrors stage images outside the database for inspection and
// offline debugging. The database row stays authoritative; mirror failures
// never fail a pipeline stage.
type ObjectStore interface {
	Write(ctx context.Context, key string, data []byte) (string, error)
}
