package domain

import (
	"context"
	"io"
	"time"
)

// AttemptStore records settlement attempts for later inspection and archival.
// Recording is an audit trail only; eligibility is always recomputed from
// chain state, never from stored attempts.
type AttemptStore interface {
	Record(ctx context.Context, runID string, att SettlementAttempt) error
	ListBefore(ctx context.Context, before time.Time) ([]SettlementAttempt, error)
	DeleteBefore(ctx context.Context, before time.Time) (int64, error)
}

// LockManager provides distributed run locks. Acquire returns an unlock
// function on success, or ErrLockHeld when another holder owns the key.
type LockManager interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (func(), error)
}

// BlobWriter uploads an object to blob storage. PutMultipart is for payloads
// large enough to benefit from chunked, concurrent upload; partSize is a hint
// the implementation may clamp.
type BlobWriter interface {
	Put(ctx context.Context, path string, data io.Reader, contentType string) error
	PutMultipart(ctx context.Context, path string, data io.Reader, partSize int64) error
}

// Archiver exports aged settlement attempts out of the primary store.
type Archiver interface {
	ArchiveAttempts(ctx context.Context, before time.Time) (int64, error)
}
