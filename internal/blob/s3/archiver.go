package s3blob

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/alanyoungcy/slotclaim/internal/domain"
)

// AttemptLister is the narrow read surface the archiver needs from the
// attempt store.
type AttemptLister interface {
	ListBefore(ctx context.Context, before time.Time) ([]domain.SettlementAttempt, error)
}

// multipartThreshold is the serialized size at which an export switches from
// a single PutObject to a multipart upload. Exports spanning one full S3
// part already amortize the multipart round trips.
const multipartThreshold = minPartSize

// ArchiveImpl implements domain.Archiver by querying the attempt store for
// old records, serialising them to JSONL, and uploading the result to S3.
//
// Deletion of the archived rows from the primary store is intentionally NOT
// performed here; that is a separate, explicit step executed after the
// archive has been verified.
type ArchiveImpl struct {
	writer   domain.BlobWriter
	attempts AttemptLister
}

// NewArchiver creates a new ArchiveImpl.
func NewArchiver(writer domain.BlobWriter, attempts AttemptLister) *ArchiveImpl {
	return &ArchiveImpl{writer: writer, attempts: attempts}
}

// ArchiveAttempts queries all settlement attempts before the cutoff,
// serialises them to JSONL, and uploads the file to S3 at
// archive/settlement_attempts/YYYY-MM.jsonl. It returns the count of
// archived records.
func (a *ArchiveImpl) ArchiveAttempts(ctx context.Context, before time.Time) (int64, error) {
	attempts, err := a.attempts.ListBefore(ctx, before)
	if err != nil {
		return 0, fmt.Errorf("s3blob: archive attempts query: %w", err)
	}
	if len(attempts) == 0 {
		return 0, nil
	}

	buf, err := marshalJSONL(attempts)
	if err != nil {
		return 0, fmt.Errorf("s3blob: archive attempts marshal: %w", err)
	}

	path := archivePath("settlement_attempts", before)
	if int64(len(buf)) >= multipartThreshold {
		err = a.writer.PutMultipart(ctx, path, bytes.NewReader(buf), minPartSize)
	} else {
		err = a.writer.Put(ctx, path, bytes.NewReader(buf), "application/x-ndjson")
	}
	if err != nil {
		return 0, fmt.Errorf("s3blob: archive attempts upload: %w", err)
	}

	return int64(len(attempts)), nil
}

// archivePath builds the S3 key for an archive file, partitioned by the
// year-month of the cutoff time.
//
//	archive/settlement_attempts/2026-08.jsonl
func archivePath(kind string, before time.Time) string {
	return fmt.Sprintf("archive/%s/%s.jsonl", kind, before.Format("2006-01"))
}

// marshalJSONL serialises a slice of values as newline-delimited JSON.
func marshalJSONL[T any](records []T) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)

	for i, rec := range records {
		if err := enc.Encode(rec); err != nil {
			return nil, fmt.Errorf("jsonl encode record %d: %w", i, err)
		}
	}
	return buf.Bytes(), nil
}
