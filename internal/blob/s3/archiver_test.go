package s3blob

import (
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/alanyoungcy/slotclaim/internal/domain"
)

// fakeWriter records which upload method was used and the object key.
type fakeWriter struct {
	putCalls       int
	multipartCalls int
	lastPath       string
	lastSize       int64
}

func (w *fakeWriter) Put(_ context.Context, path string, data io.Reader, _ string) error {
	w.putCalls++
	w.lastPath = path
	n, _ := io.Copy(io.Discard, data)
	w.lastSize = n
	return nil
}

func (w *fakeWriter) PutMultipart(_ context.Context, path string, data io.Reader, _ int64) error {
	w.multipartCalls++
	w.lastPath = path
	n, _ := io.Copy(io.Discard, data)
	w.lastSize = n
	return nil
}

type fakeLister struct {
	attempts []domain.SettlementAttempt
}

func (l *fakeLister) ListBefore(context.Context, time.Time) ([]domain.SettlementAttempt, error) {
	return l.attempts, nil
}

func attemptWithError(slug, errText string) domain.SettlementAttempt {
	return domain.SettlementAttempt{
		Candidate: domain.RedeemCandidate{Slug: slug, ConditionID: "0xabc"},
		Err:       errText,
		At:        time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC),
	}
}

func TestArchiveAttempts_SmallExportUsesPut(t *testing.T) {
	writer := &fakeWriter{}
	lister := &fakeLister{attempts: []domain.SettlementAttempt{
		attemptWithError("btc-updown-5m-a", "nonce too low"),
	}}

	arch := NewArchiver(writer, lister)
	count, err := arch.ArchiveAttempts(context.Background(), time.Date(2026, 8, 15, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("ArchiveAttempts: %v", err)
	}
	if count != 1 {
		t.Fatalf("count = %d, want 1", count)
	}
	if writer.putCalls != 1 || writer.multipartCalls != 0 {
		t.Fatalf("put=%d multipart=%d, want single PutObject", writer.putCalls, writer.multipartCalls)
	}
	if writer.lastPath != "archive/settlement_attempts/2026-08.jsonl" {
		t.Fatalf("path = %q", writer.lastPath)
	}
}

func TestArchiveAttempts_LargeExportUsesMultipart(t *testing.T) {
	// Pad each record so the serialized export crosses the multipart
	// threshold (one full S3 part).
	padding := strings.Repeat("x", 4096)
	attempts := make([]domain.SettlementAttempt, 0, 1500)
	for i := 0; i < 1500; i++ {
		attempts = append(attempts, attemptWithError("btc-updown-5m-a", padding))
	}

	writer := &fakeWriter{}
	arch := NewArchiver(writer, &fakeLister{attempts: attempts})

	count, err := arch.ArchiveAttempts(context.Background(), time.Now().UTC())
	if err != nil {
		t.Fatalf("ArchiveAttempts: %v", err)
	}
	if count != 1500 {
		t.Fatalf("count = %d, want 1500", count)
	}
	if writer.multipartCalls != 1 || writer.putCalls != 0 {
		t.Fatalf("put=%d multipart=%d, want multipart upload", writer.putCalls, writer.multipartCalls)
	}
	if writer.lastSize < multipartThreshold {
		t.Fatalf("uploaded %d bytes, expected at least the multipart threshold", writer.lastSize)
	}
}

func TestArchiveAttempts_EmptyExportSkipsUpload(t *testing.T) {
	writer := &fakeWriter{}
	arch := NewArchiver(writer, &fakeLister{})

	count, err := arch.ArchiveAttempts(context.Background(), time.Now().UTC())
	if err != nil {
		t.Fatalf("ArchiveAttempts: %v", err)
	}
	if count != 0 {
		t.Fatalf("count = %d, want 0", count)
	}
	if writer.putCalls != 0 || writer.multipartCalls != 0 {
		t.Fatal("no upload expected for an empty export")
	}
}
