package baw

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/yungbote/batchcore-backend/internal/logger"
)

func newLocalService(t *testing.T) *LocalFileService {
	t.Helper()
	t.Setenv("BAW_DATA_DIR", t.TempDir())
	log, err := logger.New("dev")
	if err != nil {
		t.Fatalf("failed to build logger: %v", err)
	}
	svc, err := NewLocalFileService(log)
	if err != nil {
		t.Fatalf("NewLocalFileService failed: %v", err)
	}
	return svc
}

func TestSendWritesOutboundFile(t *testing.T) {
	svc := newLocalService(t)
	content := []byte("PR0000000001\n")

	ref, err := svc.Send(context.Background(), "payment_20260824.dat", content)
	if err != nil {
		t.Fatalf("Send failed: %v", err)
	}
	if ref.Reference == "" {
		t.Fatalf("dispatch must mint a reference")
	}
	if ref.Size != int64(len(content)) {
		t.Fatalf("size = %d, want %d", ref.Size, len(content))
	}

	written, err := os.ReadFile(filepath.Join(filepath.Dir(svc.InboundDir()), "outbound", "payment_20260824.dat"))
	if err != nil {
		t.Fatalf("outbound file missing: %v", err)
	}
	if !bytes.Equal(written, content) {
		t.Fatalf("outbound content mismatch")
	}
}

func TestFetchAndAvailable(t *testing.T) {
	svc := newLocalService(t)
	ctx := context.Background()

	ok, err := svc.Available(ctx, "warrants_paid.dat")
	if err != nil || ok {
		t.Fatalf("Available = (%v, %v) for a missing feed", ok, err)
	}
	if _, found, err := svc.Fetch(ctx, "warrants_paid.dat"); err != nil || found {
		t.Fatalf("Fetch of a missing feed = (found=%v, err=%v)", found, err)
	}

	feed := []byte("W000000001PRV001    P202608150000012345\n")
	if err := os.WriteFile(filepath.Join(svc.InboundDir(), "warrants_paid.dat"), feed, 0o644); err != nil {
		t.Fatalf("stage feed: %v", err)
	}

	ok, err = svc.Available(ctx, "warrants_paid.dat")
	if err != nil || !ok {
		t.Fatalf("Available = (%v, %v) for a staged feed", ok, err)
	}
	content, found, err := svc.Fetch(ctx, "warrants_paid.dat")
	if err != nil || !found {
		t.Fatalf("Fetch = (found=%v, err=%v)", found, err)
	}
	if !bytes.Equal(content, feed) {
		t.Fatalf("fetched content mismatch")
	}
}
