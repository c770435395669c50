package baw

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/batchcore-backend/internal/logger"
	"github.com/yungbote/batchcore-backend/internal/utils"
)

// LocalFileService backs the gateway contract with a directory tree:
// outbound/ for dispatched files, inbound/ for feeds. It stands in for the
// hub in development and tests.
type LocalFileService struct {
	log *logger.Logger
	dir string
}

func NewLocalFileService(baseLog *logger.Logger) (*LocalFileService, error) {
	dir := utils.GetEnv("BAW_DATA_DIR", filepath.Join(os.TempDir(), "batchcore-baw"), baseLog)
	for _, sub := range []string{"outbound", "inbound"} {
		if err := os.MkdirAll(filepath.Join(dir, sub), 0o755); err != nil {
			return nil, err
		}
	}
	return &LocalFileService{
		log: baseLog.With("service", "LocalFileService"),
		dir: dir,
	}, nil
}

func (s *LocalFileService) Send(ctx context.Context, name string, content []byte) (*FileRef, error) {
	path := filepath.Join(s.dir, "outbound", name)
	if err := os.WriteFile(path, content, 0o644); err != nil {
		return nil, err
	}
	ref := &FileRef{
		Reference: uuid.NewString(),
		Name:      name,
		Size:      int64(len(content)),
		SentAt:    time.Now(),
	}
	s.log.Info("File dispatched", "name", name, "size", ref.Size, "reference", ref.Reference)
	return ref, nil
}

func (s *LocalFileService) Fetch(ctx context.Context, name string) ([]byte, bool, error) {
	path := filepath.Join(s.dir, "inbound", name)
	content, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return content, true, nil
}

func (s *LocalFileService) Available(ctx context.Context, name string) (bool, error) {
	_, err := os.Stat(filepath.Join(s.dir, "inbound", name))
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// InboundDir is exposed for tests that stage feed files.
func (s *LocalFileService) InboundDir() string {
	return filepath.Join(s.dir, "inbound")
}
