package repository

import (
	"bytes"
	"context"
	"path"
	"sync"

	"davinci-allocation/internal/domain"

	"github.com/viant/afs"
	"github.com/viant/afs/file"
	"go.uber.org/zap"
)

// FileAllocationStore keeps the set in a single JSON file (allocations.json under dataDir).
// Every save rewrites the whole file.
type FileAllocationStore struct {
	fs       afs.Service
	filePath string
	logger   *zap.Logger
	mu       sync.Mutex
}

func NewFileAllocationStore(dataDir string, logger *zap.Logger) *FileAllocationStore {
	return &FileAllocationStore{
		fs:       afs.New(),
		filePath: path.Join(dataDir, "allocations.json"),
		logger:   logger,
	}
}

// Path returns the location of the allocations file.
func (s *FileAllocationStore) Path() string { return s.filePath }

func (s *FileAllocationStore) LoadAll(ctx context.Context) ([]domain.Allocation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	exists, err := s.fs.Exists(ctx, s.filePath)
	if err != nil {
		return nil, unavailable("check allocations file", err)
	}
	if !exists {
		if err := s.write(ctx, []byte("[]")); err != nil {
			return nil, err
		}
		s.logger.Info("Initialized empty allocation store", zap.String("path", s.filePath))
		return []domain.Allocation{}, nil
	}

	data, err := s.fs.DownloadWithURL(ctx, s.filePath)
	if err != nil {
		return nil, unavailable("read allocations file", err)
	}
	return DecodeAllocations(data)
}

func (s *FileAllocationStore) SaveAll(ctx context.Context, allocations []domain.Allocation) error {
	data, err := EncodeAllocations(allocations)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.write(ctx, data)
}

func (s *FileAllocationStore) write(ctx context.Context, data []byte) error {
	if err := s.fs.Upload(ctx, s.filePath, file.DefaultFileOsMode, bytes.NewReader(data)); err != nil {
		return unavailable("write allocations file", err)
	}
	return nil
}
