package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/secure-print-api/internal/models"
	appErrors "github.com/noah-isme/secure-print-api/pkg/errors"
)

type fileRepository interface {
	FindByID(ctx context.Context, id string) (*models.StoredFile, error)
	List(ctx context.Context, filter models.FileFilter) ([]models.StoredFile, int, error)
}

// FileService resolves stored file descriptors, with a Redis cache in front
// of the metadata table.
type FileService struct {
	repo     fileRepository
	cache    *CacheService
	cacheTTL time.Duration
	logger   *zap.Logger
}

// NewFileService constructs a FileService instance.
func NewFileService(repo fileRepository, cache *CacheService, cacheTTL time.Duration, logger *zap.Logger) *FileService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cacheTTL <= 0 {
		cacheTTL = 5 * time.Minute
	}
	return &FileService{repo: repo, cache: cache, cacheTTL: cacheTTL, logger: logger}
}

func descriptorCacheKey(fileID string) string {
	return fmt.Sprintf("descriptor:%s", fileID)
}

// Descriptor returns the print-facing projection of a stored file.
func (s *FileService) Descriptor(ctx context.Context, fileID string) (*models.FileDescriptor, error) {
	key := descriptorCacheKey(fileID)
	var cached models.FileDescriptor
	if hit, _ := s.cache.Get(ctx, key, &cached); hit {
		return &cached, nil
	}

	file, err := s.repo.FindByID(ctx, fileID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "File not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrDescriptorFetch.Code, appErrors.ErrDescriptorFetch.Status, appErrors.ErrDescriptorFetch.Message)
	}

	descriptor := &models.FileDescriptor{
		URL:      file.Path,
		Filename: file.Filename,
		MimeType: file.MimeType,
	}
	if err := s.cache.Set(ctx, key, descriptor, s.cacheTTL); err != nil {
		s.logger.Warn("descriptor cache set failed", zap.String("file_id", fileID), zap.Error(err))
	}
	return descriptor, nil
}

// Lookup returns the full stored file record.
func (s *FileService) Lookup(ctx context.Context, fileID string) (*models.StoredFile, error) {
	file, err := s.repo.FindByID(ctx, fileID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "File not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load file")
	}
	return file, nil
}

// List returns stored files for the dashboard.
func (s *FileService) List(ctx context.Context, filter models.FileFilter) ([]models.StoredFile, int, error) {
	files, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list files")
	}
	return files, total, nil
}
