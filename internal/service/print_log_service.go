package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/noah-isme/secure-print-api/internal/models"
	appErrors "github.com/noah-isme/secure-print-api/pkg/errors"
)

type printLogRepository interface {
	Create(ctx context.Context, entry *models.PrintLogEntry) error
	List(ctx context.Context, filter models.PrintLogFilter) ([]models.PrintLogDetail, int, error)
	ListByFile(ctx context.Context, fileID string) ([]models.PrintLogDetail, error)
	CountByFile(ctx context.Context, fileID string) (int, error)
}

// PrintLogService owns the append-only print audit trail.
type PrintLogService struct {
	repo    printLogRepository
	metrics *MetricsService
	logger  *zap.Logger
}

// NewPrintLogService constructs a PrintLogService instance.
func NewPrintLogService(repo printLogRepository, metrics *MetricsService, logger *zap.Logger) *PrintLogService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PrintLogService{repo: repo, metrics: metrics, logger: logger}
}

// Record appends one print event. Callers decide whether a failure is fatal;
// the session controller deliberately treats it as non-fatal.
func (s *PrintLogService) Record(ctx context.Context, entry *models.PrintLogEntry) error {
	if err := s.repo.Create(ctx, entry); err != nil {
		s.logger.Error("print log write failed",
			zap.String("file_id", entry.FileID),
			zap.String("user_id", entry.UserID),
			zap.Error(err),
		)
		return appErrors.Wrap(err, appErrors.ErrLogWrite.Code, appErrors.ErrLogWrite.Status, appErrors.ErrLogWrite.Message)
	}
	return nil
}

// List returns paginated log entries for the admin view, newest first.
func (s *PrintLogService) List(ctx context.Context, filter models.PrintLogFilter) ([]models.PrintLogDetail, int, error) {
	entries, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list print logs")
	}
	return entries, total, nil
}

// ListByFile returns the print history of one file.
func (s *PrintLogService) ListByFile(ctx context.Context, fileID string) ([]models.PrintLogDetail, int, error) {
	entries, err := s.repo.ListByFile(ctx, fileID)
	if err != nil {
		return nil, 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list print logs for file")
	}
	total, err := s.repo.CountByFile(ctx, fileID)
	if err != nil {
		return nil, 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count print logs for file")
	}
	return entries, total, nil
}
