package service

import (
	"context"

	"github.com/noah-isme/secure-print-api/internal/models"
	"github.com/noah-isme/secure-print-api/internal/printcore/session"
)

// DescriptorSource adapts FileService for the session controller.
type DescriptorSource struct {
	files *FileService
}

// NewDescriptorSource builds the controller-facing descriptor adapter.
func NewDescriptorSource(files *FileService) *DescriptorSource {
	return &DescriptorSource{files: files}
}

func (s *DescriptorSource) Descriptor(ctx context.Context, fileID string) (session.Descriptor, error) {
	descriptor, err := s.files.Descriptor(ctx, fileID)
	if err != nil {
		return session.Descriptor{}, err
	}
	return session.Descriptor{
		Filename: descriptor.Filename,
		URL:      descriptor.URL,
		MimeType: descriptor.MimeType,
	}, nil
}

// AuditSink adapts PrintLogService for the session controller.
type AuditSink struct {
	logs *PrintLogService
}

// NewAuditSink builds the controller-facing audit adapter.
func NewAuditSink(logs *PrintLogService) *AuditSink {
	return &AuditSink{logs: logs}
}

func (s *AuditSink) Record(ctx context.Context, entry session.AuditEntry) error {
	return s.logs.Record(ctx, &models.PrintLogEntry{
		FileID:         entry.FileID,
		UserID:         entry.UserID,
		Filename:       entry.Filename,
		IPAddress:      entry.IPAddress,
		UserAgent:      entry.UserAgent,
		PrintTimestamp: entry.PrintedAt,
	})
}

var (
	_ session.DescriptorSource = (*DescriptorSource)(nil)
	_ session.AuditSink        = (*AuditSink)(nil)
)
