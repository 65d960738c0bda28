package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/secure-print-api/internal/models"
	"github.com/noah-isme/secure-print-api/internal/printcore/session"
	appErrors "github.com/noah-isme/secure-print-api/pkg/errors"
)

type mockPrintLogRepo struct {
	entries   []*models.PrintLogEntry
	createErr error
	listErr   error
}

func (m *mockPrintLogRepo) Create(ctx context.Context, entry *models.PrintLogEntry) error {
	if m.createErr != nil {
		return m.createErr
	}
	m.entries = append(m.entries, entry)
	return nil
}

func (m *mockPrintLogRepo) List(ctx context.Context, filter models.PrintLogFilter) ([]models.PrintLogDetail, int, error) {
	if m.listErr != nil {
		return nil, 0, m.listErr
	}
	details := make([]models.PrintLogDetail, len(m.entries))
	for i, e := range m.entries {
		details[i] = models.PrintLogDetail{PrintLogEntry: *e}
	}
	return details, len(details), nil
}

func (m *mockPrintLogRepo) ListByFile(ctx context.Context, fileID string) ([]models.PrintLogDetail, error) {
	var details []models.PrintLogDetail
	for _, e := range m.entries {
		if e.FileID == fileID {
			details = append(details, models.PrintLogDetail{PrintLogEntry: *e})
		}
	}
	return details, nil
}

func (m *mockPrintLogRepo) CountByFile(ctx context.Context, fileID string) (int, error) {
	details, _ := m.ListByFile(ctx, fileID)
	return len(details), nil
}

func TestPrintLogServiceRecord(t *testing.T) {
	repo := &mockPrintLogRepo{}
	svc := NewPrintLogService(repo, nil, zap.NewNop())

	err := svc.Record(context.Background(), &models.PrintLogEntry{FileID: "f1", UserID: "u1", Filename: "report.pdf"})
	require.NoError(t, err)
	assert.Len(t, repo.entries, 1)
}

func TestPrintLogServiceRecordFailure(t *testing.T) {
	repo := &mockPrintLogRepo{createErr: errors.New("disk full")}
	svc := NewPrintLogService(repo, nil, zap.NewNop())

	err := svc.Record(context.Background(), &models.PrintLogEntry{FileID: "f1", UserID: "u1"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrLogWrite.Code, appErrors.FromError(err).Code)
}

func TestPrintLogServiceListByFile(t *testing.T) {
	repo := &mockPrintLogRepo{entries: []*models.PrintLogEntry{
		{FileID: "f1", UserID: "u1"},
		{FileID: "f2", UserID: "u1"},
		{FileID: "f1", UserID: "u2"},
	}}
	svc := NewPrintLogService(repo, nil, zap.NewNop())

	entries, total, err := svc.ListByFile(context.Background(), "f1")
	require.NoError(t, err)
	assert.Len(t, entries, 2)
	assert.Equal(t, 2, total)
}

func TestAuditSinkMapsEntries(t *testing.T) {
	repo := &mockPrintLogRepo{}
	svc := NewPrintLogService(repo, nil, zap.NewNop())
	sink := NewAuditSink(svc)

	printedAt := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	err := sink.Record(context.Background(), session.AuditEntry{
		FileID:    "f1",
		UserID:    "u1",
		Filename:  "report.pdf",
		IPAddress: "10.0.0.1",
		UserAgent: "agent",
		PrintedAt: printedAt,
	})
	require.NoError(t, err)
	require.Len(t, repo.entries, 1)
	assert.Equal(t, printedAt, repo.entries[0].PrintTimestamp)
	assert.Equal(t, "report.pdf", repo.entries[0].Filename)
}
