package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/secure-print-api/internal/models"
)

// PrintLogRepository provides database access for the append-only print audit
// trail. There are no update or delete operations on purpose.
type PrintLogRepository struct {
	db *sqlx.DB
}

// NewPrintLogRepository creates a new instance of PrintLogRepository.
func NewPrintLogRepository(db *sqlx.DB) *PrintLogRepository {
	return &PrintLogRepository{db: db}
}

// Create appends one print log entry.
func (r *PrintLogRepository) Create(ctx context.Context, entry *models.PrintLogEntry) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.PrintTimestamp.IsZero() {
		entry.PrintTimestamp = time.Now().UTC()
	}
	const query = `INSERT INTO print_logs (id, file_id, user_id, filename, ip_address, user_agent, print_timestamp) VALUES (:id, :file_id, :user_id, :filename, :ip_address, :user_agent, :print_timestamp)`
	if _, err := r.db.NamedExecContext(ctx, query, entry); err != nil {
		return fmt.Errorf("create print log: %w", err)
	}
	return nil
}

// List returns print log entries joined with user and file details, newest
// first, with total count for pagination.
func (r *PrintLogRepository) List(ctx context.Context, filter models.PrintLogFilter) ([]models.PrintLogDetail, int, error) {
	page := filter.Page
	if page < 1 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 20
	}
	offset := (page - 1) * pageSize

	listQuery := fmt.Sprintf(`SELECT p.id, p.file_id, p.user_id, p.filename, p.ip_address, p.user_agent, p.print_timestamp, u.full_name AS user_name, u.email AS user_email, f.path AS file_path FROM print_logs p LEFT JOIN users u ON u.id = p.user_id LEFT JOIN files f ON f.id = p.file_id ORDER BY p.print_timestamp DESC LIMIT %d OFFSET %d`, pageSize, offset)

	var entries []models.PrintLogDetail
	if err := r.db.SelectContext(ctx, &entries, listQuery); err != nil {
		return nil, 0, fmt.Errorf("list print logs: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM print_logs`); err != nil {
		return nil, 0, fmt.Errorf("count print logs: %w", err)
	}

	return entries, total, nil
}

// ListByFile returns all entries for one file, newest first.
func (r *PrintLogRepository) ListByFile(ctx context.Context, fileID string) ([]models.PrintLogDetail, error) {
	const query = `SELECT p.id, p.file_id, p.user_id, p.filename, p.ip_address, p.user_agent, p.print_timestamp, u.full_name AS user_name, u.email AS user_email, f.path AS file_path FROM print_logs p LEFT JOIN users u ON u.id = p.user_id LEFT JOIN files f ON f.id = p.file_id WHERE p.file_id = $1 ORDER BY p.print_timestamp DESC`
	var entries []models.PrintLogDetail
	if err := r.db.SelectContext(ctx, &entries, query, fileID); err != nil {
		return nil, fmt.Errorf("list print logs by file: %w", err)
	}
	return entries, nil
}

// CountByFile returns how many times one file has been printed.
func (r *PrintLogRepository) CountByFile(ctx context.Context, fileID string) (int, error) {
	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM print_logs WHERE file_id = $1`, fileID); err != nil {
		return 0, fmt.Errorf("count print logs by file: %w", err)
	}
	return total, nil
}
