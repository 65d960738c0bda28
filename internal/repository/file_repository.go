package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/secure-print-api/internal/models"
)

// FileRepository provides database access for stored file metadata. The bytes
// themselves live with the storage collaborator; only descriptors are here.
type FileRepository struct {
	db *sqlx.DB
}

// NewFileRepository creates a new instance of FileRepository.
func NewFileRepository(db *sqlx.DB) *FileRepository {
	return &FileRepository{db: db}
}

// FindByID returns a stored file by identifier.
func (r *FileRepository) FindByID(ctx context.Context, id string) (*models.StoredFile, error) {
	const query = `SELECT id, owner_id, filename, path, mimetype, size_bytes, created_at FROM files WHERE id = $1 LIMIT 1`
	var file models.StoredFile
	if err := r.db.GetContext(ctx, &file, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find file by id: %w", err)
	}
	return &file, nil
}

// List returns stored files based on filters with total count.
func (r *FileRepository) List(ctx context.Context, filter models.FileFilter) ([]models.StoredFile, int, error) {
	baseQuery := `FROM files WHERE 1=1`
	var conditions []string
	var args []interface{}

	if filter.OwnerID != "" {
		conditions = append(conditions, fmt.Sprintf("owner_id = $%d", len(args)+1))
		args = append(args, filter.OwnerID)
	}
	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("LOWER(filename) LIKE $%d", len(args)+1))
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
	}

	if len(conditions) > 0 {
		baseQuery += " AND " + strings.Join(conditions, " AND ")
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 20
	}
	offset := (page - 1) * pageSize

	listQuery := fmt.Sprintf("SELECT id, owner_id, filename, path, mimetype, size_bytes, created_at %s ORDER BY created_at DESC LIMIT %d OFFSET %d", baseQuery, pageSize, offset)

	var files []models.StoredFile
	if err := r.db.SelectContext(ctx, &files, listQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("list files: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", baseQuery)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count files: %w", err)
	}

	return files, total, nil
}
