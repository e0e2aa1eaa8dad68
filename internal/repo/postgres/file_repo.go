package postgres

import (
	"context"

	"github.com/diagnosis/accounts-api/internal/domain"
)

type FileRepository interface {
	Create(ctx context.Context, f *domain.File) (*domain.File, error)
	ListByUser(ctx context.Context, userID string) ([]domain.File, error)
}

type fileRepository struct {
	db DBTX
}

func NewFileRepository(db DBTX) FileRepository {
	return &fileRepository{db: db}
}

const fileCols = `id, object_key, file_url, user_id, upload_timestamp, created_at`

func (r *fileRepository) Create(ctx context.Context, f *domain.File) (*domain.File, error) {
	const q = `
		INSERT INTO r2_files (object_key, file_url, user_id)
		VALUES ($1, $2, $3)
		RETURNING ` + fileCols

	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var out domain.File
	err := r.db.QueryRowContext(ctx, q, f.ObjectKey, f.FileURL, f.UserID).Scan(
		&out.ID, &out.ObjectKey, &out.FileURL, &out.UserID, &out.UploadTimestamp, &out.CreatedAt,
	)
	if err != nil {
		return nil, asDuplicate(err)
	}
	return &out, nil
}

func (r *fileRepository) ListByUser(ctx context.Context, userID string) ([]domain.File, error) {
	const q = `
		SELECT ` + fileCols + `
		FROM r2_files
		WHERE user_id = $1
		ORDER BY created_at DESC`

	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	rows, err := r.db.QueryContext(ctx, q, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	files := []domain.File{}
	for rows.Next() {
		var f domain.File
		if err := rows.Scan(&f.ID, &f.ObjectKey, &f.FileURL, &f.UserID, &f.UploadTimestamp, &f.CreatedAt); err != nil {
			return nil, err
		}
		files = append(files, f)
	}
	return files, rows.Err()
}
