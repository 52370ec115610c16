package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/service-queue/internal/domain"
)

// AttachmentRepository persists attachment metadata. The blob store owns the
// underlying bytes.
type AttachmentRepository interface {
	Create(ctx context.Context, attachment *domain.RequestAttachment) error
	ListByRequest(ctx context.Context, requestID string) ([]domain.RequestAttachment, error)
}

type attachmentRepository struct {
	pool *pgxpool.Pool
}

// NewAttachmentRepository constructs repository.
func NewAttachmentRepository(pool *pgxpool.Pool) AttachmentRepository {
	return &attachmentRepository{pool: pool}
}

func (r *attachmentRepository) Create(ctx context.Context, attachment *domain.RequestAttachment) error {
	const query = `
        INSERT INTO request_attachments (request_id, file_name, file_url, file_size, mime_type, uploaded_by)
        VALUES ($1,$2,$3,$4,$5,$6)
        RETURNING id, created_at`
	return r.pool.QueryRow(ctx, query,
		attachment.RequestID,
		attachment.FileName,
		attachment.FileURL,
		attachment.FileSize,
		attachment.MimeType,
		attachment.UploadedBy,
	).Scan(&attachment.ID, &attachment.CreatedAt)
}

func (r *attachmentRepository) ListByRequest(ctx context.Context, requestID string) ([]domain.RequestAttachment, error) {
	const query = `
        SELECT id, request_id, file_name, file_url, file_size, mime_type, uploaded_by, created_at
        FROM request_attachments WHERE request_id=$1 ORDER BY created_at ASC`
	rows, err := r.pool.Query(ctx, query, requestID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.RequestAttachment
	for rows.Next() {
		var attachment domain.RequestAttachment
		if err := rows.Scan(
			&attachment.ID,
			&attachment.RequestID,
			&attachment.FileName,
			&attachment.FileURL,
			&attachment.FileSize,
			&attachment.MimeType,
			&attachment.UploadedBy,
			&attachment.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, attachment)
	}
	return result, rows.Err()
}
