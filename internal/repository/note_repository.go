package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/service-queue/internal/domain"
)

// NoteRepository persists append-only request notes.
type NoteRepository interface {
	Create(ctx context.Context, note *domain.RequestNote) error
	ListByRequest(ctx context.Context, requestID string) ([]domain.RequestNote, error)
}

type noteRepository struct {
	pool *pgxpool.Pool
}

// NewNoteRepository constructs repository.
func NewNoteRepository(pool *pgxpool.Pool) NoteRepository {
	return &noteRepository{pool: pool}
}

func (r *noteRepository) Create(ctx context.Context, note *domain.RequestNote) error {
	const query = `
        INSERT INTO request_notes (request_id, author_id, body, internal)
        VALUES ($1,$2,$3,$4)
        RETURNING id, created_at`
	return r.pool.QueryRow(ctx, query,
		note.RequestID,
		note.AuthorID,
		note.Body,
		note.Internal,
	).Scan(&note.ID, &note.CreatedAt)
}

func (r *noteRepository) ListByRequest(ctx context.Context, requestID string) ([]domain.RequestNote, error) {
	const query = `
        SELECT id, request_id, author_id, body, internal, created_at
        FROM request_notes WHERE request_id=$1 ORDER BY created_at ASC`
	rows, err := r.pool.Query(ctx, query, requestID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.RequestNote
	for rows.Next() {
		var note domain.RequestNote
		if err := rows.Scan(
			&note.ID,
			&note.RequestID,
			&note.AuthorID,
			&note.Body,
			&note.Internal,
			&note.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, note)
	}
	return result, rows.Err()
}
