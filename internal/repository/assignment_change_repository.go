package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/service-queue/internal/domain"
)

// AssignmentChangeRepository persists assignment-change proposals.
type AssignmentChangeRepository interface {
	Create(ctx context.Context, change *domain.AssignmentChangeRequest) error
	GetByID(ctx context.Context, id string) (*domain.AssignmentChangeRequest, error)
	HasPending(ctx context.Context, requestID string) (bool, error)
	Review(ctx context.Context, change *domain.AssignmentChangeRequest) error
	ListByRequest(ctx context.Context, requestID string) ([]domain.AssignmentChangeRequest, error)
	ListPending(ctx context.Context, limit, offset int) ([]domain.AssignmentChangeRequest, error)
}

type assignmentChangeRepository struct {
	pool *pgxpool.Pool
}

// NewAssignmentChangeRepository builds repository.
func NewAssignmentChangeRepository(pool *pgxpool.Pool) AssignmentChangeRepository {
	return &assignmentChangeRepository{pool: pool}
}

const changeColumns = `id, request_id, requested_by, current_assignee_id, requested_assignee_id,
               reason, status, reviewed_by, review_comment, created_at, updated_at`

func (r *assignmentChangeRepository) Create(ctx context.Context, change *domain.AssignmentChangeRequest) error {
	const query = `
        INSERT INTO assignment_change_requests (request_id, requested_by, current_assignee_id,
            requested_assignee_id, reason, status)
        VALUES ($1,$2,$3,$4,$5,$6)
        RETURNING id, created_at, updated_at`
	return r.pool.QueryRow(ctx, query,
		change.RequestID,
		change.RequestedBy,
		change.CurrentAssigneeID,
		change.RequestedAssigneeID,
		change.Reason,
		change.Status,
	).Scan(&change.ID, &change.CreatedAt, &change.UpdatedAt)
}

func (r *assignmentChangeRepository) GetByID(ctx context.Context, id string) (*domain.AssignmentChangeRequest, error) {
	query := `SELECT ` + changeColumns + ` FROM assignment_change_requests WHERE id=$1`
	var change domain.AssignmentChangeRequest
	if err := r.pool.QueryRow(ctx, query, id).Scan(
		&change.ID,
		&change.RequestID,
		&change.RequestedBy,
		&change.CurrentAssigneeID,
		&change.RequestedAssigneeID,
		&change.Reason,
		&change.Status,
		&change.ReviewedBy,
		&change.ReviewComment,
		&change.CreatedAt,
		&change.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &change, nil
}

// HasPending performs a plain existence read. There is no transactional
// guard against a concurrent insert; the race window is accepted.
func (r *assignmentChangeRepository) HasPending(ctx context.Context, requestID string) (bool, error) {
	const query = `SELECT EXISTS(SELECT 1 FROM assignment_change_requests WHERE request_id=$1 AND status=$2)`
	var exists bool
	if err := r.pool.QueryRow(ctx, query, requestID, domain.ChangeStatusPending).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

func (r *assignmentChangeRepository) Review(ctx context.Context, change *domain.AssignmentChangeRequest) error {
	const query = `
        UPDATE assignment_change_requests
        SET status=$1, reviewed_by=$2, review_comment=$3, updated_at=NOW()
        WHERE id=$4 AND status=$5`
	cmd, err := r.pool.Exec(ctx, query,
		change.Status,
		change.ReviewedBy,
		change.ReviewComment,
		change.ID,
		domain.ChangeStatusPending,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *assignmentChangeRepository) ListByRequest(ctx context.Context, requestID string) ([]domain.AssignmentChangeRequest, error) {
	query := `SELECT ` + changeColumns + ` FROM assignment_change_requests WHERE request_id=$1 ORDER BY created_at DESC`
	rows, err := r.pool.Query(ctx, query, requestID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanChanges(rows)
}

func (r *assignmentChangeRepository) ListPending(ctx context.Context, limit, offset int) ([]domain.AssignmentChangeRequest, error) {
	if limit <= 0 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	query := `SELECT ` + changeColumns + ` FROM assignment_change_requests WHERE status=$1 ORDER BY created_at ASC LIMIT $2 OFFSET $3`
	rows, err := r.pool.Query(ctx, query, domain.ChangeStatusPending, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanChanges(rows)
}

func scanChanges(rows pgx.Rows) ([]domain.AssignmentChangeRequest, error) {
	var result []domain.AssignmentChangeRequest
	for rows.Next() {
		var change domain.AssignmentChangeRequest
		if err := rows.Scan(
			&change.ID,
			&change.RequestID,
			&change.RequestedBy,
			&change.CurrentAssigneeID,
			&change.RequestedAssigneeID,
			&change.Reason,
			&change.Status,
			&change.ReviewedBy,
			&change.ReviewComment,
			&change.CreatedAt,
			&change.UpdatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, change)
	}
	return result, rows.Err()
}
