package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/service-queue/internal/domain"
)

// RequestFilter captures listing parameters for service requests.
type RequestFilter struct {
	CompanyID   *string
	AssignedBy  *string
	AssignedTo  *string
	Unassigned  bool
	Statuses    []domain.TaskStatus
	Categories  []domain.RequestCategory
	SearchTerm  *string
	CreatedFrom *time.Time
	CreatedTo   *time.Time
	Limit       int
	Offset      int
}

// RequestRepository encapsulates service-request persistence.
type RequestRepository interface {
	Create(ctx context.Context, request *domain.ServiceRequest) error
	Update(ctx context.Context, request *domain.ServiceRequest) error
	GetByID(ctx context.Context, id string) (*domain.ServiceRequest, error)
	GetByQueueID(ctx context.Context, queueID string) (*domain.ServiceRequest, error)
	ListWithFilter(ctx context.Context, filter RequestFilter) ([]domain.ServiceRequest, error)
	CountNotes(ctx context.Context, requestID string) (int, error)
}

type requestRepository struct {
	pool *pgxpool.Pool
}

// NewRequestRepository instantiates repository.
func NewRequestRepository(pool *pgxpool.Pool) RequestRepository {
	return &requestRepository{pool: pool}
}

const requestColumns = `id, queue_id, insured_name, narrative, category, company_id, assigned_by,
               assigned_to, task_status, due_date, due_time, in_progress_at, closed_at,
               time_spent_minutes, modified_by, created_at, updated_at`

func (r *requestRepository) Create(ctx context.Context, request *domain.ServiceRequest) error {
	const query = `
        INSERT INTO service_requests (queue_id, insured_name, narrative, category, company_id,
            assigned_by, assigned_to, task_status, due_date, due_time, modified_by)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
        RETURNING id, created_at, updated_at`
	return r.pool.QueryRow(ctx, query,
		request.QueueID,
		request.InsuredName,
		request.Narrative,
		request.Category,
		request.CompanyID,
		request.AssignedBy,
		request.AssignedTo,
		request.TaskStatus,
		request.DueDate,
		request.DueTime,
		request.ModifiedBy,
	).Scan(&request.ID, &request.CreatedAt, &request.UpdatedAt)
}

func (r *requestRepository) Update(ctx context.Context, request *domain.ServiceRequest) error {
	const query = `
        UPDATE service_requests SET insured_name=$1, narrative=$2, category=$3, assigned_to=$4,
            task_status=$5, due_date=$6, due_time=$7, in_progress_at=$8, closed_at=$9,
            time_spent_minutes=$10, modified_by=$11, updated_at=NOW()
        WHERE id=$12`
	cmd, err := r.pool.Exec(ctx, query,
		request.InsuredName,
		request.Narrative,
		request.Category,
		request.AssignedTo,
		request.TaskStatus,
		request.DueDate,
		request.DueTime,
		request.InProgressAt,
		request.ClosedAt,
		request.TimeSpentMinutes,
		request.ModifiedBy,
		request.ID,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *requestRepository) GetByID(ctx context.Context, id string) (*domain.ServiceRequest, error) {
	query := fmt.Sprintf(`SELECT %s FROM service_requests WHERE id=$1`, requestColumns)
	return r.fetchSingle(ctx, query, id)
}

func (r *requestRepository) GetByQueueID(ctx context.Context, queueID string) (*domain.ServiceRequest, error) {
	query := fmt.Sprintf(`SELECT %s FROM service_requests WHERE queue_id=$1`, requestColumns)
	return r.fetchSingle(ctx, query, queueID)
}

func (r *requestRepository) fetchSingle(ctx context.Context, query string, arg any) (*domain.ServiceRequest, error) {
	var request domain.ServiceRequest
	if err := r.pool.QueryRow(ctx, query, arg).Scan(
		&request.ID,
		&request.QueueID,
		&request.InsuredName,
		&request.Narrative,
		&request.Category,
		&request.CompanyID,
		&request.AssignedBy,
		&request.AssignedTo,
		&request.TaskStatus,
		&request.DueDate,
		&request.DueTime,
		&request.InProgressAt,
		&request.ClosedAt,
		&request.TimeSpentMinutes,
		&request.ModifiedBy,
		&request.CreatedAt,
		&request.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &request, nil
}

func (r *requestRepository) ListWithFilter(ctx context.Context, filter RequestFilter) ([]domain.ServiceRequest, error) {
	base := fmt.Sprintf(`SELECT %s FROM service_requests`, requestColumns)
	clauses := []string{"1=1"}
	args := []any{}

	if filter.CompanyID != nil {
		args = append(args, *filter.CompanyID)
		clauses = append(clauses, fmt.Sprintf("company_id=$%d", len(args)))
	}
	if filter.AssignedBy != nil {
		args = append(args, *filter.AssignedBy)
		clauses = append(clauses, fmt.Sprintf("assigned_by=$%d", len(args)))
	}
	if filter.AssignedTo != nil && filter.Unassigned {
		args = append(args, *filter.AssignedTo)
		clauses = append(clauses, fmt.Sprintf("(assigned_to=$%d OR assigned_to IS NULL)", len(args)))
	} else if filter.AssignedTo != nil {
		args = append(args, *filter.AssignedTo)
		clauses = append(clauses, fmt.Sprintf("assigned_to=$%d", len(args)))
	} else if filter.Unassigned {
		clauses = append(clauses, "assigned_to IS NULL")
	}
	if len(filter.Statuses) > 0 {
		placeholders := make([]string, len(filter.Statuses))
		for i, status := range filter.Statuses {
			args = append(args, status)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("task_status IN (%s)", strings.Join(placeholders, ",")))
	}
	if len(filter.Categories) > 0 {
		placeholders := make([]string, len(filter.Categories))
		for i, category := range filter.Categories {
			args = append(args, category)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("category IN (%s)", strings.Join(placeholders, ",")))
	}
	if filter.CreatedFrom != nil {
		args = append(args, *filter.CreatedFrom)
		clauses = append(clauses, fmt.Sprintf("created_at >= $%d", len(args)))
	}
	if filter.CreatedTo != nil {
		args = append(args, *filter.CreatedTo)
		clauses = append(clauses, fmt.Sprintf("created_at <= $%d", len(args)))
	}
	if filter.SearchTerm != nil && strings.TrimSpace(*filter.SearchTerm) != "" {
		search := "%" + strings.ToLower(strings.TrimSpace(*filter.SearchTerm)) + "%"
		args = append(args, search)
		placeholder := fmt.Sprintf("$%d", len(args))
		clauses = append(clauses, fmt.Sprintf("(LOWER(insured_name) LIKE %s OR LOWER(narrative) LIKE %s OR LOWER(queue_id) LIKE %s)", placeholder, placeholder, placeholder))
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 20
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	query := fmt.Sprintf(`%s WHERE %s ORDER BY updated_at DESC LIMIT %d OFFSET %d`,
		base, strings.Join(clauses, " AND "), limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanRequests(rows)
}

func (r *requestRepository) CountNotes(ctx context.Context, requestID string) (int, error) {
	const query = `SELECT COUNT(*) FROM request_notes WHERE request_id=$1`
	var count int
	if err := r.pool.QueryRow(ctx, query, requestID).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

func scanRequests(rows pgx.Rows) ([]domain.ServiceRequest, error) {
	var result []domain.ServiceRequest
	for rows.Next() {
		var request domain.ServiceRequest
		if err := rows.Scan(
			&request.ID,
			&request.QueueID,
			&request.InsuredName,
			&request.Narrative,
			&request.Category,
			&request.CompanyID,
			&request.AssignedBy,
			&request.AssignedTo,
			&request.TaskStatus,
			&request.DueDate,
			&request.DueTime,
			&request.InProgressAt,
			&request.ClosedAt,
			&request.TimeSpentMinutes,
			&request.ModifiedBy,
			&request.CreatedAt,
			&request.UpdatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, request)
	}
	return result, rows.Err()
}
