package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/sla-engine/internal/domain"
)

// AssignmentRepository persists ownership records. Rows are deactivated, never
// deleted.
type AssignmentRepository interface {
	// GetActivePrimary returns the current ownership row for a ticket, or
	// pgx.ErrNoRows when the ticket is unassigned.
	GetActivePrimary(ctx context.Context, ticketID string) (*domain.Assignment, error)
	// CountActivePrimaryTx detects invariant violations: the number of
	// active-primary rows for a ticket, read inside the assignment transaction.
	CountActivePrimaryTx(ctx context.Context, tx pgx.Tx, ticketID string) (int, error)
	// WorkloadByAgent returns active-primary counts keyed by agent id.
	WorkloadByAgent(ctx context.Context) (map[string]int, error)
	ListByTicket(ctx context.Context, ticketID string) ([]domain.Assignment, error)
	// DeactivateActiveTx ends the current ownership inside tx and reports how
	// many rows were deactivated.
	DeactivateActiveTx(ctx context.Context, tx pgx.Tx, ticketID string, at time.Time) (int, error)
	CreateTx(ctx context.Context, tx pgx.Tx, assignment *domain.Assignment) error
}

type assignmentRepository struct {
	pool *pgxpool.Pool
}

// NewAssignmentRepository instantiates the repository.
func NewAssignmentRepository(pool *pgxpool.Pool) AssignmentRepository {
	return &assignmentRepository{pool: pool}
}

const assignmentColumns = `id, ticket_id, agent_id, assigned_by, assigned_at, unassigned_at, is_active, is_primary`

func (r *assignmentRepository) GetActivePrimary(ctx context.Context, ticketID string) (*domain.Assignment, error) {
	const query = `
        SELECT ` + assignmentColumns + ` FROM assignments
        WHERE ticket_id=$1 AND is_active AND is_primary`
	return scanAssignment(r.pool.QueryRow(ctx, query, ticketID))
}

func (r *assignmentRepository) CountActivePrimaryTx(ctx context.Context, tx pgx.Tx, ticketID string) (int, error) {
	const query = `SELECT COUNT(*) FROM assignments WHERE ticket_id=$1 AND is_active AND is_primary`
	var count int
	if err := tx.QueryRow(ctx, query, ticketID).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

func (r *assignmentRepository) WorkloadByAgent(ctx context.Context) (map[string]int, error) {
	const query = `
        SELECT agent_id, COUNT(*) FROM assignments
        WHERE is_active AND is_primary
        GROUP BY agent_id`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var agentID string
		var count int
		if err := rows.Scan(&agentID, &count); err != nil {
			return nil, err
		}
		counts[agentID] = count
	}
	return counts, rows.Err()
}

func (r *assignmentRepository) ListByTicket(ctx context.Context, ticketID string) ([]domain.Assignment, error) {
	const query = `
        SELECT ` + assignmentColumns + ` FROM assignments
        WHERE ticket_id=$1 ORDER BY assigned_at ASC`
	rows, err := r.pool.Query(ctx, query, ticketID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Assignment
	for rows.Next() {
		assignment, err := scanAssignment(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *assignment)
	}
	return result, rows.Err()
}

func (r *assignmentRepository) DeactivateActiveTx(ctx context.Context, tx pgx.Tx, ticketID string, at time.Time) (int, error) {
	const query = `
        UPDATE assignments SET is_active=false, unassigned_at=$1
        WHERE ticket_id=$2 AND is_active AND is_primary`
	cmd, err := tx.Exec(ctx, query, at, ticketID)
	if err != nil {
		return 0, err
	}
	return int(cmd.RowsAffected()), nil
}

func (r *assignmentRepository) CreateTx(ctx context.Context, tx pgx.Tx, assignment *domain.Assignment) error {
	const query = `
        INSERT INTO assignments (ticket_id, agent_id, assigned_by, assigned_at, is_active, is_primary)
        VALUES ($1,$2,$3,$4,$5,$6)
        RETURNING id`
	return tx.QueryRow(ctx, query,
		assignment.TicketID,
		assignment.AgentID,
		assignment.AssignedBy,
		assignment.AssignedAt,
		assignment.IsActive,
		assignment.IsPrimary,
	).Scan(&assignment.ID)
}

func scanAssignment(row pgx.Row) (*domain.Assignment, error) {
	var assignment domain.Assignment
	if err := row.Scan(
		&assignment.ID,
		&assignment.TicketID,
		&assignment.AgentID,
		&assignment.AssignedBy,
		&assignment.AssignedAt,
		&assignment.UnassignedAt,
		&assignment.IsActive,
		&assignment.IsPrimary,
	); err != nil {
		return nil, err
	}
	return &assignment, nil
}
