package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/sla-engine/internal/domain"
)

// EscalationRepository persists the append-only escalation audit trail.
type EscalationRepository interface {
	CreateTx(ctx context.Context, tx pgx.Tx, escalation *domain.Escalation) error
	ListByTicket(ctx context.Context, ticketID string) ([]domain.Escalation, error)
	Resolve(ctx context.Context, id string, at time.Time) error
}

type escalationRepository struct {
	pool *pgxpool.Pool
}

// NewEscalationRepository instantiates the repository.
func NewEscalationRepository(pool *pgxpool.Pool) EscalationRepository {
	return &escalationRepository{pool: pool}
}

const escalationColumns = `id, ticket_id, timer_id, from_level, to_level, reason,
               escalated_by, escalated_at, resolved, resolved_at`

func (r *escalationRepository) CreateTx(ctx context.Context, tx pgx.Tx, escalation *domain.Escalation) error {
	const query = `
        INSERT INTO escalations (ticket_id, timer_id, from_level, to_level, reason, escalated_by, escalated_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7)
        RETURNING id`
	return tx.QueryRow(ctx, query,
		escalation.TicketID,
		escalation.TimerID,
		escalation.FromLevel,
		escalation.ToLevel,
		escalation.Reason,
		escalation.EscalatedBy,
		escalation.EscalatedAt,
	).Scan(&escalation.ID)
}

func (r *escalationRepository) ListByTicket(ctx context.Context, ticketID string) ([]domain.Escalation, error) {
	query := `SELECT ` + escalationColumns + ` FROM escalations WHERE ticket_id=$1 ORDER BY escalated_at ASC`
	rows, err := r.pool.Query(ctx, query, ticketID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Escalation
	for rows.Next() {
		var escalation domain.Escalation
		if err := rows.Scan(
			&escalation.ID,
			&escalation.TicketID,
			&escalation.TimerID,
			&escalation.FromLevel,
			&escalation.ToLevel,
			&escalation.Reason,
			&escalation.EscalatedBy,
			&escalation.EscalatedAt,
			&escalation.Resolved,
			&escalation.ResolvedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, escalation)
	}
	return result, rows.Err()
}

func (r *escalationRepository) Resolve(ctx context.Context, id string, at time.Time) error {
	const query = `UPDATE escalations SET resolved=true, resolved_at=$1 WHERE id=$2`
	cmd, err := r.pool.Exec(ctx, query, at, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}
