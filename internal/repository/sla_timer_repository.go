package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/sla-engine/internal/domain"
)

// SLATimerRepository persists per-ticket timers. Timers are created once at
// ticket creation and only updated afterwards, never recreated.
type SLATimerRepository interface {
	Create(ctx context.Context, timer *domain.SLATimer) error
	GetByID(ctx context.Context, id string) (*domain.SLATimer, error)
	ListByTicket(ctx context.Context, ticketID string) ([]domain.SLATimer, error)
	// GetByTicketAndType returns the single timer of the given type, or pgx.ErrNoRows.
	GetByTicketAndType(ctx context.Context, ticketID string, timerType domain.TimerType) (*domain.SLATimer, error)
	Update(ctx context.Context, timer *domain.SLATimer) error
	UpdateStatus(ctx context.Context, id string, status domain.TimerStatus) error
}

type slaTimerRepository struct {
	pool *pgxpool.Pool
}

// NewSLATimerRepository instantiates the repository.
func NewSLATimerRepository(pool *pgxpool.Pool) SLATimerRepository {
	return &slaTimerRepository{pool: pool}
}

const timerColumns = `id, ticket_id, config_id, timer_type, status, start_time,
               pause_time, resume_time, elapsed_minutes, deadline, created_at, updated_at`

func (r *slaTimerRepository) Create(ctx context.Context, timer *domain.SLATimer) error {
	const query = `
        INSERT INTO sla_timers (ticket_id, config_id, timer_type, status, start_time, deadline, elapsed_minutes)
        VALUES ($1,$2,$3,$4,$5,$6,$7)
        RETURNING id, created_at, updated_at`
	return r.pool.QueryRow(ctx, query,
		timer.TicketID,
		timer.ConfigID,
		timer.Type,
		timer.Status,
		timer.StartTime,
		timer.Deadline,
		timer.ElapsedMinutes,
	).Scan(&timer.ID, &timer.CreatedAt, &timer.UpdatedAt)
}

func (r *slaTimerRepository) GetByID(ctx context.Context, id string) (*domain.SLATimer, error) {
	query := `SELECT ` + timerColumns + ` FROM sla_timers WHERE id=$1`
	return scanTimer(r.pool.QueryRow(ctx, query, id))
}

func (r *slaTimerRepository) ListByTicket(ctx context.Context, ticketID string) ([]domain.SLATimer, error) {
	query := `SELECT ` + timerColumns + ` FROM sla_timers WHERE ticket_id=$1 ORDER BY timer_type`
	rows, err := r.pool.Query(ctx, query, ticketID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.SLATimer
	for rows.Next() {
		timer, err := scanTimer(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *timer)
	}
	return result, rows.Err()
}

func (r *slaTimerRepository) GetByTicketAndType(ctx context.Context, ticketID string, timerType domain.TimerType) (*domain.SLATimer, error) {
	query := `SELECT ` + timerColumns + ` FROM sla_timers WHERE ticket_id=$1 AND timer_type=$2`
	return scanTimer(r.pool.QueryRow(ctx, query, ticketID, timerType))
}

func (r *slaTimerRepository) Update(ctx context.Context, timer *domain.SLATimer) error {
	const query = `
        UPDATE sla_timers SET status=$1, pause_time=$2, resume_time=$3, elapsed_minutes=$4,
            deadline=$5, updated_at=NOW()
        WHERE id=$6`
	cmd, err := r.pool.Exec(ctx, query,
		timer.Status,
		timer.PauseTime,
		timer.ResumeTime,
		timer.ElapsedMinutes,
		timer.Deadline,
		timer.ID,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *slaTimerRepository) UpdateStatus(ctx context.Context, id string, status domain.TimerStatus) error {
	const query = `UPDATE sla_timers SET status=$1, updated_at=NOW() WHERE id=$2`
	cmd, err := r.pool.Exec(ctx, query, status, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func scanTimer(row pgx.Row) (*domain.SLATimer, error) {
	var timer domain.SLATimer
	if err := row.Scan(
		&timer.ID,
		&timer.TicketID,
		&timer.ConfigID,
		&timer.Type,
		&timer.Status,
		&timer.StartTime,
		&timer.PauseTime,
		&timer.ResumeTime,
		&timer.ElapsedMinutes,
		&timer.Deadline,
		&timer.CreatedAt,
		&timer.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &timer, nil
}
