package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/sla-engine/internal/domain"
)

// SLAConfigRepository persists SLA policy configurations.
type SLAConfigRepository interface {
	// GetActiveExact finds the active configuration matching the full
	// classification, or pgx.ErrNoRows.
	GetActiveExact(ctx context.Context, productID, moduleID, issueName string) (*domain.SLAConfiguration, error)
	// GetModuleFallback finds the most urgent (lowest ordinal) active
	// configuration scoped to the module, or pgx.ErrNoRows.
	GetModuleFallback(ctx context.Context, moduleID string) (*domain.SLAConfiguration, error)
	Create(ctx context.Context, cfg *domain.SLAConfiguration) error
	GetByID(ctx context.Context, id string) (*domain.SLAConfiguration, error)
	List(ctx context.Context, limit, offset int) ([]domain.SLAConfiguration, error)
	Deactivate(ctx context.Context, id string) error
}

type slaConfigRepository struct {
	pool *pgxpool.Pool
}

// NewSLAConfigRepository instantiates the repository.
func NewSLAConfigRepository(pool *pgxpool.Pool) SLAConfigRepository {
	return &slaConfigRepository{pool: pool}
}

const slaConfigColumns = `id, product_id, module_id, issue_name, priority_level,
               response_minutes, resolution_minutes, escalation_minutes, active_flag, created_at, updated_at`

func (r *slaConfigRepository) GetActiveExact(ctx context.Context, productID, moduleID, issueName string) (*domain.SLAConfiguration, error) {
	const query = `
        SELECT ` + slaConfigColumns + ` FROM sla_configurations
        WHERE product_id=$1 AND module_id=$2 AND issue_name=$3 AND active_flag
        ORDER BY priority_level ASC LIMIT 1`
	return scanSLAConfig(r.pool.QueryRow(ctx, query, productID, moduleID, issueName))
}

func (r *slaConfigRepository) GetModuleFallback(ctx context.Context, moduleID string) (*domain.SLAConfiguration, error) {
	const query = `
        SELECT ` + slaConfigColumns + ` FROM sla_configurations
        WHERE module_id=$1 AND active_flag
        ORDER BY priority_level ASC LIMIT 1`
	return scanSLAConfig(r.pool.QueryRow(ctx, query, moduleID))
}

// Create inserts the configuration. Concurrent intakes may synthesize the same
// default; the partial unique index over active rows plus DO NOTHING makes the
// insert a no-op for the loser, which then re-reads the winner's row.
// Deactivated rows stay behind for audit and never block a new generation.
func (r *slaConfigRepository) Create(ctx context.Context, cfg *domain.SLAConfiguration) error {
	const query = `
        INSERT INTO sla_configurations (product_id, module_id, issue_name, priority_level,
            response_minutes, resolution_minutes, escalation_minutes, active_flag)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
        ON CONFLICT (product_id, module_id, issue_name) WHERE active_flag DO NOTHING
        RETURNING id, created_at, updated_at`
	err := r.pool.QueryRow(ctx, query,
		cfg.ProductID,
		cfg.ModuleID,
		cfg.IssueName,
		cfg.Priority,
		cfg.ResponseMinutes,
		cfg.ResolutionMinutes,
		cfg.EscalationMinutes,
		cfg.Active,
	).Scan(&cfg.ID, &cfg.CreatedAt, &cfg.UpdatedAt)
	if err == pgx.ErrNoRows {
		existing, readErr := r.GetActiveExact(ctx, cfg.ProductID, cfg.ModuleID, cfg.IssueName)
		if readErr != nil {
			return readErr
		}
		*cfg = *existing
		return nil
	}
	return err
}

func (r *slaConfigRepository) GetByID(ctx context.Context, id string) (*domain.SLAConfiguration, error) {
	query := `SELECT ` + slaConfigColumns + ` FROM sla_configurations WHERE id=$1`
	return scanSLAConfig(r.pool.QueryRow(ctx, query, id))
}

func (r *slaConfigRepository) List(ctx context.Context, limit, offset int) ([]domain.SLAConfiguration, error) {
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	query := `SELECT ` + slaConfigColumns + ` FROM sla_configurations ORDER BY product_id, module_id, issue_name LIMIT $1 OFFSET $2`
	rows, err := r.pool.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.SLAConfiguration
	for rows.Next() {
		cfg, err := scanSLAConfig(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *cfg)
	}
	return result, rows.Err()
}

func (r *slaConfigRepository) Deactivate(ctx context.Context, id string) error {
	const query = `UPDATE sla_configurations SET active_flag=false, updated_at=NOW() WHERE id=$1`
	cmd, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func scanSLAConfig(row pgx.Row) (*domain.SLAConfiguration, error) {
	var cfg domain.SLAConfiguration
	if err := row.Scan(
		&cfg.ID,
		&cfg.ProductID,
		&cfg.ModuleID,
		&cfg.IssueName,
		&cfg.Priority,
		&cfg.ResponseMinutes,
		&cfg.ResolutionMinutes,
		&cfg.EscalationMinutes,
		&cfg.Active,
		&cfg.CreatedAt,
		&cfg.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &cfg, nil
}
