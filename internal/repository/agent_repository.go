package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/sla-engine/internal/domain"
)

// AgentFilter defines query params for directory reads.
type AgentFilter struct {
	Roles  []domain.AgentRole
	Active *bool
	Limit  int
}

// AgentRepository is the engine's read-only view of the agent directory.
type AgentRepository interface {
	GetByID(ctx context.Context, id string) (*domain.Agent, error)
	List(ctx context.Context, filter AgentFilter) ([]domain.Agent, error)
	// ListAssignable returns active agents in the assignable role set, ordered
	// by id so selection tie-breaks are reproducible.
	ListAssignable(ctx context.Context) ([]domain.Agent, error)
	// FindEscalationTarget returns an active MANAGER, or the CEO when no
	// manager exists.
	FindEscalationTarget(ctx context.Context) (*domain.Agent, error)
}

type agentRepository struct {
	pool *pgxpool.Pool
}

// NewAgentRepository instantiates the repository.
func NewAgentRepository(pool *pgxpool.Pool) AgentRepository {
	return &agentRepository{pool: pool}
}

const agentColumns = `id, name, email, role, active_flag, created_at, updated_at`

func (r *agentRepository) GetByID(ctx context.Context, id string) (*domain.Agent, error) {
	query := `SELECT ` + agentColumns + ` FROM agents WHERE id=$1`
	return scanAgent(r.pool.QueryRow(ctx, query, id))
}

func (r *agentRepository) List(ctx context.Context, filter AgentFilter) ([]domain.Agent, error) {
	query := `SELECT ` + agentColumns + ` FROM agents`
	args := []any{}
	clauses := []string{}

	if len(filter.Roles) > 0 {
		roles := make([]string, len(filter.Roles))
		for i, role := range filter.Roles {
			roles[i] = string(role)
		}
		args = append(args, roles)
		clauses = append(clauses, fmt.Sprintf("role = ANY($%d)", len(args)))
	}
	if filter.Active != nil {
		args = append(args, *filter.Active)
		clauses = append(clauses, fmt.Sprintf("active_flag=$%d", len(args)))
	}
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += " ORDER BY id ASC"
	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", filter.Limit)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Agent
	for rows.Next() {
		agent, err := scanAgent(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *agent)
	}
	return result, rows.Err()
}

func (r *agentRepository) ListAssignable(ctx context.Context) ([]domain.Agent, error) {
	active := true
	return r.List(ctx, AgentFilter{Roles: domain.AssignableRoles, Active: &active})
}

func (r *agentRepository) FindEscalationTarget(ctx context.Context) (*domain.Agent, error) {
	const query = `
        SELECT ` + agentColumns + ` FROM agents
        WHERE active_flag AND role = $1
        ORDER BY id ASC LIMIT 1`
	target, err := scanAgent(r.pool.QueryRow(ctx, query, domain.AgentRoleManager))
	if err == nil {
		return target, nil
	}
	if err != pgx.ErrNoRows {
		return nil, err
	}
	return scanAgent(r.pool.QueryRow(ctx, query, domain.AgentRoleCEO))
}

func scanAgent(row pgx.Row) (*domain.Agent, error) {
	var agent domain.Agent
	if err := row.Scan(
		&agent.ID,
		&agent.Name,
		&agent.Email,
		&agent.Role,
		&agent.Active,
		&agent.CreatedAt,
		&agent.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &agent, nil
}
