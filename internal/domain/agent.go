package domain

import "time"

// AgentRole enumerates directory roles.
type AgentRole string

const (
	AgentRoleAgent   AgentRole = "AGENT"
	AgentRoleManager AgentRole = "MANAGER"
	AgentRoleCEO     AgentRole = "CEO"
	AgentRoleAdmin   AgentRole = "ADMIN"
)

// AssignableRoles is the set of roles that participate in load balancing.
var AssignableRoles = []AgentRole{AgentRoleAgent}

// Agent mirrors the external directory entry. The engine reads agents for
// selection and escalation targeting; it never writes them.
type Agent struct {
	ID        string
	Name      string
	Email     string
	Role      AgentRole
	Active    bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// IsAssignable reports whether the agent may receive ticket ownership.
func (a *Agent) IsAssignable() bool {
	if !a.Active {
		return false
	}
	for _, role := range AssignableRoles {
		if a.Role == role {
			return true
		}
	}
	return false
}
