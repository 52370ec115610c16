package domain

// Role enumerates every kind of authenticated principal.
type Role string

const (
	RoleCustomer      Role = "customer"
	RoleCustomerAdmin Role = "customer_admin"
	RoleAgent         Role = "agent"
	RoleAgentManager  Role = "agent_manager"
	RoleSuperAdmin    Role = "super_admin"
)

// ParseRole validates a raw role value.
func ParseRole(raw string) (Role, bool) {
	switch Role(raw) {
	case RoleCustomer, RoleCustomerAdmin, RoleAgent, RoleAgentManager, RoleSuperAdmin:
		return Role(raw), true
	default:
		return "", false
	}
}

// IsAgentSide reports whether the role belongs to the agency rather than a
// customer company.
func (r Role) IsAgentSide() bool {
	switch r {
	case RoleAgent, RoleAgentManager, RoleSuperAdmin:
		return true
	case RoleCustomer, RoleCustomerAdmin:
		return false
	default:
		return false
	}
}

// CanManageAssignment reports whether the role may change assignee and due
// date fields directly on a service request.
func (r Role) CanManageAssignment() bool {
	switch r {
	case RoleAgentManager, RoleSuperAdmin:
		return true
	case RoleCustomer, RoleCustomerAdmin, RoleAgent:
		return false
	default:
		return false
	}
}

// CanReviewAssignmentChange reports whether the role may approve or reject
// assignment-change requests.
func (r Role) CanReviewAssignmentChange() bool {
	switch r {
	case RoleAgentManager, RoleSuperAdmin:
		return true
	default:
		return false
	}
}

// Assignable reports whether a user with this role can be the assignee of a
// service request.
func (r Role) Assignable() bool {
	switch r {
	case RoleAgent, RoleAgentManager:
		return true
	default:
		return false
	}
}

// Actor is the verified identity behind a core operation. It is built by the
// auth middleware and passed by value into every service call; the core never
// reads principal data from ambient state.
type Actor struct {
	UserID    string
	Role      Role
	CompanyID *string
}
