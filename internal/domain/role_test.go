package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseRole(t *testing.T) {
	for _, valid := range []string{"customer", "customer_admin", "agent", "agent_manager", "super_admin"} {
		role, ok := ParseRole(valid)
		assert.True(t, ok, valid)
		assert.Equal(t, Role(valid), role)
	}

	for _, invalid := range []string{"", "admin", "Agent", "manager"} {
		_, ok := ParseRole(invalid)
		assert.False(t, ok, invalid)
	}
}

func TestRolePredicates(t *testing.T) {
	cases := []struct {
		role       Role
		agentSide  bool
		manages    bool
		reviews    bool
		assignable bool
	}{
		{RoleCustomer, false, false, false, false},
		{RoleCustomerAdmin, false, false, false, false},
		{RoleAgent, true, false, false, true},
		{RoleAgentManager, true, true, true, true},
		{RoleSuperAdmin, true, true, true, false},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.agentSide, tc.role.IsAgentSide(), "%s IsAgentSide", tc.role)
		assert.Equal(t, tc.manages, tc.role.CanManageAssignment(), "%s CanManageAssignment", tc.role)
		assert.Equal(t, tc.reviews, tc.role.CanReviewAssignmentChange(), "%s CanReviewAssignmentChange", tc.role)
		assert.Equal(t, tc.assignable, tc.role.Assignable(), "%s Assignable", tc.role)
	}
}
