// Package authz holds the workspace role hierarchy and the capability
// policy gating every privileged operation.
package authz

import "fmt"

// Role is a workspace-scoped access level.
type Role string

// Roles, highest privilege first.
const (
	RoleOwner    Role = "owner"
	RoleAdmin    Role = "admin"
	RoleMember   Role = "member"
	RoleBuyer    Role = "buyer"
	RoleViewer   Role = "viewer"
	RoleNoAccess Role = "noaccess"
)

// roleRank orders roles for member-list sorting and the assignment
// rules. Capability checks never compare ranks; they are explicit
// predicates in policy.go.
var roleRank = map[Role]int{
	RoleOwner:    5,
	RoleAdmin:    4,
	RoleMember:   3,
	RoleBuyer:    2,
	RoleViewer:   1,
	RoleNoAccess: 0,
}

// ParseRole validates a client-supplied role string.
func ParseRole(s string) (Role, error) {
	role := Role(s)
	if !role.Valid() {
		return "", fmt.Errorf("invalid role: %q", s)
	}
	return role, nil
}

// Valid reports whether the role is one of the six known levels.
func (r Role) Valid() bool {
	_, ok := roleRank[r]
	return ok
}

// Rank returns the role's position in the hierarchy; higher is more
// privileged. Unknown roles rank below noaccess.
func (r Role) Rank() int {
	return roleRank[r]
}

func (r Role) String() string {
	return string(r)
}
