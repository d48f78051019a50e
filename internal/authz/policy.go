package authz

// Capability predicates. Pure functions over roles; no I/O and no
// request state, so they are testable in isolation.

// CanManageTeam reports whether the role may mutate team membership.
func CanManageTeam(role Role) bool {
	return role == RoleOwner || role == RoleAdmin
}

// CanAssignRole reports whether an actor may hand out target. Owners
// assign any role including owner; admins any role except owner; no
// other role assigns anything.
func CanAssignRole(actor, target Role) bool {
	switch actor {
	case RoleOwner:
		return target.Valid()
	case RoleAdmin:
		return target.Valid() && target != RoleOwner
	default:
		return false
	}
}

// CanModifyOrganizationProfile reports whether the role may change the
// workspace name, short name, or billing settings.
func CanModifyOrganizationProfile(role Role) bool {
	return role == RoleOwner || role == RoleAdmin
}

// CanDeleteOrganization reports whether the role may delete the
// workspace and everything in it.
func CanDeleteOrganization(role Role) bool {
	return role == RoleOwner
}

// CanManageInvitations mirrors CanManageTeam; invitations are how
// memberships come to exist.
func CanManageInvitations(role Role) bool {
	return CanManageTeam(role)
}

// CanViewWorkspace reports whether the role grants any read access at
// all. noaccess rows exist so a user can be parked without rights.
func CanViewWorkspace(role Role) bool {
	return role.Valid() && role != RoleNoAccess
}

// CanEditFleet reports whether the role may create or update devices
// and people records.
func CanEditFleet(role Role) bool {
	return role == RoleOwner || role == RoleAdmin || role == RoleMember
}

// CanManageOrders includes buyers: placing purchase and trade-in
// orders is the buyer role's whole purpose.
func CanManageOrders(role Role) bool {
	return role == RoleOwner || role == RoleAdmin || role == RoleMember || role == RoleBuyer
}

// CanDeleteFleetRows reports whether the role may hard-delete fleet
// records rather than retiring them.
func CanDeleteFleetRows(role Role) bool {
	return role == RoleOwner || role == RoleAdmin
}

// CanApproveOrders reports whether the role may approve or fulfill an
// order. Buyers submit; spending sign-off stays with owners and admins.
func CanApproveOrders(role Role) bool {
	return role == RoleOwner || role == RoleAdmin
}
