package shared

// Role is the access level assigned to a user account.
type Role string

const (
	RoleAdmin      Role = "Admin"
	RoleManager    Role = "Manager"
	RoleAccountant Role = "Accountant"
	RoleLogistics  Role = "Logistics"
)

// Valid reports whether the role is one of the known levels.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleManager, RoleAccountant, RoleLogistics:
		return true
	}
	return false
}

// Allows reports whether the role passes an allow-list check.
// Admin passes every check.
func (r Role) Allows(allowed ...Role) bool {
	if r == RoleAdmin {
		return true
	}
	for _, a := range allowed {
		if r == a {
			return true
		}
	}
	return false
}
