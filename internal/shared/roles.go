package shared

// Platform roles. Roles are flat: an operation declares the exact set it
// accepts rather than inheriting from a higher privilege level.
const (
	RoleUser      = "user"
	RoleAdmin     = "admin"
	RoleRootAdmin = "root-admin"
)

// PrivilegedRoles lists the roles allowed to act on resources they do not own.
func PrivilegedRoles() []string {
	return []string{RoleAdmin, RoleRootAdmin}
}
