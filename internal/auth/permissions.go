package auth

// Permission represents a named capability on the gateway API.
type Permission string

// Permission constants.
const (
	// PermDatapointRead covers the type catalogue, codec previews,
	// bindings and the live WebSocket feed.
	PermDatapointRead Permission = "datapoint:read"

	// PermDatapointWrite sends group writes and reads onto the bus.
	PermDatapointWrite Permission = "datapoint:write"

	// PermBindingManage creates, replaces and deletes bindings.
	PermBindingManage Permission = "binding:manage"
)

// rolePermissions maps each role to its granted permissions.
var rolePermissions = map[Role][]Permission{
	RoleViewer: {
		PermDatapointRead,
	},
	RoleOperator: {
		PermDatapointRead,
		PermDatapointWrite,
	},
	RoleAdmin: {
		PermDatapointRead,
		PermDatapointWrite,
		PermBindingManage,
	},
}

// HasPermission returns true if the given role has the specified permission.
func HasPermission(role Role, perm Permission) bool {
	for _, p := range rolePermissions[role] {
		if p == perm {
			return true
		}
	}
	return false
}

// PermissionsForRole returns all permissions granted to a role.
// Returns nil for unknown roles.
func PermissionsForRole(role Role) []Permission {
	perms := rolePermissions[role]
	if perms == nil {
		return nil
	}
	result := make([]Permission, len(perms))
	copy(result, perms)
	return result
}
