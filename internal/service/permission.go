package service

// Permission names used by services when a caller wants to act on a
// resource they do not own.
const (
	PermDeleteAnyMessage = "message.delete.any"
	PermIssueAlert       = "alert.issue"
	PermArchiveChannel   = "channel.archive"
)

// PermissionChecker decides whether a user holds a named permission.
// Services consult it only for privileged overrides; normal ownership
// checks do not go through it.
type PermissionChecker interface {
	HasPermission(userID, permission string) bool
}

// rolePermissions maps a role to the permissions it grants
var rolePermissions = map[string][]string{
	"admin":     {PermDeleteAnyMessage, PermIssueAlert, PermArchiveChannel},
	"staff":     {PermIssueAlert},
	"moderator": {PermDeleteAnyMessage},
}

// RoleResolver looks up a user's role
type RoleResolver func(userID string) (string, error)

type rolePermissionChecker struct {
	resolveRole RoleResolver
}

// NewRolePermissionChecker builds a PermissionChecker backed by the
// member role column. Lookup failures deny.
func NewRolePermissionChecker(resolveRole RoleResolver) PermissionChecker {
	return &rolePermissionChecker{resolveRole: resolveRole}
}

func (c *rolePermissionChecker) HasPermission(userID, permission string) bool {
	role, err := c.resolveRole(userID)
	if err != nil {
		return false
	}
	for _, p := range rolePermissions[role] {
		if p == permission {
			return true
		}
	}
	return false
}
