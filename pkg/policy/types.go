package policy

// Role represents an ordered privilege tier
type Role string

const (
	RoleOwner  Role = "owner"
	RoleAdmin  Role = "admin"
	RoleMember Role = "member"
	RoleViewer Role = "viewer"
)

// roleLevels orders roles by privilege; higher values outrank lower ones.
// Unknown roles map to zero and are denied everything by default.
var roleLevels = map[Role]int{
	RoleViewer: 1,
	RoleMember: 2,
	RoleAdmin:  3,
	RoleOwner:  4,
}

// Level returns the privilege level of the role (0 for unknown roles)
func (r Role) Level() int {
	return roleLevels[r]
}

// Known reports whether the role is part of the configured hierarchy
func (r Role) Known() bool {
	_, ok := roleLevels[r]
	return ok
}

// rolesByLevel lists the hierarchy from lowest to highest privilege
var rolesByLevel = []Role{RoleViewer, RoleMember, RoleAdmin, RoleOwner}

// Wildcard matches any resource or action within a Permission
const Wildcard = "*"

// Permission represents a specific permission (resource + action).
// Either field may be the Wildcard.
type Permission struct {
	Resource string `json:"resource"`
	Action   string `json:"action"`
}

// String returns a string representation of the permission
func (p Permission) String() string {
	return p.Resource + ":" + p.Action
}

// Matches reports whether the permission grants the given action on the
// given resource under wildcard-or-exact rules
func (p Permission) Matches(resource, action string) bool {
	if p.Resource != Wildcard && p.Resource != resource {
		return false
	}
	return p.Action == Wildcard || p.Action == action
}

// SecurityContext describes the caller for a single evaluation. It is
// constructed fresh per call by the application's authentication layer and
// trusted as given; the engine never mutates or retains it.
type SecurityContext struct {
	UserID      string       `json:"user_id"`
	Role        Role         `json:"role"`
	TeamID      string       `json:"team_id,omitempty"`
	Permissions []Permission `json:"permissions,omitempty"`
}

// OwnedResource exposes the owner of a resource for ownership-aware filtering
type OwnedResource interface {
	OwnerID() string
}
