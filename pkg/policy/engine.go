package policy

import (
	"fmt"
)

// Config holds the static authorization tables. It is loaded once at startup
// and validated by NewEngine; the engine never modifies it afterwards.
type Config struct {
	// RolePermissions maps each role to its permission list, scanned in order
	RolePermissions map[Role][]Permission

	// TeamPermissions lists the administrative team permissions implicitly
	// held by Admin (Owner holds everything)
	TeamPermissions []Permission

	// SensitiveOperations maps named high-impact operations to the roles
	// allowed to perform them
	SensitiveOperations map[string][]Role

	// Routes maps each role to its navigable sections. Each role's set must
	// be a strict subset of every higher-privilege role's set.
	Routes map[Role][]string
}

// DefaultConfig returns the built-in role, operation and route tables
func DefaultConfig() Config {
	return Config{
		RolePermissions: map[Role][]Permission{
			RoleOwner: {
				{Resource: Wildcard, Action: Wildcard},
			},
			RoleAdmin: {
				{Resource: "tasks", Action: Wildcard},
				{Resource: "notes", Action: Wildcard},
				{Resource: "resources", Action: Wildcard},
				{Resource: "sessions", Action: Wildcard},
				{Resource: "chat", Action: Wildcard},
				{Resource: "reports", Action: Wildcard},
				{Resource: "team", Action: "read"},
				{Resource: "team", Action: "write"},
			},
			RoleMember: {
				{Resource: "tasks", Action: "read"},
				{Resource: "tasks", Action: "write"},
				{Resource: "notes", Action: "read"},
				{Resource: "notes", Action: "write"},
				{Resource: "resources", Action: "read"},
				{Resource: "sessions", Action: "read"},
				{Resource: "sessions", Action: "write"},
				{Resource: "chat", Action: Wildcard},
			},
			RoleViewer: {
				{Resource: "tasks", Action: "read"},
				{Resource: "notes", Action: "read"},
				{Resource: "resources", Action: "read"},
			},
		},
		TeamPermissions: []Permission{
			{Resource: "team", Action: "read"},
			{Resource: "team", Action: "invite"},
			{Resource: "team", Action: "remove"},
			{Resource: "team", Action: "update"},
		},
		SensitiveOperations: map[string][]Role{
			"delete-team":        {RoleOwner},
			"transfer-ownership": {RoleOwner},
			"manage-billing":     {RoleOwner, RoleAdmin},
			"export-data":        {RoleOwner, RoleAdmin},
			"manage-members":     {RoleOwner, RoleAdmin},
		},
		Routes: map[Role][]string{
			RoleViewer: {"dashboard", "tasks", "notes", "resources"},
			RoleMember: {"dashboard", "tasks", "notes", "resources", "chat", "sessions"},
			RoleAdmin:  {"dashboard", "tasks", "notes", "resources", "chat", "sessions", "team", "reports"},
			RoleOwner:  {"dashboard", "tasks", "notes", "resources", "chat", "sessions", "team", "reports", "settings", "billing"},
		},
	}
}

// Engine evaluates authorization decisions over immutable configured tables
type Engine struct {
	config Config
}

// NewEngine validates the configuration and constructs an Engine.
// A malformed table is a construction error; callers treat it as fatal.
func NewEngine(config Config) (*Engine, error) {
	if err := validateConfig(config); err != nil {
		return nil, err
	}
	return &Engine{config: config}, nil
}

// validateConfig rejects tables that would leave the policy undefined
func validateConfig(config Config) error {
	if len(config.RolePermissions) == 0 {
		return fmt.Errorf("policy: role permission table is empty")
	}
	for role, perms := range config.RolePermissions {
		if !role.Known() {
			return fmt.Errorf("policy: unknown role %q in permission table", role)
		}
		for _, p := range perms {
			if p.Resource == "" || p.Action == "" {
				return fmt.Errorf("policy: role %q has permission with empty field: %q", role, p)
			}
		}
	}
	for op, roles := range config.SensitiveOperations {
		if op == "" {
			return fmt.Errorf("policy: sensitive operation with empty name")
		}
		if len(roles) == 0 {
			return fmt.Errorf("policy: sensitive operation %q allows no roles", op)
		}
		for _, role := range roles {
			if !role.Known() {
				return fmt.Errorf("policy: sensitive operation %q references unknown role %q", op, role)
			}
		}
	}
	for role := range config.Routes {
		if !role.Known() {
			return fmt.Errorf("policy: unknown role %q in route table", role)
		}
	}
	// Route sets must nest strictly up the privilege order.
	for i := 0; i < len(rolesByLevel)-1; i++ {
		lower, higher := rolesByLevel[i], rolesByLevel[i+1]
		lowerRoutes, ok := config.Routes[lower]
		if !ok {
			return fmt.Errorf("policy: route table missing role %q", lower)
		}
		higherRoutes, ok := config.Routes[higher]
		if !ok {
			return fmt.Errorf("policy: route table missing role %q", higher)
		}
		set := make(map[string]struct{}, len(higherRoutes))
		for _, route := range higherRoutes {
			set[route] = struct{}{}
		}
		for _, route := range lowerRoutes {
			if _, ok := set[route]; !ok {
				return fmt.Errorf("policy: role %q route %q not granted to higher role %q", lower, route, higher)
			}
		}
		if len(lowerRoutes) >= len(set) {
			return fmt.Errorf("policy: role %q routes are not a strict subset of role %q routes", lower, higher)
		}
	}
	return nil
}

// checkOptions carries the optional parts of a permission check
type checkOptions struct {
	resourceOwnerID string
	hasOwner        bool
}

// CheckOption customizes a HasPermission evaluation
type CheckOption func(*checkOptions)

// WithResourceOwner supplies the resource owner's id, enabling the
// ownership override when it equals the caller's user id
func WithResourceOwner(ownerID string) CheckOption {
	return func(o *checkOptions) {
		o.resourceOwnerID = ownerID
		o.hasOwner = true
	}
}

// HasPermission reports whether the caller may perform action on resource.
// Owner always succeeds; a matching resource owner id succeeds regardless of
// the role tables; otherwise the role's permission list is scanned in order.
// Default is deny.
func (e *Engine) HasPermission(ctx SecurityContext, resource, action string, opts ...CheckOption) bool {
	if ctx.Role == RoleOwner {
		return true
	}

	var options checkOptions
	for _, opt := range opts {
		opt(&options)
	}
	if options.hasOwner && options.resourceOwnerID != "" && options.resourceOwnerID == ctx.UserID {
		return true
	}

	for _, p := range e.config.RolePermissions[ctx.Role] {
		if p.Matches(resource, action) {
			return true
		}
	}
	return false
}

// HasTeamPermission reports whether the caller holds the given team-scoped
// permission. Owner always does; Admin implicitly holds the configured
// administrative set; every other role must carry it explicitly in its
// context permission set.
func (e *Engine) HasTeamPermission(ctx SecurityContext, perm Permission) bool {
	switch ctx.Role {
	case RoleOwner:
		return true
	case RoleAdmin:
		for _, p := range e.config.TeamPermissions {
			if p == perm {
				return true
			}
		}
	}
	for _, p := range ctx.Permissions {
		if p == perm {
			return true
		}
	}
	return false
}

// ValidateSensitiveOperation reports whether the caller's role is allowed to
// perform the named high-impact operation. Unknown operations are denied.
func (e *Engine) ValidateSensitiveOperation(ctx SecurityContext, operation string) bool {
	roles, ok := e.config.SensitiveOperations[operation]
	if !ok {
		return false
	}
	for _, role := range roles {
		if role == ctx.Role {
			return true
		}
	}
	return false
}

// AllowedRoutes returns the navigable sections for the role. The returned
// slice is a copy; callers may not mutate engine state through it.
func (e *Engine) AllowedRoutes(role Role) []string {
	routes := e.config.Routes[role]
	out := make([]string, len(routes))
	copy(out, routes)
	return out
}

// FilterResourcesByPermission returns the subset of resources the caller may
// perform action on, applying each resource's own owner id. The resource
// argument names the resource kind checked against the role tables.
func FilterResourcesByPermission[T OwnedResource](e *Engine, ctx SecurityContext, resources []T, resource, action string) []T {
	filtered := make([]T, 0, len(resources))
	for _, res := range resources {
		if e.HasPermission(ctx, resource, action, WithResourceOwner(res.OwnerID())) {
			filtered = append(filtered, res)
		}
	}
	return filtered
}
