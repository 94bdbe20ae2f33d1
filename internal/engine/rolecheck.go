package engine

import (
	"context"
	"strings"

	"github.com/hexaflow/engine/pkg/api"
)

// baselineRole is the role required when a role-check condition names none
const baselineRole = "user"

// handleRoleCheck verifies the caller holds the required role and any
// required page-access grants. Role names are trimmed and compared
// case-insensitively.
// Missing or unavailable role data routes to the "no" branch; it is never
// an execution fault.
func handleRoleCheck(ctx context.Context, req *Request) *api.Outcome {
	cfg := &api.RoleCheckConfig{}
	if err := req.decode(cfg); err != nil {
		return api.Failed(err)
	}

	roles := callerRoles(ctx, req)
	if len(roles) == 0 {
		return api.NewOutcome().WithBranch(false)
	}

	allowed := cfg.Roles
	if len(allowed) == 0 {
		role := cfg.Role
		if role == "" {
			role = baselineRole
		}
		allowed = []string{role}
	}

	held := false
	for _, role := range roles {
		if roleAllowed(allowed, role) {
			held = true
			break
		}
	}
	if !held {
		return api.NewOutcome().WithBranch(false)
	}

	if len(cfg.Pages) > 0 {
		if !pagesGranted(ctx, req, cfg.Pages) {
			return api.NewOutcome().WithBranch(false)
		}
	}
	return api.NewOutcome().WithBranch(true)
}

// callerRoles resolves the caller's roles from the role directory when one
// is wired, falling back to the user profile carried in the run context
func callerRoles(ctx context.Context, req *Request) []string {
	if req.Env.Roles != nil {
		roles, err := req.Env.Roles.RolesFor(ctx, req.TenantID, req.ActorID)
		if err == nil && len(roles) > 0 {
			return roles
		}
	}

	user := req.Context.GetMap("user")
	if user == nil {
		return nil
	}
	if role, ok := user["role"].(string); ok && role != "" {
		return []string{role}
	}
	if raw, ok := user["roles"].([]any); ok {
		var roles []string
		for _, r := range raw {
			if s, ok := r.(string); ok {
				roles = append(roles, s)
			}
		}
		return roles
	}
	return nil
}

func roleAllowed(allowed []string, role string) bool {
	role = strings.TrimSpace(role)
	for _, a := range allowed {
		if strings.EqualFold(strings.TrimSpace(a), role) {
			return true
		}
	}
	return false
}

func pagesGranted(ctx context.Context, req *Request, pages []string) bool {
	if req.Env.Roles == nil {
		return false
	}
	grants, err := req.Env.Roles.PageGrants(ctx, req.TenantID, req.ActorID)
	if err != nil {
		return false
	}
	for _, page := range pages {
		if !containsFoldPage(grants, page) {
			return false
		}
	}
	return true
}

func containsFoldPage(grants []string, page string) bool {
	for _, g := range grants {
		if strings.EqualFold(g, page) || g == "*" {
			return true
		}
	}
	return false
}
