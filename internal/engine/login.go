package engine

import (
	"context"
	"strings"
	"time"

	"github.com/hexaflow/engine/pkg/api"
)

// userCandidates lists the context locations checked for the logged-in
// user's profile, in priority order. The response shapes cover profiles
// captured by an upstream http-request action under its default result
// variable.
var userCandidates = []func(api.Context) map[string]any{
	func(c api.Context) map[string]any {
		return c.GetMap("user")
	},
	func(c api.Context) map[string]any {
		return nestedMap(c.GetMap("session"), "user")
	},
	func(c api.Context) map[string]any {
		return nestedMap(c.GetMap("authResponse"), "user")
	},
	func(c api.Context) map[string]any {
		return nestedMap(c.GetMap("response"), "user")
	},
	func(c api.Context) map[string]any {
		return nestedMap(nestedMap(c.GetMap("response"), "body"), "user")
	},
}

// handleUserLogin fires when a login event carries a usable user profile.
// Failed logins and profiles missing an id or email never start a run.
func handleUserLogin(_ context.Context, req *Request) *api.Outcome {
	cfg := &api.UserLoginConfig{}
	if err := req.decode(cfg); err != nil {
		return api.Failed(err)
	}
	if !enabled(cfg.Enabled) {
		return api.Untriggered("trigger disabled")
	}

	if loginFailed(req.Context) {
		return api.Untriggered("login was not successful")
	}

	user := locateUser(req.Context)
	if user == nil {
		return api.Untriggered("no user profile in event")
	}

	id, _ := user["id"].(string)
	email, _ := user["email"].(string)
	if id == "" || email == "" {
		return api.Untriggered("user profile missing id or email")
	}

	session := map[string]any{}
	for k, v := range req.Context.GetMap("session") {
		session[k] = v
	}
	session["user"] = user
	if token := locateToken(req.Context); token != "" {
		session["token"] = token
	}
	session["loggedInAt"] = req.Env.Clock().UTC().Format(time.RFC3339)

	return api.NewOutcome().WithTriggered().
		WithPatch("user", user).
		WithPatch("session", session)
}

func locateUser(ctx api.Context) map[string]any {
	for _, candidate := range userCandidates {
		if user := candidate(ctx); user != nil {
			return user
		}
	}
	return nil
}

func locateToken(ctx api.Context) string {
	sources := []map[string]any{
		ctx.GetMap("authResponse"),
		ctx.GetMap("session"),
		ctx.GetMap("response"),
		nestedMap(ctx.GetMap("response"), "body"),
	}
	for _, m := range sources {
		if m == nil {
			continue
		}
		if token, _ := m["token"].(string); token != "" {
			return strings.TrimPrefix(token, "Bearer ")
		}
	}
	return ""
}

func loginFailed(ctx api.Context) bool {
	if ctx.GetBool("loginFailed", false) {
		return true
	}
	if auth := ctx.GetMap("authResponse"); auth != nil {
		if ok, has := auth["success"].(bool); has && !ok {
			return true
		}
	}
	return false
}

func nestedMap(m map[string]any, key string) map[string]any {
	if m == nil {
		return nil
	}
	res, _ := m[key].(map[string]any)
	return res
}
