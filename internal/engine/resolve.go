package engine

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/hexaflow/engine/pkg/api"
)

// placeholderPattern matches {{context.path}} markers embedded in string
// configuration values
var placeholderPattern = regexp.MustCompile(`\{\{\s*([^{}]+?)\s*\}\}`)

const contextPrefix = "context."

// Resolve rewrites {{context.path}} markers in string values by evaluating
// each marker as a dotted path into ctx (numeric array indices supported)
// and substituting its string form. Non-string values recurse structurally.
// Unresolvable paths resolve to the empty string so optional fields never
// abort a run. Pure function; resolving an already resolved value is a
// no-op.
func Resolve(value any, ctx api.Context) any {
	doc, err := json.Marshal(ctx)
	if err != nil {
		doc = []byte("{}")
	}
	return resolveValue(value, doc)
}

// ResolveConfig resolves every value of a node configuration map
func ResolveConfig(cfg map[string]any, ctx api.Context) map[string]any {
	resolved := Resolve(map[string]any(cfg), ctx)
	res, ok := resolved.(map[string]any)
	if !ok {
		return cfg
	}
	return res
}

// Lookup evaluates a dotted path against the context and reports whether
// it resolved
func Lookup(ctx api.Context, path string) (any, bool) {
	doc, err := json.Marshal(ctx)
	if err != nil {
		return nil, false
	}
	res := gjson.GetBytes(doc, normalizePath(path))
	if !res.Exists() {
		return nil, false
	}
	return res.Value(), true
}

func resolveValue(value any, doc []byte) any {
	switch v := value.(type) {
	case string:
		return resolveString(v, doc)
	case map[string]any:
		out := make(map[string]any, len(v))
		for key, elem := range v {
			out[key] = resolveValue(elem, doc)
		}
		return out
	case api.Context:
		out := make(map[string]any, len(v))
		for key, elem := range v {
			out[key] = resolveValue(elem, doc)
		}
		return out
	case []any:
		out := make([]any, len(v))
		for idx, elem := range v {
			out[idx] = resolveValue(elem, doc)
		}
		return out
	default:
		return value
	}
}

func resolveString(s string, doc []byte) string {
	if !strings.Contains(s, "{{") {
		return s
	}
	return placeholderPattern.ReplaceAllStringFunc(s, func(marker string) string {
		sub := placeholderPattern.FindStringSubmatch(marker)
		if len(sub) < 2 {
			return ""
		}
		return lookupString(sub[1], doc)
	})
}

func lookupString(expr string, doc []byte) string {
	res := gjson.GetBytes(doc, normalizePath(expr))
	switch {
	case !res.Exists(), res.Type == gjson.Null:
		return ""
	case res.IsObject(), res.IsArray():
		return res.Raw
	default:
		return res.String()
	}
}

func normalizePath(expr string) string {
	path := strings.TrimSpace(expr)
	return strings.TrimPrefix(path, contextPrefix)
}
