package api

import "maps"

// Context is the accumulating key/value state threaded through a run. It is
// the only state carried across node boundaries; a fresh Context is created
// per run and discarded at run end.
type Context map[string]any

// Merge returns a new Context with patch applied over c. Patch keys shadow
// prior values of the same key; all other keys persist. A nil patch returns
// c unchanged.
func (c Context) Merge(patch Context) Context {
	if len(patch) == 0 {
		return c
	}
	res := maps.Clone(c)
	if res == nil {
		res = make(Context, len(patch))
	}
	for k, v := range patch {
		res[k] = v
	}
	return res
}

// Set returns a new Context with the specified key set
func (c Context) Set(key string, value any) Context {
	return c.Merge(Context{key: value})
}

// GetString retrieves a string value, returning defaultValue if not found
// or wrong type
func (c Context) GetString(key, defaultValue string) string {
	val, ok := c[key]
	if !ok {
		return defaultValue
	}
	str, ok := val.(string)
	if !ok {
		return defaultValue
	}
	return str
}

// GetBool retrieves a boolean value, returning defaultValue if not found or
// wrong type
func (c Context) GetBool(key string, defaultValue bool) bool {
	val, ok := c[key]
	if !ok {
		return defaultValue
	}
	b, ok := val.(bool)
	if !ok {
		return defaultValue
	}
	return b
}

// GetMap retrieves a nested map value, or nil when absent or wrong type
func (c Context) GetMap(key string) map[string]any {
	val, ok := c[key]
	if !ok {
		return nil
	}
	m, ok := val.(map[string]any)
	if !ok {
		return nil
	}
	return m
}
