// Package template expands {{KEY}} placeholders from a secret map (spec
// §4.3). It is a pure, idempotent substitution with no expressions.
package template

import (
	"fmt"
	"regexp"
)

var placeholder = regexp.MustCompile(`\{\{([A-Za-z0-9_]+)\}\}`)

// Secrets is a name -> value map used to resolve placeholders.
type Secrets map[string]string

// Resolve walks v recursively (maps and slices) and replaces every
// "{{KEY}}" occurrence in string leaves with Secrets[KEY] in string form.
// A missing key is left untouched — no-op, not an error. Non-string
// scalars pass through unchanged. Resolve(Resolve(v)) == Resolve(v): a
// secret value that itself contains "{{KEY}}" placeholders is expanded too,
// until nothing more changes, so a second pass has nothing left to do. Only
// a cycle of secrets referring to each other stops short of that.
func Resolve(v any, secrets Secrets) any {
	switch val := v.(type) {
	case string:
		return resolveString(val, secrets)
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			out[k] = Resolve(item, secrets)
		}
		return out
	case map[string]string:
		out := make(map[string]string, len(val))
		for k, item := range val {
			out[k] = resolveString(item, secrets)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = Resolve(item, secrets)
		}
		return out
	default:
		return v
	}
}

// ResolveString resolves placeholders in a single string — the common case
// for step URL/headers/params values.
func ResolveString(s string, secrets Secrets) string {
	return resolveString(s, secrets)
}

// ResolveHeaders resolves placeholders in every header value.
func ResolveHeaders(headers map[string]string, secrets Secrets) map[string]string {
	if headers == nil {
		return nil
	}
	out := make(map[string]string, len(headers))
	for k, v := range headers {
		out[k] = resolveString(v, secrets)
	}
	return out
}

func resolveString(s string, secrets Secrets) string {
	// Each pass resolves one level of secrets referring to other secrets;
	// len(secrets)+1 passes reach a fixed point for any acyclic chain.
	for i := 0; i <= len(secrets); i++ {
		next := placeholder.ReplaceAllStringFunc(s, func(match string) string {
			key := placeholder.FindStringSubmatch(match)[1]
			if val, ok := secrets[key]; ok {
				return val
			}
			return match
		})
		if next == s {
			return s
		}
		s = next
	}
	return s
}

// ResolveScalar stringifies non-string scalars used in substitution contexts
// (e.g. when a secret is referenced as a body field and needs to render).
func ResolveScalar(v any) string {
	return fmt.Sprintf("%v", v)
}
