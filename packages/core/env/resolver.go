package env

import (
	"regexp"
	"strings"

	"github.com/abdul-hamid-achik/quartz/packages/core/endpoint"
)

var variablePattern = regexp.MustCompile(`\{\{([^}]+)\}\}`)

// Variables is a flat key/value mapping.
type Variables map[string]string

// WarnFunc is a function type for handling warnings
type WarnFunc func(format string, args ...any)

// Substitute replaces {{NAME}} tokens in template. Scopes later in the list
// override earlier ones on the same key. Unknown tokens are left verbatim.
func Substitute(template string, scopes ...Variables) string {
	return NewResolver(scopes...).Resolve(template)
}

// Resolver resolves tokens against an ordered list of scopes.
type Resolver struct {
	scopes   []Variables
	warnFunc WarnFunc
}

// NewResolver returns a resolver over scopes, lowest precedence first.
func NewResolver(scopes ...Variables) *Resolver {
	return &Resolver{scopes: scopes}
}

// SetWarnFunc sets a function to be called when warnings occur (e.g., unresolved variables)
func (r *Resolver) SetWarnFunc(fn WarnFunc) {
	r.warnFunc = fn
}

func (r *Resolver) warn(format string, args ...any) {
	if r.warnFunc != nil {
		r.warnFunc(format, args...)
	}
}

// Push adds a scope with the highest precedence so far.
func (r *Resolver) Push(scope Variables) {
	r.scopes = append(r.scopes, scope)
}

// GetVariable looks name up, highest precedence scope first.
func (r *Resolver) GetVariable(name string) (string, bool) {
	for i := len(r.scopes) - 1; i >= 0; i-- {
		if v, ok := r.scopes[i][name]; ok {
			return v, true
		}
	}
	return "", false
}

// HasVariable reports whether any scope defines name.
func (r *Resolver) HasVariable(name string) bool {
	_, ok := r.GetVariable(name)
	return ok
}

// Merged flattens the scopes into one mapping with precedence applied.
func (r *Resolver) Merged() Variables {
	out := make(Variables)
	for _, scope := range r.scopes {
		for k, v := range scope {
			out[k] = v
		}
	}
	return out
}

func (r *Resolver) Resolve(input string) string {
	return variablePattern.ReplaceAllStringFunc(input, func(match string) string {
		name := strings.TrimSpace(match[2 : len(match)-2])
		if val, ok := r.GetVariable(name); ok {
			return val
		}
		r.warn("unresolved variable: %s", name)
		return match
	})
}

func (r *Resolver) ResolveAll(values map[string]string) map[string]string {
	result := make(map[string]string, len(values))
	for k, v := range values {
		result[k] = r.Resolve(v)
	}
	return result
}

// Unresolved returns the names of tokens in input that no scope defines, in
// order of appearance.
func (r *Resolver) Unresolved(input string) []string {
	var names []string
	for _, m := range variablePattern.FindAllStringSubmatch(input, -1) {
		name := strings.TrimSpace(m[1])
		if !r.HasVariable(name) {
			names = append(names, name)
		}
	}
	return names
}

// Apply returns a copy of e with tokens substituted in the url, every header
// value, every query value and the body. Keys are left as written.
func (r *Resolver) Apply(e *endpoint.Endpoint) *endpoint.Endpoint {
	out := e.Clone()
	out.URL = r.Resolve(e.URL)

	out.Headers = endpoint.NewHeaders()
	for k, v := range e.Headers.All() {
		out.Headers.Set(k, r.Resolve(v))
	}
	out.Query = endpoint.NewQuery()
	for k, v := range e.Query.All() {
		out.Query.Set(k, r.Resolve(v))
	}
	if len(e.Body) > 0 {
		out.Body = []byte(r.Resolve(string(e.Body)))
	}
	return out
}

// FillHeaders adds each scope header that dst does not already define. Scope
// headers never override explicit endpoint headers; among scopes, later ones
// win.
func FillHeaders(dst *endpoint.Pairs, scopeHeaders ...endpoint.Pairs) {
	explicit := dst.Clone()
	for _, headers := range scopeHeaders {
		for k, v := range headers.All() {
			if !explicit.Has(k) {
				dst.Set(k, v)
			}
		}
	}
}
