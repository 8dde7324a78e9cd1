package history

import (
	"fmt"
	"net/http"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/abdul-hamid-achik/quartz/packages/core/errdef"
	"github.com/tidwall/gjson"
)

type accessor func(e *Entry) (string, error)

// prefixAccessor handles a family of keys such as "response.headers.<name>".
type prefixAccessor func(e *Entry, rest string) (string, error)

var fields = map[string]accessor{
	"id":     func(e *Entry) (string, error) { return e.ID, nil },
	"handle": func(e *Entry) (string, error) { return e.HandleString(), nil },
	"time": func(e *Entry) (string, error) {
		return e.Time().Format(time.RFC3339Nano), nil
	},
	"timestamp": func(e *Entry) (string, error) { return strconv.FormatInt(e.Timestamp, 10), nil },
	"duration": func(e *Entry) (string, error) {
		return e.Duration.Round(time.Millisecond).String(), nil
	},

	"request.method":  func(e *Entry) (string, error) { return e.Request.Method, nil },
	"request.url":     func(e *Entry) (string, error) { return e.Request.URL, nil },
	"request.headers": func(e *Entry) (string, error) { return requestHeaders(e), nil },
	"request.body":    func(e *Entry) (string, error) { return string(e.Request.Body), nil },
	"request.context": func(e *Entry) (string, error) { return contextLines(e), nil },
	"request.raw":     func(e *Entry) (string, error) { return string(e.Request.Raw), nil },

	"response.status":      func(e *Entry) (string, error) { return strconv.Itoa(e.Response.Status), nil },
	"response.status_text": func(e *Entry) (string, error) { return e.Response.StatusText, nil },
	"response.headers":     func(e *Entry) (string, error) { return responseHeaders(e), nil },
	"response.body":        func(e *Entry) (string, error) { return string(e.Response.Body), nil },
	"response.size":        func(e *Entry) (string, error) { return strconv.Itoa(e.Response.Size), nil },
	"response.raw": func(e *Entry) (string, error) {
		return string(e.Response.Raw) + string(e.Response.Body), nil
	},

	"hops": func(e *Entry) (string, error) { return hopLines(e), nil },
}

var prefixed = map[string]prefixAccessor{
	"request.headers.": func(e *Entry, name string) (string, error) {
		for _, h := range e.Request.Headers {
			if strings.EqualFold(h.Name, name) {
				return h.Value, nil
			}
		}
		return "", errdef.New(errdef.ErrNotFound, "request has no header %q", name)
	},
	"request.context.": func(e *Entry, name string) (string, error) {
		if v, ok := e.Request.Context[name]; ok {
			return v, nil
		}
		return "", errdef.New(errdef.ErrNotFound, "request context has no variable %q", name)
	},
	"response.headers.": func(e *Entry, name string) (string, error) {
		values := http.Header(e.Response.Headers).Values(name)
		if len(values) == 0 {
			return "", errdef.New(errdef.ErrNotFound, "response has no header %q", name)
		}
		return strings.Join(values, ", "), nil
	},
	"response.json.": func(e *Entry, path string) (string, error) {
		if !gjson.ValidBytes(e.Response.Body) {
			return "", errdef.New(errdef.ErrMalformedInput, "response body is not JSON")
		}
		result := gjson.GetBytes(e.Response.Body, path)
		if !result.Exists() {
			return "", errdef.New(errdef.ErrNotFound, "response body has no value at %q", path)
		}
		return result.String(), nil
	},
}

// Field projects the entry to a string by a dotted key such as
// "response.status" or "response.json.data.0.id". Unknown keys return an
// error wrapping errdef.ErrUnknownField.
func (e *Entry) Field(key string) (string, error) {
	if fn, ok := fields[key]; ok {
		return fn(e)
	}
	for prefix, fn := range prefixed {
		if rest, ok := strings.CutPrefix(key, prefix); ok && rest != "" {
			return fn(e, rest)
		}
	}
	return "", fmt.Errorf("%w %q", errdef.ErrUnknownField, key)
}

// FieldNames lists the accepted keys. Families are shown with a <name>
// placeholder.
func FieldNames() []string {
	names := make([]string, 0, len(fields)+len(prefixed))
	for name := range fields {
		names = append(names, name)
	}
	for prefix := range prefixed {
		placeholder := "<name>"
		if prefix == "response.json." {
			placeholder = "<path>"
		}
		names = append(names, prefix+placeholder)
	}
	slices.Sort(names)
	return names
}

func requestHeaders(e *Entry) string {
	lines := make([]string, 0, len(e.Request.Headers))
	for _, h := range e.Request.Headers {
		lines = append(lines, h.Name+": "+h.Value)
	}
	return strings.Join(lines, "\n")
}

func responseHeaders(e *Entry) string {
	names := make([]string, 0, len(e.Response.Headers))
	for name := range e.Response.Headers {
		names = append(names, name)
	}
	slices.Sort(names)
	var lines []string
	for _, name := range names {
		for _, v := range e.Response.Headers[name] {
			lines = append(lines, name+": "+v)
		}
	}
	return strings.Join(lines, "\n")
}

func contextLines(e *Entry) string {
	keys := e.ContextKeys()
	lines := make([]string, 0, len(keys))
	for _, k := range keys {
		lines = append(lines, k+"="+e.Request.Context[k])
	}
	return strings.Join(lines, "\n")
}

func hopLines(e *Entry) string {
	lines := make([]string, 0, len(e.Hops))
	for _, h := range e.Hops {
		line := fmt.Sprintf("%d %s %s", h.Status, h.Method, h.URL)
		if h.Location != "" {
			line += " -> " + h.Location
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}
