package endpoint

import (
	"net/url"
	"strings"

	"github.com/abdul-hamid-achik/quartz/packages/core/errdef"
	"golang.org/x/net/http/httpguts"
)

// DefaultMethod is used when no node in the chain sets a method.
const DefaultMethod = "GET"

// Endpoint is the request template stored at a handle.
type Endpoint struct {
	URL     string
	Method  string
	Headers Pairs
	Query   Pairs
	Body    []byte
}

// New returns an empty endpoint with initialized header and query sets.
func New() *Endpoint {
	return &Endpoint{
		Headers: NewHeaders(),
		Query:   NewQuery(),
	}
}

// Clone returns a deep copy.
func (e *Endpoint) Clone() *Endpoint {
	out := &Endpoint{
		URL:     e.URL,
		Method:  e.Method,
		Headers: e.Headers.Clone(),
		Query:   e.Query.Clone(),
	}
	if e.Body != nil {
		out.Body = append([]byte(nil), e.Body...)
	}
	return out
}

// EffectiveMethod returns the method, falling back to DefaultMethod.
func (e *Endpoint) EffectiveMethod() string {
	if e.Method == "" {
		return DefaultMethod
	}
	return e.Method
}

// Validate checks the method token and every header name and value.
func (e *Endpoint) Validate() error {
	if m := e.EffectiveMethod(); !httpguts.ValidHeaderFieldName(m) {
		return errdef.New(errdef.ErrMalformedInput, "invalid method %q", m)
	}
	for key, value := range e.Headers.All() {
		if !httpguts.ValidHeaderFieldName(key) {
			return errdef.New(errdef.ErrMalformedInput, "invalid header name %q", key)
		}
		if !httpguts.ValidHeaderFieldValue(value) {
			return errdef.New(errdef.ErrMalformedInput, "invalid value for header %q", key)
		}
	}
	return nil
}

// FullURL parses the URL and merges the endpoint's query params into it.
// Endpoint params replace params of the same name already in the URL.
func (e *Endpoint) FullURL() (*url.URL, error) {
	if strings.TrimSpace(e.URL) == "" {
		return nil, errdef.New(errdef.ErrMalformedInput, "endpoint has no url")
	}
	u, err := url.Parse(e.URL)
	if err != nil {
		return nil, errdef.Wrap(errdef.ErrMalformedInput, err, "invalid url %q", e.URL)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, errdef.New(errdef.ErrMalformedInput, "unsupported url scheme %q (only http and https are allowed)", u.Scheme)
	}
	if u.Host == "" {
		return nil, errdef.New(errdef.ErrMalformedInput, "url %q has no host", e.URL)
	}
	if e.Query.Len() == 0 {
		return u, nil
	}

	q := u.Query()
	for key, value := range e.Query.All() {
		q.Set(key, value)
	}
	u.RawQuery = q.Encode()
	return u, nil
}

// QueryString renders the endpoint's own query params in order.
func (e *Endpoint) QueryString() string {
	parts := make([]string, 0, e.Query.Len())
	for key, value := range e.Query.All() {
		parts = append(parts, url.QueryEscape(key)+"="+url.QueryEscape(value))
	}
	return strings.Join(parts, "&")
}

// Patch is a set of changes applied to an endpoint. Nil fields are left alone.
type Patch struct {
	URL          *string
	Method       *string
	Headers      []string
	RemoveHeader []string
	Query        []string
	RemoveQuery  []string
	Body         []byte
}

// IsEmpty reports whether applying p would change nothing.
func (p *Patch) IsEmpty() bool {
	return p == nil || (p.URL == nil && p.Method == nil && len(p.Headers) == 0 &&
		len(p.RemoveHeader) == 0 && len(p.Query) == 0 && len(p.RemoveQuery) == 0 && p.Body == nil)
}

// Apply mutates e. Header lines use "key: value", query lines "key=value".
func (p *Patch) Apply(e *Endpoint) error {
	if p == nil {
		return nil
	}
	if p.URL != nil {
		e.URL = strings.TrimSpace(*p.URL)
	}
	if p.Method != nil {
		e.Method = strings.ToUpper(strings.TrimSpace(*p.Method))
	}
	for _, line := range p.Headers {
		if err := e.Headers.SetLine(line); err != nil {
			return err
		}
	}
	for _, key := range p.RemoveHeader {
		e.Headers.Delete(key)
	}
	for _, line := range p.Query {
		if err := e.Query.SetLine(line); err != nil {
			return err
		}
	}
	for _, key := range p.RemoveQuery {
		e.Query.Delete(key)
	}
	if p.Body != nil {
		e.Body = p.Body
	}
	return nil
}
