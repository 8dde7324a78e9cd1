package cookie

import (
	"iter"
	"net"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/abdul-hamid-achik/quartz/packages/core/errdef"
)

// Cookie is one stored cookie.
type Cookie struct {
	Domain   string
	Name     string
	Value    string
	Path     string
	Secure   bool
	HTTPOnly bool
	// Expires is zero for session cookies.
	Expires time.Time
}

// Validate rejects cookies the jar file cannot hold: an empty name, a domain
// read back as a comment, or tabs and line breaks in any text field.
func (c Cookie) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return errdef.New(errdef.ErrMalformedInput, "cookie name is empty")
	}
	if strings.HasPrefix(c.Domain, "#") {
		return errdef.New(errdef.ErrMalformedInput, "cookie domain %q starts with #", c.Domain)
	}
	for field, value := range map[string]string{"domain": c.Domain, "name": c.Name, "value": c.Value, "path": c.Path} {
		if strings.ContainsAny(value, "\t\r\n") {
			return errdef.New(errdef.ErrMalformedInput, "cookie %s %q contains a tab or line break", field, value)
		}
	}
	return nil
}

type key struct {
	domain string
	name   string
}

// Jar is a set of cookies with unique (domain, name) pairs.
type Jar struct {
	cookies map[key]Cookie
}

// NewJar returns an empty jar.
func NewJar() *Jar {
	return &Jar{cookies: make(map[key]Cookie)}
}

func normalizeDomain(domain string) string {
	return strings.TrimPrefix(strings.ToLower(strings.TrimSpace(domain)), ".")
}

// Set stores c, replacing any cookie with the same domain and name.
func (j *Jar) Set(c Cookie) {
	c.Domain = normalizeDomain(c.Domain)
	if c.Path == "" {
		c.Path = "/"
	}
	j.cookies[key{c.Domain, c.Name}] = c
}

// Get returns the cookie stored under domain and name.
func (j *Jar) Get(domain, name string) (Cookie, bool) {
	c, ok := j.cookies[key{normalizeDomain(domain), name}]
	return c, ok
}

// Delete removes a cookie, reporting whether it was present.
func (j *Jar) Delete(domain, name string) bool {
	k := key{normalizeDomain(domain), name}
	_, ok := j.cookies[k]
	delete(j.cookies, k)
	return ok
}

// Len is the number of cookies held.
func (j *Jar) Len() int {
	return len(j.cookies)
}

// All yields cookies sorted by domain, then name.
func (j *Jar) All() iter.Seq[Cookie] {
	return func(yield func(Cookie) bool) {
		for _, c := range j.sorted() {
			if !yield(c) {
				return
			}
		}
	}
}

func (j *Jar) sorted() []Cookie {
	out := make([]Cookie, 0, len(j.cookies))
	for _, c := range j.cookies {
		out = append(out, c)
	}
	sort.Slice(out, func(a, b int) bool {
		if out[a].Domain != out[b].Domain {
			return out[a].Domain < out[b].Domain
		}
		return out[a].Name < out[b].Name
	})
	return out
}

// Merge copies every cookie of other into j, other winning on collisions.
func (j *Jar) Merge(other *Jar) {
	if other == nil {
		return
	}
	for _, c := range other.cookies {
		j.Set(c)
	}
}

// SetFromHeader stores the cookie described by a Set-Cookie header value
// received from host. A Domain attribute takes precedence over host.
func (j *Jar) SetFromHeader(host, header string) (Cookie, error) {
	parsed, err := http.ParseSetCookie(header)
	if err != nil {
		return Cookie{}, errdef.Wrap(errdef.ErrMalformedInput, err, "parsing Set-Cookie from %s", host)
	}
	c := Cookie{
		Domain:   parsed.Domain,
		Name:     parsed.Name,
		Value:    parsed.Value,
		Path:     parsed.Path,
		Secure:   parsed.Secure,
		HTTPOnly: parsed.HttpOnly,
	}
	if c.Domain == "" {
		c.Domain = hostname(host)
	}
	if err := c.Validate(); err != nil {
		return Cookie{}, err
	}
	switch {
	case parsed.MaxAge > 0:
		c.Expires = time.Now().Add(time.Duration(parsed.MaxAge) * time.Second).Truncate(time.Second)
	case !parsed.Expires.IsZero():
		c.Expires = parsed.Expires.Truncate(time.Second)
	}
	j.Set(c)
	stored, _ := j.Get(c.Domain, c.Name)
	return stored, nil
}

// hostname strips a port from host.
func hostname(host string) string {
	if h, _, err := net.SplitHostPort(host); err == nil {
		return h
	}
	return strings.Trim(host, "[]")
}

// Matches reports whether the cookie would be sent to host: the cookie's
// domain is host itself or one of its parent domains.
func (c Cookie) Matches(host string) bool {
	host = normalizeDomain(hostname(host))
	return host == c.Domain || strings.HasSuffix(host, "."+c.Domain)
}

// Expired reports whether the cookie has an expiry before now.
func (c Cookie) Expired(now time.Time) bool {
	return !c.Expires.IsZero() && c.Expires.Before(now)
}

// Pair renders the cookie as it appears in a Cookie header.
func (c Cookie) Pair() string {
	return c.Name + "=" + c.Value
}

// HeaderFor builds the Cookie header value for host from matching, unexpired
// cookies, then appends extras verbatim.
func (j *Jar) HeaderFor(host string, extras ...string) string {
	now := time.Now()
	var parts []string
	for _, c := range j.sorted() {
		if c.Matches(host) && !c.Expired(now) {
			parts = append(parts, c.Pair())
		}
	}
	for _, extra := range extras {
		if extra = strings.TrimSpace(extra); extra != "" {
			parts = append(parts, extra)
		}
	}
	return strings.Join(parts, "; ")
}

// Pairs renders every cookie as "name=value", regardless of domain.
func (j *Jar) Pairs() []string {
	var out []string
	for _, c := range j.sorted() {
		out = append(out, c.Pair())
	}
	return out
}
