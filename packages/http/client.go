package http

import (
	"bytes"
	"context"
	"crypto/tls"
	"io"
	"log/slog"
	"net/http"
	"net/http/httputil"
	neturl "net/url"
	"strings"
	"time"

	"github.com/abdul-hamid-achik/quartz/packages/cookie"
	"github.com/abdul-hamid-achik/quartz/packages/core/errdef"
)

const (
	// DefaultTimeout is the default HTTP request timeout
	DefaultTimeout = 30 * time.Second
	// DefaultMaxRedirects is the maximum number of redirects to follow
	DefaultMaxRedirects = 10
	// DefaultMaxIdleConns is the maximum number of idle connections in the pool
	DefaultMaxIdleConns = 100
	// DefaultMaxIdleConnsPerHost is the maximum number of idle connections per host
	DefaultMaxIdleConnsPerHost = 10
	// DefaultIdleConnTimeout is how long idle connections stay in the pool
	DefaultIdleConnTimeout = 90 * time.Second
)

// Phase is a state of the execution loop.
type Phase int

const (
	PhasePrepared Phase = iota
	PhaseSent
	PhaseRedirect
	PhaseCompleted
	PhaseFailed
)

func (p Phase) String() string {
	switch p {
	case PhasePrepared:
		return "prepared"
	case PhaseSent:
		return "sent"
	case PhaseRedirect:
		return "redirect"
	case PhaseCompleted:
		return "completed"
	default:
		return "failed"
	}
}

// Hop records one request/response pair of an exchange.
type Hop struct {
	Method      string
	URL         string
	StatusCode  int
	Location    string
	RawRequest  []byte
	RawResponse []byte
	Duration    time.Duration
}

// Exchange is the outcome of a completed request, redirects included.
type Exchange struct {
	// Request is the last request sent.
	Request  *Request
	Response *Response
	// RawRequest is the last request as written to the wire.
	RawRequest []byte
	Hops       []Hop
	Duration   time.Duration
}

// Redirects is the number of redirects followed.
func (e *Exchange) Redirects() int {
	return len(e.Hops) - 1
}

type Client struct {
	httpClient     *http.Client
	timeout        time.Duration
	followRedirect bool
	maxRedirects   int
	validateSSL    bool
	proxyURL       string
	logger         *slog.Logger
}

type ClientOption func(*Client)

func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		timeout:        DefaultTimeout,
		followRedirect: true,
		maxRedirects:   DefaultMaxRedirects,
		validateSSL:    true,
		logger:         slog.Default(),
	}

	for _, opt := range opts {
		opt(c)
	}

	transport := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		MaxIdleConns:        DefaultMaxIdleConns,
		MaxIdleConnsPerHost: DefaultMaxIdleConnsPerHost,
		IdleConnTimeout:     DefaultIdleConnTimeout,
	}

	// Configure TLS verification
	if !c.validateSSL {
		transport.TLSClientConfig = &tls.Config{
			InsecureSkipVerify: true,
		}
	}

	// Configure proxy if specified
	if c.proxyURL != "" {
		proxyURL, err := neturl.Parse(c.proxyURL)
		if err == nil {
			transport.Proxy = http.ProxyURL(proxyURL)
		}
	}

	c.httpClient = &http.Client{
		Transport: transport,
		Timeout:   c.timeout,
		// Redirects are followed by Do.
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}

	return c
}

func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		c.timeout = d
	}
}

func WithFollowRedirects(follow bool) ClientOption {
	return func(c *Client) {
		c.followRedirect = follow
	}
}

func WithMaxRedirects(max int) ClientOption {
	return func(c *Client) {
		c.maxRedirects = max
	}
}

// WithValidateSSL enables or disables SSL certificate validation
func WithValidateSSL(validate bool) ClientOption {
	return func(c *Client) {
		c.validateSSL = validate
	}
}

// WithProxy sets the proxy URL for all requests
func WithProxy(proxyURL string) ClientOption {
	return func(c *Client) {
		c.proxyURL = proxyURL
	}
}

func WithLogger(l *slog.Logger) ClientOption {
	return func(c *Client) {
		c.logger = l
	}
}

// Do sends req and follows redirects. Set-Cookie headers of every hop are
// stored in jar, which may be nil. Non-2xx statuses are not errors.
func (c *Client) Do(ctx context.Context, req *Request, jar *cookie.Jar) (*Exchange, error) {
	if jar == nil {
		jar = cookie.NewJar()
	}
	if req.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, req.Timeout)
		defer cancel()
	}

	u, err := ValidateURL(req.URL)
	if err != nil {
		return nil, err
	}

	current := req.Clone()
	ex := &Exchange{}
	start := time.Now()
	c.logger.Debug("request "+PhasePrepared.String(), "method", current.Method, "url", u.String())

	for {
		hop, resp, err := c.send(ctx, current, u, jar)
		if err != nil {
			c.logger.Debug("request "+PhaseFailed.String(), "url", u.String(), "error", err)
			return nil, err
		}
		ex.Hops = append(ex.Hops, hop)
		ex.Request = current
		ex.Response = resp
		ex.RawRequest = hop.RawRequest

		if !c.followRedirect || !resp.IsRedirect() {
			break
		}
		next, ok := ResolveLocation(u, resp.Header("Location"))
		if !ok {
			c.logger.Debug("not following redirect", "status", resp.StatusCode, "location", resp.Header("Location"))
			break
		}
		if len(ex.Hops) > c.maxRedirects {
			c.logger.Debug("request "+PhaseFailed.String(), "redirects", len(ex.Hops)-1)
			return nil, errdef.New(errdef.ErrTooManyRedirects, "stopped after %d redirects", c.maxRedirects)
		}

		current = redirectRequest(current, resp.StatusCode, next)
		u = next
		c.logger.Debug("request "+PhaseRedirect.String(), "status", resp.StatusCode, "method", current.Method, "url", u.String())
	}

	ex.Duration = time.Since(start)
	c.logger.Debug("request "+PhaseCompleted.String(), "status", ex.Response.StatusCode, "hops", len(ex.Hops), "duration", ex.Duration)
	return ex, nil
}

// send performs one hop. The response body is drained before returning.
func (c *Client) send(ctx context.Context, r *Request, u *neturl.URL, jar *cookie.Jar) (Hop, *Response, error) {
	var body io.Reader
	if len(r.Body) > 0 {
		body = bytes.NewReader(r.Body)
	}
	httpReq, err := http.NewRequestWithContext(ctx, r.Method, u.String(), body)
	if err != nil {
		return Hop{}, nil, errdef.Wrap(errdef.ErrMalformedInput, err, "building %s request", r.Method)
	}
	for key, value := range r.Headers.All() {
		if key == "host" {
			httpReq.Host = value
			continue
		}
		httpReq.Header.Set(key, value)
	}
	if header := cookieHeader(httpReq.Header.Get("Cookie"), jar.HeaderFor(u.Host, r.Cookies...)); header != "" {
		httpReq.Header.Set("Cookie", header)
	}

	raw, err := httputil.DumpRequestOut(httpReq, true)
	if err != nil {
		return Hop{}, nil, errdef.Wrap(errdef.ErrMalformedInput, err, "encoding %s %s", r.Method, u)
	}

	start := time.Now()
	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return Hop{}, nil, errdef.Wrap(errdef.ErrTransport, err, "%s %s", r.Method, u)
	}
	defer httpResp.Body.Close()
	c.logger.Debug("request "+PhaseSent.String(), "method", r.Method, "url", u.String(), "status", httpResp.StatusCode)

	rawResp, err := httputil.DumpResponse(httpResp, false)
	if err != nil {
		return Hop{}, nil, errdef.Wrap(errdef.ErrTransport, err, "reading response headers from %s", u.Host)
	}
	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return Hop{}, nil, errdef.Wrap(errdef.ErrTransport, err, "reading response body from %s", u.Host)
	}
	duration := time.Since(start)

	for _, setCookie := range httpResp.Header.Values("Set-Cookie") {
		stored, err := jar.SetFromHeader(u.Host, setCookie)
		if err != nil {
			c.logger.Debug("ignoring Set-Cookie", "host", u.Host, "error", err)
			continue
		}
		c.logger.Debug("cookie stored", "domain", stored.Domain, "name", stored.Name)
	}

	resp := &Response{
		StatusCode: httpResp.StatusCode,
		Status:     httpResp.Status,
		Proto:      httpResp.Proto,
		Headers:    httpResp.Header,
		Body:       respBody,
		Raw:        rawResp,
		Duration:   duration,
	}
	hop := Hop{
		Method:      r.Method,
		URL:         u.String(),
		StatusCode:  resp.StatusCode,
		Location:    resp.Header("Location"),
		RawRequest:  raw,
		RawResponse: rawResp,
		Duration:    duration,
	}
	return hop, resp, nil
}

func cookieHeader(explicit, computed string) string {
	switch {
	case explicit == "":
		return computed
	case computed == "":
		return explicit
	default:
		return explicit + "; " + computed
	}
}

// redirectRequest derives the next hop's request. A 303 becomes a bodiless
// GET; every other status keeps method and body.
func redirectRequest(prev *Request, status int, next *neturl.URL) *Request {
	r := prev.Clone()
	r.URL = next.String()
	if status == http.StatusSeeOther && r.Method != http.MethodHead {
		r.Method = http.MethodGet
		r.Body = nil
		r.Headers.Delete("content-type")
		r.Headers.Delete("content-length")
	}
	return r
}

// ResolveLocation computes a redirect target. A Location starting with "/" is
// taken as the path and query on prev's scheme and authority; otherwise it must be an
// absolute http or https URL. ok is false when the redirect should not be
// followed.
func ResolveLocation(prev *neturl.URL, location string) (*neturl.URL, bool) {
	location = strings.TrimSpace(location)
	if location == "" {
		return nil, false
	}
	if strings.HasPrefix(location, "/") {
		if prev == nil || prev.Host == "" {
			return nil, false
		}
		// Parsed after the authority so "//x/y" stays a path on prev's host
		// and dot segments are kept as sent.
		next, err := neturl.Parse(prev.Scheme + "://" + prev.Host + location)
		if err != nil {
			return nil, false
		}
		return next, true
	}
	ref, err := neturl.Parse(location)
	if err != nil {
		return nil, false
	}
	if !ref.IsAbs() || ref.Host == "" || (ref.Scheme != "http" && ref.Scheme != "https") {
		return nil, false
	}
	return ref, true
}

// ValidateURL checks that a URL is well-formed and uses an allowed scheme
func ValidateURL(rawURL string) (*neturl.URL, error) {
	u, err := neturl.Parse(rawURL)
	if err != nil {
		return nil, errdef.Wrap(errdef.ErrMalformedInput, err, "invalid URL %q", rawURL)
	}

	// Check for valid scheme
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, errdef.New(errdef.ErrMalformedInput, "unsupported URL scheme: %s (only http and https are allowed)", u.Scheme)
	}

	// Check for valid host
	if u.Host == "" {
		return nil, errdef.New(errdef.ErrMalformedInput, "URL must have a host")
	}

	return u, nil
}
