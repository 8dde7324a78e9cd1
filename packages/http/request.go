package http

import (
	"time"

	"github.com/abdul-hamid-achik/quartz/packages/core/endpoint"
)

type Request struct {
	Method  string
	URL     string
	Headers endpoint.Pairs
	Body    []byte
	// Cookies are extra "name=value" pairs sent after the jar's cookies on
	// every hop.
	Cookies []string
	Timeout time.Duration
}

func NewRequest(method, requestURL string) *Request {
	return &Request{
		Method:  method,
		URL:     requestURL,
		Headers: endpoint.NewHeaders(),
	}
}

// FromEndpoint builds a request from a fully substituted endpoint. The
// endpoint is validated and its query merged into the URL.
func FromEndpoint(e *endpoint.Endpoint) (*Request, error) {
	if err := e.Validate(); err != nil {
		return nil, err
	}
	u, err := e.FullURL()
	if err != nil {
		return nil, err
	}
	r := NewRequest(e.EffectiveMethod(), u.String())
	r.Headers = e.Headers.Clone()
	if len(e.Body) > 0 {
		r.Body = append([]byte(nil), e.Body...)
	}
	return r, nil
}

func (r *Request) SetHeader(key, value string) *Request {
	r.Headers.Set(key, value)
	return r
}

func (r *Request) SetBody(body []byte) *Request {
	r.Body = body
	return r
}

func (r *Request) SetTimeout(d time.Duration) *Request {
	r.Timeout = d
	return r
}

func (r *Request) AddCookie(pair string) *Request {
	r.Cookies = append(r.Cookies, pair)
	return r
}

func (r *Request) Clone() *Request {
	out := *r
	out.Headers = r.Headers.Clone()
	if r.Body != nil {
		out.Body = append([]byte(nil), r.Body...)
	}
	out.Cookies = append([]string(nil), r.Cookies...)
	return &out
}
