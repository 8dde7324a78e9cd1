package http

import (
	"net/http"
	"strconv"
	"strings"
	"time"
)

type Response struct {
	StatusCode int
	Status     string
	Proto      string
	Headers    http.Header
	Body       []byte
	// Raw is the status line and header block as received, before the body.
	Raw      []byte
	Duration time.Duration
}

func (r *Response) BodyString() string {
	return string(r.Body)
}

// StatusText is the reason phrase, e.g. "Not Found".
func (r *Response) StatusText() string {
	return strings.TrimPrefix(r.Status, strconv.Itoa(r.StatusCode)+" ")
}

func (r *Response) Header(key string) string {
	return r.Headers.Get(key)
}

func (r *Response) ContentType() string {
	return r.Header("Content-Type")
}

func (r *Response) IsJSON() bool {
	ct := r.ContentType()
	return strings.Contains(ct, "application/json") || strings.HasSuffix(strings.Split(ct, ";")[0], "+json")
}

func (r *Response) Size() int {
	return len(r.Body)
}

func (r *Response) IsSuccess() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

func (r *Response) IsRedirect() bool {
	return r.StatusCode >= 300 && r.StatusCode < 400
}

func (r *Response) IsClientError() bool {
	return r.StatusCode >= 400 && r.StatusCode < 500
}

func (r *Response) IsServerError() bool {
	return r.StatusCode >= 500
}

func (r *Response) DurationMs() int64 {
	return r.Duration.Milliseconds()
}
