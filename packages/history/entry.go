package history

import (
	"maps"
	"slices"
	"strings"
	"time"

	"github.com/abdul-hamid-achik/quartz/packages/core/endpoint"
	"github.com/abdul-hamid-achik/quartz/packages/core/env"
	"github.com/abdul-hamid-achik/quartz/packages/http"
	"github.com/ncruces/go-strftime"
)

// Header is one request header as sent.
type Header struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// RequestSnapshot is the request as it left the client on the final hop.
type RequestSnapshot struct {
	Method  string   `json:"method"`
	URL     string   `json:"url"`
	Headers []Header `json:"headers,omitempty"`
	Body    []byte   `json:"body,omitempty"`
	// Context holds the variables the request was resolved with.
	Context map[string]string `json:"context,omitempty"`
	Raw     []byte            `json:"raw,omitempty"`
}

// ResponseSnapshot is the final response.
type ResponseSnapshot struct {
	Status     int                 `json:"status"`
	StatusText string              `json:"status_text"`
	Headers    map[string][]string `json:"headers,omitempty"`
	Body       []byte              `json:"body,omitempty"`
	Size       int                 `json:"size"`
	Raw        []byte              `json:"raw,omitempty"`
}

// Hop is a summary of one request/response pair in a redirect chain.
type Hop struct {
	Method   string `json:"method"`
	URL      string `json:"url"`
	Status   int    `json:"status"`
	Location string `json:"location,omitempty"`
}

// Entry is one executed request.
type Entry struct {
	ID string `json:"id"`
	// Timestamp is the entry key in microseconds since the Unix epoch.
	Timestamp int64            `json:"timestamp"`
	Handle    []string         `json:"handle"`
	Duration  time.Duration    `json:"duration"`
	Request   RequestSnapshot  `json:"request"`
	Response  ResponseSnapshot `json:"response"`
	Hops      []Hop            `json:"hops,omitempty"`
}

// FromExchange builds an entry for a completed exchange. The timestamp and id
// are assigned by Store.Write.
func FromExchange(h endpoint.Handle, ex *http.Exchange, vars env.Variables) *Entry {
	e := &Entry{
		Handle:   h.Segments(),
		Duration: ex.Duration,
		Request: RequestSnapshot{
			Method: ex.Request.Method,
			URL:    ex.Request.URL,
			Body:   ex.Request.Body,
			Raw:    ex.RawRequest,
		},
		Response: ResponseSnapshot{
			Status:     ex.Response.StatusCode,
			StatusText: ex.Response.StatusText(),
			Headers:    ex.Response.Headers,
			Body:       ex.Response.Body,
			Size:       ex.Response.Size(),
			Raw:        ex.Response.Raw,
		},
	}
	for name, value := range ex.Request.Headers.All() {
		e.Request.Headers = append(e.Request.Headers, Header{Name: name, Value: value})
	}
	if len(vars) > 0 {
		e.Request.Context = maps.Clone(vars)
	}
	for _, hop := range ex.Hops {
		e.Hops = append(e.Hops, Hop{Method: hop.Method, URL: hop.URL, Status: hop.StatusCode, Location: hop.Location})
	}
	return e
}

// Time is the entry timestamp.
func (e *Entry) Time() time.Time {
	return time.UnixMicro(e.Timestamp)
}

// FormatTime renders the timestamp with a strftime layout such as
// "%Y-%m-%d %H:%M:%S".
func (e *Entry) FormatTime(layout string) string {
	return strftime.Format(layout, e.Time())
}

// HandleString joins the handle segments.
func (e *Entry) HandleString() string {
	return strings.Join(e.Handle, "/")
}

// ContextKeys returns the resolved variable names sorted.
func (e *Entry) ContextKeys() []string {
	return slices.Sorted(maps.Keys(e.Request.Context))
}
