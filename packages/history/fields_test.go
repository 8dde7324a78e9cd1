package history

import (
	"errors"
	"testing"
	"time"

	"github.com/abdul-hamid-achik/quartz/packages/core/errdef"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleEntry() *Entry {
	return &Entry{
		ID:        "5d1a1f53-0000-4000-8000-000000000000",
		Timestamp: time.Date(2024, 3, 1, 9, 5, 7, 0, time.UTC).UnixMicro(),
		Handle:    []string{"api", "users"},
		Duration:  1234567 * time.Microsecond,
		Request: RequestSnapshot{
			Method:  "POST",
			URL:     "https://example.com/users",
			Headers: []Header{{"content-type", "application/json"}, {"user-agent", "quartz/0.1"}},
			Body:    []byte(`{"name":"q"}`),
			Context: map[string]string{"HOST": "example.com", "A": "1"},
			Raw:     []byte("POST /users HTTP/1.1\r\nHost: example.com\r\n\r\n"),
		},
		Response: ResponseSnapshot{
			Status:     201,
			StatusText: "Created",
			Headers:    map[string][]string{"Content-Type": {"application/json"}, "Set-Cookie": {"a=1", "b=2"}},
			Body:       []byte(`{"data":[{"id":7,"tags":["x"]}]}`),
			Size:       33,
			Raw:        []byte("HTTP/1.1 201 Created\r\n\r\n"),
		},
		Hops: []Hop{
			{Method: "POST", URL: "https://example.com/old", Status: 308, Location: "/users"},
			{Method: "POST", URL: "https://example.com/users", Status: 201},
		},
	}
}

func TestField(t *testing.T) {
	e := sampleEntry()

	tests := []struct {
		key      string
		expected string
	}{
		{"id", "5d1a1f53-0000-4000-8000-000000000000"},
		{"handle", "api/users"},
		{"duration", "1.235s"},
		{"request.method", "POST"},
		{"request.url", "https://example.com/users"},
		{"request.headers", "content-type: application/json\nuser-agent: quartz/0.1"},
		{"request.headers.User-Agent", "quartz/0.1"},
		{"request.body", `{"name":"q"}`},
		{"request.context", "A=1\nHOST=example.com"},
		{"request.context.HOST", "example.com"},
		{"response.status", "201"},
		{"response.status_text", "Created"},
		{"response.headers", "Content-Type: application/json\nSet-Cookie: a=1\nSet-Cookie: b=2"},
		{"response.headers.set-cookie", "a=1, b=2"},
		{"response.size", "33"},
		{"response.raw", "HTTP/1.1 201 Created\r\n\r\n" + `{"data":[{"id":7,"tags":["x"]}]}`},
		{"response.json.data.0.id", "7"},
		{"response.json.data.0.tags", `["x"]`},
		{"hops", "308 POST https://example.com/old -> /users\n201 POST https://example.com/users"},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			got, err := e.Field(tt.key)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestFieldErrors(t *testing.T) {
	e := sampleEntry()

	_, err := e.Field("response.colour")
	assert.True(t, errors.Is(err, errdef.ErrUnknownField))
	assert.True(t, errdef.Is(err, errdef.ErrNotFound))
	assert.Contains(t, err.Error(), "response.colour")

	_, err = e.Field("request.headers.")
	assert.True(t, errors.Is(err, errdef.ErrUnknownField))

	_, err = e.Field("response.headers.x-missing")
	assert.True(t, errdef.Is(err, errdef.ErrNotFound))
	assert.False(t, errors.Is(err, errdef.ErrUnknownField))

	_, err = e.Field("response.json.data.9")
	assert.True(t, errdef.Is(err, errdef.ErrNotFound))

	e.Response.Body = []byte("<html>")
	_, err = e.Field("response.json.data")
	assert.True(t, errdef.Is(err, errdef.ErrMalformedInput))
}

func TestFieldNamesAreAccepted(t *testing.T) {
	e := sampleEntry()
	for _, name := range FieldNames() {
		if _, ok := fields[name]; !ok {
			continue
		}
		_, err := e.Field(name)
		assert.NoError(t, err, name)
	}
	assert.Contains(t, FieldNames(), "response.json.<path>")
}

func TestFormatTime(t *testing.T) {
	e := sampleEntry()
	e.Timestamp = time.Date(2024, 3, 1, 9, 5, 7, 0, time.Local).UnixMicro()

	assert.Equal(t, "2024-03-01 09:05:07", e.FormatTime("%Y-%m-%d %H:%M:%S"))
	assert.Equal(t, "01/03/24", e.FormatTime("%d/%m/%y"))
}
