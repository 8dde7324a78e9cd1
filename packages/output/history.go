package output

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/abdul-hamid-achik/quartz/packages/core/errdef"
	"github.com/abdul-hamid-achik/quartz/packages/history"
	"github.com/fatih/color"
	"gopkg.in/yaml.v3"
)

// Format selects how history entries are rendered.
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// ParseFormat validates a format name. Empty means text.
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(s)) {
	case "", FormatText:
		return FormatText, nil
	case FormatJSON:
		return FormatJSON, nil
	case FormatYAML, "yml":
		return FormatYAML, nil
	}
	return "", errdef.New(errdef.ErrMalformedInput, "unknown output format %q (want text, json or yaml)", s)
}

// EntryView is the display shape of a history entry. Bodies are shown as text
// when they are valid UTF-8.
type EntryView struct {
	ID       string            `json:"id" yaml:"id"`
	Time     string            `json:"time" yaml:"time"`
	Handle   string            `json:"handle" yaml:"handle"`
	Duration string            `json:"duration" yaml:"duration"`
	Request  RequestView       `json:"request" yaml:"request"`
	Response ResponseView      `json:"response" yaml:"response"`
	Hops     []history.Hop     `json:"hops,omitempty" yaml:"hops,omitempty"`
	Fields   map[string]string `json:"fields,omitempty" yaml:"fields,omitempty"`
}

type RequestView struct {
	Method  string            `json:"method" yaml:"method"`
	URL     string            `json:"url" yaml:"url"`
	Headers []history.Header  `json:"headers,omitempty" yaml:"headers,omitempty"`
	Body    string            `json:"body,omitempty" yaml:"body,omitempty"`
	Context map[string]string `json:"context,omitempty" yaml:"context,omitempty"`
}

type ResponseView struct {
	Status     int                 `json:"status" yaml:"status"`
	StatusText string              `json:"status_text" yaml:"status_text"`
	Headers    map[string][]string `json:"headers,omitempty" yaml:"headers,omitempty"`
	Body       string              `json:"body,omitempty" yaml:"body,omitempty"`
	Size       int                 `json:"size" yaml:"size"`
}

// NewEntryView builds the display shape of e, formatting the time with a
// strftime layout.
func NewEntryView(e *history.Entry, dateFormat string) EntryView {
	return EntryView{
		ID:       e.ID,
		Time:     e.FormatTime(dateFormat),
		Handle:   e.HandleString(),
		Duration: e.Duration.String(),
		Request: RequestView{
			Method:  e.Request.Method,
			URL:     e.Request.URL,
			Headers: e.Request.Headers,
			Body:    bodyText(e.Request.Body),
			Context: e.Request.Context,
		},
		Response: ResponseView{
			Status:     e.Response.Status,
			StatusText: e.Response.StatusText,
			Headers:    e.Response.Headers,
			Body:       bodyText(e.Response.Body),
			Size:       e.Response.Size,
		},
		Hops: e.Hops,
	}
}

func bodyText(b []byte) string {
	if utf8.Valid(b) {
		return string(b)
	}
	return fmt.Sprintf("<%d bytes of binary data>", len(b))
}

// HistoryWriter renders entries in one format.
type HistoryWriter struct {
	writer     io.Writer
	format     Format
	dateFormat string
	fields     []string
	onFieldErr func(field string, err error)
	views      []EntryView
}

type HistoryOption func(*HistoryWriter)

// WithDateFormat sets the strftime layout used for entry times.
func WithDateFormat(layout string) HistoryOption {
	return func(h *HistoryWriter) {
		h.dateFormat = layout
	}
}

// WithFields limits output to the named entry fields.
func WithFields(fields ...string) HistoryOption {
	return func(h *HistoryWriter) {
		h.fields = fields
	}
}

// WithFieldErrors receives fields that could not be projected. Such fields
// are skipped and the remaining fields are still written.
func WithFieldErrors(fn func(field string, err error)) HistoryOption {
	return func(h *HistoryWriter) {
		h.onFieldErr = fn
	}
}

func NewHistoryWriter(w io.Writer, format Format, opts ...HistoryOption) *HistoryWriter {
	h := &HistoryWriter{
		writer:     w,
		format:     format,
		dateFormat: "%Y-%m-%d %H:%M:%S",
		onFieldErr: func(string, error) {},
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Write renders one entry. Text is written immediately; json and yaml are
// collected until Flush.
func (h *HistoryWriter) Write(e *history.Entry) error {
	if len(h.fields) > 0 {
		return h.writeFields(e)
	}
	if h.format == FormatText {
		h.writeLine(e)
		return nil
	}
	h.views = append(h.views, NewEntryView(e, h.dateFormat))
	return nil
}

func (h *HistoryWriter) writeFields(e *history.Entry) error {
	values := make(map[string]string, len(h.fields))
	for _, name := range h.fields {
		v, err := e.Field(name)
		if err != nil {
			h.onFieldErr(name, err)
			continue
		}
		values[name] = v
		if h.format == FormatText {
			fmt.Fprintln(h.writer, v)
		}
	}
	if h.format == FormatText {
		return nil
	}
	h.views = append(h.views, EntryView{ID: e.ID, Fields: values})
	return nil
}

func (h *HistoryWriter) writeLine(e *history.Entry) {
	faint := color.New(color.Faint).SprintFunc()
	bold := color.New(color.Bold).SprintFunc()
	fmt.Fprintf(h.writer, "%s  %s %s  %s  %s  %s\n",
		faint(e.FormatTime(h.dateFormat)),
		Method(e.Request.Method),
		e.Request.URL,
		Status(e.Response.Status, e.Response.StatusText),
		faint(e.Duration.Round(time.Millisecond).String()),
		bold(e.HandleString()),
	)
}

// Flush writes collected json or yaml documents. A single entry is written as
// an object, several as an array.
func (h *HistoryWriter) Flush() error {
	if h.format == FormatText {
		return nil
	}
	var doc any = h.views
	switch len(h.views) {
	case 0:
		doc = []EntryView{}
	case 1:
		doc = h.views[0]
	}
	if len(h.fields) > 0 && len(h.views) > 0 {
		fields := make([]map[string]string, 0, len(h.views))
		for _, v := range h.views {
			fields = append(fields, v.Fields)
		}
		doc = fields
		if len(fields) == 1 {
			doc = fields[0]
		}
	}
	defer func() { h.views = nil }()

	switch h.format {
	case FormatJSON:
		enc := json.NewEncoder(h.writer)
		enc.SetIndent("", "  ")
		return enc.Encode(doc)
	case FormatYAML:
		enc := yaml.NewEncoder(h.writer)
		enc.SetIndent(2)
		if err := enc.Encode(doc); err != nil {
			return err
		}
		return enc.Close()
	}
	return nil
}
