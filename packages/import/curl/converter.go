// Package curl turns curl command lines into endpoints.
package curl

import (
	"bufio"
	"encoding/base64"
	"fmt"
	"net/url"
	"os"
	"regexp"
	"strings"

	"github.com/abdul-hamid-achik/quartz/packages/core/endpoint"
	"github.com/abdul-hamid-achik/quartz/packages/core/errdef"
)

// Converter converts curl commands to endpoints.
type Converter struct {
	prefix     endpoint.Handle
	splitQuery bool
}

// Option is a functional option for Converter.
type Option func(*Converter)

// WithPrefix places suggested handles below prefix.
func WithPrefix(prefix endpoint.Handle) Option {
	return func(c *Converter) {
		c.prefix = prefix
	}
}

// WithSplitQuery configures whether the URL query string is moved into the
// endpoint's query params.
func WithSplitQuery(split bool) Option {
	return func(c *Converter) {
		c.splitQuery = split
	}
}

// NewConverter creates a new curl converter.
func NewConverter(opts ...Option) *Converter {
	c := &Converter{
		splitQuery: true,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ParsedCurl represents a parsed curl command.
type ParsedCurl struct {
	Method    string
	URL       string
	Headers   []string
	Body      string
	BasicAuth string
	Cookie    string
	Get       bool
}

// Import is one converted command.
type Import struct {
	Handle   endpoint.Handle
	Endpoint *endpoint.Endpoint
}

// ConvertCommand converts a single curl command.
func (c *Converter) ConvertCommand(curlCmd string) (*Import, error) {
	parsed, err := c.Parse(curlCmd)
	if err != nil {
		return nil, err
	}
	e, err := c.ToEndpoint(parsed)
	if err != nil {
		return nil, err
	}
	h, err := c.SuggestHandle(parsed.URL)
	if err != nil {
		return nil, err
	}
	return &Import{Handle: h, Endpoint: e}, nil
}

// ConvertFile converts a file containing curl commands, one per line with
// backslash continuations.
func (c *Converter) ConvertFile(path string) ([]*Import, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, errdef.Wrap(errdef.ErrNotFound, err, "opening %s", path)
	}
	defer file.Close()

	var commands []string
	var currentCmd strings.Builder
	scanner := bufio.NewScanner(file)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())

		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		if strings.HasSuffix(line, "\\") {
			currentCmd.WriteString(strings.TrimSuffix(line, "\\"))
			currentCmd.WriteString(" ")
			continue
		}

		currentCmd.WriteString(line)
		commands = append(commands, currentCmd.String())
		currentCmd.Reset()
	}

	if err := scanner.Err(); err != nil {
		return nil, errdef.Persist(err, "reading %s", path)
	}

	if currentCmd.Len() > 0 {
		commands = append(commands, currentCmd.String())
	}

	imports := make([]*Import, 0, len(commands))
	for i, cmd := range commands {
		imp, err := c.ConvertCommand(cmd)
		if err != nil {
			return nil, fmt.Errorf("command %d: %w", i+1, err)
		}
		imports = append(imports, imp)
	}
	return imports, nil
}

// Parse parses a curl command string into a ParsedCurl struct.
func (c *Converter) Parse(curlCmd string) (*ParsedCurl, error) {
	parsed := &ParsedCurl{}

	curlCmd = strings.TrimSpace(curlCmd)
	if curlCmd == "curl" {
		return nil, errdef.New(errdef.ErrMalformedInput, "no URL specified")
	}
	curlCmd = strings.TrimPrefix(curlCmd, "curl ")

	tokens := tokenize(curlCmd)

	value := func(i int) (string, error) {
		if i+1 < len(tokens) {
			return tokens[i+1], nil
		}
		return "", errdef.New(errdef.ErrMalformedInput, "missing value for %s", tokens[i])
	}

	i := 0
	for i < len(tokens) {
		token := tokens[i]

		switch token {
		case "-X", "--request":
			v, err := value(i)
			if err != nil {
				return nil, err
			}
			parsed.Method = strings.ToUpper(v)
			i += 2

		case "-H", "--header":
			v, err := value(i)
			if err != nil {
				return nil, err
			}
			if strings.Contains(v, ":") {
				parsed.Headers = append(parsed.Headers, v)
			}
			i += 2

		case "-d", "--data", "--data-raw", "--data-binary", "--data-ascii":
			v, err := value(i)
			if err != nil {
				return nil, err
			}
			if parsed.Body != "" {
				parsed.Body += "&" + v
			} else {
				parsed.Body = v
			}
			i += 2

		case "-u", "--user":
			v, err := value(i)
			if err != nil {
				return nil, err
			}
			parsed.BasicAuth = v
			i += 2

		case "-A", "--user-agent":
			v, err := value(i)
			if err != nil {
				return nil, err
			}
			parsed.Headers = append(parsed.Headers, "User-Agent: "+v)
			i += 2

		case "-e", "--referer":
			v, err := value(i)
			if err != nil {
				return nil, err
			}
			parsed.Headers = append(parsed.Headers, "Referer: "+v)
			i += 2

		case "-b", "--cookie":
			v, err := value(i)
			if err != nil {
				return nil, err
			}
			parsed.Cookie = v
			i += 2

		case "--url":
			v, err := value(i)
			if err != nil {
				return nil, err
			}
			parsed.URL = v
			i += 2

		case "-I", "--head":
			parsed.Method = "HEAD"
			i++

		case "-G", "--get":
			parsed.Get = true
			i++

		case "-k", "--insecure", "-L", "--location", "-s", "--silent", "-v", "--verbose", "-i", "--include", "--compressed":
			i++

		default:
			switch {
			case strings.HasPrefix(token, "-"):
				// Unknown flags may carry a value.
				if i+1 < len(tokens) && !strings.HasPrefix(tokens[i+1], "-") && !isURL(tokens[i+1]) {
					i += 2
				} else {
					i++
				}
			default:
				if parsed.URL == "" && isURL(token) {
					parsed.URL = token
				}
				i++
			}
		}
	}

	if parsed.URL == "" {
		return nil, errdef.New(errdef.ErrMalformedInput, "no URL found in curl command")
	}

	if parsed.Method == "" {
		parsed.Method = "GET"
		if parsed.Body != "" && !parsed.Get {
			parsed.Method = "POST"
		}
	}

	return parsed, nil
}

// ToEndpoint converts a ParsedCurl to an endpoint.
func (c *Converter) ToEndpoint(parsed *ParsedCurl) (*endpoint.Endpoint, error) {
	e := endpoint.New()
	e.Method = parsed.Method
	e.URL = parsed.URL

	if c.splitQuery || parsed.Get {
		base, query, found := strings.Cut(parsed.URL, "?")
		if found {
			e.URL = base
			if err := addQuery(&e.Query, query); err != nil {
				return nil, err
			}
		}
	}

	for _, line := range parsed.Headers {
		if err := e.Headers.SetLine(line); err != nil {
			return nil, err
		}
	}

	if parsed.BasicAuth != "" {
		token := base64.StdEncoding.EncodeToString([]byte(parsed.BasicAuth))
		e.Headers.Set("Authorization", "Basic "+token)
	}
	if parsed.Cookie != "" {
		e.Headers.Set("Cookie", parsed.Cookie)
	}

	if parsed.Body != "" {
		if parsed.Get {
			if err := addQuery(&e.Query, parsed.Body); err != nil {
				return nil, err
			}
		} else {
			e.Body = []byte(parsed.Body)
			if !e.Headers.Has("Content-Type") {
				e.Headers.Set("Content-Type", "application/x-www-form-urlencoded")
			}
		}
	}

	if err := e.Validate(); err != nil {
		return nil, err
	}
	return e, nil
}

// SuggestHandle derives a handle from the URL path, falling back to the host
// for URLs without a path.
func (c *Converter) SuggestHandle(rawURL string) (endpoint.Handle, error) {
	rest := rawURL
	if _, after, found := strings.Cut(rest, "://"); found {
		rest = after
	}
	if i := strings.IndexAny(rest, "?#"); i >= 0 {
		rest = rest[:i]
	}
	host, path, _ := strings.Cut(rest, "/")

	var segments []string
	for _, part := range strings.Split(path, "/") {
		if name := sanitizeName(part); name != "" {
			segments = append(segments, name)
		}
	}
	if len(segments) == 0 {
		if name := sanitizeName(host); name != "" {
			segments = append(segments, name)
		} else {
			segments = append(segments, "root")
		}
	}
	return endpoint.NewHandle(append(c.prefix.Segments(), segments...)...)
}

func addQuery(q *endpoint.Pairs, raw string) error {
	for _, part := range strings.Split(raw, "&") {
		if part == "" {
			continue
		}
		key, value, _ := strings.Cut(part, "=")
		if k, err := url.QueryUnescape(key); err == nil {
			key = k
		}
		if v, err := url.QueryUnescape(value); err == nil {
			value = v
		}
		if strings.TrimSpace(key) == "" {
			return errdef.New(errdef.ErrMalformedInput, "invalid query param %q", part)
		}
		q.Set(key, value)
	}
	return nil
}

// tokenize splits a curl command into tokens, respecting quotes.
func tokenize(cmd string) []string {
	var tokens []string
	var current strings.Builder
	inSingleQuote := false
	inDoubleQuote := false
	escaped := false

	for _, r := range cmd {
		if escaped {
			current.WriteRune(r)
			escaped = false
			continue
		}

		switch r {
		case '\\':
			if inSingleQuote {
				current.WriteRune(r)
			} else {
				escaped = true
			}
		case '\'':
			if !inDoubleQuote {
				inSingleQuote = !inSingleQuote
			} else {
				current.WriteRune(r)
			}
		case '"':
			if !inSingleQuote {
				inDoubleQuote = !inDoubleQuote
			} else {
				current.WriteRune(r)
			}
		case ' ', '\t', '\n':
			if inSingleQuote || inDoubleQuote {
				current.WriteRune(r)
			} else if current.Len() > 0 {
				tokens = append(tokens, current.String())
				current.Reset()
			}
		default:
			current.WriteRune(r)
		}
	}

	if current.Len() > 0 {
		tokens = append(tokens, current.String())
	}

	return tokens
}

// isURL checks if a string looks like a URL.
func isURL(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://") || strings.HasPrefix(s, "{{")
}

var nonNameChars = regexp.MustCompile(`[^a-zA-Z0-9_.-]+`)

// sanitizeName makes a path part usable as a handle segment.
func sanitizeName(name string) string {
	result := nonNameChars.ReplaceAllString(name, "_")
	result = strings.Trim(result, "_.")

	for strings.Contains(result, "__") {
		result = strings.ReplaceAll(result, "__", "_")
	}

	if result == endpoint.BodyFile || result == endpoint.ConfigFile {
		result = "_" + result
	}
	return result
}
