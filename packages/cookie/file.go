package cookie

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/abdul-hamid-achik/quartz/packages/core/atomicfile"
	"github.com/abdul-hamid-achik/quartz/packages/core/errdef"
)

const httpOnlyPrefix = "#HttpOnly_"

// Read loads a jar file. A missing file yields an empty jar; callers that
// require the file to exist check first.
func Read(path string) (*Jar, error) {
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return NewJar(), nil
	}
	if err != nil {
		return nil, errdef.Persist(err, "opening cookie jar %s", path)
	}
	defer f.Close()

	jar, err := ReadFrom(f)
	if err != nil {
		return nil, fmt.Errorf("reading cookie jar %s: %w", path, err)
	}
	return jar, nil
}

// ReadFrom parses jar lines from r.
func ReadFrom(r io.Reader) (*Jar, error) {
	jar := NewJar()
	scanner := bufio.NewScanner(r)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := strings.TrimRight(scanner.Text(), "\r")

		httpOnly := false
		if strings.HasPrefix(line, httpOnlyPrefix) {
			line = strings.TrimPrefix(line, httpOnlyPrefix)
			httpOnly = true
		}
		if strings.TrimSpace(line) == "" || strings.HasPrefix(line, "#") {
			continue
		}

		c, err := parseLine(line)
		if err == nil {
			err = c.Validate()
		}
		if err != nil {
			return nil, errdef.Wrap(errdef.ErrMalformedInput, err, "line %d", lineNum)
		}
		c.HTTPOnly = httpOnly
		jar.Set(c)
	}
	if err := scanner.Err(); err != nil {
		return nil, errdef.Persist(err, "scanning cookie jar")
	}
	return jar, nil
}

func parseLine(line string) (Cookie, error) {
	fields := strings.Split(line, "\t")
	switch len(fields) {
	case 3:
		return Cookie{Domain: fields[0], Name: fields[1], Value: fields[2], Path: "/"}, nil
	case 7:
		c := Cookie{
			Domain: fields[0],
			Path:   fields[2],
			Secure: strings.EqualFold(fields[3], "TRUE"),
			Name:   fields[5],
			Value:  fields[6],
		}
		expires, err := strconv.ParseInt(fields[4], 10, 64)
		if err != nil {
			return Cookie{}, fmt.Errorf("invalid expiry %q", fields[4])
		}
		if expires > 0 {
			c.Expires = time.Unix(expires, 0)
		}
		return c, nil
	default:
		return Cookie{}, fmt.Errorf("expected 3 or 7 tab separated fields, got %d", len(fields))
	}
}

// WriteTo writes the jar in Netscape format, sorted by domain and name.
func (j *Jar) WriteTo(w io.Writer) (int64, error) {
	var buf bytes.Buffer
	buf.WriteString("# Netscape HTTP Cookie File\n")
	for _, c := range j.sorted() {
		if err := c.Validate(); err != nil {
			return 0, err
		}
		domain := c.Domain
		if c.HTTPOnly {
			domain = httpOnlyPrefix + domain
		}
		var expires int64
		if !c.Expires.IsZero() {
			expires = c.Expires.Unix()
		}
		fmt.Fprintf(&buf, "%s\t%s\t%s\t%s\t%d\t%s\t%s\n",
			domain, "TRUE", c.Path, boolField(c.Secure), expires, c.Name, c.Value)
	}
	n, err := w.Write(buf.Bytes())
	return int64(n), err
}

func boolField(b bool) string {
	if b {
		return "TRUE"
	}
	return "FALSE"
}

// Write persists the jar atomically at path.
func (j *Jar) Write(path string) error {
	var buf bytes.Buffer
	if _, err := j.WriteTo(&buf); err != nil {
		if errdef.Is(err, errdef.ErrMalformedInput) {
			return err
		}
		return errdef.Persist(err, "encoding cookie jar")
	}
	if err := atomicfile.WriteFile(path, buf.Bytes(), 0600); err != nil {
		return errdef.Persist(err, "writing cookie jar %s", path)
	}
	return nil
}
