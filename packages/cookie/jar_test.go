package cookie

import (
	"bytes"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/abdul-hamid-achik/quartz/packages/core/errdef"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestSetOverwrites(t *testing.T) {
	jar := NewJar()
	jar.Set(Cookie{Domain: "example.com", Name: "session", Value: "first"})
	jar.Set(Cookie{Domain: ".Example.com", Name: "session", Value: "second"})

	require.Equal(t, 1, jar.Len())
	c, ok := jar.Get("example.com", "session")
	require.True(t, ok)
	assert.Equal(t, "second", c.Value)
	assert.Equal(t, "/", c.Path)
}

func TestSetFromHeader(t *testing.T) {
	tests := []struct {
		name       string
		host       string
		header     string
		wantDomain string
		wantValue  string
		check      func(t *testing.T, c Cookie)
	}{
		{
			name:       "host used when no domain attribute",
			host:       "api.example.com:8443",
			header:     "session=abc; Path=/; HttpOnly",
			wantDomain: "api.example.com",
			wantValue:  "abc",
			check: func(t *testing.T, c Cookie) {
				assert.True(t, c.HTTPOnly)
				assert.True(t, c.Expires.IsZero())
			},
		},
		{
			name:       "domain attribute wins",
			host:       "api.example.com",
			header:     "theme=dark; Domain=.example.com; Secure",
			wantDomain: "example.com",
			wantValue:  "dark",
			check: func(t *testing.T, c Cookie) {
				assert.True(t, c.Secure)
			},
		},
		{
			name:       "max-age sets expiry",
			host:       "example.com",
			header:     "tmp=1; Max-Age=60",
			wantDomain: "example.com",
			wantValue:  "1",
			check: func(t *testing.T, c Cookie) {
				assert.WithinDuration(t, time.Now().Add(time.Minute), c.Expires, 2*time.Second)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			jar := NewJar()
			c, err := jar.SetFromHeader(tt.host, tt.header)
			require.NoError(t, err)
			assert.Equal(t, tt.wantDomain, c.Domain)
			assert.Equal(t, tt.wantValue, c.Value)
			stored, ok := jar.Get(tt.wantDomain, c.Name)
			require.True(t, ok)
			assert.Equal(t, c, stored)
			tt.check(t, c)
		})
	}

	_, err := NewJar().SetFromHeader("example.com", "=novalue")
	assert.True(t, errdef.Is(err, errdef.ErrMalformedInput))
}

func TestHeaderFor(t *testing.T) {
	jar := NewJar()
	jar.Set(Cookie{Domain: "example.com", Name: "b", Value: "2"})
	jar.Set(Cookie{Domain: "example.com", Name: "a", Value: "1"})
	jar.Set(Cookie{Domain: "api.example.com", Name: "c", Value: "3"})
	jar.Set(Cookie{Domain: "other.com", Name: "d", Value: "4"})
	jar.Set(Cookie{Domain: "example.com", Name: "old", Value: "x", Expires: time.Now().Add(-time.Hour)})

	assert.Equal(t, "c=3; a=1; b=2", jar.HeaderFor("api.example.com"))
	assert.Equal(t, "a=1; b=2; extra=yes", jar.HeaderFor("example.com:443", "extra=yes", " "))
	assert.Equal(t, "", jar.HeaderFor("notexample.com"))
}

func TestMerge(t *testing.T) {
	persisted := NewJar()
	persisted.Set(Cookie{Domain: "example.com", Name: "keep", Value: "1"})
	persisted.Set(Cookie{Domain: "example.com", Name: "session", Value: "old"})

	run := NewJar()
	run.Set(Cookie{Domain: "example.com", Name: "session", Value: "new"})

	persisted.Merge(run)
	assert.Equal(t, []string{"keep=1", "session=new"}, persisted.Pairs())
	assert.True(t, persisted.Delete("example.com", "keep"))
	assert.False(t, persisted.Delete("example.com", "keep"))
}

func TestReadFromFormats(t *testing.T) {
	input := strings.Join([]string{
		"# Netscape HTTP Cookie File",
		"",
		"example.com\tTRUE\t/\tTRUE\t1700000000\tsession\tabc",
		"#HttpOnly_.example.com\tTRUE\t/api\tFALSE\t0\ttoken\txyz",
		"short.com\tname\tvalue",
	}, "\n")

	jar, err := ReadFrom(strings.NewReader(input))
	require.NoError(t, err)
	require.Equal(t, 3, jar.Len())

	c, _ := jar.Get("example.com", "session")
	assert.True(t, c.Secure)
	assert.Equal(t, int64(1700000000), c.Expires.Unix())

	c, _ = jar.Get("example.com", "token")
	assert.True(t, c.HTTPOnly)
	assert.Equal(t, "/api", c.Path)

	c, _ = jar.Get("short.com", "name")
	assert.Equal(t, "value", c.Value)

	_, err = ReadFrom(strings.NewReader("only\ttwo"))
	assert.True(t, errdef.Is(err, errdef.ErrMalformedInput))
}

func TestWriteAndReadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "env", "cookies")

	jar := NewJar()
	jar.Set(Cookie{Domain: "example.com", Name: "session", Value: "abc", HTTPOnly: true})
	require.NoError(t, jar.Write(path))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	loaded, err := Read(path)
	require.NoError(t, err)
	assert.Equal(t, slices.Collect(jar.All()), slices.Collect(loaded.All()))

	missing, err := Read(filepath.Join(t.TempDir(), "nope"))
	require.NoError(t, err)
	assert.Equal(t, 0, missing.Len())
}

func TestRoundTripProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		jar := NewJar()
		n := rapid.IntRange(0, 8).Draw(t, "n")
		for i := 0; i < n; i++ {
			c := Cookie{
				Domain:   rapid.StringMatching(`[a-z]{1,8}\.(com|org|dev)`).Draw(t, "domain"),
				Name:     rapid.StringMatching(`[a-zA-Z][a-zA-Z0-9_]{0,10}`).Draw(t, "name"),
				Value:    rapid.StringMatching(`[a-zA-Z0-9=%._ \t\r\n-]{0,20}`).Draw(t, "value"),
				Path:     rapid.SampledFrom([]string{"/", "/api", "/a/b"}).Draw(t, "path"),
				Secure:   rapid.Bool().Draw(t, "secure"),
				HTTPOnly: rapid.Bool().Draw(t, "http_only"),
			}
			if rapid.Bool().Draw(t, "expires") {
				c.Expires = time.Unix(rapid.Int64Range(1, 4102444800).Draw(t, "unix"), 0)
			}
			if c.Validate() != nil {
				continue
			}
			jar.Set(c)
		}

		var buf bytes.Buffer
		_, err := jar.WriteTo(&buf)
		require.NoError(t, err)

		loaded, err := ReadFrom(&buf)
		require.NoError(t, err)
		assert.Equal(t, slices.Collect(jar.All()), slices.Collect(loaded.All()))
	})
}

func TestControlCharactersRejected(t *testing.T) {
	tests := []struct {
		name   string
		cookie Cookie
	}{
		{"tab in value", Cookie{Domain: "example.com", Name: "a", Value: "x\ty"}},
		{"newline in value", Cookie{Domain: "example.com", Name: "a", Value: "x\ny"}},
		{"carriage return in name", Cookie{Domain: "example.com", Name: "a\r", Value: "x"}},
		{"tab in domain", Cookie{Domain: "exa\tmple.com", Name: "a", Value: "x"}},
		{"newline in path", Cookie{Domain: "example.com", Name: "a", Value: "x", Path: "/a\nb"}},
		{"empty name", Cookie{Domain: "example.com", Value: "x"}},
		{"comment domain", Cookie{Domain: "#example.com", Name: "a", Value: "x"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.True(t, errdef.Is(tt.cookie.Validate(), errdef.ErrMalformedInput))

			jar := NewJar()
			jar.Set(tt.cookie)
			path := filepath.Join(t.TempDir(), "cookies")
			err := jar.Write(path)
			assert.True(t, errdef.Is(err, errdef.ErrMalformedInput))
			_, statErr := os.Stat(path)
			assert.True(t, os.IsNotExist(statErr), "nothing is written")
		})
	}
}

func TestWrittenJarAlwaysReadsBack(t *testing.T) {
	jar := NewJar()
	jar.Set(Cookie{Domain: "example.com", Name: "ok", Value: "fine value"})
	var buf bytes.Buffer
	_, err := jar.WriteTo(&buf)
	require.NoError(t, err)

	loaded, err := ReadFrom(&buf)
	require.NoError(t, err)
	assert.Equal(t, slices.Collect(jar.All()), slices.Collect(loaded.All()))

	_, err = ReadFrom(strings.NewReader("example.com\t\tvalue"))
	assert.True(t, errdef.Is(err, errdef.ErrMalformedInput), "empty name")
}
