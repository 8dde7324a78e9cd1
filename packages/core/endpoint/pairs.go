package endpoint

import (
	"iter"
	"strings"

	"github.com/abdul-hamid-achik/quartz/packages/core/errdef"
)

// Pair is a single key/value entry.
type Pair struct {
	Key   string
	Value string
}

// Pairs is an ordered mapping with unique keys. Header sets normalize keys to
// lower case; query sets keep keys as written.
type Pairs struct {
	items []Pair
	kind  pairsKind
}

type pairsKind int

const (
	queryKind pairsKind = iota
	headerKind
)

// NewHeaders returns an empty header set.
func NewHeaders() Pairs {
	return Pairs{kind: headerKind}
}

// NewQuery returns an empty query set.
func NewQuery() Pairs {
	return Pairs{kind: queryKind}
}

func (p *Pairs) normalize(key string) string {
	key = strings.TrimSpace(key)
	if p.kind == headerKind {
		return strings.ToLower(key)
	}
	return key
}

func (p *Pairs) separator() string {
	if p.kind == headerKind {
		return ":"
	}
	return "="
}

func (p *Pairs) index(key string) int {
	key = p.normalize(key)
	for i, item := range p.items {
		if item.Key == key {
			return i
		}
	}
	return -1
}

// Set inserts or overwrites key. Overwrites keep the original position.
func (p *Pairs) Set(key, value string) {
	key = p.normalize(key)
	if i := p.index(key); i >= 0 {
		p.items[i].Value = value
		return
	}
	p.items = append(p.items, Pair{Key: key, Value: value})
}

// SetLine parses "key: value" for headers or "key=value" for query params.
func (p *Pairs) SetLine(line string) error {
	key, value, err := p.ParseLine(line)
	if err != nil {
		return err
	}
	p.Set(key, value)
	return nil
}

// ParseLine splits line with the set's separator without modifying the set.
func (p *Pairs) ParseLine(line string) (string, string, error) {
	line = strings.TrimSpace(line)
	key, value, found := strings.Cut(line, p.separator())
	key = p.normalize(key)
	if !found || key == "" {
		return "", "", errdef.New(errdef.ErrMalformedInput, "expected \"key%svalue\", got %q", p.separator(), line)
	}
	return key, strings.TrimSpace(value), nil
}

// Get returns the value stored for key.
func (p *Pairs) Get(key string) (string, bool) {
	if i := p.index(key); i >= 0 {
		return p.items[i].Value, true
	}
	return "", false
}

// Has reports whether key is present.
func (p *Pairs) Has(key string) bool {
	return p.index(key) >= 0
}

// Delete removes key and reports whether it was present.
func (p *Pairs) Delete(key string) bool {
	i := p.index(key)
	if i < 0 {
		return false
	}
	p.items = append(p.items[:i], p.items[i+1:]...)
	return true
}

// Len is the number of entries.
func (p *Pairs) Len() int {
	return len(p.items)
}

// All iterates entries in insertion order.
func (p *Pairs) All() iter.Seq2[string, string] {
	return func(yield func(string, string) bool) {
		for _, item := range p.items {
			if !yield(item.Key, item.Value) {
				return
			}
		}
	}
}

// Items returns a copy of the entries.
func (p *Pairs) Items() []Pair {
	out := make([]Pair, len(p.items))
	copy(out, p.items)
	return out
}

// Merge overlays other on p: colliding keys take other's value, new keys are
// appended in other's order.
func (p *Pairs) Merge(other Pairs) {
	for _, item := range other.items {
		p.Set(item.Key, item.Value)
	}
}

// Clone returns an independent copy.
func (p Pairs) Clone() Pairs {
	return Pairs{items: p.Items(), kind: p.kind}
}

// Lines renders the entries in their on-disk line form.
func (p *Pairs) Lines() []string {
	sep := p.separator()
	if p.kind == headerKind {
		sep += " "
	}
	out := make([]string, 0, len(p.items))
	for _, item := range p.items {
		out = append(out, item.Key+sep+item.Value)
	}
	return out
}

// Map returns the entries as a plain map.
func (p *Pairs) Map() map[string]string {
	out := make(map[string]string, len(p.items))
	for _, item := range p.items {
		out[item.Key] = item.Value
	}
	return out
}

func (p Pairs) String() string {
	var sb strings.Builder
	for _, line := range p.Lines() {
		sb.WriteString(line)
		sb.WriteString("\n")
	}
	return sb.String()
}

func pairsFromLines(p Pairs, lines []string) (Pairs, error) {
	for _, line := range lines {
		if err := p.SetLine(line); err != nil {
			return p, err
		}
	}
	return p, nil
}
