package ir

import (
	"fmt"
	"strconv"
	"strings"
)

// Segment is one step of a Path: an object key or an array index.
type Segment struct {
	Key     string
	Index   int
	IsIndex bool
}

// KeySegment returns an object key segment.
func KeySegment(key string) Segment { return Segment{Key: key} }

// IndexSegment returns an array index segment.
func IndexSegment(i int) Segment { return Segment{Index: i, IsIndex: true} }

// String returns the textual key of the segment ("name" or "2").
func (s Segment) String() string {
	if s.IsIndex {
		return strconv.Itoa(s.Index)
	}
	return s.Key
}

// Path points at a location in an object graph, relative to the root.
// The textual form is JSONPath-like:
//
//	$            root
//	$.a.b        object keys
//	$.items[2]   array index
//	$['a.b']     keys that are not plain identifiers
type Path []Segment

// Root is the empty path.
var Root = Path{}

// Child returns a new path extended by one key segment.
// The receiver is never modified.
func (p Path) Child(key string) Path {
	return p.append(KeySegment(key))
}

// Elem returns a new path extended by one index segment.
func (p Path) Elem(i int) Path {
	return p.append(IndexSegment(i))
}

func (p Path) append(seg Segment) Path {
	out := make(Path, len(p), len(p)+1)
	copy(out, p)
	return append(out, seg)
}

// Parent returns the path without its last segment.
func (p Path) Parent() Path {
	if len(p) == 0 {
		return Root
	}
	return p[:len(p)-1]
}

// Last returns the final segment. ok is false for the root path.
func (p Path) Last() (Segment, bool) {
	if len(p) == 0 {
		return Segment{}, false
	}
	return p[len(p)-1], true
}

// Key returns the textual form of the last segment, or "$" for the root.
func (p Path) Key() string {
	last, ok := p.Last()
	if !ok {
		return "$"
	}
	return last.String()
}

// Equal reports whether two paths have identical segments.
func (p Path) Equal(other Path) bool {
	if len(p) != len(other) {
		return false
	}
	for i := range p {
		if p[i] != other[i] {
			return false
		}
	}
	return true
}

// String renders the path in its textual form.
func (p Path) String() string {
	var b strings.Builder
	b.WriteByte('$')
	for _, seg := range p {
		switch {
		case seg.IsIndex:
			b.WriteByte('[')
			b.WriteString(strconv.Itoa(seg.Index))
			b.WriteByte(']')
		case isIdentifier(seg.Key):
			b.WriteByte('.')
			b.WriteString(seg.Key)
		default:
			b.WriteString("['")
			for _, r := range seg.Key {
				if r == '\'' || r == '\\' {
					b.WriteByte('\\')
				}
				b.WriteRune(r)
			}
			b.WriteString("']")
		}
	}
	return b.String()
}

// isIdentifier reports whether key can use the dotted form.
func isIdentifier(key string) bool {
	if key == "" {
		return false
	}
	for i, r := range key {
		switch {
		case r == '_' || r == '$':
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9' && i > 0:
		default:
			return false
		}
	}
	return true
}

// ParsePath parses the textual form produced by Path.String.
func ParsePath(s string) (Path, error) {
	if !strings.HasPrefix(s, "$") {
		return nil, fmt.Errorf("path %q: must start with '$'", s)
	}

	path := Path{}
	i := 1
	for i < len(s) {
		switch s[i] {
		case '.':
			j := i + 1
			for j < len(s) && s[j] != '.' && s[j] != '[' {
				j++
			}
			key := s[i+1 : j]
			if !isIdentifier(key) {
				return nil, fmt.Errorf("path %q: invalid key %q at offset %d", s, key, i)
			}
			path = append(path, KeySegment(key))
			i = j

		case '[':
			if i+1 < len(s) && s[i+1] == '\'' {
				key, next, err := parseQuotedKey(s, i+2)
				if err != nil {
					return nil, err
				}
				path = append(path, KeySegment(key))
				i = next
				continue
			}
			end := strings.IndexByte(s[i:], ']')
			if end < 0 {
				return nil, fmt.Errorf("path %q: unterminated index at offset %d", s, i)
			}
			digits := s[i+1 : i+end]
			n, err := strconv.Atoi(digits)
			if err != nil || n < 0 || digits == "" || (len(digits) > 1 && digits[0] == '0') {
				return nil, fmt.Errorf("path %q: invalid index %q", s, digits)
			}
			path = append(path, IndexSegment(n))
			i += end + 1

		default:
			return nil, fmt.Errorf("path %q: unexpected %q at offset %d", s, s[i], i)
		}
	}
	return path, nil
}

// parseQuotedKey reads a quoted key starting after the opening quote and
// returns the key and the offset just past the closing "']".
func parseQuotedKey(s string, start int) (string, int, error) {
	var b strings.Builder
	for i := start; i < len(s); i++ {
		switch s[i] {
		case '\\':
			if i+1 >= len(s) {
				return "", 0, fmt.Errorf("path %q: dangling escape", s)
			}
			i++
			b.WriteByte(s[i])
		case '\'':
			if i+1 >= len(s) || s[i+1] != ']' {
				return "", 0, fmt.Errorf("path %q: expected ']' after quoted key", s)
			}
			return b.String(), i + 2, nil
		default:
			b.WriteByte(s[i])
		}
	}
	return "", 0, fmt.Errorf("path %q: unterminated quoted key", s)
}

// MustParsePath is ParsePath for literals in code and tests.
func MustParsePath(s string) Path {
	p, err := ParsePath(s)
	if err != nil {
		panic(err)
	}
	return p
}

// MarshalText implements encoding.TextMarshaler.
func (p Path) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (p *Path) UnmarshalText(text []byte) error {
	parsed, err := ParsePath(string(text))
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

// Lookup resolves path against root. ok is false when any step is missing
// or addresses the wrong container kind.
func Lookup(root Value, path Path) (Value, bool) {
	cur := root
	for _, seg := range path {
		switch c := cur.(type) {
		case Object:
			if seg.IsIndex {
				return nil, false
			}
			next, ok := c[seg.Key]
			if !ok {
				return nil, false
			}
			cur = next
		case Array:
			if !seg.IsIndex || seg.Index < 0 || seg.Index >= len(c) {
				return nil, false
			}
			cur = c[seg.Index]
		default:
			return nil, false
		}
	}
	return cur, cur != nil
}
