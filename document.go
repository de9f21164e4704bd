package docpager

import (
	"bytes"
	"encoding/json"
	"fmt"
	"maps"
	"regexp"
	"strings"
	"time"

	"github.com/samber/lo"
)

// IDField is the document attribute holding the unique identifier.
const IDField = "_id"

// DateLayout is the wire representation of dates inside cursors and stored documents.
const DateLayout = "2006-01-02T15:04:05.000Z"

var _datePattern = regexp.MustCompile(`^\d\d\d\d-\d\d-\d\dT\d\d:\d\d:\d\d\.\d\d\dZ$`)

type (
	// Document is a schemaless record. Nested documents are map[string]any.
	Document map[string]any

	// Projection selects returned fields: true includes a path, false excludes it.
	// If any path is included, only included paths (and the id, unless it is
	// explicitly excluded) are returned.
	Projection map[string]bool
)

// ID returns the unique identifier as a string, or "" if the document has none.
func (d Document) ID() string {
	switch v := d[IDField].(type) {
	case nil:
		return ""
	case string:
		return v
	case fmt.Stringer:
		return v.String()
	default:
		return fmt.Sprint(v)
	}
}

// Lookup returns the value addressed by a dotted path.
func (d Document) Lookup(path string) (any, bool) {
	var cur any = map[string]any(d)
	for _, key := range strings.Split(path, ".") {
		m, ok := asMap(cur)
		if !ok {
			return nil, false
		}

		cur, ok = m[key]
		if !ok {
			return nil, false
		}
	}

	return cur, true
}

// Set assigns value to the dotted path, creating intermediate documents.
func (d Document) Set(path string, value any) {
	keys := strings.Split(path, ".")
	cur := map[string]any(d)
	for _, key := range keys[:len(keys)-1] {
		next, ok := asMap(cur[key])
		if !ok {
			next = make(map[string]any)
			cur[key] = next
		}
		cur = next
	}

	cur[keys[len(keys)-1]] = value
}

// Delete removes the dotted path if present.
func (d Document) Delete(path string) {
	keys := strings.Split(path, ".")
	cur := map[string]any(d)
	for _, key := range keys[:len(keys)-1] {
		next, ok := asMap(cur[key])
		if !ok {
			return
		}
		cur = next
	}

	delete(cur, keys[len(keys)-1])
}

// Clone returns a deep copy of nested documents and slices.
func (d Document) Clone() Document {
	if d == nil {
		return nil
	}

	return Document(cloneValue(map[string]any(d)).(map[string]any))
}

func asMap(v any) (map[string]any, bool) {
	switch m := v.(type) {
	case map[string]any:
		return m, true
	case Document:
		return m, true
	default:
		return nil, false
	}
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, e := range t {
			out[k] = cloneValue(e)
		}
		return out
	case Document:
		return cloneValue(map[string]any(t))
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = cloneValue(e)
		}
		return out
	default:
		return v
	}
}

// Apply returns the document reduced to the projection.
func (p Projection) Apply(doc Document) Document {
	if len(p) == 0 || doc == nil {
		return doc
	}

	include := false
	for _, v := range p {
		include = include || v
	}

	if !include {
		out := doc.Clone()
		for path := range p {
			out.Delete(path)
		}
		return out
	}

	out := make(Document, len(p)+1)
	if keepID, ok := p[IDField]; !ok || keepID {
		if id, ok := doc[IDField]; ok {
			out[IDField] = id
		}
	}
	for path, v := range p {
		if !v {
			continue
		}
		if value, ok := doc.Lookup(path); ok {
			out.Set(path, cloneValue(value))
		}
	}

	return out
}

// keeping returns a projection that returns at least paths in addition to
// what p returns. Nil stays nil.
func (p Projection) keeping(paths ...string) Projection {
	if len(p) == 0 {
		return p
	}

	include := lo.Contains(lo.Values(p), true)
	out := maps.Clone(p)
	for _, path := range paths {
		if include {
			out[path] = true
			continue
		}
		// an excluded parent would hide path as well
		for excluded := range out {
			if path == excluded || strings.HasPrefix(path, excluded+".") {
				delete(out, excluded)
			}
		}
	}

	return out
}

// MarshalValue serializes v to JSON, writing time.Time values as DateLayout strings in UTC.
func MarshalValue(v any) ([]byte, error) {
	return json.Marshal(normalizeValue(v))
}

// UnmarshalDocument parses a JSON object. Strings matching DateLayout are
// restored to time.Time and numbers to int64 or float64.
func UnmarshalDocument(data []byte) (Document, error) {
	var v any
	if err := unmarshalValue(data, &v); err != nil {
		return nil, err
	}

	m, ok := v.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("json value is %T, not a document", v)
	}

	return m, nil
}

func unmarshalValue(data []byte, dst *any) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		return err
	}
	if dec.More() {
		return fmt.Errorf("unexpected trailing data after json value")
	}

	*dst = reviveValue(v)

	return nil
}

func normalizeValue(v any) any {
	switch t := v.(type) {
	case time.Time:
		return t.UTC().Format(DateLayout)
	case *time.Time:
		if t == nil {
			return nil
		}
		return t.UTC().Format(DateLayout)
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, e := range t {
			out[k] = normalizeValue(e)
		}
		return out
	case Document:
		return normalizeValue(map[string]any(t))
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = normalizeValue(e)
		}
		return out
	default:
		return v
	}
}

func reviveValue(v any) any {
	switch t := v.(type) {
	case string:
		if _datePattern.MatchString(t) {
			if ts, err := time.Parse(DateLayout, t); err == nil {
				return ts.UTC()
			}
		}
		return t
	case json.Number:
		if i, err := t.Int64(); err == nil {
			return i
		}
		if f, err := t.Float64(); err == nil {
			return f
		}
		return t.String()
	case map[string]any:
		for k, e := range t {
			t[k] = reviveValue(e)
		}
		return t
	case []any:
		for i, e := range t {
			t[i] = reviveValue(e)
		}
		return t
	default:
		return v
	}
}
