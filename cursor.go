package docpager

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/go-logr/logr"
)

type (
	// Cursor is the decoded resume position: the id of the last returned
	// document and its values at each sort field of the page that produced it.
	// SortValues corresponds positionally to that page's Sort.
	Cursor struct {
		LastID     string      `json:"id"`
		SortValues []SortValue `json:"sortValues"`
	}

	SortValue struct {
		Field     string `json:"field"`
		Ascending bool   `json:"ascending"`
		Value     any    `json:"value"`
	}

	// Page is one page of a cursor traversal. Cursor is empty when no further
	// page exists.
	Page[T any] struct {
		Docs   []T    `json:"docs"`
		Cursor string `json:"cursor,omitempty"`
	}
)

// IsEmpty reports whether the cursor points at the beginning of the dataset.
func (c Cursor) IsEmpty() bool {
	return c.LastID == "" && len(c.SortValues) == 0
}

// Codec converts cursors to opaque strings and back.
type Codec struct {
	mode Mode
	log  logr.Logger
}

// NewCodec returns a codec using mode. Decode failures are reported to log.
func NewCodec(mode Mode, log logr.Logger) *Codec {
	return &Codec{
		mode: mode,
		log:  resolveLogger(log),
	}
}

func (c *Codec) Mode() Mode {
	return c.mode
}

// Encode captures the position of lastDoc under sort.
func (c *Codec) Encode(lastDoc Document, sort Sort) (string, error) {
	cur := Cursor{
		LastID:     lastDoc.ID(),
		SortValues: make([]SortValue, 0, len(sort)),
	}
	for _, field := range sort {
		value, _ := lastDoc.Lookup(field.Field)
		cur.SortValues = append(cur.SortValues, SortValue{
			Field:     field.Field,
			Ascending: field.Ascending,
			Value:     normalizeValue(value),
		})
	}

	data, err := json.Marshal(cur)
	if err != nil {
		return "", fmt.Errorf("cannot marshal cursor value: %w", err)
	}

	return c.mode.encode(data)
}

// Parse reverses Encode and reports malformed input.
func (c *Codec) Parse(s string) (Cursor, error) {
	if s == "" {
		return Cursor{}, nil
	}

	data, err := c.mode.decode(s)
	if err != nil {
		return Cursor{}, err
	}

	var wire struct {
		LastID     *string `json:"id"`
		SortValues []struct {
			Field     string          `json:"field"`
			Ascending bool            `json:"ascending"`
			Value     json.RawMessage `json:"value"`
		} `json:"sortValues"`
	}
	if err = json.Unmarshal(data, &wire); err != nil {
		return Cursor{}, fmt.Errorf("failed to unmarshal json encoded cursor: %w", err)
	}

	if wire.LastID == nil || *wire.LastID == "" {
		return Cursor{}, errors.New("cursor has no document id")
	}

	ret := Cursor{
		LastID:     *wire.LastID,
		SortValues: make([]SortValue, 0, len(wire.SortValues)),
	}
	for _, sv := range wire.SortValues {
		if err = ValidateField(sv.Field); err != nil {
			return Cursor{}, fmt.Errorf("invalid cursor sort value: %w", err)
		}

		var value any
		if len(sv.Value) > 0 {
			if err = unmarshalValue(sv.Value, &value); err != nil {
				return Cursor{}, fmt.Errorf("invalid cursor value for '%s': %w", sv.Field, err)
			}
		}

		ret.SortValues = append(ret.SortValues, SortValue{
			Field:     sv.Field,
			Ascending: sv.Ascending,
			Value:     value,
		})
	}

	return ret, nil
}

// Decode is Parse that never fails: malformed input is logged and yields the
// empty cursor, which restarts the traversal from the first page.
func (c *Codec) Decode(s string) Cursor {
	cur, err := c.Parse(s)
	if err != nil {
		c.log.Error(err, "Error decoding cursor", "mode", c.mode)
		return Cursor{}
	}

	return cur
}
