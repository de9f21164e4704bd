package docpager

import (
	"testing"
	"time"

	"github.com/go-logr/logr/testr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_Codec_RoundTrip(t *testing.T) {
	created := time.Date(2023, 11, 2, 10, 20, 30, 456_000_000, time.UTC)
	doc := Document{
		IDField:   "0190f3c4-7e6a-7d2b-9c1e-4a5b6c7d8e9f",
		"age":     41,
		"score":   0.25,
		"name":    "Zoë",
		"created": created,
		"active":  true,
		"profile": map[string]any{"displayName": "Z"},
	}
	sort := Sort{Asc("age"), Desc("created"), Asc("profile.displayName"), Desc("score"), Asc("active"), Asc("missing")}

	want := Cursor{
		LastID: "0190f3c4-7e6a-7d2b-9c1e-4a5b6c7d8e9f",
		SortValues: []SortValue{
			{Field: "age", Ascending: true, Value: int64(41)},
			{Field: "created", Ascending: false, Value: created},
			{Field: "profile.displayName", Ascending: true, Value: "Z"},
			{Field: "score", Ascending: false, Value: 0.25},
			{Field: "active", Ascending: true, Value: true},
			{Field: "missing", Ascending: true, Value: nil},
		},
	}

	for _, mode := range _modes {
		t.Run(string(mode), func(t *testing.T) {
			codec := NewCodec(mode, testr.New(t))

			s, err := codec.Encode(doc, sort)
			require.NoError(t, err)
			require.NotEmpty(t, s)

			got, err := codec.Parse(s)
			require.NoError(t, err)
			assert.Equal(t, want, got)
			assert.Equal(t, want, codec.Decode(s))
		})
	}
}

func Test_Codec_Encode_WireFormat(t *testing.T) {
	codec := NewCodec(ModeDirect, testr.New(t))

	s, err := codec.Encode(Document{
		IDField: "a1",
		"at":    time.Date(2024, 1, 2, 3, 4, 5, 6_000_000, time.FixedZone("Y", -7200)),
	}, Sort{Desc("at")})
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":"a1","sortValues":[{"field":"at","ascending":false,"value":"2024-01-02T05:04:05.006Z"}]}`, s)
}

func Test_Codec_Encode_NoSort(t *testing.T) {
	codec := NewCodec(ModeCompressURI, testr.New(t))

	s, err := codec.Encode(Document{IDField: "a1"}, nil)
	require.NoError(t, err)

	got := codec.Decode(s)
	assert.Equal(t, "a1", got.LastID)
	assert.Empty(t, got.SortValues)
	assert.False(t, got.IsEmpty())
}

func Test_Codec_Decode_Corrupt(t *testing.T) {
	inputs := []string{
		"",
		"garbage",
		"%%%%",
		"eyJpZCI6MX0",
		"0190f3c4-7e6a-7d2b-9c1e-4a5b6c7d8e9f",
		"\x00\xff",
		"🙂🙂🙂",
	}

	for _, mode := range _modes {
		codec := NewCodec(mode, testr.New(t))
		for _, in := range inputs {
			t.Run(string(mode)+"/"+in, func(t *testing.T) {
				var got Cursor
				require.NotPanics(t, func() { got = codec.Decode(in) })
				assert.True(t, got.IsEmpty())
				assert.Equal(t, Cursor{}, got)
			})
		}
	}
}

func Test_Codec_Parse_Strict(t *testing.T) {
	codec := NewCodec(ModeDirect, testr.New(t))

	tests := []struct {
		name string
		in   string
	}{
		{"not json", `{"id":`},
		{"missing id", `{"sortValues":[]}`},
		{"empty id", `{"id":"","sortValues":[]}`},
		{"numeric id", `{"id":1}`},
		{"bad field", `{"id":"a","sortValues":[{"field":"a b","ascending":true,"value":1}]}`},
		{"trailing value", `{"id":"a","sortValues":[{"field":"a","ascending":true,"value":1}]}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := codec.Parse(tt.in)
			require.Error(t, err)
			assert.Equal(t, Cursor{}, codec.Decode(tt.in))
		})
	}

	got, err := codec.Parse(`{"id":"a"}`)
	require.NoError(t, err)
	assert.Equal(t, Cursor{LastID: "a", SortValues: []SortValue{}}, got)
}

func Test_Codec_ModeMismatch(t *testing.T) {
	s, err := NewCodec(ModeCompressBase64, testr.New(t)).Encode(Document{IDField: "a"}, Sort{Asc("x")})
	require.NoError(t, err)

	assert.True(t, NewCodec(ModeCompressUTF16, testr.New(t)).Decode(s).IsEmpty())
}
