package docpager

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/klauspost/compress/flate"
)

// Mode selects the reversible transform applied to the serialized cursor.
// The mode used to encode a cursor must match the one used to decode it.
type Mode string

const (
	// ModeDirect keeps the JSON as-is.
	ModeDirect Mode = "direct"
	// ModeCompress produces raw DEFLATE bytes. The result is not text-safe.
	ModeCompress Mode = "compress"
	// ModeCompressUTF16 packs DEFLATE output into printable runes, 15 bits each.
	ModeCompressUTF16 Mode = "compressToUTF16"
	// ModeCompressBase64 encodes DEFLATE output with standard base64.
	ModeCompressBase64 Mode = "compressToBase64"
	// ModeCompressURI encodes DEFLATE output with unpadded URL-safe base64.
	ModeCompressURI Mode = "compressToEncodedURIComponent"
)

// maxCursorSize bounds the inflated payload of a cursor.
const maxCursorSize = 64 << 10

const utf16Offset = 32

var _modes = []Mode{ModeDirect, ModeCompress, ModeCompressUTF16, ModeCompressBase64, ModeCompressURI}

func (m Mode) Valid() bool {
	for _, mode := range _modes {
		if m == mode {
			return true
		}
	}

	return false
}

// ParseMode resolves a mode by name, case-insensitively.
func ParseMode(name string) (Mode, error) {
	for _, mode := range _modes {
		if strings.EqualFold(name, string(mode)) {
			return mode, nil
		}
	}

	return "", fmt.Errorf("unknown serialization mode [%s]", name)
}

func (m Mode) encode(data []byte) (string, error) {
	if m == ModeDirect {
		return string(data), nil
	}
	if !m.Valid() {
		return "", fmt.Errorf("unknown serialization mode [%s]", m)
	}

	compressed, err := deflate(data)
	if err != nil {
		return "", err
	}

	switch m {
	case ModeCompress:
		return string(compressed), nil
	case ModeCompressUTF16:
		return packUTF16(compressed), nil
	case ModeCompressBase64:
		return base64.StdEncoding.EncodeToString(compressed), nil
	default:
		return base64.RawURLEncoding.EncodeToString(compressed), nil
	}
}

func (m Mode) decode(s string) ([]byte, error) {
	var (
		compressed []byte
		err        error
	)

	switch m {
	case ModeDirect:
		return []byte(s), nil
	case ModeCompress:
		compressed = []byte(s)
	case ModeCompressUTF16:
		compressed, err = unpackUTF16(s)
	case ModeCompressBase64:
		compressed, err = base64.StdEncoding.DecodeString(s)
	case ModeCompressURI:
		compressed, err = base64.RawURLEncoding.DecodeString(s)
	default:
		return nil, fmt.Errorf("unknown deserialization mode [%s]", m)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s cursor: %w", m, err)
	}

	return inflate(compressed)
}

func deflate(data []byte) ([]byte, error) {
	var buf bytes.Buffer

	w, err := flate.NewWriter(&buf, flate.BestCompression)
	if err != nil {
		return nil, fmt.Errorf("cannot create compressor: %w", err)
	}
	if _, err = w.Write(data); err != nil {
		return nil, fmt.Errorf("cannot compress cursor: %w", err)
	}
	if err = w.Close(); err != nil {
		return nil, fmt.Errorf("cannot compress cursor: %w", err)
	}

	return buf.Bytes(), nil
}

func inflate(data []byte) ([]byte, error) {
	r := flate.NewReader(bytes.NewReader(data))
	defer r.Close()

	out, err := io.ReadAll(io.LimitReader(r, maxCursorSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to decompress cursor: %w", err)
	}
	if len(out) > maxCursorSize {
		return nil, errors.New("decompressed cursor is too large")
	}

	return out, nil
}

// packUTF16 writes a header rune holding the number of padding bits of the
// last unit, followed by one rune per 15 bits of data. All runes lie in
// [32, 32799], far below the surrogate range.
func packUTF16(data []byte) string {
	bits := len(data) * 8
	units := (bits + 14) / 15
	pad := units*15 - bits

	var b strings.Builder
	b.Grow((units + 1) * 3)
	b.WriteRune(rune(utf16Offset + pad))

	var (
		acc uint32
		n   uint
	)
	for _, x := range data {
		acc = acc<<8 | uint32(x)
		n += 8
		for n >= 15 {
			n -= 15
			b.WriteRune(rune(utf16Offset + (acc>>n)&0x7fff))
		}
		acc &= 1<<n - 1
	}
	if n > 0 {
		b.WriteRune(rune(utf16Offset + (acc<<(15-n))&0x7fff))
	}

	return b.String()
}

func unpackUTF16(s string) ([]byte, error) {
	runes := []rune(s)
	if len(runes) == 0 {
		return nil, errors.New("empty utf16 payload")
	}

	pad := int(runes[0]) - utf16Offset
	if pad < 0 || pad > 14 {
		return nil, fmt.Errorf("invalid utf16 padding header %d", pad)
	}

	units := runes[1:]
	bits := len(units)*15 - pad
	if bits < 0 || bits%8 != 0 {
		return nil, fmt.Errorf("invalid utf16 payload length")
	}

	size := bits / 8
	out := make([]byte, 0, size)

	var (
		acc uint32
		n   uint
	)
	for _, r := range units {
		v := int(r) - utf16Offset
		if v < 0 || v > 0x7fff {
			return nil, fmt.Errorf("invalid utf16 payload rune %U", r)
		}

		acc = acc<<15 | uint32(v)
		n += 15
		for n >= 8 && len(out) < size {
			n -= 8
			out = append(out, byte(acc>>n))
		}
		acc &= 1<<n - 1
	}

	return out, nil
}
