package docpager

// Page size bounds of a Pager.
const (
	DefaultLimit = 10
	MaxLimit     = 100
	// Unbounded as a max limit lets a caller request pages of any size.
	Unbounded = 0
)

// ClampLimit returns the page size served for a requested limit under
// maxLimit and reports whether it differs from the request. A non-positive
// limit asks for the default page, which never exceeds maxLimit.
func ClampLimit(limit, maxLimit int) (int, bool) {
	switch {
	case limit <= 0 && maxLimit == Unbounded:
		return DefaultLimit, true
	case limit <= 0:
		return min(DefaultLimit, maxLimit), true
	case maxLimit != Unbounded && limit > maxLimit:
		return maxLimit, true
	default:
		return limit, false
	}
}

// NormalizeLimit is ClampLimit under MaxLimit.
func NormalizeLimit(limit int) int {
	ret, _ := ClampLimit(limit, MaxLimit)
	return ret
}
