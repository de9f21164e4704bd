package memstore

import (
	"cmp"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Type brackets of the cross-type value order.
const (
	rankNull = iota
	rankNumber
	rankString
	rankBool
	rankTime
	rankOther
)

// compareValues totally orders document values: null < numbers < strings <
// bools < dates < anything else. Values of the same bracket compare naturally.
func compareValues(a, b any) int {
	ra, rb := rank(a), rank(b)
	if ra != rb {
		return cmp.Compare(ra, rb)
	}

	switch ra {
	case rankNull:
		return 0
	case rankNumber:
		return compareNumbers(a, b)
	case rankString:
		return strings.Compare(a.(string), b.(string))
	case rankBool:
		return compareBools(a.(bool), b.(bool))
	case rankTime:
		return asTime(a).Compare(asTime(b))
	default:
		return strings.Compare(fmt.Sprint(a), fmt.Sprint(b))
	}
}

func rank(v any) int {
	switch t := v.(type) {
	case nil:
		return rankNull
	case *time.Time:
		if t == nil {
			return rankNull
		}
		return rankTime
	case string:
		return rankString
	case bool:
		return rankBool
	case time.Time:
		return rankTime
	}

	if _, _, ok := number(v); ok {
		return rankNumber
	}

	return rankOther
}

// number converts a numeric value to both int64 and float64.
func number(v any) (i int64, f float64, ok bool) {
	switch t := v.(type) {
	case int:
		return int64(t), float64(t), true
	case int8:
		return int64(t), float64(t), true
	case int16:
		return int64(t), float64(t), true
	case int32:
		return int64(t), float64(t), true
	case int64:
		return t, float64(t), true
	case uint:
		return int64(t), float64(t), true
	case uint8:
		return int64(t), float64(t), true
	case uint16:
		return int64(t), float64(t), true
	case uint32:
		return int64(t), float64(t), true
	case uint64:
		return int64(t), float64(t), true
	case float32:
		return int64(t), float64(t), true
	case float64:
		return int64(t), t, true
	case json.Number:
		if n, err := t.Int64(); err == nil {
			return n, float64(n), true
		}
		if x, err := t.Float64(); err == nil {
			return int64(x), x, true
		}
	}

	return 0, 0, false
}

func isFloat(v any) bool {
	switch t := v.(type) {
	case float32, float64:
		return true
	case json.Number:
		_, err := t.Int64()
		return err != nil
	default:
		return false
	}
}

func compareNumbers(a, b any) int {
	ia, fa, _ := number(a)
	ib, fb, _ := number(b)
	if isFloat(a) || isFloat(b) {
		return cmp.Compare(fa, fb)
	}

	return cmp.Compare(ia, ib)
}

func compareBools(a, b bool) int {
	switch {
	case a == b:
		return 0
	case !a:
		return -1
	default:
		return 1
	}
}

func asTime(v any) time.Time {
	switch t := v.(type) {
	case time.Time:
		return t
	case *time.Time:
		return *t
	default:
		return time.Time{}
	}
}
