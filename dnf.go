package docpager

import (
	"errors"
	"fmt"

	"github.com/samber/lo"
)

// ErrMultiSortResume is returned by a single-field pager when the cursor was
// produced under a sort with more than one field.
var ErrMultiSortResume = errors.New("cursor resume supports a single sort field only")

type (
	// tDisjunct is a list of conditions joined by AND.
	tDisjunct []Condition

	// tDNF represents the disjunctive normal form (DNF) of the resume predicate.
	// Each disjunct is joined by OR, and each disjunct consists of a list of
	// conditions which are joined by AND.
	//
	//	DNF = X1 OR X2 ... OR Xn, where Xi = Ai1 AND Ai2 ... AND Aim.
	tDNF []tDisjunct
)

func (d tDisjunct) toFilter() Filter {
	return And(lo.Map(d, func(c Condition, _ int) Filter { return c })...)
}

func (d tDNF) toFilter() Filter {
	return Or(lo.Map(d, func(x tDisjunct, _ int) Filter { return x.toFilter() })...)
}

// toDNF expands a cursor into the predicate selecting every document strictly
// after it in (sort..., _id ASC) order. For recorded values (F1 V1)...(Fn Vn):
//
//	(F1 O1 V1) OR (F1 = V1 AND F2 O2 V2) ... OR (F1 = V1 ... AND Fn = Vn AND _id > id)
//
// where Oi is > for ascending fields and < for descending ones.
func (c Cursor) toDNF() tDNF {
	if c.IsEmpty() {
		return nil
	}

	dnf := make(tDNF, 0, len(c.SortValues)+1)
	for i := range c.SortValues {
		disjunct := make(tDisjunct, 0, i+1)
		disjunct = append(disjunct, lo.Map(c.SortValues[:i], equalityCondition)...)
		disjunct = append(disjunct, c.SortValues[i].strictCondition())

		dnf = append(dnf, disjunct)
	}

	last := make(tDisjunct, 0, len(c.SortValues)+1)
	last = append(last, lo.Map(c.SortValues, equalityCondition)...)
	last = append(last, Gt(IDField, c.LastID))

	return append(dnf, last)
}

func equalityCondition(v SortValue, _ int) Condition {
	return Eq(v.Field, v.Value)
}

func (v SortValue) strictCondition() Condition {
	return Condition{
		Field:    v.Field,
		Operator: DirectionOf(v.Ascending).ForOperator(),
		Value:    v.Value,
	}
}

// resumeFilter returns the predicate continuing a traversal after c, or nil for
// the empty cursor.
func resumeFilter(c Cursor, singleField bool) (Filter, error) {
	if singleField && len(c.SortValues) > 1 {
		return nil, fmt.Errorf("%w: cursor has %d sort values", ErrMultiSortResume, len(c.SortValues))
	}

	return c.toDNF().toFilter(), nil
}
