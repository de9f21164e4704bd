package docpager

import "fmt"

type (
	// Filter is a store-agnostic predicate over documents. A nil Filter
	// matches every document.
	//
	// The tree is made of Condition leaves joined by Conjunction (AND) and
	// Disjunction (OR) nodes. Stores translate it into their native query
	// language; the pager only ever wraps caller filters, it never rewrites them.
	Filter interface {
		isFilter()
	}

	// Condition is the value of Operator(Field, Value).
	Condition struct {
		Field    string
		Operator Operator
		Value    any
	}

	// Conjunction is satisfied when every element is.
	Conjunction []Filter

	// Disjunction is satisfied when at least one element is. An empty
	// Disjunction matches nothing.
	Disjunction []Filter

	// Pattern is the value of an OperatorREGEXP condition.
	Pattern struct {
		Expr            string
		CaseInsensitive bool
	}
)

func (Condition) isFilter()   {}
func (Conjunction) isFilter() {}
func (Disjunction) isFilter() {}

func Eq(field string, value any) Condition {
	return Condition{Field: field, Operator: OperatorEQ, Value: value}
}

func Ne(field string, value any) Condition {
	return Condition{Field: field, Operator: OperatorNE, Value: value}
}

func Gt(field string, value any) Condition {
	return Condition{Field: field, Operator: OperatorGT, Value: value}
}

func Gte(field string, value any) Condition {
	return Condition{Field: field, Operator: OperatorGTE, Value: value}
}

func Lt(field string, value any) Condition {
	return Condition{Field: field, Operator: OperatorLT, Value: value}
}

func Lte(field string, value any) Condition {
	return Condition{Field: field, Operator: OperatorLTE, Value: value}
}

// In matches documents whose field equals any of values.
func In(field string, values ...any) Condition {
	return Condition{Field: field, Operator: OperatorIN, Value: values}
}

// Match matches documents whose string field matches the regular expression expr.
func Match(field, expr string, caseInsensitive bool) Condition {
	return Condition{Field: field, Operator: OperatorREGEXP, Value: Pattern{Expr: expr, CaseInsensitive: caseInsensitive}}
}

// And joins filters with AND. Nil filters are skipped and nested
// conjunctions are flattened. Returns nil when nothing is left.
func And(filters ...Filter) Filter {
	flat := make(Conjunction, 0, len(filters))
	for _, f := range filters {
		switch v := f.(type) {
		case nil:
			continue
		case Conjunction:
			flat = append(flat, v...)
		default:
			flat = append(flat, v)
		}
	}

	switch len(flat) {
	case 0:
		return nil
	case 1:
		return flat[0]
	default:
		return flat
	}
}

// Or joins filters with OR. Nil filters are skipped and nested disjunctions
// are flattened. Returns nil when nothing is left.
func Or(filters ...Filter) Filter {
	flat := make(Disjunction, 0, len(filters))
	for _, f := range filters {
		switch v := f.(type) {
		case nil:
			continue
		case Disjunction:
			flat = append(flat, v...)
		default:
			flat = append(flat, v)
		}
	}

	switch len(flat) {
	case 0:
		return nil
	case 1:
		return flat[0]
	default:
		return flat
	}
}

// ValidateFilter checks field paths, operators and operand types of the whole tree.
func ValidateFilter(f Filter) error {
	switch v := f.(type) {
	case nil:
		return nil
	case Condition:
		return v.validate()
	case Conjunction:
		for _, sub := range v {
			if err := ValidateFilter(sub); err != nil {
				return err
			}
		}
		return nil
	case Disjunction:
		for _, sub := range v {
			if err := ValidateFilter(sub); err != nil {
				return err
			}
		}
		return nil
	default:
		return fmt.Errorf("unsupported filter type %T", f)
	}
}

func (c Condition) validate() error {
	if err := ValidateField(c.Field); err != nil {
		return err
	}

	if !c.Operator.Valid() {
		return fmt.Errorf("invalid filter operator '%s'", c.Operator)
	}

	switch {
	case c.Operator.IsComparison():
		if !isScalar(c.Value) {
			return fmt.Errorf("operator '%s' on '%s' expects a scalar value, got %T", c.Operator, c.Field, c.Value)
		}
	case c.Operator == OperatorIN:
		if _, ok := c.Value.([]any); !ok {
			return fmt.Errorf("operator '%s' on '%s' expects []any, got %T", c.Operator, c.Field, c.Value)
		}
	case c.Operator == OperatorREGEXP:
		if _, ok := c.Value.(Pattern); !ok {
			return fmt.Errorf("operator '%s' on '%s' expects Pattern, got %T", c.Operator, c.Field, c.Value)
		}
	}

	return nil
}

// isScalar reports whether v can be ordered against a field value.
func isScalar(v any) bool {
	switch v.(type) {
	case map[string]any, Document, []any, Pattern:
		return false
	default:
		return true
	}
}
