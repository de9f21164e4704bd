package memstore

import (
	"fmt"
	"regexp"

	"github.com/samber/lo"

	"github.com/Alp4ka/docpager"
)

// matches evaluates f against doc. A field missing from the document compares
// as null.
func (s *Store) matches(doc docpager.Document, f docpager.Filter) (bool, error) {
	switch v := f.(type) {
	case nil:
		return true, nil
	case docpager.Condition:
		return s.matchCondition(doc, v)
	case docpager.Conjunction:
		for _, sub := range v {
			ok, err := s.matches(doc, sub)
			if err != nil || !ok {
				return false, err
			}
		}
		return true, nil
	case docpager.Disjunction:
		for _, sub := range v {
			ok, err := s.matches(doc, sub)
			if err != nil || ok {
				return ok, err
			}
		}
		return false, nil
	default:
		return false, fmt.Errorf("unsupported filter type %T", f)
	}
}

func (s *Store) matchCondition(doc docpager.Document, c docpager.Condition) (bool, error) {
	value, _ := doc.Lookup(c.Field)

	switch c.Operator {
	case docpager.OperatorEQ:
		return compareValues(value, c.Value) == 0, nil
	case docpager.OperatorNE:
		return compareValues(value, c.Value) != 0, nil
	case docpager.OperatorGT:
		return compareValues(value, c.Value) > 0, nil
	case docpager.OperatorGTE:
		return compareValues(value, c.Value) >= 0, nil
	case docpager.OperatorLT:
		return compareValues(value, c.Value) < 0, nil
	case docpager.OperatorLTE:
		return compareValues(value, c.Value) <= 0, nil
	case docpager.OperatorIN:
		values, _ := c.Value.([]any)
		return lo.ContainsBy(values, func(x any) bool { return compareValues(value, x) == 0 }), nil
	case docpager.OperatorREGEXP:
		str, ok := value.(string)
		if !ok {
			return false, nil
		}
		re, err := s.pattern(c.Value.(docpager.Pattern))
		if err != nil {
			return false, err
		}
		return re.MatchString(str), nil
	default:
		return false, fmt.Errorf("unsupported operator '%s'", c.Operator)
	}
}

// pattern compiles p once per store.
func (s *Store) pattern(p docpager.Pattern) (*regexp.Regexp, error) {
	expr := p.Expr
	if p.CaseInsensitive {
		expr = "(?i)" + expr
	}

	if re, ok := s.patterns.Load(expr); ok {
		return re.(*regexp.Regexp), nil
	}

	re, err := regexp.Compile(expr)
	if err != nil {
		return nil, fmt.Errorf("invalid pattern '%s': %w", p.Expr, err)
	}
	s.patterns.Store(expr, re)

	return re, nil
}
