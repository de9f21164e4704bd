package gormstore

import (
	"fmt"
	"slices"
	"strings"

	"github.com/samber/lo"
	"gorm.io/gorm/clause"

	"github.com/Alp4ka/docpager"
)

const (
	sqlTrue  = "1 = 1"
	sqlFalse = "1 = 0"
)

// compiler translates docpager filters into SQL conditions with "?" placeholders.
//
// Null ordering follows the in-memory store: a missing or null field is
// smaller than any value. Conditions are adjusted accordingly, e.g.
//
//	Lt("age", 30) -> (age < 30 OR age IS NULL)
//	Gt("age", nil) -> age IS NOT NULL
type compiler struct {
	d dialect
}

// toGORMExpression converts f into a clause.Expression, or nil for a nil filter.
func (c compiler) toGORMExpression(f docpager.Filter) (clause.Expression, error) {
	if f == nil {
		return nil, nil
	}

	sql, vars, err := c.toSQLClause(f)
	if err != nil {
		return nil, err
	}

	return clause.Expr{SQL: sql, Vars: vars}, nil
}

// toSQLClause converts f into an SQL condition and its placeholder values.
//
// Example (PostgreSQL):
//
//	Or(Gt("age", 30), And(Eq("age", 30), Gt("_id", "x")))
//
// Result:
//
//	("(NULLIF(doc #> '{age}', 'null') > CAST(? AS jsonb) OR (NULLIF(doc #> '{age}', 'null') = CAST(? AS jsonb) AND id > ?))", ["30", "30", "x"])
func (c compiler) toSQLClause(f docpager.Filter) (string, []any, error) {
	switch v := f.(type) {
	case nil:
		return sqlTrue, nil, nil
	case docpager.Condition:
		return c.condition(v)
	case docpager.Conjunction:
		return c.join(v, " AND ", sqlTrue)
	case docpager.Disjunction:
		return c.join(v, " OR ", sqlFalse)
	default:
		return "", nil, fmt.Errorf("unsupported filter type %T", f)
	}
}

func (c compiler) join(filters []docpager.Filter, sep, empty string) (string, []any, error) {
	if len(filters) == 0 {
		return empty, nil, nil
	}
	if len(filters) == 1 {
		return c.toSQLClause(filters[0])
	}

	clauses := make([]string, 0, len(filters))
	values := make([]any, 0, len(filters))
	for _, f := range filters {
		sql, vars, err := c.toSQLClause(f)
		if err != nil {
			return "", nil, err
		}
		clauses = append(clauses, sql)
		values = append(values, vars...)
	}

	return fmt.Sprintf("(%s)", strings.Join(clauses, sep)), values, nil
}

func (c compiler) condition(cond docpager.Condition) (string, []any, error) {
	if err := docpager.ValidateFilter(cond); err != nil {
		return "", nil, err
	}

	switch cond.Operator {
	case docpager.OperatorIN:
		values := cond.Value.([]any)
		return c.join(lo.Map(values, func(v any, _ int) docpager.Filter {
			return docpager.Eq(cond.Field, v)
		}), " OR ", sqlFalse)
	case docpager.OperatorREGEXP:
		pattern := cond.Value.(docpager.Pattern)
		expr := "id"
		if cond.Field != docpager.IDField {
			expr = c.d.text(cond.Field)
		}
		return c.d.regexp(expr, pattern.CaseInsensitive), []any{pattern.Expr}, nil
	}

	expr, param, arg, err := c.operands(cond)
	if err != nil {
		return "", nil, err
	}

	if cond.Value == nil {
		switch cond.Operator {
		case docpager.OperatorEQ, docpager.OperatorLTE:
			return expr + " IS NULL", nil, nil
		case docpager.OperatorNE, docpager.OperatorGT:
			return expr + " IS NOT NULL", nil, nil
		case docpager.OperatorGTE:
			return sqlTrue, nil, nil
		default:
			return sqlFalse, nil, nil
		}
	}

	sql := fmt.Sprintf("%s %s %s", expr, cond.Operator, param)
	switch cond.Operator {
	case docpager.OperatorNE, docpager.OperatorLT, docpager.OperatorLTE:
		sql = fmt.Sprintf("(%s OR %s IS NULL)", sql, expr)
	}

	return sql, []any{arg}, nil
}

// operands returns the left side, the placeholder and the variable of a comparison.
func (c compiler) operands(cond docpager.Condition) (string, string, any, error) {
	if cond.Field == docpager.IDField {
		return "id", "?", docpager.Document{docpager.IDField: cond.Value}.ID(), nil
	}

	data, err := docpager.MarshalValue(cond.Value)
	if err != nil {
		return "", "", nil, fmt.Errorf("cannot encode value of '%s': %w", cond.Field, err)
	}

	return c.d.value("doc", cond.Field), c.d.param(), string(data), nil
}

// orderBy renders sort as an ORDER BY list.
func (c compiler) orderBy(sort docpager.Sort) string {
	return strings.Join(lo.Map(sort, func(f docpager.SortField, _ int) string {
		if f.Field == docpager.IDField {
			return lo.Ternary(f.Ascending, "id ASC", "id DESC")
		}
		return c.d.order(c.d.value("doc", f.Field), f.Ascending)
	}), ", ")
}

// update renders the new doc column value for an UpdateMany assignment.
// Paths are applied in lexical order, parents before children.
func (c compiler) update(set docpager.Document) (string, []any, error) {
	paths := lo.Keys(set)
	slices.Sort(paths)

	expr, vars := "doc", []any(nil)
	for _, path := range paths {
		if err := docpager.ValidateField(path); err != nil {
			return "", nil, err
		}
		if path == docpager.IDField {
			return "", nil, fmt.Errorf("cannot update document id")
		}

		keys := strings.Split(path, ".")
		for i := 1; i < len(keys); i++ {
			expr = c.d.ensureObject(expr, strings.Join(keys[:i], "."))
			vars = slices.Concat(vars, vars, vars)
		}

		data, err := docpager.MarshalValue(set[path])
		if err != nil {
			return "", nil, fmt.Errorf("cannot encode value of '%s': %w", path, err)
		}
		expr = c.d.set(expr, path)
		vars = append(vars, string(data))
	}

	return expr, vars, nil
}
