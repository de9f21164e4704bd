package docpager

import (
	"fmt"
	"math"
	"strings"

	"github.com/samber/lo"
)

// Direction defines the sort direction for the requested dataset.
type Direction string

const (
	DirectionASC  Direction = "ASC"
	DirectionDESC Direction = "DESC"
)

// DirectionOf maps the ascending flag of a SortField to a Direction.
func DirectionOf(ascending bool) Direction {
	return lo.Ternary(ascending, DirectionASC, DirectionDESC)
}

func (o Direction) Valid() bool {
	return o == DirectionASC || o == DirectionDESC
}

// ForOperator returns the comparison operator that moves past a value in
// this direction.
func (o Direction) ForOperator() Operator {
	switch o {
	case DirectionASC:
		return OperatorGT
	case DirectionDESC:
		return OperatorLT
	default:
		panic(fmt.Errorf("cannot map direction '%s' to operator", o))
	}
}

type (
	// SortField requests ordering by the document attribute addressed by Field.
	// Field is a dotted path, e.g. "profile.displayName".
	SortField struct {
		Field     string `json:"field"`
		Ascending bool   `json:"ascending"`
	}

	// Sort is an ordered list of sort fields. The first field is the primary ordering.
	Sort []SortField

	FieldAlias = string

	// FieldMapping maps external field aliases to document paths.
	// Key is an external alias, value is an internal field path.
	FieldMapping = map[FieldAlias]string
)

// Asc orders by field in ascending order.
func Asc(field string) SortField {
	return SortField{Field: field, Ascending: true}
}

// Desc orders by field in descending order.
func Desc(field string) SortField {
	return SortField{Field: field, Ascending: false}
}

func (s SortField) Direction() Direction {
	return DirectionOf(s.Ascending)
}

func (s SortField) String() string {
	return fmt.Sprintf("%s %s", s.Field, s.Direction())
}

var _availableFieldSymbols = append([]rune("_."), lo.AlphanumericCharset...)

// ValidateField checks that path is a well-formed dotted path. Stores embed
// paths into native query syntax, so only alphanumerics, '_' and '.' are allowed.
func ValidateField(path string) error {
	if path == "" {
		return fmt.Errorf("empty field path")
	}

	if !lo.Every(_availableFieldSymbols, []rune(path)) {
		return fmt.Errorf("field path contains forbidden symbols '%s'", path)
	}

	if lo.Contains(strings.Split(path, "."), "") {
		return fmt.Errorf("field path has an empty segment '%s'", path)
	}

	return nil
}

// Fields returns sort field paths in order.
func (s Sort) Fields() []string {
	return lo.Map(s, func(f SortField, _ int) string { return f.Field })
}

// Strings converts Sort to "<field> <direction>" items, the format accepted by ParseSort.
func (s Sort) Strings() []string {
	return lo.Map(s, func(f SortField, _ int) string { return f.String() })
}

// WithTieBreaker returns a copy of the sort with an ascending order on the
// document id appended. If the id is already part of the sort it is kept
// where the caller put it.
func (s Sort) WithTieBreaker() Sort {
	ret := make(Sort, 0, len(s)+1)
	ret = append(ret, s...)

	if !lo.ContainsBy(s, func(f SortField) bool { return f.Field == IDField }) {
		ret = append(ret, Asc(IDField))
	}

	return ret
}

func (s Sort) validate() error {
	seen := make(map[string]struct{}, len(s))
	for _, field := range s {
		if err := ValidateField(field.Field); err != nil {
			return fmt.Errorf("invalid sort: %w", err)
		}

		if _, ok := seen[field.Field]; ok {
			return fmt.Errorf("invalid sort: field '%s' is listed twice", field.Field)
		}
		seen[field.Field] = struct{}{}
	}

	return nil
}

// ParseSort builds Sort from a list of strings in the format "alias asc|desc".
// Aliases are resolved via FieldMapping. Returns an error suggesting the
// closest known alias if an alias is not found in the mapping.
func ParseSort(stringsSort []string, fieldMapping FieldMapping) (Sort, error) {
	ret := make(Sort, 0, len(stringsSort))
	aliases := lo.Keys(fieldMapping)

	for _, stringSort := range stringsSort {
		cutStringSort := strings.Fields(stringSort)
		if len(cutStringSort) != 2 {
			return nil, fmt.Errorf("invalid sort string format '%s'", stringSort)
		}

		alias := cutStringSort[0]
		direction := Direction(strings.ToUpper(cutStringSort[1]))
		if !direction.Valid() {
			return nil, fmt.Errorf("invalid sort direction '%s'", cutStringSort[1])
		}

		field := fieldMapping[alias]
		if field == "" {
			return nil, fmt.Errorf("invalid field alias '%s'. closest: '%s'", alias, closestAlias(alias, aliases))
		}

		ret = append(ret, SortField{
			Field:     field,
			Ascending: direction == DirectionASC,
		})
	}

	return ret, ret.validate()
}

func closestAlias(input FieldAlias, dataSet []FieldAlias) FieldAlias {
	minDist := math.MaxInt
	closest := ""

	for _, dataSetAlias := range dataSet {
		dist := levenshtein([]rune(dataSetAlias), []rune(input))
		if dist < minDist || (dist == minDist && dataSetAlias < closest) {
			minDist = dist
			closest = dataSetAlias
		}
	}

	return closest
}
