package docpager

// Operator defines a comparison operator applied to a document field.
type Operator string

const (
	OperatorEQ  Operator = "="
	OperatorNE  Operator = "<>"
	OperatorGT  Operator = ">"
	OperatorGTE Operator = ">="
	OperatorLT  Operator = "<"
	OperatorLTE Operator = "<="

	// OperatorIN tests set membership. The condition value is []any.
	OperatorIN Operator = "IN"
	// OperatorREGEXP matches a string field against a Pattern.
	OperatorREGEXP Operator = "REGEXP"
)

func (o Operator) Valid() bool {
	switch o {
	case OperatorEQ, OperatorNE, OperatorGT, OperatorGTE, OperatorLT, OperatorLTE, OperatorIN, OperatorREGEXP:
		return true
	default:
		return false
	}
}

// IsComparison reports whether the operator compares a field with a single value.
func (o Operator) IsComparison() bool {
	switch o {
	case OperatorEQ, OperatorNE, OperatorGT, OperatorGTE, OperatorLT, OperatorLTE:
		return true
	default:
		return false
	}
}
