package gormstore

import (
	"fmt"
	"strings"
)

const (
	DriverPostgres = "postgres"
	DriverMySQL    = "mysql"
)

// dialect renders the JSON document expressions of one SQL flavor. Documents
// live in the doc column, ids in the id column.
type dialect string

func (d dialect) valid() bool {
	return d == DriverPostgres || d == DriverMySQL
}

// createTable returns the DDL of a collection table. The table name is the
// first variable.
func (d dialect) createTable() string {
	if d == DriverPostgres {
		return `CREATE TABLE IF NOT EXISTS ? (id VARCHAR(64) COLLATE "C" NOT NULL PRIMARY KEY, doc JSONB NOT NULL)`
	}

	return "CREATE TABLE IF NOT EXISTS ? (id VARCHAR(64) CHARACTER SET utf8mb4 COLLATE utf8mb4_bin NOT NULL PRIMARY KEY, doc JSON NOT NULL)"
}

// path renders a dotted field path as a JSON path literal.
func (d dialect) path(field string) string {
	keys := strings.Split(field, ".")
	if d == DriverPostgres {
		return fmt.Sprintf("'{%s}'", strings.Join(keys, ","))
	}

	return fmt.Sprintf(`'$."%s"'`, strings.Join(keys, `"."`))
}

// value extracts a field as JSON. A JSON null is mapped to SQL NULL, so that
// missing and null fields behave alike.
func (d dialect) value(expr, field string) string {
	if d == DriverPostgres {
		return fmt.Sprintf("NULLIF(%s #> %s, 'null')", expr, d.path(field))
	}

	return fmt.Sprintf("NULLIF(JSON_EXTRACT(%s, %s), CAST('null' AS JSON))", expr, d.path(field))
}

// text extracts a field as unquoted text.
func (d dialect) text(field string) string {
	if d == DriverPostgres {
		return fmt.Sprintf("doc #>> %s", d.path(field))
	}

	return fmt.Sprintf("JSON_UNQUOTE(JSON_EXTRACT(doc, %s))", d.path(field))
}

// param is the placeholder of a JSON encoded variable.
func (d dialect) param() string {
	if d == DriverPostgres {
		return "CAST(? AS jsonb)"
	}

	return "CAST(? AS JSON)"
}

func (d dialect) regexp(expr string, caseInsensitive bool) string {
	if d == DriverPostgres {
		if caseInsensitive {
			return expr + " ~* ?"
		}
		return expr + " ~ ?"
	}

	if caseInsensitive {
		return fmt.Sprintf("REGEXP_LIKE(%s, ?, 'i')", expr)
	}
	return fmt.Sprintf("REGEXP_LIKE(%s, ?, 'c')", expr)
}

// order renders one ORDER BY item. Nulls sort first in ascending order on
// both flavors.
func (d dialect) order(expr string, ascending bool) string {
	switch {
	case d == DriverMySQL && ascending:
		return expr + " ASC"
	case d == DriverMySQL:
		return expr + " DESC"
	case ascending:
		return expr + " ASC NULLS FIRST"
	default:
		return expr + " DESC NULLS LAST"
	}
}

// set returns expr with field assigned to a JSON encoded variable. The field
// is the last variable; missing intermediate objects are created.
func (d dialect) set(expr, field string) string {
	if d == DriverPostgres {
		return fmt.Sprintf("jsonb_set(%s, %s, %s, true)", expr, d.path(field), d.param())
	}

	return fmt.Sprintf("JSON_SET(%s, %s, %s)", expr, d.path(field), d.param())
}

// ensureObject returns expr with field set to an empty object unless it is already one.
func (d dialect) ensureObject(expr, field string) string {
	if d == DriverPostgres {
		return fmt.Sprintf(
			"jsonb_set(%[1]s, %[2]s, CASE WHEN jsonb_typeof(%[1]s #> %[2]s) = 'object' THEN %[1]s #> %[2]s ELSE '{}'::jsonb END, true)",
			expr, d.path(field),
		)
	}

	return fmt.Sprintf(
		"JSON_SET(%[1]s, %[2]s, IF(JSON_TYPE(JSON_EXTRACT(%[1]s, %[2]s)) = 'OBJECT', JSON_EXTRACT(%[1]s, %[2]s), JSON_OBJECT()))",
		expr, d.path(field),
	)
}
