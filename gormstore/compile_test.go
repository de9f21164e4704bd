package gormstore

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm/clause"

	"github.com/Alp4ka/docpager"
)

const (
	pgAge   = "NULLIF(doc #> '{age}', 'null')"
	pgName  = "NULLIF(doc #> '{profile,name}', 'null')"
	myAge   = `NULLIF(JSON_EXTRACT(doc, '$."age"'), CAST('null' AS JSON))`
	myLabel = `NULLIF(JSON_EXTRACT(doc, '$."label"'), CAST('null' AS JSON))`
)

func Test_compiler_toSQLClause_Postgres(t *testing.T) {
	at := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)

	tests := []struct {
		name     string
		filter   docpager.Filter
		wantSQL  string
		wantVars []any
	}{
		{
			name:     "nil matches all",
			filter:   nil,
			wantSQL:  "1 = 1",
			wantVars: nil,
		},
		{
			name:     "equality",
			filter:   docpager.Eq("age", 30),
			wantSQL:  pgAge + " = CAST(? AS jsonb)",
			wantVars: []any{"30"},
		},
		{
			name:     "nested less than admits nulls",
			filter:   docpager.Lt("profile.name", "bob"),
			wantSQL:  "(" + pgName + " < CAST(? AS jsonb) OR " + pgName + " IS NULL)",
			wantVars: []any{`"bob"`},
		},
		{
			name:     "dates as wire strings",
			filter:   docpager.Gte("age", at),
			wantSQL:  pgAge + " >= CAST(? AS jsonb)",
			wantVars: []any{`"2024-01-02T03:04:05.000Z"`},
		},
		{
			name:     "id column",
			filter:   docpager.Gt(docpager.IDField, "x"),
			wantSQL:  "id > ?",
			wantVars: []any{"x"},
		},
		{
			name:     "null equality",
			filter:   docpager.Eq("age", nil),
			wantSQL:  pgAge + " IS NULL",
			wantVars: nil,
		},
		{
			name:     "greater than null",
			filter:   docpager.Gt("age", nil),
			wantSQL:  pgAge + " IS NOT NULL",
			wantVars: nil,
		},
		{
			name:     "less than null",
			filter:   docpager.Lt("age", nil),
			wantSQL:  "1 = 0",
			wantVars: nil,
		},
		{
			name:     "in",
			filter:   docpager.In("age", 1, 2),
			wantSQL:  "(" + pgAge + " = CAST(? AS jsonb) OR " + pgAge + " = CAST(? AS jsonb))",
			wantVars: []any{"1", "2"},
		},
		{
			name:     "empty in",
			filter:   docpager.In("age"),
			wantSQL:  "1 = 0",
			wantVars: nil,
		},
		{
			name:     "case-insensitive regexp",
			filter:   docpager.Match("profile.name", "^bo", true),
			wantSQL:  "doc #>> '{profile,name}' ~* ?",
			wantVars: []any{"^bo"},
		},
		{
			name:     "case-sensitive regexp on id",
			filter:   docpager.Match(docpager.IDField, "^u", false),
			wantSQL:  "id ~ ?",
			wantVars: []any{"^u"},
		},
		{
			name: "resume predicate",
			filter: docpager.Or(
				docpager.Gt("age", 30),
				docpager.And(docpager.Eq("age", 30), docpager.Gt(docpager.IDField, "x")),
			),
			wantSQL:  "(" + pgAge + " > CAST(? AS jsonb) OR (" + pgAge + " = CAST(? AS jsonb) AND id > ?))",
			wantVars: []any{"30", "30", "x"},
		},
		{
			name:     "empty disjunction",
			filter:   docpager.Disjunction{},
			wantSQL:  "1 = 0",
			wantVars: nil,
		},
		{
			name:     "empty conjunction",
			filter:   docpager.Conjunction{},
			wantSQL:  "1 = 1",
			wantVars: nil,
		},
	}

	c := compiler{d: DriverPostgres}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sql, vars, err := c.toSQLClause(tt.filter)
			require.NoError(t, err)
			assert.Equal(t, tt.wantSQL, sql)
			assert.Equal(t, tt.wantVars, vars)
		})
	}
}

func Test_compiler_toSQLClause_MySQL(t *testing.T) {
	tests := []struct {
		name     string
		filter   docpager.Filter
		wantSQL  string
		wantVars []any
	}{
		{
			name:     "equality",
			filter:   docpager.Eq("age", 30),
			wantSQL:  myAge + " = CAST(? AS JSON)",
			wantVars: []any{"30"},
		},
		{
			name:     "not equal admits nulls",
			filter:   docpager.Ne("label", "L1"),
			wantSQL:  "(" + myLabel + " <> CAST(? AS JSON) OR " + myLabel + " IS NULL)",
			wantVars: []any{`"L1"`},
		},
		{
			name:     "regexp",
			filter:   docpager.Match("label", "L1$", true),
			wantSQL:  `REGEXP_LIKE(JSON_UNQUOTE(JSON_EXTRACT(doc, '$."label"')), ?, 'i')`,
			wantVars: []any{"L1$"},
		},
		{
			name:     "case-sensitive regexp",
			filter:   docpager.Match("label", "^L", false),
			wantSQL:  `REGEXP_LIKE(JSON_UNQUOTE(JSON_EXTRACT(doc, '$."label"')), ?, 'c')`,
			wantVars: []any{"^L"},
		},
		{
			name:     "conjunction",
			filter:   docpager.And(docpager.Gte("age", 18), docpager.Lte(docpager.IDField, "m")),
			wantSQL:  "(" + myAge + " >= CAST(? AS JSON) AND (id <= ? OR id IS NULL))",
			wantVars: []any{"18", "m"},
		},
	}

	c := compiler{d: DriverMySQL}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sql, vars, err := c.toSQLClause(tt.filter)
			require.NoError(t, err)
			assert.Equal(t, tt.wantSQL, sql)
			assert.Equal(t, tt.wantVars, vars)
		})
	}
}

func Test_compiler_toSQLClause_Invalid(t *testing.T) {
	c := compiler{d: DriverPostgres}

	_, _, err := c.toSQLClause(docpager.Eq("age'; DROP TABLE users; --", 1))
	require.Error(t, err)

	_, _, err = c.toSQLClause(docpager.Condition{Field: "age", Operator: docpager.OperatorIN, Value: 1})
	require.Error(t, err)
}

func Test_compiler_toGORMExpression(t *testing.T) {
	c := compiler{d: DriverPostgres}

	expr, err := c.toGORMExpression(nil)
	require.NoError(t, err)
	assert.Nil(t, expr)

	expr, err = c.toGORMExpression(docpager.Gt(docpager.IDField, "x"))
	require.NoError(t, err)
	assert.Equal(t, clause.Expr{SQL: "id > ?", Vars: []any{"x"}}, expr)
}

func Test_compiler_orderBy(t *testing.T) {
	sort := docpager.Sort{docpager.Desc("age"), docpager.Asc("profile.name"), docpager.Asc(docpager.IDField)}

	assert.Equal(t,
		pgAge+" DESC NULLS LAST, "+pgName+" ASC NULLS FIRST, id ASC",
		compiler{d: DriverPostgres}.orderBy(sort),
	)
	assert.Equal(t,
		myAge+` DESC, NULLIF(JSON_EXTRACT(doc, '$."profile"."name"'), CAST('null' AS JSON)) ASC, id ASC`,
		compiler{d: DriverMySQL}.orderBy(sort),
	)
}

func Test_compiler_update(t *testing.T) {
	tests := []struct {
		name     string
		d        dialect
		set      docpager.Document
		wantSQL  string
		wantVars []any
	}{
		{
			name:     "postgres top-level",
			d:        DriverPostgres,
			set:      docpager.Document{"name": "x"},
			wantSQL:  "jsonb_set(doc, '{name}', CAST(? AS jsonb), true)",
			wantVars: []any{`"x"`},
		},
		{
			name: "postgres nested",
			d:    DriverPostgres,
			set:  docpager.Document{"profile.name": "x"},
			wantSQL: "jsonb_set(jsonb_set(doc, '{profile}', CASE WHEN jsonb_typeof(doc #> '{profile}') = 'object' " +
				"THEN doc #> '{profile}' ELSE '{}'::jsonb END, true), '{profile,name}', CAST(? AS jsonb), true)",
			wantVars: []any{`"x"`},
		},
		{
			name:     "mysql keys in lexical order",
			d:        DriverMySQL,
			set:      docpager.Document{"b": 2, "a": 1},
			wantSQL:  `JSON_SET(JSON_SET(doc, '$."a"', CAST(? AS JSON)), '$."b"', CAST(? AS JSON))`,
			wantVars: []any{"1", "2"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sql, vars, err := compiler{d: tt.d}.update(tt.set)
			require.NoError(t, err)
			assert.Equal(t, tt.wantSQL, sql)
			assert.Equal(t, tt.wantVars, vars)
		})
	}

	_, _, err := compiler{d: DriverPostgres}.update(docpager.Document{docpager.IDField: "x"})
	require.Error(t, err)
}

func Test_compiler_update_RepeatsVarsOfNestedExpressions(t *testing.T) {
	sql, vars, err := compiler{d: DriverPostgres}.update(docpager.Document{"a": 1, "b.c": 2})
	require.NoError(t, err)

	assert.Equal(t, []any{"1", "1", "1", "2"}, vars)
	assert.Equal(t, len(vars), countPlaceholders(sql))
}

func countPlaceholders(sql string) int {
	n := 0
	for _, r := range sql {
		if r == '?' {
			n++
		}
	}
	return n
}
