package introspect

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/conduit-lang/reflector/internal/orm/platform"
)

// fakeDatabase only reports a kind
type fakeDatabase struct {
	platform.Database
	kind platform.Kind
}

func (f fakeDatabase) Kind() platform.Kind { return f.kind }

func TestPostgresGenericType(t *testing.T) {
	tests := map[string]string{
		"int4":        "int32",
		"int8":        "int64",
		"numeric":     "decimal",
		"varchar":     "string",
		"bpchar":      "string",
		"timestamptz": "time",
		"jsonb":       "json",
		"bytea":       "bytes",
		"_int4":       "[]int32",
		"_varchar":    "[]string",
		"tsvector":    "any",
	}
	for in, want := range tests {
		t.Run(in, func(t *testing.T) {
			assert.Equal(t, want, PostgresGenericType(in))
		})
	}
}

func TestSqliteGenericType(t *testing.T) {
	tests := map[string]string{
		"INTEGER":      "int64",
		"bigint":       "int64",
		"VARCHAR(255)": "string",
		"TEXT":         "string",
		"BLOB":         "bytes",
		"":             "bytes",
		"REAL":         "float64",
		"DOUBLE":       "float64",
		"BOOLEAN":      "bool",
		"DATETIME":     "time",
		"NUMERIC":      "decimal",
	}
	for in, want := range tests {
		t.Run(in, func(t *testing.T) {
			assert.Equal(t, want, SqliteGenericType(in))
		})
	}
}
