package introspect

import "strings"

var postgresTypes = map[string]string{
	"bool":        "bool",
	"int2":        "int16",
	"int4":        "int32",
	"int8":        "int64",
	"float4":      "float32",
	"float8":      "float64",
	"numeric":     "decimal",
	"money":       "decimal",
	"text":        "string",
	"varchar":     "string",
	"bpchar":      "string",
	"char":        "string",
	"name":        "string",
	"citext":      "string",
	"uuid":        "uuid",
	"bytea":       "bytes",
	"json":        "json",
	"jsonb":       "json",
	"date":        "time",
	"time":        "time",
	"timetz":      "time",
	"timestamp":   "time",
	"timestamptz": "time",
	"interval":    "duration",
	"inet":        "string",
	"cidr":        "string",
}

// PostgresGenericType maps a pg_type name to the generic type name. Array types, whose
// pg_type name starts with an underscore, map to [] of their element type.
func PostgresGenericType(typname string) string {
	if elem, ok := strings.CutPrefix(typname, "_"); ok {
		return "[]" + PostgresGenericType(elem)
	}
	if generic, ok := postgresTypes[typname]; ok {
		return generic
	}
	return "any"
}

// SqliteGenericType maps a declared column type using the sqlite affinity rules
func SqliteGenericType(declared string) string {
	t := strings.ToUpper(declared)
	switch {
	case strings.Contains(t, "INT"):
		return "int64"
	case strings.Contains(t, "BOOL"):
		return "bool"
	case strings.Contains(t, "UUID"):
		return "uuid"
	case strings.Contains(t, "DATE"), strings.Contains(t, "TIME"):
		return "time"
	case strings.Contains(t, "CHAR"), strings.Contains(t, "CLOB"), strings.Contains(t, "TEXT"):
		return "string"
	case t == "", strings.Contains(t, "BLOB"):
		return "bytes"
	case strings.Contains(t, "REAL"), strings.Contains(t, "FLOA"), strings.Contains(t, "DOUB"):
		return "float64"
	default:
		return "decimal"
	}
}
