package tablift

import (
	"strings"
	"sync/atomic"
)

// WindowFamily classifies the argument shape of a window function.
type WindowFamily int

const (
	// WindowRanking covers RANK/DENSE_RANK/ROW_NUMBER: ordering expression plus optional direction.
	WindowRanking WindowFamily = iota
	// WindowRunning covers RUNNING_* aggregates: a single expression, cumulative ordering.
	WindowRunning
	// WindowFramed covers WINDOW_* aggregates: expression plus optional (start, end) frame offsets.
	WindowFramed
	// WindowOffset covers LAG/LEAD: expression plus optional offset count and default value.
	WindowOffset
)

// WindowSpec describes how a source window function renders in SQL.
type WindowSpec struct {
	Family WindowFamily
	// SQLName is the aggregate or ranking function emitted before the OVER clause.
	SQLName string
}

// FuncMap is the read-only function/operator mapping table consulted
// during compilation. Scalar values are either a plain SQL function
// name or a template with {0}-style argument slots. A published
// FuncMap must never be mutated; use ReplaceMappings to swap in a new
// snapshot.
type FuncMap struct {
	Scalar           map[string]string
	DialectOverrides map[Dialect]map[string]string
	Window           map[string]WindowSpec
	Aggregates       map[string]bool
}

// ScalarFor resolves a scalar function mapping for a dialect,
// preferring dialect overrides over the base table.
func (m *FuncMap) ScalarFor(dialect Dialect, name string) (string, bool) {
	upper := strings.ToUpper(name)
	if overrides, ok := m.DialectOverrides[dialect]; ok {
		if sql, ok := overrides[upper]; ok {
			return sql, true
		}
	}

	sql, ok := m.Scalar[upper]

	return sql, ok
}

// WindowFor resolves a window function spec by source name.
func (m *FuncMap) WindowFor(name string) (WindowSpec, bool) {
	spec, ok := m.Window[strings.ToUpper(name)]
	return spec, ok
}

// IsAggregate reports whether the source function collapses rows.
func (m *FuncMap) IsAggregate(name string) bool {
	return m.Aggregates[strings.ToUpper(name)]
}

var currentMappings atomic.Pointer[FuncMap]

func init() {
	currentMappings.Store(DefaultFuncMap())
}

// Mappings returns the current immutable mapping snapshot.
func Mappings() *FuncMap {
	return currentMappings.Load()
}

// ReplaceMappings atomically swaps the mapping snapshot. Concurrent
// compilations keep whichever snapshot they already loaded.
func ReplaceMappings(m *FuncMap) {
	currentMappings.Store(m)
}

// DefaultFuncMap builds the built-in source-to-SQL mapping table.
func DefaultFuncMap() *FuncMap {
	return &FuncMap{
		Scalar: map[string]string{
			// Aggregates - direct mapping
			"SUM":    "SUM",
			"COUNT":  "COUNT",
			"AVG":    "AVG",
			"MIN":    "MIN",
			"MAX":    "MAX",
			"MEDIAN": "MEDIAN",
			"COUNTD": "COUNT(DISTINCT {0})",
			"STDEV":  "STDDEV_SAMP",
			"STDEVP": "STDDEV_POP",
			"VAR":    "VAR_SAMP",
			"VARP":   "VAR_POP",
			"CORR":   "CORR",
			"COVAR":  "COVAR_SAMP",
			"COVARP": "COVAR_POP",

			// String functions
			"UPPER":      "UPPER",
			"LOWER":      "LOWER",
			"LEN":        "LENGTH",
			"TRIM":       "TRIM",
			"LTRIM":      "LTRIM",
			"RTRIM":      "RTRIM",
			"LEFT":       "LEFT",
			"RIGHT":      "RIGHT",
			"MID":        "SUBSTR",
			"REPLACE":    "REPLACE",
			"PROPER":     "INITCAP",
			"CONTAINS":   "(STRPOS({0}, {1}) > 0)",
			"STARTSWITH": "(STRPOS({0}, {1}) = 1)",
			"ENDSWITH":   "(RIGHT({0}, LENGTH({1})) = {1})",
			"FIND":       "STRPOS({0}, {1})",

			// Math functions
			"ABS":     "ABS",
			"ROUND":   "ROUND",
			"CEILING": "CEIL",
			"FLOOR":   "FLOOR",
			"SQRT":    "SQRT",
			"POWER":   "POW",
			"SQUARE":  "POW({0}, 2)",
			"SIGN":    "SIGN",
			"SIN":     "SIN",
			"COS":     "COS",
			"TAN":     "TAN",
			"ASIN":    "ASIN",
			"ACOS":    "ACOS",
			"ATAN":    "ATAN",
			"LN":      "LN",
			"LOG":     "LOG",
			"EXP":     "EXP",

			// Date functions
			"YEAR":      "EXTRACT(YEAR FROM {0})",
			"QUARTER":   "EXTRACT(QUARTER FROM {0})",
			"MONTH":     "EXTRACT(MONTH FROM {0})",
			"WEEK":      "EXTRACT(WEEK FROM {0})",
			"DAY":       "EXTRACT(DAY FROM {0})",
			"NOW":       "CURRENT_TIMESTAMP",
			"TODAY":     "CURRENT_DATE",
			"DATETRUNC": "DATE_TRUNC({0}, {1})",
			"DATEPART":  "EXTRACT({0} FROM {1})",

			// Null handling
			"IFNULL": "COALESCE({0}, {1})",
			"ISNULL": "({0} IS NULL)",
			"ZN":     "COALESCE({0}, 0)",

			// Type conversion
			"FLOAT":    "CAST({0} AS DOUBLE PRECISION)",
			"INT":      "CAST({0} AS INTEGER)",
			"STR":      "CAST({0} AS VARCHAR)",
			"DATE":     "CAST({0} AS DATE)",
			"DATETIME": "CAST({0} AS TIMESTAMP)",
		},
		DialectOverrides: map[Dialect]map[string]string{
			DialectMySQL: {
				"CONTAINS":   "(INSTR({0}, {1}) > 0)",
				"STARTSWITH": "(INSTR({0}, {1}) = 1)",
				"FIND":       "INSTR({0}, {1})",
				"PROPER":     "PROPER", // no INITCAP on MySQL; left for manual review
				"STR":        "CAST({0} AS CHAR)",
			},
			DialectSQLite: {
				"CONTAINS":   "(INSTR({0}, {1}) > 0)",
				"STARTSWITH": "(INSTR({0}, {1}) = 1)",
				"FIND":       "INSTR({0}, {1})",
				"CEILING":    "CEIL",
				"STR":        "CAST({0} AS TEXT)",
			},
			DialectBigQuery: {
				"CONTAINS":   "STRPOS({0}, {1}) > 0",
				"STARTSWITH": "STARTS_WITH({0}, {1})",
				"ENDSWITH":   "ENDS_WITH({0}, {1})",
				"FLOAT":      "CAST({0} AS FLOAT64)",
				"INT":        "CAST({0} AS INT64)",
				"STR":        "CAST({0} AS STRING)",
			},
		},
		Window: map[string]WindowSpec{
			"RANK":          {Family: WindowRanking, SQLName: "RANK"},
			"DENSE_RANK":    {Family: WindowRanking, SQLName: "DENSE_RANK"},
			"ROW_NUMBER":    {Family: WindowRanking, SQLName: "ROW_NUMBER"},
			"RUNNING_SUM":   {Family: WindowRunning, SQLName: "SUM"},
			"RUNNING_AVG":   {Family: WindowRunning, SQLName: "AVG"},
			"RUNNING_COUNT": {Family: WindowRunning, SQLName: "COUNT"},
			"RUNNING_MIN":   {Family: WindowRunning, SQLName: "MIN"},
			"RUNNING_MAX":   {Family: WindowRunning, SQLName: "MAX"},
			"WINDOW_SUM":    {Family: WindowFramed, SQLName: "SUM"},
			"WINDOW_AVG":    {Family: WindowFramed, SQLName: "AVG"},
			"WINDOW_COUNT":  {Family: WindowFramed, SQLName: "COUNT"},
			"WINDOW_MIN":    {Family: WindowFramed, SQLName: "MIN"},
			"WINDOW_MAX":    {Family: WindowFramed, SQLName: "MAX"},
			"LAG":           {Family: WindowOffset, SQLName: "LAG"},
			"LEAD":          {Family: WindowOffset, SQLName: "LEAD"},
		},
		Aggregates: map[string]bool{
			"SUM": true, "COUNT": true, "COUNTD": true, "AVG": true,
			"MIN": true, "MAX": true, "MEDIAN": true, "STDEV": true,
			"STDEVP": true, "VAR": true, "VARP": true, "CORR": true,
			"COVAR": true, "COVARP": true,
		},
	}
}
