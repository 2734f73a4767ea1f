package tablift

import (
	"testing"

	"github.com/alecthomas/assert/v2"
)

func TestScalarForBaseTable(t *testing.T) {
	m := DefaultFuncMap()

	sql, ok := m.ScalarFor(DialectPostgres, "LEN")
	assert.True(t, ok)
	assert.Equal(t, "LENGTH", sql)

	// Lookup is case insensitive
	sql, ok = m.ScalarFor(DialectPostgres, "len")
	assert.True(t, ok)
	assert.Equal(t, "LENGTH", sql)

	_, ok = m.ScalarFor(DialectPostgres, "NO_SUCH_FUNCTION")
	assert.False(t, ok)
}

func TestScalarForDialectOverride(t *testing.T) {
	m := DefaultFuncMap()

	base, _ := m.ScalarFor(DialectPostgres, "CONTAINS")
	assert.Equal(t, "(STRPOS({0}, {1}) > 0)", base)

	override, _ := m.ScalarFor(DialectMySQL, "CONTAINS")
	assert.Equal(t, "(INSTR({0}, {1}) > 0)", override)

	// Functions without an override fall through to the base table
	fallthru, ok := m.ScalarFor(DialectMySQL, "LEN")
	assert.True(t, ok)
	assert.Equal(t, "LENGTH", fallthru)
}

func TestWindowFor(t *testing.T) {
	m := DefaultFuncMap()

	spec, ok := m.WindowFor("running_sum")
	assert.True(t, ok)
	assert.Equal(t, WindowRunning, spec.Family)
	assert.Equal(t, "SUM", spec.SQLName)

	_, ok = m.WindowFor("SUM")
	assert.False(t, ok)
}

func TestIsAggregate(t *testing.T) {
	m := DefaultFuncMap()

	assert.True(t, m.IsAggregate("SUM"))
	assert.True(t, m.IsAggregate("countd"))
	assert.False(t, m.IsAggregate("UPPER"))
	assert.False(t, m.IsAggregate("RUNNING_SUM"))
}

func TestReplaceMappings(t *testing.T) {
	original := Mappings()
	defer ReplaceMappings(original)

	custom := DefaultFuncMap()
	custom.Scalar["MYFUNC"] = "MY_SQL_FUNC"
	ReplaceMappings(custom)

	sql, ok := Mappings().ScalarFor(DialectPostgres, "MYFUNC")
	assert.True(t, ok)
	assert.Equal(t, "MY_SQL_FUNC", sql)

	// The snapshot loaded before the swap is unaffected
	_, ok = original.ScalarFor(DialectPostgres, "MYFUNC")
	assert.False(t, ok)
}
