package parser

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/cases"
)

// DataType classifies literal and inferred expression types.
type DataType string

const (
	TypeString  DataType = "string"
	TypeInteger DataType = "integer"
	TypeReal    DataType = "real"
	TypeBoolean DataType = "boolean"
	TypeNull    DataType = "null"
	TypeUnknown DataType = "unknown"
)

// Node is the tagged-union interface implemented by every AST variant.
// Nodes are immutable once constructed; a parent never rewrites a
// child, it assembles a new tree instead.
type Node interface {
	node()
}

// Literal is a constant value. Value holds string, int64,
// decimal.Decimal, bool, or nil depending on Type.
type Literal struct {
	Value any
	Type  DataType
}

// FieldRef references another field. Name is the case-folded
// normalized form used for dependency tracking; Original preserves the
// user's formatting for diagnostics.
type FieldRef struct {
	Name     string
	Original string
}

// Arithmetic is a binary arithmetic expression (+ - * / % ^).
type Arithmetic struct {
	Operator string
	Left     Node
	Right    Node
}

// Comparison is a binary comparison expression (= != < <= > >=).
type Comparison struct {
	Operator string
	Left     Node
	Right    Node
}

// Logical is AND/OR, or unary NOT with Right nil.
type Logical struct {
	Operator string
	Left     Node
	Right    Node
}

// Conditional is one IF/ELSEIF/ELSE step. ELSEIF chains lower into
// right-nested Conditionals; a missing ELSE becomes a null literal.
type Conditional struct {
	Condition Node
	Then      Node
	Else      Node
}

// WhenClause is one WHEN arm of a Case. For a simple CASE, Match is
// the value compared against the subject; for a searched CASE it is a
// full boolean condition.
type WhenClause struct {
	Match  Node
	Result Node
}

// Case is a CASE expression. Subject nil means the searched form.
// Whens keep source order; first match wins. Else may be nil.
type Case struct {
	Subject Node
	Whens   []WhenClause
	Else    Node
}

// FunctionCall is a named function applied to ordered arguments.
type FunctionCall struct {
	Name string
	Args []Node
}

// ScopeType is the grouping mode of a scoped aggregate.
type ScopeType string

const (
	ScopeFixed   ScopeType = "FIXED"
	ScopeInclude ScopeType = "INCLUDE"
	ScopeExclude ScopeType = "EXCLUDE"
)

// ScopedAggregate is a level-of-detail expression: an aggregate whose
// grouping granularity is pinned (FIXED), widened (INCLUDE), or
// narrowed (EXCLUDE) relative to the ambient context. Dimensions is a
// duplicate-free list in source order.
type ScopedAggregate struct {
	Scope      ScopeType
	Dimensions []string
	Expr       Node
}

// Frame is an explicit window frame as (start, end) row offsets;
// negative offsets precede the current row.
type Frame struct {
	Start int
	End   int
}

// WindowCall is a running/window/ranking/offset function. Arg may be
// nil only for ROW_NUMBER. Order is "asc" or "desc". Frame nil means
// the family default (unbounded preceding through current row). Extra
// holds the offset count and default value of LAG/LEAD.
type WindowCall struct {
	Name  string
	Arg   Node
	Order string
	Frame *Frame
	Extra []Node
}

// Fallback marks a portion of the formula that could not be parsed.
// Original carries the verbatim source text so the generator can
// preserve it in a comment for manual follow-up.
type Fallback struct {
	Original string
	Reason   string
}

func (*Literal) node()         {}
func (*FieldRef) node()        {}
func (*Arithmetic) node()      {}
func (*Comparison) node()      {}
func (*Logical) node()         {}
func (*Conditional) node()     {}
func (*Case) node()            {}
func (*FunctionCall) node()    {}
func (*ScopedAggregate) node() {}
func (*WindowCall) node()      {}
func (*Fallback) node()        {}

// NullLiteral returns a fresh null literal node.
func NullLiteral() *Literal {
	return &Literal{Value: nil, Type: TypeNull}
}

// NewRealLiteral parses numeric text into a real literal, preserving
// the decimal representation of the source.
func NewRealLiteral(text string) (*Literal, error) {
	d, err := decimal.NewFromString(text)
	if err != nil {
		return nil, err
	}

	return &Literal{Value: d, Type: TypeReal}, nil
}

var (
	fieldSpecialChars = regexp.MustCompile(`[^a-z0-9_]+`)
	fieldUnderscores  = regexp.MustCompile(`_+`)
)

// NormalizeFieldName converts a raw field name into the canonical form
// used for dependency sets and SQL identifiers: Unicode case folded,
// special characters and spaces collapsed to single underscores.
func NormalizeFieldName(name string) string {
	folded := cases.Fold().String(strings.TrimSpace(name))
	cleaned := fieldSpecialChars.ReplaceAllString(folded, "_")
	cleaned = fieldUnderscores.ReplaceAllString(cleaned, "_")

	return strings.Trim(cleaned, "_")
}
