// Package sqlgen renders a formula AST into a SQL expression for a
// target dialect. Generation never fails: constructs without a clean
// SQL equivalent render as annotated placeholders and the problems come
// back as warning diagnostics alongside the SQL text.
package sqlgen

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/tablift/tablift"
	"github.com/tablift/tablift/parser"
)

// Generator renders ASTs for one dialect. A Generator is cheap and not
// safe for concurrent use; create one per goroutine.
type Generator struct {
	dialect tablift.Dialect
	alias   string
	table   string
	funcs   *tablift.FuncMap

	// scopeDepth numbers nested scoped-aggregate subqueries so each
	// gets a distinct alias.
	scopeDepth int
	warnings   []tablift.Diagnostic
}

// New creates a generator for a dialect. alias prefixes every column
// reference (empty means "base"); table is the relation scoped
// aggregates select from (empty means "source").
func New(dialect tablift.Dialect, alias, table string) *Generator {
	if alias == "" {
		alias = "base"
	}

	if table == "" {
		table = "source"
	}

	return &Generator{dialect: dialect, alias: alias, table: table, funcs: tablift.Mappings()}
}

// Generate renders one tree to a SQL expression. The returned
// diagnostics are warnings only; some SQL always comes back.
func (g *Generator) Generate(root parser.Node) (string, []tablift.Diagnostic) {
	g.warnings = nil

	sql := g.render(root)

	return sql, g.warnings
}

func (g *Generator) warn(format string, args ...any) {
	g.warnings = append(g.warnings, tablift.Diagnostic{
		Severity: tablift.SeverityWarning,
		Message:  fmt.Sprintf(format, args...),
	})
}

func (g *Generator) render(n parser.Node) string {
	switch v := n.(type) {
	case *parser.Literal:
		return g.renderLiteral(v)
	case *parser.FieldRef:
		return g.alias + "." + v.Name
	case *parser.Arithmetic:
		return g.renderArithmetic(v)
	case *parser.Comparison:
		op := v.Operator
		if op == "!=" {
			op = "<>"
		}

		return "(" + g.render(v.Left) + " " + op + " " + g.render(v.Right) + ")"
	case *parser.Logical:
		if v.Operator == "NOT" {
			return "(NOT " + g.render(v.Left) + ")"
		}

		return "(" + g.render(v.Left) + " " + v.Operator + " " + g.render(v.Right) + ")"
	case *parser.Conditional:
		return g.renderConditional(v)
	case *parser.Case:
		return g.renderCase(v)
	case *parser.FunctionCall:
		return g.renderFunction(v)
	case *parser.ScopedAggregate:
		return g.renderScoped(v)
	case *parser.WindowCall:
		return g.renderWindow(v)
	case *parser.Fallback:
		return g.renderFallback(v)
	default:
		g.warn("unexpected node %T in tree", n)
		return "NULL"
	}
}

func (g *Generator) renderLiteral(v *parser.Literal) string {
	switch val := v.Value.(type) {
	case nil:
		return "NULL"
	case string:
		return quoteString(val)
	case bool:
		if val {
			return "TRUE"
		}

		return "FALSE"
	case int64:
		return strconv.FormatInt(val, 10)
	case decimal.Decimal:
		return val.String()
	default:
		g.warn("unexpected literal value %T", v.Value)
		return "NULL"
	}
}

func (g *Generator) renderArithmetic(v *parser.Arithmetic) string {
	left := g.render(v.Left)
	right := g.render(v.Right)

	switch v.Operator {
	case "^":
		// No portable infix exponent; POWER exists on every target
		return "POWER(" + left + ", " + right + ")"
	case "/":
		// Guard the denominator so division by zero yields NULL
		// instead of a query error. Non-zero literal denominators
		// need no guard.
		if lit, ok := v.Right.(*parser.Literal); ok && isNonZeroNumeric(lit) {
			return "(" + left + " / " + right + ")"
		}

		return "(" + left + " / NULLIF(" + right + ", 0))"
	case "%":
		if g.dialect == tablift.DialectBigQuery {
			return "MOD(" + left + ", " + right + ")"
		}

		return "(" + left + " % " + right + ")"
	default:
		return "(" + left + " " + v.Operator + " " + right + ")"
	}
}

func (g *Generator) renderConditional(v *parser.Conditional) string {
	var sb strings.Builder

	sb.WriteString("CASE WHEN ")
	sb.WriteString(g.render(v.Condition))
	sb.WriteString(" THEN ")
	sb.WriteString(g.render(v.Then))

	// ELSEIF chains arrive right-nested; flatten them into one CASE
	els := v.Else
	for {
		next, ok := els.(*parser.Conditional)
		if !ok {
			break
		}

		sb.WriteString(" WHEN ")
		sb.WriteString(g.render(next.Condition))
		sb.WriteString(" THEN ")
		sb.WriteString(g.render(next.Then))

		els = next.Else
	}

	sb.WriteString(" ELSE ")
	sb.WriteString(g.render(els))
	sb.WriteString(" END")

	return sb.String()
}

func (g *Generator) renderCase(v *parser.Case) string {
	var sb strings.Builder

	sb.WriteString("CASE")

	if v.Subject != nil {
		sb.WriteString(" ")
		sb.WriteString(g.render(v.Subject))
	}

	for _, when := range v.Whens {
		sb.WriteString(" WHEN ")
		sb.WriteString(g.render(when.Match))
		sb.WriteString(" THEN ")
		sb.WriteString(g.render(when.Result))
	}

	sb.WriteString(" ELSE ")

	if v.Else != nil {
		sb.WriteString(g.render(v.Else))
	} else {
		sb.WriteString("NULL")
	}

	sb.WriteString(" END")

	return sb.String()
}

func (g *Generator) renderFunction(v *parser.FunctionCall) string {
	args := make([]string, len(v.Args))
	for i, arg := range v.Args {
		args[i] = g.render(arg)
	}

	tmpl, ok := g.funcs.ScalarFor(g.dialect, v.Name)
	if !ok {
		g.warn("no SQL mapping for function %s", v.Name)

		return "NULL /* unsupported function: " + v.Name + "(" +
			strings.Join(args, ", ") + ") */"
	}

	return expandTemplate(tmpl, args)
}

// expandTemplate substitutes {0}-style slots, or falls back to plain
// NAME(args) call syntax when the mapping is a bare function name.
// Slot-free mappings with no arguments render verbatim, which is how
// NOW() becomes CURRENT_TIMESTAMP.
func expandTemplate(tmpl string, args []string) string {
	if strings.Contains(tmpl, "{0}") || strings.Contains(tmpl, "{1}") {
		out := tmpl
		for i, arg := range args {
			out = strings.ReplaceAll(out, "{"+strconv.Itoa(i)+"}", arg)
		}

		return out
	}

	if len(args) == 0 {
		return tmpl
	}

	return tmpl + "(" + strings.Join(args, ", ") + ")"
}

// renderScoped rewrites a scoped aggregate as a correlated subquery
// grouped by the scope dimensions. FIXED and INCLUDE correlate on the
// listed dimensions; INCLUDE additionally depends on the consuming
// query's grouping, which a single expression cannot see, so it is
// annotated for review. EXCLUDE drops the listed dimensions from the
// grouping and aggregates over the whole relation.
func (g *Generator) renderScoped(v *parser.ScopedAggregate) string {
	innerAlias := "lod"
	if g.scopeDepth > 0 {
		innerAlias += strconv.Itoa(g.scopeDepth + 1)
	}

	inner := &Generator{
		dialect:    g.dialect,
		alias:      innerAlias,
		table:      g.table,
		funcs:      g.funcs,
		scopeDepth: g.scopeDepth + 1,
	}

	body, aggregated := inner.renderScopedExpr(v)
	g.warnings = append(g.warnings, inner.warnings...)

	if !aggregated {
		g.warn("scoped expression is not an aggregate; wrapped in MAX for review")
	}

	var sb strings.Builder

	sb.WriteString("(SELECT ")
	sb.WriteString(body)
	sb.WriteString(" FROM ")
	sb.WriteString(g.table)
	sb.WriteString(" ")
	sb.WriteString(innerAlias)

	cols := make([]string, len(v.Dimensions))
	conds := make([]string, len(v.Dimensions))

	for i, dim := range v.Dimensions {
		cols[i] = innerAlias + "." + dim
		conds[i] = innerAlias + "." + dim + " = " + g.alias + "." + dim
	}

	switch v.Scope {
	case parser.ScopeFixed, parser.ScopeInclude:
		sb.WriteString(" WHERE ")
		sb.WriteString(strings.Join(conds, " AND "))
		sb.WriteString(" GROUP BY ")
		sb.WriteString(strings.Join(cols, ", "))

		if v.Scope == parser.ScopeInclude {
			sb.WriteString(" /* INCLUDE: plus ambient grouping */")
			g.warn("INCLUDE scope adds %s to the query grouping; verify against the surrounding GROUP BY",
				strings.Join(v.Dimensions, ", "))
		}
	case parser.ScopeExclude:
		sb.WriteString(" GROUP BY () /* ambient minus (")
		sb.WriteString(strings.Join(v.Dimensions, ", "))
		sb.WriteString(") */")
		g.warn("EXCLUDE scope removes %s from the query grouping; verify against the surrounding GROUP BY",
			strings.Join(v.Dimensions, ", "))
	}

	sb.WriteString(")")

	return sb.String()
}

// renderScopedExpr renders the body of a scoped aggregate against the
// subquery alias and reports whether it was already an aggregate call.
// Non-aggregate bodies are wrapped in MAX so the grouped subquery stays
// valid.
func (g *Generator) renderScopedExpr(v *parser.ScopedAggregate) (string, bool) {
	if call, ok := v.Expr.(*parser.FunctionCall); ok && g.funcs.IsAggregate(call.Name) {
		return g.render(call), true
	}

	return "MAX(" + g.render(v.Expr) + ")", false
}

func (g *Generator) renderWindow(v *parser.WindowCall) string {
	spec, ok := g.funcs.WindowFor(v.Name)
	if !ok {
		g.warn("no SQL mapping for window function %s", v.Name)
		return "NULL /* unsupported function: " + v.Name + " */"
	}

	switch spec.Family {
	case tablift.WindowRanking:
		over := ""
		if v.Arg != nil {
			over = "ORDER BY " + g.render(v.Arg)
			if v.Order == "desc" {
				over += " DESC"
			}
		}

		return spec.SQLName + "() OVER (" + over + ")"
	case tablift.WindowRunning:
		g.warn("%s ordering follows the source visualization; review the ORDER BY", v.Name)

		return spec.SQLName + "(" + g.render(v.Arg) +
			") OVER (ORDER BY 1 ROWS BETWEEN UNBOUNDED PRECEDING AND CURRENT ROW)"
	case tablift.WindowFramed:
		g.warn("%s ordering follows the source visualization; review the ORDER BY", v.Name)

		frame := "ROWS BETWEEN UNBOUNDED PRECEDING AND CURRENT ROW"
		if v.Frame != nil {
			frame = "ROWS BETWEEN " + frameBound(v.Frame.Start) +
				" AND " + frameBound(v.Frame.End)
		}

		return spec.SQLName + "(" + g.render(v.Arg) + ") OVER (ORDER BY 1 " + frame + ")"
	case tablift.WindowOffset:
		g.warn("%s ordering follows the source visualization; review the ORDER BY", v.Name)

		args := []string{g.render(v.Arg)}
		for _, extra := range v.Extra {
			args = append(args, g.render(extra))
		}

		// Omitted offset and default render explicitly (offset 1,
		// default NULL) so the emitted call is self-describing
		if len(args) < 2 {
			args = append(args, "1")
		}

		if len(args) < 3 {
			args = append(args, "NULL")
		}

		return spec.SQLName + "(" + strings.Join(args, ", ") + ") OVER (ORDER BY 1)"
	default:
		g.warn("unhandled window family for %s", v.Name)
		return "NULL /* unsupported function: " + v.Name + " */"
	}
}

// frameBound converts a signed row offset to frame-clause syntax.
func frameBound(offset int) string {
	switch {
	case offset < 0:
		return strconv.Itoa(-offset) + " PRECEDING"
	case offset > 0:
		return strconv.Itoa(offset) + " FOLLOWING"
	default:
		return "CURRENT ROW"
	}
}

// renderFallback emits the migration placeholder with the original
// source preserved in a comment. Comment terminators inside the source
// are defused so the emitted SQL stays parseable.
func (g *Generator) renderFallback(v *parser.Fallback) string {
	original := strings.ReplaceAll(v.Original, "*/", "* /")

	return "'MIGRATION_REQUIRED' /* " + original + " */"
}

// isNonZeroNumeric reports whether a literal is a numeric constant
// other than zero.
func isNonZeroNumeric(lit *parser.Literal) bool {
	switch v := lit.Value.(type) {
	case int64:
		return v != 0
	case decimal.Decimal:
		return !v.IsZero()
	default:
		return false
	}
}

// quoteString renders a single-quoted SQL string literal.
func quoteString(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}
