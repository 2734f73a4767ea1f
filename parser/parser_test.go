package parser

import (
	"testing"

	"github.com/alecthomas/assert/v2"
	"github.com/shopspring/decimal"

	"github.com/tablift/tablift"
)

func parseClean(t *testing.T, formula string) Node {
	t.Helper()

	root, diags := Parse(formula)
	assert.Equal(t, 0, len(diags), "unexpected diagnostics for %q: %v", formula, diags)

	return root
}

func TestPrecedenceMultiplicationOverAddition(t *testing.T) {
	root := parseClean(t, "1 + 2 * 3")

	add, ok := root.(*Arithmetic)
	assert.True(t, ok)
	assert.Equal(t, "+", add.Operator)

	mul, ok := add.Right.(*Arithmetic)
	assert.True(t, ok)
	assert.Equal(t, "*", mul.Operator)
}

func TestPrecedenceComparisonOverLogical(t *testing.T) {
	root := parseClean(t, "[A] > 1 AND [B] < 2")

	and, ok := root.(*Logical)
	assert.True(t, ok)
	assert.Equal(t, "AND", and.Operator)

	_, ok = and.Left.(*Comparison)
	assert.True(t, ok)
	_, ok = and.Right.(*Comparison)
	assert.True(t, ok)
}

func TestPrecedenceOrWeakerThanAnd(t *testing.T) {
	root := parseClean(t, "[A] AND [B] OR [C]")

	or, ok := root.(*Logical)
	assert.True(t, ok)
	assert.Equal(t, "OR", or.Operator)

	and, ok := or.Left.(*Logical)
	assert.True(t, ok)
	assert.Equal(t, "AND", and.Operator)
}

func TestLeftAssociativity(t *testing.T) {
	root := parseClean(t, "10 - 4 - 3")

	outer, ok := root.(*Arithmetic)
	assert.True(t, ok)
	assert.Equal(t, "-", outer.Operator)

	// ((10 - 4) - 3), not (10 - (4 - 3))
	inner, ok := outer.Left.(*Arithmetic)
	assert.True(t, ok)
	assert.Equal(t, "-", inner.Operator)

	lit, ok := outer.Right.(*Literal)
	assert.True(t, ok)
	assert.Equal(t, int64(3), lit.Value.(int64))
}

func TestPowerRightAssociative(t *testing.T) {
	root := parseClean(t, "2 ^ 3 ^ 2")

	outer, ok := root.(*Arithmetic)
	assert.True(t, ok)
	assert.Equal(t, "^", outer.Operator)

	left, ok := outer.Left.(*Literal)
	assert.True(t, ok)
	assert.Equal(t, int64(2), left.Value.(int64))

	inner, ok := outer.Right.(*Arithmetic)
	assert.True(t, ok)
	assert.Equal(t, "^", inner.Operator)
}

func TestUnaryMinusBindsWeakerThanPower(t *testing.T) {
	// -2^2 must parse as -(2^2)
	root := parseClean(t, "-2 ^ 2")

	neg, ok := root.(*Arithmetic)
	assert.True(t, ok)
	assert.Equal(t, "-", neg.Operator)

	zero, ok := neg.Left.(*Literal)
	assert.True(t, ok)
	assert.Equal(t, int64(0), zero.Value.(int64))

	pow, ok := neg.Right.(*Arithmetic)
	assert.True(t, ok)
	assert.Equal(t, "^", pow.Operator)
}

func TestNegativeExponent(t *testing.T) {
	root := parseClean(t, "2 ^ -3")

	pow, ok := root.(*Arithmetic)
	assert.True(t, ok)
	assert.Equal(t, "^", pow.Operator)

	exp, ok := pow.Right.(*Literal)
	assert.True(t, ok)
	assert.Equal(t, int64(-3), exp.Value.(int64))
}

func TestUnaryMinusFoldsIntoLiterals(t *testing.T) {
	root := parseClean(t, "-42")
	lit, ok := root.(*Literal)
	assert.True(t, ok)
	assert.Equal(t, int64(-42), lit.Value.(int64))
	assert.Equal(t, TypeInteger, lit.Type)

	root = parseClean(t, "-1.5")
	lit, ok = root.(*Literal)
	assert.True(t, ok)
	assert.Equal(t, TypeReal, lit.Type)
	assert.True(t, lit.Value.(decimal.Decimal).Equal(decimal.RequireFromString("-1.5")))
}

func TestUnaryMinusOnFieldBecomesZeroMinus(t *testing.T) {
	root := parseClean(t, "-[Sales]")

	sub, ok := root.(*Arithmetic)
	assert.True(t, ok)
	assert.Equal(t, "-", sub.Operator)

	zero, ok := sub.Left.(*Literal)
	assert.True(t, ok)
	assert.Equal(t, int64(0), zero.Value.(int64))

	_, ok = sub.Right.(*FieldRef)
	assert.True(t, ok)
}

func TestNotUnary(t *testing.T) {
	root := parseClean(t, "NOT [Active]")

	not, ok := root.(*Logical)
	assert.True(t, ok)
	assert.Equal(t, "NOT", not.Operator)
	assert.Zero(t, not.Right)
}

func TestFieldRefNormalization(t *testing.T) {
	root := parseClean(t, "[Sales Amount (USD)]")

	ref, ok := root.(*FieldRef)
	assert.True(t, ok)
	assert.Equal(t, "sales_amount_usd", ref.Name)
	assert.Equal(t, "[Sales Amount (USD)]", ref.Original)
}

func TestLiterals(t *testing.T) {
	tests := []struct {
		formula string
		value   any
		dtype   DataType
	}{
		{"'hello'", "hello", TypeString},
		{"42", int64(42), TypeInteger},
		{"TRUE", true, TypeBoolean},
		{"false", false, TypeBoolean},
		{"NULL", nil, TypeNull},
	}

	for _, tt := range tests {
		t.Run(tt.formula, func(t *testing.T) {
			root := parseClean(t, tt.formula)

			lit, ok := root.(*Literal)
			assert.True(t, ok)
			assert.Equal(t, tt.dtype, lit.Type)
			assert.Equal(t, tt.value, lit.Value)
		})
	}
}

func TestIfThenElse(t *testing.T) {
	root := parseClean(t, "IF [Sales] > 100 THEN 'high' ELSE 'low' END")

	cond, ok := root.(*Conditional)
	assert.True(t, ok)

	_, ok = cond.Condition.(*Comparison)
	assert.True(t, ok)

	then, ok := cond.Then.(*Literal)
	assert.True(t, ok)
	assert.Equal(t, "high", then.Value.(string))

	els, ok := cond.Else.(*Literal)
	assert.True(t, ok)
	assert.Equal(t, "low", els.Value.(string))
}

func TestIfWithoutElseGetsNull(t *testing.T) {
	root := parseClean(t, "IF [A] THEN 1 END")

	cond, ok := root.(*Conditional)
	assert.True(t, ok)

	els, ok := cond.Else.(*Literal)
	assert.True(t, ok)
	assert.Equal(t, TypeNull, els.Type)
}

func TestElseifChainNestsRight(t *testing.T) {
	formula := "IF [A] THEN 1 ELSEIF [B] THEN 2 ELSEIF [C] THEN 3 ELSE 4 END"
	root := parseClean(t, formula)

	first, ok := root.(*Conditional)
	assert.True(t, ok)

	second, ok := first.Else.(*Conditional)
	assert.True(t, ok)

	third, ok := second.Else.(*Conditional)
	assert.True(t, ok)

	final, ok := third.Else.(*Literal)
	assert.True(t, ok)
	assert.Equal(t, int64(4), final.Value.(int64))
}

func TestSimpleCase(t *testing.T) {
	root := parseClean(t, "CASE [Region] WHEN 'east' THEN 1 WHEN 'west' THEN 2 ELSE 0 END")

	c, ok := root.(*Case)
	assert.True(t, ok)
	assert.NotZero(t, c.Subject)
	assert.Equal(t, 2, len(c.Whens))
	assert.NotZero(t, c.Else)
}

func TestSearchedCase(t *testing.T) {
	root := parseClean(t, "CASE WHEN [Sales] > 100 THEN 'big' END")

	c, ok := root.(*Case)
	assert.True(t, ok)
	assert.Zero(t, c.Subject)
	assert.Equal(t, 1, len(c.Whens))
	assert.Zero(t, c.Else)

	_, ok = c.Whens[0].Match.(*Comparison)
	assert.True(t, ok)
}

func TestCaseRequiresWhen(t *testing.T) {
	root, diags := Parse("CASE [Region] END")

	_, ok := root.(*Fallback)
	assert.True(t, ok)
	assert.Equal(t, 1, len(diags))
	assert.Equal(t, tablift.SeverityError, diags[0].Severity)
}

func TestFunctionCall(t *testing.T) {
	root := parseClean(t, "IFNULL([Sales], 0)")

	call, ok := root.(*FunctionCall)
	assert.True(t, ok)
	assert.Equal(t, "IFNULL", call.Name)
	assert.Equal(t, 2, len(call.Args))
}

func TestFunctionNameUppercased(t *testing.T) {
	root := parseClean(t, "sum([Sales])")

	call, ok := root.(*FunctionCall)
	assert.True(t, ok)
	assert.Equal(t, "SUM", call.Name)
}

func TestScopedAggregateFixed(t *testing.T) {
	root := parseClean(t, "{FIXED [Region], [Category] : SUM([Sales])}")

	scoped, ok := root.(*ScopedAggregate)
	assert.True(t, ok)
	assert.Equal(t, ScopeFixed, scoped.Scope)
	assert.Equal(t, []string{"region", "category"}, scoped.Dimensions)

	call, ok := scoped.Expr.(*FunctionCall)
	assert.True(t, ok)
	assert.Equal(t, "SUM", call.Name)
}

func TestScopedAggregateDuplicateDimensionsCollapse(t *testing.T) {
	root := parseClean(t, "{EXCLUDE [Region], [Region] : AVG([Profit])}")

	scoped, ok := root.(*ScopedAggregate)
	assert.True(t, ok)
	assert.Equal(t, ScopeExclude, scoped.Scope)
	assert.Equal(t, []string{"region"}, scoped.Dimensions)
}

func TestScopedAggregateNesting(t *testing.T) {
	root := parseClean(t, "{FIXED [Region] : SUM({INCLUDE [State] : AVG([Sales])})}")

	outer, ok := root.(*ScopedAggregate)
	assert.True(t, ok)
	assert.Equal(t, ScopeFixed, outer.Scope)

	call, ok := outer.Expr.(*FunctionCall)
	assert.True(t, ok)

	inner, ok := call.Args[0].(*ScopedAggregate)
	assert.True(t, ok)
	assert.Equal(t, ScopeInclude, inner.Scope)
}

func TestScopedAggregateFixedInsideInclude(t *testing.T) {
	root := parseClean(t, "{INCLUDE [State] : AVG({FIXED [Region] : SUM([Sales])})}")

	outer, ok := root.(*ScopedAggregate)
	assert.True(t, ok)
	assert.Equal(t, ScopeInclude, outer.Scope)
	assert.Equal(t, []string{"state"}, outer.Dimensions)

	call, ok := outer.Expr.(*FunctionCall)
	assert.True(t, ok)

	inner, ok := call.Args[0].(*ScopedAggregate)
	assert.True(t, ok)
	assert.Equal(t, ScopeFixed, inner.Scope)
	assert.Equal(t, []string{"region"}, inner.Dimensions)
}

func TestScopedAggregateRequiresScopeKeyword(t *testing.T) {
	root, diags := Parse("{[Region] : SUM([Sales])}")

	_, ok := root.(*Fallback)
	assert.True(t, ok)
	assert.Equal(t, 1, len(diags))
}

func TestWindowRanking(t *testing.T) {
	root := parseClean(t, "RANK(SUM([Sales]), 'desc')")

	call, ok := root.(*WindowCall)
	assert.True(t, ok)
	assert.Equal(t, "RANK", call.Name)
	assert.Equal(t, "desc", call.Order)
	assert.NotZero(t, call.Arg)
}

func TestWindowRankingDefaultsAscending(t *testing.T) {
	root := parseClean(t, "RANK(SUM([Sales]))")

	call, ok := root.(*WindowCall)
	assert.True(t, ok)
	assert.Equal(t, "asc", call.Order)
}

func TestWindowRankingUnknownDirectionWarns(t *testing.T) {
	root, diags := Parse("RANK(SUM([Sales]), 'sideways')")

	call, ok := root.(*WindowCall)
	assert.True(t, ok)
	assert.Equal(t, "asc", call.Order)
	assert.Equal(t, 1, len(diags))
	assert.Equal(t, tablift.SeverityWarning, diags[0].Severity)
}

func TestRowNumberWithoutArgument(t *testing.T) {
	root := parseClean(t, "ROW_NUMBER()")

	call, ok := root.(*WindowCall)
	assert.True(t, ok)
	assert.Zero(t, call.Arg)
}

func TestWindowRunning(t *testing.T) {
	root := parseClean(t, "RUNNING_SUM(SUM([Sales]))")

	call, ok := root.(*WindowCall)
	assert.True(t, ok)
	assert.Equal(t, "RUNNING_SUM", call.Name)
	assert.Zero(t, call.Frame)
}

func TestWindowFramed(t *testing.T) {
	root := parseClean(t, "WINDOW_AVG(SUM([Sales]), -2, 0)")

	call, ok := root.(*WindowCall)
	assert.True(t, ok)
	assert.NotZero(t, call.Frame)
	assert.Equal(t, -2, call.Frame.Start)
	assert.Equal(t, 0, call.Frame.End)
}

func TestWindowFramedDefaultFrame(t *testing.T) {
	root := parseClean(t, "WINDOW_SUM(SUM([Sales]))")

	call, ok := root.(*WindowCall)
	assert.True(t, ok)
	assert.Zero(t, call.Frame)
}

func TestWindowOffsetExtras(t *testing.T) {
	root := parseClean(t, "LAG(SUM([Sales]), 1, 0)")

	call, ok := root.(*WindowCall)
	assert.True(t, ok)
	assert.Equal(t, "LAG", call.Name)
	assert.Equal(t, 2, len(call.Extra))
}

func TestMalformedInputDegradesToFallback(t *testing.T) {
	tests := []struct {
		name    string
		formula string
	}{
		{"dangling operator", "[Sales] +"},
		{"unclosed paren", "(1 + 2"},
		{"missing THEN", "IF [A] 1 END"},
		{"missing END", "IF [A] THEN 1"},
		{"unclosed brace", "{FIXED [Region] : SUM([Sales])"},
		{"lone operator", "*"},
		{"empty formula", ""},
		{"unknown character", "1 + @"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			root, diags := Parse(tt.formula)

			assert.NotZero(t, root)

			errors := 0
			for _, d := range diags {
				if d.Severity == tablift.SeverityError {
					errors++
				}
			}

			assert.Equal(t, 1, errors, "exactly one error diagnostic for %q", tt.formula)
			assert.True(t, containsFallback(root), "tree for %q must contain a Fallback", tt.formula)
		})
	}
}

func TestFallbackCarriesOriginalText(t *testing.T) {
	root, _ := Parse("IF [A] THEN 1")

	fb := findFallback(root)
	assert.NotZero(t, fb)
	assert.NotEqual(t, "", fb.Original)
}

func TestTrailingInputWarns(t *testing.T) {
	root, diags := Parse("1 + 2 3")

	_, ok := root.(*Arithmetic)
	assert.True(t, ok)
	assert.Equal(t, 1, len(diags))
	assert.Equal(t, tablift.SeverityWarning, diags[0].Severity)
}

func TestParenthesesOverridePrecedence(t *testing.T) {
	root := parseClean(t, "(1 + 2) * 3")

	mul, ok := root.(*Arithmetic)
	assert.True(t, ok)
	assert.Equal(t, "*", mul.Operator)

	add, ok := mul.Left.(*Arithmetic)
	assert.True(t, ok)
	assert.Equal(t, "+", add.Operator)
}

func containsFallback(n Node) bool {
	return findFallback(n) != nil
}

func findFallback(n Node) *Fallback {
	switch v := n.(type) {
	case *Fallback:
		return v
	case *Arithmetic:
		if fb := findFallback(v.Left); fb != nil {
			return fb
		}

		return findFallback(v.Right)
	case *Comparison:
		if fb := findFallback(v.Left); fb != nil {
			return fb
		}

		return findFallback(v.Right)
	case *Logical:
		if fb := findFallback(v.Left); fb != nil {
			return fb
		}

		if v.Right != nil {
			return findFallback(v.Right)
		}

		return nil
	case *Conditional:
		for _, child := range []Node{v.Condition, v.Then, v.Else} {
			if fb := findFallback(child); fb != nil {
				return fb
			}
		}

		return nil
	case *Case:
		if v.Subject != nil {
			if fb := findFallback(v.Subject); fb != nil {
				return fb
			}
		}

		for _, when := range v.Whens {
			if fb := findFallback(when.Match); fb != nil {
				return fb
			}

			if fb := findFallback(when.Result); fb != nil {
				return fb
			}
		}

		if v.Else != nil {
			return findFallback(v.Else)
		}

		return nil
	case *FunctionCall:
		for _, arg := range v.Args {
			if fb := findFallback(arg); fb != nil {
				return fb
			}
		}

		return nil
	case *ScopedAggregate:
		return findFallback(v.Expr)
	case *WindowCall:
		if v.Arg != nil {
			if fb := findFallback(v.Arg); fb != nil {
				return fb
			}
		}

		for _, extra := range v.Extra {
			if fb := findFallback(extra); fb != nil {
				return fb
			}
		}

		return nil
	default:
		return nil
	}
}

func TestNormalizeFieldName(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"Sales Amount", "sales_amount"},
		{"Profit Ratio (%)", "profit_ratio"},
		{"  Order Date  ", "order_date"},
		{"already_clean", "already_clean"},
		{"Multi   Space", "multi_space"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, NormalizeFieldName(tt.input))
	}
}
