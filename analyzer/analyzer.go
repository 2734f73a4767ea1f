// Package analyzer walks a completed formula AST to extract field
// dependencies, classify structural complexity, and score how much of
// the tree survived parsing. It is a pure function over the tree and
// never mutates it.
package analyzer

import (
	"sort"

	"github.com/tablift/tablift"
	"github.com/tablift/tablift/parser"
)

// Complexity buckets a formula for migration-effort reporting.
type Complexity string

const (
	ComplexitySimple  Complexity = "simple"
	ComplexityMedium  Complexity = "medium"
	ComplexityComplex Complexity = "complex"
)

// Thresholds are the depth limits of the complexity classifier.
type Thresholds struct {
	MaxSimpleDepth int
	MaxMediumDepth int
}

// DefaultThresholds returns the documented defaults (3 and 6).
func DefaultThresholds() Thresholds {
	return Thresholds{MaxSimpleDepth: 3, MaxMediumDepth: 6}
}

// Analysis is the result of walking one AST.
type Analysis struct {
	// Dependencies is the sorted, duplicate-free set of normalized
	// field names reachable anywhere in the tree, including scoped
	// aggregate dimension lists and function arguments.
	Dependencies []string
	Complexity   Complexity
	// Confidence estimates in [0,1] how trustworthy the compiled
	// field is, derived from the fraction of the tree that is
	// Fallback. Informational only; it never blocks output.
	Confidence float64

	NodeCount        int
	Depth            int
	FallbackCount    int
	FunctionCount    int
	ConditionalCount int
	WindowCount      int
	ScopedCount      int
	// RequiresAggregation is true when any aggregate function appears.
	RequiresAggregation bool
}

// Analyze computes dependencies, complexity, and confidence for a tree.
func Analyze(root parser.Node, thresholds Thresholds) Analysis {
	if thresholds.MaxSimpleDepth <= 0 {
		thresholds = DefaultThresholds()
	}

	w := &walker{deps: map[string]bool{}, funcs: tablift.Mappings()}
	w.visit(root, 1)

	deps := make([]string, 0, len(w.deps))
	for name := range w.deps {
		deps = append(deps, name)
	}

	sort.Strings(deps)

	a := Analysis{
		Dependencies:        deps,
		NodeCount:           w.nodes,
		Depth:               w.depth,
		FallbackCount:       w.fallbacks,
		FunctionCount:       w.functions,
		ConditionalCount:    w.conditionals,
		WindowCount:         w.windows,
		ScopedCount:         w.scoped,
		RequiresAggregation: w.aggregates,
	}
	a.Complexity = classify(&a, w, thresholds)
	a.Confidence = confidence(&a)

	return a
}

type walker struct {
	deps  map[string]bool
	funcs *tablift.FuncMap

	nodes        int
	depth        int
	fallbacks    int
	functions    int
	conditionals int
	windows      int
	scoped       int
	nestedCase   bool
	aggregates   bool
	caseDepth    int
}

func (w *walker) visit(n parser.Node, depth int) {
	if n == nil {
		return
	}

	w.nodes++
	if depth > w.depth {
		w.depth = depth
	}

	switch v := n.(type) {
	case *parser.Literal:
	case *parser.FieldRef:
		w.deps[v.Name] = true
	case *parser.Arithmetic:
		w.visit(v.Left, depth+1)
		w.visit(v.Right, depth+1)
	case *parser.Comparison:
		w.visit(v.Left, depth+1)
		w.visit(v.Right, depth+1)
	case *parser.Logical:
		w.visit(v.Left, depth+1)
		w.visit(v.Right, depth+1)
	case *parser.Conditional:
		w.conditionals++
		w.visit(v.Condition, depth+1)
		w.visit(v.Then, depth+1)
		w.visit(v.Else, depth+1)
	case *parser.Case:
		w.conditionals++

		if w.caseDepth > 0 {
			w.nestedCase = true
		}

		w.caseDepth++
		w.visit(v.Subject, depth+1)

		for _, when := range v.Whens {
			w.visit(when.Match, depth+1)
			w.visit(when.Result, depth+1)
		}

		w.visit(v.Else, depth+1)
		w.caseDepth--
	case *parser.FunctionCall:
		w.functions++

		if w.funcs.IsAggregate(v.Name) {
			w.aggregates = true
		}

		for _, arg := range v.Args {
			w.visit(arg, depth+1)
		}
	case *parser.ScopedAggregate:
		w.scoped++

		for _, dim := range v.Dimensions {
			w.deps[dim] = true
		}

		w.visit(v.Expr, depth+1)
	case *parser.WindowCall:
		w.windows++
		w.visit(v.Arg, depth+1)

		for _, extra := range v.Extra {
			w.visit(extra, depth+1)
		}
	case *parser.Fallback:
		w.fallbacks++
	}
}

// classify buckets the tree by the structural categories it contains.
// Arithmetic-only trees are simple; conditionals and functions lift to
// medium; scoped aggregates, window calls, nested CASE, or excessive
// depth lift to complex.
func classify(a *Analysis, w *walker, th Thresholds) Complexity {
	switch {
	case a.ScopedCount > 0 || a.WindowCount > 0 || w.nestedCase || a.Depth > th.MaxMediumDepth:
		return ComplexityComplex
	case a.ConditionalCount > 0 || a.FunctionCount > 0 || a.Depth > th.MaxSimpleDepth:
		return ComplexityMedium
	default:
		return ComplexitySimple
	}
}

// confidence starts at 1.0 and deducts per Fallback node, plus an
// extra deduction proportional to the fraction of the tree that is
// Fallback. A formula that is nothing but a Fallback lands at 0.3.
func confidence(a *Analysis) float64 {
	c := 1.0

	if a.FallbackCount > 0 && a.NodeCount > 0 {
		fraction := float64(a.FallbackCount) / float64(a.NodeCount)
		c -= 0.3*float64(a.FallbackCount) + 0.4*fraction
	}

	if c < 0 {
		c = 0
	}

	return c
}

// InferDataType guesses the result type of an expression without a
// live schema. Comparisons and logic yield boolean, arithmetic yields
// real, conditionals follow their THEN branch.
func InferDataType(n parser.Node) parser.DataType {
	switch v := n.(type) {
	case *parser.Literal:
		return v.Type
	case *parser.Arithmetic:
		return parser.TypeReal
	case *parser.Comparison, *parser.Logical:
		return parser.TypeBoolean
	case *parser.Conditional:
		return InferDataType(v.Then)
	case *parser.Case:
		if len(v.Whens) > 0 {
			return InferDataType(v.Whens[0].Result)
		}

		return parser.TypeUnknown
	case *parser.ScopedAggregate:
		return InferDataType(v.Expr)
	case *parser.FunctionCall:
		if tablift.Mappings().IsAggregate(v.Name) {
			return parser.TypeReal
		}

		return parser.TypeUnknown
	case *parser.WindowCall:
		return parser.TypeReal
	default:
		return parser.TypeUnknown
	}
}
