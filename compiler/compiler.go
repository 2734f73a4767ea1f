// Package compiler ties the pipeline together: tokenize, parse,
// analyze, and generate SQL for a calculated field. Compilation is
// total for any non-blank input; the only errors are blank names or
// blank formulas, everything else degrades into the result's
// diagnostics and confidence score.
package compiler

import (
	"context"
	"fmt"
	"runtime"
	"strings"
	"sync"

	"github.com/tablift/tablift"
	"github.com/tablift/tablift/analyzer"
	"github.com/tablift/tablift/parser"
	"github.com/tablift/tablift/sqlgen"
)

// Input is one calculated field to compile.
type Input struct {
	FieldName string
	Formula   string
}

// CompiledField is the full result for one calculated field.
type CompiledField struct {
	// FieldName is the normalized SQL identifier; OriginalName keeps
	// the source spelling.
	FieldName    string
	OriginalName string
	Formula      string

	AST          parser.Node
	SQL          string
	DataType     parser.DataType
	Dependencies []string
	Complexity   analyzer.Complexity
	// RequiresAggregation is true when the expression collapses rows;
	// view assembly uses it to separate dimensions from measures.
	RequiresAggregation bool

	// Confidence in [0,1]; anything below 1.0 deserves review before
	// the generated SQL ships.
	Confidence  float64
	Diagnostics []tablift.Diagnostic
}

// RequiresReview reports whether a human should look at the output
// before trusting it.
func (f *CompiledField) RequiresReview() bool {
	return f.Confidence < 1.0 || len(f.Diagnostics) > 0
}

// Compiler compiles calculated fields for one dialect and threshold
// configuration. Safe for concurrent use.
type Compiler struct {
	dialect    tablift.Dialect
	alias      string
	table      string
	thresholds analyzer.Thresholds
	workers    int
}

// New builds a compiler from a validated config.
func New(cfg *tablift.Config) *Compiler {
	return &Compiler{
		dialect: cfg.TargetDialect(),
		alias:   cfg.Generation.TableAlias,
		table:   cfg.Generation.SourceTable,
		thresholds: analyzer.Thresholds{
			MaxSimpleDepth: cfg.Analyzer.MaxSimpleDepth,
			MaxMediumDepth: cfg.Analyzer.MaxMediumDepth,
		},
		workers: cfg.Generation.Workers,
	}
}

// Compile runs one formula through the whole pipeline.
func (c *Compiler) Compile(fieldName, formula string) (*CompiledField, error) {
	if strings.TrimSpace(fieldName) == "" {
		return nil, fmt.Errorf("%w: field name is blank", tablift.ErrEmptyFieldName)
	}

	if strings.TrimSpace(formula) == "" {
		return nil, fmt.Errorf("%w: field %q", tablift.ErrEmptyFormula, fieldName)
	}

	root, diags := parser.Parse(formula)
	analysis := analyzer.Analyze(root, c.thresholds)

	sql, genWarnings := sqlgen.New(c.dialect, c.alias, c.table).Generate(root)
	diags = append(diags, genWarnings...)

	confidence := analysis.Confidence
	for _, d := range diags {
		if d.Severity == tablift.SeverityWarning {
			confidence -= 0.1
		}
	}

	if confidence < 0 {
		confidence = 0
	}

	return &CompiledField{
		FieldName:           parser.NormalizeFieldName(fieldName),
		OriginalName:        fieldName,
		Formula:             formula,
		AST:                 root,
		SQL:                 sql,
		DataType:            analyzer.InferDataType(root),
		Dependencies:        analysis.Dependencies,
		Complexity:          analysis.Complexity,
		RequiresAggregation: analysis.RequiresAggregation,
		Confidence:          confidence,
		Diagnostics:         diags,
	}, nil
}

// CompileAll compiles a batch concurrently, preserving input order in
// the result slice. It stops early only on context cancellation or a
// blank input.
func (c *Compiler) CompileAll(ctx context.Context, inputs []Input) ([]*CompiledField, error) {
	if len(inputs) == 0 {
		return nil, nil
	}

	workers := c.workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	if workers > len(inputs) {
		workers = len(inputs)
	}

	var (
		results  = make([]*CompiledField, len(inputs))
		indexes  = make(chan int)
		wg       sync.WaitGroup
		mu       sync.Mutex
		firstErr error
	)

	for range workers {
		wg.Add(1)

		go func() {
			defer wg.Done()

			for i := range indexes {
				field, err := c.Compile(inputs[i].FieldName, inputs[i].Formula)
				if err != nil {
					mu.Lock()
					if firstErr == nil {
						firstErr = err
					}
					mu.Unlock()

					continue
				}

				results[i] = field
			}
		}()
	}

feed:
	for i := range inputs {
		select {
		case indexes <- i:
		case <-ctx.Done():
			break feed
		}
	}

	close(indexes)
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if firstErr != nil {
		return nil, firstErr
	}

	return results, nil
}
