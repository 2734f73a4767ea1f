// Package viewgen assembles compiled calculated fields into a single
// CREATE VIEW statement over the base table. Low-confidence fields are
// flagged inline with REVIEW comments so the output can be audited
// top-to-bottom before it is applied.
package viewgen

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/tablift/tablift"
	"github.com/tablift/tablift/compiler"
)

// Options configure one view rendering.
type Options struct {
	// ViewName is the name of the created view.
	ViewName string
	// SourceTable is the table the view selects from.
	SourceTable string
	// Alias is the base-table alias compiled expressions reference;
	// it must match the alias the compiler was configured with.
	Alias string
}

func (o *Options) normalize() {
	if o.Alias == "" {
		o.Alias = "base"
	}

	if o.ViewName == "" {
		o.ViewName = o.SourceTable + "_enriched"
	}
}

// Render produces the full SQL script for one view. Every call gets a
// fresh run identifier in the header so applied scripts can be traced
// back to a migration run.
func Render(opts Options, fields []*compiler.CompiledField) (string, error) {
	if len(fields) == 0 {
		return "", tablift.ErrNoCompiledFields
	}

	if opts.SourceTable == "" {
		return "", fmt.Errorf("%w: source table is required", tablift.ErrConfigValidation)
	}

	opts.normalize()

	var sb strings.Builder

	fmt.Fprintf(&sb, "-- View %s generated from %d calculated field(s)\n", opts.ViewName, len(fields))
	fmt.Fprintf(&sb, "-- Run %s at %s\n", uuid.NewString(), time.Now().UTC().Format(time.RFC3339))

	reviews := 0

	for _, f := range fields {
		if f.RequiresReview() {
			reviews++
		}
	}

	if reviews > 0 {
		fmt.Fprintf(&sb, "-- %d field(s) marked REVIEW below need manual verification\n", reviews)
	}

	sb.WriteString("\n")
	fmt.Fprintf(&sb, "CREATE OR REPLACE VIEW %s AS\nSELECT\n", opts.ViewName)
	fmt.Fprintf(&sb, "    %s.*", opts.Alias)

	// Row-level expressions come first, aggregating expressions after,
	// mirroring the dimension/measure split of the source tool
	writeSection(&sb, "dimensions", fields, false)
	writeSection(&sb, "measures", fields, true)

	fmt.Fprintf(&sb, "\nFROM %s AS %s;\n", opts.SourceTable, opts.Alias)

	return sb.String(), nil
}

func writeSection(sb *strings.Builder, label string, fields []*compiler.CompiledField, aggregating bool) {
	headed := false

	for _, f := range fields {
		if f.RequiresAggregation != aggregating {
			continue
		}

		sb.WriteString(",\n")

		if !headed {
			fmt.Fprintf(sb, "    -- %s\n", label)

			headed = true
		}

		writeAnnotations(sb, f)
		fmt.Fprintf(sb, "    %s AS %s", f.SQL, f.FieldName)
	}
}

// writeAnnotations emits the REVIEW block preceding a field that needs
// human attention: its confidence, complexity, and every diagnostic
// collected along the pipeline.
func writeAnnotations(sb *strings.Builder, f *compiler.CompiledField) {
	if !f.RequiresReview() {
		return
	}

	fmt.Fprintf(sb, "    -- REVIEW %s (confidence %.2f, %s)\n",
		f.FieldName, f.Confidence, f.Complexity)

	for _, d := range f.Diagnostics {
		fmt.Fprintf(sb, "    --   %s\n", d.String())
	}
}
