package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/fatih/color"

	"github.com/tablift/tablift"
	"github.com/tablift/tablift/compiler"
	"github.com/tablift/tablift/viewgen"
	"github.com/tablift/tablift/workbook"
)

// Context represents the global context for commands
type Context struct {
	Config  string
	Verbose bool
	Quiet   bool
}

// loadConfig loads the configuration and applies a command-line
// dialect override on top of it.
func loadConfig(ctx *Context, dialect string) (*tablift.Config, error) {
	config, err := tablift.LoadConfig(ctx.Config)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	if dialect != "" {
		config.Dialect = dialect
		if err := config.Validate(); err != nil {
			return nil, err
		}
	}

	return config, nil
}

// MigrateCmd represents the migrate command
type MigrateCmd struct {
	Input   string `arg:"" help:"Workbook file (.twb)" type:"path"`
	Table   string `help:"Base table the generated view selects from" required:""`
	View    string `help:"Generated view name (default: <table>_enriched)"`
	Output  string `short:"o" help:"Output directory (default from config)"`
	Dialect string `help:"Target SQL dialect (postgres, mysql, sqlite, bigquery)"`
}

// Run executes the migrate command
func (cmd *MigrateCmd) Run(ctx *Context) error {
	config, err := loadConfig(ctx, cmd.Dialect)
	if err != nil {
		return err
	}

	wb, err := workbook.Load(cmd.Input)
	if err != nil {
		return err
	}

	calculated := wb.CalculatedFields()
	if len(calculated) == 0 {
		return fmt.Errorf("%w: %s has no calculated fields", tablift.ErrNoCompiledFields, cmd.Input)
	}

	if ctx.Verbose {
		color.Blue("Compiling %d calculated field(s) from %s for %s",
			len(calculated), cmd.Input, config.TargetDialect())
	}

	inputs := make([]compiler.Input, len(calculated))
	for i, f := range calculated {
		inputs[i] = compiler.Input{FieldName: f.DisplayName(), Formula: f.Formula}
	}

	config.Generation.SourceTable = cmd.Table

	fields, err := compiler.New(config).CompileAll(context.Background(), inputs)
	if err != nil {
		return fmt.Errorf("compilation failed: %w", err)
	}

	sql, err := viewgen.Render(viewgen.Options{
		ViewName:    cmd.View,
		SourceTable: cmd.Table,
		Alias:       config.Generation.TableAlias,
	}, fields)
	if err != nil {
		return err
	}

	outputDir := cmd.Output
	if outputDir == "" {
		outputDir = config.Generation.OutputDir
	}

	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	viewName := cmd.View
	if viewName == "" {
		viewName = cmd.Table + "_enriched"
	}

	outputPath := filepath.Join(outputDir, viewName+".sql")
	if err := os.WriteFile(outputPath, []byte(sql), 0o644); err != nil {
		return fmt.Errorf("failed to write view file: %w", err)
	}

	reviews := 0

	for _, f := range fields {
		if f.RequiresReview() {
			reviews++

			if ctx.Verbose {
				color.Yellow("  %s: confidence %.2f (%s)", f.FieldName, f.Confidence, f.Complexity)

				for _, d := range f.Diagnostics {
					color.Yellow("    %s", d)
				}
			}
		}
	}

	if !ctx.Quiet {
		color.Green("Wrote %s (%d fields)", outputPath, len(fields))

		if reviews > 0 {
			color.Yellow("%d field(s) need review; see REVIEW comments in the output", reviews)
		}
	}

	return nil
}

// CompileCmd represents the compile command
type CompileCmd struct {
	Formula string `arg:"" help:"Formula text to compile"`
	Name    string `help:"Field name for the result" default:"calculation"`
	Dialect string `help:"Target SQL dialect (postgres, mysql, sqlite, bigquery)"`
}

// Run executes the compile command
func (cmd *CompileCmd) Run(ctx *Context) error {
	config, err := loadConfig(ctx, cmd.Dialect)
	if err != nil {
		return err
	}

	field, err := compiler.New(config).Compile(cmd.Name, cmd.Formula)
	if err != nil {
		return err
	}

	fmt.Println(field.SQL)

	if ctx.Quiet {
		return nil
	}

	fmt.Printf("-- type: %s, complexity: %s, confidence: %.2f\n",
		field.DataType, field.Complexity, field.Confidence)

	if len(field.Dependencies) > 0 {
		fmt.Printf("-- depends on: %s\n", strings.Join(field.Dependencies, ", "))
	}

	for _, d := range field.Diagnostics {
		if d.Severity == tablift.SeverityError {
			color.Red("-- %s", d)
		} else {
			color.Yellow("-- %s", d)
		}
	}

	return nil
}

// FunctionsCmd represents the functions command
type FunctionsCmd struct {
	Dialect string `help:"Target SQL dialect (postgres, mysql, sqlite, bigquery)"`
}

// Run executes the functions command
func (cmd *FunctionsCmd) Run(ctx *Context) error {
	dialect, ok := tablift.ParseDialect(cmd.Dialect)
	if !ok {
		return fmt.Errorf("%w: %s", tablift.ErrUnknownDialect, cmd.Dialect)
	}

	mappings := tablift.Mappings()

	names := make([]string, 0, len(mappings.Scalar))
	for name := range mappings.Scalar {
		names = append(names, name)
	}

	sort.Strings(names)

	for _, name := range names {
		sql, _ := mappings.ScalarFor(dialect, name)
		fmt.Printf("%-12s %s\n", name, sql)
	}

	windows := make([]string, 0, len(mappings.Window))
	for name := range mappings.Window {
		windows = append(windows, name)
	}

	sort.Strings(windows)

	for _, name := range windows {
		spec, _ := mappings.WindowFor(name)
		fmt.Printf("%-12s %s() OVER (...)\n", name, spec.SQLName)
	}

	return nil
}
