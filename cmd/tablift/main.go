package main

import (
	"fmt"
	"os"

	"github.com/alecthomas/kong"
)

// CLI represents the command-line interface
var CLI struct {
	Config  string `help:"Configuration file path" default:"tablift.yaml"`
	Verbose bool   `help:"Enable verbose output" short:"v"`
	Quiet   bool   `help:"Suppress output" short:"q"`

	Migrate   MigrateCmd   `cmd:"" help:"Compile every calculated field of a workbook into a SQL view"`
	Compile   CompileCmd   `cmd:"" help:"Compile a single formula and print the SQL expression"`
	Functions FunctionsCmd `cmd:"" help:"List the function mapping table for a dialect"`
	Version   VersionCmd   `cmd:"" help:"Show version information"`
}

// VersionCmd represents the version command
type VersionCmd struct{}

// Run executes the version command
func (cmd *VersionCmd) Run() error {
	fmt.Println("tablift v0.1.0")
	return nil
}

func main() {
	ctx := kong.Parse(&CLI)

	appCtx := &Context{
		Config:  CLI.Config,
		Verbose: CLI.Verbose,
		Quiet:   CLI.Quiet,
	}

	err := ctx.Run(appCtx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
