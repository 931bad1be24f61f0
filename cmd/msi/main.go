// Package main contains the cli implementation of the tool. It uses cobra
// package for cli tool implementation.
package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/spf13/cobra"

	"msi/internal/core"
	"msi/internal/export"
	"msi/internal/manifest"
	"msi/internal/msipkg"
)

type queryFlags struct {
	headers bool
}

type exportFlags struct {
	dsn     string
	drop    bool
	timeout int
}

func main() {
	rootCmd := &cobra.Command{
		Use:   "msi",
		Short: "Windows Installer package tool",
	}

	rootCmd.AddCommand(tablesCmd())
	rootCmd.AddCommand(queryCmd())
	rootCmd.AddCommand(summaryCmd())
	rootCmd.AddCommand(exportCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func tablesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tables <manifest.toml>",
		Short: "List a package's tables and schemas",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			return runTables(args[0])
		},
	}
}

func runTables(manifestPath string) error {
	pkg, err := manifest.ParseFile(manifestPath)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "TABLE\tCOLUMN\tTYPE\tNULL\tKEY")
	for _, name := range pkg.Tables() {
		t, _ := pkg.Table(name)
		for _, c := range t.Columns {
			null, key := "", ""
			if c.Nullable {
				null = "YES"
			}
			if c.PrimaryKey {
				key = "PK"
			}
			typ := c.Type.String()
			if c.Type.Kind == core.KindStr {
				typ = fmt.Sprintf("STR(%d)", c.Type.MaxLen)
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", name, c.Name, typ, null, key)
		}
	}
	return w.Flush()
}

func queryCmd() *cobra.Command {
	flags := &queryFlags{}
	cmd := &cobra.Command{
		Use:   "query <manifest.toml> <statement> [statement...]",
		Short: "Run query statements against a package",
		Long: `Builds the package described by the manifest and runs each statement
against it in order. SELECT results print as aligned columns; INSERT,
UPDATE, and DELETE report nothing unless they fail.

Examples:
  msi query pkg.toml "SELECT * FROM File WHERE FileSize > 1024"
  msi query pkg.toml "INSERT INTO Property (Property, Value) VALUES ('X', '1')" "SELECT * FROM Property"`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(_ *cobra.Command, args []string) error {
			return runQuery(args[0], args[1:], flags)
		},
	}
	cmd.Flags().BoolVar(&flags.headers, "headers", true, "Print a header row above SELECT results")
	return cmd
}

func runQuery(manifestPath string, statements []string, flags *queryFlags) error {
	pkg, err := manifest.ParseFile(manifestPath)
	if err != nil {
		return err
	}

	for _, src := range statements {
		results, err := pkg.Exec(src)
		if err != nil {
			return fmt.Errorf("statement %q: %w", src, err)
		}
		for _, res := range results {
			if err := printResult(res, flags.headers); err != nil {
				return err
			}
		}
	}
	return nil
}

func printResult(res *msipkg.QueryResult, headers bool) error {
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	if headers {
		for i, c := range res.Columns {
			if i > 0 {
				fmt.Fprint(w, "\t")
			}
			fmt.Fprint(w, c)
		}
		fmt.Fprintln(w)
	}
	for _, row := range res.Rows {
		for i, v := range row {
			if i > 0 {
				fmt.Fprint(w, "\t")
			}
			fmt.Fprint(w, v.String())
		}
		fmt.Fprintln(w)
	}
	return w.Flush()
}

func summaryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "summary <manifest.toml>",
		Short: "Show a package's summary information",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			return runSummary(args[0])
		},
	}
}

func runSummary(manifestPath string) error {
	pkg, err := manifest.ParseFile(manifestPath)
	if err != nil {
		return err
	}
	si, err := pkg.SummaryInfo()
	if err != nil {
		return err
	}

	fmt.Printf("package type: %s\n", pkg.Type())
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	for _, id := range si.IDs() {
		v, _ := si.Get(id)
		fmt.Fprintf(w, "%d\t%s\n", id, v.String())
	}
	return w.Flush()
}

func exportCmd() *cobra.Command {
	flags := &exportFlags{}
	cmd := &cobra.Command{
		Use:   "export <manifest.toml>",
		Short: "Mirror a package's tables into a MySQL database",
		Long: `Builds the package described by the manifest and mirrors every table
and its rows into the target database, so the package's contents can be
inspected with ordinary SQL tooling.

Examples:
  msi export pkg.toml --dsn "user:pass@tcp(localhost:3306)/mydb"
  msi export pkg.toml --dsn "user:pass@tcp(localhost:3306)/mydb" --drop`,
		Args: cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			return runExport(args[0], flags)
		},
	}
	cmd.Flags().StringVar(&flags.dsn, "dsn", "", "Database connection string (required)")
	cmd.Flags().BoolVar(&flags.drop, "drop", false, "Drop existing tables of the same name first")
	cmd.Flags().IntVar(&flags.timeout, "timeout", 300, "Connection timeout in seconds")
	return cmd
}

func runExport(manifestPath string, flags *exportFlags) error {
	if flags.dsn == "" {
		dsn := export.OpenFromEnv()
		if dsn == "" {
			return fmt.Errorf("--dsn is required")
		}
		flags.dsn = dsn
	}

	pkg, err := manifest.ParseFile(manifestPath)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(flags.timeout)*time.Second)
	defer cancel()

	exporter := export.NewExporter(export.Options{
		DSN:          flags.dsn,
		DropExisting: flags.drop,
		Out:          os.Stdout,
	})
	fmt.Printf("connecting to database\n")
	if err := exporter.Connect(ctx); err != nil {
		return err
	}
	defer func() {
		if err := exporter.Close(); err != nil {
			fmt.Printf("failed to close database connection: %v\n", err)
		}
	}()

	if err := exporter.MirrorPackage(ctx, pkg); err != nil {
		return err
	}
	fmt.Printf("mirrored %d table(s)\n", len(pkg.Tables()))
	return nil
}
