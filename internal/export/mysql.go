// Package export mirrors an open package's tables and rows into a live
// MySQL database, for inspection and ETL workflows that want SQL
// tooling over a package's contents.
package export

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"
	"strings"

	_ "github.com/go-sql-driver/mysql"

	"msi/internal/core"
	"msi/internal/msipkg"
)

// Options configures a mirror run.
type Options struct {
	DSN          string
	DropExisting bool
	Out          io.Writer
}

// Exporter connects to a MySQL database and mirrors Package tables into
// it. There is no two-phase commit: each table's CREATE and INSERT
// statements run independently, not wrapped in one cross-table
// transaction.
type Exporter struct {
	db      *sql.DB
	options Options
	out     io.Writer
}

// NewExporter returns an Exporter for the given options.
func NewExporter(options Options) *Exporter {
	out := options.Out
	if out == nil {
		out = io.Discard
	}
	return &Exporter{options: options, out: out}
}

// Connect opens and pings the target database.
func (e *Exporter) Connect(ctx context.Context) error {
	db, err := sql.Open("mysql", e.options.DSN)
	if err != nil {
		return fmt.Errorf("export: failed to open database connection: %w", err)
	}
	if pingErr := db.PingContext(ctx); pingErr != nil {
		if closeErr := db.Close(); closeErr != nil {
			return fmt.Errorf("export: failed to ping database: %w; additionally failed to close connection: %w", pingErr, closeErr)
		}
		return fmt.Errorf("export: failed to ping database: %w", pingErr)
	}
	e.db = db
	return nil
}

// Close releases the underlying connection.
func (e *Exporter) Close() error {
	if e.db != nil {
		return e.db.Close()
	}
	return nil
}

func (e *Exporter) printf(format string, args ...any) {
	fmt.Fprintf(e.out, format, args...)
}

// MirrorTable creates (optionally dropping first) a MySQL table shaped
// after t's columns and copies every row of rows into it.
func (e *Exporter) MirrorTable(ctx context.Context, t *core.Table, rows []core.Row) error {
	if e.options.DropExisting {
		if _, err := e.db.ExecContext(ctx, fmt.Sprintf("DROP TABLE IF EXISTS `%s`", t.Name)); err != nil {
			return fmt.Errorf("export: drop table %s: %w", t.Name, err)
		}
	}

	create := buildCreateTable(t)
	e.printf("-- %s\n", create)
	if _, err := e.db.ExecContext(ctx, create); err != nil {
		return fmt.Errorf("export: create table %s: %w", t.Name, err)
	}

	if len(rows) == 0 {
		return nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(t.Columns)), ",")
	insert := fmt.Sprintf("INSERT INTO `%s` VALUES (%s)", t.Name, placeholders)
	stmt, err := e.db.PrepareContext(ctx, insert)
	if err != nil {
		return fmt.Errorf("export: prepare insert for %s: %w", t.Name, err)
	}
	defer stmt.Close()

	for _, row := range rows {
		args := make([]any, len(row))
		for i, v := range row {
			args[i] = valueArg(v)
		}
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			return fmt.Errorf("export: insert into %s: %w", t.Name, err)
		}
	}
	return nil
}

// MirrorPackage mirrors every table of pkg, in catalog order.
func (e *Exporter) MirrorPackage(ctx context.Context, pkg *msipkg.Package) error {
	for _, name := range pkg.Tables() {
		t, _ := pkg.Table(name)
		res, err := pkg.Query(fmt.Sprintf("SELECT * FROM %s", name))
		if err != nil {
			return err
		}
		if err := e.MirrorTable(ctx, t, res.Rows); err != nil {
			return err
		}
	}
	return nil
}

func buildCreateTable(t *core.Table) string {
	var cols []string
	var pk []string
	for _, c := range t.Columns {
		cols = append(cols, fmt.Sprintf("`%s` %s%s", c.Name, mysqlType(c), nullClause(c)))
		if c.PrimaryKey {
			pk = append(pk, fmt.Sprintf("`%s`", c.Name))
		}
	}
	if len(pk) > 0 {
		cols = append(cols, fmt.Sprintf("PRIMARY KEY (%s)", strings.Join(pk, ", ")))
	}
	return fmt.Sprintf("CREATE TABLE `%s` (%s)", t.Name, strings.Join(cols, ", "))
}

func mysqlType(c *core.Column) string {
	switch c.Type.Kind {
	case core.KindInt16:
		return "SMALLINT"
	case core.KindInt32:
		return "INT"
	case core.KindStr:
		return fmt.Sprintf("VARCHAR(%d)", c.Type.MaxLen)
	default:
		return "TEXT"
	}
}

func nullClause(c *core.Column) string {
	if c.Nullable {
		return ""
	}
	return " NOT NULL"
}

func valueArg(v core.Value) any {
	if v.IsNull() {
		return nil
	}
	if v.Kind() == core.KindStr {
		return v.Str()
	}
	return v.Int()
}

// OpenFromEnv is a small convenience wrapper that reads a DSN from the
// MSI_EXPORT_DSN environment variable, for CLI use where a DSN isn't
// passed as a flag.
func OpenFromEnv() string {
	return os.Getenv("MSI_EXPORT_DSN")
}
