// Package manifest reads a declarative, TOML-based description of a
// package's tables and rows and builds a *msipkg.Package from it, so a
// package can be authored from a data file instead of hand-written Go.
package manifest

import (
	"fmt"
	"io"
	"os"

	"github.com/BurntSushi/toml"

	"msi/internal/cfb"
	"msi/internal/core"
	"msi/internal/msipkg"
	"msi/internal/summary"
)

// tomlManifest is the top-level TOML document.
type tomlManifest struct {
	Package tomlPackage `toml:"package"`
	Tables  []tomlTable `toml:"tables"`
}

type tomlPackage struct {
	CodePage int    `toml:"codepage"`
	Type     string `toml:"type"` // "installer" (default), "patch", or "transform"
	Title    string `toml:"title"`
	Subject  string `toml:"subject"`
	Author   string `toml:"author"`
	Comments string `toml:"comments"`
	AppName  string `toml:"app_name"`
}

type tomlTable struct {
	Name    string       `toml:"name"`
	Columns []tomlColumn `toml:"columns"`
	Rows    [][]any      `toml:"rows"`
}

type tomlColumn struct {
	Name        string `toml:"name"`
	Type        string `toml:"type"` // "int16", "int32", or "str<N>" e.g. "str255"
	Nullable    bool   `toml:"nullable"`
	PrimaryKey  bool   `toml:"primary_key"`
	Localizable bool   `toml:"localizable"`
	Category    string `toml:"category"`
	FKTable     string `toml:"fk_table"`
	FKColumn    string `toml:"fk_column"`
}

// ParseFile opens the file at path and builds a Package from it.
func ParseFile(path string) (*msipkg.Package, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("manifest: open file %q: %w", path, err)
	}
	defer f.Close()
	return Parse(f)
}

// Parse reads a TOML manifest from r and builds a Package from it,
// backed by an in-memory store (callers that need a real CFB container
// copy the resulting Package's tables/rows into their own Store).
func Parse(r io.Reader) (*msipkg.Package, error) {
	var tm tomlManifest
	if _, err := toml.NewDecoder(r).Decode(&tm); err != nil {
		return nil, fmt.Errorf("manifest: decode error: %w", err)
	}
	return build(&tm)
}

func build(tm *tomlManifest) (*msipkg.Package, error) {
	cp := core.CodePage(tm.Package.CodePage)
	if cp == 0 {
		cp = core.CodePageDefault
	}
	ptype, err := parsePackageType(tm.Package.Type)
	if err != nil {
		return nil, err
	}

	pkg, err := msipkg.Create(cfb.NewMemStore(), ptype, cp)
	if err != nil {
		return nil, err
	}

	for _, tt := range tm.Tables {
		cols, err := buildColumns(tt.Columns)
		if err != nil {
			return nil, fmt.Errorf("manifest: table %q: %w", tt.Name, err)
		}
		if _, err := pkg.CreateTable(tt.Name, cols); err != nil {
			return nil, fmt.Errorf("manifest: table %q: %w", tt.Name, err)
		}
		if err := insertRows(pkg, tt); err != nil {
			return nil, fmt.Errorf("manifest: table %q: %w", tt.Name, err)
		}
	}

	if err := setSummary(pkg, tm.Package, cp); err != nil {
		return nil, err
	}

	return pkg, nil
}

func parsePackageType(s string) (msipkg.PackageType, error) {
	switch s {
	case "", "installer":
		return msipkg.Installer, nil
	case "patch":
		return msipkg.Patch, nil
	case "transform":
		return msipkg.Transform, nil
	default:
		return 0, fmt.Errorf("manifest: unrecognized package type %q", s)
	}
}

// setSummary carries the manifest's document metadata into the
// package's summary information stream.
func setSummary(pkg *msipkg.Package, tp tomlPackage, cp core.CodePage) error {
	texts := map[uint32]string{
		summary.PropTitle:    tp.Title,
		summary.PropSubject:  tp.Subject,
		summary.PropAuthor:   tp.Author,
		summary.PropComments: tp.Comments,
		summary.PropAppName:  tp.AppName,
	}
	si := summary.New(cp)
	if err := si.Set(summary.PropCodepage, summary.I2Value(int16(cp))); err != nil {
		return fmt.Errorf("manifest: summary: %w", err)
	}
	wrote := false
	for id, text := range texts {
		if text == "" {
			continue
		}
		if err := si.Set(id, summary.LpstrValue(text)); err != nil {
			return fmt.Errorf("manifest: summary: %w", err)
		}
		wrote = true
	}
	if !wrote {
		return nil
	}
	return pkg.SetSummaryInfo(si)
}

func buildColumns(tcols []tomlColumn) ([]*core.Column, error) {
	cols := make([]*core.Column, 0, len(tcols))
	for _, tc := range tcols {
		ct, err := parseColumnType(tc.Type)
		if err != nil {
			return nil, err
		}
		c := &core.Column{
			Name:        tc.Name,
			Type:        ct,
			Nullable:    tc.Nullable,
			PrimaryKey:  tc.PrimaryKey,
			Localizable: tc.Localizable,
			Category:    core.NormalizeCategory(tc.Category),
		}
		if tc.FKTable != "" {
			c.ValueSet = &core.ValueSet{FKTable: tc.FKTable, FKCol: tc.FKColumn}
		}
		cols = append(cols, c)
	}
	return cols, nil
}

func parseColumnType(s string) (core.ColumnType, error) {
	switch s {
	case "int16":
		return core.Int16Type, nil
	case "int32":
		return core.Int32Type, nil
	}
	var width int
	if n, err := fmt.Sscanf(s, "str%d", &width); n == 1 && err == nil {
		return core.StrType(width), nil
	}
	return core.ColumnType{}, fmt.Errorf("manifest: unrecognized column type %q", s)
}

func insertRows(pkg *msipkg.Package, tt tomlTable) error {
	t, _ := pkg.Table(tt.Name)
	for _, row := range tt.Rows {
		if len(row) != len(t.Columns) {
			return fmt.Errorf("row has %d values, table %q has %d columns", len(row), tt.Name, len(t.Columns))
		}
		query, err := buildInsertQuery(tt.Name, t, row)
		if err != nil {
			return err
		}
		if _, err := pkg.Query(query); err != nil {
			return err
		}
	}
	return nil
}

// buildInsertQuery renders one manifest row as an INSERT statement so
// the same validated execution path (PK/FK/nullability/value-set
// checks, string interning) that Package.Query uses for hand-written
// queries also applies to manifest-declared data.
func buildInsertQuery(table string, t *core.Table, row []any) (string, error) {
	query := "INSERT INTO " + table + " VALUES ("
	for i, v := range row {
		if i > 0 {
			query += ", "
		}
		lit, err := literalFor(t.Columns[i], v)
		if err != nil {
			return "", err
		}
		query += lit
	}
	query += ")"
	return query, nil
}

func literalFor(col *core.Column, v any) (string, error) {
	if v == nil {
		return "NULL", nil
	}
	switch col.Type.Kind {
	case core.KindStr:
		s, ok := v.(string)
		if !ok {
			return "", fmt.Errorf("column %q expects a string value", col.Name)
		}
		return quoteString(s), nil
	default:
		switch n := v.(type) {
		case int64:
			return fmt.Sprintf("%d", n), nil
		case float64:
			return fmt.Sprintf("%d", int64(n)), nil
		default:
			return "", fmt.Errorf("column %q expects an integer value", col.Name)
		}
	}
}

func quoteString(s string) string {
	out := make([]byte, 0, len(s)+2)
	out = append(out, '\'')
	for i := 0; i < len(s); i++ {
		if s[i] == '\'' || s[i] == '\\' {
			out = append(out, '\\')
		}
		out = append(out, s[i])
	}
	out = append(out, '\'')
	return string(out)
}
