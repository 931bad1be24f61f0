package msipkg

import "msi/internal/core"

// The system tables are not user-visible Package.Table() entries; they
// are fixed schemas this package uses internally to encode/decode the
// catalog.

func tablesSchema() *core.Table {
	t, err := core.NewTable("_Tables", []*core.Column{
		{Name: "Name", Type: core.StrType(62), PrimaryKey: true},
	})
	if err != nil {
		panic(err) // schemas are constants; a failure here is a programming error
	}
	return t
}

func columnsSchema() *core.Table {
	t, err := core.NewTable("_Columns", []*core.Column{
		{Name: "Table", Type: core.StrType(64), PrimaryKey: true},
		{Name: "Number", Type: core.Int16Type, PrimaryKey: true},
		{Name: "Name", Type: core.StrType(64)},
		{Name: "Type", Type: core.Int16Type},
	})
	if err != nil {
		panic(err)
	}
	return t
}

func validationSchema() *core.Table {
	t, err := core.NewTable("_Validation", []*core.Column{
		{Name: "Table", Type: core.StrType(64), PrimaryKey: true},
		{Name: "Column", Type: core.StrType(64), PrimaryKey: true},
		{Name: "Nullable", Type: core.StrType(4)},
		{Name: "MinValue", Type: core.Int32Type, Nullable: true},
		{Name: "MaxValue", Type: core.Int32Type, Nullable: true},
		{Name: "KeyTable", Type: core.StrType(64), Nullable: true},
		{Name: "KeyColumn", Type: core.Int16Type, Nullable: true},
		{Name: "Category", Type: core.StrType(64), Nullable: true},
		{Name: "Set", Type: core.StrType(64), Nullable: true},
		{Name: "Description", Type: core.StrType(255), Nullable: true},
	})
	if err != nil {
		panic(err)
	}
	return t
}
