package export

import (
	"context"
	"database/sql"
	"testing"

	_ "github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go/modules/mysql"

	"msi/internal/cfb"
	"msi/internal/core"
	"msi/internal/msipkg"
)

type testMySQLContainer struct {
	container *mysql.MySQLContainer
	dsn       string
	db        *sql.DB
}

func setupMySQL(t *testing.T) *testMySQLContainer {
	t.Helper()
	ctx := context.Background()

	mysqlContainer, err := mysql.Run(ctx, "mysql:8.0",
		mysql.WithDatabase("testdb"),
		mysql.WithUsername("root"),
		mysql.WithPassword("testpass"),
	)
	require.NoError(t, err, "failed to start MySQL container")

	t.Cleanup(func() {
		if err := mysqlContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	})

	dsn, err := mysqlContainer.ConnectionString(ctx, "parseTime=true")
	require.NoError(t, err, "failed to get connection string")

	db, err := sql.Open("mysql", dsn)
	require.NoError(t, err, "failed to open direct DB connection")
	require.NoError(t, db.PingContext(ctx), "failed to ping database")
	t.Cleanup(func() {
		if err := db.Close(); err != nil {
			t.Errorf("failed to close DB connection: %v", err)
		}
	})

	return &testMySQLContainer{container: mysqlContainer, dsn: dsn, db: db}
}

func TestExporterMirrorPackageIntegration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	tc := setupMySQL(t)
	ctx := context.Background()

	store := cfb.NewMemStore()
	pkg, err := msipkg.Create(store, msipkg.Installer, core.CodePageDefault)
	require.NoError(t, err)
	_, err = pkg.CreateTable("Foo", []*core.Column{
		{Name: "Id", Type: core.Int16Type, PrimaryKey: true},
		{Name: "Name", Type: core.StrType(32), Nullable: true},
	})
	require.NoError(t, err)
	_, err = pkg.Query("INSERT INTO Foo (Id, Name) VALUES (1, 'alpha')")
	require.NoError(t, err)

	exporter := NewExporter(Options{DSN: tc.dsn, DropExisting: true})
	require.NoError(t, exporter.Connect(ctx))
	defer exporter.Close()

	require.NoError(t, exporter.MirrorPackage(ctx, pkg))

	rows, err := tc.db.QueryContext(ctx, "SELECT Id, Name FROM Foo")
	require.NoError(t, err)
	defer rows.Close()

	require.True(t, rows.Next())
	var id int
	var name sql.NullString
	require.NoError(t, rows.Scan(&id, &name))
	assert.Equal(t, 1, id)
	assert.Equal(t, "alpha", name.String)
}
