package db

import (
	"os"
	"strconv"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/xxxsen/mshelf/internal/config"
)

func TestDSN(t *testing.T) {
	tests := []struct {
		name string
		cfg  config.DatabaseConfig
		want string
	}{
		{
			name: "explicit dsn wins",
			cfg:  config.DatabaseConfig{DSN: "postgres://x", Host: "ignored"},
			want: "postgres://x",
		},
		{
			name: "defaults sslmode",
			cfg:  config.DatabaseConfig{Host: "db", Port: 5432, DBName: "mshelf"},
			want: "host=db port=5432 dbname=mshelf sslmode=disable",
		},
		{
			name: "quotes credentials",
			cfg:  config.DatabaseConfig{Host: "db", Port: 5433, DBName: "mshelf", User: "app", Password: "it's secret", SSLMode: "require"},
			want: `host=db port=5433 dbname=mshelf sslmode=require user=app password='it\'s secret'`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, DSN(tt.cfg))
		})
	}
}

func TestSplitStatements(t *testing.T) {
	stmts := splitStatements("CREATE TABLE a (id INT);\n\n  CREATE INDEX i ON a (id);\n")
	require.Equal(t, []string{"CREATE TABLE a (id INT)", "CREATE INDEX i ON a (id)"}, stmts)
	require.Empty(t, splitStatements(" ;\n; "))
}

func TestMigrationFiles(t *testing.T) {
	files, err := migrationFiles()
	require.NoError(t, err)
	require.NotEmpty(t, files)
	require.Equal(t, "001_init.sql", files[0])
}

func TestApplyMigrations_Postgres(t *testing.T) {
	host := os.Getenv("TEST_DB_HOST")
	if host == "" {
		t.Skip("TEST_DB_HOST not set")
	}
	port, _ := strconv.Atoi(os.Getenv("TEST_DB_PORT"))
	if port == 0 {
		port = 5432
	}
	conn, err := Open(config.DatabaseConfig{
		Host:     host,
		Port:     port,
		User:     os.Getenv("TEST_DB_USER"),
		Password: os.Getenv("TEST_DB_PASSWORD"),
		DBName:   os.Getenv("TEST_DB_NAME"),
	})
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, ApplyMigrations(conn))
	require.NoError(t, ApplyMigrations(conn), "already applied migrations are skipped")

	var n int
	require.NoError(t, conn.QueryRow("SELECT COUNT(*) FROM schema_migrations WHERE version = '001_init.sql'").Scan(&n))
	require.Equal(t, 1, n)
}
