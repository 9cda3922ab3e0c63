package database

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBuildPostgresDSN(t *testing.T) {
	dsn, err := buildPostgresDSN(Config{
		User:     "warden",
		Password: "secret",
		Name:     "warden",
		Host:     "db.internal",
		Port:     5433,
	})
	require.NoError(t, err)
	require.Equal(t, "host=db.internal port=5433 user=warden dbname=warden password=secret sslmode=disable", dsn)

	dsn, err = buildPostgresDSN(Config{
		User:    "warden",
		Name:    "warden",
		Options: map[string]string{"sslmode": "require"},
	})
	require.NoError(t, err)
	require.Contains(t, dsn, "sslmode=require")

	_, err = buildPostgresDSN(Config{})
	require.Error(t, err)

	dsn, err = buildPostgresDSN(Config{DSN: "postgres://u:p@h/db"})
	require.NoError(t, err)
	require.Equal(t, "postgres://u:p@h/db", dsn)
}

func TestBuildMySQLDSN(t *testing.T) {
	dsn, err := buildMySQLDSN(Config{
		User:     "warden",
		Password: "secret",
		Name:     "warden",
		Host:     "db.internal",
		Port:     3307,
	})
	require.NoError(t, err)
	require.Equal(t, "warden:secret@tcp(db.internal:3307)/warden?charset=utf8mb4&loc=Local&parseTime=True", dsn)

	_, err = buildMySQLDSN(Config{User: "warden"})
	require.Error(t, err)

	dsn, err = buildMySQLDSN(Config{DSN: "u:p@tcp(h)/db"})
	require.NoError(t, err)
	require.Equal(t, "u:p@tcp(h)/db", dsn)
}
