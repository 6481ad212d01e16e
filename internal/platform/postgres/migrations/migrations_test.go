package migrations

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/phrazzld/todos-api/internal/platform/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollect(t *testing.T) {
	versions, err := Collect()
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2, 3}, versions)
}

func TestEmbeddedMigrationsHaveBothDirections(t *testing.T) {
	entries, err := files.ReadDir(".")
	require.NoError(t, err)
	require.NotEmpty(t, entries)

	for _, entry := range entries {
		content, err := files.ReadFile(entry.Name())
		require.NoError(t, err)
		assert.Contains(t, string(content), "-- +goose Up", entry.Name())
		assert.Contains(t, string(content), "-- +goose Down", entry.Name())
	}
}

func TestRun_UnknownCommand(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	err = Run(context.Background(), db, "reset", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown migration command: reset")
}

func TestSlogGooseLogger(t *testing.T) {
	l, buf := logger.GetTestLogger(t)
	gl := &slogGooseLogger{logger: l}

	gl.Printf("OK   %s\n", "00001_create_users.sql")
	gl.Fatalf("failed: %v", "boom")

	info := buf.EntriesWithMessage(t, "OK   00001_create_users.sql")
	require.Len(t, info, 1)
	assert.Equal(t, "INFO", info[0]["level"])

	errs := buf.EntriesWithMessage(t, "failed: boom")
	require.Len(t, errs, 1)
	assert.Equal(t, "ERROR", errs[0]["level"])
}
