package service

import (
	"context"
	"log/slog"
	"os"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sakif/skilltree/internal/catalog"
	"github.com/sakif/skilltree/internal/model"
	"github.com/sakif/skilltree/internal/repository/sqlite"
)

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func newTestCatalog(t *testing.T) *catalog.Catalog {
	t.Helper()
	c, err := catalog.Default()
	require.NoError(t, err)
	return c
}

// newTestStore returns an in-memory store closed when the test ends.
func newTestStore(t *testing.T) *sqlite.DB {
	t.Helper()
	db, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

// newTestUser creates a fully provisioned user and returns its ID.
func newTestUser(t *testing.T, db *sqlite.DB, c *catalog.Catalog, username string) string {
	t.Helper()
	u := &model.User{Username: username}
	require.NoError(t, db.CreateUser(context.Background(), u, Provisioning(c)))
	return u.ID
}
