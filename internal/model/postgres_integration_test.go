//go:build integration && postgres

package model

import (
	"context"
	"encoding/json"
	"os"
	"testing"
	"time"

	"github.com/joho/godotenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/R3E-Network/model_layer/internal/database"
	"github.com/R3E-Network/model_layer/internal/database/migrations"
	"github.com/R3E-Network/model_layer/internal/errors"
	"github.com/R3E-Network/model_layer/internal/identity"
	"github.com/R3E-Network/model_layer/internal/logging"
	"github.com/R3E-Network/model_layer/internal/model/filter"
)

// Runs the executor against a real Postgres with the embedded migrations.
// The target database is wiped.
func TestIntegrationPostgres(t *testing.T) {
	_ = godotenv.Load() // allow .env for local runs
	dsn := os.Getenv("TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("TEST_POSTGRES_DSN not set; skipping Postgres integration")
	}

	ctx := context.Background()
	require.NoError(t, migrations.Down(dsn))
	require.NoError(t, migrations.Up(dsn))

	db, err := database.Open(ctx, database.Options{URL: dsn, MaxConns: 5, ConnectRetries: 3}, logging.NewDiscard())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, migrations.Seed(ctx, db.DB))

	mm := NewManager(db, 3*time.Second)
	c, err := identity.New(1000)
	require.NoError(t, err)

	for _, title := range []string{"t-01.a", "t-02.a", "t-03", "t-04"} {
		_, err := TaskBmc.Create(ctx, c, mm, TaskForCreate{Title: title})
		require.NoError(t, err)
	}

	groups, err := filter.Decode(json.RawMessage(`[{"title": {"$endsWith": ".a", "$containsAny": ["01", "02"]}}, {"title": {"$contains": "03"}}]`))
	require.NoError(t, err)
	opts, err := filter.DecodeListOptions(json.RawMessage(`{"order_bys": "!title"}`))
	require.NoError(t, err)

	tasks, err := TaskBmc.List(ctx, c, mm, groups, opts)
	require.NoError(t, err)
	var titles []string
	for _, task := range tasks {
		titles = append(titles, task.Title)
	}
	assert.Equal(t, []string{"t-03", "t-02.a", "t-01.a"}, titles)

	offset := int64(1)
	page, err := TaskBmc.List(ctx, c, mm, nil, &filter.ListOptions{Offset: &offset})
	require.NoError(t, err)
	assert.Len(t, page, 4) // seed task + 4 created, minus the first

	_, err = TaskBmc.Get(ctx, c, mm, 100)
	assert.True(t, errors.IsKind(err, errors.KindEntityNotFound))

	demo, err := FirstByUsername[User](ctx, identity.Root(), mm, migrations.DemoUsername)
	require.NoError(t, err)
	require.NotNil(t, demo)
}
