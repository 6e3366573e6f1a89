package dedupe

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"testing"
	"time"

	_ "github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// openTestDB connects to TEST_DATABASE_URL or skips the test
func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	db, err := sql.Open("postgres", url)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, db.Ping())
	return db
}

func TestTracker_RecordAndHas(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	tracker, err := NewTracker(ctx, db)
	require.NoError(t, err)

	uid := fmt.Sprintf("test_%d", time.Now().UnixNano())
	t.Cleanup(func() {
		db.Exec(`DELETE FROM alt_update_ledger WHERE asset_uid = $1`, uid)
	})

	has, err := tracker.Has(ctx, uid, "en-us")
	require.NoError(t, err)
	assert.False(t, has)

	require.NoError(t, tracker.Record(ctx, uid, "en-us", "A red bicycle", "run-1"))
	require.NoError(t, tracker.Record(ctx, uid, "en-us", "A red bike", "run-2"))

	has, err = tracker.Has(ctx, uid, "en-us")
	require.NoError(t, err)
	assert.True(t, has)

	has, err = tracker.Has(ctx, uid, "fr-fr")
	require.NoError(t, err)
	assert.False(t, has)

	entry, err := tracker.Get(ctx, uid, "en-us")
	require.NoError(t, err)
	assert.Equal(t, "A red bike", entry.AltText)
	assert.Equal(t, "run-2", entry.RunID)
	assert.Equal(t, 2, entry.UpdateCount)
}
