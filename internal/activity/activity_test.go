package activity

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/evcraddock/churchdesk/internal/db"
)

func openTestDB(t *testing.T) *sqlx.DB {
	t.Helper()
	d, err := db.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = d.Close() })
	return d
}

func TestRecordAndList(t *testing.T) {
	d := openTestDB(t)
	ctx := context.Background()

	_, err := d.Exec(`INSERT INTO users (email, name, role) VALUES ('pastor@example.org', 'Pastor Ann', 'admin')`)
	require.NoError(t, err)

	type snap struct {
		Status string `json:"status"`
	}
	actx := WithActor(ctx, 1)
	require.NoError(t, Record(actx, d, ActionCreate, "equipment", 7, nil, snap{Status: "good"}))
	require.NoError(t, Record(actx, d, ActionUpdate, "equipment", 7, snap{Status: "good"}, snap{Status: "damaged"}))
	require.NoError(t, Record(ctx, d, ActionCreate, "visitor", 3, nil, snap{Status: "new_visitor"}))

	entries, err := List(ctx, d, Filter{EntityType: "equipment", EntityID: 7})
	require.NoError(t, err)
	require.Len(t, entries, 2)

	latest := entries[0]
	assert.Equal(t, ActionUpdate, latest.Action)
	assert.Equal(t, "Pastor Ann", latest.Actor())
	assert.JSONEq(t, `{"status":"good"}`, latest.Before.String)
	assert.JSONEq(t, `{"status":"damaged"}`, latest.After.String)
	assert.Len(t, latest.ID, 36)

	created := entries[1]
	assert.False(t, created.Before.Valid, "create has no before snapshot")

	all, err := List(ctx, d, Filter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "system", all[0].Actor())
}

func TestRecordRollsBackWithTransaction(t *testing.T) {
	d := openTestDB(t)
	ctx := context.Background()

	boom := errors.New("boom")
	err := db.WithTx(ctx, d, func(tx *sqlx.Tx) error {
		if err := Record(ctx, tx, ActionDelete, "visitor", 1, map[string]string{"first_name": "Bo"}, nil); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	entries, err := List(ctx, d, Filter{})
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestListLimit(t *testing.T) {
	d := openTestDB(t)
	ctx := context.Background()

	for i := int64(1); i <= 5; i++ {
		require.NoError(t, Record(ctx, d, ActionCreate, "member", i, nil, nil))
	}

	entries, err := List(ctx, d, Filter{Limit: 2})
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, int64(5), entries[0].EntityID)
}

func TestActorContext(t *testing.T) {
	_, ok := ActorFrom(context.Background())
	assert.False(t, ok)

	id, ok := ActorFrom(WithActor(context.Background(), 42))
	assert.True(t, ok)
	assert.Equal(t, int64(42), id)
}
