package audit

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/familyspend/ExpenseTracker/internal/db/dbtest"
)

func TestPostgresStore(t *testing.T) {
	db := dbtest.NewPostgres(t)
	store := NewPostgresStore(db)
	ctx := context.Background()

	alice, bob := uuid.New(), uuid.New()
	now := time.Now().UTC().Truncate(time.Millisecond)

	entries := []Entry{
		{Action: ActionLogin, Resource: ResourceUser, UserID: &alice, CreatedAt: now.Add(-200 * 24 * time.Hour)},
		{Action: ActionCreate, Resource: ResourceExpenses, UserID: &alice, ResourceID: "e1", Success: true, CreatedAt: now.Add(-time.Hour)},
		{Action: ActionExport, Resource: ResourceExpenses, UserID: &alice, ResourceID: ResourceIDList, Success: true, CreatedAt: now},
		{Action: ActionLogin, Resource: ResourceUser, UserID: &bob, Success: true, CreatedAt: now},
		{Action: ActionLogin, Resource: ResourceUser, CreatedAt: now},
	}
	for _, entry := range entries {
		entry.normalize(now)
		require.NoError(t, store.Write(ctx, entry))
	}

	own, total, err := store.List(ctx, ListQuery{UserID: &alice, Page: 1, Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	require.Len(t, own, 2)
	assert.Equal(t, ActionExport, own[0].Action)
	assert.Equal(t, ActionCreate, own[1].Action)
	assert.Equal(t, alice, *own[0].UserID)

	all, total, err := store.List(ctx, ListQuery{})
	require.NoError(t, err)
	assert.Equal(t, 5, total)
	assert.Len(t, all, 5)

	deleted, err := store.DeleteOlderThan(ctx, now.Add(-90*24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	_, total, err = store.List(ctx, ListQuery{UserID: &alice})
	require.NoError(t, err)
	assert.Equal(t, 2, total)
}

func TestPostgresStore_WritesUnsanitaryRequestFields(t *testing.T) {
	db := dbtest.NewPostgres(t)
	store := NewPostgresStore(db)
	ctx := context.Background()

	entry := Entry{
		Action:     ActionDelete,
		Resource:   ResourceCategories,
		ResourceID: "\xff\x00" + strings.Repeat("я", 150),
		UserAgent:  "agent\x00\xc3",
	}
	entry.normalize(time.Now())
	require.NoError(t, store.Write(ctx, entry))

	stored, total, err := store.List(ctx, ListQuery{})
	require.NoError(t, err)
	require.Equal(t, 1, total)
	assert.Equal(t, entry.ResourceID, stored[0].ResourceID)
}
