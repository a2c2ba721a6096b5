package user

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/familyspend/ExpenseTracker/internal/db/dbtest"
)

func TestUserRepository_Postgres(t *testing.T) {
	db := dbtest.NewPostgres(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	t.Run("create and lookup is case-insensitive", func(t *testing.T) {
		dbtest.Truncate(t, db)
		user := &User{Email: "alice@example.com", Name: "Alice", Role: RoleUser, PasswordHash: "hash", HashToken: "token"}
		require.NoError(t, repo.Create(ctx, user))
		assert.NotEqual(t, uuid.Nil, user.ID)
		assert.False(t, user.CreatedAt.IsZero())

		found, err := repo.GetByEmail(ctx, "ALICE@example.com")
		require.NoError(t, err)
		assert.Equal(t, user.ID, found.ID)

		exists, err := repo.ExistsByEmail(ctx, "Alice@Example.com")
		require.NoError(t, err)
		assert.True(t, exists)
	})

	t.Run("duplicate email maps to conflict", func(t *testing.T) {
		dbtest.Truncate(t, db)
		require.NoError(t, repo.Create(ctx, &User{Email: "bob@example.com", Name: "Bob", Role: RoleUser, PasswordHash: "h", HashToken: "t"}))

		err := repo.Create(ctx, &User{Email: "BOB@example.com", Name: "Bob 2", Role: RoleUser, PasswordHash: "h", HashToken: "t"})
		assert.ErrorIs(t, err, ErrEmailAlreadyExists)
	})

	t.Run("missing user", func(t *testing.T) {
		dbtest.Truncate(t, db)
		_, err := repo.GetByID(ctx, uuid.New())
		assert.ErrorIs(t, err, ErrUserNotFound)

		err = repo.UpdatePasswordAndHashToken(ctx, uuid.New(), "h", "t")
		assert.ErrorIs(t, err, ErrUserNotFound)
	})

	t.Run("update password rotates hash token", func(t *testing.T) {
		dbtest.Truncate(t, db)
		user := &User{Email: "carol@example.com", Name: "Carol", Role: RoleAdmin, PasswordHash: "old", HashToken: "old-token"}
		require.NoError(t, repo.Create(ctx, user))

		require.NoError(t, repo.UpdatePasswordAndHashToken(ctx, user.ID, "new", "new-token"))

		found, err := repo.GetByID(ctx, user.ID)
		require.NoError(t, err)
		assert.Equal(t, "new", found.PasswordHash)
		assert.Equal(t, "new-token", found.HashToken)
		assert.True(t, found.IsAdmin())
	})

	t.Run("update profile", func(t *testing.T) {
		dbtest.Truncate(t, db)
		first := &User{Email: "d@example.com", Name: "D", Role: RoleUser, PasswordHash: "h", HashToken: "t"}
		second := &User{Email: "e@example.com", Name: "E", Role: RoleUser, PasswordHash: "h", HashToken: "t"}
		require.NoError(t, repo.Create(ctx, first))
		require.NoError(t, repo.Create(ctx, second))

		first.Name = "Dee"
		require.NoError(t, repo.UpdateProfile(ctx, first))

		second.Email = "d@example.com"
		assert.ErrorIs(t, repo.UpdateProfile(ctx, second), ErrEmailAlreadyExists)
	})
}
