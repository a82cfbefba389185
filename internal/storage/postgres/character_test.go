package postgres_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/delvegame/delve/internal/protocol"
	"github.com/delvegame/delve/internal/storage/postgres"
	"github.com/delvegame/delve/internal/testutil"
)

func uniqueName(prefix string) string {
	return fmt.Sprintf("%s_%d", prefix, time.Now().UnixNano())
}

func setupCharRepo(t *testing.T) (*postgres.CharacterRepository, postgres.Account) {
	t.Helper()
	pool := testutil.NewPool(t)
	acctRepo := postgres.NewAccountRepository(pool)
	acct, err := acctRepo.Create(context.Background(), uniqueName("user"), "password123")
	require.NoError(t, err)
	return postgres.NewCharacterRepository(pool), acct
}

func warriorStats(name string) protocol.CharacterStats {
	return protocol.CharacterStats{
		Name:         name,
		Strength:     14,
		Intelligence: 10,
		Dexterity:    12,
		Wisdom:       8,
		Constitution: 10,
		Charisma:     12,
		HitPoints:    11,
		MaxHitPoints: 11,
	}
}

func TestCharacterRepository_Create(t *testing.T) {
	repo, acct := setupCharRepo(t)
	ctx := context.Background()

	created, err := repo.Create(ctx, acct.ID, 3, warriorStats("Zara"))
	require.NoError(t, err)

	assert.Greater(t, created.ID, int64(0))
	assert.Equal(t, acct.ID, created.AccountID)
	assert.Equal(t, int32(3), created.SpriteID)
	assert.Equal(t, warriorStats("Zara"), created.Stats)
	assert.False(t, created.CreatedAt.IsZero())
}

func TestCharacterRepository_CreateDuplicateName(t *testing.T) {
	repo, acct := setupCharRepo(t)
	ctx := context.Background()

	_, err := repo.Create(ctx, acct.ID, 3, warriorStats("Zara"))
	require.NoError(t, err)

	_, err = repo.Create(ctx, acct.ID, 3, warriorStats("Zara"))
	assert.ErrorIs(t, err, postgres.ErrCharacterNameTaken)
}

func TestCharacterRepository_SaveCharacterByOwner(t *testing.T) {
	pool := testutil.NewPool(t)
	acctRepo := postgres.NewAccountRepository(pool)
	repo := postgres.NewCharacterRepository(pool)
	ctx := context.Background()

	owner := uniqueName("user")
	acct, err := acctRepo.Create(ctx, owner, "password123")
	require.NoError(t, err)

	require.NoError(t, repo.SaveCharacter(ctx, owner, 5, warriorStats("Brand")))

	chars, err := repo.ListByAccount(ctx, acct.ID)
	require.NoError(t, err)
	require.Len(t, chars, 1)
	assert.Equal(t, "Brand", chars[0].Stats.Name)
	assert.Equal(t, int32(5), chars[0].SpriteID)
}

func TestCharacterRepository_SaveCharacterUnknownOwner(t *testing.T) {
	pool := testutil.NewPool(t)
	repo := postgres.NewCharacterRepository(pool)

	err := repo.SaveCharacter(context.Background(), "nobody", 1, warriorStats("Brand"))
	assert.ErrorIs(t, err, postgres.ErrAccountNotFound)
}

func TestCharacterRepository_ListByAccountOrdersByCreation(t *testing.T) {
	repo, acct := setupCharRepo(t)
	ctx := context.Background()

	_, err := repo.Create(ctx, acct.ID, 1, warriorStats("First"))
	require.NoError(t, err)
	_, err = repo.Create(ctx, acct.ID, 2, warriorStats("Second"))
	require.NoError(t, err)

	chars, err := repo.ListByAccount(ctx, acct.ID)
	require.NoError(t, err)
	require.Len(t, chars, 2)
	assert.Equal(t, "First", chars[0].Stats.Name)
	assert.Equal(t, "Second", chars[1].Stats.Name)
}

func TestCharacterRepository_SaveState(t *testing.T) {
	repo, acct := setupCharRepo(t)
	ctx := context.Background()

	created, err := repo.Create(ctx, acct.ID, 1, warriorStats("Zara"))
	require.NoError(t, err)

	require.NoError(t, repo.SaveState(ctx, created.ID, 4))

	chars, err := repo.ListByAccount(ctx, acct.ID)
	require.NoError(t, err)
	require.Len(t, chars, 1)
	assert.Equal(t, int32(4), chars[0].Stats.HitPoints)
	assert.Equal(t, int32(11), chars[0].Stats.MaxHitPoints)
}

func TestCharacterRepository_SaveStateMissingCharacter(t *testing.T) {
	repo, _ := setupCharRepo(t)
	err := repo.SaveState(context.Background(), 999999, 1)
	assert.ErrorIs(t, err, postgres.ErrCharacterNotFound)
}

func TestCharacterRepository_SaveStateByOwner(t *testing.T) {
	repo, acct := setupCharRepo(t)
	ctx := context.Background()

	_, err := repo.Create(ctx, acct.ID, 1, warriorStats("Zara"))
	require.NoError(t, err)

	require.NoError(t, repo.SaveStateByOwner(ctx, acct.Username, "Zara", 3))

	chars, err := repo.ListByAccount(ctx, acct.ID)
	require.NoError(t, err)
	require.Len(t, chars, 1)
	assert.Equal(t, int32(3), chars[0].Stats.HitPoints)
}

func TestCharacterRepository_SaveStateByOwnerMissing(t *testing.T) {
	repo, acct := setupCharRepo(t)
	ctx := context.Background()

	err := repo.SaveStateByOwner(ctx, acct.Username, "Nobody", 1)
	assert.ErrorIs(t, err, postgres.ErrCharacterNotFound)

	err = repo.SaveStateByOwner(ctx, uniqueName("ghost"), "Zara", 1)
	assert.ErrorIs(t, err, postgres.ErrCharacterNotFound)
}

func TestAccountRepository_CreateAndAuthenticate(t *testing.T) {
	pool := testutil.NewPool(t)
	repo := postgres.NewAccountRepository(pool)
	ctx := context.Background()

	username := uniqueName("user")
	acct, err := repo.Create(ctx, username, "opensesame")
	require.NoError(t, err)
	assert.Greater(t, acct.ID, int64(0))

	got, err := repo.Authenticate(ctx, username, "opensesame")
	require.NoError(t, err)
	assert.Equal(t, acct.ID, got.ID)

	_, err = repo.Authenticate(ctx, username, "wrong")
	assert.ErrorIs(t, err, postgres.ErrInvalidCredentials)

	_, err = repo.Authenticate(ctx, uniqueName("ghost"), "opensesame")
	assert.ErrorIs(t, err, postgres.ErrAccountNotFound)
}

func TestAccountRepository_DuplicateUsername(t *testing.T) {
	pool := testutil.NewPool(t)
	repo := postgres.NewAccountRepository(pool)
	ctx := context.Background()

	username := uniqueName("user")
	_, err := repo.Create(ctx, username, "opensesame")
	require.NoError(t, err)

	_, err = repo.Create(ctx, username, "opensesame")
	assert.ErrorIs(t, err, postgres.ErrAccountExists)
}
