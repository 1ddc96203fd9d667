package swipes

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/sparkmeet/sparkmeet-backend/pkg/db/models"
	"github.com/sparkmeet/sparkmeet-backend/pkg/enums"
)

func setupSwipesTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	schema := `
CREATE TABLE IF NOT EXISTS swipe_actions (
  actor_id TEXT NOT NULL,
  target_id TEXT NOT NULL,
  decision TEXT NOT NULL,
  created_at DATETIME,
  PRIMARY KEY (actor_id, target_id)
);`
	require.NoError(t, db.Exec(schema).Error)
	return db
}

func TestInsertAndGet(t *testing.T) {
	db := setupSwipesTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	actor, target := uuid.New(), uuid.New()
	require.NoError(t, repo.Insert(ctx, &models.SwipeAction{
		ActorID:  actor,
		TargetID: target,
		Decision: enums.SwipeDecisionLike,
	}))

	row, err := repo.Get(ctx, actor, target)
	require.NoError(t, err)
	require.NotNil(t, row)
	assert.Equal(t, enums.SwipeDecisionLike, row.Decision)

	// The reverse direction is a distinct pair.
	reverse, err := repo.Get(ctx, target, actor)
	require.NoError(t, err)
	assert.Nil(t, reverse)
}

func TestInsertDuplicatePairFails(t *testing.T) {
	db := setupSwipesTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	actor, target := uuid.New(), uuid.New()
	swipe := &models.SwipeAction{ActorID: actor, TargetID: target, Decision: enums.SwipeDecisionPass}
	require.NoError(t, repo.Insert(ctx, swipe))

	err := repo.Insert(ctx, &models.SwipeAction{ActorID: actor, TargetID: target, Decision: enums.SwipeDecisionLike})
	require.Error(t, err)

	// The stored decision is untouched.
	row, err := repo.Get(ctx, actor, target)
	require.NoError(t, err)
	require.NotNil(t, row)
	assert.Equal(t, enums.SwipeDecisionPass, row.Decision)
}

func TestLockPairOnlyLocksOnPostgres(t *testing.T) {
	db := setupSwipesTestDB(t)
	repo := NewRepository(db)

	// sqlite serializes writers itself; the advisory lock must not be
	// attempted against a dialect that has no such function.
	require.NoError(t, repo.LockPair(context.Background(), uuid.New(), uuid.New()))
}

func TestHasPositive(t *testing.T) {
	db := setupSwipesTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	liker, passer, target := uuid.New(), uuid.New(), uuid.New()
	require.NoError(t, repo.Insert(ctx, &models.SwipeAction{ActorID: liker, TargetID: target, Decision: enums.SwipeDecisionSuperLike}))
	require.NoError(t, repo.Insert(ctx, &models.SwipeAction{ActorID: passer, TargetID: target, Decision: enums.SwipeDecisionPass}))

	positive, err := repo.HasPositive(ctx, liker, target)
	require.NoError(t, err)
	assert.True(t, positive)

	positive, err = repo.HasPositive(ctx, passer, target)
	require.NoError(t, err)
	assert.False(t, positive)

	positive, err = repo.HasPositive(ctx, target, liker)
	require.NoError(t, err)
	assert.False(t, positive)
}

func TestCountPositiveSince(t *testing.T) {
	db := setupSwipesTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	actor := uuid.New()
	now := time.Now().UTC()
	rows := []*models.SwipeAction{
		{ActorID: actor, TargetID: uuid.New(), Decision: enums.SwipeDecisionLike, CreatedAt: now.Add(-time.Hour)},
		{ActorID: actor, TargetID: uuid.New(), Decision: enums.SwipeDecisionSuperLike, CreatedAt: now.Add(-2 * time.Hour)},
		{ActorID: actor, TargetID: uuid.New(), Decision: enums.SwipeDecisionPass, CreatedAt: now.Add(-time.Hour)},
		{ActorID: actor, TargetID: uuid.New(), Decision: enums.SwipeDecisionLike, CreatedAt: now.Add(-30 * time.Hour)},
		{ActorID: uuid.New(), TargetID: uuid.New(), Decision: enums.SwipeDecisionLike, CreatedAt: now.Add(-time.Hour)},
	}
	for _, row := range rows {
		require.NoError(t, repo.Insert(ctx, row))
	}

	count, err := repo.CountPositiveSince(ctx, actor, now.Add(-24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)
}
