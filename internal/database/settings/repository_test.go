package settings

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/mrlokans/bookshelf/internal/entities"
)

func setupTestDB(t *testing.T) *Repository {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "settings.db")

	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	err = db.AutoMigrate(&entities.Setting{})
	require.NoError(t, err)

	t.Cleanup(func() {
		sqlDB, _ := db.DB()
		sqlDB.Close()
	})

	return NewRepository(db)
}

func TestRepository_SetSetting_New(t *testing.T) {
	repo := setupTestDB(t)
	ctx := context.Background()

	err := repo.SetSetting(ctx, 1, "theme", "dark")
	require.NoError(t, err)

	setting, err := repo.GetSetting(ctx, 1, "theme")
	require.NoError(t, err)
	assert.Equal(t, "theme", setting.Key)
	assert.Equal(t, "dark", setting.Value)
	assert.Equal(t, uint(1), setting.UserID)
}

func TestRepository_SetSetting_Update(t *testing.T) {
	repo := setupTestDB(t)
	ctx := context.Background()

	require.NoError(t, repo.SetSetting(ctx, 1, "theme", "light"))
	require.NoError(t, repo.SetSetting(ctx, 1, "theme", "dark"))

	setting, err := repo.GetSetting(ctx, 1, "theme")
	require.NoError(t, err)
	assert.Equal(t, "dark", setting.Value)
}

func TestRepository_SettingsArePerUser(t *testing.T) {
	repo := setupTestDB(t)
	ctx := context.Background()

	require.NoError(t, repo.SetSetting(ctx, 1, "theme", "dark"))
	require.NoError(t, repo.SetSetting(ctx, 2, "theme", "sepia"))

	first, err := repo.GetSetting(ctx, 1, "theme")
	require.NoError(t, err)
	second, err := repo.GetSetting(ctx, 2, "theme")
	require.NoError(t, err)

	assert.Equal(t, "dark", first.Value)
	assert.Equal(t, "sepia", second.Value)
}

func TestRepository_GetSetting_NotFound(t *testing.T) {
	repo := setupTestDB(t)

	_, err := repo.GetSetting(context.Background(), 1, "nonexistent")

	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestRepository_DeleteSetting(t *testing.T) {
	repo := setupTestDB(t)
	ctx := context.Background()

	require.NoError(t, repo.SetSetting(ctx, 1, "to-delete", "value"))
	require.NoError(t, repo.DeleteSetting(ctx, 1, "to-delete"))

	_, err := repo.GetSetting(ctx, 1, "to-delete")
	assert.Error(t, err)

	// Should not error even if key doesn't exist
	assert.NoError(t, repo.DeleteSetting(ctx, 1, "nonexistent"))
}

func TestRepository_JSONRoundTrip(t *testing.T) {
	repo := setupTestDB(t)
	ctx := context.Background()

	var view entities.ViewState
	found, err := repo.GetJSON(ctx, 1, entities.SettingKeyViewState, &view)
	require.NoError(t, err)
	assert.False(t, found)

	want := entities.ViewState{
		View:          entities.ViewList,
		Theme:         entities.ThemeSepia,
		SearchQuery:   "tolkien",
		SortBy:        entities.SortByAuthor,
		SortDirection: entities.SortDesc,
	}
	require.NoError(t, repo.SetJSON(ctx, 1, entities.SettingKeyViewState, want))

	found, err = repo.GetJSON(ctx, 1, entities.SettingKeyViewState, &view)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, want, view)
}
