package post

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"team/models"
)

func setupTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	err = db.AutoMigrate(&models.User{}, &models.Post{}, &models.Tag{}, &models.Tagging{},
		&models.PostComment{}, &models.Stock{}, &models.Pin{}, &models.Notification{})
	require.NoError(t, err)
	return db
}

func tagNames(t *testing.T, db *gorm.DB, postID int) []string {
	tags, err := TagsByPostID(db, postID)
	require.NoError(t, err)
	names := make([]string, 0, len(tags))
	for _, tag := range tags {
		names = append(names, tag.Name)
	}
	return names
}

func TestReconcileTags_CreatesTagsAndTaggings(t *testing.T) {
	db := setupTestDB(t)

	err := ReconcileTags(db, 1, "go, web")
	require.NoError(t, err)

	names := tagNames(t, db, 1)
	assert.ElementsMatch(t, []string{"go", "web"}, names)

	var tagCount, taggingCount int64
	db.Model(&models.Tag{}).Count(&tagCount)
	db.Model(&models.Tagging{}).Count(&taggingCount)
	assert.Equal(t, int64(2), tagCount)
	assert.Equal(t, int64(2), taggingCount)
}

func TestReconcileTags_DeduplicatesInput(t *testing.T) {
	db := setupTestDB(t)

	err := ReconcileTags(db, 1, "a, b, b")
	require.NoError(t, err)

	assert.ElementsMatch(t, []string{"a", "b"}, tagNames(t, db, 1))

	var taggingCount int64
	db.Model(&models.Tagging{}).Count(&taggingCount)
	assert.Equal(t, int64(2), taggingCount)
}

func TestReconcileTags_SkipsEmptySegments(t *testing.T) {
	db := setupTestDB(t)

	err := ReconcileTags(db, 1, " go , , web ,")
	require.NoError(t, err)

	assert.ElementsMatch(t, []string{"go", "web"}, tagNames(t, db, 1))
}

func TestReconcileTags_UpdateKeepsSurvivorsDeletesStale(t *testing.T) {
	db := setupTestDB(t)

	require.NoError(t, ReconcileTags(db, 1, "a,b"))

	var survivor models.Tagging
	require.NoError(t, db.Joins("JOIN tags ON tags.id = taggings.tag_id").
		Where("tags.name = ? AND taggings.post_id = ?", "b", 1).
		Take(&survivor).Error)

	require.NoError(t, ReconcileTags(db, 1, "b,c"))

	assert.ElementsMatch(t, []string{"b", "c"}, tagNames(t, db, 1))

	// The surviving pair keeps its row; only "a" was removed and "c" added.
	var after models.Tagging
	require.NoError(t, db.Joins("JOIN tags ON tags.id = taggings.tag_id").
		Where("tags.name = ? AND taggings.post_id = ?", "b", 1).
		Take(&after).Error)
	assert.Equal(t, survivor.ID, after.ID)

	var taggingCount int64
	db.Model(&models.Tagging{}).Where("post_id = ?", 1).Count(&taggingCount)
	assert.Equal(t, int64(2), taggingCount)
}

func TestReconcileTags_SharedTagAcrossPosts(t *testing.T) {
	db := setupTestDB(t)

	require.NoError(t, ReconcileTags(db, 1, "go"))
	require.NoError(t, ReconcileTags(db, 2, "go"))

	// One tag row, two taggings.
	var tagCount int64
	db.Model(&models.Tag{}).Count(&tagCount)
	assert.Equal(t, int64(1), tagCount)

	require.NoError(t, ReconcileTags(db, 1, ""))

	assert.Empty(t, tagNames(t, db, 1))
	assert.ElementsMatch(t, []string{"go"}, tagNames(t, db, 2))
}

func TestTagString(t *testing.T) {
	tags := []models.Tag{{Name: "go"}, {Name: "web"}}
	assert.Equal(t, "go,web", TagString(tags))
	assert.Equal(t, "", TagString(nil))
}
