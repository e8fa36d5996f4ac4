package post

import (
	"strings"

	"gorm.io/gorm"

	"team/models"
)

// ReconcileTags makes the taggings for postID match the desired
// comma-separated tag string, touching as few rows as possible: tags that
// survive the update keep their join rows, dropped tags lose theirs, and
// new tags get fresh rows. Names are trimmed, empty segments discarded,
// duplicates collapsed after id resolution; no case normalization. The
// whole reconciliation runs in one transaction.
func ReconcileTags(db *gorm.DB, postID int, tagString string) error {
	return db.Transaction(func(tx *gorm.DB) error {
		current, err := TagsByPostID(tx, postID)
		if err != nil {
			return err
		}

		stale := make(map[int]bool, len(current))
		for _, t := range current {
			stale[t.ID] = true
		}

		seen := make(map[int]bool)
		var missing []int
		for _, name := range strings.Split(tagString, ",") {
			name = strings.TrimSpace(name)
			if name == "" {
				continue
			}
			id, err := selectOrCreateTag(tx, name)
			if err != nil {
				return err
			}
			if seen[id] {
				continue
			}
			seen[id] = true
			if stale[id] {
				// Survives the update untouched.
				delete(stale, id)
				continue
			}
			missing = append(missing, id)
		}

		for _, tagID := range missing {
			// Existence check guards against a duplicate pair slipping in
			// between resolution and insert.
			var n int64
			if err := tx.Model(&models.Tagging{}).
				Where("post_id = ? AND tag_id = ?", postID, tagID).
				Count(&n).Error; err != nil {
				return err
			}
			if n > 0 {
				continue
			}
			if err := tx.Create(&models.Tagging{PostID: postID, TagID: tagID}).Error; err != nil {
				return err
			}
		}

		for tagID := range stale {
			if err := tx.Where("post_id = ? AND tag_id = ?", postID, tagID).
				Delete(&models.Tagging{}).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// selectOrCreateTag resolves a tag name to its id, creating the tag on
// first reference. Matching is exact and case-sensitive.
func selectOrCreateTag(tx *gorm.DB, name string) (int, error) {
	var tag models.Tag
	err := tx.Where("name = ?", name).First(&tag).Error
	if err == gorm.ErrRecordNotFound {
		tag = models.Tag{Name: name}
		if err := tx.Create(&tag).Error; err != nil {
			return 0, err
		}
		return tag.ID, nil
	}
	if err != nil {
		return 0, err
	}
	return tag.ID, nil
}

// TagsByPostID returns a post's tags, newest first.
func TagsByPostID(db *gorm.DB, postID int) ([]models.Tag, error) {
	var tags []models.Tag
	err := db.Table("tags").
		Select("tags.id, tags.name").
		Joins("JOIN taggings ON taggings.tag_id = tags.id").
		Where("taggings.post_id = ?", postID).
		Order("tags.id DESC").
		Scan(&tags).Error
	return tags, err
}

// TagString joins a post's tag names the way the edit form expects them.
func TagString(tags []models.Tag) string {
	names := make([]string, len(tags))
	for i, t := range tags {
		names[i] = t.Name
	}
	return strings.Join(names, ",")
}
