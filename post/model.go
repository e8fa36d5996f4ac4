package post

import (
	"gorm.io/gorm"

	"team/models"
)

// View is a post row joined with its author and tags, the shape every
// listing and show page renders.
type View struct {
	models.Post
	Username string       `json:"username"`
	IconURL  string       `json:"icon_url"`
	Tags     []models.Tag `json:"tags" gorm:"-"`
}

type CommentView struct {
	models.PostComment
	Username string `json:"username"`
	IconURL  string `json:"icon_url"`
}

const viewColumns = "posts.*, users.username, users.icon_url"

func getByID(db *gorm.DB, id int) (View, error) {
	var v View
	err := db.Table("posts").
		Select(viewColumns).
		Joins("JOIN users ON users.id = posts.user_id").
		Where("posts.id = ?", id).
		Take(&v).Error
	if err != nil {
		return View{}, err
	}
	v.Tags, err = TagsByPostID(db, id)
	return v, err
}

func listPublished(db *gorm.DB, kind string, offset, limit int) ([]View, error) {
	var views []View
	err := db.Table("posts").
		Select(viewColumns).
		Joins("JOIN users ON users.id = posts.user_id").
		Where("posts.kind = ? AND posts.status = ?", kind, "publish").
		Order("posts.id DESC").
		Offset(offset).Limit(limit).
		Scan(&views).Error
	if err != nil {
		return nil, err
	}
	return attachTags(db, views)
}

func countPublished(db *gorm.DB, kind string) (int, error) {
	var n int64
	err := db.Model(&models.Post{}).
		Where("kind = ? AND status = ?", kind, "publish").
		Count(&n).Error
	return int(n), err
}

func draftsByUser(db *gorm.DB, kind string, userID int) ([]View, error) {
	var views []View
	err := db.Table("posts").
		Select(viewColumns).
		Joins("JOIN users ON users.id = posts.user_id").
		Where("posts.kind = ? AND posts.status = ? AND posts.user_id = ?", kind, "draft", userID).
		Order("posts.id DESC").
		Scan(&views).Error
	if err != nil {
		return nil, err
	}
	return attachTags(db, views)
}

func stockedByUser(db *gorm.DB, userID, offset, limit int) ([]View, error) {
	var views []View
	err := db.Table("posts").
		Select(viewColumns).
		Joins("JOIN users ON users.id = posts.user_id").
		Joins("JOIN stocks ON stocks.post_id = posts.id").
		Where("stocks.user_id = ?", userID).
		Order("posts.id DESC").
		Offset(offset).Limit(limit).
		Scan(&views).Error
	if err != nil {
		return nil, err
	}
	return attachTags(db, views)
}

func stockedCount(db *gorm.DB, userID int) (int, error) {
	var n int64
	err := db.Model(&models.Stock{}).Where("user_id = ?", userID).Count(&n).Error
	return int(n), err
}

func pinnedList(db *gorm.DB, offset, limit int) ([]View, error) {
	var views []View
	err := db.Table("posts").
		Select(viewColumns).
		Joins("JOIN users ON users.id = posts.user_id").
		Joins("JOIN pins ON pins.post_id = posts.id").
		Order("posts.id DESC").
		Offset(offset).Limit(limit).
		Scan(&views).Error
	if err != nil {
		return nil, err
	}
	return attachTags(db, views)
}

func pinnedCount(db *gorm.DB) (int, error) {
	var n int64
	err := db.Model(&models.Pin{}).Count(&n).Error
	return int(n), err
}

func attachTags(db *gorm.DB, views []View) ([]View, error) {
	for i := range views {
		tags, err := TagsByPostID(db, views[i].ID)
		if err != nil {
			return nil, err
		}
		views[i].Tags = tags
	}
	return views, nil
}

func commentsByPostID(db *gorm.DB, postID int) ([]CommentView, error) {
	var comments []CommentView
	err := db.Table("post_comments").
		Select("post_comments.*, users.username, users.icon_url").
		Joins("JOIN users ON users.id = post_comments.user_id").
		Where("post_comments.post_id = ?", postID).
		Order("post_comments.id ASC").
		Scan(&comments).Error
	return comments, err
}

func isStocked(db *gorm.DB, userID, postID int) (bool, error) {
	var n int64
	err := db.Model(&models.Stock{}).
		Where("user_id = ? AND post_id = ?", userID, postID).
		Count(&n).Error
	return n > 0, err
}
