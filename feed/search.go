package feed

import (
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"team/account"
	"team/common"
	"team/models"
)

type postRow struct {
	models.Post
	Username string `json:"username"`
	IconURL  string `json:"icon_url"`
}

// TagCount pairs a tag name with how many posts carry it.
type TagCount struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

func (m *FeedModule) search(c *gin.Context) {
	user := account.CurrentUser(c, m.db, m.cfg)
	query := strings.TrimSpace(c.Query("q"))

	var count int64
	pattern := "%" + query + "%"
	err := m.db.Model(&models.Post{}).
		Where("status = ? AND (title LIKE ? OR body LIKE ?)", "publish", pattern, pattern).
		Count(&count).Error
	if err != nil {
		log.Printf("search: count: %v", err)
		c.String(http.StatusInternalServerError, "search failed")
		return
	}
	page := common.Paginate(c.DefaultQuery("page", "1"), int(count))

	var posts []postRow
	err = m.db.Table("posts").
		Select("posts.*, users.username, users.icon_url").
		Joins("JOIN users ON users.id = posts.user_id").
		Where("posts.status = ? AND (posts.title LIKE ? OR posts.body LIKE ?)", "publish", pattern, pattern).
		Order("posts.id DESC").
		Offset(page.Offset).Limit(page.Limit).
		Scan(&posts).Error
	if err != nil {
		log.Printf("search: %v", err)
		c.String(http.StatusInternalServerError, "search failed")
		return
	}

	c.HTML(http.StatusOK, "search.html", gin.H{
		"logged_in":    true,
		"login_user":   user,
		"query":        query,
		"posts":        posts,
		"current_page": page.Current,
		"total_page":   page.Total,
		"next_page":    page.Next,
		"prev_page":    page.Prev,
	})
}

func (m *FeedModule) tagList(c *gin.Context) {
	user := account.CurrentUser(c, m.db, m.cfg)

	var tags []TagCount
	err := m.db.Table("tags").
		Select("tags.name, count(taggings.id) AS count").
		Joins("JOIN taggings ON taggings.tag_id = tags.id").
		Group("tags.id").
		Order("count DESC").
		Scan(&tags).Error
	if err != nil {
		log.Printf("tags: %v", err)
		c.String(http.StatusInternalServerError, "failed to load tags")
		return
	}

	c.HTML(http.StatusOK, "tags.html", gin.H{
		"logged_in":  true,
		"login_user": user,
		"tags":       tags,
	})
}

func (m *FeedModule) tagSearch(c *gin.Context) {
	user := account.CurrentUser(c, m.db, m.cfg)
	name := c.Param("name")

	count, err := countTagged(m.db, name)
	if err != nil {
		log.Printf("tags: count %q: %v", name, err)
		c.String(http.StatusInternalServerError, "failed to load tag")
		return
	}
	page := common.Paginate(c.DefaultQuery("page", "1"), count)

	var posts []postRow
	err = m.db.Table("posts").
		Select("posts.*, users.username, users.icon_url").
		Joins("JOIN users ON users.id = posts.user_id").
		Joins("JOIN taggings ON taggings.post_id = posts.id").
		Joins("JOIN tags ON tags.id = taggings.tag_id").
		Where("tags.name = ? AND posts.status = ?", name, "publish").
		Order("posts.id DESC").
		Offset(page.Offset).Limit(page.Limit).
		Scan(&posts).Error
	if err != nil {
		log.Printf("tags: search %q: %v", name, err)
		c.String(http.StatusInternalServerError, "failed to load tag")
		return
	}

	c.HTML(http.StatusOK, "tag.html", gin.H{
		"logged_in":    true,
		"login_user":   user,
		"tag":          name,
		"posts":        posts,
		"current_page": page.Current,
		"total_page":   page.Total,
		"next_page":    page.Next,
		"prev_page":    page.Prev,
	})
}

func countTagged(db *gorm.DB, name string) (int, error) {
	var count int64
	err := db.Table("posts").
		Joins("JOIN taggings ON taggings.post_id = posts.id").
		Joins("JOIN tags ON tags.id = taggings.tag_id").
		Where("tags.name = ? AND posts.status = ?", name, "publish").
		Count(&count).Error
	return int(count), err
}
