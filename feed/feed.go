package feed

import (
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"team/account"
	"team/common"
	"team/config"
)

type FeedModule struct {
	db  *gorm.DB
	cfg *config.Config
}

func NewFeedModule(db *gorm.DB, cfg *config.Config) *FeedModule {
	return &FeedModule{db: db, cfg: cfg}
}

func (m *FeedModule) RegisterRoutes(router *gin.Engine) {
	router.GET("/", m.index)
	router.GET("/search", account.RequireLogin(), m.search)
	router.GET("/tags", account.RequireLogin(), m.tagList)
	router.GET("/tags/:name", account.RequireLogin(), m.tagSearch)
}

// Item is the common projection every feed source is squeezed into.
type Item struct {
	Kind     string    `json:"kind"` // "post", "comment" or "gist"
	ID       int       `json:"id"`
	Title    string    `json:"title"`
	Body     string    `json:"body"`
	Username string    `json:"username"`
	IconURL  string    `json:"icon_url"`
	Created  time.Time `json:"created"`
}

// Bodies are cut to 50 characters inside the union so the landing page
// never drags whole posts around.
const feedQuery = `
SELECT 'post' AS kind, p.id AS id, p.title AS title, substr(p.body, 1, 50) AS body,
       u.username AS username, u.icon_url AS icon_url, p.created_at AS created
  FROM posts AS p
  JOIN users AS u ON u.id = p.user_id
 WHERE p.status = 'publish'
UNION
SELECT 'comment', c.post_id, p.title, substr(c.body, 1, 50),
       u.username, u.icon_url, c.created_at
  FROM post_comments AS c
  JOIN posts AS p ON p.id = c.post_id
  JOIN users AS u ON u.id = c.user_id
 WHERE p.status = 'publish'
UNION
SELECT 'gist', g.id, g.description, substr(g.code, 1, 50),
       u.username, u.icon_url, g.created_at
  FROM gists AS g
  JOIN users AS u ON u.id = g.user_id
 ORDER BY created DESC
 LIMIT ? OFFSET ?`

const feedCountQuery = `
SELECT (SELECT count(*) FROM posts WHERE status = 'publish')
     + (SELECT count(*) FROM post_comments AS c
          JOIN posts AS p ON p.id = c.post_id
         WHERE p.status = 'publish')
     + (SELECT count(*) FROM gists) AS count`

// Feeds returns one reverse-chronological page of post, comment and gist
// events. Draft posts and their comments never appear.
func Feeds(db *gorm.DB, offset, limit int) ([]Item, error) {
	var items []Item
	err := db.Raw(feedQuery, limit, offset).Scan(&items).Error
	return items, err
}

func FeedCount(db *gorm.DB) (int, error) {
	var count int
	err := db.Raw(feedCountQuery).Scan(&count).Error
	return count, err
}

func (m *FeedModule) index(c *gin.Context) {
	user := account.CurrentUser(c, m.db, m.cfg)
	if !user.LoggedIn() {
		c.HTML(http.StatusOK, "index.html", gin.H{"title": "Team"})
		return
	}

	count, err := FeedCount(m.db)
	if err != nil {
		log.Printf("feed: count: %v", err)
		c.String(http.StatusInternalServerError, "failed to load feed")
		return
	}
	page := common.Paginate(c.DefaultQuery("page", "1"), count)

	items, err := Feeds(m.db, page.Offset, page.Limit)
	if err != nil {
		log.Printf("feed: %v", err)
		c.String(http.StatusInternalServerError, "failed to load feed")
		return
	}

	c.HTML(http.StatusOK, "feed.html", gin.H{
		"logged_in":    true,
		"login_user":   user,
		"feeds":        items,
		"current_page": page.Current,
		"total_page":   page.Total,
		"next_page":    page.Next,
		"prev_page":    page.Prev,
	})
}
