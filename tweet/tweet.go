package tweet

import (
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"team/account"
	"team/common"
	"team/config"
	"team/models"
	"team/notification"
	"team/webhook"
)

// TweetModule is the short-message timeline. Tweets and their comments
// are append-only: there is no edit or delete surface.
type TweetModule struct {
	db    *gorm.DB
	cfg   *config.Config
	hooks *webhook.Service
}

func NewTweetModule(db *gorm.DB, cfg *config.Config, hooks *webhook.Service) *TweetModule {
	return &TweetModule{db: db, cfg: cfg, hooks: hooks}
}

func (m *TweetModule) RegisterRoutes(router *gin.Engine) {
	group := router.Group("/tweet", account.RequireLogin())
	group.POST("/create", m.create)
	group.GET("/list", m.list)
	group.GET("/show/:id", m.show)
	group.POST("/comment", m.comment)
}

type tweetView struct {
	models.Tweet
	Username     string `json:"username"`
	IconURL      string `json:"icon_url"`
	CommentCount int    `json:"comment_count"`
}

type commentView struct {
	models.TweetComment
	Username string `json:"username"`
	IconURL  string `json:"icon_url"`
}

func getByID(db *gorm.DB, id int) (tweetView, error) {
	var tweet tweetView
	err := db.Table("tweets").
		Select("tweets.*, users.username, users.icon_url").
		Joins("JOIN users ON users.id = tweets.user_id").
		Where("tweets.id = ?", id).
		Take(&tweet).Error
	return tweet, err
}

func commentsByTweetID(db *gorm.DB, tweetID int) ([]commentView, error) {
	var comments []commentView
	err := db.Table("tweet_comments").
		Select("tweet_comments.*, users.username, users.icon_url").
		Joins("JOIN users ON users.id = tweet_comments.user_id").
		Where("tweet_comments.tweet_id = ?", tweetID).
		Order("tweet_comments.id ASC").
		Scan(&comments).Error
	return comments, err
}

func (m *TweetModule) create(c *gin.Context) {
	user := account.CurrentUser(c, m.db, m.cfg)

	body, hasBody := c.GetPostForm("body")
	if !hasBody || body == "" {
		c.String(http.StatusBadRequest, "body is required")
		return
	}

	tweet := models.Tweet{UserID: user.ID, Body: body}
	if err := m.db.Create(&tweet).Error; err != nil {
		log.Printf("tweet: create: %v", err)
		c.String(http.StatusInternalServerError, "failed to tweet")
		return
	}

	m.hooks.PostToSlack(m.db, user.ID, "New tweet", body, tweet.ID, nil, "tweet")

	c.Redirect(http.StatusFound, "/tweet/list")
}

func (m *TweetModule) list(c *gin.Context) {
	user := account.CurrentUser(c, m.db, m.cfg)

	var count int64
	if err := m.db.Model(&models.Tweet{}).Count(&count).Error; err != nil {
		log.Printf("tweet: count: %v", err)
		c.String(http.StatusInternalServerError, "failed to load tweets")
		return
	}
	page := common.Paginate(c.DefaultQuery("page", "1"), int(count))

	var tweets []tweetView
	err := m.db.Table("tweets").
		Select("tweets.*, users.username, users.icon_url, " +
			"(SELECT count(*) FROM tweet_comments WHERE tweet_comments.tweet_id = tweets.id) AS comment_count").
		Joins("JOIN users ON users.id = tweets.user_id").
		Order("tweets.id DESC").
		Offset(page.Offset).Limit(page.Limit).
		Scan(&tweets).Error
	if err != nil {
		log.Printf("tweet: list: %v", err)
		c.String(http.StatusInternalServerError, "failed to load tweets")
		return
	}

	c.HTML(http.StatusOK, "tweet_list.html", gin.H{
		"logged_in":    true,
		"login_user":   user,
		"tweets":       tweets,
		"current_page": page.Current,
		"total_page":   page.Total,
		"next_page":    page.Next,
		"prev_page":    page.Prev,
	})
}

func (m *TweetModule) show(c *gin.Context) {
	user := account.CurrentUser(c, m.db, m.cfg)
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.String(http.StatusBadRequest, "invalid id")
		return
	}

	tweet, err := getByID(m.db, id)
	if err != nil {
		log.Printf("tweet: load: %v", err)
		c.String(http.StatusInternalServerError, "failed to load tweet")
		return
	}
	comments, err := commentsByTweetID(m.db, id)
	if err != nil {
		log.Printf("tweet: comments: %v", err)
		c.String(http.StatusInternalServerError, "failed to load tweet")
		return
	}

	c.HTML(http.StatusOK, "tweet_show.html", gin.H{
		"logged_in":  true,
		"login_user": user,
		"tweet":      tweet,
		"comments":   comments,
	})
}

func (m *TweetModule) comment(c *gin.Context) {
	user := account.CurrentUser(c, m.db, m.cfg)

	idParam, hasID := c.GetPostForm("id")
	body, hasBody := c.GetPostForm("body")
	if !hasID || !hasBody || body == "" {
		c.String(http.StatusBadRequest, "id and body are required")
		return
	}
	id, err := strconv.Atoi(idParam)
	if err != nil {
		c.String(http.StatusBadRequest, "invalid id")
		return
	}

	tweet, err := getByID(m.db, id)
	if err != nil {
		log.Printf("tweet: load: %v", err)
		c.String(http.StatusInternalServerError, "failed to load tweet")
		return
	}
	comments, err := commentsByTweetID(m.db, id)
	if err != nil {
		log.Printf("tweet: comments: %v", err)
		c.String(http.StatusInternalServerError, "failed to comment")
		return
	}

	mentions := []string{tweet.Username}
	recipients := map[int]bool{tweet.UserID: true}
	for _, cm := range comments {
		if !contains(mentions, cm.Username) {
			mentions = append(mentions, cm.Username)
		}
		recipients[cm.UserID] = true
	}
	delete(recipients, user.ID)

	path := "/tweet/show/" + idParam
	err = m.db.Transaction(func(tx *gorm.DB) error {
		comment := models.TweetComment{UserID: user.ID, TweetID: id, Body: body}
		if err := tx.Create(&comment).Error; err != nil {
			return err
		}
		for toUser := range recipients {
			if _, err := notification.Create(tx, path, user.ID, toUser, body); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		log.Printf("tweet: comment: %v", err)
		c.String(http.StatusInternalServerError, "failed to comment")
		return
	}

	m.hooks.PostToSlack(m.db, user.ID, "New comment", body, id, mentions, "tweet")

	c.Redirect(http.StatusFound, path)
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
