package gist

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

// GistModule serves small shared code snippets. Unlike posts, gists
// have no draft state and no share flag: only the author can touch one.
type GistModule struct {
	db    *gorm.DB
	cfg   *config.Config
	hooks *webhook.Service
}

func NewGistModule(db *gorm.DB, cfg *config.Config, hooks *webhook.Service) *GistModule {
	return &GistModule{db: db, cfg: cfg, hooks: hooks}
}

func (m *GistModule) RegisterRoutes(router *gin.Engine) {
	group := router.Group("/gist", account.RequireLogin())
	group.GET("/new", m.new)
	group.POST("/create", m.create)
	group.GET("/list", m.list)
	group.GET("/show/:id", m.show)
	group.GET("/edit/:id", m.edit)
	group.POST("/update", m.update)
	group.GET("/delete/:id", m.delete)
	group.POST("/comment", m.comment)
	group.POST("/comment/update/:id", m.updateComment)
}

type gistView struct {
	models.Gist
	Username string `json:"username"`
	IconURL  string `json:"icon_url"`
}

type commentView struct {
	models.GistComment
	Username string `json:"username"`
	IconURL  string `json:"icon_url"`
}

func getByID(db *gorm.DB, id int) (gistView, error) {
	var gist gistView
	err := db.Table("gists").
		Select("gists.*, users.username, users.icon_url").
		Joins("JOIN users ON users.id = gists.user_id").
		Where("gists.id = ?", id).
		Take(&gist).Error
	return gist, err
}

func commentsByGistID(db *gorm.DB, gistID int) ([]commentView, error) {
	var comments []commentView
	err := db.Table("gist_comments").
		Select("gist_comments.*, users.username, users.icon_url").
		Joins("JOIN users ON users.id = gist_comments.user_id").
		Where("gist_comments.gist_id = ?", gistID).
		Order("gist_comments.id ASC").
		Scan(&comments).Error
	return comments, err
}

func (m *GistModule) new(c *gin.Context) {
	user := account.CurrentUser(c, m.db, m.cfg)
	c.HTML(http.StatusOK, "gist_new.html", gin.H{
		"logged_in":  true,
		"login_user": user,
	})
}

func (m *GistModule) create(c *gin.Context) {
	user := account.CurrentUser(c, m.db, m.cfg)

	description, hasDescription := c.GetPostForm("description")
	filename, hasFilename := c.GetPostForm("filename")
	code, hasCode := c.GetPostForm("code")
	if !hasDescription || !hasFilename || !hasCode {
		c.String(http.StatusBadRequest, "description, filename and code are required")
		return
	}

	gist := models.Gist{
		UserID:      user.ID,
		Description: description,
		Filename:    filename,
		Code:        code,
	}
	if err := m.db.Create(&gist).Error; err != nil {
		log.Printf("gist: create: %v", err)
		c.String(http.StatusInternalServerError, "failed to create gist")
		return
	}

	m.hooks.PostToSlack(m.db, user.ID, "New gist", description, gist.ID, nil, "gist")

	c.Redirect(http.StatusFound, "/gist/show/"+strconv.Itoa(gist.ID))
}

func (m *GistModule) list(c *gin.Context) {
	user := account.CurrentUser(c, m.db, m.cfg)

	var count int64
	if err := m.db.Model(&models.Gist{}).Count(&count).Error; err != nil {
		log.Printf("gist: count: %v", err)
		c.String(http.StatusInternalServerError, "failed to load gists")
		return
	}
	page := common.Paginate(c.DefaultQuery("page", "1"), int(count))

	var gists []gistView
	err := m.db.Table("gists").
		Select("gists.*, users.username, users.icon_url").
		Joins("JOIN users ON users.id = gists.user_id").
		Order("gists.id DESC").
		Offset(page.Offset).Limit(page.Limit).
		Scan(&gists).Error
	if err != nil {
		log.Printf("gist: list: %v", err)
		c.String(http.StatusInternalServerError, "failed to load gists")
		return
	}

	c.HTML(http.StatusOK, "gist_list.html", gin.H{
		"logged_in":    true,
		"login_user":   user,
		"gists":        gists,
		"current_page": page.Current,
		"total_page":   page.Total,
		"next_page":    page.Next,
		"prev_page":    page.Prev,
	})
}

func (m *GistModule) show(c *gin.Context) {
	user := account.CurrentUser(c, m.db, m.cfg)
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.String(http.StatusBadRequest, "invalid id")
		return
	}

	gist, err := getByID(m.db, id)
	if err != nil {
		log.Printf("gist: load: %v", err)
		c.String(http.StatusInternalServerError, "failed to load gist")
		return
	}
	comments, err := commentsByGistID(m.db, id)
	if err != nil {
		log.Printf("gist: comments: %v", err)
		c.String(http.StatusInternalServerError, "failed to load gist")
		return
	}

	type commentEntry struct {
		commentView
		Editable bool `json:"editable"`
	}
	entries := make([]commentEntry, 0, len(comments))
	for _, cm := range comments {
		entries = append(entries, commentEntry{commentView: cm, Editable: cm.UserID == user.ID})
	}

	c.HTML(http.StatusOK, "gist_show.html", gin.H{
		"logged_in":  true,
		"login_user": user,
		"gist":       gist,
		"comments":   entries,
		"editable":   gist.UserID == user.ID,
	})
}

func (m *GistModule) edit(c *gin.Context) {
	user := account.CurrentUser(c, m.db, m.cfg)
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.String(http.StatusBadRequest, "invalid id")
		return
	}

	gist, err := getByID(m.db, id)
	if err != nil {
		log.Printf("gist: load: %v", err)
		c.String(http.StatusInternalServerError, "failed to load gist")
		return
	}
	if gist.UserID != user.ID {
		c.String(http.StatusForbidden, "not your gist")
		return
	}

	c.HTML(http.StatusOK, "gist_edit.html", gin.H{
		"logged_in":  true,
		"login_user": user,
		"gist":       gist,
	})
}

func (m *GistModule) update(c *gin.Context) {
	user := account.CurrentUser(c, m.db, m.cfg)

	idParam, hasID := c.GetPostForm("id")
	description, hasDescription := c.GetPostForm("description")
	filename, hasFilename := c.GetPostForm("filename")
	code, hasCode := c.GetPostForm("code")
	if !hasID || !hasDescription || !hasFilename || !hasCode {
		c.String(http.StatusBadRequest, "id, description, filename and code are required")
		return
	}
	id, err := strconv.Atoi(idParam)
	if err != nil {
		c.String(http.StatusBadRequest, "invalid id")
		return
	}

	gist, err := getByID(m.db, id)
	if err != nil {
		log.Printf("gist: load: %v", err)
		c.String(http.StatusInternalServerError, "failed to load gist")
		return
	}
	if gist.UserID != user.ID {
		c.String(http.StatusForbidden, "not your gist")
		return
	}

	err = m.db.Model(&models.Gist{}).Where("id = ?", id).Updates(map[string]interface{}{
		"description": description,
		"filename":    filename,
		"code":        code,
	}).Error
	if err != nil {
		log.Printf("gist: update: %v", err)
		c.String(http.StatusInternalServerError, "failed to update gist")
		return
	}

	c.Redirect(http.StatusFound, "/gist/show/"+idParam)
}

func (m *GistModule) delete(c *gin.Context) {
	user := account.CurrentUser(c, m.db, m.cfg)
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.String(http.StatusBadRequest, "invalid id")
		return
	}

	gist, err := getByID(m.db, id)
	if err != nil {
		log.Printf("gist: load: %v", err)
		c.String(http.StatusInternalServerError, "failed to load gist")
		return
	}
	if gist.UserID != user.ID {
		c.String(http.StatusForbidden, "not your gist")
		return
	}

	err = m.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("gist_id = ?", id).Delete(&models.GistComment{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Gist{}, id).Error
	})
	if err != nil {
		log.Printf("gist: delete: %v", err)
		c.String(http.StatusInternalServerError, "failed to delete gist")
		return
	}

	c.Redirect(http.StatusFound, "/gist/list")
}

func (m *GistModule) comment(c *gin.Context) {
	user := account.CurrentUser(c, m.db, m.cfg)

	idParam, hasID := c.GetPostForm("id")
	body, hasBody := c.GetPostForm("body")
	if !hasID || !hasBody {
		c.String(http.StatusBadRequest, "id and body are required")
		return
	}
	id, err := strconv.Atoi(idParam)
	if err != nil {
		c.String(http.StatusBadRequest, "invalid id")
		return
	}

	gist, err := getByID(m.db, id)
	if err != nil {
		log.Printf("gist: load: %v", err)
		c.String(http.StatusInternalServerError, "failed to load gist")
		return
	}
	comments, err := commentsByGistID(m.db, id)
	if err != nil {
		log.Printf("gist: comments: %v", err)
		c.String(http.StatusInternalServerError, "failed to comment")
		return
	}

	// The author plus everyone already in the thread hears about new
	// comments, except the person writing this one.
	mentions := []string{gist.Username}
	recipients := map[int]bool{gist.UserID: true}
	for _, cm := range comments {
		if !contains(mentions, cm.Username) {
			mentions = append(mentions, cm.Username)
		}
		recipients[cm.UserID] = true
	}
	delete(recipients, user.ID)

	path := "/gist/show/" + idParam
	err = m.db.Transaction(func(tx *gorm.DB) error {
		comment := models.GistComment{UserID: user.ID, GistID: id, Body: body}
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
		log.Printf("gist: comment: %v", err)
		c.String(http.StatusInternalServerError, "failed to comment")
		return
	}

	m.hooks.PostToSlack(m.db, user.ID, "New comment", body, id, mentions, "gist")

	c.Redirect(http.StatusFound, path)
}

func (m *GistModule) updateComment(c *gin.Context) {
	user := account.CurrentUser(c, m.db, m.cfg)
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.String(http.StatusBadRequest, "invalid id")
		return
	}

	action, hasAction := c.GetPostForm("action")
	body, hasBody := c.GetPostForm("body")
	if !hasAction || !hasBody {
		c.String(http.StatusBadRequest, "action and body are required")
		return
	}

	var comment models.GistComment
	if err := m.db.Take(&comment, id).Error; err != nil {
		log.Printf("gist: comment load: %v", err)
		c.String(http.StatusInternalServerError, "failed to load comment")
		return
	}
	if comment.UserID != user.ID {
		c.String(http.StatusForbidden, "not your comment")
		return
	}

	switch action {
	case "update":
		err = m.db.Model(&models.GistComment{}).Where("id = ?", id).Update("body", body).Error
	case "delete":
		err = m.db.Delete(&models.GistComment{}, id).Error
	default:
		c.String(http.StatusBadRequest, "unknown action")
		return
	}
	if err != nil {
		log.Printf("gist: comment update: %v", err)
		c.String(http.StatusInternalServerError, "failed to update comment")
		return
	}

	c.Redirect(http.StatusFound, "/gist/show/"+strconv.Itoa(comment.GistID))
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
