package post

import (
	"fmt"
	"log"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"team/account"
	"team/cache"
	"team/common"
	"team/config"
	"team/models"
	"team/webhook"
)

// renderCacheAge bounds how long a rendered post body may be served from
// the file cache before it is re-rendered.
const renderCacheAge = 24 * time.Hour

// Kinds are the post categories sharing the posts table. Each gets its own
// route group so /post/... and /nippo/... dispatch to the same handlers.
var Kinds = []string{"post", "nippo"}

type PostModule struct {
	db    *gorm.DB
	cfg   *config.Config
	hooks *webhook.Service
}

func NewPostModule(db *gorm.DB, cfg *config.Config, hooks *webhook.Service) *PostModule {
	return &PostModule{db: db, cfg: cfg, hooks: hooks}
}

func (m *PostModule) RegisterRoutes(router *gin.Engine) {
	for _, kind := range Kinds {
		m.registerKind(router, kind)
	}
	router.POST("/post/image", account.RequireLogin(), m.uploadImage)
}

func (m *PostModule) registerKind(router *gin.Engine, kind string) {
	g := router.Group("/" + kind)
	g.Use(account.RequireLogin(), func(c *gin.Context) {
		c.Set("kind", kind)
	})
	{
		g.GET("/new", m.newPost)
		g.POST("/create", m.create)
		g.GET("/list", m.list)
		g.GET("/show/:id", m.show)
		g.GET("/edit/:id", m.edit)
		g.POST("/update", m.update)
		g.GET("/delete/:id", m.deletePost)
		g.POST("/tags/update", m.updateTags)
		g.POST("/comment", m.comment)
		g.POST("/comment/update/:id", m.updateComment)
		g.GET("/stock/:id", m.stock)
		g.GET("/unstock/:id", m.unstock)
		g.GET("/share/:id", m.share)
		g.GET("/pin/:id", m.pin)
		g.GET("/unpin/:id", m.unpin)
		g.GET("/drafts", m.drafts)
		g.GET("/stocked", m.stocked)
		g.GET("/pinned", m.pinned)
	}
}

func kindOf(c *gin.Context) string {
	return c.GetString("kind")
}

// titleize uppercases the first letter of a kind for page headings.
func titleize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func (m *PostModule) showURL(kind string, id int) string {
	return fmt.Sprintf("%s/%s/show/%d", m.cfg.Domain, kind, id)
}

func (m *PostModule) newPost(c *gin.Context) {
	kind := kindOf(c)
	user := account.CurrentUser(c, m.db, m.cfg)
	c.HTML(http.StatusOK, "post_form.html", gin.H{
		"logged_in":  true,
		"login_user": user,
		"kind":       kind,
		"kind_title": titleize(kind),
	})
}

func (m *PostModule) create(c *gin.Context) {
	kind := kindOf(c)
	user := account.CurrentUser(c, m.db, m.cfg)

	action, okAction := c.GetPostForm("action")
	title, okTitle := c.GetPostForm("title")
	body, okBody := c.GetPostForm("body")
	tags, okTags := c.GetPostForm("tags")
	if !okAction || !okTitle || !okBody || !okTags {
		c.String(http.StatusBadRequest, "action, title, body and tags are required")
		return
	}
	if action != "draft" && action != "publish" {
		c.String(http.StatusBadRequest, "unknown action")
		return
	}

	p := models.Post{
		Kind:   kind,
		UserID: user.ID,
		Title:  title,
		Body:   body,
		Status: action,
	}
	err := m.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&p).Error; err != nil {
			return err
		}
		return ReconcileTags(tx, p.ID, tags)
	})
	if err != nil {
		log.Printf("post create: %v", err)
		c.String(http.StatusInternalServerError, "failed to create post")
		return
	}

	if action == "publish" {
		slackTitle := "New post"
		if kind == "nippo" {
			slackTitle = "New 日報"
		}
		m.hooks.PostToSlack(m.db, user.ID, slackTitle, body, p.ID, nil, kind)
		if kind == "nippo" {
			m.hooks.Webhook(user.Username, slackTitle, body, m.showURL(kind, p.ID))
		}
	}
	c.Redirect(http.StatusFound, fmt.Sprintf("/%s/show/%d", kind, p.ID))
}

func (m *PostModule) list(c *gin.Context) {
	kind := kindOf(c)
	user := account.CurrentUser(c, m.db, m.cfg)

	count, err := countPublished(m.db, kind)
	if err != nil {
		log.Printf("post list: count: %v", err)
		c.String(http.StatusInternalServerError, "failed to load posts")
		return
	}
	page := common.Paginate(c.DefaultQuery("page", "1"), count)

	posts, err := listPublished(m.db, kind, page.Offset, page.Limit)
	if err != nil {
		log.Printf("post list: %v", err)
		c.String(http.StatusInternalServerError, "failed to load posts")
		return
	}

	c.HTML(http.StatusOK, "post_list.html", gin.H{
		"logged_in":    true,
		"login_user":   user,
		"posts":        posts,
		"current_page": page.Current,
		"total_page":   page.Total,
		"next_page":    page.Next,
		"prev_page":    page.Prev,
		"kind":         kind,
		"kind_title":   titleize(kind),
	})
}

func (m *PostModule) show(c *gin.Context) {
	kind := kindOf(c)
	user := account.CurrentUser(c, m.db, m.cfg)
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.String(http.StatusBadRequest, "invalid id")
		return
	}

	p, err := getByID(m.db, id)
	if err != nil {
		log.Printf("post show: %v", err)
		c.String(http.StatusInternalServerError, "failed to load post")
		return
	}

	comments, err := commentsByPostID(m.db, id)
	if err != nil {
		log.Printf("post show: comments: %v", err)
		c.String(http.StatusInternalServerError, "failed to load post")
		return
	}

	stocked, err := isStocked(m.db, user.ID, id)
	if err != nil {
		log.Printf("post show: stocked: %v", err)
		c.String(http.StatusInternalServerError, "failed to load post")
		return
	}

	type commentEntry struct {
		CommentView
		Editable bool `json:"editable"`
	}
	entries := make([]commentEntry, 0, len(comments))
	for _, cm := range comments {
		entries = append(entries, commentEntry{
			CommentView: cm,
			Editable:    cm.UserID == user.ID,
		})
	}

	editable := account.CanModify(user, p.UserID, p.Shared)
	c.HTML(http.StatusOK, "post_show.html", gin.H{
		"logged_in":  true,
		"login_user": user,
		"post":       p,
		"body_html":  m.renderedBody(p),
		"editable":   editable,
		"deletable":  editable,
		"shared":     p.Shared,
		"comments":   entries,
		"stocked":    stocked,
		"kind":       kind,
		"kind_title": titleize(kind),
	})
}

// renderedBody serves the markdown-rendered post body from the file cache,
// rendering and re-caching on a miss. Only published posts are cached.
func (m *PostModule) renderedBody(p View) string {
	if p.Status != "publish" {
		return common.RenderMarkdown(p.Body)
	}
	if html, ok := cache.Read(p.Kind, p.ID, renderCacheAge); ok {
		return html
	}
	html := common.RenderMarkdown(p.Body)
	if err := cache.Write(p.Kind, p.ID, html); err != nil {
		log.Printf("post cache: write %s/%d: %v", p.Kind, p.ID, err)
	}
	return html
}

func (m *PostModule) edit(c *gin.Context) {
	kind := kindOf(c)
	user := account.CurrentUser(c, m.db, m.cfg)
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.String(http.StatusBadRequest, "invalid id")
		return
	}

	p, err := getByID(m.db, id)
	if err != nil {
		log.Printf("post edit: %v", err)
		c.String(http.StatusInternalServerError, "failed to load post")
		return
	}
	if !account.CanModify(user, p.UserID, p.Shared) {
		c.String(http.StatusForbidden, "not allowed")
		return
	}

	c.HTML(http.StatusOK, "post_edit.html", gin.H{
		"logged_in":  true,
		"login_user": user,
		"post":       p,
		"tags":       TagString(p.Tags),
		"kind":       kind,
		"kind_title": titleize(kind),
	})
}

func (m *PostModule) update(c *gin.Context) {
	kind := kindOf(c)
	user := account.CurrentUser(c, m.db, m.cfg)

	idParam, okID := c.GetPostForm("id")
	title, okTitle := c.GetPostForm("title")
	body, okBody := c.GetPostForm("body")
	tags, okTags := c.GetPostForm("tags")
	action, okAction := c.GetPostForm("action")
	if !okID || !okTitle || !okBody || !okTags || !okAction {
		c.String(http.StatusBadRequest, "id, title, body, tags and action are required")
		return
	}
	id, err := strconv.Atoi(idParam)
	if err != nil {
		c.String(http.StatusBadRequest, "invalid id")
		return
	}
	if action != "draft" && action != "publish" {
		c.String(http.StatusBadRequest, "unknown action")
		return
	}

	old, err := getByID(m.db, id)
	if err != nil {
		log.Printf("post update: %v", err)
		c.String(http.StatusInternalServerError, "failed to load post")
		return
	}
	if !account.CanModify(user, old.UserID, old.Shared) {
		c.String(http.StatusForbidden, "not allowed")
		return
	}

	err = m.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Post{}).Where("id = ?", id).
			Updates(map[string]interface{}{
				"title":  title,
				"body":   body,
				"status": action,
			}).Error; err != nil {
			return err
		}
		return ReconcileTags(tx, id, tags)
	})
	if err != nil {
		log.Printf("post update: %v", err)
		c.String(http.StatusInternalServerError, "failed to update post")
		return
	}

	if err := cache.Clear(kind, id); err != nil {
		log.Printf("post update: clear cache: %v", err)
	}

	if action == "publish" {
		// Slack gets a line diff on edits, the full body on first publish.
		slackBody := diffLines(old.Body, body)
		if old.Status == "draft" {
			slackBody = body
		}
		m.hooks.PostToSlack(m.db, user.ID, "Edit post", slackBody, id, nil, kind)
		if kind == "nippo" && old.Status == "draft" {
			m.hooks.Webhook(user.Username, "New 日報", body, m.showURL(kind, id))
		}
	}
	c.Redirect(http.StatusFound, fmt.Sprintf("/%s/show/%d", kind, id))
}

func (m *PostModule) deletePost(c *gin.Context) {
	kind := kindOf(c)
	user := account.CurrentUser(c, m.db, m.cfg)
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.String(http.StatusBadRequest, "invalid id")
		return
	}

	p, err := getByID(m.db, id)
	if err != nil {
		log.Printf("post delete: %v", err)
		c.String(http.StatusInternalServerError, "failed to load post")
		return
	}
	if !account.CanModify(user, p.UserID, p.Shared) {
		c.String(http.StatusForbidden, "not allowed")
		return
	}

	err = m.db.Transaction(func(tx *gorm.DB) error {
		for _, del := range []error{
			tx.Where("post_id = ?", id).Delete(&models.Tagging{}).Error,
			tx.Where("post_id = ?", id).Delete(&models.PostComment{}).Error,
			tx.Where("post_id = ?", id).Delete(&models.Stock{}).Error,
			tx.Where("post_id = ?", id).Delete(&models.Pin{}).Error,
			tx.Delete(&models.Post{}, id).Error,
		} {
			if del != nil {
				return del
			}
		}
		return nil
	})
	if err != nil {
		log.Printf("post delete: %v", err)
		c.String(http.StatusInternalServerError, "failed to delete post")
		return
	}

	if err := cache.Clear(kind, id); err != nil {
		log.Printf("post delete: clear cache: %v", err)
	}
	c.Redirect(http.StatusFound, "/"+kind+"/list")
}

// updateTags reconciles a post's tags without touching title or body.
func (m *PostModule) updateTags(c *gin.Context) {
	kind := kindOf(c)
	user := account.CurrentUser(c, m.db, m.cfg)

	idParam, okID := c.GetPostForm("id")
	tags, okTags := c.GetPostForm("tags")
	if !okID || !okTags {
		c.String(http.StatusBadRequest, "id and tags are required")
		return
	}
	id, err := strconv.Atoi(idParam)
	if err != nil {
		c.String(http.StatusBadRequest, "invalid id")
		return
	}

	if _, err := getByID(m.db, id); err != nil {
		log.Printf("tags update: %v", err)
		c.String(http.StatusInternalServerError, "failed to load post")
		return
	}

	if err := ReconcileTags(m.db, id, tags); err != nil {
		log.Printf("tags update: %v", err)
		c.String(http.StatusInternalServerError, "failed to update tags")
		return
	}

	if err := cache.Clear(kind, id); err != nil {
		log.Printf("tags update: clear cache: %v", err)
	}
	m.hooks.PostToSlack(m.db, user.ID, "Update tag", tags, id, nil, kind)
	c.Redirect(http.StatusFound, fmt.Sprintf("/%s/show/%d", kind, id))
}

func (m *PostModule) drafts(c *gin.Context) {
	kind := kindOf(c)
	user := account.CurrentUser(c, m.db, m.cfg)

	posts, err := draftsByUser(m.db, kind, user.ID)
	if err != nil {
		log.Printf("draft list: %v", err)
		c.String(http.StatusInternalServerError, "failed to load drafts")
		return
	}
	c.HTML(http.StatusOK, "draft_list.html", gin.H{
		"logged_in":  true,
		"login_user": user,
		"posts":      posts,
		"kind":       kind,
	})
}

// uploadImage stores a pasted image under the static dir and returns its
// public URL as JSON for the editor.
func (m *PostModule) uploadImage(c *gin.Context) {
	file, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file is required"})
		return
	}

	name := fmt.Sprintf("%d.png", time.Now().Unix())
	dst := filepath.Join("public", "img", "posts", name)
	if err := c.SaveUploadedFile(file, dst); err != nil {
		log.Printf("image upload: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to store image"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"fileurl": fmt.Sprintf("%s/img/posts/%s", m.cfg.Domain, name),
	})
}

// diffLines is a cheap set-style line diff for Slack edit notices: lines
// only in old are prefixed "-", lines only in new "+".
func diffLines(old, new string) string {
	oldLines := strings.Split(old, "\n")
	newLines := strings.Split(new, "\n")

	inOld := make(map[string]bool, len(oldLines))
	for _, l := range oldLines {
		inOld[l] = true
	}
	inNew := make(map[string]bool, len(newLines))
	for _, l := range newLines {
		inNew[l] = true
	}

	var b strings.Builder
	for _, l := range oldLines {
		if !inNew[l] {
			b.WriteString("-" + l + "\n")
		}
	}
	for _, l := range newLines {
		if !inOld[l] {
			b.WriteString("+" + l + "\n")
		}
	}
	return b.String()
}
