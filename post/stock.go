package post

import (
	"fmt"
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"team/account"
	"team/cache"
	"team/common"
	"team/models"
)

// stock bookmarks a post for the current user. Stocking twice is a no-op.
func (m *PostModule) stock(c *gin.Context) {
	kind := kindOf(c)
	user := account.CurrentUser(c, m.db, m.cfg)
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.String(http.StatusBadRequest, "invalid id")
		return
	}

	stocked, err := isStocked(m.db, user.ID, id)
	if err != nil {
		log.Printf("stock: %v", err)
		c.String(http.StatusInternalServerError, "failed to stock post")
		return
	}
	if !stocked {
		if err := m.db.Create(&models.Stock{UserID: user.ID, PostID: id}).Error; err != nil {
			log.Printf("stock: %v", err)
			c.String(http.StatusInternalServerError, "failed to stock post")
			return
		}
	}
	c.Redirect(http.StatusFound, fmt.Sprintf("/%s/show/%d", kind, id))
}

func (m *PostModule) unstock(c *gin.Context) {
	kind := kindOf(c)
	user := account.CurrentUser(c, m.db, m.cfg)
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.String(http.StatusBadRequest, "invalid id")
		return
	}

	if err := m.db.Where("user_id = ? AND post_id = ?", user.ID, id).
		Delete(&models.Stock{}).Error; err != nil {
		log.Printf("unstock: %v", err)
		c.String(http.StatusInternalServerError, "failed to unstock post")
		return
	}
	c.Redirect(http.StatusFound, fmt.Sprintf("/%s/show/%d", kind, id))
}

// share opens a post for editing by any authenticated user. One-way.
func (m *PostModule) share(c *gin.Context) {
	kind := kindOf(c)
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.String(http.StatusBadRequest, "invalid id")
		return
	}

	if err := m.db.Model(&models.Post{}).Where("id = ?", id).
		Update("shared", true).Error; err != nil {
		log.Printf("share: %v", err)
		c.String(http.StatusInternalServerError, "failed to share post")
		return
	}
	if err := cache.Clear(kind, id); err != nil {
		log.Printf("share: clear cache: %v", err)
	}
	c.Redirect(http.StatusFound, fmt.Sprintf("/%s/show/%d", kind, id))
}

func (m *PostModule) pin(c *gin.Context) {
	kind := kindOf(c)
	user := account.CurrentUser(c, m.db, m.cfg)
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.String(http.StatusBadRequest, "invalid id")
		return
	}

	var n int64
	if err := m.db.Model(&models.Pin{}).Where("post_id = ?", id).Count(&n).Error; err != nil {
		log.Printf("pin: %v", err)
		c.String(http.StatusInternalServerError, "failed to pin post")
		return
	}
	if n == 0 {
		if err := m.db.Create(&models.Pin{UserID: user.ID, PostID: id}).Error; err != nil {
			log.Printf("pin: %v", err)
			c.String(http.StatusInternalServerError, "failed to pin post")
			return
		}
	}
	c.Redirect(http.StatusFound, fmt.Sprintf("/%s/show/%d", kind, id))
}

func (m *PostModule) unpin(c *gin.Context) {
	kind := kindOf(c)
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.String(http.StatusBadRequest, "invalid id")
		return
	}

	if err := m.db.Where("post_id = ?", id).Delete(&models.Pin{}).Error; err != nil {
		log.Printf("unpin: %v", err)
		c.String(http.StatusInternalServerError, "failed to unpin post")
		return
	}
	c.Redirect(http.StatusFound, fmt.Sprintf("/%s/show/%d", kind, id))
}

func (m *PostModule) stocked(c *gin.Context) {
	kind := kindOf(c)
	user := account.CurrentUser(c, m.db, m.cfg)

	count, err := stockedCount(m.db, user.ID)
	if err != nil {
		log.Printf("stocked list: count: %v", err)
		c.String(http.StatusInternalServerError, "failed to load stocked posts")
		return
	}
	page := common.Paginate(c.DefaultQuery("page", "1"), count)

	posts, err := stockedByUser(m.db, user.ID, page.Offset, page.Limit)
	if err != nil {
		log.Printf("stocked list: %v", err)
		c.String(http.StatusInternalServerError, "failed to load stocked posts")
		return
	}

	c.HTML(http.StatusOK, "stocked_list.html", gin.H{
		"logged_in":    true,
		"login_user":   user,
		"posts":        posts,
		"current_page": page.Current,
		"total_page":   page.Total,
		"next_page":    page.Next,
		"prev_page":    page.Prev,
		"kind":         kind,
	})
}

// pinned lists globally pinned posts; the list is shared by all users.
func (m *PostModule) pinned(c *gin.Context) {
	kind := kindOf(c)
	user := account.CurrentUser(c, m.db, m.cfg)

	count, err := pinnedCount(m.db)
	if err != nil {
		log.Printf("pinned list: count: %v", err)
		c.String(http.StatusInternalServerError, "failed to load pinned posts")
		return
	}
	page := common.Paginate(c.DefaultQuery("page", "1"), count)

	posts, err := pinnedList(m.db, page.Offset, page.Limit)
	if err != nil {
		log.Printf("pinned list: %v", err)
		c.String(http.StatusInternalServerError, "failed to load pinned posts")
		return
	}

	c.HTML(http.StatusOK, "pinned_list.html", gin.H{
		"logged_in":    true,
		"login_user":   user,
		"pinneds":      posts,
		"current_page": page.Current,
		"total_page":   page.Total,
		"next_page":    page.Next,
		"prev_page":    page.Prev,
		"kind":         kind,
	})
}
