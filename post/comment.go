package post

import (
	"fmt"
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"team/account"
	"team/models"
	"team/notification"
)

// comment adds a comment and notifies the post owner plus everyone who
// commented before, except the commenter themselves. Comment and
// notifications are written in one transaction.
func (m *PostModule) comment(c *gin.Context) {
	kind := kindOf(c)
	user := account.CurrentUser(c, m.db, m.cfg)

	idParam, okID := c.GetPostForm("id")
	body, okBody := c.GetPostForm("body")
	if !okID || !okBody {
		c.String(http.StatusBadRequest, "id and body are required")
		return
	}
	id, err := strconv.Atoi(idParam)
	if err != nil {
		c.String(http.StatusBadRequest, "invalid id")
		return
	}

	p, err := getByID(m.db, id)
	if err != nil {
		log.Printf("post comment: %v", err)
		c.String(http.StatusInternalServerError, "failed to load post")
		return
	}

	comments, err := commentsByPostID(m.db, id)
	if err != nil {
		log.Printf("post comment: %v", err)
		c.String(http.StatusInternalServerError, "failed to load post")
		return
	}

	// Slack @mentions: the post author plus every previous commenter.
	mentions := []string{p.Username}
	recipients := map[int]bool{p.UserID: true}
	for _, cm := range comments {
		if !contains(mentions, cm.Username) {
			mentions = append(mentions, cm.Username)
		}
		recipients[cm.UserID] = true
	}
	delete(recipients, user.ID)

	path := fmt.Sprintf("/%s/show/%d", kind, id)
	err = m.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&models.PostComment{
			UserID: user.ID,
			PostID: id,
			Body:   body,
		}).Error; err != nil {
			return err
		}
		for to := range recipients {
			if _, err := notification.Create(tx, path, user.ID, to, body); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		log.Printf("post comment: %v", err)
		c.String(http.StatusInternalServerError, "failed to add comment")
		return
	}

	m.hooks.PostToSlack(m.db, user.ID, "New comment", body, id, mentions, kind)
	c.Redirect(http.StatusFound, path)
}

// updateComment edits or deletes a comment; only its author may do either.
func (m *PostModule) updateComment(c *gin.Context) {
	kind := kindOf(c)
	user := account.CurrentUser(c, m.db, m.cfg)

	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.String(http.StatusBadRequest, "invalid id")
		return
	}
	action, okAction := c.GetPostForm("action")
	body, okBody := c.GetPostForm("body")
	if !okAction || !okBody {
		c.String(http.StatusBadRequest, "action and body are required")
		return
	}

	var comment models.PostComment
	if err := m.db.First(&comment, id).Error; err != nil {
		log.Printf("comment update: %v", err)
		c.String(http.StatusInternalServerError, "failed to load comment")
		return
	}
	if comment.UserID != user.ID {
		c.String(http.StatusForbidden, "not allowed")
		return
	}

	switch action {
	case "update":
		err = m.db.Model(&comment).Update("body", body).Error
	case "delete":
		err = m.db.Delete(&comment).Error
	default:
		c.String(http.StatusBadRequest, "unknown action")
		return
	}
	if err != nil {
		log.Printf("comment update: %v", err)
		c.String(http.StatusInternalServerError, "failed to update comment")
		return
	}

	c.Redirect(http.StatusFound, fmt.Sprintf("/%s/show/%d", kind, comment.PostID))
}

func contains(names []string, name string) bool {
	for _, n := range names {
		if n == name {
			return true
		}
	}
	return false
}
