package notification

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"team/account"
	"team/common"
	"team/config"
	"team/models"
)

type NotificationModule struct {
	db  *gorm.DB
	cfg *config.Config
}

func NewNotificationModule(db *gorm.DB, cfg *config.Config) *NotificationModule {
	return &NotificationModule{db: db, cfg: cfg}
}

func (m *NotificationModule) RegisterRoutes(router *gin.Engine) {
	g := router.Group("/notifications")
	g.Use(account.RequireLogin())
	{
		g.GET("/", m.list)
		g.GET("/count", m.unreadCount)
	}
}

// Create records a notification for toUser pointing at path. Called from
// the comment handlers, usually inside their transaction.
func Create(db *gorm.DB, path string, fromUser, toUser int, body string) (int, error) {
	n := models.Notification{
		Path:     path,
		FromUser: fromUser,
		ToUser:   toUser,
		Body:     body,
	}
	if err := db.Create(&n).Error; err != nil {
		return 0, err
	}
	return n.ID, nil
}

type view struct {
	models.Notification
	Username string `json:"username"`
	IconURL  string `json:"icon_url"`
}

// list shows the user's notifications, newest first. Opening the list
// marks every notification read, not just the ones on the current page;
// read state means "seen the list", not "opened the target".
func (m *NotificationModule) list(c *gin.Context) {
	user := account.CurrentUser(c, m.db, m.cfg)

	if err := m.db.Model(&models.Notification{}).
		Where("to_user = ?", user.ID).
		Update("read", true).Error; err != nil {
		log.Printf("notifications: mark read: %v", err)
		c.String(http.StatusInternalServerError, "failed to load notifications")
		return
	}

	var count int64
	if err := m.db.Model(&models.Notification{}).
		Where("to_user = ?", user.ID).
		Count(&count).Error; err != nil {
		log.Printf("notifications: count: %v", err)
		c.String(http.StatusInternalServerError, "failed to load notifications")
		return
	}
	page := common.Paginate(c.DefaultQuery("page", "1"), int(count))

	var notifications []view
	err := m.db.Table("notifications").
		Select("notifications.*, users.username, users.icon_url").
		Joins("JOIN users ON users.id = notifications.from_user").
		Where("notifications.to_user = ?", user.ID).
		Order("notifications.id DESC").
		Offset(page.Offset).Limit(page.Limit).
		Scan(&notifications).Error
	if err != nil {
		log.Printf("notifications: list: %v", err)
		c.String(http.StatusInternalServerError, "failed to load notifications")
		return
	}

	c.HTML(http.StatusOK, "notifications.html", gin.H{
		"logged_in":     true,
		"login_user":    user,
		"notifications": notifications,
		"current_page":  page.Current,
		"total_page":    page.Total,
		"next_page":     page.Next,
		"prev_page":     page.Prev,
	})
}

// unreadCount feeds the header badge.
func (m *NotificationModule) unreadCount(c *gin.Context) {
	var count int64
	err := m.db.Model(&models.Notification{}).
		Where("to_user = ? AND read = ?", account.LoginID(c), false).
		Count(&count).Error
	if err != nil {
		log.Printf("notifications: unread count: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to count notifications"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": count})
}
