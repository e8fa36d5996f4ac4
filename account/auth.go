package account

import (
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"strings"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"team/config"
	"team/models"
)

const sessionUserKey = "user_id"

// Per-install static salt. Every deployment shares one salt, so equal
// passwords hash equally; the signin lookup depends on that.
const passwordSalt = "6jpmgwMiTzFtFoF"

func EncryptPassword(plain string) string {
	sum := sha256.Sum256([]byte(plain + passwordSalt))
	return hex.EncodeToString(sum[:])
}

// LoginID returns the authenticated user id, or 0 for anonymous requests.
func LoginID(c *gin.Context) int {
	session := sessions.Default(c)
	if id, ok := session.Get(sessionUserKey).(int); ok {
		return id
	}
	return 0
}

func SetLogin(c *gin.Context, id int) error {
	session := sessions.Default(c)
	session.Set(sessionUserKey, id)
	return session.Save()
}

func ClearLogin(c *gin.Context) error {
	session := sessions.Default(c)
	session.Clear()
	return session.Save()
}

// RequireLogin redirects anonymous requests to /signin before any handler
// runs, so no write route can mutate state without a session.
func RequireLogin() gin.HandlerFunc {
	return func(c *gin.Context) {
		if LoginID(c) == 0 {
			c.Redirect(http.StatusFound, "/signin")
			c.Abort()
			return
		}
		c.Next()
	}
}

// LoginUser is the session user with its preference resolved.
type LoginUser struct {
	models.User
	Menu  []string
	Theme string
}

func (u LoginUser) LoggedIn() bool { return u.ID != 0 }

// CurrentUser resolves the session to a user row joined with its
// preference. Any lookup failure degrades to the anonymous user (id 0)
// rather than failing the request.
func CurrentUser(c *gin.Context, db *gorm.DB, cfg *config.Config) LoginUser {
	anonymous := LoginUser{Menu: cfg.MenuItems(), Theme: cfg.Theme}

	id := LoginID(c)
	if id == 0 {
		return anonymous
	}

	var user models.User
	if err := db.First(&user, id).Error; err != nil {
		return anonymous
	}

	lu := LoginUser{User: user, Menu: cfg.MenuItems(), Theme: cfg.Theme}
	var pref models.Preference
	if err := db.Where("user_id = ?", id).First(&pref).Error; err == nil {
		if pref.Menu != "" {
			lu.Menu = strings.Split(pref.Menu, ",")
		}
		if pref.Theme != "" {
			lu.Theme = pref.Theme
		}
	}
	return lu
}

// CanModify reports whether user may edit or delete a post. Shared posts
// are writable by any authenticated user, not just the owner.
func CanModify(user LoginUser, ownerID int, shared bool) bool {
	if !user.LoggedIn() {
		return false
	}
	return user.ID == ownerID || shared
}
