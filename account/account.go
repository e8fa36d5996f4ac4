package account

import (
	"fmt"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"team/config"
	"team/models"
)

type AccountModule struct {
	db  *gorm.DB
	cfg *config.Config
}

func NewAccountModule(db *gorm.DB, cfg *config.Config) *AccountModule {
	return &AccountModule{db: db, cfg: cfg}
}

func (m *AccountModule) RegisterRoutes(router *gin.Engine) {
	router.GET("/signup", m.signupPage)
	router.POST("/signup", m.signup)
	router.GET("/signin", m.signinPage)
	router.POST("/signin", m.signin)
	router.GET("/signout", m.signout)

	router.GET("/oauth/google", m.oauthRedirect)
	router.GET("/oauth/callback", m.oauthCallback)

	settings := router.Group("/settings")
	settings.Use(RequireLogin())
	{
		settings.GET("/", m.settingsPage)
		settings.POST("/", m.updateSettings)
		settings.POST("/password", m.updatePassword)
		settings.POST("/username", m.updateUsername)
		settings.POST("/preference", m.updatePreference)
		settings.POST("/icon", m.uploadIcon)
	}
}

func (m *AccountModule) signupPage(c *gin.Context) {
	c.HTML(http.StatusOK, "signup.html", gin.H{})
}

func (m *AccountModule) signup(c *gin.Context) {
	username := c.PostForm("username")
	password := c.PostForm("password")
	if username == "" || password == "" {
		c.String(http.StatusBadRequest, "username and password are required")
		return
	}

	user := models.User{
		Username: username,
		Password: EncryptPassword(password),
	}
	if err := m.db.Create(&user).Error; err != nil {
		log.Printf("signup: create user: %v", err)
		c.String(http.StatusInternalServerError, "failed to create account")
		return
	}

	c.Redirect(http.StatusFound, "/signin")
}

func (m *AccountModule) signinPage(c *gin.Context) {
	if LoginID(c) != 0 {
		c.Redirect(http.StatusFound, "/")
		return
	}
	c.HTML(http.StatusOK, "signin.html", gin.H{})
}

func (m *AccountModule) signin(c *gin.Context) {
	username := c.PostForm("username")
	password := c.PostForm("password")
	if username == "" || password == "" {
		c.String(http.StatusBadRequest, "username and password are required")
		return
	}

	var user models.User
	err := m.db.Where("username = ? AND password = ?", username, EncryptPassword(password)).
		First(&user).Error
	if err != nil {
		// Bad credentials land back on the form, same as the empty-row case.
		c.Redirect(http.StatusFound, "/signin")
		return
	}

	if err := SetLogin(c, user.ID); err != nil {
		log.Printf("signin: save session: %v", err)
		c.String(http.StatusInternalServerError, "failed to start session")
		return
	}
	c.Redirect(http.StatusFound, "/")
}

func (m *AccountModule) signout(c *gin.Context) {
	if err := ClearLogin(c); err != nil {
		log.Printf("signout: clear session: %v", err)
	}
	c.Redirect(http.StatusFound, "/signin")
}

func (m *AccountModule) settingsPage(c *gin.Context) {
	user := CurrentUser(c, m.db, m.cfg)
	c.HTML(http.StatusOK, "settings.html", gin.H{
		"logged_in":  user.LoggedIn(),
		"login_user": user,
	})
}

func (m *AccountModule) updateSettings(c *gin.Context) {
	iconURL := c.PostForm("icon_url")
	if iconURL == "" {
		c.String(http.StatusBadRequest, "icon_url is required")
		return
	}

	if err := m.db.Model(&models.User{}).Where("id = ?", LoginID(c)).
		Update("icon_url", iconURL).Error; err != nil {
		log.Printf("settings: update icon: %v", err)
		c.String(http.StatusInternalServerError, "failed to update settings")
		return
	}
	c.Redirect(http.StatusFound, "/settings/")
}

func (m *AccountModule) updatePassword(c *gin.Context) {
	currentPassword := c.PostForm("current_password")
	newPassword := c.PostForm("new_password")
	confirmPassword := c.PostForm("confirm_password")
	if currentPassword == "" || newPassword == "" || confirmPassword == "" {
		c.String(http.StatusBadRequest, "all password fields are required")
		return
	}
	if newPassword != confirmPassword {
		c.String(http.StatusBadRequest, "passwords do not match")
		return
	}

	var user models.User
	if err := m.db.First(&user, LoginID(c)).Error; err != nil {
		c.String(http.StatusBadRequest, "unknown user")
		return
	}
	if EncryptPassword(currentPassword) != user.Password {
		c.String(http.StatusBadRequest, "current password is wrong")
		return
	}

	if err := m.db.Model(&user).Update("password", EncryptPassword(newPassword)).Error; err != nil {
		log.Printf("settings: update password: %v", err)
		c.String(http.StatusInternalServerError, "failed to update password")
		return
	}
	c.Redirect(http.StatusFound, "/settings/")
}

func (m *AccountModule) updateUsername(c *gin.Context) {
	username := c.PostForm("username")
	if username == "" {
		c.String(http.StatusBadRequest, "username is required")
		return
	}

	if err := m.db.Model(&models.User{}).Where("id = ?", LoginID(c)).
		Update("username", username).Error; err != nil {
		log.Printf("settings: update username: %v", err)
		c.String(http.StatusInternalServerError, "failed to update username")
		return
	}
	c.Redirect(http.StatusFound, "/settings/")
}

func (m *AccountModule) updatePreference(c *gin.Context) {
	menu := c.PostForm("menu")
	theme := c.PostForm("theme")
	userID := LoginID(c)

	var pref models.Preference
	err := m.db.Where("user_id = ?", userID).First(&pref).Error
	if err == gorm.ErrRecordNotFound {
		pref = models.Preference{UserID: userID, Menu: menu, Theme: theme}
		err = m.db.Create(&pref).Error
	} else if err == nil {
		pref.Menu = menu
		pref.Theme = theme
		err = m.db.Save(&pref).Error
	}
	if err != nil {
		log.Printf("settings: save preference: %v", err)
		c.String(http.StatusInternalServerError, "failed to save preference")
		return
	}
	c.Redirect(http.StatusFound, "/settings/")
}

// uploadIcon stores an avatar under the static dir and points the user's
// icon_url at it.
func (m *AccountModule) uploadIcon(c *gin.Context) {
	file, err := c.FormFile("file")
	if err != nil {
		c.String(http.StatusBadRequest, "file is required")
		return
	}

	name := fmt.Sprintf("%d%s", time.Now().Unix(), filepath.Ext(file.Filename))
	dst := filepath.Join("public", "img", "icons", name)
	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		log.Printf("settings: icon dir: %v", err)
		c.String(http.StatusInternalServerError, "failed to store icon")
		return
	}
	if err := c.SaveUploadedFile(file, dst); err != nil {
		log.Printf("settings: save icon: %v", err)
		c.String(http.StatusInternalServerError, "failed to store icon")
		return
	}

	iconURL := fmt.Sprintf("%s/img/icons/%s", m.cfg.Domain, name)
	if err := m.db.Model(&models.User{}).Where("id = ?", LoginID(c)).
		Update("icon_url", iconURL).Error; err != nil {
		log.Printf("settings: update icon url: %v", err)
		c.String(http.StatusInternalServerError, "failed to update settings")
		return
	}
	c.Redirect(http.StatusFound, "/settings/")
}
