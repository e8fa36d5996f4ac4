package notification

import (
	"html/template"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"team/account"
	"team/config"
	"team/models"
)

func setupTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	err = db.AutoMigrate(&models.User{}, &models.Preference{}, &models.Notification{})
	require.NoError(t, err)
	return db
}

func setupTestRouter(db *gorm.DB) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	store := cookie.NewStore([]byte("secret"))
	router.Use(sessions.Sessions("test-session", store))
	router.SetHTMLTemplate(template.Must(template.New("notifications.html").Parse("ok")))

	cfg := &config.Config{Menu: "post", Theme: "light"}
	NewNotificationModule(db, cfg).RegisterRoutes(router)

	router.POST("/test/login/:id", func(c *gin.Context) {
		id, _ := strconv.Atoi(c.Param("id"))
		account.SetLogin(c, id)
		c.Status(http.StatusOK)
	})
	return router
}

func loginAs(t *testing.T, router *gin.Engine, userID int) string {
	req, _ := http.NewRequest("POST", "/test/login/"+strconv.Itoa(userID), nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	cookies := w.Header().Values("Set-Cookie")
	require.NotEmpty(t, cookies)
	return cookies[0]
}

func get(router *gin.Engine, path, sessionCookie string) *httptest.ResponseRecorder {
	req, _ := http.NewRequest("GET", path, nil)
	if sessionCookie != "" {
		req.Header.Set("Cookie", sessionCookie)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestCreate(t *testing.T) {
	db := setupTestDB(t)

	id, err := Create(db, "/post/show/1", 1, 2, "a comment")
	require.NoError(t, err)
	assert.NotZero(t, id)

	var n models.Notification
	require.NoError(t, db.Take(&n, id).Error)
	assert.Equal(t, "/post/show/1", n.Path)
	assert.Equal(t, 1, n.FromUser)
	assert.Equal(t, 2, n.ToUser)
	assert.False(t, n.Read)
}

func TestList_MarksAllRead(t *testing.T) {
	db := setupTestDB(t)
	router := setupTestRouter(db)

	sender := models.User{Username: "alice", Password: "x"}
	require.NoError(t, db.Create(&sender).Error)
	receiver := models.User{Username: "bob", Password: "x"}
	require.NoError(t, db.Create(&receiver).Error)

	for i := 0; i < 15; i++ {
		_, err := Create(db, "/post/show/1", sender.ID, receiver.ID, "hi")
		require.NoError(t, err)
	}

	session := loginAs(t, router, receiver.ID)
	w := get(router, "/notifications/", session)
	require.Equal(t, http.StatusOK, w.Code)

	// Every notification is read afterwards, beyond the first page.
	var unread int64
	db.Model(&models.Notification{}).
		Where("to_user = ? AND read = ?", receiver.ID, false).
		Count(&unread)
	assert.Equal(t, int64(0), unread)
}

func TestUnreadCount(t *testing.T) {
	db := setupTestDB(t)
	router := setupTestRouter(db)

	sender := models.User{Username: "alice", Password: "x"}
	require.NoError(t, db.Create(&sender).Error)
	receiver := models.User{Username: "bob", Password: "x"}
	require.NoError(t, db.Create(&receiver).Error)

	for i := 0; i < 3; i++ {
		_, err := Create(db, "/gist/show/1", sender.ID, receiver.ID, "hi")
		require.NoError(t, err)
	}

	session := loginAs(t, router, receiver.ID)
	w := get(router, "/notifications/count", session)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"count": 3}`, w.Body.String())

	// Counts are per-recipient.
	other := loginAs(t, router, sender.ID)
	w = get(router, "/notifications/count", other)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"count": 0}`, w.Body.String())
}

func TestList_RequiresLogin(t *testing.T) {
	db := setupTestDB(t)
	router := setupTestRouter(db)

	w := get(router, "/notifications/", "")
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/signin", w.Header().Get("Location"))
}
