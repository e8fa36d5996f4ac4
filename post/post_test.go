package post

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"testing"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"team/account"
	"team/config"
	"team/models"
	"team/webhook"
)

func testConfig() *config.Config {
	return &config.Config{
		Domain: "http://localhost:3000",
		Menu:   "nippo,post,gist,tweet",
		Theme:  "light",
	}
}

func setupTestRouter(db *gorm.DB) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	store := cookie.NewStore([]byte("secret"))
	router.Use(sessions.Sessions("test-session", store))

	cfg := testConfig()
	module := NewPostModule(db, cfg, webhook.NewService(cfg))
	module.RegisterRoutes(router)

	router.POST("/test/login", func(c *gin.Context) {
		id, _ := strconv.Atoi(c.PostForm("id"))
		account.SetLogin(c, id)
		c.Status(http.StatusOK)
	})
	return router
}

func createTestUser(t *testing.T, db *gorm.DB, username string) *models.User {
	user := &models.User{
		Username: username,
		Email:    username + "@example.com",
		Password: account.EncryptPassword("password"),
	}
	require.NoError(t, db.Create(user).Error)
	return user
}

func createTestPost(t *testing.T, db *gorm.DB, userID int, status string, shared bool) *models.Post {
	p := &models.Post{
		Kind:   "post",
		UserID: userID,
		Title:  "Test Post",
		Body:   "Test body",
		Status: status,
		Shared: shared,
	}
	require.NoError(t, db.Create(p).Error)
	return p
}

// loginAs returns the session cookie for the given user id.
func loginAs(t *testing.T, router *gin.Engine, userID int) string {
	form := url.Values{"id": {strconv.Itoa(userID)}}
	req, _ := http.NewRequest("POST", "/test/login", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	cookies := w.Header().Values("Set-Cookie")
	require.NotEmpty(t, cookies)
	return cookies[0]
}

func postForm(router *gin.Engine, path, sessionCookie string, form url.Values) *httptest.ResponseRecorder {
	req, _ := http.NewRequest("POST", path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if sessionCookie != "" {
		req.Header.Set("Cookie", sessionCookie)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestCreate_RequiresLogin(t *testing.T) {
	db := setupTestDB(t)
	router := setupTestRouter(db)

	form := url.Values{
		"action": {"publish"},
		"title":  {"Anonymous"},
		"body":   {"body"},
		"tags":   {""},
	}
	w := postForm(router, "/post/create", "", form)

	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/signin", w.Header().Get("Location"))

	var count int64
	db.Model(&models.Post{}).Count(&count)
	assert.Equal(t, int64(0), count)
}

func TestCreate_PublishAndDraft(t *testing.T) {
	db := setupTestDB(t)
	router := setupTestRouter(db)
	user := createTestUser(t, db, "alice")
	session := loginAs(t, router, user.ID)

	w := postForm(router, "/post/create", session, url.Values{
		"action": {"publish"},
		"title":  {"Hello"},
		"body":   {"World"},
		"tags":   {"go,web"},
	})
	assert.Equal(t, http.StatusFound, w.Code)

	var p models.Post
	require.NoError(t, db.Where("title = ?", "Hello").Take(&p).Error)
	assert.Equal(t, "publish", p.Status)
	assert.Equal(t, user.ID, p.UserID)
	assert.ElementsMatch(t, []string{"go", "web"}, tagNames(t, db, p.ID))

	w = postForm(router, "/post/create", session, url.Values{
		"action": {"draft"},
		"title":  {"WIP"},
		"body":   {"draft body"},
		"tags":   {""},
	})
	assert.Equal(t, http.StatusFound, w.Code)

	var draft models.Post
	require.NoError(t, db.Where("title = ?", "WIP").Take(&draft).Error)
	assert.Equal(t, "draft", draft.Status)
}

func TestCreate_RejectsUnknownAction(t *testing.T) {
	db := setupTestDB(t)
	router := setupTestRouter(db)
	user := createTestUser(t, db, "alice")
	session := loginAs(t, router, user.ID)

	w := postForm(router, "/post/create", session, url.Values{
		"action": {"archive"},
		"title":  {"x"},
		"body":   {"y"},
		"tags":   {""},
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestUpdate_NonOwnerForbidden(t *testing.T) {
	db := setupTestDB(t)
	router := setupTestRouter(db)
	owner := createTestUser(t, db, "alice")
	other := createTestUser(t, db, "bob")
	p := createTestPost(t, db, owner.ID, "publish", false)

	session := loginAs(t, router, other.ID)
	w := postForm(router, "/post/update", session, url.Values{
		"id":     {strconv.Itoa(p.ID)},
		"title":  {"Hijacked"},
		"body":   {"nope"},
		"tags":   {""},
		"action": {"publish"},
	})
	assert.Equal(t, http.StatusForbidden, w.Code)

	var after models.Post
	require.NoError(t, db.Take(&after, p.ID).Error)
	assert.Equal(t, "Test Post", after.Title)
}

func TestUpdate_SharedPostWritableByAnyUser(t *testing.T) {
	db := setupTestDB(t)
	router := setupTestRouter(db)
	owner := createTestUser(t, db, "alice")
	other := createTestUser(t, db, "bob")
	p := createTestPost(t, db, owner.ID, "publish", true)

	session := loginAs(t, router, other.ID)
	w := postForm(router, "/post/update", session, url.Values{
		"id":     {strconv.Itoa(p.ID)},
		"title":  {"Edited by bob"},
		"body":   {"new body"},
		"tags":   {""},
		"action": {"publish"},
	})
	assert.Equal(t, http.StatusFound, w.Code)

	var after models.Post
	require.NoError(t, db.Take(&after, p.ID).Error)
	assert.Equal(t, "Edited by bob", after.Title)
	assert.Equal(t, owner.ID, after.UserID)
}

func TestDelete_RemovesPostAndDependents(t *testing.T) {
	db := setupTestDB(t)
	router := setupTestRouter(db)
	owner := createTestUser(t, db, "alice")
	p := createTestPost(t, db, owner.ID, "publish", false)

	require.NoError(t, ReconcileTags(db, p.ID, "go"))
	require.NoError(t, db.Create(&models.PostComment{UserID: owner.ID, PostID: p.ID, Body: "hi"}).Error)
	require.NoError(t, db.Create(&models.Stock{UserID: owner.ID, PostID: p.ID}).Error)
	require.NoError(t, db.Create(&models.Pin{PostID: p.ID}).Error)

	session := loginAs(t, router, owner.ID)
	req, _ := http.NewRequest("GET", "/post/delete/"+strconv.Itoa(p.ID), nil)
	req.Header.Set("Cookie", session)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/post/list", w.Header().Get("Location"))

	for _, probe := range []struct {
		name  string
		model interface{}
	}{
		{"post", &models.Post{}},
		{"taggings", &models.Tagging{}},
		{"comments", &models.PostComment{}},
		{"stocks", &models.Stock{}},
		{"pins", &models.Pin{}},
	} {
		var count int64
		db.Model(probe.model).Count(&count)
		assert.Equal(t, int64(0), count, probe.name)
	}
}

func TestStock_Idempotent(t *testing.T) {
	db := setupTestDB(t)
	router := setupTestRouter(db)
	owner := createTestUser(t, db, "alice")
	p := createTestPost(t, db, owner.ID, "publish", false)
	session := loginAs(t, router, owner.ID)

	for i := 0; i < 2; i++ {
		req, _ := http.NewRequest("GET", "/post/stock/"+strconv.Itoa(p.ID), nil)
		req.Header.Set("Cookie", session)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusFound, w.Code)
	}

	var count int64
	db.Model(&models.Stock{}).Where("user_id = ? AND post_id = ?", owner.ID, p.ID).Count(&count)
	assert.Equal(t, int64(1), count)
}

func TestShare_MarksPostShared(t *testing.T) {
	db := setupTestDB(t)
	router := setupTestRouter(db)
	owner := createTestUser(t, db, "alice")
	p := createTestPost(t, db, owner.ID, "publish", false)
	session := loginAs(t, router, owner.ID)

	req, _ := http.NewRequest("GET", "/post/share/"+strconv.Itoa(p.ID), nil)
	req.Header.Set("Cookie", session)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusFound, w.Code)

	var after models.Post
	require.NoError(t, db.Take(&after, p.ID).Error)
	assert.True(t, after.Shared)
}

func TestDiffLines(t *testing.T) {
	out := diffLines("a\nb\nc", "a\nc\nd")
	assert.Contains(t, out, "-b\n")
	assert.Contains(t, out, "+d\n")
	assert.NotContains(t, out, "-a")
	assert.NotContains(t, out, "+c")
}
