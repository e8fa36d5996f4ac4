package main

import (
	"log"
	"time"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"

	"team/account"
	"team/common"
	"team/config"
	"team/database"
	"team/feed"
	"team/gist"
	"team/notification"
	"team/post"
	"team/tweet"
	"team/webhook"
)

func main() {
	cfg := config.Load()

	db := common.ConnectDb(cfg.DatabaseURL)
	if db == nil {
		log.Fatal("Failed to connect to database")
	}

	if err := database.RunMigrations(db); err != nil {
		log.Fatal("Failed to run migrations:", err)
	}

	router := gin.Default()

	store := cookie.NewStore([]byte(cfg.CookieSecret))
	store.Options(sessions.Options{
		Path:     "/",
		MaxAge:   86400 * 7,
		HttpOnly: true,
		Secure:   false,
	})
	router.Use(sessions.Sessions("team-session", store))

	router.SetFuncMap(map[string]interface{}{
		"now": func() time.Time {
			return time.Now()
		},
		"domain": func() string {
			return cfg.Domain
		},
		"markdown": common.RenderMarkdown,
	})

	router.LoadHTMLGlob("*/views/*.html")

	router.Static("/public", "./public")

	hooks := webhook.NewService(cfg)

	account.NewAccountModule(db, cfg).RegisterRoutes(router)
	post.NewPostModule(db, cfg, hooks).RegisterRoutes(router)
	gist.NewGistModule(db, cfg, hooks).RegisterRoutes(router)
	tweet.NewTweetModule(db, cfg, hooks).RegisterRoutes(router)
	notification.NewNotificationModule(db, cfg).RegisterRoutes(router)
	feed.NewFeedModule(db, cfg).RegisterRoutes(router)

	log.Printf("Starting server on port %s...", cfg.Port)
	if err := router.Run(":" + cfg.Port); err != nil {
		log.Fatal("Failed to start server:", err)
	}
}
