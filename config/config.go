package config

import (
	"log"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

// DefaultMenu is the menu shown to users without a saved preference.
const DefaultMenu = "nippo,post,gist,tweet"

// Config holds every process-wide setting. It is constructed once in main
// and handed to the modules that need it; there is no global.
type Config struct {
	Port               string
	DatabaseURL        string
	Domain             string
	SlackURL           string
	WebhookURL         string
	GoogleClientID     string
	GoogleClientSecret string
	GoogleRedirectURL  string
	GoogleAllowDomain  string
	Menu               string
	Theme              string
	CookieSecret       string
}

// Load reads an optional .env file and then the environment. Every key has
// a default; an empty Slack/webhook/OAuth setting disables that feature.
func Load() *Config {
	if err := godotenv.Load(); err == nil {
		log.Println("loaded settings from .env")
	}

	return &Config{
		Port:               getenv("PORT", "3000"),
		DatabaseURL:        getenv("TEAM_DATABASE_URL", "team.db"),
		Domain:             getenv("TEAM_DOMAIN", ""),
		SlackURL:           getenv("TEAM_SLACK", ""),
		WebhookURL:         getenv("TEAM_WEBHOOK_URL", ""),
		GoogleClientID:     getenv("TEAM_GOOGLE_CLIENT_ID", ""),
		GoogleClientSecret: getenv("TEAM_GOOGLE_CLIENT_SECRET", ""),
		GoogleRedirectURL:  getenv("TEAM_GOOGLE_REDIRECT_URL", ""),
		GoogleAllowDomain:  getenv("TEAM_GOOGLE_ALLOW_DOMAIN", ""),
		Menu:               getenv("TEAM_MENU", DefaultMenu),
		Theme:              getenv("TEAM_THEME", "light"),
		CookieSecret:       getenv("TEAM_SECRET_COOKIE", "team-secret"),
	}
}

// MenuItems splits the configured menu into its entries.
func (c *Config) MenuItems() []string {
	items := strings.Split(c.Menu, ",")
	for i := range items {
		items[i] = strings.TrimSpace(items[i])
	}
	return items
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
