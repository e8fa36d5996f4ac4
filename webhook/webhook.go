package webhook

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"gorm.io/gorm"

	"team/config"
	"team/models"
)

// Service delivers Slack and generic webhook notifications. An empty URL
// disables the corresponding channel. Delivery failures are logged and
// swallowed; a notification must never fail the request that triggered it.
type Service struct {
	slackURL   string
	webhookURL string
	domain     string
	client     *http.Client
}

func NewService(cfg *config.Config) *Service {
	return &Service{
		slackURL:   cfg.SlackURL,
		webhookURL: cfg.WebhookURL,
		domain:     cfg.Domain,
		client:     &http.Client{Timeout: 10 * time.Second},
	}
}

// PostToSlack announces an event on a post: "{title} by @{user}" with the
// body, a link to the post, and any @mentions appended.
func (s *Service) PostToSlack(db *gorm.DB, userID int, title, body string, postID int, mentions []string, path string) {
	var user models.User
	if err := db.First(&user, userID).Error; err != nil {
		log.Printf("slack: lookup user %d: %v", userID, err)
		return
	}

	link := fmt.Sprintf("%s/%s/show/%d", s.domain, path, postID)
	var mentioned strings.Builder
	for _, m := range mentions {
		mentioned.WriteString("@")
		mentioned.WriteString(m)
		mentioned.WriteString(" ")
	}
	text := fmt.Sprintf("%s by @%s\n%s\n%s\n%s", title, user.Username, body, link, mentioned.String())
	s.Slack(text)
}

// Slack posts a plain-text payload to the configured incoming webhook.
func (s *Service) Slack(text string) {
	if s.slackURL == "" {
		return
	}

	payload := map[string]string{
		"text":       text,
		"username":   "Team",
		"icon_emoji": ":beers:",
	}
	buf, err := json.Marshal(payload)
	if err != nil {
		log.Printf("slack: marshal payload: %v", err)
		return
	}

	resp, err := s.client.Post(s.slackURL, "application/json", bytes.NewReader(buf))
	if err != nil {
		log.Printf("slack: post to %s: %v", s.slackURL, err)
		return
	}
	resp.Body.Close()
}

// Webhook posts {username, title, body, url} as JSON to the generic
// webhook endpoint.
func (s *Service) Webhook(username, title, body, url string) {
	if s.webhookURL == "" {
		return
	}

	payload := struct {
		Username string `json:"username"`
		Title    string `json:"title"`
		Body     string `json:"body"`
		URL      string `json:"url"`
	}{username, title, body, url}

	buf, err := json.Marshal(payload)
	if err != nil {
		log.Printf("webhook: marshal payload: %v", err)
		return
	}

	resp, err := s.client.Post(s.webhookURL, "application/json", bytes.NewReader(buf))
	if err != nil {
		log.Printf("webhook: post to %s: %v", s.webhookURL, err)
		return
	}
	resp.Body.Close()
}
