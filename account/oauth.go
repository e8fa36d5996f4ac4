package account

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"gorm.io/gorm"

	"team/models"
)

func (m *AccountModule) oauthConfig() *oauth2.Config {
	return &oauth2.Config{
		ClientID:     m.cfg.GoogleClientID,
		ClientSecret: m.cfg.GoogleClientSecret,
		RedirectURL:  m.cfg.GoogleRedirectURL,
		Scopes:       []string{"https://www.googleapis.com/auth/userinfo.email"},
		Endpoint:     google.Endpoint,
	}
}

func (m *AccountModule) oauthRedirect(c *gin.Context) {
	if m.cfg.GoogleClientID == "" {
		c.Redirect(http.StatusFound, "/signin")
		return
	}
	c.Redirect(http.StatusFound, m.oauthConfig().AuthCodeURL("state"))
}

// oauthCallback exchanges the authorization code, reads the account email
// and signs the matching user in, creating one on first login. A configured
// allow domain rejects outside addresses.
func (m *AccountModule) oauthCallback(c *gin.Context) {
	code := c.Query("code")
	if code == "" {
		c.String(http.StatusBadRequest, "code is required")
		return
	}

	conf := m.oauthConfig()
	token, err := conf.Exchange(c.Request.Context(), code)
	if err != nil {
		log.Printf("oauth: exchange: %v", err)
		c.Redirect(http.StatusFound, "/signin")
		return
	}

	email, err := fetchEmail(conf.Client(c.Request.Context(), token))
	if err != nil {
		log.Printf("oauth: userinfo: %v", err)
		c.Redirect(http.StatusFound, "/signin")
		return
	}

	if m.cfg.GoogleAllowDomain != "" && !strings.HasSuffix(email, "@"+m.cfg.GoogleAllowDomain) {
		c.String(http.StatusForbidden, "email domain is not allowed")
		return
	}

	user, err := m.userForEmail(email, code)
	if err != nil {
		log.Printf("oauth: resolve user: %v", err)
		c.String(http.StatusInternalServerError, "failed to sign in")
		return
	}

	if err := SetLogin(c, user.ID); err != nil {
		log.Printf("oauth: save session: %v", err)
		c.String(http.StatusInternalServerError, "failed to start session")
		return
	}
	c.Redirect(http.StatusFound, "/")
}

// userForEmail finds the user for an OAuth email, creating one on the
// first login with the email local part as the username. Only a missing
// row triggers the create; any other lookup error is returned so a flaky
// connection cannot mint a duplicate account.
func (m *AccountModule) userForEmail(email, secret string) (models.User, error) {
	var user models.User
	err := m.db.Where("email = ?", email).First(&user).Error
	if err == gorm.ErrRecordNotFound {
		user = models.User{
			Username: strings.SplitN(email, "@", 2)[0],
			Email:    email,
			Password: EncryptPassword(secret),
		}
		if err := m.db.Create(&user).Error; err != nil {
			return models.User{}, err
		}
		return user, nil
	}
	if err != nil {
		return models.User{}, err
	}
	return user, nil
}

func fetchEmail(client *http.Client) (string, error) {
	resp, err := client.Get("https://www.googleapis.com/oauth2/v2/userinfo")
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var info struct {
		Email string `json:"email"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return "", err
	}
	if info.Email == "" {
		return "", fmt.Errorf("userinfo response had no email")
	}
	return info.Email, nil
}
