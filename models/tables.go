package models

import "time"

type User struct {
	ID       int    `gorm:"primary_key;autoIncrement" json:"id"`
	Username string `gorm:"unique;not null" json:"username"`
	Email    string `json:"email"`
	IconURL  string `json:"icon_url"`
	Password string `gorm:"not null" json:"-"` // sha256(plain + salt), never exposed
}

// Preference stores per-user UI settings; absent rows fall back to the
// configured defaults.
type Preference struct {
	ID     int    `gorm:"primary_key;autoIncrement" json:"id"`
	UserID int    `gorm:"not null;uniqueIndex" json:"user_id"`
	Menu   string `json:"menu"` // comma-separated menu entries
	Theme  string `json:"theme"`
}

type Post struct {
	ID        int       `gorm:"primary_key;autoIncrement" json:"id"`
	Kind      string    `gorm:"not null;index" json:"kind"` // "post", "nippo"
	UserID    int       `gorm:"not null;index" json:"user_id"`
	Title     string    `gorm:"not null" json:"title"`
	Body      string    `gorm:"type:text" json:"body"`
	Status    string    `gorm:"not null;default:'publish';index" json:"status"` // "draft" or "publish"
	Shared    bool      `gorm:"default:false" json:"shared"`
	CreatedAt time.Time `json:"created_at"`
}

type Tag struct {
	ID   int    `gorm:"primary_key;autoIncrement" json:"id"`
	Name string `gorm:"unique;not null" json:"name"`
}

// Tagging joins posts and tags. The pair is unique; reconciliation keeps
// the rows for a post equal to its most recent tag set.
type Tagging struct {
	ID     int `gorm:"primary_key;autoIncrement" json:"id"`
	TagID  int `gorm:"not null;uniqueIndex:idx_taggings_tag_post" json:"tag_id"`
	PostID int `gorm:"not null;uniqueIndex:idx_taggings_tag_post;index" json:"post_id"`
}

type PostComment struct {
	ID        int       `gorm:"primary_key;autoIncrement" json:"id"`
	UserID    int       `gorm:"not null;index" json:"user_id"`
	PostID    int       `gorm:"not null;index" json:"post_id"`
	Body      string    `gorm:"type:text" json:"body"`
	CreatedAt time.Time `json:"created_at"`
}

type Gist struct {
	ID          int       `gorm:"primary_key;autoIncrement" json:"id"`
	UserID      int       `gorm:"not null;index" json:"user_id"`
	Description string    `json:"description"`
	Filename    string    `json:"filename"`
	Code        string    `gorm:"type:text" json:"code"`
	CreatedAt   time.Time `json:"created_at"`
}

type GistComment struct {
	ID        int       `gorm:"primary_key;autoIncrement" json:"id"`
	UserID    int       `gorm:"not null;index" json:"user_id"`
	GistID    int       `gorm:"not null;index" json:"gist_id"`
	Body      string    `gorm:"type:text" json:"body"`
	CreatedAt time.Time `json:"created_at"`
}

type Tweet struct {
	ID        int       `gorm:"primary_key;autoIncrement" json:"id"`
	UserID    int       `gorm:"not null;index" json:"user_id"`
	Body      string    `gorm:"type:text" json:"body"`
	CreatedAt time.Time `json:"created_at"`
}

type TweetComment struct {
	ID        int       `gorm:"primary_key;autoIncrement" json:"id"`
	UserID    int       `gorm:"not null;index" json:"user_id"`
	TweetID   int       `gorm:"not null;index" json:"tweet_id"`
	Body      string    `gorm:"type:text" json:"body"`
	CreatedAt time.Time `json:"created_at"`
}

type Notification struct {
	ID        int       `gorm:"primary_key;autoIncrement" json:"id"`
	Path      string    `gorm:"not null" json:"path"` // link target, e.g. /post/show/3
	FromUser  int       `gorm:"not null;index" json:"from_user"`
	ToUser    int       `gorm:"not null;index" json:"to_user"`
	Body      string    `gorm:"type:text" json:"body"`
	Read      bool      `gorm:"default:false;index" json:"read"`
	CreatedAt time.Time `json:"created_at"`
}

// Stock is a user's personal bookmark of a post.
type Stock struct {
	ID     int `gorm:"primary_key;autoIncrement" json:"id"`
	UserID int `gorm:"not null;uniqueIndex:idx_stocks_user_post" json:"user_id"`
	PostID int `gorm:"not null;uniqueIndex:idx_stocks_user_post;index" json:"post_id"`
}

// Pin is a globally visible highlight of a post; UserID records who set it.
type Pin struct {
	ID     int `gorm:"primary_key;autoIncrement" json:"id"`
	UserID int `gorm:"not null;index" json:"user_id"`
	PostID int `gorm:"not null;uniqueIndex" json:"post_id"`
}
