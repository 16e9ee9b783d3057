// Package domain defines the read-side types for shots
package domain

import (
	"time"

	"lightbox/internal/platform/cache"
)

// Cache classes owned by the shots read model. The dispatcher bumps and
// invalidates these; readers stamp and verify against them
const (
	CacheFeed     cache.Class = "feed"
	CacheShot     cache.Class = "shot"
	CacheComments cache.Class = "comments"
)

// Shot is a published visual content item with derived engagement counters.
// Counters are projections of reaction/comment rows, repaired by the tally
// worker when they drift
type Shot struct {
	ID        string    `json:"id"         example:"01J8ZK3V9X2N5M7Q0R4T6W8Y1B"`
	AuthorID  string    `json:"author_id"  example:"01J8ZJYQ0A1B2C3D4E5F6G7H8J"`
	Title     string    `json:"title"      example:"rooftop at golden hour"`
	Tags      []string  `json:"tags"`
	Color     string    `json:"color,omitempty" example:"#b4532a"`
	Likes     int64     `json:"likes"      example:"12"`
	Saves     int64     `json:"saves"      example:"3"`
	Comments  int64     `json:"comments"   example:"4"`
	Views     int64     `json:"views"      example:"208"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Comment is a single comment on a shot
type Comment struct {
	ID        string    `json:"id"`
	ShotID    string    `json:"shot_id"`
	AuthorID  string    `json:"author_id"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"created_at"`
}

// FeedPage is one page of feed results; an empty page is a valid answer
type FeedPage struct {
	Items    []Shot `json:"items"`
	Total    int    `json:"total"`
	Page     int    `json:"page"`
	PageSize int    `json:"page_size"`
}

// CommentPage is one page of comments for a shot
type CommentPage struct {
	Items    []Comment `json:"items"`
	Total    int       `json:"total"`
	Page     int       `json:"page"`
	PageSize int       `json:"page_size"`
}
