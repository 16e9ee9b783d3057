// Package domain defines the social graph read-model types
package domain

import "lightbox/internal/platform/cache"

// CacheProfile versions cached profile entries. Follow toggles and shot
// lifecycle mutations invalidate the affected subjects
const CacheProfile cache.Class = "profile"

// Profile aggregates the public counters for one user
type Profile struct {
	UserID    string `json:"user_id"   example:"01J8ZJYQ0A1B2C3D4E5F6G7H8J"`
	Followers int64  `json:"followers" example:"42"`
	Following int64  `json:"following" example:"17"`
	Shots     int64  `json:"shots"     example:"9"`
}
