package domain

import "context"

// ProfilePort reads user profiles
type ProfilePort interface {
	Profile(ctx context.Context, userID string) (Profile, error)
}
