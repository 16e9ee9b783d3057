package domain

import "context"

// QueryPort is the read interface the shots module exposes to transports
// and other modules
type QueryPort interface {
	// List runs a compiled feed query, cache first
	List(ctx context.Context, in QueryInput) (FeedPage, error)
	// Get returns a single shot by id
	Get(ctx context.Context, id string) (Shot, error)
	// Comments returns a page of comments for a shot, oldest first
	Comments(ctx context.Context, shotID string, in CommentsInput) (CommentPage, error)
}
