// Package domain defines mutation operations and their results
package domain

import (
	"time"

	shots "lightbox/internal/services/shots/domain"
)

// ReactionKind enumerates the toggleable reaction kinds
type ReactionKind string

const (
	ReactionLike ReactionKind = "like"
	ReactionSave ReactionKind = "save"
)

// Valid reports whether the kind is one we accept
func (k ReactionKind) Valid() bool { return k == ReactionLike || k == ReactionSave }

// Op is a mutation accepted by Apply. The set is closed: every op carries
// its own invalidation class and fan-out shape
type Op interface{ isOp() }

// CreateShot publishes a new shot
type CreateShot struct {
	AuthorID string
	Title    string
	Tags     []string
	Color    string
}

// UpdateShotMeta edits title, tags, or dominant color; nil means unchanged
type UpdateShotMeta struct {
	ShotID  string
	ActorID string
	Title   *string
	Tags    *[]string
	Color   *string
}

// DeleteShot removes a shot and its comments
type DeleteShot struct {
	ShotID  string
	ActorID string
}

// ToggleReaction flips a (kind, shot, actor) reaction
type ToggleReaction struct {
	Kind    ReactionKind
	ShotID  string
	ActorID string
}

// CreateComment appends a comment to a shot
type CreateComment struct {
	ShotID   string
	AuthorID string
	Body     string
}

// ToggleFollow flips a (follower, followee) edge
type ToggleFollow struct {
	FollowerID string
	FolloweeID string
}

// RecordView bumps a shot's view counter
type RecordView struct {
	ShotID  string
	ActorID string
}

func (CreateShot) isOp()     {}
func (UpdateShotMeta) isOp() {}
func (DeleteShot) isOp()     {}
func (ToggleReaction) isOp() {}
func (CreateComment) isOp()  {}
func (ToggleFollow) isOp()   {}
func (RecordView) isOp()     {}

// ToggleState reports the outcome of a toggle op. Changed is false when a
// concurrent toggle already put the row in the requested state; that is a
// success, not a conflict
type ToggleState struct {
	On      bool  `json:"on"`
	Changed bool  `json:"changed"`
	Count   int64 `json:"count"`
}

// Result is the union of op outcomes; exactly one field is set per op kind
type Result struct {
	Shot    *shots.Shot    `json:"shot,omitempty"`
	Comment *shots.Comment `json:"comment,omitempty"`
	Toggle  *ToggleState   `json:"toggle,omitempty"`
	Views   int64          `json:"views,omitempty"`
}

// EngagementEvent is one analytics row for the columnar sink.
// EventID dedupes replays; the table is append-only
type EngagementEvent struct {
	EventID string
	Kind    string
	ShotID  string
	ActorID string
	At      time.Time
}

// Fan-out payloads. Subscribers see these marshalled under the envelope's
// payload field.

// ReactionEvent announces a reaction toggle on a shot
type ReactionEvent struct {
	Kind    ReactionKind `json:"kind"`
	On      bool         `json:"on"`
	Count   int64        `json:"count"`
	ActorID string       `json:"actor_id"`
}

// CommentEvent announces a new comment and the updated comment count
type CommentEvent struct {
	Comment shots.Comment `json:"comment"`
	Count   int64         `json:"count"`
}

// FollowEvent announces a follow toggle and the followee's follower count
type FollowEvent struct {
	FollowerID string `json:"follower_id"`
	On         bool   `json:"on"`
	Followers  int64  `json:"followers"`
}

// ShotDeletedEvent carries the tombstone for a removed shot
type ShotDeletedEvent struct {
	ID       string `json:"id"`
	AuthorID string `json:"author_id"`
}
