package models

import (
	"math"
	"time"
)

// Vote is the storage shape of a ledger vote. Exactly one of PostID and
// CommentID is set; the database enforces it together with one vote per
// (user, target).
type Vote struct {
	ID        int       `gorm:"primaryKey" json:"id"`
	UserID    int       `gorm:"not null;uniqueIndex:idx_votes_user_post,where:post_id IS NOT NULL;uniqueIndex:idx_votes_user_comment,where:comment_id IS NOT NULL" json:"userId"`
	PostID    *int      `gorm:"index;uniqueIndex:idx_votes_user_post,where:post_id IS NOT NULL" json:"postId,omitempty"`
	CommentID *int      `gorm:"index;uniqueIndex:idx_votes_user_comment,where:comment_id IS NOT NULL" json:"commentId,omitempty"`
	Value     int       `gorm:"not null;check:chk_votes_value,value IN (-1, 1)" json:"value"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// VoteRequest is the inbound vote intent.
type VoteRequest struct {
	Identifier        string   `json:"identifier" binding:"required"`
	Slug              string   `json:"slug" binding:"required"`
	CommentIdentifier string   `json:"commentIdentifier"`
	Value             *float64 `json:"value"`
}

// VoteValue returns the requested value when it is one of -1, 0 or 1.
func (r VoteRequest) VoteValue() (int, bool) {
	if r.Value == nil {
		return 0, false
	}
	v := *r.Value
	if math.Abs(v) > 1 || v != math.Trunc(v) {
		return 0, false
	}
	return int(v), true
}
