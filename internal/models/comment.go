package models

import "time"

type Comment struct {
	ID         int    `gorm:"primaryKey" json:"id"`
	Identifier string `gorm:"size:8;not null;uniqueIndex" json:"identifier"`
	Body       string `gorm:"type:text;not null" json:"body"`
	UserID     int    `gorm:"not null;index" json:"-"`
	Username   string `gorm:"not null" json:"username"`
	PostID     int    `gorm:"not null;index" json:"-"`

	Votes []Vote `gorm:"foreignKey:CommentID;constraint:OnDelete:CASCADE" json:"-"`

	// Only loaded for user submission listings.
	Post *Post `gorm:"foreignKey:PostID;constraint:OnDelete:CASCADE" json:"post,omitempty"`

	VoteScore int `gorm:"-" json:"voteScore"`
	UserVote  int `gorm:"-" json:"userVote,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (c *Comment) VoteList() []Vote { return c.Votes }

func (c *Comment) SetVoteState(score, userVote int) {
	c.VoteScore = score
	c.UserVote = userVote
}

type CreateCommentRequest struct {
	Body string `json:"body" binding:"required"`
}
