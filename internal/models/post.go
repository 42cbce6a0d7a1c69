package models

import (
	"fmt"
	"time"
)

type Post struct {
	ID         int    `gorm:"primaryKey" json:"id"`
	Identifier string `gorm:"size:7;not null;uniqueIndex:idx_posts_identifier_slug" json:"identifier"`
	Slug       string `gorm:"not null;uniqueIndex:idx_posts_identifier_slug" json:"slug"`
	Title      string `gorm:"not null" json:"title"`
	Body       string `gorm:"type:text" json:"body"`
	SubID      int    `gorm:"not null;index" json:"-"`
	SubName    string `gorm:"not null" json:"subName"`
	UserID     int    `gorm:"not null;index" json:"-"`
	Username   string `gorm:"not null" json:"username"`

	Sub      *Sub      `gorm:"foreignKey:SubID;constraint:OnDelete:CASCADE" json:"sub,omitempty"`
	Comments []Comment `gorm:"foreignKey:PostID;constraint:OnDelete:CASCADE" json:"comments,omitempty"`
	Votes    []Vote    `gorm:"foreignKey:PostID;constraint:OnDelete:CASCADE" json:"-"`

	// Read-time projection, never persisted.
	URL          string `gorm:"-" json:"url"`
	CommentCount int    `gorm:"-" json:"commentCount"`
	VoteScore    int    `gorm:"-" json:"voteScore"`
	UserVote     int    `gorm:"-" json:"userVote,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (p *Post) VoteList() []Vote { return p.Votes }

func (p *Post) SetVoteState(score, userVote int) {
	p.VoteScore = score
	p.UserVote = userVote
	p.CommentCount = len(p.Comments)
	p.SetURL()
}

func (p *Post) SetURL() {
	p.URL = fmt.Sprintf("/r/%s/%s/%s", p.SubName, p.Identifier, p.Slug)
}

// SetSubURLs expands the image urls of the embedded sub, when loaded.
func (p *Post) SetSubURLs(appURL string) {
	if p.Sub != nil {
		p.Sub.SetURLs(appURL)
	}
}

type CreatePostRequest struct {
	Title string `json:"title"`
	Body  string `json:"body"`
	Sub   string `json:"sub" binding:"required"`
}
