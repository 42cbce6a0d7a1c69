package models

import (
	"fmt"
	"time"
)

// DefaultSubImageURL is served for subs that never had an image attached.
const DefaultSubImageURL = "https://www.gravatar.com/avatar/00000000000000000000000000000000?d=mp&f=y"

// Sub is a community. Posts reference it by id and carry its name denormalized.
type Sub struct {
	ID          int     `gorm:"primaryKey" json:"id"`
	Name        string  `gorm:"uniqueIndex;not null" json:"name"`
	Title       string  `gorm:"not null" json:"title"`
	Description string  `gorm:"type:text" json:"description"`
	ImageURN    *string `json:"imageUrn,omitempty"`
	BannerURN   *string `json:"bannerUrn,omitempty"`
	UserID      int     `gorm:"not null;index" json:"-"`
	Username    string  `gorm:"not null" json:"username"`

	Posts []Post `gorm:"foreignKey:SubID;constraint:OnDelete:CASCADE" json:"posts,omitempty"`

	// Filled by SetURLs before serialization.
	ImageURL  string `gorm:"-" json:"imageUrl"`
	BannerURL string `gorm:"-" json:"bannerUrl,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// SetURLs expands the stored image urns into public urls under appURL.
func (s *Sub) SetURLs(appURL string) {
	s.ImageURL = ImageURL(appURL, s.ImageURN)
	s.BannerURL = ""
	if s.BannerURN != nil && *s.BannerURN != "" {
		s.BannerURL = fmt.Sprintf("%s/images/%s", appURL, *s.BannerURN)
	}
}

// ImageURL returns the public url for urn, or the placeholder avatar.
func ImageURL(appURL string, urn *string) string {
	if urn == nil || *urn == "" {
		return DefaultSubImageURL
	}
	return fmt.Sprintf("%s/images/%s", appURL, *urn)
}

// TopSub is one row of the most-active-subs listing.
type TopSub struct {
	Title     string  `json:"title"`
	Name      string  `json:"name"`
	ImageURN  *string `json:"-"`
	ImageURL  string  `gorm:"-" json:"imageUrl"`
	PostCount int     `json:"postCount"`
}

type CreateSubRequest struct {
	Name        string `json:"name"`
	Title       string `json:"title"`
	Description string `json:"description"`
}
