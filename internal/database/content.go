package database

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"

	"github.com/emilythestrangee/readit/backend/internal/models"
	"github.com/emilythestrangee/readit/backend/internal/votes"
)

// ContentStore loads subs, posts and comments with their votes eagerly
// attached, ready for votes.Annotate.
type ContentStore struct {
	db *gorm.DB
}

var _ votes.TargetResolver = (*ContentStore)(nil)

func NewContentStore(db *gorm.DB) *ContentStore {
	return &ContentStore{db: db}
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}

func newestFirst(db *gorm.DB) *gorm.DB {
	return db.Order("created_at DESC")
}

// ResolveTarget finds the post named by ref, or the comment on that post when
// ref names one.
func (s *ContentStore) ResolveTarget(ctx context.Context, ref votes.TargetRef) (votes.Target, error) {
	var post models.Post
	err := s.db.WithContext(ctx).
		Select("id").
		Where("identifier = ? AND slug = ?", ref.Identifier, ref.Slug).
		First(&post).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return votes.Target{}, votes.ErrTargetNotFound
	}
	if err != nil {
		return votes.Target{}, err
	}

	if ref.CommentIdentifier == "" {
		return votes.Post(post.ID), nil
	}

	var comment models.Comment
	err = s.db.WithContext(ctx).
		Select("id").
		Where("identifier = ? AND post_id = ?", ref.CommentIdentifier, post.ID).
		First(&comment).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return votes.Target{}, votes.ErrTargetNotFound
	}
	if err != nil {
		return votes.Target{}, err
	}
	return votes.Comment(comment.ID), nil
}

// FindPost returns the bare post row.
func (s *ContentStore) FindPost(ctx context.Context, identifier, slug string) (*models.Post, error) {
	var post models.Post
	err := s.db.WithContext(ctx).
		Where("identifier = ? AND slug = ?", identifier, slug).
		First(&post).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &post, nil
}

// LoadPost returns the post with its sub, votes, comments and comment votes.
func (s *ContentStore) LoadPost(ctx context.Context, identifier, slug string) (*models.Post, error) {
	var post models.Post
	err := s.db.WithContext(ctx).
		Preload("Sub").
		Preload("Votes").
		Preload("Comments", newestFirst).
		Preload("Comments.Votes").
		Where("identifier = ? AND slug = ?", identifier, slug).
		First(&post).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &post, nil
}

func (s *ContentStore) postsQuery(ctx context.Context) *gorm.DB {
	return s.db.WithContext(ctx).
		Preload("Sub").
		Preload("Votes").
		Preload("Comments", newestFirst).
		Preload("Comments.Votes").
		Order("created_at DESC")
}

// ListPosts returns every post, newest first.
func (s *ContentStore) ListPosts(ctx context.Context) ([]models.Post, error) {
	posts := []models.Post{}
	if err := s.postsQuery(ctx).Find(&posts).Error; err != nil {
		return nil, err
	}
	return posts, nil
}

// FindSub looks a sub up by exact name.
func (s *ContentStore) FindSub(ctx context.Context, name string) (*models.Sub, error) {
	var sub models.Sub
	if err := s.db.WithContext(ctx).Where("name = ?", name).First(&sub).Error; err != nil {
		return nil, notFound(err)
	}
	return &sub, nil
}

// SubNameTaken reports whether a sub with name exists, ignoring case.
func (s *ContentStore) SubNameTaken(ctx context.Context, name string) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).
		Model(&models.Sub{}).
		Where("lower(name) = ?", strings.ToLower(name)).
		Count(&count).Error
	return count > 0, err
}

// LoadSub returns the sub with its posts, newest first.
func (s *ContentStore) LoadSub(ctx context.Context, name string) (*models.Sub, error) {
	sub, err := s.FindSub(ctx, name)
	if err != nil {
		return nil, err
	}
	posts := []models.Post{}
	if err := s.postsQuery(ctx).Where("sub_id = ?", sub.ID).Find(&posts).Error; err != nil {
		return nil, err
	}
	sub.Posts = posts
	return sub, nil
}

// ListComments returns the post's comments with their votes, newest first.
func (s *ContentStore) ListComments(ctx context.Context, postID int) ([]models.Comment, error) {
	comments := []models.Comment{}
	err := s.db.WithContext(ctx).
		Preload("Votes").
		Where("post_id = ?", postID).
		Order("created_at DESC").
		Find(&comments).Error
	if err != nil {
		return nil, err
	}
	return comments, nil
}

// FindComment returns the comment with identifier on postID.
func (s *ContentStore) FindComment(ctx context.Context, postID int, identifier string) (*models.Comment, error) {
	var comment models.Comment
	err := s.db.WithContext(ctx).
		Where("identifier = ? AND post_id = ?", identifier, postID).
		First(&comment).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &comment, nil
}

// Submissions is everything a user has posted.
type Submissions struct {
	User     models.User
	Posts    []models.Post
	Comments []models.Comment
}

func (s *ContentStore) UserSubmissions(ctx context.Context, username string) (*Submissions, error) {
	var user models.User
	if err := s.db.WithContext(ctx).Where("username = ?", username).First(&user).Error; err != nil {
		return nil, notFound(err)
	}

	out := &Submissions{User: user, Posts: []models.Post{}, Comments: []models.Comment{}}
	if err := s.postsQuery(ctx).Where("user_id = ?", user.ID).Find(&out.Posts).Error; err != nil {
		return nil, err
	}
	err := s.db.WithContext(ctx).
		Preload("Votes").
		Preload("Post").
		Preload("Post.Sub").
		Preload("Post.Votes").
		Preload("Post.Comments", func(db *gorm.DB) *gorm.DB {
			return db.Select("id", "post_id")
		}).
		Where("user_id = ?", user.ID).
		Order("created_at DESC").
		Find(&out.Comments).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

// TopSubs returns the limit subs with the most posts.
func (s *ContentStore) TopSubs(ctx context.Context, limit int) ([]models.TopSub, error) {
	rows := []models.TopSub{}
	err := s.db.WithContext(ctx).
		Table("subs AS s").
		Select("s.title, s.name, s.image_urn, COUNT(p.id) AS post_count").
		Joins("LEFT JOIN posts p ON p.sub_id = s.id").
		Group("s.id, s.title, s.name, s.image_urn").
		Order("post_count DESC, s.name ASC").
		Limit(limit).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}
