package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/emilythestrangee/readit/backend/internal/cache"
	"github.com/emilythestrangee/readit/backend/internal/database"
	"github.com/emilythestrangee/readit/backend/internal/middleware"
	"github.com/emilythestrangee/readit/backend/internal/models"
	"github.com/emilythestrangee/readit/backend/internal/votes"
)

type PostHandler struct {
	db      *gorm.DB
	content *database.ContentStore
	topSubs *cache.TopSubs
	appURL  string
}

func NewPostHandler(db *gorm.DB, content *database.ContentStore, topSubs *cache.TopSubs, appURL string) *PostHandler {
	return &PostHandler{db: db, content: content, topSubs: topSubs, appURL: appURL}
}

// GetPosts returns every post, newest first
func (h *PostHandler) GetPosts(c *gin.Context) {
	posts, err := h.content.ListPosts(c.Request.Context())
	if err != nil {
		serverError(c, err, "list posts")
		return
	}

	votes.AnnotatePosts(posts, middleware.CurrentUser(c))
	for i := range posts {
		posts[i].SetSubURLs(h.appURL)
	}
	c.JSON(http.StatusOK, posts)
}

// GetPost returns a single post by identifier and slug
func (h *PostHandler) GetPost(c *gin.Context) {
	post, err := h.content.LoadPost(c.Request.Context(), c.Param("identifier"), c.Param("slug"))
	if errors.Is(err, database.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Post not found"})
		return
	}
	if err != nil {
		serverError(c, err, "load post")
		return
	}

	votes.AnnotatePost(post, middleware.CurrentUser(c))
	post.SetSubURLs(h.appURL)
	c.JSON(http.StatusOK, post)
}

// CreatePost creates a new post (PROTECTED - requires authentication)
func (h *PostHandler) CreatePost(c *gin.Context) {
	var input models.CreatePostRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		respondBindError(c, err)
		return
	}

	title := strings.TrimSpace(input.Title)
	if title == "" {
		c.JSON(http.StatusBadRequest, gin.H{"title": "Title must not be empty"})
		return
	}

	ctx := c.Request.Context()
	sub, err := h.content.FindSub(ctx, input.Sub)
	if errors.Is(err, database.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"sub": "Sub not found"})
		return
	}
	if err != nil {
		serverError(c, err, "find sub")
		return
	}

	user := middleware.CurrentUser(c)
	post := models.Post{
		Title:    title,
		Slug:     makeSlug(title),
		Body:     input.Body,
		SubID:    sub.ID,
		SubName:  sub.Name,
		UserID:   user.ID,
		Username: user.Username,
	}

	for attempt := 1; ; attempt++ {
		post.Identifier, err = makeID(postIdentifierLength)
		if err != nil {
			serverError(c, err, "generate post identifier")
			return
		}
		err = h.db.WithContext(ctx).Omit(clause.Associations).Create(&post).Error
		if err == nil {
			break
		}
		if !database.IsUniqueViolation(err) || attempt == maxIdentifierAttempts {
			serverError(c, err, "create post")
			return
		}
	}
	h.topSubs.Invalidate(ctx)

	post.Sub = sub
	post.SetSubURLs(h.appURL)
	votes.AnnotatePost(&post, user)
	c.JSON(http.StatusCreated, post)
}

// DeletePost deletes a post with its comments and votes (PROTECTED - requires ownership)
func (h *PostHandler) DeletePost(c *gin.Context) {
	ctx := c.Request.Context()
	post, err := h.content.FindPost(ctx, c.Param("identifier"), c.Param("slug"))
	if errors.Is(err, database.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Post not found"})
		return
	}
	if err != nil {
		serverError(c, err, "find post")
		return
	}

	if post.UserID != middleware.CurrentUser(c).ID {
		c.JSON(http.StatusForbidden, gin.H{"error": "You can only delete your own posts"})
		return
	}

	if err := h.db.WithContext(ctx).Delete(&models.Post{}, post.ID).Error; err != nil {
		serverError(c, err, "delete post")
		return
	}
	h.topSubs.Invalidate(ctx)

	c.JSON(http.StatusOK, gin.H{"message": "Post deleted successfully"})
}
