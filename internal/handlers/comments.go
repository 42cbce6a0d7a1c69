package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/emilythestrangee/readit/backend/internal/database"
	"github.com/emilythestrangee/readit/backend/internal/middleware"
	"github.com/emilythestrangee/readit/backend/internal/models"
	"github.com/emilythestrangee/readit/backend/internal/votes"
)

type CommentHandler struct {
	db      *gorm.DB
	content *database.ContentStore
}

func NewCommentHandler(db *gorm.DB, content *database.ContentStore) *CommentHandler {
	return &CommentHandler{db: db, content: content}
}

func (h *CommentHandler) findPost(c *gin.Context) (*models.Post, bool) {
	post, err := h.content.FindPost(c.Request.Context(), c.Param("identifier"), c.Param("slug"))
	if errors.Is(err, database.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Post not found"})
		return nil, false
	}
	if err != nil {
		serverError(c, err, "find post")
		return nil, false
	}
	return post, true
}

// GetComments returns the comments on a post, newest first
func (h *CommentHandler) GetComments(c *gin.Context) {
	post, ok := h.findPost(c)
	if !ok {
		return
	}

	comments, err := h.content.ListComments(c.Request.Context(), post.ID)
	if err != nil {
		serverError(c, err, "list comments")
		return
	}

	votes.AnnotateComments(comments, middleware.CurrentUser(c))
	c.JSON(http.StatusOK, comments)
}

// CreateComment creates a new comment on a post
func (h *CommentHandler) CreateComment(c *gin.Context) {
	var input models.CreateCommentRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		respondBindError(c, err)
		return
	}

	post, ok := h.findPost(c)
	if !ok {
		return
	}

	user := middleware.CurrentUser(c)
	comment := models.Comment{
		Body:     input.Body,
		PostID:   post.ID,
		UserID:   user.ID,
		Username: user.Username,
	}

	var err error
	for attempt := 1; ; attempt++ {
		comment.Identifier, err = makeID(commentIdentifierLength)
		if err != nil {
			serverError(c, err, "generate comment identifier")
			return
		}
		err = h.db.WithContext(c.Request.Context()).Create(&comment).Error
		if err == nil {
			break
		}
		if !database.IsUniqueViolation(err) || attempt == maxIdentifierAttempts {
			serverError(c, err, "create comment")
			return
		}
	}

	votes.Annotate(&comment, user)
	c.JSON(http.StatusCreated, comment)
}

// DeleteComment deletes a comment and its votes (owner only)
func (h *CommentHandler) DeleteComment(c *gin.Context) {
	post, ok := h.findPost(c)
	if !ok {
		return
	}

	ctx := c.Request.Context()
	comment, err := h.content.FindComment(ctx, post.ID, c.Param("commentIdentifier"))
	if errors.Is(err, database.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Comment not found"})
		return
	}
	if err != nil {
		serverError(c, err, "find comment")
		return
	}

	if comment.UserID != middleware.CurrentUser(c).ID {
		c.JSON(http.StatusForbidden, gin.H{"error": "You can only delete your own comments"})
		return
	}

	if err := h.db.WithContext(ctx).Delete(&models.Comment{}, comment.ID).Error; err != nil {
		serverError(c, err, "delete comment")
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Comment deleted successfully"})
}
