package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/emilythestrangee/readit/backend/internal/database"
	"github.com/emilythestrangee/readit/backend/internal/middleware"
	"github.com/emilythestrangee/readit/backend/internal/votes"
)

type UserHandler struct {
	content *database.ContentStore
	appURL  string
}

func NewUserHandler(content *database.ContentStore, appURL string) *UserHandler {
	return &UserHandler{content: content, appURL: appURL}
}

// GetUserSubmissions returns a user's posts and comments
func (h *UserHandler) GetUserSubmissions(c *gin.Context) {
	found, err := h.content.UserSubmissions(c.Request.Context(), c.Param("username"))
	if errors.Is(err, database.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"user": "User not found"})
		return
	}
	if err != nil {
		serverError(c, err, "user submissions")
		return
	}

	viewer := middleware.CurrentUser(c)
	votes.AnnotatePosts(found.Posts, viewer)
	for i := range found.Posts {
		found.Posts[i].SetSubURLs(h.appURL)
	}
	votes.AnnotateComments(found.Comments, viewer)
	for i := range found.Comments {
		if p := found.Comments[i].Post; p != nil {
			votes.Annotate(p, viewer)
			p.SetSubURLs(h.appURL)
			// Comment ids were loaded for the count only.
			p.Comments = nil
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"user":     found.User,
		"posts":    found.Posts,
		"comments": found.Comments,
	})
}
