package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/emilythestrangee/readit/backend/internal/cache"
	"github.com/emilythestrangee/readit/backend/internal/database"
	"github.com/emilythestrangee/readit/backend/internal/middleware"
	"github.com/emilythestrangee/readit/backend/internal/models"
	"github.com/emilythestrangee/readit/backend/internal/votes"
)

type SubHandler struct {
	db      *gorm.DB
	content *database.ContentStore
	topSubs *cache.TopSubs
	appURL  string
}

func NewSubHandler(db *gorm.DB, content *database.ContentStore, topSubs *cache.TopSubs, appURL string) *SubHandler {
	return &SubHandler{db: db, content: content, topSubs: topSubs, appURL: appURL}
}

// CreateSub creates a new community (PROTECTED - requires authentication)
func (h *SubHandler) CreateSub(c *gin.Context) {
	var input models.CreateSubRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		respondBindError(c, err)
		return
	}
	input.Name = strings.TrimSpace(input.Name)
	input.Title = strings.TrimSpace(input.Title)

	errs := gin.H{}
	if input.Name == "" {
		errs["name"] = "Name must not be empty"
	}
	if input.Title == "" {
		errs["title"] = "Title must not be empty"
	}
	if input.Name != "" {
		taken, err := h.content.SubNameTaken(c.Request.Context(), input.Name)
		if err != nil {
			serverError(c, err, "check sub name")
			return
		}
		if taken {
			errs["name"] = "Sub already exists"
		}
	}
	if len(errs) > 0 {
		c.JSON(http.StatusBadRequest, errs)
		return
	}

	user := middleware.CurrentUser(c)
	sub := models.Sub{
		Name:        input.Name,
		Title:       input.Title,
		Description: input.Description,
		UserID:      user.ID,
		Username:    user.Username,
	}

	if err := h.db.WithContext(c.Request.Context()).Create(&sub).Error; err != nil {
		if database.IsUniqueViolation(err) {
			c.JSON(http.StatusBadRequest, gin.H{"name": "Sub already exists"})
			return
		}
		serverError(c, err, "create sub")
		return
	}
	h.topSubs.Invalidate(c.Request.Context())

	sub.SetURLs(h.appURL)
	c.JSON(http.StatusCreated, sub)
}

// GetSub returns a community with its posts
func (h *SubHandler) GetSub(c *gin.Context) {
	sub, err := h.content.LoadSub(c.Request.Context(), c.Param("name"))
	if errors.Is(err, database.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"sub": "Sub not found"})
		return
	}
	if err != nil {
		serverError(c, err, "load sub")
		return
	}

	votes.AnnotatePosts(sub.Posts, middleware.CurrentUser(c))
	sub.SetURLs(h.appURL)
	for i := range sub.Posts {
		sub.Posts[i].SetSubURLs(h.appURL)
	}

	c.JSON(http.StatusOK, sub)
}
