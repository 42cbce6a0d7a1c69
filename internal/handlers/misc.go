package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/emilythestrangee/readit/backend/internal/cache"
	"github.com/emilythestrangee/readit/backend/internal/database"
	"github.com/emilythestrangee/readit/backend/internal/middleware"
	"github.com/emilythestrangee/readit/backend/internal/models"
	"github.com/emilythestrangee/readit/backend/internal/votes"
)

const (
	topSubsLimit        = 5
	invalidValueMessage = "Value must be -1, 0 or 1"
)

type MiscHandler struct {
	ledger  *votes.Ledger
	content *database.ContentStore
	topSubs *cache.TopSubs
	appURL  string
}

func NewMiscHandler(ledger *votes.Ledger, content *database.ContentStore, topSubs *cache.TopSubs, appURL string) *MiscHandler {
	return &MiscHandler{ledger: ledger, content: content, topSubs: topSubs, appURL: appURL}
}

// voteError maps a ledger failure to its response. ok is false for
// failures that are not the caller's fault.
func voteError(err error) (status int, body gin.H, ok bool) {
	switch {
	case errors.Is(err, votes.ErrInvalidVoteValue):
		return http.StatusBadRequest, gin.H{"value": invalidValueMessage}, true
	case errors.Is(err, votes.ErrTargetNotFound):
		return http.StatusNotFound, gin.H{"error": "Post or comment not found"}, true
	case errors.Is(err, votes.ErrVoteNotFound):
		return http.StatusNotFound, gin.H{"error": "Vote not found"}, true
	case errors.Is(err, votes.ErrStorageConflict):
		return http.StatusConflict, gin.H{"error": "Vote changed concurrently, please retry"}, true
	default:
		return 0, nil, false
	}
}

// Vote casts, changes or removes the user's vote on a post or one of its
// comments, then returns the post as the user now sees it.
func (h *MiscHandler) Vote(c *gin.Context) {
	var input models.VoteRequest
	bindErr := c.ShouldBindJSON(&input)

	// The value is checked before the target fields.
	value, ok := input.VoteValue()
	var typeErr *json.UnmarshalTypeError
	wrongType := errors.As(bindErr, &typeErr) && typeErr.Field == "value"
	if wrongType || (!ok && (bindErr == nil || isValidationError(bindErr))) {
		c.JSON(http.StatusBadRequest, gin.H{"value": invalidValueMessage})
		return
	}
	if bindErr != nil {
		respondBindError(c, bindErr)
		return
	}

	user := middleware.CurrentUser(c)
	ref := votes.TargetRef{
		Identifier:        input.Identifier,
		Slug:              input.Slug,
		CommentIdentifier: input.CommentIdentifier,
	}

	ctx := c.Request.Context()
	res, err := h.ledger.Reconcile(ctx, user.ID, ref, value)
	if err != nil {
		if status, body, ok := voteError(err); ok {
			c.JSON(status, body)
			return
		}
		serverError(c, err, "reconcile vote")
		return
	}
	log.Debug().
		Int("user_id", user.ID).
		Stringer("target", res.Target).
		Stringer("applied", res.Applied).
		Msg("vote reconciled")

	post, err := h.content.LoadPost(ctx, input.Identifier, input.Slug)
	if err != nil {
		serverError(c, err, "reload voted post")
		return
	}

	votes.AnnotatePost(post, user)
	post.SetSubURLs(h.appURL)
	c.JSON(http.StatusOK, post)
}

// TopSubs returns the subs with the most posts
func (h *MiscHandler) TopSubs(c *gin.Context) {
	rows, err := h.topSubs.Get(c.Request.Context(), func(ctx context.Context) ([]models.TopSub, error) {
		rows, err := h.content.TopSubs(ctx, topSubsLimit)
		if err != nil {
			return nil, err
		}
		for i := range rows {
			rows[i].ImageURL = models.ImageURL(h.appURL, rows[i].ImageURN)
		}
		return rows, nil
	})
	if err != nil {
		serverError(c, err, "top subs")
		return
	}

	c.JSON(http.StatusOK, rows)
}
