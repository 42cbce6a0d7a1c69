package handlers

import (
	"time"

	"gorm.io/gorm"

	"github.com/emilythestrangee/readit/backend/internal/auth"
	"github.com/emilythestrangee/readit/backend/internal/cache"
	"github.com/emilythestrangee/readit/backend/internal/database"
	"github.com/emilythestrangee/readit/backend/internal/votes"
)

// Handler combines all handler types
type Handler struct {
	Auth    *AuthHandler
	Sub     *SubHandler
	Post    *PostHandler
	Comment *CommentHandler
	Misc    *MiscHandler
	User    *UserHandler
}

type Options struct {
	DB            *gorm.DB
	Tokens        *auth.Tokens
	TopSubs       *cache.TopSubs
	AppURL        string
	SecureCookies bool
}

// NewHandler creates a unified handler with all sub-handlers
func NewHandler(opts Options) *Handler {
	if opts.TopSubs == nil {
		opts.TopSubs = cache.NewTopSubs(nil, time.Minute)
	}

	users := database.NewUserStore(opts.DB)
	content := database.NewContentStore(opts.DB)
	ledger := votes.NewLedger(content, database.NewVoteStore(opts.DB))

	return &Handler{
		Auth:    NewAuthHandler(users, opts.Tokens, opts.SecureCookies),
		Sub:     NewSubHandler(opts.DB, content, opts.TopSubs, opts.AppURL),
		Post:    NewPostHandler(opts.DB, content, opts.TopSubs, opts.AppURL),
		Comment: NewCommentHandler(opts.DB, content),
		Misc:    NewMiscHandler(ledger, content, opts.TopSubs, opts.AppURL),
		User:    NewUserHandler(content, opts.AppURL),
	}
}
