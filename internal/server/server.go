package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/emilythestrangee/readit/backend/internal/auth"
	"github.com/emilythestrangee/readit/backend/internal/cache"
	"github.com/emilythestrangee/readit/backend/internal/config"
	"github.com/emilythestrangee/readit/backend/internal/database"
	"github.com/emilythestrangee/readit/backend/internal/handlers"
	"github.com/emilythestrangee/readit/backend/internal/middleware"
)

type Server struct {
	cfg     *config.Config
	db      database.Service
	rdb     *redis.Client
	handler *handlers.Handler
	users   middleware.UserFinder
	tokens  *auth.Tokens
}

// NewServer connects the stores, migrates the schema and returns the
// configured HTTP server plus a function releasing its connections.
func NewServer(ctx context.Context, cfg *config.Config) (*http.Server, func(), error) {
	dsn := cfg.DB.DSN()

	db, err := database.New(dsn)
	if err != nil {
		return nil, nil, err
	}
	if err := database.Migrate(db.GetDB()); err != nil {
		db.Close()
		return nil, nil, err
	}

	raw, err := database.NewDatabase(dsn)
	if err != nil {
		db.Close()
		return nil, nil, err
	}
	err = raw.Initialize(ctx)
	raw.Close()
	if err != nil {
		db.Close()
		return nil, nil, err
	}

	s := &Server{
		cfg:    cfg,
		db:     db,
		tokens: auth.NewTokens(cfg.Session.Secret, cfg.Session.TTL),
		users:  database.NewUserStore(db.GetDB()),
	}

	var topSubs *cache.TopSubs
	if cfg.Redis.Addr != "" {
		s.rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
		})
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		err := s.rdb.Ping(pingCtx).Err()
		cancel()
		if err != nil {
			log.Warn().Err(err).Str("addr", cfg.Redis.Addr).Msg("redis unavailable, top subs will not be cached")
		}
		topSubs = cache.NewTopSubs(s.rdb, cfg.Redis.TopSubsTTL)
	} else {
		topSubs = cache.NewTopSubs(nil, cfg.Redis.TopSubsTTL)
	}

	s.handler = handlers.NewHandler(handlers.Options{
		DB:            db.GetDB(),
		Tokens:        s.tokens,
		TopSubs:       topSubs,
		AppURL:        cfg.AppURL,
		SecureCookies: cfg.Production(),
	})

	if cfg.Production() {
		gin.SetMode(gin.ReleaseMode)
	}

	server := &http.Server{
		Addr:         fmt.Sprintf("0.0.0.0:%d", cfg.Port),
		Handler:      s.RegisterRoutes(),
		IdleTimeout:  time.Minute,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	return server, s.close, nil
}

func (s *Server) close() {
	if s.rdb != nil {
		if err := s.rdb.Close(); err != nil && !errors.Is(err, redis.ErrClosed) {
			log.Warn().Err(err).Msg("closing redis")
		}
	}
	if err := s.db.Close(); err != nil {
		log.Warn().Err(err).Msg("closing database")
	}
}

// RegisterRoutes sets up all application routes
func (s *Server) RegisterRoutes() *gin.Engine {
	r := NewRouter(s.handler, s.users, s.tokens, s.cfg.CORSOrigins)

	// Health check endpoint
	r.GET("/health", func(c *gin.Context) {
		stats := s.db.Health()
		status := http.StatusOK
		if stats["status"] != "up" {
			status = http.StatusServiceUnavailable
		}
		c.JSON(status, stats)
	})

	return r
}

// NewRouter builds the API routes on top of the given handlers.
func NewRouter(h *handlers.Handler, users middleware.UserFinder, tokens *auth.Tokens, origins []string) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.RequestLogger())

	// CORS configuration
	r.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS", "PATCH"},
		AllowHeaders:     []string{"Accept", "Authorization", "Content-Type", "X-Requested-With", middleware.RequestIDHeader},
		ExposeHeaders:    []string{"Content-Length", middleware.RequestIDHeader},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	r.Use(middleware.User(users, tokens))
	requireAuth := middleware.Auth()

	api := r.Group("/api")
	{
		authRoutes := api.Group("/auth")
		authRoutes.POST("/register", h.Auth.Register)
		authRoutes.POST("/login", h.Auth.Login)
		authRoutes.GET("/me", requireAuth, h.Auth.Me)
		authRoutes.GET("/logout", requireAuth, h.Auth.Logout)

		subs := api.Group("/subs")
		subs.POST("", requireAuth, h.Sub.CreateSub)
		subs.GET("/:name", h.Sub.GetSub)

		posts := api.Group("/posts")
		posts.GET("", h.Post.GetPosts)
		posts.POST("", requireAuth, h.Post.CreatePost)
		posts.GET("/:identifier/:slug", h.Post.GetPost)
		posts.DELETE("/:identifier/:slug", requireAuth, h.Post.DeletePost)
		posts.GET("/:identifier/:slug/comments", h.Comment.GetComments)
		posts.POST("/:identifier/:slug/comments", requireAuth, h.Comment.CreateComment)
		posts.DELETE("/:identifier/:slug/comments/:commentIdentifier", requireAuth, h.Comment.DeleteComment)

		misc := api.Group("/misc")
		misc.POST("/vote", requireAuth, h.Misc.Vote)
		misc.GET("/top-subs", h.Misc.TopSubs)

		api.GET("/users/:username", h.User.GetUserSubmissions)
	}

	return r
}
