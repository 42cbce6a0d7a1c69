package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"

	"github.com/emilythestrangee/readit/backend/internal/auth"
	"github.com/emilythestrangee/readit/backend/internal/database"
	"github.com/emilythestrangee/readit/backend/internal/middleware"
	"github.com/emilythestrangee/readit/backend/internal/models"
)

type AuthHandler struct {
	users         *database.UserStore
	tokens        *auth.Tokens
	secureCookies bool
}

func NewAuthHandler(users *database.UserStore, tokens *auth.Tokens, secureCookies bool) *AuthHandler {
	return &AuthHandler{users: users, tokens: tokens, secureCookies: secureCookies}
}

// Register handles user registration
func (h *AuthHandler) Register(c *gin.Context) {
	var input models.RegisterRequest

	errs := gin.H{}
	if err := c.ShouldBindJSON(&input); err != nil {
		fields, ok := bindErrors(err)
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
			return
		}
		errs = fields
	}

	ctx := c.Request.Context()
	if input.Email != "" {
		taken, err := h.users.EmailTaken(ctx, input.Email)
		if err != nil {
			serverError(c, err, "check email")
			return
		}
		if taken {
			errs["email"] = "Email is already taken"
		}
	}
	if input.Username != "" {
		taken, err := h.users.UsernameTaken(ctx, input.Username)
		if err != nil {
			serverError(c, err, "check username")
			return
		}
		if taken {
			errs["username"] = "Username is already taken"
		}
	}
	if len(errs) > 0 {
		c.JSON(http.StatusBadRequest, errs)
		return
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		serverError(c, err, "hash password")
		return
	}

	user := models.User{
		Email:    input.Email,
		Username: input.Username,
		Password: string(hashedPassword),
	}

	if err := h.users.Create(ctx, &user); err != nil {
		if database.IsUniqueViolation(err) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Username or email already exists"})
			return
		}
		serverError(c, err, "create user")
		return
	}

	c.JSON(http.StatusCreated, user)
}

// Login checks the credentials and issues the session cookie
func (h *AuthHandler) Login(c *gin.Context) {
	var input models.LoginRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		respondBindError(c, err)
		return
	}

	user, err := h.users.FindByUsername(c.Request.Context(), input.Username)
	if errors.Is(err, database.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"username": "User not found"})
		return
	}
	if err != nil {
		serverError(c, err, "find user")
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(input.Password)); err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"password": "Password is incorrect"})
		return
	}

	token, err := h.tokens.Sign(user.ID, user.Username)
	if err != nil {
		serverError(c, err, "sign token")
		return
	}

	c.SetSameSite(http.SameSiteStrictMode)
	c.SetCookie(auth.CookieName, token, int(h.tokens.TTL().Seconds()), "/", "", h.secureCookies, true)

	c.JSON(http.StatusOK, user)
}

// Me returns the current authenticated user
func (h *AuthHandler) Me(c *gin.Context) {
	c.JSON(http.StatusOK, middleware.CurrentUser(c))
}

// Logout expires the session cookie
func (h *AuthHandler) Logout(c *gin.Context) {
	c.SetSameSite(http.SameSiteStrictMode)
	c.SetCookie(auth.CookieName, "", -1, "/", "", h.secureCookies, true)

	c.JSON(http.StatusOK, gin.H{"success": true})
}
