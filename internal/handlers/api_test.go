package handlers_test

import (
	"bytes"
	"context"
	"fmt"
	"log"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"gorm.io/gorm"

	"github.com/emilythestrangee/readit/backend/internal/auth"
	"github.com/emilythestrangee/readit/backend/internal/database"
	"github.com/emilythestrangee/readit/backend/internal/handlers"
	"github.com/emilythestrangee/readit/backend/internal/server"
)

var testDB *gorm.DB

func startPostgres() (dsn string, teardown func(context.Context) error, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("docker unavailable: %v", r)
		}
	}()

	ctx := context.Background()
	container, err := postgres.Run(ctx, "postgres:16-alpine",
		postgres.WithDatabase("readit"),
		postgres.WithUsername("user"),
		postgres.WithPassword("password"),
		postgres.BasicWaitStrategies(),
	)
	if err != nil {
		return "", nil, err
	}
	dsn, err = container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		return "", nil, err
	}
	return dsn, func(ctx context.Context) error { return container.Terminate(ctx) }, nil
}

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)

	dsn, teardown, err := startPostgres()
	if err != nil {
		log.Printf("skipping API tests: could not start postgres container: %v", err)
		os.Exit(m.Run())
	}

	svc, err := database.New(dsn)
	if err != nil {
		log.Fatalf("could not connect: %v", err)
	}
	if err := database.Migrate(svc.GetDB()); err != nil {
		log.Fatalf("could not migrate: %v", err)
	}
	raw, err := database.NewDatabase(dsn)
	if err != nil {
		log.Fatalf("could not open raw connection: %v", err)
	}
	if err := raw.Initialize(context.Background()); err != nil {
		log.Fatalf("could not initialize constraints: %v", err)
	}
	raw.Close()
	testDB = svc.GetDB()

	code := m.Run()

	svc.Close()
	if err := teardown(context.Background()); err != nil {
		log.Fatalf("could not teardown postgres container: %v", err)
	}
	os.Exit(code)
}

type client struct {
	t      *testing.T
	router *gin.Engine
	cookie *http.Cookie
}

func newRouter(t *testing.T) *gin.Engine {
	t.Helper()
	if testDB == nil {
		t.Skip("postgres container not available")
	}
	require.NoError(t, testDB.Exec("TRUNCATE users, subs, posts, comments, votes RESTART IDENTITY CASCADE").Error)

	tokens := auth.NewTokens("test-secret", time.Hour)
	h := handlers.NewHandler(handlers.Options{
		DB:     testDB,
		Tokens: tokens,
		AppURL: "http://localhost:8080",
	})
	return server.NewRouter(h, database.NewUserStore(testDB), tokens, []string{"http://localhost:3000"})
}

func (c *client) do(method, path string, body interface{}) (int, map[string]interface{}) {
	c.t.Helper()
	status, raw := c.doRaw(method, path, body)
	out := map[string]interface{}{}
	if len(raw) > 0 {
		require.NoError(c.t, json.Unmarshal(raw, &out), string(raw))
	}
	return status, out
}

func (c *client) doRaw(method, path string, body interface{}) (int, []byte) {
	c.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(c.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if c.cookie != nil {
		req.AddCookie(c.cookie)
	}
	rec := httptest.NewRecorder()
	c.router.ServeHTTP(rec, req)

	for _, ck := range rec.Result().Cookies() {
		if ck.Name == auth.CookieName {
			c.cookie = ck
		}
	}
	return rec.Code, rec.Body.Bytes()
}

func signUp(t *testing.T, router *gin.Engine, username string) *client {
	t.Helper()
	c := &client{t: t, router: router}
	status, _ := c.do(http.MethodPost, "/api/auth/register", gin.H{
		"email": username + "@example.com", "username": username, "password": "secret123",
	})
	require.Equal(t, http.StatusCreated, status)
	status, _ = c.do(http.MethodPost, "/api/auth/login", gin.H{"username": username, "password": "secret123"})
	require.Equal(t, http.StatusOK, status)
	require.NotNil(t, c.cookie)
	return c
}

func TestAuthFlow(t *testing.T) {
	router := newRouter(t)
	anon := &client{t: t, router: router}

	status, body := anon.do(http.MethodPost, "/api/auth/register", gin.H{"email": "bad", "username": "ab", "password": "1"})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Contains(t, body, "email")
	assert.Contains(t, body, "username")
	assert.Contains(t, body, "password")

	alice := signUp(t, router, "alice")
	assert.True(t, alice.cookie.HttpOnly)

	status, body = anon.do(http.MethodPost, "/api/auth/register", gin.H{"email": "alice@example.com", "username": "alice", "password": "secret123"})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "Email is already taken", body["email"])
	assert.Equal(t, "Username is already taken", body["username"])

	status, body = anon.do(http.MethodPost, "/api/auth/login", gin.H{"username": "nobody", "password": "secret123"})
	assert.Equal(t, http.StatusNotFound, status)
	assert.Contains(t, body, "username")

	status, body = anon.do(http.MethodPost, "/api/auth/login", gin.H{"username": "alice", "password": "wrong-pass"})
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Contains(t, body, "password")

	status, body = alice.do(http.MethodGet, "/api/auth/me", nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "alice", body["username"])
	assert.NotContains(t, body, "password")

	status, _ = anon.do(http.MethodGet, "/api/auth/me", nil)
	assert.Equal(t, http.StatusUnauthorized, status)

	status, _ = alice.do(http.MethodGet, "/api/auth/logout", nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Empty(t, alice.cookie.Value)
}

// forum sets up a sub with one post by alice and one comment by bob.
func forum(t *testing.T) (alice, bob, anon *client, identifier, slug, commentIdentifier string) {
	t.Helper()
	router := newRouter(t)
	alice = signUp(t, router, "alice")
	bob = signUp(t, router, "bob")
	anon = &client{t: t, router: router}

	status, body := alice.do(http.MethodPost, "/api/subs", gin.H{"name": "golang", "title": "Go", "description": "gophers"})
	require.Equal(t, http.StatusCreated, status, body)
	assert.NotEmpty(t, body["imageUrl"])

	status, body = alice.do(http.MethodPost, "/api/posts", gin.H{"title": "Hello World", "body": "first", "sub": "golang"})
	require.Equal(t, http.StatusCreated, status, body)
	identifier = body["identifier"].(string)
	slug = body["slug"].(string)
	assert.Len(t, identifier, 7)
	assert.Equal(t, "hello-world", slug)
	assert.Equal(t, fmt.Sprintf("/r/golang/%s/%s", identifier, slug), body["url"])

	status, body = bob.do(http.MethodPost, fmt.Sprintf("/api/posts/%s/%s/comments", identifier, slug), gin.H{"body": "nice"})
	require.Equal(t, http.StatusCreated, status, body)
	commentIdentifier = body["identifier"].(string)
	assert.Len(t, commentIdentifier, 8)
	return
}

func commentByID(t *testing.T, post map[string]interface{}, identifier string) map[string]interface{} {
	t.Helper()
	comments, _ := post["comments"].([]interface{})
	for _, raw := range comments {
		c := raw.(map[string]interface{})
		if c["identifier"] == identifier {
			return c
		}
	}
	t.Fatalf("comment %s not in post", identifier)
	return nil
}

func TestVoteScenario(t *testing.T) {
	alice, bob, anon, identifier, slug, commentIdentifier := forum(t)
	vote := func(c *client, value interface{}, onComment bool) (int, map[string]interface{}) {
		body := gin.H{"identifier": identifier, "slug": slug, "value": value}
		if onComment {
			body["commentIdentifier"] = commentIdentifier
		}
		return c.do(http.MethodPost, "/api/misc/vote", body)
	}

	status, _ := vote(anon, 1, false)
	assert.Equal(t, http.StatusUnauthorized, status)

	status, body := vote(bob, 1, false)
	require.Equal(t, http.StatusOK, status, body)
	assert.NotEmpty(t, body["sub"].(map[string]interface{})["imageUrl"])
	assert.EqualValues(t, 1, body["voteScore"])
	assert.EqualValues(t, 1, body["userVote"])

	status, body = vote(bob, 1, false)
	require.Equal(t, http.StatusOK, status)
	assert.EqualValues(t, 1, body["voteScore"])

	status, body = vote(alice, 1, false)
	require.Equal(t, http.StatusOK, status)
	assert.EqualValues(t, 2, body["voteScore"])

	status, body = vote(bob, -1, false)
	require.Equal(t, http.StatusOK, status)
	assert.EqualValues(t, 0, body["voteScore"])
	assert.EqualValues(t, -1, body["userVote"])

	status, body = vote(bob, 0, false)
	require.Equal(t, http.StatusOK, status)
	assert.EqualValues(t, 1, body["voteScore"])
	assert.NotContains(t, body, "userVote")

	status, body = vote(bob, 0, false)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "Vote not found", body["error"])

	status, body = vote(bob, 2, false)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Contains(t, body, "value")

	status, body = bob.do(http.MethodPost, "/api/misc/vote", gin.H{"identifier": identifier, "slug": slug})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Contains(t, body, "value")

	status, body = bob.do(http.MethodPost, "/api/misc/vote", gin.H{"identifier": "missing", "slug": slug, "value": 1})
	assert.Equal(t, http.StatusNotFound, status)

	// The comment vote leaves the post score alone.
	status, body = vote(alice, -1, true)
	require.Equal(t, http.StatusOK, status, body)
	assert.EqualValues(t, 1, body["voteScore"])
	comment := commentByID(t, body, commentIdentifier)
	assert.EqualValues(t, -1, comment["voteScore"])
	assert.EqualValues(t, -1, comment["userVote"])

	// Bob sees the same scores but no vote of his own on the comment.
	status, body = bob.do(http.MethodGet, fmt.Sprintf("/api/posts/%s/%s", identifier, slug), nil)
	require.Equal(t, http.StatusOK, status)
	assert.EqualValues(t, 1, body["commentCount"])
	assert.NotEmpty(t, body["sub"].(map[string]interface{})["imageUrl"])
	assert.NotContains(t, body, "userVote")
	comment = commentByID(t, body, commentIdentifier)
	assert.EqualValues(t, -1, comment["voteScore"])
	assert.NotContains(t, comment, "userVote")

	status, body = anon.do(http.MethodGet, fmt.Sprintf("/api/posts/%s/%s", identifier, slug), nil)
	require.Equal(t, http.StatusOK, status)
	assert.EqualValues(t, 1, body["voteScore"])
	assert.NotContains(t, body, "userVote")
}

func TestListingsAreAnnotated(t *testing.T) {
	alice, bob, anon, identifier, slug, commentIdentifier := forum(t)

	status, _ := alice.do(http.MethodPost, "/api/misc/vote", gin.H{"identifier": identifier, "slug": slug, "value": 1})
	require.Equal(t, http.StatusOK, status)
	status, _ = alice.do(http.MethodPost, "/api/misc/vote", gin.H{
		"identifier": identifier, "slug": slug, "commentIdentifier": commentIdentifier, "value": 1,
	})
	require.Equal(t, http.StatusOK, status)

	status, raw := alice.doRaw(http.MethodGet, "/api/posts", nil)
	require.Equal(t, http.StatusOK, status)
	var posts []map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &posts))
	require.Len(t, posts, 1)
	assert.EqualValues(t, 1, posts[0]["voteScore"])
	assert.EqualValues(t, 1, posts[0]["userVote"])
	embedded := posts[0]["comments"].([]interface{})
	require.Len(t, embedded, 1)
	assert.EqualValues(t, 1, embedded[0].(map[string]interface{})["voteScore"])
	assert.EqualValues(t, 1, embedded[0].(map[string]interface{})["userVote"])
	assert.NotEmpty(t, posts[0]["sub"].(map[string]interface{})["imageUrl"])

	status, raw = alice.doRaw(http.MethodGet, fmt.Sprintf("/api/posts/%s/%s/comments", identifier, slug), nil)
	require.Equal(t, http.StatusOK, status)
	var comments []map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &comments))
	require.Len(t, comments, 1)
	assert.EqualValues(t, 1, comments[0]["voteScore"])
	assert.EqualValues(t, 1, comments[0]["userVote"])

	status, body := anon.do(http.MethodGet, "/api/subs/golang", nil)
	require.Equal(t, http.StatusOK, status)
	subPosts := body["posts"].([]interface{})
	require.Len(t, subPosts, 1)
	assert.EqualValues(t, 1, subPosts[0].(map[string]interface{})["voteScore"])

	status, body = alice.do(http.MethodGet, "/api/users/bob", nil)
	require.Equal(t, http.StatusOK, status)
	bobComments := body["comments"].([]interface{})
	require.Len(t, bobComments, 1)
	first := bobComments[0].(map[string]interface{})
	assert.EqualValues(t, 1, first["userVote"])
	parent := first["post"].(map[string]interface{})
	assert.EqualValues(t, 1, parent["voteScore"])
	assert.EqualValues(t, 1, parent["userVote"])
	assert.EqualValues(t, 1, parent["commentCount"])
	assert.NotContains(t, parent, "comments")
	assert.NotEmpty(t, parent["sub"].(map[string]interface{})["imageUrl"])
	assert.Empty(t, body["posts"])

	status, _ = bob.do(http.MethodGet, "/api/users/nobody", nil)
	assert.Equal(t, http.StatusNotFound, status)

	status, raw = anon.doRaw(http.MethodGet, "/api/misc/top-subs", nil)
	require.Equal(t, http.StatusOK, status)
	var top []map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &top))
	require.Len(t, top, 1)
	assert.Equal(t, "golang", top[0]["name"])
	assert.EqualValues(t, 1, top[0]["postCount"])
	assert.NotEmpty(t, top[0]["imageUrl"])
}

func TestSubAndPostValidation(t *testing.T) {
	alice, _, _, _, _, _ := forum(t)

	status, body := alice.do(http.MethodPost, "/api/subs", gin.H{"name": "GoLang", "title": "again"})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "Sub already exists", body["name"])

	status, body = alice.do(http.MethodPost, "/api/posts", gin.H{"title": "   ", "sub": "golang"})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Contains(t, body, "title")

	status, body = alice.do(http.MethodPost, "/api/posts", gin.H{"title": "Hi", "sub": "nope"})
	assert.Equal(t, http.StatusNotFound, status)
	assert.Contains(t, body, "sub")

	status, _ = alice.do(http.MethodGet, "/api/subs/nope", nil)
	assert.Equal(t, http.StatusNotFound, status)

	status, _ = alice.do(http.MethodGet, "/api/posts/nope/nope", nil)
	assert.Equal(t, http.StatusNotFound, status)
}

func TestDeleteCascadesAndOwnership(t *testing.T) {
	alice, bob, _, identifier, slug, commentIdentifier := forum(t)
	postPath := fmt.Sprintf("/api/posts/%s/%s", identifier, slug)
	commentPath := fmt.Sprintf("%s/comments/%s", postPath, commentIdentifier)

	status, _ := bob.do(http.MethodPost, "/api/misc/vote", gin.H{"identifier": identifier, "slug": slug, "value": 1})
	require.Equal(t, http.StatusOK, status)
	status, _ = alice.do(http.MethodPost, "/api/misc/vote", gin.H{
		"identifier": identifier, "slug": slug, "commentIdentifier": commentIdentifier, "value": 1,
	})
	require.Equal(t, http.StatusOK, status)

	status, _ = alice.do(http.MethodDelete, commentPath, nil)
	assert.Equal(t, http.StatusForbidden, status)
	status, _ = bob.do(http.MethodDelete, commentPath, nil)
	assert.Equal(t, http.StatusOK, status)
	status, _ = bob.do(http.MethodDelete, commentPath, nil)
	assert.Equal(t, http.StatusNotFound, status)

	var remaining int64
	require.NoError(t, testDB.Table("votes").Where("comment_id IS NOT NULL").Count(&remaining).Error)
	assert.Zero(t, remaining)

	status, _ = bob.do(http.MethodDelete, postPath, nil)
	assert.Equal(t, http.StatusForbidden, status)
	status, _ = alice.do(http.MethodDelete, postPath, nil)
	assert.Equal(t, http.StatusOK, status)

	require.NoError(t, testDB.Table("votes").Count(&remaining).Error)
	assert.Zero(t, remaining)

	status, _ = bob.do(http.MethodPost, "/api/misc/vote", gin.H{"identifier": identifier, "slug": slug, "value": 1})
	assert.Equal(t, http.StatusNotFound, status)
}
