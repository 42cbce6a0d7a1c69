package votes

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/emilythestrangee/readit/backend/internal/models"
)

func TestScore(t *testing.T) {
	assert.Equal(t, 0, Score(nil))
	assert.Equal(t, 1, Score([]models.Vote{{Value: 1}, {Value: 1}, {Value: -1}}))
	assert.Equal(t, -2, Score([]models.Vote{{Value: -1}, {Value: -1}}))
}

func TestUserVote(t *testing.T) {
	votes := []models.Vote{{UserID: alice, Value: -1}, {UserID: bob, Value: 1}}

	assert.Equal(t, -1, UserVote(votes, alice))
	assert.Equal(t, 1, UserVote(votes, bob))
	assert.Equal(t, NeutralVote, UserVote(votes, 99))
	assert.Equal(t, NeutralVote, UserVote(nil, alice))
}

func TestAnnotatePost(t *testing.T) {
	post := &models.Post{
		Identifier: "abc1234",
		Slug:       "hello-world",
		SubName:    "golang",
		Votes:      []models.Vote{{UserID: alice, Value: 1}, {UserID: bob, Value: 1}},
		Comments: []models.Comment{
			{Votes: []models.Vote{{UserID: alice, Value: -1}}},
			{},
		},
	}

	AnnotatePost(post, &models.User{ID: alice})

	assert.Equal(t, 2, post.VoteScore)
	assert.Equal(t, 1, post.UserVote)
	assert.Equal(t, 2, post.CommentCount)
	assert.Equal(t, "/r/golang/abc1234/hello-world", post.URL)
	assert.Equal(t, -1, post.Comments[0].VoteScore)
	assert.Equal(t, -1, post.Comments[0].UserVote)
	assert.Equal(t, 0, post.Comments[1].VoteScore)
	assert.Equal(t, NeutralVote, post.Comments[1].UserVote)
}

func TestAnnotatePostsScoresEmbeddedComments(t *testing.T) {
	posts := []models.Post{{
		Votes: []models.Vote{{UserID: bob, Value: 1}},
		Comments: []models.Comment{
			{Votes: []models.Vote{{UserID: alice, Value: 1}, {UserID: bob, Value: 1}}},
		},
	}}

	AnnotatePosts(posts, &models.User{ID: alice})

	assert.Equal(t, 1, posts[0].VoteScore)
	assert.Equal(t, NeutralVote, posts[0].UserVote)
	assert.Equal(t, 1, posts[0].CommentCount)
	assert.Equal(t, 2, posts[0].Comments[0].VoteScore)
	assert.Equal(t, 1, posts[0].Comments[0].UserVote)
}

func TestAnnotateAnonymousViewer(t *testing.T) {
	comment := &models.Comment{Votes: []models.Vote{{UserID: alice, Value: 1}}}

	Annotate(comment, nil)

	assert.Equal(t, 1, comment.VoteScore)
	assert.Equal(t, NeutralVote, comment.UserVote)
}

func TestTargetRoundTrip(t *testing.T) {
	for _, target := range []Target{Post(3), Comment(4)} {
		var v models.Vote
		target.Apply(&v)
		got, err := TargetOf(&v)
		assert.NoError(t, err)
		assert.Equal(t, target, got)
	}

	_, err := TargetOf(&models.Vote{})
	assert.Error(t, err)
	_, err = TargetOf(&models.Vote{PostID: intPtr(1), CommentID: intPtr(2)})
	assert.Error(t, err)
}
