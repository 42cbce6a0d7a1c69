package votes

import "github.com/emilythestrangee/readit/backend/internal/models"

// NeutralVote is the userVote of a viewer who has not voted.
const NeutralVote = 0

// Votable is content whose votes were loaded alongside it.
type Votable interface {
	VoteList() []models.Vote
	SetVoteState(score, userVote int)
}

// Score sums the values of votes.
func Score(votes []models.Vote) int {
	score := 0
	for _, v := range votes {
		score += v.Value
	}
	return score
}

// UserVote returns the value of viewerID's vote, or NeutralVote.
func UserVote(votes []models.Vote, viewerID int) int {
	for _, v := range votes {
		if v.UserID == viewerID {
			return v.Value
		}
	}
	return NeutralVote
}

// Annotate sets the score and the viewer's vote on content. A nil viewer
// leaves the neutral sentinel in place.
func Annotate(content Votable, viewer *models.User) {
	votes := content.VoteList()
	userVote := NeutralVote
	if viewer != nil {
		userVote = UserVote(votes, viewer.ID)
	}
	content.SetVoteState(Score(votes), userVote)
}

// AnnotatePost annotates p and each of its loaded comments.
func AnnotatePost(p *models.Post, viewer *models.User) {
	Annotate(p, viewer)
	for i := range p.Comments {
		Annotate(&p.Comments[i], viewer)
	}
}

// AnnotatePosts annotates every post and its loaded comments.
func AnnotatePosts(posts []models.Post, viewer *models.User) {
	for i := range posts {
		AnnotatePost(&posts[i], viewer)
	}
}

func AnnotateComments(comments []models.Comment, viewer *models.User) {
	for i := range comments {
		Annotate(&comments[i], viewer)
	}
}
