package votes

import (
	"fmt"

	"github.com/emilythestrangee/readit/backend/internal/models"
)

type TargetKind int

const (
	PostTarget TargetKind = iota + 1
	CommentTarget
)

func (k TargetKind) String() string {
	switch k {
	case PostTarget:
		return "post"
	case CommentTarget:
		return "comment"
	default:
		return "unknown"
	}
}

// Target is the single post or comment a vote applies to.
type Target struct {
	Kind TargetKind
	ID   int
}

func Post(id int) Target    { return Target{Kind: PostTarget, ID: id} }
func Comment(id int) Target { return Target{Kind: CommentTarget, ID: id} }

func (t Target) String() string { return fmt.Sprintf("%s:%d", t.Kind, t.ID) }

// TargetOf reads the target back out of a stored vote.
func TargetOf(v *models.Vote) (Target, error) {
	switch {
	case v.PostID != nil && v.CommentID == nil:
		return Post(*v.PostID), nil
	case v.CommentID != nil && v.PostID == nil:
		return Comment(*v.CommentID), nil
	default:
		return Target{}, fmt.Errorf("vote %d has no single target", v.ID)
	}
}

// Apply writes t into the nullable target columns of v.
func (t Target) Apply(v *models.Vote) {
	id := t.ID
	v.PostID, v.CommentID = nil, nil
	if t.Kind == CommentTarget {
		v.CommentID = &id
		return
	}
	v.PostID = &id
}

// TargetRef is how the API names a target: a post by identifier and slug,
// or one of its comments when CommentIdentifier is set.
type TargetRef struct {
	Identifier        string
	Slug              string
	CommentIdentifier string
}
