package votes

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/emilythestrangee/readit/backend/internal/models"
)

type Outcome int

const (
	NoOp Outcome = iota
	Created
	Updated
	Deleted
)

func (o Outcome) String() string {
	switch o {
	case Created:
		return "created"
	case Updated:
		return "updated"
	case Deleted:
		return "deleted"
	default:
		return "noop"
	}
}

// Result reports what Reconcile did. Vote is nil after a delete.
type Result struct {
	Applied Outcome
	Target  Target
	Vote    *models.Vote
}

// TargetResolver turns an API target reference into a stored post or comment.
// It returns ErrTargetNotFound when either does not exist.
type TargetResolver interface {
	ResolveTarget(ctx context.Context, ref TargetRef) (Target, error)
}

// Store persists votes. FindVote returns (nil, nil) when the voter has no
// vote on the target. CreateVote returns ErrStorageConflict when the
// (voter, target) uniqueness constraint rejects the insert.
type Store interface {
	FindVote(ctx context.Context, userID int, target Target) (*models.Vote, error)
	CreateVote(ctx context.Context, vote *models.Vote) error
	UpdateVoteValue(ctx context.Context, vote *models.Vote, value int) error
	DeleteVote(ctx context.Context, vote *models.Vote) error
}

type Ledger struct {
	targets TargetResolver
	store   Store
}

func NewLedger(targets TargetResolver, store Store) *Ledger {
	return &Ledger{targets: targets, store: store}
}

func ValidValue(value int) bool {
	return value == -1 || value == 0 || value == 1
}

// Reconcile applies one vote intent from userID to the referenced target.
func (l *Ledger) Reconcile(ctx context.Context, userID int, ref TargetRef, value int) (Result, error) {
	if !ValidValue(value) {
		return Result{}, ErrInvalidVoteValue
	}

	target, err := l.targets.ResolveTarget(ctx, ref)
	if err != nil {
		return Result{}, err
	}

	existing, err := l.store.FindVote(ctx, userID, target)
	if err != nil {
		return Result{}, fmt.Errorf("find vote: %w", err)
	}

	if existing == nil {
		if value == 0 {
			return Result{Target: target}, ErrVoteNotFound
		}
		return l.create(ctx, userID, target, value)
	}
	return l.change(ctx, existing, target, value)
}

func (l *Ledger) create(ctx context.Context, userID int, target Target, value int) (Result, error) {
	vote := &models.Vote{UserID: userID, Value: value}
	target.Apply(vote)

	err := l.store.CreateVote(ctx, vote)
	if err == nil {
		return Result{Applied: Created, Target: target, Vote: vote}, nil
	}
	if !errors.Is(err, ErrStorageConflict) {
		return Result{}, fmt.Errorf("create vote: %w", err)
	}

	// Another request inserted the vote between our lookup and insert.
	log.Warn().Int("user_id", userID).Stringer("target", target).Msg("vote insert conflicted, retrying as update")
	existing, err := l.store.FindVote(ctx, userID, target)
	if err != nil || existing == nil {
		return Result{Target: target}, ErrStorageConflict
	}
	res, err := l.change(ctx, existing, target, value)
	if err != nil {
		return Result{Target: target}, ErrStorageConflict
	}
	return res, nil
}

func (l *Ledger) change(ctx context.Context, existing *models.Vote, target Target, value int) (Result, error) {
	switch {
	case value == 0:
		if err := l.store.DeleteVote(ctx, existing); err != nil {
			return Result{}, fmt.Errorf("delete vote: %w", err)
		}
		return Result{Applied: Deleted, Target: target}, nil
	case existing.Value == value:
		return Result{Applied: NoOp, Target: target, Vote: existing}, nil
	default:
		if err := l.store.UpdateVoteValue(ctx, existing, value); err != nil {
			return Result{}, fmt.Errorf("update vote: %w", err)
		}
		return Result{Applied: Updated, Target: target, Vote: existing}, nil
	}
}
