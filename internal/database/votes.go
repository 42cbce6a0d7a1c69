package database

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/emilythestrangee/readit/backend/internal/models"
	"github.com/emilythestrangee/readit/backend/internal/votes"
)

// VoteStore persists ledger votes with GORM.
type VoteStore struct {
	db *gorm.DB
}

var _ votes.Store = (*VoteStore)(nil)

func NewVoteStore(db *gorm.DB) *VoteStore {
	return &VoteStore{db: db}
}

func targetScope(target votes.Target) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if target.Kind == votes.CommentTarget {
			return db.Where("comment_id = ?", target.ID)
		}
		return db.Where("post_id = ?", target.ID)
	}
}

func (s *VoteStore) FindVote(ctx context.Context, userID int, target votes.Target) (*models.Vote, error) {
	var vote models.Vote
	err := s.db.WithContext(ctx).
		Scopes(targetScope(target)).
		Where("user_id = ?", userID).
		First(&vote).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &vote, nil
}

func (s *VoteStore) CreateVote(ctx context.Context, vote *models.Vote) error {
	err := s.db.WithContext(ctx).Create(vote).Error
	if IsUniqueViolation(err) {
		return fmt.Errorf("%w: %v", votes.ErrStorageConflict, err)
	}
	return err
}

func (s *VoteStore) UpdateVoteValue(ctx context.Context, vote *models.Vote, value int) error {
	res := s.db.WithContext(ctx).Model(vote).Update("value", value)
	if res.Error != nil {
		return res.Error
	}
	// Deleted by a concurrent request after we read it.
	if res.RowsAffected == 0 {
		return votes.ErrStorageConflict
	}
	vote.Value = value
	return nil
}

// DeleteVote removes the vote. A vote already removed by a concurrent request
// counts as deleted.
func (s *VoteStore) DeleteVote(ctx context.Context, vote *models.Vote) error {
	return s.db.WithContext(ctx).Delete(&models.Vote{}, vote.ID).Error
}
