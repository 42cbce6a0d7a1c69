package votes

import "errors"

var (
	ErrInvalidVoteValue = errors.New("vote value must be -1, 0 or 1")
	ErrTargetNotFound   = errors.New("vote target not found")
	ErrVoteNotFound     = errors.New("vote not found")
	ErrStorageConflict  = errors.New("concurrent vote conflict")
)
