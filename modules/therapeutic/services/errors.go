package services

import "errors"

// Validation failures are detected before any store call; NotFound by a
// lookup before mutation.
var (
	ErrMissingUserID   = errors.New("user_id is required")
	ErrMissingOverview = errors.New("overview is required")
	ErrMissingTrialID  = errors.New("trial_id is required")
	ErrTrialNotFound   = errors.New("trial not found")
	ErrUnknownSection  = errors.New("unknown section")
)
