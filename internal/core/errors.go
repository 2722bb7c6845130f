package core

import "errors"

// Sentinel errors. Their messages double as MapError patterns, so keep them
// in sync with errorPatterns.
var (
	ErrNotFound             = errors.New("record not found")
	ErrUnknownView          = errors.New("unknown view")
	ErrInvalidInvitation    = errors.New("invalid invitation")
	ErrInvitationExists     = errors.New("invitation already pending")
	ErrInvitationNotPending = errors.New("invitation is not pending")
	ErrInvalidSettings      = errors.New("invalid settings")
)
