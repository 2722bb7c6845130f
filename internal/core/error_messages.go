// Package core provides the business logic of the risk console.
//
// # Error Codes Reference
//
// This file defines user-friendly error messages with codes for support
// reference. Codes are grouped by category:
//
// # Invitation Errors (INV001-INV099)
//
//	INV001 - Invitation already pending for this email
//	         Patterns: "invitation already pending"
//	INV002 - Invitation can no longer be changed
//	         Patterns: "invitation is not pending"
//	INV003 - Email domain not allowed by the organization
//	         Patterns: "email domain not allowed"
//
// # Validation Errors (VAL001-VAL099)
//
//	VAL001 - Invalid email address             Patterns: "invalid email"
//	VAL002 - Invalid role                      Patterns: "invalid role"
//	VAL003 - Required field is empty           Patterns: "required field"
//	VAL004 - Invalid allowed domain            Patterns: "invalid domain"
//	VAL005 - Display name too long             Patterns: "display name too long"
//	VAL006 - Negative token limit              Patterns: "token limit must not be negative"
//	VAL007 - Unreadable request body           Patterns: "invalid request body"
//	VAL008 - Invalid invitation (generic)      Patterns: "invalid invitation"
//	VAL009 - Invalid settings (generic)        Patterns: "invalid settings"
//
// # View Errors (TBL001-TBL099)
//
//	TBL001 - View does not exist               Patterns: "unknown view"
//	TBL002 - Export format not supported       Patterns: "unsupported export format"
//	TBL003 - View column misconfigured         Patterns: "invalid column"
//	TBL004 - View filter misconfigured         Patterns: "invalid filter"
//
// # Authentication Errors (AUTH001-AUTH099)
//
//	AUTH001 - API key rejected                 Patterns: "invalid api key"
//	AUTH002 - API key missing                  Patterns: "missing api key"
//
// # Database Errors (DB001-DB099)
//
//	DB001 - Duplicate key                      Patterns: "duplicate key"
//	DB002 - Unique constraint                  Patterns: "unique constraint", "violates unique"
//	DB003 - Foreign key                        Patterns: "foreign key constraint", "violates foreign key"
//	DB004 - Connection refused                 Patterns: "connection refused"
//	DB005 - Connection reset                   Patterns: "connection reset"
//	DB006 - Timeout                            Patterns: "timeout"
//	DB007 - Deadlock                           Patterns: "deadlock"
//	DB008 - Record not found                   Patterns: "record not found"
//
// # Request Errors (REQ001-REQ099)
//
//	REQ001 - Request cancelled                 Patterns: "context canceled"
//	REQ002 - Request timed out                 Patterns: "context deadline exceeded"
//
// # Rate Limiting (RATE001-RATE099)
//
//	RATE001 - Too many requests                Patterns: "rate limit"
//	RATE002 - Export queue full                Patterns: "too many concurrent exports"
//
// # Default Error (ERR000)
//
// Fallback when no specific pattern matches. Check the application logs for
// the original technical error.
//
// # Pattern Matching
//
// Error patterns are matched case-insensitively using strings.Contains.
// The first matching pattern wins, so specific patterns precede the generic
// ones they are wrapped in (for example "invalid email" before
// "invalid invitation").
package core

import (
	"fmt"
	"strings"
)

// UserMessage provides user-friendly error information with actionable guidance.
type UserMessage struct {
	Message string // What happened (user-friendly)
	Action  string // What to do about it
	Code    string // Error code for support reference
}

// errorPattern defines a pattern to match and its corresponding user message.
type errorPattern struct {
	pattern string
	msg     UserMessage
}

// errorPatterns maps technical error patterns (case-insensitive) to user messages.
// The first matching pattern wins, so order matters.
var errorPatterns = []errorPattern{
	// =========================================================================
	// Invitation Errors (INV001-INV003)
	// =========================================================================
	{
		pattern: "invitation already pending",
		msg: UserMessage{
			Message: "An invitation for this email is already pending",
			Action:  "Revoke the existing invitation or wait for it to expire",
			Code:    "INV001",
		},
	},
	{
		pattern: "invitation is not pending",
		msg: UserMessage{
			Message: "This invitation can no longer be changed",
			Action:  "Only pending invitations can be revoked",
			Code:    "INV002",
		},
	},
	{
		pattern: "email domain not allowed",
		msg: UserMessage{
			Message: "This email domain is not allowed for the organization",
			Action:  "Invite an address on an allowed domain or update the organization settings",
			Code:    "INV003",
		},
	},

	// =========================================================================
	// Validation Errors (VAL001-VAL009)
	// =========================================================================
	{
		pattern: "invalid email",
		msg: UserMessage{
			Message: "Invalid email address",
			Action:  "Enter an address like name@example.com",
			Code:    "VAL001",
		},
	},
	{
		pattern: "invalid role",
		msg: UserMessage{
			Message: "Invalid role",
			Action:  "Choose one of the listed roles",
			Code:    "VAL002",
		},
	},
	{
		pattern: "required field",
		msg: UserMessage{
			Message: "Required field is empty",
			Action:  "Fill in all required fields",
			Code:    "VAL003",
		},
	},
	{
		pattern: "invalid domain",
		msg: UserMessage{
			Message: "Invalid allowed domain",
			Action:  "Use bare domain names such as example.com",
			Code:    "VAL004",
		},
	},
	{
		pattern: "display name too long",
		msg: UserMessage{
			Message: "Display name is too long",
			Action:  "Use at most 100 characters",
			Code:    "VAL005",
		},
	},
	{
		pattern: "token limit must not be negative",
		msg: UserMessage{
			Message: "Token limit cannot be negative",
			Action:  "Use 0 for an unlimited monthly budget",
			Code:    "VAL006",
		},
	},
	{
		pattern: "invalid request body",
		msg: UserMessage{
			Message: "The request could not be read",
			Action:  "Send a valid JSON body",
			Code:    "VAL007",
		},
	},
	{
		pattern: "invalid invitation",
		msg: UserMessage{
			Message: "The invitation is invalid",
			Action:  "Check the organization, email and role",
			Code:    "VAL008",
		},
	},
	{
		pattern: "invalid settings",
		msg: UserMessage{
			Message: "The settings are invalid",
			Action:  "Review the values and try again",
			Code:    "VAL009",
		},
	},

	// =========================================================================
	// View Errors (TBL001-TBL004)
	// =========================================================================
	{
		pattern: "unknown view",
		msg: UserMessage{
			Message: "The requested view does not exist",
			Action:  "Pick a view from the dashboard",
			Code:    "TBL001",
		},
	},
	{
		pattern: "unsupported export format",
		msg: UserMessage{
			Message: "Export format is not supported",
			Action:  "Export as csv or xlsx",
			Code:    "TBL002",
		},
	},
	{
		pattern: "invalid column",
		msg: UserMessage{
			Message: "This view is misconfigured",
			Action:  "Please contact support",
			Code:    "TBL003",
		},
	},
	{
		pattern: "invalid filter",
		msg: UserMessage{
			Message: "This view filter is misconfigured",
			Action:  "Please contact support",
			Code:    "TBL004",
		},
	},

	// =========================================================================
	// Authentication Errors (AUTH001-AUTH002)
	// =========================================================================
	{
		pattern: "invalid api key",
		msg: UserMessage{
			Message: "Authentication failed",
			Action:  "Check the API key and try again",
			Code:    "AUTH001",
		},
	},
	{
		pattern: "missing api key",
		msg: UserMessage{
			Message: "Authentication required",
			Action:  "Send an X-API-Key header",
			Code:    "AUTH002",
		},
	},

	// =========================================================================
	// Database Errors (DB001-DB008)
	// =========================================================================
	{
		pattern: "duplicate key",
		msg: UserMessage{
			Message: "A record with this ID already exists",
			Action:  "Refresh the page and try again",
			Code:    "DB001",
		},
	},
	{
		pattern: "unique constraint",
		msg: UserMessage{
			Message: "This value must be unique but already exists",
			Action:  "Choose a different value",
			Code:    "DB002",
		},
	},
	{
		pattern: "violates unique",
		msg: UserMessage{
			Message: "This value must be unique but already exists",
			Action:  "Choose a different value",
			Code:    "DB002",
		},
	},
	{
		pattern: "foreign key constraint",
		msg: UserMessage{
			Message: "Referenced record does not exist",
			Action:  "Check that the organization still exists",
			Code:    "DB003",
		},
	},
	{
		pattern: "violates foreign key",
		msg: UserMessage{
			Message: "Referenced record does not exist",
			Action:  "Check that the organization still exists",
			Code:    "DB003",
		},
	},
	{
		pattern: "connection refused",
		msg: UserMessage{
			Message: "Unable to connect to database",
			Action:  "Please try again in a few moments",
			Code:    "DB004",
		},
	},
	{
		pattern: "connection reset",
		msg: UserMessage{
			Message: "Database connection was interrupted",
			Action:  "Please try again",
			Code:    "DB005",
		},
	},
	{
		pattern: "timeout",
		msg: UserMessage{
			Message: "Operation timed out",
			Action:  "Narrow the view with filters or try again later",
			Code:    "DB006",
		},
	},
	{
		pattern: "deadlock",
		msg: UserMessage{
			Message: "Database was busy with conflicting operations",
			Action:  "Please try again",
			Code:    "DB007",
		},
	},
	{
		pattern: "record not found",
		msg: UserMessage{
			Message: "The requested record was not found",
			Action:  "It may have been removed. Refresh the page",
			Code:    "DB008",
		},
	},

	// =========================================================================
	// Request Errors (REQ001-REQ002)
	// =========================================================================
	{
		pattern: "context canceled",
		msg: UserMessage{
			Message: "Request was cancelled",
			Action:  "Please try again",
			Code:    "REQ001",
		},
	},
	{
		pattern: "context deadline exceeded",
		msg: UserMessage{
			Message: "Request timed out",
			Action:  "Narrow the view with filters or try again later",
			Code:    "REQ002",
		},
	},

	// =========================================================================
	// Rate Limiting (RATE001-RATE002)
	// =========================================================================
	{
		pattern: "rate limit",
		msg: UserMessage{
			Message: "Too many requests",
			Action:  "Please wait a moment before trying again",
			Code:    "RATE001",
		},
	},
	{
		pattern: "too many concurrent exports",
		msg: UserMessage{
			Message: "The export queue is full",
			Action:  "Wait a few seconds and start the export again",
			Code:    "RATE002",
		},
	},
}

// defaultMessage is returned when no pattern matches (ERR000).
var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Please try again or contact support",
	Code:    "ERR000",
}

// MapError converts a technical error to a user-friendly message.
// It returns the first pattern match, or the ERR000 fallback.
//
//	msg := MapError(fmt.Errorf("create: %w", ErrInvitationExists))
//	// msg.Code == "INV001"
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	errStr := strings.ToLower(err.Error())

	for _, ep := range errorPatterns {
		if strings.Contains(errStr, ep.pattern) {
			return ep.msg
		}
	}

	return defaultMessage
}

// FormatUserError creates a formatted error string for display.
// The format is: "Message (Code: XXX). Action"
func FormatUserError(err error) string {
	msg := MapError(err)
	if msg.Message == "" {
		return ""
	}
	return fmt.Sprintf("%s (Code: %s). %s", msg.Message, msg.Code, msg.Action)
}

// IsUserFacing reports whether err matches a known pattern rather than the
// generic ERR000 fallback.
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}
	return MapError(err).Code != defaultMessage.Code
}

// UserError pairs a technical error with its user-friendly message.
type UserError struct {
	Technical error       // Original technical error for logging
	User      UserMessage // User-friendly message for display
}

func (e *UserError) Error() string {
	return e.User.Message
}

func (e *UserError) Unwrap() error {
	return e.Technical
}

// NewUserError maps err to a UserError. Returns nil if err is nil.
func NewUserError(err error) *UserError {
	if err == nil {
		return nil
	}
	return &UserError{
		Technical: err,
		User:      MapError(err),
	}
}
