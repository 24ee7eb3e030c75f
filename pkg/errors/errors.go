// Package errors provides common, reusable error values and helpers.
package errors

import (
	"errors"
	"fmt"
)

// Common errors
var (
	ErrUserNotFound       = errors.New("user not found")
	ErrUserAlreadyExists  = errors.New("user already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidCode        = errors.New("invalid or expired verification code")
	ErrInvalidRole        = errors.New("invalid role")
	ErrDuplicateRequest   = errors.New("duplicate request")

	// KYC tracker errors
	ErrInvalidPhase           = errors.New("invalid kyc phase")
	ErrPhaseIncomplete        = errors.New("all kyc phases must be complete before verification")
	ErrVerificationInProgress = errors.New("kyc verification already in progress")
	ErrAlreadyVerified        = errors.New("kyc already verified")
	ErrUploadFailed           = errors.New("document upload failed")

	// Wizard errors
	ErrDraftNotFound   = errors.New("draft not found")
	ErrInvalidStep     = errors.New("invalid wizard step")
	ErrInvalidCategory = errors.New("invalid task category")

	// Marketplace records
	ErrTaskNotFound         = errors.New("task not found")
	ErrDeliveryNotFound     = errors.New("delivery not found")
	ErrInvalidTransition    = errors.New("status transition not allowed")
	ErrInvalidFilter        = errors.New("invalid filter")
	ErrNotificationNotFound = errors.New("notification not found")

	// File upload errors
	ErrFileUploadFailed   = errors.New("file upload failed")
	ErrFileStorageFailed  = errors.New("file storage failed")
	ErrFileTooLarge       = errors.New("file size exceeds limit")
	ErrFileTypeNotAllowed = errors.New("invalid file type")
	ErrFileInfected       = errors.New("file failed malware scan")
)

// Wrap wraps an error with additional context
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Is reports whether any error in err's chain matches target.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// New is errors.New, re-exported so callers need a single errors import.
func New(text string) error {
	return errors.New(text)
}
