package service

import "errors"

var (
	// ErrValidation indicates caller-fixable malformed input.
	ErrValidation = errors.New("invalid input")
	// ErrInvalidCredentials covers both unknown usernames and wrong
	// passwords; the two are deliberately indistinguishable to callers.
	ErrInvalidCredentials = errors.New("invalid username or password")
	// ErrChallengeRequired tells the caller to obtain a captcha and retry.
	ErrChallengeRequired = errors.New("captcha verification required")
	// ErrAlreadyInitialized is returned once the one-time bootstrap
	// registration has been consumed.
	ErrAlreadyInitialized = errors.New("registration is closed")
	// ErrDuplicateUsername is returned when the requested username is taken.
	ErrDuplicateUsername = errors.New("username already taken")
	// ErrInvalidToken is returned for any unusable session token.
	ErrInvalidToken = errors.New("invalid or expired token")
	// ErrInternal hides lower-layer faults; the full detail is logged
	// server-side only.
	ErrInternal = errors.New("internal error")
)
