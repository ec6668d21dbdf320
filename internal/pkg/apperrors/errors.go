package apperrors

import (
	"errors"
	"fmt"
	"time"
)

// Kind classifies an error into the closed set of failure categories the
// trading core reacts to. Upstream clients map whatever they see on the wire
// into one of these kinds; everything downstream (retry, cache, pool) only
// ever inspects the kind.
type Kind string

const (
	// Retryable kinds.
	KindNetwork        Kind = "network"
	KindRateLimit      Kind = "rate_limit"
	KindSessionExpired Kind = "session_expired"
	KindAntiBotBlock   Kind = "anti_bot_block"

	// Non-retryable kinds.
	KindValidation       Kind = "validation"
	KindAuth             Kind = "auth"
	KindDuplicateAccount Kind = "duplicate_account"
	KindNotFound         Kind = "not_found"
)

// Error is the single error type crossing component boundaries.
type Error struct {
	Kind Kind
	Msg  string
	Err  error

	// RetryAfter is an upstream-suggested wait, only meaningful for
	// KindRateLimit. Zero means no suggestion.
	RetryAfter time.Duration
}

func (e *Error) Error() string {
	if e.Err != nil {
		if e.Msg != "" {
			return fmt.Sprintf("%s: %s: %v", e.Kind, e.Msg, e.Err)
		}
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

func (e *Error) Unwrap() error { return e.Err }

func New(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Msg: msg}
}

func Wrap(kind Kind, msg string, err error) *Error {
	return &Error{Kind: kind, Msg: msg, Err: err}
}

// Network marks a transient transport failure.
func Network(err error) *Error {
	return &Error{Kind: KindNetwork, Err: err}
}

// RateLimited marks an upstream throttling signal. retryAfter may be zero.
func RateLimited(retryAfter time.Duration) *Error {
	return &Error{Kind: KindRateLimit, Msg: "upstream throttled", RetryAfter: retryAfter}
}

// SessionExpired marks an invalidated scraped session. The owning client is
// expected to refresh it before the next attempt.
func SessionExpired() *Error {
	return &Error{Kind: KindSessionExpired, Msg: "session expired"}
}

// AntiBotBlock marks a detected anti-bot challenge.
func AntiBotBlock() *Error {
	return &Error{Kind: KindAntiBotBlock, Msg: "anti-bot challenge detected"}
}

func Validation(msg string) *Error {
	return &Error{Kind: KindValidation, Msg: msg}
}

func Auth(msg string) *Error {
	return &Error{Kind: KindAuth, Msg: msg}
}

func DuplicateAccount(msg string) *Error {
	return &Error{Kind: KindDuplicateAccount, Msg: msg}
}

func NotFound(msg string) *Error {
	return &Error{Kind: KindNotFound, Msg: msg}
}

// KindOf returns the kind of err, or "" if err does not carry one.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}

// IsRetryable reports whether another attempt may succeed. Unclassified
// errors are treated as fatal so that programming mistakes never loop.
func IsRetryable(err error) bool {
	switch KindOf(err) {
	case KindNetwork, KindRateLimit, KindSessionExpired, KindAntiBotBlock:
		return true
	default:
		return false
	}
}

// SuggestedDelay extracts the upstream-suggested wait, if any.
func SuggestedDelay(err error) time.Duration {
	var e *Error
	if errors.As(err, &e) {
		return e.RetryAfter
	}
	return 0
}
