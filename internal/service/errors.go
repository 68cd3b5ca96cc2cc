package service

import "errors"

var (
	ErrInvalidToken     = errors.New("invalid or expired token")
	ErrForbidden        = errors.New("wrong principal for this operation")
	ErrAlreadyLive      = errors.New("a live session already exists for this batch")
	ErrSessionNotLive   = errors.New("session is not live")
	ErrSessionNotFound  = errors.New("session not found")
	ErrInvalidPayload   = errors.New("invalid payload")
	ErrStaleContentItem = errors.New("response targets a superseded content item")
)

// ErrorCode maps a service error to its protocol-level code. Unknown errors
// collapse to INTERNAL so internals never leak onto the wire.
func ErrorCode(err error) string {
	switch {
	case errors.Is(err, ErrInvalidToken):
		return "UNAUTHORIZED"
	case errors.Is(err, ErrForbidden):
		return "FORBIDDEN"
	case errors.Is(err, ErrAlreadyLive):
		return "ALREADY_LIVE"
	case errors.Is(err, ErrSessionNotLive):
		return "SESSION_NOT_LIVE"
	case errors.Is(err, ErrSessionNotFound):
		return "SESSION_NOT_FOUND"
	case errors.Is(err, ErrInvalidPayload):
		return "INVALID_PAYLOAD"
	case errors.Is(err, ErrStaleContentItem):
		return "STALE_CONTENT_ITEM"
	default:
		return "INTERNAL"
	}
}
