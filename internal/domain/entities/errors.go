package entities

import (
	"errors"
	"fmt"
)

// Common errors
var (
	ErrTaskNotFound    = errors.New("task not found")
	ErrCommentNotFound = errors.New("comment not found")
	ErrUserNotFound    = errors.New("user not found")
	ErrClientNotFound  = errors.New("client not found")

	// ErrInvalidOperation marks a mutation rejected before it touched the collection.
	ErrInvalidOperation = errors.New("invalid operation")
	ErrSelfDependency   = fmt.Errorf("%w: task cannot depend on itself", ErrInvalidOperation)
	ErrDependencyCycle  = fmt.Errorf("%w: dependency would create a cycle", ErrInvalidOperation)
	ErrInvalidStatus    = fmt.Errorf("%w: invalid status", ErrInvalidOperation)
	ErrInvalidPriority  = fmt.Errorf("%w: invalid priority", ErrInvalidOperation)
	ErrEmptyTag         = fmt.Errorf("%w: tag must not be empty", ErrInvalidOperation)
	ErrEmptyComment     = fmt.Errorf("%w: comment must not be empty", ErrInvalidOperation)

	ErrRemoteUnavailable  = errors.New("remote store unavailable")
	ErrCacheWrite         = errors.New("local cache write failed")
	ErrMalformedCacheData = errors.New("malformed cache data")
	ErrConflict           = errors.New("collection changed since it was read")
)
