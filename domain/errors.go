package domain

import "errors"

var (
	// ErrInternalServerError will throw if any the Internal Server Error happen
	ErrInternalServerError = errors.New("internal server error")
	// ErrNotFound will throw if the requested item is not exists
	ErrNotFound = errors.New("your requested item is not found")
	// ErrConflict will throw if the current action already exists
	ErrConflict = errors.New("your item already exist")
	// ErrBadParamInput will throw if the given request-body or params is not valid
	ErrBadParamInput = errors.New("given param is not valid")
	// ErrValidation is returned when user input fails validation before any remote call
	ErrValidation = errors.New("validation failed")
	// ErrUnauthenticated is returned when an action needs a signed-in actor
	ErrUnauthenticated = errors.New("you must be logged in")
	// ErrForbidden is returned when the actor lacks permission
	ErrForbidden = errors.New("you do not have permission to perform this action")
	// ErrCacheMiss is returned by caches when the key is not loaded yet
	ErrCacheMiss = errors.New("cache miss")
	// ErrCachePartial is returned when a cached set was loaded truncated and cannot answer for an absent member
	ErrCachePartial = errors.New("cache holds a partial set")
	// ErrBusy is returned when a write cannot be queued right now
	ErrBusy = errors.New("service busy, try again later")
)
