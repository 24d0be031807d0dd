package client

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/Guyuepp/newsfeed/domain"
)

var (
	// ErrRemote marks failures of the news service itself, or of the network
	ErrRemote = errors.New("news service unavailable")
	// ErrStale is returned when local state still belongs to another sign in
	ErrStale = errors.New("local state is out of date")
)

// APIError is a non 2xx answer. errors.Is matches the domain sentinel of its status.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("news api: %d %s", e.Status, e.Message)
}

func (e *APIError) Unwrap() error {
	switch e.Status {
	case http.StatusUnauthorized:
		return domain.ErrUnauthenticated
	case http.StatusForbidden:
		return domain.ErrForbidden
	case http.StatusNotFound:
		return domain.ErrNotFound
	case http.StatusConflict:
		return domain.ErrConflict
	case http.StatusBadRequest:
		return domain.ErrBadParamInput
	default:
		return ErrRemote
	}
}

// Message turns any failure into a sentence fit for the reader
func Message(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, domain.ErrUnauthenticated):
		return "Please sign in to do that."
	case errors.Is(err, domain.ErrForbidden):
		return "You do not have permission to do that."
	case errors.Is(err, domain.ErrNotFound):
		return "That article or comment no longer exists."
	case errors.Is(err, domain.ErrConflict):
		return "That already exists."
	case errors.Is(err, domain.ErrValidation):
		return "Please fill in the required text before sending."
	case errors.Is(err, domain.ErrBadParamInput):
		return "Some of the information you entered is not valid."
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return "The request took too long. Please try again."
	case errors.Is(err, ErrStale):
		return "Your feed is still catching up with your sign in. Please try again."
	case errors.Is(err, ErrRemote):
		return "We could not reach the news service. Your change was not saved, please try again."
	default:
		return "Something went wrong. Please try again."
	}
}
