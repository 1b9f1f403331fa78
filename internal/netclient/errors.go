package netclient

import (
	"errors"
	"fmt"
	"net/http"
)

// NetworkError classifies a failed outbound request for user messaging
type NetworkError struct {
	Message        string
	Code           string
	Status         int
	IsNetworkError bool
	IsTimeout      bool
	IsOffline      bool
	Err            error
}

func (e *NetworkError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s (status %d)", e.Message, e.Status)
	}
	return e.Message
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// Error codes set on NetworkError.Code
const (
	CodeOffline = "OFFLINE"
	CodeTimeout = "TIMEOUT"
	CodeNetwork = "NETWORK_ERROR"
	CodeHTTP    = "HTTP_ERROR"
)

// StatusError builds a NetworkError for a non-2xx response
func StatusError(resp *http.Response) *NetworkError {
	return &NetworkError{
		Message: fmt.Sprintf("request to %s failed", resp.Request.URL.Redacted()),
		Code:    CodeHTTP,
		Status:  resp.StatusCode,
	}
}

// UserMessage returns a message suitable for showing to the user
func UserMessage(err error) string {
	var ne *NetworkError
	if !errors.As(err, &ne) {
		if err == nil {
			return ""
		}
		return "An unexpected error occurred. Please try again."
	}

	switch {
	case ne.IsOffline:
		return "No internet connection. Please check your network and try again."
	case ne.IsTimeout:
		return "Request timed out. Please check your connection and try again."
	case ne.IsNetworkError:
		return "Network error. Please check your internet connection and try again."
	case ne.Status == http.StatusUnauthorized:
		return "Authentication failed. Please log in again."
	case ne.Status == http.StatusForbidden:
		return "You do not have permission to perform this action."
	case ne.Status == http.StatusNotFound:
		return "The requested resource was not found."
	case ne.Status >= 500:
		return "Server error. Please try again later."
	case ne.Message != "":
		return ne.Message
	}
	return "An unexpected error occurred. Please try again."
}
