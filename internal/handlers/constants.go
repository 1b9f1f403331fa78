package handlers

const (
	ErrInvalidJSON           = "Invalid JSON body"
	ErrInvalidDate           = "Invalid date, expected YYYY-MM-DD"
	ErrUnauthorized          = "Unauthorized"
	ErrInternalServerError   = "Internal server error"
	ErrMemberNotFoundMsg     = "Family member not found"
	ErrEventNotFoundMsg      = "Event not found"
	ErrStorageUnavailableMsg = "Could not save changes. Please try again."

	maxBodyBytes = 1 << 20
)
