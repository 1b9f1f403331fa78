package models

// UserProfile is the identity returned by the provider's userinfo endpoint
type UserProfile struct {
	ID                string `json:"id"`
	Email             string `json:"email,omitempty"`
	Name              string `json:"name,omitempty"`
	PreferredUsername string `json:"preferred_username,omitempty"`
}

// PermissionStatus is the push notification permission state
type PermissionStatus string

const (
	PermissionUndetermined PermissionStatus = "undetermined"
	PermissionGranted      PermissionStatus = "granted"
	PermissionDenied       PermissionStatus = "denied"
)

// NotificationState is the observable state of push registration
type NotificationState struct {
	PushToken        string           `json:"pushToken,omitempty"`
	IsRegistered     bool             `json:"isRegistered"`
	PermissionStatus PermissionStatus `json:"permissionStatus"`
}
