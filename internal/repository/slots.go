package repository

// Storage slot keys. Each slot holds one serialized value.
const (
	SlotFamilyMembers      = "family_members"
	SlotCalendarEvents     = "calendar_events"
	SlotOnboardingComplete = "onboarding_complete"
	SlotPushToken          = "push_notification_token"
	SlotAuthToken          = "auth_token"
	SlotRefreshToken       = "refresh_token"
	SlotUserData           = "user_data"
)
