package kafka

// Default topic names; overridable through config.
const (
	TopicRegistrationEvents = "registration-events"
	TopicCheckInEvents      = "checkin-events"
	TopicBadgeEvents        = "badge-events"
)

// Event types carried on the streams.
const (
	EventRegistrationCreated = "registration.created"
	EventCheckedIn           = "registration.checked_in"
	EventBadgeGenerated      = "badge.generated"
)
