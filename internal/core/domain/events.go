package domain

import "time"

// AuthEventType enumerates the lifecycle events published by the auth core.
type AuthEventType string

const (
	EventUserLoggedIn     AuthEventType = "user.logged_in"
	EventUserLoggedOut    AuthEventType = "user.logged_out"
	EventTokenReissued    AuthEventType = "token.reissued"
	EventUserRegistered   AuthEventType = "user.registered"
	EventSocialUserLinked AuthEventType = "social_user.linked"
)

// AuthEvent is the payload emitted for session lifecycle changes.
type AuthEvent struct {
	EventID     string
	Type        AuthEventType
	Method      AuthMethod
	IdentityKey string
	Provider    string
	OccurredAt  time.Time
	Metadata    map[string]any
}
