package domain

import "time"

// AuthMethod names the identity variant a token authenticates.
type AuthMethod string

const (
	AuthMethodLocal  AuthMethod = "local"
	AuthMethodSocial AuthMethod = "social"
)

// Valid reports whether m is one of the known authentication methods.
func (m AuthMethod) Valid() bool {
	return m == AuthMethodLocal || m == AuthMethodSocial
}

// Default role assigned when a registration or social login does not carry one.
const DefaultRole = "ROLE_USER"

// LocalUser mirrors the local_users table: password-based accounts.
type LocalUser struct {
	ID           string
	Username     string
	Email        string
	PasswordHash string
	Role         string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// IdentityKey returns the key used for sessions and token subjects.
func (u LocalUser) IdentityKey() string { return u.Username }

// SocialUser mirrors the social_users table: accounts derived from an OAuth provider.
// AccountID is provider-qualified, e.g. "google_1234" or "kakao_5678".
type SocialUser struct {
	ID        string
	AccountID string
	Provider  string
	Nickname  string
	Email     string
	Role      string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// IdentityKey returns the key used for sessions and token subjects.
func (u SocialUser) IdentityKey() string { return u.AccountID }

// Identity is a tagged union over the two account kinds. Exactly one of
// Local or Social is set, matching Method.
type Identity struct {
	Method AuthMethod
	Local  *LocalUser
	Social *SocialUser
}

// LocalIdentity wraps a local account.
func LocalIdentity(u *LocalUser) Identity {
	return Identity{Method: AuthMethodLocal, Local: u}
}

// SocialIdentity wraps a social account.
func SocialIdentity(u *SocialUser) Identity {
	return Identity{Method: AuthMethodSocial, Social: u}
}

// Key returns the identity key of whichever variant is set.
func (i Identity) Key() string {
	switch i.Method {
	case AuthMethodLocal:
		if i.Local != nil {
			return i.Local.IdentityKey()
		}
	case AuthMethodSocial:
		if i.Social != nil {
			return i.Social.IdentityKey()
		}
	}
	return ""
}

// Role returns the authorization role of whichever variant is set.
func (i Identity) Role() string {
	switch i.Method {
	case AuthMethodLocal:
		if i.Local != nil {
			return i.Local.Role
		}
	case AuthMethodSocial:
		if i.Social != nil {
			return i.Social.Role
		}
	}
	return ""
}

// Principal is the request-scoped identity built from access-token claims.
// No repository read backs it.
type Principal struct {
	Method  AuthMethod
	Subject string
	Role    string
}

// SocialProfile is what a SocialIdentityVerifier returns after validating
// a provider credential.
type SocialProfile struct {
	Provider  string
	Subject   string
	AccountID string
	Nickname  string
	Email     string
}

// SelfAssignableRole reports whether a client may request role when signing
// up or logging in through a provider. Elevated roles are granted out of band.
func SelfAssignableRole(role string) bool {
	return role == "" || role == DefaultRole
}
