package handlers

import "github.com/StoryTeller-v2/back-end/internal/core/domain"

// LoginForm is the form-encoded body of POST /login.
type LoginForm struct {
	Username string `form:"username"`
	Password string `form:"password"`
}

// GoogleLoginRequest carries a Google id token.
type GoogleLoginRequest struct {
	IDToken string `json:"idToken"`
	Role    string `json:"role" binding:"omitempty,role"`
}

// KakaoLoginRequest carries a Kakao access token.
type KakaoLoginRequest struct {
	AccessToken string `json:"accessToken"`
	Role        string `json:"role" binding:"omitempty,role"`
}

// IdentityRequest asserts which identity a refresh token belongs to.
type IdentityRequest struct {
	Username  string `json:"username"`
	AccountID string `json:"accountId"`
}

// RegistrationRequest accepts either form fields or JSON.
type RegistrationRequest struct {
	Username string `form:"username" json:"username" binding:"required,identitykey"`
	Password string `form:"password" json:"password" binding:"required"`
	Email    string `form:"email" json:"email" binding:"required,email,max=254"`
	Role     string `form:"role" json:"role" binding:"omitempty,role"`
}

// UsernameRequest is the body of POST /username/verifications.
type UsernameRequest struct {
	Username string `json:"username" binding:"required,identitykey"`
}

// UsernameResult reports whether a username is still free.
type UsernameResult struct {
	Username   string `json:"username"`
	AuthResult bool   `json:"authResult"`
}

// EmailRequest is the body of POST /emails/verification-requests.
type EmailRequest struct {
	Email string `json:"email" binding:"required,email,max=254"`
}

// EmailCodeRequest is the body of POST /emails/verifications.
type EmailCodeRequest struct {
	Email    string `json:"email" binding:"required,email,max=254"`
	AuthCode string `json:"authCode" binding:"required"`
}

// EmailCodeResult echoes the checked code and the verdict.
type EmailCodeResult struct {
	Email      string `json:"email"`
	AuthCode   string `json:"authCode"`
	AuthResult bool   `json:"authResult"`
}

// LocalProfile is the public view of a local account.
type LocalProfile struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Role     string `json:"role"`
}

// SocialProfile is the public view of a social account.
type SocialProfile struct {
	ID        string `json:"id"`
	AccountID string `json:"accountId"`
	Nickname  string `json:"nickname"`
	Email     string `json:"email"`
	Role      string `json:"role"`
}

// PrincipalView is returned by GET /test.
type PrincipalView struct {
	Subject    string `json:"subject"`
	AuthMethod string `json:"authMethod"`
	Role       string `json:"role"`
}

func localProfile(u *domain.LocalUser) LocalProfile {
	return LocalProfile{ID: u.ID, Username: u.Username, Email: u.Email, Role: u.Role}
}

// profileOf renders whichever account kind identity holds.
func profileOf(identity domain.Identity) any {
	switch {
	case identity.Method == domain.AuthMethodLocal && identity.Local != nil:
		return localProfile(identity.Local)
	case identity.Method == domain.AuthMethodSocial && identity.Social != nil:
		u := identity.Social
		return SocialProfile{ID: u.ID, AccountID: u.AccountID, Nickname: u.Nickname, Email: u.Email, Role: u.Role}
	default:
		return nil
	}
}
