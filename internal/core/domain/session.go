package domain

// SessionKeyPrefix prefixes every refresh-token session key. External tooling
// inspects sessions by this literal, so it is not configurable.
const SessionKeyPrefix = "refresh_token:"

// SessionKey builds the session store key for an identity key.
func SessionKey(identityKey string) string {
	return SessionKeyPrefix + identityKey
}

// VerificationCodeKeyPrefix prefixes email verification codes.
const VerificationCodeKeyPrefix = "email_code:"
