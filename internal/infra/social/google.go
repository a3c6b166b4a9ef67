package social

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/StoryTeller-v2/back-end/internal/core/domain"
	"github.com/StoryTeller-v2/back-end/internal/core/port"
)

const defaultGoogleTokenInfoURL = "https://oauth2.googleapis.com/tokeninfo"

var googleIssuers = map[string]bool{
	"accounts.google.com":         true,
	"https://accounts.google.com": true,
}

// GoogleConfig configures ID token verification.
type GoogleConfig struct {
	ClientID string
	// TokenInfoURL can be overridden in tests.
	TokenInfoURL string
	HTTPClient   *http.Client
	Now          func() time.Time
}

// GoogleVerifier validates Google ID tokens through the tokeninfo endpoint
// and checks audience, issuer and expiry.
type GoogleVerifier struct {
	cfg GoogleConfig
}

// NewGoogleVerifier builds a GoogleVerifier.
func NewGoogleVerifier(cfg GoogleConfig) *GoogleVerifier {
	if cfg.TokenInfoURL == "" {
		cfg.TokenInfoURL = defaultGoogleTokenInfoURL
	}
	cfg.HTTPClient = httpClientOrDefault(cfg.HTTPClient)
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &GoogleVerifier{cfg: cfg}
}

// Name implements ProviderVerifier.
func (g *GoogleVerifier) Name() string { return ProviderGoogle }

type googleTokenInfo struct {
	Audience      string `json:"aud"`
	Issuer        string `json:"iss"`
	Subject       string `json:"sub"`
	Email         string `json:"email"`
	EmailVerified string `json:"email_verified"`
	Name          string `json:"name"`
	Expiry        string `json:"exp"`
}

// Verify implements ProviderVerifier.
func (g *GoogleVerifier) Verify(ctx context.Context, idToken string) (*domain.SocialProfile, error) {
	endpoint := g.cfg.TokenInfoURL + "?" + url.Values{"id_token": {idToken}}.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("create tokeninfo request: %w", err)
	}

	resp, err := g.cfg.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("tokeninfo request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
	if err != nil {
		return nil, fmt.Errorf("read tokeninfo response: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusBadRequest || resp.StatusCode == http.StatusUnauthorized:
		return nil, fmt.Errorf("%w: google rejected id token", port.ErrInvalidIdentityToken)
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("tokeninfo returned status %d", resp.StatusCode)
	}

	var info googleTokenInfo
	if err := json.Unmarshal(body, &info); err != nil {
		return nil, fmt.Errorf("%w: decode tokeninfo: %v", port.ErrInvalidIdentityToken, err)
	}

	if err := g.validate(info); err != nil {
		return nil, err
	}

	return &domain.SocialProfile{
		Subject:  info.Subject,
		Nickname: info.Name,
		Email:    info.Email,
	}, nil
}

func (g *GoogleVerifier) validate(info googleTokenInfo) error {
	if info.Subject == "" {
		return fmt.Errorf("%w: missing subject", port.ErrInvalidIdentityToken)
	}
	if g.cfg.ClientID == "" || info.Audience != g.cfg.ClientID {
		return fmt.Errorf("%w: audience mismatch", port.ErrInvalidIdentityToken)
	}
	if !googleIssuers[info.Issuer] {
		return fmt.Errorf("%w: unexpected issuer %q", port.ErrInvalidIdentityToken, info.Issuer)
	}
	if info.Expiry != "" {
		exp, err := strconv.ParseInt(info.Expiry, 10, 64)
		if err != nil {
			return fmt.Errorf("%w: bad exp", port.ErrInvalidIdentityToken)
		}
		if !g.cfg.Now().Before(time.Unix(exp, 0)) {
			return fmt.Errorf("%w: id token expired", port.ErrInvalidIdentityToken)
		}
	}
	if info.Email != "" && info.EmailVerified == "false" {
		return fmt.Errorf("%w: email not verified", port.ErrInvalidIdentityToken)
	}
	return nil
}
