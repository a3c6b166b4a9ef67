package social

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/StoryTeller-v2/back-end/internal/core/domain"
	"github.com/StoryTeller-v2/back-end/internal/core/port"
)

const defaultKakaoUserInfoURL = "https://kapi.kakao.com/v2/user/me"

// KakaoConfig configures Kakao access token verification.
type KakaoConfig struct {
	// UserInfoURL can be overridden in tests.
	UserInfoURL string
	HTTPClient  *http.Client
}

// KakaoVerifier resolves a Kakao access token to the owning user via /v2/user/me.
type KakaoVerifier struct {
	cfg KakaoConfig
}

// NewKakaoVerifier builds a KakaoVerifier.
func NewKakaoVerifier(cfg KakaoConfig) *KakaoVerifier {
	if cfg.UserInfoURL == "" {
		cfg.UserInfoURL = defaultKakaoUserInfoURL
	}
	cfg.HTTPClient = httpClientOrDefault(cfg.HTTPClient)
	return &KakaoVerifier{cfg: cfg}
}

// Name implements ProviderVerifier.
func (k *KakaoVerifier) Name() string { return ProviderKakao }

type kakaoUser struct {
	ID           int64 `json:"id"`
	KakaoAccount struct {
		Email   string `json:"email"`
		Profile struct {
			Nickname string `json:"nickname"`
		} `json:"profile"`
	} `json:"kakao_account"`
	Properties struct {
		Nickname string `json:"nickname"`
	} `json:"properties"`
}

// Verify implements ProviderVerifier.
func (k *KakaoVerifier) Verify(ctx context.Context, accessToken string) (*domain.SocialProfile, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, k.cfg.UserInfoURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create kakao user request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := k.cfg.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("kakao user request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
	if err != nil {
		return nil, fmt.Errorf("read kakao user response: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusBadRequest:
		return nil, fmt.Errorf("%w: kakao rejected access token", port.ErrInvalidIdentityToken)
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("kakao user endpoint returned status %d", resp.StatusCode)
	}

	var user kakaoUser
	if err := json.Unmarshal(body, &user); err != nil {
		return nil, fmt.Errorf("%w: decode kakao user: %v", port.ErrInvalidIdentityToken, err)
	}
	if user.ID == 0 {
		return nil, fmt.Errorf("%w: missing kakao user id", port.ErrInvalidIdentityToken)
	}

	nickname := user.KakaoAccount.Profile.Nickname
	if nickname == "" {
		nickname = user.Properties.Nickname
	}

	return &domain.SocialProfile{
		Subject:  strconv.FormatInt(user.ID, 10),
		Nickname: nickname,
		Email:    user.KakaoAccount.Email,
	}, nil
}
