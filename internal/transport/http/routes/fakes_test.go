package routes_test

import (
	"context"
	"strings"
	"sync"

	"github.com/StoryTeller-v2/back-end/internal/core/domain"
	"github.com/StoryTeller-v2/back-end/internal/core/port"
	"github.com/StoryTeller-v2/back-end/internal/repository"
)

type memoryLocalUsers struct {
	mu    sync.Mutex
	users map[string]domain.LocalUser
}

func newMemoryLocalUsers() *memoryLocalUsers {
	return &memoryLocalUsers{users: make(map[string]domain.LocalUser)}
}

func (r *memoryLocalUsers) Create(_ context.Context, user domain.LocalUser) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[user.Username]; ok {
		return repository.ErrConflict
	}
	r.users[user.Username] = user
	return nil
}

func (r *memoryLocalUsers) GetByID(_ context.Context, id string) (*domain.LocalUser, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.ID == id {
			found := u
			return &found, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *memoryLocalUsers) GetByUsername(_ context.Context, username string) (*domain.LocalUser, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[username]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &u, nil
}

func (r *memoryLocalUsers) ExistsByUsername(_ context.Context, username string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.users[username]
	return ok, nil
}

func (r *memoryLocalUsers) ExistsByEmail(_ context.Context, email string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if strings.EqualFold(u.Email, email) {
			return true, nil
		}
	}
	return false, nil
}

type memorySocialUsers struct {
	mu    sync.Mutex
	users map[string]domain.SocialUser
}

func newMemorySocialUsers() *memorySocialUsers {
	return &memorySocialUsers{users: make(map[string]domain.SocialUser)}
}

func (r *memorySocialUsers) Upsert(_ context.Context, user domain.SocialUser) (*domain.SocialUser, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.users[user.AccountID]; ok {
		existing.Nickname = user.Nickname
		existing.Email = user.Email
		r.users[user.AccountID] = existing
		return &existing, nil
	}
	r.users[user.AccountID] = user
	return &user, nil
}

func (r *memorySocialUsers) GetByAccountID(_ context.Context, accountID string) (*domain.SocialUser, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[accountID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &u, nil
}

func (r *memorySocialUsers) ExistsByAccountID(_ context.Context, accountID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.users[accountID]
	return ok, nil
}

func (r *memorySocialUsers) ExistsByEmail(_ context.Context, email string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if strings.EqualFold(u.Email, email) {
			return true, nil
		}
	}
	return false, nil
}

// stubProviders accepts any credential except "bad" and derives the account
// id from it.
type stubProviders struct{}

func (stubProviders) Verify(_ context.Context, provider, credential string) (*domain.SocialProfile, error) {
	if provider != "google" && provider != "kakao" {
		return nil, port.ErrUnsupportedProvider
	}
	if credential == "bad" {
		return nil, port.ErrInvalidIdentityToken
	}
	return &domain.SocialProfile{
		Provider:  provider,
		Subject:   credential,
		AccountID: provider + "_" + credential,
		Nickname:  "reader-" + credential,
		Email:     credential + "@" + provider + ".example.com",
	}, nil
}

type capturingMailer struct {
	mu    sync.Mutex
	codes map[string]string
}

func (m *capturingMailer) SendVerificationCode(_ context.Context, to, code string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.codes == nil {
		m.codes = make(map[string]string)
	}
	m.codes[to] = code
	return nil
}

func (m *capturingMailer) code(to string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.codes[to]
}
