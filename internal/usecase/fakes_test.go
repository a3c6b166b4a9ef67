package usecase

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	red "github.com/redis/go-redis/v9"

	"github.com/StoryTeller-v2/back-end/internal/core/domain"
	"github.com/StoryTeller-v2/back-end/internal/core/port"
	"github.com/StoryTeller-v2/back-end/internal/infra/security"
	"github.com/StoryTeller-v2/back-end/internal/repository"
	redisrepo "github.com/StoryTeller-v2/back-end/internal/repository/redis"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func newTestHasher(t *testing.T) *security.Argon2Hasher {
	t.Helper()
	hasher, err := security.NewArgon2Hasher(port.Argon2Params{
		Memory:      8 * 1024,
		Iterations:  1,
		Parallelism: 1,
		SaltLength:  16,
		KeyLength:   32,
	})
	if err != nil {
		t.Fatalf("NewArgon2Hasher: %v", err)
	}
	return hasher
}

func newTestSessions(t *testing.T) (*redisrepo.SessionStore, *miniredis.Miniredis) {
	t.Helper()

	server, err := miniredis.Run()
	if err != nil {
		t.Fatalf("failed to start miniredis: %v", err)
	}
	client := red.NewClient(&red.Options{Addr: server.Addr()})
	t.Cleanup(func() {
		_ = client.Close()
		server.Close()
	})

	return redisrepo.NewSessionStore(client, 14*24*time.Hour), server
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type fakeLocalUsers struct {
	mu     sync.Mutex
	users  map[string]domain.LocalUser
	err    error
	create error
}

func newFakeLocalUsers(users ...domain.LocalUser) *fakeLocalUsers {
	r := &fakeLocalUsers{users: make(map[string]domain.LocalUser)}
	for _, u := range users {
		r.users[u.Username] = u
	}
	return r
}

func (r *fakeLocalUsers) Create(_ context.Context, user domain.LocalUser) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.create != nil {
		return r.create
	}
	if _, ok := r.users[user.Username]; ok {
		return repository.ErrConflict
	}
	r.users[user.Username] = user
	return nil
}

func (r *fakeLocalUsers) GetByID(_ context.Context, id string) (*domain.LocalUser, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.ID == id {
			copy := u
			return &copy, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *fakeLocalUsers) GetByUsername(_ context.Context, username string) (*domain.LocalUser, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return nil, r.err
	}
	u, ok := r.users[username]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &u, nil
}

func (r *fakeLocalUsers) ExistsByUsername(_ context.Context, username string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return false, r.err
	}
	_, ok := r.users[username]
	return ok, nil
}

func (r *fakeLocalUsers) ExistsByEmail(_ context.Context, email string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if strings.EqualFold(u.Email, email) {
			return true, nil
		}
	}
	return false, nil
}

type fakeSocialUsers struct {
	mu      sync.Mutex
	users   map[string]domain.SocialUser
	upserts int
}

func newFakeSocialUsers(users ...domain.SocialUser) *fakeSocialUsers {
	r := &fakeSocialUsers{users: make(map[string]domain.SocialUser)}
	for _, u := range users {
		r.users[u.AccountID] = u
	}
	return r
}

func (r *fakeSocialUsers) Upsert(_ context.Context, user domain.SocialUser) (*domain.SocialUser, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.upserts++
	if existing, ok := r.users[user.AccountID]; ok {
		existing.Nickname = user.Nickname
		existing.Email = user.Email
		existing.UpdatedAt = user.UpdatedAt
		r.users[user.AccountID] = existing
		return &existing, nil
	}
	r.users[user.AccountID] = user
	return &user, nil
}

func (r *fakeSocialUsers) GetByAccountID(_ context.Context, accountID string) (*domain.SocialUser, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[accountID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &u, nil
}

func (r *fakeSocialUsers) ExistsByAccountID(_ context.Context, accountID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.users[accountID]
	return ok, nil
}

func (r *fakeSocialUsers) ExistsByEmail(_ context.Context, email string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if strings.EqualFold(u.Email, email) {
			return true, nil
		}
	}
	return false, nil
}

// fakeSocialVerifier accepts credentials of the form "<provider>:<subject>".
type fakeSocialVerifier struct {
	nickname string
	email    string
}

func (v *fakeSocialVerifier) Verify(_ context.Context, provider, credential string) (*domain.SocialProfile, error) {
	if provider != "google" && provider != "kakao" {
		return nil, port.ErrUnsupportedProvider
	}
	prefix := provider + ":"
	if !strings.HasPrefix(credential, prefix) {
		return nil, port.ErrInvalidIdentityToken
	}
	subject := strings.TrimPrefix(credential, prefix)
	return &domain.SocialProfile{
		Provider:  provider,
		Subject:   subject,
		AccountID: provider + "_" + subject,
		Nickname:  v.nickname,
		Email:     v.email,
	}, nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []domain.AuthEvent
	err    error
}

func (p *recordingPublisher) PublishAuthEvent(_ context.Context, event domain.AuthEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return p.err
}

func (p *recordingPublisher) types() []domain.AuthEventType {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]domain.AuthEventType, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Type)
	}
	return out
}

type recordingMetrics struct {
	mu     sync.Mutex
	counts map[string]int
}

func (m *recordingMetrics) RecordAuthOperation(operation, result string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.counts == nil {
		m.counts = make(map[string]int)
	}
	m.counts[operation+"/"+result]++
}

func (m *recordingMetrics) count(operation, result string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.counts[operation+"/"+result]
}

type fakeCodeStore struct {
	mu    sync.Mutex
	codes map[string]string
	ttls  map[string]time.Duration
}

func newFakeCodeStore() *fakeCodeStore {
	return &fakeCodeStore{codes: make(map[string]string), ttls: make(map[string]time.Duration)}
}

func (s *fakeCodeStore) Save(_ context.Context, email, code string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.codes[email] = code
	s.ttls[email] = ttl
	return nil
}

func (s *fakeCodeStore) Get(_ context.Context, email string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	code, ok := s.codes[email]
	if !ok {
		return "", repository.ErrNotFound
	}
	return code, nil
}

func (s *fakeCodeStore) Delete(_ context.Context, email string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.codes, email)
	return nil
}

type fakeMailer struct {
	mu   sync.Mutex
	sent map[string]string
	err  error
}

func (m *fakeMailer) SendVerificationCode(_ context.Context, to, code string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	if m.sent == nil {
		m.sent = make(map[string]string)
	}
	m.sent[to] = code
	return nil
}

var errBoom = errors.New("boom")
