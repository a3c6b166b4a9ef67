package port

import (
	"context"

	"github.com/StoryTeller-v2/back-end/internal/core/domain"
)

// LocalUserRepository exposes persistence behavior for password-based accounts.
type LocalUserRepository interface {
	Create(ctx context.Context, user domain.LocalUser) error
	GetByID(ctx context.Context, id string) (*domain.LocalUser, error)
	GetByUsername(ctx context.Context, username string) (*domain.LocalUser, error)
	ExistsByUsername(ctx context.Context, username string) (bool, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
}

// SocialUserRepository exposes persistence behavior for provider-derived accounts.
type SocialUserRepository interface {
	// Upsert inserts the account or refreshes nickname and email when the
	// account id already exists. It returns the stored row.
	Upsert(ctx context.Context, user domain.SocialUser) (*domain.SocialUser, error)
	GetByAccountID(ctx context.Context, accountID string) (*domain.SocialUser, error)
	ExistsByAccountID(ctx context.Context, accountID string) (bool, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
}
