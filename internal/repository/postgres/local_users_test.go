package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	pgxmock "github.com/pashagolub/pgxmock/v3"

	"github.com/StoryTeller-v2/back-end/internal/core/domain"
	"github.com/StoryTeller-v2/back-end/internal/repository"
)

func newMockPool(t *testing.T) pgxmock.PgxPoolIface {
	t.Helper()
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock.NewPool: %v", err)
	}
	t.Cleanup(func() {
		if err := mock.ExpectationsWereMet(); err != nil {
			t.Errorf("unmet expectations: %v", err)
		}
		mock.Close()
	})
	return mock
}

func TestLocalUserRepository_Create(t *testing.T) {
	mock := newMockPool(t)
	repo := NewLocalUserRepository(mock)

	now := time.Now().UTC()
	user := domain.LocalUser{
		ID:           "0b6b8f2e-7c1f-4c43-9a7e-6f1d1f0b5a11",
		Username:     "alice",
		Email:        "Alice@Example.com",
		PasswordHash: "argon2id$...",
		Role:         "ROLE_USER",
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	mock.ExpectExec(`INSERT INTO local_users`).
		WithArgs(user.ID, "alice", "alice@example.com", user.PasswordHash, "ROLE_USER", now, now).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	if err := repo.Create(context.Background(), user); err != nil {
		t.Fatalf("Create returned error: %v", err)
	}
}

func TestLocalUserRepository_CreateDuplicate(t *testing.T) {
	mock := newMockPool(t)
	repo := NewLocalUserRepository(mock)

	mock.ExpectExec(`INSERT INTO local_users`).
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "local_users_username_key"})

	err := repo.Create(context.Background(), domain.LocalUser{Username: "alice"})
	if !errors.Is(err, repository.ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
}

func TestLocalUserRepository_GetByUsername(t *testing.T) {
	mock := newMockPool(t)
	repo := NewLocalUserRepository(mock)

	created := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	rows := pgxmock.NewRows(localUserColumns).
		AddRow("id-1", "alice", "alice@example.com", "hash", "ROLE_USER", created, created)

	mock.ExpectQuery(`SELECT id, username, email, password_hash, role, created_at, updated_at FROM local_users WHERE username = \$1`).
		WithArgs("alice").
		WillReturnRows(rows)

	user, err := repo.GetByUsername(context.Background(), "alice")
	if err != nil {
		t.Fatalf("GetByUsername returned error: %v", err)
	}
	if user.ID != "id-1" || user.Role != "ROLE_USER" || user.IdentityKey() != "alice" {
		t.Fatalf("unexpected user %+v", user)
	}
}

func TestLocalUserRepository_GetByUsernameNotFound(t *testing.T) {
	mock := newMockPool(t)
	repo := NewLocalUserRepository(mock)

	mock.ExpectQuery(`FROM local_users WHERE username = \$1`).
		WithArgs("ghost").
		WillReturnError(pgx.ErrNoRows)

	if _, err := repo.GetByUsername(context.Background(), "ghost"); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestLocalUserRepository_ExistsByUsername(t *testing.T) {
	mock := newMockPool(t)
	repo := NewLocalUserRepository(mock)

	mock.ExpectQuery(`SELECT EXISTS \( SELECT 1 FROM local_users WHERE username = \$1 \)`).
		WithArgs("alice").
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(true))

	exists, err := repo.ExistsByUsername(context.Background(), "alice")
	if err != nil || !exists {
		t.Fatalf("ExistsByUsername = %v, %v", exists, err)
	}
}

func TestLocalUserRepository_ExistsByEmailNormalizes(t *testing.T) {
	mock := newMockPool(t)
	repo := NewLocalUserRepository(mock)

	mock.ExpectQuery(`FROM local_users WHERE email = \$1`).
		WithArgs("bob@example.com").
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(false))

	exists, err := repo.ExistsByEmail(context.Background(), "Bob@Example.com")
	if err != nil || exists {
		t.Fatalf("ExistsByEmail = %v, %v", exists, err)
	}
}
