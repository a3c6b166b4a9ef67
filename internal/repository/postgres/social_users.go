package postgres

import (
	"context"
	"fmt"
	"strings"

	squirrel "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"

	"github.com/StoryTeller-v2/back-end/internal/core/domain"
)

const socialUsersTable = "social_users"

var socialUserColumns = []string{
	"id",
	"account_id",
	"provider",
	"nickname",
	"email",
	"role",
	"created_at",
	"updated_at",
}

// SocialUserRepository implements port.SocialUserRepository using PostgreSQL.
type SocialUserRepository struct {
	exec    pgExecutor
	builder squirrel.StatementBuilderType
}

// NewSocialUserRepository wires a PostgreSQL-backed social user repository.
func NewSocialUserRepository(exec pgExecutor) *SocialUserRepository {
	return &SocialUserRepository{
		exec:    exec,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// WithTx returns a repository instance operating within the supplied transaction.
func (r *SocialUserRepository) WithTx(tx pgx.Tx) *SocialUserRepository {
	if tx == nil {
		return r
	}
	return &SocialUserRepository{exec: tx, builder: r.builder}
}

// Upsert inserts the account, or refreshes nickname and email of an existing
// one. id, provider, role and created_at of an existing row are preserved.
func (r *SocialUserRepository) Upsert(ctx context.Context, user domain.SocialUser) (*domain.SocialUser, error) {
	stmt, args, err := r.builder.Insert(socialUsersTable).
		Columns(socialUserColumns...).
		Values(
			user.ID,
			user.AccountID,
			user.Provider,
			user.Nickname,
			strings.ToLower(user.Email),
			user.Role,
			user.CreatedAt,
			user.UpdatedAt,
		).
		Suffix("ON CONFLICT (account_id) DO UPDATE SET nickname = EXCLUDED.nickname, email = EXCLUDED.email, updated_at = EXCLUDED.updated_at").
		Suffix("RETURNING " + strings.Join(socialUserColumns, ", ")).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build upsert social user sql: %w", err)
	}

	stored, err := scanSocialUser(r.exec.QueryRow(ctx, stmt, args...))
	if err != nil {
		return nil, fmt.Errorf("upsert social user: %w", translateError(err))
	}
	return stored, nil
}

// GetByAccountID retrieves an account by its provider-qualified id.
func (r *SocialUserRepository) GetByAccountID(ctx context.Context, accountID string) (*domain.SocialUser, error) {
	stmt, args, err := r.builder.
		Select(socialUserColumns...).
		From(socialUsersTable).
		Where(squirrel.Eq{"account_id": accountID}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select social user sql: %w", err)
	}

	user, err := scanSocialUser(r.exec.QueryRow(ctx, stmt, args...))
	if err != nil {
		return nil, fmt.Errorf("select social user: %w", translateError(err))
	}
	return user, nil
}

// ExistsByAccountID reports whether the account id is known.
func (r *SocialUserRepository) ExistsByAccountID(ctx context.Context, accountID string) (bool, error) {
	return existsQuery(ctx, r.exec, r.builder, socialUsersTable, squirrel.Eq{"account_id": accountID})
}

// ExistsByEmail reports whether a social account already uses email.
func (r *SocialUserRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	return existsQuery(ctx, r.exec, r.builder, socialUsersTable, squirrel.Eq{"email": strings.ToLower(email)})
}

func scanSocialUser(row pgx.Row) (*domain.SocialUser, error) {
	var user domain.SocialUser
	if err := row.Scan(
		&user.ID,
		&user.AccountID,
		&user.Provider,
		&user.Nickname,
		&user.Email,
		&user.Role,
		&user.CreatedAt,
		&user.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &user, nil
}
