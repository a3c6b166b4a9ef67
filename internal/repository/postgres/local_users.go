package postgres

import (
	"context"
	"fmt"
	"strings"

	squirrel "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"

	"github.com/StoryTeller-v2/back-end/internal/core/domain"
)

const localUsersTable = "local_users"

var localUserColumns = []string{
	"id",
	"username",
	"email",
	"password_hash",
	"role",
	"created_at",
	"updated_at",
}

// LocalUserRepository implements port.LocalUserRepository using PostgreSQL.
type LocalUserRepository struct {
	exec    pgExecutor
	builder squirrel.StatementBuilderType
}

// NewLocalUserRepository wires a PostgreSQL-backed local user repository.
func NewLocalUserRepository(exec pgExecutor) *LocalUserRepository {
	return &LocalUserRepository{
		exec:    exec,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// WithTx returns a repository instance operating within the supplied transaction.
func (r *LocalUserRepository) WithTx(tx pgx.Tx) *LocalUserRepository {
	if tx == nil {
		return r
	}
	return &LocalUserRepository{exec: tx, builder: r.builder}
}

// Create inserts a new local account. Duplicate usernames or emails yield repository.ErrConflict.
func (r *LocalUserRepository) Create(ctx context.Context, user domain.LocalUser) error {
	stmt, args, err := r.builder.Insert(localUsersTable).
		Columns(localUserColumns...).
		Values(
			user.ID,
			user.Username,
			strings.ToLower(user.Email),
			user.PasswordHash,
			user.Role,
			user.CreatedAt,
			user.UpdatedAt,
		).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert local user sql: %w", err)
	}

	if _, err := r.exec.Exec(ctx, stmt, args...); err != nil {
		return fmt.Errorf("insert local user: %w", translateError(err))
	}
	return nil
}

// GetByID retrieves a local account by primary key.
func (r *LocalUserRepository) GetByID(ctx context.Context, id string) (*domain.LocalUser, error) {
	return r.getOne(ctx, squirrel.Eq{"id": id})
}

// GetByUsername retrieves a local account by its login name.
func (r *LocalUserRepository) GetByUsername(ctx context.Context, username string) (*domain.LocalUser, error) {
	return r.getOne(ctx, squirrel.Eq{"username": username})
}

// ExistsByUsername reports whether the username is taken.
func (r *LocalUserRepository) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	return r.exists(ctx, squirrel.Eq{"username": username})
}

// ExistsByEmail reports whether a local account already uses email.
func (r *LocalUserRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	return r.exists(ctx, squirrel.Eq{"email": strings.ToLower(email)})
}

func (r *LocalUserRepository) getOne(ctx context.Context, where squirrel.Eq) (*domain.LocalUser, error) {
	stmt, args, err := r.builder.
		Select(localUserColumns...).
		From(localUsersTable).
		Where(where).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select local user sql: %w", err)
	}

	var user domain.LocalUser
	if err := r.exec.QueryRow(ctx, stmt, args...).Scan(
		&user.ID,
		&user.Username,
		&user.Email,
		&user.PasswordHash,
		&user.Role,
		&user.CreatedAt,
		&user.UpdatedAt,
	); err != nil {
		return nil, fmt.Errorf("select local user: %w", translateError(err))
	}
	return &user, nil
}

func (r *LocalUserRepository) exists(ctx context.Context, where squirrel.Eq) (bool, error) {
	return existsQuery(ctx, r.exec, r.builder, localUsersTable, where)
}

func existsQuery(ctx context.Context, exec pgExecutor, builder squirrel.StatementBuilderType, table string, where squirrel.Eq) (bool, error) {
	stmt, args, err := builder.
		Select("1").
		Prefix("SELECT EXISTS (").
		From(table).
		Where(where).
		Suffix(")").
		ToSql()
	if err != nil {
		return false, fmt.Errorf("build exists sql for %s: %w", table, err)
	}

	var found bool
	if err := exec.QueryRow(ctx, stmt, args...).Scan(&found); err != nil {
		return false, fmt.Errorf("exists query on %s: %w", table, err)
	}
	return found, nil
}
