package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/user-service/internal/domain"
)

var (
	// ErrNotFound is returned when no user matches the lookup.
	ErrNotFound = errors.New("user not found")
	// ErrDuplicateEmail is returned when the email unique index rejects a write.
	ErrDuplicateEmail = errors.New("email already registered")
)

const uniqueViolation = "23505"

// UserRepository defines persistence access for user records.
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	List(ctx context.Context) ([]domain.User, error)
	MarkLoggedIn(ctx context.Context, id, lastVisit string) error
	Update(ctx context.Context, id string, patch domain.UserPatch) (*domain.User, error)
	Delete(ctx context.Context, id string) (*domain.User, error)
}

type userRepository struct {
	pool *pgxpool.Pool
}

// NewUserRepository returns a Postgres-backed implementation.
func NewUserRepository(pool *pgxpool.Pool) UserRepository {
	return &userRepository{pool: pool}
}

const userColumns = `id::text, email, password_hash, name, sign_up_date, last_visit, is_online, is_blocked`

func scanUser(row pgx.Row) (*domain.User, error) {
	var user domain.User
	if err := row.Scan(
		&user.ID,
		&user.Email,
		&user.PasswordHash,
		&user.Name,
		&user.SignUpDate,
		&user.LastVisit,
		&user.IsOnline,
		&user.IsBlocked,
	); err != nil {
		return nil, translate(err)
	}
	return &user, nil
}

func translate(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return ErrDuplicateEmail
	}
	return err
}

func (r *userRepository) Create(ctx context.Context, user *domain.User) error {
	const query = `
        INSERT INTO users (email, password_hash, name, sign_up_date, last_visit, is_online, is_blocked)
        VALUES ($1, $2, $3, $4, $5, $6, $7)
        RETURNING id::text`

	err := r.pool.QueryRow(ctx, query,
		user.Email,
		user.PasswordHash,
		user.Name,
		user.SignUpDate,
		user.LastVisit,
		user.IsOnline,
		user.IsBlocked,
	).Scan(&user.ID)
	return translate(err)
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email=$1`
	return scanUser(r.pool.QueryRow(ctx, query, email))
}

func (r *userRepository) List(ctx context.Context) ([]domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users ORDER BY created_at`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := make([]domain.User, 0)
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, *user)
	}
	return users, rows.Err()
}

func (r *userRepository) MarkLoggedIn(ctx context.Context, id, lastVisit string) error {
	const query = `
        UPDATE users SET last_visit=$1, is_online=TRUE, updated_at=NOW()
        WHERE id=$2`

	cmd, err := r.pool.Exec(ctx, query, lastVisit, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *userRepository) Update(ctx context.Context, id string, patch domain.UserPatch) (*domain.User, error) {
	if patch.Empty() {
		query := `SELECT ` + userColumns + ` FROM users WHERE id=$1`
		return scanUser(r.pool.QueryRow(ctx, query, id))
	}
	query, args := buildUpdate(id, patch)
	return scanUser(r.pool.QueryRow(ctx, query, args...))
}

func (r *userRepository) Delete(ctx context.Context, id string) (*domain.User, error) {
	query := `DELETE FROM users WHERE id=$1 RETURNING ` + userColumns
	return scanUser(r.pool.QueryRow(ctx, query, id))
}

// buildUpdate renders an UPDATE touching only the fields set in patch.
func buildUpdate(id string, patch domain.UserPatch) (string, []any) {
	sets := make([]string, 0, 6)
	args := make([]any, 0, 6)
	add := func(column string, value any) {
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s=$%d", column, len(args)))
	}

	if patch.Name != nil {
		add("name", *patch.Name)
	}
	if patch.Email != nil {
		add("email", *patch.Email)
	}
	if patch.PasswordHash != nil {
		add("password_hash", *patch.PasswordHash)
	}
	if patch.IsBlocked != nil {
		add("is_blocked", *patch.IsBlocked)
	}
	if patch.IsOnline != nil {
		add("is_online", *patch.IsOnline)
	}
	sets = append(sets, "updated_at=NOW()")
	args = append(args, id)

	query := fmt.Sprintf(`UPDATE users SET %s WHERE id=$%d RETURNING %s`,
		strings.Join(sets, ", "), len(args), userColumns)
	return query, args
}
