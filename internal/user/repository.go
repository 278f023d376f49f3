package user

import (
	"context"
	"errors"
	"fmt"

	"account-service/internal/auth"
	"account-service/internal/auth/credentials"

	"github.com/google/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// poolIface is the subset of pgxpool.Pool used here; pgxmock satisfies it.
type poolIface interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

const userColumns = `id, account_id, branch_id, name, email, password_hash, role, status, created_at, updated_at, deleted_at`

// PostgresRepository stores users in PostgreSQL. Emails are unique
// case-insensitively, soft-deleted rows included.
type PostgresRepository struct {
	pool poolIface
}

func NewPostgresRepository(pool poolIface) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

// FindCredentialByEmail only considers active, not soft-deleted users.
func (r *PostgresRepository) FindCredentialByEmail(ctx context.Context, email string) (*credentials.Credential, error) {
	var (
		c    credentials.Credential
		role string
	)
	err := r.pool.QueryRow(ctx, `
		SELECT id, email, password_hash, role
		FROM users
		WHERE LOWER(email) = LOWER($1)
		  AND deleted_at IS NULL
		  AND status = 'ACTIVE'
	`, email).Scan(&c.UserID, &c.Email, &c.PasswordHash, &role)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, repoError("find credential by email", err)
	}
	c.Role = auth.Role(role)
	return &c, nil
}

func (r *PostgresRepository) EmailExists(ctx context.Context, email string) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM users WHERE LOWER(email) = LOWER($1)
		)
	`, email).Scan(&exists)
	if err != nil {
		return false, repoError("check email exists", err)
	}
	return exists, nil
}

func (r *PostgresRepository) InsertUser(ctx context.Context, u credentials.NewUser) (uuid.UUID, error) {
	var id uuid.UUID
	err := r.pool.QueryRow(ctx, `
		INSERT INTO users (account_id, branch_id, name, email, password_hash, role, status)
		VALUES ($1, $2, $3, $4, $5, $6, 'ACTIVE')
		RETURNING id
	`, u.AccountID, u.BranchID, u.Name, u.Email, u.PasswordHash, string(u.Role)).Scan(&id)
	if err != nil {
		return uuid.Nil, mapWriteError("insert user", err)
	}
	return id, nil
}

func (r *PostgresRepository) UpdatePasswordHash(ctx context.Context, userID uuid.UUID, hash string) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE users SET password_hash = $2, updated_at = NOW() WHERE id = $1
	`, userID, hash)
	if err != nil {
		return repoError("update password hash", err)
	}
	if tag.RowsAffected() == 0 {
		return auth.E(auth.ErrNotFound, "update password hash", nil)
	}
	return nil
}

// GetByID also returns deactivated users so they can be reactivated.
func (r *PostgresRepository) GetByID(ctx context.Context, id uuid.UUID) (*User, error) {
	u, err := scanUser(r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, auth.E(auth.ErrNotFound, "get user", nil)
	}
	if err != nil {
		return nil, repoError("get user", err)
	}
	return u, nil
}

func (r *PostgresRepository) List(ctx context.Context) ([]*User, error) {
	return r.list(ctx, "list users", `
		SELECT `+userColumns+` FROM users
		WHERE deleted_at IS NULL
		ORDER BY created_at`)
}

func (r *PostgresRepository) ListByAccount(ctx context.Context, accountID uuid.UUID) ([]*User, error) {
	return r.list(ctx, "list users by account", `
		SELECT `+userColumns+` FROM users
		WHERE account_id = $1 AND deleted_at IS NULL
		ORDER BY created_at`, accountID)
}

func (r *PostgresRepository) ListByBranch(ctx context.Context, branchID uuid.UUID) ([]*User, error) {
	return r.list(ctx, "list users by branch", `
		SELECT `+userColumns+` FROM users
		WHERE branch_id = $1 AND deleted_at IS NULL
		ORDER BY created_at`, branchID)
}

func (r *PostgresRepository) ListByRole(ctx context.Context, role auth.Role) ([]*User, error) {
	return r.list(ctx, "list users by role", `
		SELECT `+userColumns+` FROM users
		WHERE role = $1 AND deleted_at IS NULL
		ORDER BY created_at`, string(role))
}

// Update writes every mutable column of u and refreshes u.UpdatedAt.
// Update writes profile fields only. Status changes go through SetStatus.
func (r *PostgresRepository) Update(ctx context.Context, u *User) error {
	err := r.pool.QueryRow(ctx, `
		UPDATE users
		SET branch_id = $2, name = $3, email = $4, password_hash = $5, role = $6, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at
	`, u.ID, u.BranchID, u.Name, u.Email, u.PasswordHash, string(u.Role)).Scan(&u.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return auth.E(auth.ErrNotFound, "update user", nil)
	}
	if err != nil {
		return mapWriteError("update user", err)
	}
	return nil
}

// SetStatus deactivates (soft delete) or reactivates a user.
func (r *PostgresRepository) SetStatus(ctx context.Context, id uuid.UUID, status Status) error {
	query := `UPDATE users SET status = 'ACTIVE', deleted_at = NULL, updated_at = NOW() WHERE id = $1`
	if status == StatusInactive {
		query = `UPDATE users SET status = 'INACTIVE', deleted_at = NOW(), updated_at = NOW() WHERE id = $1`
	}

	tag, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return repoError("set user status", err)
	}
	if tag.RowsAffected() == 0 {
		return auth.E(auth.ErrNotFound, "set user status", nil)
	}
	return nil
}

func (r *PostgresRepository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return repoError("delete user", err)
	}
	if tag.RowsAffected() == 0 {
		return auth.E(auth.ErrNotFound, "delete user", nil)
	}
	return nil
}

func (r *PostgresRepository) list(ctx context.Context, op, query string, args ...any) ([]*User, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, repoError(op, err)
	}
	defer rows.Close()

	users := make([]*User, 0)
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, repoError(op, err)
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, repoError(op, err)
	}
	return users, nil
}

func scanUser(row pgx.Row) (*User, error) {
	var (
		u            User
		role, status string
	)
	if err := row.Scan(
		&u.ID, &u.AccountID, &u.BranchID, &u.Name, &u.Email, &u.PasswordHash,
		&role, &status, &u.CreatedAt, &u.UpdatedAt, &u.DeletedAt,
	); err != nil {
		return nil, err
	}
	u.Role = auth.Role(role)
	u.Status = Status(status)
	return &u, nil
}

func mapWriteError(op string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
		return auth.E(auth.ErrDuplicateEmail, op, nil)
	}
	return repoError(op, err)
}

// repoError classifies a database failure. Lost connections and timeouts
// mean the database is unavailable; anything else is a repository fault.
func repoError(op string, err error) error {
	var connErr *pgconn.ConnectError
	if errors.As(err, &connErr) || pgconn.Timeout(err) {
		return auth.E(auth.ErrServiceUnavailable, op, fmt.Errorf("%w: %w", auth.ErrRepository, err))
	}
	return auth.E(auth.ErrRepository, op, err)
}
