package postgres

import (
	"context"
	"database/sql"

	"taskhub/internal/domain"
	"taskhub/pkg/errors"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

type UserRepository struct {
	db *sqlx.DB
}

func NewUserRepository(db *sqlx.DB) *UserRepository {
	return &UserRepository{db: db}
}

const userColumns = `
	id, email, password_hash, first_name, last_name, role, email_verified,
	verification_secret, verification_sent_at, created_at, updated_at, last_login`

func (r *UserRepository) Create(ctx context.Context, user *domain.User) error {
	query := `
		INSERT INTO users (` + userColumns + `
		) VALUES (
			:id, :email, :password_hash, :first_name, :last_name, :role, :email_verified,
			:verification_secret, :verification_sent_at, :created_at, :updated_at, :last_login
		)
	`
	_, err := r.db.NamedExecContext(ctx, query, user)
	return errors.Wrap(err, "failed to create user")
}

func (r *UserRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	var user domain.User
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`

	err := r.db.GetContext(ctx, &user, query, id)
	if err == sql.ErrNoRows {
		return nil, errors.ErrUserNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to find user")
	}
	return &user, nil
}

func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	var user domain.User
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1`

	err := r.db.GetContext(ctx, &user, query, email)
	if err == sql.ErrNoRows {
		return nil, errors.ErrUserNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to find user")
	}
	return &user, nil
}

func (r *UserRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	var exists bool
	query := `SELECT EXISTS(SELECT 1 FROM users WHERE email = $1)`

	if err := r.db.GetContext(ctx, &exists, query, email); err != nil {
		return false, errors.Wrap(err, "failed to check user existence")
	}
	return exists, nil
}

func (r *UserRepository) Update(ctx context.Context, user *domain.User) error {
	query := `
		UPDATE users SET
			email = :email,
			password_hash = :password_hash,
			first_name = :first_name,
			last_name = :last_name,
			role = :role,
			email_verified = :email_verified,
			verification_secret = :verification_secret,
			verification_sent_at = :verification_sent_at,
			updated_at = :updated_at,
			last_login = :last_login
		WHERE id = :id
	`
	res, err := r.db.NamedExecContext(ctx, query, user)
	if err != nil {
		return errors.Wrap(err, "failed to update user")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return errors.ErrUserNotFound
	}
	return nil
}
