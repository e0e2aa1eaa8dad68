package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/diagnosis/accounts-api/internal/domain"
)

type UserRepository interface {
	Create(ctx context.Context, u *domain.User) (*domain.User, error)
	FindByEmail(ctx context.Context, email string) (*domain.User, error)
	FindByID(ctx context.Context, id string) (*domain.User, error)
	Update(ctx context.Context, id string, upd UserUpdate) (*domain.User, error)
	UpdatePassword(ctx context.Context, id, passwordHash, salt string) (string, error)
	Delete(ctx context.Context, id string) (*domain.User, error)
}

// UserUpdate holds the columns a profile update may change. PasswordHash and
// Salt are written together or not at all.
type UserUpdate struct {
	Name         *string
	Email        *string
	PasswordHash *string
	Salt         *string
}

type userRepository struct {
	db DBTX
}

func NewUserRepository(db DBTX) UserRepository {
	return &userRepository{db: db}
}

const userCols = `id, name, email, phone, password, salt, role, is_verified, birth_date, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*domain.User, error) {
	var (
		u     domain.User
		role  string
		birth sql.NullTime
	)
	err := row.Scan(
		&u.ID, &u.Name, &u.Email, &u.Phone, &u.PasswordHash, &u.Salt, &role, &u.IsVerified, &birth, &u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	u.Role = domain.Role(role)
	if birth.Valid {
		t := birth.Time
		u.BirthDate = &t
	}
	return &u, nil
}

func (r *userRepository) Create(ctx context.Context, u *domain.User) (*domain.User, error) {
	const q = `
		INSERT INTO users (id, name, email, phone, password, salt, role, is_verified, birth_date)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING ` + userCols

	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var birth sql.NullTime
	if u.BirthDate != nil {
		birth = sql.NullTime{Time: *u.BirthDate, Valid: true}
	}

	created, err := scanUser(r.db.QueryRowContext(ctx, q,
		u.ID, u.Name, u.Email, u.Phone, u.PasswordHash, u.Salt, string(u.Role), u.IsVerified, birth,
	))
	if err != nil {
		return nil, asDuplicate(err)
	}
	return created, nil
}

func (r *userRepository) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	const q = `SELECT ` + userCols + ` FROM users WHERE email = $1 LIMIT 1`
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	u, err := scanUser(r.db.QueryRowContext(ctx, q, email))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return u, err
}

func (r *userRepository) FindByID(ctx context.Context, id string) (*domain.User, error) {
	const q = `SELECT ` + userCols + ` FROM users WHERE id = $1 LIMIT 1`
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	u, err := scanUser(r.db.QueryRowContext(ctx, q, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return u, err
}

func (r *userRepository) Update(ctx context.Context, id string, upd UserUpdate) (*domain.User, error) {
	const q = `
		UPDATE users
		SET
			name = COALESCE($2, name),
			email = COALESCE($3, email),
			password = COALESCE($4, password),
			salt = COALESCE($5, salt),
			updated_at = now()
		WHERE id = $1
		RETURNING ` + userCols

	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	u, err := scanUser(r.db.QueryRowContext(ctx, q, id, upd.Name, upd.Email, upd.PasswordHash, upd.Salt))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, asDuplicate(err)
	}
	return u, nil
}

// UpdatePassword replaces hash and salt in one statement and returns the id
// of the updated row, or "" when no such user exists.
func (r *userRepository) UpdatePassword(ctx context.Context, id, passwordHash, salt string) (string, error) {
	const q = `
		UPDATE users
		SET password = $2, salt = $3, updated_at = now()
		WHERE id = $1
		RETURNING id`

	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var updated string
	err := r.db.QueryRowContext(ctx, q, id, passwordHash, salt).Scan(&updated)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	return updated, err
}

func (r *userRepository) Delete(ctx context.Context, id string) (*domain.User, error) {
	const q = `DELETE FROM users WHERE id = $1 RETURNING ` + userCols
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	u, err := scanUser(r.db.QueryRowContext(ctx, q, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return u, err
}
