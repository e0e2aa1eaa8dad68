package postgres

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/diagnosis/accounts-api/internal/domain"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var userColumns = []string{"id", "name", "email", "phone", "password", "salt", "role", "is_verified", "birth_date", "created_at", "updated_at"}

func newUserRepoWithMock(t *testing.T) (UserRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewUserRepository(db), mock
}

func userRow(now time.Time) *sqlmock.Rows {
	return sqlmock.NewRows(userColumns).
		AddRow("u1", "A", "a@x.com", "1", "$argon2id$hash", "abcd", "prospect", false, nil, now, now)
}

func TestUserCreate_Success(t *testing.T) {
	repo, mock := newUserRepoWithMock(t)
	now := time.Now()

	mock.ExpectQuery(`(?s)^\s*INSERT\s+INTO\s+users\b.*RETURNING\s+id,`).
		WithArgs("u1", "A", "a@x.com", "1", "$argon2id$hash", "abcd", "prospect", false, nil).
		WillReturnRows(userRow(now))

	u, err := repo.Create(context.Background(), &domain.User{
		ID: "u1", Name: "A", Email: "a@x.com", Phone: "1",
		PasswordHash: "$argon2id$hash", Salt: "abcd", Role: domain.RoleProspect,
	})
	require.NoError(t, err)
	assert.Equal(t, "u1", u.ID)
	assert.Equal(t, domain.RoleProspect, u.Role)
	assert.Nil(t, u.BirthDate)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserCreate_UniqueViolation(t *testing.T) {
	repo, mock := newUserRepoWithMock(t)

	mock.ExpectQuery(`INSERT\s+INTO\s+users`).
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "email_unique"})

	_, err := repo.Create(context.Background(), &domain.User{ID: "u1", Role: domain.RoleProspect})

	var dup *DuplicateError
	require.ErrorAs(t, err, &dup)
	assert.Equal(t, "email_unique", dup.Constraint)
}

func TestUserCreate_OtherErrorPassesThrough(t *testing.T) {
	repo, mock := newUserRepoWithMock(t)
	boom := errors.New("db down")

	mock.ExpectQuery(`INSERT\s+INTO\s+users`).WillReturnError(boom)

	_, err := repo.Create(context.Background(), &domain.User{ID: "u1"})
	assert.ErrorIs(t, err, boom)

	var dup *DuplicateError
	assert.False(t, errors.As(err, &dup))
}

func TestUserFindByEmail(t *testing.T) {
	repo, mock := newUserRepoWithMock(t)
	now := time.Now()
	birth := time.Date(1990, 4, 2, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`SELECT .* FROM users WHERE email = \$1`).
		WithArgs("a@x.com").
		WillReturnRows(sqlmock.NewRows(userColumns).
			AddRow("u1", "A", "a@x.com", "1", "h", "s", "admin", true, birth, now, now))

	u, err := repo.FindByEmail(context.Background(), "a@x.com")
	require.NoError(t, err)
	require.NotNil(t, u)
	assert.True(t, u.IsAdmin())
	assert.True(t, u.IsVerified)
	require.NotNil(t, u.BirthDate)
	assert.Equal(t, birth, *u.BirthDate)
}

func TestUserFindByEmail_NotFound(t *testing.T) {
	repo, mock := newUserRepoWithMock(t)

	mock.ExpectQuery(`SELECT .* FROM users WHERE email = \$1`).
		WithArgs("none@x.com").
		WillReturnError(sql.ErrNoRows)

	u, err := repo.FindByEmail(context.Background(), "none@x.com")
	assert.NoError(t, err)
	assert.Nil(t, u)
}

func TestUserFindByID_NotFound(t *testing.T) {
	repo, mock := newUserRepoWithMock(t)

	mock.ExpectQuery(`SELECT .* FROM users WHERE id = \$1`).
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows(userColumns))

	u, err := repo.FindByID(context.Background(), "missing")
	assert.NoError(t, err)
	assert.Nil(t, u)
}

func TestUserUpdate_PartialFields(t *testing.T) {
	repo, mock := newUserRepoWithMock(t)
	now := time.Now()
	name := "B"

	mock.ExpectQuery(`(?s)UPDATE\s+users\s+SET.*COALESCE\(\$2, name\).*WHERE id = \$1`).
		WithArgs("u1", "B", nil, nil, nil).
		WillReturnRows(sqlmock.NewRows(userColumns).
			AddRow("u1", "B", "a@x.com", "1", "h", "s", "prospect", false, nil, now, now))

	u, err := repo.Update(context.Background(), "u1", UserUpdate{Name: &name})
	require.NoError(t, err)
	assert.Equal(t, "B", u.Name)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserUpdate_EmailTaken(t *testing.T) {
	repo, mock := newUserRepoWithMock(t)
	email := "taken@x.com"

	mock.ExpectQuery(`UPDATE\s+users`).
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "email_unique"})

	_, err := repo.Update(context.Background(), "u1", UserUpdate{Email: &email})
	var dup *DuplicateError
	assert.ErrorAs(t, err, &dup)
}

func TestUserUpdatePassword(t *testing.T) {
	repo, mock := newUserRepoWithMock(t)

	mock.ExpectQuery(`(?s)UPDATE\s+users\s+SET password = \$2, salt = \$3.*RETURNING id`).
		WithArgs("u1", "newhash", "newsalt").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("u1"))

	id, err := repo.UpdatePassword(context.Background(), "u1", "newhash", "newsalt")
	require.NoError(t, err)
	assert.Equal(t, "u1", id)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserUpdatePassword_NoRow(t *testing.T) {
	repo, mock := newUserRepoWithMock(t)

	mock.ExpectQuery(`UPDATE\s+users`).WillReturnRows(sqlmock.NewRows([]string{"id"}))

	id, err := repo.UpdatePassword(context.Background(), "gone", "h", "s")
	assert.NoError(t, err)
	assert.Empty(t, id)
}

func TestUserDelete(t *testing.T) {
	repo, mock := newUserRepoWithMock(t)

	mock.ExpectQuery(`DELETE FROM users WHERE id = \$1 RETURNING`).
		WithArgs("u1").
		WillReturnRows(userRow(time.Now()))

	u, err := repo.Delete(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, "a@x.com", u.Email)
}
