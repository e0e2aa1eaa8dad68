package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/diagnosis/accounts-api/internal/apperr"
	"github.com/diagnosis/accounts-api/internal/domain"
	"github.com/diagnosis/accounts-api/internal/repo/postgres"
	"github.com/diagnosis/accounts-api/pkg/auth"
	"github.com/diagnosis/accounts-api/pkg/logger"
	"github.com/google/uuid"
)

// PasswordHasher is satisfied by *auth.Hasher.
type PasswordHasher interface {
	NewSalt() ([]byte, error)
	Hash(ctx context.Context, plaintext string, salt []byte) (string, error)
	Verify(ctx context.Context, plaintext string, salt []byte, encoded string) (bool, error)
}

type TokenIssuer interface {
	Issue(userID string) (string, error)
}

type Validator interface {
	Struct(s any) error
}

type UserService interface {
	Register(ctx context.Context, req *domain.RegisterRequest) (*domain.User, error)
	Login(ctx context.Context, req *domain.LoginRequest) (*domain.LoginResponse, error)
	GetUser(ctx context.Context, id string) (*domain.User, error)
	GetUserFor(ctx context.Context, actor *domain.User, id string) (*domain.User, error)
	UpdateUser(ctx context.Context, id string, req *domain.UpdateUserRequest) (*domain.User, error)
	DeleteUser(ctx context.Context, id string) (*domain.User, error)
	ChangePassword(ctx context.Context, user *domain.User, req *domain.ChangePasswordRequest) (string, error)
}

type userService struct {
	users    postgres.UserRepository
	hasher   PasswordHasher
	tokens   TokenIssuer
	validate Validator
}

func NewUserService(users postgres.UserRepository, hasher PasswordHasher, tokens TokenIssuer, validate Validator) UserService {
	return &userService{
		users:    users,
		hasher:   hasher,
		tokens:   tokens,
		validate: validate,
	}
}

func (s *userService) Register(ctx context.Context, req *domain.RegisterRequest) (*domain.User, error) {
	req.Normalize()
	if err := s.validate.Struct(req); err != nil {
		return nil, err
	}

	existing, err := s.users.FindByEmail(ctx, req.Email)
	if err != nil {
		return nil, apperr.Internal(fmt.Errorf("find user by email: %w", err), "Failed to add user")
	}
	if existing != nil {
		return nil, apperr.Conflict("User already exists")
	}

	hash, salt, err := s.hashPassword(ctx, req.Password)
	if err != nil {
		return nil, err
	}

	user := &domain.User{
		ID:           uuid.NewString(),
		Name:         req.Name,
		Email:        req.Email,
		Phone:        req.Phone,
		PasswordHash: hash,
		Salt:         salt,
		Role:         domain.DefaultRole,
		IsVerified:   false,
	}
	if req.BirthDate != nil && *req.BirthDate != "" {
		d, err := time.Parse(domain.DateLayout, *req.BirthDate)
		if err != nil {
			return nil, apperr.Validation("Invalid request body", map[string]string{"birthDate": "must be a date in YYYY-MM-DD format"})
		}
		user.BirthDate = &d
	}

	created, err := s.users.Create(ctx, user)
	if err != nil {
		return nil, mapWriteError(err, "Failed to add user")
	}

	logger.InfoContext(ctx, "user registered", "user_id", created.ID)
	return created, nil
}

func (s *userService) Login(ctx context.Context, req *domain.LoginRequest) (*domain.LoginResponse, error) {
	req.Normalize()
	if err := s.validate.Struct(req); err != nil {
		return nil, err
	}

	user, err := s.users.FindByEmail(ctx, req.Email)
	if err != nil {
		return nil, apperr.Internal(fmt.Errorf("find user by email: %w", err), "Failed to log in")
	}
	if user == nil {
		return nil, apperr.NotFound("User not found")
	}

	ok, err := s.checkPassword(ctx, user, req.Password)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperr.InvalidPassword("Invalid password")
	}

	token, err := s.tokens.Issue(user.ID)
	if err != nil {
		return nil, apperr.Internal(fmt.Errorf("issue token: %w", err), "Failed to log in")
	}

	return &domain.LoginResponse{
		User:  user.ToUserInfo(),
		Token: token,
	}, nil
}

func (s *userService) GetUser(ctx context.Context, id string) (*domain.User, error) {
	user, err := s.users.FindByID(ctx, id)
	if err != nil {
		return nil, apperr.Internal(fmt.Errorf("find user by id: %w", err), "Failed to get user")
	}
	if user == nil {
		return nil, apperr.NotFound("User not found")
	}
	return user, nil
}

// GetUserFor returns user id when actor is an admin or the user itself.
func (s *userService) GetUserFor(ctx context.Context, actor *domain.User, id string) (*domain.User, error) {
	if actor == nil {
		return nil, apperr.Unauthorized("Access denied")
	}
	if !actor.IsAdmin() && actor.ID != id {
		return nil, apperr.Unauthorized("Access denied")
	}
	if _, err := uuid.Parse(id); err != nil {
		return nil, apperr.NotFound("User not found")
	}
	return s.GetUser(ctx, id)
}

func (s *userService) UpdateUser(ctx context.Context, id string, req *domain.UpdateUserRequest) (*domain.User, error) {
	req.Normalize()
	if err := s.validate.Struct(req); err != nil {
		return nil, err
	}
	if req.Empty() {
		return s.GetUser(ctx, id)
	}

	upd := postgres.UserUpdate{Name: req.Name, Email: req.Email}
	if req.Password != nil {
		hash, salt, err := s.hashPassword(ctx, *req.Password)
		if err != nil {
			return nil, err
		}
		upd.PasswordHash = &hash
		upd.Salt = &salt
	}

	user, err := s.users.Update(ctx, id, upd)
	if err != nil {
		return nil, mapWriteError(err, "Failed to update user")
	}
	if user == nil {
		return nil, apperr.NotFound("User not found")
	}
	return user, nil
}

func (s *userService) DeleteUser(ctx context.Context, id string) (*domain.User, error) {
	user, err := s.users.Delete(ctx, id)
	if err != nil {
		return nil, apperr.Internal(fmt.Errorf("delete user: %w", err), "Failed to delete user")
	}
	if user == nil {
		return nil, apperr.NotFound("User not found")
	}
	logger.InfoContext(ctx, "user deleted", "user_id", user.ID)
	return user, nil
}

// ChangePassword checks the current password and stores a fresh salt and
// hash for the new one. It returns the id of the updated user.
func (s *userService) ChangePassword(ctx context.Context, user *domain.User, req *domain.ChangePasswordRequest) (string, error) {
	if err := s.validate.Struct(req); err != nil {
		return "", err
	}

	ok, err := s.checkPassword(ctx, user, req.CurrentPassword)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", apperr.InvalidPassword("Current password is incorrect")
	}

	hash, salt, err := s.hashPassword(ctx, req.NewPassword)
	if err != nil {
		return "", err
	}

	id, err := s.users.UpdatePassword(ctx, user.ID, hash, salt)
	if err != nil {
		return "", apperr.Internal(fmt.Errorf("update password: %w", err), "Failed to update user password")
	}
	if id == "" {
		return "", apperr.NotFound("User not found")
	}
	return id, nil
}

func (s *userService) hashPassword(ctx context.Context, plaintext string) (hash, salt string, err error) {
	raw, err := s.hasher.NewSalt()
	if err != nil {
		return "", "", apperr.Internal(fmt.Errorf("generate salt: %w", err), "Failed to hash password")
	}
	hash, err = s.hasher.Hash(ctx, plaintext, raw)
	if err != nil {
		return "", "", apperr.Internal(fmt.Errorf("hash password: %w", err), "Failed to hash password")
	}
	return hash, auth.EncodeSalt(raw), nil
}

func (s *userService) checkPassword(ctx context.Context, user *domain.User, plaintext string) (bool, error) {
	salt, err := auth.DecodeSalt(user.Salt)
	if err != nil {
		return false, apperr.Internal(fmt.Errorf("decode salt for user %s: %w", user.ID, err), "Failed to verify password")
	}
	ok, err := s.hasher.Verify(ctx, plaintext, salt, user.PasswordHash)
	if err != nil {
		return false, apperr.Internal(fmt.Errorf("verify password for user %s: %w", user.ID, err), "Failed to verify password")
	}
	return ok, nil
}

// mapWriteError turns a unique violation into a conflict naming the field.
func mapWriteError(err error, message string) error {
	var dup *postgres.DuplicateError
	if errors.As(err, &dup) {
		switch {
		case strings.Contains(dup.Constraint, "email"):
			return apperr.Conflict("User already exists")
		case strings.Contains(dup.Constraint, "phone"):
			return apperr.Conflict("Phone number already in use")
		case strings.Contains(dup.Constraint, "object_key"):
			return apperr.Conflict("File already exists")
		default:
			return apperr.Conflict("Resource already exists")
		}
	}
	return apperr.Internal(err, message)
}
