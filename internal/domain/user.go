package domain

import (
	"time"

	"github.com/diagnosis/accounts-api/internal/utils"
)

type Role string

const (
	RoleAdmin    Role = "admin"
	RoleAgent    Role = "agent"
	RoleProspect Role = "prospect"
)

// DefaultRole is assigned on self-registration.
const DefaultRole = RoleProspect

func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleAgent, RoleProspect:
		return true
	}
	return false
}

// User is the stored credential record. It must never be serialized
// directly; use ToUserInfo.
type User struct {
	ID           string
	Name         string
	Email        string
	Phone        string
	PasswordHash string
	Salt         string
	Role         Role
	IsVerified   bool
	BirthDate    *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// UserInfo is the public view of a user.
type UserInfo struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Email      string    `json:"email"`
	Phone      string    `json:"phone"`
	Role       Role      `json:"role"`
	IsVerified bool      `json:"isVerified"`
	BirthDate  *string   `json:"birthDate,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// ToUserInfo converts User to UserInfo (without password hash or salt)
func (u *User) ToUserInfo() *UserInfo {
	info := &UserInfo{
		ID:         u.ID,
		Name:       u.Name,
		Email:      u.Email,
		Phone:      u.Phone,
		Role:       u.Role,
		IsVerified: u.IsVerified,
		CreatedAt:  u.CreatedAt,
		UpdatedAt:  u.UpdatedAt,
	}
	if u.BirthDate != nil {
		d := u.BirthDate.Format(DateLayout)
		info.BirthDate = &d
	}
	return info
}

const DateLayout = "2006-01-02"

type RegisterRequest struct {
	Name      string  `json:"name" validate:"required"`
	Email     string  `json:"email" validate:"required,email"`
	Phone     string  `json:"phone" validate:"required"`
	Password  string  `json:"password" validate:"required,min=8"`
	BirthDate *string `json:"birthDate,omitempty" validate:"omitempty,datetime=2006-01-02"`
}

func (r *RegisterRequest) Normalize() {
	r.Name = utils.NormalizeName(r.Name)
	r.Email = utils.NormalizeEmail(r.Email)
	r.Phone = utils.NormalizePhone(r.Phone)
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
}

func (r *LoginRequest) Normalize() {
	r.Email = utils.NormalizeEmail(r.Email)
}

type LoginResponse struct {
	User  *UserInfo `json:"user"`
	Token string    `json:"token"`
}

// UpdateUserRequest is a partial profile update; nil fields are left alone.
type UpdateUserRequest struct {
	Name     *string `json:"name,omitempty" validate:"omitempty,min=1"`
	Email    *string `json:"email,omitempty" validate:"omitempty,email"`
	Password *string `json:"password,omitempty" validate:"omitempty,min=8"`
}

func (r *UpdateUserRequest) Normalize() {
	if r.Name != nil {
		n := utils.NormalizeName(*r.Name)
		r.Name = &n
	}
	if r.Email != nil {
		e := utils.NormalizeEmail(*r.Email)
		r.Email = &e
	}
}

func (r *UpdateUserRequest) Empty() bool {
	return r.Name == nil && r.Email == nil && r.Password == nil
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"currentPassword" validate:"required"`
	NewPassword     string `json:"newPassword" validate:"required,min=8"`
}
