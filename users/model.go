package users

import (
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Role is the closed set of account roles.
type Role string

const (
	RoleUser      Role = "user"
	RolePublisher Role = "publisher"
	RoleAdmin     Role = "admin"
)

func (r Role) Valid() bool {
	switch r {
	case RoleUser, RolePublisher, RoleAdmin:
		return true
	default:
		return false
	}
}

func ParseRole(s string) (Role, error) {
	r := Role(s)
	if !r.Valid() {
		return "", fmt.Errorf("unknown role %q", s)
	}
	return r, nil
}

// ResetState is where an account sits in the password-reset flow.
type ResetState int

const (
	NoResetRequested ResetState = iota
	ResetPending
	ResetExpired
)

type User struct {
	ID                  primitive.ObjectID `bson:"_id,omitempty" json:"_id"`
	Name                string             `bson:"name" json:"name"`
	Email               string             `bson:"email" json:"email"`
	Role                Role               `bson:"role" json:"role"`
	PasswordHash        string             `bson:"password" json:"-"`
	ResetPasswordToken  string             `bson:"resetPasswordToken,omitempty" json:"-"`
	ResetPasswordExpire *time.Time         `bson:"resetPasswordExpire,omitempty" json:"-"`
	CreatedAt           time.Time          `bson:"createdAt" json:"createdAt"`
}

func (u *User) ResetState(now time.Time) ResetState {
	if u.ResetPasswordToken == "" || u.ResetPasswordExpire == nil {
		return NoResetRequested
	}
	if !now.Before(*u.ResetPasswordExpire) {
		return ResetExpired
	}
	return ResetPending
}

// UpdateParams holds the optional fields of a user update; nil fields are left alone.
type UpdateParams struct {
	Name  *string
	Email *string
	Role  *Role
}

type CreateUserRequest struct {
	Name     string `json:"name" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6,max=72"`
	Role     string `json:"role" binding:"omitempty,oneof=user publisher admin"`
}

type UpdateUserRequest struct {
	Name  *string `json:"name" binding:"omitempty,min=1"`
	Email *string `json:"email" binding:"omitempty,email"`
	Role  *string `json:"role" binding:"omitempty,oneof=user publisher admin"`
}

type UserResponse struct {
	Success bool  `json:"success"`
	Data    *User `json:"data"`
}
