// Package userstest provides an in-memory users.Store for handler and service tests.
package userstest

import (
	"context"
	"strings"
	"sync"
	"time"

	"devcamper-backend/apperror"
	"devcamper-backend/users"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Store struct {
	mu    sync.Mutex
	users map[primitive.ObjectID]*users.User

	// FailSetResetToken makes SetResetToken fail once with this error.
	FailSetResetToken error
}

func NewStore() *Store {
	return &Store{users: map[primitive.ObjectID]*users.User{}}
}

func (s *Store) copyOf(u *users.User) *users.User {
	out := *u
	if u.ResetPasswordExpire != nil {
		t := *u.ResetPasswordExpire
		out.ResetPasswordExpire = &t
	}
	return &out
}

func (s *Store) Create(_ context.Context, user *users.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	user.Email = strings.ToLower(strings.TrimSpace(user.Email))
	for _, u := range s.users {
		if u.Email == user.Email {
			return apperror.NewDuplicateKey("Email already registered", nil)
		}
	}
	if user.ID.IsZero() {
		user.ID = primitive.NewObjectID()
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}
	s.users[user.ID] = s.copyOf(user)
	return nil
}

func (s *Store) FindByID(_ context.Context, id primitive.ObjectID) (*users.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok {
		return nil, apperror.NewNotFound("User not found")
	}
	return s.copyOf(u), nil
}

func (s *Store) FindByEmail(_ context.Context, email string) (*users.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	email = strings.ToLower(strings.TrimSpace(email))
	for _, u := range s.users {
		if u.Email == email {
			return s.copyOf(u), nil
		}
	}
	return nil, apperror.NewNotFound("User not found")
}

func (s *Store) FindByResetToken(_ context.Context, tokenHash string, now time.Time) (*users.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, u := range s.users {
		if u.ResetPasswordToken == tokenHash && u.ResetState(now) == users.ResetPending {
			return s.copyOf(u), nil
		}
	}
	return nil, apperror.NewNotFound("User not found")
}

func (s *Store) Update(_ context.Context, id primitive.ObjectID, params users.UpdateParams) (*users.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok {
		return nil, apperror.NewNotFound("User not found")
	}
	if params.Email != nil {
		email := strings.ToLower(strings.TrimSpace(*params.Email))
		for other, o := range s.users {
			if other != id && o.Email == email {
				return nil, apperror.NewDuplicateKey("Email already registered", nil)
			}
		}
		u.Email = email
	}
	if params.Name != nil {
		u.Name = strings.TrimSpace(*params.Name)
	}
	if params.Role != nil {
		u.Role = *params.Role
	}
	return s.copyOf(u), nil
}

func (s *Store) SetPassword(_ context.Context, id primitive.ObjectID, hash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok {
		return apperror.NewNotFound("User not found")
	}
	u.PasswordHash = hash
	u.ResetPasswordToken = ""
	u.ResetPasswordExpire = nil
	return nil
}

func (s *Store) SetResetToken(_ context.Context, id primitive.ObjectID, tokenHash string, expire time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.FailSetResetToken; err != nil {
		s.FailSetResetToken = nil
		return err
	}
	u, ok := s.users[id]
	if !ok {
		return apperror.NewNotFound("User not found")
	}
	u.ResetPasswordToken = tokenHash
	u.ResetPasswordExpire = &expire
	return nil
}

func (s *Store) ClearResetToken(_ context.Context, id primitive.ObjectID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok {
		return apperror.NewNotFound("User not found")
	}
	u.ResetPasswordToken = ""
	u.ResetPasswordExpire = nil
	return nil
}

func (s *Store) ClearExpiredResetTokens(_ context.Context, now time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int64
	for _, u := range s.users {
		if u.ResetState(now) == users.ResetExpired {
			u.ResetPasswordToken = ""
			u.ResetPasswordExpire = nil
			n++
		}
	}
	return n, nil
}

func (s *Store) Delete(_ context.Context, id primitive.ObjectID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[id]; !ok {
		return apperror.NewNotFound("User not found")
	}
	delete(s.users, id)
	return nil
}

// Get returns the stored record without going through the Store interface.
func (s *Store) Get(id primitive.ObjectID) *users.User {
	s.mu.Lock()
	defer s.mu.Unlock()

	if u, ok := s.users[id]; ok {
		return s.copyOf(u)
	}
	return nil
}

var _ users.Store = (*Store)(nil)
