package authentication

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"devcamper-backend/apperror"
	"devcamper-backend/config"
	"devcamper-backend/mailer"
	"devcamper-backend/users"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const resetTokenBytes = 20

var errInvalidCredentials = apperror.NewUnauthorized("Invalid Credentials")

// Service issues and verifies session tokens and runs the password flows.
type Service struct {
	store    users.Store
	mailer   mailer.Sender
	secret   []byte
	tokenTTL time.Duration
	resetTTL time.Duration
	now      func() time.Time
	logger   *zerolog.Logger
}

type Option func(*Service)

// WithClock replaces time.Now, mostly for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func NewService(store users.Store, sender mailer.Sender, cfg *config.Config, logger *zerolog.Logger, opts ...Option) *Service {
	s := &Service{
		store:    store,
		mailer:   sender,
		secret:   []byte(cfg.JWTSecret),
		tokenTTL: cfg.JWTExpire,
		resetTTL: cfg.ResetTokenTTL,
		now:      time.Now,
		logger:   logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register creates the account and signs a session token for it.
func (s *Service) Register(ctx context.Context, req SignupRequest) (*users.User, string, error) {
	role := users.RoleUser
	if req.Role != "" {
		r, err := users.ParseRole(req.Role)
		if err != nil || r == users.RoleAdmin {
			return nil, "", apperror.NewValidation([]string{"role must be one of: user, publisher"}, err)
		}
		role = r
	}

	hash, err := users.HashPassword(req.Password)
	if err != nil {
		return nil, "", apperror.NewInternal("Could not hash password", err)
	}

	user := &users.User{
		Name:         req.Name,
		Email:        req.Email,
		Role:         role,
		PasswordHash: hash,
		CreatedAt:    s.now().UTC(),
	}
	if err := s.store.Create(ctx, user); err != nil {
		return nil, "", err
	}

	token, err := s.IssueToken(user.ID)
	if err != nil {
		return nil, "", err
	}
	return user, token, nil
}

// Login reports an unknown email and a wrong password the same way.
func (s *Service) Login(ctx context.Context, email, password string) (*users.User, string, error) {
	user, err := s.store.FindByEmail(ctx, email)
	if err != nil {
		if apperror.IsNotFound(err) {
			return nil, "", errInvalidCredentials
		}
		return nil, "", err
	}
	if !users.CheckPassword(user.PasswordHash, password) {
		return nil, "", errInvalidCredentials
	}

	token, err := s.IssueToken(user.ID)
	if err != nil {
		return nil, "", err
	}
	return user, token, nil
}

// IssueToken signs an HS256 token whose subject is the user id.
func (s *Service) IssueToken(userID primitive.ObjectID) (string, error) {
	now := s.now()
	claims := jwt.RegisteredClaims{
		Subject:   userID.Hex(),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(s.tokenTTL)),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", apperror.NewInternal("Could not generate token", err)
	}
	return signed, nil
}

// VerifyToken checks signature, algorithm and expiry and returns the user id.
func (s *Service) VerifyToken(tokenString string) (primitive.ObjectID, error) {
	if tokenString == "" {
		return primitive.NilObjectID, apperror.NewUnauthorized("Not authorized to access this route")
	}

	var claims jwt.RegisteredClaims
	_, err := jwt.ParseWithClaims(tokenString, &claims, func(*jwt.Token) (interface{}, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return primitive.NilObjectID, apperror.New(apperror.Unauthorized, "Not authorized to access this route", err)
	}

	id, err := primitive.ObjectIDFromHex(claims.Subject)
	if err != nil {
		return primitive.NilObjectID, apperror.New(apperror.Unauthorized, "Not authorized to access this route", err)
	}
	return id, nil
}

// Authenticate resolves a token to its user. A deleted account fails like a bad token.
func (s *Service) Authenticate(ctx context.Context, tokenString string) (*users.User, error) {
	id, err := s.VerifyToken(tokenString)
	if err != nil {
		return nil, err
	}
	user, err := s.store.FindByID(ctx, id)
	if err != nil {
		if apperror.IsNotFound(err) {
			return nil, apperror.New(apperror.Unauthorized, "Not authorized to access this route", err)
		}
		return nil, err
	}
	return user, nil
}

func (s *Service) UpdateDetails(ctx context.Context, userID primitive.ObjectID, req UpdateDetailsRequest) (*users.User, error) {
	return s.store.Update(ctx, userID, users.UpdateParams{Name: req.Name, Email: req.Email})
}

// UpdatePassword checks the current password before replacing it and returns a fresh token.
func (s *Service) UpdatePassword(ctx context.Context, userID primitive.ObjectID, req UpdatePasswordRequest) (string, error) {
	user, err := s.store.FindByID(ctx, userID)
	if err != nil {
		return "", err
	}
	if !users.CheckPassword(user.PasswordHash, req.CurrentPassword) {
		return "", apperror.NewUnauthorized("Password is incorrect")
	}

	hash, err := users.HashPassword(req.NewPassword)
	if err != nil {
		return "", apperror.NewInternal("Could not hash password", err)
	}
	if err := s.store.SetPassword(ctx, user.ID, hash); err != nil {
		return "", err
	}
	return s.IssueToken(user.ID)
}

// ForgotPassword stores the hash of a fresh reset token and mails the
// plaintext to the account owner. resetURL renders the link for a token.
// Unknown emails succeed silently.
func (s *Service) ForgotPassword(ctx context.Context, email string, resetURL func(token string) string) error {
	user, err := s.store.FindByEmail(ctx, email)
	if err != nil {
		if apperror.IsNotFound(err) {
			s.logger.Info().Str("email", email).Msg("password reset requested for unknown email")
			return nil
		}
		return err
	}

	token, hash, err := newResetToken()
	if err != nil {
		return apperror.NewInternal("Could not generate reset token", err)
	}
	if err := s.store.SetResetToken(ctx, user.ID, hash, s.now().Add(s.resetTTL)); err != nil {
		return err
	}

	msg := mailer.Email{
		To:      user.Email,
		Subject: "Password reset token",
		Body: fmt.Sprintf("You are receiving this email because you (or someone else) has requested the reset of a password. "+
			"Please make a PUT request to: \n\n %s", resetURL(token)),
	}
	if err := s.mailer.Send(ctx, msg); err != nil {
		if clearErr := s.store.ClearResetToken(ctx, user.ID); clearErr != nil {
			s.logger.Error().Err(clearErr).Str("user_id", user.ID.Hex()).Msg("failed to roll back reset token")
		}
		return apperror.NewUpstream("Email could not be sent", err)
	}

	s.logger.Info().Str("user_id", user.ID.Hex()).Msg("password reset email sent")
	return nil
}

// ResetPassword consumes a pending, unexpired reset token.
func (s *Service) ResetPassword(ctx context.Context, token, password string) (*users.User, string, error) {
	now := s.now()
	user, err := s.store.FindByResetToken(ctx, HashResetToken(token), now)
	if err != nil {
		if apperror.IsNotFound(err) {
			return nil, "", apperror.NewBadRequest("Invalid token")
		}
		return nil, "", err
	}
	if user.ResetState(now) != users.ResetPending {
		return nil, "", apperror.NewBadRequest("Invalid token")
	}

	hash, err := users.HashPassword(password)
	if err != nil {
		return nil, "", apperror.NewInternal("Could not hash password", err)
	}
	if err := s.store.SetPassword(ctx, user.ID, hash); err != nil {
		return nil, "", err
	}

	session, err := s.IssueToken(user.ID)
	if err != nil {
		return nil, "", err
	}
	return user, session, nil
}

// SweepExpiredResets clears reset fields whose expiry has passed.
func (s *Service) SweepExpiredResets(ctx context.Context) (int64, error) {
	return s.store.ClearExpiredResetTokens(ctx, s.now())
}

// HashResetToken is the one-way digest persisted in place of a reset token.
func HashResetToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

func newResetToken() (token, hash string, err error) {
	b := make([]byte, resetTokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", "", err
	}
	token = hex.EncodeToString(b)
	return token, HashResetToken(token), nil
}
