package authentication

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"devcamper-backend/apperror"
	"devcamper-backend/config"
	"devcamper-backend/mailer"
	"devcamper-backend/users"
	"devcamper-backend/users/userstest"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type fakeMailer struct {
	mu   sync.Mutex
	sent []mailer.Email
	err  error
}

func (m *fakeMailer) Send(_ context.Context, email mailer.Email) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, email)
	return nil
}

type clock struct {
	t time.Time
}

func (c *clock) now() time.Time { return c.t }

func (c *clock) advance(d time.Duration) { c.t = c.t.Add(d) }

type fixture struct {
	svc    *Service
	store  *userstest.Store
	mail   *fakeMailer
	clock  *clock
	config *config.Config
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	cfg := &config.Config{
		AppEnv:          "development",
		JWTSecret:       "test-secret",
		JWTExpire:       time.Hour,
		JWTCookieExpire: 30,
		ResetTokenTTL:   10 * time.Minute,
		PublicURL:       "https://devcamper.test/",
	}
	f := &fixture{
		store:  userstest.NewStore(),
		mail:   &fakeMailer{},
		clock:  &clock{t: time.Now().Truncate(time.Second)},
		config: cfg,
	}
	nop := zerolog.Nop()
	f.svc = NewService(f.store, f.mail, cfg, &nop, WithClock(f.clock.now))
	return f
}

func (f *fixture) register(t *testing.T, email, password string) *users.User {
	t.Helper()
	user, token, err := f.svc.Register(context.Background(), SignupRequest{Name: "Test", Email: email, Password: password})
	require.NoError(t, err)
	require.NotEmpty(t, token)
	return user
}

func resetURL(token string) string {
	return "http://localhost/api/v1/auth/resetpassword/" + token
}

func tokenFromMail(t *testing.T, email mailer.Email) string {
	t.Helper()
	i := strings.LastIndex(email.Body, "/")
	require.Positive(t, i)
	return strings.TrimSpace(email.Body[i+1:])
}

func TestRegisterThenLogin(t *testing.T) {
	f := newFixture(t)
	user := f.register(t, "Ann@Example.com", "123456")
	assert.Equal(t, users.RoleUser, user.Role)
	assert.NotEqual(t, "123456", f.store.Get(user.ID).PasswordHash)

	got, token, err := f.svc.Login(context.Background(), "ann@example.com", "123456")
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.ID)

	id, err := f.svc.VerifyToken(token)
	require.NoError(t, err)
	assert.Equal(t, user.ID, id)
}

func TestLoginFailuresLookTheSame(t *testing.T) {
	f := newFixture(t)
	f.register(t, "ann@example.com", "123456")

	_, _, wrongPassword := f.svc.Login(context.Background(), "ann@example.com", "1234567")
	_, _, unknownEmail := f.svc.Login(context.Background(), "bob@example.com", "123456")

	require.Error(t, wrongPassword)
	require.Error(t, unknownEmail)
	assert.True(t, apperror.IsUnauthorized(wrongPassword))
	assert.Equal(t, wrongPassword.Error(), unknownEmail.Error())
}

func TestRegisterRejectsAdminRole(t *testing.T) {
	f := newFixture(t)
	_, _, err := f.svc.Register(context.Background(), SignupRequest{Name: "M", Email: "m@example.com", Password: "123456", Role: "admin"})
	assert.Equal(t, apperror.ValidationFailed, apperror.TypeOf(err))

	user, _, err := f.svc.Register(context.Background(), SignupRequest{Name: "P", Email: "p@example.com", Password: "123456", Role: "publisher"})
	require.NoError(t, err)
	assert.Equal(t, users.RolePublisher, user.Role)
}

func TestRegisterDuplicateEmail(t *testing.T) {
	f := newFixture(t)
	f.register(t, "ann@example.com", "123456")

	_, _, err := f.svc.Register(context.Background(), SignupRequest{Name: "A", Email: "ANN@example.com", Password: "123456"})
	assert.True(t, apperror.IsDuplicateKey(err))
}

func TestVerifyTokenRejects(t *testing.T) {
	f := newFixture(t)
	user := f.register(t, "ann@example.com", "123456")
	valid, err := f.svc.IssueToken(user.ID)
	require.NoError(t, err)

	otherAlg, err := jwt.NewWithClaims(jwt.SigningMethodHS512, jwt.RegisteredClaims{
		Subject:   user.ID.Hex(),
		ExpiresAt: jwt.NewNumericDate(f.clock.now().Add(time.Hour)),
	}).SignedString([]byte("test-secret"))
	require.NoError(t, err)

	noExpiry, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject: user.ID.Hex(),
	}).SignedString([]byte("test-secret"))
	require.NoError(t, err)

	otherSecret, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   user.ID.Hex(),
		ExpiresAt: jwt.NewNumericDate(f.clock.now().Add(time.Hour)),
	}).SignedString([]byte("someone-else"))
	require.NoError(t, err)

	cases := map[string]string{
		"empty":        "",
		"garbage":      "not.a.token",
		"tampered":     valid + "x",
		"other alg":    otherAlg,
		"no expiry":    noExpiry,
		"other secret": otherSecret,
	}
	for name, token := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := f.svc.VerifyToken(token)
			assert.True(t, apperror.IsUnauthorized(err), "got %v", err)
		})
	}
}

func TestVerifyTokenExpires(t *testing.T) {
	f := newFixture(t)
	token, err := f.svc.IssueToken(primitive.NewObjectID())
	require.NoError(t, err)

	f.clock.advance(time.Hour + time.Second)
	_, err = f.svc.VerifyToken(token)
	assert.True(t, apperror.IsUnauthorized(err))
}

func TestAuthenticateDeletedUser(t *testing.T) {
	f := newFixture(t)
	user := f.register(t, "ann@example.com", "123456")
	token, err := f.svc.IssueToken(user.ID)
	require.NoError(t, err)
	require.NoError(t, f.store.Delete(context.Background(), user.ID))

	_, err = f.svc.Authenticate(context.Background(), token)
	assert.True(t, apperror.IsUnauthorized(err))
}

func TestForgotAndResetPassword(t *testing.T) {
	f := newFixture(t)
	user := f.register(t, "ann@example.com", "123456")

	require.NoError(t, f.svc.ForgotPassword(context.Background(), "ann@example.com", resetURL))
	require.Len(t, f.mail.sent, 1)
	assert.Equal(t, "ann@example.com", f.mail.sent[0].To)

	plain := tokenFromMail(t, f.mail.sent[0])
	stored := f.store.Get(user.ID)
	assert.NotEqual(t, plain, stored.ResetPasswordToken)
	assert.Equal(t, HashResetToken(plain), stored.ResetPasswordToken)
	assert.Equal(t, users.ResetPending, stored.ResetState(f.clock.now()))

	_, session, err := f.svc.ResetPassword(context.Background(), plain, "newpass")
	require.NoError(t, err)
	assert.NotEmpty(t, session)
	assert.Equal(t, users.NoResetRequested, f.store.Get(user.ID).ResetState(f.clock.now()))

	_, _, err = f.svc.Login(context.Background(), "ann@example.com", "newpass")
	require.NoError(t, err)

	_, _, err = f.svc.ResetPassword(context.Background(), plain, "another")
	assert.Equal(t, apperror.BadRequest, apperror.TypeOf(err))
}

func TestResetPasswordExpiredToken(t *testing.T) {
	f := newFixture(t)
	user := f.register(t, "ann@example.com", "123456")
	require.NoError(t, f.svc.ForgotPassword(context.Background(), "ann@example.com", resetURL))
	plain := tokenFromMail(t, f.mail.sent[0])

	f.clock.advance(10*time.Minute + time.Second)
	assert.Equal(t, HashResetToken(plain), f.store.Get(user.ID).ResetPasswordToken)

	_, _, err := f.svc.ResetPassword(context.Background(), plain, "newpass")
	assert.Equal(t, apperror.BadRequest, apperror.TypeOf(err))

	_, _, err = f.svc.Login(context.Background(), "ann@example.com", "123456")
	assert.NoError(t, err)
}

// expiryBlindStore matches reset tokens by hash alone.
type expiryBlindStore struct {
	*userstest.Store
}

func (s expiryBlindStore) FindByResetToken(ctx context.Context, tokenHash string, _ time.Time) (*users.User, error) {
	return s.Store.FindByResetToken(ctx, tokenHash, time.Time{})
}

func TestResetPasswordChecksExpiryItself(t *testing.T) {
	f := newFixture(t)
	nop := zerolog.Nop()
	f.svc = NewService(expiryBlindStore{f.store}, f.mail, f.config, &nop, WithClock(f.clock.now))

	f.register(t, "ann@example.com", "123456")
	require.NoError(t, f.svc.ForgotPassword(context.Background(), "ann@example.com", resetURL))
	plain := tokenFromMail(t, f.mail.sent[0])

	f.clock.advance(10*time.Minute + time.Second)
	_, _, err := f.svc.ResetPassword(context.Background(), plain, "newpass")
	assert.Equal(t, apperror.BadRequest, apperror.TypeOf(err))

	_, _, err = f.svc.Login(context.Background(), "ann@example.com", "123456")
	assert.NoError(t, err)
}

func TestForgotPasswordMailFailureRollsBack(t *testing.T) {
	f := newFixture(t)
	user := f.register(t, "ann@example.com", "123456")
	f.mail.err = errors.New("smtp down")

	err := f.svc.ForgotPassword(context.Background(), "ann@example.com", resetURL)
	require.Error(t, err)
	assert.Equal(t, apperror.UpstreamFailure, apperror.TypeOf(err))
	assert.Equal(t, users.NoResetRequested, f.store.Get(user.ID).ResetState(f.clock.now()))
}

func TestForgotPasswordUnknownEmail(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.svc.ForgotPassword(context.Background(), "nobody@example.com", resetURL))
	assert.Empty(t, f.mail.sent)
}

func TestUpdatePassword(t *testing.T) {
	f := newFixture(t)
	user := f.register(t, "ann@example.com", "123456")

	_, err := f.svc.UpdatePassword(context.Background(), user.ID, UpdatePasswordRequest{CurrentPassword: "wrong", NewPassword: "abcdef"})
	assert.True(t, apperror.IsUnauthorized(err))

	token, err := f.svc.UpdatePassword(context.Background(), user.ID, UpdatePasswordRequest{CurrentPassword: "123456", NewPassword: "abcdef"})
	require.NoError(t, err)
	assert.NotEmpty(t, token)
	_, _, err = f.svc.Login(context.Background(), "ann@example.com", "abcdef")
	assert.NoError(t, err)
}

func TestSweepExpiredResets(t *testing.T) {
	f := newFixture(t)
	user := f.register(t, "ann@example.com", "123456")
	require.NoError(t, f.svc.ForgotPassword(context.Background(), "ann@example.com", resetURL))

	n, err := f.svc.SweepExpiredResets(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)

	f.clock.advance(11 * time.Minute)
	n, err = f.svc.SweepExpiredResets(context.Background())
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
	assert.Equal(t, users.NoResetRequested, f.store.Get(user.ID).ResetState(f.clock.now()))
}
