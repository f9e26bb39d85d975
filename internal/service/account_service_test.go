package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"vsgifts-api/internal/config"
	"vsgifts-api/internal/hashing"
	"vsgifts-api/internal/models"
	"vsgifts-api/internal/repository/memory"
	"vsgifts-api/internal/session"
)

type sequenceCodes struct {
	mu    sync.Mutex
	codes []string
	next  int
}

func (g *sequenceCodes) Generate() (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	c := g.codes[g.next%len(g.codes)]
	g.next++
	return c, nil
}

type sentCode struct {
	email, code string
}

type recordingNotifier struct {
	mu   sync.Mutex
	sent []sentCode
	err  error
}

func (n *recordingNotifier) Send(_ context.Context, email, code string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.err != nil {
		return n.err
	}
	n.sent = append(n.sent, sentCode{email, code})
	return nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []models.SecurityEvent
}

func (p *recordingPublisher) Publish(_ context.Context, ev models.SecurityEvent) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
}

func (p *recordingPublisher) types() []models.EventType {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]models.EventType, len(p.events))
	for i, ev := range p.events {
		out[i] = ev.Type
	}
	return out
}

type accountFixture struct {
	svc      *AccountService
	repo     *memory.AccountRepository
	notifier *recordingNotifier
	events   *recordingPublisher
	now      time.Time
}

func newAccountFixture(t *testing.T) *accountFixture {
	t.Helper()
	f := &accountFixture{
		repo:     memory.NewAccountRepository(),
		notifier: &recordingNotifier{},
		events:   &recordingPublisher{},
		now:      time.Date(2025, 3, 14, 12, 0, 0, 0, time.UTC),
	}
	f.svc = NewAccountService(
		f.repo,
		hashing.NewHasherWithCost(4),
		&sequenceCodes{codes: []string{"111111", "222222", "333333"}},
		f.notifier,
		session.NewIssuerWithSecret("test-secret", time.Hour),
		f.events,
		config.AuthConfig{OTPTTL: 10 * time.Minute, OTPMaxAttempts: 5, PasswordMinLength: 6},
		zap.NewNop(),
	)
	f.svc.now = func() time.Time { return f.now }
	return f
}

func (f *accountFixture) register(t *testing.T, email string) *RegisterResult {
	t.Helper()
	res, err := f.svc.Register(context.Background(), &RegisterRequest{
		Name:            "Asha",
		Email:           email,
		Password:        "secret123",
		ConfirmPassword: "secret123",
	})
	require.NoError(t, err)
	return res
}

func (f *accountFixture) stored(t *testing.T, email string) *models.Account {
	t.Helper()
	a, err := f.repo.FindByEmail(context.Background(), email)
	require.NoError(t, err)
	return a
}

func validationMessage(t *testing.T, err error) string {
	t.Helper()
	var ve *ValidationError
	require.True(t, errors.As(err, &ve), "expected validation error, got %v", err)
	assert.ErrorIs(t, err, ErrInvalidInput)
	return ve.Message
}

func TestRegisterCreatesUnverifiedAccountWithOTP(t *testing.T) {
	f := newAccountFixture(t)

	res := f.register(t, "  Asha@Example.COM ")
	assert.Equal(t, "asha@example.com", res.Email)
	assert.True(t, res.OTPDelivered)

	a := f.stored(t, "asha@example.com")
	assert.Equal(t, res.AccountID, a.ID)
	assert.Equal(t, models.StatusUnverified, a.Status)
	assert.False(t, a.IsEmailVerified)
	assert.NotEqual(t, "secret123", a.PasswordHash)
	require.NotNil(t, a.PendingOTP)
	assert.Equal(t, "111111", a.PendingOTP.Code)
	assert.Equal(t, f.now.Add(10*time.Minute), a.PendingOTP.ExpiresAt)
	assert.Zero(t, a.PendingOTP.Attempts)

	require.Len(t, f.notifier.sent, 1)
	assert.Equal(t, sentCode{"asha@example.com", "111111"}, f.notifier.sent[0])
	assert.Equal(t, []models.EventType{models.EventRegistered}, f.events.types())
}

func TestRegisterValidation(t *testing.T) {
	tests := []struct {
		name string
		req  RegisterRequest
		want string
	}{
		{"missing name", RegisterRequest{Email: "a@b.co", Password: "secret1", ConfirmPassword: "secret1"}, "All fields are required"},
		{"missing confirmation", RegisterRequest{Name: "A", Email: "a@b.co", Password: "secret1"}, "All fields are required"},
		{"bad email", RegisterRequest{Name: "A", Email: "not-an-email", Password: "secret1", ConfirmPassword: "secret1"}, "Please enter a valid email"},
		{"mismatch", RegisterRequest{Name: "A", Email: "a@b.co", Password: "secret1", ConfirmPassword: "secret2"}, "Passwords do not match"},
		{"short", RegisterRequest{Name: "A", Email: "a@b.co", Password: "abc", ConfirmPassword: "abc"}, "Password must be at least 6 characters"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newAccountFixture(t)
			_, err := f.svc.Register(context.Background(), &tt.req)
			assert.Equal(t, tt.want, validationMessage(t, err))
			assert.Empty(t, f.notifier.sent)
		})
	}
}

func TestRegisterRejectsExistingEmail(t *testing.T) {
	f := newAccountFixture(t)
	f.register(t, "asha@example.com")

	_, err := f.svc.Register(context.Background(), &RegisterRequest{
		Name: "Other", Email: "ASHA@example.com", Password: "secret123", ConfirmPassword: "secret123",
	})
	assert.ErrorIs(t, err, ErrAccountExists)
}

func TestRegisterKeepsAccountWhenDeliveryFails(t *testing.T) {
	f := newAccountFixture(t)
	f.notifier.err = errors.New("smtp down")

	res := f.register(t, "asha@example.com")
	assert.False(t, res.OTPDelivered)
	assert.Equal(t, models.StatusUnverified, f.stored(t, "asha@example.com").Status)
}

func TestVerifyOTPActivatesAccount(t *testing.T) {
	f := newAccountFixture(t)
	f.register(t, "asha@example.com")

	res, err := f.svc.VerifyOTP(context.Background(), "Asha@example.com", " 111111 ")
	require.NoError(t, err)
	assert.NotEmpty(t, res.Token)
	assert.Equal(t, "asha@example.com", res.Account.Email)
	assert.False(t, res.Account.IsAdmin)

	a := f.stored(t, "asha@example.com")
	assert.Equal(t, models.StatusActive, a.Status)
	assert.True(t, a.IsEmailVerified)
	assert.Nil(t, a.PendingOTP)

	_, err = f.svc.VerifyOTP(context.Background(), "asha@example.com", "111111")
	assert.ErrorIs(t, err, ErrOTPInvalidOrExpired)
}

func TestVerifyOTPCountsDownThenSuspends(t *testing.T) {
	f := newAccountFixture(t)
	f.register(t, "asha@example.com")
	ctx := context.Background()

	for want := 4; want >= 1; want-- {
		_, err := f.svc.VerifyOTP(ctx, "asha@example.com", "000000")
		var mismatch *MismatchError
		require.True(t, errors.As(err, &mismatch), "got %v", err)
		assert.Equal(t, want, mismatch.AttemptsLeft)
		assert.ErrorIs(t, err, ErrOTPMismatch)
	}

	_, err := f.svc.VerifyOTP(ctx, "asha@example.com", "000000")
	assert.ErrorIs(t, err, ErrAccountLocked)

	a := f.stored(t, "asha@example.com")
	assert.Equal(t, models.StatusSuspended, a.Status)
	assert.Nil(t, a.PendingOTP)

	_, err = f.svc.VerifyOTP(ctx, "asha@example.com", "111111")
	assert.ErrorIs(t, err, ErrOTPInvalidOrExpired)

	_, err = f.svc.Login(ctx, "asha@example.com", "secret123")
	assert.ErrorIs(t, err, ErrAccountInactive)

	assert.ErrorIs(t, f.svc.ResendOTP(ctx, "asha@example.com"), ErrAccountInactive)
	assert.Contains(t, f.events.types(), models.EventSuspended)
}

func TestVerifyOTPCorrectCodeAfterFourMisses(t *testing.T) {
	f := newAccountFixture(t)
	f.register(t, "asha@example.com")
	ctx := context.Background()

	for range 4 {
		_, err := f.svc.VerifyOTP(ctx, "asha@example.com", "000000")
		require.ErrorIs(t, err, ErrOTPMismatch)
	}
	assert.Equal(t, 4, f.stored(t, "asha@example.com").PendingOTP.Attempts)

	res, err := f.svc.VerifyOTP(ctx, "asha@example.com", "111111")
	require.NoError(t, err)
	assert.NotEmpty(t, res.Token)

	a := f.stored(t, "asha@example.com")
	assert.Equal(t, models.StatusActive, a.Status)
	assert.True(t, a.IsEmailVerified)
	assert.Nil(t, a.PendingOTP)
	assert.NotContains(t, f.events.types(), models.EventSuspended)
}

func TestVerifyOTPExpiryBoundary(t *testing.T) {
	t.Run("just before expiry", func(t *testing.T) {
		f := newAccountFixture(t)
		f.register(t, "asha@example.com")
		f.now = f.now.Add(10*time.Minute - time.Second)

		_, err := f.svc.VerifyOTP(context.Background(), "asha@example.com", "111111")
		assert.NoError(t, err)
	})

	t.Run("at expiry", func(t *testing.T) {
		f := newAccountFixture(t)
		f.register(t, "asha@example.com")
		f.now = f.now.Add(10 * time.Minute)

		_, err := f.svc.VerifyOTP(context.Background(), "asha@example.com", "111111")
		assert.ErrorIs(t, err, ErrOTPInvalidOrExpired)

		a := f.stored(t, "asha@example.com")
		assert.Zero(t, a.PendingOTP.Attempts)
	})
}

func TestVerifyOTPRequiresFields(t *testing.T) {
	f := newAccountFixture(t)
	_, err := f.svc.VerifyOTP(context.Background(), "", "123456")
	assert.Equal(t, "Email and OTP are required", validationMessage(t, err))

	_, err = f.svc.VerifyOTP(context.Background(), "nobody@example.com", "123456")
	assert.ErrorIs(t, err, ErrOTPInvalidOrExpired)
}

func TestResendOTPReplacesCodeAndResetsAttempts(t *testing.T) {
	f := newAccountFixture(t)
	f.register(t, "asha@example.com")
	ctx := context.Background()

	for range 2 {
		_, err := f.svc.VerifyOTP(ctx, "asha@example.com", "000000")
		require.ErrorIs(t, err, ErrOTPMismatch)
	}

	f.now = f.now.Add(9 * time.Minute)
	require.NoError(t, f.svc.ResendOTP(ctx, "asha@example.com"))

	a := f.stored(t, "asha@example.com")
	assert.Equal(t, "222222", a.PendingOTP.Code)
	assert.Zero(t, a.PendingOTP.Attempts)
	assert.Equal(t, f.now.Add(10*time.Minute), a.PendingOTP.ExpiresAt)

	_, err := f.svc.VerifyOTP(ctx, "asha@example.com", "111111")
	var mismatch *MismatchError
	require.True(t, errors.As(err, &mismatch))
	assert.Equal(t, 4, mismatch.AttemptsLeft)

	_, err = f.svc.VerifyOTP(ctx, "asha@example.com", "222222")
	assert.NoError(t, err)
}

func TestResendOTPTwiceLeavesOnlyLatestCode(t *testing.T) {
	f := newAccountFixture(t)
	f.register(t, "asha@example.com")
	ctx := context.Background()

	require.NoError(t, f.svc.ResendOTP(ctx, "asha@example.com"))
	require.NoError(t, f.svc.ResendOTP(ctx, "asha@example.com"))

	_, err := f.svc.VerifyOTP(ctx, "asha@example.com", "222222")
	require.ErrorIs(t, err, ErrOTPMismatch)
	_, err = f.svc.VerifyOTP(ctx, "asha@example.com", "333333")
	assert.NoError(t, err)
}

func TestResendOTPErrors(t *testing.T) {
	f := newAccountFixture(t)
	ctx := context.Background()

	assert.Equal(t, "Email is required", validationMessage(t, f.svc.ResendOTP(ctx, " ")))
	assert.ErrorIs(t, f.svc.ResendOTP(ctx, "ghost@example.com"), ErrAccountNotFound)

	f.register(t, "asha@example.com")
	_, err := f.svc.VerifyOTP(ctx, "asha@example.com", "111111")
	require.NoError(t, err)
	assert.ErrorIs(t, f.svc.ResendOTP(ctx, "asha@example.com"), ErrAlreadyVerified)
}

func TestResendOTPDeliveryFailureStillCommitsCode(t *testing.T) {
	f := newAccountFixture(t)
	f.register(t, "asha@example.com")
	ctx := context.Background()

	f.notifier.err = errors.New("smtp down")
	assert.ErrorIs(t, f.svc.ResendOTP(ctx, "asha@example.com"), ErrNotificationFailed)

	_, err := f.svc.VerifyOTP(ctx, "asha@example.com", "111111")
	require.ErrorIs(t, err, ErrOTPMismatch)
	_, err = f.svc.VerifyOTP(ctx, "asha@example.com", "222222")
	assert.NoError(t, err)
}

func TestLogin(t *testing.T) {
	f := newAccountFixture(t)
	ctx := context.Background()
	reg := f.register(t, "asha@example.com")

	_, err := f.svc.Login(ctx, "ghost@example.com", "secret123")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = f.svc.Login(ctx, "asha@example.com", "wrong-password")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = f.svc.Login(ctx, "asha@example.com", "secret123")
	var unverified *UnverifiedError
	require.True(t, errors.As(err, &unverified))
	assert.Equal(t, reg.AccountID, unverified.AccountID)
	assert.Equal(t, "asha@example.com", unverified.Email)

	_, err = f.svc.VerifyOTP(ctx, "asha@example.com", "111111")
	require.NoError(t, err)

	res, err := f.svc.Login(ctx, "ASHA@example.com", "secret123")
	require.NoError(t, err)
	assert.Equal(t, reg.AccountID, res.Account.ID)

	account, err := f.svc.Authenticate(ctx, res.Token)
	require.NoError(t, err)
	assert.Equal(t, reg.AccountID, account.ID)

	_, err = f.svc.Authenticate(ctx, "garbage")
	assert.ErrorIs(t, err, ErrUnauthorized)

	assert.Contains(t, f.events.types(), models.EventLoginFailed)
	assert.Contains(t, f.events.types(), models.EventLoginSucceeded)
}

func TestEnsureAdmin(t *testing.T) {
	f := newAccountFixture(t)
	ctx := context.Background()

	admin, created, err := f.svc.EnsureAdmin(ctx, "Owner", "owner@vsgifts.in", "supersecret")
	require.NoError(t, err)
	assert.True(t, created)
	assert.True(t, admin.IsAdmin)
	assert.Equal(t, models.StatusActive, admin.Status)

	_, err = f.svc.Login(ctx, "owner@vsgifts.in", "supersecret")
	require.NoError(t, err)

	_, err = f.svc.FindAccount(ctx, "asha@example.com")
	assert.ErrorIs(t, err, ErrAccountNotFound)

	f.register(t, "asha@example.com")
	found, err := f.svc.FindAccount(ctx, " Asha@Example.com ")
	require.NoError(t, err)
	assert.False(t, found.IsAdmin)

	promoted, created, err := f.svc.EnsureAdmin(ctx, "", "asha@example.com", "")
	require.NoError(t, err)
	assert.False(t, created)
	assert.True(t, promoted.IsAdmin)
	assert.True(t, promoted.IsEmailVerified)
	assert.Nil(t, f.stored(t, "asha@example.com").PendingOTP)
}
