package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"vsgifts-api/internal/config"
	"vsgifts-api/internal/events"
	"vsgifts-api/internal/hashing"
	"vsgifts-api/internal/models"
	"vsgifts-api/internal/notify"
	"vsgifts-api/internal/otp"
	"vsgifts-api/internal/repository"
	"vsgifts-api/internal/session"
	"vsgifts-api/internal/util"
)

// AccountService owns registration, OTP verification and login.
type AccountService struct {
	accounts  repository.AccountRepository
	hasher    *hashing.Hasher
	codes     otp.Generator
	notifier  notify.Notifier
	issuer    *session.Issuer
	publisher events.Publisher
	logger    *zap.Logger

	otpTTL      time.Duration
	maxAttempts int
	minPassword int
	now         func() time.Time

	// compared against when the email is unknown so both login failures cost one bcrypt round
	dummyHash string
}

type RegisterRequest struct {
	Name            string `json:"name"`
	Email           string `json:"email"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirmPassword"`
}

type RegisterResult struct {
	AccountID    string
	Email        string
	OTPDelivered bool
}

// AuthResult is returned on successful verification or login.
type AuthResult struct {
	Token   string
	Account models.Summary
}

func NewAccountService(
	accounts repository.AccountRepository,
	hasher *hashing.Hasher,
	codes otp.Generator,
	notifier notify.Notifier,
	issuer *session.Issuer,
	publisher events.Publisher,
	authCfg config.AuthConfig,
	logger *zap.Logger,
) *AccountService {
	if publisher == nil {
		publisher = events.Nop{}
	}
	dummy, err := hasher.Hash(uuid.NewString())
	if err != nil {
		logger.Warn("Failed to prepare dummy password hash", util.ErrorField(err))
	}
	return &AccountService{
		accounts:    accounts,
		hasher:      hasher,
		codes:       codes,
		notifier:    notifier,
		issuer:      issuer,
		publisher:   publisher,
		logger:      logger.Named("accounts"),
		otpTTL:      authCfg.OTPTTL,
		maxAttempts: authCfg.OTPMaxAttempts,
		minPassword: authCfg.PasswordMinLength,
		now:         time.Now,
		dummyHash:   dummy,
	}
}

// Register creates an unverified account holding a fresh OTP and tries to
// mail the code. Delivery failure does not roll back the account.
func (s *AccountService) Register(ctx context.Context, req *RegisterRequest) (*RegisterResult, error) {
	name := util.SanitizeInput(req.Name)
	email := util.NormalizeEmail(req.Email)

	if name == "" || email == "" || req.Password == "" || req.ConfirmPassword == "" {
		return nil, invalid("All fields are required")
	}
	if !util.IsValidEmail(email) {
		return nil, invalid("Please enter a valid email")
	}

	if _, err := s.accounts.FindByEmail(ctx, email); err == nil {
		return nil, ErrAccountExists
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("failed to look up account: %w", err)
	}

	if req.Password != req.ConfirmPassword {
		return nil, invalid("Passwords do not match")
	}
	if len(req.Password) < s.minPassword {
		return nil, invalid(fmt.Sprintf("Password must be at least %d characters", s.minPassword))
	}

	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return nil, err
	}
	challenge, err := s.newChallenge()
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	account := &models.Account{
		ID:           uuid.NewString(),
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		Status:       models.StatusUnverified,
		PendingOTP:   challenge,
		Addresses:    []models.Address{},
		Cart:         []models.CartItem{},
		Wishlist:     []string{},
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.accounts.Create(ctx, account); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrAccountExists
		}
		return nil, fmt.Errorf("failed to create account: %w", err)
	}

	s.publish(ctx, models.EventRegistered, account, nil)

	result := &RegisterResult{AccountID: account.ID, Email: account.Email, OTPDelivered: true}
	if err := s.notifier.Send(ctx, account.Email, challenge.Code); err != nil {
		s.logger.Warn("OTP delivery failed after registration",
			util.String("account_id", account.ID),
			util.Email(account.Email),
			util.ErrorField(err),
		)
		result.OTPDelivered = false
	}

	s.logger.Info("Account registered",
		util.String("account_id", account.ID),
		util.Bool("otp_delivered", result.OTPDelivered),
	)
	return result, nil
}

// VerifyOTP checks a submitted code against the account's live challenge.
// A wrong guess consumes one attempt; exhausting them suspends the account.
func (s *AccountService) VerifyOTP(ctx context.Context, email, code string) (*AuthResult, error) {
	email = util.NormalizeEmail(email)
	code = strings.TrimSpace(code)
	if email == "" || code == "" {
		return nil, invalid("Email and OTP are required")
	}

	now := s.now()
	account, err := s.accounts.FindByEmailWithUnexpiredOTP(ctx, email, now)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrOTPInvalidOrExpired
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up otp: %w", err)
	}
	if account.Status != models.StatusUnverified || !account.PendingOTP.Live(now) {
		return nil, ErrOTPInvalidOrExpired
	}

	if !otp.Equal(code, account.PendingOTP.Code) {
		return nil, s.recordMismatch(ctx, account)
	}

	account.IsEmailVerified = true
	account.Status = models.StatusActive
	account.PendingOTP = nil
	account.UpdatedAt = now.UTC()
	if err := s.accounts.Save(ctx, account); err != nil {
		return nil, fmt.Errorf("failed to activate account: %w", err)
	}

	token, err := s.issuer.Issue(account.ID)
	if err != nil {
		return nil, err
	}

	s.publish(ctx, models.EventVerified, account, nil)
	s.logger.Info("Account verified", util.String("account_id", account.ID))

	return &AuthResult{Token: token, Account: account.Summary()}, nil
}

func (s *AccountService) recordMismatch(ctx context.Context, account *models.Account) error {
	account.PendingOTP.Attempts++
	attempts := account.PendingOTP.Attempts
	account.UpdatedAt = s.now().UTC()

	if attempts >= s.maxAttempts {
		account.Status = models.StatusSuspended
		account.PendingOTP = nil
		if err := s.accounts.Save(ctx, account); err != nil {
			return fmt.Errorf("failed to suspend account: %w", err)
		}
		s.publish(ctx, models.EventSuspended, account, map[string]string{"attempts": fmt.Sprint(attempts)})
		s.logger.Warn("Account suspended after failed OTP attempts",
			util.String("account_id", account.ID),
			util.Int("attempts", attempts),
		)
		return ErrAccountLocked
	}

	if err := s.accounts.Save(ctx, account); err != nil {
		return fmt.Errorf("failed to record otp attempt: %w", err)
	}
	left := s.maxAttempts - attempts
	s.publish(ctx, models.EventOTPFailed, account, map[string]string{"attempts_left": fmt.Sprint(left)})
	return &MismatchError{AttemptsLeft: left}
}

// ResendOTP replaces any pending code with a fresh one and resets the
// attempt counter. The new code is committed before delivery is tried, so
// ErrNotificationFailed still leaves the earlier code invalid.
func (s *AccountService) ResendOTP(ctx context.Context, email string) error {
	email = util.NormalizeEmail(email)
	if email == "" {
		return invalid("Email is required")
	}

	account, err := s.accounts.FindByEmail(ctx, email)
	if errors.Is(err, repository.ErrNotFound) {
		return ErrAccountNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to look up account: %w", err)
	}
	if account.IsEmailVerified {
		return ErrAlreadyVerified
	}
	if account.Status == models.StatusSuspended {
		return ErrAccountInactive
	}

	challenge, err := s.newChallenge()
	if err != nil {
		return err
	}
	account.PendingOTP = challenge
	account.UpdatedAt = s.now().UTC()
	if err := s.accounts.Save(ctx, account); err != nil {
		return fmt.Errorf("failed to store otp: %w", err)
	}

	s.publish(ctx, models.EventOTPResent, account, nil)

	if err := s.notifier.Send(ctx, account.Email, challenge.Code); err != nil {
		s.logger.Error("OTP resend delivery failed",
			util.String("account_id", account.ID),
			util.ErrorField(err),
		)
		return fmt.Errorf("%w: %v", ErrNotificationFailed, err)
	}
	return nil
}

// Login authenticates by password. Unknown emails and wrong passwords are
// indistinguishable to the caller.
func (s *AccountService) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	email = util.NormalizeEmail(email)
	if email == "" || password == "" {
		return nil, invalid("Email and password are required")
	}

	account, err := s.accounts.FindByEmail(ctx, email)
	if errors.Is(err, repository.ErrNotFound) {
		_ = s.hasher.Compare(s.dummyHash, password)
		s.publisher.Publish(ctx, models.SecurityEvent{
			Type:      models.EventLoginFailed,
			Email:     email,
			IPAddress: events.ClientIP(ctx),
			Metadata:  map[string]string{"reason": "unknown_email"},
		})
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up account: %w", err)
	}

	if err := s.hasher.Compare(account.PasswordHash, password); err != nil {
		if !errors.Is(err, hashing.ErrMismatch) {
			return nil, err
		}
		s.publish(ctx, models.EventLoginFailed, account, map[string]string{"reason": "bad_password"})
		return nil, ErrInvalidCredentials
	}

	switch {
	case account.Status == models.StatusSuspended:
		return nil, ErrAccountInactive
	case !account.IsEmailVerified:
		return nil, &UnverifiedError{AccountID: account.ID, Email: account.Email}
	case account.Status != models.StatusActive:
		return nil, ErrAccountInactive
	}

	token, err := s.issuer.Issue(account.ID)
	if err != nil {
		return nil, err
	}
	s.publish(ctx, models.EventLoginSucceeded, account, nil)

	return &AuthResult{Token: token, Account: account.Summary()}, nil
}

// Authenticate resolves a bearer token to the active account it names.
func (s *AccountService) Authenticate(ctx context.Context, token string) (*models.Account, error) {
	accountID, err := s.issuer.Verify(token)
	if err != nil {
		return nil, ErrUnauthorized
	}
	account, err := s.accounts.FindByID(ctx, accountID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrUnauthorized
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load account: %w", err)
	}
	if account.Status != models.StatusActive {
		return nil, ErrUnauthorized
	}
	return account, nil
}

// FindAccount looks an account up by email.
func (s *AccountService) FindAccount(ctx context.Context, email string) (*models.Account, error) {
	account, err := s.accounts.FindByEmail(ctx, util.NormalizeEmail(email))
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrAccountNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up account: %w", err)
	}
	return account, nil
}

// EnsureAdmin creates a verified admin, or promotes and reactivates the
// existing account for email. It reports whether a new account was created.
func (s *AccountService) EnsureAdmin(ctx context.Context, name, email, password string) (*models.Account, bool, error) {
	email = util.NormalizeEmail(email)
	if !util.IsValidEmail(email) {
		return nil, false, invalid("Please enter a valid email")
	}

	now := s.now().UTC()
	account, err := s.accounts.FindByEmail(ctx, email)
	switch {
	case err == nil:
		account.IsAdmin = true
		account.IsEmailVerified = true
		account.Status = models.StatusActive
		account.PendingOTP = nil
		account.UpdatedAt = now
		if err := s.accounts.Save(ctx, account); err != nil {
			return nil, false, fmt.Errorf("failed to promote account: %w", err)
		}
		return account, false, nil
	case !errors.Is(err, repository.ErrNotFound):
		return nil, false, fmt.Errorf("failed to look up account: %w", err)
	}

	if len(password) < s.minPassword {
		return nil, false, invalid(fmt.Sprintf("Password must be at least %d characters", s.minPassword))
	}
	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, false, err
	}
	account = &models.Account{
		ID:              uuid.NewString(),
		Name:            util.SanitizeInput(name),
		Email:           email,
		PasswordHash:    hash,
		IsAdmin:         true,
		IsEmailVerified: true,
		Status:          models.StatusActive,
		Addresses:       []models.Address{},
		Cart:            []models.CartItem{},
		Wishlist:        []string{},
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := s.accounts.Create(ctx, account); err != nil {
		return nil, false, fmt.Errorf("failed to create admin: %w", err)
	}
	return account, true, nil
}

func (s *AccountService) newChallenge() (*models.OTPChallenge, error) {
	code, err := s.codes.Generate()
	if err != nil {
		return nil, fmt.Errorf("failed to generate otp: %w", err)
	}
	return &models.OTPChallenge{
		Code:      code,
		ExpiresAt: s.now().UTC().Add(s.otpTTL),
	}, nil
}

func (s *AccountService) publish(ctx context.Context, typ models.EventType, account *models.Account, meta map[string]string) {
	s.publisher.Publish(ctx, models.SecurityEvent{
		Type:      typ,
		AccountID: account.ID,
		Email:     account.Email,
		IPAddress: events.ClientIP(ctx),
		Metadata:  meta,
	})
}
