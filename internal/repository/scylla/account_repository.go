package scylla

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/gocql/gocql"

	"vsgifts-api/internal/models"
	"vsgifts-api/internal/repository"
	"vsgifts-api/internal/util"
)

type AccountRepository struct {
	client *ScyllaClient
	writes accountWriter
}

func NewAccountRepository(client *ScyllaClient) *AccountRepository {
	return &AccountRepository{client: client, writes: cqlAccountWriter{client: client}}
}

// accountWriter covers the statements Create chains together.
type accountWriter interface {
	claimEmail(ctx context.Context, email, accountID string) (bool, error)
	releaseEmail(ctx context.Context, email, accountID string) error
	insertRow(ctx context.Context, row *accountRow) error
}

type cqlAccountWriter struct {
	client *ScyllaClient
}

func (w cqlAccountWriter) claimEmail(ctx context.Context, email, accountID string) (bool, error) {
	existing := map[string]any{}
	return w.client.Query(ctx, w.client.Statements.ClaimEmail, email, accountID).MapScanCAS(existing)
}

func (w cqlAccountWriter) releaseEmail(ctx context.Context, email, accountID string) error {
	existing := map[string]any{}
	_, err := w.client.Query(ctx, w.client.Statements.ReleaseEmail, email, accountID).MapScanCAS(existing)
	return err
}

func (w cqlAccountWriter) insertRow(ctx context.Context, row *accountRow) error {
	var otpExpiresAt any
	if !row.OTPExpiresAt.IsZero() {
		otpExpiresAt = row.OTPExpiresAt
	}
	return w.client.Query(ctx, w.client.Statements.InsertAccount,
		row.ID, row.Name, row.Email, row.PasswordHash, row.IsAdmin,
		row.IsEmailVerified, row.Status, row.OTPCode, otpExpiresAt,
		row.OTPAttempts, row.Addresses, row.Cart, row.Wishlist,
		row.CreatedAt, row.UpdatedAt).Exec()
}

// accountRow is the column layout of the accounts table. Nested
// collections are stored as JSON text; the pending OTP is flattened into
// nullable columns where an empty otp_code means no pending code.
type accountRow struct {
	ID              string
	Name            string
	Email           string
	PasswordHash    string
	IsAdmin         bool
	IsEmailVerified bool
	Status          string
	OTPCode         string
	OTPExpiresAt    time.Time
	OTPAttempts     int
	Addresses       string
	Cart            string
	Wishlist        []string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

func toAccountRow(a *models.Account) (*accountRow, error) {
	addresses, err := json.Marshal(a.Addresses)
	if err != nil {
		return nil, fmt.Errorf("failed to encode addresses: %w", err)
	}
	cart, err := json.Marshal(a.Cart)
	if err != nil {
		return nil, fmt.Errorf("failed to encode cart: %w", err)
	}

	row := &accountRow{
		ID:              a.ID,
		Name:            a.Name,
		Email:           a.Email,
		PasswordHash:    a.PasswordHash,
		IsAdmin:         a.IsAdmin,
		IsEmailVerified: a.IsEmailVerified,
		Status:          string(a.Status),
		Addresses:       string(addresses),
		Cart:            string(cart),
		Wishlist:        a.Wishlist,
		CreatedAt:       a.CreatedAt,
		UpdatedAt:       a.UpdatedAt,
	}
	if a.PendingOTP != nil {
		row.OTPCode = a.PendingOTP.Code
		row.OTPExpiresAt = a.PendingOTP.ExpiresAt
		row.OTPAttempts = a.PendingOTP.Attempts
	}
	return row, nil
}

func (row *accountRow) toAccount() (*models.Account, error) {
	a := &models.Account{
		ID:              row.ID,
		Name:            row.Name,
		Email:           row.Email,
		PasswordHash:    row.PasswordHash,
		IsAdmin:         row.IsAdmin,
		IsEmailVerified: row.IsEmailVerified,
		Status:          models.AccountStatus(row.Status),
		Wishlist:        row.Wishlist,
		CreatedAt:       row.CreatedAt,
		UpdatedAt:       row.UpdatedAt,
	}
	if row.OTPCode != "" {
		a.PendingOTP = &models.OTPChallenge{
			Code:      row.OTPCode,
			ExpiresAt: row.OTPExpiresAt,
			Attempts:  row.OTPAttempts,
		}
	}
	if row.Addresses != "" {
		if err := json.Unmarshal([]byte(row.Addresses), &a.Addresses); err != nil {
			return nil, fmt.Errorf("failed to decode addresses: %w", err)
		}
	}
	if row.Cart != "" {
		if err := json.Unmarshal([]byte(row.Cart), &a.Cart); err != nil {
			return nil, fmt.Errorf("failed to decode cart: %w", err)
		}
	}
	return a, nil
}

func (r *AccountRepository) FindByID(ctx context.Context, id string) (*models.Account, error) {
	var row accountRow
	query := r.client.Query(ctx, r.client.Statements.GetAccountByID, id)

	err := r.client.ScanWithRetry(query,
		&row.ID, &row.Name, &row.Email, &row.PasswordHash, &row.IsAdmin,
		&row.IsEmailVerified, &row.Status, &row.OTPCode, &row.OTPExpiresAt,
		&row.OTPAttempts, &row.Addresses, &row.Cart, &row.Wishlist,
		&row.CreatedAt, &row.UpdatedAt)
	if err != nil {
		if errors.Is(err, gocql.ErrNotFound) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	return row.toAccount()
}

func (r *AccountRepository) FindByEmail(ctx context.Context, email string) (*models.Account, error) {
	var accountID string
	query := r.client.Query(ctx, r.client.Statements.GetAccountIDByMail, email)
	if err := r.client.ScanWithRetry(query, &accountID); err != nil {
		if errors.Is(err, gocql.ErrNotFound) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("failed to resolve account email: %w", err)
	}
	return r.FindByID(ctx, accountID)
}

func (r *AccountRepository) FindByEmailWithUnexpiredOTP(ctx context.Context, email string, now time.Time) (*models.Account, error) {
	account, err := r.FindByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if !account.PendingOTP.Live(now) {
		return nil, repository.ErrNotFound
	}
	return account, nil
}

// Create claims the email with a lightweight transaction before writing the
// account row, so two registrations for one address cannot both succeed.
// A failed row write gives the claim back.
func (r *AccountRepository) Create(ctx context.Context, account *models.Account) error {
	applied, err := r.writes.claimEmail(ctx, account.Email, account.ID)
	if err != nil {
		return fmt.Errorf("failed to claim account email: %w", err)
	}
	if !applied {
		return repository.ErrDuplicate
	}

	if err := r.Save(ctx, account); err != nil {
		util.Warn("Account row write failed after email claim",
			util.String("account_id", account.ID),
			util.ErrorField(err))
		if relErr := r.writes.releaseEmail(context.WithoutCancel(ctx), account.Email, account.ID); relErr != nil {
			util.Error("Failed to release account email claim",
				util.String("account_id", account.ID),
				util.ErrorField(relErr))
		}
		return err
	}
	return nil
}

func (r *AccountRepository) Save(ctx context.Context, account *models.Account) error {
	row, err := toAccountRow(account)
	if err != nil {
		return err
	}

	if err := r.writes.insertRow(ctx, row); err != nil {
		return fmt.Errorf("failed to save account: %w", err)
	}
	return nil
}

func (r *AccountRepository) HealthCheck(ctx context.Context) error {
	return r.client.HealthCheck(ctx)
}
