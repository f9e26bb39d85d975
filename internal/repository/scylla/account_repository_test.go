package scylla

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vsgifts-api/internal/models"
	"vsgifts-api/internal/repository"
)

func TestAccountRowFlattensPendingOTP(t *testing.T) {
	expires := time.Date(2025, 3, 1, 10, 10, 0, 0, time.UTC)
	account := &models.Account{
		ID:         "a1",
		Email:      "ann@x.com",
		Status:     models.StatusUnverified,
		PendingOTP: &models.OTPChallenge{Code: "482913", ExpiresAt: expires, Attempts: 2},
		Addresses:  []models.Address{{ID: "ad1", Street: "1 MG Road", IsDefault: true}},
	}

	row, err := toAccountRow(account)
	require.NoError(t, err)
	assert.Equal(t, "482913", row.OTPCode)
	assert.Equal(t, 2, row.OTPAttempts)

	back, err := row.toAccount()
	require.NoError(t, err)
	require.NotNil(t, back.PendingOTP)
	assert.Equal(t, expires, back.PendingOTP.ExpiresAt)
	assert.Equal(t, "1 MG Road", back.Addresses[0].Street)
}

func TestAccountRowWithoutOTPHasNoChallenge(t *testing.T) {
	row, err := toAccountRow(&models.Account{ID: "a1", Status: models.StatusActive})
	require.NoError(t, err)
	assert.Empty(t, row.OTPCode)
	assert.True(t, row.OTPExpiresAt.IsZero())

	back, err := row.toAccount()
	require.NoError(t, err)
	assert.Nil(t, back.PendingOTP)
}

// memoryWriter keeps email claims in a map so Create can run without a cluster.
type memoryWriter struct {
	claims   map[string]string
	rows     map[string]*accountRow
	rowErr   error
	released int
}

func newMemoryWriter() *memoryWriter {
	return &memoryWriter{claims: map[string]string{}, rows: map[string]*accountRow{}}
}

func (w *memoryWriter) claimEmail(_ context.Context, email, accountID string) (bool, error) {
	if _, ok := w.claims[email]; ok {
		return false, nil
	}
	w.claims[email] = accountID
	return true, nil
}

func (w *memoryWriter) releaseEmail(_ context.Context, email, accountID string) error {
	if w.claims[email] == accountID {
		delete(w.claims, email)
		w.released++
	}
	return nil
}

func (w *memoryWriter) insertRow(_ context.Context, row *accountRow) error {
	if w.rowErr != nil {
		return w.rowErr
	}
	w.rows[row.ID] = row
	return nil
}

func TestCreateReleasesEmailWhenRowWriteFails(t *testing.T) {
	ctx := context.Background()
	writes := newMemoryWriter()
	repo := &AccountRepository{writes: writes}

	writes.rowErr = errors.New("write timeout")
	err := repo.Create(ctx, &models.Account{ID: "a1", Email: "ann@x.com"})
	require.ErrorIs(t, err, writes.rowErr)
	assert.Equal(t, 1, writes.released)
	assert.NotContains(t, writes.claims, "ann@x.com")

	writes.rowErr = nil
	require.NoError(t, repo.Create(ctx, &models.Account{ID: "a2", Email: "ann@x.com"}))
	assert.Equal(t, "a2", writes.claims["ann@x.com"])
	assert.Contains(t, writes.rows, "a2")
}

func TestCreateRejectsClaimedEmail(t *testing.T) {
	ctx := context.Background()
	writes := newMemoryWriter()
	repo := &AccountRepository{writes: writes}

	require.NoError(t, repo.Create(ctx, &models.Account{ID: "a1", Email: "ann@x.com"}))
	err := repo.Create(ctx, &models.Account{ID: "a2", Email: "ann@x.com"})
	assert.ErrorIs(t, err, repository.ErrDuplicate)
	assert.Equal(t, "a1", writes.claims["ann@x.com"])
	assert.Zero(t, writes.released)
}
