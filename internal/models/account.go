package models

import (
	"slices"
	"time"
)

type AccountStatus string

const (
	StatusUnverified AccountStatus = "unverified"
	StatusActive     AccountStatus = "active"
	StatusSuspended  AccountStatus = "suspended"
)

// OTPChallenge is the single live one-time code for an account.
// A nil *OTPChallenge on Account means no code is pending.
type OTPChallenge struct {
	Code      string    `json:"-" bson:"code"`
	ExpiresAt time.Time `json:"-" bson:"expires_at"`
	Attempts  int       `json:"-" bson:"attempts"`
}

// Live reports whether the challenge can still be matched at now.
func (c *OTPChallenge) Live(now time.Time) bool {
	return c != nil && c.ExpiresAt.After(now)
}

type Account struct {
	ID              string        `json:"_id" bson:"_id"`
	Name            string        `json:"name" bson:"name"`
	Email           string        `json:"email" bson:"email"`
	PasswordHash    string        `json:"-" bson:"password_hash"`
	IsAdmin         bool          `json:"isAdmin" bson:"is_admin"`
	IsEmailVerified bool          `json:"isEmailVerified" bson:"is_email_verified"`
	Status          AccountStatus `json:"status" bson:"status"`
	PendingOTP      *OTPChallenge `json:"-" bson:"pending_otp,omitempty"`
	Addresses       []Address     `json:"addresses" bson:"addresses"`
	Cart            []CartItem    `json:"cart" bson:"cart"`
	Wishlist        []string      `json:"wishlist" bson:"wishlist"`
	CreatedAt       time.Time     `json:"createdAt" bson:"created_at"`
	UpdatedAt       time.Time     `json:"updatedAt" bson:"updated_at"`
}

// Summary is the only account shape returned alongside a session token.
type Summary struct {
	ID      string `json:"_id"`
	Name    string `json:"name"`
	Email   string `json:"email"`
	IsAdmin bool   `json:"isAdmin"`
}

func (a *Account) Summary() Summary {
	return Summary{ID: a.ID, Name: a.Name, Email: a.Email, IsAdmin: a.IsAdmin}
}

// Clone returns a deep copy so callers can mutate without aliasing stored state.
func (a *Account) Clone() *Account {
	if a == nil {
		return nil
	}
	c := *a
	if a.PendingOTP != nil {
		otp := *a.PendingOTP
		c.PendingOTP = &otp
	}
	c.Addresses = slices.Clone(a.Addresses)
	c.Cart = slices.Clone(a.Cart)
	c.Wishlist = slices.Clone(a.Wishlist)
	return &c
}

type AddressType string

const (
	AddressHome  AddressType = "home"
	AddressWork  AddressType = "work"
	AddressOther AddressType = "other"

	DefaultCountry = "India"
	MaxAddresses   = 2
)

func (t AddressType) Valid() bool {
	switch t {
	case AddressHome, AddressWork, AddressOther:
		return true
	}
	return false
}

type Address struct {
	ID        string      `json:"_id" bson:"id"`
	Type      AddressType `json:"type" bson:"type"`
	Street    string      `json:"street" bson:"street"`
	City      string      `json:"city" bson:"city"`
	State     string      `json:"state" bson:"state"`
	ZipCode   string      `json:"zipCode" bson:"zip_code"`
	Country   string      `json:"country" bson:"country"`
	IsDefault bool        `json:"isDefault" bson:"is_default"`
}

type CartItem struct {
	ProductID string `json:"productId" bson:"product_id"`
	Quantity  int    `json:"quantity" bson:"quantity"`
}
