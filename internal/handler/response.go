package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"vsgifts-api/internal/models"
	"vsgifts-api/internal/service"
	"vsgifts-api/internal/util"
)

// Response represents a standard API response. The flat fields after
// Message are only set by the auth endpoints.
type Response struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
	Message string `json:"message,omitempty"`

	Token             string          `json:"token,omitempty"`
	User              *models.Summary `json:"user,omitempty"`
	AttemptsLeft      *int            `json:"attemptsLeft,omitempty"`
	NeedsVerification bool            `json:"needsVerification,omitempty"`
	UserID            string          `json:"userId,omitempty"`
	Email             string          `json:"email,omitempty"`
}

func successResponse(data any, message string) Response {
	return Response{
		Success: true,
		Data:    data,
		Message: message,
	}
}

// responder is embedded by every handler for consistent JSON output.
type responder struct {
	logger *zap.Logger
}

func (h responder) respondWithJSON(w http.ResponseWriter, statusCode int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("Failed to encode JSON response", util.ErrorField(err))
	}
}

// respondWithError maps err onto a status code and caller-facing message.
// Unrecognised errors are logged and reported as an opaque 500.
func (h responder) respondWithError(w http.ResponseWriter, err error) {
	statusCode := getStatusCode(err)
	resp := Response{Success: false, Message: errorMessage(err)}

	var mismatch *service.MismatchError
	var unverified *service.UnverifiedError
	switch {
	case errors.As(err, &mismatch):
		left := mismatch.AttemptsLeft
		resp.AttemptsLeft = &left
	case errors.As(err, &unverified):
		resp.NeedsVerification = true
		resp.UserID = unverified.AccountID
		resp.Email = unverified.Email
	}

	if statusCode >= http.StatusInternalServerError {
		h.logger.Error("HTTP error response",
			util.ErrorField(err),
			util.Int("status_code", statusCode),
		)
		resp.Error = http.StatusText(statusCode)
	} else {
		h.logger.Debug("HTTP error response",
			util.ErrorField(err),
			util.Int("status_code", statusCode),
			util.String("message", resp.Message),
		)
		resp.Error = err.Error()
	}
	h.respondWithJSON(w, statusCode, resp)
}

func (h responder) badRequest(w http.ResponseWriter, message string) {
	h.respondWithJSON(w, http.StatusBadRequest, Response{Success: false, Error: "invalid request", Message: message})
}

// getStatusCode determines the appropriate HTTP status code for an error
func getStatusCode(err error) int {
	switch {
	case errors.Is(err, service.ErrInvalidInput),
		errors.Is(err, service.ErrAccountExists),
		errors.Is(err, service.ErrOTPInvalidOrExpired),
		errors.Is(err, service.ErrOTPMismatch),
		errors.Is(err, service.ErrAccountLocked),
		errors.Is(err, service.ErrAlreadyVerified):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrInvalidCredentials),
		errors.Is(err, service.ErrUnverified),
		errors.Is(err, service.ErrAccountInactive),
		errors.Is(err, service.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, service.ErrPermissionDenied):
		return http.StatusForbidden
	case errors.Is(err, service.ErrAccountNotFound),
		errors.Is(err, service.ErrProductNotFound),
		errors.Is(err, service.ErrAddressNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrRateLimited):
		return http.StatusTooManyRequests
	case errors.Is(err, service.ErrUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func errorMessage(err error) string {
	var ve *service.ValidationError
	if errors.As(err, &ve) {
		return ve.Message
	}
	switch {
	case errors.Is(err, service.ErrAccountExists):
		return "User already exists"
	case errors.Is(err, service.ErrOTPInvalidOrExpired):
		return "OTP is invalid or has expired"
	case errors.Is(err, service.ErrOTPMismatch):
		return "Invalid OTP"
	case errors.Is(err, service.ErrAccountLocked):
		return "Too many failed attempts. Account suspended."
	case errors.Is(err, service.ErrAlreadyVerified):
		return "Email is already verified"
	case errors.Is(err, service.ErrAccountNotFound):
		return "User not found"
	case errors.Is(err, service.ErrNotificationFailed):
		return "Failed to send OTP email"
	case errors.Is(err, service.ErrInvalidCredentials):
		return "Invalid email or password"
	case errors.Is(err, service.ErrUnverified):
		return "Please verify your email with OTP before logging in"
	case errors.Is(err, service.ErrAccountInactive):
		return "Your account is not active. Please contact support."
	case errors.Is(err, service.ErrUnauthorized):
		return "Not authorized, token failed"
	case errors.Is(err, service.ErrPermissionDenied):
		return "Not authorized to access this resource"
	case errors.Is(err, service.ErrProductNotFound):
		return "Product not found"
	case errors.Is(err, service.ErrAddressNotFound):
		return "Address not found."
	case errors.Is(err, service.ErrRateLimited):
		return "Too many requests, please try again later"
	case errors.Is(err, service.ErrUnavailable):
		return "This feature is not configured"
	default:
		return "Server error"
	}
}

// decodeJSON reads a JSON body, reporting false after writing a 400.
func (h responder) decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(dst); err != nil {
		h.badRequest(w, "Invalid request body")
		return false
	}
	return true
}
