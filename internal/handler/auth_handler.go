package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"vsgifts-api/internal/models"
	"vsgifts-api/internal/service"
	"vsgifts-api/internal/util"
)

// AuthHandler exposes registration, OTP verification and login.
type AuthHandler struct {
	responder
	accounts *service.AccountService
}

func NewAuthHandler(accounts *service.AccountService, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{
		responder: responder{logger: logger},
		accounts:  accounts,
	}
}

type verifyOTPRequest struct {
	Email string `json:"email"`
	OTP   string `json:"otp"`
}

type resendOTPRequest struct {
	Email string `json:"email"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// loginResponse carries the account summary at the top level next to the
// token, unlike verify-otp which nests it under "user".
type loginResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	models.Summary
	Token string `json:"token"`
}

// RegisterRoutes mounts /auth. limit wraps each endpoint individually so the
// limiter sees the full route pattern.
func (h *AuthHandler) RegisterRoutes(router chi.Router, limit func(http.Handler) http.Handler) {
	router.Route("/auth", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(limit)
			r.Post("/register", h.Register)
			r.Post("/verify-otp", h.VerifyOTP)
			r.Post("/resend-otp", h.ResendOTP)
			r.Post("/login", h.Login)
		})
	})
}

// Register handles POST /auth/register
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	startTime := time.Now()

	var req service.RegisterRequest
	if !h.decodeJSON(w, r, &req) {
		return
	}

	res, err := h.accounts.Register(r.Context(), &req)
	if err != nil {
		h.respondWithError(w, err)
		return
	}

	message := "Registration successful. OTP sent to your email."
	if !res.OTPDelivered {
		message = "Registration successful but OTP email failed. Please try resending OTP."
	}
	h.respondWithJSON(w, http.StatusCreated, Response{
		Success: true,
		Message: message,
		UserID:  res.AccountID,
		Email:   res.Email,
	})
	h.logger.Info("Account registered via HTTP",
		util.String("user_id", res.AccountID),
		util.Duration("duration", time.Since(startTime)),
		util.String("method", "Register"),
	)
}

// VerifyOTP handles POST /auth/verify-otp
func (h *AuthHandler) VerifyOTP(w http.ResponseWriter, r *http.Request) {
	var req verifyOTPRequest
	if !h.decodeJSON(w, r, &req) {
		return
	}

	res, err := h.accounts.VerifyOTP(r.Context(), req.Email, req.OTP)
	if err != nil {
		h.respondWithError(w, err)
		return
	}

	h.respondWithJSON(w, http.StatusOK, Response{
		Success: true,
		Message: "Email verified successfully!",
		Token:   res.Token,
		User:    &res.Account,
	})
}

// ResendOTP handles POST /auth/resend-otp
func (h *AuthHandler) ResendOTP(w http.ResponseWriter, r *http.Request) {
	var req resendOTPRequest
	if !h.decodeJSON(w, r, &req) {
		return
	}

	if err := h.accounts.ResendOTP(r.Context(), req.Email); err != nil {
		h.respondWithError(w, err)
		return
	}
	h.respondWithJSON(w, http.StatusOK, successResponse(nil, "New OTP sent successfully"))
}

// Login handles POST /auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	startTime := time.Now()

	var req loginRequest
	if !h.decodeJSON(w, r, &req) {
		return
	}

	res, err := h.accounts.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		h.respondWithError(w, err)
		return
	}

	h.respondWithJSON(w, http.StatusOK, loginResponse{
		Success: true,
		Message: "Login successful",
		Summary: res.Account,
		Token:   res.Token,
	})
	h.logger.Debug("Login via HTTP",
		util.String("user_id", res.Account.ID),
		util.Duration("duration", time.Since(startTime)),
		util.String("method", "Login"),
	)
}
