package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofrs/uuid/v5"
	passwordvalidator "github.com/wagslane/go-password-validator"

	"github.com/samandr77/microservices/account/internal/entity"
	"github.com/samandr77/microservices/account/internal/service"
	"github.com/samandr77/microservices/account/pkg/logger"
)

// @title Account API
// @version 1.0
// @description Account registration, email verification with one-time codes, sessions and profiles
// @BasePath /api
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

//go:generate go run go.uber.org/mock/mockgen@latest -source=handler.go -destination=../mocks/handler.go -package=mocks

const (
	refreshCookieName = "refreshToken"
	refreshCookiePath = "/api/users"

	maxUploadBody = service.AvatarMaxSize + 1<<20
)

type Service interface {
	Register(ctx context.Context, in service.RegisterInput) (entity.OTPResult, error)
	Login(ctx context.Context, email, password string) (entity.Session, error)
	RequestCode(ctx context.Context, email string) (entity.OTPResult, error)
	ResendOTP(ctx context.Context, email, rawContext string) (entity.OTPResult, error)
	VerifyOTP(ctx context.Context, email, code, rawContext string) (entity.VerifyOutcome, error)
	ResetPassword(ctx context.Context, email, code, newPassword string) error
	UpdatePassword(ctx context.Context, accountID uuid.UUID, current, newPassword string) error
	Me(ctx context.Context, accountID uuid.UUID) (entity.Account, error)
	Profiles(ctx context.Context, caller entity.AccountClaims, limit, offset uint64) ([]entity.Account, error)
	UpdateProfile(
		ctx context.Context, accountID uuid.UUID, upd entity.ProfileUpdate, avatar *entity.Avatar,
	) (entity.Account, error)
	RefreshAccessToken(ctx context.Context, refreshToken string) (string, error)
	Logout(ctx context.Context, accountID uuid.UUID) error
	Delete(ctx context.Context, accountID uuid.UUID) error
}

type Handler struct {
	s            Service
	validate     *validator.Validate
	cookieSecure bool
}

func NewHandler(s Service, minPasswordEntropy float64, cookieSecure bool) *Handler {
	return &Handler{
		s:            s,
		validate:     newValidator(minPasswordEntropy),
		cookieSecure: cookieSecure,
	}
}

func newValidator(minPasswordEntropy float64) *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())

	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}

		return name
	})

	_ = v.RegisterValidation("password", func(fl validator.FieldLevel) bool {
		return passwordvalidator.Validate(fl.Field().String(), minPasswordEntropy) == nil
	})

	return v
}

// decode reads a JSON body into req and validates it. It writes the error
// response itself and reports whether the handler may go on.
func (h *Handler) decode(ctx context.Context, w http.ResponseWriter, r *http.Request, req any) bool {
	err := json.NewDecoder(r.Body).Decode(req)
	if err != nil {
		sendErr(ctx, w, http.StatusBadRequest, err, "Invalid request body.")
		return false
	}

	return h.validateRequest(ctx, w, req)
}

func (h *Handler) validateRequest(ctx context.Context, w http.ResponseWriter, req any) bool {
	err := h.validate.Struct(req)
	if err == nil {
		return true
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		sendErr(ctx, w, http.StatusBadRequest, err, "Invalid request.")
		return false
	}

	sendErr(ctx, w, http.StatusBadRequest, err, fieldErrText(fieldErrs[0]))

	return false
}

func fieldErrText(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("Field %s is required.", fe.Field())
	case "password":
		return "Password is too weak. Use a longer password with mixed characters."
	case "max":
		return fmt.Sprintf("Field %s must not exceed %s characters.", fe.Field(), fe.Param())
	case "oneof":
		return fmt.Sprintf("Field %s must be one of: %s.", fe.Field(), fe.Param())
	default:
		return fmt.Sprintf("Field %s is invalid.", fe.Field())
	}
}

func (h *Handler) setRefreshCookie(w http.ResponseWriter, session entity.Session) {
	http.SetCookie(w, &http.Cookie{
		Name:     refreshCookieName,
		Value:    session.RefreshToken,
		Path:     refreshCookiePath,
		MaxAge:   int(session.RefreshTokenTTL.Seconds()),
		HttpOnly: true,
		Secure:   h.cookieSecure,
		SameSite: http.SameSiteStrictMode,
	})
}

func (h *Handler) clearRefreshCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     refreshCookieName,
		Value:    "",
		Path:     refreshCookiePath,
		MaxAge:   -1,
		Expires:  time.Unix(0, 0),
		HttpOnly: true,
		Secure:   h.cookieSecure,
		SameSite: http.SameSiteStrictMode,
	})
}

func profilePtr(a entity.Account) *entity.Profile {
	p := a.Profile()
	return &p
}

// @Summary Health check
// @Tags health
// @Produce plain
// @Success 200 {string} string "Server is running!"
// @Router /health [get]
func (h *Handler) Health(w http.ResponseWriter, _ *http.Request) {
	_, _ = w.Write([]byte("Server is running!\n"))
}

type RegisterRequest struct {
	Email     string           `json:"email" validate:"required,max=255"`
	Password  string           `json:"password" validate:"required,max=72,password"`
	FirstName string           `json:"first_name" validate:"max=100"`
	LastName  string           `json:"last_name" validate:"max=100"`
	Phone     string           `json:"phone" validate:"max=32"`
	Addresses []entity.Address `json:"addresses" validate:"omitempty,dive"`
}

// @Summary Register an account
// @Description Creates an unverified account and emails a 4 digit registration code
// @Tags users
// @Accept json
// @Produce json
// @Param request body RegisterRequest true "Registration data"
// @Success 201 {object} Response "Code sent, expires_at set"
// @Failure 400 {object} Response "Invalid input"
// @Failure 409 {object} Response "Email already registered"
// @Failure 429 {object} Response "Account locked, lock_until set"
// @Failure 500 {object} Response "Internal error"
// @Router /users/register [post]
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	ctx := logger.SetLogType(r.Context(), "auth")

	var req RegisterRequest
	if !h.decode(ctx, w, r, &req) {
		return
	}

	res, err := h.s.Register(ctx, service.RegisterInput{
		Email:     req.Email,
		Password:  req.Password,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Phone:     req.Phone,
		Addresses: req.Addresses,
	})
	if err != nil {
		sendServiceErr(ctx, w, err, "Could not register the account.")
		return
	}

	sendJSON(ctx, w, http.StatusCreated, Response{
		Success:   true,
		Message:   "Account registered. A verification code has been sent to your email.",
		ExpiresAt: res.ExpiresAt,
	})
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,max=255"`
	Password string `json:"password" validate:"required,max=72"`
}

// @Summary Sign in
// @Description Checks the password and opens a session. The refresh token is set as an HttpOnly cookie.
// @Description An unverified account gets a fresh login code and status 403.
// @Tags users
// @Accept json
// @Produce json
// @Param request body LoginRequest true "Credentials"
// @Success 200 {object} Response "access_token and user set"
// @Failure 400 {object} Response "Invalid input"
// @Failure 401 {object} Response "Wrong password"
// @Failure 403 {object} Response "Account not verified"
// @Failure 404 {object} Response "Account not found"
// @Failure 429 {object} Response "Account locked"
// @Failure 500 {object} Response "Internal error"
// @Router /users/login [post]
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	ctx := logger.SetLogType(r.Context(), "auth")

	var req LoginRequest
	if !h.decode(ctx, w, r, &req) {
		return
	}

	session, err := h.s.Login(ctx, req.Email, req.Password)
	if err != nil {
		sendServiceErr(ctx, w, err, "Could not sign in.")
		return
	}

	h.setRefreshCookie(w, session)

	sendJSON(ctx, w, http.StatusOK, Response{
		Success:     true,
		Message:     "Signed in successfully.",
		AccessToken: session.AccessToken,
		User:        profilePtr(session.Account),
	})
}

type VerifyOTPRequest struct {
	Email   string `json:"email" validate:"required,max=255"`
	OTP     string `json:"otp" validate:"required,max=16"`
	Context string `json:"context" validate:"omitempty,oneof=registration login password_reset verification"`
}

// @Summary Verify a one-time code
// @Description Outside of password_reset a valid code verifies the account and opens a session.
// @Description For password_reset the code is only confirmed and stays valid for the reset step.
// @Tags users
// @Accept json
// @Produce json
// @Param request body VerifyOTPRequest true "Email, code and context"
// @Success 200 {object} Response "Verified"
// @Failure 400 {object} Response "Invalid, expired or missing code; attempts_left set for a wrong code"
// @Failure 404 {object} Response "Account not found"
// @Failure 429 {object} Response "Account locked, lock_until set"
// @Failure 500 {object} Response "Internal error"
// @Router /users/verify-otp [post]
func (h *Handler) VerifyOTP(w http.ResponseWriter, r *http.Request) {
	ctx := logger.SetLogType(r.Context(), "auth")

	var req VerifyOTPRequest
	if !h.decode(ctx, w, r, &req) {
		return
	}

	outcome, err := h.s.VerifyOTP(ctx, req.Email, req.OTP, req.Context)
	if err != nil {
		sendServiceErr(ctx, w, err, "Could not verify the code.")
		return
	}

	if outcome.Session == nil {
		sendJSON(ctx, w, http.StatusOK, Response{
			Success: true,
			Message: "Code verified. You can now reset your password.",
		})

		return
	}

	h.setRefreshCookie(w, *outcome.Session)

	sendJSON(ctx, w, http.StatusOK, Response{
		Success:     true,
		Message:     "Account verified successfully.",
		AccessToken: outcome.Session.AccessToken,
		User:        profilePtr(outcome.Account),
	})
}

type EmailRequest struct {
	Email string `json:"email" validate:"required,max=255"`
}

// @Summary Request a password reset code
// @Description Emails a 6 digit password reset code
// @Tags users
// @Accept json
// @Produce json
// @Param request body EmailRequest true "Account email"
// @Success 200 {object} Response "Code sent, expires_at set"
// @Failure 400 {object} Response "Invalid email"
// @Failure 404 {object} Response "Account not found"
// @Failure 429 {object} Response "Account locked"
// @Failure 500 {object} Response "Internal error"
// @Router /users/request-code [post]
func (h *Handler) RequestCode(w http.ResponseWriter, r *http.Request) {
	ctx := logger.SetLogType(r.Context(), "auth")

	var req EmailRequest
	if !h.decode(ctx, w, r, &req) {
		return
	}

	res, err := h.s.RequestCode(ctx, req.Email)
	if err != nil {
		sendServiceErr(ctx, w, err, "Could not send the verification code.")
		return
	}

	sendJSON(ctx, w, http.StatusOK, Response{
		Success:   true,
		Message:   "A verification code has been sent to your email.",
		ExpiresAt: res.ExpiresAt,
	})
}

type ResendOTPRequest struct {
	Email   string `json:"email" validate:"required,max=255"`
	Context string `json:"context"`
}

// @Summary Resend a one-time code
// @Description Issues a new code for the given context and invalidates the previous one
// @Tags users
// @Accept json
// @Produce json
// @Param request body ResendOTPRequest true "Email and context"
// @Success 200 {object} Response "Code sent, expires_at set"
// @Failure 400 {object} Response "Invalid email or context"
// @Failure 404 {object} Response "Account not found"
// @Failure 429 {object} Response "Account locked"
// @Failure 500 {object} Response "Internal error"
// @Router /users/resend-otp [post]
func (h *Handler) ResendOTP(w http.ResponseWriter, r *http.Request) {
	ctx := logger.SetLogType(r.Context(), "auth")

	var req ResendOTPRequest
	if !h.decode(ctx, w, r, &req) {
		return
	}

	res, err := h.s.ResendOTP(ctx, req.Email, req.Context)
	if err != nil {
		sendServiceErr(ctx, w, err, "Could not send the verification code.")
		return
	}

	sendJSON(ctx, w, http.StatusOK, Response{
		Success:   true,
		Message:   "A new verification code has been sent to your email.",
		ExpiresAt: res.ExpiresAt,
	})
}

type ResetPasswordRequest struct {
	Email       string `json:"email" validate:"required,max=255"`
	OTP         string `json:"otp" validate:"required,max=16"`
	NewPassword string `json:"new_password" validate:"required,max=72,password"`
}

// @Summary Reset the password
// @Description Re-verifies the password reset code, replaces the password and consumes the code
// @Tags users
// @Accept json
// @Produce json
// @Param request body ResetPasswordRequest true "Email, reset code and new password"
// @Success 200 {object} Response "Password reset"
// @Failure 400 {object} Response "Invalid input or code"
// @Failure 404 {object} Response "Account not found"
// @Failure 429 {object} Response "Account locked"
// @Failure 500 {object} Response "Internal error"
// @Router /users/reset-password [post]
func (h *Handler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	ctx := logger.SetLogType(r.Context(), "auth")

	var req ResetPasswordRequest
	if !h.decode(ctx, w, r, &req) {
		return
	}

	err := h.s.ResetPassword(ctx, req.Email, req.OTP, req.NewPassword)
	if err != nil {
		sendServiceErr(ctx, w, err, "Could not reset the password.")
		return
	}

	sendJSON(ctx, w, http.StatusOK, Response{
		Success: true,
		Message: "Your password has been reset successfully.",
	})
}

// @Summary Refresh the access token
// @Description Issues a new access token for the refresh token cookie
// @Tags users
// @Produce json
// @Success 200 {object} Response "access_token set"
// @Failure 401 {object} Response "Missing, invalid or revoked refresh token"
// @Failure 500 {object} Response "Internal error"
// @Router /users/refresh-token [post]
func (h *Handler) RefreshToken(w http.ResponseWriter, r *http.Request) {
	ctx := logger.SetLogType(r.Context(), "token")

	cookie, err := r.Cookie(refreshCookieName)
	if err != nil || cookie.Value == "" {
		sendErr(ctx, w, http.StatusUnauthorized, errors.New("refresh token not provided"), "Refresh token is missing.")
		return
	}

	accessToken, err := h.s.RefreshAccessToken(ctx, cookie.Value)
	if err != nil {
		sendServiceErr(ctx, w, err, "Could not refresh the token.")
		return
	}

	sendJSON(ctx, w, http.StatusOK, Response{
		Success:     true,
		Message:     "Token refreshed.",
		AccessToken: accessToken,
	})
}

// @Summary Current account
// @Tags users
// @Produce json
// @Success 200 {object} Response "user set"
// @Failure 401 {object} Response "Unauthorized"
// @Failure 404 {object} Response "Account not found"
// @Failure 500 {object} Response "Internal error"
// @Router /users/me [get]
// @Security BearerAuth
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	claims, err := entity.ClaimsFromCtx(ctx)
	if err != nil {
		sendServiceErr(ctx, w, err, errInternalText)
		return
	}

	account, err := h.s.Me(ctx, claims.ID)
	if err != nil {
		sendServiceErr(ctx, w, err, "Could not load the account.")
		return
	}

	sendJSON(ctx, w, http.StatusOK, Response{
		Success: true,
		Message: "Account loaded.",
		User:    profilePtr(account),
	})
}

// @Summary List accounts
// @Description Administrators only
// @Tags users
// @Produce json
// @Param limit query int false "Page size, at most 100"
// @Param offset query int false "Offset"
// @Success 200 {object} Response "users set"
// @Failure 400 {object} Response "Invalid paging"
// @Failure 401 {object} Response "Unauthorized"
// @Failure 403 {object} Response "Not an administrator"
// @Failure 500 {object} Response "Internal error"
// @Router /users/profiles [get]
// @Security BearerAuth
func (h *Handler) Profiles(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	claims, err := entity.ClaimsFromCtx(ctx)
	if err != nil {
		sendServiceErr(ctx, w, err, errInternalText)
		return
	}

	limit, err := parseUintQuery(r, "limit")
	if err != nil {
		sendErr(ctx, w, http.StatusBadRequest, err, "Invalid limit.")
		return
	}

	offset, err := parseUintQuery(r, "offset")
	if err != nil {
		sendErr(ctx, w, http.StatusBadRequest, err, "Invalid offset.")
		return
	}

	accounts, err := h.s.Profiles(ctx, claims, limit, offset)
	if err != nil {
		sendServiceErr(ctx, w, err, "Could not list accounts.")
		return
	}

	profiles := make([]entity.Profile, 0, len(accounts))
	for _, a := range accounts {
		profiles = append(profiles, a.Profile())
	}

	sendJSON(ctx, w, http.StatusOK, Response{
		Success: true,
		Message: fmt.Sprintf("%d account(s) found.", len(profiles)),
		Users:   profiles,
	})
}

func parseUintQuery(r *http.Request, key string) (uint64, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return 0, nil
	}

	return strconv.ParseUint(raw, 10, 64)
}

type UpdateProfileRequest struct {
	FirstName *string          `json:"first_name" validate:"omitempty,max=100"`
	LastName  *string          `json:"last_name" validate:"omitempty,max=100"`
	Phone     *string          `json:"phone" validate:"omitempty,max=32"`
	Addresses []entity.Address `json:"addresses" validate:"omitempty,dive"`
}

// @Summary Update the profile
// @Description Accepts JSON or multipart/form-data. In multipart form the profileImage field carries
// @Description an image of at most 5 MB and addresses is a JSON array.
// @Tags users
// @Accept json,mpfd
// @Produce json
// @Param request body UpdateProfileRequest false "Profile fields"
// @Param profileImage formData file false "Profile image"
// @Success 200 {object} Response "user set"
// @Failure 400 {object} Response "Invalid input or image"
// @Failure 401 {object} Response "Unauthorized"
// @Failure 404 {object} Response "Account not found"
// @Failure 500 {object} Response "Internal error"
// @Router /users/update-profile [put]
// @Security BearerAuth
func (h *Handler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	claims, err := entity.ClaimsFromCtx(ctx)
	if err != nil {
		sendServiceErr(ctx, w, err, errInternalText)
		return
	}

	var (
		req    UpdateProfileRequest
		avatar *entity.Avatar
	)

	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		r.Body = http.MaxBytesReader(w, r.Body, maxUploadBody)

		err = r.ParseMultipartForm(service.AvatarMaxSize)
		if err != nil {
			var maxErr *http.MaxBytesError
			if errors.As(err, &maxErr) {
				sendServiceErr(ctx, w, entity.ErrAvatarTooLarge, errInternalText)
				return
			}

			sendErr(ctx, w, http.StatusBadRequest, err, "Invalid form data.")

			return
		}

		defer func() { _ = r.MultipartForm.RemoveAll() }()

		req, err = profileRequestFromForm(r.MultipartForm)
		if err != nil {
			sendErr(ctx, w, http.StatusBadRequest, err, "Invalid addresses.")
			return
		}

		avatar, err = avatarFromForm(r)
		if err != nil {
			sendServiceErr(ctx, w, err, "Could not read the profile image.")
			return
		}

		if !h.validateRequest(ctx, w, &req) {
			return
		}
	} else if !h.decode(ctx, w, r, &req) {
		return
	}

	account, err := h.s.UpdateProfile(ctx, claims.ID, entity.ProfileUpdate{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Phone:     req.Phone,
		Addresses: req.Addresses,
	}, avatar)
	if err != nil {
		sendServiceErr(ctx, w, err, "Could not update the profile.")
		return
	}

	sendJSON(ctx, w, http.StatusOK, Response{
		Success: true,
		Message: "Profile updated successfully.",
		User:    profilePtr(account),
	})
}

func profileRequestFromForm(form *multipart.Form) (UpdateProfileRequest, error) {
	var req UpdateProfileRequest

	field := func(key string) *string {
		values, ok := form.Value[key]
		if !ok || len(values) == 0 {
			return nil
		}

		return &values[0]
	}

	req.FirstName = field("first_name")
	req.LastName = field("last_name")
	req.Phone = field("phone")

	if raw := field("addresses"); raw != nil && *raw != "" {
		err := json.Unmarshal([]byte(*raw), &req.Addresses)
		if err != nil {
			return UpdateProfileRequest{}, fmt.Errorf("decode addresses: %w", err)
		}
	}

	return req, nil
}

func avatarFromForm(r *http.Request) (*entity.Avatar, error) {
	file, header, err := r.FormFile("profileImage")
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return nil, nil
		}

		return nil, fmt.Errorf("read form file: %w", err)
	}
	defer file.Close()

	if header.Size > service.AvatarMaxSize {
		return nil, entity.ErrAvatarTooLarge
	}

	data, err := io.ReadAll(io.LimitReader(file, service.AvatarMaxSize+1))
	if err != nil {
		return nil, fmt.Errorf("read profile image: %w", err)
	}

	if len(data) > service.AvatarMaxSize {
		return nil, entity.ErrAvatarTooLarge
	}

	return &entity.Avatar{
		Name:        header.Filename,
		ContentType: http.DetectContentType(data),
		Size:        int64(len(data)),
		Data:        data,
	}, nil
}

type UpdatePasswordRequest struct {
	CurrentPassword string `json:"current_password" validate:"required,max=72"`
	NewPassword     string `json:"new_password" validate:"required,max=72,password"`
}

// @Summary Change the password
// @Tags users
// @Accept json
// @Produce json
// @Param request body UpdatePasswordRequest true "Current and new password"
// @Success 200 {object} Response "Password changed"
// @Failure 400 {object} Response "Invalid input"
// @Failure 401 {object} Response "Wrong current password"
// @Failure 500 {object} Response "Internal error"
// @Router /users/update-password [put]
// @Security BearerAuth
func (h *Handler) UpdatePassword(w http.ResponseWriter, r *http.Request) {
	ctx := logger.SetLogType(r.Context(), "auth")

	claims, err := entity.ClaimsFromCtx(ctx)
	if err != nil {
		sendServiceErr(ctx, w, err, errInternalText)
		return
	}

	var req UpdatePasswordRequest
	if !h.decode(ctx, w, r, &req) {
		return
	}

	err = h.s.UpdatePassword(ctx, claims.ID, req.CurrentPassword, req.NewPassword)
	if err != nil {
		sendServiceErr(ctx, w, err, "Could not change the password.")
		return
	}

	sendJSON(ctx, w, http.StatusOK, Response{
		Success: true,
		Message: "Password changed successfully.",
	})
}

// @Summary Sign out
// @Description Revokes the stored refresh token and clears the cookie
// @Tags users
// @Produce json
// @Success 200 {object} Response "Signed out"
// @Failure 401 {object} Response "Unauthorized"
// @Failure 500 {object} Response "Internal error"
// @Router /users/logout [post]
// @Security BearerAuth
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	ctx := logger.SetLogType(r.Context(), "auth")

	claims, err := entity.ClaimsFromCtx(ctx)
	if err != nil {
		sendServiceErr(ctx, w, err, errInternalText)
		return
	}

	err = h.s.Logout(ctx, claims.ID)
	if err != nil {
		sendServiceErr(ctx, w, err, "Could not sign out.")
		return
	}

	h.clearRefreshCookie(w)

	sendJSON(ctx, w, http.StatusOK, Response{
		Success: true,
		Message: "Signed out successfully.",
	})
}

// @Summary Delete the account
// @Tags users
// @Produce json
// @Success 200 {object} Response "Deleted"
// @Failure 401 {object} Response "Unauthorized"
// @Failure 404 {object} Response "Account not found"
// @Failure 500 {object} Response "Internal error"
// @Router /users/delete [delete]
// @Security BearerAuth
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	claims, err := entity.ClaimsFromCtx(ctx)
	if err != nil {
		sendServiceErr(ctx, w, err, errInternalText)
		return
	}

	err = h.s.Delete(ctx, claims.ID)
	if err != nil {
		sendServiceErr(ctx, w, err, "Could not delete the account.")
		return
	}

	h.clearRefreshCookie(w)

	sendJSON(ctx, w, http.StatusOK, Response{
		Success: true,
		Message: "Account deleted successfully.",
	})
}
