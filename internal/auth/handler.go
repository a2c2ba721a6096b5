package auth

import (
	"context"
	"errors"
	"net/http"

	"github.com/google/uuid"

	"github.com/familyspend/ExpenseTracker/internal/audit"
	appErrors "github.com/familyspend/ExpenseTracker/internal/errors"
	"github.com/familyspend/ExpenseTracker/internal/log"
	"github.com/familyspend/ExpenseTracker/internal/request"
	"github.com/familyspend/ExpenseTracker/internal/response"
	"github.com/familyspend/ExpenseTracker/internal/user"
)

const resetRequestedMessage = "If an account with that email exists, a reset code has been sent"

// AccessLogReader lists audit entries for the access log endpoints.
type AccessLogReader interface {
	List(ctx context.Context, q audit.ListQuery) ([]audit.Entry, int, error)
}

type Handler struct {
	authService Service
	gate        *Gate
	cookies     CookieConfig
	audit       audit.Sink
	accessLogs  AccessLogReader
}

func NewHandler(authService Service, gate *Gate, cookies CookieConfig, sink audit.Sink, accessLogs AccessLogReader) *Handler {
	return &Handler{
		authService: authService,
		gate:        gate,
		cookies:     cookies,
		audit:       sink,
		accessLogs:  accessLogs,
	}
}

func (h *Handler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	entry := audit.FromRequest(r, audit.ActionRegister, audit.ResourceUser)

	var req user.RegisterInput
	if err := request.DecodeJSON(r, &req); err != nil {
		h.audit.Record(r.Context(), entry)
		response.FromError(w, r, err)
		return
	}

	result, err := h.authService.Register(r.Context(), req)
	if err != nil {
		h.audit.Record(r.Context(), entry)
		response.FromError(w, r, err)
		return
	}

	h.audit.Record(r.Context(), entry.WithUser(result.User.ID).WithResourceID(result.User.ID.String()).Succeeded(true))
	h.startSession(w, result)
	response.Success(w, http.StatusOK, result, "Registration successful")
}

func (h *Handler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	entry := audit.FromRequest(r, audit.ActionLogin, audit.ResourceUser)

	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := request.DecodeJSON(r, &req); err != nil {
		h.audit.Record(r.Context(), entry)
		response.FromError(w, r, err)
		return
	}

	result, err := h.authService.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		if result != nil && result.User != nil {
			entry = entry.WithUser(result.User.ID).WithResourceID(result.User.ID.String())
		}
		h.audit.Record(r.Context(), entry)
		if errors.Is(err, user.ErrInvalidCredentials) {
			response.Error(w, http.StatusUnauthorized, "Invalid email or password")
			return
		}
		response.FromError(w, r, err)
		return
	}

	h.audit.Record(r.Context(), entry.WithUser(result.User.ID).WithResourceID(result.User.ID.String()).Succeeded(true))
	h.startSession(w, result)
	response.Success(w, http.StatusOK, result, "Login successful")
}

// HandleLogout always succeeds. The token itself stays valid until it
// expires; only the cookie is removed.
func (h *Handler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	session, err := h.gate.CurrentSession(w, r)
	if err != nil {
		log.FromContext(r.Context()).WarnContext(r.Context(), "could not resolve session on logout", log.FieldError, err)
	}
	if session != nil {
		h.audit.Record(r.Context(), audit.FromRequest(r, audit.ActionLogout, audit.ResourceUser).
			WithUser(session.UserID).
			WithResourceID(session.UserID.String()).
			Succeeded(true))
	}

	h.cookies.Clear(w)
	response.Success(w, http.StatusOK, nil, "Logout successful")
}

func (h *Handler) HandleSession(w http.ResponseWriter, r *http.Request) {
	session, err := h.gate.CurrentSession(w, r)
	if err != nil {
		response.FromError(w, r, err)
		return
	}
	if session == nil {
		response.FromError(w, r, appErrors.ErrUnauthenticated)
		return
	}
	response.Success(w, http.StatusOK, session, "")
}

func (h *Handler) HandleMe(w http.ResponseWriter, r *http.Request) {
	session, _ := SessionFromContext(r.Context())

	currentUser, err := h.authService.CurrentUser(r.Context(), session.UserID)
	if err != nil {
		response.FromError(w, r, err)
		return
	}
	response.Success(w, http.StatusOK, currentUser, "")
}

func (h *Handler) HandleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	session, _ := SessionFromContext(r.Context())
	entry := audit.FromRequest(r, audit.ActionUpdate, audit.ResourceUser).
		WithUser(session.UserID).
		WithResourceID(session.UserID.String())

	var req user.ProfileUpdate
	if err := request.DecodeJSON(r, &req); err != nil {
		h.audit.Record(r.Context(), entry)
		response.FromError(w, r, err)
		return
	}

	result, err := h.authService.UpdateProfile(r.Context(), session.UserID, req)
	if err != nil {
		h.audit.Record(r.Context(), entry)
		response.FromError(w, r, err)
		return
	}

	h.audit.Record(r.Context(), entry.Succeeded(true))
	h.startSession(w, result)
	response.Success(w, http.StatusOK, result, "Profile updated successfully")
}

// HandleForgotPassword answers the same way whether or not the email exists.
func (h *Handler) HandleForgotPassword(w http.ResponseWriter, r *http.Request) {
	entry := audit.FromRequest(r, audit.ActionPasswordResetRequest, audit.ResourceUser)

	var req struct {
		Email string `json:"email"`
	}
	if err := request.DecodeJSON(r, &req); err != nil || req.Email == "" {
		h.audit.Record(r.Context(), entry)
		response.Error(w, http.StatusBadRequest, "Email is required")
		return
	}

	requested, err := h.authService.RequestPasswordReset(r.Context(), req.Email)
	if err != nil {
		log.FromContext(r.Context()).ErrorContext(r.Context(), "password reset request failed", log.FieldError, err)
	}
	if requested != nil {
		entry = entry.WithUser(requested.ID).WithResourceID(requested.ID.String())
	}
	h.audit.Record(r.Context(), entry.Succeeded(err == nil))

	response.Success(w, http.StatusOK, nil, resetRequestedMessage)
}

func (h *Handler) HandleResetPassword(w http.ResponseWriter, r *http.Request) {
	entry := audit.FromRequest(r, audit.ActionPasswordReset, audit.ResourceUser)

	var req struct {
		Email           string `json:"email"`
		Code            string `json:"code"`
		NewPassword     string `json:"newPassword"`
		ConfirmPassword string `json:"confirmPassword"`
	}
	if err := request.DecodeJSON(r, &req); err != nil {
		h.audit.Record(r.Context(), entry)
		response.FromError(w, r, err)
		return
	}
	if req.Email == "" || req.Code == "" || req.NewPassword == "" {
		h.audit.Record(r.Context(), entry)
		response.Error(w, http.StatusBadRequest, "Email, code and new password are required")
		return
	}
	if req.ConfirmPassword != "" && req.ConfirmPassword != req.NewPassword {
		h.audit.Record(r.Context(), entry)
		response.FromError(w, r, ErrPasswordMismatch)
		return
	}

	resetUser, err := h.authService.ResetPassword(r.Context(), req.Email, req.Code, req.NewPassword)
	if resetUser != nil {
		entry = entry.WithUser(resetUser.ID).WithResourceID(resetUser.ID.String())
	}
	if err != nil {
		h.audit.Record(r.Context(), entry)
		response.FromError(w, r, err)
		return
	}

	h.audit.Record(r.Context(), entry.Succeeded(true))
	h.cookies.Clear(w)
	response.Success(w, http.StatusOK, nil, "Password has been reset, please log in again")
}

func (h *Handler) HandleOwnAccessLogs(w http.ResponseWriter, r *http.Request) {
	session, _ := SessionFromContext(r.Context())
	h.listAccessLogs(w, r, &session.UserID)
}

func (h *Handler) HandleAdminAccessLogs(w http.ResponseWriter, r *http.Request) {
	userID, err := request.OptionalUUID(r, "userId")
	if err != nil {
		response.FromError(w, r, err)
		return
	}
	h.listAccessLogs(w, r, userID)
}

func (h *Handler) listAccessLogs(w http.ResponseWriter, r *http.Request, userID *uuid.UUID) {
	page, limit, err := request.PageParams(r, audit.DefaultListLimit, audit.MaxListLimit)
	if err != nil {
		response.FromError(w, r, err)
		return
	}

	entries, total, err := h.accessLogs.List(r.Context(), audit.ListQuery{UserID: userID, Page: page, Limit: limit})
	if err != nil {
		response.FromError(w, r, err)
		return
	}
	response.Paginated(w, entries, response.NewPagination(page, limit, total))
}

func (h *Handler) startSession(w http.ResponseWriter, result *Result) {
	h.cookies.Set(w, result.Token, result.Session.ExpiresAt)
}
