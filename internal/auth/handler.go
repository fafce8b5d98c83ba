package auth

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/meridian-platform/meridian-identity/internal/guard"
	"github.com/meridian-platform/meridian-identity/internal/observability"
	"github.com/meridian-platform/meridian-identity/internal/platform/httpx"
	"github.com/meridian-platform/meridian-identity/internal/shared"
	"github.com/meridian-platform/meridian-identity/internal/token"
)

// Handler wires HTTP endpoints for authentication flows.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	guards    guard.Middleware
	rateLimit func(http.Handler) http.Handler
	metrics   *observability.Metrics
	validator *validator.Validate
}

// NewHandler constructs a Handler instance. rateLimit, when non-nil, is
// applied to the credential-bearing endpoints; metrics may be nil.
func NewHandler(logger *slog.Logger, service *Service, guards guard.Middleware, rateLimit func(http.Handler) http.Handler, metrics *observability.Metrics) *Handler {
	return &Handler{
		logger:    logger,
		service:   service,
		guards:    guards,
		rateLimit: rateLimit,
		metrics:   metrics,
		validator: validator.New(),
	}
}

// MountRoutes registers auth routes on the provided router. Each route
// declares its capability explicitly; the guard middleware evaluates it and
// places the resolved identity in context.
func (h *Handler) MountRoutes(r chi.Router) {
	public := guard.Capability{Public: true}
	authenticated := guard.Capability{RequireIdentity: true}

	r.Group(func(r chi.Router) {
		if h.rateLimit != nil {
			r.Use(h.rateLimit)
		}
		r.With(h.guards.Require(public)).Post("/register", h.handleRegister)
		r.With(h.guards.Require(public)).Post("/login", h.handleLogin)
		r.With(h.guards.Require(public)).Post("/refresh", h.handleRefresh)
	})

	r.With(h.guards.Require(authenticated)).Post("/logout", h.handleLogout)
	r.With(h.guards.Require(authenticated)).Get("/me", h.handleMe)
	r.With(h.guards.Require(authenticated)).Put("/me", h.handleUpdateMe)
	r.With(h.guards.Require(authenticated)).Get("/users/{id}", h.handleGetUser)
}

// MountInternalRoutes registers the endpoints reserved for sibling services.
func (h *Handler) MountInternalRoutes(r chi.Router) {
	internal := guard.Capability{InternalOnly: true}
	r.With(h.guards.Require(internal)).Post("/validate-token", h.handleValidateToken)
}

type registerRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
}

type userResponse struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

func toUserResponse(u *User) userResponse {
	return userResponse{ID: u.ID.String(), Email: u.Email, Role: u.Role}
}

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}

	user, err := h.service.Register(r.Context(), req.Email, req.Password)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, toUserResponse(user))
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		// Malformed credentials fail like wrong ones; no field detail leaks.
		httpx.RespondError(w, shared.ErrInvalidCredentials)
		return
	}

	user, pair, err := h.service.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := h.service.RegisterSession(r.Context(), user.ID, r.RemoteAddr, r.UserAgent()); err != nil {
		h.logger.Warn("register session", slog.Any("error", err))
	}
	h.countIssuedPair()
	httpx.JSON(w, http.StatusOK, tokenResponse{AccessToken: pair.AccessToken, RefreshToken: pair.RefreshToken})
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

func (h *Handler) handleRefresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.RespondError(w, shared.ErrInvalidRefreshToken)
		return
	}

	pair, err := h.service.Rotate(r.Context(), req.RefreshToken)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	h.countIssuedPair()
	httpx.JSON(w, http.StatusOK, tokenResponse{AccessToken: pair.AccessToken, RefreshToken: pair.RefreshToken})
}

func (h *Handler) countIssuedPair() {
	h.metrics.IncTokenIssued(string(token.KindAccess))
	h.metrics.IncTokenIssued(string(token.KindRefresh))
}

type logoutRequest struct {
	AllDevices bool `json:"all_devices"`
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	identity := guard.IdentityFromContext(r.Context())
	if identity == nil {
		httpx.RespondError(w, shared.ErrMissingUserContext)
		return
	}

	// The single-record refresh model revokes globally regardless of the
	// all_devices flag; decode only to tolerate clients that send it.
	var req logoutRequest
	_ = httpx.DecodeJSON(r, &req)

	if err := h.service.Logout(r.Context(), identity.PrincipalID); err != nil {
		h.logger.Error("logout", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (h *Handler) handleMe(w http.ResponseWriter, r *http.Request) {
	identity := guard.IdentityFromContext(r.Context())
	if identity == nil {
		httpx.RespondError(w, shared.ErrMissingUserContext)
		return
	}
	user, err := h.service.Profile(r.Context(), identity.PrincipalID)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toUserResponse(user))
}

type updateMeRequest struct {
	Email           string `json:"email" validate:"omitempty,email"`
	NewPassword     string `json:"new_password" validate:"omitempty,min=8"`
	CurrentPassword string `json:"current_password"`
}

func (h *Handler) handleUpdateMe(w http.ResponseWriter, r *http.Request) {
	identity := guard.IdentityFromContext(r.Context())
	if identity == nil {
		httpx.RespondError(w, shared.ErrMissingUserContext)
		return
	}

	var req updateMeRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}

	user, err := h.service.UpdateProfile(r.Context(), identity.PrincipalID, UpdateProfileParams{
		Email:           req.Email,
		NewPassword:     req.NewPassword,
		CurrentPassword: req.CurrentPassword,
	})
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toUserResponse(user))
}

func (h *Handler) handleGetUser(w http.ResponseWriter, r *http.Request) {
	identity := guard.IdentityFromContext(r.Context())
	user, err := h.service.GetProfile(r.Context(), identity, chi.URLParam(r, "id"))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toUserResponse(user))
}

type validateTokenRequest struct {
	Token string `json:"token" validate:"required"`
}

type validateTokenResponse struct {
	Valid bool   `json:"valid"`
	Kind  string `json:"kind,omitempty"`
	Sub   string `json:"sub,omitempty"`
	Email string `json:"email,omitempty"`
	Role  string `json:"role,omitempty"`
}

// handleValidateToken is the generic "is this token good for anything"
// check used by sibling services. It reports invalid rather than failing.
func (h *Handler) handleValidateToken(w http.ResponseWriter, r *http.Request) {
	var req validateTokenRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}

	claims, kind, err := h.service.ValidateToken(req.Token)
	if err != nil {
		httpx.JSON(w, http.StatusOK, validateTokenResponse{Valid: false})
		return
	}
	httpx.JSON(w, http.StatusOK, validateTokenResponse{
		Valid: true,
		Kind:  string(kind),
		Sub:   claims.Subject,
		Email: claims.Email,
		Role:  claims.Role,
	})
}
