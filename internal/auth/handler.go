package auth

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/taskway/taskway/internal/platform/httpx"
	"github.com/taskway/taskway/internal/shared"
)

// Handler exposes the token endpoints.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
}

// NewHandler builds the auth Handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validate: validator.New()}
}

// MountRoutes registers the auth routes. Login is unauthenticated; logout
// requires a verified token and is mounted by the router inside the
// token-gated group.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/login", h.login)
}

// MountProtectedRoutes registers the routes that need a verified token.
func (h *Handler) MountProtectedRoutes(r chi.Router) {
	r.Post("/logout", h.logout)
}

type loginRequest struct {
	Role     string `json:"role" validate:"required,oneof=member staff admin"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
}

type loginResponse struct {
	Token string `json:"token"`
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, shared.Errorf(shared.ErrValidation, "invalid body"))
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.RespondError(w, shared.Errorf(shared.ErrValidation, "invalid login request"))
		return
	}
	token, err := h.service.Login(r.Context(), req.Role, req.Email, req.Password)
	if err != nil {
		h.logger.Info("login rejected", slog.String("role", req.Role))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, loginResponse{Token: token})
}

func (h *Handler) logout(w http.ResponseWriter, r *http.Request) {
	claims := shared.ClaimsFromContext(r.Context())
	if err := h.service.Logout(r.Context(), claims); err != nil {
		h.logger.Error("logout failed", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
