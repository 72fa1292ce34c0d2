package tasks

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/taskway/taskway/internal/guard"
	"github.com/taskway/taskway/internal/platform/httpx"
	"github.com/taskway/taskway/internal/shared"
)

// Handler exposes task endpoints.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	resolver *guard.Resolver
	validate *validator.Validate
}

// NewHandler builds the tasks Handler.
func NewHandler(logger *slog.Logger, service *Service, resolver *guard.Resolver) *Handler {
	return &Handler{logger: logger, service: service, resolver: resolver, validate: validator.New()}
}

func (h *Handler) anyRole(r *http.Request) (*guard.Principal, error) {
	return h.resolver.Authorize(r.Context(), guard.RoleMember, guard.RoleStaff, guard.RoleAdmin)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	p, err := h.anyRole(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}

	rows, pagination, err := h.service.List(r.Context(), p, guard.ParseFilter(r, "status", "board_id"))
	if err != nil {
		h.logger.Error("list tasks failed", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}

	data := make([]TaskResponse, 0, len(rows))
	for _, row := range rows {
		data = append(data, toResponse(row))
	}
	httpx.List(w, pagination, data)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	p, err := h.anyRole(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}

	var req CreateTaskRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, shared.Errorf(shared.ErrValidation, "invalid body"))
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.RespondError(w, shared.Errorf(shared.ErrValidation, "invalid task"))
		return
	}

	input := CreateTask{BoardID: req.BoardID, Title: req.Title, Body: req.Body}
	if req.DueDate != "" {
		due, err := time.Parse(time.RFC3339, req.DueDate)
		if err != nil {
			httpx.RespondError(w, shared.Errorf(shared.ErrValidation, "invalid due_date"))
			return
		}
		input.DueDate = &due
	}

	task, err := h.service.Create(r.Context(), p, r.Header.Get("Idempotency-Key"), input)
	if err != nil {
		h.logger.Error("create task failed", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, toResponse(*task))
}

func (h *Handler) show(w http.ResponseWriter, r *http.Request) {
	p, err := h.anyRole(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}

	task, err := h.service.Get(r.Context(), p, chi.URLParam(r, "id"))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toResponse(*task))
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	p, err := h.anyRole(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}

	var req UpdateTaskRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, shared.Errorf(shared.ErrValidation, "invalid body"))
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.RespondError(w, shared.Errorf(shared.ErrValidation, "invalid task"))
		return
	}

	input := UpdateTask{Title: req.Title, Body: req.Body}
	if req.Status != nil {
		status := Status(*req.Status)
		input.Status = &status
	}
	if req.DueDate != nil {
		if *req.DueDate == "" {
			input.ClearDueDate = true
		} else {
			due, err := time.Parse(time.RFC3339, *req.DueDate)
			if err != nil {
				httpx.RespondError(w, shared.Errorf(shared.ErrValidation, "invalid due_date"))
				return
			}
			input.DueDate = &due
		}
	}

	task, err := h.service.Update(r.Context(), p, chi.URLParam(r, "id"), input)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toResponse(*task))
}

func (h *Handler) assign(w http.ResponseWriter, r *http.Request) {
	p, err := h.anyRole(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}

	var req AssignTaskRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, shared.Errorf(shared.ErrValidation, "invalid body"))
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.RespondError(w, shared.Errorf(shared.ErrValidation, "invalid assignment"))
		return
	}

	task, err := h.service.Assign(r.Context(), p, chi.URLParam(r, "id"), req.AccountID)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toResponse(*task))
}

func (h *Handler) unassign(w http.ResponseWriter, r *http.Request) {
	p, err := h.anyRole(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}

	task, err := h.service.Unassign(r.Context(), p, chi.URLParam(r, "id"))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toResponse(*task))
}

func (h *Handler) remove(w http.ResponseWriter, r *http.Request) {
	p, err := h.anyRole(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}

	if err := h.service.Delete(r.Context(), p, chi.URLParam(r, "id")); err != nil {
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
