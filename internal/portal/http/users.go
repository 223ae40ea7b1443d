package http

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/pointerhq/portal/internal/portal/service"
	"github.com/pointerhq/portal/internal/portal/store"
	"github.com/pointerhq/portal/pkg/httpx"
	"github.com/pointerhq/portal/pkg/slogx"
)

type UsersHandler struct {
	UserService *service.UserService
}

func (h *UsersHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req createUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "Malformed JSON body")
		return
	}

	user, err := h.UserService.Create(r.Context(), service.CreateUserInput{
		Name:     req.Nome,
		Email:    req.Email,
		Password: req.Senha,
		CPF:      req.CPF,
		JobTitle: req.Cargo,
		Sector:   req.Setor,
		Profile:  req.Perfil,
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, toUserResponse(user))
}

func (h *UsersHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	page, _ := strconv.Atoi(q.Get("page"))
	size, _ := strconv.Atoi(q.Get("size"))

	filter := store.UserFilter{
		Sector:  q.Get("setor"),
		Profile: q.Get("perfil"),
	}
	if status := q.Get("status"); status != "" {
		active, err := strconv.ParseBool(status)
		if err != nil {
			httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "status must be true or false")
			return
		}
		filter.Active = &active
	}

	result, err := h.UserService.List(r.Context(), filter, page, size)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, toUserPageResponse(result))
}

func (h *UsersHandler) HandleToggleStatus(w http.ResponseWriter, r *http.Request) {
	var req toggleStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Email == "" {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "Body must carry an email")
		return
	}

	if _, err := h.UserService.ToggleStatus(r.Context(), req.Email); err != nil {
		writeServiceError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *UsersHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	var req updateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Email == "" {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "Body must carry an email")
		return
	}

	user, err := h.UserService.UpdateWithSync(r.Context(), service.UpdateUserInput{
		Email:    req.Email,
		Name:     req.Nome,
		CPF:      req.CPF,
		JobTitle: req.Cargo,
		Sector:   req.Setor,
		Profile:  req.Perfil,
		Active:   req.Status,
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, toUserResponse(user))
}

func (h *UsersHandler) HandleResetPassword(w http.ResponseWriter, r *http.Request) {
	var req resetPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Email == "" {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "Body must carry an email")
		return
	}

	if err := h.UserService.ResetPassword(r.Context(), req.Email); err != nil {
		writeServiceError(w, r, err)
		return
	}

	slogx.FromContext(r.Context()).Info("password reset dispatched", "email", req.Email)
	w.WriteHeader(http.StatusNoContent)
}

func (h *UsersHandler) HandleUpdatePassword(w http.ResponseWriter, r *http.Request) {
	var req updatePasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Email == "" {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "Body must carry an email and senha")
		return
	}

	// Self-service only: a caller may change their own password. Changing
	// someone else's requires the admin role.
	caller := httpx.EmailFromContext(r.Context())
	if !strings.EqualFold(caller, req.Email) && !httpx.HasRole(r.Context(), "admin") {
		httpx.WriteError(w, http.StatusForbidden, "forbidden", "Cannot change another user's password")
		return
	}

	if err := h.UserService.UpdatePassword(r.Context(), req.Email, req.Senha); err != nil {
		writeServiceError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
