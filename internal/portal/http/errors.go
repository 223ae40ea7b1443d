package http

import (
	"errors"
	"net/http"

	"github.com/pointerhq/portal/internal/portal/idp"
	"github.com/pointerhq/portal/internal/portal/service"
	"github.com/pointerhq/portal/internal/portal/store"
	"github.com/pointerhq/portal/pkg/httpx"
	"github.com/pointerhq/portal/pkg/slogx"
)

// writeServiceError maps the service error taxonomy to HTTP statuses. Known
// business errors carry a specific status; unexpected provider failures come
// back as 502 so callers can tell "you sent garbage" from "Keycloak is down".
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var provErr *idp.ProviderError

	switch {
	case errors.Is(err, service.ErrUserNotFound),
		errors.Is(err, service.ErrAnnouncementNotFound),
		errors.Is(err, store.ErrNotFound):
		httpx.WriteError(w, http.StatusNotFound, "not_found", "Resource not found")

	case errors.Is(err, idp.ErrAccountAlreadyExists),
		errors.Is(err, store.ErrAlreadyExists):
		httpx.WriteError(w, http.StatusConflict, "already_exists", "Account already exists")

	case errors.Is(err, idp.ErrEmailInvalid):
		httpx.WriteError(w, http.StatusUnprocessableEntity, "email_invalid", "Email address is invalid")

	case errors.Is(err, idp.ErrWeakPassword):
		httpx.WriteError(w, http.StatusUnprocessableEntity, "weak_password", "Password does not meet the minimum policy")

	case errors.Is(err, idp.ErrUnknownRole):
		httpx.WriteError(w, http.StatusUnprocessableEntity, "unknown_role", "Requested role does not exist")

	case errors.Is(err, idp.ErrInvalidArgument):
		httpx.WriteError(w, http.StatusBadRequest, "invalid_argument", "Invalid request")

	case errors.As(err, &provErr):
		slogx.FromContext(r.Context()).Error("identity provider failure", "error", err)
		httpx.WriteError(w, http.StatusBadGateway, "identity_provider_error", "Identity provider request failed")

	default:
		slogx.FromContext(r.Context()).Error("unhandled service error", "error", err)
		httpx.WriteError(w, http.StatusInternalServerError, "server_error", "Internal server error")
	}
}
