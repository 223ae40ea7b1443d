package http

import (
	"encoding/json"
	"net/http"

	"github.com/pointerhq/portal/internal/portal/service"
	"github.com/pointerhq/portal/pkg/httpx"
)

type AnnouncementsHandler struct {
	AnnouncementService *service.AnnouncementService
}

func (h *AnnouncementsHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	all, err := h.AnnouncementService.ListAll(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	out := make([]announcementResponse, len(all))
	for i, a := range all {
		out[i] = toAnnouncementResponse(a)
	}
	httpx.WriteJSON(w, http.StatusOK, out)
}

func (h *AnnouncementsHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	a, err := h.AnnouncementService.GetByID(r.Context(), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toAnnouncementResponse(a))
}

func (h *AnnouncementsHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req announcementRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "Malformed JSON body")
		return
	}
	if req.Titulo == "" {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "titulo is required")
		return
	}

	a, err := h.AnnouncementService.Create(r.Context(), req.toInput())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, toAnnouncementResponse(a))
}

func (h *AnnouncementsHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	var req announcementRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "Malformed JSON body")
		return
	}

	a, err := h.AnnouncementService.Update(r.Context(), r.PathValue("id"), req.toInput())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toAnnouncementResponse(a))
}

func (h *AnnouncementsHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	if err := h.AnnouncementService.Delete(r.Context(), r.PathValue("id")); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleMarkRead records that the authenticated caller read the announcement.
// The caller is resolved through the email claim on their token.
func (h *AnnouncementsHandler) HandleMarkRead(w http.ResponseWriter, r *http.Request) {
	email := httpx.EmailFromContext(r.Context())
	if email == "" {
		httpx.WriteError(w, http.StatusUnauthorized, "invalid_token", "Missing email claim")
		return
	}

	if err := h.AnnouncementService.MarkRead(r.Context(), r.PathValue("id"), email); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *AnnouncementsHandler) HandleListReaders(w http.ResponseWriter, r *http.Request) {
	readers, err := h.AnnouncementService.ListReaders(r.Context(), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toReaderResponses(readers))
}
