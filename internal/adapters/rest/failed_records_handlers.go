package rest

import (
	"listing-ingest-service/internal/core/port/usecases_port"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

type FailedRecordsHandler struct {
	failedUC usecases_port.FailedRecordsUseCase
}

func NewFailedRecordsHandler(failedUC usecases_port.FailedRecordsUseCase) *FailedRecordsHandler {
	return &FailedRecordsHandler{failedUC: failedUC}
}

func (h *FailedRecordsHandler) ListUnhandled(w http.ResponseWriter, r *http.Request) {
	limit, err := GetLimitOrDefault(r)
	if err != nil {
		WriteJSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	offset, err := GetOffsetOrDefault(r)
	if err != nil {
		WriteJSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	items, total, err := h.failedUC.ListUnhandled(r.Context(), limit, offset)
	if err != nil {
		writeError(w, r, err)
		return
	}

	RespondWithJSON(w, http.StatusOK, FailedRecordsResponse{Items: items, Total: total, Limit: limit, Offset: offset})
}

func (h *FailedRecordsHandler) MarkHandled(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		WriteJSONError(w, http.StatusBadRequest, "id must be a valid UUID")
		return
	}

	if err := h.failedUC.MarkHandled(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
