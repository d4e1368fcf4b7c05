package rest

import (
	"encoding/json"
	"listing-ingest-service/internal/core/domain"
	"listing-ingest-service/internal/core/port/usecases_port"
	"net/http"

	"github.com/google/uuid"
)

type MergeHandler struct {
	mergeUC usecases_port.MergeCommunitiesUseCase
}

func NewMergeHandler(mergeUC usecases_port.MergeCommunitiesUseCase) *MergeHandler {
	return &MergeHandler{mergeUC: mergeUC}
}

func (h *MergeHandler) Merge(w http.ResponseWriter, r *http.Request) {
	var req MergeRequestDTO
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(&req); err != nil {
		WriteJSONError(w, http.StatusBadRequest, "request body must be {\"primary_id\": ..., \"merge_ids\": [...]}")
		return
	}

	verr := domain.NewValidationError()
	var mergeReq domain.MergeRequest

	if req.PrimaryID != "" {
		id, err := uuid.Parse(req.PrimaryID)
		if err != nil {
			verr.Add("primary_id", "must be a valid UUID")
		}
		mergeReq.PrimaryID = id
	}
	for _, raw := range req.MergeIDs {
		id, err := uuid.Parse(raw)
		if err != nil {
			verr.Add("merge_ids", "every id must be a valid UUID")
			continue
		}
		mergeReq.MergeIDs = append(mergeReq.MergeIDs, id)
	}
	if verr.HasErrors() {
		writeError(w, r, verr)
		return
	}

	res, err := h.mergeUC.Merge(r.Context(), mergeReq)
	if err != nil {
		writeError(w, r, err)
		return
	}

	RespondWithJSON(w, http.StatusOK, MergeResponse{
		Success:            res.Success,
		AffectedProperties: res.AffectedProperties,
		Message:            res.Message,
	})
}
