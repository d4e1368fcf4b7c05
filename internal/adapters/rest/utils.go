package rest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"listing-ingest-service/internal/contextkeys"
	"listing-ingest-service/internal/contracts"
	"listing-ingest-service/internal/core/domain"
	"net/http"
	"strconv"
)

const (
	defaultLimit = 20
	maxLimit     = 500
)

// WriteJSONError отправляет JSON-ответ с полем "error" и заданным статусом
func WriteJSONError(w http.ResponseWriter, statusCode int, message string) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(ErrorResponse{Error: message})
}

func RespondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	response, err := json.Marshal(payload)
	if err != nil {
		http.Error(w, "Failed to marshal JSON response", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_, _ = w.Write(response)
}

// writeError переводит ошибку use case в HTTP-статус. Текст 5xx не раскрывает внутренние детали.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		validationErr *domain.ValidationError
		fileErr       *domain.FileProcessingError
		integrityErr  *domain.IntegrityError
		maxBytesErr   *http.MaxBytesError
	)

	switch {
	case errors.Is(err, domain.ErrBatchTooLarge), errors.As(err, &maxBytesErr):
		WriteJSONError(w, http.StatusRequestEntityTooLarge, err.Error())
	case errors.As(err, &fileErr):
		WriteJSONError(w, http.StatusBadRequest, domain.FailureReason(err))
	case errors.Is(err, domain.ErrUnsupportedFile),
		errors.Is(err, domain.ErrEmptyUpload),
		errors.Is(err, contracts.ErrContractViolation):
		WriteJSONError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrInvalidMergeRequest), errors.As(err, &validationErr):
		WriteJSONError(w, http.StatusBadRequest, mergeValidationMessage(err))
	case errors.As(err, &integrityErr):
		WriteJSONError(w, http.StatusConflict, "data conflict: "+integrityErr.Message)
	case errors.Is(err, domain.ErrFailureFileNotFound),
		errors.Is(err, domain.ErrFailedRecordNotFound),
		errors.Is(err, domain.ErrCommunityNotFound):
		WriteJSONError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, context.Canceled):
		WriteJSONError(w, http.StatusServiceUnavailable, "request was cancelled before completion")
	default:
		contextkeys.LoggerFromContext(r.Context()).Error("Request failed", err, nil)
		WriteJSONError(w, http.StatusInternalServerError, "internal server error")
	}
}

func mergeValidationMessage(err error) string {
	var validationErr *domain.ValidationError
	if errors.As(err, &validationErr) {
		return "invalid merge request: " + validationErr.Error()
	}
	return err.Error()
}

func GetLimitOrDefault(r *http.Request) (int, error) {
	return intQuery(r, "limit", defaultLimit, 1, maxLimit)
}

func GetOffsetOrDefault(r *http.Request) (int, error) {
	return intQuery(r, "offset", 0, 0, -1)
}

// intQuery читает целый параметр; max < 0 означает отсутствие верхней границы
func intQuery(r *http.Request, name string, def, min, max int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("query parameter %q must be an integer", name)
	}
	if v < min || (max >= 0 && v > max) {
		if max >= 0 {
			return 0, fmt.Errorf("query parameter %q must be between %d and %d", name, min, max)
		}
		return 0, fmt.Errorf("query parameter %q must be at least %d", name, min)
	}
	return v, nil
}
