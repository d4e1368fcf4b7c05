package rest

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"listing-ingest-service/internal/contextkeys"
	"listing-ingest-service/internal/contracts"
	"listing-ingest-service/internal/core/port"
	"listing-ingest-service/internal/core/port/usecases_port"
	"net/http"

	"github.com/go-chi/chi/v5"
)

const multipartMemory = 8 << 20

type ImportHandler struct {
	importUC       usecases_port.ImportListingsUseCase
	uploadMaxBytes int64
	errorsLimit    int
}

func NewImportHandler(importUC usecases_port.ImportListingsUseCase, uploadMaxBytes int64, errorsLimit int) *ImportHandler {
	if uploadMaxBytes <= 0 {
		uploadMaxBytes = 32 << 20
	}
	if errorsLimit <= 0 {
		errorsLimit = 100
	}
	return &ImportHandler{importUC: importUC, uploadMaxBytes: uploadMaxBytes, errorsLimit: errorsLimit}
}

// ImportCSV принимает multipart-поле "file"
func (h *ImportHandler) ImportCSV(w http.ResponseWriter, r *http.Request) {
	logger := contextkeys.LoggerFromContext(r.Context()).WithFields(port.Fields{"handler": "ImportCSV"})

	if r.ContentLength > h.uploadMaxBytes {
		WriteJSONError(w, http.StatusRequestEntityTooLarge, fmt.Sprintf("upload exceeds %d bytes", h.uploadMaxBytes))
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, h.uploadMaxBytes)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			WriteJSONError(w, http.StatusRequestEntityTooLarge, fmt.Sprintf("upload exceeds %d bytes", h.uploadMaxBytes))
			return
		}
		WriteJSONError(w, http.StatusBadRequest, "request must be multipart/form-data with a \"file\" field")
		return
	}
	defer func() {
		if r.MultipartForm != nil {
			_ = r.MultipartForm.RemoveAll()
		}
	}()

	file, header, err := r.FormFile("file")
	if err != nil {
		WriteJSONError(w, http.StatusBadRequest, "\"file\" field is required")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		WriteJSONError(w, http.StatusBadRequest, "uploaded file could not be read")
		return
	}

	res, err := h.importUC.ImportCSV(r.Context(), header.Filename, data)
	if err != nil {
		logger.Warn("CSV import rejected", port.Fields{"filename": header.Filename, "error": err.Error()})
		writeError(w, r, err)
		return
	}

	RespondWithJSON(w, http.StatusOK, CSVImportResponse{
		ImportID:      res.ImportID.String(),
		Total:         res.Total,
		Success:       res.SuccessCount,
		Failed:        res.FailedCount,
		FailedFileURL: res.FailedFileURL,
	})
}

// ImportJSON принимает массив сырых объектов
func (h *ImportHandler) ImportJSON(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, h.uploadMaxBytes))
	if err != nil {
		writeError(w, r, err)
		return
	}

	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	var doc any
	if err := dec.Decode(&doc); err != nil {
		WriteJSONError(w, http.StatusBadRequest, "request body is not valid JSON")
		return
	}
	if dec.More() {
		WriteJSONError(w, http.StatusBadRequest, "request body must contain a single JSON array")
		return
	}

	if err := contracts.ValidateListingBatch(doc); err != nil {
		writeError(w, r, err)
		return
	}

	items := doc.([]any)
	records := make([]map[string]any, len(items))
	for i, item := range items {
		records[i] = item.(map[string]any)
	}

	res, err := h.importUC.ImportRecords(r.Context(), records)
	if err != nil {
		writeError(w, r, err)
		return
	}

	RespondWithJSON(w, http.StatusOK, toJSONImportResponse(res, h.errorsLimit))
}

// ImportRecord принимает один сырой объект. Сбой строки отдается как 422 с причиной.
func (h *ImportHandler) ImportRecord(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, h.uploadMaxBytes))
	if err != nil {
		writeError(w, r, err)
		return
	}

	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	var doc any
	if err := dec.Decode(&doc); err != nil || dec.More() {
		WriteJSONError(w, http.StatusBadRequest, "request body must contain a single JSON object")
		return
	}
	record, ok := doc.(map[string]any)
	if !ok {
		WriteJSONError(w, http.StatusBadRequest, "request body must contain a single JSON object")
		return
	}
	if err := contracts.ValidateListingBatch([]any{record}); err != nil {
		writeError(w, r, err)
		return
	}

	res, err := h.importUC.ImportRecord(r.Context(), record)
	if err != nil {
		writeError(w, r, err)
		return
	}

	status := http.StatusOK
	if !res.Success {
		status = http.StatusUnprocessableEntity
	}
	RespondWithJSON(w, status, toRecordImportResponse(res))
}

func (h *ImportHandler) DownloadFailureFile(w http.ResponseWriter, r *http.Request) {
	fileID := chi.URLParam(r, "fileID")

	data, err := h.importUC.GetFailureFile(r.Context(), fileID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=\"failed_rows_%s.csv\"", fileID))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

