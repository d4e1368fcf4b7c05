package rest

import (
	"listing-ingest-service/internal/core/domain"
)

type ErrorResponse struct {
	Error string `json:"error"`
}

// CSVImportResponse - ответ на загрузку CSV
type CSVImportResponse struct {
	ImportID      string `json:"import_id"`
	Total         int    `json:"total"`
	Success       int    `json:"success"`
	Failed        int    `json:"failed"`
	FailedFileURL string `json:"failed_file_url,omitempty"`
}

type ImportErrorDTO struct {
	Row     int            `json:"row"`
	Reason  string         `json:"reason"`
	RawData map[string]any `json:"raw_data,omitempty"`
}

// JSONImportResponse - ответ на JSON-пакет. Errors обрезается до лимита, ErrorsTruncated это отмечает.
type JSONImportResponse struct {
	ImportID        string           `json:"import_id"`
	Total           int              `json:"total"`
	Success         int              `json:"success"`
	Failed          int              `json:"failed"`
	Errors          []ImportErrorDTO `json:"errors"`
	ErrorsTruncated bool             `json:"errors_truncated,omitempty"`
}

func toJSONImportResponse(res *domain.ImportResult, errorsLimit int) JSONImportResponse {
	out := JSONImportResponse{
		ImportID: res.ImportID.String(),
		Total:    res.Total,
		Success:  res.SuccessCount,
		Failed:   res.FailedCount,
		Errors:   make([]ImportErrorDTO, 0, min(len(res.FailedRecords), errorsLimit)),
	}
	for i, row := range res.FailedRecords {
		if i >= errorsLimit {
			out.ErrorsTruncated = true
			break
		}
		out.Errors = append(out.Errors, ImportErrorDTO{Row: row.RowNumber, Reason: row.Reason, RawData: row.RawData})
	}
	return out
}

// RecordImportResponse - ответ на одиночную запись
type RecordImportResponse struct {
	Success    bool   `json:"success"`
	PropertyID string `json:"property_id,omitempty"`
	Created    bool   `json:"created"`
	ChangeType string `json:"change_type,omitempty"`
	Reason     string `json:"reason,omitempty"`
}

func toRecordImportResponse(res domain.UpsertResult) RecordImportResponse {
	out := RecordImportResponse{
		Success:    res.Success,
		Created:    res.Created,
		ChangeType: string(res.ChangeType),
		Reason:     res.Reason,
	}
	if res.Success {
		out.PropertyID = res.PropertyID.String()
	}
	return out
}

type MergeRequestDTO struct {
	PrimaryID string   `json:"primary_id"`
	MergeIDs  []string `json:"merge_ids"`
}

type MergeResponse struct {
	Success            bool   `json:"success"`
	AffectedProperties int64  `json:"affected_properties"`
	Message            string `json:"message"`
}

type FailedRecordsResponse struct {
	Items  []domain.FailedRecord `json:"items"`
	Total  int64                 `json:"total"`
	Limit  int                   `json:"limit"`
	Offset int                   `json:"offset"`
}
