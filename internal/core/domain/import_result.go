package domain

import (
	"time"

	"github.com/google/uuid"
)

// FailedRow - строка, попавшая в отчет об ошибках импорта
type FailedRow struct {
	RowNumber int            `json:"row_number"`
	RawData   map[string]any `json:"raw_data"`
	Reason    string         `json:"reason"`
}

// ImportResult - итог пакетного импорта
type ImportResult struct {
	ImportID      uuid.UUID   `json:"import_id"`
	Total         int         `json:"total"`
	SuccessCount  int         `json:"success_count"`
	FailedCount   int         `json:"failed_count"`
	FailedRecords []FailedRow `json:"failed_records"`
	FailedFileURL string      `json:"failed_file_url,omitempty"`
	Columns       []string    `json:"-"`
}

// ImportSummary - событие о завершенном импорте или слиянии для внешних подписчиков
type ImportSummary struct {
	ImportID   uuid.UUID `json:"import_id"`
	Kind       string    `json:"kind"`
	Total      int       `json:"total"`
	Success    int       `json:"success"`
	Failed     int       `json:"failed"`
	FinishedAt time.Time `json:"finished_at"`
}

// MergeSummary - событие о выполненном слиянии сообществ
type MergeSummary struct {
	PrimaryID          uuid.UUID   `json:"primary_id"`
	MergedIDs          []uuid.UUID `json:"merged_ids"`
	AffectedProperties int64       `json:"affected_properties"`
	FinishedAt         time.Time   `json:"finished_at"`
}
