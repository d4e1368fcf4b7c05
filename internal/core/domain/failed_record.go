package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type FailureType string

const (
	FailureValidation     FailureType = "validation_error"
	FailureIntegrity      FailureType = "integrity_error"
	FailureUnknown        FailureType = "unknown_error"
	FailureFileProcessing FailureType = "file_processing_error"
)

// FailedRecord - строка, которую не удалось сохранить. Разбирается оператором вручную.
type FailedRecord struct {
	ID          uuid.UUID       `json:"id"`
	Payload     json.RawMessage `json:"payload"`
	FailureType FailureType     `json:"failure_type"`
	Reason      string          `json:"reason"`
	DataSource  string          `json:"data_source,omitempty"`
	IsHandled   bool            `json:"is_handled"`
	CreatedAt   time.Time       `json:"created_at"`
	HandledAt   *time.Time      `json:"handled_at,omitempty"`
}

// NewFailedRecord сериализует исходные данные и классифицирует ошибку
func NewFailedRecord(payload any, dataSource string, cause error) FailedRecord {
	raw, err := json.Marshal(payload)
	if err != nil {
		raw, _ = json.Marshal(map[string]string{"unserializable_payload": err.Error()})
	}
	return FailedRecord{
		ID:          uuid.New(),
		Payload:     raw,
		FailureType: ClassifyFailure(cause),
		Reason:      FailureReason(cause),
		DataSource:  dataSource,
		CreatedAt:   time.Now().UTC(),
	}
}
