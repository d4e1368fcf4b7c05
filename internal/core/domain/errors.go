package domain

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	ErrCommunityNotFound    = errors.New("community not found")
	ErrPropertyNotFound     = errors.New("property not found")
	ErrFailedRecordNotFound = errors.New("failed record not found")
	ErrInvalidMergeRequest  = errors.New("invalid merge request")
	ErrUnsupportedFile      = errors.New("only .csv files are supported")
	ErrEmptyUpload          = errors.New("upload contains no data rows")
	ErrBatchTooLarge        = errors.New("batch exceeds maximum number of records")
	ErrFailureFileNotFound  = errors.New("failure file not found or expired")

	// ErrIntegrity - маркер для нарушений уникальности/внешних ключей на стороне хранилища
	ErrIntegrity = errors.New("integrity violation")
)

// ValidationError - нарушение схемы или бизнес-правила. Fields: поле -> сообщение.
type ValidationError struct {
	Fields map[string]string
}

func NewValidationError() *ValidationError {
	return &ValidationError{Fields: make(map[string]string)}
}

// Add добавляет сообщение; первое сообщение для поля сохраняется
func (e *ValidationError) Add(field, message string) {
	if _, exists := e.Fields[field]; !exists {
		e.Fields[field] = message
	}
}

func (e *ValidationError) HasErrors() bool {
	return e != nil && len(e.Fields) > 0
}

// Error выводит поля в стабильном порядке
func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s: %s", k, e.Fields[k]))
	}
	return strings.Join(parts, "; ")
}

// IntegrityError - нарушение ограничения БД, переведенное в понятный оператору текст
type IntegrityError struct {
	Constraint string
	Message    string
	Err        error
}

func (e *IntegrityError) Error() string {
	return e.Message
}

func (e *IntegrityError) Unwrap() []error {
	return []error{ErrIntegrity, e.Err}
}

// FileProcessingError - содержимое файла нельзя разобрать ни в одну строку
type FileProcessingError struct {
	Reason string
	Err    error
}

func (e *FileProcessingError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Reason, e.Err)
	}
	return e.Reason
}

func (e *FileProcessingError) Unwrap() error {
	return e.Err
}

// ClassifyFailure сопоставляет ошибку с типом сбоя для FailedRecord
func ClassifyFailure(err error) FailureType {
	var validationErr *ValidationError
	var fileErr *FileProcessingError
	switch {
	case err == nil:
		return FailureUnknown
	case errors.As(err, &validationErr):
		return FailureValidation
	case errors.As(err, &fileErr):
		return FailureFileProcessing
	case errors.Is(err, ErrIntegrity):
		return FailureIntegrity
	default:
		return FailureUnknown
	}
}

// FailureReason возвращает текст для оператора, без сырых сообщений драйвера
func FailureReason(err error) string {
	var validationErr *ValidationError
	var integrityErr *IntegrityError
	var fileErr *FileProcessingError
	switch {
	case err == nil:
		return ""
	case errors.As(err, &validationErr):
		return "validation failed: " + validationErr.Error()
	case errors.As(err, &integrityErr):
		return "data conflict: " + integrityErr.Message
	case errors.As(err, &fileErr):
		return "file could not be processed: " + fileErr.Reason
	default:
		return "unexpected error while saving the record"
	}
}
