package failurefile

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"listing-ingest-service/internal/contextkeys"
	"listing-ingest-service/internal/core/domain"
	"listing-ingest-service/internal/core/port"
	"time"

	"github.com/google/uuid"
	gocache "github.com/patrickmn/go-cache"
)

// ReasonColumn - колонка с причиной сбоя, добавляется последней
const ReasonColumn = "error_reason"

// Store хранит CSV со сбойными строками в памяти процесса до истечения TTL
type Store struct {
	files     *gocache.Cache
	urlPrefix string
}

// NewStore: urlPrefix - путь скачивания, к нему дописывается идентификатор файла
func NewStore(ttl time.Duration, urlPrefix string) *Store {
	return &Store{
		files:     gocache.New(ttl, ttl),
		urlPrefix: urlPrefix,
	}
}

func (s *Store) Save(ctx context.Context, columns []string, rows []domain.FailedRow) (string, error) {
	logger := contextkeys.LoggerFromContext(ctx).WithFields(port.Fields{
		"component": "FailureFileStore",
		"method":    "Save",
	})

	content, err := render(columns, rows)
	if err != nil {
		return "", fmt.Errorf("failed to render failure file: %w", err)
	}

	id := uuid.NewString()
	s.files.Set(id, content, gocache.DefaultExpiration)

	logger.Info("Failure file stored", port.Fields{"file_id": id, "rows": len(rows), "bytes": len(content)})
	return s.urlPrefix + id, nil
}

func (s *Store) Get(ctx context.Context, fileID string) ([]byte, error) {
	v, ok := s.files.Get(fileID)
	if !ok {
		return nil, domain.ErrFailureFileNotFound
	}
	return v.([]byte), nil
}

// render пишет исходные колонки в исходном порядке и причину сбоя.
// Файл начинается с UTF-8 BOM.
func render(columns []string, rows []domain.FailedRow) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString("\ufeff")

	w := csv.NewWriter(&buf)
	header := append(append([]string{}, columns...), ReasonColumn)
	if err := w.Write(header); err != nil {
		return nil, err
	}

	record := make([]string, len(header))
	for _, row := range rows {
		for i, c := range columns {
			record[i] = cell(row.RawData[c])
		}
		record[len(columns)] = row.Reason
		if err := w.Write(record); err != nil {
			return nil, err
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func cell(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	default:
		raw, err := json.Marshal(val)
		if err != nil {
			return fmt.Sprint(val)
		}
		return string(raw)
	}
}
