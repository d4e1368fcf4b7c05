package tabular

import (
	"context"
	"encoding/json"
	"fmt"
	"listing-ingest-service/internal/contextkeys"
	"listing-ingest-service/internal/core/domain"
	"listing-ingest-service/internal/core/port"
	"sort"
	"strconv"
)

// DecodeRecords приводит JSON-объекты к тем же строкам, что и CSV.
// Порядок колонок - порядок первого появления ключей (внутри объекта - по алфавиту).
func (d *Decoder) DecodeRecords(ctx context.Context, records []map[string]any) (*domain.RawTable, error) {
	logger := contextkeys.LoggerFromContext(ctx).WithFields(port.Fields{
		"component": "TabularDecoder",
		"method":    "DecodeRecords",
	})

	table := &domain.RawTable{Rows: make([]domain.RawRow, 0, len(records))}
	seenColumns := make(map[string]bool)

	for i, record := range records {
		keys := make([]string, 0, len(record))
		for k := range record {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		fields := make(map[string]*string)
		for _, k := range keys {
			if !seenColumns[k] {
				seenColumns[k] = true
				table.Columns = append(table.Columns, k)
			}

			canonical, ok := domain.CanonicalField(k)
			if !ok {
				continue
			}
			value, err := stringify(record[k])
			if err != nil {
				return nil, &domain.FileProcessingError{
					Reason: fmt.Sprintf("record %d: field %q has unsupported value", i+1, k),
					Err:    err,
				}
			}
			// первое непустое значение побеждает, если поле пришло под несколькими именами
			if existing, dup := fields[canonical]; dup && existing != nil {
				continue
			}
			fields[canonical] = normalizeValue(canonical, value)
		}

		table.Rows = append(table.Rows, domain.RawRow{
			Number:   i + 1,
			Original: record,
			Fields:   fields,
		})
	}

	logger.Debug("Batch decoded", port.Fields{"rows": len(table.Rows), "columns": len(table.Columns)})
	return table, nil
}

func stringify(v any) (string, error) {
	switch val := v.(type) {
	case nil:
		return "", nil
	case string:
		return val, nil
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64), nil
	case json.Number:
		return val.String(), nil
	case bool:
		return strconv.FormatBool(val), nil
	case int:
		return strconv.Itoa(val), nil
	case []any, map[string]any:
		raw, err := json.Marshal(val)
		if err != nil {
			return "", err
		}
		return string(raw), nil
	default:
		return fmt.Sprint(val), nil
	}
}
