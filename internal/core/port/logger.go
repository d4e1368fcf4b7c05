package port

// Fields - структурированные поля записи лога
type Fields map[string]interface{}

// Merge возвращает новую карту: поля f, перекрытые полями other. Исходные карты не меняются.
func (f Fields) Merge(other Fields) Fields {
	merged := make(Fields, len(f)+len(other))
	for k, v := range f {
		merged[k] = v
	}
	for k, v := range other {
		merged[k] = v
	}
	return merged
}

// LoggerPort - логгер ядра. Адаптеры: slog (stdout), fluent-bit и их объединение.
type LoggerPort interface {
	Debug(msg string, fields Fields)
	Info(msg string, fields Fields)
	Warn(msg string, fields Fields)
	Error(msg string, err error, fields Fields)

	// WithFields возвращает логгер, добавляющий fields к каждой записи
	WithFields(fields Fields) LoggerPort
}
