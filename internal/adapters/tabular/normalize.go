package tabular

import (
	"fmt"
	"listing-ingest-service/internal/core/domain"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/araddon/dateparse"
	"golang.org/x/text/width"
)

var datePattern = regexp.MustCompile(`^(\d{4})\s*[-/.年]\s*(\d{1,2})\s*[-/.月]\s*(\d{1,2})\s*日?(?:[\sT]+(\d{1,2}):(\d{1,2})(?::(\d{1,2}))?)?$`)

// normalizeValue обрезает пробелы, пустое значение превращает в nil,
// даты приводит к ISO-8601
func normalizeValue(field, raw string) *string {
	v := strings.TrimSpace(raw)
	if v == "" {
		return nil
	}
	if domain.DateFields[field] {
		v = normalizeDate(v)
	}
	return &v
}

// normalizeDate: сначала прямой разбор после унификации разделителей и дополнения нулями,
// затем нечеткий разбор. Неразобранное значение возвращается без изменений.
func normalizeDate(raw string) string {
	s := width.Narrow.String(strings.TrimSpace(raw))

	if m := datePattern.FindStringSubmatch(s); m != nil {
		n := make([]int, len(m))
		for i := 1; i < len(m); i++ {
			n[i], _ = strconv.Atoi(m[i])
		}
		candidate := fmt.Sprintf("%04d-%02d-%02d", n[1], n[2], n[3])
		layout := "2006-01-02"
		if m[4] != "" {
			candidate += fmt.Sprintf("T%02d:%02d:%02d", n[4], n[5], n[6])
			layout = "2006-01-02T15:04:05"
		}
		if _, err := time.Parse(layout, candidate); err == nil {
			return candidate
		}
	}

	t, err := dateparse.ParseAny(s)
	if err != nil {
		return raw
	}
	if t.Hour() == 0 && t.Minute() == 0 && t.Second() == 0 {
		return t.Format("2006-01-02")
	}
	return t.Format("2006-01-02T15:04:05")
}
