package tabular

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"listing-ingest-service/internal/contextkeys"
	"listing-ingest-service/internal/core/domain"
	"listing-ingest-service/internal/core/port"
	"reflect"
	"strings"

	"github.com/jszwec/csvutil"
)

// listingRow - строка CSV по каноническим полям. Неизвестные колонки остаются только в Original.
type listingRow struct {
	DataSource       string `csv:"data_source"`
	SourcePropertyID string `csv:"source_property_id"`
	Status           string `csv:"status"`
	CommunityName    string `csv:"community_name"`
	Rooms            string `csv:"rooms"`
	Halls            string `csv:"halls"`
	Baths            string `csv:"baths"`
	Orientation      string `csv:"orientation"`
	FloorOriginal    string `csv:"floor_original"`
	BuildArea        string `csv:"build_area"`
	InnerArea        string `csv:"inner_area"`
	ListedPrice      string `csv:"listed_price"`
	ListedDate       string `csv:"listed_date"`
	SoldPrice        string `csv:"sold_price"`
	SoldDate         string `csv:"sold_date"`
	PropertyType     string `csv:"property_type"`
	BuildYear        string `csv:"build_year"`
	Structure        string `csv:"structure"`
	Decoration       string `csv:"decoration"`
	Elevator         string `csv:"elevator"`
	OwnershipType    string `csv:"ownership_type"`
	OwnershipYears   string `csv:"ownership_years"`
	HeatingMethod    string `csv:"heating_method"`
	Remarks          string `csv:"remarks"`
	ImageURLs        string `csv:"image_urls"`
	City             string `csv:"city"`
	District         string `csv:"district"`
	BusinessCircle   string `csv:"business_circle"`
}

// fields раскладывает строку по каноническим именам, пустые значения становятся nil
func (r listingRow) fields(present map[string]bool) map[string]*string {
	v := reflect.ValueOf(r)
	t := v.Type()
	out := make(map[string]*string, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		name := t.Field(i).Tag.Get("csv")
		if !present[name] {
			continue
		}
		out[name] = normalizeValue(name, v.Field(i).String())
	}
	return out
}

// Decoder разбирает загрузки в строки с каноническими полями
type Decoder struct{}

func NewDecoder() *Decoder {
	return &Decoder{}
}

func (d *Decoder) DecodeCSV(ctx context.Context, data []byte) (*domain.RawTable, error) {
	logger := contextkeys.LoggerFromContext(ctx).WithFields(port.Fields{
		"component": "TabularDecoder",
		"method":    "DecodeCSV",
	})

	text, charset := decodeText(data)
	delimiter := detectDelimiter(text)
	logger.Debug("Upload sniffed", port.Fields{"charset": charset, "delimiter": string(delimiter)})

	reader := csv.NewReader(strings.NewReader(text))
	reader.Comma = delimiter
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	rawHeader, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, &domain.FileProcessingError{Reason: "file has no header row", Err: domain.ErrEmptyUpload}
	}
	if err != nil {
		return nil, &domain.FileProcessingError{Reason: "header row could not be parsed", Err: err}
	}
	headerLine, _ := reader.FieldPos(0)

	columns, keys, present := buildHeader(rawHeader)
	if len(present) == 0 {
		return nil, &domain.FileProcessingError{Reason: "header contains no recognizable listing columns"}
	}

	rows := &paddedReader{r: reader, width: len(keys)}
	dec, err := csvutil.NewDecoder(rows, keys...)
	if err != nil {
		return nil, &domain.FileProcessingError{Reason: "header row could not be parsed", Err: err}
	}

	table := &domain.RawTable{Columns: originalColumns(columns)}
	for {
		var row listingRow
		err := dec.Decode(&row)
		if errors.Is(err, io.EOF) {
			break
		}
		// номер строки данных считается по строкам файла после заголовка, пустые строки тоже учитываются
		number := rows.line - headerLine
		if err != nil {
			return nil, &domain.FileProcessingError{Reason: fmt.Sprintf("row %d could not be parsed", number), Err: err}
		}

		record := dec.Record()
		if isBlank(record) {
			continue
		}

		original := make(map[string]any, len(columns))
		for i, c := range columns {
			if c.name == "" || i >= len(record) {
				continue
			}
			original[c.name] = record[i]
		}

		table.Rows = append(table.Rows, domain.RawRow{
			Number:   number,
			Original: original,
			Fields:   row.fields(present),
		})
	}

	logger.Debug("Upload decoded", port.Fields{"rows": len(table.Rows), "columns": len(table.Columns)})
	return table, nil
}

// column - исходная колонка загрузки; name пустое для колонок без имени
type column struct {
	name      string
	canonical string
}

// buildHeader сопоставляет исходные заголовки каноническим полям.
// keys - уникальные имена для csvutil: канонические там, где поле распознано,
// служебные для остальных. Повторное каноническое поле достается первой колонке.
func buildHeader(raw []string) ([]column, []string, map[string]bool) {
	columns := make([]column, len(raw))
	keys := make([]string, len(raw))
	present := make(map[string]bool)

	for i, h := range raw {
		name := strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
		columns[i].name = name
		keys[i] = fmt.Sprintf("_unmapped_%d", i)

		if name == "" {
			continue
		}
		if canonical, ok := domain.CanonicalField(name); ok && !present[canonical] {
			columns[i].canonical = canonical
			keys[i] = canonical
			present[canonical] = true
		}
	}
	return columns, keys, present
}

func originalColumns(columns []column) []string {
	out := make([]string, 0, len(columns))
	for _, c := range columns {
		if c.name != "" {
			out = append(out, c.name)
		}
	}
	return out
}

func isBlank(record []string) bool {
	for _, v := range record {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

// paddedReader выравнивает строки по ширине заголовка: csvutil требует одинаковое число полей.
// line - строка файла, с которой начинается последняя прочитанная запись.
type paddedReader struct {
	r     *csv.Reader
	width int
	line  int
}

func (p *paddedReader) Read() ([]string, error) {
	record, err := p.r.Read()
	if err != nil {
		if perr := (*csv.ParseError)(nil); errors.As(err, &perr) {
			p.line = perr.StartLine
		}
		return nil, err
	}
	p.line, _ = p.r.FieldPos(0)
	switch {
	case len(record) < p.width:
		record = append(record, make([]string, p.width-len(record))...)
	case len(record) > p.width:
		record = record[:p.width]
	}
	return record, nil
}
