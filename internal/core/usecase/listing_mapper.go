package usecase

import (
	"encoding/json"
	"errors"
	"fmt"
	"listing-ingest-service/internal/core/domain"
	"reflect"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// ListingMapper переводит строку загрузки в domain.ListingInput и валидирует ее.
// Один экземпляр безопасен для конкурентного использования.
type ListingMapper struct {
	validate *validator.Validate
}

func NewListingMapper() *ListingMapper {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	v.RegisterStructValidation(listingStructLevel, domain.ListingInput{})

	return &ListingMapper{validate: v}
}

// Map разбирает значения и проверяет бизнес-правила. Ошибка всегда *domain.ValidationError.
func (m *ListingMapper) Map(row domain.RawRow) (domain.ListingInput, error) {
	verr := domain.NewValidationError()
	p := fieldParser{row: row, verr: verr}

	in := domain.ListingInput{
		DataSource:       row.Value(domain.FieldDataSource),
		SourcePropertyID: row.Value(domain.FieldSourcePropertyID),
		Status:           p.asStatus(domain.FieldStatus),
		CommunityName:    strings.TrimSpace(row.Value(domain.FieldCommunityName)),
		Rooms:            p.asInt(domain.FieldRooms),
		Halls:            p.asInt(domain.FieldHalls),
		Baths:            p.asInt(domain.FieldBaths),
		Orientation:      row.Value(domain.FieldOrientation),
		FloorOriginal:    row.Value(domain.FieldFloorOriginal),
		BuildArea:        p.asFloat(domain.FieldBuildArea),
		InnerArea:        p.asFloat(domain.FieldInnerArea),
		ListedPrice:      p.asFloat(domain.FieldListedPrice),
		ListedDate:       p.asDate(domain.FieldListedDate),
		SoldPrice:        p.asFloat(domain.FieldSoldPrice),
		SoldDate:         p.asDate(domain.FieldSoldDate),
		PropertyType:     p.asStr(domain.FieldPropertyType),
		BuildYear:        p.asInt(domain.FieldBuildYear),
		Structure:        p.asStr(domain.FieldStructure),
		Decoration:       p.asStr(domain.FieldDecoration),
		Elevator:         p.asBool(domain.FieldElevator),
		OwnershipType:    p.asStr(domain.FieldOwnershipType),
		OwnershipYears:   p.asInt(domain.FieldOwnershipYears),
		HeatingMethod:    p.asStr(domain.FieldHeatingMethod),
		Remarks:          p.asStr(domain.FieldRemarks),
		ImageURLs:        p.asURLs(domain.FieldImageURLs),
		Geo: domain.GeoAttrs{
			City:           p.asStr(domain.FieldCity),
			District:       p.asStr(domain.FieldDistrict),
			BusinessCircle: p.asStr(domain.FieldBusinessCircle),
		},
	}

	if err := m.validate.Struct(in); err != nil {
		var fieldErrs validator.ValidationErrors
		if !errors.As(err, &fieldErrs) {
			return in, fmt.Errorf("listing validation: %w", err)
		}
		for _, fe := range fieldErrs {
			verr.Add(fe.Field(), validationMessage(fe))
		}
	}

	if verr.HasErrors() {
		return in, verr
	}
	return in, nil
}

func listingStructLevel(sl validator.StructLevel) {
	in, ok := sl.Current().Interface().(domain.ListingInput)
	if !ok {
		return
	}

	switch in.Status {
	case domain.StatusForSale:
		reportPrice(sl, in.ListedPrice, domain.FieldListedPrice, "ListedPrice", "required_for_sale")
		if in.ListedDate == nil {
			sl.ReportError(in.ListedDate, domain.FieldListedDate, "ListedDate", "required_for_sale", "")
		}
	case domain.StatusSold:
		reportPrice(sl, in.SoldPrice, domain.FieldSoldPrice, "SoldPrice", "required_for_sold")
		if in.SoldDate == nil {
			sl.ReportError(in.SoldDate, domain.FieldSoldDate, "SoldDate", "required_for_sold", "")
		}
	}

	if in.InnerArea != nil && *in.InnerArea <= 0 {
		sl.ReportError(in.InnerArea, domain.FieldInnerArea, "InnerArea", "gt", "0")
	}
}

func reportPrice(sl validator.StructLevel, price *float64, field, structField, requiredTag string) {
	if price == nil {
		sl.ReportError(price, field, structField, requiredTag, "")
		return
	}
	if *price <= 0 {
		sl.ReportError(price, field, structField, "gt", "0")
	}
}

func validationMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "required_for_sale":
		return "is required for FOR_SALE listings"
	case "required_for_sold":
		return "is required for SOLD listings"
	case "gt":
		return "must be greater than " + fe.Param()
	case "gte":
		return "must be greater than or equal to " + fe.Param()
	case "oneof":
		return "must be one of: " + fe.Param()
	default:
		return "is invalid (" + fe.Tag() + ")"
	}
}

var (
	numberPrefix = regexp.MustCompile(`^[-+]?\d+(\.\d+)?`)
	urlSeparator = regexp.MustCompile(`[,;|\n\r]+`)
)

// fieldParser собирает ошибки разбора в общий ValidationError
type fieldParser struct {
	row  domain.RawRow
	verr *domain.ValidationError
}

func (p fieldParser) raw(field string) (string, bool) {
	v, ok := p.row.Fields[field]
	if !ok || v == nil {
		return "", false
	}
	s := strings.TrimSpace(*v)
	return s, s != ""
}

func (p fieldParser) asStr(field string) *string {
	s, ok := p.raw(field)
	if !ok {
		return nil
	}
	return &s
}

func (p fieldParser) asFloat(field string) *float64 {
	s, ok := p.raw(field)
	if !ok {
		return nil
	}
	s = strings.ReplaceAll(s, ",", "")
	num := numberPrefix.FindString(s)
	if num == "" {
		p.verr.Add(field, fmt.Sprintf("%q is not a number", s))
		return nil
	}
	f, err := strconv.ParseFloat(num, 64)
	if err != nil {
		p.verr.Add(field, fmt.Sprintf("%q is not a number", s))
		return nil
	}
	return &f
}

func (p fieldParser) asInt(field string) *int {
	s, ok := p.raw(field)
	if !ok {
		return nil
	}
	num := numberPrefix.FindString(s)
	f, err := strconv.ParseFloat(num, 64)
	if num == "" || err != nil || f != float64(int(f)) {
		p.verr.Add(field, fmt.Sprintf("%q is not an integer", s))
		return nil
	}
	n := int(f)
	return &n
}

func (p fieldParser) asDate(field string) *time.Time {
	s, ok := p.raw(field)
	if !ok {
		return nil
	}
	for _, layout := range []string{"2006-01-02", "2006-01-02T15:04:05", time.RFC3339} {
		if t, err := time.Parse(layout, s); err == nil {
			return &t
		}
	}
	p.verr.Add(field, fmt.Sprintf("%q is not a recognizable date", s))
	return nil
}

func (p fieldParser) asBool(field string) *bool {
	s, ok := p.raw(field)
	if !ok {
		return nil
	}
	var b bool
	switch strings.ToLower(s) {
	case "true", "1", "yes", "y", "有", "是":
		b = true
	case "false", "0", "no", "n", "无", "否", "没有":
		b = false
	default:
		p.verr.Add(field, fmt.Sprintf("%q is not a yes/no value", s))
		return nil
	}
	return &b
}

func (p fieldParser) asStatus(field string) domain.PropertyStatus {
	s, ok := p.raw(field)
	if !ok {
		return ""
	}
	if st, known := domain.StatusAliases[strings.ToLower(s)]; known {
		return st
	}
	// неизвестное значение оставляем как есть, его отклонит oneof
	return domain.PropertyStatus(strings.ToUpper(s))
}

func (p fieldParser) asURLs(field string) []string {
	s, ok := p.raw(field)
	if !ok {
		return nil
	}
	var parts []string
	if strings.HasPrefix(s, "[") {
		if err := json.Unmarshal([]byte(s), &parts); err != nil {
			p.verr.Add(field, "is not a valid list of URLs")
			return nil
		}
	} else {
		parts = urlSeparator.Split(s, -1)
	}
	return NormalizeImageURLs(parts)
}

// NormalizeImageURLs убирает пустые значения и дубликаты, сохраняя порядок
func NormalizeImageURLs(urls []string) []string {
	seen := make(map[string]struct{}, len(urls))
	out := make([]string, 0, len(urls))
	for _, u := range urls {
		u = strings.TrimSpace(u)
		if u == "" {
			continue
		}
		if _, dup := seen[u]; dup {
			continue
		}
		seen[u] = struct{}{}
		out = append(out, u)
	}
	return out
}
