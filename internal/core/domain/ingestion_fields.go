package domain

import (
	"strings"

	"golang.org/x/text/width"
)

// Канонические имена полей входящей записи
const (
	FieldDataSource       = "data_source"
	FieldSourcePropertyID = "source_property_id"
	FieldStatus           = "status"
	FieldCommunityName    = "community_name"
	FieldRooms            = "rooms"
	FieldHalls            = "halls"
	FieldBaths            = "baths"
	FieldOrientation      = "orientation"
	FieldFloorOriginal    = "floor_original"
	FieldBuildArea        = "build_area"
	FieldInnerArea        = "inner_area"
	FieldListedPrice      = "listed_price"
	FieldListedDate       = "listed_date"
	FieldSoldPrice        = "sold_price"
	FieldSoldDate         = "sold_date"
	FieldPropertyType     = "property_type"
	FieldBuildYear        = "build_year"
	FieldStructure        = "structure"
	FieldDecoration       = "decoration"
	FieldElevator         = "elevator"
	FieldOwnershipType    = "ownership_type"
	FieldOwnershipYears   = "ownership_years"
	FieldHeatingMethod    = "heating_method"
	FieldRemarks          = "remarks"
	FieldImageURLs        = "image_urls"
	FieldCity             = "city"
	FieldDistrict         = "district"
	FieldBusinessCircle   = "business_circle"
)

// IngestionFields - таблица "внешнее имя -> каноническое поле".
// Ключи хранятся в нормализованном виде (см. NormalizeHeader).
var IngestionFields = map[string]string{
	FieldDataSource: FieldDataSource, "source": FieldDataSource, "数据源": FieldDataSource, "数据来源": FieldDataSource, "来源": FieldDataSource,
	FieldSourcePropertyID: FieldSourcePropertyID, "property_id": FieldSourcePropertyID, "房源id": FieldSourcePropertyID, "房源编号": FieldSourcePropertyID, "源房源id": FieldSourcePropertyID,
	FieldStatus: FieldStatus, "状态": FieldStatus, "房源状态": FieldStatus,
	FieldCommunityName: FieldCommunityName, "community": FieldCommunityName, "小区": FieldCommunityName, "小区名称": FieldCommunityName, "小区名": FieldCommunityName,
	FieldRooms: FieldRooms, "室": FieldRooms, "卧室": FieldRooms,
	FieldHalls: FieldHalls, "厅": FieldHalls,
	FieldBaths: FieldBaths, "卫": FieldBaths, "卫生间": FieldBaths,
	FieldOrientation: FieldOrientation, "朝向": FieldOrientation,
	FieldFloorOriginal: FieldFloorOriginal, "floor": FieldFloorOriginal, "楼层": FieldFloorOriginal, "所在楼层": FieldFloorOriginal,
	FieldBuildArea: FieldBuildArea, "建筑面积": FieldBuildArea, "面积": FieldBuildArea,
	FieldInnerArea: FieldInnerArea, "套内面积": FieldInnerArea,
	FieldListedPrice: FieldListedPrice, "挂牌价": FieldListedPrice, "挂牌价格": FieldListedPrice, "总价": FieldListedPrice,
	FieldListedDate: FieldListedDate, "挂牌时间": FieldListedDate, "挂牌日期": FieldListedDate,
	FieldSoldPrice: FieldSoldPrice, "成交价": FieldSoldPrice, "成交价格": FieldSoldPrice,
	FieldSoldDate: FieldSoldDate, "成交时间": FieldSoldDate, "成交日期": FieldSoldDate,
	FieldPropertyType: FieldPropertyType, "物业类型": FieldPropertyType, "房屋用途": FieldPropertyType,
	FieldBuildYear: FieldBuildYear, "建成年代": FieldBuildYear, "建筑年代": FieldBuildYear,
	FieldStructure: FieldStructure, "建筑结构": FieldStructure,
	FieldDecoration: FieldDecoration, "装修": FieldDecoration, "装修情况": FieldDecoration,
	FieldElevator: FieldElevator, "电梯": FieldElevator, "配备电梯": FieldElevator,
	FieldOwnershipType: FieldOwnershipType, "交易权属": FieldOwnershipType, "产权性质": FieldOwnershipType,
	FieldOwnershipYears: FieldOwnershipYears, "产权年限": FieldOwnershipYears,
	FieldHeatingMethod: FieldHeatingMethod, "供暖方式": FieldHeatingMethod,
	FieldRemarks: FieldRemarks, "备注": FieldRemarks,
	FieldImageURLs: FieldImageURLs, "images": FieldImageURLs, "图片": FieldImageURLs, "图片链接": FieldImageURLs,
	FieldCity: FieldCity, "城市": FieldCity,
	FieldDistrict: FieldDistrict, "区县": FieldDistrict, "行政区": FieldDistrict, "区域": FieldDistrict,
	FieldBusinessCircle: FieldBusinessCircle, "商圈": FieldBusinessCircle, "板块": FieldBusinessCircle,
}

// DateFields - поля, которые приводятся к ISO-8601 при нормализации строки
var DateFields = map[string]bool{
	FieldListedDate: true,
	FieldSoldDate:   true,
}

// StatusAliases - локализованные значения статуса
var StatusAliases = map[string]PropertyStatus{
	"for_sale": StatusForSale, "在售": StatusForSale, "挂牌": StatusForSale, "出售": StatusForSale,
	"sold": StatusSold, "成交": StatusSold, "已成交": StatusSold, "已售": StatusSold,
}

// NormalizeHeader убирает BOM и пробелы, приводит полноширинные символы и регистр
func NormalizeHeader(h string) string {
	h = strings.TrimPrefix(h, "\ufeff")
	h = width.Narrow.String(h)
	return strings.ToLower(strings.TrimSpace(h))
}

// CanonicalField возвращает каноническое имя поля для внешнего заголовка
func CanonicalField(header string) (string, bool) {
	f, ok := IngestionFields[NormalizeHeader(header)]
	return f, ok
}

// RawTable - разобранная загрузка: исходные колонки в исходном порядке и строки
type RawTable struct {
	Columns []string
	Rows    []RawRow
}

// RawRow - одна строка загрузки.
// Original хранит исходные значения по исходным колонкам (для FailedRecord и CSV с ошибками),
// Fields - нормализованные значения по каноническим полям, nil для пустых.
type RawRow struct {
	Number   int
	Original map[string]any
	Fields   map[string]*string
}

// Value возвращает нормализованное значение поля или "" если его нет
func (r RawRow) Value(field string) string {
	if v, ok := r.Fields[field]; ok && v != nil {
		return *v
	}
	return ""
}
