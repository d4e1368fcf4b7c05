package tabular

import (
	"context"
	"listing-ingest-service/internal/core/domain"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/simplifiedchinese"
	"golang.org/x/text/encoding/unicode"
)

const exampleCSV = "data_source,source_property_id,status,community_name,rooms,halls,baths,orientation,floor_original,build_area,listed_price,listed_date\n" +
	"链家,P001,FOR_SALE,Sunrise Gardens,3,2,2,South,15/28,120.5,800,2024-01-01\n"

func TestDecodeCSV_ExampleRow(t *testing.T) {
	table, err := NewDecoder().DecodeCSV(context.Background(), []byte(exampleCSV))

	require.NoError(t, err)
	require.Len(t, table.Rows, 1)
	assert.Equal(t, []string{
		"data_source", "source_property_id", "status", "community_name", "rooms", "halls", "baths",
		"orientation", "floor_original", "build_area", "listed_price", "listed_date",
	}, table.Columns)

	row := table.Rows[0]
	assert.Equal(t, 1, row.Number)
	assert.Equal(t, "链家", row.Value(domain.FieldDataSource))
	assert.Equal(t, "Sunrise Gardens", row.Value(domain.FieldCommunityName))
	assert.Equal(t, "15/28", row.Value(domain.FieldFloorOriginal))
	assert.Equal(t, "2024-01-01", row.Value(domain.FieldListedDate))
	assert.Equal(t, "P001", row.Original["source_property_id"])
}

func TestDecodeCSV_LocalizedHeadersInGBK(t *testing.T) {
	src := "数据源,房源ID,状态,小区,室,朝向,楼层,建筑面积,挂牌价,挂牌时间\n" +
		"贝壳,B-9,在售,日出花园,2,南,中楼层(共18层),89,350,2024/3/7\n"
	encoded, err := simplifiedchinese.GBK.NewEncoder().String(src)
	require.NoError(t, err)

	table, err := NewDecoder().DecodeCSV(context.Background(), []byte(encoded))

	require.NoError(t, err)
	require.Len(t, table.Rows, 1)
	row := table.Rows[0]
	assert.Equal(t, "贝壳", row.Value(domain.FieldDataSource))
	assert.Equal(t, "B-9", row.Value(domain.FieldSourcePropertyID))
	assert.Equal(t, "在售", row.Value(domain.FieldStatus))
	assert.Equal(t, "日出花园", row.Value(domain.FieldCommunityName))
	assert.Equal(t, "中楼层(共18层)", row.Value(domain.FieldFloorOriginal))
	assert.Equal(t, "2024-03-07", row.Value(domain.FieldListedDate))
	assert.Equal(t, "数据源", table.Columns[0])
}

func TestDecodeCSV_UTF16WithBOM(t *testing.T) {
	encoded, err := unicode.UTF16(unicode.LittleEndian, unicode.UseBOM).NewEncoder().String(exampleCSV)
	require.NoError(t, err)

	table, err := NewDecoder().DecodeCSV(context.Background(), []byte(encoded))

	require.NoError(t, err)
	require.Len(t, table.Rows, 1)
	assert.Equal(t, "链家", table.Rows[0].Value(domain.FieldDataSource))
	assert.Equal(t, "data_source", table.Columns[0])
}

func TestDecodeCSV_UTF8BOMAndSemicolons(t *testing.T) {
	src := "\xEF\xBB\xBFdata_source;source_property_id;community_name\nlianjia;P1;A\n"

	table, err := NewDecoder().DecodeCSV(context.Background(), []byte(src))

	require.NoError(t, err)
	require.Len(t, table.Rows, 1)
	assert.Equal(t, "lianjia", table.Rows[0].Value(domain.FieldDataSource))
	assert.Equal(t, "A", table.Rows[0].Value(domain.FieldCommunityName))
}

func TestDecodeCSV_DropsEmptyColumnsAndNullsEmptyValues(t *testing.T) {
	src := "data_source,,community_name,remarks,extra\nlianjia,junk,  A  ,,x\n"

	table, err := NewDecoder().DecodeCSV(context.Background(), []byte(src))

	require.NoError(t, err)
	assert.Equal(t, []string{"data_source", "community_name", "remarks", "extra"}, table.Columns)
	row := table.Rows[0]
	assert.Equal(t, "A", row.Value(domain.FieldCommunityName))
	assert.Nil(t, row.Fields[domain.FieldRemarks])
	assert.NotContains(t, row.Original, "")
	assert.Equal(t, "x", row.Original["extra"])
}

func TestDecodeCSV_RaggedRowsAndBlankLines(t *testing.T) {
	src := "data_source,source_property_id,community_name\nlianjia,P1\n,,\nlianjia,P3,C,overflow\n"

	table, err := NewDecoder().DecodeCSV(context.Background(), []byte(src))

	require.NoError(t, err)
	require.Len(t, table.Rows, 2)
	assert.Equal(t, 1, table.Rows[0].Number)
	assert.Nil(t, table.Rows[0].Fields[domain.FieldCommunityName])
	assert.Equal(t, 3, table.Rows[1].Number)
	assert.Equal(t, "C", table.Rows[1].Value(domain.FieldCommunityName))
}

func TestDecodeCSV_RowNumbersFollowFileLines(t *testing.T) {
	src := "\n" +
		"data_source,source_property_id,remarks\n" +
		"lianjia,P1,\n" +
		"\n" +
		"lianjia,P3,\"two\nlines\"\n" +
		"lianjia,P5,\n"

	table, err := NewDecoder().DecodeCSV(context.Background(), []byte(src))

	require.NoError(t, err)
	require.Len(t, table.Rows, 3)
	assert.Equal(t, 1, table.Rows[0].Number)
	assert.Equal(t, "P3", table.Rows[1].Value(domain.FieldSourcePropertyID))
	assert.Equal(t, 3, table.Rows[1].Number)
	assert.Equal(t, 5, table.Rows[2].Number)
}

func TestDecodeCSV_StructuralErrors(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{name: "empty file", data: ""},
		{name: "no recognizable columns", data: "foo,bar\n1,2\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewDecoder().DecodeCSV(context.Background(), []byte(tt.data))

			var fileErr *domain.FileProcessingError
			require.ErrorAs(t, err, &fileErr)
			assert.Equal(t, domain.FailureFileProcessing, domain.ClassifyFailure(err))
		})
	}
}

func TestDecodeCSV_HeaderOnlyHasNoRows(t *testing.T) {
	table, err := NewDecoder().DecodeCSV(context.Background(), []byte("data_source,community_name\n"))

	require.NoError(t, err)
	assert.Empty(t, table.Rows)
}

func TestDecodeRecords(t *testing.T) {
	records := []map[string]any{
		{
			"数据源":       "链家",
			"房源ID":      "P7",
			"小区":        "Sunrise Gardens",
			"rooms":     float64(3),
			"elevator":  true,
			"image_urls": []any{"a.jpg", "b.jpg"},
			"成交时间":      "2024.2.9",
			"remarks":   "",
			"unknown":   "kept",
		},
		{"data_source": "anjuke", "community": nil},
	}

	table, err := NewDecoder().DecodeRecords(context.Background(), records)

	require.NoError(t, err)
	require.Len(t, table.Rows, 2)

	row := table.Rows[0]
	assert.Equal(t, 1, row.Number)
	assert.Equal(t, "链家", row.Value(domain.FieldDataSource))
	assert.Equal(t, "P7", row.Value(domain.FieldSourcePropertyID))
	assert.Equal(t, "3", row.Value(domain.FieldRooms))
	assert.Equal(t, "true", row.Value(domain.FieldElevator))
	assert.Equal(t, `["a.jpg","b.jpg"]`, row.Value(domain.FieldImageURLs))
	assert.Equal(t, "2024-02-09", row.Value(domain.FieldSoldDate))
	assert.Nil(t, row.Fields[domain.FieldRemarks])
	assert.Equal(t, "kept", row.Original["unknown"])

	assert.Equal(t, 2, table.Rows[1].Number)
	assert.Nil(t, table.Rows[1].Fields[domain.FieldCommunityName])
	assert.Contains(t, table.Columns, "unknown")
	assert.Contains(t, table.Columns, "community")
}
