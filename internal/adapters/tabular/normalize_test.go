package tabular

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeDate(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{in: "2024-01-01", want: "2024-01-01"},
		{in: "2024/1/5", want: "2024-01-05"},
		{in: "2024.12.31", want: "2024-12-31"},
		{in: "2024年3月7日", want: "2024-03-07"},
		{in: "２０２４－０３－０７", want: "2024-03-07"},
		{in: "2024-01-02 9:05", want: "2024-01-02T09:05:00"},
		{in: "2024/01/02 10:11:12", want: "2024-01-02T10:11:12"},
		{in: "March 5, 2024", want: "2024-03-05"},
		{in: "2024-02-30", want: "2024-02-30"},
		{in: "not a date", want: "not a date"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, normalizeDate(tt.in))
		})
	}
}

func TestNormalizeValue(t *testing.T) {
	assert.Nil(t, normalizeValue("remarks", "   "))
	assert.Equal(t, "x", *normalizeValue("remarks", " x "))
	assert.Equal(t, "2024-01-05", *normalizeValue("listed_date", "2024/1/5"))
	assert.Equal(t, "2024/1/5", *normalizeValue("remarks", "2024/1/5"))
}

func TestDetectDelimiter(t *testing.T) {
	assert.Equal(t, ',', detectDelimiter("a,b,c\n1;2;3"))
	assert.Equal(t, ';', detectDelimiter("a;b;c\n1,2,3"))
	assert.Equal(t, '\t', detectDelimiter("a\tb\tc"))
	assert.Equal(t, ',', detectDelimiter("single"))
}

func TestDecodeText(t *testing.T) {
	text, charset := decodeText([]byte("caf\xe9"))
	assert.Equal(t, "café", text)
	assert.Equal(t, "latin-1", charset)

	text, charset = decodeText([]byte("plain"))
	assert.Equal(t, "plain", text)
	assert.Equal(t, "utf-8", charset)
}
