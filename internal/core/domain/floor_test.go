package domain

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFloor(t *testing.T) {
	tests := []struct {
		raw   string
		floor *int
		total *int
		level *FloorLevel
	}{
		{raw: "15/28", floor: ptr(15), total: ptr(28), level: lvl(FloorMid)},
		{raw: " 3/30 ", floor: ptr(3), total: ptr(30), level: lvl(FloorLow)},
		{raw: "27/28层", floor: ptr(27), total: ptr(28), level: lvl(FloorHigh)},
		{raw: "中楼层(共28层)", total: ptr(28), level: lvl(FloorMid)},
		{raw: "高楼层（共33层）", total: ptr(33), level: lvl(FloorHigh)},
		{raw: "低楼层/共6层", total: ptr(6), level: lvl(FloorLow)},
		{raw: "第5层", floor: ptr(5)},
		{raw: "5层(总18层)", floor: ptr(5), total: ptr(18), level: lvl(FloorLow)},
		{raw: "高楼层(共 28 层)", total: ptr(28), level: lvl(FloorHigh)},
		{raw: "共 28层", total: ptr(28)},
		{raw: "总 18 层", total: ptr(18)},
		{raw: "6层 / 共 18 层", floor: ptr(6), total: ptr(18), level: lvl(FloorMid)},
		{raw: "(24层)", total: ptr(24)},
		{raw: "１２/２４", floor: ptr(12), total: ptr(24), level: lvl(FloorMid)},
		{raw: "High floor / 20", total: ptr(20), level: lvl(FloorHigh)},
		{raw: "  ", floor: nil},
		{raw: "basement", floor: nil},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got := ParseFloor(tt.raw)
			assert.Equal(t, tt.floor, got.FloorNumber)
			assert.Equal(t, tt.total, got.TotalFloors)
			assert.Equal(t, tt.level, got.Level)
		})
	}
}

func TestParseFloor_RatioFormAlwaysYieldsBothNumbers(t *testing.T) {
	for total := 1; total <= 60; total++ {
		for floor := 1; floor <= total; floor++ {
			got := ParseFloor(fmt.Sprintf("%d/%d", floor, total))
			require.NotNil(t, got.FloorNumber)
			require.NotNil(t, got.TotalFloors)
			require.NotNil(t, got.Level)
			assert.Equal(t, floor, *got.FloorNumber)
			assert.Equal(t, total, *got.TotalFloors)
			assert.Equal(t, LevelByRatio(floor, total), *got.Level)
		}
	}
}

func TestLevelByRatio_Boundaries(t *testing.T) {
	tests := []struct {
		floor, total int
		want         FloorLevel
	}{
		{33, 100, FloorLow},
		{34, 100, FloorMid},
		{67, 100, FloorMid},
		{68, 100, FloorHigh},
		{1, 3, FloorMid},
		{2, 3, FloorMid},
		{3, 3, FloorHigh},
		{0, 10, FloorMid},
		{5, 0, FloorMid},
		{-1, 10, FloorMid},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%d/%d", tt.floor, tt.total), func(t *testing.T) {
			assert.Equal(t, tt.want, LevelByRatio(tt.floor, tt.total))
		})
	}
}

func ptr(n int) *int               { return &n }
func lvl(l FloorLevel) *FloorLevel { return &l }
