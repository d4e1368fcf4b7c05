package domain

import (
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/text/width"
)

type FloorLevel string

const (
	FloorLow  FloorLevel = "low"
	FloorMid  FloorLevel = "mid"
	FloorHigh FloorLevel = "high"
)

// FloorInfo - результат разбора строки этажа. Любое поле может отсутствовать.
type FloorInfo struct {
	FloorNumber *int
	TotalFloors *int
	Level       *FloorLevel
}

var (
	levelPatterns = []struct {
		re    *regexp.Regexp
		level FloorLevel
	}{
		{regexp.MustCompile(`低楼层|低层|低区|底层`), FloorLow},
		{regexp.MustCompile(`中楼层|中层|中区`), FloorMid},
		{regexp.MustCompile(`高楼层|高层|高区|顶层`), FloorHigh},
		{regexp.MustCompile(`(?i)\blow\b`), FloorLow},
		{regexp.MustCompile(`(?i)\b(mid|middle)\b`), FloorMid},
		{regexp.MustCompile(`(?i)\bhigh\b`), FloorHigh},
	}

	// порядок важен: первое совпадение выигрывает
	totalFloorPatterns = []*regexp.Regexp{
		regexp.MustCompile(`共\s*(\d+)\s*层`),
		regexp.MustCompile(`/\s*(\d+)\s*层?`),
		regexp.MustCompile(`[(（]\s*共?\s*(\d+)\s*层\s*[)）]`),
		regexp.MustCompile(`总\s*(\d+)\s*层`),
	}

	// "15/28": текущий этаж перед дробью
	ratioFloorPattern = regexp.MustCompile(`^(\d+)\s*/`)

	// фрагменты с общей этажностью вырезаются до поиска текущего этажа
	totalFloorSpan = regexp.MustCompile(`[共总]\s*\d+\s*层|[(（]\s*\d+\s*层\s*[)）]|/\s*\d+\s*层?`)

	currentFloorPatterns = []*regexp.Regexp{
		regexp.MustCompile(`第\s*(\d+)\s*层`),
		regexp.MustCompile(`(?:^|\D)(\d+)\s*层`),
	}
)

// ParseFloor разбирает строку вида "15/28", "中楼层(共28层)", "第5层" и т.п.
// Функция тотальная: на мусорном входе возвращает частичный или пустой результат.
func ParseFloor(raw string) FloorInfo {
	var info FloorInfo

	s := strings.TrimSpace(width.Narrow.String(raw))
	if s == "" {
		return info
	}

	for _, p := range levelPatterns {
		if p.re.MatchString(s) {
			lvl := p.level
			info.Level = &lvl
			break
		}
	}

	info.TotalFloors = firstNumber(totalFloorPatterns, s)
	info.FloorNumber = firstNumber([]*regexp.Regexp{ratioFloorPattern}, s)
	if info.FloorNumber == nil {
		info.FloorNumber = firstNumber(currentFloorPatterns, totalFloorSpan.ReplaceAllString(s, " "))
	}

	if info.Level == nil && info.FloorNumber != nil && info.TotalFloors != nil {
		lvl := LevelByRatio(*info.FloorNumber, *info.TotalFloors)
		info.Level = &lvl
	}

	return info
}

// LevelByRatio: <=33% - low, <=67% - mid, иначе high. Некорректные входы дают mid.
// Сравнение в целых числах, чтобы границы 33/67 не зависели от округления float.
func LevelByRatio(floor, total int) FloorLevel {
	if floor <= 0 || total <= 0 {
		return FloorMid
	}
	switch {
	case floor*100 <= total*33:
		return FloorLow
	case floor*100 <= total*67:
		return FloorMid
	default:
		return FloorHigh
	}
}

func firstNumber(patterns []*regexp.Regexp, s string) *int {
	for _, re := range patterns {
		m := re.FindStringSubmatch(s)
		if len(m) < 2 {
			continue
		}
		n, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		return &n
	}
	return nil
}
