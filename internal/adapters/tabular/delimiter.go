package tabular

import "strings"

var candidateDelimiters = []rune{',', ';', '\t'}

// detectDelimiter выбирает разделитель по строке заголовка; при равенстве побеждает запятая
func detectDelimiter(text string) rune {
	header := text
	if i := strings.IndexAny(text, "\r\n"); i >= 0 {
		header = text[:i]
	}

	best, bestCount := ',', 0
	for _, d := range candidateDelimiters {
		if n := strings.Count(header, string(d)); n > bestCount {
			best, bestCount = d, n
		}
	}
	return best
}
