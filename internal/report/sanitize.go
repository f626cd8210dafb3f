package report

import (
	"strings"
	"unicode"
)

// pictographic covers emoji and pictographic symbol blocks, plus the
// joiners and selectors that would otherwise be left behind.
var pictographic = &unicode.RangeTable{
	R16: []unicode.Range16{
		{Lo: 0x200d, Hi: 0x200d, Stride: 1}, // zero width joiner
		{Lo: 0x20e3, Hi: 0x20e3, Stride: 1}, // combining keycap
		{Lo: 0x2600, Hi: 0x27bf, Stride: 1}, // misc symbols, dingbats
		{Lo: 0x2b00, Hi: 0x2bff, Stride: 1}, // misc symbols and arrows
		{Lo: 0xfe0f, Hi: 0xfe0f, Stride: 1}, // variation selector-16
	},
	R32: []unicode.Range32{
		{Lo: 0x1f000, Hi: 0x1faff, Stride: 1},
	},
}

// Sanitize makes free text safe for the CSV reports: pictographs and control
// characters are removed, commas become semicolons, double quotes are
// doubled and surrounding whitespace is trimmed.
func Sanitize(s string) string {
	if s == "" {
		return ""
	}
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case unicode.Is(pictographic, r), unicode.IsControl(r):
			continue
		case r == ',':
			b.WriteRune(';')
		case r == '"':
			b.WriteString(`""`)
		default:
			b.WriteRune(r)
		}
	}
	return strings.TrimSpace(b.String())
}

func quoted(s string) string {
	return `"` + Sanitize(s) + `"`
}
