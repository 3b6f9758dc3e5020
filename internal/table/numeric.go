package table

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// missingTokens are cell values treated as "no observation".
var missingTokens = map[string]struct{}{
	"": {}, "na": {}, "n/a": {}, "nan": {}, "null": {}, "none": {},
	"-": {}, "--": {}, "..": {}, "...": {}, "w": {}, "(w)": {}, "x": {},
}

// NumberFormat fixes the separators used in numeric cells. The zero value
// auto-detects per cell.
type NumberFormat struct {
	Decimal   rune
	Thousands rune
}

// separatorNames maps the spellings accepted in dataset catalogs to runes.
var separatorNames = map[string]rune{
	"": 0, ".": '.', "dot": '.', ",": ',', "comma": ',',
	" ": ' ', "space": ' ', "'": '\'', "apostrophe": '\'',
}

// ParseNumberFormat builds a NumberFormat from catalog settings. Both empty
// means auto-detect. A thousands mark alone implies the other of '.' and ','
// as the decimal mark.
func ParseNumberFormat(decimal, thousands string) (NumberFormat, error) {
	dec, ok := separatorNames[strings.ToLower(decimal)]
	if !ok || dec == ' ' || dec == '\'' {
		return NumberFormat{}, fmt.Errorf("invalid decimal separator %q (use . or ,)", decimal)
	}
	thou, ok := separatorNames[strings.ToLower(thousands)]
	if !ok {
		return NumberFormat{}, fmt.Errorf("invalid thousands separator %q", thousands)
	}
	if dec != 0 && dec == thou {
		return NumberFormat{}, fmt.Errorf("decimal and thousands separators are both %q", string(dec))
	}
	if dec == 0 && thou != 0 {
		dec = '.'
		if thou == '.' {
			dec = ','
		}
	}
	return NumberFormat{Decimal: dec, Thousands: thou}, nil
}

// ParseNumber parses a numeric cell with auto-detected separators. It returns
// false for missing markers and anything that is not a finite number.
func ParseNumber(s string) (float64, bool) {
	return NumberFormat{}.Parse(s)
}

// Parse parses s using the configured separators.
func (nf NumberFormat) Parse(s string) (float64, bool) {
	raw := strings.TrimSpace(strings.ReplaceAll(s, "\u00a0", " "))
	if _, miss := missingTokens[strings.ToLower(raw)]; miss {
		return 0, false
	}
	raw = strings.TrimSuffix(raw, "%")
	raw = strings.TrimSpace(raw)

	dec, thou := nf.Decimal, nf.Thousands
	if dec == 0 {
		dec, thou = detectSeparators(raw)
	}
	if thou == 0 {
		for _, sep := range []rune{',', '.', ' ', '\''} {
			if sep != dec {
				raw = strings.ReplaceAll(raw, string(sep), "")
			}
		}
	} else if thou != dec {
		raw = strings.ReplaceAll(raw, string(thou), "")
		raw = strings.ReplaceAll(raw, " ", "")
	}
	if dec != '.' {
		raw = strings.ReplaceAll(raw, string(dec), ".")
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// detectSeparators guesses decimal and thousands separators for one cell.
// With both ',' and '.' present the last one is the decimal mark. A lone
// separator repeated, or followed by exactly three digits in every group, is
// read as a thousands mark.
func detectSeparators(raw string) (dec, thou rune) {
	cpos := strings.LastIndex(raw, ",")
	dpos := strings.LastIndex(raw, ".")
	switch {
	case cpos >= 0 && dpos >= 0:
		if cpos > dpos {
			return ',', '.'
		}
		return '.', ','
	case cpos >= 0:
		if groupedByThousands(raw, ',') {
			return '.', ','
		}
		return ',', 0
	case dpos >= 0:
		if strings.Count(raw, ".") > 1 && groupedByThousands(raw, '.') {
			return ',', '.'
		}
		return '.', 0
	default:
		return '.', 0
	}
}

func groupedByThousands(raw string, sep rune) bool {
	parts := strings.Split(strings.TrimLeft(raw, "+-"), string(sep))
	if len(parts) < 2 || len(parts[0]) == 0 || len(parts[0]) > 3 {
		return false
	}
	for _, p := range parts[1:] {
		if len(p) != 3 {
			return false
		}
		for _, r := range p {
			if r < '0' || r > '9' {
				return false
			}
		}
	}
	return true
}
