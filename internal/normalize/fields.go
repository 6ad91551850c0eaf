package normalize

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Canonical borough names.
const (
	Manhattan    = "MANHATTAN"
	Bronx        = "BRONX"
	Brooklyn     = "BROOKLYN"
	Queens       = "QUEENS"
	StatenIsland = "STATEN ISLAND"
)

var boroughMap = map[string]string{
	"MANHATTAN": Manhattan, "NEW YORK": Manhattan, "NEW YORK CITY": Manhattan,
	"NY": Manhattan, "MN": Manhattan, "MAN": Manhattan, "MANHATTEN": Manhattan,
	"MANHATAN": Manhattan, "1": Manhattan,

	"BRONX": Bronx, "THE BRONX": Bronx, "BX": Bronx, "BRONXX": Bronx, "2": Bronx,

	"BROOKLYN": Brooklyn, "BK": Brooklyn, "BKLYN": Brooklyn, "KINGS": Brooklyn,
	"BROOKLIN": Brooklyn, "BROOKYLN": Brooklyn, "3": Brooklyn,

	"QUEENS": Queens, "QN": Queens, "QNS": Queens, "QUEEN": Queens, "QUEENES": Queens,
	"4": Queens,

	"STATEN ISLAND": StatenIsland, "SI": StatenIsland, "RICHMOND": StatenIsland,
	"STATEN IS": StatenIsland, "STATEN ISL": StatenIsland, "STATEN": StatenIsland,
	"5": StatenIsland,
}

// IsCanonicalBorough reports whether b is one of the five canonical names.
func IsCanonicalBorough(b string) bool {
	switch b {
	case Manhattan, Bronx, Brooklyn, Queens, StatenIsland:
		return true
	}
	return false
}

// Borough maps aliases, abbreviations, borough codes and common misspellings
// to the canonical borough name. Unknown input is returned uppercased with
// collapsed whitespace.
func Borough(raw string) string {
	key := strings.Join(strings.Fields(strings.ToUpper(strings.ReplaceAll(raw, ".", ""))), " ")
	if key == "" {
		return ""
	}
	if b, ok := boroughMap[key]; ok {
		return b
	}
	return key
}

var reDigits = regexp.MustCompile(`\d+`)

// ZIP returns the first digit run of raw, zero-padded or truncated to five
// digits. Unparseable input yields "".
func ZIP(raw string) string {
	z := reDigits.FindString(raw)
	if z == "" {
		return ""
	}
	if len(z) > 5 {
		return z[:5]
	}
	return strings.Repeat("0", 5-len(z)) + z
}

// ParcelID normalizes a borough-block-lot identifier to 10 digits.
func ParcelID(raw string) string {
	return paddedID(raw, 10)
}

// BuildingID normalizes a building identification number to 7 digits.
// Placeholder BINs (a borough digit followed by six zeros) carry no building
// identity and are dropped; otherwise every lot without a BIN record would
// share one building key (see "Identifiers" in DESIGN.md).
func BuildingID(raw string) string {
	id := paddedID(raw, 7)
	if len(id) == 7 && id[0] >= '1' && id[0] <= '5' && id[1:] == "000000" {
		return ""
	}
	return id
}

var (
	reIDSeparators = regexp.MustCompile(`[\s\-/_]`)
	reTrailingZero = regexp.MustCompile(`\.0+$`)
)

// paddedID strips separators (and a float-export ".0" tail), then zero-pads
// an all-digit identifier to width. Anything else, including all-zero IDs
// and IDs longer than width, is malformed and yields "".
func paddedID(raw string, width int) string {
	s := strings.TrimSpace(raw)
	s = reTrailingZero.ReplaceAllString(s, "")
	s = reIDSeparators.ReplaceAllString(s, "")
	if s == "" || len(s) > width {
		return ""
	}
	allZero := true
	for _, r := range s {
		if r < '0' || r > '9' {
			return ""
		}
		if r != '0' {
			allZero = false
		}
	}
	// All-zero BBL/BIN is an export filler, not an identifier.
	if allZero {
		return ""
	}
	return strings.Repeat("0", width-len(s)) + s
}

var nameFillers = map[string]bool{
	"THE": true, "BUILDING": true, "BLDG": true, "AT": true, "OF": true,
}

var reNamePunct = regexp.MustCompile(`[^A-Z0-9\s]`)

// BuildingName normalizes a property or project name for fuzzy comparison:
// uppercase, diacritics folded, punctuation to spaces, filler words dropped.
func BuildingName(raw string) string {
	s := strings.TrimSpace(raw)
	if s == "" {
		return ""
	}
	s = foldDiacritics(s)
	s = strings.ReplaceAll(s, "'", "")
	s = strings.ReplaceAll(s, "’", "")
	s = reNamePunct.ReplaceAllString(strings.ToUpper(s), " ")

	words := strings.Fields(s)
	out := words[:0]
	for _, w := range words {
		if !nameFillers[w] {
			out = append(out, w)
		}
	}
	return strings.Join(out, " ")
}

func foldDiacritics(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}
