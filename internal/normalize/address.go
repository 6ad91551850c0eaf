// Package normalize canonicalizes the free-text and identifier fields of
// certification and disclosure records so they can be compared.
//
// Every function here is pure and never fails: malformed input degrades to
// an empty or pass-through value and matching treats it as non-matching.
package normalize

import (
	"regexp"
	"strings"

	"github.com/mozillazg/go-unidecode"

	"github.com/leed-ll97/internal/debug"
)

// USPS Publication 28 street suffix abbreviations.
var suffixMap = map[string]string{
	"AVENUE": "AVE", "AVE": "AVE", "AV": "AVE", "AVEN": "AVE", "AVN": "AVE",
	"BOULEVARD": "BLVD", "BLVD": "BLVD", "BOUL": "BLVD",
	"CIRCLE": "CIR", "CIR": "CIR",
	"COURT": "CT", "CT": "CT",
	"DRIVE": "DR", "DR": "DR",
	"EXPRESSWAY": "EXPY", "EXPY": "EXPY",
	"HIGHWAY": "HWY", "HWY": "HWY",
	"LANE": "LN", "LN": "LN",
	"PARKWAY": "PKWY", "PKWY": "PKWY", "PKY": "PKWY",
	"PLACE": "PL", "PL": "PL",
	"PLAZA": "PLZ", "PLZ": "PLZ",
	"ROAD": "RD", "RD": "RD",
	"SQUARE": "SQ", "SQ": "SQ",
	"STREET": "ST", "ST": "ST", "STR": "ST",
	"TERRACE": "TER", "TER": "TER",
	"TURNPIKE": "TPKE", "TPKE": "TPKE",
	"WAY": "WAY",
}

var directionMap = map[string]string{
	"NORTH": "N", "SOUTH": "S", "EAST": "E", "WEST": "W",
	"NORTHEAST": "NE", "NORTHWEST": "NW", "SOUTHEAST": "SE", "SOUTHWEST": "SW",
	"N": "N", "S": "S", "E": "E", "W": "W",
	"NE": "NE", "NW": "NW", "SE": "SE", "SW": "SW",
}

var (
	// Periods and apostrophes join ("ST." -> "ST", "O'NEIL" -> "ONEIL").
	reDropPunct = regexp.MustCompile(`[.'’]`)
	// Everything else that is not a letter, digit, hyphen or '#' separates.
	reSplitPunct = regexp.MustCompile(`[^A-Z0-9#\-\s]`)
	// Hyphens survive only inside numbers such as Queens "123-45".
	reLooseHyphen = regexp.MustCompile(`(^|[^0-9])-|-([^0-9]|$)`)

	reUnit    = regexp.MustCompile(`(\b(SUITE|STE|UNIT|APT|APARTMENT|FLOOR|FLR|FL|RM|ROOM|PH|PENTHOUSE)\b|#).*$`)
	reOrdinal = regexp.MustCompile(`^(\d+)(ST|ND|RD|TH)$`)
)

// AddressNormalizer canonicalizes free-text address lines.
type AddressNormalizer struct {
	parser Parser
	debug  bool
}

// NewAddressNormalizer returns a normalizer using p to segment addresses.
// A nil parser selects the built-in StreetParser.
func NewAddressNormalizer(p Parser) *AddressNormalizer {
	if p == nil {
		p = StreetParser{}
	}
	return &AddressNormalizer{parser: p}
}

// WithDebug returns a copy that traces each step at debug level.
func (n *AddressNormalizer) WithDebug(enabled bool) *AddressNormalizer {
	c := *n
	c.debug = enabled
	return &c
}

var defaultNormalizer = NewAddressNormalizer(nil)

// CanonicalAddress normalizes raw with the built-in parser.
func CanonicalAddress(raw string) string {
	return defaultNormalizer.Normalize(raw)
}

// Normalize returns the uppercase canonical form of raw, or "" for blank
// input. Identical input always yields identical output.
func (n *AddressNormalizer) Normalize(raw string) string {
	debug.DebugHeader(n.debug)
	defer debug.DebugFooter(n.debug)

	s := strings.TrimSpace(raw)
	if s == "" {
		return ""
	}
	s = strings.ToUpper(unidecode.Unidecode(s))
	debug.DebugOutput(n.debug, "Input: %s", s)

	s = stripPunctuation(s)
	debug.DebugOutput(n.debug, "After punctuation removal: %s", s)

	s = strings.Join(strings.Fields(reUnit.ReplaceAllString(s, "")), " ")
	debug.DebugOutput(n.debug, "After unit removal: %s", s)
	if s == "" {
		return ""
	}

	parsed, err := n.parser.Parse(s)
	if err != nil {
		out := fallbackNormalize(s)
		debug.DebugOutput(n.debug, "Parse failed (%v), fallback: %s", err, out)
		return out
	}

	parts := make([]string, 0, 8)
	add := func(v string) {
		if v = strings.TrimSpace(v); v != "" {
			parts = append(parts, v)
		}
	}
	add(parsed.HouseNumber)
	add(mapToken(directionMap, parsed.PreDirectional))
	for _, tok := range strings.Fields(parsed.StreetName) {
		add(stripOrdinal(tok))
	}
	add(mapToken(suffixMap, parsed.StreetSuffix))
	add(mapToken(directionMap, parsed.PostDirectional))

	out := strings.Join(parts, " ")
	debug.DebugOutput(n.debug, "Final canonical: %s", out)
	return out
}

func stripPunctuation(s string) string {
	s = reDropPunct.ReplaceAllString(s, "")
	s = reSplitPunct.ReplaceAllString(s, " ")
	for reLooseHyphen.MatchString(s) {
		s = reLooseHyphen.ReplaceAllString(s, "$1 $2")
	}
	return strings.Join(strings.Fields(s), " ")
}

// fallbackNormalize is the token-level normalization used when the parser
// cannot segment the address.
func fallbackNormalize(s string) string {
	words := strings.Fields(strings.ReplaceAll(s, "#", " "))
	out := make([]string, 0, len(words))
	for _, w := range words {
		w = stripOrdinal(w)
		if v, ok := suffixMap[w]; ok {
			w = v
		} else if v, ok := directionMap[w]; ok {
			w = v
		}
		out = append(out, w)
	}
	return strings.Join(out, " ")
}

func stripOrdinal(tok string) string {
	if m := reOrdinal.FindStringSubmatch(tok); m != nil {
		return m[1]
	}
	return tok
}

func mapToken(table map[string]string, tok string) string {
	tok = strings.TrimSpace(strings.ToUpper(tok))
	if v, ok := table[tok]; ok {
		return v
	}
	return tok
}
