package normalize

import (
	"errors"
	"regexp"
	"strings"
)

// ErrUnparsed is returned by a Parser that cannot segment an address into
// street components. CanonicalAddress falls back to token-level
// normalization when it sees it.
var ErrUnparsed = errors.New("address could not be parsed")

// ParsedAddress holds the street-level components the matcher compares.
// Values are uppercase; suffixes and directionals are still raw here.
type ParsedAddress struct {
	HouseNumber     string
	PreDirectional  string
	StreetName      string
	StreetSuffix    string
	PostDirectional string
}

// Parser segments a cleaned, uppercase address line into components.
type Parser interface {
	Parse(address string) (ParsedAddress, error)
}

// ParserFunc adapts a function to the Parser interface.
type ParserFunc func(address string) (ParsedAddress, error)

// Parse calls f(address).
func (f ParserFunc) Parse(address string) (ParsedAddress, error) {
	return f(address)
}

var reHouseNumber = regexp.MustCompile(`^\d+[A-Z]?$|^\d+-\d+[A-Z]?$`)

// StreetParser is the built-in US street-line parser. It expects the house
// number first, then an optional pre-directional, the street name, a suffix
// and an optional post-directional. Tokens after the suffix other than a
// single directional are discarded as occupancy or locality noise.
type StreetParser struct{}

// Parse implements Parser.
func (StreetParser) Parse(address string) (ParsedAddress, error) {
	tokens := strings.Fields(address)
	if len(tokens) == 0 {
		return ParsedAddress{}, ErrUnparsed
	}

	var houseNumber string
	if reHouseNumber.MatchString(tokens[0]) {
		houseNumber = tokens[0]
		tokens = tokens[1:]
	}
	return SegmentStreet(houseNumber, tokens)
}

// SegmentStreet splits the tokens of a street (everything after the house
// number) into directionals, name and suffix. It is shared with parsers that
// only report a whole "road" component.
func SegmentStreet(houseNumber string, tokens []string) (ParsedAddress, error) {
	parsed := ParsedAddress{HouseNumber: houseNumber}

	// The last suffix synonym terminates the street name.
	suffixAt := -1
	for i := len(tokens) - 1; i > 0; i-- {
		if _, ok := suffixMap[tokens[i]]; ok {
			suffixAt = i
			break
		}
	}

	name := tokens
	if suffixAt > 0 {
		parsed.StreetSuffix = tokens[suffixAt]
		trailing := tokens[suffixAt+1:]
		if len(trailing) > 0 {
			if _, ok := directionMap[trailing[0]]; ok {
				parsed.PostDirectional = trailing[0]
			}
		}
		name = tokens[:suffixAt]
	} else if n := len(tokens); n >= 2 {
		if _, ok := directionMap[tokens[n-1]]; ok {
			parsed.PostDirectional = tokens[n-1]
			name = tokens[:n-1]
		}
	}

	if len(name) >= 2 {
		if _, ok := directionMap[name[0]]; ok {
			parsed.PreDirectional = name[0]
			name = name[1:]
		}
	}

	if len(name) == 0 {
		return ParsedAddress{}, ErrUnparsed
	}
	parsed.StreetName = strings.Join(name, " ")
	return parsed, nil
}
