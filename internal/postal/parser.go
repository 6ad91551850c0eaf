//go:build libpostal

// Package postal adapts libpostal's address parser to normalize.Parser.
// Build with -tags libpostal on hosts that have libpostal installed.
package postal

import (
	"strings"

	parser "github.com/openvenues/gopostal/parser"

	"github.com/leed-ll97/internal/normalize"
)

// Available reports whether the libpostal parser is compiled in.
const Available = true

// Parser segments address lines with libpostal.
type Parser struct{}

// New returns the libpostal-backed parser.
func New() (normalize.Parser, error) {
	return Parser{}, nil
}

// Parse implements normalize.Parser. libpostal only reports the whole road,
// so suffix and directionals are split out by normalize.SegmentStreet.
func (Parser) Parse(address string) (normalize.ParsedAddress, error) {
	var houseNumber string
	var road []string
	for _, c := range parser.ParseAddress(address) {
		switch c.Label {
		case "house_number":
			if houseNumber == "" {
				houseNumber = strings.ToUpper(c.Value)
			}
		case "road":
			road = append(road, strings.Fields(strings.ToUpper(c.Value))...)
		}
	}
	if len(road) == 0 {
		return normalize.ParsedAddress{}, normalize.ErrUnparsed
	}
	return normalize.SegmentStreet(houseNumber, road)
}
