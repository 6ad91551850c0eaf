//go:build !libpostal

package postal

import (
	"errors"

	"github.com/leed-ll97/internal/normalize"
)

// Available reports whether the libpostal parser is compiled in.
const Available = false

// ErrUnavailable is returned by New when the binary was built without the
// libpostal tag.
var ErrUnavailable = errors.New("libpostal support not compiled in (build with -tags libpostal)")

// New returns ErrUnavailable; callers keep the built-in street parser.
func New() (normalize.Parser, error) {
	return nil, ErrUnavailable
}
