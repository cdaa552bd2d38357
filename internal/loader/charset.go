package loader

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/net/html/charset"
	"golang.org/x/text/transform"
)

// DefaultCharset is used when the caller passes an empty charset name.
const DefaultCharset = "utf-8"

// ErrUnknownCharset is returned for charset names that have no decoder.
var ErrUnknownCharset = errors.New("unknown charset")

// decodingReader returns r transcoded from the named charset to UTF-8,
// along with the canonical charset name. Names follow the WHATWG encoding
// labels, so "UTF-8", "ISO-8859-1", "latin1" and "windows-1252" all work.
func decodingReader(r io.Reader, name string) (io.Reader, string, error) {
	label := strings.TrimSpace(name)
	if label == "" {
		label = DefaultCharset
	}

	enc, canonical := charset.Lookup(label)
	if enc == nil {
		return nil, "", fmt.Errorf("%w: %q", ErrUnknownCharset, name)
	}

	return transform.NewReader(r, enc.NewDecoder()), canonical, nil
}
