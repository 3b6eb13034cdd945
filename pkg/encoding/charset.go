// Package encoding converts between UTF-8 and legacy text encodings, such as
// the EUC-KR used by older Korean tools.
package encoding

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// ErrUnsupportedCharset is returned for encoding labels that are not known.
var ErrUnsupportedCharset = errors.New("unsupported charset")

// Lookup returns the encoding for a label such as "euc-kr", "shift_jis" or
// "windows-1252". Labels are matched case-insensitively.
func Lookup(label string) (encoding.Encoding, error) {
	enc, err := htmlindex.Get(strings.TrimSpace(label))
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedCharset, label)
	}
	return enc, nil
}

// NewReader returns a reader that decodes r from the labelled charset to
// UTF-8. Its signature matches xml.Decoder.CharsetReader.
func NewReader(label string, r io.Reader) (io.Reader, error) {
	enc, err := Lookup(label)
	if err != nil {
		return nil, err
	}
	if enc == unicode.UTF8 {
		return r, nil
	}
	return transform.NewReader(r, enc.NewDecoder()), nil
}

// FromUTF8 encodes s in the labelled charset.
func FromUTF8(label, s string) ([]byte, error) {
	enc, err := Lookup(label)
	if err != nil {
		return nil, err
	}
	out, _, err := transform.Bytes(enc.NewEncoder(), []byte(s))
	if err != nil {
		return nil, fmt.Errorf("encoding %s: %w", label, err)
	}
	return out, nil
}
