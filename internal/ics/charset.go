package ics

import (
	"fmt"
	"io"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/japanese"
	"golang.org/x/text/transform"
)

// decoderFor returns the decoder for a feed charset; nil means the body is
// already UTF-8.
func decoderFor(charset string) (*encoding.Decoder, error) {
	switch strings.ToLower(strings.TrimSpace(charset)) {
	case "", "utf-8", "utf8":
		return nil, nil
	case "shift_jis", "sjis", "cp932":
		return japanese.ShiftJIS.NewDecoder(), nil
	case "euc-jp":
		return japanese.EUCJP.NewDecoder(), nil
	case "iso-2022-jp":
		return japanese.ISO2022JP.NewDecoder(), nil
	default:
		return nil, fmt.Errorf("unsupported charset %q", charset)
	}
}

// readDecoded reads r fully and converts it from charset to UTF-8.
func readDecoded(r io.Reader, charset string) ([]byte, error) {
	dec, err := decoderFor(charset)
	if err != nil {
		return nil, err
	}
	if dec != nil {
		r = transform.NewReader(r, dec)
	}
	return io.ReadAll(r)
}
