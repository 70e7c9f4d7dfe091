package csv

import (
	"fmt"
	"io"
	"strings"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// Decode wraps r so that it yields UTF-8 regardless of the export's encoding.
//
// For "utf-8" (the default) a leading byte order mark is honoured: a UTF-8
// BOM is stripped and a UTF-16 BOM switches decoding to UTF-16, which covers
// Excel's "Unicode text" exports without configuration.
func Decode(r io.Reader, name string) (io.Reader, error) {
	t, err := decoderFor(name)
	if err != nil {
		return nil, err
	}
	return transform.NewReader(r, t), nil
}

func decoderFor(name string) (transform.Transformer, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "utf-8", "utf8":
		return unicode.BOMOverride(unicode.UTF8.NewDecoder()), nil
	case "utf-16":
		return unicode.UTF16(unicode.LittleEndian, unicode.UseBOM).NewDecoder(), nil
	case "windows-1252", "cp1252":
		return charmap.Windows1252.NewDecoder(), nil
	case "latin1", "iso-8859-1":
		return charmap.ISO8859_1.NewDecoder(), nil
	}
	return nil, fmt.Errorf("unsupported input encoding %q", name)
}
