package tool

import (
	"encoding/base64"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

const fallbackMediaType = "application/octet-stream"

// EncodeDataURI renders data as data:<mediaType>;base64,<payload>.
func EncodeDataURI(mediaType string, data []byte) string {
	if mediaType == "" {
		mediaType = fallbackMediaType
	}
	var b strings.Builder
	b.Grow(len("data:;base64,") + len(mediaType) + base64.StdEncoding.EncodedLen(len(data)))
	b.WriteString("data:")
	b.WriteString(mediaType)
	b.WriteString(";base64,")
	b.WriteString(base64.StdEncoding.EncodeToString(data))
	return b.String()
}

// DetectMediaType sniffs content, dropping parameters such as charset.
func DetectMediaType(data []byte) string {
	mt := mimetype.Detect(data).String()
	if base, _, found := strings.Cut(mt, ";"); found {
		mt = strings.TrimSpace(base)
	}
	if mt == "" {
		return fallbackMediaType
	}
	return mt
}
